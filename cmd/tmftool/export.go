package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/qmuntal/gltf"
	"go.uber.org/zap"

	"github.com/Faultbox/threemf/internal/logger"
	"github.com/Faultbox/threemf/pkg/codec"
	"github.com/Faultbox/threemf/pkg/formats"
	"github.com/Faultbox/threemf/pkg/gltfexport"
	"github.com/Faultbox/threemf/pkg/math"
	"github.com/Faultbox/threemf/pkg/mesh"
	"github.com/Faultbox/threemf/pkg/model"
	"github.com/Faultbox/threemf/pkg/texture"
)

func cmdGLTF(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("gltf", flag.ExitOnError)
	asJSON := fs.Bool("json", false, "Write .gltf JSON with embedded buffers")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: tmftool gltf [-json] <in.3mf> <out>")
	}

	m, err := load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	doc, err := gltfexport.Export(m)
	if err != nil {
		return err
	}

	out := expand(fs.Arg(1))
	binary := cfg.Export.GLTFBinary && !*asJSON && !strings.EqualFold(filepath.Ext(out), ".gltf")
	if binary {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := gltfexport.WriteBinary(f, doc); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
	} else if err := gltf.Save(doc, out); err != nil {
		return err
	}

	logger.Debug("glTF written", zap.String("path", out), zap.Bool("binary", binary), zap.Int("meshes", len(doc.Meshes)))
	fmt.Printf("Exported %d meshes to %s\n", len(doc.Meshes), out)
	return nil
}

func cmdConvert(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	unit := fs.String("unit", "millimeter", "Unit of the STL coordinates")
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: tmftool convert [-unit u] <in.stl> <out.3mf>")
	}

	stl, err := formats.ParseSTLFile(expand(fs.Arg(0)))
	if err != nil {
		return err
	}
	msh, err := stl.ToMesh(cfg.Export.WeldSTL)
	if err != nil {
		return err
	}

	m := model.New()
	u, ok := model.ParseUnit(*unit)
	if !ok {
		return fmt.Errorf("unknown unit %q", *unit)
	}
	m.Unit = u

	o, err := m.AddMeshObject("", 0)
	if err != nil {
		return err
	}
	o.Name = stl.Name
	if o.Name == "" {
		o.Name = strings.TrimSuffix(filepath.Base(fs.Arg(0)), filepath.Ext(fs.Arg(0)))
	}
	if err := o.Mesh().Merge(msh, math.IdentityTransform()); err != nil {
		return err
	}
	if _, err := m.AddBuildItem(o.ID(), math.IdentityTransform()); err != nil {
		return err
	}

	if err := codec.Save(ctx, m, expand(fs.Arg(1)), codecOptions()...); err != nil {
		return err
	}
	fmt.Printf("Converted %d triangles (%d vertices) to %s\n", msh.FaceCount(), msh.VertexCount(), fs.Arg(1))
	return nil
}

func cmdSTL(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tmftool stl <in.3mf> <out.stl>")
	}

	m, err := load(ctx, args[0])
	if err != nil {
		return err
	}
	merged, err := m.MergeToModel()
	if err != nil {
		return fmt.Errorf("merging build: %w", err)
	}

	all := mesh.New()
	for _, r := range merged.Resources() {
		if o, ok := r.(*model.MeshObject); ok {
			if err := all.Merge(o.Mesh(), math.IdentityTransform()); err != nil {
				return err
			}
		}
	}

	var buf bytes.Buffer
	if err := formats.EncodeSTL(&buf, all, "tmftool "+filepath.Base(args[0])); err != nil {
		return err
	}
	if err := os.WriteFile(expand(args[1]), buf.Bytes(), 0644); err != nil {
		return err
	}
	fmt.Printf("Wrote %d triangles to %s\n", all.FaceCount(), args[1])
	return nil
}

func cmdThumbnail(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tmftool thumbnail <in.3mf> <out.webp>")
	}

	m, err := load(ctx, args[0])
	if err != nil {
		return err
	}
	thumb := m.Thumbnail()
	if thumb == nil {
		return fmt.Errorf("%s has no thumbnail", args[0])
	}

	info, err := texture.Probe(thumb.Data)
	if err != nil {
		return err
	}
	fmt.Printf("Thumbnail: %s %s %dx%d\n", thumb.Path, info.Format, info.Width, info.Height)

	var buf bytes.Buffer
	if err := texture.EncodeWebP(&buf, thumb.Data); err != nil {
		return err
	}
	return os.WriteFile(expand(args[1]), buf.Bytes(), 0644)
}
