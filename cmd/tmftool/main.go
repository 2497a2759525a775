// tmftool is a CLI utility for inspecting and converting 3MF packages.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"

	"github.com/davecgh/go-spew/spew"
	"github.com/mitchellh/go-homedir"
	"go.uber.org/zap"

	"github.com/Faultbox/threemf/internal/config"
	"github.com/Faultbox/threemf/internal/logger"
	"github.com/Faultbox/threemf/pkg/codec"
	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/model"
	"github.com/Faultbox/threemf/pkg/opc"
)

var cfg *config.Config

func main() {
	config.ParseFlags()
	args := flag.Args()
	if len(args) < 1 {
		printUsage()
		os.Exit(1)
	}

	var err error
	cfg, err = config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	command := args[0]
	args = args[1:]

	switch command {
	case "info":
		err = cmdInfo(ctx, args)
	case "list", "ls":
		err = cmdList(args)
	case "extract", "x":
		err = cmdExtract(args)
	case "validate":
		err = cmdValidate(ctx, args)
	case "merge":
		err = cmdMerge(ctx, args)
	case "gltf":
		err = cmdGLTF(ctx, args)
	case "convert":
		err = cmdConvert(ctx, args)
	case "stl":
		err = cmdSTL(ctx, args)
	case "thumbnail":
		err = cmdThumbnail(ctx, args)
	case "dump":
		err = cmdDump(ctx, args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		logger.Debug("command failed", zap.String("command", command), zap.Error(err))
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if kind := diag.KindOf(err); kind != diag.KindUnknown {
			fmt.Fprintf(os.Stderr, "  (%s)\n", kind)
		}
		logger.Sync()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`tmftool - 3MF package utility

Usage:
  tmftool [global options] <command> [options]

Global options:
  -config <file>   Config file (config.yaml or config.toml)
  -debug           Enable debug logging
  -log <file>      Write logs to a rotating file
  -precision <n>   Decimal places for written numbers
  -relaxed         Report recoverable violations as warnings

Commands:
  info <file.3mf>                      Show model summary
  list <file.3mf>                      List package parts
  extract <file.3mf> <part> [output]   Extract a part to a file
  validate <file.3mf>                  Read and report every violation
  merge <in.3mf> <out.3mf>             Flatten the build into one mesh per item
  gltf <in.3mf> <out.glb|out.gltf>     Export the build as glTF
  convert <in.stl> <out.3mf>           Wrap an STL mesh in a 3MF package
  stl <in.3mf> <out.stl>               Export the build as binary STL
  thumbnail <in.3mf> <out.webp>        Extract the package thumbnail as WebP
  dump <file.3mf>                      Dump the in-memory model

Examples:
  tmftool info part.3mf
  tmftool -relaxed validate part.3mf
  tmftool extract part.3mf /Metadata/thumbnail.png ./out
  tmftool gltf -json part.3mf part.gltf`)
}

// codecOptions builds the reader and writer options from the config.
func codecOptions() []codec.Option {
	return []codec.Option{
		codec.WithPrecision(cfg.Codec.Precision),
		codec.WithRelaxed(cfg.Codec.Relaxed),
		codec.WithLogger(logger.Named("codec")),
		codec.WithAttachmentRelationships(cfg.Codec.AttachmentRelationships...),
	}
}

// expand resolves a leading ~ in a path argument.
func expand(path string) string {
	if p, err := homedir.Expand(path); err == nil {
		return p
	}
	return path
}

// load reads a package and prints the tolerated violations to stderr.
func load(ctx context.Context, path string) (*model.Model, error) {
	m := model.New()
	r := codec.NewReader(m, codecOptions()...)
	if err := r.ReadFile(ctx, expand(path)); err != nil {
		return nil, err
	}
	for _, w := range r.Warnings() {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}
	return m, nil
}

func cmdInfo(ctx context.Context, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("usage: tmftool info <file.3mf>")
	}

	m, err := load(ctx, args[0])
	if err != nil {
		return err
	}

	fmt.Printf("Package:   %s\n", args[0])
	fmt.Printf("Unit:      %s\n", m.Unit)
	if m.Language != "" {
		fmt.Printf("Language:  %s\n", m.Language)
	}
	fmt.Printf("Parts:     %s\n", strings.Join(m.Parts(), ", "))
	for _, md := range m.Metadata.All() {
		fmt.Printf("Metadata:  %s = %q\n", md.Key(), md.Value)
	}
	fmt.Println()

	kindCount := make(map[model.ResourceKind]int)
	for _, r := range m.Resources() {
		kindCount[r.Kind()]++
	}
	kinds := make([]model.ResourceKind, 0, len(kindCount))
	for k := range kindCount {
		kinds = append(kinds, k)
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })
	fmt.Println("Resources by kind:")
	for _, k := range kinds {
		fmt.Printf("  %-22s %d\n", k, kindCount[k])
	}
	fmt.Println()

	fmt.Println("Mesh objects:")
	for _, r := range m.Resources() {
		o, ok := r.(*model.MeshObject)
		if !ok {
			continue
		}
		msh := o.Mesh()
		fmt.Printf("  %4d %-20q vertices=%d triangles=%d", o.PackageID().LocalID, o.Name, msh.VertexCount(), msh.FaceCount())
		if o.HasBeamLattice() {
			fmt.Printf(" beams=%d balls=%d", msh.BeamCount(), msh.BallCount())
		}
		if lo, hi, ok := msh.Bounds(); ok {
			fmt.Printf(" bounds=[%g %g %g]..[%g %g %g]", lo.X, lo.Y, lo.Z, hi.X, hi.Y, hi.Z)
		}
		fmt.Println()
	}
	fmt.Println()

	for _, r := range m.Resources() {
		st, ok := r.(*model.SliceStack)
		if !ok || len(st.Slices()) == 0 {
			continue
		}
		var area float32
		for _, sl := range st.Slices() {
			for i := range sl.Polygons {
				if a, err := sl.PolygonArea(i); err == nil {
					area += a
				}
			}
		}
		fmt.Printf("Slice stack %d: slices=%d z=[%g..%g] area=%g\n", st.PackageID().LocalID, len(st.Slices()), st.BottomZ, st.TopZ(), area)
	}

	fmt.Printf("Build items: %d\n", len(m.BuildItems()))
	for _, item := range m.BuildItems() {
		fmt.Printf("  object %d", item.Object)
		if item.PartNumber != "" {
			fmt.Printf(" partnumber=%s", item.PartNumber)
		}
		fmt.Println()
	}

	if atts := m.Attachments(); len(atts) > 0 {
		fmt.Printf("\nAttachments: %d\n", len(atts))
		for _, a := range atts {
			fmt.Printf("  %-40s %-12s %d bytes\n", a.Path, a.ContentType, len(a.Data))
		}
	}
	return nil
}

func cmdList(args []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	long := fs.Bool("l", false, "Show content types and sizes")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: tmftool list [-l] <file.3mf>")
	}

	pkg, err := opc.Open(expand(fs.Arg(0)))
	if err != nil {
		return err
	}
	defer pkg.Close()

	parts := pkg.Parts()
	sort.Strings(parts)
	for _, p := range parts {
		if *long {
			fmt.Printf("%10d  %-60s %s\n", pkg.Size(p), p, pkg.ContentType(p))
			continue
		}
		fmt.Println(p)
	}
	fmt.Fprintf(os.Stderr, "\n(%d parts)\n", len(parts))
	return nil
}

func cmdExtract(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)
	fs.Parse(args)

	if fs.NArg() < 2 {
		return fmt.Errorf("usage: tmftool extract <file.3mf> <part> [output_dir]")
	}

	partName := fs.Arg(1)
	outputDir := "."
	if fs.NArg() > 2 {
		outputDir = expand(fs.Arg(2))
	}

	pkg, err := opc.Open(expand(fs.Arg(0)))
	if err != nil {
		return err
	}
	defer pkg.Close()

	if !pkg.Contains(partName) {
		return fmt.Errorf("part not found: %s", partName)
	}

	data, err := pkg.Read(partName)
	if err != nil {
		return fmt.Errorf("reading part: %w", err)
	}

	outputPath := filepath.Join(outputDir, filepath.Base(partName))
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return fmt.Errorf("writing file: %w", err)
	}

	fmt.Printf("Extracted: %s (%d bytes)\n", outputPath, len(data))
	return nil
}

func cmdValidate(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("validate", flag.ExitOnError)
	strict := fs.Bool("strict", false, "Fail on the first violation")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: tmftool validate [-strict] <file.3mf>")
	}

	m := model.New()
	opts := append(codecOptions(), codec.WithRelaxed(!*strict))
	r := codec.NewReader(m, opts...)
	if err := r.ReadFile(ctx, expand(fs.Arg(0))); err != nil {
		return err
	}

	problems := 0
	for _, w := range r.Warnings() {
		fmt.Printf("violation: %v\n", w)
		problems++
	}
	for _, res := range m.Resources() {
		o, ok := res.(*model.MeshObject)
		if !ok {
			continue
		}
		if !o.IsValid() {
			fmt.Printf("object %d: not a valid %s mesh\n", o.PackageID().LocalID, o.Type)
			problems++
		}
		if o.Type == model.ObjectModel && o.Mesh().FaceCount() > 0 && !o.Mesh().IsManifoldAndOriented() {
			fmt.Printf("object %d: mesh is not manifold and oriented (%d boundary edges)\n",
				o.PackageID().LocalID, o.Mesh().BoundaryEdgeCount())
			problems++
		}
	}

	if problems > 0 {
		return fmt.Errorf("%d problems found", problems)
	}
	fmt.Println("OK")
	return nil
}

func cmdMerge(ctx context.Context, args []string) error {
	if len(args) < 2 {
		return fmt.Errorf("usage: tmftool merge <in.3mf> <out.3mf>")
	}

	m, err := load(ctx, args[0])
	if err != nil {
		return err
	}
	merged, err := m.MergeToModel()
	if err != nil {
		return fmt.Errorf("merging build: %w", err)
	}
	if err := codec.Save(ctx, merged, expand(args[1]), codecOptions()...); err != nil {
		return err
	}

	fmt.Printf("Merged %d build items into %s\n", len(merged.BuildItems()), args[1])
	return nil
}

func cmdDump(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("dump", flag.ExitOnError)
	depth := fs.Int("depth", 4, "Maximum nesting depth (0 = unlimited)")
	fs.Parse(args)

	if fs.NArg() < 1 {
		return fmt.Errorf("usage: tmftool dump [-depth n] <file.3mf>")
	}

	m, err := load(ctx, fs.Arg(0))
	if err != nil {
		return err
	}

	dumper := spew.ConfigState{
		Indent:                  "  ",
		MaxDepth:                *depth,
		DisablePointerAddresses: true,
		DisableCapacities:       true,
		SortKeys:                true,
	}
	dumper.Fdump(os.Stdout, m)
	return nil
}
