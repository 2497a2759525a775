package codec

import (
	"bytes"
	"context"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/model"
	"github.com/Faultbox/threemf/pkg/opc"
)

// Writer serializes a model into a 3MF package. Output is deterministic:
// the same model and options always give the same bytes.
//
// A Writer is not safe for concurrent use.
type Writer struct {
	model *model.Model
	opts  settings
	log   *zap.Logger

	progress *progress
	indices  *PropertyIndexMap
	// cached holds the package produced by StreamSize until the next Write.
	cached []byte
}

// NewWriter creates a writer for m.
func NewWriter(m *model.Model, opts ...Option) *Writer {
	s := newSettings(opts)
	return &Writer{model: m, opts: s, log: s.logger}
}

// Indices returns the property index table of the last write.
func (w *Writer) Indices() *PropertyIndexMap {
	return w.indices
}

// Write streams the package to dst.
func (w *Writer) Write(ctx context.Context, dst io.Writer) error {
	if w.cached != nil {
		data := w.cached
		w.cached = nil
		if _, err := dst.Write(data); err != nil {
			return diag.Wrap(diag.ErrIO, errors.Wrap(err, "writing package"), "")
		}
		return nil
	}
	return w.write(ctx, dst)
}

// WriteFile writes the package to name. A partially written file is removed
// on error.
func (w *Writer) WriteFile(ctx context.Context, name string) (err error) {
	f, err := os.Create(name)
	if err != nil {
		return diag.Wrap(diag.ErrIO, errors.Wrap(err, "creating package"), name)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = diag.Wrap(diag.ErrIO, errors.Wrap(cerr, "closing package"), name)
		}
		if err != nil {
			os.Remove(name)
		}
	}()
	return w.Write(ctx, f)
}

// StreamSize renders the package in memory and returns its size. The bytes
// are kept and handed out by the next Write, so a caller that sizes a
// buffer first does not pay for two serializations.
func (w *Writer) StreamSize(ctx context.Context) (int64, error) {
	var buf bytes.Buffer
	w.cached = nil
	if err := w.write(ctx, &buf); err != nil {
		return 0, err
	}
	w.cached = buf.Bytes()
	return int64(len(w.cached)), nil
}

func (w *Writer) write(ctx context.Context, dst io.Writer) error {
	w.progress = newProgress(ctx, w.opts.progress)
	w.indices = NewPropertyIndexMap()
	if err := w.progress.report(StageWriteModel); err != nil {
		return err
	}

	pkg := opc.NewWriter(dst)
	exts := make([]string, 0, len(w.model.CustomContentTypes))
	for ext := range w.model.CustomContentTypes {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	for _, ext := range exts {
		pkg.AddDefault(ext, w.model.CustomContentTypes[ext])
	}

	parts := w.model.Parts()
	for i, part := range parts {
		w.log.Debug("writing model part", zap.String("part", part), zap.Int("resources", len(w.model.ResourcesInPart(part))))
		pw, err := pkg.CreatePart(part, opc.ContentTypeModel)
		if err != nil {
			return err
		}
		mw := newModelWriter(w, part, i == 0, pw)
		if err := mw.writeModel(); err != nil {
			return err
		}
		if err := mw.x.flush(); err != nil {
			return diag.Wrap(diag.ErrIO, errors.Wrap(err, "writing model part"), part)
		}
	}
	if _, err := pkg.AddRelationship("", parts[0], opc.RelModel); err != nil {
		return err
	}
	for _, part := range parts[1:] {
		if _, err := pkg.AddRelationship(parts[0], part, opc.RelModel); err != nil {
			return err
		}
	}

	if err := w.writeAttachments(pkg, parts[0]); err != nil {
		return err
	}
	return pkg.Close()
}

// writeAttachments stores every attachment and links it from the part that
// uses it: textures from the part defining the texture resource, the
// thumbnail from the package, everything else from the root part.
func (w *Writer) writeAttachments(pkg *opc.Writer, root string) error {
	owners := make(map[string]string)
	for _, r := range w.model.Resources() {
		if tex, ok := r.(*model.Texture2D); ok {
			k := strings.ToLower(model.NormalizePath(tex.Path))
			if _, seen := owners[k]; !seen {
				owners[k] = tex.PackageID().Path
			}
		}
	}
	thumb := w.model.Thumbnail()

	for _, a := range w.model.Attachments() {
		if err := w.progress.step(StageWriteAttachments); err != nil {
			return err
		}
		ct := a.ContentType
		if ct == "" {
			ct = w.model.ContentTypeFor(a.Path)
		}
		pw, err := pkg.CreatePart(a.Path, ct)
		if err != nil {
			return err
		}
		if _, err := pw.Write(a.Data); err != nil {
			return diag.Wrap(diag.ErrIO, errors.Wrap(err, "writing attachment"), a.Path)
		}

		switch {
		case a == thumb:
			_, err = pkg.AddRelationship("", a.Path, opc.RelThumbnail)
		case a.RelationshipType == opc.RelTexture:
			source, ok := owners[strings.ToLower(a.Path)]
			if !ok {
				source = root
			}
			_, err = pkg.AddRelationship(source, a.Path, opc.RelTexture)
		case a.RelationshipType != "":
			_, err = pkg.AddRelationship(root, a.Path, a.RelationshipType)
		}
		if err != nil {
			return err
		}
		w.log.Debug("wrote attachment", zap.String("path", a.Path), zap.Int("size", len(a.Data)))
	}
	return nil
}

// Save writes m to the file name.
func Save(ctx context.Context, m *model.Model, name string, opts ...Option) error {
	return NewWriter(m, opts...).WriteFile(ctx, name)
}
