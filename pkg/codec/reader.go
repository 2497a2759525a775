package codec

import (
	"context"
	"encoding/xml"
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/encoding"
	"github.com/Faultbox/threemf/pkg/model"
	"github.com/Faultbox/threemf/pkg/opc"
	"github.com/Faultbox/threemf/pkg/texture"
)

type partState uint8

const (
	partLoading partState = iota + 1
	partLoaded
)

// Reader fills a model from a 3MF package.
//
// A Reader is not safe for concurrent use. On error the model is left
// partially built and should be discarded.
type Reader struct {
	model *model.Model
	opts  settings
	sink  *diag.Sink
	log   *zap.Logger

	pkg      *opc.Package
	progress *progress
	parts    map[string]partState
	// groupIDs maps the wire index of each group entry to its property ID.
	groupIDs map[model.UniqueID][]uint32
}

// NewReader creates a reader that adds everything it reads to m.
func NewReader(m *model.Model, opts ...Option) *Reader {
	s := newSettings(opts)
	return &Reader{
		model: m,
		opts:  s,
		sink:  diag.NewSink(s.relaxed),
		log:   s.logger,
	}
}

// Warnings returns the violations tolerated in relaxed mode, in the order
// they were found.
func (r *Reader) Warnings() []error {
	return r.sink.Warnings()
}

// ReadFile reads the package stored at name.
func (r *Reader) ReadFile(ctx context.Context, name string) error {
	pkg, err := opc.Open(name)
	if err != nil {
		return err
	}
	defer pkg.Close()
	return r.read(ctx, pkg)
}

// Read reads a package of the given size from ra.
func (r *Reader) Read(ctx context.Context, ra io.ReaderAt, size int64) error {
	pkg, err := opc.NewReader(ra, size)
	if err != nil {
		return err
	}
	return r.read(ctx, pkg)
}

func (r *Reader) read(ctx context.Context, pkg *opc.Package) error {
	r.pkg = pkg
	r.progress = newProgress(ctx, r.opts.progress)
	r.parts = make(map[string]partState)
	r.groupIDs = make(map[model.UniqueID][]uint32)
	r.sink.Reset()
	defer func() { r.pkg = nil }()

	root, err := pkg.RootModelPart()
	if err != nil {
		return err
	}
	r.log.Debug("reading package", zap.String("root", root), zap.Int("parts", len(pkg.Parts())))

	if err := r.loadThumbnail(); err != nil {
		return err
	}
	if err := r.loadPart(root, true); err != nil {
		return err
	}

	// Model parts nothing referenced are still read so they survive a
	// round trip.
	rels, err := pkg.RelationshipsByType(root, opc.RelModel)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if err := r.ensurePart(rel.Target); err != nil {
			return err
		}
	}
	r.log.Debug("package read",
		zap.Int("resources", len(r.model.Resources())),
		zap.Int("warnings", r.sink.Len()))
	return nil
}

// loadThumbnail copies the package thumbnail, if any.
func (r *Reader) loadThumbnail() error {
	rels, err := r.pkg.RelationshipsByType("", opc.RelThumbnail)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		a, err := r.loadAttachment(rel.Target, opc.RelThumbnail)
		if err != nil {
			return err
		}
		if a != nil {
			return r.model.SetThumbnailPath(a.Path)
		}
	}
	return nil
}

// loadAttachments copies every allow-listed part linked from source.
func (r *Reader) loadAttachments(source string) error {
	rels, err := r.pkg.Relationships(source)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if strings.EqualFold(rel.TargetMode, "External") || !r.allowed(rel.Type) {
			continue
		}
		if _, err := r.loadAttachment(rel.Target, rel.Type); err != nil {
			return err
		}
		if err := r.progress.tick(StageReadAttachments); err != nil {
			return err
		}
	}
	return nil
}

func (r *Reader) allowed(relType string) bool {
	for _, t := range r.opts.attachmentRel {
		if t == relType {
			return true
		}
	}
	return false
}

// loadAttachment copies one part into the model. A part linked twice is
// read once. A missing target is a recoverable violation.
func (r *Reader) loadAttachment(target, relType string) (*model.Attachment, error) {
	if a := r.model.Attachment(target); a != nil {
		return a, nil
	}
	if strings.EqualFold(path.Ext(target), ".model") {
		return nil, nil
	}
	if !r.pkg.Contains(target) {
		return nil, r.sink.Report(diag.New(diag.ErrInvalidAttributeValue, "relationship target %s missing", target))
	}
	data, err := r.pkg.Read(target)
	if err != nil {
		return nil, err
	}
	a, err := r.model.AddAttachment(target, relType, data)
	if err != nil {
		return nil, err
	}
	if ct := r.pkg.ContentType(target); ct != "" {
		a.ContentType = ct
		ext := strings.ToLower(strings.TrimPrefix(path.Ext(target), "."))
		if _, builtin := opc.DefaultContentType(ext); !builtin && ext != "" {
			r.model.CustomContentTypes[ext] = ct
		}
	}
	r.log.Debug("attachment loaded", zap.String("part", a.Path), zap.Int("bytes", len(data)))
	return a, nil
}

// ensurePart reads a secondary model part the first time it is named.
func (r *Reader) ensurePart(name string) error {
	name = model.NormalizePath(name)
	switch r.parts[strings.ToLower(name)] {
	case partLoaded:
		return nil
	case partLoading:
		return diag.New(diag.ErrCircularReference, "model part %s", name)
	}
	if !r.pkg.Contains(name) {
		return diag.New(diag.ErrResourceNotFound, "model part %s", name)
	}
	if ct := r.pkg.ContentType(name); ct != opc.ContentTypeModel {
		return diag.New(diag.ErrContentTypeMismatch, "%s has content type %q", name, ct)
	}
	return r.loadPart(name, false)
}

func (r *Reader) loadPart(name string, isRoot bool) error {
	name = model.NormalizePath(name)
	r.parts[strings.ToLower(name)] = partLoading
	if err := r.progress.step(StageReadModel); err != nil {
		return err
	}
	if err := r.loadAttachments(name); err != nil {
		return err
	}

	rc, err := r.pkg.OpenPart(name)
	if err != nil {
		return err
	}
	defer rc.Close()

	dec := xml.NewDecoder(encoding.NewReader(rc))
	dec.CharsetReader = encoding.CharsetReader
	p := &parser{r: r, part: name, dec: dec, prefixes: make(map[string]string)}

	r.log.Debug("parsing model part", zap.String("part", name), zap.Bool("root", isRoot))
	if err := p.root(&modelNode{p: p, isRoot: isRoot}); err != nil {
		if diag.CodeOf(err) == nil {
			return diag.Wrap(diag.ErrIO, errors.Wrap(err, "reading model part"), name)
		}
		return err
	}
	r.parts[strings.ToLower(name)] = partLoaded
	return nil
}

// resolve finds a resource by local ID, loading refPath first when the
// reference points into another part.
func (r *Reader) resolve(part, refPath string, local uint32) (model.Resource, error) {
	if refPath != "" && !strings.EqualFold(refPath, part) {
		if err := r.ensurePart(refPath); err != nil {
			return nil, err
		}
		part = refPath
	}
	return r.model.FindResource(part, local)
}

// propertyID converts a wire index into group g to its property ID.
func (r *Reader) propertyID(g model.UniqueID, index uint32) (uint32, error) {
	ids := r.groupIDs[g]
	if index >= uint32(len(ids)) {
		return 0, diag.New(diag.ErrInvalidPropertyIndex, "index %d of %d in group %d", index, len(ids), g)
	}
	return ids[index], nil
}

func (r *Reader) addPropertyID(g model.UniqueID, id uint32) {
	r.groupIDs[g] = append(r.groupIDs[g], id)
}

// checkTexture validates a texture part against its declared content type.
func (r *Reader) checkTexture(t *model.Texture2D) error {
	a := t.Attachment()
	if a == nil {
		if r.pkg.Contains(t.Path) {
			var err error
			if a, err = r.loadAttachment(t.Path, opc.RelTexture); err != nil || a == nil {
				return err
			}
		} else {
			return r.sink.Report(diag.New(diag.ErrInvalidAttributeValue, "texture part %s missing", t.Path))
		}
	}
	pkgType := r.pkg.ContentType(a.Path)
	if pkgType != t.ContentType && pkgType != opc.ContentTypeTexture {
		return diag.New(diag.ErrContentTypeMismatch, "%s declared %q, package says %q", a.Path, t.ContentType, pkgType)
	}
	return texture.Check(t.ContentType, a.Data)
}

// Load is a convenience wrapper reading the package at name into a new
// model. Warnings are dropped; use a Reader to inspect them.
func Load(ctx context.Context, name string, opts ...Option) (*model.Model, error) {
	m := model.New()
	if err := NewReader(m, opts...).ReadFile(ctx, name); err != nil {
		return nil, err
	}
	return m, nil
}
