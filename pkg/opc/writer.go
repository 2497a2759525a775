package opc

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/threemf/pkg/diag"
)

// Writer builds a container. Parts are written in creation order; content
// types and relationship parts are written on Close in sorted order, so the
// same sequence of calls always gives the same bytes.
type Writer struct {
	zw        *zip.Writer
	parts     map[string]bool
	defaults  map[string]string
	overrides map[string]string
	rels      map[string][]Relationship
	nextRel   int
	closed    bool
}

// NewWriter starts a container on w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		zw:        zip.NewWriter(w),
		parts:     make(map[string]bool),
		defaults:  map[string]string{"rels": ContentTypeRelationships},
		overrides: make(map[string]string),
		rels:      make(map[string][]Relationship),
	}
}

// AddDefault declares the content type of every part with extension ext.
func (w *Writer) AddDefault(ext, contentType string) {
	w.defaults[strings.ToLower(strings.TrimPrefix(ext, "."))] = contentType
}

// CreatePart adds a part and returns a writer for its bytes. The writer is
// valid until the next CreatePart or Close. When contentType differs from
// the default for the part's extension an override is recorded.
func (w *Writer) CreatePart(name, contentType string) (io.Writer, error) {
	if w.closed {
		return nil, diag.New(diag.ErrInvalidArgument, "writer closed")
	}
	name = NormalizeName(name)
	k := key(name)
	if w.parts[k] || k == key(contentTypesName) {
		return nil, diag.New(diag.ErrInvalidArgument, "duplicate part %s", name)
	}
	w.parts[k] = true

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	if def, ok := w.defaults[ext]; !ok {
		if builtin, ok := DefaultContentType(ext); ok && builtin == contentType {
			w.defaults[ext] = contentType
		} else {
			w.overrides[name] = contentType
		}
	} else if def != contentType {
		w.overrides[name] = contentType
	}

	return w.create(name)
}

func (w *Writer) create(name string) (io.Writer, error) {
	fw, err := w.zw.CreateHeader(&zip.FileHeader{
		Name:   strings.TrimPrefix(name, "/"),
		Method: zip.Deflate,
	})
	if err != nil {
		return nil, diag.Wrap(diag.ErrIO, errors.Wrap(err, "creating part"), name)
	}
	return fw, nil
}

// AddRelationship links source (empty for the package) to target and returns
// the package-unique relationship ID.
func (w *Writer) AddRelationship(source, target, relType string) (string, error) {
	if relType == "" || target == "" {
		return "", diag.New(diag.ErrInvalidArgument, "relationship needs type and target")
	}
	if source != "" {
		source = NormalizeName(source)
	}
	target = NormalizeName(target)
	for _, r := range w.rels[source] {
		if r.Type == relType && strings.EqualFold(r.Target, target) {
			return r.ID, nil
		}
	}
	id := fmt.Sprintf("rel%d", w.nextRel)
	w.nextRel++
	w.rels[source] = append(w.rels[source], Relationship{ID: id, Type: relType, Target: target})
	return id, nil
}

// Close writes the relationship parts and [Content_Types].xml and finishes
// the archive. It does not close the underlying writer.
func (w *Writer) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true

	sources := make([]string, 0, len(w.rels))
	for s := range w.rels {
		sources = append(sources, s)
	}
	sort.Strings(sources)
	for _, s := range sources {
		doc := xmlRelationships{Xmlns: nsRelationships}
		for _, r := range w.rels[s] {
			doc.Relationships = append(doc.Relationships, xmlRelationship{
				ID: r.ID, Type: r.Type, Target: r.Target, TargetMode: r.TargetMode,
			})
		}
		if err := w.writeXML(RelsName(s), doc); err != nil {
			return err
		}
	}

	types := xmlTypes{Xmlns: nsContentTypes}
	exts := make([]string, 0, len(w.defaults))
	for e := range w.defaults {
		exts = append(exts, e)
	}
	sort.Strings(exts)
	for _, e := range exts {
		types.Defaults = append(types.Defaults, xmlDefault{Extension: e, ContentType: w.defaults[e]})
	}
	names := make([]string, 0, len(w.overrides))
	for n := range w.overrides {
		names = append(names, n)
	}
	sort.Strings(names)
	for _, n := range names {
		types.Overrides = append(types.Overrides, xmlOverride{PartName: n, ContentType: w.overrides[n]})
	}
	if err := w.writeXML(contentTypesName, types); err != nil {
		return err
	}

	if err := w.zw.Close(); err != nil {
		return diag.Wrap(diag.ErrIO, errors.Wrap(err, "finishing archive"), "")
	}
	return nil
}

func (w *Writer) writeXML(name string, v any) error {
	fw, err := w.create(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(fw, xml.Header); err != nil {
		return diag.Wrap(diag.ErrIO, err, name)
	}
	enc := xml.NewEncoder(fw)
	if err := enc.Encode(v); err != nil {
		return diag.Wrap(diag.ErrIO, errors.Wrap(err, "encoding"), name)
	}
	return nil
}
