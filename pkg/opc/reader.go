package opc

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/Faultbox/threemf/pkg/diag"
)

// Package is an opened OPC container.
type Package struct {
	file      *os.File
	zr        *zip.Reader
	parts     map[string]*zip.File
	names     []string
	defaults  map[string]string
	overrides map[string]string
	rels      map[string][]Relationship
}

// Open opens a container file for reading.
func Open(name string) (*Package, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, diag.Wrap(diag.ErrIO, errors.Wrap(err, "opening package"), name)
	}
	st, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, diag.Wrap(diag.ErrIO, errors.Wrap(err, "stat package"), name)
	}
	p, err := NewReader(f, st.Size())
	if err != nil {
		f.Close()
		return nil, err
	}
	p.file = f
	return p, nil
}

// NewReader reads the container directory, content types and package
// relationships from r. Part-level relationships are loaded on demand.
func NewReader(r io.ReaderAt, size int64) (*Package, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, diag.Wrap(diag.ErrMalformedPackage, err, "zip directory")
	}

	p := &Package{
		zr:        zr,
		parts:     make(map[string]*zip.File, len(zr.File)),
		defaults:  make(map[string]string),
		overrides: make(map[string]string),
		rels:      make(map[string][]Relationship),
	}
	for _, f := range zr.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		name := NormalizeName(f.Name)
		k := key(name)
		if _, dup := p.parts[k]; dup {
			return nil, diag.New(diag.ErrMalformedPackage, "duplicate part %s", name)
		}
		p.parts[k] = f
		p.names = append(p.names, name)
	}
	sort.Strings(p.names)

	if err := p.readContentTypes(); err != nil {
		return nil, err
	}
	if _, err := p.loadRelationships(""); err != nil {
		return nil, err
	}
	return p, nil
}

// Close releases the underlying file when the package was opened by path.
func (p *Package) Close() error {
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

func (p *Package) readContentTypes() error {
	data, err := p.Read(contentTypesName)
	if err != nil {
		return diag.Wrap(diag.ErrMalformedPackage, err, contentTypesName)
	}
	var types xmlTypes
	if err := xml.Unmarshal(data, &types); err != nil {
		return diag.Wrap(diag.ErrMalformedXML, err, contentTypesName)
	}
	for _, d := range types.Defaults {
		p.defaults[strings.ToLower(d.Extension)] = d.ContentType
	}
	for _, o := range types.Overrides {
		p.overrides[key(o.PartName)] = o.ContentType
	}
	return nil
}

func (p *Package) loadRelationships(source string) ([]Relationship, error) {
	k := key(RelsName(source))
	if rels, ok := p.rels[k]; ok {
		return rels, nil
	}
	var out []Relationship
	if p.Contains(RelsName(source)) {
		data, err := p.Read(RelsName(source))
		if err != nil {
			return nil, err
		}
		var doc xmlRelationships
		if err := xml.Unmarshal(data, &doc); err != nil {
			return nil, diag.Wrap(diag.ErrMalformedXML, err, RelsName(source))
		}
		for _, r := range doc.Relationships {
			rel := Relationship{ID: r.ID, Type: r.Type, Target: r.Target, TargetMode: r.TargetMode}
			if !strings.EqualFold(r.TargetMode, "External") {
				rel.Target = resolveTarget(source, r.Target)
			}
			out = append(out, rel)
		}
	}
	p.rels[k] = out
	return out, nil
}

// Parts returns every part name in sorted order.
func (p *Package) Parts() []string {
	return p.names
}

// Contains reports whether the container holds the named part.
func (p *Package) Contains(name string) bool {
	_, ok := p.parts[key(name)]
	return ok
}

// Size returns the uncompressed size of a part, or -1.
func (p *Package) Size(name string) int64 {
	f, ok := p.parts[key(name)]
	if !ok {
		return -1
	}
	return int64(f.UncompressedSize64)
}

// OpenPart returns a reader over the uncompressed bytes of a part.
func (p *Package) OpenPart(name string) (io.ReadCloser, error) {
	f, ok := p.parts[key(name)]
	if !ok {
		return nil, diag.New(diag.ErrMalformedPackage, "part not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, diag.Wrap(diag.ErrMalformedPackage, err, name)
	}
	return rc, nil
}

// Read returns the uncompressed bytes of a part.
func (p *Package) Read(name string) ([]byte, error) {
	rc, err := p.OpenPart(name)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	var buf bytes.Buffer
	if n := p.Size(name); n > 0 && n < 1<<30 {
		buf.Grow(int(n))
	}
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, diag.Wrap(diag.ErrMalformedPackage, errors.Wrap(err, "reading part"), name)
	}
	return buf.Bytes(), nil
}

// ContentType returns the declared content type of a part: its override if
// present, else the default for its extension.
func (p *Package) ContentType(name string) string {
	if ct, ok := p.overrides[key(name)]; ok {
		return ct
	}
	ext := strings.ToLower(strings.TrimPrefix(path.Ext(name), "."))
	return p.defaults[ext]
}

// Relationships returns the relationships whose source is the given part.
// An empty source returns the package relationships.
func (p *Package) Relationships(source string) ([]Relationship, error) {
	return p.loadRelationships(source)
}

// RelationshipsByType filters the relationships of source by type.
func (p *Package) RelationshipsByType(source, relType string) ([]Relationship, error) {
	rels, err := p.loadRelationships(source)
	if err != nil {
		return nil, err
	}
	var out []Relationship
	for _, r := range rels {
		if r.Type == relType {
			out = append(out, r)
		}
	}
	return out, nil
}

// RootModelPart returns the part designated by the package-level 3D model
// relationship.
func (p *Package) RootModelPart() (string, error) {
	rels, err := p.RelationshipsByType("", RelModel)
	if err != nil {
		return "", err
	}
	switch len(rels) {
	case 0:
		return "", diag.New(diag.ErrMissingModelPart, "no 3D model relationship")
	case 1:
	default:
		return "", diag.New(diag.ErrMalformedPackage, "%d 3D model relationships", len(rels))
	}
	if !p.Contains(rels[0].Target) {
		return "", diag.New(diag.ErrMissingModelPart, "%s", rels[0].Target)
	}
	if ct := p.ContentType(rels[0].Target); ct != ContentTypeModel {
		return "", diag.New(diag.ErrContentTypeMismatch, "%s has content type %q", rels[0].Target, ct)
	}
	return rels[0].Target, nil
}
