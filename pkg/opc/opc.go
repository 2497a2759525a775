// Package opc reads and writes Open Packaging Conventions containers: ZIP
// archives whose parts are typed by [Content_Types].xml and linked by
// relationship parts.
package opc

import (
	"encoding/xml"
	"path"
	"strings"
)

// Relationship types used by 3MF packages.
const (
	RelModel        = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dmodel"
	RelThumbnail    = "http://schemas.openxmlformats.org/package/2006/relationships/metadata/thumbnail"
	RelTexture      = "http://schemas.microsoft.com/3dmanufacturing/2013/01/3dtexture"
	RelPrintTicket  = "http://schemas.microsoft.com/3dmanufacturing/2013/01/printticket"
	RelMustPreserve = "http://schemas.openxmlformats.org/package/2006/relationships/mustpreserve"
)

// Content types used by 3MF packages.
const (
	ContentTypeModel         = "application/vnd.ms-package.3dmanufacturing-3dmodel+xml"
	ContentTypeRelationships = "application/vnd.openxmlformats-package.relationships+xml"
	ContentTypeTexture       = "application/vnd.ms-package.3dmanufacturing-3dmodeltexture"
	ContentTypePrintTicket   = "application/vnd.ms-printing.printticket+xml"
	ContentTypePNG           = "image/png"
	ContentTypeJPEG          = "image/jpeg"
)

const (
	contentTypesName = "/[Content_Types].xml"
	packageRelsName  = "/_rels/.rels"

	nsContentTypes  = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsRelationships = "http://schemas.openxmlformats.org/package/2006/relationships"
)

// Relationship is a typed link from a source part (or the package) to a
// target part. Target is an absolute part name.
type Relationship struct {
	ID         string
	Type       string
	Target     string
	TargetMode string
}

// NormalizeName returns the canonical part name: forward slashes and one
// leading slash.
func NormalizeName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	if !strings.HasPrefix(name, "/") {
		name = "/" + name
	}
	return name
}

func key(name string) string {
	return strings.ToLower(NormalizeName(name))
}

// RelsName returns the relationship part that holds the relationships of
// source. An empty source names the package itself.
func RelsName(source string) string {
	if source == "" || source == "/" {
		return packageRelsName
	}
	source = NormalizeName(source)
	dir, file := path.Split(source)
	return dir + "_rels/" + file + ".rels"
}

// resolveTarget turns a relationship target into an absolute part name.
func resolveTarget(source, target string) string {
	target = strings.ReplaceAll(target, "\\", "/")
	if strings.HasPrefix(target, "/") {
		return path.Clean(target)
	}
	dir := "/"
	if source != "" {
		dir = path.Dir(NormalizeName(source))
	}
	return path.Clean(path.Join(dir, target))
}

// DefaultContentType returns the built-in content type for an extension.
func DefaultContentType(ext string) (string, bool) {
	switch strings.ToLower(strings.TrimPrefix(ext, ".")) {
	case "rels":
		return ContentTypeRelationships, true
	case "model":
		return ContentTypeModel, true
	case "png":
		return ContentTypePNG, true
	case "jpg", "jpeg":
		return ContentTypeJPEG, true
	}
	return "", false
}

type xmlTypes struct {
	XMLName   xml.Name      `xml:"Types"`
	Xmlns     string        `xml:"xmlns,attr"`
	Defaults  []xmlDefault  `xml:"Default"`
	Overrides []xmlOverride `xml:"Override"`
}

type xmlDefault struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlOverride struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type xmlRelationships struct {
	XMLName       xml.Name          `xml:"Relationships"`
	Xmlns         string            `xml:"xmlns,attr"`
	Relationships []xmlRelationship `xml:"Relationship"`
}

type xmlRelationship struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}
