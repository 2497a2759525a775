package codec

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/math"
)

// node consumes one XML element.
type node interface {
	// attr is called once per attribute before any child.
	attr(a xml.Attr) error
	// child returns the node for a child element, or nil to skip it.
	child(name xml.Name) (node, error)
	// end runs once all children have been consumed.
	end() error
}

// textNode is implemented by nodes that keep their character data.
type textNode interface {
	text(data []byte)
}

// starter is implemented by nodes that act once all attributes are known
// and before the first child.
type starter interface {
	start() error
}

// dupCoder lets a node choose the code raised for a repeated attribute.
type dupCoder interface {
	dupCode() *diag.Code
}

// leaf is embedded by nodes without children.
type leaf struct{}

func (leaf) child(xml.Name) (node, error) { return nil, nil }
func (leaf) end() error                   { return nil }

// elementError carries the part and element an error was raised in.
type elementError struct {
	part    string
	element string
	err     error
}

func (e *elementError) Error() string {
	return fmt.Sprintf("%s <%s>: %v", e.part, e.element, e.err)
}

func (e *elementError) Unwrap() error { return e.err }

// parser walks one model part.
type parser struct {
	r    *Reader
	part string
	dec  *xml.Decoder
	// prefixes maps namespace prefixes declared on the model element.
	prefixes map[string]string
}

func (p *parser) wrap(name xml.Name, err error) error {
	if err == nil {
		return nil
	}
	var ee *elementError
	if errors.As(err, &ee) {
		return err
	}
	return &elementError{part: p.part, element: name.Local, err: err}
}

// report passes err through the sink and attaches element context to what
// is left.
func (p *parser) report(name xml.Name, err error) error {
	return p.wrap(name, p.r.sink.Report(err))
}

func isNamespaceDecl(a xml.Attr) bool {
	return a.Name.Space == "xmlns" || (a.Name.Space == "" && a.Name.Local == "xmlns")
}

// root reads up to the first element, which must be a core model element.
func (p *parser) root(n node) error {
	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return diag.New(diag.ErrMalformedXML, "%s: no root element", p.part)
			}
			return diag.Wrap(diag.ErrMalformedXML, err, p.part)
		}
		if se, ok := tok.(xml.StartElement); ok {
			if se.Name.Space != NSCore || se.Name.Local != "model" {
				return diag.New(diag.ErrMalformedXML, "%s: root element {%s}%s", p.part, se.Name.Space, se.Name.Local)
			}
			for _, a := range se.Attr {
				if a.Name.Space == "xmlns" {
					p.prefixes[a.Name.Local] = a.Value
				}
			}
			return p.walk(n, se)
		}
	}
}

func (p *parser) walk(n node, start xml.StartElement) error {
	seen := make(map[xml.Name]bool, len(start.Attr))
	for _, a := range start.Attr {
		if isNamespaceDecl(a) {
			continue
		}
		if seen[a.Name] {
			code := diag.ErrDuplicateAttribute
			if dc, ok := n.(dupCoder); ok {
				code = dc.dupCode()
			}
			if err := p.report(start.Name, diag.New(code, "%s", a.Name.Local)); err != nil {
				return err
			}
			continue
		}
		seen[a.Name] = true
		if err := p.report(start.Name, n.attr(a)); err != nil {
			return err
		}
	}
	if s, ok := n.(starter); ok {
		if err := p.report(start.Name, s.start()); err != nil {
			return err
		}
	}

	for {
		tok, err := p.dec.Token()
		if err != nil {
			if err == io.EOF {
				return p.wrap(start.Name, diag.New(diag.ErrMalformedXML, "unexpected end of document"))
			}
			return p.wrap(start.Name, diag.Wrap(diag.ErrMalformedXML, err, ""))
		}
		switch t := tok.(type) {
		case xml.StartElement:
			c, err := n.child(t.Name)
			if err = p.report(t.Name, err); err != nil {
				return err
			}
			if c == nil {
				if err := p.dec.Skip(); err != nil {
					return p.wrap(t.Name, diag.Wrap(diag.ErrMalformedXML, err, ""))
				}
				continue
			}
			if err := p.walk(c, t); err != nil {
				return err
			}
		case xml.CharData:
			if tn, ok := n.(textNode); ok {
				tn.text(t)
			}
		case xml.EndElement:
			return p.report(start.Name, n.end())
		}
	}
}

// unknown handles a child no node claims: a warning inside a supported
// namespace, silence elsewhere.
func (p *parser) unknown(parent string, name xml.Name) (node, error) {
	if _, ok := knownNamespaces[name.Space]; ok {
		p.r.sink.Warn(p.wrap(name, diag.New(diag.ErrUnknownElement, "%s in %s", name.Local, parent)))
	}
	return nil, nil
}

// is reports whether name is local in namespace ns.
func is(name xml.Name, ns, local string) bool {
	return name.Space == ns && name.Local == local
}

// Attribute conversions. Each returns a recoverable schema code on failure.

func parseUint(a xml.Attr) (uint32, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(a.Value), 10, 32)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && ne.Err == strconv.ErrRange {
			return 0, diag.New(diag.ErrNumberOutOfRange, "%s=%q", a.Name.Local, a.Value)
		}
		return 0, diag.New(diag.ErrInvalidAttributeValue, "%s=%q", a.Name.Local, a.Value)
	}
	return uint32(v), nil
}

func parseFloat(a xml.Attr) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(a.Value), 64)
	if err != nil {
		var ne *strconv.NumError
		if errors.As(err, &ne) && ne.Err == strconv.ErrRange {
			return 0, diag.New(diag.ErrNumberOutOfRange, "%s=%q", a.Name.Local, a.Value)
		}
		return 0, diag.New(diag.ErrInvalidAttributeValue, "%s=%q", a.Name.Local, a.Value)
	}
	return v, nil
}

func parseFloat32(a xml.Attr) (float32, error) {
	v, err := parseFloat(a)
	if err != nil {
		return 0, err
	}
	if v > 3.4e38 || v < -3.4e38 {
		return 0, diag.New(diag.ErrNumberOutOfRange, "%s=%q", a.Name.Local, a.Value)
	}
	return float32(v), nil
}

func parseBool(a xml.Attr) (bool, error) {
	switch strings.TrimSpace(a.Value) {
	case "1", "true":
		return true, nil
	case "0", "false":
		return false, nil
	}
	return false, diag.New(diag.ErrInvalidAttributeValue, "%s=%q", a.Name.Local, a.Value)
}

func parseUUID(a xml.Attr) (uuid.UUID, error) {
	u, err := uuid.Parse(strings.TrimSpace(a.Value))
	if err != nil {
		return uuid.Nil, diag.Wrap(diag.ErrInvalidUUID, err, a.Value)
	}
	return u, nil
}

// parseTransform reads the twelve matrix entries of a transform attribute.
func parseTransform(a xml.Attr) (math.Transform, error) {
	fields := strings.Fields(a.Value)
	if len(fields) != 12 {
		return math.Transform{}, diag.New(diag.ErrInvalidAttributeValue, "transform has %d values", len(fields))
	}
	var t math.Transform
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 32)
		if err != nil {
			return math.Transform{}, diag.New(diag.ErrInvalidAttributeValue, "transform value %q", f)
		}
		t[i] = float32(v)
	}
	return t, nil
}

// parseUintList reads a space separated list of unsigned integers.
func parseUintList(a xml.Attr) ([]uint32, error) {
	fields := strings.Fields(a.Value)
	out := make([]uint32, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseUint(f, 10, 32)
		if err != nil {
			return nil, diag.New(diag.ErrInvalidAttributeValue, "%s value %q", a.Name.Local, f)
		}
		out[i] = uint32(v)
	}
	return out, nil
}

// parseFloatList reads a space separated list of numbers.
func parseFloatList(a xml.Attr) ([]float64, error) {
	fields := strings.Fields(a.Value)
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, diag.New(diag.ErrInvalidAttributeValue, "%s value %q", a.Name.Local, f)
		}
		out[i] = v
	}
	return out, nil
}

func missing(names ...string) error {
	return diag.New(diag.ErrMissingRequiredAttribute, "%s", strings.Join(names, ", "))
}
