package codec

import (
	"bufio"
	"encoding/xml"
	"io"
	"strconv"
	"strings"

	"github.com/Faultbox/threemf/pkg/math"
)

// xmlWriter emits model XML line by line. The first error sticks and later
// calls are no-ops.
type xmlWriter struct {
	w    *bufio.Writer
	err  error
	prec int
	num  []byte
}

func newXMLWriter(w io.Writer, precision int) *xmlWriter {
	return &xmlWriter{w: bufio.NewWriterSize(w, 64<<10), prec: precision}
}

func (x *xmlWriter) raw(s string) {
	if x.err == nil {
		_, x.err = x.w.WriteString(s)
	}
}

// open starts an element tag; attributes follow.
func (x *xmlWriter) open(name string) {
	x.raw("<")
	x.raw(name)
}

func (x *xmlWriter) attr(name, value string) {
	if x.err != nil {
		return
	}
	x.raw(" ")
	x.raw(name)
	x.raw(`="`)
	if x.err == nil {
		x.err = xml.EscapeText(x.w, []byte(value))
	}
	x.raw(`"`)
}

// attrIf writes the attribute only when value is not empty.
func (x *xmlWriter) attrIf(name, value string) {
	if value != "" {
		x.attr(name, value)
	}
}

func (x *xmlWriter) attrUint(name string, v uint32) {
	if x.err != nil {
		return
	}
	x.num = strconv.AppendUint(x.num[:0], uint64(v), 10)
	x.raw(" ")
	x.raw(name)
	x.raw(`="`)
	_, x.err = x.w.Write(x.num)
	x.raw(`"`)
}

func (x *xmlWriter) attrFloat(name string, v float64) {
	x.attr(name, formatFloat(v, x.prec, 64))
}

func (x *xmlWriter) attrFloat32(name string, v float32) {
	x.attr(name, formatFloat(float64(v), x.prec, 32))
}

// closeOpen ends a start tag that has children.
func (x *xmlWriter) closeOpen() { x.raw(">\n") }

// closeEmpty ends a childless element.
func (x *xmlWriter) closeEmpty() { x.raw("/>\n") }

func (x *xmlWriter) end(name string) {
	x.raw("</")
	x.raw(name)
	x.raw(">\n")
}

// textElement writes <name attrs...>text</name> after open and attributes.
func (x *xmlWriter) textBody(name, text string) {
	x.raw(">")
	if x.err == nil {
		x.err = xml.EscapeText(x.w, []byte(text))
	}
	x.end(name)
}

func (x *xmlWriter) flush() error {
	if x.err != nil {
		return x.err
	}
	return x.w.Flush()
}

// formatFloat prints v with prec decimals and drops trailing zeros.
func formatFloat(v float64, prec, bits int) string {
	s := strconv.FormatFloat(v, 'f', prec, bits)
	if strings.IndexByte(s, '.') >= 0 {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		return "0"
	}
	return s
}

// formatTransform prints the twelve entries in wire order.
func formatTransform(t math.Transform, prec int) string {
	var b strings.Builder
	for i, v := range t {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatFloat(float64(v), prec, 32))
	}
	return b.String()
}

func formatUintList(v []uint32) string {
	var b strings.Builder
	for i, n := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(strconv.FormatUint(uint64(n), 10))
	}
	return b.String()
}

func formatFloatList(v []float64, prec int) string {
	var b strings.Builder
	for i, f := range v {
		if i > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(formatFloat(f, prec, 64))
	}
	return b.String()
}
