package encoding

import (
	"bytes"
	"encoding/xml"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

type doc struct {
	Name string `xml:"name,attr"`
}

func decode(t *testing.T, r io.Reader) doc {
	t.Helper()
	var d doc
	dec := xml.NewDecoder(NewReader(r))
	dec.CharsetReader = CharsetReader
	require.NoError(t, dec.Decode(&d))
	return d
}

func TestUTF8WithBOM(t *testing.T) {
	in := append([]byte{0xEF, 0xBB, 0xBF}, `<?xml version="1.0" encoding="UTF-8"?><model name="cube"/>`...)
	assert.Equal(t, "cube", decode(t, bytes.NewReader(in)).Name)
}

func TestUTF16LittleEndian(t *testing.T) {
	enc := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder()
	in, err := enc.Bytes([]byte(`<?xml version="1.0" encoding="UTF-16"?><model name="würfel"/>`))
	require.NoError(t, err)
	assert.Equal(t, "würfel", decode(t, bytes.NewReader(in)).Name)
}

func TestLatin1Declaration(t *testing.T) {
	body, err := charmap.ISO8859_1.NewEncoder().Bytes([]byte(`<?xml version="1.0" encoding="ISO-8859-1"?><model name="pièce"/>`))
	require.NoError(t, err)
	assert.Equal(t, "pièce", decode(t, bytes.NewReader(body)).Name)
}

func TestUnknownCharset(t *testing.T) {
	_, err := CharsetReader("x-no-such-charset", bytes.NewReader(nil))
	assert.Error(t, err)
}

func TestFixedString(t *testing.T) {
	b := FixedString("solid", 8)
	assert.Len(t, b, 8)
	assert.Equal(t, "solid", TrimNullString(b))
	assert.Equal(t, "sol", TrimNullString(FixedString("solid", 3)))
}
