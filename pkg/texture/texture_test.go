package texture

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/opc"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.NRGBA{R: uint8(x * 40), G: uint8(y * 40), B: 200, A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestCheck(t *testing.T) {
	data := pngBytes(t, 4, 3)
	assert.Equal(t, opc.ContentTypePNG, Sniff(data))

	tests := []struct {
		name     string
		declared string
		data     []byte
		ok       bool
	}{
		{"png as png", opc.ContentTypePNG, data, true},
		{"png as generic texture", opc.ContentTypeTexture, data, true},
		{"png as jpeg", opc.ContentTypeJPEG, data, false},
		{"garbage", opc.ContentTypePNG, []byte("not an image"), false},
		{"empty", opc.ContentTypeTexture, nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Check(tt.declared, tt.data)
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, diag.ErrContentTypeMismatch)
		})
	}
}

func TestProbe(t *testing.T) {
	info, err := Probe(pngBytes(t, 5, 7))
	require.NoError(t, err)
	assert.Equal(t, "png", info.Format)
	assert.Equal(t, opc.ContentTypePNG, info.MIME)
	assert.Equal(t, 5, info.Width)
	assert.Equal(t, 7, info.Height)

	_, err = Probe([]byte{1, 2, 3})
	assert.ErrorIs(t, err, diag.ErrMalformedPackage)
}

func TestEncodeWebP(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeWebP(&buf, pngBytes(t, 6, 6)))

	info, err := Probe(buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "webp", info.Format)
	assert.Equal(t, 6, info.Width)
	assert.Equal(t, 6, info.Height)

	assert.Error(t, EncodeWebP(&buf, []byte("nope")))
}
