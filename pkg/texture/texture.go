// Package texture inspects image payloads carried by a package: it sniffs
// their real format, checks them against declared content types and reads
// their dimensions.
package texture

import (
	"bytes"
	"image"
	_ "image/jpeg" // JPEG decoder registration
	_ "image/png"  // PNG decoder registration
	"io"

	"github.com/HugoSmits86/nativewebp"
	"github.com/h2non/filetype"
	_ "golang.org/x/image/bmp"  // BMP decoder registration
	_ "golang.org/x/image/tiff" // TIFF decoder registration
	_ "golang.org/x/image/webp" // WebP decoder registration

	"github.com/Faultbox/threemf/pkg/diag"
	"github.com/Faultbox/threemf/pkg/opc"
)

// Info describes an image payload.
type Info struct {
	MIME   string
	Format string
	Width  int
	Height int
}

// Sniff returns the MIME type detected from the payload's magic bytes, or
// an empty string when it is not recognized.
func Sniff(data []byte) string {
	kind, err := filetype.Match(data)
	if err != nil || kind == filetype.Unknown {
		return ""
	}
	return kind.MIME.Value
}

// Check verifies that data is an image of the declared content type. The
// generic 3MF texture content type accepts PNG and JPEG.
func Check(declared string, data []byte) error {
	got := Sniff(data)
	switch declared {
	case opc.ContentTypeTexture:
		if got == opc.ContentTypePNG || got == opc.ContentTypeJPEG {
			return nil
		}
	case opc.ContentTypePNG, opc.ContentTypeJPEG:
		if got == declared {
			return nil
		}
	default:
		if got != "" && got == declared {
			return nil
		}
	}
	if got == "" {
		got = "unknown data"
	}
	return diag.New(diag.ErrContentTypeMismatch, "declared %s, found %s", declared, got)
}

// Probe reads the format and dimensions without decoding pixels.
func Probe(data []byte) (Info, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Info{}, diag.Wrap(diag.ErrMalformedPackage, err, "image header")
	}
	return Info{MIME: Sniff(data), Format: format, Width: cfg.Width, Height: cfg.Height}, nil
}

// EncodeWebP decodes an image payload and writes it to w as lossless WebP.
func EncodeWebP(w io.Writer, data []byte) error {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return diag.Wrap(diag.ErrMalformedPackage, err, "decoding image")
	}
	if err := nativewebp.Encode(w, img, nil); err != nil {
		return diag.Wrap(diag.ErrIO, err, "encoding webp")
	}
	return nil
}
