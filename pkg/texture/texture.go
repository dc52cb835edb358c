// Package texture decodes Unity Texture2D payloads into RGBA images.
//
// Decoded images keep Unity's row order: row 0 is the bottom of the texture, so a
// UV coordinate v addresses row v*height directly. Callers that want a top-down
// image flip once at the end.
package texture

import (
	"fmt"
	"image"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Format is Unity's TextureFormat enum.
type Format int

// Unity texture formats.
const (
	Alpha8    Format = 1
	ARGB4444  Format = 2
	RGB24     Format = 3
	RGBA32    Format = 4
	ARGB32    Format = 5
	RGB565    Format = 7
	R16       Format = 9
	DXT1      Format = 10
	DXT5      Format = 12
	RGBA4444  Format = 13
	BGRA32    Format = 14
	RHalf     Format = 15
	RGHalf    Format = 16
	RGBAHalf  Format = 17
	RFloat    Format = 18
	RGFloat   Format = 19
	RGBAFloat Format = 20
	ETC_RGB4  Format = 34
	RG16      Format = 62
	R8        Format = 63
)

var formatNames = map[Format]string{
	Alpha8:    "Alpha8",
	ARGB4444:  "ARGB4444",
	RGB24:     "RGB24",
	RGBA32:    "RGBA32",
	ARGB32:    "ARGB32",
	RGB565:    "RGB565",
	R16:       "R16",
	DXT1:      "DXT1",
	DXT5:      "DXT5",
	RGBA4444:  "RGBA4444",
	BGRA32:    "BGRA32",
	RHalf:     "RHalf",
	RGHalf:    "RGHalf",
	RGBAHalf:  "RGBAHalf",
	RFloat:    "RFloat",
	RGFloat:   "RGFloat",
	RGBAFloat: "RGBAFloat",
	ETC_RGB4:  "ETC_RGB4",
	RG16:      "RG16",
	R8:        "R8",
}

func (f Format) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return fmt.Sprintf("TextureFormat(%d)", int(f))
}

// Supported reports whether Decode handles f.
func (f Format) Supported() bool {
	_, ok := decoders[f]
	return ok
}

// decoder fills dst, whose Pix holds exactly w*h*4 bytes, from src.
type decoder func(dst *image.NRGBA, src []byte, w, h int) error

var decoders = map[Format]decoder{
	Alpha8:    decodeAlpha8,
	ARGB4444:  decodeARGB4444,
	RGB24:     decodeRGB24,
	RGBA32:    decodeRGBA32,
	ARGB32:    decodeARGB32,
	RGB565:    decodeRGB565,
	R16:       decodeR16,
	DXT1:      decodeBC1,
	DXT5:      decodeBC3,
	RGBA4444:  decodeRGBA4444,
	BGRA32:    decodeBGRA32,
	RHalf:     halfDecoder(1),
	RGHalf:    halfDecoder(2),
	RGBAHalf:  halfDecoder(4),
	RFloat:    floatDecoder(1),
	RGFloat:   floatDecoder(2),
	RGBAFloat: floatDecoder(4),
	ETC_RGB4:  decodeETC1,
	RG16:      decodeRG16,
	R8:        decodeR8,
}

// Decode converts the texture's first mip level to RGBA. It is a pure function of
// the stored bytes, size and format.
func Decode(tex *engine.Texture2D) (*image.NRGBA, error) {
	format := Format(tex.Format)
	dec, ok := decoders[format]
	if !ok {
		return nil, errs.Formatf("texture %q: unsupported format %s", tex.Name, format)
	}
	if tex.Width <= 0 || tex.Height <= 0 {
		return nil, errs.Formatf("texture %q: invalid size %dx%d", tex.Name, tex.Width, tex.Height)
	}
	if need := MipSize(format, tex.Width, tex.Height); len(tex.Data) < need {
		return nil, errs.Formatf("texture %q: %s payload truncated: %d bytes, need %d",
			tex.Name, format, len(tex.Data), need)
	}

	img := image.NewNRGBA(image.Rect(0, 0, tex.Width, tex.Height))
	if err := dec(img, tex.Data, tex.Width, tex.Height); err != nil {
		return nil, errs.WrapFormat(err, "texture %q", tex.Name)
	}
	return img, nil
}

// MipSize returns the byte size of one w×h level in format f, or 0 if f is unknown.
func MipSize(f Format, w, h int) int {
	switch f {
	case DXT1, ETC_RGB4:
		return ((w + 3) / 4) * ((h + 3) / 4) * 8
	case DXT5:
		return ((w + 3) / 4) * ((h + 3) / 4) * 16
	}
	return w * h * bytesPerPixel(f)
}

func bytesPerPixel(f Format) int {
	switch f {
	case Alpha8, R8:
		return 1
	case ARGB4444, RGBA4444, RGB565, R16, RHalf, RG16:
		return 2
	case RGB24:
		return 3
	case RGBA32, ARGB32, BGRA32, RGHalf, RFloat:
		return 4
	case RGBAHalf, RGFloat:
		return 8
	case RGBAFloat:
		return 16
	}
	return 0
}
