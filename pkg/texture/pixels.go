package texture

import (
	"encoding/binary"
	"image"
	"math"

	"github.com/x448/float16"
)

func decodeAlpha8(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = 255, 255, 255, src[i]
	}
	return nil
}

func decodeR8(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		v := src[i]
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = v, v, v, 255
	}
	return nil
}

func decodeR16(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		v := uint8(binary.LittleEndian.Uint16(src[i*2:]) >> 8)
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = v, v, v, 255
	}
	return nil
}

func decodeRG16(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = src[i*2], src[i*2+1], 0, 255
	}
	return nil
}

func decodeRGB24(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = src[i*3], src[i*3+1], src[i*3+2], 255
	}
	return nil
}

func decodeRGBA32(dst *image.NRGBA, src []byte, w, h int) error {
	copy(dst.Pix, src[:w*h*4])
	return nil
}

func decodeARGB32(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		s := src[i*4 : i*4+4]
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = s[1], s[2], s[3], s[0]
	}
	return nil
}

func decodeBGRA32(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		s := src[i*4 : i*4+4]
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = s[2], s[1], s[0], s[3]
	}
	return nil
}

// expand4 widens a 4-bit channel to 8 bits.
func expand4(v uint16) uint8 { return uint8(v&0xf) * 17 }

func decodeARGB4444(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		v := binary.LittleEndian.Uint16(src[i*2:])
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = expand4(v>>8), expand4(v>>4), expand4(v), expand4(v>>12)
	}
	return nil
}

func decodeRGBA4444(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		v := binary.LittleEndian.Uint16(src[i*2:])
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = expand4(v>>12), expand4(v>>8), expand4(v>>4), expand4(v)
	}
	return nil
}

// rgb565 expands a packed 5:6:5 color.
func rgb565(v uint16) (r, g, b uint8) {
	r5, g6, b5 := (v>>11)&0x1f, (v>>5)&0x3f, v&0x1f
	return uint8(r5<<3 | r5>>2), uint8(g6<<2 | g6>>4), uint8(b5<<3 | b5>>2)
}

func decodeRGB565(dst *image.NRGBA, src []byte, w, h int) error {
	for i := range w * h {
		r, g, b := rgb565(binary.LittleEndian.Uint16(src[i*2:]))
		p := dst.Pix[i*4 : i*4+4]
		p[0], p[1], p[2], p[3] = r, g, b, 255
	}
	return nil
}

// unitToByte maps [0, 1] to [0, 255], clamping.
func unitToByte(v float32) uint8 {
	if v != v || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(math.Round(float64(v) * 255))
}

// storeChannels writes up to four float channels, defaulting missing color
// channels to 0 and alpha to 1.
func storeChannels(p []byte, ch []float32) {
	p[0], p[1], p[2], p[3] = 0, 0, 0, 255
	for c, v := range ch {
		p[c] = unitToByte(v)
	}
}

func halfDecoder(channels int) decoder {
	return func(dst *image.NRGBA, src []byte, w, h int) error {
		vals := make([]float32, channels)
		for i := range w * h {
			for c := range vals {
				off := (i*channels + c) * 2
				vals[c] = float16.Frombits(binary.LittleEndian.Uint16(src[off:])).Float32()
			}
			storeChannels(dst.Pix[i*4:i*4+4], vals)
		}
		return nil
	}
}

func floatDecoder(channels int) decoder {
	return func(dst *image.NRGBA, src []byte, w, h int) error {
		vals := make([]float32, channels)
		for i := range w * h {
			for c := range vals {
				off := (i*channels + c) * 4
				vals[c] = math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
			}
			storeChannels(dst.Pix[i*4:i*4+4], vals)
		}
		return nil
	}
}
