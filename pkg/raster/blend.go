package raster

import "fmt"

// BlendMode selects how a pass combines with the canvas.
type BlendMode uint8

const (
	// BlendNormal is source-over alpha compositing.
	BlendNormal BlendMode = iota
	// BlendMultiply darkens the destination color by the source, weighted by
	// source alpha. Destination alpha is kept.
	BlendMultiply
)

func (b BlendMode) String() string {
	switch b {
	case BlendNormal:
		return "normal"
	case BlendMultiply:
		return "multiply"
	}
	return fmt.Sprintf("BlendMode(%d)", uint8(b))
}

// blend combines a source color (0..255 floats) into dst in place.
func (b BlendMode) blend(dst []byte, src [4]float32) {
	sa := src[3] / 255
	if sa <= 0 {
		return
	}
	switch b {
	case BlendMultiply:
		for c := range 3 {
			f := 1 - sa + sa*src[c]/255
			dst[c] = toByte(float32(dst[c]) * f)
		}
	default:
		da := float32(dst[3]) / 255
		outA := sa + da*(1-sa)
		for c := range 3 {
			v := (src[c]*sa + float32(dst[c])*da*(1-sa)) / outA
			dst[c] = toByte(v)
		}
		dst[3] = toByte(outA * 255)
	}
}

func toByte(v float32) byte {
	switch {
	case v <= 0:
		return 0
	case v >= 255:
		return 255
	}
	return byte(v + 0.5)
}
