package raster

import (
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// Rect is a float rectangle. W and H may be negative for flipped texture rects.
type Rect struct {
	X, Y, W, H float32
}

// Texture is a drawable image with a source rectangle.
//
// Texture coordinates are in pixels of Image. Rect only affects sprites, and the
// flip helpers only change Rect.
type Texture struct {
	Image  *image.NRGBA
	Rect   Rect
	Smooth bool
}

// NewTexture returns a texture whose rect spans img.
func NewTexture(img *image.NRGBA, smooth bool) *Texture {
	b := img.Bounds()
	return &Texture{
		Image:  img,
		Rect:   Rect{W: float32(b.Dx()), H: float32(b.Dy())},
		Smooth: smooth,
	}
}

// Size returns the image size in pixels.
func (t *Texture) Size() (w, h int) {
	b := t.Image.Bounds()
	return b.Dx(), b.Dy()
}

// FlipHorizontally returns a copy of t mirrored along the x axis of its rect.
func (t *Texture) FlipHorizontally() *Texture {
	c := *t
	c.Rect.X += c.Rect.W
	c.Rect.W = -c.Rect.W
	return &c
}

// FlipVertically returns a copy of t mirrored along the y axis of its rect.
func (t *Texture) FlipVertically() *Texture {
	c := *t
	c.Rect.Y += c.Rect.H
	c.Rect.H = -c.Rect.H
	return &c
}

// Sample returns the non-premultiplied color at pixel coordinate uv, clamped to
// the image edge.
func (t *Texture) Sample(uv mgl32.Vec2) [4]float32 {
	if t.Smooth {
		return t.bilinear(uv.X(), uv.Y())
	}
	return t.texel(int(math.Floor(float64(uv.X()))), int(math.Floor(float64(uv.Y()))))
}

func (t *Texture) texel(x, y int) [4]float32 {
	b := t.Image.Bounds()
	x = min(max(x, 0), b.Dx()-1)
	y = min(max(y, 0), b.Dy()-1)
	o := y*t.Image.Stride + x*4
	p := t.Image.Pix[o : o+4]
	return [4]float32{float32(p[0]), float32(p[1]), float32(p[2]), float32(p[3])}
}

// bilinear interpolates the four texels around (u, v). Colors are weighted by
// alpha so transparent texels do not bleed their color.
func (t *Texture) bilinear(u, v float32) [4]float32 {
	fu, fv := float64(u)-0.5, float64(v)-0.5
	x0, y0 := int(math.Floor(fu)), int(math.Floor(fv))
	ax, ay := float32(fu-math.Floor(fu)), float32(fv-math.Floor(fv))

	var out [4]float32
	weights := [4]float32{(1 - ax) * (1 - ay), ax * (1 - ay), (1 - ax) * ay, ax * ay}
	texels := [4][4]float32{t.texel(x0, y0), t.texel(x0+1, y0), t.texel(x0, y0+1), t.texel(x0+1, y0+1)}
	for i, c := range texels {
		wa := weights[i] * c[3]
		out[0] += c[0] * wa
		out[1] += c[1] * wa
		out[2] += c[2] * wa
		out[3] += wa
	}
	if out[3] > 0 {
		out[0] /= out[3]
		out[1] /= out[3]
		out[2] /= out[3]
	}
	return out
}
