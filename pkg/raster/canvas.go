// Package raster draws textured triangles onto off-screen canvases.
//
// A Canvas accumulates draw passes and is read only through Finalize. Coordinates
// are in pixels with y growing with the row index, matching the row order of the
// textures being drawn.
package raster

import (
	"errors"
	"image"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrFinalized is returned when drawing onto a finalized canvas.
var ErrFinalized = errors.New("canvas already finalized")

// Vertex is a canvas position with a texture coordinate in texture pixels.
type Vertex struct {
	Position mgl32.Vec2
	TexCoord mgl32.Vec2
}

// Pass is one textured triangle-list draw. Every three vertices form a triangle.
type Pass struct {
	Vertices  []Vertex
	Texture   *Texture
	Transform Transform
	Blend     BlendMode
}

// Sprite draws a whole texture rect as a quad at the origin.
type Sprite struct {
	Texture   *Texture
	Transform Transform
	Blend     BlendMode
}

// Canvas is a mutable RGBA surface, transparent when created.
type Canvas struct {
	img       *image.NRGBA
	finalized bool
}

// NewCanvas returns a transparent w×h canvas.
func NewCanvas(w, h int) *Canvas {
	return &Canvas{img: image.NewNRGBA(image.Rect(0, 0, max(w, 0), max(h, 0)))}
}

// Size returns the canvas size in pixels.
func (c *Canvas) Size() (w, h int) {
	return c.img.Rect.Dx(), c.img.Rect.Dy()
}

// Finalize ends drawing and returns the pixels. Later calls return the same image.
func (c *Canvas) Finalize() *image.NRGBA {
	c.finalized = true
	return c.img
}

// Draw rasterizes one pass.
func (c *Canvas) Draw(p Pass) error {
	if c.finalized {
		return ErrFinalized
	}
	if p.Texture == nil || p.Texture.Image == nil {
		return errors.New("draw: nil texture")
	}
	for i := 0; i+2 < len(p.Vertices); i += 3 {
		tri := [3]Vertex{p.Vertices[i], p.Vertices[i+1], p.Vertices[i+2]}
		for j := range tri {
			tri[j].Position = p.Transform.Apply(tri[j].Position)
		}
		c.fillTriangle(tri, p.Texture, p.Blend)
	}
	return nil
}

// DrawSprite draws s.Texture's rect as a |W|×|H| quad.
func (c *Canvas) DrawSprite(s Sprite) error {
	r := s.Texture.Rect
	w, h := float32(math.Abs(float64(r.W))), float32(math.Abs(float64(r.H)))
	tl := Vertex{mgl32.Vec2{0, 0}, mgl32.Vec2{r.X, r.Y}}
	tr := Vertex{mgl32.Vec2{w, 0}, mgl32.Vec2{r.X + r.W, r.Y}}
	bl := Vertex{mgl32.Vec2{0, h}, mgl32.Vec2{r.X, r.Y + r.H}}
	br := Vertex{mgl32.Vec2{w, h}, mgl32.Vec2{r.X + r.W, r.Y + r.H}}
	return c.Draw(Pass{
		Vertices:  []Vertex{tl, tr, bl, tr, br, bl},
		Texture:   s.Texture,
		Transform: s.Transform,
		Blend:     s.Blend,
	})
}

// edge is the signed area of (a, b, p) in a y-down frame.
func edge(a, b, p [2]float64) float64 {
	return (b[0]-a[0])*(p[1]-a[1]) - (b[1]-a[1])*(p[0]-a[0])
}

// isTopLeft reports whether a→b is a top or left edge of a positively wound
// triangle. Pixels centered exactly on such edges belong to the triangle.
func isTopLeft(a, b [2]float64) bool {
	dx, dy := b[0]-a[0], b[1]-a[1]
	return dy < 0 || (dy == 0 && dx > 0)
}

func (c *Canvas) fillTriangle(tri [3]Vertex, tex *Texture, mode BlendMode) {
	var p [3][2]float64
	for i, v := range tri {
		p[i] = [2]float64{float64(v.Position.X()), float64(v.Position.Y())}
	}
	area := edge(p[0], p[1], p[2])
	if area == 0 {
		return
	}
	if area < 0 {
		p[1], p[2] = p[2], p[1]
		tri[1], tri[2] = tri[2], tri[1]
		area = -area
	}

	w, h := c.Size()
	minX := max(int(math.Floor(min(p[0][0], p[1][0], p[2][0]))), 0)
	minY := max(int(math.Floor(min(p[0][1], p[1][1], p[2][1]))), 0)
	maxX := min(int(math.Ceil(max(p[0][0], p[1][0], p[2][0]))), w-1)
	maxY := min(int(math.Ceil(max(p[0][1], p[1][1], p[2][1]))), h-1)

	edges := [3][2]int{{1, 2}, {2, 0}, {0, 1}}
	var owns [3]bool
	for i, e := range edges {
		owns[i] = isTopLeft(p[e[0]], p[e[1]])
	}

	for y := minY; y <= maxY; y++ {
		for x := minX; x <= maxX; x++ {
			center := [2]float64{float64(x) + 0.5, float64(y) + 0.5}
			var bary [3]float64
			inside := true
			for i, e := range edges {
				wgt := edge(p[e[0]], p[e[1]], center)
				if wgt < 0 || (wgt == 0 && !owns[i]) {
					inside = false
					break
				}
				bary[i] = wgt / area
			}
			if !inside {
				continue
			}
			var uv mgl32.Vec2
			for i := range tri {
				uv = uv.Add(tri[i].TexCoord.Mul(float32(bary[i])))
			}
			o := c.img.PixOffset(x, y)
			mode.blend(c.img.Pix[o:o+4], tex.Sample(uv))
		}
	}
}

// Bounds returns the bounding rectangle of the vertex positions.
func Bounds(vertices []Vertex) Rect {
	if len(vertices) == 0 {
		return Rect{}
	}
	minX, minY := vertices[0].Position.X(), vertices[0].Position.Y()
	maxX, maxY := minX, minY
	for _, v := range vertices[1:] {
		minX = min(minX, v.Position.X())
		minY = min(minY, v.Position.Y())
		maxX = max(maxX, v.Position.X())
		maxY = max(maxY, v.Position.Y())
	}
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// CanvasSize returns the canvas size that holds r, rounding up.
func (r Rect) CanvasSize() (w, h int) {
	return int(math.Ceil(float64(r.W))), int(math.Ceil(float64(r.H)))
}
