// Package builder renders the individual layers of a card from meshes and
// textures. Every builder returns a finalized image sized to its geometry, in
// Unity row order.
package builder

import (
	"fmt"
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/mesh"
	"github.com/goopsie/hsCardTools/pkg/raster"
)

// Source supplies decoded textures and meshes by name.
type Source interface {
	Texture(name string) (*image.NRGBA, error)
	Mesh(name string) (*engine.Mesh, error)
}

// Params selects the geometry a mesh layer is drawn from.
type Params struct {
	Submesh  int
	Position int
	UV       int
	// Width is the output width of the mesh's x extent, in pixels.
	Width float32
	// Sorted draws triangles in ascending max-Z order.
	Sorted bool
}

var (
	PortraitParams      = Params{Submesh: 1, Position: 0, UV: 3, Width: 284}
	PortraitFrameParams = Params{Submesh: 0, Position: 0, UV: 3, Width: 307}
)

// portraitShadowUV is the channel the portrait shadow is mapped with.
const portraitShadowUV = 4

// SortedParams returns the parameters of a depth-sorted layer of the given width.
func SortedParams(width float32) Params {
	return Params{Submesh: 0, Position: 0, UV: 3, Width: width, Sorted: true}
}

// Vertices maps m into canvas space with img as the texture.
func Vertices(m *engine.Mesh, p Params, img *image.NRGBA, offset mgl32.Vec2) ([]raster.Vertex, error) {
	tris, err := mesh.ExtractTriangles(m, p.Submesh, p.Position, p.UV)
	if err != nil {
		return nil, err
	}
	if p.Sorted {
		mesh.SortByDepth(tris, mesh.DepthMaxZ)
	}
	b := img.Bounds()
	verts, err := mesh.Normalize(tris, mesh.Options{
		Width:         p.Width,
		SourceWidth:   b.Dx(),
		SourceHeight:  b.Dy(),
		TextureOffset: offset,
	})
	if err != nil {
		return nil, fmt.Errorf("mesh %q: %w", m.Name, err)
	}
	return verts, nil
}

// render draws passes onto a canvas sized to the first pass's geometry.
func render(passes ...raster.Pass) (*image.NRGBA, error) {
	w, h := raster.Bounds(passes[0].Vertices).CanvasSize()
	if w <= 0 || h <= 0 {
		return nil, errs.Formatf("empty layer %dx%d", w, h)
	}
	c := raster.NewCanvas(w, h)
	for _, p := range passes {
		if err := c.Draw(p); err != nil {
			return nil, err
		}
	}
	return c.Finalize(), nil
}

// meshLayer draws img over m with the given parameters.
func meshLayer(img *image.NRGBA, m *engine.Mesh, p Params) (*image.NRGBA, error) {
	verts, err := Vertices(m, p, img, mgl32.Vec2{})
	if err != nil {
		return nil, err
	}
	return render(raster.Pass{Vertices: verts, Texture: raster.NewTexture(img, true)})
}
