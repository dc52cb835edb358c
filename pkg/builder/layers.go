package builder

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/mesh"
	"github.com/goopsie/hsCardTools/pkg/raster"
)

// Portrait draws the card art mirrored about the layer centre, then darkens it
// with shadow mapped through the shadow UV channel.
func Portrait(portrait, shadow *image.NRGBA, m *engine.Mesh) (*image.NRGBA, error) {
	verts, err := Vertices(m, PortraitParams, portrait, mgl32.Vec2{})
	if err != nil {
		return nil, err
	}
	shadowParams := PortraitParams
	shadowParams.UV = portraitShadowUV
	shadowVerts, err := Vertices(m, shadowParams, shadow, mgl32.Vec2{})
	if err != nil {
		return nil, err
	}

	b := raster.Bounds(verts)
	flip := raster.Identity().ScaleAround(-1, 1, b.W/2, b.H/2)
	return render(
		raster.Pass{Vertices: verts, Texture: raster.NewTexture(portrait, true), Transform: flip},
		raster.Pass{
			Vertices:  shadowVerts,
			Texture:   raster.NewTexture(shadow, true),
			Transform: flip,
			Blend:     raster.BlendMultiply,
		},
	)
}

// PortraitFrame draws the frame around the portrait.
func PortraitFrame(frame *image.NRGBA, m *engine.Mesh) (*image.NRGBA, error) {
	return meshLayer(frame, m, PortraitFrameParams)
}

// NameBanner draws the name banner scaled to width.
func NameBanner(banner *image.NRGBA, m *engine.Mesh, width float32) (*image.NRGBA, error) {
	return meshLayer(banner, m, SortedParams(width))
}

// ManaGem draws the mana gem scaled to width.
func ManaGem(gem *image.NRGBA, m *engine.Mesh, width float32) (*image.NRGBA, error) {
	return meshLayer(gem, m, SortedParams(width))
}

// RaritySocket draws the empty rarity gem socket scaled to width.
func RaritySocket(socket *image.NRGBA, m *engine.Mesh, width float32) (*image.NRGBA, error) {
	return meshLayer(socket, m, SortedParams(width))
}

// RarityGem draws one quadrant of the 2×2 gem atlas, then the same quadrant of
// the shader overlay on top.
func RarityGem(gem, shader *image.NRGBA, m *engine.Mesh, quadrant int, width float32) (*image.NRGBA, error) {
	p := SortedParams(width)
	gb, sb := gem.Bounds(), shader.Bounds()
	verts, err := Vertices(m, p, gem, mesh.AtlasQuadrant(quadrant, gb.Dx(), gb.Dy()))
	if err != nil {
		return nil, err
	}
	shaderVerts, err := Vertices(m, p, shader, mesh.AtlasQuadrant(quadrant, sb.Dx(), sb.Dy()))
	if err != nil {
		return nil, err
	}
	return render(
		raster.Pass{Vertices: verts, Texture: raster.NewTexture(gem, true)},
		raster.Pass{Vertices: shaderVerts, Texture: raster.NewTexture(shader, true)},
	)
}
