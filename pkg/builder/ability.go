package builder

import (
	"image"
	"math"

	"github.com/goopsie/hsCardTools/pkg/cards"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/mesh"
	"github.com/goopsie/hsCardTools/pkg/raster"
)

// Placement of the description box inside the ability frame.
const (
	descriptionX     = 41
	descriptionY     = 38
	descriptionWidth = 254
)

// FrameLayout names the assets card frames are built from.
type FrameLayout struct {
	// AbilityFrames maps a class to its ability frame texture.
	AbilityFrames          map[cards.CardClass]string
	AbilityBanner          string
	AbilityBaseMesh        string
	AbilityDescriptionMesh string
	// UV is the texture coordinate channel of the ability meshes.
	UV int
}

// DefaultFrameLayout returns the asset names used by the game client.
func DefaultFrameLayout() FrameLayout {
	return FrameLayout{
		AbilityFrames: map[cards.CardClass]string{
			cards.ClassMage:   "Card_Inhand_Ability_Mage",
			cards.ClassPriest: "Card_Inhand_Ability_Priest",
		},
		AbilityBanner:          "Card_InHand_BannerAtlas",
		AbilityBaseMesh:        "InHand_Ability_Base_mesh",
		AbilityDescriptionMesh: "InHand_Ability_Description_mesh",
		UV:                     3,
	}
}

// Frame builds the card frame for a card of type t and class c.
func Frame(t cards.CardType, c cards.CardClass, layout FrameLayout, src Source) (*image.NRGBA, error) {
	switch t {
	case cards.TypeSpell, cards.TypeEnchantment:
		name, ok := layout.AbilityFrames[c]
		if !ok {
			return nil, errs.NotImplementedf("card class %s is not implemented", c)
		}
		return AbilityFrameFrom(src, name, layout)
	}
	return nil, errs.NotImplementedf("card type %s is not implemented", t)
}

// AbilityFrameFrom loads the named frame texture and the layout's banner and
// meshes from src and builds the ability frame.
func AbilityFrameFrom(src Source, frameName string, layout FrameLayout) (*image.NRGBA, error) {
	frame, err := src.Texture(frameName)
	if err != nil {
		return nil, err
	}
	banner, err := src.Texture(layout.AbilityBanner)
	if err != nil {
		return nil, err
	}
	base, err := src.Mesh(layout.AbilityBaseMesh)
	if err != nil {
		return nil, err
	}
	desc, err := src.Mesh(layout.AbilityDescriptionMesh)
	if err != nil {
		return nil, err
	}

	fb, bb := frame.Bounds(), banner.Bounds()
	baseVerts, err := mesh.UnwrapUV(base, 0, layout.UV, fb.Dx(), fb.Dy())
	if err != nil {
		return nil, err
	}
	descVerts, err := mesh.UnwrapUV(desc, 0, layout.UV, bb.Dx(), bb.Dy())
	if err != nil {
		return nil, err
	}
	return AbilityFrame(frame, banner, baseVerts, descVerts)
}

// AbilityFrame draws the unwrapped frame geometry and places the description
// box at a fixed offset, scaled to a fixed width.
func AbilityFrame(frame, banner *image.NRGBA, base, description []raster.Vertex) (*image.NRGBA, error) {
	b := raster.Bounds(base)
	w, h := int(b.W+1), int(b.H+1)
	if len(base) == 0 || w <= 1 || h <= 1 {
		return nil, errs.Formatf("ability frame: empty base geometry")
	}

	db := raster.Bounds(description)
	if db.W <= 0 || math.IsInf(float64(db.W), 0) {
		return nil, errs.Formatf("ability frame: description width %v", db.W)
	}
	s := float32(descriptionWidth) / db.W
	place := raster.Identity().Translate(descriptionX, descriptionY).Scale(s, s)

	c := raster.NewCanvas(w, h)
	if err := c.Draw(raster.Pass{Vertices: base, Texture: raster.NewTexture(frame, true)}); err != nil {
		return nil, err
	}
	if err := c.Draw(raster.Pass{
		Vertices:  description,
		Texture:   raster.NewTexture(banner, true),
		Transform: place,
	}); err != nil {
		return nil, err
	}
	return c.Finalize(), nil
}
