package cardgen

import (
	"fmt"

	"github.com/goopsie/hsCardTools/pkg/builder"
)

// Layer names a card layer drawn over the frame.
type Layer string

const (
	LayerPortrait      Layer = "portrait"
	LayerPortraitFrame Layer = "portrait_frame"
	LayerRaritySocket  Layer = "rarity_socket"
	LayerRarityGem     Layer = "rarity_gem"
	LayerNameBanner    Layer = "name_banner"
	LayerManaGem       Layer = "mana_gem"
)

// layerOrder is the order layers are drawn in, bottom first.
var layerOrder = []Layer{
	LayerPortrait,
	LayerPortraitFrame,
	LayerRaritySocket,
	LayerRarityGem,
	LayerNameBanner,
	LayerManaGem,
}

// Layers returns every layer in drawing order.
func Layers() []Layer {
	return append([]Layer(nil), layerOrder...)
}

// ParseLayer checks that s names a layer.
func ParseLayer(s string) (Layer, error) {
	for _, l := range layerOrder {
		if string(l) == s {
			return l, nil
		}
	}
	return "", fmt.Errorf("unknown layer %q", s)
}

// LayerSpec places one layer on the frame.
type LayerSpec struct {
	Enabled bool
	Mesh    string
	Texture string
	// Overlay is the portrait shadow or the rarity gem shader.
	Overlay string
	// Width is the layer width for builders that take one.
	Width float32
	// X and Y are the layer's offset on the frame, in frame pixels.
	X, Y float32
}

// Layout describes how a card is assembled.
type Layout struct {
	Frame  builder.FrameLayout
	Layers map[Layer]LayerSpec
}

// DefaultLayout draws the frame only. Its layer specs carry the client's asset
// names but start disabled.
func DefaultLayout() Layout {
	return Layout{
		Frame: builder.DefaultFrameLayout(),
		Layers: map[Layer]LayerSpec{
			LayerPortrait: {
				Mesh:    "InHand_Ability_Portrait_mesh",
				Overlay: "Card_Inhand_Ability_Portrait_Shadow",
				X:       57, Y: 170,
			},
			LayerPortraitFrame: {
				Mesh:    "InHand_Ability_Portrait_Frame_mesh",
				Texture: "Card_Inhand_Ability_Portrait_Frame",
				X:       46, Y: 160,
			},
			LayerRaritySocket: {
				Mesh:    "InHand_Ability_RarityFrame_mesh",
				Texture: "RarityFrame",
				Width:   64, X: 168, Y: 228,
			},
			LayerRarityGem: {
				Mesh:    "RarityGem_mesh",
				Texture: "RarityGems",
				Overlay: "RarityGems_Shader",
				Width:   32, X: 184, Y: 236,
			},
			LayerNameBanner: {
				Mesh:    "InHand_Ability_NameBanner_mesh",
				Texture: "Card_InHand_BannerAtlas",
				Width:   300, X: 50, Y: 190,
			},
			LayerManaGem: {
				Mesh:    "ManaGem_mesh",
				Texture: "ManaGem",
				Width:   90, X: 10, Y: 370,
			},
		},
	}
}

// Output is the final image geometry.
type Output struct {
	Width, Height int
	// Bleed scales the output canvas around the centred card; 1 means none.
	Bleed float64
}

// DefaultOutput is the size the client renders cards at.
func DefaultOutput() Output {
	return Output{Width: 400, Height: 543, Bleed: 1}
}
