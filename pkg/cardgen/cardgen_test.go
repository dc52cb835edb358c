package cardgen_test

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"testing/fstest"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goopsie/hsCardTools/pkg/assets"
	"github.com/goopsie/hsCardTools/pkg/builder"
	"github.com/goopsie/hsCardTools/pkg/cardgen"
	"github.com/goopsie/hsCardTools/pkg/cards"
	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/resources"
	"github.com/goopsie/hsCardTools/pkg/unityfs"
	"github.com/goopsie/hsCardTools/pkg/unityfs/unityfstest"
)

var (
	red   = color.NRGBA{R: 255, A: 255}
	green = color.NRGBA{G: 255, A: 255}
	blue  = color.NRGBA{B: 255, A: 255}
)

func pixels(n int, c color.NRGBA) []byte {
	out := make([]byte, 0, n*4)
	for range n {
		out = append(out, c.R, c.G, c.B, c.A)
	}
	return out
}

// quadMesh is a 2×1 rectangle whose channel 3 UVs span [0,1].
func quadMesh(name string) unityfstest.M {
	return unityfstest.Mesh(name,
		[]unityfstest.SubMesh{{IndexCount: 6}},
		[]uint16{0, 1, 2, 1, 3, 2}, 4,
		[]unityfstest.Channel{{Offset: 0, Dimension: 3}, {}, {}, {Offset: 12, Dimension: 2}},
		// x, z, y, u, v
		unityfstest.Floats(
			0, 0, 0, 0, 0,
			2, 1, 0, 1, 0,
			0, 0, 1, 0, 1,
			2, 1, 1, 1, 1,
		))
}

// newAssets writes a client holding the ability banner and meshes but no
// frame textures.
func newAssets(t *testing.T) *assets.Store {
	t.Helper()
	root := t.TempDir()
	layout := builder.DefaultFrameLayout()

	b := &unityfstest.Bundle{Compression: unityfs.CompressionLZ4}
	f := b.NewFile("CAB-shared")
	f.Add(unityfs.ClassTexture2D, 1, unityfstest.Texture2DTree(),
		unityfstest.Texture2D(layout.AbilityBanner, 4, 4, 4, pixels(16, blue)))
	f.Add(unityfs.ClassTexture2D, 2, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("Gem", 2, 2, 4, pixels(4, green)))
	f.Add(unityfs.ClassMesh, 3, unityfstest.MeshTree(), quadMesh(layout.AbilityBaseMesh))
	f.Add(unityfs.ClassMesh, 4, unityfstest.MeshTree(), quadMesh(layout.AbilityDescriptionMesh))
	require.NoError(t, b.WriteFile(filepath.Join(root, "shared0.unity3d")))

	c, err := catalog.Build(context.Background(), root, catalog.DefaultPasses(),
		catalog.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return assets.New(c)
}

// framePack returns a pack whose mage frame is red in its top half and blue
// in its bottom half, as seen in the PNG.
func framePack(t *testing.T) *resources.Pack {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, 8, 8))
	for y := range 8 {
		for x := range 8 {
			c := blue
			if y < 4 {
				c = red
			}
			img.SetNRGBA(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	p, err := resources.Load(fstest.MapFS{
		"Card_Inhand_Ability_Mage.png": {Data: buf.Bytes()},
	})
	require.NoError(t, err)
	return p
}

func testDB() *cards.DB {
	return cards.New(
		cards.Card{ID: "CS2_029", CardClass: cards.ClassMage, Type: cards.TypeSpell, Rarity: cards.RarityFree},
		cards.Card{ID: "CS2_024", PlayerClass: cards.ClassMage, Type: cards.TypeEnchantment, Rarity: cards.RarityCommon},
		cards.Card{ID: "CS2_033", CardClass: cards.ClassMage, Type: cards.TypeMinion, Rarity: cards.RarityCommon},
		cards.Card{ID: "CS1_130", CardClass: cards.ClassPriest, Type: cards.TypeSpell, Rarity: cards.RarityCommon},
		cards.Card{ID: "BROKEN", CardClass: cards.ClassMage, Type: cards.TypeSpell},
	)
}

type memSink struct {
	mu     sync.Mutex
	layers map[string]image.Image
}

func (s *memSink) Layer(cardID, name string, img image.Image) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.layers == nil {
		s.layers = make(map[string]image.Image)
	}
	s.layers[cardID+"/"+name] = img
	return nil
}

func assertNear(t *testing.T, want color.NRGBA, img image.Image, x, y int) {
	t.Helper()
	got := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
	for i, pair := range [][2]uint8{{want.R, got.R}, {want.G, got.G}, {want.B, got.B}, {want.A, got.A}} {
		assert.InDelta(t, pair[0], pair[1], 2, "channel %d at (%d,%d): got %v", i, x, y, got)
	}
}

func TestGenerate(t *testing.T) {
	a := newAssets(t)
	out := cardgen.Output{Width: 18, Height: 18, Bleed: 1}

	t.Run("TopDown", func(t *testing.T) {
		g := cardgen.New(a, testDB(), cardgen.WithResources(framePack(t)),
			cardgen.WithOutput(out), cardgen.WithLogger(zerolog.Nop()))
		img, err := g.Generate("CS2_029")
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 18, 18), img.Bounds())
		assertNear(t, red, img, 8, 5)
		assertNear(t, blue, img, 8, 14)
	})

	t.Run("PlayerClass", func(t *testing.T) {
		g := cardgen.New(a, testDB(), cardgen.WithResources(framePack(t)),
			cardgen.WithOutput(out), cardgen.WithLogger(zerolog.Nop()))
		_, err := g.Generate("CS2_024")
		require.NoError(t, err)
	})

	t.Run("Bleed", func(t *testing.T) {
		g := cardgen.New(a, testDB(), cardgen.WithResources(framePack(t)),
			cardgen.WithOutput(cardgen.Output{Width: 18, Height: 18, Bleed: 2}),
			cardgen.WithLogger(zerolog.Nop()))
		img, err := g.Generate("CS2_029")
		require.NoError(t, err)
		assert.Equal(t, image.Rect(0, 0, 36, 36), img.Bounds())
		assertNear(t, color.NRGBA{}, img, 2, 2)
		assertNear(t, color.NRGBA{}, img, 33, 33)
		assertNear(t, red, img, 17, 14)
	})

	t.Run("EmbeddedResources", func(t *testing.T) {
		pack, err := resources.Default()
		require.NoError(t, err)
		g := cardgen.New(a, testDB(), cardgen.WithResources(pack), cardgen.WithLogger(zerolog.Nop()))
		img, err := g.Generate("CS2_029")
		require.NoError(t, err)
		def := cardgen.DefaultOutput()
		assert.Equal(t, image.Rect(0, 0, def.Width, def.Height), img.Bounds())
	})
}

func TestGenerateLayers(t *testing.T) {
	a := newAssets(t)
	layout := cardgen.DefaultLayout()
	layout.Layers[cardgen.LayerManaGem] = cardgen.LayerSpec{
		Enabled: true,
		Mesh:    layout.Frame.AbilityBaseMesh,
		Texture: "Gem",
		Width:   4, X: 2, Y: 2,
	}
	layout.Layers[cardgen.LayerRarityGem] = cardgen.LayerSpec{
		Enabled: true,
		Mesh:    layout.Frame.AbilityBaseMesh,
		Texture: "Gem",
		Overlay: "Gem",
		Width:   4,
	}
	sink := &memSink{}
	g := cardgen.New(a, testDB(),
		cardgen.WithResources(framePack(t)),
		cardgen.WithLayout(layout),
		cardgen.WithOutput(cardgen.Output{Width: 18, Height: 18, Bleed: 1}),
		cardgen.WithDebugSink(sink),
		cardgen.WithLogger(zerolog.Nop()))

	_, err := g.Generate("CS2_029")
	require.NoError(t, err)

	require.Contains(t, sink.layers, "CS2_029/frame")
	require.Contains(t, sink.layers, "CS2_029/mana_gem")
	require.Contains(t, sink.layers, "CS2_029/card")
	// free cards have no rarity gem
	assert.NotContains(t, sink.layers, "CS2_029/rarity_gem")

	assert.Equal(t, image.Rect(0, 0, 4, 2), sink.layers["CS2_029/mana_gem"].Bounds())
	composed := sink.layers["CS2_029/card"]
	assert.Equal(t, image.Rect(0, 0, 9, 9), composed.Bounds())
	assertNear(t, green, composed, 3, 2)
	assertNear(t, blue, composed, 3, 0)

	t.Run("MissingLayerAsset", func(t *testing.T) {
		broken := cardgen.DefaultLayout()
		broken.Layers[cardgen.LayerNameBanner] = cardgen.LayerSpec{Enabled: true, Mesh: "absent", Width: 4}
		g := cardgen.New(a, testDB(), cardgen.WithResources(framePack(t)),
			cardgen.WithLayout(broken), cardgen.WithLogger(zerolog.Nop()))
		_, err := g.Generate("CS2_029")
		var ge *cardgen.Error
		require.ErrorAs(t, err, &ge)
		assert.Equal(t, errs.KindAssetNotFound, ge.Kind)
	})
}

func TestGenerateErrors(t *testing.T) {
	a := newAssets(t)
	g := cardgen.New(a, testDB(), cardgen.WithResources(framePack(t)), cardgen.WithLogger(zerolog.Nop()))

	for _, tc := range []struct {
		name string
		card string
		kind errs.Kind
		is   error
	}{
		{"UnknownCard", "NOPE", errs.KindCardNotFound, errs.ErrCardNotFound},
		{"InvalidCard", "BROKEN", errs.KindInvalidCard, errs.ErrInvalidCard},
		{"UnsupportedType", "CS2_033", errs.KindNotImplemented, errs.ErrNotImplemented},
		{"MissingFrame", "CS1_130", errs.KindAssetNotFound, errs.ErrAssetNotFound},
	} {
		t.Run(tc.name, func(t *testing.T) {
			img, err := g.Generate(tc.card)
			assert.Nil(t, img)
			var ge *cardgen.Error
			require.ErrorAs(t, err, &ge)
			assert.Equal(t, tc.card, ge.CardID)
			assert.Equal(t, tc.kind, ge.Kind)
			assert.ErrorIs(t, err, tc.is)
		})
	}

	t.Run("BadOutput", func(t *testing.T) {
		g := cardgen.New(a, testDB(), cardgen.WithResources(framePack(t)),
			cardgen.WithOutput(cardgen.Output{}), cardgen.WithLogger(zerolog.Nop()))
		_, err := g.Generate("CS2_029")
		assert.Error(t, err)
	})
}

func TestDirSink(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debug")
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	img.SetNRGBA(0, 0, red)

	require.NoError(t, cardgen.DirSink(dir).Layer("CS2_029", "frame", img))

	f, err := os.Open(filepath.Join(dir, "CS2_029_frame.png"))
	require.NoError(t, err)
	defer f.Close()
	got, err := png.Decode(f)
	require.NoError(t, err)
	// stored top-down
	assertNear(t, red, got, 0, 1)
	assertNear(t, color.NRGBA{}, got, 0, 0)
}

func TestParseLayer(t *testing.T) {
	for _, l := range cardgen.Layers() {
		got, err := cardgen.ParseLayer(string(l))
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}
	_, err := cardgen.ParseLayer("border")
	assert.Error(t, err)
}
