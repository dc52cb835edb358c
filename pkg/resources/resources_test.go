package resources

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

func encodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func TestDefault(t *testing.T) {
	p, err := Default()
	require.NoError(t, err)
	assert.Equal(t, []string{"Card_Inhand_Ability_Mage", "ManaGem"}, p.Names())

	gem, err := p.Texture("ManaGem")
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 64, 64), gem.Bounds())

	_, err = p.Texture("Card_Inhand_Ability_Priest")
	assert.ErrorIs(t, err, errs.ErrAssetNotFound)
}

func TestLoadFlipsRows(t *testing.T) {
	src := image.NewNRGBA(image.Rect(0, 0, 1, 2))
	src.SetNRGBA(0, 0, color.NRGBA{R: 255, A: 255})
	src.SetNRGBA(0, 1, color.NRGBA{B: 255, A: 255})

	p, err := Load(fstest.MapFS{
		"Strip.png":  {Data: encodePNG(t, src)},
		"readme.txt": {Data: []byte("skip")},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Strip"}, p.Names())

	img, err := p.Texture("Strip")
	require.NoError(t, err)
	assert.Equal(t, color.NRGBA{B: 255, A: 255}, img.NRGBAAt(0, 0))
	assert.Equal(t, color.NRGBA{R: 255, A: 255}, img.NRGBAAt(0, 1))
}

func TestLoadCorrupt(t *testing.T) {
	_, err := Load(fstest.MapFS{"Bad.png": {Data: []byte("nope")}})
	assert.ErrorIs(t, err, errs.ErrFormat)
}

func TestNilPack(t *testing.T) {
	var p *Pack
	_, err := p.Texture("ManaGem")
	assert.ErrorIs(t, err, errs.ErrAssetNotFound)
	assert.Nil(t, p.Names())
}
