package cards

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

const document = `[
	{"id": "EX1_277", "dbfId": 564, "name": {"enUS": "Arcane Missiles", "deDE": "Arkane Geschosse"},
	 "cardClass": "MAGE", "type": "SPELL", "rarity": "FREE", "set": "EXPERT1", "collectible": true, "cost": 1},
	{"id": "CS2_029", "name": "Fireball", "playerClass": "MAGE", "type": "SPELL", "rarity": "COMMON", "cost": 4},
	{"id": "GAME_005", "name": "The Coin", "type": "SPELL"},
	{"id": "XYZ_001", "name": "Future", "cardClass": "BARD", "type": "MINION", "rarity": "MYTHIC"},
	{"name": "no id"}
]`

func TestLoad(t *testing.T) {
	db, err := Load(strings.NewReader(document))
	require.NoError(t, err)
	assert.Equal(t, 4, db.Len())
	assert.Equal(t, []string{"CS2_029", "EX1_277", "GAME_005", "XYZ_001"}, db.IDs())

	c, err := db.Card("EX1_277")
	require.NoError(t, err)
	assert.Equal(t, 564, c.DbfID)
	assert.Equal(t, ClassMage, c.Class())
	assert.Equal(t, TypeSpell, c.Type)
	assert.Equal(t, RarityFree, c.Rarity)
	assert.True(t, c.Collectible)
	assert.Equal(t, "Arkane Geschosse", c.Name.Get("deDE"))
	assert.Equal(t, "Arcane Missiles", c.Name.Get("frFR"))
	assert.NoError(t, c.Validate())

	c, err = db.Card("CS2_029")
	require.NoError(t, err)
	assert.Equal(t, ClassMage, c.Class(), "playerClass fallback")
	assert.Equal(t, "Fireball", c.Name.Get("enUS"))

	_, err = db.Card("NOPE")
	var nf *errs.CardNotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, "NOPE", nf.ID)
}

func TestValidate(t *testing.T) {
	db, err := Load(strings.NewReader(document))
	require.NoError(t, err)

	for id, field := range map[string]string{"GAME_005": "class", "XYZ_001": "class"} {
		c, err := db.Card(id)
		require.NoError(t, err)
		err = c.Validate()
		var ic *errs.InvalidCardError
		require.ErrorAs(t, err, &ic, id)
		assert.Equal(t, field, ic.Field)
		assert.Equal(t, id, ic.ID)
	}

	c := Card{ID: "A", CardClass: ClassPriest}
	assert.ErrorContains(t, c.Validate(), "missing type")
	c.Type = TypeMinion
	assert.ErrorContains(t, c.Validate(), "missing rarity")
	c.Rarity = RarityEpic
	assert.NoError(t, c.Validate())
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(strings.NewReader(`{"id": 1}`))
	assert.ErrorIs(t, err, errs.ErrFormat)

	_, err = Load(strings.NewReader(`[{"name": 5}]`))
	assert.ErrorIs(t, err, errs.ErrFormat)

	_, err = LoadFile(filepath.Join(t.TempDir(), "cards.json"))
	assert.ErrorIs(t, err, errs.ErrIO)
}

func TestLoadFile(t *testing.T) {
	p := filepath.Join(t.TempDir(), "cards.json")
	require.NoError(t, os.WriteFile(p, []byte(document), 0o644))
	db, err := LoadFile(p)
	require.NoError(t, err)
	assert.Equal(t, 4, db.Len())
}

func TestEnums(t *testing.T) {
	c, err := ParseCardClass("mage")
	require.NoError(t, err)
	assert.Equal(t, ClassMage, c)
	assert.Equal(t, "DEMONHUNTER", ClassDemonHunter.String())

	_, err = ParseCardClass("INVALID")
	assert.Error(t, err)

	ty, err := ParseCardType("HERO_POWER")
	require.NoError(t, err)
	assert.Equal(t, TypeHeroPower, ty)

	r, err := ParseRarity("Legendary")
	require.NoError(t, err)
	assert.Equal(t, RarityLegendary, r)
	assert.Equal(t, "Rarity(42)", Rarity(42).String())

	quadrants := map[Rarity]int{RarityCommon: 0, RarityRare: 1, RarityEpic: 2, RarityLegendary: 3}
	for r, want := range quadrants {
		q, ok := r.GemQuadrant()
		assert.True(t, ok)
		assert.Equal(t, want, q, r.String())
	}
	_, ok := RarityFree.GemQuadrant()
	assert.False(t, ok)
}
