package cards

import (
	"fmt"
	"strings"
)

// CardClass is a card's hero class.
type CardClass uint8

const (
	ClassInvalid CardClass = iota
	ClassDeathKnight
	ClassDruid
	ClassHunter
	ClassMage
	ClassPaladin
	ClassPriest
	ClassRogue
	ClassShaman
	ClassWarlock
	ClassWarrior
	ClassDream
	ClassNeutral
	ClassWhizbang
	ClassDemonHunter
)

var classNames = []string{
	ClassInvalid:     "INVALID",
	ClassDeathKnight: "DEATHKNIGHT",
	ClassDruid:       "DRUID",
	ClassHunter:      "HUNTER",
	ClassMage:        "MAGE",
	ClassPaladin:     "PALADIN",
	ClassPriest:      "PRIEST",
	ClassRogue:       "ROGUE",
	ClassShaman:      "SHAMAN",
	ClassWarlock:     "WARLOCK",
	ClassWarrior:     "WARRIOR",
	ClassDream:       "DREAM",
	ClassNeutral:     "NEUTRAL",
	ClassWhizbang:    "WHIZBANG",
	ClassDemonHunter: "DEMONHUNTER",
}

// CardType is what kind of card a card is.
type CardType uint8

const (
	TypeInvalid CardType = iota
	TypeHero
	TypeMinion
	TypeSpell
	TypeEnchantment
	TypeWeapon
	TypeHeroPower
	TypeLocation
)

var typeNames = []string{
	TypeInvalid:     "INVALID",
	TypeHero:        "HERO",
	TypeMinion:      "MINION",
	TypeSpell:       "SPELL",
	TypeEnchantment: "ENCHANTMENT",
	TypeWeapon:      "WEAPON",
	TypeHeroPower:   "HERO_POWER",
	TypeLocation:    "LOCATION",
}

// Rarity is a card's rarity.
type Rarity uint8

const (
	RarityInvalid Rarity = iota
	RarityFree
	RarityCommon
	RarityRare
	RarityEpic
	RarityLegendary
)

var rarityNames = []string{
	RarityInvalid:   "INVALID",
	RarityFree:      "FREE",
	RarityCommon:    "COMMON",
	RarityRare:      "RARE",
	RarityEpic:      "EPIC",
	RarityLegendary: "LEGENDARY",
}

// GemQuadrant returns the rarity gem atlas quadrant of r. Free and invalid
// rarities have no gem.
func (r Rarity) GemQuadrant() (int, bool) {
	if r < RarityCommon || r > RarityLegendary {
		return 0, false
	}
	return int(r - RarityCommon), true
}

func enumName(names []string, v uint8, kind string) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("%s(%d)", kind, v)
}

// parseEnum matches name case-insensitively. Unknown names map to the invalid
// value, which Validate then reports as missing.
func parseEnum(names []string, name string) (uint8, bool) {
	for i, n := range names[1:] {
		if strings.EqualFold(n, name) {
			return uint8(i + 1), true
		}
	}
	return 0, false
}

func (c CardClass) String() string { return enumName(classNames, uint8(c), "CardClass") }
func (t CardType) String() string  { return enumName(typeNames, uint8(t), "CardType") }
func (r Rarity) String() string    { return enumName(rarityNames, uint8(r), "Rarity") }

// ParseCardClass parses a class name such as "MAGE".
func ParseCardClass(s string) (CardClass, error) {
	v, ok := parseEnum(classNames, s)
	if !ok {
		return ClassInvalid, fmt.Errorf("unknown card class %q", s)
	}
	return CardClass(v), nil
}

// ParseCardType parses a type name such as "SPELL".
func ParseCardType(s string) (CardType, error) {
	v, ok := parseEnum(typeNames, s)
	if !ok {
		return TypeInvalid, fmt.Errorf("unknown card type %q", s)
	}
	return CardType(v), nil
}

// ParseRarity parses a rarity name such as "EPIC".
func ParseRarity(s string) (Rarity, error) {
	v, ok := parseEnum(rarityNames, s)
	if !ok {
		return RarityInvalid, fmt.Errorf("unknown rarity %q", s)
	}
	return Rarity(v), nil
}

func (c CardClass) MarshalText() ([]byte, error) { return []byte(c.String()), nil }
func (t CardType) MarshalText() ([]byte, error)  { return []byte(t.String()), nil }
func (r Rarity) MarshalText() ([]byte, error)    { return []byte(r.String()), nil }

func (c *CardClass) UnmarshalText(b []byte) error {
	v, _ := parseEnum(classNames, string(b))
	*c = CardClass(v)
	return nil
}

func (t *CardType) UnmarshalText(b []byte) error {
	v, _ := parseEnum(typeNames, string(b))
	*t = CardType(v)
	return nil
}

func (r *Rarity) UnmarshalText(b []byte) error {
	v, _ := parseEnum(rarityNames, string(b))
	*r = Rarity(v)
	return nil
}
