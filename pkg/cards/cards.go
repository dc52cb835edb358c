// Package cards loads card metadata from a HearthstoneJSON cards document.
package cards

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// DefaultLocale is used when a requested locale has no text.
const DefaultLocale = "enUS"

// Text is a localized string keyed by locale. A plain JSON string is stored
// under the empty locale.
type Text map[string]string

func (t *Text) UnmarshalJSON(data []byte) error {
	var s string
	err := json.Unmarshal(data, &s)
	if err == nil {
		*t = Text{"": s}
		return nil
	}
	if _, ok := err.(*json.UnmarshalTypeError); !ok {
		return err
	}

	m := map[string]string{}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*t = m
	return nil
}

// Get returns the text for locale, falling back to DefaultLocale and then to
// the unlocalized value.
func (t Text) Get(locale string) string {
	for _, l := range []string{locale, DefaultLocale, ""} {
		if s, ok := t[l]; ok {
			return s
		}
	}
	return ""
}

// Card is one entry of the cards document.
type Card struct {
	ID          string    `json:"id"`
	DbfID       int       `json:"dbfId"`
	Name        Text      `json:"name"`
	CardClass   CardClass `json:"cardClass"`
	PlayerClass CardClass `json:"playerClass"`
	Type        CardType  `json:"type"`
	Rarity      Rarity    `json:"rarity"`
	Set         string    `json:"set"`
	Collectible bool      `json:"collectible"`
	Cost        int       `json:"cost"`
}

// Class returns cardClass, or playerClass for documents that predate it.
func (c *Card) Class() CardClass {
	if c.CardClass != ClassInvalid {
		return c.CardClass
	}
	return c.PlayerClass
}

// Validate checks the fields card generation needs.
func (c *Card) Validate() error {
	switch {
	case c.Class() == ClassInvalid:
		return &errs.InvalidCardError{ID: c.ID, Field: "class"}
	case c.Type == TypeInvalid:
		return &errs.InvalidCardError{ID: c.ID, Field: "type"}
	case c.Rarity == RarityInvalid:
		return &errs.InvalidCardError{ID: c.ID, Field: "rarity"}
	}
	return nil
}

// DB is a set of cards by id.
type DB struct {
	cards map[string]*Card
}

// New returns a DB holding cards. Later cards replace earlier ones with the same id.
func New(cards ...Card) *DB {
	db := &DB{cards: make(map[string]*Card, len(cards))}
	for i := range cards {
		if cards[i].ID == "" {
			continue
		}
		db.cards[cards[i].ID] = &cards[i]
	}
	return db
}

// Load reads a cards document, a JSON array of card objects.
func Load(r io.Reader) (*DB, error) {
	var list []Card
	dec := json.NewDecoder(r)
	if err := dec.Decode(&list); err != nil {
		return nil, errs.WrapFormat(err, "decode cards")
	}
	return New(list...), nil
}

// LoadFile reads the cards document at path.
func LoadFile(path string) (*DB, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.IO("read", path, err)
	}
	db, err := Load(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return db, nil
}

// Card returns the card with id.
func (db *DB) Card(id string) (*Card, error) {
	c, ok := db.cards[id]
	if !ok {
		return nil, &errs.CardNotFoundError{ID: id}
	}
	return c, nil
}

func (db *DB) Len() int { return len(db.cards) }

// IDs returns every card id, sorted.
func (db *DB) IDs() []string {
	return slices.Sorted(maps.Keys(db.cards))
}
