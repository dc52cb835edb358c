// Package catalog indexes the objects of a directory of asset bundles by name.
//
// A Catalog is built once, by scanning bundle files in parallel, and is read-only
// afterwards. Locators it returns are reopened by the caller on each access.
package catalog

import (
	"maps"
	"path/filepath"
	"slices"

	opt "github.com/repeale/fp-go/option"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
)

// lookupOrder is the kind order Get searches.
var lookupOrder = []engine.Kind{
	engine.KindTexture2D,
	engine.KindMesh,
	engine.KindFont,
	engine.KindFontDef,
	engine.KindTextAsset,
	engine.KindGameObject,
}

// Catalog maps semantic names to locators.
type Catalog struct {
	root    string
	objects map[engine.Kind]map[string]Locator
	// paths and basenames hold manifest container entries by normalized path
	// and by its last element.
	paths     map[string]Locator
	basenames map[string]Locator
	// portraits maps card ids to the raw portrait path of their card object.
	portraits map[string]string
}

func newCatalog(root string) *Catalog {
	return &Catalog{
		root:      root,
		objects:   make(map[engine.Kind]map[string]Locator),
		paths:     make(map[string]Locator),
		basenames: make(map[string]Locator),
		portraits: make(map[string]string),
	}
}

func (c *Catalog) put(kind engine.Kind, name string, loc Locator) {
	m, ok := c.objects[kind]
	if !ok {
		m = make(map[string]Locator)
		c.objects[kind] = m
	}
	m[name] = loc
}

func (c *Catalog) putPath(p string, loc Locator) {
	n := NormalizePath(p)
	c.paths[n] = loc
	c.basenames[basename(n)] = loc
}

// merge copies other into c; entries of other win.
func (c *Catalog) merge(other *Catalog) {
	if other == nil {
		return
	}
	for kind, m := range other.objects {
		for name, loc := range m {
			c.put(kind, name, loc)
		}
	}
	maps.Copy(c.paths, other.paths)
	maps.Copy(c.basenames, other.basenames)
	maps.Copy(c.portraits, other.portraits)
}

// Root returns the directory locators are relative to.
func (c *Catalog) Root() string { return c.root }

// Path returns the bundle file loc points into.
func (c *Catalog) Path(loc Locator) string {
	return filepath.Join(c.root, filepath.FromSlash(loc.File))
}

// Len returns the number of named objects.
func (c *Catalog) Len() int {
	n := 0
	for _, m := range c.objects {
		n += len(m)
	}
	return n
}

// Get returns the locator of name, searching Texture2D, Mesh, Font, FontDef,
// TextAsset and GameObject in that order.
func (c *Catalog) Get(name string) (Locator, error) {
	for _, kind := range lookupOrder {
		if loc, ok := c.objects[kind][name]; ok {
			return loc, nil
		}
	}
	return Locator{}, errs.AssetNotFound(name)
}

// Lookup returns the locator of the kind object called name.
func (c *Catalog) Lookup(kind engine.Kind, name string) (Locator, error) {
	if loc, ok := c.objects[kind][name]; ok {
		return loc, nil
	}
	return Locator{}, errs.AssetNotFound(name)
}

// Find is Lookup without an error.
func (c *Catalog) Find(kind engine.Kind, name string) opt.Option[Locator] {
	if loc, ok := c.objects[kind][name]; ok {
		return opt.Some(loc)
	}
	return opt.None[Locator]()
}

// Names returns the sorted names of kind.
func (c *Catalog) Names(kind engine.Kind) []string {
	return slices.Sorted(maps.Keys(c.objects[kind]))
}

// Kinds returns the kinds with at least one entry.
func (c *Catalog) Kinds() []engine.Kind {
	var s engine.KindSet
	for kind, m := range c.objects {
		if len(m) > 0 {
			s = s.Add(kind)
		}
	}
	return s.Kinds()
}

// PortraitPath returns the raw portrait path recorded for cardID.
func (c *Catalog) PortraitPath(cardID string) (string, bool) {
	p, ok := c.portraits[cardID]
	return p, ok
}

// Cards returns the sorted ids of cards with a portrait path.
func (c *Catalog) Cards() []string {
	return slices.Sorted(maps.Keys(c.portraits))
}

// Portrait returns the portrait texture of cardID. The card's portrait path is
// normalized and looked up by full path first, then by basename.
func (c *Catalog) Portrait(cardID string) (Locator, error) {
	raw, ok := c.portraits[cardID]
	if !ok {
		return Locator{}, errs.AssetNotFound(cardID)
	}
	n := NormalizePath(raw)
	if loc, ok := c.paths[n]; ok {
		return loc, nil
	}
	if loc, ok := c.basenames[basename(n)]; ok {
		return loc, nil
	}
	return Locator{}, errs.AssetNotFound(n)
}

// Asset returns the locator of a manifest container path, by full path only.
func (c *Catalog) Asset(p string) (Locator, error) {
	n := NormalizePath(p)
	if loc, ok := c.paths[n]; ok {
		return loc, nil
	}
	return Locator{}, errs.AssetNotFound(n)
}
