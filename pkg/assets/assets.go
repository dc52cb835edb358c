// Package assets decodes catalog objects on demand and caches the results.
//
// Every locator is decoded at most once per Store, also under concurrent
// callers. Failed decodes are cached like successful ones.
package assets

import (
	"fmt"
	"image"
	"sync/atomic"

	"github.com/sasha-s/go-deadlock"
	"golang.org/x/sync/singleflight"

	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/texture"
	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

type result[T any] struct {
	val T
	err error
}

// memo is a locator-keyed at-most-once cache.
type memo[T any] struct {
	group singleflight.Group
	mutex deadlock.RWMutex
	done  map[catalog.Locator]result[T]
}

func (m *memo[T]) get(loc catalog.Locator, load func() (T, error)) (T, error) {
	m.mutex.RLock()
	r, ok := m.done[loc]
	m.mutex.RUnlock()
	if ok {
		return r.val, r.err
	}

	v, _, _ := m.group.Do(loc.String(), func() (any, error) {
		m.mutex.RLock()
		r, ok := m.done[loc]
		m.mutex.RUnlock()
		if ok {
			return r, nil
		}

		val, err := load()
		r = result[T]{val: val, err: err}
		m.mutex.Lock()
		if m.done == nil {
			m.done = make(map[catalog.Locator]result[T])
		}
		m.done[loc] = r
		m.mutex.Unlock()
		return r, nil
	})
	r = v.(result[T])
	return r.val, r.err
}

// Store resolves names through a catalog and decodes the objects they point to.
type Store struct {
	cat     *catalog.Catalog
	objects memo[engine.Object]
	images  memo[*image.NRGBA]
	opened  atomic.Int64
}

// New returns a store reading the bundles of c.
func New(c *catalog.Catalog) *Store {
	return &Store{cat: c}
}

// Catalog returns the catalog names are resolved through.
func (s *Store) Catalog() *catalog.Catalog { return s.cat }

// Decodes returns how many objects have been read from bundle files.
func (s *Store) Decodes() int64 { return s.opened.Load() }

// Object returns the decoded object at loc.
func (s *Store) Object(loc catalog.Locator) (engine.Object, error) {
	return s.objects.get(loc, func() (engine.Object, error) {
		return s.decode(loc)
	})
}

// decode opens the bundle behind loc for the duration of one decode.
func (s *Store) decode(loc catalog.Locator) (engine.Object, error) {
	s.opened.Add(1)
	b, err := unityfs.Open(s.cat.Path(loc))
	if err != nil {
		return nil, err
	}
	defer b.Close()

	sf, err := b.SubContainer(loc.Index)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", loc, err)
	}
	return engine.Decode(sf, loc.ID)
}

func objectAs[T engine.Object](s *Store, loc catalog.Locator) (T, error) {
	var zero T
	obj, err := s.Object(loc)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, &errs.ObjectTypeError{Want: zero.Kind().String(), Got: obj.Kind().String()}
	}
	return v, nil
}

// RawTexture returns the Texture2D called name in its stored format.
func (s *Store) RawTexture(name string) (*engine.Texture2D, error) {
	loc, err := s.cat.Lookup(engine.KindTexture2D, name)
	if err != nil {
		return nil, err
	}
	return objectAs[*engine.Texture2D](s, loc)
}

// Texture returns the Texture2D called name decoded to RGBA, bottom row first.
func (s *Store) Texture(name string) (*image.NRGBA, error) {
	loc, err := s.cat.Lookup(engine.KindTexture2D, name)
	if err != nil {
		return nil, err
	}
	return s.image(loc)
}

// Portrait returns the decoded portrait texture of cardID.
func (s *Store) Portrait(cardID string) (*image.NRGBA, error) {
	loc, err := s.cat.Portrait(cardID)
	if err != nil {
		return nil, err
	}
	return s.image(loc)
}

func (s *Store) image(loc catalog.Locator) (*image.NRGBA, error) {
	return s.images.get(loc, func() (*image.NRGBA, error) {
		tex, err := objectAs[*engine.Texture2D](s, loc)
		if err != nil {
			return nil, err
		}
		img, err := texture.Decode(tex)
		if err != nil {
			return nil, fmt.Errorf("texture %q: %w", tex.Name, err)
		}
		return img, nil
	})
}

// Mesh returns the Mesh called name.
func (s *Store) Mesh(name string) (*engine.Mesh, error) {
	loc, err := s.cat.Lookup(engine.KindMesh, name)
	if err != nil {
		return nil, err
	}
	return objectAs[*engine.Mesh](s, loc)
}
