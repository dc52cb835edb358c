package catalog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"slices"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

// portraitField is the card behaviour field holding the portrait asset path.
const portraitField = "m_PortraitTexturePath"

// Pass selects which kinds are indexed in the files matching Pattern, a glob
// relative to the catalog root.
type Pass struct {
	Pattern string
	Kinds   engine.KindSet
}

func (p Pass) String() string {
	return p.Pattern + p.Kinds.String()
}

// DefaultPasses returns the passes covering a game client's data directory.
func DefaultPasses() []Pass {
	return []Pass{
		{Pattern: "*texture*.unity3d", Kinds: engine.NewKindSet(engine.KindTexture2D)},
		{Pattern: "cards*.unity3d", Kinds: engine.NewKindSet(engine.KindGameObject, engine.KindAssetBundleManifest)},
		{Pattern: "shared*.unity3d", Kinds: engine.NewKindSet(engine.KindTexture2D, engine.KindMesh,
			engine.KindFont, engine.KindFontDef, engine.KindTextAsset, engine.KindAssetBundleManifest)},
		{Pattern: "actors*.unity3d", Kinds: engine.NewKindSet(engine.KindMesh, engine.KindTexture2D)},
		{Pattern: "gameobjects*.unity3d", Kinds: engine.NewKindSet(engine.KindFontDef, engine.KindFont,
			engine.KindGameObject)},
	}
}

// Option configures Build.
type Option func(*config)

type config struct {
	log     zerolog.Logger
	workers int
}

// WithLogger sets the logger per-file failures are reported to.
func WithLogger(l zerolog.Logger) Option {
	return func(c *config) { c.log = l }
}

// WithWorkers limits how many files are scanned at once.
func WithWorkers(n int) Option {
	return func(c *config) {
		if n > 0 {
			c.workers = n
		}
	}
}

func newConfig(opts []Option) *config {
	c := &config{log: log.Logger, workers: runtime.NumCPU()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// match is one bundle file and the union of the kinds its passes ask for.
type match struct {
	path  string
	rel   string
	kinds engine.KindSet
}

// matchFiles expands passes under root, sorted by path.
func matchFiles(root string, passes []Pass) ([]match, error) {
	info, err := os.Stat(root)
	if err != nil {
		return nil, errs.IO("stat", root, err)
	}
	if !info.IsDir() {
		return nil, errs.IO("stat", root, fmt.Errorf("not a directory"))
	}

	byPath := make(map[string]engine.KindSet)
	for _, p := range passes {
		files, err := filepath.Glob(filepath.Join(root, p.Pattern))
		if err != nil {
			return nil, errs.IO("glob", p.Pattern, err)
		}
		for _, f := range files {
			byPath[f] |= p.Kinds
		}
	}

	out := make([]match, 0, len(byPath))
	for f, kinds := range byPath {
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, errs.IO("rel", f, err)
		}
		out = append(out, match{path: f, rel: filepath.ToSlash(rel), kinds: kinds})
	}
	slices.SortFunc(out, func(a, b match) int {
		switch {
		case a.path < b.path:
			return -1
		case a.path > b.path:
			return 1
		}
		return 0
	})
	return out, nil
}

// Build scans the bundles under root selected by passes. A missing root or a
// malformed pattern aborts the build; files and objects that fail to decode are
// logged and skipped.
//
// Files are scanned concurrently and merged in path order, so on duplicate
// names the entry from the later file wins, and within a file the later object.
func Build(ctx context.Context, root string, passes []Pass, opts ...Option) (*Catalog, error) {
	cfg := newConfig(opts)
	files, err := matchFiles(root, passes)
	if err != nil {
		return nil, err
	}

	parts := make([]*Catalog, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(cfg.workers)
	for i, f := range files {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			parts[i] = scanFile(f, cfg.log)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build catalog: %w", err)
	}

	c := newCatalog(root)
	for _, p := range parts {
		c.merge(p)
	}
	cfg.log.Debug().
		Str("root", root).
		Int("files", len(files)).
		Int("objects", c.Len()).
		Int("portraits", len(c.portraits)).
		Msg("catalog built")
	return c, nil
}

// scanFile indexes one bundle. It returns nil if the bundle cannot be opened.
func scanFile(f match, logger zerolog.Logger) *Catalog {
	b, err := unityfs.Open(f.path)
	if err != nil {
		logger.Warn().Err(err).Str("file", f.path).Msg("skipping bundle")
		return nil
	}
	defer b.Close()

	part := newCatalog("")
	for i := range b.SubContainerCount() {
		sf, err := b.SubContainer(i)
		if err != nil {
			logger.Warn().Err(err).Str("file", f.path).Int("index", i).Msg("skipping sub-container")
			continue
		}
		for _, info := range sf.Objects {
			loc := Ref(f.rel, i, info.PathID)
			if err := part.index(sf, info, f.kinds, loc); err != nil {
				logger.Debug().Err(err).Str("file", f.path).Int("index", i).Int64("id", info.PathID).
					Msg("skipping object")
			}
		}
	}
	return part
}

// index adds one object to c if its kind is wanted.
func (c *Catalog) index(sf *unityfs.SerializedFile, info unityfs.ObjectInfo, kinds engine.KindSet, loc Locator) error {
	switch kind := engine.KindOf(info.ClassID); kind {
	case engine.KindTexture2D, engine.KindMesh, engine.KindFont, engine.KindTextAsset:
		if !kinds.Has(kind) {
			return nil
		}
		name, err := sf.ReadName(info.PathID)
		if err != nil {
			return err
		}
		c.put(kind, name, loc)

	case engine.KindGameObject:
		if !kinds.Has(kind) {
			return nil
		}
		g, err := engine.DecodeAs[*engine.GameObject](sf, info.PathID)
		if err != nil {
			return err
		}
		c.put(kind, g.Name, loc)
		if p, ok := portraitPath(sf, g); ok {
			c.portraits[g.Name] = p
		}

	case engine.KindAssetBundleManifest:
		if !kinds.Has(kind) {
			return nil
		}
		m, err := engine.DecodeAs[*engine.AssetBundleManifest](sf, info.PathID)
		if err != nil {
			return err
		}
		c.put(kind, m.Name, loc)
		for _, e := range m.Container {
			idx, ok := sf.ResolveExternal(e.Asset.FileID)
			if !ok {
				// points outside this bundle
				continue
			}
			c.putPath(e.Path, Ref(loc.File, idx, e.Asset.PathID))
		}

	case engine.KindMonoBehaviour:
		if !kinds.Has(engine.KindFontDef) {
			return nil
		}
		obj, err := engine.Decode(sf, info.PathID)
		if err != nil {
			return err
		}
		if def, ok := obj.(*engine.FontDef); ok {
			c.put(engine.KindFontDef, def.Name, loc)
		}
	}
	return nil
}

// portraitPath returns the portrait path carried by one of g's behaviours.
func portraitPath(sf *unityfs.SerializedFile, g *engine.GameObject) (string, bool) {
	for _, ptr := range g.Components {
		obj, _, err := engine.Deref(sf, ptr)
		if err != nil {
			continue
		}
		b, ok := obj.(*engine.MonoBehaviour)
		if !ok || !b.Fields.Has(portraitField) {
			continue
		}
		p, err := b.Fields.Str(portraitField)
		if err != nil || p == "" {
			continue
		}
		return p, true
	}
	return "", false
}
