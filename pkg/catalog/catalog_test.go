package catalog_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/go-redis/redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/unityfs"
	"github.com/goopsie/hsCardTools/pkg/unityfs/unityfstest"
)

var portraitTree = unityfstest.MonoBehaviourTree(unityfstest.Str("m_PortraitTexturePath"))

func addCard(f *unityfstest.File, goID int64, name, portrait string) {
	f.Add(unityfs.ClassGameObject, goID, unityfstest.GameObjectTree(),
		unityfstest.GameObject(name, unityfs.PPtr{PathID: goID + 1}))
	f.Add(unityfs.ClassMonoBehaviour, goID+1, portraitTree,
		unityfstest.MonoBehaviour(unityfs.PPtr{PathID: goID}, unityfs.PPtr{PathID: 100}, unityfstest.M{
			"m_PortraitTexturePath": portrait,
		}))
}

// writeFixture lays out a small client data directory.
func writeFixture(t *testing.T) string {
	t.Helper()
	root := t.TempDir()

	cards := &unityfstest.Bundle{Compression: unityfs.CompressionLZ4}
	f := cards.NewFile("CAB-cards")
	f.Add(unityfs.ClassMonoScript, 100, unityfstest.MonoScriptTree(), unityfstest.MonoScript("CardDef", ""))
	addCard(f, 1, "EX1_277", "Assets/Art/Cards/EX1_277.psd:9f2c")
	addCard(f, 3, "CS2_029", "Somewhere/Else/CS2_029.psd")
	addCard(f, 5, "NOPORT", "Missing/X.psd")
	f.Add(unityfs.ClassGameObject, 7, unityfstest.GameObjectTree(), unityfstest.GameObject("Bare"))
	require.NoError(t, cards.WriteFile(filepath.Join(root, "cards0.unity3d")))

	shared := &unityfstest.Bundle{Compression: unityfs.CompressionLZ4HC}
	f = shared.NewFile("CAB-shared")
	f.Add(unityfs.ClassTexture2D, 10, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("EX1_277", 1, 1, 4, []byte{1, 2, 3, 4}))
	f.Add(unityfs.ClassTexture2D, 11, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("CS2_029", 1, 1, 4, []byte{1, 2, 3, 4}))
	f.Add(unityfs.ClassTexture2D, 12, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("decoy", 1, 1, 4, []byte{1, 2, 3, 4}))
	f.Add(unityfs.ClassTextAsset, 14, unityfstest.TextAssetTree(), unityfstest.TextAsset("readme", "hi"))
	f.Add(unityfs.ClassAssetBundle, 13, unityfstest.AssetBundleTree(), unityfstest.AssetBundle("shared0",
		unityfstest.ContainerEntry{Path: "final/assets/art/cards/ex1_277.psd", Asset: unityfs.PPtr{PathID: 10}},
		unityfstest.ContainerEntry{Path: "Final/Other/EX1_277.psd", Asset: unityfs.PPtr{PathID: 12}},
		unityfstest.ContainerEntry{Path: "Final/Art/cs2_029.psd", Asset: unityfs.PPtr{PathID: 11}},
	))
	require.NoError(t, shared.WriteFile(filepath.Join(root, "shared0.unity3d")))

	later := &unityfstest.Bundle{}
	later.NewFile("CAB-later").Add(unityfs.ClassTexture2D, 60, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("CS2_029", 1, 1, 4, []byte{1, 2, 3, 4}))
	require.NoError(t, later.WriteFile(filepath.Join(root, "shared1.unity3d")))

	require.NoError(t, os.WriteFile(filepath.Join(root, "shared9.unity3d"), []byte("not a bundle"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("ignored"), 0o644))
	return root
}

func build(t *testing.T, root string) *catalog.Catalog {
	t.Helper()
	c, err := catalog.Build(context.Background(), root, catalog.DefaultPasses(),
		catalog.WithLogger(zerolog.Nop()), catalog.WithWorkers(2))
	require.NoError(t, err)
	return c
}

func TestBuild(t *testing.T) {
	root := writeFixture(t)
	c := build(t, root)

	assert.Equal(t, root, c.Root())
	assert.Equal(t, []string{"CS2_029", "EX1_277", "decoy"}, c.Names(engine.KindTexture2D))
	assert.Equal(t, []string{"Bare", "CS2_029", "EX1_277", "NOPORT"}, c.Names(engine.KindGameObject))
	assert.Equal(t, []string{"readme"}, c.Names(engine.KindTextAsset))
	assert.Equal(t, []string{"CS2_029", "EX1_277", "NOPORT"}, c.Cards())

	t.Run("Get", func(t *testing.T) {
		// the texture shadows the game object of the same name
		loc, err := c.Get("EX1_277")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref("shared0.unity3d", 0, 10), loc)

		loc, err = c.Get("Bare")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref("cards0.unity3d", 0, 7), loc)

		_, err = c.Get("nothing")
		assert.ErrorIs(t, err, errs.ErrAssetNotFound)
	})

	t.Run("LaterFileWins", func(t *testing.T) {
		loc, err := c.Lookup(engine.KindTexture2D, "CS2_029")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref("shared1.unity3d", 0, 60), loc)
		assert.Equal(t, filepath.Join(root, "shared1.unity3d"), c.Path(loc))
	})

	t.Run("Find", func(t *testing.T) {
		assert.True(t, c.Find(engine.KindGameObject, "NOPORT").IsSome())
		assert.True(t, c.Find(engine.KindMesh, "NOPORT").IsNone())
	})

	t.Run("Kinds", func(t *testing.T) {
		assert.Equal(t, []engine.Kind{
			engine.KindTexture2D, engine.KindTextAsset, engine.KindGameObject, engine.KindAssetBundleManifest,
		}, c.Kinds())
	})

	t.Run("Asset", func(t *testing.T) {
		loc, err := c.Asset("Final/Assets/Art/Cards/EX1_277.psd")
		require.NoError(t, err)
		assert.Equal(t, int64(10), loc.ID)

		_, err = c.Asset("final/art/ex1_277.psd")
		assert.ErrorIs(t, err, errs.ErrAssetNotFound)
	})
}

func TestPortrait(t *testing.T) {
	c := build(t, writeFixture(t))

	t.Run("FullPathBeforeBasename", func(t *testing.T) {
		loc, err := c.Portrait("EX1_277")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref("shared0.unity3d", 0, 10), loc)
	})

	t.Run("BasenameFallback", func(t *testing.T) {
		loc, err := c.Portrait("CS2_029")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref("shared0.unity3d", 0, 11), loc)
	})

	t.Run("UnresolvedPath", func(t *testing.T) {
		_, err := c.Portrait("NOPORT")
		var nf *errs.AssetNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "final/missing/x.psd", nf.Name)
	})

	t.Run("UnknownCard", func(t *testing.T) {
		_, err := c.Portrait("Bare")
		var nf *errs.AssetNotFoundError
		require.ErrorAs(t, err, &nf)
		assert.Equal(t, "Bare", nf.Name)
	})

	raw, ok := c.PortraitPath("EX1_277")
	assert.True(t, ok)
	assert.Equal(t, "Assets/Art/Cards/EX1_277.psd:9f2c", raw)
}

func TestBuildErrors(t *testing.T) {
	ctx := context.Background()

	t.Run("MissingRoot", func(t *testing.T) {
		_, err := catalog.Build(ctx, filepath.Join(t.TempDir(), "absent"), catalog.DefaultPasses())
		assert.ErrorIs(t, err, errs.ErrIO)
	})

	t.Run("RootIsFile", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "file")
		require.NoError(t, os.WriteFile(p, nil, 0o644))
		_, err := catalog.Build(ctx, p, catalog.DefaultPasses())
		assert.ErrorIs(t, err, errs.ErrIO)
	})

	t.Run("BadPattern", func(t *testing.T) {
		passes := []catalog.Pass{{Pattern: "[", Kinds: engine.NewKindSet(engine.KindTexture2D)}}
		_, err := catalog.Build(ctx, t.TempDir(), passes)
		assert.ErrorIs(t, err, errs.ErrIO)
	})

	t.Run("Canceled", func(t *testing.T) {
		root := writeFixture(t)
		ctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := catalog.Build(ctx, root, catalog.DefaultPasses(), catalog.WithLogger(zerolog.Nop()))
		assert.ErrorIs(t, err, context.Canceled)
	})

	t.Run("EmptyRoot", func(t *testing.T) {
		c, err := catalog.Build(ctx, t.TempDir(), catalog.DefaultPasses())
		require.NoError(t, err)
		assert.Zero(t, c.Len())
	})
}

func TestLocator(t *testing.T) {
	loc := catalog.Ref("sub|dir/shared0.unity3d", 2, -41)
	assert.Equal(t, "sub|dir/shared0.unity3d|2|-41", loc.String())

	got, err := catalog.ParseLocator(loc.String())
	require.NoError(t, err)
	assert.Equal(t, loc, got)

	for _, bad := range []string{"", "file", "file|1", "file|x|1", "file|1|y"} {
		_, err := catalog.ParseLocator(bad)
		assert.ErrorIs(t, err, errs.ErrFormat, bad)
	}
}

func TestNormalizePath(t *testing.T) {
	cases := map[string]string{
		"Assets/Art/EX1_277.psd":          "final/assets/art/ex1_277.psd",
		"  /Assets/Art/EX1_277.psd:abc  ": "final/assets/art/ex1_277.psd",
		"Final/Assets/Art/EX1_277.PSD":    "final/assets/art/ex1_277.psd",
		"final/a:b:c":                     "final/a:b",
		"":                                "final/",
	}
	for in, want := range cases {
		assert.Equal(t, want, catalog.NormalizePath(in), in)
	}
}

func TestSnapshot(t *testing.T) {
	root := writeFixture(t)
	c := build(t, root)

	t.Run("Binary", func(t *testing.T) {
		a, err := c.MarshalBinary()
		require.NoError(t, err)
		b, err := c.MarshalBinary()
		require.NoError(t, err)
		assert.Equal(t, a, b)

		var got catalog.Catalog
		require.NoError(t, got.UnmarshalBinary(a))
		assert.Equal(t, c.Names(engine.KindTexture2D), got.Names(engine.KindTexture2D))
		loc, err := got.Portrait("EX1_277")
		require.NoError(t, err)
		assert.Equal(t, catalog.Ref("shared0.unity3d", 0, 10), loc)

		assert.ErrorIs(t, got.UnmarshalBinary([]byte{0xff}), errs.ErrFormat)
	})

	t.Run("File", func(t *testing.T) {
		p := filepath.Join(t.TempDir(), "catalog.bin")
		require.NoError(t, catalog.Save(p, c, 42))
		got, fp, err := catalog.Load(p)
		require.NoError(t, err)
		assert.Equal(t, uint64(42), fp)
		assert.Equal(t, c.Len(), got.Len())
		assert.Equal(t, c.Cards(), got.Cards())

		_, _, err = catalog.Load(filepath.Join(t.TempDir(), "absent"))
		assert.ErrorIs(t, err, errs.ErrIO)
	})

	t.Run("Fingerprint", func(t *testing.T) {
		passes := catalog.DefaultPasses()
		a, err := catalog.Fingerprint(root, passes)
		require.NoError(t, err)
		b, err := catalog.Fingerprint(root, passes)
		require.NoError(t, err)
		assert.Equal(t, a, b)

		fewer, err := catalog.Fingerprint(root, passes[:1])
		require.NoError(t, err)
		assert.NotEqual(t, a, fewer)

		stamp := time.Now().Add(time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(root, "shared1.unity3d"), stamp, stamp))
		d, err := catalog.Fingerprint(root, passes)
		require.NoError(t, err)
		assert.NotEqual(t, a, d)

		assert.Equal(t, "catalog-000000000000002a", catalog.SnapshotKey(42))
	})
}

type memStore struct {
	mu   sync.Mutex
	data map[string][]byte
	sets int
}

func (m *memStore) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.data[key]
	if !ok {
		return nil, catalog.Missing
	}
	return d, nil
}

func (m *memStore) Set(ctx context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.data == nil {
		m.data = make(map[string][]byte)
	}
	m.data[key] = data
	m.sets++
	return nil
}

func TestCached(t *testing.T) {
	ctx := context.Background()
	root := writeFixture(t)
	passes := catalog.DefaultPasses()
	store := &memStore{}
	opts := []catalog.Option{catalog.WithLogger(zerolog.Nop())}

	first, err := catalog.Cached(ctx, store, root, passes, opts...)
	require.NoError(t, err)
	assert.Equal(t, 1, store.sets)

	second, err := catalog.Cached(ctx, store, root, passes, opts...)
	require.NoError(t, err)
	assert.Equal(t, 1, store.sets, "snapshot should be reused")
	assert.Equal(t, first.Names(engine.KindTexture2D), second.Names(engine.KindTexture2D))
	assert.Equal(t, root, second.Root())

	t.Run("CorruptSnapshot", func(t *testing.T) {
		fp, err := catalog.Fingerprint(root, passes)
		require.NoError(t, err)
		require.NoError(t, store.Set(ctx, catalog.SnapshotKey(fp), []byte("garbage")))
		sets := store.sets

		c, err := catalog.Cached(ctx, store, root, passes, opts...)
		require.NoError(t, err)
		assert.Equal(t, first.Len(), c.Len())
		assert.Equal(t, sets+1, store.sets)
	})

	t.Run("StaleFingerprint", func(t *testing.T) {
		stamp := time.Now().Add(2 * time.Hour)
		require.NoError(t, os.Chtimes(filepath.Join(root, "cards0.unity3d"), stamp, stamp))
		sets := store.sets

		_, err := catalog.Cached(ctx, store, root, passes, opts...)
		require.NoError(t, err)
		assert.Equal(t, sets+1, store.sets)
	})

	t.Run("FSStore", func(t *testing.T) {
		dir := catalog.FSStore(filepath.Join(t.TempDir(), "cache"))
		_, err := dir.Get(ctx, "absent")
		assert.ErrorIs(t, err, catalog.Missing)

		c, err := catalog.Cached(ctx, dir, root, passes, opts...)
		require.NoError(t, err)
		entries, err := os.ReadDir(string(dir))
		require.NoError(t, err)
		require.Len(t, entries, 1)

		again, err := catalog.Cached(ctx, dir, root, passes, opts...)
		require.NoError(t, err)
		assert.Equal(t, c.Cards(), again.Cards())
	})

	t.Run("UnavailableRedis", func(t *testing.T) {
		client := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"})
		require.NoError(t, client.Close())
		rs := catalog.NewRedisStore(client, 0)

		_, err := rs.Get(ctx, "k")
		require.Error(t, err)
		assert.NotErrorIs(t, err, catalog.Missing)

		c, err := catalog.Cached(ctx, rs, root, passes, opts...)
		require.NoError(t, err)
		assert.Equal(t, first.Len(), c.Len())
	})
}
