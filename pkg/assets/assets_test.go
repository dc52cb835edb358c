package assets_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goopsie/hsCardTools/pkg/assets"
	"github.com/goopsie/hsCardTools/pkg/catalog"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/unityfs"
	"github.com/goopsie/hsCardTools/pkg/unityfs/unityfstest"
)

func newStore(t *testing.T) *assets.Store {
	t.Helper()
	root := t.TempDir()

	cards := &unityfstest.Bundle{}
	f := cards.NewFile("CAB-cards")
	f.Add(unityfs.ClassGameObject, 1, unityfstest.GameObjectTree(),
		unityfstest.GameObject("EX1_277", unityfs.PPtr{PathID: 2}))
	f.Add(unityfs.ClassMonoBehaviour, 2, unityfstest.MonoBehaviourTree(unityfstest.Str("m_PortraitTexturePath")),
		unityfstest.MonoBehaviour(unityfs.PPtr{PathID: 1}, unityfs.PPtr{}, unityfstest.M{
			"m_PortraitTexturePath": "Assets/Art/EX1_277.psd",
		}))
	f.Add(unityfs.ClassGameObject, 3, unityfstest.GameObjectTree(),
		unityfstest.GameObject("CS2_029", unityfs.PPtr{PathID: 4}))
	f.Add(unityfs.ClassMonoBehaviour, 4, unityfstest.MonoBehaviourTree(unityfstest.Str("m_PortraitTexturePath")),
		unityfstest.MonoBehaviour(unityfs.PPtr{PathID: 3}, unityfs.PPtr{}, unityfstest.M{
			"m_PortraitTexturePath": "Assets/Art/CS2_029.psd",
		}))
	require.NoError(t, cards.WriteFile(filepath.Join(root, "cards0.unity3d")))

	shared := &unityfstest.Bundle{Compression: unityfs.CompressionLZ4}
	f = shared.NewFile("CAB-shared")
	f.Add(unityfs.ClassTexture2D, 10, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("EX1_277", 2, 1, 4, []byte{255, 0, 0, 255, 0, 255, 0, 255}))
	f.Add(unityfs.ClassTexture2D, 11, unityfstest.Texture2DTree(),
		unityfstest.Texture2D("Broken", 2, 2, 25, []byte{1, 2, 3}))
	f.Add(unityfs.ClassMesh, 12, unityfstest.MeshTree(), unityfstest.Mesh("Quad",
		[]unityfstest.SubMesh{{FirstByte: 0, IndexCount: 6}},
		[]uint16{0, 1, 2, 1, 2, 3}, 4,
		[]unityfstest.Channel{{Offset: 0, Dimension: 3}, {}, {}, {Offset: 12, Dimension: 2}},
		make([]byte, 4*20)))
	f.Add(unityfs.ClassAssetBundle, 13, unityfstest.AssetBundleTree(), unityfstest.AssetBundle("shared0",
		unityfstest.ContainerEntry{Path: "final/assets/art/ex1_277.psd", Asset: unityfs.PPtr{PathID: 10}},
		unityfstest.ContainerEntry{Path: "final/assets/art/cs2_029.psd", Asset: unityfs.PPtr{PathID: 12}},
	))
	require.NoError(t, shared.WriteFile(filepath.Join(root, "shared0.unity3d")))

	c, err := catalog.Build(context.Background(), root, catalog.DefaultPasses(),
		catalog.WithLogger(zerolog.Nop()))
	require.NoError(t, err)
	return assets.New(c)
}

func TestTexture(t *testing.T) {
	s := newStore(t)

	img, err := s.Texture("EX1_277")
	require.NoError(t, err)
	assert.Equal(t, 2, img.Rect.Dx())
	assert.Equal(t, []byte{255, 0, 0, 255, 0, 255, 0, 255}, img.Pix)

	raw, err := s.RawTexture("EX1_277")
	require.NoError(t, err)
	assert.Equal(t, 4, raw.Format)

	_, err = s.Texture("absent")
	assert.ErrorIs(t, err, errs.ErrAssetNotFound)
	assert.Equal(t, int64(1), s.Decodes())
}

func TestDecodeOnce(t *testing.T) {
	s := newStore(t)

	var wg sync.WaitGroup
	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Texture("EX1_277")
			assert.NoError(t, err)
			_, err = s.Portrait("EX1_277")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(1), s.Decodes())
}

func TestErrorsCached(t *testing.T) {
	s := newStore(t)

	_, err := s.Texture("Broken")
	require.Error(t, err)
	_, err2 := s.Texture("Broken")
	assert.Equal(t, err, err2)
	assert.Equal(t, int64(1), s.Decodes())
}

func TestMesh(t *testing.T) {
	s := newStore(t)

	m, err := s.Mesh("Quad")
	require.NoError(t, err)
	assert.Equal(t, 4, m.VertexCount)
	assert.Len(t, m.SubMeshes, 1)

	_, err = s.Mesh("EX1_277")
	assert.ErrorIs(t, err, errs.ErrAssetNotFound)
}

func TestPortrait(t *testing.T) {
	s := newStore(t)

	img, err := s.Portrait("EX1_277")
	require.NoError(t, err)
	assert.Equal(t, 1, img.Rect.Dy())

	// the container entry points at a mesh
	_, err = s.Portrait("CS2_029")
	var te *errs.ObjectTypeError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Texture2D", te.Want)
	assert.Equal(t, "Mesh", te.Got)

	_, err = s.Portrait("GAME_005")
	assert.ErrorIs(t, err, errs.ErrAssetNotFound)
}

func TestObject(t *testing.T) {
	s := newStore(t)
	loc, err := s.Catalog().Get("Quad")
	require.NoError(t, err)

	obj, err := s.Object(loc)
	require.NoError(t, err)
	assert.Equal(t, "Quad", obj.ObjectName())

	_, err = s.Object(catalog.Ref("missing.unity3d", 0, 1))
	assert.ErrorIs(t, err, errs.ErrIO)
}
