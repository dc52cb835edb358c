package mesh

import (
	"encoding/binary"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/x448/float16"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/unityfs/unityfstest"
)

func indices(idx ...uint16) []byte {
	b := make([]byte, len(idx)*2)
	for i, v := range idx {
		binary.LittleEndian.PutUint16(b[i*2:], v)
	}
	return b
}

// quadMesh is a unit quad split into two triangles. Vertices are stored as
// x, z, y followed by a UV; the second triangle sits deeper.
func quadMesh() *engine.Mesh {
	return &engine.Mesh{
		Name:        "InHand_Ability_Base_mesh",
		SubMeshes:   []engine.SubMesh{{FirstByte: 0, IndexCount: 6}},
		IndexBuffer: indices(0, 1, 2, 1, 2, 3),
		VertexCount: 4,
		Channels: []engine.Channel{
			{Offset: 0, Dimension: 3},
			{},
			{},
			{Offset: 12, Dimension: 2},
		},
		VertexData: unityfstest.Floats(
			0, 0, 0, 0, 0,
			2, 0, 0, 1, 0,
			0, 0, 1, 0, 1,
			2, 5, 1, 1, 1,
		),
	}
}

func TestExtractTriangles(t *testing.T) {
	tris, err := ExtractTriangles(quadMesh(), 0, 0, 3)
	require.NoError(t, err)
	require.Len(t, tris, 2)

	assert.Equal(t, mgl32.Vec3{2, 1, 5}, tris[1].Vertices[2].Position, "y and z are swapped back")
	assert.Equal(t, mgl32.Vec2{1, 1}, tris[1].Vertices[2].UV)
	assert.Equal(t, float32(0), tris[0].MaxZ)
	assert.Equal(t, float32(5), tris[1].MaxZ)
	assert.Equal(t, float32(0), tris[1].MinX)
	assert.Equal(t, float32(2), tris[1].MaxX)
	assert.Equal(t, float32(1), tris[1].MaxY)

	t.Run("UInt32Indices", func(t *testing.T) {
		m := quadMesh()
		m.IndexFormat = engine.IndexUInt32
		m.IndexBuffer = make([]byte, 24)
		for i, v := range []uint32{0, 1, 2, 1, 2, 3} {
			binary.LittleEndian.PutUint32(m.IndexBuffer[i*4:], v)
		}
		got, err := ExtractTriangles(m, 0, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, tris, got)
	})

	t.Run("HalfFloatUV", func(t *testing.T) {
		m := quadMesh()
		// Position stays float32 and the UV becomes two halves at offset 12.
		data := make([]byte, 0, 16*4)
		for v := range 4 {
			data = append(data, m.VertexData[v*20:v*20+12]...)
			for _, f := range []float32{0.5, 0.25} {
				data = binary.LittleEndian.AppendUint16(data, float16.Fromfloat32(f).Bits())
			}
		}
		m.VertexData = data
		m.Channels[3].Format = engine.VertexFloat16
		got, err := ExtractTriangles(m, 0, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, mgl32.Vec2{0.5, 0.25}, got[0].Vertices[0].UV)
		assert.Equal(t, mgl32.Vec3{2, 0, 0}, got[0].Vertices[1].Position)
	})
}

func TestExtractTrianglesErrors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *engine.Mesh)
		uv     int
		want   error
	}{
		{"SubmeshOutOfRange", func(m *engine.Mesh) { m.SubMeshes = nil }, 3, errs.ErrAssetNotFound},
		{"IndexCountNotTriangles", func(m *engine.Mesh) { m.SubMeshes[0].IndexCount = 4 }, 3, errs.ErrFormat},
		{"ChannelOutOfRange", func(m *engine.Mesh) {}, 9, errs.ErrFormat},
		{"ZeroDimension", func(m *engine.Mesh) {}, 1, errs.ErrFormat},
		{"VertexOutOfRange", func(m *engine.Mesh) { m.IndexBuffer = indices(0, 1, 7, 1, 2, 3) }, 3, errs.ErrFormat},
		{"IndexBufferTruncated", func(m *engine.Mesh) { m.IndexBuffer = m.IndexBuffer[:8] }, 3, errs.ErrFormat},
		{"NoVertices", func(m *engine.Mesh) { m.VertexCount = 0 }, 3, errs.ErrFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := quadMesh()
			tt.mutate(m)
			_, err := ExtractTriangles(m, 0, 0, tt.uv)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestSortByDepth(t *testing.T) {
	tris, err := ExtractTriangles(quadMesh(), 0, 0, 3)
	require.NoError(t, err)
	deep, shallow := tris[1], tris[0]

	list := []Triangle{deep, shallow}
	SortByDepth(list, DepthMaxZ)
	assert.Equal(t, []Triangle{shallow, deep}, list)

	// Equal keys keep their order.
	a, b := shallow, shallow
	a.Vertices[0].UV = mgl32.Vec2{9, 9}
	list = []Triangle{a, deep, b}
	SortByDepth(list, DepthMinZ)
	assert.Equal(t, []Triangle{a, deep, b}, list, "MinZ is 0 for all three")
}

func TestNormalize(t *testing.T) {
	tris, err := ExtractTriangles(quadMesh(), 0, 0, 3)
	require.NoError(t, err)

	verts, err := Normalize(tris, Options{Width: 100, SourceWidth: 64, SourceHeight: 32})
	require.NoError(t, err)
	require.Len(t, verts, 6)
	assert.Equal(t, mgl32.Vec2{0, 0}, verts[0].Position)
	assert.Equal(t, mgl32.Vec2{100, 0}, verts[1].Position)
	assert.Equal(t, mgl32.Vec2{0, 50}, verts[2].Position)
	assert.Equal(t, mgl32.Vec2{100, 50}, verts[5].Position)
	assert.Equal(t, mgl32.Vec2{64, 32}, verts[5].TexCoord)

	t.Run("ScaleInvariance", func(t *testing.T) {
		wide, err := Normalize(tris, Options{Width: 200, SourceWidth: 64, SourceHeight: 32})
		require.NoError(t, err)
		for i := range verts {
			assert.Equal(t, verts[i].Position.Mul(2), wide[i].Position)
			assert.Equal(t, verts[i].TexCoord, wide[i].TexCoord)
		}
	})

	t.Run("TextureOffset", func(t *testing.T) {
		off := AtlasQuadrant(3, 64, 32)
		assert.Equal(t, mgl32.Vec2{32, 16}, off)
		got, err := Normalize(tris, Options{Width: 100, SourceWidth: 64, SourceHeight: 32, TextureOffset: off})
		require.NoError(t, err)
		assert.Equal(t, mgl32.Vec2{96, 48}, got[5].TexCoord)
	})

	t.Run("Degenerate", func(t *testing.T) {
		flat := []Triangle{newTriangle(Vertex{}, Vertex{}, Vertex{})}
		_, err := Normalize(flat, Options{Width: 100})
		assert.ErrorIs(t, err, errs.ErrFormat)
		_, err = Normalize(nil, Options{Width: 100})
		assert.ErrorIs(t, err, errs.ErrFormat)
	})
}

func TestUnwrapUV(t *testing.T) {
	m := quadMesh()
	verts, err := UnwrapUV(m, 0, 3, 64, 32)
	require.NoError(t, err)
	require.Len(t, verts, 6)
	assert.Equal(t, mgl32.Vec2{0, 0}, verts[0].Position)
	assert.Equal(t, mgl32.Vec2{64, 32}, verts[5].Position)
	assert.Equal(t, mgl32.Vec2{64, 0}, verts[1].TexCoord)

	_, err = UnwrapUV(m, 2, 3, 64, 32)
	assert.ErrorIs(t, err, errs.ErrAssetNotFound)
}

func TestAtlasQuadrant(t *testing.T) {
	assert.Equal(t, mgl32.Vec2{0, 0}, AtlasQuadrant(0, 128, 128))
	assert.Equal(t, mgl32.Vec2{64, 0}, AtlasQuadrant(1, 128, 128))
	assert.Equal(t, mgl32.Vec2{0, 64}, AtlasQuadrant(2, 128, 128))
}
