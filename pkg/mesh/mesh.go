// Package mesh turns Unity mesh buffers into triangles and canvas vertices.
package mesh

import (
	"encoding/binary"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/x448/float16"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/raster"
)

// Vertex is one decoded mesh vertex. Position is in canvas axes, with the stored
// Y/Z swap undone.
type Vertex struct {
	Position mgl32.Vec3
	UV       mgl32.Vec2
}

// Triangle is three vertices with their bounds.
type Triangle struct {
	Vertices [3]Vertex

	MinX, MinY, MinZ float32
	MaxX, MaxY, MaxZ float32
}

func newTriangle(a, b, c Vertex) Triangle {
	t := Triangle{Vertices: [3]Vertex{a, b, c}}
	t.MinX, t.MaxX = bounds3(a.Position.X(), b.Position.X(), c.Position.X())
	t.MinY, t.MaxY = bounds3(a.Position.Y(), b.Position.Y(), c.Position.Y())
	t.MinZ, t.MaxZ = bounds3(a.Position.Z(), b.Position.Z(), c.Position.Z())
	return t
}

func bounds3(a, b, c float32) (lo, hi float32) {
	return min(a, b, c), max(a, b, c)
}

// vertexReader reads channels out of a mesh's interleaved vertex buffer.
type vertexReader struct {
	mesh   *engine.Mesh
	stride int
}

func newVertexReader(m *engine.Mesh) (*vertexReader, error) {
	if m.VertexCount <= 0 {
		return nil, errs.Formatf("mesh %q: no vertices", m.Name)
	}
	stride := m.Stride()
	if stride == 0 {
		return nil, errs.Formatf("mesh %q: vertex data smaller than vertex count", m.Name)
	}
	return &vertexReader{mesh: m, stride: stride}, nil
}

func (r *vertexReader) channel(index, minDim int) (engine.Channel, error) {
	if index < 0 || index >= len(r.mesh.Channels) {
		return engine.Channel{}, errs.Formatf("mesh %q: channel %d out of range (%d channels)",
			r.mesh.Name, index, len(r.mesh.Channels))
	}
	ch := r.mesh.Channels[index]
	if int(ch.Dimension) < max(minDim, 1) {
		return engine.Channel{}, errs.Formatf("mesh %q: channel %d has dimension %d", r.mesh.Name, index, ch.Dimension)
	}
	if ch.Stream != 0 {
		return engine.Channel{}, errs.Formatf("mesh %q: channel %d is in stream %d", r.mesh.Name, index, ch.Stream)
	}
	switch ch.Format {
	case engine.VertexFloat, engine.VertexFloat16, engine.VertexUNorm8:
	default:
		return engine.Channel{}, errs.Formatf("mesh %q: channel %d has unsupported format %d", r.mesh.Name, index, ch.Format)
	}
	return ch, nil
}

// read decodes n components of ch for vertex v into dst.
func (r *vertexReader) read(v int, ch engine.Channel, dst []float32) error {
	size := ch.ComponentSize()
	start := v*r.stride + int(ch.Offset)
	end := start + len(dst)*size
	if v < 0 || v >= r.mesh.VertexCount || end > len(r.mesh.VertexData) {
		return errs.Formatf("mesh %q: vertex %d out of range", r.mesh.Name, v)
	}
	b := r.mesh.VertexData[start:end]
	for i := range dst {
		switch ch.Format {
		case engine.VertexFloat16:
			dst[i] = float16.Frombits(binary.LittleEndian.Uint16(b[i*2:])).Float32()
		case engine.VertexUNorm8:
			dst[i] = float32(b[i]) / 255
		default:
			dst[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
		}
	}
	return nil
}

// index returns the vertex index stored at byte offset off of the index buffer.
func index(m *engine.Mesh, off int) (int, error) {
	size := m.IndexFormat.Size()
	if off < 0 || off+size > len(m.IndexBuffer) {
		return 0, errs.Formatf("mesh %q: index at byte %d out of range", m.Name, off)
	}
	if size == 4 {
		return int(binary.LittleEndian.Uint32(m.IndexBuffer[off:])), nil
	}
	return int(binary.LittleEndian.Uint16(m.IndexBuffer[off:])), nil
}

func subMesh(m *engine.Mesh, i int) (engine.SubMesh, error) {
	if i < 0 || i >= len(m.SubMeshes) {
		return engine.SubMesh{}, errs.AssetNotFound(fmt.Sprintf("%s submesh %d", m.Name, i))
	}
	return m.SubMeshes[i], nil
}

// ExtractTriangles reads the triangles of one submesh, taking positions from
// posChannel and texture coordinates from uvChannel.
func ExtractTriangles(m *engine.Mesh, submesh, posChannel, uvChannel int) ([]Triangle, error) {
	sm, err := subMesh(m, submesh)
	if err != nil {
		return nil, err
	}
	if sm.IndexCount%3 != 0 {
		return nil, errs.Formatf("mesh %q: submesh %d index count %d is not a multiple of 3",
			m.Name, submesh, sm.IndexCount)
	}
	r, err := newVertexReader(m)
	if err != nil {
		return nil, err
	}
	pos, err := r.channel(posChannel, 1)
	if err != nil {
		return nil, err
	}
	uv, err := r.channel(uvChannel, 2)
	if err != nil {
		return nil, err
	}

	indexSize := m.IndexFormat.Size()
	tris := make([]Triangle, 0, sm.IndexCount/3)
	var p [3]float32
	var t [2]float32
	for i := 0; i < int(sm.IndexCount)/3; i++ {
		var vs [3]Vertex
		for k := range vs {
			idx, err := index(m, int(sm.FirstByte)+(i*3+k)*indexSize)
			if err != nil {
				return nil, err
			}
			idx += int(sm.BaseVertex)

			p = [3]float32{}
			if err := r.read(idx, pos, p[:min(int(pos.Dimension), 3)]); err != nil {
				return nil, err
			}
			if err := r.read(idx, uv, t[:]); err != nil {
				return nil, err
			}
			// stored as x, z, y
			vs[k] = Vertex{
				Position: mgl32.Vec3{p[0], p[2], p[1]},
				UV:       mgl32.Vec2{t[0], t[1]},
			}
		}
		tris = append(tris, newTriangle(vs[0], vs[1], vs[2]))
	}
	return tris, nil
}

// DepthKey selects which Z bound orders triangles.
type DepthKey uint8

const (
	DepthMaxZ DepthKey = iota
	DepthMinZ
)

// SortByDepth stably sorts tris by ascending depth, so earlier triangles are drawn
// first and end up underneath.
func SortByDepth(tris []Triangle, key DepthKey) {
	depth := func(t Triangle) float32 {
		if key == DepthMinZ {
			return t.MinZ
		}
		return t.MaxZ
	}
	sort.SliceStable(tris, func(i, j int) bool {
		return depth(tris[i]) < depth(tris[j])
	})
}

// Options controls Normalize.
type Options struct {
	// Width is the output width the mesh's x extent is scaled to.
	Width float32
	// SourceWidth and SourceHeight are the texture size UVs are scaled by.
	SourceWidth, SourceHeight int
	// TextureOffset is added to every scaled texture coordinate.
	TextureOffset mgl32.Vec2
}

// Normalize maps triangles into canvas space: positions are shifted to the
// minimum corner and scaled so the x extent equals opts.Width, and UVs become
// texture pixel coordinates.
func Normalize(tris []Triangle, opts Options) ([]raster.Vertex, error) {
	if len(tris) == 0 {
		return nil, errs.Formatf("normalize: no triangles")
	}
	minX, minY, maxX := tris[0].MinX, tris[0].MinY, tris[0].MaxX
	for _, t := range tris[1:] {
		minX = min(minX, t.MinX)
		minY = min(minY, t.MinY)
		maxX = max(maxX, t.MaxX)
	}
	extent := maxX - minX
	if extent <= 0 || math.IsInf(float64(extent), 0) || math.IsNaN(float64(extent)) {
		return nil, errs.Formatf("normalize: degenerate x extent %v", extent)
	}
	scale := opts.Width / extent
	src := mgl32.Vec2{float32(opts.SourceWidth), float32(opts.SourceHeight)}

	out := make([]raster.Vertex, 0, len(tris)*3)
	for _, t := range tris {
		for _, v := range t.Vertices {
			out = append(out, raster.Vertex{
				Position: mgl32.Vec2{(v.Position.X() - minX) * scale, (v.Position.Y() - minY) * scale},
				TexCoord: mgl32.Vec2{v.UV.X()*src.X() + opts.TextureOffset.X(), v.UV.Y()*src.Y() + opts.TextureOffset.Y()},
			})
		}
	}
	return out, nil
}

// UnwrapUV lays a submesh out flat by its texture coordinates: each vertex is
// placed at its UV in texture pixels, relative to the smallest UV. Texture
// coordinates are the same UVs in texture pixels.
func UnwrapUV(m *engine.Mesh, submesh, uvChannel, srcW, srcH int) ([]raster.Vertex, error) {
	sm, err := subMesh(m, submesh)
	if err != nil {
		return nil, err
	}
	r, err := newVertexReader(m)
	if err != nil {
		return nil, err
	}
	uv, err := r.channel(uvChannel, 2)
	if err != nil {
		return nil, err
	}

	indexSize := m.IndexFormat.Size()
	uvs := make([]mgl32.Vec2, 0, sm.IndexCount)
	// UVs live in [0,1], so the minimum starts at the far corner.
	lo := mgl32.Vec2{1, 1}
	var t [2]float32
	for i := 0; i < int(sm.IndexCount); i++ {
		idx, err := index(m, int(sm.FirstByte)+i*indexSize)
		if err != nil {
			return nil, err
		}
		if err := r.read(idx+int(sm.BaseVertex), uv, t[:]); err != nil {
			return nil, err
		}
		v := mgl32.Vec2{t[0], t[1]}
		lo = mgl32.Vec2{min(lo.X(), v.X()), min(lo.Y(), v.Y())}
		uvs = append(uvs, v)
	}

	sw, sh := float32(srcW), float32(srcH)
	out := make([]raster.Vertex, len(uvs))
	for i, v := range uvs {
		out[i] = raster.Vertex{
			Position: mgl32.Vec2{(v.X() - lo.X()) * sw, (v.Y() - lo.Y()) * sh},
			TexCoord: mgl32.Vec2{v.X() * sw, v.Y() * sh},
		}
	}
	return out, nil
}

// AtlasQuadrant returns the pixel offset of quadrant q (0..3, row-major) of a
// 2×2 atlas of size w×h.
func AtlasQuadrant(q, w, h int) mgl32.Vec2 {
	q &= 3
	return mgl32.Vec2{float32(q%2) * float32(w) / 2, float32(q/2) * float32(h) / 2}
}
