package engine

import "github.com/goopsie/hsCardTools/pkg/unityfs"

// Object is a decoded engine object.
type Object interface {
	Kind() Kind
	ObjectName() string
}

// Texture2D holds a texture's pixel payload in its stored format.
type Texture2D struct {
	Name     string
	Width    int
	Height   int
	Format   int
	MipCount int
	Data     []byte
}

func (*Texture2D) Kind() Kind           { return KindTexture2D }
func (t *Texture2D) ObjectName() string { return t.Name }

// IndexFormat is the width of mesh indices.
type IndexFormat uint8

const (
	IndexUInt16 IndexFormat = iota
	IndexUInt32
)

// Size returns the byte width of one index.
func (f IndexFormat) Size() int {
	if f == IndexUInt32 {
		return 4
	}
	return 2
}

// SubMesh is a contiguous range of the index buffer.
type SubMesh struct {
	FirstByte  uint32
	IndexCount uint32
	Topology   int32
	BaseVertex uint32
}

// Vertex channel formats.
const (
	VertexFloat   = 0
	VertexFloat16 = 1
	VertexUNorm8  = 2
)

// Channel describes one attribute inside the interleaved vertex buffer.
type Channel struct {
	Stream    uint8
	Offset    uint8
	Format    uint8
	Dimension uint8
}

// ComponentSize returns the byte width of one channel component.
func (c Channel) ComponentSize() int {
	switch c.Format {
	case VertexFloat16:
		return 2
	case VertexUNorm8:
		return 1
	}
	return 4
}

// Mesh holds raw geometry buffers.
type Mesh struct {
	Name        string
	SubMeshes   []SubMesh
	IndexFormat IndexFormat
	IndexBuffer []byte
	VertexCount int
	Channels    []Channel
	VertexData  []byte
}

func (*Mesh) Kind() Kind           { return KindMesh }
func (m *Mesh) ObjectName() string { return m.Name }

// Stride returns the byte size of one interleaved vertex.
func (m *Mesh) Stride() int {
	if m.VertexCount == 0 {
		return 0
	}
	return len(m.VertexData) / m.VertexCount
}

// TextAsset is a named text or binary blob.
type TextAsset struct {
	Name   string
	Script []byte
}

func (*TextAsset) Kind() Kind           { return KindTextAsset }
func (t *TextAsset) ObjectName() string { return t.Name }

// Font holds a raw font file.
type Font struct {
	Name string
	Data []byte
}

func (*Font) Kind() Kind           { return KindFont }
func (f *Font) ObjectName() string { return f.Name }

// GameObject is a named set of components.
type GameObject struct {
	Name       string
	Components []unityfs.PPtr
}

func (*GameObject) Kind() Kind           { return KindGameObject }
func (g *GameObject) ObjectName() string { return g.Name }

// ContainerEntry maps an asset path to the object it names.
type ContainerEntry struct {
	Path  string
	Asset unityfs.PPtr
}

// AssetBundleManifest is the AssetBundle object listing a bundle's addressable paths.
type AssetBundleManifest struct {
	Name      string
	Container []ContainerEntry
}

func (*AssetBundleManifest) Kind() Kind           { return KindAssetBundleManifest }
func (a *AssetBundleManifest) ObjectName() string { return a.Name }

// MonoBehaviour is a script component with its serialized fields.
type MonoBehaviour struct {
	Name       string
	GameObject unityfs.PPtr
	Script     unityfs.PPtr
	Fields     *unityfs.Map
}

func (*MonoBehaviour) Kind() Kind           { return KindMonoBehaviour }
func (b *MonoBehaviour) ObjectName() string { return b.Name }

// MonoScript names the class of a MonoBehaviour.
type MonoScript struct {
	Name      string
	ClassName string
	Namespace string
}

func (*MonoScript) Kind() Kind           { return KindMonoScript }
func (s *MonoScript) ObjectName() string { return s.Name }

// FontDef is a MonoBehaviour of script class FontDef. Name is the owning
// GameObject's name.
type FontDef struct {
	Name      string
	Font      unityfs.PPtr
	Behaviour *MonoBehaviour
}

func (*FontDef) Kind() Kind           { return KindFontDef }
func (f *FontDef) ObjectName() string { return f.Name }

// Generic is any other object, kept as its field map.
type Generic struct {
	Name    string
	ClassID int32
	Fields  *unityfs.Map
}

func (*Generic) Kind() Kind           { return KindGeneric }
func (g *Generic) ObjectName() string { return g.Name }
