package unityfstest

import (
	"encoding/binary"
	"math"

	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

func streamInfo() Field {
	return Struct("StreamingInfo", "m_StreamData",
		Prim("unsigned int", "offset"),
		Prim("unsigned int", "size"),
		Str("path"),
	)
}

// Texture2DTree is the Texture2D layout used by the fixtures.
func Texture2DTree() Field {
	return Struct("Texture2D", "Base",
		Str("m_Name"),
		Prim("int", "m_Width"),
		Prim("int", "m_Height"),
		Prim("int", "m_CompleteImageSize"),
		Prim("int", "m_TextureFormat"),
		Prim("int", "m_MipCount"),
		Prim("bool", "m_IsReadable").Aligned(),
		Typeless("image data"),
		streamInfo(),
	)
}

// Texture2D returns a texture with inline image data.
func Texture2D(name string, width, height, format int, data []byte) M {
	return M{
		"m_Name":              name,
		"m_Width":             width,
		"m_Height":            height,
		"m_CompleteImageSize": len(data),
		"m_TextureFormat":     format,
		"m_MipCount":          1,
		"image data":          data,
	}
}

// StreamedTexture2D returns a texture whose pixels live in a resource node.
func StreamedTexture2D(name string, width, height, format int, path string, offset, size int) M {
	return M{
		"m_Name":              name,
		"m_Width":             width,
		"m_Height":            height,
		"m_CompleteImageSize": size,
		"m_TextureFormat":     format,
		"m_MipCount":          1,
		"m_StreamData": M{
			"offset": offset,
			"size":   size,
			"path":   path,
		},
	}
}

// SubMesh describes one fixture submesh.
type SubMesh struct {
	FirstByte  uint32
	IndexCount uint32
	BaseVertex uint32
}

// Channel describes one fixture vertex channel.
type Channel struct {
	Stream    uint8
	Offset    uint8
	Format    uint8
	Dimension uint8
}

// MeshTree is the Mesh layout used by the fixtures.
func MeshTree() Field {
	return Struct("Mesh", "Base",
		Str("m_Name"),
		Vector("m_SubMeshes", Struct("SubMesh", "data",
			Prim("unsigned int", "firstByte"),
			Prim("unsigned int", "indexCount"),
			Prim("int", "topology"),
			Prim("unsigned int", "baseVertex"),
			Prim("unsigned int", "firstVertex"),
			Prim("unsigned int", "vertexCount"),
		)),
		Prim("int", "m_IndexFormat"),
		ByteVector("m_IndexBuffer"),
		Struct("VertexData", "m_VertexData",
			Prim("unsigned int", "m_VertexCount"),
			Vector("m_Channels", Struct("ChannelInfo", "data",
				Prim("UInt8", "stream"),
				Prim("UInt8", "offset"),
				Prim("UInt8", "format"),
				Prim("UInt8", "dimension"),
			)),
			Typeless("m_DataSize"),
		),
		streamInfo(),
	)
}

// Mesh returns a mesh with 16-bit indices and inline vertex data.
func Mesh(name string, submeshes []SubMesh, indices []uint16, vertexCount int, channels []Channel, vertexData []byte) M {
	subs := make([]any, len(submeshes))
	for i, s := range submeshes {
		subs[i] = M{
			"firstByte":   s.FirstByte,
			"indexCount":  s.IndexCount,
			"baseVertex":  s.BaseVertex,
			"vertexCount": vertexCount,
		}
	}
	chans := make([]any, len(channels))
	for i, c := range channels {
		chans[i] = M{
			"stream":    c.Stream,
			"offset":    c.Offset,
			"format":    c.Format,
			"dimension": c.Dimension,
		}
	}
	ib := make([]byte, 0, len(indices)*2)
	for _, ix := range indices {
		ib = binary.LittleEndian.AppendUint16(ib, ix)
	}
	return M{
		"m_Name":        name,
		"m_SubMeshes":   subs,
		"m_IndexBuffer": ib,
		"m_VertexData": M{
			"m_VertexCount": vertexCount,
			"m_Channels":    chans,
			"m_DataSize":    vertexData,
		},
	}
}

// Floats packs little-endian float32 values.
func Floats(vals ...float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}

// GameObjectTree uses the component layout of Unity 5.5 and later.
func GameObjectTree() Field {
	return Struct("GameObject", "Base",
		Vector("m_Component", Struct("ComponentPair", "data", Ptr("component", "Component"))),
		Prim("unsigned int", "m_Layer"),
		Str("m_Name"),
		Prim("UInt16", "m_Tag"),
		Prim("bool", "m_IsActive"),
	)
}

// GameObject returns a game object owning the given components.
func GameObject(name string, components ...unityfs.PPtr) M {
	comps := make([]any, len(components))
	for i, c := range components {
		comps[i] = M{"component": c}
	}
	return M{"m_Component": comps, "m_Name": name, "m_IsActive": true}
}

// LegacyGameObjectTree uses the older pair<int, PPtr> component layout.
func LegacyGameObjectTree() Field {
	return Struct("GameObject", "Base",
		Vector("m_Component", PairOf("data", Prim("int", ""), Ptr("", "Component"))),
		Prim("unsigned int", "m_Layer"),
		Str("m_Name"),
		Prim("UInt16", "m_Tag"),
		Prim("bool", "m_IsActive"),
	)
}

// LegacyGameObject returns a game object in the pair layout.
func LegacyGameObject(name string, components ...unityfs.PPtr) M {
	comps := make([]any, len(components))
	for i, c := range components {
		comps[i] = unityfs.Pair{First: unityfs.ClassMonoBehaviour, Second: c}
	}
	return M{"m_Component": comps, "m_Name": name, "m_IsActive": true}
}

// MonoScriptTree is the MonoScript layout used by the fixtures.
func MonoScriptTree() Field {
	return Struct("MonoScript", "Base",
		Str("m_Name"),
		Prim("int", "m_ExecutionOrder"),
		Str("m_ClassName"),
		Str("m_Namespace"),
		Str("m_AssemblyName"),
	)
}

// MonoScript returns a script definition.
func MonoScript(className, namespace string) M {
	return M{
		"m_Name":         className,
		"m_ClassName":    className,
		"m_Namespace":    namespace,
		"m_AssemblyName": "Assembly-CSharp.dll",
	}
}

// MonoBehaviourTree returns the MonoBehaviour header followed by extra script fields.
func MonoBehaviourTree(extra ...Field) Field {
	fields := []Field{
		Ptr("m_GameObject", "GameObject"),
		Prim("UInt8", "m_Enabled").Aligned(),
		Ptr("m_Script", "MonoScript"),
		Str("m_Name"),
	}
	return Struct("MonoBehaviour", "Base", append(fields, extra...)...)
}

// MonoBehaviour returns a behaviour value. extra holds script field values.
func MonoBehaviour(gameObject, script unityfs.PPtr, extra M) M {
	m := M{
		"m_GameObject": gameObject,
		"m_Enabled":    1,
		"m_Script":     script,
	}
	for k, v := range extra {
		m[k] = v
	}
	return m
}

// AssetBundleTree is the AssetBundle layout used by the fixtures.
func AssetBundleTree() Field {
	return Struct("AssetBundle", "Base",
		Str("m_Name"),
		Vector("m_PreloadTable", Ptr("data", "Object")),
		MapOf("m_Container", Str(""), Struct("AssetInfo", "",
			Prim("int", "preloadIndex"),
			Prim("int", "preloadSize"),
			Ptr("asset", "Object"),
		)),
	)
}

// ContainerEntry is one asset path of an AssetBundle.
type ContainerEntry struct {
	Path  string
	Asset unityfs.PPtr
}

// AssetBundle returns a manifest listing entries.
func AssetBundle(name string, entries ...ContainerEntry) M {
	container := make([]any, len(entries))
	for i, e := range entries {
		container[i] = unityfs.Pair{First: e.Path, Second: M{"asset": e.Asset}}
	}
	return M{"m_Name": name, "m_Container": container}
}

// TextAssetTree is the TextAsset layout used by the fixtures.
func TextAssetTree() Field {
	return Struct("TextAsset", "Base", Str("m_Name"), Str("m_Script"))
}

// TextAsset returns a text asset.
func TextAsset(name, script string) M {
	return M{"m_Name": name, "m_Script": script}
}

// FontTree is the Font layout used by the fixtures.
func FontTree() Field {
	return Struct("Font", "Base",
		Str("m_Name"),
		Prim("float", "m_LineSpacing"),
		Prim("float", "m_FontSize"),
		ByteVector("m_FontData"),
	)
}

// Font returns a font with raw font file data.
func Font(name string, data []byte) M {
	return M{"m_Name": name, "m_FontSize": 16, "m_FontData": data}
}
