package engine

import (
	"fmt"

	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

// fontDefClass is the script class name identifying FontDef behaviours.
const fontDefClass = "FontDef"

// Decode reads and types the object pathID of sf.
func Decode(sf *unityfs.SerializedFile, pathID int64) (Object, error) {
	info, err := sf.Object(pathID)
	if err != nil {
		return nil, err
	}
	m, err := sf.ReadTree(pathID)
	if err != nil {
		return nil, err
	}

	var obj Object
	switch kind := KindOf(info.ClassID); kind {
	case KindTexture2D:
		obj, err = decodeTexture2D(sf, m)
	case KindTextAsset:
		obj, err = decodeTextAsset(m)
	case KindFont:
		obj, err = decodeFont(m)
	case KindMesh:
		obj, err = decodeMesh(sf, m)
	case KindGameObject:
		obj, err = decodeGameObject(m)
	case KindAssetBundleManifest:
		obj, err = decodeManifest(m)
	case KindMonoBehaviour:
		obj, err = decodeBehaviour(sf, m)
	case KindMonoScript:
		obj, err = decodeScript(m)
	case KindGeneric:
		name, _ := m.Str("m_Name")
		obj = &Generic{Name: name, ClassID: info.ClassID, Fields: m}
	default:
		err = errs.Formatf("no decoder for %s", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("decode %s object %d: %w", KindOf(info.ClassID), pathID, err)
	}
	return obj, nil
}

// DecodeAs decodes pathID and asserts its type. A different stored kind fails
// with an ObjectTypeError.
func DecodeAs[T Object](sf *unityfs.SerializedFile, pathID int64) (T, error) {
	var zero T
	obj, err := Decode(sf, pathID)
	if err != nil {
		return zero, err
	}
	v, ok := obj.(T)
	if !ok {
		return zero, &errs.ObjectTypeError{Want: zero.Kind().String(), Got: obj.Kind().String()}
	}
	return v, nil
}

// Follow returns the serialized file that ptr points into, relative to sf.
func Follow(sf *unityfs.SerializedFile, ptr unityfs.PPtr) (*unityfs.SerializedFile, error) {
	idx, ok := sf.ResolveExternal(ptr.FileID)
	if !ok {
		return nil, errs.AssetNotFound(fmt.Sprintf("%s external %d", sf.Name, ptr.FileID))
	}
	if idx == sf.Index() {
		return sf, nil
	}
	return sf.Bundle().SubContainer(idx)
}

// Deref decodes the object ptr points to.
func Deref(sf *unityfs.SerializedFile, ptr unityfs.PPtr) (Object, *unityfs.SerializedFile, error) {
	if ptr.IsNull() {
		return nil, nil, errs.AssetNotFound("null pointer")
	}
	target, err := Follow(sf, ptr)
	if err != nil {
		return nil, nil, err
	}
	obj, err := Decode(target, ptr.PathID)
	if err != nil {
		return nil, nil, err
	}
	return obj, target, nil
}

// streamData reads out-of-line data referenced by an m_StreamData field, if any.
func streamData(sf *unityfs.SerializedFile, m *unityfs.Map) ([]byte, bool, error) {
	if !m.Has("m_StreamData") {
		return nil, false, nil
	}
	s, err := m.Map("m_StreamData")
	if err != nil {
		return nil, false, err
	}
	size, err := s.Int("size")
	if err != nil || size == 0 {
		return nil, false, err
	}
	offset, err := s.Int("offset")
	if err != nil {
		return nil, false, err
	}
	path, err := s.Str("path")
	if err != nil {
		return nil, false, err
	}
	data, err := sf.Resource(path, uint64(offset), uint64(size))
	if err != nil {
		return nil, false, fmt.Errorf("read stream data: %w", err)
	}
	return data, true, nil
}

func decodeTexture2D(sf *unityfs.SerializedFile, m *unityfs.Map) (*Texture2D, error) {
	t := &Texture2D{}
	var err error
	if t.Name, err = m.Str("m_Name"); err != nil {
		return nil, err
	}
	width, err := m.Int("m_Width")
	if err != nil {
		return nil, err
	}
	height, err := m.Int("m_Height")
	if err != nil {
		return nil, err
	}
	format, err := m.Int("m_TextureFormat")
	if err != nil {
		return nil, err
	}
	mips, err := m.IntOr("m_MipCount", 1)
	if err != nil {
		return nil, err
	}
	if width < 0 || height < 0 {
		return nil, errs.Formatf("texture %q has negative size %dx%d", t.Name, width, height)
	}
	t.Width, t.Height, t.Format, t.MipCount = int(width), int(height), int(format), int(mips)

	if m.Has("image data") {
		if t.Data, err = m.Bytes("image data"); err != nil {
			return nil, err
		}
	}
	if len(t.Data) == 0 {
		data, ok, err := streamData(sf, m)
		if err != nil {
			return nil, err
		}
		if ok {
			t.Data = data
		}
	}
	return t, nil
}

func decodeMesh(sf *unityfs.SerializedFile, m *unityfs.Map) (*Mesh, error) {
	mesh := &Mesh{}
	var err error
	if mesh.Name, err = m.Str("m_Name"); err != nil {
		return nil, err
	}

	subs, err := m.Array("m_SubMeshes")
	if err != nil {
		return nil, err
	}
	for i, v := range subs {
		s, ok := v.(*unityfs.Map)
		if !ok {
			return nil, errs.Formatf("submesh %d is %T", i, v)
		}
		var sm SubMesh
		first, err := s.Int("firstByte")
		if err != nil {
			return nil, fmt.Errorf("submesh %d: %w", i, err)
		}
		count, err := s.Int("indexCount")
		if err != nil {
			return nil, fmt.Errorf("submesh %d: %w", i, err)
		}
		topology, err := s.IntOr("topology", 0)
		if err != nil {
			return nil, fmt.Errorf("submesh %d: %w", i, err)
		}
		base, err := s.IntOr("baseVertex", 0)
		if err != nil {
			return nil, fmt.Errorf("submesh %d: %w", i, err)
		}
		sm.FirstByte, sm.IndexCount, sm.Topology, sm.BaseVertex = uint32(first), uint32(count), int32(topology), uint32(base)
		mesh.SubMeshes = append(mesh.SubMeshes, sm)
	}

	switch {
	case m.Has("m_IndexFormat"):
		f, err := m.Int("m_IndexFormat")
		if err != nil {
			return nil, err
		}
		if f == 1 {
			mesh.IndexFormat = IndexUInt32
		}
	case m.Has("m_Use16BitIndices"):
		use16, err := m.Int("m_Use16BitIndices")
		if err != nil {
			return nil, err
		}
		if use16 == 0 {
			mesh.IndexFormat = IndexUInt32
		}
	}
	if mesh.IndexBuffer, err = m.Bytes("m_IndexBuffer"); err != nil {
		return nil, err
	}

	vd, err := m.Map("m_VertexData")
	if err != nil {
		return nil, err
	}
	count, err := vd.Int("m_VertexCount")
	if err != nil {
		return nil, err
	}
	mesh.VertexCount = int(count)

	chans, err := vd.Array("m_Channels")
	if err != nil {
		return nil, err
	}
	for i, v := range chans {
		c, ok := v.(*unityfs.Map)
		if !ok {
			return nil, errs.Formatf("channel %d is %T", i, v)
		}
		var ch Channel
		for _, f := range []struct {
			key string
			dst *uint8
		}{{"stream", &ch.Stream}, {"offset", &ch.Offset}, {"format", &ch.Format}, {"dimension", &ch.Dimension}} {
			n, err := c.Int(f.key)
			if err != nil {
				return nil, fmt.Errorf("channel %d: %w", i, err)
			}
			*f.dst = uint8(n)
		}
		ch.Dimension &= 0x0f
		mesh.Channels = append(mesh.Channels, ch)
	}

	if vd.Has("m_DataSize") {
		if mesh.VertexData, err = vd.Bytes("m_DataSize"); err != nil {
			return nil, err
		}
	}
	if len(mesh.VertexData) == 0 {
		data, ok, err := streamData(sf, m)
		if err != nil {
			return nil, err
		}
		if ok {
			mesh.VertexData = data
		}
	}
	return mesh, nil
}

func decodeTextAsset(m *unityfs.Map) (*TextAsset, error) {
	name, err := m.Str("m_Name")
	if err != nil {
		return nil, err
	}
	script, err := m.Bytes("m_Script")
	if err != nil {
		return nil, err
	}
	return &TextAsset{Name: name, Script: script}, nil
}

func decodeFont(m *unityfs.Map) (*Font, error) {
	name, err := m.Str("m_Name")
	if err != nil {
		return nil, err
	}
	f := &Font{Name: name}
	if m.Has("m_FontData") {
		if f.Data, err = m.Bytes("m_FontData"); err != nil {
			return nil, err
		}
	}
	return f, nil
}

func decodeGameObject(m *unityfs.Map) (*GameObject, error) {
	name, err := m.Str("m_Name")
	if err != nil {
		return nil, err
	}
	g := &GameObject{Name: name}
	comps, err := m.Array("m_Component")
	if err != nil {
		return nil, err
	}
	for i, v := range comps {
		switch c := v.(type) {
		case unityfs.Pair:
			p, ok := c.Second.(unityfs.PPtr)
			if !ok {
				return nil, errs.Formatf("component %d is %T", i, c.Second)
			}
			g.Components = append(g.Components, p)
		case *unityfs.Map:
			p, err := c.PPtr("component")
			if err != nil {
				return nil, fmt.Errorf("component %d: %w", i, err)
			}
			g.Components = append(g.Components, p)
		default:
			return nil, errs.Formatf("component %d is %T", i, v)
		}
	}
	return g, nil
}

func decodeManifest(m *unityfs.Map) (*AssetBundleManifest, error) {
	name, err := m.Str("m_Name")
	if err != nil {
		return nil, err
	}
	a := &AssetBundleManifest{Name: name}
	entries, err := m.Array("m_Container")
	if err != nil {
		return nil, err
	}
	for i, v := range entries {
		p, ok := v.(unityfs.Pair)
		if !ok {
			return nil, errs.Formatf("container entry %d is %T", i, v)
		}
		path, ok := p.First.(string)
		if !ok {
			return nil, errs.Formatf("container entry %d path is %T", i, p.First)
		}
		info, ok := p.Second.(*unityfs.Map)
		if !ok {
			return nil, errs.Formatf("container entry %d info is %T", i, p.Second)
		}
		asset, err := info.PPtr("asset")
		if err != nil {
			return nil, fmt.Errorf("container entry %d: %w", i, err)
		}
		a.Container = append(a.Container, ContainerEntry{Path: path, Asset: asset})
	}
	return a, nil
}

func decodeScript(m *unityfs.Map) (*MonoScript, error) {
	s := &MonoScript{}
	var err error
	if s.Name, err = m.Str("m_Name"); err != nil {
		return nil, err
	}
	if s.ClassName, err = m.Str("m_ClassName"); err != nil {
		return nil, err
	}
	if m.Has("m_Namespace") {
		if s.Namespace, err = m.Str("m_Namespace"); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// decodeBehaviour decodes a MonoBehaviour and refines it to a FontDef when its
// script class says so. A script that cannot be resolved leaves the behaviour
// untyped.
func decodeBehaviour(sf *unityfs.SerializedFile, m *unityfs.Map) (Object, error) {
	b := &MonoBehaviour{Fields: m}
	var err error
	if m.Has("m_Name") {
		if b.Name, err = m.Str("m_Name"); err != nil {
			return nil, err
		}
	}
	if b.GameObject, err = m.PPtr("m_GameObject"); err != nil {
		return nil, err
	}
	if b.Script, err = m.PPtr("m_Script"); err != nil {
		return nil, err
	}

	if !m.Has("m_Font") || b.Script.IsNull() {
		return b, nil
	}
	script, _, err := Deref(sf, b.Script)
	if err != nil {
		return b, nil
	}
	if ms, ok := script.(*MonoScript); !ok || ms.ClassName != fontDefClass {
		return b, nil
	}

	def := &FontDef{Behaviour: b}
	if def.Font, err = m.PPtr("m_Font"); err != nil {
		return nil, err
	}
	owner, _, err := Deref(sf, b.GameObject)
	if err != nil {
		return nil, fmt.Errorf("font def owner: %w", err)
	}
	def.Name = owner.ObjectName()
	return def, nil
}
