package unityfs

import (
	"encoding/binary"
	"fmt"
	"path"
	"sort"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Well-known Unity class ids.
const (
	ClassGameObject    = 1
	ClassTransform     = 4
	ClassTexture2D     = 28
	ClassMesh          = 43
	ClassTextAsset     = 49
	ClassMonoBehaviour = 114
	ClassMonoScript    = 115
	ClassFont          = 128
	ClassAssetBundle   = 142
)

// SerializedHeader is the big-endian prefix of a serialized file.
type SerializedHeader struct {
	MetadataSize uint64
	FileSize     uint64
	Version      uint32
	DataOffset   uint64
	BigEndian    bool
}

// SerializedType is one entry of the type table.
type SerializedType struct {
	ClassID         int32
	IsStripped      bool
	ScriptTypeIndex int16
	ScriptID        [16]byte
	OldTypeHash     [16]byte
	Tree            TypeTree
}

// ObjectInfo locates one object inside a serialized file.
type ObjectInfo struct {
	PathID    int64
	ByteStart uint64
	ByteSize  uint32
	TypeID    int32
	ClassID   int32
}

// External names another serialized file referenced by PPtr.FileID.
type External struct {
	GUID     [16]byte
	Type     int32
	PathName string
}

// SerializedFile is one independently indexed asset table inside a bundle.
type SerializedFile struct {
	Name            string
	Header          SerializedHeader
	UnityVersion    string
	TargetPlatform  int32
	TypeTreeEnabled bool
	Types           []SerializedType
	Objects         []ObjectInfo
	Externals       []External

	data   []byte
	order  binary.ByteOrder
	byID   map[int64]int
	bundle *Bundle
	index  int
}

// ParseSerializedFile decodes the header and metadata of a serialized file. Object
// payloads are decoded on demand.
func ParseSerializedFile(data []byte, name string) (*SerializedFile, error) {
	sf := &SerializedFile{Name: name, data: data}

	r := newReader(data, binary.BigEndian)
	h := &sf.Header
	h.MetadataSize = uint64(r.U32())
	h.FileSize = uint64(r.U32())
	h.Version = r.U32()
	h.DataOffset = uint64(r.U32())
	if h.Version >= 9 {
		h.BigEndian = r.U8() != 0
		r.Skip(3)
	} else {
		// Pre-9 files keep the endianness flag at the end of the metadata.
		if h.FileSize < h.MetadataSize || h.FileSize > uint64(len(data)) {
			return nil, errs.Formatf("invalid legacy layout: file size %d, metadata size %d", h.FileSize, h.MetadataSize)
		}
		r.Seek(int(h.FileSize - h.MetadataSize))
		h.BigEndian = r.U8() != 0
	}
	if h.Version >= 22 {
		h.MetadataSize = uint64(r.U32())
		h.FileSize = r.U64()
		h.DataOffset = r.U64()
		r.Skip(8)
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("read serialized header: %w", err)
	}
	if h.Version < 5 || h.Version > 23 {
		return nil, errs.Formatf("unsupported serialized file version %d", h.Version)
	}
	if h.DataOffset > uint64(len(data)) {
		return nil, errs.Formatf("data offset %d beyond %d bytes", h.DataOffset, len(data))
	}

	sf.order = byteOrder(h.BigEndian)
	r.order = sf.order
	if err := sf.readMetadata(r); err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	sf.byID = make(map[int64]int, len(sf.Objects))
	for i, o := range sf.Objects {
		sf.byID[o.PathID] = i
	}
	return sf, nil
}

func (sf *SerializedFile) readMetadata(r *reader) error {
	version := sf.Header.Version

	if version >= 7 {
		sf.UnityVersion = r.CString()
	}
	if version >= 8 {
		sf.TargetPlatform = r.I32()
	}
	sf.TypeTreeEnabled = true
	if version >= 13 {
		sf.TypeTreeEnabled = r.Bool()
	}

	typeCount := r.Count(4)
	sf.Types = make([]SerializedType, typeCount)
	for i := range sf.Types {
		if err := sf.readType(r, &sf.Types[i]); err != nil {
			return fmt.Errorf("type %d: %w", i, err)
		}
	}

	bigIDs := false
	if version >= 7 && version < 14 {
		bigIDs = r.I32() != 0
	}

	objectCount := r.Count(12)
	sf.Objects = make([]ObjectInfo, objectCount)
	for i := range sf.Objects {
		o := &sf.Objects[i]
		switch {
		case bigIDs:
			o.PathID = r.I64()
		case version < 14:
			o.PathID = int64(r.I32())
		default:
			r.Align(4)
			o.PathID = r.I64()
		}
		if version >= 22 {
			o.ByteStart = r.U64()
		} else {
			o.ByteStart = uint64(r.U32())
		}
		o.ByteStart += sf.Header.DataOffset
		o.ByteSize = r.U32()
		o.TypeID = r.I32()

		if version < 16 {
			o.ClassID = int32(r.U16())
		} else {
			if o.TypeID < 0 || int(o.TypeID) >= len(sf.Types) {
				return errs.Formatf("object %d: type index %d out of range", o.PathID, o.TypeID)
			}
			o.ClassID = sf.Types[o.TypeID].ClassID
		}
		if version < 11 {
			r.Skip(2) // isDestroyed
		}
		if version >= 11 && version < 17 {
			r.Skip(2) // script type index
		}
		if version == 15 || version == 16 {
			r.Skip(1) // stripped
		}
		if o.ByteStart+uint64(o.ByteSize) > uint64(len(sf.data)) {
			return errs.Formatf("object %d: range [%d, %d) beyond %d bytes", o.PathID, o.ByteStart, o.ByteStart+uint64(o.ByteSize), len(sf.data))
		}
	}

	if version >= 11 {
		scriptCount := r.Count(8)
		for range scriptCount {
			r.Skip(4) // local serialized file index
			if version < 14 {
				r.Skip(4)
			} else {
				r.Align(4)
				r.Skip(8)
			}
		}
	}

	externalCount := r.Count(1)
	sf.Externals = make([]External, externalCount)
	for i := range sf.Externals {
		e := &sf.Externals[i]
		if version >= 6 {
			r.CString() // temp empty
		}
		if version >= 5 {
			copy(e.GUID[:], r.next(16))
			e.Type = r.I32()
		}
		e.PathName = r.CString()
	}

	return r.Err()
}

func (sf *SerializedFile) readType(r *reader, t *SerializedType) error {
	version := sf.Header.Version
	t.ClassID = r.I32()
	if version >= 16 {
		t.IsStripped = r.Bool()
	}
	if version >= 17 {
		t.ScriptTypeIndex = r.I16()
	}
	if version >= 13 {
		if (version < 16 && t.ClassID < 0) || (version >= 16 && t.ClassID == ClassMonoBehaviour) {
			copy(t.ScriptID[:], r.next(16))
		}
		copy(t.OldTypeHash[:], r.next(16))
	}
	if err := r.Err(); err != nil {
		return err
	}

	if sf.TypeTreeEnabled {
		tree, err := readTypeTree(r, version)
		if err != nil {
			return err
		}
		t.Tree = tree
		if version >= 21 {
			deps := r.Count(4)
			r.Skip(deps * 4)
		}
	}
	return r.Err()
}

// Bundle returns the bundle the file was read from, or nil.
func (sf *SerializedFile) Bundle() *Bundle { return sf.bundle }

// Index returns the file's sub-container index within its bundle.
func (sf *SerializedFile) Index() int { return sf.index }

// Object returns the table entry for pathID.
func (sf *SerializedFile) Object(pathID int64) (*ObjectInfo, error) {
	i, ok := sf.byID[pathID]
	if !ok {
		return nil, errs.AssetNotFound(fmt.Sprintf("%s object %d", sf.Name, pathID))
	}
	return &sf.Objects[i], nil
}

// PathIDs returns the object ids in ascending order.
func (sf *SerializedFile) PathIDs() []int64 {
	ids := make([]int64, 0, len(sf.Objects))
	for _, o := range sf.Objects {
		ids = append(ids, o.PathID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (sf *SerializedFile) objectDecoder(pathID int64) (*decoder, *ObjectInfo, error) {
	o, err := sf.Object(pathID)
	if err != nil {
		return nil, nil, err
	}
	t, err := sf.typeOf(o)
	if err != nil {
		return nil, nil, err
	}
	tree := t.Tree
	if len(tree) == 0 {
		return nil, nil, errs.Formatf("object %d: no type tree for class %d", pathID, o.ClassID)
	}
	payload := sf.data[o.ByteStart : o.ByteStart+uint64(o.ByteSize)]
	return &decoder{r: newReader(payload, sf.order), tree: tree}, o, nil
}

// typeOf returns the type entry of o. Files before version 16 key types by class
// id rather than by table index.
func (sf *SerializedFile) typeOf(o *ObjectInfo) (*SerializedType, error) {
	if sf.Header.Version < 16 {
		for i := range sf.Types {
			if sf.Types[i].ClassID == o.TypeID {
				return &sf.Types[i], nil
			}
		}
		return nil, errs.Formatf("object %d: no type entry for id %d", o.PathID, o.TypeID)
	}
	if o.TypeID < 0 || int(o.TypeID) >= len(sf.Types) {
		return nil, errs.Formatf("object %d: type index %d out of range", o.PathID, o.TypeID)
	}
	return &sf.Types[o.TypeID], nil
}

// ReadTree decodes the object's payload into a generic field map.
func (sf *SerializedFile) ReadTree(pathID int64) (*Map, error) {
	d, _, err := sf.objectDecoder(pathID)
	if err != nil {
		return nil, err
	}
	v, err := d.readStruct(0)
	if err != nil {
		return nil, fmt.Errorf("decode object %d: %w", pathID, err)
	}
	return v.(*Map), nil
}

// ReadName decodes only the object's m_Name. Named objects serialize it first,
// so the rest of the payload is not touched; other layouts fall back to a full read.
func (sf *SerializedFile) ReadName(pathID int64) (string, error) {
	d, _, err := sf.objectDecoder(pathID)
	if err != nil {
		return "", err
	}
	kids := d.tree.children(0)
	if len(kids) > 0 && d.tree[kids[0]].Name == "m_Name" && d.tree[kids[0]].Type == "string" {
		v, err := d.read(kids[0])
		if err != nil {
			return "", fmt.Errorf("decode object %d name: %w", pathID, err)
		}
		return v.(string), nil
	}

	m, err := sf.ReadTree(pathID)
	if err != nil {
		return "", err
	}
	return m.Str("m_Name")
}

// Resource resolves out-of-line stream data through the owning bundle.
func (sf *SerializedFile) Resource(streamPath string, offset, size uint64) ([]byte, error) {
	if sf.bundle == nil {
		return nil, errs.AssetNotFound(streamPath)
	}
	return sf.bundle.Resource(streamPath, offset, size)
}

// ResolveExternal maps a PPtr file id to the sub-container index of a sibling
// serialized file in the same bundle.
func (sf *SerializedFile) ResolveExternal(fileID int32) (int, bool) {
	if fileID == 0 {
		return sf.index, true
	}
	if sf.bundle == nil || fileID < 0 || int(fileID) > len(sf.Externals) {
		return 0, false
	}
	return sf.bundle.SubContainerIndex(path.Base(sf.Externals[fileID-1].PathName))
}
