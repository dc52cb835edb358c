package unityfstest

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"

	"github.com/goopsie/hsCardTools/pkg/unityfs"
)

const (
	serializedVersion = 17
	serializedHeader  = 20
	unityVersion      = "2017.4.3f1"
)

// Object is one object of a synthetic serialized file.
type Object struct {
	PathID  int64
	ClassID int32
	Tree    Field
	Value   M
}

// File is a synthetic serialized file.
type File struct {
	Name      string
	Objects   []Object
	Externals []string
}

// Add appends an object and returns f.
func (f *File) Add(classID int32, pathID int64, tree Field, value M) *File {
	f.Objects = append(f.Objects, Object{PathID: pathID, ClassID: classID, Tree: tree, Value: value})
	return f
}

// MarshalBinary encodes the file as a little-endian serialized file.
func (f *File) MarshalBinary() ([]byte, error) {
	le := binary.LittleEndian

	// One type entry per distinct tree.
	type typeEntry struct {
		classID int32
		blob    []byte
	}
	var types []typeEntry
	typeIndex := make(map[string]int)
	objTypes := make([]int, len(f.Objects))
	payloads := make([][]byte, len(f.Objects))
	for i, o := range f.Objects {
		blob := encodeTree(o.Tree)
		key := fmt.Sprintf("%d:%x", o.ClassID, blob)
		idx, ok := typeIndex[key]
		if !ok {
			idx = len(types)
			types = append(types, typeEntry{classID: o.ClassID, blob: blob})
			typeIndex[key] = idx
		}
		objTypes[i] = idx

		var e encoder
		if err := e.encode(o.Tree, o.Value); err != nil {
			return nil, fmt.Errorf("object %d: %w", o.PathID, err)
		}
		payloads[i] = e.buf.Bytes()
	}

	var buf bytes.Buffer
	buf.Write(make([]byte, serializedHeader))
	align := func(n int) {
		for buf.Len()%n != 0 {
			buf.WriteByte(0)
		}
	}
	put := func(v any) { binary.Write(&buf, le, v) }
	cstr := func(s string) {
		buf.WriteString(s)
		buf.WriteByte(0)
	}

	cstr(unityVersion)
	put(int32(5)) // platform
	buf.WriteByte(1)

	put(int32(len(types)))
	for _, t := range types {
		put(t.classID)
		buf.WriteByte(0) // stripped
		put(int16(-1))   // script type index
		if t.classID == unityfs.ClassMonoBehaviour {
			buf.Write(make([]byte, 16))
		}
		buf.Write(make([]byte, 16))
		buf.Write(t.blob)
	}

	dataStarts := make([]int, len(payloads))
	var dataLen int
	for i, p := range payloads {
		for dataLen%8 != 0 {
			dataLen++
		}
		dataStarts[i] = dataLen
		dataLen += len(p)
	}

	put(int32(len(f.Objects)))
	for i, o := range f.Objects {
		align(4)
		put(o.PathID)
		put(uint32(dataStarts[i]))
		put(uint32(len(payloads[i])))
		put(int32(objTypes[i]))
	}

	put(int32(0)) // scripts

	put(int32(len(f.Externals)))
	for _, ext := range f.Externals {
		cstr("")
		buf.Write(make([]byte, 16))
		put(int32(0))
		cstr(ext)
	}
	cstr("") // user information

	metadataEnd := buf.Len()
	align(16)
	dataOffset := buf.Len()
	for i, p := range payloads {
		for buf.Len() < dataOffset+dataStarts[i] {
			buf.WriteByte(0)
		}
		buf.Write(p)
	}

	out := buf.Bytes()
	be := binary.BigEndian
	be.PutUint32(out[0:], uint32(metadataEnd-serializedHeader))
	be.PutUint32(out[4:], uint32(len(out)))
	be.PutUint32(out[8:], serializedVersion)
	be.PutUint32(out[12:], uint32(dataOffset))
	out[16] = 0 // little endian
	return out, nil
}

// Resource is a raw stream node (.resS) in a bundle.
type Resource struct {
	Name string
	Data []byte
}

// Bundle assembles serialized files and resources into a UnityFS container.
type Bundle struct {
	Files     []*File
	Resources []Resource

	// Compression applies to data blocks, InfoCompression to the block table.
	Compression     unityfs.Compression
	InfoCompression unityfs.Compression

	// BlockSize splits the node data into blocks. Zero means 128 KiB.
	BlockSize int

	// FormatVersion defaults to 6.
	FormatVersion uint32
}

// NewFile adds an empty serialized file named name and returns it.
func (b *Bundle) NewFile(name string) *File {
	f := &File{Name: name}
	b.Files = append(b.Files, f)
	return f
}

// Bytes encodes the bundle.
func (b *Bundle) Bytes() ([]byte, error) {
	var data bytes.Buffer
	var nodes []unityfs.Node
	for _, f := range b.Files {
		raw, err := f.MarshalBinary()
		if err != nil {
			return nil, fmt.Errorf("file %s: %w", f.Name, err)
		}
		nodes = append(nodes, unityfs.Node{Offset: int64(data.Len()), Size: int64(len(raw)), Flags: 4, Path: f.Name})
		data.Write(raw)
	}
	for _, r := range b.Resources {
		nodes = append(nodes, unityfs.Node{Offset: int64(data.Len()), Size: int64(len(r.Data)), Path: r.Name})
		data.Write(r.Data)
	}

	blockSize := b.BlockSize
	if blockSize <= 0 {
		blockSize = 128 << 10
	}
	table := unityfs.BlockTable{Nodes: nodes}
	var blocks bytes.Buffer
	raw := data.Bytes()
	for off := 0; off < len(raw); off += blockSize {
		chunk := raw[off:min(off+blockSize, len(raw))]
		packed, used, err := unityfs.Compress(b.Compression, chunk)
		if err != nil {
			return nil, err
		}
		table.Blocks = append(table.Blocks, unityfs.Block{
			UncompressedSize: uint32(len(chunk)),
			CompressedSize:   uint32(len(packed)),
			Flags:            uint16(used),
		})
		blocks.Write(packed)
	}

	info, err := table.MarshalBinary()
	if err != nil {
		return nil, err
	}
	packedInfo, infoUsed, err := unityfs.Compress(b.InfoCompression, info)
	if err != nil {
		return nil, err
	}

	version := b.FormatVersion
	if version == 0 {
		version = 6
	}
	h := unityfs.Header{
		Signature:            unityfs.Signature,
		FormatVersion:        version,
		UnityVersion:         "5.x.x",
		UnityRevision:        unityVersion,
		CompressedInfoSize:   uint32(len(packedInfo)),
		UncompressedInfoSize: uint32(len(info)),
		Flags:                uint32(infoUsed) | unityfs.FlagDirectoryCombined,
	}
	head, err := h.MarshalBinary()
	if err != nil {
		return nil, err
	}
	h.Size = int64(len(head) + len(packedInfo) + blocks.Len())
	if head, err = h.MarshalBinary(); err != nil {
		return nil, err
	}

	out := make([]byte, 0, h.Size)
	out = append(out, head...)
	out = append(out, packedInfo...)
	out = append(out, blocks.Bytes()...)
	return out, nil
}

// WriteFile encodes the bundle to path.
func (b *Bundle) WriteFile(path string) error {
	data, err := b.Bytes()
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
