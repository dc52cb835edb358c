package unityfs

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path"
	"strings"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// maxHeaderSize bounds the bytes read when decoding a header.
const maxHeaderSize = 512

// Bundle is an opened UnityFS file. Node data is decompressed lazily, one block at a
// time. A Bundle is not safe for concurrent use.
type Bundle struct {
	path   string
	src    io.ReaderAt
	closer io.Closer
	size   int64

	header Header
	table  BlockTable

	blockFileOffsets []int64 // offset of each compressed block within the file
	blockDataOffsets []int64 // offset of each block within the decompressed data
	subContainers    []int   // node indices of serialized files

	// Decompression cache
	lastBlockIdx  int
	lastBlockData []byte
}

// Open opens the bundle at path.
func Open(filePath string) (*Bundle, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, errs.IO("open", filePath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, errs.IO("stat", filePath, err)
	}

	b, err := NewBundle(f, info.Size(), filePath)
	if err != nil {
		f.Close()
		return nil, err
	}
	b.closer = f
	return b, nil
}

// NewBundle parses a bundle from r, which must hold size bytes. name is used for
// diagnostics and as the bundle path.
func NewBundle(r io.ReaderAt, size int64, name string) (*Bundle, error) {
	b := &Bundle{
		path:         name,
		src:          r,
		size:         size,
		lastBlockIdx: -1,
	}

	headerBuf := make([]byte, min(size, maxHeaderSize))
	if _, err := r.ReadAt(headerBuf, 0); err != nil && err != io.EOF {
		return nil, errs.IO("read header", name, err)
	}
	if err := b.header.UnmarshalBinary(headerBuf); err != nil {
		return nil, fmt.Errorf("parse header %s: %w", name, err)
	}

	if err := b.readBlockTable(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	for i, n := range b.table.Nodes {
		if isSerializedNode(n) {
			b.subContainers = append(b.subContainers, i)
		}
	}
	return b, nil
}

func (b *Bundle) readBlockTable() error {
	h := &b.header
	infoOffset := int64(h.Length)
	dataOffset := infoOffset + int64(h.CompressedInfoSize)
	if h.Flags&FlagBlockInfoAtEnd != 0 {
		infoOffset = b.size - int64(h.CompressedInfoSize)
		dataOffset = int64(h.Length)
	}
	if h.Flags&FlagBlockInfoPaddingAt != 0 {
		dataOffset = (dataOffset + 15) &^ 15
	}
	if infoOffset < int64(h.Length) || infoOffset+int64(h.CompressedInfoSize) > b.size {
		return errs.Formatf("block table [%d, %d) outside file of %d bytes",
			infoOffset, infoOffset+int64(h.CompressedInfoSize), b.size)
	}

	raw := make([]byte, h.CompressedInfoSize)
	if _, err := b.src.ReadAt(raw, infoOffset); err != nil {
		return errs.IO("read block table", b.path, err)
	}
	info, err := Decompress(h.Compression(), raw, int(h.UncompressedInfoSize))
	if err != nil {
		return fmt.Errorf("decompress block table: %w", err)
	}
	if err := b.table.UnmarshalBinary(info); err != nil {
		return err
	}

	b.blockFileOffsets = make([]int64, len(b.table.Blocks))
	b.blockDataOffsets = make([]int64, len(b.table.Blocks))
	fileOff, dataOff := dataOffset, int64(0)
	for i, blk := range b.table.Blocks {
		b.blockFileOffsets[i] = fileOff
		b.blockDataOffsets[i] = dataOff
		fileOff += int64(blk.CompressedSize)
		dataOff += int64(blk.UncompressedSize)
	}
	if fileOff > b.size {
		return errs.Formatf("blocks end at %d beyond file of %d bytes", fileOff, b.size)
	}
	return nil
}

func isSerializedNode(n Node) bool {
	ext := strings.ToLower(path.Ext(n.Path))
	return ext != ".ress" && ext != ".resource"
}

// Close releases the underlying file, if the bundle owns one.
func (b *Bundle) Close() error {
	b.lastBlockData = nil
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}

// Path returns the file path the bundle was opened from.
func (b *Bundle) Path() string { return b.path }

// Header returns the bundle header.
func (b *Bundle) Header() *Header { return &b.header }

// Nodes returns the directory nodes.
func (b *Bundle) Nodes() []Node { return b.table.Nodes }

// SubContainerCount returns the number of serialized files in the bundle.
func (b *Bundle) SubContainerCount() int { return len(b.subContainers) }

// SubContainer parses the index-th serialized file.
func (b *Bundle) SubContainer(index int) (*SerializedFile, error) {
	if index < 0 || index >= len(b.subContainers) {
		return nil, errs.Formatf("sub-container %d out of range (%d available)", index, len(b.subContainers))
	}
	nodeIdx := b.subContainers[index]
	data, err := b.ReadNode(nodeIdx)
	if err != nil {
		return nil, err
	}
	sf, err := ParseSerializedFile(data, b.table.Nodes[nodeIdx].Path)
	if err != nil {
		return nil, fmt.Errorf("sub-container %d (%s): %w", index, b.table.Nodes[nodeIdx].Path, err)
	}
	sf.bundle = b
	sf.index = index
	return sf, nil
}

// SubContainerIndex returns the sub-container index of the node named name.
func (b *Bundle) SubContainerIndex(name string) (int, bool) {
	for i, nodeIdx := range b.subContainers {
		if b.table.Nodes[nodeIdx].Path == name {
			return i, true
		}
	}
	return 0, false
}

// ReadNode returns the full contents of the i-th directory node.
func (b *Bundle) ReadNode(i int) ([]byte, error) {
	if i < 0 || i >= len(b.table.Nodes) {
		return nil, errs.Formatf("node %d out of range", i)
	}
	n := b.table.Nodes[i]
	return b.readRange(n.Offset, n.Size)
}

// Resource reads size bytes at offset from the stream node named by an
// m_StreamData path such as "archive:/CAB-x/CAB-x.resS".
func (b *Bundle) Resource(streamPath string, offset, size uint64) ([]byte, error) {
	name := path.Base(streamPath)
	for _, n := range b.table.Nodes {
		if n.Path != name && n.Path != streamPath {
			continue
		}
		if offset+size > uint64(n.Size) {
			return nil, errs.Formatf("resource %s range [%d, %d) exceeds %d bytes", name, offset, offset+size, n.Size)
		}
		return b.readRange(n.Offset+int64(offset), int64(size))
	}
	return nil, errs.AssetNotFound(streamPath)
}

func (b *Bundle) readRange(offset, size int64) ([]byte, error) {
	out := make([]byte, 0, size)
	end := offset + size
	for i := range b.table.Blocks {
		start := b.blockDataOffsets[i]
		stop := start + int64(b.table.Blocks[i].UncompressedSize)
		if stop <= offset || start >= end {
			continue
		}
		data, err := b.block(i)
		if err != nil {
			return nil, err
		}
		lo := max(offset, start) - start
		hi := min(end, stop) - start
		out = append(out, data[lo:hi]...)
	}
	if int64(len(out)) != size {
		return nil, errs.Formatf("range [%d, %d) not covered by blocks", offset, end)
	}
	return out, nil
}

func (b *Bundle) block(i int) ([]byte, error) {
	// Check cache
	if b.lastBlockData != nil && b.lastBlockIdx == i {
		return b.lastBlockData, nil
	}

	blk := b.table.Blocks[i]
	compressed := make([]byte, blk.CompressedSize)
	if _, err := b.src.ReadAt(compressed, b.blockFileOffsets[i]); err != nil {
		return nil, errs.IO(fmt.Sprintf("read block %d", i), b.path, err)
	}

	data, err := Decompress(blk.Compression(), compressed, int(blk.UncompressedSize))
	if err != nil {
		return nil, fmt.Errorf("decompress block %d: %w", i, err)
	}

	// Update cache
	b.lastBlockIdx = i
	b.lastBlockData = data
	return data, nil
}

// byteOrder maps the serialized-file endianness flag.
func byteOrder(bigEndian bool) binary.ByteOrder {
	if bigEndian {
		return binary.BigEndian
	}
	return binary.LittleEndian
}
