package unityfs

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goopsie/hsCardTools/pkg/errs"
	"github.com/pierrec/lz4/v4"
	"github.com/ulikunitz/xz/lzma"
)

// Compression identifies how a block is stored.
type Compression uint32

const (
	CompressionNone Compression = iota
	CompressionLZMA
	CompressionLZ4
	CompressionLZ4HC
)

// Valid reports whether the scheme is one this package can decode.
func (c Compression) Valid() bool {
	return c <= CompressionLZ4HC
}

func (c Compression) String() string {
	switch c {
	case CompressionNone:
		return "none"
	case CompressionLZMA:
		return "lzma"
	case CompressionLZ4:
		return "lz4"
	case CompressionLZ4HC:
		return "lz4hc"
	default:
		return fmt.Sprintf("Compression(%d)", uint32(c))
	}
}

// lzmaPropsSize is the size of the LZMA properties prefix stored in front of each block.
const lzmaPropsSize = 5

// Block describes one compressed data block.
type Block struct {
	UncompressedSize uint32
	CompressedSize   uint32
	Flags            uint16
}

// Compression returns the block's compression scheme.
func (b Block) Compression() Compression {
	return Compression(b.Flags & FlagCompressionMask)
}

// Node describes a named byte range inside the decompressed block data.
type Node struct {
	Offset int64
	Size   int64
	Flags  uint32
	Path   string
}

// BlockTable is the decoded block and directory information of a bundle.
type BlockTable struct {
	Hash   [16]byte
	Blocks []Block
	Nodes  []Node
}

// UncompressedSize returns the total size of all decompressed blocks.
func (t *BlockTable) UncompressedSize() int64 {
	var n int64
	for _, b := range t.Blocks {
		n += int64(b.UncompressedSize)
	}
	return n
}

// UnmarshalBinary decodes an uncompressed block table.
func (t *BlockTable) UnmarshalBinary(data []byte) error {
	r := newReader(data, binary.BigEndian)
	copy(t.Hash[:], r.next(16))

	count := r.Count(10)
	t.Blocks = make([]Block, count)
	for i := range t.Blocks {
		t.Blocks[i] = Block{
			UncompressedSize: r.U32(),
			CompressedSize:   r.U32(),
			Flags:            r.U16(),
		}
	}

	count = r.Count(21)
	t.Nodes = make([]Node, count)
	for i := range t.Nodes {
		t.Nodes[i] = Node{
			Offset: r.I64(),
			Size:   r.I64(),
			Flags:  r.U32(),
			Path:   r.CString(),
		}
	}

	if err := r.Err(); err != nil {
		return fmt.Errorf("read block table: %w", err)
	}

	total := t.UncompressedSize()
	for _, n := range t.Nodes {
		if n.Offset < 0 || n.Size < 0 || n.Offset+n.Size > total {
			return errs.Formatf("node %q range [%d, %d) outside data of %d bytes", n.Path, n.Offset, n.Offset+n.Size, total)
		}
	}
	return nil
}

// MarshalBinary encodes the block table without compression.
func (t *BlockTable) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, t.Hash[:]...)
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(t.Blocks)))
	for _, b := range t.Blocks {
		buf = binary.BigEndian.AppendUint32(buf, b.UncompressedSize)
		buf = binary.BigEndian.AppendUint32(buf, b.CompressedSize)
		buf = binary.BigEndian.AppendUint16(buf, b.Flags)
	}
	buf = binary.BigEndian.AppendUint32(buf, uint32(len(t.Nodes)))
	for _, n := range t.Nodes {
		buf = binary.BigEndian.AppendUint64(buf, uint64(n.Offset))
		buf = binary.BigEndian.AppendUint64(buf, uint64(n.Size))
		buf = binary.BigEndian.AppendUint32(buf, n.Flags)
		buf = append(buf, n.Path...)
		buf = append(buf, 0)
	}
	return buf, nil
}

// Decompress expands src, which must decode to exactly size bytes.
func Decompress(c Compression, src []byte, size int) ([]byte, error) {
	switch c {
	case CompressionNone:
		if len(src) != size {
			return nil, errs.Formatf("stored block size %d does not match %d", len(src), size)
		}
		return src, nil

	case CompressionLZ4, CompressionLZ4HC:
		dst := make([]byte, size)
		n, err := lz4.UncompressBlock(src, dst)
		if err != nil {
			return nil, errs.WrapFormat(err, "lz4 decompress")
		}
		if n != size {
			return nil, errs.Formatf("lz4 decompress: expected %d bytes, got %d", size, n)
		}
		return dst, nil

	case CompressionLZMA:
		if len(src) < lzmaPropsSize {
			return nil, errs.Formatf("lzma block too short: %d bytes", len(src))
		}
		// Blocks carry only the properties; synthesize the LZMA-alone header
		// with the known uncompressed size.
		header := make([]byte, lzmaPropsSize+8)
		copy(header, src[:lzmaPropsSize])
		binary.LittleEndian.PutUint64(header[lzmaPropsSize:], uint64(size))

		lr, err := lzma.NewReader(io.MultiReader(bytes.NewReader(header), bytes.NewReader(src[lzmaPropsSize:])))
		if err != nil {
			return nil, errs.WrapFormat(err, "lzma reader")
		}
		dst := make([]byte, size)
		if _, err := io.ReadFull(lr, dst); err != nil {
			return nil, errs.WrapFormat(err, "lzma decompress")
		}
		return dst, nil
	}

	return nil, errs.Formatf("unsupported compression %s", c)
}

// Compress encodes data with the given scheme, in the layout Decompress expects.
// LZ4 output falls back to CompressionNone when the data is incompressible; the
// returned scheme is the one actually used.
func Compress(c Compression, data []byte) ([]byte, Compression, error) {
	switch c {
	case CompressionNone:
		return data, CompressionNone, nil

	case CompressionLZ4, CompressionLZ4HC:
		// LZ4HC shares the LZ4 block format; only the encoder effort differs.
		dst := make([]byte, lz4.CompressBlockBound(len(data)))
		n, err := lz4.CompressBlock(data, dst, make([]int, 1<<16))
		if err != nil {
			return nil, c, fmt.Errorf("lz4 compress: %w", err)
		}
		if n == 0 {
			return data, CompressionNone, nil
		}
		return dst[:n], c, nil

	case CompressionLZMA:
		var buf bytes.Buffer
		w, err := lzma.WriterConfig{
			SizeInHeader: true,
			Size:         int64(len(data)),
		}.NewWriter(&buf)
		if err != nil {
			return nil, c, fmt.Errorf("lzma writer: %w", err)
		}
		if _, err := w.Write(data); err != nil {
			return nil, c, fmt.Errorf("lzma compress: %w", err)
		}
		if err := w.Close(); err != nil {
			return nil, c, fmt.Errorf("lzma close: %w", err)
		}
		out := buf.Bytes()
		// Drop the 8-byte size field of the LZMA-alone header.
		stripped := make([]byte, 0, len(out)-8)
		stripped = append(stripped, out[:lzmaPropsSize]...)
		stripped = append(stripped, out[lzmaPropsSize+8:]...)
		return stripped, c, nil
	}

	return nil, c, fmt.Errorf("unsupported compression %s", c)
}
