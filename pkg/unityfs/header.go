// Package unityfs reads Unity asset bundles in the UnityFS container format.
//
// A bundle is a header, a (possibly compressed) block table, and a sequence of
// compressed data blocks. The block table also lists directory nodes: named byte
// ranges inside the concatenated, decompressed data. Nodes that hold serialized
// files are exposed as SubContainers; the rest (.resS, .resource) are raw streams
// referenced by objects.
package unityfs

import (
	"encoding/binary"
	"fmt"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Signature identifying a UnityFS bundle.
const Signature = "UnityFS"

// Header flag bits.
const (
	FlagCompressionMask    = 0x3f
	FlagDirectoryCombined  = 0x40
	FlagBlockInfoAtEnd     = 0x80
	FlagBlockInfoPaddingAt = 0x200
)

// Header represents the fixed prefix of a UnityFS bundle.
type Header struct {
	Signature            string
	FormatVersion        uint32
	UnityVersion         string
	UnityRevision        string
	Size                 int64
	CompressedInfoSize   uint32
	UncompressedInfoSize uint32
	Flags                uint32

	// Length of the encoded header, including trailing alignment.
	Length int
}

// Compression returns the compression scheme of the block table.
func (h *Header) Compression() Compression {
	return Compression(h.Flags & FlagCompressionMask)
}

// Validate checks the header for validity.
func (h *Header) Validate() error {
	if h.Signature != Signature {
		return errs.Formatf("invalid signature: expected %q, got %q", Signature, h.Signature)
	}
	if h.FormatVersion < 6 || h.FormatVersion > 8 {
		return errs.Formatf("unsupported format version %d", h.FormatVersion)
	}
	if h.CompressedInfoSize == 0 || h.UncompressedInfoSize == 0 {
		return errs.Formatf("empty block table")
	}
	if !h.Compression().Valid() {
		return errs.Formatf("unsupported block table compression %d", h.Compression())
	}
	if h.Size > 0 && int64(h.CompressedInfoSize) > h.Size {
		return errs.Formatf("block table size %d exceeds bundle size %d", h.CompressedInfoSize, h.Size)
	}
	return nil
}

// UnmarshalBinary decodes and validates the header from the start of data.
func (h *Header) UnmarshalBinary(data []byte) error {
	h.DecodeFrom(newReader(data, binary.BigEndian))
	if h.Length == 0 {
		return errs.Formatf("header data too short: got %d bytes", len(data))
	}
	return h.Validate()
}

// DecodeFrom reads the header fields. It does not validate; use UnmarshalBinary for that.
func (h *Header) DecodeFrom(r *reader) {
	h.Signature = r.CString()
	h.FormatVersion = r.U32()
	h.UnityVersion = r.CString()
	h.UnityRevision = r.CString()
	h.Size = r.I64()
	h.CompressedInfoSize = r.U32()
	h.UncompressedInfoSize = r.U32()
	h.Flags = r.U32()
	if h.FormatVersion >= 7 {
		r.Align(16)
	}
	if r.Err() != nil {
		h.Length = 0
		return
	}
	h.Length = r.Pos()
}

// MarshalBinary encodes the header, including trailing alignment for version 7 and later.
func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, 0, 64)
	buf = append(buf, h.Signature...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint32(buf, h.FormatVersion)
	buf = append(buf, h.UnityVersion...)
	buf = append(buf, 0)
	buf = append(buf, h.UnityRevision...)
	buf = append(buf, 0)
	buf = binary.BigEndian.AppendUint64(buf, uint64(h.Size))
	buf = binary.BigEndian.AppendUint32(buf, h.CompressedInfoSize)
	buf = binary.BigEndian.AppendUint32(buf, h.UncompressedInfoSize)
	buf = binary.BigEndian.AppendUint32(buf, h.Flags)
	if h.FormatVersion >= 7 {
		for len(buf)%16 != 0 {
			buf = append(buf, 0)
		}
	}
	return buf, nil
}

func (h *Header) String() string {
	return fmt.Sprintf("%s v%d (%s, %s) size=%d blocks=%s", h.Signature, h.FormatVersion,
		h.UnityVersion, h.UnityRevision, h.Size, h.Compression())
}
