// Package archive provides the zstd-compressed container catalog snapshots are
// stored in. The header carries the fingerprint of the asset tree the payload
// was built from, so stale snapshots are rejected without decompressing them.
package archive

import (
	"encoding/binary"
	"fmt"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// Magic identifies a snapshot container.
var Magic = [4]byte{'H', 'S', 'C', 'S'}

const (
	Version = 2

	// HeaderSize is the encoded header length.
	HeaderSize = 40 // magic, version, fingerprint, size, compressed size, checksum
)

// Header precedes the compressed payload. All fields are little-endian.
type Header struct {
	Magic          [4]byte
	Version        uint32
	Fingerprint    uint64
	Size           uint64
	CompressedSize uint64
	// Checksum is the xxhash of the uncompressed payload.
	Checksum uint64
}

func newHeader(fingerprint uint64) Header {
	return Header{Magic: Magic, Version: Version, Fingerprint: fingerprint}
}

// Validate rejects foreign, future and empty containers.
func (h *Header) Validate() error {
	switch {
	case h.Magic != Magic:
		return errs.Formatf("not a snapshot: magic %x", h.Magic)
	case h.Version != Version:
		return errs.Formatf("snapshot version %d, want %d", h.Version, Version)
	case h.Size == 0 || h.CompressedSize == 0:
		return errs.Formatf("empty snapshot payload")
	}
	return nil
}

func (h *Header) put(buf []byte) {
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint64(buf[8:16], h.Fingerprint)
	binary.LittleEndian.PutUint64(buf[16:24], h.Size)
	binary.LittleEndian.PutUint64(buf[24:32], h.CompressedSize)
	binary.LittleEndian.PutUint64(buf[32:40], h.Checksum)
}

func (h *Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	h.put(buf)
	return buf, nil
}

// UnmarshalBinary decodes and validates the header at the start of data.
func (h *Header) UnmarshalBinary(data []byte) error {
	if len(data) < HeaderSize {
		return errs.Formatf("snapshot header: %d bytes, need %d", len(data), HeaderSize)
	}
	copy(h.Magic[:], data[0:4])
	h.Version = binary.LittleEndian.Uint32(data[4:8])
	h.Fingerprint = binary.LittleEndian.Uint64(data[8:16])
	h.Size = binary.LittleEndian.Uint64(data[16:24])
	h.CompressedSize = binary.LittleEndian.Uint64(data[24:32])
	h.Checksum = binary.LittleEndian.Uint64(data[32:40])
	return h.Validate()
}

func (h *Header) String() string {
	return fmt.Sprintf("snapshot v%d fingerprint=%016x %d→%d bytes", h.Version, h.Fingerprint, h.Size, h.CompressedSize)
}
