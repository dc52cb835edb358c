package archive

import (
	"fmt"
	"io"

	"github.com/DataDog/zstd"
	"github.com/cespare/xxhash/v2"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// DefaultCompressionLevel is the zstd level snapshots are written with.
const DefaultCompressionLevel = zstd.BestSpeed

type options struct {
	level int
}

// Option configures Marshal and Encode.
type Option func(*options)

// WithCompressionLevel sets the zstd level.
func WithCompressionLevel(level int) Option {
	return func(o *options) { o.level = level }
}

// Marshal compresses data into a container stamped with fingerprint.
func Marshal(fingerprint uint64, data []byte, opts ...Option) ([]byte, error) {
	if len(data) == 0 {
		return nil, errs.Formatf("empty snapshot payload")
	}
	o := options{level: DefaultCompressionLevel}
	for _, opt := range opts {
		opt(&o)
	}
	compressed, err := zstd.CompressLevel(nil, data, o.level)
	if err != nil {
		return nil, fmt.Errorf("compress: %w", err)
	}

	h := newHeader(fingerprint)
	h.Size = uint64(len(data))
	h.CompressedSize = uint64(len(compressed))
	h.Checksum = xxhash.Sum64(data)

	out := make([]byte, HeaderSize, HeaderSize+len(compressed))
	h.put(out)
	return append(out, compressed...), nil
}

// Peek decodes the header of data without touching the payload.
func Peek(data []byte) (*Header, error) {
	h := &Header{}
	if err := h.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return h, nil
}

// Unmarshal decompresses a container and verifies its size and checksum.
func Unmarshal(data []byte) (*Header, []byte, error) {
	h, err := Peek(data)
	if err != nil {
		return nil, nil, err
	}
	payload := data[HeaderSize:]
	if uint64(len(payload)) != h.CompressedSize {
		return nil, nil, errs.Formatf("snapshot payload: %d bytes, header says %d", len(payload), h.CompressedSize)
	}
	out, err := zstd.Decompress(make([]byte, 0, h.Size), payload)
	if err != nil {
		return nil, nil, errs.WrapFormat(err, "decompress snapshot")
	}
	if uint64(len(out)) != h.Size {
		return nil, nil, errs.Formatf("snapshot size %d, header says %d", len(out), h.Size)
	}
	if sum := xxhash.Sum64(out); sum != h.Checksum {
		return nil, nil, errs.Formatf("snapshot checksum %016x, want %016x", sum, h.Checksum)
	}
	return h, out, nil
}

// Encode writes data to w as a container.
func Encode(w io.Writer, fingerprint uint64, data []byte, opts ...Option) error {
	b, err := Marshal(fingerprint, data, opts...)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	return nil
}

// Decode reads a whole container from r.
func Decode(r io.Reader) (*Header, []byte, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, fmt.Errorf("read snapshot: %w", err)
	}
	return Unmarshal(data)
}
