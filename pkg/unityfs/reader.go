package unityfs

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

// reader decodes fixed-size values from an in-memory buffer. The first short read
// sets a sticky error; later reads return zero values until Err is checked.
type reader struct {
	data  []byte
	pos   int
	order binary.ByteOrder
	err   error
}

func newReader(data []byte, order binary.ByteOrder) *reader {
	return &reader{data: data, order: order}
}

func (r *reader) Err() error { return r.err }

func (r *reader) Pos() int { return r.pos }

func (r *reader) Len() int { return len(r.data) - r.pos }

func (r *reader) Seek(pos int) {
	if pos < 0 || pos > len(r.data) {
		r.fail(pos - r.pos)
		return
	}
	r.pos = pos
}

func (r *reader) fail(n int) {
	if r.err == nil {
		r.err = errs.Formatf("unexpected end of data: need %d bytes at offset %d, have %d", n, r.pos, len(r.data)-r.pos)
	}
}

func (r *reader) next(n int) []byte {
	if r.err != nil {
		return nil
	}
	if n < 0 || r.pos+n > len(r.data) {
		r.fail(n)
		return nil
	}
	b := r.data[r.pos : r.pos+n]
	r.pos += n
	return b
}

// Align advances to the next multiple of n relative to the start of the buffer.
func (r *reader) Align(n int) {
	if rem := r.pos % n; rem != 0 {
		r.next(n - rem)
	}
}

func (r *reader) Bytes(n int) []byte {
	b := r.next(n)
	if b == nil {
		return nil
	}
	out := make([]byte, n)
	copy(out, b)
	return out
}

func (r *reader) Skip(n int) { r.next(n) }

func (r *reader) U8() uint8 {
	b := r.next(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *reader) Bool() bool { return r.U8() != 0 }

func (r *reader) U16() uint16 {
	b := r.next(2)
	if b == nil {
		return 0
	}
	return r.order.Uint16(b)
}

func (r *reader) U32() uint32 {
	b := r.next(4)
	if b == nil {
		return 0
	}
	return r.order.Uint32(b)
}

func (r *reader) U64() uint64 {
	b := r.next(8)
	if b == nil {
		return 0
	}
	return r.order.Uint64(b)
}

func (r *reader) I16() int16 { return int16(r.U16()) }
func (r *reader) I32() int32 { return int32(r.U32()) }
func (r *reader) I64() int64 { return int64(r.U64()) }

func (r *reader) F32() float32 { return math.Float32frombits(r.U32()) }
func (r *reader) F64() float64 { return math.Float64frombits(r.U64()) }

// CString reads a NUL-terminated string.
func (r *reader) CString() string {
	if r.err != nil {
		return ""
	}
	end := bytes.IndexByte(r.data[r.pos:], 0)
	if end < 0 {
		r.fail(len(r.data) - r.pos + 1)
		return ""
	}
	s := string(r.data[r.pos : r.pos+end])
	r.pos += end + 1
	return s
}

// Count reads a signed 32-bit element count and rejects values that cannot fit in
// the remaining data given a minimum element size.
func (r *reader) Count(minSize int) int {
	n := r.I32()
	if r.err != nil {
		return 0
	}
	if n < 0 || (minSize > 0 && int(n) > r.Len()/minSize) {
		r.err = errs.Formatf("invalid element count %d at offset %d", n, r.pos-4)
		return 0
	}
	return int(n)
}
