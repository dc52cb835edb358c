package archive

import (
	"bytes"
	"errors"
	"testing"

	"github.com/goopsie/hsCardTools/pkg/errs"
)

var payload = bytes.Repeat([]byte("shared0.unity3d|0|1234\x00card_inhand_ability_mage\x00"), 64)

func TestHeader(t *testing.T) {
	t.Run("RoundTrip", func(t *testing.T) {
		h := newHeader(0xfeedface)
		h.Size, h.CompressedSize, h.Checksum = 1024, 512, 99

		data, err := h.MarshalBinary()
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		if len(data) != HeaderSize {
			t.Fatalf("header is %d bytes, want %d", len(data), HeaderSize)
		}
		var got Header
		if err := got.UnmarshalBinary(data); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if got != h {
			t.Errorf("got %+v, want %+v", got, h)
		}
	})

	for name, mutate := range map[string]func(*Header){
		"Magic":   func(h *Header) { h.Magic = [4]byte{'U', 'n', 'i', 't'} },
		"Version": func(h *Header) { h.Version = 1 },
		"Empty":   func(h *Header) { h.Size = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			h := newHeader(1)
			h.Size, h.CompressedSize = 10, 10
			mutate(&h)
			if err := h.Validate(); !errors.Is(err, errs.ErrFormat) {
				t.Errorf("expected format error, got %v", err)
			}
		})
	}
}

func TestMarshal(t *testing.T) {
	data, err := Marshal(42, payload, WithCompressionLevel(5))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if len(data) >= len(payload) {
		t.Errorf("container is %d bytes for a %d byte payload", len(data), len(payload))
	}

	h, err := Peek(data)
	if err != nil {
		t.Fatalf("peek: %v", err)
	}
	if h.Fingerprint != 42 {
		t.Errorf("fingerprint %d, want 42", h.Fingerprint)
	}

	_, got, err := Unmarshal(data)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Error("payload changed in round trip")
	}

	if _, err := Marshal(1, nil); !errors.Is(err, errs.ErrFormat) {
		t.Errorf("expected format error for empty payload, got %v", err)
	}
}

func TestEncodeDecode(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, 7, payload); err != nil {
		t.Fatalf("encode: %v", err)
	}
	h, got, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if h.Fingerprint != 7 || !bytes.Equal(got, payload) {
		t.Errorf("got fingerprint %d and %d bytes", h.Fingerprint, len(got))
	}
}

func TestCorrupt(t *testing.T) {
	data, err := Marshal(7, payload)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	t.Run("ShortHeader", func(t *testing.T) {
		if _, _, err := Unmarshal(data[:HeaderSize-1]); !errors.Is(err, errs.ErrFormat) {
			t.Errorf("expected format error, got %v", err)
		}
	})

	t.Run("TruncatedPayload", func(t *testing.T) {
		if _, _, err := Unmarshal(data[:len(data)-4]); !errors.Is(err, errs.ErrFormat) {
			t.Errorf("expected format error, got %v", err)
		}
	})

	t.Run("Checksum", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[32] ^= 0xff
		if _, _, err := Unmarshal(bad); !errors.Is(err, errs.ErrFormat) {
			t.Errorf("expected format error, got %v", err)
		}
	})

	t.Run("Payload", func(t *testing.T) {
		bad := bytes.Clone(data)
		bad[len(bad)-2] ^= 0xff
		if _, _, err := Unmarshal(bad); err == nil {
			t.Error("expected an error for a damaged payload")
		}
	})
}
