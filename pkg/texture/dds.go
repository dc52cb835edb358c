package texture

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/goopsie/hsCardTools/pkg/engine"
	"github.com/goopsie/hsCardTools/pkg/errs"
)

// DXGI_FORMAT constants for the formats WriteDDS emits.
const (
	DXGI_FORMAT_UNKNOWN             = 0
	DXGI_FORMAT_R8G8B8A8_UNORM      = 28
	DXGI_FORMAT_R8G8B8A8_UNORM_SRGB = 29
	DXGI_FORMAT_BC1_UNORM           = 71
	DXGI_FORMAT_BC1_UNORM_SRGB      = 72
	DXGI_FORMAT_BC3_UNORM           = 77
	DXGI_FORMAT_BC3_UNORM_SRGB      = 78
	DXGI_FORMAT_B8G8R8A8_UNORM      = 87
)

// FormatName returns a human-readable name for a DXGI_FORMAT value.
func FormatName(format uint32) string {
	switch format {
	case DXGI_FORMAT_BC1_UNORM:
		return "BC1_UNORM"
	case DXGI_FORMAT_BC1_UNORM_SRGB:
		return "BC1_UNORM_SRGB"
	case DXGI_FORMAT_BC3_UNORM:
		return "BC3_UNORM"
	case DXGI_FORMAT_BC3_UNORM_SRGB:
		return "BC3_UNORM_SRGB"
	case DXGI_FORMAT_R8G8B8A8_UNORM:
		return "R8G8B8A8_UNORM"
	case DXGI_FORMAT_R8G8B8A8_UNORM_SRGB:
		return "R8G8B8A8_UNORM_SRGB"
	case DXGI_FORMAT_B8G8R8A8_UNORM:
		return "B8G8R8A8_UNORM"
	default:
		return fmt.Sprintf("UNKNOWN(0x%x)", format)
	}
}

// DXGIFormat maps a Unity format to the DXGI format WriteDDS uses for it.
func DXGIFormat(f Format) (uint32, bool) {
	switch f {
	case DXT1:
		return DXGI_FORMAT_BC1_UNORM, true
	case DXT5:
		return DXGI_FORMAT_BC3_UNORM, true
	case RGBA32:
		return DXGI_FORMAT_R8G8B8A8_UNORM, true
	case BGRA32:
		return DXGI_FORMAT_B8G8R8A8_UNORM, true
	}
	return DXGI_FORMAT_UNKNOWN, false
}

// DDS header constants
const (
	DDS_MAGIC                    = 0x20534444 // "DDS "
	DDS_HEADER_SIZE              = 124
	DDS_HEADER_FLAGS_CAPS        = 0x1
	DDS_HEADER_FLAGS_HEIGHT      = 0x2
	DDS_HEADER_FLAGS_WIDTH       = 0x4
	DDS_HEADER_FLAGS_PITCH       = 0x8
	DDS_HEADER_FLAGS_PIXELFORMAT = 0x1000
	DDS_HEADER_FLAGS_MIPMAPCOUNT = 0x20000
	DDS_HEADER_FLAGS_LINEARSIZE  = 0x80000

	DDS_SURFACE_FLAGS_TEXTURE = 0x1000
	DDS_SURFACE_FLAGS_MIPMAP  = 0x400000

	DDS_PIXELFORMAT_SIZE = 32
	DDS_FOURCC           = 0x4

	DX10_FOURCC = 0x30315844 // "DX10"

	// DDSHeaderLength is magic + header + DX10 extension.
	DDSHeaderLength = 4 + DDS_HEADER_SIZE + 20
)

// DDSInfo describes the surface written into a DDS header.
type DDSInfo struct {
	Width      uint32
	Height     uint32
	MipLevels  uint32
	DXGIFormat uint32
	ArraySize  uint32
}

func (i *DDSInfo) String() string {
	return fmt.Sprintf("DDS: %dx%d, %d mips, format=%s", i.Width, i.Height, i.MipLevels, FormatName(i.DXGIFormat))
}

// WriteDDS writes tex, including all stored mip levels, as a DDS file with a DX10
// header. Rows are written in stored (bottom-up) order.
func WriteDDS(w io.Writer, tex *engine.Texture2D) error {
	dxgi, ok := DXGIFormat(Format(tex.Format))
	if !ok {
		return errs.Formatf("texture %q: no DDS mapping for %s", tex.Name, Format(tex.Format))
	}
	mips := max(tex.MipCount, 1)
	info := &DDSInfo{
		Width:      uint32(tex.Width),
		Height:     uint32(tex.Height),
		MipLevels:  uint32(mips),
		DXGIFormat: dxgi,
		ArraySize:  1,
	}
	if _, err := w.Write(createDDSHeader(info)); err != nil {
		return fmt.Errorf("write dds header: %w", err)
	}
	if _, err := w.Write(tex.Data); err != nil {
		return fmt.Errorf("write dds data: %w", err)
	}
	return nil
}

// ReadDDSHeader parses a DDS header with a DX10 extension.
func ReadDDSHeader(r io.Reader) (*DDSInfo, error) {
	header := make([]byte, DDSHeaderLength)
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, errs.WrapFormat(err, "read dds header")
	}
	le := binary.LittleEndian
	if le.Uint32(header[0:]) != DDS_MAGIC {
		return nil, errs.Formatf("invalid DDS magic: 0x%08x", le.Uint32(header[0:]))
	}
	if le.Uint32(header[84:]) != DX10_FOURCC {
		return nil, errs.Formatf("dds header without DX10 extension")
	}
	return &DDSInfo{
		Height:     le.Uint32(header[12:]),
		Width:      le.Uint32(header[16:]),
		MipLevels:  le.Uint32(header[28:]),
		DXGIFormat: le.Uint32(header[128:]),
		ArraySize:  le.Uint32(header[140:]),
	}, nil
}

// createDDSHeader creates a complete DDS header with DX10 extension.
func createDDSHeader(info *DDSInfo) []byte {
	// DDS file = 4 bytes magic + 124 bytes header + 20 bytes DX10 extension + data
	header := make([]byte, DDSHeaderLength)
	le := binary.LittleEndian

	le.PutUint32(header[0:4], DDS_MAGIC)

	// DDS_HEADER starts at offset 4
	offset := 4
	le.PutUint32(header[offset:], DDS_HEADER_SIZE)
	offset += 4

	flags := uint32(DDS_HEADER_FLAGS_CAPS | DDS_HEADER_FLAGS_HEIGHT | DDS_HEADER_FLAGS_WIDTH |
		DDS_HEADER_FLAGS_PIXELFORMAT)
	if isBlockCompressed(info.DXGIFormat) {
		flags |= DDS_HEADER_FLAGS_LINEARSIZE
	} else {
		flags |= DDS_HEADER_FLAGS_PITCH
	}
	if info.MipLevels > 1 {
		flags |= DDS_HEADER_FLAGS_MIPMAPCOUNT
	}
	le.PutUint32(header[offset:], flags)
	offset += 4

	le.PutUint32(header[offset:], info.Height)
	offset += 4
	le.PutUint32(header[offset:], info.Width)
	offset += 4

	// dwPitchOrLinearSize
	le.PutUint32(header[offset:], calculateLinearSize(info.Width, info.Height, info.DXGIFormat))
	offset += 4

	// dwDepth (unused)
	offset += 4

	le.PutUint32(header[offset:], info.MipLevels)
	offset += 4

	// dwReserved1[11]
	offset += 44

	// DDS_PIXELFORMAT
	le.PutUint32(header[offset:], DDS_PIXELFORMAT_SIZE)
	offset += 4
	le.PutUint32(header[offset:], DDS_FOURCC)
	offset += 4
	le.PutUint32(header[offset:], DX10_FOURCC)
	offset += 4

	// bit count and masks, zero for DX10
	offset += 20

	caps := uint32(DDS_SURFACE_FLAGS_TEXTURE)
	if info.MipLevels > 1 {
		caps |= DDS_SURFACE_FLAGS_MIPMAP
	}
	le.PutUint32(header[offset:], caps)
	offset += 4

	// dwCaps2..4 and dwReserved2
	offset += 16

	// DX10 extension
	le.PutUint32(header[offset:], info.DXGIFormat)
	offset += 4
	le.PutUint32(header[offset:], 3) // TEXTURE2D
	offset += 4
	offset += 4 // miscFlag
	le.PutUint32(header[offset:], info.ArraySize)

	return header
}

func isBlockCompressed(format uint32) bool {
	switch format {
	case DXGI_FORMAT_BC1_UNORM, DXGI_FORMAT_BC1_UNORM_SRGB, DXGI_FORMAT_BC3_UNORM, DXGI_FORMAT_BC3_UNORM_SRGB:
		return true
	}
	return false
}

// calculateLinearSize returns the top level's linear size for block formats and the
// row pitch otherwise.
func calculateLinearSize(width, height, format uint32) uint32 {
	if !isBlockCompressed(format) {
		return width * 4
	}
	blockSize := uint32(16)
	if format == DXGI_FORMAT_BC1_UNORM || format == DXGI_FORMAT_BC1_UNORM_SRGB {
		blockSize = 8
	}
	blocksWide := (width + 3) / 4
	blocksHigh := (height + 3) / 4
	return blocksWide * blocksHigh * blockSize
}
