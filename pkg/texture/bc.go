package texture

import (
	"encoding/binary"
	"image"
)

// colorBlock decodes the 8-byte BC1 color half of a block into a 4-entry palette.
// With alpha set, c0 <= c1 selects the 3-color mode with transparent black.
func colorBlock(b []byte, alpha bool) (palette [4][4]uint8, indices uint32) {
	c0 := binary.LittleEndian.Uint16(b[0:])
	c1 := binary.LittleEndian.Uint16(b[2:])
	r0, g0, b0 := rgb565(c0)
	r1, g1, b1 := rgb565(c1)

	palette[0] = [4]uint8{r0, g0, b0, 255}
	palette[1] = [4]uint8{r1, g1, b1, 255}
	mix := func(a, b uint8, wa, wb, div int) uint8 {
		return uint8((int(a)*wa + int(b)*wb) / div)
	}
	if c0 > c1 || !alpha {
		palette[2] = [4]uint8{mix(r0, r1, 2, 1, 3), mix(g0, g1, 2, 1, 3), mix(b0, b1, 2, 1, 3), 255}
		palette[3] = [4]uint8{mix(r0, r1, 1, 2, 3), mix(g0, g1, 1, 2, 3), mix(b0, b1, 1, 2, 3), 255}
	} else {
		palette[2] = [4]uint8{mix(r0, r1, 1, 1, 2), mix(g0, g1, 1, 1, 2), mix(b0, b1, 1, 1, 2), 255}
		palette[3] = [4]uint8{0, 0, 0, 0}
	}
	return palette, binary.LittleEndian.Uint32(b[4:])
}

// alphaBlock decodes the 8-byte BC3 alpha half of a block.
func alphaBlock(b []byte) (palette [8]uint8, indices uint64) {
	a0, a1 := int(b[0]), int(b[1])
	palette[0], palette[1] = b[0], b[1]
	if a0 > a1 {
		for i := 2; i < 8; i++ {
			palette[i] = uint8((a0*(8-i) + a1*(i-1)) / 7)
		}
	} else {
		for i := 2; i < 6; i++ {
			palette[i] = uint8((a0*(6-i) + a1*(i-1)) / 5)
		}
		palette[6], palette[7] = 0, 255
	}
	for i := range 6 {
		indices |= uint64(b[2+i]) << (8 * i)
	}
	return palette, indices
}

// forEachBlock calls fn for every 4×4 block with its byte slice.
func forEachBlock(w, h, blockSize int, src []byte, fn func(bx, by int, block []byte)) {
	blocksW := (w + 3) / 4
	blocksH := (h + 3) / 4
	off := 0
	for by := range blocksH {
		for bx := range blocksW {
			fn(bx, by, src[off:off+blockSize])
			off += blockSize
		}
	}
}

// setPixel writes c at block-relative position (px, py), skipping pixels past the edge.
func setPixel(dst *image.NRGBA, bx, by, px, py int, c [4]uint8) {
	x, y := bx*4+px, by*4+py
	if x >= dst.Rect.Dx() || y >= dst.Rect.Dy() {
		return
	}
	o := dst.PixOffset(x, y)
	copy(dst.Pix[o:o+4], c[:])
}

func decodeBC1(dst *image.NRGBA, src []byte, w, h int) error {
	forEachBlock(w, h, 8, src, func(bx, by int, block []byte) {
		palette, indices := colorBlock(block, true)
		for i := range 16 {
			setPixel(dst, bx, by, i%4, i/4, palette[(indices>>(2*i))&3])
		}
	})
	return nil
}

func decodeBC3(dst *image.NRGBA, src []byte, w, h int) error {
	forEachBlock(w, h, 16, src, func(bx, by int, block []byte) {
		alphas, alphaIdx := alphaBlock(block[:8])
		palette, indices := colorBlock(block[8:], false)
		for i := range 16 {
			c := palette[(indices>>(2*i))&3]
			c[3] = alphas[(alphaIdx>>(3*i))&7]
			setPixel(dst, bx, by, i%4, i/4, c)
		}
	})
	return nil
}

var etc1Modifiers = [8][2]int{
	{2, 8}, {5, 17}, {9, 29}, {13, 42},
	{18, 60}, {24, 80}, {33, 106}, {47, 183},
}

func clampByte(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	}
	return uint8(v)
}

// decodeETC1 decodes ETC1 blocks. Block words are big-endian and pixel indices run
// column-major.
func decodeETC1(dst *image.NRGBA, src []byte, w, h int) error {
	forEachBlock(w, h, 8, src, func(bx, by int, block []byte) {
		hi := binary.BigEndian.Uint32(block[0:])
		lo := binary.BigEndian.Uint32(block[4:])

		var base [2][3]int
		if hi&2 != 0 {
			for c, shift := range [3]uint{27, 19, 11} {
				v := int(hi>>shift) & 0x1f
				d := int(hi>>(shift-3)) & 0x7
				if d >= 4 {
					d -= 8
				}
				v2 := v + d
				base[0][c] = v<<3 | v>>2
				base[1][c] = v2<<3 | v2>>2
			}
		} else {
			for c, shift := range [3]uint{28, 20, 12} {
				base[0][c] = (int(hi>>shift) & 0xf) * 17
				base[1][c] = (int(hi>>(shift-4)) & 0xf) * 17
			}
		}
		tables := [2]int{int(hi>>5) & 7, int(hi>>2) & 7}
		flip := hi&1 != 0

		for x := range 4 {
			for y := range 4 {
				i := x*4 + y
				sub := 0
				if (flip && y >= 2) || (!flip && x >= 2) {
					sub = 1
				}
				mod := etc1Modifiers[tables[sub]]
				msb := (lo >> (16 + i)) & 1
				lsb := (lo >> i) & 1
				var delta int
				switch msb<<1 | lsb {
				case 0:
					delta = mod[0]
				case 1:
					delta = mod[1]
				case 2:
					delta = -mod[0]
				case 3:
					delta = -mod[1]
				}
				c := [4]uint8{
					clampByte(base[sub][0] + delta),
					clampByte(base[sub][1] + delta),
					clampByte(base[sub][2] + delta),
					255,
				}
				setPixel(dst, bx, by, x, y, c)
			}
		}
	})
	return nil
}
