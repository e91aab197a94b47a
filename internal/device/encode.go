package device

import "image"

// rgb565 packs a color into 5-6-5 bits.
func rgb565(img image.Image, x, y int) uint16 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint16(r>>11)<<11 | uint16(g>>10)<<5 | uint16(b>>11)
}

// rgb565Components expands a packed word back to 8-bit channels, for
// verification. The low bits replicate the high ones so full intensity
// maps back to 255.
func rgb565Components(v uint16) (r, g, b uint8) {
	r5 := uint8(v >> 11)
	g6 := uint8(v >> 5 & 0x3f)
	b5 := uint8(v & 0x1f)
	return r5<<3 | r5>>2, g6<<2 | g6>>4, b5<<3 | b5>>2
}

// encodeColumnMajorLE walks columns left to right and each column's
// rows bottom to top, emitting little-endian RGB565. The last word of
// every column goes out as zero; the panels render correctly only with
// that terminator in place, so it is part of the wire contract.
func encodeColumnMajorLE(img image.Image) []byte {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, 0, w*h*2)
	i := 0
	for x := 0; x < w; x++ {
		for y := h - 1; y >= 0; y-- {
			i++
			if i%h == 0 {
				out = append(out, 0x00, 0x00)
				continue
			}
			v := rgb565(img, bounds.Min.X+x, bounds.Min.Y+y)
			out = append(out, byte(v), byte(v>>8))
		}
	}
	return out
}

// encodeRowMajorBE walks rows top to bottom emitting big-endian RGB565,
// with no terminator words.
func encodeRowMajorBE(img image.Image) []byte {
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	out := make([]byte, 0, w*h*2)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := rgb565(img, bounds.Min.X+x, bounds.Min.Y+y)
			out = append(out, byte(v>>8), byte(v))
		}
	}
	return out
}
