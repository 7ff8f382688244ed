package convert

import (
	"fmt"
	"image"
)

// PackPaletted converts a 4-entry image.Paletted into the two 1bpp planes
// loaded into a grey e-paper controller: hi carries bit 1 of each palette
// index, lo carries bit 0. With the grey palette (0=black .. 3=white) a set
// bit means "lighter", which matches the controller's 1=white convention.
//
// Packing rules:
//
//   - each plane is y-major, MSB-first 1bpp:
//     byteIndex = y * stride + (x >> 3)
//     mask      = 0x80 >> (x & 7)
//   - stride = ceil(width / 8); padding bits in the last byte of a row are
//     left set (white).
//   - indices above 3 are rejected.
func PackPaletted(img *image.Paletted) (hi, lo []byte, stride int, err error) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w <= 0 || h <= 0 {
		return nil, nil, 0, fmt.Errorf("convert: empty image %v", b)
	}

	stride = (w + 7) / 8
	hi = make([]byte, stride*h)
	lo = make([]byte, stride*h)
	for i := range hi {
		hi[i] = 0xFF
		lo[i] = 0xFF
	}

	for py := 0; py < h; py++ {
		row := img.Pix[py*img.Stride : py*img.Stride+w]
		for px, v := range row {
			if v > 3 {
				return nil, nil, 0, fmt.Errorf("convert: palette index %d at (%d,%d) out of range", v, px, py)
			}
			byteIndex := py*stride + (px >> 3)
			mask := byte(0x80 >> (px & 7))
			if v&0x2 == 0 {
				hi[byteIndex] &^= mask
			}
			if v&0x1 == 0 {
				lo[byteIndex] &^= mask
			}
		}
	}

	return hi, lo, stride, nil
}
