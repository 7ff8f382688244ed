package convert

import "image"

// RotateCW returns a copy of src turned 90° clockwise: a w x h image becomes
// h x w and source (x, y) lands on (h-1-y, x).
func RotateCW(src *image.Paletted) *image.Paletted {
	b := src.Bounds()
	w, h := b.Dx(), b.Dy()
	dst := image.NewPaletted(image.Rect(0, 0, h, w), src.Palette)
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w]
		for x, v := range row {
			dst.Pix[x*dst.Stride+(h-1-y)] = v
		}
	}
	return dst
}
