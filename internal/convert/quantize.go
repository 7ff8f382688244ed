package convert

import "thermepd/internal/model"

// Classify returns the index of the first threshold strictly greater than v,
// or model.TopIndex when none is. A sample equal to a threshold therefore
// lands in the band above it; with all thresholds equal to v (uniform frame)
// it falls through to the top band.
func Classify(v float64, b model.BandSet) uint8 {
	for i, bound := range b {
		if v < bound {
			return uint8(i)
		}
	}
	return model.TopIndex
}

// Quantize overwrites every cell of dst from f using thresholds b. Cell
// (x, y) reads the sample at idx.Offset(x, y).
func Quantize(dst *model.Grid, f *model.Frame, b model.BandSet, idx model.Indexing) {
	for y := 0; y < model.GridHeight; y++ {
		for x := 0; x < model.GridWidth; x++ {
			dst.Cells[y][x] = Classify(f[idx.Offset(x, y)], b)
		}
	}
}
