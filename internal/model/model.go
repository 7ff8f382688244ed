// Package model holds the per-cycle data shared by the pipeline stages.
package model

import (
	"fmt"
	"image/color"
	"strings"
)

// Sensor geometry: the MLX90640 delivers a 32 wide by 24 tall frame.
const (
	GridWidth  = 32
	GridHeight = 24
	FrameLen   = GridWidth * GridHeight // 768
)

// Levels is the number of palette entries / classification bands.
const Levels = 4

// TopIndex is the palette index of the hottest band (white).
const TopIndex = Levels - 1

// Frame is one capture of temperature samples in °C, row-major over the
// 32x24 grid. It is filled in place by the sampler and treated as read-only
// by every later stage of the same iteration.
type Frame [FrameLen]float64

// Min, Mean and Max are computed over all 768 samples.
func (f *Frame) Min() float64 {
	out := f[0]
	for _, v := range f[1:] {
		if v < out {
			out = v
		}
	}
	return out
}

func (f *Frame) Max() float64 {
	out := f[0]
	for _, v := range f[1:] {
		if v > out {
			out = v
		}
	}
	return out
}

func (f *Frame) Mean() float64 {
	sum := 0.0
	for _, v := range f {
		sum += v
	}
	return sum / FrameLen
}

// BandSet holds the three non-decreasing thresholds splitting one frame's
// value range into four bands. It is only meaningful for that frame.
type BandSet [Levels - 1]float64

func (b BandSet) String() string {
	return fmt.Sprintf("[%.2f %.2f %.2f]", b[0], b[1], b[2])
}

// Indexing selects how a grid cell (x, y) maps to a Frame offset.
type Indexing int

const (
	// IndexRowMajor is y*32+x: rows of 32 samples, 24 rows.
	IndexRowMajor Indexing = iota
	// IndexLegacy is y*24+x, the lookup used by the first two firmware
	// revisions. It reads overlapping windows of the frame (only offsets
	// 0..583 are ever touched) and is kept for output parity only.
	IndexLegacy
)

// ParseIndexing maps the config names "row-major" and "legacy".
func ParseIndexing(s string) (Indexing, error) {
	switch s {
	case "row-major", "":
		return IndexRowMajor, nil
	case "legacy":
		return IndexLegacy, nil
	default:
		return IndexRowMajor, fmt.Errorf("model: unknown indexing %q", s)
	}
}

func (i Indexing) String() string {
	if i == IndexLegacy {
		return "legacy"
	}
	return "row-major"
}

// Offset returns the Frame offset sampled for cell (x, y).
func (i Indexing) Offset(x, y int) int {
	if i == IndexLegacy {
		return y*GridHeight + x
	}
	return y*GridWidth + x
}

// Grid is the palette-indexed 32x24 image, one cell per sample. It is
// reused across iterations and fully overwritten by each quantization pass.
type Grid struct {
	Cells [GridHeight][GridWidth]uint8
}

func (g *Grid) At(x, y int) uint8 {
	return g.Cells[y][x]
}

func (g *Grid) Set(x, y int, v uint8) {
	g.Cells[y][x] = v
}

// Fill sets every cell to v.
func (g *Grid) Fill(v uint8) {
	for y := range g.Cells {
		for x := range g.Cells[y] {
			g.Cells[y][x] = v
		}
	}
}

// String dumps the grid as 24 lines of 32 digits, top row first.
func (g *Grid) String() string {
	var b strings.Builder
	b.Grow(GridHeight * (GridWidth + 1))
	for y := range g.Cells {
		for _, v := range g.Cells[y] {
			b.WriteByte('0' + v)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// Histogram counts cells per palette index.
func (g *Grid) Histogram() [Levels]int {
	var h [Levels]int
	for y := range g.Cells {
		for _, v := range g.Cells[y] {
			h[v]++
		}
	}
	return h
}

// Palette is the four-grey ramp, darkest first. White is reserved for
// samples at or above every threshold.
var Palette = color.Palette{
	color.Gray{Y: 0x00},
	color.Gray{Y: 0x55},
	color.Gray{Y: 0xAA},
	color.Gray{Y: 0xFF},
}

// White is the background index of the composite.
const White = TopIndex

// Black is used for text.
const Black = 0
