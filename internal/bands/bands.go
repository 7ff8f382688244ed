// Package bands derives the per-frame classification thresholds.
//
// A Calculator looks at one Frame only; nothing is carried from one frame to
// the next. Both policies are total: a uniform frame yields three equal
// thresholds rather than an error.
package bands

import (
	"fmt"
	"sort"

	"thermepd/internal/model"
)

// Calculator returns three non-decreasing thresholds for f.
type Calculator interface {
	Bands(f *model.Frame) model.BandSet
	Name() string
}

// Parse returns the Calculator registered under name.
func Parse(name string) (Calculator, error) {
	switch name {
	case "quantile":
		return Quantile{}, nil
	case "linear":
		return Linear{}, nil
	default:
		return nil, fmt.Errorf("bands: unknown policy %q", name)
	}
}

// Quantile places the thresholds at the quartile cut points of the frame, so
// each band holds about a quarter of the samples whatever the scene range.
type Quantile struct{}

func (Quantile) Name() string { return "quantile" }

func (Quantile) Bands(f *model.Frame) model.BandSet {
	sorted := make([]float64, len(f))
	copy(sorted, f[:])
	sort.Float64s(sorted)
	return Quartiles(sorted)
}

// Quartiles computes the 3 cut points of an ascending slice with the
// exclusive method: positions i*(n+1)/4, linearly interpolated.
func Quartiles(sorted []float64) model.BandSet {
	var out model.BandSet
	n := len(sorted)
	switch n {
	case 0:
		return out
	case 1:
		return model.BandSet{sorted[0], sorted[0], sorted[0]}
	}
	m := n + 1
	for i := 1; i <= len(out); i++ {
		j := i * m / model.Levels
		delta := i*m - j*model.Levels
		// Clamp so j-1 and j stay in range for tiny inputs.
		if j < 1 {
			j, delta = 1, 0
		}
		if j > n-1 {
			j, delta = n-1, model.Levels
		}
		lo, hi := sorted[j-1], sorted[j]
		out[i-1] = (lo*float64(model.Levels-delta) + hi*float64(delta)) / model.Levels
	}
	return out
}

// Linear splits [min, max] into four equal-width bands. A single outlier
// stretches the range and squeezes every other sample into fewer bands.
type Linear struct{}

func (Linear) Name() string { return "linear" }

func (Linear) Bands(f *model.Frame) model.BandSet {
	lo, hi := f.Min(), f.Max()
	// Uniform frame: width 0, every threshold equals min.
	width := 0.0
	if hi > lo {
		width = (hi - lo) / model.Levels
	}
	return model.BandSet{lo + width, lo + 2*width, lo + 3*width}
}
