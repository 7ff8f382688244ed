package render

import (
	"fmt"
	"image"

	"thermepd/internal/model"
)

// Layout selects where the grid and the readouts go.
type Layout int

const (
	// LayoutSides puts °C readouts left and °F readouts right of a
	// centered, uniformly scaled grid.
	LayoutSides Layout = iota
	// LayoutBanner puts one summary line on top and gives the grid the
	// rest of the screen.
	LayoutBanner
)

func ParseLayout(s string) (Layout, error) {
	switch s {
	case "sides", "":
		return LayoutSides, nil
	case "banner":
		return LayoutBanner, nil
	default:
		return LayoutSides, fmt.Errorf("render: unknown layout %q", s)
	}
}

func (l Layout) String() string {
	if l == LayoutBanner {
		return "banner"
	}
	return "sides"
}

// Scaling controls grid magnification in the banner layout.
type Scaling int

const (
	// ScaleUniform uses one factor for both axes.
	ScaleUniform Scaling = iota
	// ScaleTiled magnifies each axis independently to use the spare area.
	ScaleTiled
)

func ParseScaling(s string) (Scaling, error) {
	switch s {
	case "uniform", "":
		return ScaleUniform, nil
	case "tiled":
		return ScaleTiled, nil
	default:
		return ScaleUniform, fmt.Errorf("render: unknown scaling %q", s)
	}
}

func (s Scaling) String() string {
	if s == ScaleTiled {
		return "tiled"
	}
	return "uniform"
}

// Center splits the pixels left over after placing cells*scale pixels in
// avail: lead = floor(rest/2), trail gets the remainder.
func Center(avail, cells, scale int) (lead, trail int) {
	rest := avail - cells*scale
	if rest < 0 {
		rest = 0
	}
	lead = rest / 2
	return lead, rest - lead
}

// Placement is where the grid lands on screen.
type Placement struct {
	Grid   image.Rectangle
	ScaleX int
	ScaleY int
}

// place computes the grid placement for a w x h screen. top is the number of
// rows reserved above the grid (banner height, 0 otherwise).
func place(w, h, top int, uniform bool) (Placement, error) {
	availH := h - top
	sx := w / model.GridWidth
	sy := availH / model.GridHeight
	if uniform {
		s := min(sx, sy)
		sx, sy = s, s
	}
	if sx < 1 || sy < 1 {
		return Placement{}, fmt.Errorf("render: screen %dx%d (%d reserved) too small for a %dx%d grid",
			w, h, top, model.GridWidth, model.GridHeight)
	}
	x, _ := Center(w, model.GridWidth, sx)
	y, _ := Center(availH, model.GridHeight, sy)
	y += top
	return Placement{
		Grid:   image.Rect(x, y, x+model.GridWidth*sx, y+model.GridHeight*sy),
		ScaleX: sx,
		ScaleY: sy,
	}, nil
}
