// Package render composes the quantized grid and the temperature readouts
// into a full-screen palette image. It performs no I/O.
package render

import (
	"fmt"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"thermepd/internal/model"
)

// Anchor tells which corner of a text block its position refers to.
type Anchor int

const (
	AnchorTopLeft Anchor = iota
	AnchorTopRight
)

// TextBlock is a multi-line label; (X, Y) is the anchored corner.
type TextBlock struct {
	Lines  []string
	X, Y   int
	Anchor Anchor
}

// Composite is what the display presents: the layout description plus the
// rasterized screen. Image is owned by the Renderer and overwritten by the
// next Render call.
type Composite struct {
	Layout    Layout
	Placement Placement
	Text      []TextBlock
	Image     *image.Paletted
}

// Options configures a Renderer.
type Options struct {
	Width   int
	Height  int
	Layout  Layout
	Scaling Scaling // banner layout only
	Padding int     // side layout text inset from the screen edge
}

// Renderer turns a Grid and a TextSummary into a Composite.
type Renderer struct {
	opts      Options
	face      font.Face
	lineH     int
	ascent    int
	placement Placement
	img       *image.Paletted
}

// New validates the options and precomputes the grid placement, which only
// depends on the screen and layout.
func New(opts Options) (*Renderer, error) {
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, fmt.Errorf("render: invalid screen %dx%d", opts.Width, opts.Height)
	}
	face := basicfont.Face7x13
	m := face.Metrics()
	r := &Renderer{
		opts:   opts,
		face:   face,
		lineH:  m.Height.Ceil(),
		ascent: m.Ascent.Ceil(),
		img:    image.NewPaletted(image.Rect(0, 0, opts.Width, opts.Height), model.Palette),
	}

	var err error
	switch opts.Layout {
	case LayoutSides:
		r.placement, err = place(opts.Width, opts.Height, 0, true)
	case LayoutBanner:
		r.placement, err = place(opts.Width, opts.Height, r.BannerHeight(), opts.Scaling == ScaleUniform)
	default:
		err = fmt.Errorf("render: unknown layout %d", opts.Layout)
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Placement returns where the grid is drawn.
func (r *Renderer) Placement() Placement {
	return r.placement
}

// BannerHeight is the number of rows reserved for the banner line.
func (r *Renderer) BannerHeight() int {
	return r.lineH
}

// Render rasterizes g and s. g must have been fully written for this frame.
func (r *Renderer) Render(g *model.Grid, s model.TextSummary) *Composite {
	c := &Composite{
		Layout:    r.opts.Layout,
		Placement: r.placement,
		Image:     r.img,
	}

	switch r.opts.Layout {
	case LayoutBanner:
		line := s.Banner()
		x, _ := Center(r.opts.Width, font.MeasureString(r.face, line).Ceil(), 1)
		c.Text = []TextBlock{{Lines: []string{line}, X: x, Y: 0, Anchor: AnchorTopLeft}}
	default:
		y := r.placement.Grid.Min.Y
		c.Text = []TextBlock{
			{Lines: s.CelsiusLines(), X: r.opts.Padding, Y: y, Anchor: AnchorTopLeft},
			{Lines: s.FahrenheitLines(), X: r.opts.Width - r.opts.Padding, Y: y, Anchor: AnchorTopRight},
		}
	}

	// White background.
	for i := range r.img.Pix {
		r.img.Pix[i] = model.White
	}
	r.drawGrid(g)
	for _, tb := range c.Text {
		r.drawText(tb)
	}
	return c
}

func (r *Renderer) drawGrid(g *model.Grid) {
	p := r.placement
	for gy := 0; gy < model.GridHeight; gy++ {
		y0 := p.Grid.Min.Y + gy*p.ScaleY
		for gx := 0; gx < model.GridWidth; gx++ {
			v := g.Cells[gy][gx]
			x0 := p.Grid.Min.X + gx*p.ScaleX
			for y := y0; y < y0+p.ScaleY; y++ {
				row := r.img.Pix[y*r.img.Stride:]
				for x := x0; x < x0+p.ScaleX; x++ {
					row[x] = v
				}
			}
		}
	}
}

func (r *Renderer) drawText(tb TextBlock) {
	d := font.Drawer{
		Dst:  r.img,
		Src:  image.NewUniform(model.Palette[model.Black]),
		Face: r.face,
	}
	for i, line := range tb.Lines {
		x := tb.X
		if tb.Anchor == AnchorTopRight {
			x -= d.MeasureString(line).Ceil()
		}
		d.Dot = fixed.P(x, tb.Y+i*r.lineH+r.ascent)
		d.DrawString(line)
	}
}
