// Package pipeline runs the capture → bands → quantize → render → refresh
// cycle. All collaborators live in an explicit Context built once by the
// caller; nothing is global.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"thermepd/internal/bands"
	"thermepd/internal/convert"
	"thermepd/internal/diag"
	appLog "thermepd/internal/log"
	"thermepd/internal/model"
	"thermepd/internal/refresh"
	"thermepd/internal/render"
	"thermepd/internal/sensor"
)

// Context bundles the hardware-facing collaborators and the policies of
// one device.
type Context struct {
	Sampler    sensor.Sampler
	Bands      bands.Calculator
	Indexing   model.Indexing
	Renderer   *render.Renderer
	Controller *refresh.Controller
	Counters   *diag.Counters // optional
}

func (c *Context) validate() error {
	switch {
	case c.Sampler == nil:
		return errors.New("pipeline: sampler is required")
	case c.Bands == nil:
		return errors.New("pipeline: band calculator is required")
	case c.Renderer == nil:
		return errors.New("pipeline: renderer is required")
	case c.Controller == nil:
		return errors.New("pipeline: refresh controller is required")
	}
	return nil
}

// Result is what one iteration produced, for logging and tests.
type Result struct {
	Bands     model.BandSet
	Summary   model.TextSummary
	Composite *render.Composite
	Refresh   refresh.Stats
	Elapsed   time.Duration
}

// Loop owns the frame and grid buffers reused across iterations.
type Loop struct {
	ctx   *Context
	frame model.Frame
	grid  model.Grid
}

// New checks the context and allocates the buffers.
func New(c *Context) (*Loop, error) {
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &Loop{ctx: c}, nil
}

// Grid exposes the palette grid of the last iteration.
func (l *Loop) Grid() *model.Grid {
	return &l.grid
}

// Step runs exactly one iteration. A new frame is only captured once the
// previous composite has finished its refresh, since Step does not return
// before that.
func (l *Loop) Step(ctx context.Context) (Result, error) {
	start := time.Now()
	c := l.ctx

	if err := c.Sampler.Capture(ctx, &l.frame); err != nil {
		return Result{}, fmt.Errorf("pipeline: capture: %w", err)
	}

	b := c.Bands.Bands(&l.frame)
	convert.Quantize(&l.grid, &l.frame, b, c.Indexing)
	summary := model.Summarize(&l.frame)
	diag.DumpGrid(&l.grid, b)

	comp := c.Renderer.Render(&l.grid, summary)
	if err := c.Controller.Run(ctx, comp); err != nil {
		return Result{}, fmt.Errorf("pipeline: refresh: %w", err)
	}

	res := Result{
		Bands:     b,
		Summary:   summary,
		Composite: comp,
		Refresh:   c.Controller.LastStats(),
		Elapsed:   time.Since(start),
	}
	if c.Counters != nil {
		c.Counters.Observe(res.Elapsed, res.Refresh.Slept, res.Refresh.BusyPolls)
	}
	appLog.Debug("frame displayed",
		"bands", b,
		"min_c", summary.MinC,
		"max_c", summary.MaxC,
		"slept", res.Refresh.Slept,
		"busy_polls", res.Refresh.BusyPolls,
		"elapsed", res.Elapsed,
	)
	return res, nil
}

// Run iterates until ctx is cancelled (returns nil) or an iteration fails
// (returns that error). maxFrames > 0 stops after that many frames.
func (l *Loop) Run(ctx context.Context, maxFrames int) error {
	for n := 0; maxFrames <= 0 || n < maxFrames; n++ {
		if ctx.Err() != nil {
			return nil
		}
		if _, err := l.Step(ctx); err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			return err
		}
	}
	return nil
}
