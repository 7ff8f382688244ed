// Package sensor provides frame sources for the pipeline.
package sensor

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"periph.io/x/conn/v3/gpio"

	"thermepd/internal/model"
)

// Sampler abstracts how we obtain one frame of temperatures. This allows a
// synthetic scene for development and hardware-backed readers on the
// device. Capture blocks until a full frame is available and overwrites
// every sample of f.
type Sampler interface {
	Capture(ctx context.Context, f *model.Frame) error
}

// Options configures the built-in samplers.
type Options struct {
	Seed     int64
	AmbientC float64
	SpanC    float64

	// Interval is the camera frame period (1/refresh rate). Capture never
	// returns sooner than Interval after the previous one. Zero disables
	// pacing.
	Interval time.Duration
}

// New returns the sampler registered under kind: "synthetic" or "static".
func New(kind string, opts Options) (Sampler, error) {
	switch kind {
	case "synthetic":
		return NewSynthetic(opts), nil
	case "static":
		return NewStatic(opts), nil
	default:
		return nil, fmt.Errorf("sensor: unknown kind %q", kind)
	}
}

// pacer enforces the minimum spacing between captures with a real sleep.
type pacer struct {
	interval time.Duration
	last     time.Time
}

func (p *pacer) wait(ctx context.Context) error {
	if p.interval <= 0 {
		return nil
	}
	if !p.last.IsZero() {
		if d := p.interval - time.Since(p.last); d > 0 {
			t := time.NewTimer(d)
			select {
			case <-t.C:
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			}
		}
	}
	p.last = time.Now()
	return nil
}

// spot is a warm blob drifting across the scene.
type spot struct {
	x, y   float64
	dx, dy float64
	heat   float64
	radius float64
}

// Synthetic renders a few drifting hot spots over an ambient background
// with a little per-pixel noise. It is deterministic for a given seed.
type Synthetic struct {
	opts  Options
	rand  *rand.Rand
	spots []spot
	pace  pacer
}

// NewSynthetic constructs the synthetic scene.
func NewSynthetic(opts Options) *Synthetic {
	if opts.SpanC <= 0 {
		opts.SpanC = 10
	}
	r := rand.New(rand.NewSource(opts.Seed))
	s := &Synthetic{opts: opts, rand: r, pace: pacer{interval: opts.Interval}}
	for i := 0; i < 3; i++ {
		s.spots = append(s.spots, spot{
			x:      r.Float64() * model.GridWidth,
			y:      r.Float64() * model.GridHeight,
			dx:     r.Float64()*2 - 1,
			dy:     r.Float64()*2 - 1,
			heat:   opts.SpanC * (0.5 + r.Float64()/2),
			radius: 3 + r.Float64()*4,
		})
	}
	return s
}

func (s *Synthetic) Capture(ctx context.Context, f *model.Frame) error {
	if err := s.pace.wait(ctx); err != nil {
		return err
	}
	for i := range s.spots {
		sp := &s.spots[i]
		sp.x, sp.dx = bounce(sp.x+sp.dx, sp.dx, model.GridWidth)
		sp.y, sp.dy = bounce(sp.y+sp.dy, sp.dy, model.GridHeight)
	}
	for y := 0; y < model.GridHeight; y++ {
		for x := 0; x < model.GridWidth; x++ {
			v := s.opts.AmbientC + (s.rand.Float64()-0.5)*0.2
			for _, sp := range s.spots {
				ddx, ddy := float64(x)-sp.x, float64(y)-sp.y
				v += sp.heat * math.Exp(-(ddx*ddx+ddy*ddy)/(2*sp.radius*sp.radius))
			}
			f[y*model.GridWidth+x] = v
		}
	}
	return nil
}

func bounce(p, d, limit float64) (float64, float64) {
	if p < 0 {
		return -p, -d
	}
	if p >= limit {
		return 2*limit - p - 1e-9, -d
	}
	return p, d
}

// Static returns the same left-to-right, top-to-bottom ramp from AmbientC
// to AmbientC+SpanC on every capture.
type Static struct {
	opts Options
	pace pacer
}

func NewStatic(opts Options) *Static {
	return &Static{opts: opts, pace: pacer{interval: opts.Interval}}
}

func (s *Static) Capture(ctx context.Context, f *model.Frame) error {
	if err := s.pace.wait(ctx); err != nil {
		return err
	}
	step := s.opts.SpanC / (model.FrameLen - 1)
	for i := range f {
		f[i] = s.opts.AmbientC + float64(i)*step
	}
	return nil
}

// led lights an indicator for the duration of each capture.
type led struct {
	Sampler
	pin gpio.PinOut
}

// WithLED wraps s so pin is driven high while a frame is being captured and
// low otherwise, including when Capture fails. A nil pin returns s as is.
func WithLED(s Sampler, pin gpio.PinOut) Sampler {
	if pin == nil {
		return s
	}
	return &led{Sampler: s, pin: pin}
}

func (l *led) Capture(ctx context.Context, f *model.Frame) error {
	if err := l.pin.Out(gpio.High); err != nil {
		return fmt.Errorf("sensor: led on: %w", err)
	}
	err := l.Sampler.Capture(ctx, f)
	if offErr := l.pin.Out(gpio.Low); offErr != nil && err == nil {
		err = fmt.Errorf("sensor: led off: %w", offErr)
	}
	return err
}
