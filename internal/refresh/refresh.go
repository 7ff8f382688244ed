// Package refresh drives the present/refresh handshake of a slow reflective
// display as an explicit state machine:
//
//	Idle -> Showing -> WaitingForRefreshWindow -> Refreshing -> PollingBusy -> Idle
//
// Step performs one transition so the cycle can be exercised without
// hardware; Run steps a whole cycle.
package refresh

import (
	"context"
	"errors"
	"fmt"
	"time"

	appLog "thermepd/internal/log"
	"thermepd/internal/render"
)

// Display is the panel side of the handshake.
type Display interface {
	// Present hands the composite to the display subsystem.
	Present(c *render.Composite) error
	// RefreshWindowRemaining is how long until the medium may refresh again.
	RefreshWindowRemaining() time.Duration
	// BeginRefresh starts the physical refresh.
	BeginRefresh() error
	// IsBusy reports whether the last refresh is still in progress.
	IsBusy() bool
}

// Sleeper suspends the caller for d, returning early with ctx.Err() when
// ctx is cancelled.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// State is a step of the refresh cycle.
type State int

const (
	Idle State = iota
	Showing
	WaitingForRefreshWindow
	Refreshing
	PollingBusy
)

func (s State) String() string {
	switch s {
	case Idle:
		return "Idle"
	case Showing:
		return "Showing"
	case WaitingForRefreshWindow:
		return "WaitingForRefreshWindow"
	case Refreshing:
		return "Refreshing"
	case PollingBusy:
		return "PollingBusy"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

var (
	// ErrBusyTimeout is returned when the busy flag does not clear within
	// the configured poll count or wall-clock bound.
	ErrBusyTimeout = errors.New("refresh: display stayed busy")
	// ErrNotIdle is returned by Show while a cycle is in progress.
	ErrNotIdle = errors.New("refresh: cycle already in progress")
)

// Options bounds the busy poll. Zero values disable the respective bound;
// at least one should be set.
type Options struct {
	MaxBusyPolls int
	BusyTimeout  time.Duration
}

// Stats describes the last completed (or aborted) cycle.
type Stats struct {
	Slept     time.Duration
	BusyPolls int
	Elapsed   time.Duration
}

// Controller owns the timing between frames.
type Controller struct {
	display Display
	sleeper Sleeper
	opts    Options
	now     func() time.Time

	state     State
	composite *render.Composite
	started   time.Time
	pollStart time.Time
	stats     Stats
}

// New returns an Idle controller. A nil sleeper uses TimerSleeper.
func New(d Display, s Sleeper, opts Options) *Controller {
	if s == nil {
		s = TimerSleeper{}
	}
	return &Controller{
		display: d,
		sleeper: s,
		opts:    opts,
		now:     time.Now,
	}
}

// State returns the current state.
func (c *Controller) State() State {
	return c.state
}

// LastStats returns the figures of the most recent cycle.
func (c *Controller) LastStats() Stats {
	return c.stats
}

// Show arms a cycle for comp (Idle -> Showing). Nothing is sent to the
// display until Step.
func (c *Controller) Show(comp *render.Composite) error {
	if c.state != Idle {
		return ErrNotIdle
	}
	c.composite = comp
	c.state = Showing
	c.started = c.now()
	c.stats = Stats{}
	return nil
}

// Step performs exactly one transition. In PollingBusy each call is one
// poll of the busy flag; the state only moves to Idle once it clears. Step
// on Idle is a no-op. On error the cycle is abandoned and the controller
// returns to Idle.
func (c *Controller) Step(ctx context.Context) error {
	switch c.state {
	case Idle:
		return nil

	case Showing:
		if err := c.display.Present(c.composite); err != nil {
			return c.abort(fmt.Errorf("refresh: present: %w", err))
		}
		c.state = WaitingForRefreshWindow

	case WaitingForRefreshWindow:
		if wait := c.display.RefreshWindowRemaining(); wait > 0 {
			appLog.Debug("waiting for refresh window", "wait", wait)
			if err := c.sleeper.Sleep(ctx, wait); err != nil {
				return c.abort(fmt.Errorf("refresh: sleep: %w", err))
			}
			c.stats.Slept = wait
		}
		c.state = Refreshing

	case Refreshing:
		if err := c.display.BeginRefresh(); err != nil {
			return c.abort(fmt.Errorf("refresh: begin: %w", err))
		}
		c.pollStart = c.now()
		c.state = PollingBusy

	case PollingBusy:
		c.stats.BusyPolls++
		if !c.display.IsBusy() {
			c.finish()
			return nil
		}
		if c.opts.MaxBusyPolls > 0 && c.stats.BusyPolls >= c.opts.MaxBusyPolls {
			return c.abort(fmt.Errorf("%w after %d polls", ErrBusyTimeout, c.stats.BusyPolls))
		}
		if c.opts.BusyTimeout > 0 && c.now().Sub(c.pollStart) >= c.opts.BusyTimeout {
			return c.abort(fmt.Errorf("%w for %s", ErrBusyTimeout, c.opts.BusyTimeout))
		}

	default:
		return c.abort(fmt.Errorf("refresh: invalid state %s", c.state))
	}
	return nil
}

// Run shows comp and steps until the cycle completes. The busy poll spins
// without sleeping: the refresh is short and fixed, and latency matters
// more than the CPU spent there.
func (c *Controller) Run(ctx context.Context, comp *render.Composite) error {
	if err := c.Show(comp); err != nil {
		return err
	}
	for c.state != Idle {
		if err := c.Step(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) finish() {
	c.stats.Elapsed = c.now().Sub(c.started)
	c.state = Idle
	c.composite = nil
}

func (c *Controller) abort(err error) error {
	appLog.Error("refresh cycle aborted", err, "state", c.state)
	c.finish()
	return err
}

// TimerSleeper blocks on a timer. The process is parked, not spinning,
// which is what lets the board drop into a low-power state.
type TimerSleeper struct{}

func (TimerSleeper) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
