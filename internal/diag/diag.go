// Package diag collects loop counters and reports them, together with heap
// usage, on a cron schedule. Nothing here affects what is displayed.
package diag

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	appLog "thermepd/internal/log"
	"thermepd/internal/model"
)

// Counters is updated by the loop and read by the reporter goroutine.
type Counters struct {
	frames    atomic.Uint64
	busyPolls atomic.Uint64
	slept     atomic.Int64 // ns
	lastCycle atomic.Int64 // ns
}

// Observe records one finished iteration.
func (c *Counters) Observe(cycle, slept time.Duration, busyPolls int) {
	c.frames.Add(1)
	c.busyPolls.Add(uint64(busyPolls))
	c.slept.Add(int64(slept))
	c.lastCycle.Store(int64(cycle))
}

// Snapshot is a point-in-time copy of Counters plus heap figures.
type Snapshot struct {
	Frames     uint64
	BusyPolls  uint64
	Slept      time.Duration
	LastCycle  time.Duration
	HeapAlloc  uint64
	HeapSys    uint64
	NumGC      uint32
	Goroutines int
}

func (c *Counters) Snapshot() Snapshot {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return Snapshot{
		Frames:     c.frames.Load(),
		BusyPolls:  c.busyPolls.Load(),
		Slept:      time.Duration(c.slept.Load()),
		LastCycle:  time.Duration(c.lastCycle.Load()),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.HeapSys,
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

// Report logs a snapshot at info level.
func (c *Counters) Report() {
	s := c.Snapshot()
	appLog.Info("diagnostics",
		"frames", s.Frames,
		"busy_polls", s.BusyPolls,
		"slept", s.Slept,
		"last_cycle", s.LastCycle,
		"heap_alloc", s.HeapAlloc,
		"heap_sys", s.HeapSys,
		"num_gc", s.NumGC,
		"goroutines", s.Goroutines,
	)
}

// Schedule starts a cron runner calling c.Report on spec (standard 5-field
// syntax or descriptors such as "@every 10m"). The caller stops the
// returned runner on shutdown.
func Schedule(spec string, c *Counters) (*cron.Cron, error) {
	r := cron.New()
	if _, err := r.AddFunc(spec, c.Report); err != nil {
		return nil, fmt.Errorf("diag: invalid schedule %q: %w", spec, err)
	}
	r.Start()
	return r, nil
}

// DumpGrid logs the palette grid, bands and heap usage at debug level. It
// is cheap to call when debug logging is off.
func DumpGrid(g *model.Grid, b model.BandSet) {
	if !appLog.DebugEnabled() {
		return
	}
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	h := g.Histogram()
	appLog.Debug("grid",
		"bands", b,
		"histogram", fmt.Sprint(h),
		"heap_alloc", ms.HeapAlloc,
	)
	for y, row := range strings.Split(strings.TrimSuffix(g.String(), "\n"), "\n") {
		appLog.Debug("grid row", "y", y, "cells", row)
	}
}
