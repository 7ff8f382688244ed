package epd

import (
	"errors"
	"image"
	"image/png"
	"io"
	"sync"
	"time"

	"thermepd/internal/render"
)

// Headless mimics the panel's timing without any hardware: it keeps the
// last refreshed composite, enforces the same minimum refresh interval and
// reports busy for a fixed number of polls after each refresh.
type Headless struct {
	minInterval time.Duration
	busyPolls   int
	now         func() time.Time

	mu          sync.Mutex
	pending     *image.Paletted
	shown       *image.Paletted
	lastRefresh time.Time
	busyLeft    int
	refreshes   int
}

// NewHeadless returns a display that stays busy for busyPolls polls after
// every refresh.
func NewHeadless(minInterval time.Duration, busyPolls int) *Headless {
	return &Headless{
		minInterval: minInterval,
		busyPolls:   busyPolls,
		now:         time.Now,
	}
}

// Present copies the composite image; the caller may reuse its buffer.
func (h *Headless) Present(c *render.Composite) error {
	if c == nil || c.Image == nil {
		return errors.New("epd: nil composite")
	}
	cp := image.NewPaletted(c.Image.Rect, c.Image.Palette)
	copy(cp.Pix, c.Image.Pix)

	h.mu.Lock()
	h.pending = cp
	h.mu.Unlock()
	return nil
}

func (h *Headless) RefreshWindowRemaining() time.Duration {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastRefresh.IsZero() {
		return 0
	}
	return max(0, h.minInterval-h.now().Sub(h.lastRefresh))
}

func (h *Headless) BeginRefresh() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.pending == nil {
		return errors.New("epd: refresh without a presented composite")
	}
	h.shown = h.pending
	h.lastRefresh = h.now()
	h.busyLeft = h.busyPolls
	h.refreshes++
	return nil
}

func (h *Headless) IsBusy() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.busyLeft > 0 {
		h.busyLeft--
		return true
	}
	return false
}

// Refreshes returns how many refreshes were started.
func (h *Headless) Refreshes() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.refreshes
}

// Shown returns the image on "screen", nil before the first refresh.
func (h *Headless) Shown() *image.Paletted {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.shown
}

// WritePNG encodes the image on screen.
func (h *Headless) WritePNG(w io.Writer) error {
	img := h.Shown()
	if img == nil {
		return errors.New("epd: nothing shown yet")
	}
	return png.Encode(w, img)
}
