package epd

import (
	"bytes"
	"image/png"
	"testing"
	"time"
)

func TestHeadlessCycle(t *testing.T) {
	h := NewHeadless(5*time.Second, 2)
	t0 := time.Unix(1000, 0)
	now := t0
	h.now = func() time.Time { return now }

	if err := h.BeginRefresh(); err == nil {
		t.Fatal("expected error refreshing before Present")
	}
	if h.Shown() != nil {
		t.Fatal("something shown before the first refresh")
	}

	c := whiteComposite(296, 128)
	if err := h.Present(c); err != nil {
		t.Fatal(err)
	}
	// The caller's buffer is free to change after Present.
	c.Image.Pix[0] = 0
	if err := h.BeginRefresh(); err != nil {
		t.Fatal(err)
	}
	if got := h.Shown().Pix[0]; got != 3 {
		t.Fatalf("shown pixel = %d, want the presented 3", got)
	}
	for i := 0; i < 2; i++ {
		if !h.IsBusy() {
			t.Fatalf("poll %d: not busy", i)
		}
	}
	if h.IsBusy() {
		t.Fatal("still busy after 2 polls")
	}

	now = t0.Add(time.Second)
	if got := h.RefreshWindowRemaining(); got != 4*time.Second {
		t.Fatalf("remaining = %s, want 4s", got)
	}
	now = t0.Add(time.Minute)
	if got := h.RefreshWindowRemaining(); got != 0 {
		t.Fatalf("remaining = %s, want 0", got)
	}
	if h.Refreshes() != 1 {
		t.Fatalf("refreshes = %d", h.Refreshes())
	}
}

func TestHeadlessWritePNG(t *testing.T) {
	h := NewHeadless(0, 0)
	var buf bytes.Buffer
	if err := h.WritePNG(&buf); err == nil {
		t.Fatal("expected error before anything is shown")
	}
	if err := h.Present(whiteComposite(296, 128)); err != nil {
		t.Fatal(err)
	}
	if err := h.BeginRefresh(); err != nil {
		t.Fatal(err)
	}
	if err := h.WritePNG(&buf); err != nil {
		t.Fatal(err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 296 || b.Dy() != 128 {
		t.Fatalf("bounds = %v", b)
	}
}
