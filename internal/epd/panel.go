// Package epd drives a four-grey e-paper panel (IL0373-class controller, as
// fitted to 2.9" 296x128 boards) over SPI using periph.io, and provides a
// headless stand-in with the same refresh timing for development.
package epd

import (
	"errors"
	"fmt"
	"image"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"thermepd/internal/convert"
	appLog "thermepd/internal/log"
	"thermepd/internal/render"
)

// Controller commands.
const (
	cmdPanelSetting   = 0x00
	cmdPowerSetting   = 0x01
	cmdPowerOff       = 0x02
	cmdPowerOn        = 0x04
	cmdBoosterSoft    = 0x06
	cmdDeepSleep      = 0x07
	cmdDataOld        = 0x10
	cmdDisplayRefresh = 0x12
	cmdDataNew        = 0x13
	cmdPLL            = 0x30
	cmdVCOMInterval   = 0x50
	cmdResolution     = 0x61
	cmdVCMDC          = 0x82
)

// maxTx is the largest single SPI write; spidev rejects bigger buffers.
const maxTx = 4096

// ErrHalted is returned by operations on a panel that was put to sleep.
var ErrHalted = errors.New("epd: panel is halted")

// Opts is the panel configuration.
type Opts struct {
	W int
	H int

	// Rotated means the controller's native scan is portrait (H wide, W
	// tall) and frames are turned 90° clockwise before upload.
	Rotated bool

	// MinRefreshInterval is the shortest allowed time between two full
	// refreshes; the medium degrades (ghosting, heat) when driven faster.
	MinRefreshInterval time.Duration

	// InitTimeout bounds the busy wait after power-on during Init.
	InitTimeout time.Duration
}

// Panel is the device handle.
type Panel struct {
	c    conn.Conn
	dc   gpio.PinOut
	rst  gpio.PinOut // optional
	busy gpio.PinIn

	rect        image.Rectangle
	rotated     bool
	minInterval time.Duration
	initTimeout time.Duration
	now         func() time.Time

	lastRefresh time.Time
	halted      bool
}

// NewSPI connects to the SPI port at 4MHz, mode 0 and returns a Panel.
// Init must be called before the first Present.
func NewSPI(p spi.Port, dc gpio.PinOut, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Panel, error) {
	c, err := p.Connect(4*physic.MegaHertz, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("epd: failed to connect SPI: %w", err)
	}
	return New(c, dc, rst, busy, opts)
}

// New wraps an already connected bus.
func New(c conn.Conn, dc gpio.PinOut, rst gpio.PinOut, busy gpio.PinIn, opts *Opts) (*Panel, error) {
	if c == nil || dc == nil || busy == nil {
		return nil, errors.New("epd: bus, DC and BUSY are required")
	}
	if opts == nil {
		opts = &Opts{W: 296, H: 128, Rotated: true, MinRefreshInterval: 5 * time.Second}
	}
	if opts.W <= 0 || opts.H <= 0 {
		return nil, fmt.Errorf("epd: invalid geometry %dx%d", opts.W, opts.H)
	}
	initTimeout := opts.InitTimeout
	if initTimeout <= 0 {
		initTimeout = 5 * time.Second
	}
	return &Panel{
		c:           c,
		dc:          dc,
		rst:         rst,
		busy:        busy,
		rect:        image.Rect(0, 0, opts.W, opts.H),
		rotated:     opts.Rotated,
		minInterval: opts.MinRefreshInterval,
		initTimeout: initTimeout,
		now:         time.Now,
	}, nil
}

func (p *Panel) String() string {
	return fmt.Sprintf("epd.Panel{%dx%d}", p.rect.Dx(), p.rect.Dy())
}

// Bounds returns the panel size.
func (p *Panel) Bounds() image.Rectangle {
	return p.rect
}

// Init resets the controller and loads the grey mode register sequence.
func (p *Panel) Init() error {
	if err := p.reset(); err != nil {
		return err
	}
	seq := []struct {
		cmd  byte
		data []byte
	}{
		{cmdPowerSetting, []byte{0x03, 0x00, 0x2B, 0x2B, 0x13}},
		{cmdBoosterSoft, []byte{0x17, 0x17, 0x17}},
		{cmdPowerOn, nil},
	}
	for _, s := range seq {
		if err := p.send(s.cmd, s.data); err != nil {
			return err
		}
	}
	if err := p.waitIdle(p.initTimeout); err != nil {
		return err
	}
	w, h := p.rect.Dx(), p.rect.Dy()
	if p.rotated {
		w, h = h, w
	}
	seq = []struct {
		cmd  byte
		data []byte
	}{
		// Grey mode, LUT from register, scan up, shift right.
		{cmdPanelSetting, []byte{0x3F}},
		{cmdPLL, []byte{0x3C}},
		{cmdResolution, []byte{byte(w), byte(h >> 8), byte(h)}},
		{cmdVCMDC, []byte{0x12}},
		{cmdVCOMInterval, []byte{0x97}},
	}
	for _, s := range seq {
		if err := p.send(s.cmd, s.data); err != nil {
			return err
		}
	}
	p.halted = false
	return nil
}

// Present loads the composite into the controller RAM without refreshing.
func (p *Panel) Present(c *render.Composite) error {
	if p.halted {
		return ErrHalted
	}
	if c == nil || c.Image == nil {
		return errors.New("epd: nil composite")
	}
	if b := c.Image.Bounds(); b.Dx() != p.rect.Dx() || b.Dy() != p.rect.Dy() {
		return fmt.Errorf("epd: composite is %dx%d, panel is %dx%d", b.Dx(), b.Dy(), p.rect.Dx(), p.rect.Dy())
	}
	img := c.Image
	if p.rotated {
		img = convert.RotateCW(img)
	}
	hi, lo, _, err := convert.PackPaletted(img)
	if err != nil {
		return err
	}
	if err := p.send(cmdDataOld, hi); err != nil {
		return err
	}
	return p.send(cmdDataNew, lo)
}

// RefreshWindowRemaining is the time left before the minimum refresh
// interval since the last refresh has elapsed.
func (p *Panel) RefreshWindowRemaining() time.Duration {
	if p.lastRefresh.IsZero() {
		return 0
	}
	left := p.minInterval - p.now().Sub(p.lastRefresh)
	if left < 0 {
		return 0
	}
	return left
}

// BeginRefresh starts the waveform. It returns immediately; poll IsBusy.
func (p *Panel) BeginRefresh() error {
	if p.halted {
		return ErrHalted
	}
	if err := p.send(cmdDisplayRefresh, nil); err != nil {
		return err
	}
	p.lastRefresh = p.now()
	return nil
}

// IsBusy reads the BUSY line, which the controller holds low while working.
func (p *Panel) IsBusy() bool {
	return p.busy.Read() == gpio.Low
}

// Halt powers the panel off and puts the controller in deep sleep. Init
// wakes it again.
func (p *Panel) Halt() error {
	if p.halted {
		return nil
	}
	if err := p.send(cmdPowerOff, nil); err != nil {
		return err
	}
	if err := p.waitIdle(p.initTimeout); err != nil {
		appLog.Error("epd: power off did not settle", err)
	}
	if err := p.send(cmdDeepSleep, []byte{0xA5}); err != nil {
		return err
	}
	p.halted = true
	return nil
}

func (p *Panel) reset() error {
	if p.rst == nil {
		return nil
	}
	if err := p.rst.Out(gpio.Low); err != nil {
		return fmt.Errorf("epd: failed to pull RST low: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	if err := p.rst.Out(gpio.High); err != nil {
		return fmt.Errorf("epd: failed to pull RST high: %w", err)
	}
	time.Sleep(10 * time.Millisecond)
	return nil
}

// send writes a command byte (DC low) followed by its data (DC high).
func (p *Panel) send(cmd byte, data []byte) error {
	if err := p.dc.Out(gpio.Low); err != nil {
		return fmt.Errorf("epd: DC low: %w", err)
	}
	if err := p.c.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("epd: command 0x%02X: %w", cmd, err)
	}
	if len(data) == 0 {
		return nil
	}
	if err := p.dc.Out(gpio.High); err != nil {
		return fmt.Errorf("epd: DC high: %w", err)
	}
	for len(data) > 0 {
		n := min(len(data), maxTx)
		if err := p.c.Tx(data[:n], nil); err != nil {
			return fmt.Errorf("epd: data for 0x%02X: %w", cmd, err)
		}
		data = data[n:]
	}
	return nil
}

// waitIdle spins on BUSY during bring-up and power-down, where no refresh
// controller is in charge.
func (p *Panel) waitIdle(timeout time.Duration) error {
	deadline := p.now().Add(timeout)
	for p.IsBusy() {
		if p.now().After(deadline) {
			return fmt.Errorf("epd: busy for more than %s", timeout)
		}
		time.Sleep(time.Millisecond)
	}
	return nil
}
