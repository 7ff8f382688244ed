package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"image/png"
	"os"
	"os/signal"
	"syscall"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"

	"thermepd/internal/bands"
	"thermepd/internal/config"
	"thermepd/internal/diag"
	"thermepd/internal/epd"
	appLog "thermepd/internal/log"
	"thermepd/internal/model"
	"thermepd/internal/pipeline"
	"thermepd/internal/refresh"
	"thermepd/internal/render"
	"thermepd/internal/sensor"
)

type flagConfig struct {
	configPath string
	once       bool
	renderOnly bool
	dump       string
	frames     int
	debug      bool
}

func main() {
	appLog.Info("thermepd starting", "version", "0.1.0")

	flags := parseFlags()

	conf, err := config.Load(flags.configPath)
	if err != nil {
		appLog.Error("failed to load config", err, "config_path", flags.configPath)
		os.Exit(1)
	}
	if flags.renderOnly {
		conf.Display.Driver = "headless"
	}
	if flags.debug {
		conf.LogLevel = "debug"
	}
	level, _ := appLog.ParseLevel(conf.LogLevel)
	appLog.SetLevel(level)

	appLog.Info("effective config",
		"sensor", conf.Sensor.Kind,
		"refresh_hz", conf.Sensor.RefreshHz,
		"display", conf.Display.Driver,
		"screen", fmt.Sprintf("%dx%d", conf.Display.Width, conf.Display.Height),
		"band_policy", conf.Render.BandPolicy,
		"indexing", conf.Render.Indexing,
		"layout", conf.Render.Layout,
		"scaling", conf.Render.Scaling,
		"once", flags.once,
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	if err := run(ctx, conf, flags); err != nil {
		appLog.Error("thermepd stopped", err)
		os.Exit(1)
	}
	appLog.Info("thermepd exiting")
}

func run(ctx context.Context, conf *config.Config, flags flagConfig) error {
	needHost := conf.Display.Driver == "epd" || conf.Sensor.LEDPin != ""
	if needHost {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("periph host init failed: %w", err)
		}
	}

	display, closeDisplay, err := openDisplay(conf)
	if err != nil {
		return err
	}
	defer closeDisplay()

	sampler, err := openSampler(conf)
	if err != nil {
		return err
	}

	calc, err := bands.Parse(conf.Render.BandPolicy)
	if err != nil {
		return err
	}
	idx, err := model.ParseIndexing(conf.Render.Indexing)
	if err != nil {
		return err
	}
	if idx == model.IndexLegacy {
		appLog.Warn("legacy y*24+x indexing enabled; the grid samples overlapping rows")
	}

	layout, err := render.ParseLayout(conf.Render.Layout)
	if err != nil {
		return err
	}
	scaling, err := render.ParseScaling(conf.Render.Scaling)
	if err != nil {
		return err
	}
	renderer, err := render.New(render.Options{
		Width:   conf.Display.Width,
		Height:  conf.Display.Height,
		Layout:  layout,
		Scaling: scaling,
		Padding: conf.Render.TextPadding,
	})
	if err != nil {
		return err
	}
	p := renderer.Placement()
	appLog.Info("grid placement", "rect", p.Grid, "scale_x", p.ScaleX, "scale_y", p.ScaleY)

	controller := refresh.New(display, refresh.TimerSleeper{}, refresh.Options{
		MaxBusyPolls: conf.Display.MaxBusyPolls,
		BusyTimeout:  seconds(conf.Display.BusyTimeoutSeconds),
	})

	counters := &diag.Counters{}
	if conf.DiagCron != "" {
		c, err := diag.Schedule(conf.DiagCron, counters)
		if err != nil {
			return err
		}
		defer c.Stop()
	}

	loop, err := pipeline.New(&pipeline.Context{
		Sampler:    sampler,
		Bands:      calc,
		Indexing:   idx,
		Renderer:   renderer,
		Controller: controller,
		Counters:   counters,
	})
	if err != nil {
		return err
	}

	if !flags.once {
		err := loop.Run(ctx, flags.frames)
		counters.Report()
		return err
	}

	res, err := loop.Step(ctx)
	if err != nil {
		return err
	}
	appLog.Info("frame displayed",
		"bands", res.Bands,
		"min_c", res.Summary.MinC,
		"mean_c", res.Summary.MeanC,
		"max_c", res.Summary.MaxC,
		"elapsed", res.Elapsed,
	)
	if flags.dump != "" {
		if err := writePNG(flags.dump, res); err != nil {
			return err
		}
		appLog.Info("preview written", "path", flags.dump)
	}
	return nil
}

func openDisplay(conf *config.Config) (refresh.Display, func(), error) {
	minInterval := seconds(conf.Display.MinRefreshSeconds)
	if conf.Display.Driver == "headless" {
		return epd.NewHeadless(minInterval, 0), func() {}, nil
	}

	port, err := spireg.Open(conf.Display.SPIPort)
	if err != nil {
		return nil, nil, fmt.Errorf("epd: failed to open SPI port: %w", err)
	}
	dc, err := pinByName(conf.Display.DCPin)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	rst, err := pinByName(conf.Display.RSTPin)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	busy, err := pinByName(conf.Display.BusyPin)
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	if err := busy.In(gpio.PullUp, gpio.NoEdge); err != nil {
		port.Close()
		return nil, nil, fmt.Errorf("epd: gpio %s In failed: %w", busy.Name(), err)
	}

	panel, err := epd.NewSPI(port, dc, rst, busy, &epd.Opts{
		W:                  conf.Display.Width,
		H:                  conf.Display.Height,
		Rotated:            conf.Display.Width > conf.Display.Height,
		MinRefreshInterval: minInterval,
	})
	if err != nil {
		port.Close()
		return nil, nil, err
	}
	if err := panel.Init(); err != nil {
		port.Close()
		return nil, nil, err
	}
	appLog.Info("panel ready", "panel", panel.String())

	closeFn := func() {
		if err := panel.Halt(); err != nil {
			appLog.Error("epd halt failed", err)
		}
		_ = port.Close()
	}
	return panel, closeFn, nil
}

func openSampler(conf *config.Config) (sensor.Sampler, error) {
	s, err := sensor.New(conf.Sensor.Kind, sensor.Options{
		Seed:     conf.Sensor.Seed,
		AmbientC: conf.Sensor.AmbientC,
		SpanC:    conf.Sensor.SpanC,
		Interval: time.Duration(float64(time.Second) / conf.Sensor.RefreshHz),
	})
	if err != nil {
		return nil, err
	}
	if conf.Sensor.LEDPin == "" {
		return s, nil
	}
	led, err := pinByName(conf.Sensor.LEDPin)
	if err != nil {
		return nil, err
	}
	if err := led.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("sensor: gpio %s Out failed: %w", led.Name(), err)
	}
	return sensor.WithLED(s, led), nil
}

func pinByName(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("gpio %s not found", name)
	}
	return p, nil
}

func writePNG(path string, res pipeline.Result) error {
	if res.Composite == nil || res.Composite.Image == nil {
		return errors.New("no composite to write")
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(f, res.Composite.Image); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func parseFlags() flagConfig {
	var cfg flagConfig

	flag.StringVar(&cfg.configPath, "config", "/etc/thermepd/config.yaml", "Path to config file")
	flag.BoolVar(&cfg.once, "once", false, "Capture, render and display one frame, then exit")
	flag.BoolVar(&cfg.renderOnly, "render-only", false, "Render only; do not touch display hardware")
	flag.StringVar(&cfg.dump, "dump", "", "With -once, write the composite as PNG to this path")
	flag.IntVar(&cfg.frames, "frames", 0, "Stop after this many frames (0 = run until signalled)")
	flag.BoolVar(&cfg.debug, "debug", false, "Debug logging, including the palette grid dump")

	flag.Parse()

	return cfg
}
