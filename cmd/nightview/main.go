// Command nightview runs the low-light enhancement renderer headless.
//
// Frames come from a synthetic test pattern, a still image or, in builds
// with the gst tag, a GStreamer pipeline. The renderer draws into an
// offscreen target on the selected GPU backend and prints its counters
// periodically.
//
// Usage:
//
//	nightview -source still -input night.jpg -preset dusk.toml -watch
//	nightview -config nightview.toml -duration 10s
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	_ "github.com/gogpu/wgpu/hal/allbackends"

	"github.com/gogpu/nightview"
	"github.com/gogpu/nightview/capture"
	"github.com/gogpu/nightview/driver"
	"github.com/gogpu/nightview/frame"
	"github.com/gogpu/nightview/preset"
)

func main() {
	cfg, err := parseArgs(os.Args[1:], os.Stderr)
	if errors.Is(err, errUsage) {
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "nightview:", err)
		os.Exit(2)
	}
	if err := run(cfg, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "nightview:", err)
		os.Exit(1)
	}
}

func run(cfg config, stdout io.Writer) error {
	level, _ := parseLevel(cfg.Log.Level)
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	nightview.SetLogger(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if cfg.Duration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(cfg.Duration))
		defer cancel()
	}

	params := nightview.NewParams()
	if cfg.Preset.Path != "" {
		ps, err := preset.Load(cfg.Preset.Path)
		if err != nil {
			return err
		}
		ps.Apply(params)
		logger.Info("preset loaded", "name", ps.Name)
	}

	source, err := newSource(cfg.Source)
	if err != nil {
		return err
	}
	mode, _ := cfg.renderMode()

	dev, err := driver.OpenDevice(driver.Config{Backend: cfg.Backend})
	if err != nil {
		return err
	}
	defer dev.Close()

	target, err := driver.NewOffscreenTarget(dev, cfg.Output.Width, cfg.Output.Height)
	if err != nil {
		return err
	}
	defer target.Close()

	var wg sync.WaitGroup
	renderer := nightview.NewRenderer(
		nightview.WithParams(params),
		nightview.WithRenderMode(mode),
		nightview.WithFrameSize(cfg.Frame.Width, cfg.Frame.Height),
		nightview.WithSurfaceReady(func(s *frame.Surface) {
			wg.Go(func() {
				if err := source.Run(ctx, s); err != nil {
					logger.Error("frame source stopped", "err", err)
				}
			})
		}),
	)

	if cfg.Preset.Path != "" && cfg.Preset.Watch {
		wg.Go(func() {
			if err := preset.Watch(ctx, cfg.Preset.Path, params); err != nil {
				logger.Error("preset watch stopped", "err", err)
			}
		})
	}

	printer := newPrinter(cfg.Log.Lang, logger)
	if cfg.Log.Stats > 0 {
		wg.Go(func() { reportStats(ctx, printer, stdout, renderer, time.Duration(cfg.Log.Stats)) })
	}

	loop := driver.NewLoop(target, renderer, driver.LoopConfig{FPS: cfg.FPS, Mode: mode})
	err = loop.Run(ctx)
	stop()
	wg.Wait()

	printStats(printer, stdout, renderer.Stats())
	printer.Fprintf(stdout, "presented %d frames\n", target.Presented())
	return err
}

func newSource(cfg sourceConfig) (capture.Source, error) {
	switch cfg.Kind {
	case "pattern":
		return capture.NewTestPattern(cfg.FPS), nil
	case "still":
		return capture.NewStill(cfg.Input, cfg.FPS), nil
	case "gst":
		return capture.NewGStreamer(cfg.Input), nil
	}
	return nil, fmt.Errorf("unknown source %q", cfg.Kind)
}

func newPrinter(lang string, logger *slog.Logger) *message.Printer {
	tag, err := language.Parse(lang)
	if err != nil {
		logger.Warn("unknown language, using English", "lang", lang, "err", err)
		tag = language.English
	}
	return message.NewPrinter(tag)
}

func reportStats(ctx context.Context, p *message.Printer, w io.Writer, r *nightview.Renderer, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			printStats(p, w, r.Stats())
		}
	}
}

func printStats(p *message.Printer, w io.Writer, st nightview.Stats) {
	p.Fprintf(w, "%s: drawn %d, skipped %d, uploads %d, deposited %d, dropped %d\n",
		st.State, st.FramesDrawn, st.FramesSkipped, st.TextureUploads,
		st.Surface.Deposited, st.Surface.Dropped)
}
