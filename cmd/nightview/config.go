package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/gogpu/nightview"
)

// config is the command configuration. It can be read from a TOML file and
// overridden by flags.
type config struct {
	Backend  string        `toml:"backend"`
	FPS      int           `toml:"fps"`
	Mode     string        `toml:"mode"`
	Duration duration `toml:"duration"`

	Frame  sizeConfig   `toml:"frame"`
	Output sizeConfig   `toml:"output"`
	Source sourceConfig `toml:"source"`
	Preset presetConfig `toml:"preset"`
	Log    logConfig    `toml:"log"`
}

type sizeConfig struct {
	Width  int `toml:"width"`
	Height int `toml:"height"`
}

type sourceConfig struct {
	// Kind is "pattern", "still" or "gst".
	Kind string `toml:"kind"`
	// Input is the image path for "still" and the URI for "gst".
	Input string `toml:"input"`
	FPS   int    `toml:"fps"`
}

type presetConfig struct {
	Path  string `toml:"path"`
	Watch bool   `toml:"watch"`
}

type logConfig struct {
	Level string   `toml:"level"`
	Lang  string   `toml:"lang"`
	Stats duration `toml:"stats"`
}

// duration is a time.Duration written as "1m30s" in TOML.
type duration time.Duration

func (d *duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return err
	}
	*d = duration(v)
	return nil
}

func (d duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func defaultConfig() config {
	return config{
		Backend: "auto",
		FPS:     30,
		Mode:    "continuous",
		Frame:   sizeConfig{Width: nightview.DefaultFrameWidth, Height: nightview.DefaultFrameHeight},
		Output:  sizeConfig{Width: 1280, Height: 720},
		Source:  sourceConfig{Kind: "pattern", FPS: 30},
		Log:     logConfig{Level: "info", Lang: "en", Stats: duration(5 * time.Second)},
	}
}

var errUsage = errors.New("usage")

// parseArgs builds the configuration: defaults, then the -config file, then
// every flag given on the command line.
func parseArgs(args []string, stderr io.Writer) (config, error) {
	cfg := defaultConfig()
	flags := cfg

	fs := flag.NewFlagSet("nightview", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "TOML configuration file")
	fs.StringVar(&flags.Backend, "backend", cfg.Backend, "GPU backend: auto, vulkan, metal, dx12, gl, software")
	fs.IntVar(&flags.FPS, "fps", cfg.FPS, "draw rate")
	fs.StringVar(&flags.Mode, "mode", cfg.Mode, "render mode: continuous or dirty")
	fs.DurationVar((*time.Duration)(&flags.Duration), "duration", time.Duration(cfg.Duration), "stop after this long (0 runs until interrupted)")
	fs.IntVar(&flags.Frame.Width, "frame-width", cfg.Frame.Width, "camera frame width")
	fs.IntVar(&flags.Frame.Height, "frame-height", cfg.Frame.Height, "camera frame height")
	fs.IntVar(&flags.Output.Width, "width", cfg.Output.Width, "output width")
	fs.IntVar(&flags.Output.Height, "height", cfg.Output.Height, "output height")
	fs.StringVar(&flags.Source.Kind, "source", cfg.Source.Kind, "frame source: pattern, still or gst")
	fs.StringVar(&flags.Source.Input, "input", cfg.Source.Input, "image path (still) or URI (gst)")
	fs.IntVar(&flags.Source.FPS, "source-fps", cfg.Source.FPS, "frame source rate")
	fs.StringVar(&flags.Preset.Path, "preset", cfg.Preset.Path, "enhancement preset file")
	fs.BoolVar(&flags.Preset.Watch, "watch", cfg.Preset.Watch, "reload the preset when it changes")
	fs.StringVar(&flags.Log.Level, "log-level", cfg.Log.Level, "log level: debug, info, warn, error")
	fs.StringVar(&flags.Log.Lang, "lang", cfg.Log.Lang, "language tag for statistics output")
	fs.DurationVar((*time.Duration)(&flags.Log.Stats), "stats", time.Duration(cfg.Log.Stats), "statistics interval (0 disables)")

	if err := fs.Parse(args); err != nil {
		return config{}, errUsage
	}
	if fs.NArg() > 0 {
		return config{}, fmt.Errorf("unexpected argument %q", fs.Arg(0))
	}

	if *configPath != "" {
		if err := loadConfigFile(*configPath, &cfg); err != nil {
			return config{}, err
		}
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	overrides := []struct {
		name  string
		apply func()
	}{
		{"backend", func() { cfg.Backend = flags.Backend }},
		{"fps", func() { cfg.FPS = flags.FPS }},
		{"mode", func() { cfg.Mode = flags.Mode }},
		{"duration", func() { cfg.Duration = flags.Duration }},
		{"frame-width", func() { cfg.Frame.Width = flags.Frame.Width }},
		{"frame-height", func() { cfg.Frame.Height = flags.Frame.Height }},
		{"width", func() { cfg.Output.Width = flags.Output.Width }},
		{"height", func() { cfg.Output.Height = flags.Output.Height }},
		{"source", func() { cfg.Source.Kind = flags.Source.Kind }},
		{"input", func() { cfg.Source.Input = flags.Source.Input }},
		{"source-fps", func() { cfg.Source.FPS = flags.Source.FPS }},
		{"preset", func() { cfg.Preset.Path = flags.Preset.Path }},
		{"watch", func() { cfg.Preset.Watch = flags.Preset.Watch }},
		{"log-level", func() { cfg.Log.Level = flags.Log.Level }},
		{"lang", func() { cfg.Log.Lang = flags.Log.Lang }},
		{"stats", func() { cfg.Log.Stats = flags.Log.Stats }},
	}
	for _, o := range overrides {
		if set[o.name] {
			o.apply()
		}
	}
	return cfg, cfg.validate()
}

func loadConfigFile(path string, cfg *config) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	defer f.Close()
	if err := toml.NewDecoder(f).DisallowUnknownFields().Decode(cfg); err != nil {
		return fmt.Errorf("config %s: %w", path, err)
	}
	return nil
}

func (c config) validate() error {
	if _, err := c.renderMode(); err != nil {
		return err
	}
	if _, err := parseLevel(c.Log.Level); err != nil {
		return err
	}
	switch c.Source.Kind {
	case "pattern":
	case "still", "gst":
		if c.Source.Input == "" {
			return fmt.Errorf("source %q needs -input", c.Source.Kind)
		}
	default:
		return fmt.Errorf("unknown source %q", c.Source.Kind)
	}
	if c.Frame.Width <= 0 || c.Frame.Height <= 0 || c.Output.Width <= 0 || c.Output.Height <= 0 {
		return errors.New("frame and output sizes must be positive")
	}
	return nil
}

func (c config) renderMode() (nightview.RenderMode, error) {
	switch strings.ToLower(c.Mode) {
	case "continuous", "continuously", "":
		return nightview.RenderContinuously, nil
	case "dirty", "when-dirty":
		return nightview.RenderWhenDirty, nil
	default:
		return 0, fmt.Errorf("unknown render mode %q", c.Mode)
	}
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("log level: %w", err)
	}
	return l, nil
}
