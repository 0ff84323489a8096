// Package config assembles the runtime configuration of the arbook tools
// from environment variables and an optional TOML parameter file.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/lmittmann/tint"
	"go.uber.org/multierr"

	"github.com/ironsheep/arbook-tracker/internal/features"
	"github.com/ironsheep/arbook-tracker/internal/tracker"
	"github.com/ironsheep/arbook-tracker/internal/vision"
)

// Environment variables read by Load.
const (
	EnvLogLevel = "ARBOOK_LOG_LEVEL"
	EnvProvider = "ARBOOK_PROVIDER"
	EnvParams   = "ARBOOK_PARAMS"
)

// Config is the complete runtime configuration.
type Config struct {
	LogLevel slog.Level
	Provider string
	// ParamsPath is the TOML file the parameters were read from, if any.
	ParamsPath string

	Tracker tracker.Params
	Native  vision.NativeOptions
}

// paramsFile is the layout of the TOML parameter file.
type paramsFile struct {
	Tracker tracker.Params       `toml:"tracker"`
	Native  vision.NativeOptions `toml:"native"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		LogLevel: slog.LevelInfo,
		Provider: vision.NameNative,
		Tracker:  tracker.DefaultParams(),
		Native:   vision.DefaultNativeOptions(),
	}
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return LoadEnv(os.Getenv)
}

// LoadEnv reads the configuration through getenv and validates it.
func LoadEnv(getenv func(string) string) (Config, error) {
	cfg := Default()

	if v := getenv(EnvLogLevel); v != "" {
		level, err := ParseLevel(v)
		if err != nil {
			return cfg, err
		}
		cfg.LogLevel = level
	}
	if v := getenv(EnvProvider); v != "" {
		cfg.Provider = strings.ToLower(strings.TrimSpace(v))
	}
	if v := getenv(EnvParams); v != "" {
		if err := cfg.ReadParams(v); err != nil {
			return cfg, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// ReadParams overrides the tracker and native provider parameters with the
// values present in the TOML file at path. Unknown keys are an error.
func (c *Config) ReadParams(path string) error {
	pf := paramsFile{Tracker: c.Tracker, Native: c.Native}
	md, err := toml.DecodeFile(path, &pf)
	if err != nil {
		return fmt.Errorf("failed to read params file: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
	}
	c.Tracker = pf.Tracker
	c.Native = pf.Native
	c.ParamsPath = path
	return nil
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var err error
	switch c.Provider {
	case vision.NameNative, vision.NameOpenCV:
	default:
		err = multierr.Append(err, fmt.Errorf("%w: %q", vision.ErrUnknownProvider, c.Provider))
	}
	if e := c.Tracker.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("tracker: %w", e))
	}
	if e := c.Native.Features.Validate(); e != nil {
		err = multierr.Append(err, fmt.Errorf("native features: %w", e))
	}
	if c.Native.MaxDistance < 0 || c.Native.MaxDistance > features.DescriptorBits {
		err = multierr.Append(err, fmt.Errorf("native: max_distance must be in [0,%d]", features.DescriptorBits))
	}
	if c.Native.RANSAC.MaxIterations <= 0 {
		err = multierr.Append(err, fmt.Errorf("native ransac: max_iterations must be positive"))
	}
	if c.Native.RANSAC.Confidence <= 0 || c.Native.RANSAC.Confidence >= 1 {
		err = multierr.Append(err, fmt.Errorf("native ransac: confidence must be in (0,1)"))
	}
	return err
}

// ParseLevel accepts debug, info, warn (or warning) and error.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid log level %q", s)
	}
}

// NewLogger returns a tinted logger writing to w. Colour is disabled unless
// w is a terminal.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(w, &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05",
		NoColor:    !isTerminal(w),
	}))
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}

// Logger builds the logger for c on stderr.
func (c Config) Logger() *slog.Logger {
	return NewLogger(os.Stderr, c.LogLevel)
}

// NewTracker builds the configured provider and a tracker on top of it.
func (c Config) NewTracker(logger *slog.Logger) (*tracker.Tracker, error) {
	p, err := vision.New(c.Provider, c.Native)
	if err != nil {
		return nil, err
	}
	return tracker.New(p, c.Tracker, logger)
}
