package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/multierr"

	"github.com/ironsheep/arbook-tracker/internal/vision"
)

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

func writeParams(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "params.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadEnv_Defaults(t *testing.T) {
	cfg, err := LoadEnv(env(nil))
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}
	if diff := cmp.Diff(Default(), cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadEnv_Overrides(t *testing.T) {
	path := writeParams(t, `
[tracker]
prediction_attempts = 5
required_inliers = 0.7

[native.features]
max_keypoints = 500

[native.features.fast]
threshold = 30
`)
	cfg, err := LoadEnv(env(map[string]string{
		EnvLogLevel: "DEBUG",
		EnvProvider: " Native ",
		EnvParams:   path,
	}))
	if err != nil {
		t.Fatalf("LoadEnv failed: %v", err)
	}

	want := Default()
	want.LogLevel = slog.LevelDebug
	want.ParamsPath = path
	want.Tracker.PredictionAttempts = 5
	want.Tracker.RequiredInliers = 0.7
	want.Native.Features.MaxKeypoints = 500
	want.Native.Features.FAST.Threshold = 30
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("(-want +got):\n%s", diff)
	}
}

func TestLoadEnv_Errors(t *testing.T) {
	tests := []struct {
		name string
		vars map[string]string
	}{
		{"bad level", map[string]string{EnvLogLevel: "loud"}},
		{"unknown provider", map[string]string{EnvProvider: "sift"}},
		{"missing params file", map[string]string{EnvParams: "/does/not/exist.toml"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := LoadEnv(env(tc.vars)); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestReadParams_UnknownKey(t *testing.T) {
	cfg := Default()
	err := cfg.ReadParams(writeParams(t, "[tracker]\nrequired_matchez = 4\n"))
	if err == nil || !strings.Contains(err.Error(), "required_matchez") {
		t.Errorf("got %v, want unknown key error", err)
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	cfg := Default()
	cfg.Provider = "surf"
	cfg.Tracker.QuerySize = 0
	cfg.Native.RANSAC.Confidence = 1

	err := cfg.Validate()
	if got := len(multierr.Errors(err)); got != 3 {
		t.Fatalf("got %d errors, want 3: %v", got, err)
	}
	if !errors.Is(err, vision.ErrUnknownProvider) {
		t.Errorf("error does not wrap ErrUnknownProvider: %v", err)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"":        slog.LevelInfo,
		"Info":    slog.LevelInfo,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, slog.LevelInfo)
	logger.Debug("hidden")
	logger.Info("page recognized", "page", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Error("debug message logged at info level")
	}
	if !strings.Contains(out, "page recognized") || !strings.Contains(out, "page=7") {
		t.Errorf("unexpected output %q", out)
	}
	if strings.Contains(out, "\x1b[") {
		t.Error("colour codes written to a non-terminal")
	}
}

func TestNewTracker(t *testing.T) {
	tr, err := Default().NewTracker(nil)
	if err != nil {
		t.Fatalf("NewTracker failed: %v", err)
	}
	if tr.Provider().Name() != vision.NameNative {
		t.Errorf("provider = %q", tr.Provider().Name())
	}
}
