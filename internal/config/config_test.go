package config

import (
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/solver"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Variant != "fluid" {
		t.Errorf("expected variant fluid, got %s", cfg.Variant)
	}
	if cfg.Iterations != 10 {
		t.Errorf("expected 10 iterations, got %d", cfg.Iterations)
	}
	if cfg.Force != 0.005 {
		t.Errorf("expected force 0.005, got %f", cfg.Force)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestLegacyForce(t *testing.T) {
	if got := LegacyForce(10); math.Abs(float64(got)-0.005) > 1e-9 {
		t.Errorf("LegacyForce(10) = %g, want 0.005", got)
	}
	if got := LegacyForce(3); math.Abs(float64(got)-0.0015) > 1e-9 {
		t.Errorf("LegacyForce(3) = %g, want 0.0015", got)
	}
	if got := LegacyForce(0); got != 0 {
		t.Errorf("LegacyForce(0) = %f, want 0", got)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "fieldsim.yaml")
	cfg := DefaultConfig()
	cfg.Variant = "magnet"
	cfg.Grid = GridConfig{Width: 64, Height: 32}
	cfg.Interval = 40 * time.Millisecond
	cfg.Initial = "zero"
	cfg.Magnet.Halbach = false

	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}
	got, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *got != *cfg {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, cfg)
	}
}

func TestLoadFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.yaml")
	if err := os.WriteFile(path, []byte("iterations: 25\ninterval: 50ms\n"), 0644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Iterations != 25 || cfg.Interval != 50*time.Millisecond {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if cfg.Grid.Width != DefaultGrid || cfg.Backend != DefaultBackend {
		t.Errorf("defaults not kept: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"variant", func(c *Config) { c.Variant = "plasma" }},
		{"grid", func(c *Config) { c.Grid.Width = 0 }},
		{"iterations", func(c *Config) { c.Iterations = -1 }},
		{"interval", func(c *Config) { c.Interval = -time.Second }},
		{"backend", func(c *Config) { c.Backend = "vulkan" }},
		{"initial", func(c *Config) { c.Initial = "nope" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); !errors.Is(err, ErrInvalid) {
				t.Errorf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestSolverConfig(t *testing.T) {
	cfg := GetPreset("magnet", "quad")
	cfg.Initial = "zero"
	sc, err := cfg.SolverConfig()
	if err != nil {
		t.Fatal(err)
	}
	if sc.Variant != solver.Magnet {
		t.Errorf("variant = %s", sc.Variant)
	}
	if sc.Magnet.Poles != 4 || sc.Width != 128 {
		t.Errorf("unexpected solver config %+v", sc)
	}
	if sc.Initial == nil || !sc.Initial(2, 2).Equal(field.Zero(2, 2)) {
		t.Error("initial generator not resolved")
	}
}

func TestGetPreset(t *testing.T) {
	cfg := GetPreset("fluid", "small")
	if cfg == nil {
		t.Fatal("expected preset, got nil")
	}
	if cfg.Grid.Width != 64 {
		t.Errorf("expected width 64, got %d", cfg.Grid.Width)
	}
	if cfg.Backend != DefaultBackend {
		t.Errorf("preset should inherit defaults, got backend %q", cfg.Backend)
	}

	cfg.Grid.Width = 1
	if GetPreset("fluid", "small").Grid.Width != 64 {
		t.Error("GetPreset must return a copy")
	}
}

func TestGetPreset_NotFound(t *testing.T) {
	if GetPreset("fluid", "nonexistent") != nil {
		t.Error("expected nil for nonexistent preset")
	}
	if GetPreset("nonexistent", "small") != nil {
		t.Error("expected nil for nonexistent variant")
	}
}

func TestListPresets(t *testing.T) {
	for variant := range Presets {
		names := ListPresets(variant)
		if len(names) == 0 {
			t.Errorf("expected presets for %s", variant)
		}
		for _, n := range names {
			if err := GetPreset(variant, n).Validate(); err != nil {
				t.Errorf("preset %s/%s invalid: %v", variant, n, err)
			}
		}
	}
	if ListPresets("nonexistent") != nil {
		t.Error("expected nil for nonexistent variant")
	}
}

func TestWatchReloads(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "fieldsim.yaml")
	if err := Save(path, DefaultConfig()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	got := make(chan *Config, 4)
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config) { got <- c }, WithDebounce(20*time.Millisecond))
	}()

	// give the watcher time to register
	time.Sleep(100 * time.Millisecond)
	cfg := DefaultConfig()
	cfg.Iterations = 42
	if err := Save(path, cfg); err != nil {
		t.Fatal(err)
	}

	select {
	case c := <-got:
		if c.Iterations != 42 {
			t.Errorf("reloaded iterations = %d, want 42", c.Iterations)
		}
	case <-ctx.Done():
		t.Fatal("no reload before timeout")
	}
	cancel()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Errorf("Watch returned %v", err)
	}
}
