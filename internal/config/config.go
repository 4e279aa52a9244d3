package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/solver"
)

const (
	DefaultVariant  = "fluid"
	DefaultGrid     = 256
	DefaultFrames   = 300
	DefaultFPS      = 60
	DefaultBackend  = "cpu"
	DefaultDataDir  = "data"
	DefaultLogLevel = "info"
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Variant     string        `yaml:"variant"`
	Grid        GridConfig    `yaml:"grid"`
	Initial     string        `yaml:"initial,omitempty"`
	Iterations  int           `yaml:"iterations"`
	Force       float32       `yaml:"force"`
	Gain        float32       `yaml:"gain"`
	Interval    time.Duration `yaml:"interval"`
	Frames      int           `yaml:"frames"`
	Backend     string        `yaml:"backend"`
	FPS         int           `yaml:"fps"`
	Magnet      MagnetConfig  `yaml:"magnet"`
	DataDir     string        `yaml:"data_dir"`
	MetricsAddr string        `yaml:"metrics_addr,omitempty"`
	LogLevel    string        `yaml:"log_level"`
}

type GridConfig struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

type MagnetConfig struct {
	Poles   int     `yaml:"poles"`
	Inner   float64 `yaml:"inner"`
	Outer   float64 `yaml:"outer"`
	Halbach bool    `yaml:"halbach"`
}

func DefaultConfig() *Config {
	p := solver.DefaultParams()
	m := field.DefaultMagnet()
	return &Config{
		Variant:    DefaultVariant,
		Grid:       GridConfig{Width: DefaultGrid, Height: DefaultGrid},
		Iterations: p.Iterations,
		Force:      p.Force,
		Gain:       p.Gain,
		Frames:     DefaultFrames,
		Backend:    DefaultBackend,
		FPS:        DefaultFPS,
		Magnet:     MagnetConfig{Poles: m.Poles, Inner: m.Inner, Outer: m.Outer, Halbach: m.Halbach},
		DataDir:    DefaultDataDir,
		LogLevel:   DefaultLogLevel,
	}
}

// LegacyForce converts a force slider value to the effective coefficient
// c = 0.001 · 0.5 · value.
func LegacyForce(value float32) float32 {
	return float32(0.001 * 0.5 * float64(value))
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if _, err := solver.ParseVariant(c.Variant); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if c.Grid.Width <= 0 || c.Grid.Height <= 0 {
		return fmt.Errorf("%w: grid %dx%d", ErrInvalid, c.Grid.Width, c.Grid.Height)
	}
	if c.Iterations < 0 {
		return fmt.Errorf("%w: iterations %d", ErrInvalid, c.Iterations)
	}
	if c.Interval < 0 {
		return fmt.Errorf("%w: interval %s", ErrInvalid, c.Interval)
	}
	if c.Backend != "cpu" && c.Backend != "gl" {
		return fmt.Errorf("%w: backend %q", ErrInvalid, c.Backend)
	}
	if c.Initial != "" {
		if _, err := field.Lookup(c.Initial); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalid, err)
		}
	}
	return nil
}

func (c *Config) Params() solver.Params {
	return solver.Params{Iterations: c.Iterations, Force: c.Force, Gain: c.Gain}
}

// SolverConfig builds the simulator configuration.
func (c *Config) SolverConfig() (solver.Config, error) {
	if err := c.Validate(); err != nil {
		return solver.Config{}, err
	}
	v, _ := solver.ParseVariant(c.Variant)
	sc := solver.Config{
		Variant: v,
		Width:   c.Grid.Width,
		Height:  c.Grid.Height,
		Magnet: field.MagnetConfig{
			Poles:   c.Magnet.Poles,
			Inner:   c.Magnet.Inner,
			Outer:   c.Magnet.Outer,
			Halbach: c.Magnet.Halbach,
		},
		Params: c.Params(),
	}
	if c.Initial != "" {
		sc.Initial, _ = field.Lookup(c.Initial)
	}
	return sc, nil
}
