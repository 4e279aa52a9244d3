package config

import (
	"sort"
	"time"
)

var Presets = map[string]map[string]*Config{
	"fluid": {
		"default": {
			Variant: "fluid", Grid: GridConfig{Width: 256, Height: 256},
			Iterations: 10, Force: 0.005, Gain: 1,
		},
		"hires": {
			Variant: "fluid", Grid: GridConfig{Width: 1024, Height: 1024},
			Iterations: 10, Force: 0.005, Gain: 1,
		},
		"small": {
			Variant: "fluid", Grid: GridConfig{Width: 64, Height: 64},
			Iterations: 10, Force: 0.005, Gain: 1,
		},
		"viscous": {
			Variant: "fluid", Grid: GridConfig{Width: 128, Height: 128},
			Iterations: 40, Force: 0.002, Gain: 2,
		},
		"buoyant": {
			Variant: "fluid", Grid: GridConfig{Width: 128, Height: 128},
			Iterations: 10, Force: 0.02, Gain: 1,
		},
		"slow": {
			Variant: "fluid", Grid: GridConfig{Width: 256, Height: 256},
			Iterations: 10, Force: 0.005, Gain: 1, Interval: 100 * time.Millisecond,
		},
	},
	"magnet": {
		"halbach": {
			Variant: "magnet", Grid: GridConfig{Width: 256, Height: 256},
			Iterations: 10, Force: 0.005, Gain: 1,
			Magnet: MagnetConfig{Poles: 8, Inner: 0.32, Outer: 0.30, Halbach: true},
		},
		"alternating": {
			Variant: "magnet", Grid: GridConfig{Width: 256, Height: 256},
			Iterations: 10, Force: 0.005, Gain: 1,
			Magnet: MagnetConfig{Poles: 8, Inner: 0.32, Outer: 0.30, Halbach: false},
		},
		"quad": {
			Variant: "magnet", Grid: GridConfig{Width: 128, Height: 128},
			Iterations: 10, Force: 0.005, Gain: 1,
			Magnet: MagnetConfig{Poles: 4, Inner: 0.32, Outer: 0.30, Halbach: true},
		},
	},
}

// GetPreset returns a copy of the preset filled with defaults for the
// fields it leaves unset, or nil when it does not exist.
func GetPreset(variant, preset string) *Config {
	variantPresets, ok := Presets[variant]
	if !ok {
		return nil
	}
	p, ok := variantPresets[preset]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	cfg.Variant = p.Variant
	cfg.Grid = p.Grid
	cfg.Iterations = p.Iterations
	cfg.Force = p.Force
	cfg.Gain = p.Gain
	cfg.Interval = p.Interval
	if p.Magnet.Poles > 0 {
		cfg.Magnet = p.Magnet
	}
	return cfg
}

func ListPresets(variant string) []string {
	variantPresets, ok := Presets[variant]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(variantPresets))
	for name := range variantPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
