package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/config"
	"github.com/san-kum/fieldsim/internal/logx"
	"github.com/san-kum/fieldsim/internal/metrics"
)

var (
	configFile  string
	dataDir     string
	logLevel    string
	metricsAddr string

	preset     string
	frames     int
	gridSize   int
	iterations int
	force      float32
	gain       float32
	interval   time.Duration
	backend    string
	fps        int

	axisDegrees float64
	slerpT      float32
	jsonOut     bool
	realtime    bool
)

// main registers the fieldsim commands and exits with status 1 on error.
func main() {
	rootCmd := &cobra.Command{
		Use:           "fieldsim",
		Short:         "GPU-style field simulations and a deferred scene renderer",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "data directory")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", config.DefaultLogLevel, "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve prometheus metrics on this address")

	runCmd := &cobra.Command{
		Use:   "run [variant]",
		Short: "run a simulation headless and save it",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runSimulation,
	}
	addSimFlags(runCmd)
	runCmd.Flags().IntVar(&frames, "frames", config.DefaultFrames, "number of frames")
	runCmd.Flags().BoolVar(&realtime, "realtime", false, "pace frames at --fps on a refresh loop")
	runCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "refresh rate with --realtime")

	liveCmd := &cobra.Command{
		Use:   "live [variant]",
		Short: "run a simulation in the terminal",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runLive,
	}
	addSimFlags(liveCmd)
	liveCmd.Flags().IntVar(&fps, "fps", 30, "refresh rate")

	guiCmd := &cobra.Command{
		Use:   "gui [variant]",
		Short: "run a simulation in a window",
		Args:  cobra.MaximumNArgs(1),
		RunE:  runGUI,
	}
	addSimFlags(guiCmd)
	guiCmd.Flags().StringVar(&backend, "backend", config.DefaultBackend, "device: cpu or gl")
	guiCmd.Flags().IntVar(&fps, "fps", config.DefaultFPS, "refresh rate")

	sceneCmd := &cobra.Command{
		Use:   "scene",
		Short: "run the slerp demo through the deferred renderer",
		Args:  cobra.NoArgs,
		RunE:  runScene,
	}
	sceneCmd.Flags().IntVar(&frames, "frames", 360, "number of frames")
	sceneCmd.Flags().Float64Var(&axisDegrees, "axis", 0, "rotation axis tilt in degrees")
	sceneCmd.Flags().Float32Var(&slerpT, "t", 0.5, "torus position along the arc, 0 to 1")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list runs",
		Args:  cobra.NoArgs,
		RunE:  listRuns,
	}

	showCmd := &cobra.Command{
		Use:   "show [run_id]",
		Short: "plot a run's series and energy spectrum",
		Args:  cobra.ExactArgs(1),
		RunE:  showRun,
	}
	showCmd.Flags().BoolVar(&jsonOut, "json", false, "print metadata and series as json")

	presetsCmd := &cobra.Command{
		Use:   "presets [variant]",
		Short: "list available presets for a variant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			presets := config.ListPresets(args[0])
			if len(presets) == 0 {
				fmt.Printf("no presets for variant: %s\n", args[0])
				return nil
			}
			fmt.Printf("presets for %s:\n", args[0])
			for _, p := range presets {
				fmt.Printf("  %s\n", p)
			}
			return nil
		},
	}

	rootCmd.AddCommand(runCmd, liveCmd, guiCmd, sceneCmd, listCmd, showCmd, presetsCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		stop()
		os.Exit(1)
	}
}

func addSimFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&preset, "preset", "", "use preset configuration")
	cmd.Flags().IntVar(&gridSize, "grid", config.DefaultGrid, "grid width and height")
	cmd.Flags().IntVar(&iterations, "iterations", 10, "pressure passes per step")
	cmd.Flags().Float32Var(&force, "force", 0.005, "effective force coefficient")
	cmd.Flags().Float32Var(&gain, "gain", 1, "display gain")
	cmd.Flags().DurationVar(&interval, "interval", 0, "delay between frames")
}

// loadConfig resolves defaults, then the preset, then the config file, then
// the flags the user actually set.
func loadConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	variant := config.DefaultVariant
	if len(args) > 0 {
		variant = args[0]
	}

	cfg := config.DefaultConfig()
	if preset != "" {
		cfg = config.GetPreset(variant, preset)
		if cfg == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets(variant))
		}
	}
	if configFile != "" {
		loaded, err := config.Load(configFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		cfg = loaded
	}
	if len(args) > 0 {
		cfg.Variant = variant
	}

	flags := cmd.Flags()
	if flags.Changed("grid") {
		cfg.Grid.Width, cfg.Grid.Height = gridSize, gridSize
	}
	if flags.Changed("iterations") {
		cfg.Iterations = iterations
	}
	if flags.Changed("force") {
		cfg.Force = force
	}
	if flags.Changed("gain") {
		cfg.Gain = gain
	}
	if flags.Changed("interval") {
		cfg.Interval = interval
	}
	if flags.Changed("frames") {
		cfg.Frames = frames
	}
	if flags.Changed("backend") {
		cfg.Backend = backend
	}
	if flags.Changed("fps") {
		cfg.FPS = fps
	}
	if flags.Changed("data") || cfg.DataDir == "" {
		cfg.DataDir = dataDir
	}
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = logLevel
	}
	if flags.Changed("metrics-addr") {
		cfg.MetricsAddr = metricsAddr
	}
	return cfg, cfg.Validate()
}

// newLogger builds the process logger. Full-screen commands log to a file
// in the data directory so the terminal stays clean.
func newLogger(cfg *config.Config, toFile bool) (*zap.Logger, error) {
	lc := logx.Config{Level: cfg.LogLevel}
	if toFile {
		if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
			return nil, err
		}
		lc.Output = filepath.Join(cfg.DataDir, "fieldsim.log")
	}
	l, err := logx.New(lc)
	if err != nil {
		return nil, err
	}
	logx.SetDefault(l)
	return l, nil
}

// serveMetrics starts the prometheus endpoint when an address is configured.
func serveMetrics(ctx context.Context, cfg *config.Config, c *metrics.Collector, logger *zap.Logger) {
	if cfg.MetricsAddr == "" {
		return
	}
	go func() {
		if err := metrics.Serve(ctx, cfg.MetricsAddr, c.Handler(), logger); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("metrics server", zap.Error(err))
		}
	}()
}
