package main

import (
	"context"
	"errors"
	"fmt"
	"math"
	"os"
	"text/tabwriter"
	"time"

	"github.com/guptarohit/asciigraph"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/analysis"
	"github.com/san-kum/fieldsim/internal/animate"
	"github.com/san-kum/fieldsim/internal/config"
	"github.com/san-kum/fieldsim/internal/demo"
	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/gui"
	"github.com/san-kum/fieldsim/internal/mesh"
	"github.com/san-kum/fieldsim/internal/metrics"
	"github.com/san-kum/fieldsim/internal/scene"
	"github.com/san-kum/fieldsim/internal/scheduler"
	"github.com/san-kum/fieldsim/internal/shader"
	"github.com/san-kum/fieldsim/internal/solver"
	"github.com/san-kum/fieldsim/internal/storage"
	"github.com/san-kum/fieldsim/internal/tui"
)

func runSimulation(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sc, err := cfg.SolverConfig()
	if err != nil {
		return err
	}
	st := storage.New(cfg.DataDir)
	if err := st.Init(); err != nil {
		return err
	}

	collector := metrics.NewCollector()
	serveMetrics(ctx, cfg, collector, logger)

	dev := shader.NewCPUDevice()
	sim, err := solver.New(dev, sc, solver.WithLogger(logger), solver.WithObserver(collector))
	if err != nil {
		return err
	}
	defer sim.Close()

	tracked := metrics.Standard()
	series := make([]storage.Sample, 0, cfg.Frames)
	var stepErr error

	runCtx, stop := context.WithCancel(ctx)
	defer stop()

	var (
		sched  scheduler.Scheduler
		manual *scheduler.Manual
		loop   *scheduler.Loop
		driver *animate.Driver
	)
	if realtime {
		loop = scheduler.NewLoop(cfg.FPS)
		sched = loop
	} else {
		manual = scheduler.NewManual(time.Now())
		sched = manual
	}
	driver = animate.New(sim, sched,
		animate.WithLogger(logger),
		animate.WithInterval(cfg.Interval),
		animate.WithErrorHandler(func(err error) {
			stepErr = err
			stop()
		}),
		animate.WithFrameHook(func() {
			snap, err := sim.Snapshot()
			if err != nil {
				stepErr = err
				return
			}
			sum := analysis.Summarize(snap)
			series = append(series, storage.Sample{
				Frame:         sim.Frame(),
				KineticEnergy: sum.KineticEnergy,
				RMSDivergence: sum.RMSDivergence,
				MaxScalar:     sum.MaxScalar,
			})
			for _, m := range tracked {
				m.Observe(snap, sim.Frame())
			}
			if driver.Frames() >= cfg.Frames {
				driver.Stop()
				stop()
			}
		}),
	)

	fmt.Printf("running %s simulation (%dx%d, %d frames)...\n", cfg.Variant, cfg.Grid.Width, cfg.Grid.Height, cfg.Frames)
	start := time.Now()
	if loop != nil {
		if configFile != "" {
			go postParams(runCtx, loop, sim, watchParams(runCtx, configFile, logger))
		}
		loop.Post(driver.Start)
		if err := loop.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
	} else {
		driver.Start()
		for driver.Frames() < cfg.Frames && stepErr == nil && runCtx.Err() == nil {
			manual.Advance(manual.Now().Add(cfg.Interval))
		}
		driver.Stop()
	}
	elapsed := time.Since(start)
	if stepErr != nil {
		return stepErr
	}

	final, err := sim.Snapshot()
	if err != nil {
		return err
	}
	values := make(map[string]float64, len(tracked))
	for _, m := range tracked {
		values[m.Name()] = m.Value()
	}

	run := &storage.Run{
		Meta: storage.RunMetadata{
			Variant:    cfg.Variant,
			Width:      cfg.Grid.Width,
			Height:     cfg.Grid.Height,
			Frames:     sim.Frame(),
			Iterations: cfg.Iterations,
			Force:      cfg.Force,
			Gain:       cfg.Gain,
			Backend:    dev.Name(),
			Elapsed:    elapsed,
			Metrics:    values,
		},
		Series:  series,
		Field:   final,
		Preview: dev.Screen(),
	}
	runID, err := st.Save(run)
	if err != nil {
		return err
	}

	fmt.Printf("completed in %v (%.1f frames/s)\n", elapsed, float64(sim.Frame())/elapsed.Seconds())
	fmt.Printf("run id: %s\n", runID)
	fmt.Printf("frames: %d\n", sim.Frame())
	fmt.Println("\nmetrics:")
	for _, m := range tracked {
		fmt.Printf("  %s: %.6g\n", m.Name(), m.Value())
	}
	if len(series) > 1 {
		fmt.Println()
		fmt.Println(asciigraph.Plot(energies(series),
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("kinetic energy"),
		))
	}
	return nil
}

func energies(series []storage.Sample) []float64 {
	out := make([]float64, len(series))
	for i, s := range series {
		out[i] = s.KineticEnergy
	}
	return out
}

func runLive(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, true)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sc, err := cfg.SolverConfig()
	if err != nil {
		return err
	}
	collector := metrics.NewCollector()
	serveMetrics(ctx, cfg, collector, logger)

	dev := shader.NewCPUDevice()
	sim, err := solver.New(dev, sc, solver.WithLogger(logger), solver.WithObserver(collector))
	if err != nil {
		return err
	}
	defer sim.Close()

	opts := []tui.Option{
		tui.WithLogger(logger),
		tui.WithFPS(cfg.FPS),
		tui.WithInterval(cfg.Interval),
	}
	if configFile != "" {
		opts = append(opts, tui.WithParams(watchParams(ctx, configFile, logger)))
	}
	return tui.Run(ctx, tui.New(sim, dev, opts...))
}

// postParams applies config revisions on the loop goroutine so setters never
// race a frame.
func postParams(ctx context.Context, loop *scheduler.Loop, sim *solver.Simulator, updates <-chan solver.Params) {
	for p := range updates {
		if ctx.Err() != nil {
			return
		}
		loop.Post(func() {
			sim.SetIterations(p.Iterations)
			sim.SetForce(p.Force)
			sim.SetGain(p.Gain)
		})
	}
}

// watchParams forwards the tunables of every valid config file revision.
func watchParams(ctx context.Context, path string, logger *zap.Logger) <-chan solver.Params {
	ch := make(chan solver.Params, 1)
	go func() {
		defer close(ch)
		err := config.Watch(ctx, path, func(c *config.Config) {
			select {
			case ch <- c.Params():
			case <-ctx.Done():
			}
		}, config.WithWatchLogger(logger))
		if err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("config watch stopped", zap.Error(err))
		}
	}()
	return ch
}

func runGUI(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	sc, err := cfg.SolverConfig()
	if err != nil {
		return err
	}
	collector := metrics.NewCollector()
	serveMetrics(ctx, cfg, collector, logger)

	return gui.Run(ctx, gui.Config{
		Sim:       sc,
		Backend:   cfg.Backend,
		FPS:       cfg.FPS,
		Interval:  cfg.Interval,
		Logger:    logger,
		Observers: []solver.Observer{collector},
	})
}

func runScene(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	cfg, err := loadConfig(cmd, args)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg, false)
	if err != nil {
		return err
	}
	defer logger.Sync() //nolint:errcheck

	collector := metrics.NewCollector()
	serveMetrics(ctx, cfg, collector, logger)

	dev := shader.NewCPUDevice(gpu.WithScreenSize(800, 600))
	backend, err := scene.NewMeshBackend(dev, mesh.DefaultCatalog(), scene.WithBackendLogger(logger))
	if err != nil {
		return err
	}
	defer backend.Close()
	renderer, err := scene.NewRenderer(backend,
		scene.WithLogger(logger),
		scene.WithDispatchHook(collector.ObserveMessage),
	)
	if err != nil {
		return err
	}

	d := demo.NewSlerp()
	d.AxisDegrees = axisDegrees
	d.T = slerpT
	d.Start(renderer)

	start := time.Now()
	draws := 0
	for i := 0; i < frames && ctx.Err() == nil; i++ {
		d.Frame(renderer)
		if err := renderer.Update(); err != nil {
			return err
		}
		draws += len(dev.TakeMeshDraws())
	}
	elapsed := time.Since(start)

	a, b := d.Rotations()
	stats := dev.Stats()
	fmt.Printf("frames: %d in %v\n", renderer.Frames(), elapsed)
	fmt.Printf("models: %v\n", backend.Models())
	fmt.Printf("draws: %d (%d per frame)\n", draws, draws/max(renderer.Frames(), 1))
	fmt.Printf("buffers: %d allocated\n", stats.BufferAllocs)
	fmt.Printf("counter: %d of %d\n", d.Count(), demo.Period)
	fmt.Printf("rotation a: %.1f°  b: %.1f°\n", angle(a.W), angle(b.W))
	return nil
}

func angle(w float32) float64 {
	return 2 * math.Acos(math.Max(-1, math.Min(1, float64(w)))) * 180 / math.Pi
}

func listRuns(cmd *cobra.Command, args []string) error {
	st := storage.New(dataDirFor(cmd))
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tVARIANT\tTIME\tGRID\tFRAMES\tITER\tFORCE\tELAPSED")

	for _, run := range runs {
		fmt.Fprintf(w, "%s\t%s\t%s\t%dx%d\t%d\t%d\t%.4g\t%v\n",
			run.ID,
			run.Variant,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Width, run.Height,
			run.Frames,
			run.Iterations,
			run.Force,
			run.Elapsed.Round(time.Millisecond),
		)
	}

	return w.Flush()
}

func showRun(cmd *cobra.Command, args []string) error {
	runID := args[0]
	st := storage.New(dataDirFor(cmd))

	if jsonOut {
		return st.Export(os.Stdout, runID)
	}

	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	series, err := st.LoadSeries(runID)
	if err != nil {
		return err
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("variant: %s  grid: %dx%d  frames: %d  backend: %s\n", meta.Variant, meta.Width, meta.Height, meta.Frames, meta.Backend)
	for name, v := range meta.Metrics {
		fmt.Printf("  %s: %.6g\n", name, v)
	}
	fmt.Println()

	if len(series) > 1 {
		e := energies(series)
		fmt.Println(asciigraph.Plot(e,
			asciigraph.Height(10),
			asciigraph.Width(80),
			asciigraph.Caption("kinetic energy"),
		))
		fmt.Println()

		n := 1
		for n < len(e) {
			n *= 2
		}
		padded := make([]float64, n)
		copy(padded, e)
		ps := analysis.PowerSpectrum(padded)
		peak := 0
		for i := 1; i < len(ps); i++ {
			if peak == 0 || ps[i] > ps[peak] {
				peak = i
			}
		}
		if peak > 0 {
			fmt.Printf("dominant energy oscillation: %d cycles over %d frames\n\n", peak, n)
		}
	}

	f, err := st.LoadField(runID)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	spectrum := analysis.EnergySpectrum(f)
	if len(spectrum) > 2 {
		logSpec := make([]float64, len(spectrum)-1)
		for k := 1; k < len(spectrum); k++ {
			logSpec[k-1] = math.Log10(spectrum[k] + 1e-30)
		}
		fmt.Println(asciigraph.Plot(logSpec,
			asciigraph.Height(12),
			asciigraph.Width(80),
			asciigraph.Caption("log10 E(k), k = 1.."+fmt.Sprint(len(spectrum)-1)),
		))
	}
	return nil
}

// dataDirFor resolves the data directory for commands that only read runs.
func dataDirFor(cmd *cobra.Command) string {
	if cmd.Flags().Changed("data") || configFile == "" {
		return dataDir
	}
	cfg, err := config.Load(configFile)
	if err != nil || cfg.DataDir == "" {
		return dataDir
	}
	return cfg.DataDir
}
