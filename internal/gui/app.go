// Package gui presents a simulator in a raylib window. With the software
// device the display pass is uploaded as a texture each frame; with the
// OpenGL device the passes draw straight into raylib's context.
package gui

import (
	"context"
	"fmt"
	"time"

	rl "github.com/gen2brain/raylib-go/raylib"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/animate"
	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/gpu/glgpu"
	"github.com/san-kum/fieldsim/internal/metrics"
	"github.com/san-kum/fieldsim/internal/scheduler"
	"github.com/san-kum/fieldsim/internal/shader"
	"github.com/san-kum/fieldsim/internal/solver"
)

// Theme colors
var (
	ColBg      = rl.NewColor(10, 10, 10, 255)
	ColAccent  = rl.NewColor(180, 180, 180, 255)
	ColSelect  = rl.NewColor(255, 255, 255, 255)
	ColText    = rl.NewColor(140, 140, 140, 255)
	ColTextDim = rl.NewColor(60, 60, 60, 255)
	ColError   = rl.NewColor(255, 68, 68, 255)
)

const (
	BackendCPU = "cpu"
	BackendGL  = "gl"
)

const fontPath = "/usr/share/fonts/liberation/LiberationMono-Regular.ttf"

type Config struct {
	Sim      solver.Config
	Backend  string
	Width    int
	Height   int
	FPS      int
	Interval time.Duration
	Logger   *zap.Logger

	// Observers receive the simulator's pass and step notifications.
	Observers []solver.Observer
}

type App struct {
	cfg    Config
	logger *zap.Logger

	dev    gpu.Device
	cpu    *gpu.CPUDevice
	sim    *solver.Simulator
	sched  *scheduler.Manual
	driver *animate.Driver
	meter  *metrics.FPSMeter

	font    rl.Font
	hasFont bool
	screen  rl.Texture2D
	pixels  []rgba
	err     error
	quit    bool
}

func initWindow(w, h, fps int) {
	rl.InitWindow(int32(w), int32(h), "fieldsim")
	rl.SetTargetFPS(int32(fps))
	rl.SetExitKey(0)
}

func loadFont() (rl.Font, bool) {
	font := rl.LoadFontEx(fontPath, 32, nil, 0)
	if font.Texture.ID == 0 {
		return font, false
	}
	rl.SetTextureFilter(font.Texture, rl.FilterBilinear)
	return font, true
}

// Run opens the window and blocks until it is closed, q is pressed or ctx
// ends.
func Run(ctx context.Context, cfg Config) error {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 1280, 720
	}
	if cfg.FPS <= 0 {
		cfg.FPS = 60
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	initWindow(cfg.Width, cfg.Height, cfg.FPS)
	defer rl.CloseWindow()

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.close()

	a.driver.Start()
	for !a.quit && !rl.WindowShouldClose() && ctx.Err() == nil {
		a.update()
		a.draw()
	}
	return a.err
}

func newApp(cfg Config) (*App, error) {
	a := &App{cfg: cfg, logger: cfg.Logger}

	switch cfg.Backend {
	case BackendGL:
		dev, err := glgpu.New(cfg.Width, cfg.Height, glgpu.WithLogger(cfg.Logger))
		if err != nil {
			return nil, err
		}
		a.dev = dev
	case BackendCPU, "":
		a.cpu = shader.NewCPUDevice()
		a.dev = a.cpu
	default:
		return nil, fmt.Errorf("gui: unknown backend %q", cfg.Backend)
	}

	opts := []solver.Option{solver.WithLogger(cfg.Logger)}
	for _, o := range cfg.Observers {
		opts = append(opts, solver.WithObserver(o))
	}
	sim, err := solver.New(a.dev, cfg.Sim, opts...)
	if err != nil {
		return nil, err
	}
	a.sim = sim

	a.sched = scheduler.NewManual(time.Now())
	a.meter = metrics.NewFPSMeter(metrics.DefaultFPSWindow, nil)
	a.driver = animate.New(sim, a.sched,
		animate.WithLogger(cfg.Logger),
		animate.WithInterval(cfg.Interval),
		animate.WithFrameHook(func() { a.meter.Tick() }),
		animate.WithErrorHandler(func(err error) { a.err = err }),
	)

	a.font, a.hasFont = loadFont()
	if a.cpu != nil {
		w, h := sim.Size()
		img := rl.GenImageColor(w, h, rl.Black)
		a.screen = rl.LoadTextureFromImage(img)
		rl.UnloadImage(img)
		rl.SetTextureFilter(a.screen, rl.FilterBilinear)
	}

	a.logger.Info("gui started",
		zap.String("backend", a.dev.Name()),
		zap.String("variant", string(sim.Variant())),
	)
	return a, nil
}

func (a *App) close() {
	if a.cpu != nil {
		rl.UnloadTexture(a.screen)
	}
	if a.hasFont {
		rl.UnloadFont(a.font)
	}
	if err := a.sim.Close(); err != nil {
		a.logger.Warn("simulator close", zap.Error(err))
	}
	if r, ok := a.dev.(interface{ Release() }); ok {
		r.Release()
	}
}

func (a *App) update() {
	p := a.sim.Params()
	switch {
	case rl.IsKeyPressed(rl.KeyQ):
		a.driver.Stop()
		a.quit = true
	case rl.IsKeyPressed(rl.KeySpace):
		a.err = nil
		a.driver.Toggle()
	case rl.IsKeyPressed(rl.KeyR):
		a.err = nil
		a.driver.Reset()
	case rl.IsKeyPressed(rl.KeyEqual), rl.IsKeyPressed(rl.KeyKpAdd):
		a.sim.SetIterations(p.Iterations + 1)
	case rl.IsKeyPressed(rl.KeyMinus), rl.IsKeyPressed(rl.KeyKpSubtract):
		a.sim.SetIterations(p.Iterations - 1)
	case rl.IsKeyPressed(rl.KeyRightBracket):
		a.sim.SetForce(p.Force * 1.25)
	case rl.IsKeyPressed(rl.KeyLeftBracket):
		a.sim.SetForce(p.Force / 1.25)
	}
}

func (a *App) draw() {
	rl.BeginDrawing()
	rl.ClearBackground(ColBg)

	if a.cpu != nil {
		a.sched.Advance(time.Now())
		a.drawTexture()
	} else {
		a.drawDirect()
	}
	a.drawHUD()

	rl.EndDrawing()
}
