package solver

import (
	"fmt"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/san-kum/fieldsim/internal/shader"
)

// MagnetPhaseStep is the rotation advance per step, in turns.
const MagnetPhaseStep = 33.33 / 3600

type Simulator struct {
	dev       gpu.Device
	cfg       Config
	params    Params
	logger    *zap.Logger
	observers []Observer

	programs map[string]gpu.Program
	buf      *field.DoubleBuffer[gpu.Texture]
	scratch  gpu.Texture
	input    gpu.Texture

	pending field.Generator
	phase   float64
	frame   int
	closed  bool
}

// New validates cfg, compiles the variant's programs and allocates the
// field textures, in that order. A capability or program failure aborts
// before any texture exists.
func New(dev gpu.Device, cfg Config, opts ...Option) (*Simulator, error) {
	if dev == nil {
		return nil, gpu.ErrNotInitialized
	}
	if cfg.Variant == "" {
		cfg.Variant = Fluid
	}
	if _, err := ParseVariant(string(cfg.Variant)); err != nil {
		return nil, err
	}

	caps := dev.Capabilities()
	if !caps.FloatTextures {
		return nil, &gpu.CapabilityError{Capability: "float textures"}
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, cfg.Width, cfg.Height)
	}
	if caps.MaxTextureSize > 0 && (cfg.Width > caps.MaxTextureSize || cfg.Height > caps.MaxTextureSize) {
		return nil, fmt.Errorf("%w: %dx%d exceeds %d", ErrInvalidGrid, cfg.Width, cfg.Height, caps.MaxTextureSize)
	}

	s := &Simulator{
		dev:      dev,
		cfg:      cfg,
		params:   cfg.Params,
		logger:   zap.NewNop(),
		programs: make(map[string]gpu.Program),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.applyDefaults()
	if s.params.Iterations < 0 {
		s.params.Iterations = 0
	}

	names := shader.FluidPrograms
	if cfg.Variant == Magnet {
		names = shader.MagnetPrograms
	}
	for _, name := range names {
		p, err := dev.Program(name)
		if err != nil {
			return nil, err
		}
		s.programs[name] = p
	}

	if err := s.allocate(); err != nil {
		return nil, err
	}

	s.logger.Info("simulator initialized",
		zap.String("variant", string(cfg.Variant)),
		zap.String("device", dev.Name()),
		zap.Int("width", cfg.Width),
		zap.Int("height", cfg.Height),
		zap.Int("iterations", s.params.Iterations),
	)
	return s, nil
}

func (s *Simulator) applyDefaults() {
	switch s.cfg.Variant {
	case Fluid:
		if s.cfg.Initial == nil {
			s.cfg.Initial = field.FluidInitial
		}
		if s.cfg.Input == nil {
			s.cfg.Input = field.FluidSources
		}
	case Magnet:
		if s.cfg.Initial == nil {
			s.cfg.Initial = field.Zero
		}
		if s.cfg.Magnet.Poles == 0 {
			s.cfg.Magnet = field.DefaultMagnet()
		}
	}
}

func (s *Simulator) allocate() error {
	w, h := s.cfg.Width, s.cfg.Height
	init := s.cfg.Initial(w, h)

	var made []gpu.Texture
	alloc := func(w, h int, pix []float32) (gpu.Texture, error) {
		t, err := s.dev.NewTexture(w, h, pix)
		if err != nil {
			for _, m := range made {
				s.dev.DeleteTexture(m)
			}
			return gpu.Texture{}, err
		}
		made = append(made, t)
		return t, nil
	}

	front, err := alloc(w, h, init.Pix)
	if err != nil {
		return err
	}
	back, err := alloc(w, h, init.Pix)
	if err != nil {
		return err
	}
	if s.scratch, err = alloc(w, h, init.Pix); err != nil {
		return err
	}

	var in *field.Field
	if s.cfg.Variant == Magnet {
		in = field.MagnetRing(s.cfg.Magnet)
	} else {
		in = s.cfg.Input(w, h)
	}
	if s.input, err = alloc(in.W, in.H, in.Pix); err != nil {
		return err
	}

	s.buf = field.NewDoubleBuffer(front, back)
	return nil
}

type stage struct {
	program  string
	field    bool
	input    bool
	uniforms gpu.Uniforms
}

func (s *Simulator) plan() []stage {
	c := gpu.Uniforms{shader.UniformForce: s.params.Force}
	if s.cfg.Variant == Magnet {
		th := float32(2 * math.Pi * s.phase)
		return []stage{
			{program: shader.MagnetSource, input: true, uniforms: gpu.Uniforms{shader.UniformRot: mgl32.Rotate2D(th)}},
			{program: shader.MagnetForce, field: true, uniforms: c},
		}
	}

	st := make([]stage, 0, 4+s.params.Iterations)
	st = append(st,
		stage{program: shader.Source, field: true, input: true},
		stage{program: shader.Force, field: true, uniforms: c},
		stage{program: shader.Velocity, field: true},
	)
	for i := 0; i < s.params.Iterations; i++ {
		st = append(st, stage{program: shader.Pressure, field: true})
	}
	return append(st, stage{program: shader.Divergence, field: true})
}

// Step advances the simulation by one frame and draws the display pass.
func (s *Simulator) Step() error {
	if s == nil || s.dev == nil || s.buf == nil || s.closed {
		return gpu.ErrNotInitialized
	}
	start := time.Now()

	if s.pending != nil {
		if err := s.applyReset(); err != nil {
			return err
		}
	}

	stages := s.plan()
	back := s.buf.Next()
	read := s.buf.Current()
	n := len(stages)
	for i, st := range stages {
		target := back
		if (n-1-i)%2 == 1 {
			target = s.scratch
		}
		pass := gpu.Pass{Program: s.programs[st.program], Uniforms: st.uniforms, Target: target}
		if st.field {
			pass.Samplers = append(pass.Samplers, gpu.Binding{Name: shader.SamplerField, Texture: read})
		}
		if st.input {
			pass.Samplers = append(pass.Samplers, gpu.Binding{Name: shader.SamplerInput, Texture: s.input})
		}
		if err := s.dev.Draw(pass); err != nil {
			return fmt.Errorf("solver: pass %s (%d): %w", st.program, i, err)
		}
		s.notifyPass(st.program, i)
		read = target
	}
	s.buf.Swap()

	if err := s.drawDisplay(n); err != nil {
		return err
	}
	s.dev.Flush()

	if s.cfg.Variant == Magnet {
		s.phase += MagnetPhaseStep
		if s.phase >= 1 {
			s.phase--
		}
	}
	s.frame++

	elapsed := time.Since(start)
	for _, o := range s.observers {
		o.OnStep(s.frame, elapsed)
	}
	s.logger.Debug("step", zap.Int("frame", s.frame), zap.Int("passes", n+1), zap.Duration("elapsed", elapsed))
	return nil
}

func (s *Simulator) drawDisplay(index int) error {
	err := s.dev.Draw(gpu.Pass{
		Program:  s.programs[shader.Display],
		Samplers: []gpu.Binding{{Name: shader.SamplerField, Texture: s.buf.Current()}},
		Uniforms: gpu.Uniforms{shader.UniformGain: s.params.Gain},
		Target:   gpu.Screen,
	})
	if err != nil {
		return fmt.Errorf("solver: pass %s (%d): %w", shader.Display, index, err)
	}
	s.notifyPass(shader.Display, index)
	return nil
}

// Present redraws the display pass from the current buffer without
// advancing. Hosts call it to repaint while the driver is stopped.
func (s *Simulator) Present() error {
	if s == nil || s.dev == nil || s.buf == nil || s.closed {
		return gpu.ErrNotInitialized
	}
	err := s.dev.Draw(gpu.Pass{
		Program:  s.programs[shader.Display],
		Samplers: []gpu.Binding{{Name: shader.SamplerField, Texture: s.buf.Current()}},
		Uniforms: gpu.Uniforms{shader.UniformGain: s.params.Gain},
		Target:   gpu.Screen,
	})
	if err != nil {
		return fmt.Errorf("solver: present: %w", err)
	}
	s.dev.Flush()
	return nil
}

func (s *Simulator) notifyPass(program string, index int) {
	for _, o := range s.observers {
		o.OnPass(program, index)
	}
}

// applyReset keeps the request pending when a texture write fails so the
// next Step retries it. A generator of the wrong size is dropped.
func (s *Simulator) applyReset() error {
	f := s.pending(s.cfg.Width, s.cfg.Height)
	if f.W != s.cfg.Width || f.H != s.cfg.Height {
		s.pending = nil
		return fmt.Errorf("solver: reset: %w: generator returned %dx%d", field.ErrSizeMismatch, f.W, f.H)
	}
	for _, t := range []gpu.Texture{s.buf.Current(), s.buf.Next(), s.scratch} {
		if err := s.dev.WriteTexture(t, f.Pix); err != nil {
			return fmt.Errorf("solver: reset: %w", err)
		}
	}
	s.pending = nil
	s.phase = 0
	s.logger.Debug("reset applied", zap.Int("frame", s.frame))
	return nil
}

// Reset schedules reinitialization from gen before the next Step's first
// pass. A nil gen reuses the configured initial condition.
func (s *Simulator) Reset(gen field.Generator) {
	if gen == nil {
		gen = s.cfg.Initial
	}
	s.pending = gen
}

// ResetPending reports whether a reset will be applied by the next Step.
func (s *Simulator) ResetPending() bool { return s.pending != nil }

// DisplayTexture returns the most recently completed field.
func (s *Simulator) DisplayTexture() gpu.Texture {
	if s == nil || s.buf == nil {
		return gpu.Texture{}
	}
	return s.buf.Current()
}

// Snapshot reads the current field back from the device.
func (s *Simulator) Snapshot() (*field.Field, error) {
	if s == nil || s.buf == nil || s.closed {
		return nil, gpu.ErrNotInitialized
	}
	pix, err := s.dev.ReadTexture(s.buf.Current())
	if err != nil {
		return nil, err
	}
	return field.FromPix(s.cfg.Width, s.cfg.Height, pix)
}

// Close releases the simulator's textures. The device stays usable.
func (s *Simulator) Close() error {
	if s == nil || s.closed || s.buf == nil {
		return nil
	}
	both := s.buf.Both()
	for _, t := range []gpu.Texture{both[0], both[1], s.scratch, s.input} {
		s.dev.DeleteTexture(t)
	}
	s.closed = true
	s.logger.Info("simulator closed", zap.Int("frames", s.frame))
	return nil
}

func (s *Simulator) SetIterations(k int) {
	if k < 0 {
		k = 0
	}
	s.params.Iterations = k
}

func (s *Simulator) SetForce(c float32) { s.params.Force = c }
func (s *Simulator) SetGain(g float32)  { s.params.Gain = g }
func (s *Simulator) Params() Params     { return s.params }
func (s *Simulator) Frame() int         { return s.frame }
func (s *Simulator) Parity() int        { return s.buf.Parity() }
func (s *Simulator) Swaps() int         { return s.buf.Swaps() }
func (s *Simulator) Variant() Variant   { return s.cfg.Variant }

// Size returns the grid dimensions.
func (s *Simulator) Size() (int, int) { return s.cfg.Width, s.cfg.Height }

// Phase returns the magnet rotation phase in turns, in [0, 1).
func (s *Simulator) Phase() float64 { return s.phase }
