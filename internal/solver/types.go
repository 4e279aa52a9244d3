package solver

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/fieldsim/internal/field"
)

var (
	// ErrInvalidGrid indicates non-positive or oversized grid dimensions.
	ErrInvalidGrid = errors.New("solver: invalid grid size")

	// ErrUnknownVariant indicates a variant name with no pass plan.
	ErrUnknownVariant = errors.New("solver: unknown variant")
)

type Variant string

const (
	Fluid  Variant = "fluid"
	Magnet Variant = "magnet"
)

func ParseVariant(s string) (Variant, error) {
	switch Variant(s) {
	case Fluid, Magnet:
		return Variant(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVariant, s)
}

// Variants lists the supported variants.
func Variants() []Variant { return []Variant{Fluid, Magnet} }

// Params are the host-tunable numbers.
type Params struct {
	// Iterations is the number of Jacobi pressure passes per step.
	Iterations int
	// Force is the effective force coefficient c.
	Force float32
	// Gain scales the display mapping.
	Gain float32
}

const (
	DefaultIterations = 10
	DefaultForce      = 0.005
	DefaultGain       = 1
)

func DefaultParams() Params {
	return Params{Iterations: DefaultIterations, Force: DefaultForce, Gain: DefaultGain}
}

// Config describes a simulator. Params are used as given; start from
// DefaultParams for the usual values.
type Config struct {
	Variant Variant
	Width   int
	Height  int

	// Initial seeds both buffers on construction and on Reset(nil).
	// Defaults: FluidInitial for fluid, Zero for magnet.
	Initial field.Generator
	// Input is the static source field of the fluid variant. Default: FluidSources.
	Input field.Generator
	// Magnet describes the control-point ring of the magnet variant.
	Magnet field.MagnetConfig

	Params Params
}

// Observer receives pass and step notifications.
type Observer interface {
	OnPass(program string, index int)
	OnStep(frame int, elapsed time.Duration)
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

func WithObserver(o Observer) Option {
	return func(s *Simulator) { s.observers = append(s.observers, o) }
}

// PassCounter is an Observer counting pass invocations per program.
type PassCounter struct {
	Counts map[string]int
	Order  []string
	Steps  int
}

func NewPassCounter() *PassCounter {
	return &PassCounter{Counts: make(map[string]int)}
}

func (c *PassCounter) OnPass(program string, _ int) {
	c.Counts[program]++
	c.Order = append(c.Order, program)
}

func (c *PassCounter) OnStep(int, time.Duration) { c.Steps++ }

// Reset clears the recorded passes.
func (c *PassCounter) Reset() {
	c.Counts = make(map[string]int)
	c.Order = nil
	c.Steps = 0
}
