package metrics

import (
	"math"

	"github.com/san-kum/fieldsim/internal/analysis"
	"github.com/san-kum/fieldsim/internal/field"
)

// Metric accumulates a statistic over a sequence of field snapshots.
type Metric interface {
	Name() string
	Observe(f *field.Field, frame int)
	Value() float64
	Reset()
}

// Energy is the mean kinetic energy over all observed snapshots.
type Energy struct {
	name    string
	sum     float64
	samples int
}

func NewEnergy() *Energy {
	return &Energy{name: "energy"}
}

func (e *Energy) Name() string { return e.name }

func (e *Energy) Observe(f *field.Field, _ int) {
	e.sum += analysis.KineticEnergy(f)
	e.samples++
}

func (e *Energy) Value() float64 {
	if e.samples == 0 {
		return 0
	}
	return e.sum / float64(e.samples)
}

func (e *Energy) Reset() {
	e.sum = 0
	e.samples = 0
}

// EnergyDrift is the largest relative change of kinetic energy from the
// first non-zero observation.
type EnergyDrift struct {
	name     string
	initial  float64
	maxDrift float64
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(f *field.Field, _ int) {
	energy := analysis.KineticEnergy(f)
	if e.initial == 0 {
		e.initial = energy
		return
	}
	e.maxDrift = math.Max(e.maxDrift, math.Abs(energy-e.initial)/e.initial)
}

func (e *EnergyDrift) Value() float64 { return e.maxDrift }

func (e *EnergyDrift) Reset() {
	e.initial = 0
	e.maxDrift = 0
}

// Divergence is the mean rms divergence over all observed snapshots.
type Divergence struct {
	name    string
	sum     float64
	samples int
}

func NewDivergence() *Divergence {
	return &Divergence{name: "divergence_rms"}
}

func (d *Divergence) Name() string { return d.name }

func (d *Divergence) Observe(f *field.Field, _ int) {
	_, rms := analysis.Divergence(f)
	d.sum += rms
	d.samples++
}

func (d *Divergence) Value() float64 {
	if d.samples == 0 {
		return 0
	}
	return d.sum / float64(d.samples)
}

func (d *Divergence) Reset() {
	d.sum = 0
	d.samples = 0
}

// Stability is the fraction of snapshots that are finite with every speed
// under the threshold.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{name: "stability", threshold: threshold}
}

func (s *Stability) Name() string { return s.name }

func (s *Stability) Observe(f *field.Field, _ int) {
	s.samples++
	if !f.IsValid() {
		s.violations++
		return
	}
	for i := 0; i < len(f.Pix); i += field.Channels {
		if math.Hypot(float64(f.Pix[i]), float64(f.Pix[i+1])) > s.threshold {
			s.violations++
			return
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}

// Standard returns the metrics recorded for every run.
func Standard() []Metric {
	return []Metric{NewEnergy(), NewEnergyDrift(), NewDivergence(), NewStability(1.0)}
}
