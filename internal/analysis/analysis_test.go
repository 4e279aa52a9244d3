package analysis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/san-kum/fieldsim/internal/field"
)

func uniformFlow(w, h int, u, v float32) *field.Field {
	return field.Constant([4]float32{u, v, 0, 0})(w, h)
}

func TestKineticEnergy(t *testing.T) {
	assert.Zero(t, KineticEnergy(field.Zero(4, 4)))
	assert.InDelta(t, 0.5*(9+16), KineticEnergy(uniformFlow(4, 4, 3, 4)), 1e-9)
	assert.Zero(t, KineticEnergy(nil))
}

func TestDivergence(t *testing.T) {
	max, rms := Divergence(uniformFlow(8, 8, 1, 1))
	assert.Zero(t, max)
	assert.Zero(t, rms)

	// u = x gives unit divergence away from the clamped edges
	f := field.New(8, 8)
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			f.Set(x, y, [4]float32{float32(x), 0, 0, 0})
		}
	}
	max, rms = Divergence(f)
	assert.InDelta(t, 1, max, 1e-9)
	assert.Greater(t, rms, 0.5)
}

func TestScalarRange(t *testing.T) {
	f := field.FluidInitial(32, 32)
	lo, hi := ScalarRange(f, ChanT)
	assert.Equal(t, -1.0, lo)
	assert.Equal(t, 1.0, hi)
}

func TestSummarize(t *testing.T) {
	s := Summarize(field.FluidInitial(16, 16))
	assert.True(t, s.Finite)
	assert.Zero(t, s.KineticEnergy)
	assert.Equal(t, 1.0, s.MaxScalar)
}

func TestEnergySpectrumZeroField(t *testing.T) {
	spec := EnergySpectrum(field.Zero(16, 16))
	require.Len(t, spec, 9)
	for _, e := range spec {
		assert.Zero(t, e)
	}
}

func TestEnergySpectrumUniformFlow(t *testing.T) {
	spec := EnergySpectrum(uniformFlow(16, 16, 3, 4))
	// all energy sits in the mean mode and matches the kinetic energy
	assert.InDelta(t, KineticEnergy(uniformFlow(16, 16, 3, 4)), spec[0], 1e-9)
	for _, e := range spec[1:] {
		assert.InDelta(t, 0, e, 1e-12)
	}
}

func TestEnergySpectrumSingleMode(t *testing.T) {
	const n = 16
	f := field.New(n, n)
	for y := 0; y < n; y++ {
		for x := 0; x < n; x++ {
			f.Set(x, y, [4]float32{float32(math.Cos(2 * math.Pi * 3 * float64(x) / n)), 0, 0, 0})
		}
	}
	spec := EnergySpectrum(f)
	peak := 0
	for k := range spec {
		if spec[k] > spec[peak] {
			peak = k
		}
	}
	assert.Equal(t, 3, peak)
}

func TestPowerSpectrum(t *testing.T) {
	assert.Nil(t, PowerSpectrum(nil))

	data := make([]float64, 64)
	for i := range data {
		data[i] = math.Sin(2 * math.Pi * 4 * float64(i) / 64)
	}
	ps := PowerSpectrum(data)
	require.Len(t, ps, 32)
	assert.InDelta(t, 32, ps[4], 1e-6)
	assert.InDelta(t, 0, ps[0], 1e-9)
}
