package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"

	"github.com/san-kum/fieldsim/internal/field"
)

// PowerSpectrum returns the magnitude of the first half of the spectrum of
// a real series.
func PowerSpectrum(data []float64) []float64 {
	if len(data) == 0 {
		return nil
	}
	spec := fft.FFTReal(data)
	ps := make([]float64, (len(spec)+1)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(spec[i])
	}
	return ps
}

// EnergySpectrum bins |Û|²+|V̂|² by integer wavenumber magnitude, for
// k = 0 .. min(W, H)/2. Coefficients are normalized by the cell count.
func EnergySpectrum(f *field.Field) []float64 {
	if f == nil || f.W == 0 || f.H == 0 {
		return nil
	}
	u := fft.FFT2Real(f.Channel(ChanU))
	v := fft.FFT2Real(f.Channel(ChanV))

	n := float64(f.W * f.H)
	kmax := min(f.W, f.H) / 2
	bins := make([]float64, kmax+1)
	for y := 0; y < f.H; y++ {
		ky := wavenumber(y, f.H)
		for x := 0; x < f.W; x++ {
			kx := wavenumber(x, f.W)
			k := int(math.Round(math.Hypot(float64(kx), float64(ky))))
			if k > kmax {
				continue
			}
			a, b := cmplx.Abs(u[y][x])/n, cmplx.Abs(v[y][x])/n
			bins[k] += 0.5 * (a*a + b*b)
		}
	}
	return bins
}

func wavenumber(i, n int) int {
	if i > n/2 {
		return i - n
	}
	return i
}
