package analysis

import (
	"math"

	"github.com/san-kum/fieldsim/internal/field"
)

const (
	ChanU = 0
	ChanV = 1
	ChanT = 2
	ChanP = 3
)

// KineticEnergy is ½(u²+v²) averaged over cells.
func KineticEnergy(f *field.Field) float64 {
	if f == nil || f.W*f.H == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < len(f.Pix); i += field.Channels {
		u, v := float64(f.Pix[i]), float64(f.Pix[i+1])
		sum += u*u + v*v
	}
	return 0.5 * sum / float64(f.W*f.H)
}

// Divergence returns the largest magnitude and the rms of the central
// difference divergence ((uR-uL)+(vT-vB))/2, clamped at the edges.
func Divergence(f *field.Field) (max, rms float64) {
	if f == nil || f.W*f.H == 0 {
		return 0, 0
	}
	at := func(x, y, c int) float64 {
		x = min(f.W-1, x)
		x = maxInt(0, x)
		y = min(f.H-1, y)
		y = maxInt(0, y)
		return float64(f.Pix[(y*f.W+x)*field.Channels+c])
	}
	var sum float64
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			d := ((at(x+1, y, ChanU) - at(x-1, y, ChanU)) + (at(x, y+1, ChanV) - at(x, y-1, ChanV))) / 2
			sum += d * d
			if a := math.Abs(d); a > max {
				max = a
			}
		}
	}
	return max, math.Sqrt(sum / float64(f.W*f.H))
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// ScalarRange returns the extrema of channel c.
func ScalarRange(f *field.Field, c int) (lo, hi float64) {
	if f == nil || len(f.Pix) == 0 {
		return 0, 0
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for i := c; i < len(f.Pix); i += field.Channels {
		v := float64(f.Pix[i])
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Summary is a one-line diagnostic of a field.
type Summary struct {
	KineticEnergy float64
	MaxDivergence float64
	RMSDivergence float64
	MinScalar     float64
	MaxScalar     float64
	Finite        bool
}

func Summarize(f *field.Field) Summary {
	s := Summary{KineticEnergy: KineticEnergy(f), Finite: f.IsValid()}
	s.MaxDivergence, s.RMSDivergence = Divergence(f)
	s.MinScalar, s.MaxScalar = ScalarRange(f, ChanT)
	return s
}
