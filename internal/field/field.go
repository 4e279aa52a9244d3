package field

import (
	"errors"
	"fmt"
	"math"
)

// Channels per cell.
const Channels = 4

var ErrSizeMismatch = errors.New("field: size mismatch")

type Field struct {
	W, H int
	Pix  []float32
}

func New(w, h int) *Field {
	if w < 0 {
		w = 0
	}
	if h < 0 {
		h = 0
	}
	return &Field{W: w, H: h, Pix: make([]float32, w*h*Channels)}
}

// FromPix wraps an existing RGBA slice.
func FromPix(w, h int, pix []float32) (*Field, error) {
	if len(pix) != w*h*Channels {
		return nil, fmt.Errorf("%w: %dx%d needs %d values, got %d", ErrSizeMismatch, w, h, w*h*Channels, len(pix))
	}
	return &Field{W: w, H: h, Pix: pix}, nil
}

func (f *Field) offset(x, y int) int { return (y*f.W + x) * Channels }

func (f *Field) At(x, y int) [4]float32 {
	i := f.offset(x, y)
	return [4]float32{f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]}
}

func (f *Field) Set(x, y int, v [4]float32) {
	i := f.offset(x, y)
	copy(f.Pix[i:i+Channels], v[:])
}

func (f *Field) Clone() *Field {
	c := &Field{W: f.W, H: f.H, Pix: make([]float32, len(f.Pix))}
	copy(c.Pix, f.Pix)
	return c
}

func (f *Field) Equal(other *Field) bool {
	if other == nil || f.W != other.W || f.H != other.H {
		return false
	}
	for i := range f.Pix {
		if f.Pix[i] != other.Pix[i] {
			return false
		}
	}
	return true
}

func (f *Field) IsValid() bool {
	for _, v := range f.Pix {
		if math.IsNaN(float64(v)) || math.IsInf(float64(v), 0) {
			return false
		}
	}
	return true
}

// Channel copies one channel into a float64 grid indexed [y][x].
func (f *Field) Channel(c int) [][]float64 {
	out := make([][]float64, f.H)
	for y := 0; y < f.H; y++ {
		row := make([]float64, f.W)
		for x := 0; x < f.W; x++ {
			row[x] = float64(f.Pix[f.offset(x, y)+c])
		}
		out[y] = row
	}
	return out
}

// NDC maps a cell index to the [-1, 1) coordinate used by the generators.
func NDC(p, n int) float64 {
	return float64(p)*2/float64(n) - 1
}
