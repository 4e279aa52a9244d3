package storage

import (
	"image"
	"image/color"
	"image/png"
	"math"
	"os"

	"github.com/san-kum/fieldsim/internal/field"
)

// Image converts a display field with channels in [0, 1] to an image. Row 0
// of the field is the bottom of the picture.
func Image(f *field.Field) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, f.W, f.H))
	for y := 0; y < f.H; y++ {
		for x := 0; x < f.W; x++ {
			v := f.At(x, y)
			img.SetNRGBA(x, f.H-1-y, color.NRGBA{R: to8(v[0]), G: to8(v[1]), B: to8(v[2]), A: to8(v[3])})
		}
	}
	return img
}

func to8(v float32) uint8 {
	if math.IsNaN(float64(v)) || v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}

func WritePNG(path string, f *field.Field) error {
	out, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := png.Encode(out, Image(f)); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
