package tui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/fieldsim/internal/field"
)

// Picture renders a display field into cols×rows terminal cells, two field
// samples per cell using the upper half block. Row 0 of the field is drawn
// at the bottom.
func Picture(f *field.Field, cols, rows int) string {
	if f == nil || f.W == 0 || f.H == 0 || cols <= 0 || rows <= 0 {
		return ""
	}
	var b strings.Builder
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			x := c * f.W / cols
			top := sample(f, x, 2*r, 2*rows)
			bottom := sample(f, x, 2*r+1, 2*rows)
			style := lipgloss.NewStyle().Foreground(top).Background(bottom)
			b.WriteString(style.Render("▀"))
		}
		if r < rows-1 {
			b.WriteByte('\n')
		}
	}
	return b.String()
}

// sample maps screen sub-row sy of n (0 at the top) to a field color.
func sample(f *field.Field, x, sy, n int) lipgloss.Color {
	y := f.H - 1 - sy*f.H/n
	v := f.At(x, y)
	return hexColor(unit8(v[0]), unit8(v[1]), unit8(v[2]))
}

func unit8(v float32) uint8 {
	if !(v > 0) {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
