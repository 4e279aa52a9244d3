package field

import "fmt"

// Generator builds an initial condition for a w×h grid. Generators must be
// deterministic: the same size always yields the same field.
type Generator func(w, h int) *Field

func Zero(w, h int) *Field { return New(w, h) }

// FluidInitial places two opposite temperature bars across the centre line.
func FluidInitial(w, h int) *Field {
	f := New(w, h)
	for py := 0; py < h; py++ {
		y := NDC(py, h)
		for px := 0; px < w; px++ {
			x := NDC(px, w)
			var t float32
			if y > -0.1 && y < 0.1 {
				if x > -0.3 && x < -0.05 {
					t = 1
				} else if x > 0.05 && x < 0.3 {
					t = -1
				}
			}
			f.Set(px, py, [4]float32{0, 0, t, 0})
		}
	}
	return f
}

// FluidSources is the static input field: a warm source below the centre
// and a cold one above it.
func FluidSources(w, h int) *Field {
	f := New(w, h)
	for py := 0; py < h; py++ {
		y := NDC(py, h)
		for px := 0; px < w; px++ {
			x := NDC(px, w)
			var t float32
			if x > -0.2 && x < 0.2 {
				if y > -0.4 && y < -0.3 {
					t = .005
				} else if y > 0.3 && y < 0.4 {
					t = -.005
				}
			}
			f.Set(px, py, [4]float32{0, 0, t, 0})
		}
	}
	return f
}

// Constant fills every cell with v.
func Constant(v [4]float32) Generator {
	return func(w, h int) *Field {
		f := New(w, h)
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				f.Set(x, y, v)
			}
		}
		return f
	}
}

var generators = map[string]Generator{
	"zero":          Zero,
	"fluid":         FluidInitial,
	"fluid_sources": FluidSources,
}

// Lookup resolves a generator by its config name.
func Lookup(name string) (Generator, error) {
	g, ok := generators[name]
	if !ok {
		return nil, fmt.Errorf("unknown generator: %s", name)
	}
	return g, nil
}

func GeneratorNames() []string {
	names := make([]string, 0, len(generators))
	for name := range generators {
		names = append(names, name)
	}
	return names
}
