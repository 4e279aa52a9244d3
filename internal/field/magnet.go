package field

import "math"

// MagnetConfig describes a ring magnet made of alternating poles.
type MagnetConfig struct {
	Poles   int
	Inner   float64
	Outer   float64
	Halbach bool
}

func DefaultMagnet() MagnetConfig {
	return MagnetConfig{Poles: 8, Inner: 0.32, Outer: 0.3, Halbach: true}
}

// MagnetRing returns the magnet as a 1×N field of control points (x, y, 0, q),
// zero-padded so N is a power of two.
func MagnetRing(cfg MagnetConfig) *Field {
	if cfg.Poles <= 0 {
		return New(1, 1)
	}
	p1, p2 := float32(-1), float32(1)
	if cfg.Halbach {
		p1, p2 = 1, -1
	}

	poles := float64(cfg.Poles)
	div := poles / 256.0
	pts := make([][4]float32, 0, 512)
	at := func(a, r float64) (float32, float32) {
		th := 2 * math.Pi * a / poles
		return float32(math.Cos(th) * r), float32(math.Sin(th) * r)
	}

	for i := 0; i < cfg.Poles; i++ {
		for d := -1.0 / 4; d < 1.0/4; d += div {
			a := float64(i) + d
			ix, iy := at(a, cfg.Inner)
			ox, oy := at(a, cfg.Outer)
			if i%2 == 0 {
				pts = append(pts, [4]float32{ix, iy, 0, -1}, [4]float32{ox, oy, 0, 1})
			} else {
				pts = append(pts, [4]float32{ix, iy, 0, 1}, [4]float32{ox, oy, 0, -1})
			}
		}
	}
	for i := 0; i < cfg.Poles; i++ {
		for d := -1.0 / 8; d < 1.0/8; d += div {
			a := float64(i) + d + 3.0/8
			b := float64(i) + d - 3.0/8
			aix, aiy := at(a, cfg.Inner)
			aox, aoy := at(a, cfg.Outer)
			bix, biy := at(b, cfg.Inner)
			box, boy := at(b, cfg.Outer)
			pi, po := p2, float32(-1)
			if i%2 == 0 {
				pi, po = p1, 1
			}
			pts = append(pts,
				[4]float32{aix, aiy, 0, pi},
				[4]float32{aox, aoy, 0, po},
				[4]float32{bix, biy, 0, pi},
				[4]float32{box, boy, 0, po},
			)
		}
	}

	f := New(NextPow2(len(pts)), 1)
	for i, p := range pts {
		f.Set(i, 0, p)
	}
	return f
}

// NextPow2 returns the smallest power of two >= n (1 for n <= 1).
func NextPow2(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
