// Package mesh generates the indexed triangle meshes the scene renderer
// uploads: tori and UV spheres with per-vertex HSVA colors.
package mesh

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUnknownMesh = errors.New("mesh: unknown mesh")

// Mesh holds flat attribute arrays: 3 floats per vertex and normal, 4 per
// color, and 3 indices per triangle.
type Mesh struct {
	Name     string
	Vertices []float32
	Normals  []float32
	Colors   []float32
	Indices  []uint32
}

func (m *Mesh) VertexCount() int   { return len(m.Vertices) / 3 }
func (m *Mesh) TriangleCount() int { return len(m.Indices) / 3 }

// HSVA converts hue in degrees and saturation, value, alpha in [0, 1] to
// RGBA. ok is false when s, v or a exceed 1.
func HSVA(h, s, v, a float64) (c [4]float32, ok bool) {
	if s > 1 || v > 1 || a > 1 {
		return c, false
	}
	if s == 0 {
		return [4]float32{float32(v), float32(v), float32(v), float32(a)}, true
	}
	th := math.Mod(h, 360)
	if th < 0 {
		th += 360
	}
	i := int(math.Floor(th / 60))
	f := th/60 - float64(i)
	m := v * (1 - s)
	n := v * (1 - s*f)
	k := v * (1 - s*(1-f))

	r := [6]float64{v, n, m, m, k, v}
	g := [6]float64{k, v, v, n, m, m}
	b := [6]float64{m, m, k, v, v, n}
	return [4]float32{float32(r[i]), float32(g[i]), float32(b[i]), float32(a)}, true
}

// Torus builds a torus of tube radius irad around a ring of radius orad,
// colored by hue along the ring.
func Torus(row, column int, irad, orad float64) *Mesh {
	m := &Mesh{Name: "torus"}
	for i := 0; i <= row; i++ {
		r := math.Pi * 2 / float64(row) * float64(i)
		rr, ry := math.Cos(r), math.Sin(r)
		for ii := 0; ii <= column; ii++ {
			tr := math.Pi * 2 / float64(column) * float64(ii)
			tx := (rr*irad + orad) * math.Cos(tr)
			ty := ry * irad
			tz := (rr*irad + orad) * math.Sin(tr)
			rx := rr * math.Cos(tr)
			rz := rr * math.Sin(tr)
			m.Vertices = append(m.Vertices, float32(tx), float32(ty), float32(tz))
			m.Normals = append(m.Normals, float32(rx), float32(ry), float32(rz))
			c, _ := HSVA(360/float64(column)*float64(ii), 1, 1, 1)
			m.Colors = append(m.Colors, c[:]...)
		}
	}
	for i := 0; i < row; i++ {
		for ii := 0; ii < column; ii++ {
			r := uint32((column+1)*i + ii)
			c := uint32(column)
			m.Indices = append(m.Indices, r, r+c+1, r+1, r+c+1, r+c+2, r+1)
		}
	}
	return m
}

// Sphere builds a UV sphere colored by hue from pole to pole.
func Sphere(row, column int, rad float64) *Mesh {
	m := &Mesh{Name: "sphere"}
	for i := 0; i <= row; i++ {
		r := math.Pi / float64(row) * float64(i)
		ry, rr := math.Cos(r), math.Sin(r)
		c, _ := HSVA(360/float64(row)*float64(i), 1, 1, 1)
		for j := 0; j <= column; j++ {
			tr := math.Pi * 2 / float64(column) * float64(j)
			tx := rr * rad * math.Cos(tr)
			ty := ry * rad
			tz := rr * rad * math.Sin(tr)
			rx := rr * math.Cos(tr)
			rz := rr * math.Sin(tr)
			m.Vertices = append(m.Vertices, float32(tx), float32(ty), float32(tz))
			m.Normals = append(m.Normals, float32(rx), float32(ry), float32(rz))
			m.Colors = append(m.Colors, c[:]...)
		}
	}
	for i := 0; i < row; i++ {
		for j := 0; j < column; j++ {
			r := uint32((column+1)*i + j)
			c := uint32(column)
			m.Indices = append(m.Indices, r, r+1, r+c+2, r, r+c+2, r+c+1)
		}
	}
	return m
}

// Catalog builds meshes by name and caches them.
type Catalog struct {
	builders map[string]func() *Mesh
	cache    map[string]*Mesh
}

func NewCatalog() *Catalog {
	return &Catalog{builders: make(map[string]func() *Mesh), cache: make(map[string]*Mesh)}
}

// DefaultCatalog holds "torus" and "sphere".
func DefaultCatalog() *Catalog {
	c := NewCatalog()
	c.Register("torus", func() *Mesh { return Torus(256, 256, 1, 2) })
	c.Register("sphere", func() *Mesh { return Sphere(32, 32, 1) })
	return c
}

func (c *Catalog) Register(name string, build func() *Mesh) {
	c.builders[name] = build
	delete(c.cache, name)
}

func (c *Catalog) Mesh(name string) (*Mesh, error) {
	if m, ok := c.cache[name]; ok {
		return m, nil
	}
	build, ok := c.builders[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownMesh, name)
	}
	m := build()
	m.Name = name
	c.cache[name] = m
	return m, nil
}

func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.builders))
	for n := range c.builders {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
