package mesh

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHSVA(t *testing.T) {
	tests := []struct {
		h    float64
		want [4]float32
	}{
		{0, [4]float32{1, 0, 0, 1}},
		{120, [4]float32{0, 1, 0, 1}},
		{240, [4]float32{0, 0, 1, 1}},
		{360, [4]float32{1, 0, 0, 1}},
		{-120, [4]float32{0, 0, 1, 1}},
	}
	for _, tt := range tests {
		c, ok := HSVA(tt.h, 1, 1, 1)
		require.True(t, ok)
		assert.InDeltaSlice(t, tt.want[:], c[:], 1e-6, "h=%v", tt.h)
	}

	gray, ok := HSVA(77, 0, 0.5, 1)
	require.True(t, ok)
	assert.Equal(t, [4]float32{0.5, 0.5, 0.5, 1}, gray)

	_, ok = HSVA(0, 2, 1, 1)
	assert.False(t, ok)
}

func checkMesh(t *testing.T, m *Mesh, wantVerts, wantTris int) {
	t.Helper()
	assert.Equal(t, wantVerts, m.VertexCount())
	assert.Len(t, m.Normals, 3*wantVerts)
	assert.Len(t, m.Colors, 4*wantVerts)
	assert.Equal(t, wantTris, m.TriangleCount())
	for _, i := range m.Indices {
		require.Less(t, int(i), wantVerts)
	}
}

func TestTorus(t *testing.T) {
	m := Torus(8, 6, 1, 2)
	checkMesh(t, m, 9*7, 2*8*6)

	// every vertex lies on the tube surface
	for v := 0; v < m.VertexCount(); v++ {
		x, y, z := float64(m.Vertices[3*v]), float64(m.Vertices[3*v+1]), float64(m.Vertices[3*v+2])
		ring := math.Hypot(x, z) - 2
		assert.InDelta(t, 1, math.Hypot(ring, y), 1e-5)
	}
}

func TestSphere(t *testing.T) {
	m := Sphere(4, 5, 2)
	checkMesh(t, m, 5*6, 2*4*5)
	for v := 0; v < m.VertexCount(); v++ {
		x, y, z := m.Vertices[3*v], m.Vertices[3*v+1], m.Vertices[3*v+2]
		assert.InDelta(t, 2, math.Sqrt(float64(x*x+y*y+z*z)), 1e-5)
	}
}

func TestLargeTorusNeedsWideIndices(t *testing.T) {
	m := Torus(256, 256, 1, 2)
	assert.Equal(t, 257*257, m.VertexCount())
	assert.Greater(t, m.VertexCount(), math.MaxUint16)
}

func TestCatalog(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, []string{"sphere", "torus"}, c.Names())

	a, err := c.Mesh("sphere")
	require.NoError(t, err)
	b, err := c.Mesh("sphere")
	require.NoError(t, err)
	assert.Same(t, a, b)

	_, err = c.Mesh("teapot")
	assert.ErrorIs(t, err, ErrUnknownMesh)

	c.Register("tiny", func() *Mesh { return Sphere(2, 3, 1) })
	m, err := c.Mesh("tiny")
	require.NoError(t, err)
	assert.Equal(t, "tiny", m.Name)
}
