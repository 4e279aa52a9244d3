package shader

import (
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/fieldsim/internal/field"
	"github.com/san-kum/fieldsim/internal/gpu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// run executes one pass of program over src and returns the output field.
func run(t *testing.T, program string, src *field.Field, input *field.Field, u gpu.Uniforms) *field.Field {
	t.Helper()
	dev := NewCPUDevice()
	in, err := dev.NewTexture(src.W, src.H, src.Pix)
	require.NoError(t, err)
	out, err := dev.NewTexture(src.W, src.H, nil)
	require.NoError(t, err)
	prog, err := dev.Program(program)
	require.NoError(t, err)

	bindings := []gpu.Binding{{Name: SamplerField, Texture: in}}
	if input != nil {
		tex, err := dev.NewTexture(input.W, input.H, input.Pix)
		require.NoError(t, err)
		bindings = append(bindings, gpu.Binding{Name: SamplerInput, Texture: tex})
	}
	require.NoError(t, dev.Draw(gpu.Pass{Program: prog, Samplers: bindings, Uniforms: u, Target: out}))

	pix, err := dev.ReadTexture(out)
	require.NoError(t, err)
	f, err := field.FromPix(src.W, src.H, pix)
	require.NoError(t, err)
	return f
}

func TestZeroFieldIsFixedPoint(t *testing.T) {
	zero := field.Zero(4, 4)
	for _, p := range []string{Source, Force, Velocity, Pressure, Divergence, MagnetForce} {
		t.Run(p, func(t *testing.T) {
			out := run(t, p, zero, field.Zero(4, 4), gpu.Uniforms{UniformForce: float32(0.5)})
			assert.True(t, zero.Equal(out))
		})
	}
}

func TestSourceAddsInput(t *testing.T) {
	f := field.Constant([4]float32{1, 2, 3, 4})(2, 2)
	in := field.Constant([4]float32{0.5, 0.5, 0.5, 9})(2, 2)
	out := run(t, Source, f, in, nil)
	assert.Equal(t, [4]float32{1.5, 2.5, 3.5, 4}, out.At(1, 1))
}

func TestForceIsBuoyancy(t *testing.T) {
	f := field.Constant([4]float32{0, 1, 2, 0})(2, 2)
	out := run(t, Force, f, nil, gpu.Uniforms{UniformForce: float32(0.25)})
	assert.Equal(t, [4]float32{0, 1.5, 2, 0}, out.At(0, 0))
}

func TestVelocityAdvectsScalar(t *testing.T) {
	f := field.Constant([4]float32{1, 0, 0, 0})(8, 1)
	f.Set(3, 0, [4]float32{1, 0, 7, 0.25})

	out := run(t, Velocity, f, nil, nil)
	assert.Equal(t, float32(7), out.At(4, 0)[2])
	assert.Equal(t, float32(0), out.At(3, 0)[2])
	assert.Equal(t, float32(0), out.At(4, 0)[3], "pressure stays in place")
	assert.Equal(t, float32(0.25), out.At(3, 0)[3])
}

func TestPressureJacobi(t *testing.T) {
	f := field.Zero(3, 3)
	f.Set(0, 1, [4]float32{0, 0, 0, 4})
	f.Set(2, 1, [4]float32{0, 0, 0, 4})
	f.Set(1, 0, [4]float32{0, 0, 0, 4})
	f.Set(1, 2, [4]float32{0, 0, 0, 4})
	out := run(t, Pressure, f, nil, nil)
	assert.Equal(t, float32(4), out.At(1, 1)[3])

	// divergent velocity lowers the centre pressure
	g := field.Zero(3, 3)
	g.Set(2, 1, [4]float32{2, 0, 0, 0})
	out = run(t, Pressure, g, nil, nil)
	assert.Equal(t, float32(-0.25), out.At(1, 1)[3])
}

func TestDivergenceSubtractsGradient(t *testing.T) {
	f := field.Zero(3, 1)
	f.Set(0, 0, [4]float32{0, 0, 0, 0})
	f.Set(1, 0, [4]float32{1, 1, 0, 1})
	f.Set(2, 0, [4]float32{0, 0, 0, 2})
	out := run(t, Divergence, f, nil, nil)
	assert.Equal(t, [4]float32{0, 1, 0, 1}, out.At(1, 0))
}

func TestDisplayColors(t *testing.T) {
	f := field.Zero(2, 1)
	f.Set(0, 0, [4]float32{0, 0, 0.5, 0})
	f.Set(1, 0, [4]float32{0, 0, -3, 0})
	out := run(t, Display, f, nil, gpu.Uniforms{UniformGain: float32(1)})
	assert.Equal(t, [4]float32{0.5, 0, 0, 1}, out.At(0, 0))
	assert.Equal(t, [4]float32{0, 0, 1, 1}, out.At(1, 0))
}

func TestMagnetSourceSinglePole(t *testing.T) {
	pts := field.New(1, 1)
	pts.Set(0, 0, [4]float32{0, 0, 0, 1})

	out := run(t, MagnetSource, field.Zero(4, 4), pts, gpu.Uniforms{UniformRot: mgl32.Ident2()})
	right := out.At(3, 1)
	left := out.At(0, 1)
	assert.Greater(t, right[0], float32(0))
	assert.Less(t, left[0], float32(0))
	assert.InDelta(t, right[0], -left[0], 1e-5)
}

func TestMagnetForceEnergyDensity(t *testing.T) {
	f := field.Constant([4]float32{3, 4, 1, 0})(1, 1)
	out := run(t, MagnetForce, f, nil, gpu.Uniforms{UniformForce: float32(2)})
	assert.Equal(t, [4]float32{3, 4, 1, 50}, out.At(0, 0))
}

func TestGLSLSources(t *testing.T) {
	for name := range Kernels() {
		t.Run(name, func(t *testing.T) {
			vs, fs, err := GLSL(name)
			require.NoError(t, err)
			assert.True(t, strings.HasPrefix(vs, "#version"))
			assert.Contains(t, fs, "fragColor")
		})
	}
	_, _, err := GLSL("missing")
	assert.Error(t, err)
}
