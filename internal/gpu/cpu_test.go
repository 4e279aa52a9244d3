package gpu

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func copyKernel(inv *Invocation, x, y int) [4]float32 {
	return inv.Sampler("field").Texel(x, y)
}

func addKernel(inv *Invocation, x, y int) [4]float32 {
	v := inv.Sampler("field").Texel(x, y)
	c := inv.Uniforms.Float("c")
	return [4]float32{v[0] + c, v[1] + c, v[2] + c, v[3] + c}
}

func testDevice(opts ...CPUOption) *CPUDevice {
	return NewCPUDevice(map[string]Kernel{"copy": copyKernel, "add": addKernel}, opts...)
}

func TestCPUDeviceDraw(t *testing.T) {
	d := testDevice()
	src, err := d.NewTexture(2, 2, []float32{
		1, 1, 1, 1, 2, 2, 2, 2,
		3, 3, 3, 3, 4, 4, 4, 4,
	})
	require.NoError(t, err)
	dst, err := d.NewTexture(2, 2, nil)
	require.NoError(t, err)

	prog, err := d.Program("add")
	require.NoError(t, err)

	err = d.Draw(Pass{
		Program:  prog,
		Samplers: []Binding{{Name: "field", Texture: src}},
		Uniforms: Uniforms{"c": float32(10)},
		Target:   dst,
	})
	require.NoError(t, err)

	out, err := d.ReadTexture(dst)
	require.NoError(t, err)
	assert.Equal(t, float32(11), out[0])
	assert.Equal(t, float32(14), out[15])
	assert.Equal(t, 1, d.Stats().Passes["add"])
}

func TestCPUDeviceFeedbackLoop(t *testing.T) {
	d := testDevice()
	tex, err := d.NewTexture(2, 2, nil)
	require.NoError(t, err)
	prog, err := d.Program("copy")
	require.NoError(t, err)

	err = d.Draw(Pass{Program: prog, Samplers: []Binding{{Name: "field", Texture: tex}}, Target: tex})
	assert.ErrorIs(t, err, ErrFeedbackLoop)
}

func TestCPUDeviceScreenAdoptsSamplerSize(t *testing.T) {
	d := testDevice()
	assert.Nil(t, d.Screen())

	tex, err := d.NewTexture(3, 2, nil)
	require.NoError(t, err)
	prog, err := d.Program("copy")
	require.NoError(t, err)
	require.NoError(t, d.Draw(Pass{Program: prog, Samplers: []Binding{{Name: "field", Texture: tex}}, Target: Screen}))

	s := d.Screen()
	require.NotNil(t, s)
	assert.Equal(t, 3, s.W)
	assert.Equal(t, 2, s.H)
}

func TestCPUDeviceCapabilities(t *testing.T) {
	d := testDevice(WithCapabilities(Capabilities{FloatTextures: false, MaxTextureSize: 16}))
	_, err := d.NewTexture(2, 2, nil)
	var capErr *CapabilityError
	require.ErrorAs(t, err, &capErr)
	assert.Equal(t, 0, d.Stats().TextureAllocs)
}

func TestCPUDeviceProgramErrors(t *testing.T) {
	d := testDevice(WithBrokenProgram("copy"))
	var resErr *ResourceError

	_, err := d.Program("copy")
	require.ErrorAs(t, err, &resErr)
	assert.Equal(t, "copy", resErr.Program)

	_, err = d.Program("missing")
	require.ErrorAs(t, err, &resErr)
}

func TestCPUDeviceMeshLog(t *testing.T) {
	d := testDevice()
	prog, err := d.Program("copy")
	require.NoError(t, err)
	vb, err := d.NewVertexBuffer([]float32{0, 0, 0, 1, 0, 0, 0, 1, 0})
	require.NoError(t, err)
	ib, err := d.NewIndexBuffer([]uint32{0, 1, 2})
	require.NoError(t, err)

	m := MeshDraw{
		Program:    prog,
		Attributes: []Attribute{{Name: "vertex", Buffer: vb, Size: 3}},
		Indices:    ib,
		Count:      3,
		Uniforms:   Uniforms{"alpha": float32(1)},
	}
	require.NoError(t, d.DrawMesh(m))

	m.Count = 4
	assert.Error(t, d.DrawMesh(m))

	log := d.TakeMeshDraws()
	require.Len(t, log, 1)
	assert.Equal(t, 3, log[0].Count)
	assert.Equal(t, float32(1), log[0].Uniforms.Float("alpha"))
	assert.Empty(t, d.TakeMeshDraws())
	assert.Equal(t, 2, d.Stats().BufferAllocs)
}

func TestCPUDeviceRelease(t *testing.T) {
	d := testDevice()
	tex, err := d.NewTexture(1, 1, nil)
	require.NoError(t, err)
	d.Release()

	_, err = d.ReadTexture(tex)
	assert.ErrorIs(t, err, ErrReleased)
	_, err = d.NewTexture(1, 1, nil)
	assert.ErrorIs(t, err, ErrReleased)
	assert.Equal(t, 0, d.LiveTextures())
}

func TestSamplerClampAndNearest(t *testing.T) {
	s := &Sampler{W: 2, H: 1, pix: []float32{1, 0, 0, 0, 2, 0, 0, 0}}
	assert.Equal(t, float32(1), s.Texel(-5, 0)[0])
	assert.Equal(t, float32(2), s.Texel(9, 3)[0])
	assert.Equal(t, float32(1), s.Sample(0.49, 0.5)[0])
	assert.Equal(t, float32(2), s.Sample(0.51, 0.5)[0])
	assert.Equal(t, float32(1), s.Sample(-0.2, 0.5)[0])

	var unbound *Sampler
	assert.Equal(t, [4]float32{}, unbound.Texel(0, 0))
}

func TestParallelForCoversRange(t *testing.T) {
	for _, n := range []int{0, 1, 7, 100, 1000} {
		var sum atomic.Int64
		ParallelFor(n, 4, func(start, end int) {
			for i := start; i < end; i++ {
				sum.Add(int64(i))
			}
		})
		assert.Equal(t, int64(n*(n-1)/2), sum.Load(), "n=%d", n)
	}
}
