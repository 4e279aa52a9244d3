package shader

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/san-kum/fieldsim/internal/gpu"
)

// source: next = field + input. Pressure is carried, not injected.
func sourceKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	f := inv.Sampler(SamplerField).Texel(x, y)
	in := inv.Sampler(SamplerInput).Texel(x, y)
	return [4]float32{f[0] + in[0], f[1] + in[1], f[2] + in[2], f[3]}
}

// force: buoyancy, vy += c*T.
func forceKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	f := inv.Sampler(SamplerField).Texel(x, y)
	f[1] += inv.Uniforms.Float(UniformForce) * f[2]
	return f
}

// velocity: semi-Lagrangian advection of velocity and temperature.
func velocityKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	s := inv.Sampler(SamplerField)
	f := s.Texel(x, y)
	u := (float32(x) + 0.5 - f[0]) / float32(inv.W)
	v := (float32(y) + 0.5 - f[1]) / float32(inv.H)
	a := s.Sample(u, v)
	return [4]float32{a[0], a[1], a[2], f[3]}
}

// pressure: one Jacobi iteration of the pressure Poisson equation.
func pressureKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	s := inv.Sampler(SamplerField)
	f := s.Texel(x, y)
	l, r := s.Texel(x-1, y), s.Texel(x+1, y)
	b, t := s.Texel(x, y-1), s.Texel(x, y+1)
	div := ((r[0] - l[0]) + (t[1] - b[1])) / 2
	f[3] = (l[3] + r[3] + b[3] + t[3] - div) / 4
	return f
}

// divergence: subtract the pressure gradient from the velocity.
func divergenceKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	s := inv.Sampler(SamplerField)
	f := s.Texel(x, y)
	f[0] -= (s.Texel(x+1, y)[3] - s.Texel(x-1, y)[3]) / 2
	f[1] -= (s.Texel(x, y+1)[3] - s.Texel(x, y-1)[3]) / 2
	return f
}

// display: positive scalar red, negative blue, speed green.
func displayKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	s := inv.Sampler(SamplerField)
	u, v := inv.UV(x, y)
	f := s.Sample(u, v)
	g := inv.Uniforms.Float(UniformGain)
	speed := float32(math.Sqrt(float64(f[0]*f[0] + f[1]*f[1])))
	return [4]float32{saturate(g * f[2]), saturate(g * speed), saturate(-g * f[2]), 1}
}

const magnetSoftening = 1e-4

// magnet_source: sums the 2D field and potential of every control point,
// rotated by rot, at the texel centre in [-1, 1] coordinates.
func magnetSourceKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	pts := inv.Sampler(SamplerInput)
	if pts == nil || pts.W == 0 {
		return [4]float32{}
	}
	rot := inv.Uniforms.Mat2(UniformRot)
	u, v := inv.UV(x, y)
	p := mgl32.Vec2{u*2 - 1, v*2 - 1}

	var ex, ey, phi float32
	for i := 0; i < pts.W; i++ {
		c := pts.Texel(i, 0)
		q := c[3]
		if q == 0 {
			continue
		}
		d := p.Sub(rot.Mul2x1(mgl32.Vec2{c[0], c[1]}))
		r2 := d.Dot(d) + magnetSoftening
		ex += q * d[0] / r2
		ey += q * d[1] / r2
		phi -= q * 0.5 * float32(math.Log(float64(r2)))
	}
	n := float32(pts.W)
	return [4]float32{ex / n, ey / n, phi / n, 0}
}

// magnet_force: energy density c*|B|^2 into A.
func magnetForceKernel(inv *gpu.Invocation, x, y int) [4]float32 {
	f := inv.Sampler(SamplerField).Texel(x, y)
	f[3] = inv.Uniforms.Float(UniformForce) * (f[0]*f[0] + f[1]*f[1])
	return f
}

func saturate(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
