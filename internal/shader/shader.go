// Package shader holds the programs the simulator and renderer draw with:
// their logical names, the uniform and attribute names they take, a Go
// kernel per full-screen program for the CPU device and the GLSL sources
// for the OpenGL device.
//
// Channel layout of a fluid field texel:
//
//	R  velocity x, in cells per step
//	G  velocity y, in cells per step
//	B  temperature / dye
//	A  pressure
//
// The magnet variant stores the field vector in RG, the potential in B and
// the energy density in A.
package shader

import "github.com/san-kum/fieldsim/internal/gpu"

// Program names.
const (
	Source       = "source"
	Force        = "force"
	Velocity     = "velocity"
	Pressure     = "pressure"
	Divergence   = "divergence"
	Display      = "display"
	MagnetSource = "magnet_source"
	MagnetForce  = "magnet_force"
	Mesh         = "mesh"
)

// Sampler names.
const (
	SamplerField = "field"
	SamplerInput = "inputField"
)

// Full-screen pass uniforms.
const (
	UniformForce = "c"
	UniformGain  = "gain"
	UniformRot   = "rot"
)

// Mesh uniforms.
const (
	UniformMVP      = "mvpMatrix"
	UniformModel    = "mMatrix"
	UniformInvModel = "invMatrix"
	UniformLight    = "lightDirection"
	UniformAmbient  = "ambientColor"
	UniformEye      = "eyeDirection"
	UniformAlpha    = "alpha"
)

// Vertex attributes.
const (
	AttrPosition = "position"
	AttrTexCoord = "texCoord"
	AttrVertex   = "vertex"
	AttrNormal   = "normal"
	AttrColor    = "color"
)

// FluidPrograms lists the programs the fluid variant compiles.
var FluidPrograms = []string{Source, Force, Velocity, Pressure, Divergence, Display}

// MagnetPrograms lists the programs the magnet variant compiles.
var MagnetPrograms = []string{MagnetSource, MagnetForce, Display}

// Kernels returns the CPU kernel for every program. Mesh has no full-screen
// kernel; the CPU device records mesh draws instead of rasterizing them.
func Kernels() map[string]gpu.Kernel {
	return map[string]gpu.Kernel{
		Source:       sourceKernel,
		Force:        forceKernel,
		Velocity:     velocityKernel,
		Pressure:     pressureKernel,
		Divergence:   divergenceKernel,
		Display:      displayKernel,
		MagnetSource: magnetSourceKernel,
		MagnetForce:  magnetForceKernel,
		Mesh:         nil,
	}
}

// NewCPUDevice returns a software device with every program registered.
func NewCPUDevice(opts ...gpu.CPUOption) *gpu.CPUDevice {
	return gpu.NewCPUDevice(Kernels(), opts...)
}
