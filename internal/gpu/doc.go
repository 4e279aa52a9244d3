// Package gpu provides the device abstraction the simulator and scene
// renderer draw through.
//
// A [Device] owns textures, vertex/index buffers and programs, and executes
// two kinds of work:
//
//   - [Pass]: one full-screen program invocation writing a texture or [Screen]
//   - [MeshDraw]: one indexed triangle draw into the screen
//
// Two implementations exist:
//
//   - [CPUDevice]: software device running each program as a Go [Kernel]
//     over every target texel, fanned out with [ParallelFor]
//   - glgpu.Device: OpenGL 4.3 core device using framebuffer objects
//
// Devices refuse passes that sample their own target ([ErrFeedbackLoop]),
// so double buffering is enforced at the device boundary.
//
// # Thread Safety
//
// Devices are NOT thread-safe. All calls must come from the goroutine that
// drives the frame loop.
package gpu
