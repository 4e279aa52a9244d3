// Package solver implements the grid field simulator: a fixed, ordered
// pipeline of full-screen passes over double-buffered float textures.
//
// # Fluid variant
//
// One [Simulator.Step] runs, in order:
//
//  1. source      next = current + input
//  2. force       vy += c*T
//  3. velocity    semi-Lagrangian advection
//  4. pressure    k Jacobi iterations, no convergence check
//  5. divergence  subtract the pressure gradient
//  6. display     render the published field to the screen
//
// # Magnet variant
//
// magnet_source sums the field of a rotating ring of control points,
// magnet_force stores the energy density and display renders the result.
//
// # Routing
//
// A step reads the current buffer only in its first pass. Intermediate
// writes alternate between the back buffer and a scratch texture, starting
// on whichever of the two makes the last write land in the back buffer. The
// double buffer then swaps exactly once, so the texture returned by
// [Simulator.DisplayTexture] is never written by the step that follows it.
//
// # Thread Safety
//
// Simulator is NOT thread-safe. Setters and Step must be called from the
// goroutine that owns the device.
package solver
