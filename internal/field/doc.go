// Package field provides the CPU-side description of simulation fields.
//
// A [Field] is a W×H grid of RGBA float32 cells laid out row-major with
// row 0 at the bottom, matching texture upload order. Fields only exist on
// the CPU as initial conditions and read-backs; the simulation state itself
// lives in device textures.
//
//   - [Generator]: deterministic initial-condition constructor
//   - [DoubleBuffer]: front/back pair with a parity bit
//   - [MagnetRing]: control points for the rotating magnet variant
package field
