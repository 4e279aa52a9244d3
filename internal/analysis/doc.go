// Package analysis computes diagnostics of simulated fields.
//
//   - [KineticEnergy]: mean kinetic energy of the velocity channels
//   - [Divergence]: max and rms of the discrete velocity divergence
//   - [ScalarRange]: extrema of one channel
//   - [EnergySpectrum]: radially binned 2D spectrum of the velocity field
//   - [PowerSpectrum]: spectrum of a scalar time series
//
// A pressure-projected fluid field should keep its divergence small
// relative to its speed:
//
//	s := analysis.Summarize(f)
//	if s.RMSDivergence > 0.1*math.Sqrt(2*s.KineticEnergy) {
//	    // projection is not keeping up; raise the iteration count
//	}
package analysis
