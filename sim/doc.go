// Package sim provides the ETAS (epidemic-type aftershock sequence) catalog
// simulation engine.
//
// # Reading Guide
//
// Start with these files to understand the engine:
//   - event.go, catalog.go: the fixed-schema event record and the append-only catalog
//   - params.go: the nine ETAS parameters, productivity and branching ratio
//   - simulator.go: GenerateCatalog, background plus cascade from scratch
//   - continuation.go: SimulateContinuation, extending an observed catalog forward
//
// # Architecture
//
// A run draws a Poisson background (background.go), then expands it one
// generation at a time (branching.go) until no event has pending offspring.
// Each generation's aftershocks get times from the tapered Omori kernel
// (time_sampler.go), offsets from the power-law spatial kernel
// (space_sampler.go) and magnitudes from the Gutenberg–Richter law
// (magnitude.go).
//
// Sub-packages:
//   - sim/special/: extended upper incomplete gamma and its inverse
//   - sim/geo/: region polygon, area and great-circle distance
//   - sim/calibration/: calibration bundle loading
//   - sim/forecast/: the forecast orchestrator (prepare, simulate once or many)
//   - sim/store/: CSV and SQLite artifacts
//   - sim/metrics/: Prometheus run metrics
//
// # Randomness
//
// All sampling goes through a PartitionedRNG: one stream per subsystem,
// derived from a master seed, and one PartitionedRNG per run of a batch.
// A Simulator holds no per-run state, so runs with distinct RNGs can execute
// concurrently.
package sim
