package sim

import (
	"time"

	"github.com/etas-sim/etas-sim/sim/geo"
)

// Default safety caps.
const (
	DefaultMaxGenerations = 1000
	DefaultMaxEvents      = 10_000_000
)

// LimitsConfig groups the safety caps of a run.
type LimitsConfig struct {
	MaxRetries     int           // uniform background re-placement attempts (0 = DefaultMaxRetries)
	MaxGenerations int           // cascade depth (0 = DefaultMaxGenerations)
	MaxEvents      int           // catalog size (0 = DefaultMaxEvents)
	MaxWallClock   time.Duration // per-run budget (0 = unbounded)
}

func (l LimitsConfig) withDefaults() LimitsConfig {
	if l.MaxRetries <= 0 {
		l.MaxRetries = DefaultMaxRetries
	}
	if l.MaxGenerations <= 0 {
		l.MaxGenerations = DefaultMaxGenerations
	}
	if l.MaxEvents <= 0 {
		l.MaxEvents = DefaultMaxEvents
	}
	return l
}

// Config groups everything NewSimulator needs.
type Config struct {
	Params  ModelParameters
	Region  *geo.Region
	Density *BackgroundDensity // nil places background events uniformly
	// Magnitudes defaults to GutenbergRichter{MMax: Params.MMax}.
	Magnitudes MagnitudeSampler
	Limits     LimitsConfig

	// FilterRegion drops events outside Region once the cascade terminates.
	FilterRegion bool
	// ClipAftershocks discards aftershocks outside Region as they are generated.
	ClipAftershocks bool

	// EarthRadiusKm converts aftershock distances to degrees (0 = geo.EarthRadiusKm).
	EarthRadiusKm float64
}
