// sim/simulator.go
package sim

import (
	"fmt"
	"math"
	"time"

	"github.com/sirupsen/logrus"
)

// Result is the outcome of one simulated catalog.
type Result struct {
	// Catalog holds every event generated, including those outside the region.
	Catalog *Catalog
	// Events is the catalog after the optional region filter, in id order.
	Events []Event
	// Generations is the number of aftershock generations produced.
	Generations int
	// BranchingRatio is the mean direct offspring per event (diagnostic only).
	BranchingRatio float64
	// Background and Auxiliary count the roots by origin.
	Background int
	Auxiliary  int
}

// Simulator runs ETAS cascades for one parameter set and region. It holds no
// per-run state and may be shared by concurrent runs, each with its own RNG.
type Simulator struct {
	cfg        Config
	background *BackgroundGenerator
	branching  *BranchingSimulator
}

// NewSimulator validates cfg and prepares the samplers.
func NewSimulator(cfg Config) (*Simulator, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	if cfg.Region == nil {
		return nil, fmt.Errorf("%w: a region is required", ErrInvalidParameters)
	}
	if cfg.Magnitudes == nil {
		cfg.Magnitudes = GutenbergRichter{MMax: cfg.Params.MMax}
	}
	cfg.Limits = cfg.Limits.withDefaults()

	clip := cfg.Region
	if !cfg.ClipAftershocks {
		clip = nil
	}
	aftershocks, err := NewAftershockGenerator(cfg.Params, cfg.Magnitudes, clip)
	if err != nil {
		return nil, err
	}
	if cfg.EarthRadiusKm > 0 {
		aftershocks.Places.earthRadius = cfg.EarthRadiusKm
	}
	return &Simulator{
		cfg: cfg,
		background: &BackgroundGenerator{
			Region:     cfg.Region,
			Params:     cfg.Params,
			Density:    cfg.Density,
			Magnitudes: cfg.Magnitudes,
			MaxRetries: cfg.Limits.MaxRetries,
		},
		branching: &BranchingSimulator{Aftershocks: aftershocks, Limits: cfg.Limits},
	}, nil
}

// Params returns the parameter set the simulator was built with.
func (s *Simulator) Params() ModelParameters {
	return s.cfg.Params
}

// GenerateCatalog simulates a complete catalog from scratch over [start, end):
// Poisson background followed by the full aftershock cascade.
func (s *Simulator) GenerateCatalog(rng *PartitionedRNG, start, end time.Time) (*Result, error) {
	background, err := s.background.Generate(rng, start, end)
	if err != nil {
		return nil, err
	}
	cat := NewCatalog()
	cat.AppendRoots(background)

	br := s.cfg.Params.Theta.BranchingRatio(s.cfg.Params.Beta)
	logBranching(len(background), br)

	w := AftershockWindow{End: end, LengthDays: DaysBetween(start, end)}
	generations, err := s.branching.Expand(rng, cat, w)
	if err != nil {
		return nil, err
	}
	return s.finish(cat, generations, br, len(background), 0), nil
}

func (s *Simulator) finish(cat *Catalog, generations int, br float64, background, auxiliary int) *Result {
	events := cat.Events()
	if s.cfg.FilterRegion {
		events = cat.Filter(func(e *Event) bool { return s.cfg.Region.Contains(e.Latitude, e.Longitude) })
	}
	logrus.Debugf("simulated %d events in %d generations, %d inside the region", cat.Len(), generations, len(events))
	return &Result{
		Catalog:        cat,
		Events:         events,
		Generations:    generations,
		BranchingRatio: br,
		Background:     background,
		Auxiliary:      auxiliary,
	}
}

func logBranching(roots int, br float64) {
	if br < 1 {
		logrus.Debugf("branching ratio %.4f, expected total with infinite time %.1f", br, float64(roots)/(1-br))
		return
	}
	if math.IsInf(br, 1) {
		logrus.Warnf("branching ratio diverges for this magnitude law; cascades are capped by the safety limits")
		return
	}
	logrus.Warnf("branching ratio %.4f >= 1: the process is supercritical", br)
}
