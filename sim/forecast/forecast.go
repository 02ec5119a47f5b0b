// Package forecast turns a calibration bundle into simulated forecast
// catalogs: one continuation of the observed catalog per run, filtered and
// written to a sink.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/etas-sim/etas-sim/sim"
	"github.com/etas-sim/etas-sim/sim/calibration"
	"github.com/etas-sim/etas-sim/sim/geo"
	"github.com/etas-sim/etas-sim/sim/store"
)

// FlushEvery is the number of runs accumulated between sink writes in
// SimulateMany.
const FlushEvery = 10

// magnitudeTolerance is the relative tolerance between the smallest source
// magnitude and the calibration reference magnitude.
const magnitudeTolerance = 1e-7

// Recorder receives run and flush statistics. metrics.Recorder implements it.
type Recorder interface {
	RunSucceeded(d time.Duration, background, aftershocks, generations int)
	RunFailed(d time.Duration)
	Flushed(n int)
	SetBranchingRatio(br float64)
}

// Options tune a forecast. The zero value is usable.
type Options struct {
	// GaussianScale smooths background locations drawn from target events,
	// in degrees. Zero means sim.DefaultGaussianScale.
	GaussianScale float64
	// Seed is the master seed; run i of a batch draws from an independent
	// stream derived from it.
	Seed int64
	// Parallel bounds the number of concurrent runs in SimulateMany.
	Parallel int
	// KeepOutside disables the region filter applied when a cascade ends.
	KeepOutside bool
	// EarthRadiusKm is passed to the aftershock distance conversion.
	EarthRadiusKm float64
	Limits        sim.LimitsConfig
	Recorder      Recorder
}

// ETASSimulation produces forecasts from one calibration.
type ETASSimulation struct {
	bundle *calibration.Bundle
	opts   Options

	region    *geo.Region
	sources   []sim.Event
	density   *sim.BackgroundDensity
	simulator *sim.Simulator
}

// New wraps a loaded bundle. Call Prepare before simulating.
func New(bundle *calibration.Bundle, opts Options) *ETASSimulation {
	if opts.GaussianScale == 0 {
		opts.GaussianScale = sim.DefaultGaussianScale
	}
	if opts.Parallel <= 0 {
		opts.Parallel = 1
	}
	spec := bundle.Spec
	logrus.Debugf("using parameters calculated on %s: %+v", spec.CalculationDate.Format(time.DateOnly), spec.Theta)
	return &ETASSimulation{bundle: bundle, opts: opts}
}

// Prepare joins the source events with the calibration catalog, checks them
// against the reference magnitude and selects the background candidates.
func (s *ETASSimulation) Prepare() error {
	spec := s.bundle.Spec
	s.region = s.bundle.Region
	if s.region == nil {
		region, err := spec.Region()
		if err != nil {
			return err
		}
		s.region = region
	}

	sources, err := joinSources(s.bundle.Sources, s.bundle.Catalog)
	if err != nil {
		return err
	}
	if err := checkReferenceMagnitude(sources, spec.MRef); err != nil {
		return err
	}
	s.sources = sources

	if s.density, err = s.backgroundDensity(); err != nil {
		return err
	}

	// The cascade runs with the lower bin edge as completeness magnitude.
	params := spec.ModelParameters()
	params.Mc = params.ReferenceMagnitude()
	params.DeltaM = 0
	s.simulator, err = sim.NewSimulator(sim.Config{
		Params:        params,
		Region:        s.region,
		Density:       s.density,
		Limits:        s.opts.Limits,
		FilterRegion:  !s.opts.KeepOutside,
		EarthRadiusKm: s.opts.EarthRadiusKm,
	})
	if err != nil {
		return err
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder.SetBranchingRatio(params.Theta.BranchingRatio(params.Beta))
	}
	logrus.Infof("m_ref %.2f, %d source events, smallest magnitude %.2f", spec.MRef, len(sources), minMagnitude(sources))
	return nil
}

// joinSources looks up every source id in the catalog.
func joinSources(sources []calibration.SourceEvent, catalog []calibration.CatalogEvent) ([]sim.Event, error) {
	byID := make(map[string]calibration.CatalogEvent, len(catalog))
	for _, e := range catalog {
		if _, dup := byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: catalog id %q appears more than once", sim.ErrDataConsistency, e.ID)
		}
		byID[e.ID] = e
	}
	seen := make(map[string]bool, len(sources))
	events := make([]sim.Event, 0, len(sources))
	for _, src := range sources {
		if seen[src.ID] {
			return nil, fmt.Errorf("%w: source id %q appears more than once", sim.ErrDataConsistency, src.ID)
		}
		seen[src.ID] = true
		e, ok := byID[src.ID]
		if !ok {
			return nil, fmt.Errorf("%w: source id %q not in the calibration catalog", sim.ErrDataConsistency, src.ID)
		}
		events = append(events, sim.Event{
			Time:      e.Time,
			Latitude:  e.Latitude,
			Longitude: e.Longitude,
			Magnitude: e.Magnitude,
			XiPlus1:   src.XiPlus1,
			SourceID:  src.ID,
		})
	}
	if len(events) != len(sources) {
		return nil, fmt.Errorf("%w: joined %d of %d sources", sim.ErrDataConsistency, len(events), len(sources))
	}
	return events, nil
}

func minMagnitude(events []sim.Event) float64 {
	m := math.NaN()
	for _, e := range events {
		if math.IsNaN(m) || e.Magnitude < m {
			m = e.Magnitude
		}
	}
	return m
}

// checkReferenceMagnitude requires |min − mRef| ≤ 1e-7·|mRef|.
func checkReferenceMagnitude(sources []sim.Event, mRef float64) error {
	got := minMagnitude(sources)
	if math.IsNaN(got) || math.Abs(got-mRef) > magnitudeTolerance*math.Abs(mRef) {
		return fmt.Errorf("%w: smallest magnitude in sources is %v but simulating above %v",
			sim.ErrCalibrationMismatch, got, mRef)
	}
	return nil
}

// backgroundDensity builds the resampler from the grid when one is given,
// otherwise from the target events above the reference magnitude inside the
// region. Without candidates background events are placed uniformly.
func (s *ETASSimulation) backgroundDensity() (*sim.BackgroundDensity, error) {
	if g := s.bundle.Grid; g != nil {
		d, err := sim.NewBackgroundDensity(g.Latitudes, g.Longitudes, g.Weights, s.opts.GaussianScale)
		if err != nil {
			return nil, err
		}
		if g.CellJitter {
			d.CellLat, d.CellLon = g.CellLat, g.CellLon
		}
		return d, nil
	}

	ref := s.bundle.Spec.ModelParameters().ReferenceMagnitude()
	var lats, lons, weights []float64
	for _, t := range s.bundle.Targets {
		if t.Magnitude < ref || !s.region.Contains(t.Latitude, t.Longitude) {
			continue
		}
		lats = append(lats, t.Latitude)
		lons = append(lons, t.Longitude)
		weights = append(weights, t.PBackground)
	}
	if len(lats) == 0 {
		logrus.Warn("no target events inside the region; background events will be placed uniformly")
		return nil, nil
	}
	return sim.NewBackgroundDensity(lats, lons, weights, s.opts.GaussianScale)
}

// window returns the forecast period [start, end] for nDays after the end of
// the training window.
func (s *ETASSimulation) window(nDays int) (start, end time.Time) {
	start = s.bundle.Spec.TimewindowEnd
	return start, start.AddDate(0, 0, nDays)
}

// run simulates one continuation with the stream of run id.
func (s *ETASSimulation) run(id int, start, end time.Time) (*sim.Result, error) {
	if s.simulator == nil {
		return nil, errors.New("forecast: Prepare has not been called")
	}
	rng := sim.NewPartitionedRNG(sim.NewSimulationKey(s.opts.Seed)).ForRun(id)
	began := time.Now()
	res, err := s.simulator.SimulateContinuation(rng, s.sources, sim.ContinuationWindow{
		AuxiliaryStart: s.bundle.Spec.AuxiliaryStart,
		AuxiliaryEnd:   start,
		End:            end,
	})
	took := time.Since(began)
	if rec := s.opts.Recorder; rec != nil {
		if err != nil {
			rec.RunFailed(took)
		} else {
			rec.RunSucceeded(took, res.Background, res.Catalog.Len()-res.Background-res.Auxiliary, res.Generations)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("catalog %d: %w", id, err)
	}
	logrus.WithFields(logrus.Fields{
		"catalog_id": id,
		"events":     len(res.Events),
		"took":       took,
	}).Debug("simulated catalog")
	return res, nil
}

// rows selects the events of res inside [start, end] with magnitude at least
// minMag and converts them with magnitudes rounded to one decimal.
func rows(res *sim.Result, catalogID int, start, end time.Time, minMag float64, region *geo.Region) []store.Row {
	out := make([]store.Row, 0, len(res.Events))
	for i := range res.Events {
		e := &res.Events[i]
		if e.Time.Before(start) || e.Time.After(end) || e.Magnitude < minMag {
			continue
		}
		if region != nil && !region.Contains(e.Latitude, e.Longitude) {
			continue
		}
		out = append(out, store.Row{
			ID:             int64(e.ID),
			CatalogID:      catalogID,
			Latitude:       e.Latitude,
			Longitude:      e.Longitude,
			Time:           e.Time,
			Magnitude:      sim.RoundHalfAwayFromZero(e.Magnitude, 1),
			IsBackground:   e.IsBackground,
			ParentID:       int64(e.ParentID),
			Generation:     e.Generation,
			LineageID:      int64(e.LineageID),
			NumAftershocks: e.NumAftershocks,
		})
	}
	return out
}

// SimulateOnce writes one forecast catalog of nDays to sink, sorted by time.
func (s *ETASSimulation) SimulateOnce(ctx context.Context, sink store.Sink, nDays int) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	start, end := s.window(nDays)
	res, err := s.run(0, start, end)
	if err != nil {
		return err
	}
	out := rows(res, 0, start, end, s.simulator.Params().ReferenceMagnitude(), nil)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	if err := sink.WriteBatch(out); err != nil {
		return err
	}
	if s.opts.Recorder != nil {
		s.opts.Recorder.Flushed(len(out))
	}
	logrus.Infof("simulated 1 catalog with %d events between %s and %s", len(out),
		start.Format(time.DateOnly), end.Format(time.DateOnly))
	return nil
}
