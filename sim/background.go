package sim

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/etas-sim/etas-sim/sim/geo"
)

const (
	// DefaultMaxRetries bounds the uniform re-placement attempts.
	DefaultMaxRetries = 100

	// overGeneration inflates the candidate count to cover the rejection
	// rate of the bounding rectangle.
	overGeneration = 1.2

	// maxBackgroundMean rejects parameter sets whose background alone would
	// not fit in memory.
	maxBackgroundMean = 5e7
)

// BackgroundGenerator produces the spontaneous events of a time window inside
// a region.
type BackgroundGenerator struct {
	Region     *geo.Region
	Params     ModelParameters
	Density    *BackgroundDensity // nil places events uniformly
	Magnitudes MagnitudeSampler
	MaxRetries int
}

// Generate returns the background events of [start, end), sorted by time.
// Events carry no ids yet; the catalog assigns them on append.
func (g *BackgroundGenerator) Generate(rng *PartitionedRNG, start, end time.Time) ([]Event, error) {
	days := DaysBetween(start, end)
	if days <= 0 {
		return nil, nil
	}
	area := g.Region.AreaKm2()
	expected := g.Params.Theta.Mu() * area * days
	if expected > maxBackgroundMean {
		return nil, fmt.Errorf("%w: expected background count %.3g exceeds %.0g",
			ErrInvalidParameters, expected, maxBackgroundMean)
	}
	bg := rng.ForSubsystem(SubsystemBackground)
	n := poisson(bg, expected)
	logrus.Debugf("background: expected %.3f events over %.2f days and %.1f km², drew %d", expected, days, area, n)
	if n == 0 {
		return nil, nil
	}

	rect := g.Region.BoundingRectangle()
	nGenerate := int(math.Round(float64(n) * rect.AreaKm2() / area * overGeneration))
	if nGenerate < n {
		nGenerate = n
	}

	lats, lons, err := g.place(rng, nGenerate)
	if err != nil {
		return nil, err
	}
	lats, lons = g.keepInside(lats, lons, n)

	maxRetries := g.MaxRetries
	if maxRetries <= 0 {
		maxRetries = DefaultMaxRetries
	}
	for attempt := 1; len(lats) < n; attempt++ {
		if attempt > maxRetries {
			return nil, fmt.Errorf("%w: %d of %d events placed after %d attempts",
				ErrGenerationRetryExhausted, len(lats), n, maxRetries)
		}
		logrus.Debugf("background: only %d of %d inside region, retrying uniformly (attempt %d)", len(lats), n, attempt)
		lats, lons = g.uniform(rng, nGenerate)
		lats, lons = g.keepInside(lats, lons, n)
	}

	events := make([]Event, n)
	for i := range events {
		offset := daysToDuration(bg.Float64() * days)
		events[i] = Event{
			Time:         start.Add(offset),
			Latitude:     lats[i],
			Longitude:    lons[i],
			IsBackground: true,
			XiPlus1:      1,
		}
	}
	sort.SliceStable(events, ByTime(events))

	ref := g.Params.ReferenceMagnitude()
	mags := g.Magnitudes.Sample(rng.ForSubsystem(SubsystemMagnitude), n, g.Params.Beta, ref)
	prod := rng.ForSubsystem(SubsystemProductivity)
	for i := range events {
		events[i].Magnitude = mags[i]
		events[i].ExpectedAftershocks = g.Params.Theta.ExpectedAftershocks(mags[i], ref)
		events[i].NumAftershocks = poisson(prod, events[i].ExpectedAftershocks)
	}
	return events, nil
}

// place draws the first candidate batch from the density, or uniformly when
// there is none or it accepts nothing.
func (g *BackgroundGenerator) place(rng *PartitionedRNG, n int) (lats, lons []float64, err error) {
	if g.Density == nil {
		lats, lons = g.uniform(rng, n)
		return lats, lons, nil
	}
	lats, lons, err = g.Density.Sample(rng.ForSubsystem(SubsystemBackground), n)
	if errors.Is(err, errNoCandidates) {
		logrus.Warnf("background: density accepted no candidate, placing uniformly")
		lats, lons = g.uniform(rng, n)
		return lats, lons, nil
	}
	return lats, lons, err
}

func (g *BackgroundGenerator) uniform(rng *PartitionedRNG, n int) (lats, lons []float64) {
	bg := rng.ForSubsystem(SubsystemBackground)
	minLat, maxLat, minLon, maxLon := g.Region.Bounds()
	lats = make([]float64, n)
	lons = make([]float64, n)
	for i := 0; i < n; i++ {
		lats[i] = minLat + bg.Float64()*(maxLat-minLat)
		lons[i] = minLon + bg.Float64()*(maxLon-minLon)
	}
	return lats, lons
}

// keepInside returns at most limit in-region points, in draw order.
func (g *BackgroundGenerator) keepInside(lats, lons []float64, limit int) ([]float64, []float64) {
	outLat := make([]float64, 0, limit)
	outLon := make([]float64, 0, limit)
	for i := range lats {
		if len(outLat) == limit {
			break
		}
		if g.Region.Contains(lats[i], lons[i]) {
			outLat = append(outLat, lats[i])
			outLon = append(outLon, lons[i])
		}
	}
	return outLat, outLon
}
