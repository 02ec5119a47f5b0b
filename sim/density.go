package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// errNoCandidates is returned when the acceptance step keeps no point.
var errNoCandidates = errors.New("background density accepted no candidate")

// DefaultGaussianScale is the smoothing applied to resampled background
// locations, in degrees.
const DefaultGaussianScale = 0.1

// BackgroundDensity resamples background locations from a weighted point set:
// observed events with their background probabilities, or a rate grid.
//
// Each point is kept with probability equal to its weight (weights ≥ 1 are
// always kept), n locations are drawn with replacement from the kept points,
// and each is jittered. Jitter is Gaussian with sd Scale unless CellLat and
// CellLon are set, in which case it is uniform within the grid cell.
type BackgroundDensity struct {
	Latitudes  []float64
	Longitudes []float64
	Weights    []float64
	Scale      float64
	CellLat    float64
	CellLon    float64
}

// NewBackgroundDensity checks that the columns line up and weights are usable.
func NewBackgroundDensity(lats, lons, weights []float64, scale float64) (*BackgroundDensity, error) {
	if len(lats) != len(lons) || len(lats) != len(weights) {
		return nil, fmt.Errorf("background density: column lengths differ (%d lat, %d lon, %d weights)",
			len(lats), len(lons), len(weights))
	}
	for i, w := range weights {
		if math.IsNaN(w) || w < 0 {
			return nil, fmt.Errorf("background density: weight %d is %v", i, w)
		}
	}
	if scale < 0 || math.IsNaN(scale) {
		return nil, fmt.Errorf("background density: scale must be >= 0, got %v", scale)
	}
	return &BackgroundDensity{Latitudes: lats, Longitudes: lons, Weights: weights, Scale: scale}, nil
}

// Sample draws n jittered locations.
func (d *BackgroundDensity) Sample(rng *rand.Rand, n int) (lats, lons []float64, err error) {
	kept := make([]int, 0, len(d.Weights))
	for i, w := range d.Weights {
		if w >= rng.Float64() {
			kept = append(kept, i)
		}
	}
	if len(kept) == 0 {
		return nil, nil, errNoCandidates
	}

	lats = make([]float64, n)
	lons = make([]float64, n)
	for i := 0; i < n; i++ {
		j := kept[rng.IntN(len(kept))]
		lats[i] = d.Latitudes[j]
		lons[i] = d.Longitudes[j]
	}

	if d.CellLat > 0 && d.CellLon > 0 {
		for i := 0; i < n; i++ {
			lats[i] += (rng.Float64() - 0.5) * d.CellLat
			lons[i] += (rng.Float64() - 0.5) * d.CellLon
		}
		return lats, lons, nil
	}
	if d.Scale > 0 {
		noise := distuv.Normal{Mu: 0, Sigma: d.Scale, Src: rng}
		for i := 0; i < n; i++ {
			lats[i] += noise.Rand()
		}
		for i := 0; i < n; i++ {
			lons[i] += noise.Rand()
		}
	}
	return lats, lons, nil
}

// maxPoissonMean bounds the mean handed to the Poisson sampler so the draw
// always fits an int. Cascades that large are stopped by the event cap.
const maxPoissonMean = 1e12

// poisson draws a Poisson variate with mean lambda.
func poisson(rng *rand.Rand, lambda float64) int {
	if !(lambda > 0) {
		return 0
	}
	lambda = math.Min(lambda, maxPoissonMean)
	return int(distuv.Poisson{Lambda: lambda, Src: rng}.Rand())
}
