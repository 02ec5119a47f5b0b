package sim

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/etas-sim/etas-sim/sim/geo"
	"github.com/etas-sim/etas-sim/sim/internal/testutil"
)

func productiveConfig(t *testing.T) Config {
	region := unitSquare(t)
	p := swissParams()
	p.Theta.Log10Mu = muForCount(region, 365, 30)
	// More productive than the reference set so cascades are deep.
	p.Theta.Log10K0 = -2.65
	return Config{Params: p, Region: region}
}

func TestNewSimulator_RejectsInvalidConfig(t *testing.T) {
	cfg := productiveConfig(t)
	cfg.Params.Beta = 0
	_, err := NewSimulator(cfg)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	cfg = productiveConfig(t)
	cfg.Region = nil
	_, err = NewSimulator(cfg)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestGenerateCatalog_CascadeInvariants(t *testing.T) {
	s := newTestSimulator(t, productiveConfig(t))
	for seed := int64(0); seed < 5; seed++ {
		res, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(seed)), testutil.Days(0), testutil.Days(365))
		require.NoError(t, err)

		assertCascadeInvariants(t, res.Catalog)
		for _, e := range res.Catalog.Events() {
			if e.IsRoot() {
				assert.True(t, e.IsBackground, "root %d must be background", e.ID)
			}
			assert.False(t, e.Time.After(testutil.Days(365)))
		}
		assert.Equal(t, res.Catalog.MaxGeneration(), res.Generations)
		assert.Equal(t, res.Catalog.Len(), len(res.Events), "no region filter requested")
	}
}

func TestGenerateCatalog_BackgroundIDsFollowTime(t *testing.T) {
	s := newTestSimulator(t, productiveConfig(t))
	res, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(12)), testutil.Days(0), testutil.Days(365))
	require.NoError(t, err)

	var prev time.Time
	for id := EventID(1); id <= EventID(res.Background); id++ {
		e, ok := res.Catalog.Get(id)
		require.True(t, ok)
		require.True(t, e.IsBackground)
		assert.False(t, e.Time.Before(prev), "background id %d out of time order", id)
		prev = e.Time
	}
}

func TestGenerateCatalog_SameSeedSameCatalog(t *testing.T) {
	s := newTestSimulator(t, productiveConfig(t))
	a, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(99)), testutil.Days(0), testutil.Days(365))
	require.NoError(t, err)
	b, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(99)), testutil.Days(0), testutil.Days(365))
	require.NoError(t, err)
	assert.Equal(t, a.Catalog.Events(), b.Catalog.Events())
}

func TestGenerateCatalog_RegionFilter(t *testing.T) {
	cfg := productiveConfig(t)
	cfg.FilterRegion = true
	s := newTestSimulator(t, cfg)

	res, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(5)), testutil.Days(0), testutil.Days(365))
	require.NoError(t, err)

	for _, e := range res.Events {
		assert.True(t, cfg.Region.Contains(e.Latitude, e.Longitude))
	}
	outside := res.Catalog.Filter(func(e *Event) bool { return !cfg.Region.Contains(e.Latitude, e.Longitude) })
	assert.Equal(t, res.Catalog.Len(), len(res.Events)+len(outside))
}

func TestGenerateCatalog_RunawayCaps(t *testing.T) {
	// GIVEN a supercritical parameter set
	cfg := productiveConfig(t)
	cfg.Params.Theta.Log10K0 = 0

	t.Run("generation cap", func(t *testing.T) {
		cfg := cfg
		cfg.Limits.MaxGenerations = 1
		cfg.Limits.MaxEvents = 1_000_000
		s := newTestSimulator(t, cfg)
		_, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(1)), testutil.Days(0), testutil.Days(365))
		assert.True(t, errors.Is(err, ErrRunawayBranching), "got %v", err)
	})

	t.Run("event cap", func(t *testing.T) {
		cfg := cfg
		cfg.Limits.MaxEvents = 500
		s := newTestSimulator(t, cfg)
		_, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(1)), testutil.Days(0), testutil.Days(365))
		assert.True(t, errors.Is(err, ErrRunawayBranching), "got %v", err)
	})
}

func TestGenerateCatalog_BranchingRatioReported(t *testing.T) {
	s := newTestSimulator(t, productiveConfig(t))
	res, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(3)), testutil.Days(0), testutil.Days(30))
	require.NoError(t, err)
	assert.InDelta(t, s.Params().Theta.BranchingRatio(s.Params().Beta), res.BranchingRatio, 1e-12)
}

// Unit square, 100 days, β = 2, mc = 2 and a background rate giving one
// expected event: the run terminates and every invariant holds.
func TestGenerateCatalog_UnitSquareEndToEnd(t *testing.T) {
	region := unitSquare(t)
	p := ModelParameters{
		Theta: Theta{
			Log10Mu: muForCount(region, 100, 1), Log10K0: -2.75, A: 1.13, Log10C: -2.85,
			Omega: -0.13, Log10Tau: 3.57, Log10D: -0.51, Gamma: 0.15, Rho: 0.63,
		},
		Beta: 2, Mc: 2,
	}
	s := newTestSimulator(t, Config{Params: p, Region: region, FilterRegion: true})

	total := 0
	for seed := int64(0); seed < 20; seed++ {
		res, err := s.GenerateCatalog(NewPartitionedRNG(NewSimulationKey(seed)), testutil.Days(0), testutil.Days(100))
		require.NoError(t, err)
		assertCascadeInvariants(t, res.Catalog)
		for _, e := range res.Events {
			assert.True(t, region.Contains(e.Latitude, e.Longitude))
			assert.GreaterOrEqual(t, e.Magnitude, 2.0)
		}
		total += res.Background
	}
	// 20 runs of one expected background event each.
	assert.InDelta(t, 20, total, 15)
}

func TestNewSimulator_EarthRadius(t *testing.T) {
	s := newTestSimulator(t, Config{Params: swissParams(), Region: unitSquare(t)})
	assert.Equal(t, geo.EarthRadiusKm, s.branching.Aftershocks.Places.earthRadius)

	s = newTestSimulator(t, Config{Params: swissParams(), Region: unitSquare(t), EarthRadiusKm: 6371})
	assert.Equal(t, 6371.0, s.branching.Aftershocks.Places.earthRadius)
}
