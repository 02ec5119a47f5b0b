package sim

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/etas-sim/etas-sim/sim/geo"
	"github.com/etas-sim/etas-sim/sim/internal/testutil"
)

// swissTheta is a realistic, subcritical parameter set.
var swissTheta = Theta{
	Log10Mu: -6.21, Log10K0: -2.75, A: 1.13, Log10C: -2.85, Omega: -0.13,
	Log10Tau: 3.57, Log10D: -0.51, Gamma: 0.15, Rho: 0.63,
}

func swissParams() ModelParameters {
	return ModelParameters{Theta: swissTheta, Beta: 2.3, Mc: 2.2, DeltaM: 0.1}
}

// quietParams disables triggering so only the background remains.
func quietParams(log10Mu float64) ModelParameters {
	p := swissParams()
	p.Theta.Log10Mu = log10Mu
	p.Theta.Log10K0 = -30
	return p
}

func unitSquare(t *testing.T) *geo.Region {
	t.Helper()
	r, err := geo.NewRegion(testutil.UnitSquare)
	require.NoError(t, err)
	return r
}

// muForCount returns log10_mu yielding the given expected background count.
func muForCount(region *geo.Region, days, count float64) float64 {
	return math.Log10(count / (region.AreaKm2() * days))
}

func newTestSimulator(t *testing.T, cfg Config) *Simulator {
	t.Helper()
	s, err := NewSimulator(cfg)
	require.NoError(t, err)
	return s
}

// assertCascadeInvariants checks the parent/generation/time/lineage invariants
// over a whole catalog.
func assertCascadeInvariants(t *testing.T, cat *Catalog) {
	t.Helper()
	seen := make(map[EventID]bool, cat.Len())
	for _, e := range cat.Events() {
		if seen[e.ID] {
			t.Fatalf("duplicate id %d", e.ID)
		}
		seen[e.ID] = true

		if e.IsRoot() {
			if e.Generation != 0 {
				t.Errorf("root %d has generation %d", e.ID, e.Generation)
			}
			if e.LineageID != e.ID {
				t.Errorf("root %d has lineage %d", e.ID, e.LineageID)
			}
			continue
		}
		parent, ok := cat.Get(e.ParentID)
		if !ok {
			t.Fatalf("event %d has unknown parent %d", e.ID, e.ParentID)
		}
		if e.Generation != parent.Generation+1 {
			t.Errorf("event %d: generation %d, parent generation %d", e.ID, e.Generation, parent.Generation)
		}
		if !e.Time.After(parent.Time) {
			t.Errorf("event %d at %v not after parent at %v", e.ID, e.Time, parent.Time)
		}
		if e.LineageID != parent.LineageID {
			t.Errorf("event %d: lineage %d, parent lineage %d", e.ID, e.LineageID, parent.LineageID)
		}
		if e.IsBackground {
			t.Errorf("aftershock %d flagged as background", e.ID)
		}
	}
}
