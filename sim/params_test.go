package sim

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"gonum.org/v1/gonum/integrate"

	"github.com/etas-sim/etas-sim/sim/internal/testutil"
)

func TestTheta_ExpectedAftershocks_GrowsWithMagnitude(t *testing.T) {
	// GIVEN a ≥ γρ, productivity increases with magnitude
	low := swissTheta.ExpectedAftershocks(2.2, 2.2)
	high := swissTheta.ExpectedAftershocks(6.0, 2.2)
	assert.Greater(t, high, low)

	// AND the magnitude scaling is exp((a − γρ)(m − mc))
	ratio := high / low
	want := math.Exp((swissTheta.A - swissTheta.Gamma*swissTheta.Rho) * (6.0 - 2.2))
	testutil.AssertFloat64Equal(t, "productivity ratio", want, ratio, 1e-9)
}

func TestTheta_BranchingRatio_MatchesMagnitudeAverage(t *testing.T) {
	// The branching ratio is the productivity averaged over β·e^(−β(m−mc)).
	const beta, mc = 2.3, 2.2
	n := 20001
	ms := make([]float64, n)
	fs := make([]float64, n)
	for i := range ms {
		ms[i] = mc + 20*float64(i)/float64(n-1)
		fs[i] = swissTheta.ExpectedAftershocks(ms[i], mc) * beta * math.Exp(-beta*(ms[i]-mc))
	}
	numeric := integrate.Trapezoidal(ms, fs)

	testutil.AssertFloat64Equal(t, "branching ratio", numeric, swissTheta.BranchingRatio(beta), 1e-4)
	assert.Less(t, swissTheta.BranchingRatio(beta), 1.0, "reference parameters must be subcritical")
}

func TestTheta_BranchingRatio_DivergesForLightTail(t *testing.T) {
	// GIVEN β ≤ a − γρ the magnitude average diverges
	assert.True(t, math.IsInf(swissTheta.BranchingRatio(0.5), 1))
}

func TestModelParameters_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*ModelParameters)
	}{
		{"NaN omega", func(p *ModelParameters) { p.Theta.Omega = math.NaN() }},
		{"infinite mu", func(p *ModelParameters) { p.Theta.Log10Mu = math.Inf(1) }},
		{"zero rho", func(p *ModelParameters) { p.Theta.Rho = 0 }},
		{"negative beta", func(p *ModelParameters) { p.Beta = -1 }},
		{"negative delta_m", func(p *ModelParameters) { p.DeltaM = -0.1 }},
		{"m_max below mc", func(p *ModelParameters) { p.MMax = 2.0 }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			p := swissParams()
			tc.mutate(&p)
			err := p.Validate()
			if !errors.Is(err, ErrInvalidParameters) {
				t.Errorf("Validate() = %v, want ErrInvalidParameters", err)
			}
		})
	}
	assert.NoError(t, swissParams().Validate())
}

func TestModelParameters_Derived(t *testing.T) {
	p := swissParams()
	assert.InDelta(t, 2.15, p.ReferenceMagnitude(), 1e-12)
	assert.Equal(t, 2.3, p.AftershockBeta())
	p.BetaAftershock = 2.0
	assert.Equal(t, 2.0, p.AftershockBeta())
}
