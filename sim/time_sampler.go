package sim

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/etas-sim/etas-sim/sim/special"
)

// TimeSampler draws aftershock delays (days) from the tapered Omori kernel
// e^(−t/τ)/(t+c)^(1+ω) by inverting its normalized survival function:
//
//	delay = τ · Γ⁻¹(−ω, (1−y)·Γ(−ω, c/τ)) − c,  y ~ U(0,1)
type TimeSampler struct {
	c, tau, omega float64
	norm          float64 // Γ(−ω, c/τ)
}

// NewTimeSampler precomputes the normalization for theta.
func NewTimeSampler(theta Theta) (*TimeSampler, error) {
	c, tau := theta.C(), theta.Tau()
	norm := special.UpperGammaExt(-theta.Omega, c/tau)
	if !(norm > 0) || math.IsInf(norm, 0) {
		return nil, fmt.Errorf("%w: temporal kernel normalization Γ(%v, %v) = %v",
			ErrInvalidParameters, -theta.Omega, c/tau, norm)
	}
	return &TimeSampler{c: c, tau: tau, omega: theta.Omega, norm: norm}, nil
}

// Sample returns one delay in days.
func (s *TimeSampler) Sample(rng *rand.Rand) (float64, error) {
	return s.delay(rng.Float64())
}

func (s *TimeSampler) delay(y float64) (float64, error) {
	x, err := special.InverseUpperGammaExt(-s.omega, (1-y)*s.norm)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrNumericalInversion, err)
	}
	return x*s.tau - s.c, nil
}

// Survival returns P(delay > t) for t ≥ 0.
func (s *TimeSampler) Survival(t float64) float64 {
	return special.UpperGammaExt(-s.omega, (t+s.c)/s.tau) / s.norm
}
