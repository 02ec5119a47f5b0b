package sim

import (
	"fmt"
	"math"

	"github.com/etas-sim/etas-sim/sim/special"
)

// Theta holds the nine ETAS parameters. Log-scaled fields are base-10.
type Theta struct {
	Log10Mu  float64 `yaml:"log10_mu" mapstructure:"log10_mu"`
	Log10K0  float64 `yaml:"log10_k0" mapstructure:"log10_k0"`
	A        float64 `yaml:"a" mapstructure:"a"`
	Log10C   float64 `yaml:"log10_c" mapstructure:"log10_c"`
	Omega    float64 `yaml:"omega" mapstructure:"omega"`
	Log10Tau float64 `yaml:"log10_tau" mapstructure:"log10_tau"`
	Log10D   float64 `yaml:"log10_d" mapstructure:"log10_d"`
	Gamma    float64 `yaml:"gamma" mapstructure:"gamma"`
	Rho      float64 `yaml:"rho" mapstructure:"rho"`
}

// Mu returns the background rate in events per day per km² above mc.
func (t Theta) Mu() float64 { return math.Pow(10, t.Log10Mu) }

// K0 returns the productivity scale.
func (t Theta) K0() float64 { return math.Pow(10, t.Log10K0) }

// C returns the Omori c-value in days.
func (t Theta) C() float64 { return math.Pow(10, t.Log10C) }

// Tau returns the taper time scale in days.
func (t Theta) Tau() float64 { return math.Pow(10, t.Log10Tau) }

// D returns the spatial kernel scale in km².
func (t Theta) D() float64 { return math.Pow(10, t.Log10D) }

// ModelParameters is the full, immutable parameter set of a run.
type ModelParameters struct {
	Theta Theta

	// Beta is the Gutenberg–Richter rate (ln 10 · b) for background events.
	Beta float64
	// BetaAftershock overrides Beta for triggered events when non-zero.
	BetaAftershock float64
	// Mc is the completeness magnitude.
	Mc float64
	// DeltaM is the magnitude binning width. Generated magnitudes are drawn
	// above Mc − DeltaM/2.
	DeltaM float64
	// MMax truncates the magnitude law when non-zero.
	MMax float64
}

// AftershockBeta returns the GR rate used for triggered events.
func (p ModelParameters) AftershockBeta() float64 {
	if p.BetaAftershock != 0 {
		return p.BetaAftershock
	}
	return p.Beta
}

// ReferenceMagnitude returns Mc − DeltaM/2, the lower edge of the lowest bin.
func (p ModelParameters) ReferenceMagnitude() float64 {
	return p.Mc - p.DeltaM/2
}

// Validate rejects parameter sets that would make the kernels undefined.
func (p ModelParameters) Validate() error {
	named := []struct {
		name string
		v    float64
	}{
		{"log10_mu", p.Theta.Log10Mu}, {"log10_k0", p.Theta.Log10K0}, {"a", p.Theta.A},
		{"log10_c", p.Theta.Log10C}, {"omega", p.Theta.Omega}, {"log10_tau", p.Theta.Log10Tau},
		{"log10_d", p.Theta.Log10D}, {"gamma", p.Theta.Gamma}, {"rho", p.Theta.Rho},
		{"beta", p.Beta}, {"beta_aftershock", p.BetaAftershock}, {"mc", p.Mc},
		{"delta_m", p.DeltaM}, {"m_max", p.MMax},
	}
	for _, f := range named {
		if math.IsNaN(f.v) || math.IsInf(f.v, 0) {
			return fmt.Errorf("%w: %s must be finite, got %v", ErrInvalidParameters, f.name, f.v)
		}
	}
	if p.Theta.Rho <= 0 {
		return fmt.Errorf("%w: rho must be > 0, got %v", ErrInvalidParameters, p.Theta.Rho)
	}
	if p.Beta <= 0 {
		return fmt.Errorf("%w: beta must be > 0, got %v", ErrInvalidParameters, p.Beta)
	}
	if p.BetaAftershock < 0 {
		return fmt.Errorf("%w: beta_aftershock must be >= 0, got %v", ErrInvalidParameters, p.BetaAftershock)
	}
	if p.DeltaM < 0 {
		return fmt.Errorf("%w: delta_m must be >= 0, got %v", ErrInvalidParameters, p.DeltaM)
	}
	if p.MMax != 0 && p.MMax <= p.ReferenceMagnitude() {
		return fmt.Errorf("%w: m_max %v must exceed the reference magnitude %v",
			ErrInvalidParameters, p.MMax, p.ReferenceMagnitude())
	}
	return nil
}

// ExpectedAftershocks returns the expected number of direct aftershocks of an
// event of magnitude m over unbounded time and space, relative to the reference
// magnitude mc:
//
//	k0·e^(a(m−mc)) · π/ρ·(d·e^(γ(m−mc)))^(−ρ) · τ^(−ω)·e^(c/τ)·Γ(−ω, c/τ)
func (t Theta) ExpectedAftershocks(m, mc float64) float64 {
	dm := m - mc
	number := t.K0() * math.Exp(t.A*dm)
	area := math.Pi / t.Rho * math.Pow(t.D()*math.Exp(t.Gamma*dm), -t.Rho)
	return number * area * t.timeIntegral()
}

// BranchingRatio returns the mean number of direct aftershocks per event
// averaged over the magnitude law with rate beta. It is +Inf when the average
// diverges (beta ≤ a − γρ).
func (t Theta) BranchingRatio(beta float64) float64 {
	denom := beta - t.A + t.Gamma*t.Rho
	if denom <= 0 {
		return math.Inf(1)
	}
	return t.K0() * math.Pi / t.Rho * math.Pow(t.D(), -t.Rho) * t.timeIntegral() * beta / denom
}

// timeIntegral is ∫_0^∞ e^(−t/τ)/(t+c)^(1+ω) dt.
func (t Theta) timeIntegral() float64 {
	c, tau := t.C(), t.Tau()
	return math.Pow(tau, -t.Omega) * math.Exp(c/tau) * special.UpperGammaExt(-t.Omega, c/tau)
}
