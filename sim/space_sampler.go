package sim

import (
	"math"
	"math/rand/v2"

	"github.com/etas-sim/etas-sim/sim/geo"
)

// SpatialSampler draws aftershock offsets from the magnitude-scaled power-law
// kernel 1/(r² + d·e^(γ(m−mc)))^(1+ρ).
type SpatialSampler struct {
	d, gamma, rho, mc float64
	earthRadius       float64
}

// NewSpatialSampler builds a sampler for theta relative to mc.
func NewSpatialSampler(theta Theta, mc float64) *SpatialSampler {
	return &SpatialSampler{
		d:           theta.D(),
		gamma:       theta.Gamma,
		rho:         theta.Rho,
		mc:          mc,
		earthRadius: geo.EarthRadiusKm,
	}
}

// Radius returns a distance in km from a parent of magnitude m.
func (s *SpatialSampler) Radius(rng *rand.Rand, m float64) float64 {
	return s.radius(rng.Float64(), m)
}

func (s *SpatialSampler) radius(y, m float64) float64 {
	dg := s.d * math.Exp(s.gamma*(m-s.mc))
	return math.Sqrt(math.Pow(1-y, -1/s.rho)*dg - dg)
}

// Offset returns (Δlat, Δlon) in degrees for a parent of magnitude m located
// at latitude lat. The bearing is uniform on [0, 2π).
func (s *SpatialSampler) Offset(rng *rand.Rand, m, lat float64) (dLat, dLon float64) {
	r := s.Radius(rng, m)
	phi := 2 * math.Pi * rng.Float64()
	latKm, lonKm := geo.KmPerDegree(lat, s.earthRadius)
	return r * math.Cos(phi) / latKm, r * math.Sin(phi) / lonKm
}
