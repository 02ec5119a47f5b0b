package sim

import (
	"math"
	"math/rand/v2"
)

// MagnitudeSampler draws magnitudes above mc from a frequency–magnitude law
// with rate beta.
type MagnitudeSampler interface {
	Sample(rng *rand.Rand, n int, beta, mc float64) []float64
}

// GutenbergRichter is the exponential magnitude law, optionally truncated at
// MMax (zero means unbounded).
type GutenbergRichter struct {
	MMax float64
}

// Sample draws n magnitudes by inverting the (truncated) exponential CDF.
func (g GutenbergRichter) Sample(rng *rand.Rand, n int, beta, mc float64) []float64 {
	out := make([]float64, n)
	span := 1.0
	if g.MMax > mc {
		span = -math.Expm1(-beta * (g.MMax - mc))
	}
	for i := range out {
		out[i] = mc - math.Log1p(-rng.Float64()*span)/beta
	}
	return out
}
