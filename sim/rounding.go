package sim

import "math"

// RoundHalfAwayFromZero rounds x to the given number of decimals, sending ties
// away from zero: 2.25 → 2.3 and −2.25 → −2.3.
//
// The scaled value is first snapped to 1e-6 so that binary representation
// error (1.15·10 = 11.4999…) does not hide a decimal tie.
func RoundHalfAwayFromZero(x float64, decimals int) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return x
	}
	p := math.Pow(10, float64(decimals))
	scaled := math.Round(x*p*1e6) / 1e6
	return math.Round(scaled) / p
}
