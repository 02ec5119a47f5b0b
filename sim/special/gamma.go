// Package special implements the upper incomplete gamma function extended to
// non-positive shape parameters, together with its inverse in the second
// argument. The aftershock delay kernel is sampled through this inverse.
package special

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mathext"
)

// ErrNoConvergence is returned when the root finder cannot bracket or refine
// the inverse within its iteration budget.
var ErrNoConvergence = errors.New("upper gamma inversion did not converge")

const (
	eulerGamma = 0.5772156649015329

	// e1 series/continued-fraction controls.
	e1MaxIterations = 200
	e1Epsilon       = 1e-16
	e1FPMin         = 1e-300

	// root finder controls.
	inverseMaxIterations = 300
	inverseTolerance     = 1e-12
	inverseMinX          = 1e-300
	inverseMaxX          = 1e4
)

// UpperGammaExt returns Γ(s, x) for x > 0 and any real s.
//
//	s > 0:  Q(s, x)·Γ(s)
//	s = 0:  E1(x)
//	s < 0:  (Γ(s+1, x) − x^s·e^(−x)) / s
func UpperGammaExt(s, x float64) float64 {
	switch {
	case s > 0:
		return mathext.GammaIncRegComp(s, x) * math.Gamma(s)
	case s == 0:
		return E1(x)
	default:
		return (UpperGammaExt(s+1, x) - math.Pow(x, s)*math.Exp(-x)) / s
	}
}

// E1 returns the exponential integral E1(x) = ∫_x^∞ e^(−t)/t dt for x > 0.
// E1(0) is +Inf; negative arguments yield NaN.
func E1(x float64) float64 {
	switch {
	case math.IsNaN(x) || x < 0:
		return math.NaN()
	case x == 0:
		return math.Inf(1)
	case math.IsInf(x, 1):
		return 0
	}

	if x > 1 {
		// Modified Lentz evaluation of the continued fraction.
		b := x + 1
		c := 1 / e1FPMin
		d := 1 / b
		h := d
		for i := 1; i <= e1MaxIterations; i++ {
			an := -float64(i * i)
			b += 2
			d = 1 / (an*d + b)
			c = b + an/c
			del := c * d
			h *= del
			if math.Abs(del-1) < e1Epsilon {
				break
			}
		}
		return h * math.Exp(-x)
	}

	ans := -math.Log(x) - eulerGamma
	fact := 1.0
	for i := 1; i <= e1MaxIterations; i++ {
		fact *= -x / float64(i)
		del := -fact / float64(i)
		ans += del
		if math.Abs(del) < math.Abs(ans)*e1Epsilon {
			break
		}
	}
	return ans
}

// InverseUpperGammaExt returns the x > 0 with UpperGammaExt(s, x) = v.
//
// For s > 0 the regularized inverse is used directly; when it yields an
// undefined value, or for s ≤ 0, the monotone root finder takes over.
func InverseUpperGammaExt(s, v float64) (float64, error) {
	if s > 0 {
		x := mathext.GammaIncRegCompInv(s, v/math.Gamma(s))
		if x > 0 && !math.IsInf(x, 0) && !math.IsNaN(x) {
			return x, nil
		}
	}
	return InvertUpperGammaExt(s, v)
}

// InvertUpperGammaExt solves UpperGammaExt(s, x) = v with a safeguarded
// Newton iteration. Γ(s, ·) is strictly decreasing on (0, ∞) with derivative
// −x^(s−1)·e^(−x); the bracket is maintained so every step stays inside it.
func InvertUpperGammaExt(s, v float64) (float64, error) {
	if !(v > 0) || math.IsInf(v, 1) {
		return 0, fmt.Errorf("%w: target value %v for shape %v", ErrNoConvergence, v, s)
	}

	lo, hi := 1.0, 1.0
	for UpperGammaExt(s, lo) < v {
		lo /= 16
		if lo < inverseMinX {
			return 0, fmt.Errorf("%w: target value %v exceeds Γ(%v, 0+)", ErrNoConvergence, v, s)
		}
	}
	for UpperGammaExt(s, hi) > v {
		hi *= 2
		if hi > inverseMaxX {
			return 0, fmt.Errorf("%w: target value %v below Γ(%v, %v)", ErrNoConvergence, v, s, inverseMaxX)
		}
	}

	x := narrow(lo, hi)
	for i := 0; i < inverseMaxIterations; i++ {
		diff := UpperGammaExt(s, x) - v
		if diff == 0 {
			return x, nil
		}
		if diff > 0 {
			lo = x
		} else {
			hi = x
		}
		if hi-lo <= inverseTolerance*x {
			return x, nil
		}

		deriv := -math.Pow(x, s-1) * math.Exp(-x)
		next := x - diff/deriv
		if !(next > lo && next < hi) {
			next = narrow(lo, hi)
		}
		if math.Abs(next-x) <= inverseTolerance*x {
			return next, nil
		}
		x = next
	}
	return 0, fmt.Errorf("%w: shape %v, target %v after %d iterations", ErrNoConvergence, s, v, inverseMaxIterations)
}

// narrow picks the bisection point: geometric while the bracket spans orders
// of magnitude, arithmetic once it is tight.
func narrow(lo, hi float64) float64 {
	if hi/lo > 4 {
		return math.Sqrt(lo * hi)
	}
	return 0.5 * (lo + hi)
}
