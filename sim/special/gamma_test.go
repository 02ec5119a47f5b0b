package special

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestE1_KnownValues(t *testing.T) {
	tests := []struct {
		x    float64
		want float64
	}{
		{0.01, 4.037929576538114},
		{0.5, 0.5597735947761608},
		{1, 0.21938393439552062},
		{2, 0.04890051070806112},
		{10, 4.156968929685324e-06},
	}
	for _, tc := range tests {
		got := E1(tc.x)
		assert.InEpsilon(t, tc.want, got, 1e-10, "E1(%v)", tc.x)
	}
}

func TestE1_Boundaries(t *testing.T) {
	assert.True(t, math.IsInf(E1(0), 1))
	assert.True(t, math.IsNaN(E1(-1)))
	assert.Equal(t, 0.0, E1(math.Inf(1)))
}

func TestUpperGammaExt_PositiveShapeMatchesGammaFunctionAtZero(t *testing.T) {
	// GIVEN s > 0 and x → 0
	// THEN Γ(s, x) → Γ(s)
	for _, s := range []float64{0.13, 0.5, 1, 2.5} {
		assert.InEpsilon(t, math.Gamma(s), UpperGammaExt(s, 1e-12), 1e-4, "s=%v", s)
	}
	// AND Γ(1, x) = e^(−x)
	assert.InEpsilon(t, math.Exp(-3), UpperGammaExt(1, 3), 1e-12)
}

func TestUpperGammaExt_RecurrenceHoldsForNegativeShape(t *testing.T) {
	// Γ(s+1, x) = s·Γ(s, x) + x^s·e^(−x) for every real s.
	for _, s := range []float64{-0.13, -0.5, -1, -1.7} {
		for _, x := range []float64{1e-4, 0.3, 2} {
			lhs := UpperGammaExt(s+1, x)
			rhs := s*UpperGammaExt(s, x) + math.Pow(x, s)*math.Exp(-x)
			assert.InEpsilon(t, lhs, rhs, 1e-9, "s=%v x=%v", s, x)
		}
	}
}

func TestUpperGammaExt_IsDecreasingInX(t *testing.T) {
	for _, s := range []float64{-0.8, -0.13, 0, 0.13, 1.4} {
		prev := math.Inf(1)
		for x := 1e-6; x < 50; x *= 1.7 {
			g := UpperGammaExt(s, x)
			if g >= prev {
				t.Fatalf("Γ(%v, ·) not decreasing at x=%v: %v >= %v", s, x, g, prev)
			}
			prev = g
		}
	}
}

func TestInvertUpperGammaExt_RoundTrip(t *testing.T) {
	for _, s := range []float64{-1.2, -0.13, 0, 0.13, 0.9} {
		for _, x := range []float64{1e-7, 1e-3, 0.2, 1, 7.5} {
			v := UpperGammaExt(s, x)
			got, err := InvertUpperGammaExt(s, v)
			require.NoError(t, err, "s=%v x=%v", s, x)
			assert.InEpsilon(t, x, got, 1e-6, "s=%v x=%v", s, x)
		}
	}
}

// The closed-form inverse and the root finder must agree wherever both apply.
func TestInverse_ClosedFormAndRootFinderAgree(t *testing.T) {
	for _, s := range []float64{0.05, 0.13, 0.5, 1, 2} {
		g0 := UpperGammaExt(s, 1e-4)
		for _, frac := range []float64{0.999, 0.9, 0.5, 0.1, 1e-3} {
			v := frac * g0
			closed, err := InverseUpperGammaExt(s, v)
			require.NoError(t, err)
			numeric, err := InvertUpperGammaExt(s, v)
			require.NoError(t, err)
			assert.InDelta(t, 0, (closed-numeric)/numeric, 1e-4,
				"s=%v v=%v closed=%v numeric=%v", s, v, closed, numeric)
		}
	}
}

func TestInvertUpperGammaExt_UnreachableTargetFails(t *testing.T) {
	// GIVEN a target above Γ(s) for s > 0, which no x attains
	_, err := InvertUpperGammaExt(0.5, 2*math.Gamma(0.5))

	// THEN the root finder reports non-convergence
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNoConvergence))

	_, err = InvertUpperGammaExt(-0.5, 0)
	assert.ErrorIs(t, err, ErrNoConvergence)
}
