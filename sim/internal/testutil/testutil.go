// Package testutil provides shared test infrastructure for the simulator
// packages: float assertions, sample statistics and common fixtures.
package testutil

import (
	"math"
	"testing"
	"time"

	"gonum.org/v1/gonum/stat"
)

// UnitSquare is the one-degree square at the origin, as (lat, lon) vertices.
var UnitSquare = [][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}}

// Epoch is a fixed reference instant for time windows in tests.
var Epoch = time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)

// Days returns Epoch shifted by d days.
func Days(d float64) time.Time {
	return Epoch.Add(time.Duration(d * float64(24*time.Hour)))
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}

// AssertMeanWithin checks that the sample mean of xs lies within k standard
// errors of want.
func AssertMeanWithin(t *testing.T, name string, xs []float64, want, k float64) {
	t.Helper()
	if len(xs) < 2 {
		t.Fatalf("%s: need at least 2 samples, got %d", name, len(xs))
	}
	mean, sd := stat.MeanStdDev(xs, nil)
	se := sd / math.Sqrt(float64(len(xs)))
	if math.Abs(mean-want) > k*se {
		t.Errorf("%s: mean %v, want %v ± %v (%v standard errors)", name, mean, want, k*se, k)
	}
}

// EmpiricalCDF returns the fraction of xs that are ≤ x.
func EmpiricalCDF(xs []float64, x float64) float64 {
	n := 0
	for _, v := range xs {
		if v <= x {
			n++
		}
	}
	return float64(n) / float64(len(xs))
}
