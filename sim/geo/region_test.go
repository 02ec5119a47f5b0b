package geo

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func unitSquare(t *testing.T) *Region {
	t.Helper()
	r, err := NewRegion([][2]float64{{0, 0}, {0, 1}, {1, 1}, {1, 0}})
	require.NoError(t, err)
	return r
}

func TestRegion_Contains(t *testing.T) {
	r := unitSquare(t)
	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"centre", 0.5, 0.5, true},
		{"near corner", 0.01, 0.99, true},
		{"north of box", 1.5, 0.5, false},
		{"west of box", 0.5, -0.2, false},
		{"swapped axes far away", 0.5, 10, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Contains(tc.lat, tc.lon))
		})
	}
}

func TestRegion_ContainsUsesLatitudeFirst(t *testing.T) {
	// GIVEN a rectangle taller than wide: lat in [0, 2], lon in [0, 1]
	r, err := NewRectangle(0, 2, 0, 1)
	require.NoError(t, err)

	// THEN (lat=1.5, lon=0.5) is inside but (lat=0.5, lon=1.5) is not
	assert.True(t, r.Contains(1.5, 0.5))
	assert.False(t, r.Contains(0.5, 1.5))
}

func TestRegion_AreaOfOneDegreeSquareAtEquator(t *testing.T) {
	r := unitSquare(t)
	// One degree at the equator is ~111.3 km on each side.
	assert.InEpsilon(t, 12391.0, r.AreaKm2(), 0.01)
}

func TestRegion_BoundingRectangleCoversTriangle(t *testing.T) {
	tri, err := NewRegion([][2]float64{{0, 0}, {0, 2}, {2, 0}})
	require.NoError(t, err)

	minLat, maxLat, minLon, maxLon := tri.Bounds()
	assert.Equal(t, []float64{0, 2, 0, 2}, []float64{minLat, maxLat, minLon, maxLon})

	rect := tri.BoundingRectangle()
	assert.InEpsilon(t, 2.0, rect.AreaKm2()/tri.AreaKm2(), 0.01)
	assert.True(t, rect.Contains(1.5, 1.5))
	assert.False(t, tri.Contains(1.5, 1.5))
}

func TestParseWKT_LonLatOrder(t *testing.T) {
	// GIVEN a WKT polygon over lon [5, 6], lat [45, 47]
	r, err := ParseWKT("POLYGON((5 45, 6 45, 6 47, 5 47, 5 45))")
	require.NoError(t, err)

	assert.True(t, r.Contains(46, 5.5))
	assert.False(t, r.Contains(5.5, 46))
	assert.Contains(t, r.WKT(), "POLYGON")
}

func TestNewRegion_Invalid(t *testing.T) {
	tests := map[string][][2]float64{
		"too few vertices":  {{0, 0}, {1, 1}},
		"latitude overflow": {{0, 0}, {95, 1}, {1, 1}},
		"degenerate":        {{0, 0}, {0, 0}, {0, 0}},
	}
	for name, coords := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := NewRegion(coords)
			assert.True(t, errors.Is(err, ErrInvalidRegion), "got %v", err)
		})
	}
	_, err := ParseWKT("POINT(1 2)")
	assert.ErrorIs(t, err, ErrInvalidRegion)
}

func TestKmPerDegree(t *testing.T) {
	latKm, lonKm := KmPerDegree(0, EarthRadiusKm)
	assert.InEpsilon(t, 111.32, latKm, 1e-3)
	assert.InEpsilon(t, 111.32, lonKm, 1e-3)

	// Longitude degrees shrink with cos(latitude).
	_, lonKm60 := KmPerDegree(60, EarthRadiusKm)
	assert.InEpsilon(t, 55.66, lonKm60, 1e-3)
}

func TestGreatCircleDistance_ScalesWithRadius(t *testing.T) {
	d1 := GreatCircleDistance(10, 11, 20, 21, EarthRadiusKm)
	d2 := GreatCircleDistance(10, 11, 20, 21, 2*EarthRadiusKm)
	assert.InEpsilon(t, 2*d1, d2, 1e-12)
}
