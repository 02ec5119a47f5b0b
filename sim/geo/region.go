// Package geo models the simulation region: a simple polygon in geographic
// coordinates, its bounding rectangle, its surface area and great-circle
// distances on a spherical earth.
package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/encoding/wkt"
	orbgeo "github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/planar"
)

// EarthRadiusKm is the earth radius used for distance/degree conversions.
const EarthRadiusKm = 6378.1

// ErrInvalidRegion is returned for polygons that cannot bound a simulation.
var ErrInvalidRegion = errors.New("invalid region")

// Region is an immutable polygon. Vertices are held in orb's (lon, lat) order;
// the public API always speaks latitude first.
type Region struct {
	polygon orb.Polygon
	bound   orb.Bound
	areaKm2 float64
}

// NewRegion builds a region from (latitude, longitude) vertex pairs. The ring is
// closed automatically.
func NewRegion(coords [][2]float64) (*Region, error) {
	if len(coords) < 3 {
		return nil, fmt.Errorf("%w: need at least 3 vertices, got %d", ErrInvalidRegion, len(coords))
	}
	ring := make(orb.Ring, 0, len(coords)+1)
	for i, c := range coords {
		lat, lon := c[0], c[1]
		if math.IsNaN(lat) || math.IsNaN(lon) || lat < -90 || lat > 90 || lon < -180 || lon > 360 {
			return nil, fmt.Errorf("%w: vertex %d (%v, %v) out of range", ErrInvalidRegion, i, lat, lon)
		}
		ring = append(ring, orb.Point{lon, lat})
	}
	if !ring.Closed() {
		ring = append(ring, ring[0])
	}
	return fromPolygon(orb.Polygon{ring})
}

// ParseWKT builds a region from a WKT POLYGON in (lon lat) axis order.
func ParseWKT(s string) (*Region, error) {
	p, err := wkt.UnmarshalPolygon(s)
	if err != nil {
		return nil, fmt.Errorf("%w: parsing WKT: %v", ErrInvalidRegion, err)
	}
	return fromPolygon(p)
}

// NewRectangle returns the axis-aligned region spanning the given bounds.
func NewRectangle(minLat, maxLat, minLon, maxLon float64) (*Region, error) {
	return NewRegion([][2]float64{
		{minLat, minLon}, {minLat, maxLon}, {maxLat, maxLon}, {maxLat, minLon},
	})
}

func fromPolygon(p orb.Polygon) (*Region, error) {
	if len(p) == 0 || len(p[0]) < 4 {
		return nil, fmt.Errorf("%w: empty outer ring", ErrInvalidRegion)
	}
	area := math.Abs(orbgeo.Area(p)) / 1e6
	if !(area > 0) {
		return nil, fmt.Errorf("%w: zero area", ErrInvalidRegion)
	}
	return &Region{polygon: p, bound: p.Bound(), areaKm2: area}, nil
}

// Contains reports whether the point lies inside the polygon.
func (r *Region) Contains(lat, lon float64) bool {
	pt := orb.Point{lon, lat}
	if !r.bound.Contains(pt) {
		return false
	}
	return planar.PolygonContains(r.polygon, pt)
}

// Bounds returns the bounding rectangle as minLat, maxLat, minLon, maxLon.
func (r *Region) Bounds() (minLat, maxLat, minLon, maxLon float64) {
	return r.bound.Min.Lat(), r.bound.Max.Lat(), r.bound.Min.Lon(), r.bound.Max.Lon()
}

// BoundingRectangle returns the region's axis-aligned bounding box as a Region.
func (r *Region) BoundingRectangle() *Region {
	minLat, maxLat, minLon, maxLon := r.Bounds()
	rect, err := NewRectangle(minLat, maxLat, minLon, maxLon)
	if err != nil {
		// The bound of a valid polygon always has positive area.
		return r
	}
	return rect
}

// AreaKm2 returns the spherical surface area in square kilometres.
func (r *Region) AreaKm2() float64 {
	return r.areaKm2
}

// WKT renders the polygon in (lon lat) order.
func (r *Region) WKT() string {
	return wkt.MarshalString(r.polygon)
}

// GreatCircleDistance returns the haversine distance between two points on a
// sphere of the given radius. The result is in the unit of radius.
func GreatCircleDistance(lat1, lat2, lon1, lon2, radius float64) float64 {
	meters := orbgeo.DistanceHaversine(orb.Point{lon1, lat1}, orb.Point{lon2, lat2})
	return meters / orb.EarthRadius * radius
}

// KmPerDegree returns the length of one degree of latitude and of longitude at
// the given latitude.
func KmPerDegree(lat, radius float64) (latKm, lonKm float64) {
	latKm = GreatCircleDistance(lat-0.5, lat+0.5, 0, 0, radius)
	lonKm = GreatCircleDistance(lat, lat, 0, 1, radius)
	return latKm, lonKm
}
