package geo

import (
	"errors"
	"fmt"
	"math"

	"github.com/paulmach/orb"
	orbgeo "github.com/paulmach/orb/geo"
)

// ErrInvalidCoordinates is returned when a bearing cannot be computed for the given points.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// coincidentEpsilon is the separation (degrees) below which two points are treated as the same place.
const coincidentEpsilon = 1e-9

// Point represents a geographic coordinate.
type Point struct {
	Lat float64 `json:"lat" yaml:"lat"`
	Lon float64 `json:"lon" yaml:"lon"`
}

// Validate checks that the point is finite and within latitude/longitude range.
func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) {
		return fmt.Errorf("%w: non-finite point (%v, %v)", ErrInvalidCoordinates, p.Lat, p.Lon)
	}
	if p.Lat < -90 || p.Lat > 90 {
		return fmt.Errorf("%w: latitude %v out of range", ErrInvalidCoordinates, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 {
		return fmt.Errorf("%w: longitude %v out of range", ErrInvalidCoordinates, p.Lon)
	}
	return nil
}

// Orb converts the point to an orb.Point (lon, lat order).
func (p Point) Orb() orb.Point {
	return orb.Point{p.Lon, p.Lat}
}

// Distance calculates the Haversine distance between two points in meters.
func Distance(p1, p2 Point) float64 {
	return orbgeo.DistanceHaversine(p1.Orb(), p2.Orb())
}

// Bearing calculates the initial bearing (forward azimuth) from p1 to p2 in degrees [0, 360).
// It uses a spherical earth. Points that are out of range, coincident, or where p1 sits on a
// pole (where "north" is undefined) yield ErrInvalidCoordinates.
func Bearing(p1, p2 Point) (float64, error) {
	if err := p1.Validate(); err != nil {
		return 0, fmt.Errorf("observer: %w", err)
	}
	if err := p2.Validate(); err != nil {
		return 0, fmt.Errorf("target: %w", err)
	}
	if math.Abs(p1.Lat-p2.Lat) < coincidentEpsilon && math.Abs(NormalizeSigned(p1.Lon-p2.Lon)) < coincidentEpsilon {
		return 0, fmt.Errorf("%w: observer coincides with target", ErrInvalidCoordinates)
	}
	if math.Abs(p1.Lat) == 90 {
		return 0, fmt.Errorf("%w: observer at a pole", ErrInvalidCoordinates)
	}

	lat1 := p1.Lat * (math.Pi / 180.0)
	lat2 := p2.Lat * (math.Pi / 180.0)
	dLon := (p2.Lon - p1.Lon) * (math.Pi / 180.0)

	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) -
		math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	if math.Hypot(y, x) < 1e-12 {
		// antipodal points: every direction is a great circle
		return 0, fmt.Errorf("%w: bearing undefined between %v and %v", ErrInvalidCoordinates, p1, p2)
	}
	brng := math.Atan2(y, x) * (180.0 / math.Pi)
	if math.IsNaN(brng) || math.IsInf(brng, 0) {
		return 0, fmt.Errorf("%w: bearing not finite", ErrInvalidCoordinates)
	}

	return Normalize360(brng), nil
}
