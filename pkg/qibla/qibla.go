// Package qibla computes the direction from an observer to a fixed target point,
// by default the Kaaba in Mecca.
package qibla

import (
	"fmt"

	"qiblago/pkg/geo"
)

// Kaaba is the default target point.
var Kaaba = geo.Point{Lat: 21.4225, Lon: 39.8262}

// Direction describes where the target lies as seen from an observer.
type Direction struct {
	Observer   geo.Point `json:"observer"`
	Target     geo.Point `json:"target"`
	Bearing    float64   `json:"bearing"`     // Degrees clockwise from true north, [0, 360)
	DistanceKm float64   `json:"distance_km"` // Great-circle distance
	Compass    string    `json:"compass"`     // 16-point label, e.g. "ENE"
}

// Calculator computes bearings toward a configured target. It holds no mutable state.
type Calculator struct {
	target geo.Point
}

// NewCalculator creates a Calculator for the given target.
func NewCalculator(target geo.Point) (*Calculator, error) {
	if err := target.Validate(); err != nil {
		return nil, fmt.Errorf("target: %w", err)
	}
	return &Calculator{target: target}, nil
}

// Target returns the configured target point.
func (c *Calculator) Target() geo.Point {
	return c.target
}

// ComputeBearing returns the initial great-circle bearing from observer to target.
func (c *Calculator) ComputeBearing(observer, target geo.Point) (float64, error) {
	return geo.Bearing(observer, target)
}

// Bearing returns the bearing from observer to the configured target.
func (c *Calculator) Bearing(observer geo.Point) (float64, error) {
	return c.ComputeBearing(observer, c.target)
}

// Direction returns bearing, distance and compass label from observer to the configured target.
func (c *Calculator) Direction(observer geo.Point) (Direction, error) {
	brng, err := c.Bearing(observer)
	if err != nil {
		return Direction{}, err
	}
	return Direction{
		Observer:   observer,
		Target:     c.target,
		Bearing:    brng,
		DistanceKm: geo.Distance(observer, c.target) / 1000.0,
		Compass:    geo.CompassPoint16(brng),
	}, nil
}
