// Package sensor provides heading sources: the collaborators that push raw compass
// headings into a session.
package sensor

import (
	"context"
	"errors"
	"math"
	"time"

	"qiblago/pkg/geo"
)

var (
	// ErrNoSamples is returned when a source has nothing to deliver.
	ErrNoSamples = errors.New("no heading samples")
	// ErrInvalidReading is returned for magnetometer readings that carry no direction.
	ErrInvalidReading = errors.New("invalid magnetometer reading")
)

// Sample is one raw heading reading, degrees clockwise from north.
// The value may be out of range or non-finite; consumers normalize or reject it.
type Sample struct {
	Heading float64   `json:"heading" yaml:"heading"`
	At      time.Time `json:"at" yaml:"-"`
}

// Source delivers a stream of heading samples until ctx is cancelled or the source runs dry.
// The returned channel is closed when the source stops.
type Source interface {
	Name() string
	Start(ctx context.Context) (<-chan Sample, error)
}

// HeadingFromMagnetometer converts raw horizontal magnetometer axes to a heading in [0, 360).
// The device must be held flat; no tilt compensation is applied.
func HeadingFromMagnetometer(x, y float64) (float64, error) {
	if math.IsNaN(x) || math.IsNaN(y) || math.IsInf(x, 0) || math.IsInf(y, 0) {
		return 0, ErrInvalidReading
	}
	if x == 0 && y == 0 {
		return 0, ErrInvalidReading
	}
	deg := math.Atan2(y, x) * (180 / math.Pi)
	return geo.Normalize360(deg), nil
}
