package heading

import (
	"math"
	"time"

	"qiblago/pkg/geo"
)

// snapEpsilon is the remaining arc (degrees) below which smoothers land exactly on the target.
const snapEpsilon = 0.01

// Smoother advances an animated angle toward a target angle.
// Implementations must move along the shorter arc and converge to a fixed point
// when the target stops changing.
type Smoother interface {
	Step(current, target float64, dt time.Duration) float64
}

// ExponentialSmoother is a first-order low-pass filter. With tau = SettleTime/3 the
// output has covered ~95% of a step change after SettleTime.
type ExponentialSmoother struct {
	SettleTime time.Duration
}

// Step implements Smoother.
func (s ExponentialSmoother) Step(current, target float64, dt time.Duration) float64 {
	arc := geo.ShortestArc(current, target)
	if math.Abs(arc) < snapEpsilon || s.SettleTime <= 0 {
		return geo.Normalize360(target)
	}
	if dt <= 0 {
		return geo.Normalize360(current)
	}

	tau := s.SettleTime.Seconds() / 3.0
	alpha := 1 - math.Exp(-dt.Seconds()/tau)
	return geo.Normalize360(current + arc*alpha)
}

// RateLimitedSmoother moves a fixed fraction of the remaining arc per update, capped at
// MaxStep degrees, and settles once inside DeadZone. It ignores sample timing.
type RateLimitedSmoother struct {
	Gain     float64 // Fraction of the remaining arc applied per update (0-1]
	MaxStep  float64 // Degrees per update
	DeadZone float64 // Degrees
}

// DefaultRateLimitedSmoother returns gains suited to a 5-10 Hz heading stream.
func DefaultRateLimitedSmoother() RateLimitedSmoother {
	return RateLimitedSmoother{
		Gain:     0.5,
		MaxStep:  20,
		DeadZone: 0.05,
	}
}

// Step implements Smoother.
func (s RateLimitedSmoother) Step(current, target float64, _ time.Duration) float64 {
	arc := geo.ShortestArc(current, target)
	dead := math.Max(s.DeadZone, snapEpsilon)
	if math.Abs(arc) < dead {
		return geo.Normalize360(target)
	}

	gain := s.Gain
	if gain <= 0 || gain > 1 {
		gain = 1
	}
	step := arc * gain
	if s.MaxStep > 0 {
		step = clamp(step, -s.MaxStep, s.MaxStep)
	}
	return geo.Normalize360(current + step)
}

// clamp limits a value to a range
func clamp(value, lo, hi float64) float64 {
	if value < lo {
		return lo
	}
	if value > hi {
		return hi
	}
	return value
}
