package geo

import "math"

// Normalize360 maps any finite angle into [0, 360).
func Normalize360(deg float64) float64 {
	r := math.Mod(math.Mod(deg, 360.0)+360.0, 360.0)
	if r >= 360.0 {
		return 0
	}
	return r
}

// NormalizeSigned maps any finite angle into (-180, 180].
func NormalizeSigned(deg float64) float64 {
	r := Normalize360(deg)
	if r > 180 {
		r -= 360
	}
	return r
}

// ShortestArc returns the signed rotation (degrees, (-180, 180]) that takes from onto to.
// Positive values are clockwise.
func ShortestArc(from, to float64) float64 {
	return NormalizeSigned(to - from)
}

// AngularDistance returns the unsigned shortest distance between two angles in [0, 180].
func AngularDistance(a, b float64) float64 {
	return math.Abs(ShortestArc(a, b))
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
