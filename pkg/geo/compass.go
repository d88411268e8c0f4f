package geo

var (
	compass8  = []string{"N", "NE", "E", "SE", "S", "SW", "W", "NW"}
	compass16 = []string{
		"N", "NNE", "NE", "ENE", "E", "ESE", "SE", "SSE",
		"S", "SSW", "SW", "WSW", "W", "WNW", "NW", "NNW",
	}
)

// CompassPoint converts a bearing to an 8-point compass label.
func CompassPoint(bearing float64) string {
	return pointOf(bearing, compass8)
}

// CompassPoint16 converts a bearing to a 16-point compass label.
func CompassPoint16(bearing float64) string {
	return pointOf(bearing, compass16)
}

func pointOf(bearing float64, labels []string) string {
	sector := 360.0 / float64(len(labels))
	idx := int((Normalize360(bearing)+sector/2)/sector) % len(labels)
	return labels[idx]
}
