package scoring

import "strings"

// Point tiers for a mangrove-related report.
const (
	PointsStrongGrowth = 20 // vegetation change above 5%
	PointsObservation  = 15 // small growth or any decline
	PointsBaseline     = 10 // no usable satellite value, or exactly zero change
)

// IsMangroveRelated reports whether a classifier label concerns mangrove
// habitat. Non-mangrove labels never earn points.
func IsMangroveRelated(label string) bool {
	return strings.Contains(strings.ToLower(label), "mangrove")
}

// Points maps a classified label and its vegetation-change value to a point
// award. change is nil when no satellite value was available. Pure function:
// identical inputs always yield identical awards.
func Points(label string, change *float64) int {
	if !IsMangroveRelated(label) {
		return 0
	}
	if change == nil {
		return PointsBaseline
	}
	switch {
	case *change > 5:
		return PointsStrongGrowth
	case *change > 0:
		return PointsObservation
	case *change < 0:
		return PointsObservation
	default:
		return PointsBaseline
	}
}
