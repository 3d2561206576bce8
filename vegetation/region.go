package vegetation

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
	geojson "github.com/paulmach/go.geojson"
)

const (
	// RegionRadiusMeters is the analysis buffer around the reported point.
	RegionRadiusMeters = 200.0

	earthRadiusMeters = 6371010.0
)

// RegionPolygon builds the GeoJSON polygon covering the analysis buffer around
// a point. The polygon is the bounding rectangle of a spherical cap of
// RegionRadiusMeters around the point, which is what the imagery archive's
// geometry filter expects.
func RegionPolygon(latitude, longitude float64) *geojson.Geometry {
	center := s2.PointFromLatLng(s2.LatLngFromDegrees(latitude, longitude))
	cap := s2.CapFromCenterAngle(center, s1.Angle(RegionRadiusMeters/earthRadiusMeters))
	rect := cap.RectBound()

	latLo := rect.Lat.Lo * (180.0 / math.Pi)
	latHi := rect.Lat.Hi * (180.0 / math.Pi)
	lonLo := rect.Lng.Lo * (180.0 / math.Pi)
	lonHi := rect.Lng.Hi * (180.0 / math.Pi)

	// GeoJSON ring, counterclockwise, closed.
	ring := [][]float64{
		{lonLo, latLo},
		{lonHi, latLo},
		{lonHi, latHi},
		{lonLo, latHi},
		{lonLo, latLo},
	}
	return geojson.NewPolygonGeometry([][][]float64{ring})
}
