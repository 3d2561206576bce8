package classifier

import (
	"io"
	"math"

	"github.com/rwcarlsen/goexif/exif"
)

// ExtractGPS reads EXIF GPS metadata from an image stream. Returns nil when the
// image carries no usable position; absence of GPS is not an error.
func ExtractGPS(r io.Reader) *GPS {
	x, err := exif.Decode(r)
	if err != nil {
		return nil
	}
	lat, lon, err := x.LatLong()
	if err != nil {
		return nil
	}
	if math.IsNaN(lat) || math.IsNaN(lon) {
		return nil
	}
	return &GPS{
		Latitude:  round6(lat),
		Longitude: round6(lon),
	}
}

func round6(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}
