package vegetation

import (
	"math"
	"testing"
)

func TestRegionPolygon(t *testing.T) {
	g := RegionPolygon(21.17, 72.83)
	if g.Type != "Polygon" {
		t.Fatalf("Expected Polygon geometry, got %v", g.Type)
	}
	ring := g.Polygon[0]
	if len(ring) != 5 {
		t.Fatalf("Expected a closed 4-corner ring, got %d points", len(ring))
	}
	if ring[0][0] != ring[4][0] || ring[0][1] != ring[4][1] {
		t.Error("Ring is not closed")
	}

	// Half-extent in latitude should be about 200 m (~0.0018 degrees).
	halfLat := (ring[2][1] - ring[0][1]) / 2
	wantDeg := RegionRadiusMeters / 111_000.0
	if math.Abs(halfLat-wantDeg) > wantDeg*0.1 {
		t.Errorf("Latitude half-extent %v degrees, want about %v", halfLat, wantDeg)
	}

	// Center must be inside the rectangle.
	if !(ring[0][0] < 72.83 && 72.83 < ring[1][0] && ring[0][1] < 21.17 && 21.17 < ring[2][1]) {
		t.Errorf("Center point outside region ring: %v", ring)
	}
}
