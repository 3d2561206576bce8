package vegetation

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestArchiveClientScenes(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "test-token", "token_type": "Bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/api/v1/statistics", func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Missing bearer token, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"scenes": [
			{"date": "2026-07-10T10:30:00Z", "cloudCoverage": 12.5, "bands": {"B08": {"mean": 0.41}, "B04": {"mean": 0.08}}},
			{"date": "2026-07-15T10:30:00Z", "cloudCoverage": 80.0, "bands": {"B08": {"mean": 0.2}, "B04": {"mean": 0.1}}},
			{"date": "2026-07-20T10:30:00Z", "cloudCoverage": 5.0, "bands": {"B08": {"mean": 0.38}}}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewArchiveClient(srv.URL+"/api/v1/statistics", srv.URL+"/oauth/token", "id", "secret")
	region := RegionPolygon(21.17, 72.83)
	from := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	scenes, err := client.Scenes(context.Background(), region, from, to, 50)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	// Cloudy scene and band-incomplete scene are dropped.
	if len(scenes) != 1 {
		t.Fatalf("Expected 1 usable scene, got %d", len(scenes))
	}
	if scenes[0].MeanNIR != 0.41 || scenes[0].MeanRed != 0.08 {
		t.Errorf("Unexpected band stats: %+v", scenes[0])
	}
}

func TestArchiveClientErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"access_token": "test-token", "token_type": "Bearer", "expires_in": 3600}`))
	})
	mux.HandleFunc("/api/v1/statistics", func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := NewArchiveClient(srv.URL+"/api/v1/statistics", srv.URL+"/oauth/token", "id", "secret")
	_, err := client.Scenes(context.Background(), RegionPolygon(0, 0), time.Now().AddDate(0, 0, -30), time.Now(), 50)
	if err == nil {
		t.Fatal("Expected an error on non-200 status")
	}
}
