package vegetation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/apex/log"
	geojson "github.com/paulmach/go.geojson"
	"golang.org/x/oauth2/clientcredentials"

	"mangrovewatch/config"
)

// Scene holds regional reflectance statistics for one satellite acquisition.
type Scene struct {
	Date       time.Time
	CloudCover float64
	MeanNIR    float64
	MeanRed    float64
}

// SceneSource lists usable scenes over a region within a date range, filtered
// by maximum cloud-cover percentage.
type SceneSource interface {
	Scenes(ctx context.Context, region *geojson.Geometry, from, to time.Time, maxCloudPercent float64) ([]Scene, error)
}

// ArchiveClient queries a hosted satellite-imagery statistics API, using
// oauth2 client-credentials for authentication.
type ArchiveClient struct {
	statsURL string
	client   *http.Client
}

// NewArchiveClient creates an archive client. tokenURL/clientID/clientSecret
// drive the client-credentials grant.
func NewArchiveClient(statsURL, tokenURL, clientID, clientSecret string) *ArchiveClient {
	cfg := clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	client := cfg.Client(context.Background())
	client.Timeout = 90 * time.Second
	return &ArchiveClient{
		statsURL: statsURL,
		client:   client,
	}
}

type statsRequest struct {
	Geometry     *geojson.Geometry `json:"geometry"`
	TimeRange    timeRange         `json:"timeRange"`
	MaxCloud     float64           `json:"maxCloudCoverage"`
	Bands        []string          `json:"bands"`
	Aggregation  string            `json:"aggregation"`
	DataCatalog  string            `json:"collection"`
	ResolutionM  float64           `json:"resolution"`
}

type timeRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

type statsResponse struct {
	Scenes []sceneStats `json:"scenes"`
}

type sceneStats struct {
	Date          string                  `json:"date"`
	CloudCoverage float64                 `json:"cloudCoverage"`
	Bands         map[string]bandStats    `json:"bands"`
}

type bandStats struct {
	Mean float64 `json:"mean"`
}

// Scenes implements SceneSource against the remote statistics API.
func (a *ArchiveClient) Scenes(ctx context.Context, region *geojson.Geometry, from, to time.Time, maxCloudPercent float64) ([]Scene, error) {
	reqBody := statsRequest{
		Geometry: region,
		TimeRange: timeRange{
			From: from.Format(time.RFC3339),
			To:   to.Format(time.RFC3339),
		},
		MaxCloud:    maxCloudPercent,
		Bands:       []string{"B08", "B04"},
		Aggregation: "scene",
		DataCatalog: "sentinel-2-l2a",
		ResolutionM: 10,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.statsURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to query imagery archive: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("imagery archive error (status %d): %s", resp.StatusCode, string(body))
	}

	var stats statsResponse
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}

	scenes := make([]Scene, 0, len(stats.Scenes))
	for _, s := range stats.Scenes {
		if s.CloudCoverage > maxCloudPercent {
			continue
		}
		date, err := time.Parse(time.RFC3339, s.Date)
		if err != nil {
			log.Warnf("Skipping scene with malformed date %q", s.Date)
			continue
		}
		nir, nirOK := s.Bands["B08"]
		red, redOK := s.Bands["B04"]
		if !nirOK || !redOK {
			continue
		}
		scenes = append(scenes, Scene{
			Date:       date,
			CloudCover: s.CloudCoverage,
			MeanNIR:    nir.Mean,
			MeanRed:    red.Mean,
		})
	}
	return scenes, nil
}

var (
	defaultOnce     sync.Once
	defaultAnalyzer *Analyzer
	defaultErr      error
)

// Default returns the process-wide analyzer, constructing it once from
// environment configuration. Missing credentials surface as an explicit
// error, never as fabricated analysis values.
func Default() (*Analyzer, error) {
	defaultOnce.Do(func() {
		cfg := config.Load()
		if cfg.ImageryClientID == "" || cfg.ImageryClientSecret == "" {
			defaultErr = errors.New("imagery archive credentials not configured")
			return
		}
		client := NewArchiveClient(cfg.ImageryStatsURL, cfg.ImageryTokenURL, cfg.ImageryClientID, cfg.ImageryClientSecret)
		defaultAnalyzer = NewAnalyzer(client)
		log.Info("Imagery archive client initialized")
	})
	return defaultAnalyzer, defaultErr
}
