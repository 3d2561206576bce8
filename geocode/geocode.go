package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/apex/log"
)

var (
	// ErrInvalidFormat means the input looked like a coordinate pair but did not parse.
	ErrInvalidFormat = errors.New("invalid coordinates format")
	// ErrNotFound means the geocoding service had no match for the place name.
	ErrNotFound = errors.New("location not found")
	// ErrUnavailable means the geocoding service could not be reached after retries.
	ErrUnavailable = errors.New("geocoding service unavailable")
)

const (
	maxAttempts = 3
	retryDelay  = 2 * time.Second
)

// Point is a resolved latitude/longitude pair.
type Point struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Resolver turns free-form location text into coordinates.
type Resolver struct {
	baseURL   string
	userAgent string
	client    *http.Client
}

// NewResolver creates a resolver backed by a Nominatim-compatible search endpoint.
func NewResolver(baseURL, userAgent string) *Resolver {
	return &Resolver{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: 10 * time.Second},
	}
}

// Resolve parses "lat, lon" input directly, otherwise geocodes the text as a
// place name. Transient service failures are retried a bounded number of times.
func (r *Resolver) Resolve(ctx context.Context, text string) (*Point, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrInvalidFormat
	}

	if strings.Contains(text, ",") {
		return parseCoordinates(text)
	}

	return r.geocode(ctx, text)
}

func parseCoordinates(text string) (*Point, error) {
	parts := strings.Split(text, ",")
	if len(parts) != 2 {
		return nil, ErrInvalidFormat
	}
	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return nil, ErrInvalidFormat
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return nil, ErrInvalidFormat
	}
	return &Point{Latitude: lat, Longitude: lon}, nil
}

type geocodeResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func (r *Resolver) geocode(ctx context.Context, place string) (*Point, error) {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		results, err := r.search(ctx, place)
		if err == nil {
			if len(results) == 0 {
				return nil, ErrNotFound
			}
			lat, latErr := strconv.ParseFloat(results[0].Lat, 64)
			lon, lonErr := strconv.ParseFloat(results[0].Lon, 64)
			if latErr != nil || lonErr != nil {
				return nil, fmt.Errorf("geocoder returned malformed coordinates for %q", place)
			}
			return &Point{Latitude: lat, Longitude: lon}, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
		log.Warnf("Geocoding attempt %d/%d for %q failed: %v", attempt, maxAttempts, place, err)
		if attempt < maxAttempts {
			select {
			case <-time.After(retryDelay):
			case <-ctx.Done():
				return nil, fmt.Errorf("%w: %v", ErrUnavailable, ctx.Err())
			}
		}
	}
	return nil, fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (r *Resolver) search(ctx context.Context, place string) ([]geocodeResult, error) {
	query := url.Values{}
	query.Set("q", place)
	query.Set("format", "json")
	query.Set("limit", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", r.userAgent)

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocoder error (status %d): %s", resp.StatusCode, string(body))
	}

	var results []geocodeResult
	if err := json.Unmarshal(body, &results); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return results, nil
}
