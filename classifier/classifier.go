package classifier

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/apex/log"
)

// ErrDecode means the input could not be decoded as an image.
var ErrDecode = errors.New("malformed image")

// DefaultLabels is the built-in label vocabulary, used when no labels file exists.
var DefaultLabels = []string{"mangrove cutting", "dumping/trash", "healthy mangrove"}

// GPS is a coordinate pair extracted from image metadata.
type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Result is the outcome of classifying a single photo.
type Result struct {
	Label       string  `json:"label"`
	Confidence  float64 `json:"confidence"`
	Coordinates *GPS    `json:"coordinates"`
}

// Client calls a hosted zero-shot image classification endpoint.
type Client struct {
	endpoint string
	apiKey   string
	model    string
	labels   []string
	client   *http.Client
}

// NewClient creates a classifier client with the given label vocabulary.
func NewClient(endpoint, apiKey, model string, labels []string) *Client {
	if len(labels) == 0 {
		labels = DefaultLabels
	}
	return &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		labels:   labels,
		client:   &http.Client{Timeout: 60 * time.Second},
	}
}

// LoadLabels reads one label per line from path, falling back to DefaultLabels
// when the file is missing.
func LoadLabels(path string) []string {
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warnf("Labels file %s not found, using default labels", path)
		return DefaultLabels
	}
	var labels []string
	for _, line := range strings.Split(string(data), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			labels = append(labels, line)
		}
	}
	if len(labels) == 0 {
		return DefaultLabels
	}
	return labels
}

// Labels returns the label vocabulary in use.
func (c *Client) Labels() []string {
	return c.labels
}

type classifyRequest struct {
	Model  string   `json:"model"`
	Image  string   `json:"image"`
	Labels []string `json:"labels"`
}

type classifyResponse struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classify returns the best-matching label and its softmax probability for the
// image bytes. Undecodable input fails with ErrDecode before any network call.
func (c *Client) Classify(ctx context.Context, imageData []byte) (string, float64, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(imageData))
	if err != nil {
		return "", 0, fmt.Errorf("%w: %v", ErrDecode, err)
	}

	dataURL := fmt.Sprintf("data:image/%s;base64,%s", format, base64.StdEncoding.EncodeToString(imageData))
	reqBody := classifyRequest{
		Model:  c.model,
		Image:  dataURL,
		Labels: c.labels,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return "", 0, fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", 0, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode == http.StatusUnprocessableEntity {
		return "", 0, fmt.Errorf("%w: %s", ErrDecode, string(body))
	}
	if resp.StatusCode != http.StatusOK {
		return "", 0, fmt.Errorf("classifier error (status %d): %s", resp.StatusCode, string(body))
	}

	var result classifyResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Label == "" {
		return "", 0, fmt.Errorf("classifier returned no label")
	}
	return result.Label, result.Confidence, nil
}

// AnalyzePhoto classifies one image file and extracts its embedded GPS, if any.
func (c *Client) AnalyzePhoto(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image %s: %w", path, err)
	}

	label, confidence, err := c.Classify(ctx, data)
	if err != nil {
		return nil, err
	}

	gps := ExtractGPS(bytes.NewReader(data))
	if gps == nil {
		log.Infof("No GPS metadata in %s", filepath.Base(path))
	}

	return &Result{
		Label:       label,
		Confidence:  confidence,
		Coordinates: gps,
	}, nil
}

// AnalyzeFolder classifies every image in dir, keyed by file name.
func (c *Client) AnalyzeFolder(ctx context.Context, dir string) (map[string]*Result, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read folder %s: %w", dir, err)
	}

	results := make(map[string]*Result)
	for _, entry := range entries {
		if entry.IsDir() || !isImageFile(entry.Name()) {
			continue
		}
		result, err := c.AnalyzePhoto(ctx, filepath.Join(dir, entry.Name()))
		if err != nil {
			log.Errorf("Failed to analyze %s: %v", entry.Name(), err)
			continue
		}
		results[entry.Name()] = result
	}
	return results, nil
}

func isImageFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png":
		return true
	}
	return false
}
