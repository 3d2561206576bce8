package pipeline

import (
	"context"
	"fmt"
	"sort"

	"github.com/apex/log"

	"mangrovewatch/classifier"
	"mangrovewatch/vegetation"
)

// PhotoClassifier labels mangrove photos and pulls GPS out of their EXIF.
type PhotoClassifier interface {
	AnalyzePhoto(ctx context.Context, path string) (*classifier.Result, error)
	AnalyzeFolder(ctx context.Context, dir string) (map[string]*classifier.Result, error)
}

// ChangeAnalyzer computes vegetation change around a point from satellite
// archives.
type ChangeAnalyzer interface {
	SimpleChange(ctx context.Context, lat, lon float64) (float64, error)
	EnhancedChange(ctx context.Context, lat, lon float64) (*vegetation.EnhancedResult, error)
}

// ImageRecord is the outcome of one processed photo. SatelliteVegetationChange
// stays nil when the photo has no GPS or the satellite lookup failed.
type ImageRecord struct {
	File                      string          `json:"file,omitempty"`
	Label                     string          `json:"label"`
	Confidence                float64         `json:"confidence"`
	Coordinates               *classifier.GPS `json:"coordinates,omitempty"`
	SatelliteVegetationChange *float64        `json:"satellite_vegetation_change,omitempty"`
}

type Pipeline struct {
	classifier PhotoClassifier
	analyzer   ChangeAnalyzer
}

func New(c PhotoClassifier, a ChangeAnalyzer) *Pipeline {
	return &Pipeline{classifier: c, analyzer: a}
}

// RunOnImage classifies one photo. If the photo carries GPS coordinates, a
// satellite vegetation check is attempted for that location; a failed check
// degrades to a record with no vegetation figure rather than an error.
func (p *Pipeline) RunOnImage(ctx context.Context, path string) (*ImageRecord, error) {
	res, err := p.classifier.AnalyzePhoto(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("classifying %s: %w", path, err)
	}
	rec := p.toRecord(ctx, path, res)
	return &rec, nil
}

// RunOnFolder processes every readable image in dir the same way RunOnImage
// processes one photo. Records come back sorted by file name.
func (p *Pipeline) RunOnFolder(ctx context.Context, dir string) ([]ImageRecord, error) {
	results, err := p.classifier.AnalyzeFolder(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("classifying folder %s: %w", dir, err)
	}
	names := make([]string, 0, len(results))
	for name := range results {
		names = append(names, name)
	}
	sort.Strings(names)

	records := make([]ImageRecord, 0, len(names))
	for _, name := range names {
		records = append(records, p.toRecord(ctx, name, results[name]))
	}
	return records, nil
}

// RunOnCoordinates skips classification entirely and runs the enhanced
// satellite analysis for a known location.
func (p *Pipeline) RunOnCoordinates(ctx context.Context, lat, lon float64) (*vegetation.EnhancedResult, error) {
	return p.analyzer.EnhancedChange(ctx, lat, lon)
}

func (p *Pipeline) toRecord(ctx context.Context, file string, res *classifier.Result) ImageRecord {
	rec := ImageRecord{
		File:        file,
		Label:       res.Label,
		Confidence:  res.Confidence,
		Coordinates: res.Coordinates,
	}
	if res.Coordinates == nil {
		return rec
	}
	change, err := p.analyzer.SimpleChange(ctx, res.Coordinates.Latitude, res.Coordinates.Longitude)
	if err != nil {
		log.Warnf("Satellite check skipped for %s: %v", file, err)
		return rec
	}
	rec.SatelliteVegetationChange = &change
	return rec
}
