package vegetation

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/apex/log"
	geojson "github.com/paulmach/go.geojson"
	"github.com/shopspring/decimal"
)

var (
	// ErrUnavailable means the imagery archive failed while computing the analysis.
	ErrUnavailable = errors.New("vegetation analysis unavailable")
	// ErrNoImagery means the archive responded but held no usable scenes for a
	// required window.
	ErrNoImagery = errors.New("no usable satellite imagery for the requested window")
)

// Cloud-cover ceilings per analysis mode, in percent.
const (
	simpleMaxCloud   = 50.0
	enhancedMaxCloud = 30.0
)

// TrendDirection classifies the short-term NDVI movement.
type TrendDirection string

const (
	TrendIncreasing TrendDirection = "increasing"
	TrendDecreasing TrendDirection = "decreasing"
	TrendStable     TrendDirection = "stable"
)

// AlertLevel flags vegetation loss or anomalous growth.
type AlertLevel string

const (
	AlertNormal   AlertLevel = "normal"
	AlertWarning  AlertLevel = "warning"
	AlertCritical AlertLevel = "critical"
)

// WindowChange is the NDVI percent change between a window's before and after halves.
type WindowChange struct {
	ChangePercent float64 `json:"change_percent"`
	NDVIBefore    float64 `json:"ndvi_before"`
	NDVIAfter     float64 `json:"ndvi_after"`
}

// BaselineComparison relates the current NDVI against a historical reference window.
type BaselineComparison struct {
	BaselineNDVI      float64 `json:"baseline_ndvi"`
	CurrentNDVI       float64 `json:"current_ndvi"`
	VsBaselinePercent float64 `json:"vs_baseline_percent"`
}

// EnhancedResult is the multi-temporal analysis of one location.
type EnhancedResult struct {
	ShortTermChange    *float64            `json:"short_term_change"`
	MediumTermChange   *float64            `json:"medium_term_change"`
	LongTermChange     *float64            `json:"long_term_change"`
	TrendDirection     TrendDirection      `json:"trend_direction"`
	AlertLevel         AlertLevel          `json:"alert_level"`
	BaselineComparison *BaselineComparison `json:"baseline_comparison"`
	AnalysisType       string              `json:"analysis_type"`
	// VegetationChange mirrors the short-term change for callers that only
	// consume the scalar projection.
	VegetationChange *float64 `json:"vegetation_change"`
}

// Analyzer computes NDVI percent change around a point across time windows.
type Analyzer struct {
	source SceneSource
	now    func() time.Time
}

// NewAnalyzer creates an analyzer over the given scene source.
func NewAnalyzer(source SceneSource) *Analyzer {
	return &Analyzer{
		source: source,
		now:    time.Now,
	}
}

// SimpleChange compares the mean regional NDVI of the last 30 days against the
// 30 days before that, returning the percent change rounded to 2 decimals.
func (a *Analyzer) SimpleChange(ctx context.Context, latitude, longitude float64) (float64, error) {
	region := RegionPolygon(latitude, longitude)
	end := a.now()

	before, beforeOK, err := a.windowNDVI(ctx, region, end.AddDate(0, 0, -60), end.AddDate(0, 0, -30), simpleMaxCloud, reduceMean)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	after, afterOK, err := a.windowNDVI(ctx, region, end.AddDate(0, 0, -30), end, simpleMaxCloud, reduceMean)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if !beforeOK || !afterOK {
		return 0, ErrNoImagery
	}
	return percentChange(before, after), nil
}

// EnhancedChange runs the multi-temporal analysis: short/medium/long-term
// windows with median reduction plus a historical baseline comparison. On an
// internal failure it falls back to simple mode before surfacing
// unavailability.
func (a *Analyzer) EnhancedChange(ctx context.Context, latitude, longitude float64) (*EnhancedResult, error) {
	result, err := a.enhancedRun(ctx, latitude, longitude)
	if err == nil {
		return result, nil
	}
	log.Warnf("Enhanced analysis failed (%v), falling back to simple mode", err)

	change, simpleErr := a.SimpleChange(ctx, latitude, longitude)
	if simpleErr != nil {
		if errors.Is(simpleErr, ErrNoImagery) {
			return nil, simpleErr
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, simpleErr)
	}
	trend, alert := classifyShortTerm(&change)
	return &EnhancedResult{
		ShortTermChange:  &change,
		TrendDirection:   trend,
		AlertLevel:       alert,
		AnalysisType:     "simple_fallback",
		VegetationChange: &change,
	}, nil
}

func (a *Analyzer) enhancedRun(ctx context.Context, latitude, longitude float64) (*EnhancedResult, error) {
	region := RegionPolygon(latitude, longitude)
	end := a.now()

	type period struct {
		beforeStart, beforeEnd time.Time
		afterStart, afterEnd   time.Time
	}
	periods := map[string]period{
		"short_term": {
			beforeStart: end.AddDate(0, 0, -60), beforeEnd: end.AddDate(0, 0, -30),
			afterStart: end.AddDate(0, 0, -30), afterEnd: end,
		},
		"medium_term": {
			beforeStart: end.AddDate(0, 0, -150), beforeEnd: end.AddDate(0, 0, -90),
			afterStart: end.AddDate(0, 0, -90), afterEnd: end,
		},
		"long_term": {
			beforeStart: end.AddDate(0, 0, -270), beforeEnd: end.AddDate(0, 0, -180),
			afterStart: end.AddDate(0, 0, -180), afterEnd: end,
		},
	}

	changes := make(map[string]*WindowChange)
	for name, p := range periods {
		before, beforeOK, err := a.windowNDVI(ctx, region, p.beforeStart, p.beforeEnd, enhancedMaxCloud, reduceMedian)
		if err != nil {
			return nil, err
		}
		after, afterOK, err := a.windowNDVI(ctx, region, p.afterStart, p.afterEnd, enhancedMaxCloud, reduceMedian)
		if err != nil {
			return nil, err
		}
		if !beforeOK || !afterOK {
			changes[name] = nil
			continue
		}
		changes[name] = &WindowChange{
			ChangePercent: percentChange(before, after),
			NDVIBefore:    round4(before),
			NDVIAfter:     round4(after),
		}
	}

	baseline, baselineOK, err := a.windowNDVI(ctx, region, end.AddDate(0, 0, -365), end.AddDate(0, 0, -180), enhancedMaxCloud, reduceMedian)
	if err != nil {
		return nil, err
	}

	result := &EnhancedResult{
		AnalysisType: "enhanced_multi_temporal",
	}
	if c := changes["short_term"]; c != nil {
		result.ShortTermChange = &c.ChangePercent
		result.VegetationChange = &c.ChangePercent
	}
	if c := changes["medium_term"]; c != nil {
		result.MediumTermChange = &c.ChangePercent
	}
	if c := changes["long_term"]; c != nil {
		result.LongTermChange = &c.ChangePercent
	}

	result.TrendDirection, result.AlertLevel = classifyShortTerm(result.ShortTermChange)

	if baselineOK && changes["short_term"] != nil {
		current := changes["short_term"].NDVIAfter
		result.BaselineComparison = &BaselineComparison{
			BaselineNDVI:      round4(baseline),
			CurrentNDVI:       current,
			VsBaselinePercent: percentChange(baseline, current),
		}
	}
	return result, nil
}

// classifyShortTerm derives trend direction and alert level from the
// short-term change. An unavailable short-term window is the safe default:
// stable and normal.
func classifyShortTerm(shortTerm *float64) (TrendDirection, AlertLevel) {
	if shortTerm == nil {
		return TrendStable, AlertNormal
	}
	change := *shortTerm

	trend := TrendStable
	switch {
	case change > 10:
		trend = TrendIncreasing
	case change < -10:
		trend = TrendDecreasing
	}

	alert := AlertNormal
	switch {
	case change < -30:
		alert = AlertCritical
	case change < -15 || change > 50:
		alert = AlertWarning
	}
	return trend, alert
}

type reduceFunc func([]float64) float64

// windowNDVI queries scenes for one window and reduces their per-scene NDVI.
// ok is false when the window holds no usable scenes.
func (a *Analyzer) windowNDVI(ctx context.Context, region *geojson.Geometry, from, to time.Time, maxCloud float64, reduce reduceFunc) (float64, bool, error) {
	scenes, err := a.source.Scenes(ctx, region, from, to, maxCloud)
	if err != nil {
		return 0, false, err
	}
	if len(scenes) == 0 {
		return 0, false, nil
	}

	values := make([]float64, 0, len(scenes))
	for _, s := range scenes {
		values = append(values, ndvi(s.MeanNIR, s.MeanRed))
	}
	return reduce(values), true, nil
}

// ndvi is (NIR - RED) / (NIR + RED), defined as 0 when the denominator is 0.
func ndvi(nir, red float64) float64 {
	sum := nir + red
	if sum == 0 {
		return 0
	}
	return (nir - red) / sum
}

// percentChange is (after - before) / before * 100 rounded to 2 decimals,
// defined as exactly 0.0 when before is 0.
func percentChange(before, after float64) float64 {
	if before == 0 {
		return 0.0
	}
	p := (after - before) / before * 100
	return round2(p)
}

func round2(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

func round4(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(4).Float64()
	return f
}

func reduceMean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func reduceMedian(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}
