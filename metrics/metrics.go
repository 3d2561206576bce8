package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	// PipelineRunsTotal counts pipeline executions by mode and result.
	PipelineRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mangrovewatch",
		Subsystem: "backend",
		Name:      "pipeline_runs_total",
		Help:      "Total number of pipeline executions, labeled by mode and result.",
	}, []string{"mode", "result"})

	// ReportsSavedTotal counts workflow results persisted to the database.
	ReportsSavedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mangrovewatch",
		Subsystem: "backend",
		Name:      "reports_saved_total",
		Help:      "Total number of workflow results written to the database.",
	})

	// AnalysisDurationSeconds is end-to-end time of a vegetation-change analysis.
	AnalysisDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "mangrovewatch",
		Subsystem: "backend",
		Name:      "analysis_duration_seconds",
		Help:      "End-to-end time of a satellite vegetation-change analysis.",
		// Keep buckets fairly coarse to avoid high-cardinality time series.
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 60, 120},
	}, []string{"mode", "result"})

	// BotMessagesTotal counts chat messages processed by the bot, labeled by outcome.
	BotMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "mangrovewatch",
		Subsystem: "bot",
		Name:      "messages_total",
		Help:      "Total number of chat updates processed by the bot, labeled by result.",
	}, []string{"result"})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			PipelineRunsTotal,
			ReportsSavedTotal,
			AnalysisDurationSeconds,
			BotMessagesTotal,
		)
	})
}
