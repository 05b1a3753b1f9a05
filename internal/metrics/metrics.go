package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Run metrics
	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fathom_research_runs_started_total",
			Help: "Total number of research runs started",
		},
	)

	RunsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fathom_research_runs_completed_total",
			Help: "Total number of research runs completed",
		},
		[]string{"status"},
	)

	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fathom_research_run_duration_seconds",
			Help:    "End-to-end research run duration in seconds",
			Buckets: []float64{5, 15, 30, 60, 120, 300, 600, 1200},
		},
	)

	// Stage metrics
	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "fathom_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)

	// Subagent metrics
	SubagentExecutions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fathom_subagent_executions_total",
			Help: "Total number of subagent executions",
		},
		[]string{"status"},
	)

	SubagentIterations = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fathom_subagent_iterations",
			Help:    "Reasoning loop iterations per subagent",
			Buckets: []float64{1, 2, 3, 4, 5, 7, 10},
		},
	)

	SubagentSources = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fathom_subagent_sources",
			Help:    "Unique sources collected per subagent",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		},
	)

	// Search metrics
	SearchCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "fathom_search_calls_total",
			Help: "Total number of web search calls",
		},
		[]string{"status"},
	)

	// Citation metrics
	CitationFallbacks = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "fathom_citation_fallbacks_total",
			Help: "Total number of runs that used the deterministic bibliography fallback",
		},
	)

	BibliographySize = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "fathom_bibliography_entries",
			Help:    "Bibliography entries per completed run",
			Buckets: []float64{0, 1, 5, 10, 20, 50, 100},
		},
	)
)
