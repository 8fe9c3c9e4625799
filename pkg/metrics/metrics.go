// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RunsTotal tracks pipeline runs by terminal status
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by status",
		},
		[]string{"status"},
	)

	// RunDuration tracks pipeline run duration in seconds
	RunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Duration of pipeline runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1800, 3600},
		},
	)

	// RecordsSkipped tracks malformed source records skipped by source
	RecordsSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "pipeline",
			Name:      "records_skipped_total",
			Help:      "Total number of malformed source records skipped",
		},
		[]string{"source"},
	)

	// SimilarityScores tracks the distribution of top-K similarity scores
	SimilarityScores = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "similarity_score",
			Help:      "Similarity of top-K candidate pairs before the floor is applied",
			Buckets:   []float64{50, 60, 70, 80, 85, 87, 90, 95, 99, 100},
		},
	)

	// CandidatesDiscarded tracks top-K pairs dropped at the similarity floor
	CandidatesDiscarded = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "matching",
			Name:      "candidates_discarded_total",
			Help:      "Total number of top-K pairs at or below the similarity floor",
		},
	)

	// AdjudicationsTotal tracks decisions by source and outcome
	AdjudicationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "adjudication",
			Name:      "decisions_total",
			Help:      "Total number of adjudication decisions by source and reason",
		},
		[]string{"source", "reason"},
	)

	// AdjudicationDuration tracks external service call latency
	AdjudicationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "adjudication",
			Name:      "call_duration_seconds",
			Help:      "Duration of external adjudication calls in seconds",
			Buckets:   []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20, 30},
		},
		[]string{"provider"},
	)

	// AdjudicationsInFlight tracks external calls currently waiting on the service
	AdjudicationsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "clover",
			Subsystem: "adjudication",
			Name:      "calls_in_flight",
			Help:      "Number of external adjudication calls in flight",
		},
	)

	// DecisionCacheTotal tracks decision cache lookups
	DecisionCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "adjudication",
			Name:      "cache_lookups_total",
			Help:      "Total number of decision cache lookups by result",
		},
		[]string{"result"},
	)

	// UnifiedCompaniesUpserted tracks rows written to the unified store
	UnifiedCompaniesUpserted = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "store",
			Name:      "unified_companies_upserted_total",
			Help:      "Total number of unified company rows upserted",
		},
	)

	// EventsPublished tracks company events published to Kafka
	EventsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "events",
			Name:      "published_total",
			Help:      "Total number of company events published by status",
		},
		[]string{"status"},
	)
)
