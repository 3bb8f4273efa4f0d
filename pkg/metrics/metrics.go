package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all application metrics
type Metrics struct {
	// Slot ledger
	SlotClaims          *prometheus.CounterVec
	AvailabilityQueries prometheus.Counter
	StatusTransitions   *prometheus.CounterVec

	// Match ranker
	MatchRequests  prometheus.Counter
	MatchPoolSize  prometheus.Histogram
	MatchPoolCache *prometheus.CounterVec
	MatchTopScore  prometheus.Histogram

	// Outbox related metrics
	OutboxEventsProcessed   prometheus.Counter
	OutboxEventsFailed      prometheus.Counter
	OutboxProcessingLatency prometheus.Histogram
	OutboxRetries           *prometheus.CounterVec
	OutboxEventsPurged      prometheus.Counter

	// Database metrics
	DatabaseOperations *prometheus.CounterVec
}

// Slot claim outcomes.
const (
	ClaimAdmitted = "admitted"
	ClaimConflict = "conflict"
	ClaimInvalid  = "invalid"
	ClaimError    = "error"
)

// NewMetrics creates all application metrics and registers them with reg.
// Pass prometheus.DefaultRegisterer in binaries and a fresh registry in tests.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		SlotClaims: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "slot_claims_total",
			Help:      "Appointment creation attempts by outcome",
		}, []string{"outcome"}),
		AvailabilityQueries: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "availability_queries_total",
			Help:      "Total number of availability lookups",
		}),
		StatusTransitions: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "status_transitions_total",
			Help:      "Appointment status changes by target status",
		}, []string{"to"}),

		MatchRequests: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "requests_total",
			Help:      "Total number of match requests ranked",
		}),
		MatchPoolSize: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "candidate_pool_size",
			Help:      "Number of active counsellors scored per request",
			Buckets:   []float64{0, 5, 10, 25, 50, 100, 250, 500},
		}),
		MatchPoolCache: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "pool_cache_total",
			Help:      "Candidate pool cache lookups by result",
		}, []string{"result"}),
		MatchTopScore: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "match",
			Name:      "top_score",
			Help:      "Score of the first-ranked candidate",
			Buckets:   []float64{0, 10, 20, 40, 60, 80, 100},
		}),

		OutboxEventsProcessed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_processed_total",
			Help:      "Total number of successfully processed outbox events",
		}),
		OutboxEventsFailed: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_failed_total",
			Help:      "Total number of failed outbox events",
		}),
		OutboxProcessingLatency: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "processing_duration_seconds",
			Help:      "Time spent processing outbox events",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		}),
		OutboxRetries: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "retry_attempts_total",
			Help:      "Total number of retry attempts for outbox events",
		}, []string{"event_type"}),
		OutboxEventsPurged: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "outbox",
			Name:      "events_purged_total",
			Help:      "Processed outbox events removed by retention cleanup",
		}),

		DatabaseOperations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "database_operations_total",
			Help:      "Total number of database operations",
		}, []string{"operation", "status"}),
	}
}
