package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce          sync.Once
	apiRequestsTotal      *prometheus.CounterVec
	apiLatencySeconds     *prometheus.HistogramVec
	apiErrorsTotal        *prometheus.CounterVec
	sessionsStartedTotal  prometheus.Counter
	sessionsCompleted     prometheus.Counter
	sessionScorePoints    prometheus.Histogram
	stageRejectionsTotals *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the activity API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minlab_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "minlab_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minlab_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		sessionsStartedTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minlab_sessions_started_total",
			Help: "Number of activity sessions opened.",
		})

		sessionsCompleted = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "minlab_sessions_completed_total",
			Help: "Number of activity sessions finalized.",
		})

		sessionScorePoints = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "minlab_session_score_points",
			Help:    "Distribution of final session scores.",
			Buckets: []float64{25, 50, 60, 70, 80, 90, 100},
		})

		stageRejectionsTotals = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "minlab_stage_rejections_total",
			Help: "Stage submissions rejected by a validator.",
		}, []string{"stage"})

		prometheus.MustRegister(
			apiRequestsTotal,
			apiLatencySeconds,
			apiErrorsTotal,
			sessionsStartedTotal,
			sessionsCompleted,
			sessionScorePoints,
			stageRejectionsTotals,
		)
	})
}

// APIRequests exposes the request counter.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the error counter.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// SessionsStarted exposes the opened-session counter.
func SessionsStarted() prometheus.Counter {
	RegisterMetrics()
	return sessionsStartedTotal
}

// SessionsCompleted exposes the finalized-session counter.
func SessionsCompleted() prometheus.Counter {
	RegisterMetrics()
	return sessionsCompleted
}

// SessionScore exposes the final score histogram.
func SessionScore() prometheus.Histogram {
	RegisterMetrics()
	return sessionScorePoints
}

// StageRejections exposes the per-stage rejection counter.
func StageRejections() *prometheus.CounterVec {
	RegisterMetrics()
	return stageRejectionsTotals
}
