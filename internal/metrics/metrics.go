package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Session Engine Metrics
var (
	// Request counters
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dscum",
			Subsystem: "bot",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	// Request duration histogram
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "dscum",
			Subsystem: "bot",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Message outcomes
	MessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dscum",
			Subsystem: "bot",
			Name:      "messages_total",
			Help:      "Total handled messages by outcome",
		},
		[]string{"outcome"},
	)

	// Completion duration
	CompletionDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "dscum",
			Subsystem: "bot",
			Name:      "completion_duration_seconds",
			Help:      "Chat completion duration in seconds",
			Buckets:   []float64{0.5, 1, 2, 5, 10, 30},
		},
	)

	// Summarization operations
	SummarizeTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "dscum",
			Subsystem: "bot",
			Name:      "summarize_total",
			Help:      "Total context window summarizations",
		},
		[]string{"status"},
	)
)

// Handler returns the Prometheus metrics handler
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordMessage records a handled message outcome
func RecordMessage(outcome string) {
	MessagesTotal.WithLabelValues(outcome).Inc()
}

// RecordCompletion records chat completion time
func RecordCompletion(durationSec float64) {
	CompletionDuration.Observe(durationSec)
}

// RecordSummarize records a summarization attempt
func RecordSummarize(status string) {
	SummarizeTotal.WithLabelValues(status).Inc()
}
