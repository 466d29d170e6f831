package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Upstream service labels.
const (
	ServiceEmbedding  = "embedding"
	ServiceIndex      = "vector_index"
	ServiceCompletion = "completion"
)

// Chat outcome labels.
const (
	OutcomeOK      = "ok"
	OutcomeInvalid = "invalid"
	OutcomeFailed  = "failed"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	UpstreamRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "ragchat_upstream_request_duration_seconds",
			Help:    "Latency of calls to the embedding, vector index and completion services.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"service"},
	)

	UpstreamErrorsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_upstream_errors_total",
			Help: "Total number of failed upstream service calls.",
		},
		[]string{"service"},
	)

	ChatRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_chat_requests_total",
			Help: "Total number of chat requests by outcome.",
		},
		[]string{"outcome"},
	)

	MatchesReturned = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "ragchat_vector_matches_returned",
			Help:    "Number of matches returned per vector index query.",
			Buckets: []float64{0, 1, 2, 3},
		},
	)

	RateLimitedTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ragchat_rate_limited_total",
			Help: "Total number of chat requests rejected by the rate limiter.",
		},
	)

	EventsPublishedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ragchat_events_published_total",
			Help: "Total number of chat events published to NATS by result.",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		UpstreamRequestDuration,
		UpstreamErrorsTotal,
		ChatRequestsTotal,
		MatchesReturned,
		RateLimitedTotal,
		EventsPublishedTotal,
	)
}

// ObserveUpstream records the latency of a call to service that began at
// start, counting it as an error when err is non-nil.
func ObserveUpstream(service string, start time.Time, err error) {
	UpstreamRequestDuration.WithLabelValues(service).Observe(time.Since(start).Seconds())
	if err != nil {
		UpstreamErrorsTotal.WithLabelValues(service).Inc()
	}
}
