package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// DraftGenerationLatency covers one Generate call of a draft generator.
	DraftGenerationLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailassist_draft_generation_latency_ms",
			Help:    "Draft generation latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(1, 2, 16),
		},
		[]string{"generator", "status"},
	)

	// ProviderCallLatency covers one request to a language-model provider.
	ProviderCallLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailassist_provider_call_latency_ms",
			Help:    "Language-model provider call latency in milliseconds",
			Buckets: prometheus.ExponentialBuckets(100, 2, 10),
		},
		[]string{"provider", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mailassist_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 16),
		},
		[]string{"method", "path", "status"},
	)

	ResponseRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_response_requests_total",
			Help: "Response-generation requests by outcome",
		},
		[]string{"type", "outcome"},
	)

	PipelineRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mailassist_pipeline_runs_total",
			Help: "Panel pipeline invocations",
		},
		[]string{"pipeline"},
	)
)

func RecordDraftGeneration(generator, status string, duration time.Duration) {
	DraftGenerationLatency.WithLabelValues(generator, status).Observe(float64(duration.Milliseconds()))
}

func RecordProviderCall(provider, status string, duration time.Duration) {
	ProviderCallLatency.WithLabelValues(provider, status).Observe(float64(duration.Milliseconds()))
}

func RecordHTTPRequest(method, path, status string, duration time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

func IncrementResponseRequest(responseType, outcome string) {
	ResponseRequests.WithLabelValues(responseType, outcome).Inc()
}

func IncrementPipelineRun(pipeline string) {
	PipelineRuns.WithLabelValues(pipeline).Inc()
}
