package metrics

import "github.com/prometheus/client_golang/prometheus"

var HttpRequestsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests received",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRequestDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"endpoint", "method"},
)

var HttpErrorsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "http_errors_total",
		Help: "Total number of failed HTTP requests (4xx/5xx)",
	},
	[]string{"endpoint", "status", "method"},
)

var HttpRateLimitRejectionsTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "http_rate_limit_rejections_total",
		Help: "Total number of HTTP requests rejected due to rate limiting",
	},
)

var ValidationRejectionsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "validation_rejections_total",
		Help: "Total number of widget requests rejected by the validation gate",
	},
	[]string{"reason"},
)

var EnvelopesSealedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "envelopes_sealed_total",
		Help: "Total number of notification envelopes encrypted",
	},
	[]string{"status"},
)

var QueuePublishSuccessTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_publish_success_total",
		Help: "Total number of successful queue publishes",
	},
	[]string{"topic"},
)

var QueuePublishFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_publish_failure_total",
		Help: "Total number of failed queue publishes",
	},
	[]string{"topic"},
)

var QueueFetchFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_fetch_failure_total",
		Help: "Total number of failed queue fetches",
	},
	[]string{"topic"},
)

var QueueDLQTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "queue_dlq_total",
		Help: "Total number of payloads moved to a dead-letter topic",
	},
	[]string{"topic", "reason"},
)

var EventsProcessedTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "events_processed_total",
		Help: "Total number of lifecycle events processed by workers",
	},
	[]string{"queue", "status"},
)

var EventProcessDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "event_process_duration_seconds",
		Help:    "Time taken to process one lifecycle event",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"queue"},
)

var EventRetriesTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "event_retries_total",
		Help: "Total number of lifecycle event processing retries",
	},
	[]string{"queue"},
)

var EmitterDroppedTotal = prometheus.NewCounter(
	prometheus.CounterOpts{
		Name: "emitter_dropped_total",
		Help: "Total number of analytics events dropped by the best-effort buffer",
	},
)

var WebhookAttemptsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "webhook_attempts_total",
		Help: "Total number of webhook delivery attempts",
	},
	[]string{"status"},
)

var WebhookSendDuration = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Name:    "webhook_send_duration_seconds",
		Help:    "Duration of outbound webhook calls in seconds",
		Buckets: prometheus.DefBuckets,
	},
	[]string{"status"},
)

var ExternalAPISuccessTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "external_api_success_total",
		Help: "Total number of successful external API calls",
	},
	[]string{"provider", "service"},
)

var ExternalAPIFailureTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "external_api_failure_total",
		Help: "Total number of failed external API calls",
	},
	[]string{"provider", "service"},
)

func InitAPIMetrics() {
	prometheus.MustRegister(HttpRequestsTotal)
	prometheus.MustRegister(HttpRequestDuration)
	prometheus.MustRegister(HttpErrorsTotal)
	prometheus.MustRegister(HttpRateLimitRejectionsTotal)
	prometheus.MustRegister(ValidationRejectionsTotal)
	prometheus.MustRegister(EnvelopesSealedTotal)
}

func InitWorkerMetrics() {
	prometheus.MustRegister(EventsProcessedTotal)
	prometheus.MustRegister(EventProcessDuration)
	prometheus.MustRegister(EventRetriesTotal)
	prometheus.MustRegister(WebhookAttemptsTotal)
	prometheus.MustRegister(WebhookSendDuration)
	prometheus.MustRegister(ExternalAPISuccessTotal)
	prometheus.MustRegister(ExternalAPIFailureTotal)
}

func InitQueueMetrics() {
	prometheus.MustRegister(QueuePublishSuccessTotal)
	prometheus.MustRegister(QueuePublishFailureTotal)
	prometheus.MustRegister(QueueFetchFailureTotal)
	prometheus.MustRegister(QueueDLQTotal)
	prometheus.MustRegister(EmitterDroppedTotal)
}
