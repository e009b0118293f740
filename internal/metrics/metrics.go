package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	EventsReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "trackevent_events_received_total",
		Help: "Total number of event submissions handed to the ingestor.",
	})

	EventsStored = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackevent_events_stored_total",
		Help: "Total number of events durably stored, labelled by backend.",
	}, []string{"backend"})

	EventsRejected = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackevent_events_rejected_total",
		Help: "Total number of submissions rejected as invalid, labelled by field and reason.",
	}, []string{"field", "reason"})

	StoreFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackevent_store_failures_total",
		Help: "Total number of failed store calls, labelled by backend and whether the id conflicted.",
	}, []string{"backend", "conflict"})

	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trackevent_store_duration_seconds",
		Help:    "Latency of a single store call.",
		Buckets: prometheus.DefBuckets,
	}, []string{"backend"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "trackevent_http_requests_total",
		Help: "Total number of HTTP requests.",
	}, []string{"handler", "method", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "trackevent_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"handler", "method"})
)
