package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	httpRequestsTotal  *prometheus.CounterVec
	httpLatencySeconds *prometheus.HistogramVec
	httpErrorsTotal    *prometheus.CounterVec

	pickupTransitionsTotal *prometheus.CounterVec
	announcementsTotal     *prometheus.CounterVec
	feedEventsTotal        *prometheus.CounterVec
	feedSubscribersActive  prometheus.Gauge
	chatMessagesTotal      *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors for the service.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "pickup_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		pickupTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_status_transitions_total",
			Help: "Pickup request status transitions, labelled by the new status.",
		}, []string{"status"})

		announcementsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_announcements_total",
			Help: "Arrival announcements delivered, labelled by outcome.",
		}, []string{"outcome"})

		feedEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_feed_events_total",
			Help: "Change-feed events broadcast to subscribers.",
		}, []string{"table", "type"})

		feedSubscribersActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "pickup_feed_subscribers_active",
			Help: "Currently connected change-feed subscribers.",
		})

		chatMessagesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pickup_chat_messages_total",
			Help: "Chat messages appended to pickup requests, labelled by sender.",
		}, []string{"sender"})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			pickupTransitionsTotal,
			announcementsTotal,
			feedEventsTotal,
			feedSubscribersActive,
			chatMessagesTotal,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// PickupTransitions exposes the counter for pickup status transitions.
func PickupTransitions() *prometheus.CounterVec {
	RegisterMetrics()
	return pickupTransitionsTotal
}

// Announcements exposes the counter for delivered announcements.
func Announcements() *prometheus.CounterVec {
	RegisterMetrics()
	return announcementsTotal
}

// FeedEventsTotal exposes the counter for broadcast feed events.
func FeedEventsTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return feedEventsTotal
}

// FeedSubscribersActive exposes the gauge of connected feed subscribers.
func FeedSubscribersActive() prometheus.Gauge {
	RegisterMetrics()
	return feedSubscribersActive
}

// ChatMessages exposes the counter for appended chat messages.
func ChatMessages() *prometheus.CounterVec {
	RegisterMetrics()
	return chatMessagesTotal
}
