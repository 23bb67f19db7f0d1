package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Registration attempt outcomes.
const (
	OutcomeRegistered        = "registered"
	OutcomeNotFound          = "not_found"
	OutcomeClosed            = "closed"
	OutcomeAlreadyRegistered = "already_registered"
	OutcomeFull              = "full"
	OutcomeError             = "error"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	registrationAttempts *prometheus.CounterVec
	announcementRequests *prometheus.CounterVec
	announcementLatency  prometheus.Histogram
)

// RegisterMetrics initialises the Prometheus collectors used by the portal.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "api_errors_total",
			Help: "Total number of error responses returned by API endpoints.",
		}, []string{"method", "route", "status"})

		registrationAttempts = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "registration_attempts_total",
			Help: "Registration attempts grouped by outcome.",
		}, []string{"outcome"})

		announcementRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "announcements_requests_total",
			Help: "Public announcement list requests grouped by cache result.",
		}, []string{"result"})

		announcementLatency = prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "announcements_latency_seconds",
			Help:    "Latency of the public announcement list.",
			Buckets: prometheus.DefBuckets,
		})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, registrationAttempts, announcementRequests, announcementLatency)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// RegistrationAttempts exposes the registration outcome counter.
func RegistrationAttempts() *prometheus.CounterVec {
	RegisterMetrics()
	return registrationAttempts
}

// AnnouncementsRequests exposes the cache hit/miss counter of the public announcement list.
func AnnouncementsRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return announcementRequests
}

// AnnouncementsLatency exposes the public announcement list latency histogram.
func AnnouncementsLatency() prometheus.Histogram {
	RegisterMetrics()
	return announcementLatency
}
