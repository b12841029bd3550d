package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_api_requests_total",
		Help: "The total number of requests sent to the feed API",
	}, []string{"method", "route", "code"})

	apiRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfeed_api_request_duration_seconds",
		Help:    "Latency of feed API requests",
		Buckets: prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms doubling up to ~2.5s
	}, []string{"method", "route"})
)

func observe(method, route, code string, d time.Duration) {
	apiRequests.WithLabelValues(method, route, code).Inc()
	apiRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
