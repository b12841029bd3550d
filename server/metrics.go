package server

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socialfeed_http_requests_total",
		Help: "The total number of HTTP requests served by the web client",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socialfeed_http_request_duration_seconds",
		Help:    "Latency of HTTP requests served by the web client",
		Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms doubling up to ~2s
	}, []string{"method", "route"})

	sseClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socialfeed_sse_clients",
		Help: "The current number of connected new-post event streams",
	})

	broadcastDrops = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socialfeed_sse_dropped_events_total",
		Help: "Events skipped because a client channel was full",
	})
)

func observeRequest(method, route string, status int, d time.Duration) {
	httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}
