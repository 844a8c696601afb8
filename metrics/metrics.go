// Package metrics holds the Prometheus collectors exported on /metrics.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edunet_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "edunet_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	WSClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "edunet_ws_clients",
		Help: "Connected WebSocket clients",
	})

	Notifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "edunet_notifications_total",
			Help: "Notifications persisted, by type",
		},
		[]string{"type"},
	)
)

func Handler() http.Handler {
	return promhttp.Handler()
}
