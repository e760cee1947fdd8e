// Package metrics holds the Prometheus collectors shared by the dashboard
// server and the data packages it drives.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPRequests counts dashboard requests by route pattern and status.
	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "encmusic_http_requests_total",
		Help: "Total number of dashboard HTTP requests",
	}, []string{"route", "method", "status"})

	// HTTPDuration observes dashboard request latency by route pattern.
	HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "encmusic_http_request_duration_seconds",
		Help:    "Duration of dashboard HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})

	// CacheLookups counts cache reads by result (hit, miss, error).
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "encmusic_cache_lookups_total",
		Help: "Total number of data cache lookups",
	}, []string{"result"})

	// UpstreamFetches counts outbound requests by upstream and outcome.
	UpstreamFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "encmusic_upstream_fetches_total",
		Help: "Total number of requests to upstream data sources",
	}, []string{"upstream", "outcome"})
)
