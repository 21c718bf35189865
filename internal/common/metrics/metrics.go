// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_cache_lookups_total",
			Help: "Total number of catalog cache lookups by result",
		},
		[]string{"status"}, // fresh, stale, miss
	)

	CatalogFetches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "catalog_fetches_total",
			Help: "Total number of provider fetches by outcome",
		},
		[]string{"outcome"}, // success, not_found, invalid_payload, rate_limited, unavailable
	)

	CatalogFetchRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "catalog_fetch_retries_total",
			Help: "Total number of provider fetch retry attempts",
		},
	)

	RecommendRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "recommend_requests_total",
			Help: "Total number of recommendation requests by outcome",
		},
		[]string{"outcome"}, // complete, partial, empty
	)

	RecommendDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name: "recommend_duration_seconds",
			Help: "Duration of recommendation ranking in seconds",
		},
	)
)
