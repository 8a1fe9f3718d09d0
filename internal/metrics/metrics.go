// Package metrics holds the Prometheus collectors shared by the hub client,
// the loader and the API server.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeCached       = "cached"
	OutcomeNotFound     = "not_found"
	OutcomeUnauthorized = "unauthorized"
	OutcomeError        = "error"
)

var (
	HubResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervene_hub_resolutions_total",
		Help: "Config, tokenizer and model resolutions by outcome",
	}, []string{"resource", "outcome"})

	HubFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervene_hub_fetches_total",
		Help: "Individual file fetches by outcome",
	}, []string{"outcome"})

	HubDownloadBytes = promauto.NewCounter(prometheus.CounterOpts{
		Name: "intervene_hub_download_bytes_total",
		Help: "Bytes written to the local cache by downloads",
	})

	HubFetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "intervene_hub_fetch_duration_seconds",
		Help:    "Wall time of file downloads",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12),
	})

	ModelLoads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervene_model_loads_total",
		Help: "Model loads by variant",
	}, []string{"model", "variant"})

	AnchorLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervene_anchor_lookups_total",
		Help: "Anchor and dimension lookups by table and outcome",
	}, []string{"table", "outcome"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "intervene_http_requests_total",
		Help: "API requests by route and status code",
	}, []string{"route", "code"})
)

// ObserveFetch records one download.
func ObserveFetch(outcome string, bytes int64, started time.Time) {
	HubFetches.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK {
		return
	}
	HubDownloadBytes.Add(float64(bytes))
	HubFetchDuration.Observe(time.Since(started).Seconds())
}
