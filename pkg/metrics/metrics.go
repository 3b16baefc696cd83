// Package metrics exposes Prometheus instrumentation for a pipeline run.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// FetchesTotal counts logical fetches by outcome (ok, http_error, network_error).
	FetchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemapqa_fetches_total",
		Help: "Logical HTTP fetches performed, by outcome.",
	}, []string{"outcome"})

	FetchDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sitemapqa_fetch_duration_seconds",
		Help:    "Duration of logical HTTP fetches including retries.",
		Buckets: prometheus.DefBuckets,
	})

	SitemapsProcessedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitemapqa_sitemaps_processed_total",
		Help: "Sitemap documents fetched and classified during discovery.",
	})

	URLEntriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sitemapqa_url_entries_total",
		Help: "URL records extracted from leaf sitemaps.",
	})

	FindingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sitemapqa_findings_total",
		Help: "Risk findings produced, by severity.",
	}, []string{"severity"})
)

// Serve exposes the /metrics endpoint on addr. Blocks until the listener fails.
func Serve(addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return http.ListenAndServe(addr, mux)
}
