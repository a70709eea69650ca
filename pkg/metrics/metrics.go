// Package metrics exposes Prometheus collectors for the import pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ImportsTotal counts import requests by final status (ok, failed).
	ImportsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statement_imports_total",
		Help: "Number of statement import requests processed.",
	}, []string{"status"})

	// EntriesTotal counts per-entry outcomes (inserted, duplicate, save_failed).
	EntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "statement_import_entries_total",
		Help: "Per-entry outcomes of statement imports.",
	}, []string{"outcome"})

	// ImportDuration observes end-to-end pipeline latency. OCR imports can
	// run for tens of seconds per page, hence the wide buckets.
	ImportDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "statement_import_duration_seconds",
		Help:    "End-to-end statement import duration.",
		Buckets: prometheus.ExponentialBuckets(0.05, 2.5, 10),
	})
)
