// Package metrics exposes pipeline counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	ItemsProcessed = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_items_processed_total",
		Help: "Queue items processed by mode and result",
	}, []string{"mode", "result"})

	RuleExclusions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_rule_exclusions_total",
		Help: "Records excluded by the rule chain",
	}, []string{"rule"})

	ClassifierCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_classifier_calls_total",
		Help: "Policy classifier calls by result",
	}, []string{"result"})

	UploadBatches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_upload_batches_total",
		Help: "Destination batch uploads by result",
	}, []string{"result"})

	UploadRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_upload_records_total",
		Help: "Records submitted to the destination catalog by result",
	}, []string{"result"})

	LimiterWaits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "catalog_sync_rate_limit_waits_total",
		Help: "Backpressure sleeps by limiter id and window",
	}, []string{"id", "window"})

	LockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "catalog_sync_lock_contention_total",
		Help: "Sync runs skipped because the scope was already locked",
	})

	ActiveWorkers = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "catalog_sync_active_workers",
		Help: "Orchestrator workers currently draining a queue",
	})

	RunDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "catalog_sync_run_duration_seconds",
		Help:    "Sync run duration by final status",
		Buckets: []float64{1, 5, 15, 60, 300, 900, 1800, 3600, 7200},
	}, []string{"status"})
)

// Result labels.
const (
	ResultValid    = "valid"
	ResultInvalid  = "invalid"
	ResultError    = "error"
	ResultSuccess  = "success"
	ResultFailOpen = "fail_open"
	ResultExcluded = "excluded"
	ResultSkipped  = "skipped"
)
