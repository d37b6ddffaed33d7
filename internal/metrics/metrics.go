// Package metrics exposes the Prometheus counters instrumenting the Batch
// Executor (items processed/retried/failed) and the Retention Engine
// (backups deleted, bytes freed), collected behind a single /metrics
// endpoint alongside the gin front-end.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ItemsProcessed counts every assign/revoke dispatch the Batch Executor
	// completes, labeled by outcome status.
	ItemsProcessed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "idcenter_executor_items_processed_total",
		Help: "Total assignment operations processed by the Batch Executor, by outcome status.",
	}, []string{"status"})

	// ItemsRetried counts every retry attempt the Batch Executor makes
	// against a transient directory error.
	ItemsRetried = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idcenter_executor_items_retried_total",
		Help: "Total retry attempts made by the Batch Executor.",
	})

	// BackupsDeleted counts every backup the Retention Engine removes
	// during a cleanup pass.
	BackupsDeleted = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idcenter_retention_backups_deleted_total",
		Help: "Total backups deleted by retention policy enforcement.",
	})

	// BytesFreed sums the storage reclaimed by retention cleanup passes.
	BytesFreed = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "idcenter_retention_bytes_freed_total",
		Help: "Total bytes freed by retention policy enforcement.",
	})
)

func init() {
	prometheus.MustRegister(ItemsProcessed, ItemsRetried, BackupsDeleted, BytesFreed)
}

// Handler returns the HTTP handler to mount at /metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}
