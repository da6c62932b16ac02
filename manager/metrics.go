package manager

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	metricFilesOpened = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "files_opened_total",
		Help:      "Files opened by scan lanes.",
	})
	metricOpenErrors = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "open_errors_total",
		Help:      "Files that failed to open or start reading.",
	})
	metricBatchesScanned = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "batches_scanned_total",
		Help:      "Batches pulled from readers.",
	})
	metricBatchesSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "batches_skipped_total",
		Help:      "Batches dropped whole because the filter admitted no row.",
	})
	metricRowsEmitted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "colscan",
		Name:      "rows_emitted_total",
		Help:      "Rows handed to scan consumers.",
	})
)
