// Package metrics provides the Prometheus collectors of the scraper.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/trillium/shinobi/pkg/bincode"
)

// Namespace prefixes every metric name
const Namespace = "shinobi"

// Metrics holds all Prometheus collectors for the scraper.
type Metrics struct {
	// Sync metrics
	SyncsTotal        *prometheus.CounterVec
	SyncDuration      prometheus.Histogram
	LastSyncTimestamp prometheus.Gauge
	Epoch             prometheus.Gauge

	// Blob metrics
	BlobBytes        *prometheus.GaugeVec
	BlobsFailed      *prometheus.CounterVec
	VotersDecoded    *prometheus.GaugeVec
	RecordsSkipped   *prometheus.CounterVec
	DiagnosticsTotal *prometheus.CounterVec

	// Storage metrics
	RowsSaved  prometheus.Counter
	RowsFailed prometheus.Counter
}

// New creates and registers the collectors with reg
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		SyncsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "syncs_total",
			Help:      "Pool syncs by result",
		}, []string{"result"}),
		SyncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "sync_duration_seconds",
			Help:      "Time to fetch, decode and store one pool",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}),
		LastSyncTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "last_sync_timestamp_seconds",
			Help:      "Unix time of the last completed sync",
		}),
		Epoch: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "epoch",
			Help:      "Epoch of the last synced pool",
		}),

		BlobBytes: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "blob_bytes",
			Help:      "Size of the last fetched blob",
		}, []string{"blob"}),
		BlobsFailed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "blob_decode_failures_total",
			Help:      "Blobs that could not be decoded at all",
		}, []string{"blob"}),
		VotersDecoded: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "voters_decoded",
			Help:      "Voter records decoded from the last blob",
		}, []string{"blob"}),
		RecordsSkipped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "records_skipped_total",
			Help:      "Voter records dropped because they failed to decode",
		}, []string{"blob"}),
		DiagnosticsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "decode_diagnostics_total",
			Help:      "Decode diagnostics by blob, kind and severity",
		}, []string{"blob", "kind", "severity"}),

		RowsSaved: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rows_saved_total",
			Help:      "Validator rows upserted",
		}),
		RowsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "rows_failed_total",
			Help:      "Validator rows that failed to upsert",
		}),
	}
}

// DiagnosticSink counts every diagnostic reported while decoding blob
func (m *Metrics) DiagnosticSink(blob string) bincode.Sink {
	return bincode.SinkFunc(func(d bincode.Diagnostic) {
		m.DiagnosticsTotal.WithLabelValues(blob, string(d.Kind), d.Severity.String()).Inc()
	})
}
