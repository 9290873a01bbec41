package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains the Prometheus collectors for exports.
type Metrics struct {
	rowsWritten    *prometheus.CounterVec
	exports        *prometheus.CounterVec
	exportDuration *prometheus.HistogramVec
}

// NewMetrics registers the export collectors with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		rowsWritten: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetwriter_rows_written_total",
				Help: "Total number of rows written, header rows included",
			},
			[]string{"profile", "format"},
		),

		exports: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sheetwriter_exports_total",
				Help: "Total number of exports by result",
			},
			[]string{"profile", "format", "result"},
		),

		exportDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sheetwriter_export_duration_seconds",
				Help:    "Time spent producing an export",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"profile", "format"},
		),
	}
}

// RecordExport records one finished export.
func (m *Metrics) RecordExport(profile, format string, rows int, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.exports.WithLabelValues(profile, format, result).Inc()
	m.exportDuration.WithLabelValues(profile, format).Observe(elapsed.Seconds())
	if rows > 0 {
		m.rowsWritten.WithLabelValues(profile, format).Add(float64(rows))
	}
}
