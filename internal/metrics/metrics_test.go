package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordExport(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordExport("orders", "xlsx", 11, time.Second, nil)
	m.RecordExport("orders", "xlsx", 0, time.Second, errors.New("boom"))

	assert.Equal(t, 11.0, testutil.ToFloat64(m.rowsWritten.WithLabelValues("orders", "xlsx")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("orders", "xlsx", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exports.WithLabelValues("orders", "xlsx", "error")))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() { m.RecordExport("orders", "csv", 1, time.Millisecond, nil) })
}
