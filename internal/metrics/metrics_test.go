package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestCountersIncrement(t *testing.T) {
	m := New()

	m.CatalogSearch("ok")
	m.CatalogSearch("ok")
	m.CatalogSearch("upstream_error")
	m.CascadeRun("group", "done")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.CatalogSearches.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CatalogSearches.WithLabelValues("upstream_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CascadeRuns.WithLabelValues("group", "done")))
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.CatalogSearch("ok")
		m.CascadeRun("order", "failed")
		m.EventPublished("order.created", "ok")
		m.RegisterWSClients(func() int { return 0 })
	})
}

func TestWSClientsGauge(t *testing.T) {
	m := New()
	m.RegisterWSClients(func() int { return 3 })

	assert.Equal(t, 3.0, testutil.ToFloat64(m.WSClients))
}
