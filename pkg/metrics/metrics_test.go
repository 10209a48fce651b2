package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitMetricsTwice(t *testing.T) {
	reg := prometheus.NewRegistry()
	require.NoError(t, InitMetrics(reg))
	require.NoError(t, InitMetrics(reg))
	require.NoError(t, Close())
}

func TestGaugeAndCounter(t *testing.T) {
	SetGauge("system_cpuuse", 1234)
	assert.Equal(t, float64(1234), testutil.ToFloat64(Gauge("system_cpuuse")))

	before := testutil.ToFloat64(Counter("invoice_created"))
	Incr("invoice_created")
	assert.Equal(t, before+1, testutil.ToFloat64(Counter("invoice_created")))
}
