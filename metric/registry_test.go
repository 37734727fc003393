package metric

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegistry(t *testing.T) {
	registry := NewMetricsRegistry()
	require.NotNil(t, registry)
	require.NotNil(t, registry.CoreMetrics())
	require.NotNil(t, registry.PrometheusRegistry())

	// core metrics are gatherable immediately
	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	names := make(map[string]bool, len(families))
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["mce_app_status"])
}

func TestRegisterCounter(t *testing.T) {
	registry := NewMetricsRegistry()

	counter := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_operations_total",
		Help: "test",
	})
	require.NoError(t, registry.RegisterCounter("pipeline", "operations", counter))

	// same key is rejected
	other := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "test_other_total",
		Help: "test",
	})
	err := registry.RegisterCounter("pipeline", "operations", other)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestRegisterGaugeAndUnregister(t *testing.T) {
	registry := NewMetricsRegistry()

	gauge := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "test_sources_attached",
		Help: "test",
	})
	require.NoError(t, registry.RegisterGauge("pipeline", "sources", gauge))

	assert.True(t, registry.Unregister("pipeline", "sources"))
	assert.False(t, registry.Unregister("pipeline", "sources"))

	// the key is free again after unregistering
	require.NoError(t, registry.RegisterGauge("pipeline", "sources", gauge))
}

func TestRegisterVecMetrics(t *testing.T) {
	registry := NewMetricsRegistry()

	counterVec := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "test_link_failures_total",
		Help: "test",
	}, []string{"reason"})
	require.NoError(t, registry.RegisterCounterVec("pipeline", "link_failures", counterVec))

	histogramVec := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "test_transition_seconds",
		Help:    "test",
		Buckets: prometheus.DefBuckets,
	}, []string{"target"})
	require.NoError(t, registry.RegisterHistogramVec("pipeline", "transitions", histogramVec))

	counterVec.WithLabelValues("hierarchy-mismatch").Inc()
	histogramVec.WithLabelValues("PLAYING").Observe(0.5)

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)
}

func TestCoreMetricsRecording(t *testing.T) {
	registry := NewMetricsRegistry()
	core := registry.CoreMetrics()

	core.RecordAppStatus(2)
	core.RecordError("pipeline", "link")
	core.RecordNATSStatus(true)
	core.RecordNATSReconnect()

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	found := map[string]bool{}
	for _, mf := range families {
		found[mf.GetName()] = true
	}
	assert.True(t, found["mce_errors_total"])
	assert.True(t, found["mce_nats_connected"])
}
