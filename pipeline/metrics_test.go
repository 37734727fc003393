package pipeline

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	mceerrors "github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/metric"
)

func TestNewMetricsRegisters(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	m, err := NewMetrics(registry)
	require.NoError(t, err)
	require.NotNil(t, m)

	m.recordLinkFailure(mceerrors.LinkHierarchy)
	m.setSourcesAttached(3)
	m.observeTransition("PLAYING", 40*time.Millisecond)
	m.recordBusMessage("eos")

	families, err := registry.PrometheusRegistry().Gather()
	require.NoError(t, err)

	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	assert.True(t, names["mce_link_failures_total"])
	assert.True(t, names["mce_sources_attached"])
	assert.True(t, names["mce_state_transition_seconds"])
	assert.True(t, names["mce_bus_messages_total"])
}

func TestNewMetricsRejectsDoubleRegistration(t *testing.T) {
	registry := metric.NewMetricsRegistry()

	_, err := NewMetrics(registry)
	require.NoError(t, err)
	_, err = NewMetrics(registry)
	assert.Error(t, err)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *Metrics

	assert.NotPanics(t, func() {
		m.recordLinkFailure(mceerrors.LinkGeneric)
		m.setSourcesAttached(1)
		m.observeTransition("READY", time.Millisecond)
		m.recordBusMessage("warning")
	})
}
