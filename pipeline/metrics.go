package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mdegans/mce/errors"
	"github.com/mdegans/mce/metric"
)

// metricsService is the service name pipeline metrics register under.
const metricsService = "pipeline"

// Metrics holds the pipeline's instrumentation. A nil *Metrics is valid
// and records nothing, so callers never need to guard instrumentation
// sites.
type Metrics struct {
	linkFailures    *prometheus.CounterVec
	sourcesAttached prometheus.Gauge
	transitions     *prometheus.HistogramVec
	busMessages     *prometheus.CounterVec
}

// NewMetrics creates pipeline metrics and registers them with the
// registry.
func NewMetrics(registry metric.MetricsRegistrar) (*Metrics, error) {
	m := &Metrics{
		linkFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mce_link_failures_total",
			Help: "Link failures by classified reason",
		}, []string{"reason"}),
		sourcesAttached: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "mce_sources_attached",
			Help: "Number of sources durably linked to the stream muxer",
		}),
		transitions: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "mce_state_transition_seconds",
			Help:    "Pipeline state transition duration by target state",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		}, []string{"target"}),
		busMessages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mce_bus_messages_total",
			Help: "Bus messages observed by kind",
		}, []string{"kind"}),
	}

	if err := registry.RegisterCounterVec(metricsService, "link_failures", m.linkFailures); err != nil {
		return nil, errors.WrapInvalid(err, "Metrics", "NewMetrics", "register link failures")
	}
	if err := registry.RegisterGauge(metricsService, "sources_attached", m.sourcesAttached); err != nil {
		return nil, errors.WrapInvalid(err, "Metrics", "NewMetrics", "register sources gauge")
	}
	if err := registry.RegisterHistogramVec(metricsService, "transitions", m.transitions); err != nil {
		return nil, errors.WrapInvalid(err, "Metrics", "NewMetrics", "register transition histogram")
	}
	if err := registry.RegisterCounterVec(metricsService, "bus_messages", m.busMessages); err != nil {
		return nil, errors.WrapInvalid(err, "Metrics", "NewMetrics", "register bus message counter")
	}

	return m, nil
}

func (m *Metrics) recordLinkFailure(reason errors.LinkReason) {
	if m == nil {
		return
	}
	m.linkFailures.WithLabelValues(reason.String()).Inc()
}

func (m *Metrics) setSourcesAttached(n int64) {
	if m == nil {
		return
	}
	m.sourcesAttached.Set(float64(n))
}

func (m *Metrics) observeTransition(target string, d time.Duration) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(target).Observe(d.Seconds())
}

func (m *Metrics) recordBusMessage(kind string) {
	if m == nil {
		return
	}
	m.busMessages.WithLabelValues(kind).Inc()
}
