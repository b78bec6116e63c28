package container

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus collectors of one injector. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	Resolutions   *prometheus.CounterVec
	Constructions *prometheus.CounterVec
	Duration      prometheus.Histogram
	Singletons    prometheus.Gauge
}

// NewMetrics creates unregistered collectors under namespace.
func NewMetrics(namespace string) *Metrics {
	return &Metrics{
		Resolutions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "container",
				Name:      "resolutions_total",
				Help:      "Root resolutions by contract and outcome.",
			},
			[]string{"contract", "outcome"},
		),
		Constructions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "container",
				Name:      "constructions_total",
				Help:      "Instances constructed by provider code, by scope.",
			},
			[]string{"scope"},
		),
		Duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "container",
				Name:      "resolution_duration_seconds",
				Help:      "Time taken by root resolutions.",
				Buckets:   prometheus.DefBuckets,
			},
		),
		Singletons: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: "container",
				Name:      "singletons",
				Help:      "Singleton instances currently alive.",
			},
		),
	}
}

// Collectors returns every collector, for custom registration.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{m.Resolutions, m.Constructions, m.Duration, m.Singletons}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

func (m *Metrics) observeResolve(k Key, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Resolutions.WithLabelValues(k.String(), Kind(err)).Inc()
	m.Duration.Observe(elapsed.Seconds())
}

func (m *Metrics) observeConstruct(s Scope) {
	if m == nil {
		return
	}
	m.Constructions.WithLabelValues(s.String()).Inc()
	if s == Singleton {
		m.Singletons.Inc()
	}
}

func (m *Metrics) resetSingletons() {
	if m == nil {
		return
	}
	m.Singletons.Set(0)
}
