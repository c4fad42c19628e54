package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "passindexer"

// Metrics of the event pipeline; a nil *Metrics is a valid no-op recorder
type Metrics struct {
	EventsProcessed *prometheus.CounterVec   // by event type
	EventsSkipped   *prometheus.CounterVec   // by reason: duplicate|replay
	EventErrors     *prometheus.CounterVec   // by event type
	HandleDuration  *prometheus.HistogramVec // by event type
	LastBlock       prometheus.Gauge
}

func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		EventsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_processed_total",
			Help:      "Events folded into the entity store.",
		}, []string{"type"}),
		EventsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_skipped_total",
			Help:      "Events dropped before reaching the aggregators.",
		}, []string{"reason"}),
		EventErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "event_errors_total",
			Help:      "Events whose handler failed.",
		}, []string{"type"}),
		HandleDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "event_handle_seconds",
			Help:      "Time spent applying one event.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"type"}),
		LastBlock: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_processed_block",
			Help:      "Block number of the last applied event.",
		}),
	}

	if reg != nil {
		reg.MustRegister(m.EventsProcessed, m.EventsSkipped, m.EventErrors, m.HandleDuration, m.LastBlock)
	}

	return m
}

func (m *Metrics) Processed(eventType string, took time.Duration) {
	if m == nil {
		return
	}
	m.EventsProcessed.WithLabelValues(eventType).Inc()
	m.HandleDuration.WithLabelValues(eventType).Observe(took.Seconds())
}

func (m *Metrics) Skipped(reason string) {
	if m == nil {
		return
	}
	m.EventsSkipped.WithLabelValues(reason).Inc()
}

func (m *Metrics) Failed(eventType string) {
	if m == nil {
		return
	}
	m.EventErrors.WithLabelValues(eventType).Inc()
}

func (m *Metrics) Block(n uint64) {
	if m == nil {
		return
	}
	m.LastBlock.Set(float64(n))
}

func Handler(gatherer prometheus.Gatherer) http.Handler {
	if gatherer == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
