package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics contains all Prometheus metrics for the session service. It
// implements the session handler's Observer interface.
type Metrics struct {
	TurnsTotal              prometheus.Counter
	DegradedReplies         prometheus.Counter
	TurnsSynthesized        prometheus.Counter
	TurnsWithoutAudio       prometheus.Counter
	TranscriptionsDiscarded prometheus.Counter
	ActiveSessions          prometheus.Gauge
}

// NewMetrics creates and registers all metrics on the default registry.
func NewMetrics() *Metrics {
	return newMetrics(promauto.With(prometheus.DefaultRegisterer))
}

// NewMetricsWith registers on a caller-supplied registry, for tests.
func NewMetricsWith(reg prometheus.Registerer) *Metrics {
	return newMetrics(promauto.With(reg))
}

func newMetrics(factory promauto.Factory) *Metrics {
	return &Metrics{
		TurnsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "alignercoach_turns_total",
			Help: "Total number of completed conversation turns",
		}),
		DegradedReplies: factory.NewCounter(prometheus.CounterOpts{
			Name: "alignercoach_degraded_replies_total",
			Help: "Total number of turns whose reply was an error or not-configured message",
		}),
		TurnsSynthesized: factory.NewCounter(prometheus.CounterOpts{
			Name: "alignercoach_turns_synthesized_total",
			Help: "Total number of turns that produced reply audio",
		}),
		TurnsWithoutAudio: factory.NewCounter(prometheus.CounterOpts{
			Name: "alignercoach_turns_without_audio_total",
			Help: "Total number of turns recorded without reply audio",
		}),
		TranscriptionsDiscarded: factory.NewCounter(prometheus.CounterOpts{
			Name: "alignercoach_transcriptions_discarded_total",
			Help: "Total number of voice clips that yielded no usable transcript",
		}),
		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "alignercoach_active_sessions",
			Help: "Current number of live sessions",
		}),
	}
}

// TurnCompleted implements session.Observer.
func (m *Metrics) TurnCompleted(degraded, synthesized bool) {
	m.TurnsTotal.Inc()
	if degraded {
		m.DegradedReplies.Inc()
	}
	if synthesized {
		m.TurnsSynthesized.Inc()
	} else {
		m.TurnsWithoutAudio.Inc()
	}
}

// TranscriptionDiscarded implements session.Observer.
func (m *Metrics) TranscriptionDiscarded() {
	m.TranscriptionsDiscarded.Inc()
}
