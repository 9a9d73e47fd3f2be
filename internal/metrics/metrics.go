// Package metrics defines the engine's Prometheus instrumentation.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the counters updated by the dialogue engine.
type Metrics struct {
	// Turns counts engine turns by outcome: "reply", "silence", "error".
	Turns *prometheus.CounterVec

	// Transitions counts how destinations were chosen: "keyword", "default".
	Transitions *prometheus.CounterVec

	// TangentsDelivered counts tangent texts handed to users.
	TangentsDelivered prometheus.Counter

	// AutofollowPushes counts out-of-band deliveries made by the
	// autofollow loop.
	AutofollowPushes prometheus.Counter

	// ConfigErrors counts turns that hit a dangling exchange reference.
	ConfigErrors prometheus.Counter
}

// New creates the metric set and registers it with reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Turns: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_turns_total",
				Help: "Dialogue turns processed, by outcome.",
			},
			[]string{"outcome"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "parley_transitions_total",
				Help: "Exchange transitions, by how the destination was chosen.",
			},
			[]string{"via"},
		),
		TangentsDelivered: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_tangents_delivered_total",
			Help: "Tangent texts delivered to users.",
		}),
		AutofollowPushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_autofollow_pushes_total",
			Help: "Out-of-band messages pushed by the autofollow loop.",
		}),
		ConfigErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "parley_config_errors_total",
			Help: "Turns that referenced a nonexistent exchange.",
		}),
	}

	reg.MustRegister(
		m.Turns,
		m.Transitions,
		m.TangentsDelivered,
		m.AutofollowPushes,
		m.ConfigErrors,
	)
	return m
}

// NewNop creates an unregistered metric set for tests and embedders that
// do not scrape.
func NewNop() *Metrics {
	return New(prometheus.NewRegistry())
}
