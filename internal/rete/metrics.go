package rete

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Prometheus Metrics for the match network
// =============================================================================

var (
	// activationsTotal counts join node activations.
	// Labels: side (left, right)
	activationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rete",
		Subsystem: "network",
		Name:      "activations_total",
		Help:      "Total join node activations by input side",
	}, []string{"side"})

	// joinTestsTotal counts token/WME consistency checks.
	joinTestsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "rete",
		Subsystem: "network",
		Name:      "join_tests_total",
		Help:      "Total join tests performed",
	})

	// linkEventsTotal counts unlink and relink transitions.
	// Labels: event (left_unlink, right_unlink, relink_alpha, relink_beta)
	linkEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rete",
		Subsystem: "network",
		Name:      "link_events_total",
		Help:      "Total join node link state transitions",
	}, []string{"event"})

	// matchesTotal counts terminal callbacks.
	// Labels: kind (activate, retract)
	matchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "rete",
		Subsystem: "network",
		Name:      "matches_total",
		Help:      "Total production matches delivered to consumers",
	}, []string{"kind"})
)
