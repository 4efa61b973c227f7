// Package metrics provides Prometheus metrics for the automation engine.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RuleEvaluationsTotal tracks rule evaluations by outcome (matched, unmatched, skipped, error)
	RuleEvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "rules",
			Name:      "evaluations_total",
			Help:      "Total number of rule evaluations by outcome",
		},
		[]string{"trigger", "outcome"},
	)

	// ActionsExecutedTotal tracks actions applied to execution states
	ActionsExecutedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "actions",
			Name:      "executed_total",
			Help:      "Total number of actions executed by type",
		},
		[]string{"type"},
	)

	// EffectsDispatchedTotal tracks side effects handed to collaborators
	EffectsDispatchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "dispatch",
			Name:      "effects_total",
			Help:      "Total number of dispatched effects by kind and status",
		},
		[]string{"kind", "status"},
	)

	// EffectDispatchDuration tracks how long collaborators take per effect
	EffectDispatchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "automation",
			Subsystem: "dispatch",
			Name:      "effect_duration_seconds",
			Help:      "Duration of effect dispatch in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"kind"},
	)

	// GraphRunsTotal tracks step-graph runs by outcome (waiting, completed, stopped, active, runaway, error)
	GraphRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "campaigns",
			Name:      "runs_total",
			Help:      "Total number of campaign graph runs by outcome",
		},
		[]string{"outcome"},
	)

	// GraphStepsProcessed tracks steps processed per run
	GraphStepsProcessed = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "automation",
			Subsystem: "campaigns",
			Name:      "steps_per_run",
			Help:      "Number of steps processed per campaign run",
			Buckets:   []float64{0, 1, 2, 3, 5, 10, 20, 50},
		},
	)

	// SchedulerTickDuration tracks scheduler tick duration in seconds
	SchedulerTickDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "automation",
			Subsystem: "scheduler",
			Name:      "tick_duration_seconds",
			Help:      "Duration of scheduler ticks in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
	)

	// SchedulerResumedTotal tracks waiting states and deferred batches resumed
	SchedulerResumedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "scheduler",
			Name:      "resumed_total",
			Help:      "Total number of resumed executions by source and status",
		},
		[]string{"source", "status"},
	)

	// TriggersReceivedTotal tracks inbound triggers by transport and status
	TriggersReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "triggers",
			Name:      "received_total",
			Help:      "Total number of received triggers by transport and status",
		},
		[]string{"transport", "status"},
	)

	// LockContentionTotal tracks recipient lock acquisitions that failed
	LockContentionTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "automation",
			Subsystem: "lock",
			Name:      "contention_total",
			Help:      "Total number of recipient lock acquisitions that were refused",
		},
	)
)
