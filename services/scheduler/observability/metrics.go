// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package observability provides metrics and instrumentation for the scheduler.
//
// # Description
//
// This package implements Prometheus metrics for monitoring dependency
// mutations and schedule analysis. Metrics include:
//   - Mutation counters (by operation and outcome)
//   - Analysis latency histograms (graph build, critical path)
//   - Cascade depth and updated-milestone counters
//   - Active analysis gauge
//
// # Integration
//
// Metrics are exposed via /metrics endpoint. Use with Prometheus + Grafana
// for dashboards and alerting.
//
// # Thread Safety
//
// All metric operations are thread-safe via Prometheus's internal locking.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// =============================================================================
// Metric Definitions
// =============================================================================

// Namespace for all metrics
const metricsNamespace = "planward"

// Subsystem for scheduling metrics
const schedulerSubsystem = "scheduler"

// SchedulerMetrics holds all Prometheus metrics for scheduling operations.
//
// # Description
//
// Provides counters, histograms, and gauges for monitoring mutation and
// analysis performance. Initialize once at startup via InitMetrics().
//
// # Thread Safety
//
// All operations are thread-safe.
type SchedulerMetrics struct {
	// MutationsTotal counts dependency and milestone mutations.
	// Labels: operation (add_dependency, remove_dependency, update_dates,
	// cascade), outcome (applied, rejected_cycle, rejected_self,
	// rejected_not_found, error)
	MutationsTotal *prometheus.CounterVec

	// AnalysisDurationSeconds measures schedule analysis latency.
	// Labels: analysis (graph, critical_path, suggestions)
	AnalysisDurationSeconds *prometheus.HistogramVec

	// CascadeUpdatedMilestones measures how many milestones each cascade
	// rescheduled.
	CascadeUpdatedMilestones prometheus.Histogram

	// ActiveAnalyses tracks analysis requests currently in flight.
	ActiveAnalyses prometheus.Gauge

	// ErrorsTotal counts handler errors by endpoint and error code.
	// Labels: endpoint, error_code (validation, cycle, not_found,
	// graph_integrity, internal)
	ErrorsTotal *prometheus.CounterVec
}

// DefaultMetrics is the singleton instance of SchedulerMetrics.
// Initialized by InitMetrics().
var DefaultMetrics *SchedulerMetrics

// InitMetrics initializes the default metrics instance.
//
// # Description
//
// Creates and registers all Prometheus metrics. Should be called once
// at application startup, after the Prometheus registry is available.
//
// # Outputs
//
//   - *SchedulerMetrics: The initialized metrics instance.
//
// # Limitations
//
//   - Panics if called twice (duplicate registration).
func InitMetrics() *SchedulerMetrics {
	DefaultMetrics = &SchedulerMetrics{
		MutationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "mutations_total",
				Help:      "Total graph mutations by operation and outcome",
			},
			[]string{"operation", "outcome"},
		),

		AnalysisDurationSeconds: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "analysis_duration_seconds",
				Help:      "Schedule analysis latency in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
			},
			[]string{"analysis"},
		),

		CascadeUpdatedMilestones: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "cascade_updated_milestones",
				Help:      "Milestones rescheduled per cascade",
				Buckets:   []float64{0, 1, 2, 5, 10, 25, 50, 100},
			},
		),

		ActiveAnalyses: promauto.NewGauge(
			prometheus.GaugeOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "active_analyses",
				Help:      "Analysis requests currently in flight",
			},
		),

		ErrorsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: schedulerSubsystem,
				Name:      "errors_total",
				Help:      "Total handler errors by endpoint and error code",
			},
			[]string{"endpoint", "error_code"},
		),
	}

	return DefaultMetrics
}

// =============================================================================
// Label Values
// =============================================================================

// Operation represents a mutation operation for metrics labeling.
type Operation string

const (
	// OperationAddDependency is a dependency insertion.
	OperationAddDependency Operation = "add_dependency"

	// OperationRemoveDependency is a dependency removal.
	OperationRemoveDependency Operation = "remove_dependency"

	// OperationUpdateDates is a manual milestone date change.
	OperationUpdateDates Operation = "update_dates"

	// OperationCascade is a cascading reschedule.
	OperationCascade Operation = "cascade"
)

// Outcome represents a mutation result for metrics labeling.
type Outcome string

const (
	// OutcomeApplied indicates the mutation was persisted.
	OutcomeApplied Outcome = "applied"

	// OutcomeRejectedCycle indicates the cycle guard refused the edge.
	OutcomeRejectedCycle Outcome = "rejected_cycle"

	// OutcomeRejectedSelf indicates a self-referencing edge was refused.
	OutcomeRejectedSelf Outcome = "rejected_self"

	// OutcomeRejectedNotFound indicates an unknown milestone endpoint.
	OutcomeRejectedNotFound Outcome = "rejected_not_found"

	// OutcomeError indicates a storage or internal failure.
	OutcomeError Outcome = "error"
)

// ErrorCode represents a categorized error type for metrics.
type ErrorCode string

const (
	// ErrorCodeValidation indicates request validation failure.
	ErrorCodeValidation ErrorCode = "validation"

	// ErrorCodeCycle indicates a rejected circular dependency.
	ErrorCodeCycle ErrorCode = "cycle"

	// ErrorCodeNotFound indicates a missing milestone or dependency.
	ErrorCodeNotFound ErrorCode = "not_found"

	// ErrorCodeGraphIntegrity indicates stored state violated the DAG
	// invariant.
	ErrorCodeGraphIntegrity ErrorCode = "graph_integrity"

	// ErrorCodeInternal indicates internal server error.
	ErrorCodeInternal ErrorCode = "internal"
)

// =============================================================================
// Helper Methods
// =============================================================================

// RecordMutation records the outcome of a graph mutation.
func (m *SchedulerMetrics) RecordMutation(op Operation, outcome Outcome) {
	m.MutationsTotal.WithLabelValues(string(op), string(outcome)).Inc()
}

// RecordAnalysis records the latency of one analysis pass.
func (m *SchedulerMetrics) RecordAnalysis(analysis string, seconds float64) {
	m.AnalysisDurationSeconds.WithLabelValues(analysis).Observe(seconds)
}

// RecordCascade records how many milestones a cascade rescheduled.
func (m *SchedulerMetrics) RecordCascade(updated int) {
	m.CascadeUpdatedMilestones.Observe(float64(updated))
}

// AnalysisStarted increments the active analyses gauge.
func (m *SchedulerMetrics) AnalysisStarted() {
	m.ActiveAnalyses.Inc()
}

// AnalysisEnded decrements the active analyses gauge.
func (m *SchedulerMetrics) AnalysisEnded() {
	m.ActiveAnalyses.Dec()
}

// RecordError records a handler error.
func (m *SchedulerMetrics) RecordError(endpoint string, code ErrorCode) {
	m.ErrorsTotal.WithLabelValues(endpoint, string(code)).Inc()
}
