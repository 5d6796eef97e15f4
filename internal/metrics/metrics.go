// Package metrics exposes Prometheus collectors for the synchronization
// subsystem: remote mirror call outcomes and batch sweep results.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sync groups the collectors recorded by the reconciler.  A nil *Sync is
// valid and records nothing, which keeps call sites free of nil checks.
type Sync struct {
	remoteCalls   *prometheus.CounterVec
	syncStates    *prometheus.CounterVec
	sweepRecords  *prometheus.CounterVec
	sweepDuration prometheus.Histogram
	inProgress    prometheus.Gauge
}

// New creates the collectors with the given name prefix and registers
// them on reg.  Passing prometheus.DefaultRegisterer exposes them on the
// default /metrics handler.
func New(prefix string, reg prometheus.Registerer) *Sync {
	m := &Sync{
		// remoteCalls counts mirror operations by operation and result (ok/error)
		remoteCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_remote_calls_total", prefix),
				Help: "Remote mirror calls by operation and result",
			},
			[]string{"operation", "result"},
		),
		// syncStates counts the sync state each single-record mutation ended in
		syncStates: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_mutation_sync_state_total", prefix),
				Help: "Resulting sync state of single-record mutations",
			},
			[]string{"mutation", "state"},
		),
		sweepRecords: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: fmt.Sprintf("%s_sweep_records_total", prefix),
				Help: "Records processed by batch sweeps by kind and result",
			},
			[]string{"kind", "result"},
		),
		sweepDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    fmt.Sprintf("%s_sweep_duration_seconds", prefix),
			Help:    "Duration of batch sweeps",
			Buckets: prometheus.DefBuckets,
		}),
		inProgress: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: fmt.Sprintf("%s_sweeps_in_progress", prefix),
			Help: "Batch sweeps currently running",
		}),
	}
	reg.MustRegister(m.remoteCalls, m.syncStates, m.sweepRecords, m.sweepDuration, m.inProgress)
	return m
}

// RemoteCall records the outcome of one mirror operation.
func (m *Sync) RemoteCall(operation string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.remoteCalls.WithLabelValues(operation, result).Inc()
}

// MutationState records the sync state a mutation left its record in.
func (m *Sync) MutationState(mutation, state string) {
	if m == nil {
		return
	}
	m.syncStates.WithLabelValues(mutation, state).Inc()
}

// SweepRecord records one record handled by a sweep.
func (m *Sync) SweepRecord(kind string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.sweepRecords.WithLabelValues(kind, result).Inc()
}

// StartSweep marks a sweep as running and returns a func that ends it
// and observes its duration.
func (m *Sync) StartSweep() func() {
	if m == nil {
		return func() {}
	}
	start := time.Now()
	m.inProgress.Inc()
	return func() {
		m.inProgress.Dec()
		m.sweepDuration.Observe(time.Since(start).Seconds())
	}
}
