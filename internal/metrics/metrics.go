// Package metrics exposes Prometheus collectors for the session engine, the
// ledger and the audit job. A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "skillcert"

// Metrics groups every collector the services report to.
type Metrics struct {
	sessionsStarted prometheus.Counter
	sessionsEnded   *prometheus.CounterVec
	testResults     *prometheus.CounterVec
	ledgerEvents    *prometheus.CounterVec
	auditDebuffs    prometheus.Counter
	auditFailures   prometheus.Counter
	auditDuration   prometheus.Histogram
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_started_total",
			Help:      "Test sessions created.",
		}),
		sessionsEnded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sessions_ended_total",
			Help:      "Test sessions finalized, by what ended them.",
		}, []string{"trigger"}), // explicit, timer, lazy, sweep
		testResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "test_results_total",
			Help:      "Persisted test results by outcome.",
		}, []string{"outcome"}), // pass, fail
		ledgerEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ledger_events_total",
			Help:      "Confirmation events appended, by type.",
		}, []string{"type"}),
		auditDebuffs: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "debuffs_total",
			Help:      "Debuff events appended by the audit job.",
		}),
		auditFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "failures_total",
			Help:      "Pairs the audit job failed to process.",
		}),
		auditDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "audit",
			Name:      "duration_seconds",
			Help:      "Wall time of one audit pass.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
	}
	reg.MustRegister(
		m.sessionsStarted,
		m.sessionsEnded,
		m.testResults,
		m.ledgerEvents,
		m.auditDebuffs,
		m.auditFailures,
		m.auditDuration,
	)
	return m
}

func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.sessionsStarted.Inc()
}

func (m *Metrics) SessionEnded(trigger string) {
	if m == nil {
		return
	}
	m.sessionsEnded.WithLabelValues(trigger).Inc()
}

func (m *Metrics) TestResult(passed bool) {
	if m == nil {
		return
	}
	outcome := "fail"
	if passed {
		outcome = "pass"
	}
	m.testResults.WithLabelValues(outcome).Inc()
}

func (m *Metrics) LedgerEvent(eventType string) {
	if m == nil {
		return
	}
	m.ledgerEvents.WithLabelValues(eventType).Inc()
}

// AuditRun records one finished audit pass.
func (m *Metrics) AuditRun(debuffs, failures int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.auditDebuffs.Add(float64(debuffs))
	m.auditFailures.Add(float64(failures))
	m.auditDuration.Observe(elapsed.Seconds())
}
