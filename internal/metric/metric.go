// Package metric holds the Prometheus collectors exported on /metrics.
package metric

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Import outcomes used as the "result" label.
const (
	ResultOK    = "ok"
	ResultError = "error"
)

// Metrics groups the application's collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	projectionSeconds prometheus.Histogram
	occurrences       prometheus.Counter
	conflictChecks    *prometheus.CounterVec
	blockedSaves      prometheus.Counter
	importRuns        *prometheus.CounterVec
	importedEvents    *prometheus.GaugeVec
}

// New registers the collectors on reg. Pass prometheus.DefaultRegisterer
// in production and a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		projectionSeconds: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "eventcal_projection_seconds",
			Help:    "Time spent expanding and filtering a month view",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}),
		occurrences: f.NewCounter(prometheus.CounterOpts{
			Name: "eventcal_projected_events_total",
			Help: "Events and occurrences returned by month views",
		}),
		conflictChecks: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventcal_conflict_checks_total",
			Help: "Conflict checks by whether any conflict was found",
		}, []string{"found"}),
		blockedSaves: f.NewCounter(prometheus.CounterOpts{
			Name: "eventcal_blocked_saves_total",
			Help: "Saves refused by the block conflict policy",
		}),
		importRuns: f.NewCounterVec(prometheus.CounterOpts{
			Name: "eventcal_import_runs_total",
			Help: "Subscription imports by source and result",
		}, []string{"source", "result"}),
		importedEvents: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "eventcal_imported_events",
			Help: "Events held by the last successful import of a source",
		}, []string{"source"}),
	}
}

// ObserveProjection records one month view.
func (m *Metrics) ObserveProjection(d time.Duration, events int) {
	if m == nil {
		return
	}
	m.projectionSeconds.Observe(d.Seconds())
	m.occurrences.Add(float64(events))
}

// ConflictCheck records one conflict check and how many conflicts it found.
func (m *Metrics) ConflictCheck(found int) {
	if m == nil {
		return
	}
	label := "false"
	if found > 0 {
		label = "true"
	}
	m.conflictChecks.WithLabelValues(label).Inc()
}

// BlockedSave records a save refused by the conflict policy.
func (m *Metrics) BlockedSave() {
	if m == nil {
		return
	}
	m.blockedSaves.Inc()
}

// ImportRun records one subscription import. events is only used when the
// run succeeded.
func (m *Metrics) ImportRun(source string, err error, events int) {
	if m == nil {
		return
	}
	if err != nil {
		m.importRuns.WithLabelValues(source, ResultError).Inc()
		return
	}
	m.importRuns.WithLabelValues(source, ResultOK).Inc()
	m.importedEvents.WithLabelValues(source).Set(float64(events))
}
