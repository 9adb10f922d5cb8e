// Package metrics exports form lifecycle events as Prometheus metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/go-drift/form/pkg/form"
)

// Recorder implements form.Observer on top of Prometheus collectors.
//
// Every series carries a "form" label with the form id, so controllers
// observed by a Recorder should use stable ids rather than the generated
// default.
type Recorder struct {
	valueChanges  *prometheus.CounterVec
	valueEntries  *prometheus.CounterVec
	errorSets     *prometheus.CounterVec
	errorEntries  *prometheus.CounterVec
	submits       *prometheus.CounterVec
	submitSeconds *prometheus.HistogramVec
	resets        *prometheus.CounterVec
}

var _ form.Observer = (*Recorder)(nil)

// NewRecorder creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is useful in tests.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	f := promauto.With(reg)
	return &Recorder{
		valueChanges: f.NewCounterVec(prometheus.CounterOpts{
			Name: "form_value_changes_total",
			Help: "SetValues calls and field edits applied, by form",
		}, []string{"form"}),
		valueEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "form_value_entries_total",
			Help: "Value entries applied, by form",
		}, []string{"form"}),
		errorSets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "form_error_sets_total",
			Help: "SetErrors calls and validator rejections, by form",
		}, []string{"form"}),
		errorEntries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "form_error_entries_total",
			Help: "Error entries applied, by form",
		}, []string{"form"}),
		submits: f.NewCounterVec(prometheus.CounterOpts{
			Name: "form_submits_total",
			Help: "Submit calls by form and outcome",
		}, []string{"form", "outcome"}),
		submitSeconds: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "form_submit_duration_seconds",
			Help:    "Submit duration in seconds, validation included",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14), // 0.5ms to ~4s
		}, []string{"form"}),
		resets: f.NewCounterVec(prometheus.CounterOpts{
			Name: "form_resets_total",
			Help: "Reset calls by form",
		}, []string{"form"}),
	}
}

func (r *Recorder) ValuesChanged(formID string, entries int) {
	r.valueChanges.WithLabelValues(formID).Inc()
	r.valueEntries.WithLabelValues(formID).Add(float64(entries))
}

func (r *Recorder) ErrorsSet(formID string, entries int) {
	r.errorSets.WithLabelValues(formID).Inc()
	r.errorEntries.WithLabelValues(formID).Add(float64(entries))
}

func (r *Recorder) Submitted(formID string, outcome form.Outcome, elapsed time.Duration) {
	r.submits.WithLabelValues(formID, outcome.String()).Inc()
	r.submitSeconds.WithLabelValues(formID).Observe(elapsed.Seconds())
}

func (r *Recorder) Reset(formID string) {
	r.resets.WithLabelValues(formID).Inc()
}
