// Package metrics defines the grading pipeline's Prometheus collectors.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Submission outcomes used as the "outcome" label.
const (
	OutcomeOK            = "ok"
	OutcomeNoKey         = "no_key"
	OutcomeUnsupported   = "unsupported_format"
	OutcomeExtraction    = "extraction_error"
	OutcomeEncoder       = "encoder_error"
	OutcomeTimeout       = "timeout"
	OutcomeUnknownUser   = "unknown_user"
	OutcomePersistence   = "persistence_error"
	OutcomeInvalidUpload = "invalid_upload"
	OutcomeInternal      = "internal_error"
)

// Grading holds the domain metrics of the grading pipeline.
type Grading struct {
	submissions      *prometheus.CounterVec
	answerKeyUploads *prometheus.CounterVec
	scores           prometheus.Histogram
	encodeDuration   prometheus.Histogram
}

// NewGrading creates the collectors and registers them on reg.
func NewGrading(reg prometheus.Registerer) (*Grading, error) {
	m := &Grading{
		submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grader_submissions_total",
				Help: "Total number of graded submissions by outcome.",
			},
			[]string{"outcome"},
		),
		answerKeyUploads: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "grader_answer_key_uploads_total",
				Help: "Total number of answer key uploads by outcome.",
			},
			[]string{"outcome"},
		),
		scores: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grader_similarity_score",
			Help:    "Distribution of similarity scores of recorded submissions.",
			Buckets: prometheus.LinearBuckets(-1, 0.2, 11),
		}),
		encodeDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "grader_encode_duration_seconds",
			Help:    "Latency of sentence encoder calls.",
			Buckets: prometheus.DefBuckets,
		}),
	}

	for _, c := range []prometheus.Collector{m.submissions, m.answerKeyUploads, m.scores, m.encodeDuration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// ObserveSubmission counts one submission with its outcome.
func (m *Grading) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissions.WithLabelValues(outcome).Inc()
}

// ObserveAnswerKey counts one answer key upload with its outcome.
func (m *Grading) ObserveAnswerKey(outcome string) {
	if m == nil {
		return
	}
	m.answerKeyUploads.WithLabelValues(outcome).Inc()
}

// ObserveScore records a persisted similarity score.
func (m *Grading) ObserveScore(score float64) {
	if m == nil {
		return
	}
	m.scores.Observe(score)
}

// EncodeObserver is handed to the scorer to time encoder calls.
func (m *Grading) EncodeObserver() prometheus.Observer {
	if m == nil {
		return nil
	}
	return m.encodeDuration
}
