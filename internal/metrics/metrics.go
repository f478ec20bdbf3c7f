package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "riskgate"

// Recorder exposes Prometheus metrics for policy evaluation and risk assessment.
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	assessments         *prometheus.CounterVec
	assessmentScore     prometheus.Histogram
	assessmentErrors    *prometheus.CounterVec
	stageDuration       *prometheus.HistogramVec
	violations          *prometheus.CounterVec
	autoBlocks          prometheus.Counter
	policyFetchFailures *prometheus.CounterVec
	ruleErrors          *prometheus.CounterVec
	policyCacheLookups  *prometheus.CounterVec
}

// NewRecorder registers the collectors with reg. A nil reg uses the default registerer.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Recorder{
		assessments: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assessment",
				Name:      "total",
				Help:      "Total number of risk assessments by level",
			},
			[]string{"level"},
		),
		assessmentScore: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "assessment",
				Name:      "score",
				Help:      "Distribution of composite risk scores",
				Buckets:   prometheus.LinearBuckets(0, 10, 11), // 0 to 100
			},
		),
		assessmentErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "assessment",
				Name:      "errors_total",
				Help:      "Assessment requests rejected before scoring",
			},
			[]string{"reason"},
		),
		stageDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: "assessment",
				Name:      "stage_duration_seconds",
				Help:      "Duration of each assessment stage",
				Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 15), // 100μs to ~1.6s
			},
			[]string{"stage"},
		),
		violations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "violations_total",
				Help:      "Total policy violations by rule category",
			},
			[]string{"category"},
		),
		autoBlocks: factory.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "auto_blocks_total",
				Help:      "Total violations raised by auto-block rules",
			},
		),
		policyFetchFailures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "fetch_failures_total",
				Help:      "Active policy fetches that failed and degraded to an empty evaluation",
			},
			[]string{"organization"},
		),
		ruleErrors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy",
				Name:      "rule_errors_total",
				Help:      "Rules skipped because they were malformed or failed to evaluate",
			},
			[]string{"policy"},
		),
		policyCacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: "policy_cache",
				Name:      "lookups_total",
				Help:      "Policy cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

// PolicyFetchFailed records a degraded evaluation
func (r *Recorder) PolicyFetchFailed(organizationID string) {
	if r == nil {
		return
	}
	r.policyFetchFailures.WithLabelValues(organizationID).Inc()
}

// RuleFailed records a skipped rule
func (r *Recorder) RuleFailed(policyID string) {
	if r == nil {
		return
	}
	r.ruleErrors.WithLabelValues(policyID).Inc()
}

// ViolationRecorded records one violation
func (r *Recorder) ViolationRecorded(category string, autoBlock bool) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(category).Inc()
	if autoBlock {
		r.autoBlocks.Inc()
	}
}

// AssessmentCompleted records the outcome of a scored assessment
func (r *Recorder) AssessmentCompleted(level string, score int) {
	if r == nil {
		return
	}
	r.assessments.WithLabelValues(level).Inc()
	r.assessmentScore.Observe(float64(score))
}

// AssessmentRejected records a request that never reached scoring
func (r *Recorder) AssessmentRejected(reason string) {
	if r == nil {
		return
	}
	r.assessmentErrors.WithLabelValues(reason).Inc()
}

// ObserveStage records how long an assessment stage took
func (r *Recorder) ObserveStage(stage string, d time.Duration) {
	if r == nil {
		return
	}
	r.stageDuration.WithLabelValues(stage).Observe(d.Seconds())
}

// CacheLookup records a policy cache hit, miss or error
func (r *Recorder) CacheLookup(result string) {
	if r == nil {
		return
	}
	r.policyCacheLookups.WithLabelValues(result).Inc()
}
