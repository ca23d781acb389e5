package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	assetForge = "asset_forge"

	jobsSubmittedTotal          = "jobs_submitted_total"
	jobsCompletedTotal          = "jobs_completed_total"
	jobsFailedTotal             = "jobs_failed_total"
	materializationAttemptsName = "materialization_attempts_total"
	sweepDurationName           = "sweep_duration_seconds"

	jobKindLabel    = "kind"
	failureTagLabel = "tag"
	attemptOutcome  = "outcome"
)

var jobKindLabels = []string{jobKindLabel}

/**
* Metrics definition
**/
var jobsSubmittedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: assetForge,
		Name:      jobsSubmittedTotal,
		Help:      "number of jobs submitted to the generation service",
	},
	jobKindLabels,
)

var jobsCompletedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: assetForge,
		Name:      jobsCompletedTotal,
		Help:      "number of jobs completed and materialized",
	},
	jobKindLabels,
)

var jobsFailedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: assetForge,
		Name:      jobsFailedTotal,
		Help:      "number of jobs that reached terminal failure",
	},
	[]string{jobKindLabel, failureTagLabel},
)

var materializationAttemptsMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: assetForge,
		Name:      materializationAttemptsName,
		Help:      "number of materialization attempts by outcome",
	},
	[]string{attemptOutcome},
)

var sweepDurationMetric = prometheus.NewHistogram(
	prometheus.HistogramOpts{
		Subsystem: assetForge,
		Name:      sweepDurationName,
		Help:      "duration of a full poll sweep over active jobs",
		Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60},
	},
)

func IncreaseJobsSubmittedMetric(kind string) {
	jobsSubmittedTotalMetric.With(prometheus.Labels{jobKindLabel: kind}).Inc()
}

func IncreaseJobsCompletedMetric(kind string) {
	jobsCompletedTotalMetric.With(prometheus.Labels{jobKindLabel: kind}).Inc()
}

func IncreaseJobsFailedMetric(kind, tag string) {
	jobsFailedTotalMetric.With(prometheus.Labels{jobKindLabel: kind, failureTagLabel: tag}).Inc()
}

func IncreaseMaterializationAttemptsMetric(outcome string) {
	materializationAttemptsMetric.With(prometheus.Labels{attemptOutcome: outcome}).Inc()
}

func ObserveSweepDurationMetric(seconds float64) {
	sweepDurationMetric.Observe(seconds)
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(jobsSubmittedTotalMetric)
	prometheus.MustRegister(jobsCompletedTotalMetric)
	prometheus.MustRegister(jobsFailedTotalMetric)
	prometheus.MustRegister(materializationAttemptsMetric)
	prometheus.MustRegister(sweepDurationMetric)
}
