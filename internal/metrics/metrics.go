// Package metrics exposes batch processing counters to Prometheus.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
)

// Collector records every processed batch. It implements credits.Observer.
type Collector struct {
	BatchesTotal      prometheus.Counter
	UsersTotal        prometheus.Counter
	ChangedTotal      prometheus.Counter
	ExhaustedTotal    prometheus.Counter
	RemediationsTotal *prometheus.CounterVec
	TeardownFailures  prometheus.Counter
	ThresholdAlerts   *prometheus.CounterVec
	CostRegressions   prometheus.Counter
	BatchDuration     prometheus.Histogram
	BatchErrorsTotal  *prometheus.CounterVec
}

// New registers the collector's metrics with reg.
func New(reg prometheus.Registerer) *Collector {
	f := promauto.With(reg)
	return &Collector{
		BatchesTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_batches_total",
			Help: "Total number of credit batches processed",
		}),
		UsersTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_batch_users_total",
			Help: "Total number of users evaluated across batches",
		}),
		ChangedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_cost_changes_total",
			Help: "Total number of users whose live cost differed from the recorded cost",
		}),
		ExhaustedTotal: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_users_exhausted_total",
			Help: "Total number of users newly found over their initial credits limit",
		}),
		RemediationsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_remediations_total",
			Help: "Remediation outcomes by final state",
		}, []string{"state"}),
		TeardownFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_teardown_failures_total",
			Help: "Total number of workspaces whose runtime teardown failed",
		}),
		ThresholdAlerts: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_threshold_alerts_total",
			Help: "Threshold notifications by result",
		}, []string{"result"}), // sent, failed
		CostRegressions: f.NewCounter(prometheus.CounterOpts{
			Name: "guardian_cost_regressions_total",
			Help: "Total number of live costs observed below the recorded cost",
		}),
		BatchDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "guardian_batch_duration_seconds",
			Help:    "Time spent processing a batch",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
		}),
		BatchErrorsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "guardian_batch_errors_total",
			Help: "Batches rejected or aborted, by reason",
		}, []string{"reason"}),
	}
}

// ObserveBatch implements credits.Observer.
func (c *Collector) ObserveBatch(r *credits.BatchResult) {
	c.BatchesTotal.Inc()
	c.UsersTotal.Add(float64(r.Users))
	c.ChangedTotal.Add(float64(r.Changed))
	c.ExhaustedTotal.Add(float64(len(r.NewlyExhausted)))
	for _, o := range r.Remediations {
		c.RemediationsTotal.WithLabelValues(o.State.String()).Inc()
		c.TeardownFailures.Add(float64(len(o.TeardownFailures)))
	}
	c.ThresholdAlerts.WithLabelValues("sent").Add(float64(r.AlertsSent))
	c.ThresholdAlerts.WithLabelValues("failed").Add(float64(r.AlertFailures))
	c.CostRegressions.Add(float64(r.CostRegressions))
	c.BatchDuration.Observe(r.Duration.Seconds())
}

// RecordBatchError counts a batch that returned an error.
func (c *Collector) RecordBatchError(reason string) {
	c.BatchErrorsTotal.WithLabelValues(reason).Inc()
}
