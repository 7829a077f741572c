package metrics_test

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ogulcanaydogan/credit-guardian/internal/metrics"
	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
)

func TestCollector_ObserveBatch(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())

	c.ObserveBatch(&credits.BatchResult{
		Users:          10,
		Changed:        4,
		NewlyExhausted: []int64{1, 2},
		Remediations: []credits.RemediationOutcome{
			{UserID: 1, State: credits.StateNotified},
			{UserID: 2, State: credits.StatePending, DeactivateErr: errors.New("x")},
			{UserID: 3, State: credits.StateNotified, TeardownFailures: map[int64]error{7: errors.New("y")}},
		},
		AlertsSent:      3,
		AlertFailures:   1,
		CostRegressions: 2,
		Duration:        150 * time.Millisecond,
	})

	assert.InDelta(t, 1.0, testutil.ToFloat64(c.BatchesTotal), 1e-9)
	assert.InDelta(t, 10.0, testutil.ToFloat64(c.UsersTotal), 1e-9)
	assert.InDelta(t, 4.0, testutil.ToFloat64(c.ChangedTotal), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.ExhaustedTotal), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.RemediationsTotal.WithLabelValues("notified")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.RemediationsTotal.WithLabelValues("pending")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.TeardownFailures), 1e-9)
	assert.InDelta(t, 3.0, testutil.ToFloat64(c.ThresholdAlerts.WithLabelValues("sent")), 1e-9)
	assert.InDelta(t, 1.0, testutil.ToFloat64(c.ThresholdAlerts.WithLabelValues("failed")), 1e-9)
	assert.InDelta(t, 2.0, testutil.ToFloat64(c.CostRegressions), 1e-9)
}

func TestCollector_RecordBatchError(t *testing.T) {
	c := metrics.New(prometheus.NewRegistry())
	c.RecordBatchError("invalid_input")
	c.RecordBatchError("invalid_input")
	c.RecordBatchError("internal")

	assert.InDelta(t, 2.0, testutil.ToFloat64(c.BatchErrorsTotal.WithLabelValues("invalid_input")), 1e-9)
	assert.Equal(t, 2, testutil.CollectAndCount(c.BatchErrorsTotal))
}

func TestCollector_SeparateRegistries(t *testing.T) {
	assert.NotPanics(t, func() {
		metrics.New(prometheus.NewRegistry())
		metrics.New(prometheus.NewRegistry())
	})
}
