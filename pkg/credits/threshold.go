package credits

import (
	"context"
	"log/slog"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
)

// ThresholdAlert is one warning decided for a user.
type ThresholdAlert struct {
	UserID    int64
	Threshold float64
	Previous  float64
	Current   float64
	Limit     float64
}

// ThresholdReport summarizes one pass of the threshold engine.
type ThresholdReport struct {
	Alerts      []ThresholdAlert
	Sent        int
	Failed      int
	Regressions int
}

// ThresholdAlertEngine warns users when their cost newly crosses a fraction
// of their limit. Only the highest crossed threshold is considered, and only
// if it was not already crossed by the recorded cost.
type ThresholdAlertEngine struct {
	thresholds Thresholds
	notifier   alerts.Notifier
	workers    int
	logger     *slog.Logger
}

// NewThresholdAlertEngine creates an engine.
func NewThresholdAlertEngine(thresholds Thresholds, notifier alerts.Notifier, workers int, logger *slog.Logger) *ThresholdAlertEngine {
	if workers < 1 {
		workers = 1
	}
	return &ThresholdAlertEngine{
		thresholds: thresholds,
		notifier:   notifier,
		workers:    workers,
		logger:     logger,
	}
}

// Evaluate decides which alerts are due without sending anything. Users in
// exclude and users without a live cost are skipped.
func (e *ThresholdAlertEngine) Evaluate(snapshots []Snapshot, accounts map[int64]Account, exclude map[int64]struct{}) ([]ThresholdAlert, int) {
	var (
		due         []ThresholdAlert
		regressions int
	)
	for _, s := range snapshots {
		if s.Live == nil {
			continue
		}
		if _, skip := exclude[s.UserID]; skip {
			continue
		}
		acct, ok := accounts[s.UserID]
		if !ok {
			continue
		}

		previous := s.RecordedOrZero()
		current := s.EffectiveCost()
		// current is max(live, previous), so the drop shows on live.
		if CompareCosts(*s.Live, previous) < 0 {
			regressions++
			e.logger.Warn("live cost below recorded cost",
				"user_id", s.UserID,
				"live", *s.Live,
				"recorded", previous,
			)
		}
		if CompareCosts(acct.Limit, 0) <= 0 {
			continue
		}

		if alert, ok := e.crossed(s.UserID, previous, current, acct.Limit); ok {
			due = append(due, alert)
		}
	}
	return due, regressions
}

func (e *ThresholdAlertEngine) crossed(userID int64, previous, current, limit float64) (ThresholdAlert, bool) {
	previousFraction := previous / limit
	currentFraction := current / limit

	for _, t := range e.thresholds.desc {
		if CompareCostFractions(currentFraction, t) > 0 {
			if CompareCostFractions(previousFraction, t) > 0 {
				return ThresholdAlert{}, false
			}
			return ThresholdAlert{
				UserID:    userID,
				Threshold: t,
				Previous:  previous,
				Current:   current,
				Limit:     limit,
			}, true
		}
	}
	return ThresholdAlert{}, false
}

// Alert evaluates the snapshots and sends the resulting warnings.
func (e *ThresholdAlertEngine) Alert(ctx context.Context, snapshots []Snapshot, accounts map[int64]Account, exclude map[int64]struct{}) ThresholdReport {
	due, regressions := e.Evaluate(snapshots, accounts, exclude)
	report := ThresholdReport{Alerts: due, Regressions: regressions}

	var failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.workers)
	for _, a := range due {
		g.Go(func() error {
			note := alerts.NewThresholdNotification(accounts[a.UserID].User, a.Limit, a.Threshold, a.Current, a.Limit-a.Current)
			if err := e.notifier.Send(gctx, note); err != nil {
				failed.Add(1)
				e.logger.Error("send threshold notification failed",
					"user_id", a.UserID,
					"threshold", a.Threshold,
					"error", err,
				)
			}
			return nil
		})
	}
	_ = g.Wait()

	report.Failed = int(failed.Load())
	report.Sent = len(due) - report.Failed
	return report
}
