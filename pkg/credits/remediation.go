package credits

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

// RemediationState is how far remediation of one user progressed.
type RemediationState int

const (
	// StatePending means the benefit was not yet withdrawn. The user remains
	// eligible and the next run tries again.
	StatePending RemediationState = iota
	StateDeactivated
	StateTeardownAttempted
	StateNotified
)

func (s RemediationState) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateDeactivated:
		return "deactivated"
	case StateTeardownAttempted:
		return "teardown_attempted"
	case StateNotified:
		return "notified"
	default:
		return "unknown"
	}
}

// RemediationOutcome records what happened to one newly exhausted user.
type RemediationOutcome struct {
	UserID     int64
	State      RemediationState
	Workspaces []model.Workspace

	DeactivateErr    error
	TeardownFailures map[int64]error // keyed by workspace ID
	NotifyErr        error
}

// RemediationCoordinator withdraws the benefit from exhausted users: it
// deactivates their benefit-funded workspaces, tears down their runtimes
// and tells them. Each step's failure is recorded and never undoes the
// steps before it.
type RemediationCoordinator struct {
	store    EligibilityStore
	reaper   ResourceReaper
	notifier alerts.Notifier
	workers  int
	logger   *slog.Logger
}

// NewRemediationCoordinator creates a coordinator running up to workers
// users at a time.
func NewRemediationCoordinator(store EligibilityStore, reaper ResourceReaper, notifier alerts.Notifier, workers int, logger *slog.Logger) *RemediationCoordinator {
	if workers < 1 {
		workers = 1
	}
	return &RemediationCoordinator{
		store:    store,
		reaper:   reaper,
		notifier: notifier,
		workers:  workers,
		logger:   logger,
	}
}

// Remediate handles every exhausted snapshot independently and returns one
// outcome per snapshot, in input order.
func (c *RemediationCoordinator) Remediate(ctx context.Context, exhausted []Snapshot, accounts map[int64]Account) []RemediationOutcome {
	outcomes := make([]RemediationOutcome, len(exhausted))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.workers)
	for i, s := range exhausted {
		g.Go(func() error {
			outcomes[i] = c.remediateUser(gctx, s, accounts[s.UserID])
			return nil
		})
	}
	_ = g.Wait()

	return outcomes
}

func (c *RemediationCoordinator) remediateUser(ctx context.Context, s Snapshot, acct Account) RemediationOutcome {
	out := RemediationOutcome{UserID: s.UserID, State: StatePending}

	workspaces, err := c.store.MarkExhausted(ctx, s.UserID)
	if err != nil {
		out.DeactivateErr = err
		c.logger.Error("deactivate benefit workspaces failed", "user_id", s.UserID, "error", err)
		return out
	}
	out.State = StateDeactivated
	out.Workspaces = workspaces

	for _, ws := range workspaces {
		if err := c.reaper.DeleteAllResources(ctx, ws); err != nil {
			if out.TeardownFailures == nil {
				out.TeardownFailures = make(map[int64]error)
			}
			out.TeardownFailures[ws.ID] = err
			c.logger.Error("delete workspace resources failed",
				"user_id", s.UserID,
				"workspace_id", ws.ID,
				"google_project", ws.GoogleProject,
				"error", err,
			)
		}
	}
	out.State = StateTeardownAttempted

	note := alerts.NewExhaustionNotification(acct.User, acct.Limit, s.EffectiveCost())
	if err := c.notifier.Send(ctx, note); err != nil {
		out.NotifyErr = err
		c.logger.Error("send exhaustion notification failed", "user_id", s.UserID, "error", err)
		return out
	}
	out.State = StateNotified

	c.logger.Info("initial credits exhausted",
		"user_id", s.UserID,
		"workspaces", len(workspaces),
		"teardown_failures", len(out.TeardownFailures),
		"cost", s.EffectiveCost(),
		"limit", acct.Limit,
	)
	return out
}
