package credits

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

// BatchResult summarizes one processed batch.
type BatchResult struct {
	BatchID         string
	Users           int // listed users plus live-cost-only users
	Changed         int
	NewlyExhausted  []int64
	AlertsSent      int
	AlertFailures   int
	CostRegressions int
	Remediations    []RemediationOutcome
	Duration        time.Duration
}

// RemediationFailures counts users whose remediation stopped short of
// notification.
func (r *BatchResult) RemediationFailures() int {
	n := 0
	for _, o := range r.Remediations {
		if o.State != StateNotified {
			n++
		}
	}
	return n
}

// ProcessorConfig wires a Processor to its collaborators.
type ProcessorConfig struct {
	Users       UserStore
	Eligibility EligibilityStore
	Reaper      ResourceReaper
	Notifier    alerts.Notifier
	Limits      *LimitResolver
	Thresholds  Thresholds
	Workers     int
	Observer    Observer // optional
	Logger      *slog.Logger
}

// Processor runs a batch through exhaustion detection, remediation and
// threshold alerting.
type Processor struct {
	users      UserStore
	limits     *LimitResolver
	detector   *ExhaustionDetector
	remediator *RemediationCoordinator
	alerter    *ThresholdAlertEngine
	observer   Observer
	logger     *slog.Logger
}

// NewProcessor creates a batch processor.
func NewProcessor(cfg ProcessorConfig) *Processor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{
		users:      cfg.Users,
		limits:     cfg.Limits,
		detector:   NewExhaustionDetector(NewEligibilityFilter(cfg.Eligibility)),
		remediator: NewRemediationCoordinator(cfg.Eligibility, cfg.Reaper, cfg.Notifier, cfg.Workers, logger),
		alerter:    NewThresholdAlertEngine(cfg.Thresholds, cfg.Notifier, cfg.Workers, logger),
		observer:   cfg.Observer,
		logger:     logger,
	}
}

// Process handles one batch. An error means nothing was remediated or
// alerted; per-user collaborator failures are reported in the result.
func (p *Processor) Process(ctx context.Context, batch Batch) (*BatchResult, error) {
	start := time.Now()
	if err := batch.Validate(); err != nil {
		return nil, err
	}

	result := &BatchResult{BatchID: ulid.Make().String()}
	logger := p.logger.With("batch_id", result.BatchID)

	snapshots := batch.Snapshots()
	population := batch.AlertSnapshots()
	result.Users = len(population)

	accounts, err := p.loadAccounts(ctx, population, logger)
	if err != nil {
		return nil, err
	}

	changed := ChangedCosts(snapshots)
	result.Changed = len(changed)

	exhausted, err := p.detector.NewlyExhausted(ctx, changed, accounts)
	if err != nil {
		return nil, fmt.Errorf("detect exhaustion: %w", err)
	}

	exclude := make(map[int64]struct{}, len(exhausted))
	for _, s := range exhausted {
		exclude[s.UserID] = struct{}{}
		result.NewlyExhausted = append(result.NewlyExhausted, s.UserID)
	}

	if len(exhausted) > 0 {
		result.Remediations = p.remediator.Remediate(ctx, exhausted, accounts)
	}

	report := p.alerter.Alert(ctx, population, accounts, exclude)
	result.AlertsSent = report.Sent
	result.AlertFailures = report.Failed
	result.CostRegressions = report.Regressions
	result.Duration = time.Since(start)

	logger.Info("batch processed",
		"users", result.Users,
		"changed", result.Changed,
		"newly_exhausted", len(result.NewlyExhausted),
		"remediation_failures", result.RemediationFailures(),
		"alerts_sent", result.AlertsSent,
		"alert_failures", result.AlertFailures,
		"cost_regressions", result.CostRegressions,
		"duration", result.Duration,
	)

	if p.observer != nil {
		p.observer.ObserveBatch(result)
	}
	return result, nil
}

// loadAccounts fetches every user in the batch, including live-cost-only
// users, and resolves their limits.
// Users missing from the store are processed with the default limit.
func (p *Processor) loadAccounts(ctx context.Context, snapshots []Snapshot, logger *slog.Logger) (map[int64]Account, error) {
	ids := snapshotIDs(snapshots)
	users, err := p.users.GetUsers(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}

	all := make(map[int64]model.User, len(ids))
	for _, id := range ids {
		u, ok := users[id]
		if !ok {
			logger.Warn("user not found, using default limit", "user_id", id)
			u = model.User{ID: id}
		}
		all[id] = u
	}

	accounts, err := p.limits.Accounts(all)
	if err != nil {
		return nil, fmt.Errorf("resolve limits: %w", err)
	}
	return accounts, nil
}
