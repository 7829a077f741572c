package credits

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

// LimitStore is the persistence used to manage per-user limits.
type LimitStore interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
	SetLimitOverride(ctx context.Context, id int64, limitUSD *float64) error
	RecordedCosts(ctx context.Context, ids []int64) (map[int64]float64, error)
	ReactivateBenefit(ctx context.Context, userID int64) ([]model.Workspace, error)
}

// LimitManager changes user limits and reports remaining credits.
type LimitManager struct {
	store  LimitStore
	limits *LimitResolver
	logger *slog.Logger
}

// NewLimitManager creates a limit manager.
func NewLimitManager(store LimitStore, limits *LimitResolver, logger *slog.Logger) *LimitManager {
	return &LimitManager{store: store, limits: limits, logger: logger}
}

// OverrideResult describes the effect of SetLimitOverride.
type OverrideResult struct {
	Applied     bool
	Previous    *float64
	Reactivated []model.Workspace
}

// SetLimitOverride sets a per-user limit. A value equal to the default is
// ignored unless the user already has an override. When the new limit
// leaves the user with credits, their benefit workspaces are reactivated.
// Lowering a limit never deactivates anything; the next batch does that.
func (m *LimitManager) SetLimitOverride(ctx context.Context, userID int64, limitUSD float64) (*OverrideResult, error) {
	if err := ValidateCost(limitUSD); err != nil {
		return nil, fmt.Errorf("limit override: %w", err)
	}

	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	res := &OverrideResult{Previous: user.LimitOverrideUSD}
	if !user.HasLimitOverride() && !CostsDiffer(limitUSD, m.limits.Default()) {
		return res, nil
	}

	if err := m.store.SetLimitOverride(ctx, userID, &limitUSD); err != nil {
		return nil, fmt.Errorf("set limit override: %w", err)
	}
	res.Applied = true
	user.LimitOverrideUSD = &limitUSD

	remaining, err := m.hasRemaining(ctx, *user)
	if err != nil {
		return nil, err
	}
	if remaining {
		ws, err := m.store.ReactivateBenefit(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("reactivate benefit: %w", err)
		}
		res.Reactivated = ws
	}

	m.logger.Info("limit override set",
		"user_id", userID,
		"limit", limitUSD,
		"reactivated", len(res.Reactivated),
	)
	return res, nil
}

// Summary reports a user's limit, recorded cost and remaining credits.
func (m *LimitManager) Summary(ctx context.Context, userID int64) (*model.CreditSummary, error) {
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	limit, err := m.limits.Limit(*user)
	if err != nil {
		return nil, err
	}
	recorded, err := m.recorded(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &model.CreditSummary{
		UserID:       userID,
		LimitUSD:     limit,
		RecordedCost: recorded,
		RemainingUSD: RemainingCredits(limit, recorded),
		Overridden:   user.HasLimitOverride(),
	}, nil
}

// HasRemainingCredits reports whether the user's recorded cost is within their limit.
func (m *LimitManager) HasRemainingCredits(ctx context.Context, userID int64) (bool, error) {
	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return false, err
	}
	return m.hasRemaining(ctx, *user)
}

func (m *LimitManager) hasRemaining(ctx context.Context, user model.User) (bool, error) {
	limit, err := m.limits.Limit(user)
	if err != nil {
		return false, err
	}
	recorded, err := m.recorded(ctx, user.ID)
	if err != nil {
		return false, err
	}
	return !CostAboveLimit(recorded, limit), nil
}

func (m *LimitManager) recorded(ctx context.Context, userID int64) (float64, error) {
	costs, err := m.store.RecordedCosts(ctx, []int64{userID})
	if err != nil {
		return 0, fmt.Errorf("recorded cost: %w", err)
	}
	return costs[userID], nil
}

// RemainingCredits is the unspent part of limit, never negative.
func RemainingCredits(limit, recorded float64) float64 {
	return math.Max(limit-recorded, 0)
}
