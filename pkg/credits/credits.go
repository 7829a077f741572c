// Package credits decides when users of the initial credits program cross
// an alert threshold or exhaust their limit, and drives the one-time
// remediation that follows exhaustion.
package credits

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

var (
	// ErrEmptyBatch is returned when a batch names no users.
	ErrEmptyBatch = errors.New("batch has no users")
	// ErrInvalidCost is returned for negative, NaN or infinite cost values.
	ErrInvalidCost = errors.New("invalid cost value")
	// ErrNoLimit is returned when a user's limit cannot be resolved.
	ErrNoLimit = errors.New("no credit limit")
	// ErrInvalidThreshold is returned for thresholds outside (0, 1) or duplicates.
	ErrInvalidThreshold = errors.New("invalid alert threshold")
)

// EligibilityStore answers which users still hold the benefit and performs
// the deactivation of their benefit-funded workspaces.
type EligibilityStore interface {
	// ActiveBenefitCreators returns the subset of ids that still have at
	// least one workspace funded by initial credits.
	ActiveBenefitCreators(ctx context.Context, ids []int64) (map[int64]struct{}, error)

	// MarkExhausted deactivates the user's benefit-funded workspaces and
	// returns the workspaces it changed.
	MarkExhausted(ctx context.Context, userID int64) ([]model.Workspace, error)
}

// ResourceReaper tears down the compute resources of a workspace.
type ResourceReaper interface {
	DeleteAllResources(ctx context.Context, ws model.Workspace) error
}

// UserStore loads user records for a batch.
type UserStore interface {
	GetUsers(ctx context.Context, ids []int64) (map[int64]model.User, error)
}

// Observer receives the result of every processed batch.
type Observer interface {
	ObserveBatch(result *BatchResult)
}

// Account pairs a user with their resolved credit limit.
type Account struct {
	User  model.User
	Limit float64
}
