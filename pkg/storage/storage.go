package storage

import (
	"context"
	"errors"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// Storage defines the persistence layer for users, their workspaces and
// recorded costs.
type Storage interface {
	// CreateUser inserts a user, assigning an ID when none is set.
	CreateUser(ctx context.Context, user *model.User) error

	// GetUser retrieves a user by ID.
	GetUser(ctx context.Context, id int64) (*model.User, error)

	// GetUsers returns the users among ids that exist.
	GetUsers(ctx context.Context, ids []int64) (map[int64]model.User, error)

	// ListUsers returns all users ordered by ID.
	ListUsers(ctx context.Context) ([]model.User, error)

	// SetLimitOverride sets or clears (nil) a user's limit override.
	SetLimitOverride(ctx context.Context, id int64, limitUSD *float64) error

	// CreateWorkspace inserts a workspace, assigning an ID when none is set.
	CreateWorkspace(ctx context.Context, ws *model.Workspace) error

	// ListWorkspacesByCreator returns every workspace a user created.
	ListWorkspacesByCreator(ctx context.Context, creatorID int64) ([]model.Workspace, error)

	// RecordedCosts returns the last persisted cost of each user in ids that has one.
	RecordedCosts(ctx context.Context, ids []int64) (map[int64]float64, error)

	// AllRecordedCosts returns every persisted cost.
	AllRecordedCosts(ctx context.Context) (map[int64]float64, error)

	// SaveRecordedCosts upserts the given costs.
	SaveRecordedCosts(ctx context.Context, costs map[int64]float64) error

	// ActiveBenefitCreators returns the users among ids that still own a
	// workspace funded by initial credits, per the configured policy.
	ActiveBenefitCreators(ctx context.Context, ids []int64) (map[int64]struct{}, error)

	// MarkExhausted withdraws the benefit from a user's funded workspaces
	// and returns the workspaces it changed.
	MarkExhausted(ctx context.Context, userID int64) ([]model.Workspace, error)

	// ReactivateBenefit restores the benefit on a user's funded workspaces
	// and returns the workspaces it changed.
	ReactivateBenefit(ctx context.Context, userID int64) ([]model.Workspace, error)

	// Close releases resources.
	Close() error
}

// EligibilityMode selects how a workspace is judged to still hold the benefit.
type EligibilityMode string

const (
	// ModeExhaustedFlag treats a workspace as funded until its
	// initial_credits_exhausted flag is set.
	ModeExhaustedFlag EligibilityMode = "exhausted_flag"
	// ModeBillingStatus treats a workspace as funded while its billing
	// status is ACTIVE.
	ModeBillingStatus EligibilityMode = "billing_status"
)

// EligibilityPolicy decides which workspaces count as benefit-funded.
// An empty BillingAccounts list matches every billing account.
type EligibilityPolicy struct {
	Mode            EligibilityMode
	BillingAccounts []string
}
