package model

import "time"

// User is a program participant. Read-only for the credits engine.
type User struct {
	ID               int64     `json:"id" db:"id"`
	Username         string    `json:"username" db:"username"`
	ContactEmail     string    `json:"contact_email,omitempty" db:"contact_email"`
	LimitOverrideUSD *float64  `json:"limit_override_usd,omitempty" db:"limit_override_usd"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// HasLimitOverride reports whether the user carries a personal dollar limit.
func (u User) HasLimitOverride() bool {
	return u.LimitOverrideUSD != nil
}

// BillingStatus is the funding state of a workspace.
type BillingStatus string

const (
	BillingActive   BillingStatus = "ACTIVE"
	BillingInactive BillingStatus = "INACTIVE"
)

// Workspace is a cloud project owned by a user. Workspaces billed to a
// benefit account are funded by the user's initial credits.
type Workspace struct {
	ID                      int64         `json:"id" db:"id"`
	Namespace               string        `json:"namespace" db:"namespace"`
	GoogleProject           string        `json:"google_project" db:"google_project"`
	BillingAccount          string        `json:"billing_account" db:"billing_account"`
	CreatorID               int64         `json:"creator_id" db:"creator_id"`
	Active                  bool          `json:"active" db:"active"`
	BillingStatus           BillingStatus `json:"billing_status" db:"billing_status"`
	InitialCreditsExhausted bool          `json:"initial_credits_exhausted" db:"initial_credits_exhausted"`
	UpdatedAt               time.Time     `json:"updated_at" db:"updated_at"`
}

// CreditSummary describes a user's standing against their limit, based on
// the last recorded cost.
type CreditSummary struct {
	UserID       int64   `json:"user_id"`
	LimitUSD     float64 `json:"limit_usd"`
	RecordedCost float64 `json:"recorded_cost"`
	RemainingUSD float64 `json:"remaining_usd"`
	Overridden   bool    `json:"overridden"`
}
