package alerts

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

// Kind identifies which of the two user notifications is being sent.
type Kind string

const (
	KindThreshold  Kind = "threshold"  // A fraction of the limit was newly crossed
	KindExhaustion Kind = "exhaustion" // The limit was exceeded and the benefit cut off
)

// Notification is a message to a single user about their initial credits.
type Notification struct {
	ID               string  `json:"id"`
	Kind             Kind    `json:"kind"`
	UserID           int64   `json:"user_id"`
	Username         string  `json:"username"`
	ContactEmail     string  `json:"contact_email,omitempty"`
	LimitUSD         float64 `json:"limit_usd"`
	Threshold        float64 `json:"threshold,omitempty"`
	CurrentCost      float64 `json:"current_cost"`
	RemainingBalance float64 `json:"remaining_balance"`
	Message          string  `json:"message"`
}

// Notifier sends notifications to external systems.
type Notifier interface {
	// Name returns the notifier identifier.
	Name() string

	// Send delivers a notification. Implementations must be safe for concurrent use.
	Send(ctx context.Context, n Notification) error
}

// NewThresholdNotification builds the warning sent when cost crosses a
// fraction of the user's limit.
func NewThresholdNotification(user model.User, limit, threshold, currentCost, remaining float64) Notification {
	return Notification{
		ID:               uuid.New().String(),
		Kind:             KindThreshold,
		UserID:           user.ID,
		Username:         user.Username,
		ContactEmail:     user.ContactEmail,
		LimitUSD:         limit,
		Threshold:        threshold,
		CurrentCost:      currentCost,
		RemainingBalance: remaining,
		Message: fmt.Sprintf("User %s has used %.0f%% of their initial credits ($%.2f of $%.2f, $%.2f remaining)",
			user.Username, threshold*100, currentCost, limit, remaining),
	}
}

// NewExhaustionNotification builds the notice sent when the benefit is cut off.
func NewExhaustionNotification(user model.User, limit, currentCost float64) Notification {
	return Notification{
		ID:               uuid.New().String(),
		Kind:             KindExhaustion,
		UserID:           user.ID,
		Username:         user.Username,
		ContactEmail:     user.ContactEmail,
		LimitUSD:         limit,
		CurrentCost:      currentCost,
		RemainingBalance: 0,
		Message: fmt.Sprintf("User %s has exhausted their initial credits ($%.2f of $%.2f)",
			user.Username, currentCost, limit),
	}
}
