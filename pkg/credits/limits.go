package credits

import (
	"fmt"
	"math"

	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

// LimitResolver returns the dollar limit applicable to a user: their
// override when set, otherwise the program default.
type LimitResolver struct {
	defaultLimit float64
}

// NewLimitResolver creates a resolver with the given default limit.
func NewLimitResolver(defaultLimit float64) (*LimitResolver, error) {
	if math.IsNaN(defaultLimit) || math.IsInf(defaultLimit, 0) || defaultLimit <= 0 {
		return nil, fmt.Errorf("%w: default limit %v", ErrNoLimit, defaultLimit)
	}
	return &LimitResolver{defaultLimit: defaultLimit}, nil
}

// Default returns the program-wide default limit.
func (r *LimitResolver) Default() float64 { return r.defaultLimit }

// Limit resolves the limit for user.
func (r *LimitResolver) Limit(user model.User) (float64, error) {
	if !user.HasLimitOverride() {
		return r.defaultLimit, nil
	}
	v := *user.LimitOverrideUSD
	if err := ValidateCost(v); err != nil {
		return 0, fmt.Errorf("%w: user %d override: %w", ErrNoLimit, user.ID, err)
	}
	return v, nil
}

// Accounts resolves limits for every user. Any failure is returned before
// the caller takes a side effect.
func (r *LimitResolver) Accounts(users map[int64]model.User) (map[int64]Account, error) {
	out := make(map[int64]Account, len(users))
	for id, u := range users {
		limit, err := r.Limit(u)
		if err != nil {
			return nil, err
		}
		out[id] = Account{User: u, Limit: limit}
	}
	return out, nil
}
