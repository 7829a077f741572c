package credits

import (
	"context"
	"fmt"
)

// EligibilityFilter narrows a set of users to those still holding the
// benefit. It always asks the store; results are never cached.
type EligibilityFilter struct {
	store EligibilityStore
}

// NewEligibilityFilter creates a filter backed by store.
func NewEligibilityFilter(store EligibilityStore) *EligibilityFilter {
	return &EligibilityFilter{store: store}
}

// Eligible returns the subset of ids that are still eligible.
func (f *EligibilityFilter) Eligible(ctx context.Context, ids []int64) (map[int64]struct{}, error) {
	if len(ids) == 0 {
		return map[int64]struct{}{}, nil
	}
	eligible, err := f.store.ActiveBenefitCreators(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("query eligible users: %w", err)
	}
	if eligible == nil {
		eligible = map[int64]struct{}{}
	}
	return eligible, nil
}
