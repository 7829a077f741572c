package credits

import (
	"context"
	"fmt"
)

// ExhaustionDetector finds users who went over their limit this round and
// still hold the benefit.
type ExhaustionDetector struct {
	eligibility *EligibilityFilter
}

// NewExhaustionDetector creates a detector.
func NewExhaustionDetector(eligibility *EligibilityFilter) *ExhaustionDetector {
	return &ExhaustionDetector{eligibility: eligibility}
}

// NewlyExhausted returns the changed snapshots whose effective cost is above
// the user's limit, restricted to eligible users. Users already cut off are
// no longer eligible, which keeps repeated runs from remediating twice.
func (d *ExhaustionDetector) NewlyExhausted(ctx context.Context, changed []Snapshot, accounts map[int64]Account) ([]Snapshot, error) {
	var over []Snapshot
	for _, s := range changed {
		acct, ok := accounts[s.UserID]
		if !ok {
			return nil, fmt.Errorf("user %d: %w", s.UserID, ErrNoLimit)
		}
		if CostAboveLimit(s.EffectiveCost(), acct.Limit) {
			over = append(over, s)
		}
	}
	if len(over) == 0 {
		return nil, nil
	}

	eligible, err := d.eligibility.Eligible(ctx, snapshotIDs(over))
	if err != nil {
		return nil, err
	}

	out := over[:0]
	for _, s := range over {
		if _, ok := eligible[s.UserID]; ok {
			out = append(out, s)
		}
	}
	return out, nil
}
