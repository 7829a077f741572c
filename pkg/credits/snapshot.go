package credits

import (
	"fmt"
	"maps"
	"math"
	"slices"
)

// Snapshot is the pair of costs known for one user in a batch. A nil
// Recorded means nothing was stored yet; a nil Live means no update arrived
// for this user in the current round.
type Snapshot struct {
	UserID   int64
	Recorded *float64
	Live     *float64
}

// RecordedOrZero returns the recorded cost, treating an absent value as 0.
func (s Snapshot) RecordedOrZero() float64 {
	if s.Recorded == nil {
		return 0
	}
	return *s.Recorded
}

// HasLive reports whether a live cost arrived this round.
func (s Snapshot) HasLive() bool { return s.Live != nil }

// EffectiveCost is the larger of the recorded and live costs.
func (s Snapshot) EffectiveCost() float64 {
	recorded := s.RecordedOrZero()
	if s.Live == nil {
		return recorded
	}
	return math.Max(recorded, *s.Live)
}

// Batch is one unit of work: a set of users with their recorded and live
// cost snapshots.
type Batch struct {
	UserIDs       []int64
	RecordedCosts map[int64]float64
	LiveCosts     map[int64]float64
}

// Validate rejects empty batches and malformed cost values.
func (b Batch) Validate() error {
	if len(b.UserIDs) == 0 {
		return ErrEmptyBatch
	}
	if err := validateCosts("recorded", b.RecordedCosts); err != nil {
		return err
	}
	return validateCosts("live", b.LiveCosts)
}

func validateCosts(kind string, costs map[int64]float64) error {
	for id, cost := range costs {
		if err := ValidateCost(cost); err != nil {
			return fmt.Errorf("%s cost for user %d: %w", kind, id, err)
		}
	}
	return nil
}

// ValidateCost rejects negative, NaN and infinite values.
func ValidateCost(v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return fmt.Errorf("%w: %v", ErrInvalidCost, v)
	}
	return nil
}

// Snapshots builds one snapshot per distinct user in batch order.
func (b Batch) Snapshots() []Snapshot {
	seen := make(map[int64]struct{}, len(b.UserIDs))
	out := make([]Snapshot, 0, len(b.UserIDs))
	for _, id := range b.UserIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		s := Snapshot{UserID: id}
		if v, ok := b.RecordedCosts[id]; ok {
			s.Recorded = &v
		}
		if v, ok := b.LiveCosts[id]; ok {
			s.Live = &v
		}
		out = append(out, s)
	}
	return out
}

// AlertSnapshots extends Snapshots with users that only appear in
// LiveCosts, in ascending ID order. Threshold alerts cover everyone with a
// live cost; exhaustion only covers the listed users.
func (b Batch) AlertSnapshots() []Snapshot {
	out := b.Snapshots()
	listed := make(map[int64]struct{}, len(out))
	for _, s := range out {
		listed[s.UserID] = struct{}{}
	}
	for _, id := range slices.Sorted(maps.Keys(b.LiveCosts)) {
		if _, ok := listed[id]; ok {
			continue
		}
		live := b.LiveCosts[id]
		s := Snapshot{UserID: id, Live: &live}
		if v, ok := b.RecordedCosts[id]; ok {
			s.Recorded = &v
		}
		out = append(out, s)
	}
	return out
}

func snapshotIDs(snapshots []Snapshot) []int64 {
	ids := make([]int64, len(snapshots))
	for i, s := range snapshots {
		ids[i] = s.UserID
	}
	return ids
}
