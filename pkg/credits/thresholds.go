package credits

import (
	"fmt"
	"math"
	"slices"
)

// Thresholds is an immutable set of alert fractions kept in descending order.
type Thresholds struct {
	desc []float64
}

// NewThresholds validates fractions and sorts them from highest to lowest.
// Every fraction must lie strictly between 0 and 1 and appear once.
func NewThresholds(fractions ...float64) (Thresholds, error) {
	desc := slices.Clone(fractions)
	for _, f := range desc {
		if math.IsNaN(f) || f <= 0 || f >= 1 {
			return Thresholds{}, fmt.Errorf("%w: %v", ErrInvalidThreshold, f)
		}
	}
	slices.SortFunc(desc, func(a, b float64) int { return CompareCostFractions(b, a) })
	for i := 1; i < len(desc); i++ {
		if CompareCostFractions(desc[i-1], desc[i]) == 0 {
			return Thresholds{}, fmt.Errorf("%w: duplicate %v", ErrInvalidThreshold, desc[i])
		}
	}
	return Thresholds{desc: desc}, nil
}

// MustThresholds is like NewThresholds but panics on invalid input.
func MustThresholds(fractions ...float64) Thresholds {
	t, err := NewThresholds(fractions...)
	if err != nil {
		panic(err)
	}
	return t
}

// Descending returns a copy of the fractions from highest to lowest.
func (t Thresholds) Descending() []float64 {
	return slices.Clone(t.desc)
}

// Lowest returns the smallest threshold, or false when there are none.
func (t Thresholds) Lowest() (float64, bool) {
	if len(t.desc) == 0 {
		return 0, false
	}
	return t.desc[len(t.desc)-1], true
}

// Len returns the number of thresholds.
func (t Thresholds) Len() int { return len(t.desc) }
