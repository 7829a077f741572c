package credits

import "math"

const (
	// CostTolerance is the absolute dollar difference below which two costs are equal.
	CostTolerance = 0.000001
	// FractionTolerance is the tolerance used when comparing cost/limit fractions.
	FractionTolerance = 0.000001
)

func fuzzyCompare(a, b, tolerance float64) int {
	switch {
	case math.Abs(a-b) <= tolerance:
		return 0
	case a < b:
		return -1
	default:
		return 1
	}
}

// CompareCosts returns -1, 0 or 1 as a is less than, equal to or greater
// than b, treating values within CostTolerance as equal.
func CompareCosts(a, b float64) int {
	return fuzzyCompare(a, b, CostTolerance)
}

// CompareCostFractions compares two fractions of a limit.
func CompareCostFractions(a, b float64) int {
	return fuzzyCompare(a, b, FractionTolerance)
}

// CostsDiffer reports whether a and b are distinguishable costs.
func CostsDiffer(a, b float64) bool {
	return CompareCosts(a, b) != 0
}

// CostAboveLimit reports whether cost strictly exceeds limit. A cost equal
// to the limit within tolerance is not above it.
func CostAboveLimit(cost, limit float64) bool {
	return CompareCosts(cost, limit) > 0
}
