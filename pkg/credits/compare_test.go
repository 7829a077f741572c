package credits_test

import (
	"testing"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/stretchr/testify/assert"
)

func TestCompareCosts(t *testing.T) {
	tests := []struct {
		name string
		a, b float64
		want int
	}{
		{"equal", 10, 10, 0},
		{"within tolerance above", 10.0000005, 10, 0},
		{"within tolerance below", 9.9999995, 10, 0},
		{"less", 9.99, 10, -1},
		{"greater", 10.01, 10, 1},
		{"just outside tolerance", 10.000002, 10, 1},
		{"zero", 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, credits.CompareCosts(tt.a, tt.b))
			assert.Equal(t, -tt.want, credits.CompareCosts(tt.b, tt.a))
		})
	}
}

func TestCostsDiffer(t *testing.T) {
	assert.False(t, credits.CostsDiffer(42.0, 42.0000001))
	assert.True(t, credits.CostsDiffer(42.0, 42.01))
}

func TestCostAboveLimit(t *testing.T) {
	assert.True(t, credits.CostAboveLimit(100.01, 100))
	assert.False(t, credits.CostAboveLimit(100, 100))
	assert.False(t, credits.CostAboveLimit(100.0000005, 100), "equal within tolerance is not above")
	assert.False(t, credits.CostAboveLimit(99.99, 100))
}

func TestCompareCostFractions(t *testing.T) {
	assert.Equal(t, 0, credits.CompareCostFractions(0.75, 0.7500001))
	assert.Equal(t, 1, credits.CompareCostFractions(0.76, 0.75))
	assert.Equal(t, -1, credits.CompareCostFractions(0.5, 0.75))
}
