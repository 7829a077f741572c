package credits_test

import (
	"math"
	"testing"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewThresholds_SortsDescending(t *testing.T) {
	th, err := credits.NewThresholds(0.5, 0.9, 0.75)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.75, 0.5}, th.Descending())
	assert.Equal(t, 3, th.Len())

	lowest, ok := th.Lowest()
	require.True(t, ok)
	assert.InDelta(t, 0.5, lowest, 1e-9)
}

func TestNewThresholds_Invalid(t *testing.T) {
	for _, bad := range [][]float64{{0}, {1}, {-0.1}, {1.5}, {math.NaN()}, {0.5, 0.5}} {
		_, err := credits.NewThresholds(bad...)
		assert.ErrorIs(t, err, credits.ErrInvalidThreshold, "%v", bad)
	}
}

func TestThresholds_DescendingIsCopy(t *testing.T) {
	th := credits.MustThresholds(0.5, 0.75)
	d := th.Descending()
	d[0] = 0.1
	assert.Equal(t, []float64{0.75, 0.5}, th.Descending())
}

func TestThresholds_Empty(t *testing.T) {
	th, err := credits.NewThresholds()
	require.NoError(t, err)
	_, ok := th.Lowest()
	assert.False(t, ok)
}

func TestLimitResolver(t *testing.T) {
	_, err := credits.NewLimitResolver(0)
	assert.ErrorIs(t, err, credits.ErrNoLimit)

	r, err := credits.NewLimitResolver(300)
	require.NoError(t, err)

	limit, err := r.Limit(model.User{ID: 1})
	require.NoError(t, err)
	assert.InDelta(t, 300.0, limit, 1e-9)

	limit, err = r.Limit(model.User{ID: 2, LimitOverrideUSD: ptr(500)})
	require.NoError(t, err)
	assert.InDelta(t, 500.0, limit, 1e-9)

	_, err = r.Limit(model.User{ID: 3, LimitOverrideUSD: ptr(math.NaN())})
	assert.ErrorIs(t, err, credits.ErrNoLimit)
}

func TestPartition(t *testing.T) {
	assert.Nil(t, credits.Partition(nil, 3))
	assert.Equal(t, [][]int64{{1, 2}, {3, 4}, {5}}, credits.Partition([]int64{1, 2, 3, 4, 5}, 2))
	assert.Equal(t, [][]int64{{1, 2, 3}}, credits.Partition([]int64{1, 2, 3}, 0))
}

func TestAboveLowestThreshold(t *testing.T) {
	th := credits.MustThresholds(0.5, 0.75)
	accounts := map[int64]credits.Account{
		1: {Limit: 100},
		2: {Limit: 100},
		3: {Limit: 100},
		4: {Limit: 100},
	}
	live := map[int64]float64{1: 49, 2: 50, 3: 120}

	got := credits.AboveLowestThreshold([]int64{1, 2, 3, 4, 5}, live, accounts, th)
	assert.Equal(t, []int64{2, 3}, got)
}
