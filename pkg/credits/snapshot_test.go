package credits_test

import (
	"math"
	"testing"

	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatch_Validate(t *testing.T) {
	tests := []struct {
		name  string
		batch credits.Batch
		err   error
	}{
		{"empty", credits.Batch{}, credits.ErrEmptyBatch},
		{"negative recorded", credits.Batch{UserIDs: []int64{1}, RecordedCosts: map[int64]float64{1: -1}}, credits.ErrInvalidCost},
		{"nan live", credits.Batch{UserIDs: []int64{1}, LiveCosts: map[int64]float64{1: math.NaN()}}, credits.ErrInvalidCost},
		{"inf live", credits.Batch{UserIDs: []int64{1}, LiveCosts: map[int64]float64{1: math.Inf(1)}}, credits.ErrInvalidCost},
		{"valid", credits.Batch{UserIDs: []int64{1}, LiveCosts: map[int64]float64{1: 3}}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.batch.Validate()
			if tt.err == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.err)
		})
	}
}

func TestBatch_Snapshots(t *testing.T) {
	b := credits.Batch{
		UserIDs:       []int64{3, 1, 3, 2},
		RecordedCosts: map[int64]float64{1: 10, 3: 0},
		LiveCosts:     map[int64]float64{1: 12, 2: 5, 99: 1},
	}

	snaps := b.Snapshots()
	require.Len(t, snaps, 3)

	assert.Equal(t, int64(3), snaps[0].UserID)
	require.NotNil(t, snaps[0].Recorded, "a recorded zero is present, not absent")
	assert.Nil(t, snaps[0].Live)

	assert.Equal(t, int64(1), snaps[1].UserID)
	assert.InDelta(t, 10.0, *snaps[1].Recorded, 1e-9)
	assert.InDelta(t, 12.0, *snaps[1].Live, 1e-9)

	assert.Equal(t, int64(2), snaps[2].UserID)
	assert.Nil(t, snaps[2].Recorded)
	assert.InDelta(t, 0.0, snaps[2].RecordedOrZero(), 1e-9)
}

func TestSnapshot_EffectiveCost(t *testing.T) {
	assert.InDelta(t, 50.0, credits.Snapshot{Recorded: ptr(50), Live: ptr(40)}.EffectiveCost(), 1e-9)
	assert.InDelta(t, 60.0, credits.Snapshot{Recorded: ptr(50), Live: ptr(60)}.EffectiveCost(), 1e-9)
	assert.InDelta(t, 7.0, credits.Snapshot{Live: ptr(7)}.EffectiveCost(), 1e-9)
	assert.InDelta(t, 5.0, credits.Snapshot{Recorded: ptr(5)}.EffectiveCost(), 1e-9)
}

func TestChangedCosts(t *testing.T) {
	snaps := []credits.Snapshot{
		{UserID: 1, Recorded: ptr(10), Live: ptr(10.0000001)}, // within tolerance
		{UserID: 2, Recorded: ptr(10), Live: ptr(11)},
		{UserID: 3, Live: ptr(0)},       // absent recorded counts as zero
		{UserID: 4, Live: ptr(4)},       // absent recorded, new cost
		{UserID: 5, Recorded: ptr(200)}, // no live update this round
		{UserID: 6, Recorded: ptr(9), Live: ptr(8)},
	}

	changed := credits.ChangedCosts(snaps)
	var ids []int64
	for _, s := range changed {
		ids = append(ids, s.UserID)
	}
	assert.Equal(t, []int64{2, 4, 6}, ids)
}

func TestBatch_AlertSnapshots(t *testing.T) {
	b := credits.Batch{
		UserIDs:       []int64{3, 1},
		RecordedCosts: map[int64]float64{1: 10, 9: 40},
		LiveCosts:     map[int64]float64{1: 12, 99: 1, 9: 80},
	}

	snaps := b.AlertSnapshots()
	require.Len(t, snaps, 4)
	assert.Equal(t, []int64{3, 1, 9, 99}, []int64{snaps[0].UserID, snaps[1].UserID, snaps[2].UserID, snaps[3].UserID})

	require.NotNil(t, snaps[2].Recorded)
	assert.InDelta(t, 40.0, *snaps[2].Recorded, 1e-9)
	assert.InDelta(t, 80.0, *snaps[2].Live, 1e-9)
	assert.Nil(t, snaps[3].Recorded)
}
