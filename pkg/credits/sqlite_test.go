package credits_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
	"github.com/ogulcanaydogan/credit-guardian/pkg/storage"
)

func TestProcessor_WithSQLiteBillingStatus(t *testing.T) {
	store, err := storage.NewSQLite(filepath.Join(t.TempDir(), "credits.db"),
		storage.WithEligibilityPolicy(storage.EligibilityPolicy{
			Mode:            storage.ModeBillingStatus,
			BillingAccounts: []string{"billingAccounts/credits"},
		}))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	funded := &model.User{ID: 1, Username: "ada", ContactEmail: "ada@example.com"}
	paying := &model.User{ID: 2, Username: "bob", ContactEmail: "bob@example.com"}
	require.NoError(t, store.CreateUser(ctx, funded))
	require.NoError(t, store.CreateUser(ctx, paying))
	require.NoError(t, store.CreateWorkspace(ctx, &model.Workspace{
		Namespace: "ada-ws", GoogleProject: "p-ada", BillingAccount: "billingAccounts/credits", CreatorID: 1, Active: true,
	}))
	require.NoError(t, store.CreateWorkspace(ctx, &model.Workspace{
		Namespace: "bob-ws", GoogleProject: "p-bob", BillingAccount: "billingAccounts/own", CreatorID: 2, Active: true,
	}))

	limits, err := credits.NewLimitResolver(100)
	require.NoError(t, err)
	reaper := &fakeReaper{}
	notifier := &fakeNotifier{}
	proc := credits.NewProcessor(credits.ProcessorConfig{
		Users:       store,
		Eligibility: store,
		Reaper:      reaper,
		Notifier:    notifier,
		Limits:      limits,
		Thresholds:  credits.MustThresholds(0.5, 0.75, 0.9),
		Workers:     2,
		Logger:      testLogger(),
	})

	round := func(live map[int64]float64) *credits.BatchResult {
		t.Helper()
		recorded, err := store.RecordedCosts(ctx, []int64{1, 2})
		require.NoError(t, err)
		res, err := proc.Process(ctx, credits.Batch{UserIDs: []int64{1, 2}, RecordedCosts: recorded, LiveCosts: live})
		require.NoError(t, err)
		require.NoError(t, store.SaveRecordedCosts(ctx, live))
		return res
	}

	round(map[int64]float64{1: 40, 2: 40})
	res := round(map[int64]float64{1: 101, 2: 101})
	assert.Equal(t, []int64{1}, res.NewlyExhausted)
	assert.Equal(t, []string{"p-ada"}, reaper.deleted)
	assert.Len(t, notifier.byKind(alerts.KindExhaustion), 1)

	ws, err := store.ListWorkspacesByCreator(ctx, 1)
	require.NoError(t, err)
	require.Len(t, ws, 1)
	assert.Equal(t, model.BillingInactive, ws[0].BillingStatus)

	// The paying user's workspace is never touched.
	ws, err = store.ListWorkspacesByCreator(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.BillingActive, ws[0].BillingStatus)

	// Unchanged costs on the next run do nothing.
	res = round(map[int64]float64{1: 101, 2: 101})
	assert.Empty(t, res.NewlyExhausted)
	assert.Len(t, notifier.byKind(alerts.KindExhaustion), 1)

	// Raising the limit restores the benefit, and crossing it again exhausts again.
	override, err := credits.NewLimitManager(store, limits, testLogger()).SetLimitOverride(ctx, 1, 200)
	require.NoError(t, err)
	require.Len(t, override.Reactivated, 1)

	res = round(map[int64]float64{1: 201, 2: 101})
	assert.Equal(t, []int64{1}, res.NewlyExhausted)
	assert.Len(t, notifier.byKind(alerts.KindExhaustion), 2)
}
