package credits_test

import (
	"context"
	"errors"
	"testing"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRemediationCoordinator_FullPath(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, nil, "p-1a", "p-1b")
	reaper := &fakeReaper{}
	notifier := &fakeNotifier{}
	c := credits.NewRemediationCoordinator(store, reaper, notifier, 2, testLogger())

	out := c.Remediate(context.Background(),
		[]credits.Snapshot{{UserID: 1, Recorded: ptr(90), Live: ptr(105)}},
		accountsFor(100, 1))

	require.Len(t, out, 1)
	assert.Equal(t, credits.StateNotified, out[0].State)
	assert.Len(t, out[0].Workspaces, 2)
	assert.ElementsMatch(t, []string{"p-1a", "p-1b"}, reaper.deleted)

	sent := notifier.byKind(alerts.KindExhaustion)
	require.Len(t, sent, 1)
	assert.InDelta(t, 105.0, sent[0].CurrentCost, 1e-9)
	assert.InDelta(t, 100.0, sent[0].LimitUSD, 1e-9)
}

func TestRemediationCoordinator_DeactivationFailureStaysPending(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, nil, "p-1")
	store.addUser(2, nil, "p-2")
	store.markErr[1] = errors.New("locked")
	reaper := &fakeReaper{}
	notifier := &fakeNotifier{}
	c := credits.NewRemediationCoordinator(store, reaper, notifier, 4, testLogger())

	out := c.Remediate(context.Background(), []credits.Snapshot{
		{UserID: 1, Live: ptr(150)},
		{UserID: 2, Live: ptr(150)},
	}, accountsFor(100, 1, 2))

	require.Len(t, out, 2)
	assert.Equal(t, credits.StatePending, out[0].State)
	assert.EqualError(t, out[0].DeactivateErr, "locked")
	assert.Equal(t, credits.StateNotified, out[1].State, "one user's failure does not affect another")

	assert.Equal(t, []string{"p-2"}, reaper.deleted)
	sent := notifier.byKind(alerts.KindExhaustion)
	require.Len(t, sent, 1)
	assert.Equal(t, int64(2), sent[0].UserID)
}

func TestRemediationCoordinator_TeardownFailureStillNotifies(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, nil, "p-ok", "p-broken")
	reaper := &fakeReaper{fail: map[string]error{"p-broken": errors.New("runtime api 503")}}
	notifier := &fakeNotifier{}
	c := credits.NewRemediationCoordinator(store, reaper, notifier, 1, testLogger())

	out := c.Remediate(context.Background(), []credits.Snapshot{{UserID: 1, Live: ptr(150)}}, accountsFor(100, 1))

	require.Len(t, out, 1)
	assert.Equal(t, credits.StateNotified, out[0].State)
	assert.Len(t, out[0].TeardownFailures, 1)
	assert.Equal(t, []string{"p-ok"}, reaper.deleted)
	assert.Len(t, notifier.byKind(alerts.KindExhaustion), 1)
}

func TestRemediationCoordinator_NotifyFailure(t *testing.T) {
	store := newFakeStore()
	store.addUser(1, nil, "p-1")
	notifier := &fakeNotifier{fail: map[int64]error{1: errors.New("smtp down")}}
	c := credits.NewRemediationCoordinator(store, &fakeReaper{}, notifier, 1, testLogger())

	out := c.Remediate(context.Background(), []credits.Snapshot{{UserID: 1, Live: ptr(150)}}, accountsFor(100, 1))

	require.Len(t, out, 1)
	assert.Equal(t, credits.StateTeardownAttempted, out[0].State)
	assert.Error(t, out[0].NotifyErr)

	// Deactivation is not rolled back.
	eligible, err := store.ActiveBenefitCreators(context.Background(), []int64{1})
	require.NoError(t, err)
	assert.Empty(t, eligible)
}

func TestRemediationState_String(t *testing.T) {
	assert.Equal(t, "pending", credits.StatePending.String())
	assert.Equal(t, "teardown_attempted", credits.StateTeardownAttempted.String())
	assert.Equal(t, "notified", credits.StateNotified.String())
}
