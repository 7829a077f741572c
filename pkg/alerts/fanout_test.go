package alerts_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	name string
	err  error

	mu   sync.Mutex
	sent []alerts.Notification
}

func (r *recordingNotifier) Name() string { return r.name }

func (r *recordingNotifier) Send(_ context.Context, n alerts.Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return r.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestFanout_DeliversToAll(t *testing.T) {
	user := &recordingNotifier{name: "email"}
	ops := &recordingNotifier{name: "slack"}
	f := alerts.NewFanout(quietLogger(), user, nil, ops)
	assert.Equal(t, 2, f.Len())

	require.NoError(t, f.Send(context.Background(), alerts.NewExhaustionNotification(testUser, 100, 101)))
	assert.Len(t, user.sent, 1)
	assert.Len(t, ops.sent, 1)
}

func TestFanout_OpsCopyFailureDoesNotFailDelivery(t *testing.T) {
	user := &recordingNotifier{name: "email"}
	ops := &recordingNotifier{name: "slack", err: errors.New("slack down")}
	f := alerts.NewFanout(quietLogger(), user, ops)

	require.NoError(t, f.Send(context.Background(), alerts.NewExhaustionNotification(testUser, 100, 101)))
	assert.Len(t, user.sent, 1)
	assert.Len(t, ops.sent, 1)
}

func TestFanout_PrimaryFailureIsReturned(t *testing.T) {
	bounce := errors.New("bounce")
	user := &recordingNotifier{name: "email", err: bounce}
	ops := &recordingNotifier{name: "slack"}
	f := alerts.NewFanout(quietLogger(), user, ops)

	err := f.Send(context.Background(), alerts.NewExhaustionNotification(testUser, 100, 101))
	require.Error(t, err)
	assert.ErrorIs(t, err, bounce)
	assert.Contains(t, err.Error(), "email: bounce")
	assert.Len(t, ops.sent, 1, "copies are still sent")
}

func TestFanout_CopiesOnly(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingNotifier{name: "slack", err: boom}
	b := &recordingNotifier{name: "webhook"}

	f := alerts.NewFanout(quietLogger(), nil, a, b)
	assert.NoError(t, f.Send(context.Background(), alerts.Notification{}), "one copy delivered")

	b.err = errors.New("timeout")
	err := f.Send(context.Background(), alerts.Notification{})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "webhook: timeout")
}

func TestFanout_NoChannels(t *testing.T) {
	f := alerts.NewFanout(quietLogger(), nil)
	assert.Equal(t, 0, f.Len())
	assert.ErrorIs(t, f.Send(context.Background(), alerts.Notification{}), alerts.ErrNoChannels)
}
