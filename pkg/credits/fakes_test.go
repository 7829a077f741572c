package credits_test

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/ogulcanaydogan/credit-guardian/pkg/alerts"
	"github.com/ogulcanaydogan/credit-guardian/pkg/credits"
	"github.com/ogulcanaydogan/credit-guardian/pkg/model"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func ptr(v float64) *float64 { return &v }

// fakeStore keeps users and benefit workspaces in memory. A user is eligible
// while they own at least one workspace with the benefit still active.
type fakeStore struct {
	mu         sync.Mutex
	users      map[int64]model.User
	workspaces map[int64][]model.Workspace // by creator

	usersErr       error
	eligibilityErr error
	markErr        map[int64]error

	eligibilityCalls int
	markCalls        map[int64]int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:      map[int64]model.User{},
		workspaces: map[int64][]model.Workspace{},
		markErr:    map[int64]error{},
		markCalls:  map[int64]int{},
	}
}

func (s *fakeStore) addUser(id int64, override *float64, workspaces ...string) {
	s.users[id] = model.User{ID: id, Username: "user", ContactEmail: "user@example.com", LimitOverrideUSD: override}
	for i, project := range workspaces {
		s.workspaces[id] = append(s.workspaces[id], model.Workspace{
			ID:            id*100 + int64(i),
			GoogleProject: project,
			CreatorID:     id,
			Active:        true,
			BillingStatus: model.BillingActive,
		})
	}
}

func (s *fakeStore) GetUsers(_ context.Context, ids []int64) (map[int64]model.User, error) {
	if s.usersErr != nil {
		return nil, s.usersErr
	}
	out := map[int64]model.User{}
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (s *fakeStore) ActiveBenefitCreators(_ context.Context, ids []int64) (map[int64]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.eligibilityCalls++
	if s.eligibilityErr != nil {
		return nil, s.eligibilityErr
	}
	out := map[int64]struct{}{}
	for _, id := range ids {
		for _, ws := range s.workspaces[id] {
			if !ws.InitialCreditsExhausted {
				out[id] = struct{}{}
				break
			}
		}
	}
	return out, nil
}

func (s *fakeStore) MarkExhausted(_ context.Context, userID int64) ([]model.Workspace, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.markCalls[userID]++
	if err := s.markErr[userID]; err != nil {
		return nil, err
	}
	var changed []model.Workspace
	for i, ws := range s.workspaces[userID] {
		if ws.InitialCreditsExhausted {
			continue
		}
		ws.InitialCreditsExhausted = true
		ws.BillingStatus = model.BillingInactive
		s.workspaces[userID][i] = ws
		changed = append(changed, ws)
	}
	return changed, nil
}

type fakeReaper struct {
	mu      sync.Mutex
	deleted []string
	fail    map[string]error
}

func (r *fakeReaper) DeleteAllResources(_ context.Context, ws model.Workspace) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.fail[ws.GoogleProject]; err != nil {
		return err
	}
	r.deleted = append(r.deleted, ws.GoogleProject)
	return nil
}

type fakeNotifier struct {
	mu   sync.Mutex
	sent []alerts.Notification
	fail map[int64]error
}

func (n *fakeNotifier) Name() string { return "fake" }

func (n *fakeNotifier) Send(_ context.Context, note alerts.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[note.UserID]; err != nil {
		return err
	}
	n.sent = append(n.sent, note)
	return nil
}

func (n *fakeNotifier) byKind(kind alerts.Kind) []alerts.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []alerts.Notification
	for _, note := range n.sent {
		if note.Kind == kind {
			out = append(out, note)
		}
	}
	return out
}

func (n *fakeNotifier) reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = nil
}

type recordingObserver struct {
	results []*credits.BatchResult
}

func (o *recordingObserver) ObserveBatch(r *credits.BatchResult) { o.results = append(o.results, r) }
