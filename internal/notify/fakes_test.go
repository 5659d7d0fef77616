package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/dukerupert/trimquest/internal/email"
	"github.com/dukerupert/trimquest/internal/model"
	"github.com/dukerupert/trimquest/internal/push"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeNotifications struct {
	mu      sync.Mutex
	nextID  int64
	created []model.Notification
	failFor map[int64]error
	panicOn map[int64]bool
}

func (f *fakeNotifications) Create(_ context.Context, n *model.Notification) (*model.Notification, error) {
	if f.panicOn[n.UserID] {
		panic("boom")
	}
	if err := f.failFor[n.UserID]; err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	stored := *n
	stored.ID = f.nextID
	f.created = append(f.created, stored)
	return &stored, nil
}

func (f *fakeNotifications) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.created)
}

type fakePrefs struct {
	byUser map[int64]*model.NotificationPreference
	err    error
}

func (f *fakePrefs) GetByUser(_ context.Context, userID int64) (*model.NotificationPreference, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.byUser[userID], nil
}

type pushCall struct {
	userID  int64
	payload push.Payload
}

type fakePush struct {
	mu    sync.Mutex
	calls []pushCall
}

func (f *fakePush) SendToUser(_ context.Context, userID int64, payload push.Payload) push.Summary {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, pushCall{userID, payload})
	return push.Summary{Sent: 1, Total: 1}
}

type fakeEmail struct {
	mu    sync.Mutex
	calls []email.Notification
	fail  bool
}

func (f *fakeEmail) SendNotification(_ context.Context, _ int64, n email.Notification) email.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, n)
	if f.fail {
		return email.Result{Message: "Failed to send email", Err: errors.New("provider down")}
	}
	return email.Result{Success: true}
}

type fakePublisher struct {
	mu        sync.Mutex
	published []int64
}

func (f *fakePublisher) Publish(userID int64, _ *model.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, userID)
}

type fakeMembers struct {
	members []model.GroupMember
	err     error
}

func (f *fakeMembers) ListMembers(_ context.Context, groupID int64, roles ...string) ([]model.GroupMember, error) {
	if f.err != nil {
		return nil, f.err
	}
	var out []model.GroupMember
	for _, m := range f.members {
		if m.GroupID != groupID {
			continue
		}
		if len(roles) > 0 && !contains(roles, m.Role) {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
