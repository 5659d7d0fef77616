package push

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/trimquest/internal/model"
)

type fakeSender struct {
	mu      sync.Mutex
	results map[string]error
	sent    []string
}

func (f *fakeSender) Send(ctx context.Context, sub *model.PushSubscription, payload Payload) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sub.Endpoint)
	return f.results[sub.Endpoint]
}

type fakeSubs struct {
	subs    []model.PushSubscription
	listErr error
	touched []string
	deleted []string
}

func (f *fakeSubs) ListByUser(ctx context.Context, userID int64) ([]model.PushSubscription, error) {
	return f.subs, f.listErr
}

func (f *fakeSubs) Touch(ctx context.Context, endpoint string, at time.Time) error {
	f.touched = append(f.touched, endpoint)
	return nil
}

func (f *fakeSubs) DeleteByEndpoint(ctx context.Context, endpoint string) error {
	f.deleted = append(f.deleted, endpoint)
	return nil
}

func TestSendToUserIsolatesDevices(t *testing.T) {
	subs := &fakeSubs{subs: []model.PushSubscription{
		{ID: 1, UserID: 7, Endpoint: "https://push.example.com/gone"},
		{ID: 2, UserID: 7, Endpoint: "https://push.example.com/flaky"},
		{ID: 3, UserID: 7, Endpoint: "https://push.example.com/ok"},
	}}
	sender := &fakeSender{results: map[string]error{
		"https://push.example.com/gone":  &StatusError{StatusCode: 410},
		"https://push.example.com/flaky": &StatusError{StatusCode: 500},
	}}

	n := NewNotifier(sender, subs, slog.Default())
	got := n.SendToUser(context.Background(), 7, Payload{Title: "t"})

	want := Summary{Sent: 1, Failed: 2, Total: 3, Removed: 1}
	if got != want {
		t.Errorf("summary = %+v, want %+v", got, want)
	}
	if len(sender.sent) != 3 {
		t.Errorf("attempts = %d, want 3", len(sender.sent))
	}
	if len(subs.deleted) != 1 || subs.deleted[0] != "https://push.example.com/gone" {
		t.Errorf("deleted = %v, want only the gone endpoint", subs.deleted)
	}
	if len(subs.touched) != 1 || subs.touched[0] != "https://push.example.com/ok" {
		t.Errorf("touched = %v, want only the ok endpoint", subs.touched)
	}
}

func TestSendToUserNoSubscriptions(t *testing.T) {
	n := NewNotifier(&fakeSender{}, &fakeSubs{}, slog.Default())
	got := n.SendToUser(context.Background(), 7, Payload{Title: "t"})

	if got.Success() {
		t.Error("expected no success")
	}
	if got.Message != "No subscriptions found" {
		t.Errorf("message = %q, want %q", got.Message, "No subscriptions found")
	}
}

func TestSendToUserListError(t *testing.T) {
	n := NewNotifier(&fakeSender{}, &fakeSubs{listErr: errors.New("db down")}, slog.Default())
	got := n.SendToUser(context.Background(), 7, Payload{Title: "t"})

	if got.Total != 0 || got.Message == "" {
		t.Errorf("summary = %+v, want soft failure", got)
	}
}

func TestSendToUserNotConfigured(t *testing.T) {
	subs := &fakeSubs{subs: []model.PushSubscription{{Endpoint: "https://push.example.com/1"}}}
	n := NewNotifier(nil, subs, slog.Default())

	got := n.SendToUser(context.Background(), 7, Payload{Title: "t"})
	if got.Total != 0 {
		t.Errorf("total = %d, want 0", got.Total)
	}
	if got.Message != "Push not configured" {
		t.Errorf("message = %q", got.Message)
	}
}
