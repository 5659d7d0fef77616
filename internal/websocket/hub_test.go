package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/dukerupert/trimquest/internal/model"
)

// mockClient creates a Client with a send channel but no real connection.
func mockClient(hub *Hub, userID int64) *Client {
	return &Client{
		hub:    hub,
		conn:   nil,
		userID: userID,
		send:   make(chan []byte, sendBufferSize),
	}
}

func TestRegisterUnregister(t *testing.T) {
	hub := NewHub(slog.Default())

	c1 := mockClient(hub, 1)
	c2 := mockClient(hub, 1)
	c3 := mockClient(hub, 2)

	hub.Register(c1)
	hub.Register(c2)
	hub.Register(c3)

	if got := hub.ClientCount(); got != 3 {
		t.Fatalf("expected 3 clients, got %d", got)
	}
	if got := hub.UserClientCount(1); got != 2 {
		t.Fatalf("expected 2 sessions for user 1, got %d", got)
	}

	hub.Unregister(c1)
	hub.Unregister(c2)

	if got := hub.UserClientCount(1); got != 0 {
		t.Fatalf("expected 0 sessions for user 1, got %d", got)
	}
	if got := hub.ClientCount(); got != 1 {
		t.Fatalf("expected 1 client, got %d", got)
	}

	hub.Unregister(c3)
}

func TestDoubleUnregister(t *testing.T) {
	hub := NewHub(slog.Default())
	c := mockClient(hub, 1)
	hub.Register(c)
	hub.Unregister(c)
	// Should not panic
	hub.Unregister(c)

	if got := hub.ClientCount(); got != 0 {
		t.Fatalf("expected 0 clients, got %d", got)
	}
}

func TestPublishReachesOnlyRecipient(t *testing.T) {
	hub := NewHub(slog.Default())

	phone := mockClient(hub, 7)
	laptop := mockClient(hub, 7)
	other := mockClient(hub, 8)
	hub.Register(phone)
	hub.Register(laptop)
	hub.Register(other)

	hub.Publish(7, &model.Notification{ID: 42, UserID: 7, Type: model.NotifComment, Title: "New comment"})

	for _, c := range []*Client{phone, laptop} {
		select {
		case data := <-c.send:
			var got Message
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal: %v", err)
			}
			if got.Type != "notification_created" {
				t.Errorf("expected type notification_created, got %s", got.Type)
			}
			if got.ID != 42 {
				t.Errorf("expected id 42, got %d", got.ID)
			}
			if got.Notification == nil || got.Notification.Title != "New comment" {
				t.Errorf("notification = %+v, want embedded record", got.Notification)
			}
		case <-time.After(100 * time.Millisecond):
			t.Fatal("timeout waiting for message")
		}
	}

	select {
	case <-other.send:
		t.Error("another user's session received the notification")
	default:
	}
}

func TestSendUnknownUser(t *testing.T) {
	hub := NewHub(slog.Default())
	// Should not panic
	hub.Send(99, NewMessage("notification", "read", 1, nil))
}

func TestSendFullBuffer(t *testing.T) {
	hub := NewHub(slog.Default())

	c := mockClient(hub, 1)
	hub.Register(c)

	for i := 0; i < sendBufferSize; i++ {
		hub.Send(1, NewMessage("test", "fill", int64(i), nil))
	}

	// This should drop the message, not panic or block
	hub.Send(1, NewMessage("test", "dropped", 999, nil))

	count := 0
	for {
		select {
		case <-c.send:
			count++
		default:
			goto done
		}
	}
done:
	if count != sendBufferSize {
		t.Errorf("expected %d messages, got %d", sendBufferSize, count)
	}
	if !c.lagged.Load() {
		t.Error("expected the client to be marked lagged after a drop")
	}

	hub.Unregister(c)
}

func TestNewMessage(t *testing.T) {
	msg := NewMessage("notification", "read_all", 0, map[string]any{"count": 3})
	if msg.Type != "notification_read_all" {
		t.Errorf("expected type notification_read_all, got %s", msg.Type)
	}
	if msg.Entity != "notification" {
		t.Errorf("expected entity notification, got %s", msg.Entity)
	}
	if msg.Action != "read_all" {
		t.Errorf("expected action read_all, got %s", msg.Action)
	}
}

func TestConcurrentAccess(t *testing.T) {
	hub := NewHub(slog.Default())
	var wg sync.WaitGroup

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(userID int64) {
			defer wg.Done()
			c := mockClient(hub, userID)
			hub.Register(c)
			hub.Send(userID, NewMessage("test", "concurrent", 0, nil))
			for {
				select {
				case <-c.send:
				default:
					hub.Unregister(c)
					return
				}
			}
		}(int64(i % 4))
	}

	wg.Wait()

	if got := hub.ClientCount(); got != 0 {
		t.Errorf("expected 0 clients after concurrent test, got %d", got)
	}
}
