package websocket

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/trimquest/internal/auth"
	"github.com/dukerupert/trimquest/internal/model"
)

type staticCounter int

func (c staticCounter) UnreadCount(context.Context, int64) (int, error) { return int(c), nil }

func dialFeed(t *testing.T, ctx context.Context, hub *Hub, counter UnreadCounter, userID int64) *ws.Conn {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	srv := httptest.NewServer(withUser(userID, HandleWebSocket(hub, counter, nil, logger)))
	t.Cleanup(srv.Close)

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close(ws.StatusNormalClosure, "") })

	deadline := time.Now().Add(2 * time.Second)
	for hub.UserClientCount(userID) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}
	return conn
}

func readMessage(t *testing.T, ctx context.Context, conn *ws.Conn) Message {
	t.Helper()
	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return msg
}

func withUser(userID int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID != 0 {
			r = r.WithContext(auth.WithAuth(r.Context(), auth.AuthContext{UserID: userID}))
		}
		next.ServeHTTP(w, r)
	})
}

func TestHandleWebSocketDeliversNotification(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	hub := NewHub(logger)
	srv := httptest.NewServer(withUser(5, HandleWebSocket(hub, nil, nil, logger)))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn, _, err := ws.Dial(ctx, "ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close(ws.StatusNormalClosure, "")

	deadline := time.Now().Add(2 * time.Second)
	for hub.UserClientCount(5) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	hub.Publish(5, &model.Notification{ID: 9, UserID: 5, Type: model.NotifMention, Title: "Mentioned"})

	_, data, err := conn.Read(ctx)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var got Message
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Type != "notification_created" || got.ID != 9 {
		t.Errorf("message = %+v, want notification_created for id 9", got)
	}
}

func TestHandleWebSocketRequiresUser(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ws", nil)

	HandleWebSocket(NewHub(logger), nil, nil, logger).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestHandleWebSocketSendsUnreadCountFirst(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	conn := dialFeed(t, ctx, hub, staticCounter(4), 6)

	hub.Publish(6, &model.Notification{ID: 11, UserID: 6, Type: model.NotifLike, Title: "Liked"})

	first := readMessage(t, ctx, conn)
	if first.Type != "notification_sync" || first.Extra["unread"] != float64(4) {
		t.Errorf("first message = %+v, want notification_sync with 4 unread", first)
	}
	if second := readMessage(t, ctx, conn); second.Type != "notification_created" || second.ID != 11 {
		t.Errorf("second message = %+v, want notification_created for id 11", second)
	}
}

func TestLaggedClientGetsResync(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	conn := dialFeed(t, ctx, hub, nil, 8)

	hub.mu.RLock()
	for c := range hub.clients[8] {
		c.lagged.Store(true)
	}
	hub.mu.RUnlock()

	hub.Publish(8, &model.Notification{ID: 3, UserID: 8, Type: model.NotifComment, Title: "Comment"})

	if got := readMessage(t, ctx, conn); got.Type != "notification_created" {
		t.Errorf("first message = %+v, want notification_created", got)
	}
	if got := readMessage(t, ctx, conn); got.Type != "notification_resync" {
		t.Errorf("second message = %+v, want notification_resync", got)
	}
}
