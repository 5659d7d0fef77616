package websocket

import (
	"context"
	"log/slog"
	"net/http"

	ws "github.com/coder/websocket"

	"github.com/dukerupert/trimquest/internal/auth"
)

// UnreadCounter reports how many unread notifications a user has.
type UnreadCounter interface {
	UnreadCount(ctx context.Context, userID int64) (int, error)
}

// HandleWebSocket upgrades an authenticated request and streams the user's
// notification events until the connection closes. When counter is set the
// first event is notification_sync with the current unread count.
func HandleWebSocket(hub *Hub, counter UnreadCounter, originPatterns []string, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.UserID(r.Context())
		if userID == 0 {
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}

		conn, err := ws.Accept(w, r, &ws.AcceptOptions{
			OriginPatterns: originPatterns,
		})
		if err != nil {
			logger.Warn("websocket accept", "user_id", userID, "error", err)
			return
		}

		var greeting *Message
		if counter != nil {
			if n, err := counter.UnreadCount(r.Context(), userID); err != nil {
				logger.Warn("websocket unread count", "user_id", userID, "error", err)
			} else {
				msg := NewMessage("notification", "sync", 0, map[string]any{"unread": n})
				greeting = &msg
			}
		}

		NewClient(hub, conn, userID).Run(r.Context(), greeting)
	}
}
