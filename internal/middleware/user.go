package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/dukerupert/trimquest/internal/auth"
)

// UserRegistrar creates a local row for an authenticated user id.
type UserRegistrar interface {
	Ensure(ctx context.Context, id int64) error
}

// EnsureUser makes sure the authenticated user has a local row before any
// handler writes rows that reference it. Ids already seen by this process
// are not checked again. Must run after RequireAuth.
func EnsureUser(users UserRegistrar, logger *slog.Logger) func(http.Handler) http.Handler {
	var seen sync.Map
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := auth.UserID(r.Context())
			if _, ok := seen.Load(userID); !ok && userID > 0 {
				if err := users.Ensure(r.Context(), userID); err != nil {
					logger.Error("ensure user", "user_id", userID, "error", err)
					http.Error(w, "Internal Server Error", http.StatusInternalServerError)
					return
				}
				seen.Store(userID, struct{}{})
			}
			next.ServeHTTP(w, r)
		})
	}
}
