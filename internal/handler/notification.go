package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/trimquest/internal/auth"
	"github.com/dukerupert/trimquest/internal/store"
	ws "github.com/dukerupert/trimquest/internal/websocket"
)

type NotificationHandler struct {
	store  *store.NotificationStore
	hub    *ws.Hub
	logger *slog.Logger
}

func NewNotificationHandler(ns *store.NotificationStore, hub *ws.Hub, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{store: ns, hub: hub, logger: logger}
}

// List handles GET /api/notifications?page=&limit=
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())
	page := queryInt(r, "page", 1)
	limit := queryInt(r, "limit", store.DefaultPageLimit)

	result, err := h.store.List(r.Context(), userID, page, limit)
	if err != nil {
		h.logger.Error("list notifications", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list notifications")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// UnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	count, err := h.store.UnreadCount(r.Context(), userID)
	if err != nil {
		h.logger.Error("count unread notifications", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to count notifications")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// MarkRead handles POST /api/notifications/{id}/read
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	n, err := h.store.MarkAsRead(r.Context(), id, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		h.logger.Error("mark notification read", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notification")
		return
	}

	h.hub.Send(userID, ws.NewMessage("notification", "read", id, nil))
	writeJSON(w, http.StatusOK, n)
}

// MarkAllRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	updated, err := h.store.MarkAllAsRead(r.Context(), userID)
	if err != nil {
		h.logger.Error("mark all notifications read", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update notifications")
		return
	}

	if updated > 0 {
		h.hub.Send(userID, ws.NewMessage("notification", "read_all", 0, map[string]any{"updated": updated}))
	}
	writeJSON(w, http.StatusOK, map[string]int64{"updated": updated})
}

// Delete handles DELETE /api/notifications/{id}
func (h *NotificationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.store.Delete(r.Context(), id, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "notification not found")
		return
	}
	if err != nil {
		h.logger.Error("delete notification", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete notification")
		return
	}

	h.hub.Send(userID, ws.NewMessage("notification", "deleted", id, nil))
	w.WriteHeader(http.StatusNoContent)
}
