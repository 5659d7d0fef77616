package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/dukerupert/trimquest/internal/auth"
	"github.com/dukerupert/trimquest/internal/model"
	"github.com/dukerupert/trimquest/internal/push"
	"github.com/dukerupert/trimquest/internal/store"
)

type PushHandler struct {
	pushStore *store.PushStore
	service   *push.Service
	notifier  *push.Notifier
	logger    *slog.Logger
}

func NewPushHandler(ps *store.PushStore, svc *push.Service, notifier *push.Notifier, logger *slog.Logger) *PushHandler {
	return &PushHandler{pushStore: ps, service: svc, notifier: notifier, logger: logger}
}

// subscribeRequest mirrors the browser's PushSubscription.toJSON().
type subscribeRequest struct {
	Endpoint string `json:"endpoint"`
	Keys     struct {
		P256dh string `json:"p256dh"`
		Auth   string `json:"auth"`
	} `json:"keys"`
}

// Subscribe handles POST /api/push/subscribe
func (h *PushHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	var req subscribeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	if req.Endpoint == "" || req.Keys.P256dh == "" || req.Keys.Auth == "" {
		writeError(w, http.StatusBadRequest, "endpoint, keys.p256dh, and keys.auth are required")
		return
	}
	if u, err := url.Parse(req.Endpoint); err != nil || u.Scheme != "https" || u.Host == "" {
		writeError(w, http.StatusBadRequest, "endpoint must be an https URL")
		return
	}

	sub, err := h.pushStore.Upsert(r.Context(), userID, req.Endpoint, req.Keys.P256dh, req.Keys.Auth, r.UserAgent())
	if err != nil {
		h.logger.Error("save push subscription", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	writeJSON(w, http.StatusCreated, sub)
}

// Unsubscribe handles DELETE /api/push/subscriptions/{id}
func (h *PushHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	id, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	err = h.pushStore.Delete(r.Context(), id, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "subscription not found")
		return
	}
	if err != nil {
		h.logger.Error("delete push subscription", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListSubscriptions handles GET /api/push/subscriptions
func (h *PushHandler) ListSubscriptions(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	subs, err := h.pushStore.ListByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("list push subscriptions", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list subscriptions")
		return
	}
	if subs == nil {
		subs = []model.PushSubscription{}
	}
	writeJSON(w, http.StatusOK, subs)
}

// GetVAPIDKey handles GET /api/push/vapid-key
func (h *PushHandler) GetVAPIDKey(w http.ResponseWriter, r *http.Request) {
	if h.service == nil {
		writeError(w, http.StatusServiceUnavailable, "push notifications are not configured")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"public_key": h.service.VAPIDPublicKey()})
}

// TestNotification handles POST /api/push/test
func (h *PushHandler) TestNotification(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	summary := h.notifier.SendToUser(r.Context(), userID, push.Payload{
		Title: "Test Notification",
		Body:  "Push notifications are working!",
		Icon:  push.DefaultIcon,
		Badge: push.DefaultBadge,
		Data:  push.PayloadData{URL: "/settings/notifications"},
	})

	writeJSON(w, http.StatusOK, summary)
}
