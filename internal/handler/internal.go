package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/trimquest/internal/notify"
	"github.com/dukerupert/trimquest/internal/store"
)

// InternalHandler exposes dispatch to the rest of the application.
type InternalHandler struct {
	dispatcher *notify.Dispatcher
	groups     *notify.GroupNotifier
	groupStore *store.GroupStore
	logger     *slog.Logger
}

func NewInternalHandler(d *notify.Dispatcher, g *notify.GroupNotifier, gs *store.GroupStore, logger *slog.Logger) *InternalHandler {
	return &InternalHandler{dispatcher: d, groups: g, groupStore: gs, logger: logger}
}

// CreateNotification handles POST /internal/notifications
func (h *InternalHandler) CreateNotification(w http.ResponseWriter, r *http.Request) {
	var in notify.Input
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	out, err := h.dispatcher.Dispatch(r.Context(), in)
	if errors.Is(err, notify.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, store.ErrMissingReference) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("dispatch notification", "user_id", in.UserID, "type", in.Type, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create notification")
		return
	}

	status := http.StatusOK
	if out.Notification != nil {
		status = http.StatusCreated
	}
	writeJSON(w, status, out)
}

type groupNotificationRequest struct {
	notify.GroupInput
	// Audience is "members" (default), "admins" or "member".
	Audience string `json:"audience"`
	// UserID selects the recipient when Audience is "member".
	UserID int64 `json:"user_id"`
}

// NotifyGroup handles POST /internal/groups/{id}/notifications
func (h *InternalHandler) NotifyGroup(w http.ResponseWriter, r *http.Request) {
	groupID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	var req groupNotificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.GroupID = groupID

	group, err := h.groupStore.GetByID(r.Context(), groupID)
	if err != nil {
		h.logger.Error("get group", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load group")
		return
	}
	if group == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return
	}

	var sent int
	switch req.Audience {
	case "", "members":
		sent, err = h.groups.NotifyGroupMembers(r.Context(), req.GroupInput)
	case "admins":
		sent, err = h.groups.NotifyGroupAdmins(r.Context(), req.GroupInput)
	case "member":
		sent, err = h.notifyMember(r, req)
	default:
		writeError(w, http.StatusBadRequest, "audience must be members, admins or member")
		return
	}

	if errors.Is(err, notify.ErrInvalidInput) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user is not a member of this group")
		return
	}
	if err != nil {
		h.logger.Error("notify group", "group_id", groupID, "audience", req.Audience, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to notify group")
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"sent": sent})
}

func (h *InternalHandler) notifyMember(r *http.Request, req groupNotificationRequest) (int, error) {
	m, err := h.groupStore.GetMember(r.Context(), req.GroupID, req.UserID)
	if err != nil {
		return 0, err
	}
	if m == nil {
		return 0, store.ErrNotFound
	}

	in := notify.Input{
		UserID:    req.UserID,
		Type:      req.Type,
		Title:     req.Title,
		Message:   req.Message,
		ActionURL: req.ActionURL,
		ActorID:   req.ActorID,
		RelatedID: req.RelatedID,
		Metadata:  req.Metadata,
	}
	n, err := h.groups.NotifyGroupMember(r.Context(), in)
	if err != nil || n == nil {
		return 0, err
	}
	return 1, nil
}
