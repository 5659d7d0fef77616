package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/dukerupert/trimquest/internal/model"
	"github.com/dukerupert/trimquest/internal/store"
)

// DirectoryHandler keeps the local copy of users, groups and memberships in
// step with the rest of the application.
type DirectoryHandler struct {
	users  *store.UserStore
	groups *store.GroupStore
	logger *slog.Logger
}

func NewDirectoryHandler(us *store.UserStore, gs *store.GroupStore, logger *slog.Logger) *DirectoryHandler {
	return &DirectoryHandler{users: us, groups: gs, logger: logger}
}

type userRequest struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// UpsertUser handles POST /internal/users. With an id the row is created or
// replaced under that id; without one a new id is assigned.
func (h *DirectoryHandler) UpsertUser(w http.ResponseWriter, r *http.Request) {
	var req userRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.ID < 0 {
		writeError(w, http.StatusBadRequest, "id must be positive")
		return
	}

	var (
		u      *model.User
		err    error
		status = http.StatusOK
	)
	if req.ID > 0 {
		u, err = h.users.Upsert(r.Context(), req.ID, req.Email, req.Name)
	} else {
		u, err = h.users.Create(r.Context(), req.Email, req.Name)
		status = http.StatusCreated
	}
	if errors.Is(err, store.ErrConflict) {
		writeError(w, http.StatusConflict, "email already belongs to another user")
		return
	}
	if err != nil {
		h.logger.Error("save user", "user_id", req.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save user")
		return
	}
	writeJSON(w, status, u)
}

// CreateGroup handles POST /internal/groups
func (h *DirectoryHandler) CreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	g, err := h.groups.Create(r.Context(), req.Name)
	if err != nil {
		h.logger.Error("create group", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create group")
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

// SetMember handles POST /internal/groups/{id}/members. An existing member
// gets the new role.
func (h *DirectoryHandler) SetMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.loadGroup(w, r)
	if !ok {
		return
	}

	var req struct {
		UserID int64  `json:"user_id"`
		Role   string `json:"role"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if req.Role == "" {
		req.Role = model.RoleMember
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}
	if !model.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "role must be ADMIN, MODERATOR or MEMBER")
		return
	}

	m, err := h.groups.SetMember(r.Context(), groupID, req.UserID, req.Role)
	if errors.Is(err, store.ErrMissingReference) {
		writeError(w, http.StatusNotFound, "user not found")
		return
	}
	if err != nil {
		h.logger.Error("set group member", "group_id", groupID, "user_id", req.UserID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save member")
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// RemoveMember handles DELETE /internal/groups/{id}/members/{userID}
func (h *DirectoryHandler) RemoveMember(w http.ResponseWriter, r *http.Request) {
	groupID, ok := h.loadGroup(w, r)
	if !ok {
		return
	}
	userID, err := strconv.ParseInt(r.PathValue("userID"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid user id")
		return
	}

	err = h.groups.RemoveMember(r.Context(), groupID, userID)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "user is not a member of this group")
		return
	}
	if err != nil {
		h.logger.Error("remove group member", "group_id", groupID, "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to remove member")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *DirectoryHandler) loadGroup(w http.ResponseWriter, r *http.Request) (int64, bool) {
	groupID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return 0, false
	}
	g, err := h.groups.GetByID(r.Context(), groupID)
	if err != nil {
		h.logger.Error("get group", "group_id", groupID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load group")
		return 0, false
	}
	if g == nil {
		writeError(w, http.StatusNotFound, "group not found")
		return 0, false
	}
	return groupID, true
}
