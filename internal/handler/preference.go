package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/trimquest/internal/auth"
	"github.com/dukerupert/trimquest/internal/model"
	"github.com/dukerupert/trimquest/internal/notify"
	"github.com/dukerupert/trimquest/internal/store"
)

type PreferenceHandler struct {
	store  *store.PreferenceStore
	logger *slog.Logger
}

func NewPreferenceHandler(ps *store.PreferenceStore, logger *slog.Logger) *PreferenceHandler {
	return &PreferenceHandler{store: ps, logger: logger}
}

// preferenceResponse pairs the stored switches (null when never set) with
// the values dispatch will actually use.
type preferenceResponse struct {
	Preferences *model.NotificationPreference            `json:"preferences"`
	Effective   map[model.Channel]map[model.Category]bool `json:"effective"`
}

func (h *PreferenceHandler) respond(w http.ResponseWriter, prefs *model.NotificationPreference) {
	writeJSON(w, http.StatusOK, preferenceResponse{
		Preferences: prefs,
		Effective:   notify.Effective(prefs),
	})
}

// Get handles GET /api/notifications/preferences
func (h *PreferenceHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.store.GetByUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("get notification preferences", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}
	h.respond(w, prefs)
}

// Update handles PUT /api/notifications/preferences. Fields missing from the
// body keep their stored value; an explicit null clears a switch back to
// its default.
func (h *PreferenceHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID := auth.UserID(r.Context())

	prefs, err := h.load(r.Context(), userID)
	if err != nil {
		h.logger.Error("get notification preferences", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get preferences")
		return
	}

	if err := decodeJSON(w, r, prefs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	prefs.UserID = userID

	if err := validateQuietHours(prefs); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	saved, err := h.store.Upsert(r.Context(), prefs)
	if err != nil {
		h.logger.Error("save notification preferences", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update preferences")
		return
	}
	h.respond(w, saved)
}

func (h *PreferenceHandler) load(ctx context.Context, userID int64) (*model.NotificationPreference, error) {
	prefs, err := h.store.GetByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if prefs == nil {
		prefs = &model.NotificationPreference{}
	}
	return prefs, nil
}

func validateQuietHours(p *model.NotificationPreference) error {
	if (p.QuietHoursStart == nil) != (p.QuietHoursEnd == nil) {
		return errors.New("quiet_hours_start and quiet_hours_end must be set together")
	}
	for _, h := range []*int{p.QuietHoursStart, p.QuietHoursEnd} {
		if h != nil && (*h < 0 || *h > 23) {
			return errors.New("quiet hours must be between 0 and 23")
		}
	}
	return nil
}
