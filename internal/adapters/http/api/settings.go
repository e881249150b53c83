package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
)

// SettingsService exposes probability weights and history.
type SettingsService interface {
	GetSettings(ctx context.Context) (model.Settings, error)
	UpdateProbabilitySettings(ctx context.Context, ps model.ProbabilitySettings) (model.Settings, error)
	ListHistory(ctx context.Context, limit int) ([]types.HistoryEntry, error)
}

// SettingsHandler handles /settings and /history.
type SettingsHandler struct {
	svc SettingsService
}

// NewSettingsHandler creates a new settings handler.
func NewSettingsHandler(svc SettingsService) *SettingsHandler {
	return &SettingsHandler{svc: svc}
}

// HandleGet handles GET /settings.
func (h *SettingsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_settings"
	s, err := h.svc.GetSettings(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleUpdate handles PUT /settings with a ProbabilitySettings body.
func (h *SettingsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_settings"
	var req model.ProbabilitySettings
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	s, err := h.svc.UpdateProbabilitySettings(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// HandleHistory handles GET /history[?limit=N]. No limit returns everything.
func (h *SettingsHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_history"
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		limit = n
	}
	out, err := h.svc.ListHistory(r.Context(), limit)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
