package api

import (
	"context"
	"net/http"
	"time"

	"github.com/okian/blindtest/internal/domain/types"
)

// MockDateService controls the debug date override.
type MockDateService interface {
	MockDateAllowed() bool
	GetMockDate() (types.MockDate, error)
	SetMockDate(ctx context.Context, date time.Time) (types.MockDate, error)
	ClearMockDate(ctx context.Context) (types.MockDate, error)
}

// DebugHandler handles /debug/mock-date. Every route answers 404 unless
// the override is enabled.
type DebugHandler struct {
	svc   MockDateService
	dates DateParser
}

// NewDebugHandler creates a new debug handler.
func NewDebugHandler(svc MockDateService, dates DateParser) *DebugHandler {
	return &DebugHandler{svc: svc, dates: dates}
}

func (h *DebugHandler) enabled(w http.ResponseWriter, r *http.Request) bool {
	if h.svc.MockDateAllowed() {
		return true
	}
	http.NotFound(w, r)
	return false
}

// HandleGet handles GET /debug/mock-date.
func (h *DebugHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_mock_date"
	if !h.enabled(w, r) {
		return
	}
	out, err := h.svc.GetMockDate()
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSet handles PUT /debug/mock-date.
func (h *DebugHandler) HandleSet(w http.ResponseWriter, r *http.Request) {
	const op = "api.set_mock_date"
	if !h.enabled(w, r) {
		return
	}
	var req types.MockDateRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	date, err := h.dates.ParseDate(req.Date)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	out, err := h.svc.SetMockDate(r.Context(), date)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleClear handles DELETE /debug/mock-date.
func (h *DebugHandler) HandleClear(w http.ResponseWriter, r *http.Request) {
	const op = "api.clear_mock_date"
	if !h.enabled(w, r) {
		return
	}
	out, err := h.svc.ClearMockDate(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
