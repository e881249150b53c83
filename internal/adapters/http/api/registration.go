package api

import (
	"context"
	"net/http"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
)

// RegistrationService reports and locks the daily registration window.
type RegistrationService interface {
	CanRegisterNow(ctx context.Context) (types.Registration, error)
	LockRegistrationForToday(ctx context.Context) (model.RegistrationLock, error)
}

// RegistrationHandler handles the /registration routes.
type RegistrationHandler struct {
	svc RegistrationService
}

// NewRegistrationHandler creates a new registration handler.
func NewRegistrationHandler(svc RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{svc: svc}
}

// HandleStatus handles GET /registration.
func (h *RegistrationHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	const op = "api.registration_status"
	reg, err := h.svc.CanRegisterNow(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, reg)
}

// HandleLock handles POST /registration/lock. Repeating it is harmless.
func (h *RegistrationHandler) HandleLock(w http.ResponseWriter, r *http.Request) {
	const op = "api.registration_lock"
	lock, err := h.svc.LockRegistrationForToday(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, lock)
}
