package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
)

// WheelService scores the roster and picks the next DJ.
type WheelService interface {
	GetScoredRoster(ctx context.Context) ([]model.ScoredParticipant, error)
	Spin(ctx context.Context, enforce bool) (types.SpinResult, error)
	ConfirmWinner(ctx context.Context, participantID string) (types.Session, error)
}

// WheelHandler handles the /wheel routes.
type WheelHandler struct {
	svc WheelService
}

// NewWheelHandler creates a new wheel handler.
func NewWheelHandler(svc WheelService) *WheelHandler {
	return &WheelHandler{svc: svc}
}

// HandleRoster handles GET /wheel/roster.
func (h *WheelHandler) HandleRoster(w http.ResponseWriter, r *http.Request) {
	const op = "api.wheel_roster"
	roster, err := h.svc.GetScoredRoster(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, roster)
}

// HandleSpin handles POST /wheel/spin[?enforce=true]. An empty roster is a
// 200 with status no_active_participants.
func (h *WheelHandler) HandleSpin(w http.ResponseWriter, r *http.Request) {
	const op = "api.wheel_spin"
	enforce := false
	if raw := r.URL.Query().Get("enforce"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		enforce = v
	}
	res, err := h.svc.Spin(r.Context(), enforce)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleConfirm handles POST /wheel/confirm.
func (h *WheelHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	const op = "api.wheel_confirm"
	var req types.ConfirmRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ParticipantID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing participantId")))
		return
	}
	sess, err := h.svc.ConfirmWinner(r.Context(), req.ParticipantID)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}
