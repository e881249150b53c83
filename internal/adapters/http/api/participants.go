package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
)

// ParticipantService manages the roster.
type ParticipantService interface {
	ListParticipants(ctx context.Context, activeOnly bool) ([]model.Participant, error)
	GetParticipant(ctx context.Context, id string) (model.Participant, error)
	CreateParticipant(ctx context.Context, req types.CreateParticipantRequest) (model.Participant, error)
	UpdateParticipant(ctx context.Context, id string, req types.UpdateParticipantRequest) (model.Participant, error)
	RecordPlay(ctx context.Context, id string, playedAt time.Time) (model.Participant, error)
}

// ParticipantsHandler handles the /participants routes.
type ParticipantsHandler struct {
	svc   ParticipantService
	dates DateParser
}

// NewParticipantsHandler creates a new participants handler.
func NewParticipantsHandler(svc ParticipantService, dates DateParser) *ParticipantsHandler {
	return &ParticipantsHandler{svc: svc, dates: dates}
}

// HandleList handles GET /participants[?active=true].
func (h *ParticipantsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_participants"
	activeOnly := false
	if raw := r.URL.Query().Get("active"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
			return
		}
		activeOnly = v
	}
	out, err := h.svc.ListParticipants(r.Context(), activeOnly)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /participants.
func (h *ParticipantsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_participant"
	var req types.CreateParticipantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.svc.CreateParticipant(r.Context(), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /participants/{id}.
func (h *ParticipantsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_participant"
	p, err := h.svc.GetParticipant(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleUpdate handles PATCH /participants/{id}.
func (h *ParticipantsHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	const op = "api.update_participant"
	var req types.UpdateParticipantRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	p, err := h.svc.UpdateParticipant(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandleRecordPlay handles POST /participants/{id}/plays.
func (h *ParticipantsHandler) HandleRecordPlay(w http.ResponseWriter, r *http.Request) {
	const op = "api.record_play"
	var req types.RecordPlayRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	playedAt, err := parseOptionalDate(h.dates, req.PlayedAt)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	p, err := h.svc.RecordPlay(r.Context(), r.PathValue("id"), playedAt)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}
