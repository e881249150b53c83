package api

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/okian/blindtest/internal/domain/types"
)

// SessionService drives daily session lifecycles.
type SessionService interface {
	CreatePendingSession(ctx context.Context, date time.Time, participantID string) (types.Session, error)
	GetSession(ctx context.Context, id string) (types.Session, error)
	ListSessions(ctx context.Context, from, to time.Time) ([]types.Session, error)
	Upcoming(ctx context.Context) (types.Upcoming, error)
	CompleteSession(ctx context.Context, id string, req types.CompleteSessionRequest) (types.Completion, error)
	SkipSession(ctx context.Context, id, reason string) (types.Session, error)
	PostponeSession(ctx context.Context, id string, override *time.Time) (types.Postponement, error)
}

// SessionsHandler handles the /sessions routes.
type SessionsHandler struct {
	svc   SessionService
	dates DateParser
}

// NewSessionsHandler creates a new sessions handler.
func NewSessionsHandler(svc SessionService, dates DateParser) *SessionsHandler {
	return &SessionsHandler{svc: svc, dates: dates}
}

// HandleList handles GET /sessions[?from=YYYY-MM-DD&to=YYYY-MM-DD].
func (h *SessionsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	const op = "api.list_sessions"
	q := r.URL.Query()
	from, err := parseOptionalDate(h.dates, q.Get("from"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	to, err := parseOptionalDate(h.dates, q.Get("to"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	out, err := h.svc.ListSessions(r.Context(), from, to)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleCreate handles POST /sessions. A taken date answers 409 with the
// existing session in the body.
func (h *SessionsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	const op = "api.create_session"
	var req types.CreateSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	if strings.TrimSpace(req.ParticipantID) == "" {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, errors.New("missing participantId")))
		return
	}
	date, err := h.dates.ParseDate(req.Date)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	sess, err := h.svc.CreatePendingSession(r.Context(), date, req.ParticipantID)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusCreated, sess)
}

// HandleUpcoming handles GET /sessions/upcoming.
func (h *SessionsHandler) HandleUpcoming(w http.ResponseWriter, r *http.Request) {
	const op = "api.upcoming_sessions"
	out, err := h.svc.Upcoming(r.Context())
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleGet handles GET /sessions/{id}.
func (h *SessionsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	const op = "api.get_session"
	sess, err := h.svc.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandleComplete handles POST /sessions/{id}/complete.
func (h *SessionsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	const op = "api.complete_session"
	var req types.CompleteSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	out, err := h.svc.CompleteSession(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSkip handles POST /sessions/{id}/skip.
func (h *SessionsHandler) HandleSkip(w http.ResponseWriter, r *http.Request) {
	const op = "api.skip_session"
	var req types.SkipSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	sess, err := h.svc.SkipSession(r.Context(), r.PathValue("id"), req.Reason)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// HandlePostpone handles POST /sessions/{id}/postpone.
func (h *SessionsHandler) HandlePostpone(w http.ResponseWriter, r *http.Request) {
	const op = "api.postpone_session"
	var req types.PostponeSessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", WrapKind(op, ErrBadRequest, err))
		return
	}
	var override *time.Time
	if req.OverrideDate != "" {
		d, err := h.dates.ParseDate(req.OverrideDate)
		if err != nil {
			writeFailure(w, op, err)
			return
		}
		override = &d
	}
	out, err := h.svc.PostponeSession(r.Context(), r.PathValue("id"), override)
	if err != nil {
		writeFailure(w, op, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

