// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/session"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
)

const maxBodyBytes = 1 << 20

// DateParser turns YYYY-MM-DD wire dates into local midnights.
type DateParser interface {
	ParseDate(raw string) (time.Time, error)
}

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	DateParser
	StatsProvider
	ParticipantService
	SettingsService
	WheelService
	RegistrationService
	SessionService
	MockDateService
}

// Server wires HTTP routes for the business API.
type Server struct {
	log                 logger.Logger
	healthHandler       *HealthHandler
	statsHandler        *StatsHandler
	participantsHandler *ParticipantsHandler
	settingsHandler     *SettingsHandler
	wheelHandler        *WheelHandler
	registrationHandler *RegistrationHandler
	sessionsHandler     *SessionsHandler
	debugHandler        *DebugHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, log logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		log:                 log,
		healthHandler:       NewHealthHandler(),
		statsHandler:        NewStatsHandler(deps),
		participantsHandler: NewParticipantsHandler(deps, deps),
		settingsHandler:     NewSettingsHandler(deps),
		wheelHandler:        NewWheelHandler(deps),
		registrationHandler: NewRegistrationHandler(deps),
		sessionsHandler:     NewSessionsHandler(deps, deps),
		debugHandler:        NewDebugHandler(deps, deps),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(ctx context.Context, mux *http.ServeMux) {
	routes := []struct {
		pattern  string
		endpoint string
		handler  http.HandlerFunc
	}{
		{"GET /healthz", "healthz", s.healthHandler.HandleHealth},
		{"GET /metrics", "metrics", s.healthHandler.HandleHealth},
		{"GET /stats", "stats", s.statsHandler.HandleStats},

		{"GET /participants", "participants", s.participantsHandler.HandleList},
		{"POST /participants", "participants", s.participantsHandler.HandleCreate},
		{"GET /participants/{id}", "participant", s.participantsHandler.HandleGet},
		{"PATCH /participants/{id}", "participant", s.participantsHandler.HandleUpdate},
		{"POST /participants/{id}/plays", "participant_plays", s.participantsHandler.HandleRecordPlay},

		{"GET /settings", "settings", s.settingsHandler.HandleGet},
		{"PUT /settings", "settings", s.settingsHandler.HandleUpdate},
		{"GET /history", "history", s.settingsHandler.HandleHistory},

		{"GET /wheel/roster", "wheel_roster", s.wheelHandler.HandleRoster},
		{"POST /wheel/spin", "wheel_spin", s.wheelHandler.HandleSpin},
		{"POST /wheel/confirm", "wheel_confirm", s.wheelHandler.HandleConfirm},

		{"GET /registration", "registration", s.registrationHandler.HandleStatus},
		{"POST /registration/lock", "registration_lock", s.registrationHandler.HandleLock},

		{"GET /sessions", "sessions", s.sessionsHandler.HandleList},
		{"POST /sessions", "sessions", s.sessionsHandler.HandleCreate},
		{"GET /sessions/upcoming", "sessions_upcoming", s.sessionsHandler.HandleUpcoming},
		{"GET /sessions/{id}", "session", s.sessionsHandler.HandleGet},
		{"POST /sessions/{id}/complete", "session_complete", s.sessionsHandler.HandleComplete},
		{"POST /sessions/{id}/skip", "session_skip", s.sessionsHandler.HandleSkip},
		{"POST /sessions/{id}/postpone", "session_postpone", s.sessionsHandler.HandlePostpone},

		{"GET /debug/mock-date", "debug_mock_date", s.debugHandler.HandleGet},
		{"PUT /debug/mock-date", "debug_mock_date", s.debugHandler.HandleSet},
		{"DELETE /debug/mock-date", "debug_mock_date", s.debugHandler.HandleClear},
	}
	for _, r := range routes {
		mux.HandleFunc(r.pattern, MetricsMiddleware(LoggingMiddleware(s.log, r.handler), r.endpoint))
	}
	s.log.Debug(ctx, "api routes registered", logger.Int("routes", len(routes)))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, types.ErrorResponse{Code: code, Message: msg})
}

// writeFailure maps err onto a status and code by its kind. A session date
// conflict also carries the existing session.
func writeFailure(w http.ResponseWriter, op string, err error) {
	status, code := classify(err)
	resp := types.ErrorResponse{Code: code, Message: Wrap(op, err).Error()}
	var conflict *session.ConflictError
	if errors.As(err, &conflict) {
		existing := types.NewSession(conflict.Existing)
		resp.Existing = &existing
	}
	writeJSON(w, status, resp)
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest), errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, model.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, model.ErrConflict):
		return http.StatusConflict, "conflict"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// decodeJSON reads a JSON body into dst. An empty body leaves dst as is.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("invalid json body: %w", err)
	}
	return nil
}

// parseOptionalDate parses raw with p, treating "" as the zero time.
func parseOptionalDate(p DateParser, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	return p.ParseDate(raw)
}
