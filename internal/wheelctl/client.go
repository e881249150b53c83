package wheelctl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
)

// ErrUnexpectedResponse marks a response the client could not decode.
var ErrUnexpectedResponse = errors.New("unexpected response")

// APIError is a non-2xx answer from the service. It unwraps to the model
// kind matching its code so callers can use errors.Is.
type APIError struct {
	Status   int
	Code     string
	Message  string
	Existing *types.Session
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	switch e.Code {
	case "bad_request":
		return model.ErrValidation
	case "not_found":
		return model.ErrNotFound
	case "conflict":
		return model.ErrConflict
	case "invalid_transition":
		return model.ErrInvalidTransition
	}
	return nil
}

// Client is a typed HTTP client for the wheel API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that the service answers /healthz.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check returned %d", ErrUnexpectedResponse, resp.StatusCode)
	}
	return nil
}

// Registration fetches the gate decision.
func (c *Client) Registration(ctx context.Context) (types.Registration, error) {
	var out types.Registration
	return out, c.do(ctx, http.MethodGet, "/registration", nil, &out)
}

// LockRegistration locks registration for today.
func (c *Client) LockRegistration(ctx context.Context) (model.RegistrationLock, error) {
	var out model.RegistrationLock
	return out, c.do(ctx, http.MethodPost, "/registration/lock", nil, &out)
}

// Upcoming fetches today's and the next business day's sessions.
func (c *Client) Upcoming(ctx context.Context) (types.Upcoming, error) {
	var out types.Upcoming
	return out, c.do(ctx, http.MethodGet, "/sessions/upcoming", nil, &out)
}

// Roster fetches the scored roster.
func (c *Client) Roster(ctx context.Context) ([]model.ScoredParticipant, error) {
	var out []model.ScoredParticipant
	return out, c.do(ctx, http.MethodGet, "/wheel/roster", nil, &out)
}

// Spin spins the wheel; with enforce the service refuses while registration
// is closed.
func (c *Client) Spin(ctx context.Context, enforce bool) (types.SpinResult, error) {
	var out types.SpinResult
	path := "/wheel/spin"
	if enforce {
		path += "?enforce=true"
	}
	return out, c.do(ctx, http.MethodPost, path, nil, &out)
}

// Confirm books participantID for the next business day.
func (c *Client) Confirm(ctx context.Context, participantID string) (types.Session, error) {
	var out types.Session
	return out, c.do(ctx, http.MethodPost, "/wheel/confirm", types.ConfirmRequest{ParticipantID: participantID}, &out)
}

// Participants lists participants.
func (c *Client) Participants(ctx context.Context, activeOnly bool) ([]model.Participant, error) {
	var out []model.Participant
	path := "/participants"
	if activeOnly {
		path += "?active=true"
	}
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// AddParticipant creates a participant.
func (c *Client) AddParticipant(ctx context.Context, req types.CreateParticipantRequest) (model.Participant, error) {
	var out model.Participant
	return out, c.do(ctx, http.MethodPost, "/participants", req, &out)
}

// UpdateParticipant edits a participant.
func (c *Client) UpdateParticipant(ctx context.Context, id string, req types.UpdateParticipantRequest) (model.Participant, error) {
	var out model.Participant
	return out, c.do(ctx, http.MethodPatch, "/participants/"+url.PathEscape(id), req, &out)
}

// Sessions lists sessions in [from, to]; empty bounds are open.
func (c *Client) Sessions(ctx context.Context, from, to string) ([]types.Session, error) {
	q := url.Values{}
	if from != "" {
		q.Set("from", from)
	}
	if to != "" {
		q.Set("to", to)
	}
	path := "/sessions"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []types.Session
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// CreateSession creates a pending session. On a taken date the returned
// *APIError carries the existing session.
func (c *Client) CreateSession(ctx context.Context, date, participantID string) (types.Session, error) {
	var out types.Session
	return out, c.do(ctx, http.MethodPost, "/sessions", types.CreateSessionRequest{Date: date, ParticipantID: participantID}, &out)
}

// Complete completes a pending session.
func (c *Client) Complete(ctx context.Context, id string, req types.CompleteSessionRequest) (types.Completion, error) {
	var out types.Completion
	return out, c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/complete", req, &out)
}

// Skip skips a pending session.
func (c *Client) Skip(ctx context.Context, id, reason string) (types.Session, error) {
	var out types.Session
	return out, c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/skip", types.SkipSessionRequest{Reason: reason}, &out)
}

// Postpone moves a pending session's DJ to the next business day.
func (c *Client) Postpone(ctx context.Context, id, overrideDate string) (types.Postponement, error) {
	var out types.Postponement
	return out, c.do(ctx, http.MethodPost, "/sessions/"+url.PathEscape(id)+"/postpone", types.PostponeSessionRequest{OverrideDate: overrideDate}, &out)
}

// History lists completed blindtests, newest first. limit 0 means all.
func (c *Client) History(ctx context.Context, limit int) ([]types.HistoryEntry, error) {
	path := "/history"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []types.HistoryEntry
	return out, c.do(ctx, http.MethodGet, path, nil, &out)
}

// Stats fetches service statistics.
func (c *Client) Stats(ctx context.Context) (types.Stats, error) {
	var out types.Stats
	return out, c.do(ctx, http.MethodGet, "/stats", nil, &out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var e types.ErrorResponse
		if err := json.Unmarshal(data, &e); err != nil || e.Code == "" {
			return fmt.Errorf("%w: %s %s returned %d", ErrUnexpectedResponse, method, path, resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Code: e.Code, Message: e.Message, Existing: e.Existing}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", ErrUnexpectedResponse, method, path, err)
	}
	return nil
}
