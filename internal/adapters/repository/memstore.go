package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/pkg/metrics"
)

// memTxKey marks a ctx that already holds the store's write lock.
type memTxKey struct{}

type memState struct {
	participants  map[string]model.Participant
	sessions      map[string]model.Session
	sessionByDate map[string]string // YYYY-MM-DD -> session id
	history       []model.HistoryEntry
	settings      *model.Settings
}

func (st memState) clone() memState {
	c := memState{
		participants:  make(map[string]model.Participant, len(st.participants)),
		sessions:      make(map[string]model.Session, len(st.sessions)),
		sessionByDate: make(map[string]string, len(st.sessionByDate)),
		history:       append([]model.HistoryEntry(nil), st.history...),
	}
	for k, v := range st.participants {
		c.participants[k] = v
	}
	for k, v := range st.sessions {
		c.sessions[k] = v
	}
	for k, v := range st.sessionByDate {
		c.sessionByDate[k] = v
	}
	if st.settings != nil {
		s := *st.settings
		c.settings = &s
	}
	return c
}

// MemoryStore is a mutex-guarded, in-process Store. Atomically holds the
// write lock for the whole callback and rolls the state back on error.
type MemoryStore struct {
	mu    sync.RWMutex
	state memState
	opts  options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewMemoryStore constructs an empty in-memory store and starts its
// background metrics updater, which stops when ctx ends or on Close.
func NewMemoryStore(ctx context.Context, opts ...Option) *MemoryStore {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	s := &MemoryStore{
		state: memState{
			participants:  make(map[string]model.Participant),
			sessions:      make(map[string]model.Session),
			sessionByDate: make(map[string]string),
		},
		opts:     o,
		stopChan: make(chan struct{}),
	}
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the metrics updater.
func (s *MemoryStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

func (s *MemoryStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.opts.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				s.updateMetrics()
			}
		}
	}()
}

func (s *MemoryStore) updateMetrics() {
	s.mu.RLock()
	active := 0
	for _, p := range s.state.participants {
		if p.IsActive {
			active++
		}
	}
	s.mu.RUnlock()
	metrics.UpdateActiveParticipants(active)
}

func (s *MemoryStore) held(ctx context.Context) bool {
	owner, _ := ctx.Value(memTxKey{}).(*MemoryStore)
	return owner == s
}

func (s *MemoryStore) lock(ctx context.Context) func() {
	if s.held(ctx) {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *MemoryStore) rlock(ctx context.Context) func() {
	if s.held(ctx) {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

// Atomically implements session.Store. Nested calls join the outer one.
func (s *MemoryStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.held(ctx) {
		return fn(ctx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.state.clone()
	if err := fn(context.WithValue(ctx, memTxKey{}, s)); err != nil {
		s.state = snapshot
		return err
	}
	return nil
}

// Participants

func (s *MemoryStore) ListParticipants(ctx context.Context, activeOnly bool) ([]model.Participant, error) {
	defer observe("list_participants", time.Now())
	unlock := s.rlock(ctx)
	defer unlock()

	out := make([]model.Participant, 0, len(s.state.participants))
	for _, p := range s.state.participants {
		if activeOnly && !p.IsActive {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s *MemoryStore) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	defer observe("get_participant", time.Now())
	unlock := s.rlock(ctx)
	defer unlock()

	p, ok := s.state.participants[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Participant{}, ErrNotFound
	}
	return p, nil
}

func (s *MemoryStore) CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	defer observe("create_participant", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	if _, ok := s.state.participants[p.ID]; ok {
		return model.Participant{}, fmt.Errorf("%w: participant id %s exists", model.ErrConflict, p.ID)
	}
	if s.nameTaken(p.Name, "") {
		metrics.RecordErrorByComponent("repository", "conflict")
		return model.Participant{}, ErrDuplicateName
	}
	s.state.participants[p.ID] = p
	return p, nil
}

func (s *MemoryStore) UpdateParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	defer observe("update_participant", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	if _, ok := s.state.participants[p.ID]; !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Participant{}, ErrNotFound
	}
	if s.nameTaken(p.Name, p.ID) {
		metrics.RecordErrorByComponent("repository", "conflict")
		return model.Participant{}, ErrDuplicateName
	}
	s.state.participants[p.ID] = p
	return p, nil
}

func (s *MemoryStore) RecordPlay(ctx context.Context, id string, playedAt time.Time) (model.Participant, error) {
	defer observe("record_play", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	p, ok := s.state.participants[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Participant{}, ErrNotFound
	}
	p = advanceLastPlayed(p, playedAt)
	s.state.participants[id] = p
	return p, nil
}

func (s *MemoryStore) nameTaken(name, exceptID string) bool {
	for id, p := range s.state.participants {
		if id != exceptID && p.Name == name {
			return true
		}
	}
	return false
}

// Settings

func (s *MemoryStore) GetSettings(ctx context.Context) (model.Settings, error) {
	unlock := s.rlock(ctx)
	defer unlock()
	return s.settingsLocked(), nil
}

func (s *MemoryStore) UpdateProbabilitySettings(ctx context.Context, ps model.ProbabilitySettings) (model.Settings, error) {
	defer observe("update_settings", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	st := s.settingsLocked()
	st.Probability = ps
	s.state.settings = &st
	return st, nil
}

func (s *MemoryStore) LockRegistration(ctx context.Context, date string) (model.Settings, error) {
	defer observe("lock_registration", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	st := s.settingsLocked()
	st.Lock = model.RegistrationLock{LastRegistrationDate: date, RegistrationLocked: true}
	s.state.settings = &st
	return st, nil
}

func (s *MemoryStore) settingsLocked() model.Settings {
	if s.state.settings != nil {
		return *s.state.settings
	}
	return model.Settings{Probability: s.opts.defaultProbability}
}

// Sessions

func (s *MemoryStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	defer observe("get_session", time.Now())
	unlock := s.rlock(ctx)
	defer unlock()

	sess, ok := s.state.sessions[id]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Session{}, ErrNotFound
	}
	return sess, nil
}

func (s *MemoryStore) FindSessionByDate(ctx context.Context, date time.Time) (model.Session, error) {
	defer observe("find_session_by_date", time.Now())
	unlock := s.rlock(ctx)
	defer unlock()

	id, ok := s.state.sessionByDate[s.dateKey(date)]
	if !ok {
		return model.Session{}, ErrNotFound
	}
	return s.state.sessions[id], nil
}

func (s *MemoryStore) CreateSession(ctx context.Context, sess model.Session) (model.Session, error) {
	defer observe("create_session", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	key := s.dateKey(sess.Date)
	if _, ok := s.state.sessionByDate[key]; ok {
		metrics.RecordErrorByComponent("repository", "conflict")
		return model.Session{}, ErrDuplicateDate
	}
	sess.Date = s.normalize(sess.Date)
	s.state.sessions[sess.ID] = sess
	s.state.sessionByDate[key] = sess.ID
	return sess, nil
}

func (s *MemoryStore) UpdateSession(ctx context.Context, sess model.Session) (model.Session, error) {
	defer observe("update_session", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	old, ok := s.state.sessions[sess.ID]
	if !ok {
		metrics.RecordErrorByComponent("repository", "not_found")
		return model.Session{}, ErrNotFound
	}
	oldKey, newKey := s.dateKey(old.Date), s.dateKey(sess.Date)
	if oldKey != newKey {
		if _, taken := s.state.sessionByDate[newKey]; taken {
			metrics.RecordErrorByComponent("repository", "conflict")
			return model.Session{}, ErrDuplicateDate
		}
		delete(s.state.sessionByDate, oldKey)
		s.state.sessionByDate[newKey] = sess.ID
	}
	sess.Date = s.normalize(sess.Date)
	s.state.sessions[sess.ID] = sess
	return sess, nil
}

func (s *MemoryStore) ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	defer observe("list_sessions", time.Now())
	unlock := s.rlock(ctx)
	defer unlock()

	lo, hi := "", ""
	if !from.IsZero() {
		lo = s.dateKey(from)
	}
	if !to.IsZero() {
		hi = s.dateKey(to)
	}
	out := make([]model.Session, 0)
	for key, id := range s.state.sessionByDate {
		if (lo != "" && key < lo) || (hi != "" && key > hi) {
			continue
		}
		out = append(out, s.state.sessions[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, nil
}

// History

func (s *MemoryStore) AppendHistoryEntry(ctx context.Context, e model.HistoryEntry) (model.HistoryEntry, error) {
	defer observe("append_history", time.Now())
	unlock := s.lock(ctx)
	defer unlock()

	s.state.history = append(s.state.history, e)
	return e, nil
}

func (s *MemoryStore) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	defer observe("list_history", time.Now())
	unlock := s.rlock(ctx)
	defer unlock()

	out := make([]model.HistoryEntry, 0, len(s.state.history))
	for i := len(s.state.history) - 1; i >= 0; i-- {
		out = append(out, s.state.history[i])
	}
	// Append order breaks ties between equal PlayedAt values.
	sort.SliceStable(out, func(i, j int) bool { return out[i].PlayedAt.After(out[j].PlayedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// dateKey uses t's own calendar date; callers pass midnights.
func (s *MemoryStore) dateKey(t time.Time) string {
	return calendar.FormatDate(t)
}

func (s *MemoryStore) normalize(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.opts.location)
}
