// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	repository "github.com/okian/blindtest/internal/adapters/repository"
	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/probability"
	"github.com/okian/blindtest/internal/domain/registration"
	"github.com/okian/blindtest/internal/domain/session"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
	"github.com/okian/blindtest/pkg/metrics"
)

// components are built by Start and shared read-only afterwards.
type components struct {
	store   repository.Store
	clock   *calendar.OverridableClock
	engine  *probability.Engine
	machine *session.Machine
	gate    *registration.Gate
}

// Service orchestrates the wheel, the session lifecycle and the
// registration gate over a single store.
type Service struct {
	mu sync.RWMutex

	// Core components
	c *components

	// Configuration
	storeDriver        string
	storeDSN           string
	injectedStore      repository.Store
	location           *time.Location
	baseClock          calendar.Clock
	window             calendar.Window
	jitterMin          float64
	jitterMax          float64
	neverPlayedDays    int
	randomSource       probability.RandomSource
	defaultTitle       string
	defaultSkipReason  string
	defaultProbability model.ProbabilitySettings
	allowMockDate      bool

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithStore makes the service use store instead of opening one. Stop still
// closes it.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		s.injectedStore = store
	}
}

// WithStoreDriver selects the backend Start opens: memory, postgres or sqlite.
func WithStoreDriver(driver, dsn string) Option {
	return func(s *Service) {
		if driver != "" {
			s.storeDriver = driver
			s.storeDSN = dsn
		}
	}
}

// WithLocation sets the zone calendar dates are interpreted in.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock replaces the wall clock. The mock-date override wraps it.
func WithClock(c calendar.Clock) Option {
	return func(s *Service) {
		if c != nil {
			s.baseClock = c
		}
	}
}

// WithRegistrationWindow sets the daily registration hours [open, close).
func WithRegistrationWindow(openHour, closeHour int) Option {
	return func(s *Service) {
		if openHour >= 0 && openHour < closeHour && closeHour <= 24 {
			s.window = calendar.Window{OpenHour: openHour, CloseHour: closeHour}
		}
	}
}

// WithJitter sets the multiplicative jitter range applied to raw scores.
func WithJitter(minFactor, maxFactor float64) Option {
	return func(s *Service) {
		if minFactor > 0 && maxFactor >= minFactor {
			s.jitterMin, s.jitterMax = minFactor, maxFactor
		}
	}
}

// WithNeverPlayedDays sets the day count assumed for participants who never played.
func WithNeverPlayedDays(days int) Option {
	return func(s *Service) {
		if days > 0 {
			s.neverPlayedDays = days
		}
	}
}

// WithRandomSource sets the uniform [0,1) source used for jitter and draws.
func WithRandomSource(r probability.RandomSource) Option {
	return func(s *Service) {
		if r != nil {
			s.randomSource = r
		}
	}
}

// WithDefaultTitle sets the title used when a completion carries none.
func WithDefaultTitle(title string) Option {
	return func(s *Service) {
		if title != "" {
			s.defaultTitle = title
		}
	}
}

// WithDefaultSkipReason sets the reason used when a skip carries none.
func WithDefaultSkipReason(reason string) Option {
	return func(s *Service) {
		if reason != "" {
			s.defaultSkipReason = reason
		}
	}
}

// WithDefaultProbability sets the weights served before any are saved.
func WithDefaultProbability(ps model.ProbabilitySettings) Option {
	return func(s *Service) {
		if ps.Validate() == nil {
			s.defaultProbability = ps
		}
	}
}

// WithMockDate enables the debug date override.
func WithMockDate(allowed bool) Option {
	return func(s *Service) {
		s.allowMockDate = allowed
	}
}

// New constructs a new Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		storeDriver:       repository.DriverMemory,
		location:          time.Local,
		window:            calendar.DefaultWindow,
		jitterMin:         0.9,
		jitterMax:         1.1,
		neverPlayedDays:   365,
		defaultTitle:      session.DefaultTitle,
		defaultSkipReason: session.DefaultSkipReason,
		defaultProbability: model.ProbabilitySettings{
			WeightLastPlayed: 0.7,
			WeightTotalPlays: 0.3,
		},
		logger: nil, // replaced on Start
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start opens the store and builds the domain components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get()
	}

	s.logger.Info(ctx, "starting blindtest service...")

	store := s.injectedStore
	if store == nil {
		var err error
		store, err = repository.Open(ctx, s.storeDriver, s.storeDSN,
			repository.WithLocation(s.location),
			repository.WithDefaultProbability(s.defaultProbability),
		)
		if err != nil {
			return fmt.Errorf("open %s store: %w", s.storeDriver, err)
		}
		s.logger.Info(ctx, "store opened", logger.String("driver", s.storeDriver))
	}

	base := s.baseClock
	if base == nil {
		base = calendar.NewReal(s.location)
	}
	clock := calendar.NewOverridable(base)

	engineOpts := []probability.Option{
		probability.WithClock(clock),
		probability.WithJitter(s.jitterMin, s.jitterMax),
		probability.WithNeverPlayedDays(s.neverPlayedDays),
	}
	if s.randomSource != nil {
		engineOpts = append(engineOpts, probability.WithRandomSource(s.randomSource))
	}

	s.c = &components{
		store:  store,
		clock:  clock,
		engine: probability.NewEngine(engineOpts...),
		machine: session.NewMachine(store,
			session.WithClock(clock),
			session.WithDefaultTitle(s.defaultTitle),
			session.WithDefaultSkipReason(s.defaultSkipReason),
		),
		gate: registration.NewGate(store,
			registration.WithClock(clock),
			registration.WithWindow(s.window),
		),
	}

	s.started = true
	s.logger.Info(ctx, "blindtest service started",
		logger.String("location", s.location.String()),
		logger.Int("windowOpenHour", s.window.OpenHour),
		logger.Int("windowCloseHour", s.window.CloseHour),
		logger.Bool("mockDateAllowed", s.allowMockDate),
	)

	return nil
}

// Stop closes the store.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	s.logger.Info(context.Background(), "stopping blindtest service...")

	if err := s.c.store.Close(); err != nil {
		s.logger.Warn(context.Background(), "store close failed", logger.Error(err))
	}

	s.started = false
	s.logger.Info(context.Background(), "blindtest service stopped")
}

func (s *Service) parts() (*components, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return nil, ErrNotStarted
	}
	return s.c, nil
}

// Location returns the zone wire dates are parsed in.
func (s *Service) Location() *time.Location { return s.location }

// ParseDate parses a YYYY-MM-DD wire date as local midnight.
func (s *Service) ParseDate(raw string) (time.Time, error) {
	return calendar.ParseDate(raw, s.location)
}

// Now returns the service clock's current time, honouring the mock date.
func (s *Service) Now() time.Time {
	c, err := s.parts()
	if err != nil {
		return time.Now().In(s.location)
	}
	return c.clock.Now()
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) (types.Stats, error) {
	s.mu.RLock()
	started := s.started
	s.mu.RUnlock()

	stats := types.Stats{
		Started:          started,
		StoreDriver:      s.storeDriver,
		SessionsByStatus: map[string]int{},
	}
	if s.injectedStore != nil {
		stats.StoreDriver = "injected"
	}
	if !started {
		return stats, nil
	}

	c, err := s.parts()
	if err != nil {
		return stats, nil
	}

	participants, err := c.store.ListParticipants(ctx, false)
	if err != nil {
		return stats, fmt.Errorf("list participants: %w", err)
	}
	stats.Participants = len(participants)
	for _, p := range participants {
		if p.IsActive {
			stats.ActiveParticipants++
		}
	}

	sessions, err := c.store.ListSessions(ctx, time.Time{}, time.Time{})
	if err != nil {
		return stats, fmt.Errorf("list sessions: %w", err)
	}
	for _, sess := range sessions {
		stats.SessionsByStatus[string(sess.Status)]++
	}

	history, err := c.store.ListHistory(ctx, 0)
	if err != nil {
		return stats, fmt.Errorf("list history: %w", err)
	}
	stats.HistoryEntries = len(history)

	if d, ok := c.clock.MockDate(); ok {
		stats.MockDate = calendar.FormatDate(d)
	}

	metrics.UpdateActiveParticipants(stats.ActiveParticipants)
	return stats, nil
}
