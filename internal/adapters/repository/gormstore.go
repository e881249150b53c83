package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/pkg/metrics"
)

// Supported SQL drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type gormTxKey struct{}

// GormStore is a Store backed by a SQL database through gorm. The unique
// index on sessions.date enforces one session per day.
type GormStore struct {
	db   *gorm.DB
	opts options

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// OpenGorm connects to a postgres or sqlite database.
func OpenGorm(driver, dsn string) (*gorm.DB, error) {
	driver = strings.ToLower(strings.TrimSpace(driver))
	var dialector gorm.Dialector
	switch driver {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDriver, driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
		NowFunc:        func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", driver, err)
	}

	if driver == DriverSQLite {
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("sqlite handle: %w", err)
		}
		// SQLite serializes writers; one connection avoids "database is locked".
		sqlDB.SetMaxOpenConns(1)
	}
	return db, nil
}

// NewGormStore migrates the schema and returns a store over db.
func NewGormStore(ctx context.Context, db *gorm.DB, opts ...Option) (*GormStore, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := db.WithContext(ctx).AutoMigrate(
		&participantRow{},
		&sessionRow{},
		&historyRow{},
		&settingsRow{},
	); err != nil {
		return nil, fmt.Errorf("migrate schema: %w", err)
	}

	s := &GormStore{db: db, opts: o, stopChan: make(chan struct{})}
	s.startMetricsUpdater(ctx)
	return s, nil
}

// Close stops the metrics updater and closes the database handle.
func (s *GormStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *GormStore) startMetricsUpdater(ctx context.Context) {
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
				var active int64
				if err := s.db.WithContext(ctx).Model(&participantRow{}).Where("is_active = ?", true).Count(&active).Error; err == nil {
					metrics.UpdateActiveParticipants(int(active))
				}
			}
		}
	}()
}

// conn returns the transaction bound to ctx, if any.
func (s *GormStore) conn(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return tx
	}
	return s.db.WithContext(ctx)
}

// Atomically implements session.Store. Nested calls join the outer one.
func (s *GormStore) Atomically(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(gormTxKey{}).(*gorm.DB); ok {
		return fn(ctx)
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(context.WithValue(ctx, gormTxKey{}, tx))
	})
}

// translate maps driver errors onto the repository sentinels. A nil
// conflict falls back to a generic model.ErrConflict wrap.
func translate(err error, conflict error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		metrics.RecordErrorByComponent("repository", "not_found")
		return ErrNotFound
	case errors.Is(err, gorm.ErrDuplicatedKey),
		strings.Contains(strings.ToLower(err.Error()), "unique"):
		metrics.RecordErrorByComponent("repository", "conflict")
		if conflict == nil {
			return fmt.Errorf("%w: %w", model.ErrConflict, err)
		}
		return conflict
	}
	metrics.RecordErrorByComponent("repository", "database")
	return err
}

// Participants

func (s *GormStore) ListParticipants(ctx context.Context, activeOnly bool) ([]model.Participant, error) {
	defer observe("list_participants", time.Now())
	q := s.conn(ctx).Order("name ASC").Order("id ASC")
	if activeOnly {
		q = q.Where("is_active = ?", true)
	}
	var rows []participantRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, ErrDuplicateName)
	}
	out := make([]model.Participant, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}

func (s *GormStore) GetParticipant(ctx context.Context, id string) (model.Participant, error) {
	defer observe("get_participant", time.Now())
	var row participantRow
	if err := s.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.Participant{}, translate(err, ErrDuplicateName)
	}
	return row.toModel(), nil
}

func (s *GormStore) CreateParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	defer observe("create_participant", time.Now())
	row := participantToRow(p)
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return model.Participant{}, translate(err, ErrDuplicateName)
	}
	return row.toModel(), nil
}

func (s *GormStore) UpdateParticipant(ctx context.Context, p model.Participant) (model.Participant, error) {
	defer observe("update_participant", time.Now())
	row := participantToRow(p)
	res := s.conn(ctx).Model(&participantRow{}).Where("id = ?", p.ID).Select("*").Updates(&row)
	if res.Error != nil {
		return model.Participant{}, translate(res.Error, ErrDuplicateName)
	}
	if res.RowsAffected == 0 {
		return model.Participant{}, translate(gorm.ErrRecordNotFound, nil)
	}
	return row.toModel(), nil
}

func (s *GormStore) RecordPlay(ctx context.Context, id string, playedAt time.Time) (model.Participant, error) {
	defer observe("record_play", time.Now())
	var out model.Participant
	err := s.Atomically(ctx, func(ctx context.Context) error {
		var row participantRow
		if err := s.conn(ctx).Clauses(lockingClause(s.conn(ctx))...).Where("id = ?", id).First(&row).Error; err != nil {
			return translate(err, nil)
		}
		p := advanceLastPlayed(row.toModel(), playedAt)
		if err := s.conn(ctx).Model(&participantRow{}).Where("id = ?", id).Updates(map[string]any{
			"total_plays":    p.TotalPlays,
			"last_played_at": p.LastPlayedAt,
		}).Error; err != nil {
			return translate(err, nil)
		}
		out = p
		return nil
	})
	return out, err
}

// lockingClause takes a row lock where the dialect supports one.
func lockingClause(db *gorm.DB) []clause.Expression {
	if db.Dialector.Name() == DriverPostgres {
		return []clause.Expression{clause.Locking{Strength: "UPDATE"}}
	}
	return nil
}

// Settings

func (s *GormStore) GetSettings(ctx context.Context) (model.Settings, error) {
	defer observe("get_settings", time.Now())
	var row settingsRow
	err := s.conn(ctx).Where("id = ?", model.SettingsID).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Settings{Probability: s.opts.defaultProbability}, nil
	}
	if err != nil {
		return model.Settings{}, translate(err, nil)
	}
	return row.toModel(), nil
}

func (s *GormStore) UpdateProbabilitySettings(ctx context.Context, ps model.ProbabilitySettings) (model.Settings, error) {
	defer observe("update_settings", time.Now())
	return s.mutateSettings(ctx, func(st *model.Settings) { st.Probability = ps })
}

func (s *GormStore) LockRegistration(ctx context.Context, date string) (model.Settings, error) {
	defer observe("lock_registration", time.Now())
	return s.mutateSettings(ctx, func(st *model.Settings) {
		st.Lock = model.RegistrationLock{LastRegistrationDate: date, RegistrationLocked: true}
	})
}

func (s *GormStore) mutateSettings(ctx context.Context, mutate func(*model.Settings)) (model.Settings, error) {
	var out model.Settings
	err := s.Atomically(ctx, func(ctx context.Context) error {
		st, err := s.GetSettings(ctx)
		if err != nil {
			return err
		}
		mutate(&st)
		row := settingsToRow(st)
		if err := s.conn(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error; err != nil {
			return translate(err, nil)
		}
		out = st
		return nil
	})
	return out, err
}

// Sessions

func (s *GormStore) sessionToRow(sess model.Session) sessionRow {
	return sessionRow{
		ID:         sess.ID,
		Date:       calendar.FormatDate(sess.Date),
		DJID:       sess.DJID,
		DJName:     sess.DJName,
		Status:     string(sess.Status),
		YoutubeURL: sess.YoutubeURL,
		VideoID:    sess.VideoID,
		Title:      sess.Title,
		Artist:     sess.Artist,
		SkipReason: sess.SkipReason,
		CreatedAt:  sess.CreatedAt,
		UpdatedAt:  sess.UpdatedAt,
	}
}

func (s *GormStore) rowToSession(r sessionRow) (model.Session, error) {
	date, err := calendar.ParseDate(r.Date, s.opts.location)
	if err != nil {
		return model.Session{}, fmt.Errorf("session %s has corrupt date: %w", r.ID, err)
	}
	return model.Session{
		ID:         r.ID,
		Date:       date,
		DJID:       r.DJID,
		DJName:     r.DJName,
		Status:     model.SessionStatus(r.Status),
		YoutubeURL: r.YoutubeURL,
		VideoID:    r.VideoID,
		Title:      r.Title,
		Artist:     r.Artist,
		SkipReason: r.SkipReason,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
	}, nil
}

func (s *GormStore) GetSession(ctx context.Context, id string) (model.Session, error) {
	defer observe("get_session", time.Now())
	var row sessionRow
	if err := s.conn(ctx).Where("id = ?", id).First(&row).Error; err != nil {
		return model.Session{}, translate(err, nil)
	}
	return s.rowToSession(row)
}

func (s *GormStore) FindSessionByDate(ctx context.Context, date time.Time) (model.Session, error) {
	defer observe("find_session_by_date", time.Now())
	var rows []sessionRow
	if err := s.conn(ctx).Where("date = ?", calendar.FormatDate(date)).Limit(1).Find(&rows).Error; err != nil {
		return model.Session{}, translate(err, nil)
	}
	if len(rows) == 0 {
		return model.Session{}, ErrNotFound
	}
	return s.rowToSession(rows[0])
}

func (s *GormStore) CreateSession(ctx context.Context, sess model.Session) (model.Session, error) {
	defer observe("create_session", time.Now())
	row := s.sessionToRow(sess)
	if err := s.conn(ctx).Create(&row).Error; err != nil {
		return model.Session{}, translate(err, ErrDuplicateDate)
	}
	return s.rowToSession(row)
}

func (s *GormStore) UpdateSession(ctx context.Context, sess model.Session) (model.Session, error) {
	defer observe("update_session", time.Now())
	row := s.sessionToRow(sess)
	res := s.conn(ctx).Model(&sessionRow{}).Where("id = ?", sess.ID).Select("*").Updates(&row)
	if res.Error != nil {
		return model.Session{}, translate(res.Error, ErrDuplicateDate)
	}
	if res.RowsAffected == 0 {
		return model.Session{}, translate(gorm.ErrRecordNotFound, nil)
	}
	return s.rowToSession(row)
}

func (s *GormStore) ListSessions(ctx context.Context, from, to time.Time) ([]model.Session, error) {
	defer observe("list_sessions", time.Now())
	q := s.conn(ctx).Order("date ASC")
	if !from.IsZero() {
		q = q.Where("date >= ?", calendar.FormatDate(from))
	}
	if !to.IsZero() {
		q = q.Where("date <= ?", calendar.FormatDate(to))
	}
	var rows []sessionRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, nil)
	}
	out := make([]model.Session, 0, len(rows))
	for _, r := range rows {
		sess, err := s.rowToSession(r)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, nil
}

// History

func (s *GormStore) AppendHistoryEntry(ctx context.Context, e model.HistoryEntry) (model.HistoryEntry, error) {
	defer observe("append_history", time.Now())
	err := s.Atomically(ctx, func(ctx context.Context) error {
		var seq int64
		if err := s.conn(ctx).Model(&historyRow{}).Select("COALESCE(MAX(seq), 0)").Scan(&seq).Error; err != nil {
			return translate(err, nil)
		}
		row := historyToRow(e, seq+1)
		return translate(s.conn(ctx).Create(&row).Error, fmt.Errorf("%w: history entry %s exists", model.ErrConflict, e.ID))
	})
	if err != nil {
		return model.HistoryEntry{}, err
	}
	return e, nil
}

func (s *GormStore) ListHistory(ctx context.Context, limit int) ([]model.HistoryEntry, error) {
	defer observe("list_history", time.Now())
	q := s.conn(ctx).Order("played_at DESC").Order("seq DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []historyRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, translate(err, nil)
	}
	out := make([]model.HistoryEntry, len(rows))
	for i, r := range rows {
		out[i] = r.toModel()
	}
	return out, nil
}
