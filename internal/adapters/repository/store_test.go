package repository

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/blindtest/internal/domain/model"
)

type storeFactory func(t *testing.T) Store

func memoryFactory(t *testing.T) Store {
	s := NewMemoryStore(context.Background(), WithLocation(time.UTC))
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sqliteFactory(t *testing.T) Store {
	db, err := OpenGorm(DriverSQLite, filepath.Join(t.TempDir(), "blindtest.db"))
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	s, err := NewGormStore(context.Background(), db, WithLocation(time.UTC))
	if err != nil {
		t.Fatalf("new gorm store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func pendingSession(id string, date time.Time, dj string) model.Session {
	now := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return model.Session{ID: id, Date: date, DJID: dj, DJName: dj, Status: model.SessionPending, CreatedAt: now, UpdatedAt: now}
}

func TestStores(t *testing.T) {
	for name, factory := range map[string]storeFactory{
		"memory": memoryFactory,
		"sqlite": sqliteFactory,
	} {
		t.Run(name, func(t *testing.T) {
			runStoreContract(t, factory)
		})
	}
}

func runStoreContract(t *testing.T, newStore storeFactory) {
	ctx := context.Background()

	Convey("Given an empty store", t, func() {
		s := newStore(t)

		Convey("Participants", func() {
			alice, err := s.CreateParticipant(ctx, model.Participant{ID: "p1", Name: "Alice", IsActive: true})
			So(err, ShouldBeNil)
			So(alice.Name, ShouldEqual, "Alice")
			_, err = s.CreateParticipant(ctx, model.Participant{ID: "p2", Name: "Bob", IsActive: false})
			So(err, ShouldBeNil)

			Convey("names are unique", func() {
				_, err := s.CreateParticipant(ctx, model.Participant{ID: "p3", Name: "Alice"})
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)

				bob, _ := s.GetParticipant(ctx, "p2")
				bob.Name = "Alice"
				_, err = s.UpdateParticipant(ctx, bob)
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			})

			Convey("listing filters inactive participants on request", func() {
				all, err := s.ListParticipants(ctx, false)
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 2)
				So(all[0].Name, ShouldEqual, "Alice")

				active, err := s.ListParticipants(ctx, true)
				So(err, ShouldBeNil)
				So(len(active), ShouldEqual, 1)
				So(active[0].ID, ShouldEqual, "p1")
			})

			Convey("unknown ids are not found", func() {
				_, err := s.GetParticipant(ctx, "nope")
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				_, err = s.UpdateParticipant(ctx, model.Participant{ID: "nope", Name: "X"})
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				_, err = s.RecordPlay(ctx, "nope", time.Now())
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})

			Convey("recording plays only moves lastPlayedAt forward", func() {
				later := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
				earlier := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

				p, err := s.RecordPlay(ctx, "p1", later)
				So(err, ShouldBeNil)
				So(p.TotalPlays, ShouldEqual, 1)
				So(p.LastPlayedAt.Equal(later), ShouldBeTrue)

				p, err = s.RecordPlay(ctx, "p1", earlier)
				So(err, ShouldBeNil)
				So(p.TotalPlays, ShouldEqual, 2)
				So(p.LastPlayedAt.Equal(later), ShouldBeTrue)

				stored, err := s.GetParticipant(ctx, "p1")
				So(err, ShouldBeNil)
				So(stored.TotalPlays, ShouldEqual, 2)
				So(stored.LastPlayedAt.Equal(later), ShouldBeTrue)
			})
		})

		Convey("Settings", func() {
			st, err := s.GetSettings(ctx)
			So(err, ShouldBeNil)
			So(st.Probability.WeightLastPlayed, ShouldEqual, 0.7)
			So(st.Probability.WeightTotalPlays, ShouldEqual, 0.3)
			So(st.Lock.RegistrationLocked, ShouldBeFalse)

			Convey("locking is an upsert keyed by date", func() {
				_, err := s.LockRegistration(ctx, "2025-03-10")
				So(err, ShouldBeNil)
				st, err := s.LockRegistration(ctx, "2025-03-11")
				So(err, ShouldBeNil)
				So(st.Lock.LockedOn("2025-03-11"), ShouldBeTrue)
				So(st.Lock.LockedOn("2025-03-10"), ShouldBeFalse)
				So(st.Probability.WeightLastPlayed, ShouldEqual, 0.7)
			})

			Convey("weights persist without touching the lock", func() {
				_, err := s.LockRegistration(ctx, "2025-03-10")
				So(err, ShouldBeNil)
				_, err = s.UpdateProbabilitySettings(ctx, model.ProbabilitySettings{WeightLastPlayed: 0.2, WeightTotalPlays: 0.9})
				So(err, ShouldBeNil)

				st, err := s.GetSettings(ctx)
				So(err, ShouldBeNil)
				So(st.Probability.WeightLastPlayed, ShouldEqual, 0.2)
				So(st.Probability.WeightTotalPlays, ShouldEqual, 0.9)
				So(st.Lock.LockedOn("2025-03-10"), ShouldBeTrue)
			})
		})

		Convey("Sessions", func() {
			monday := day(2025, 3, 10)
			created, err := s.CreateSession(ctx, pendingSession("s1", monday, "alice"))
			So(err, ShouldBeNil)
			So(created.Status, ShouldEqual, model.SessionPending)

			Convey("a second session for the same date conflicts and writes nothing", func() {
				_, err := s.CreateSession(ctx, pendingSession("s2", monday, "bob"))
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)

				_, err = s.GetSession(ctx, "s2")
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
				all, err := s.ListSessions(ctx, time.Time{}, time.Time{})
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 1)
			})

			Convey("lookup by date", func() {
				got, err := s.FindSessionByDate(ctx, monday)
				So(err, ShouldBeNil)
				So(got.ID, ShouldEqual, "s1")
				So(got.Date.Format("2006-01-02"), ShouldEqual, "2025-03-10")

				_, err = s.FindSessionByDate(ctx, day(2025, 3, 11))
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})

			Convey("updates replace every field", func() {
				created.Status = model.SessionSkipped
				created.SkipReason = "sick"
				_, err := s.UpdateSession(ctx, created)
				So(err, ShouldBeNil)

				got, err := s.GetSession(ctx, "s1")
				So(err, ShouldBeNil)
				So(got.Status, ShouldEqual, model.SessionSkipped)
				So(got.SkipReason, ShouldEqual, "sick")

				_, err = s.UpdateSession(ctx, pendingSession("ghost", day(2025, 4, 1), "x"))
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})

			Convey("range listing is inclusive and ordered", func() {
				_, err := s.CreateSession(ctx, pendingSession("s3", day(2025, 3, 12), "carol"))
				So(err, ShouldBeNil)
				_, err = s.CreateSession(ctx, pendingSession("s2", day(2025, 3, 11), "bob"))
				So(err, ShouldBeNil)

				got, err := s.ListSessions(ctx, day(2025, 3, 11), day(2025, 3, 12))
				So(err, ShouldBeNil)
				So(len(got), ShouldEqual, 2)
				So(got[0].ID, ShouldEqual, "s2")
				So(got[1].ID, ShouldEqual, "s3")

				all, err := s.ListSessions(ctx, time.Time{}, time.Time{})
				So(err, ShouldBeNil)
				So(len(all), ShouldEqual, 3)
				So(all[0].ID, ShouldEqual, "s1")
			})
		})

		Convey("Atomically rolls back every write when the callback fails", func() {
			boom := errors.New("boom")
			err := s.Atomically(ctx, func(ctx context.Context) error {
				if _, err := s.CreateSession(ctx, pendingSession("s1", day(2025, 3, 10), "alice")); err != nil {
					return err
				}
				if _, err := s.AppendHistoryEntry(ctx, model.HistoryEntry{ID: "h1", SessionID: "s1", PlayedAt: day(2025, 3, 10)}); err != nil {
					return err
				}
				return boom
			})
			So(errors.Is(err, boom), ShouldBeTrue)

			_, err = s.GetSession(ctx, "s1")
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			hist, err := s.ListHistory(ctx, 0)
			So(err, ShouldBeNil)
			So(hist, ShouldBeEmpty)
		})

		Convey("History lists newest first and honours the limit", func() {
			for i, d := range []time.Time{day(2025, 3, 3), day(2025, 3, 10), day(2025, 3, 5)} {
				_, err := s.AppendHistoryEntry(ctx, model.HistoryEntry{
					ID:       []string{"h1", "h2", "h3"}[i],
					DJName:   "alice",
					Title:    "t",
					Artist:   "a",
					PlayedAt: d,
				})
				So(err, ShouldBeNil)
			}

			all, err := s.ListHistory(ctx, 0)
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 3)
			So(all[0].ID, ShouldEqual, "h2")
			So(all[1].ID, ShouldEqual, "h3")
			So(all[2].ID, ShouldEqual, "h1")

			two, err := s.ListHistory(ctx, 2)
			So(err, ShouldBeNil)
			So(len(two), ShouldEqual, 2)
		})
	})
}

func TestOpen(t *testing.T) {
	Convey("Open picks the backend from the driver name", t, func() {
		ctx := context.Background()

		s, err := Open(ctx, DriverMemory, "")
		So(err, ShouldBeNil)
		_, isMemory := s.(*MemoryStore)
		So(isMemory, ShouldBeTrue)
		So(s.Close(), ShouldBeNil)

		s, err = Open(ctx, DriverSQLite, filepath.Join(t.TempDir(), "open.db"))
		So(err, ShouldBeNil)
		_, isGorm := s.(*GormStore)
		So(isGorm, ShouldBeTrue)
		So(s.Close(), ShouldBeNil)

		_, err = Open(ctx, "oracle", "dsn")
		So(errors.Is(err, ErrUnknownDriver), ShouldBeTrue)
		So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
	})
}
