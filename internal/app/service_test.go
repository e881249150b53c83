package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	service "github.com/okian/blindtest/internal/app"
	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/session"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// mondayMorning is inside the default 10:00-11:00 window.
var mondayMorning = time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)

func startService(t *testing.T, now time.Time, opts ...service.Option) *service.Service {
	base := []service.Option{
		service.WithLogger(logger.Nop()),
		service.WithLocation(time.UTC),
		service.WithClock(calendar.FixedClock{T: now}),
		service.WithRandomSource(func() float64 { return 0.5 }),
	}
	svc := service.New(append(base, opts...)...)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	t.Cleanup(svc.Stop)
	return svc
}

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			So(svc.MockDateAllowed(), ShouldBeFalse)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithRegistrationWindow(14, 15),
			service.WithJitter(1, 1),
			service.WithNeverPlayedDays(30),
			service.WithMockDate(true),
		)

		Convey("Then it should be created successfully", func() {
			So(svc, ShouldNotBeNil)
			So(svc.MockDateAllowed(), ShouldBeTrue)
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New(service.WithLogger(logger.Nop()))
		ctx := context.Background()

		Convey("Operations before Start fail", func() {
			_, err := svc.ListParticipants(ctx, false)
			So(errors.Is(err, service.ErrNotStarted), ShouldBeTrue)

			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats.Started, ShouldBeFalse)
		})

		Convey("Start and Stop toggle the started flag", func() {
			So(svc.Start(ctx), ShouldBeNil)
			So(svc.Start(ctx), ShouldBeNil)
			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats.Started, ShouldBeTrue)
			So(stats.StoreDriver, ShouldEqual, "memory")

			svc.Stop()
			stats, _ = svc.GetStats(ctx)
			So(stats.Started, ShouldBeFalse)
		})

		Convey("An unknown store driver fails Start", func() {
			bad := service.New(service.WithLogger(logger.Nop()), service.WithStoreDriver("oracle", "x"))
			So(bad.Start(ctx), ShouldNotBeNil)
		})
	})
}

func TestService_Participants(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startService(t, mondayMorning)

		Convey("Create fills defaults and enforces unique names", func() {
			p, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "  alice "})
			So(err, ShouldBeNil)
			So(p.Name, ShouldEqual, "alice")
			So(p.Avatar, ShouldEqual, "A")
			So(p.Color, ShouldStartWith, "#")
			So(p.IsActive, ShouldBeTrue)

			_, err = svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "alice"})
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)

			_, err = svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "   "})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Update applies only the given fields", func() {
			p, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "bob", Color: "#000000"})
			So(err, ShouldBeNil)

			inactive := false
			last := "2025-03-03"
			got, err := svc.UpdateParticipant(ctx, p.ID, types.UpdateParticipantRequest{IsActive: &inactive, LastPlayedAt: &last})
			So(err, ShouldBeNil)
			So(got.IsActive, ShouldBeFalse)
			So(got.Color, ShouldEqual, "#000000")
			So(calendar.FormatDate(*got.LastPlayedAt), ShouldEqual, "2025-03-03")

			negative := -1
			_, err = svc.UpdateParticipant(ctx, p.ID, types.UpdateParticipantRequest{TotalPlays: &negative})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)

			_, err = svc.UpdateParticipant(ctx, "ghost", types.UpdateParticipantRequest{IsActive: &inactive})
			So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
		})

		Convey("RecordPlay defaults to today", func() {
			p, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "carol"})
			So(err, ShouldBeNil)

			got, err := svc.RecordPlay(ctx, p.ID, time.Time{})
			So(err, ShouldBeNil)
			So(got.TotalPlays, ShouldEqual, 1)
			So(calendar.FormatDate(*got.LastPlayedAt), ShouldEqual, "2025-03-10")
		})
	})
}

func TestService_Settings(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startService(t, mondayMorning)

		Convey("Weights outside [0,1] are rejected", func() {
			_, err := svc.UpdateProbabilitySettings(ctx, model.ProbabilitySettings{WeightLastPlayed: 1.5, WeightTotalPlays: 0.3})
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)

			st, err := svc.GetSettings(ctx)
			So(err, ShouldBeNil)
			So(st.Probability.WeightLastPlayed, ShouldEqual, 0.7)
		})

		Convey("Valid weights are stored", func() {
			_, err := svc.UpdateProbabilitySettings(ctx, model.ProbabilitySettings{WeightLastPlayed: 0, WeightTotalPlays: 1})
			So(err, ShouldBeNil)
			st, err := svc.GetSettings(ctx)
			So(err, ShouldBeNil)
			So(st.Probability.WeightTotalPlays, ShouldEqual, 1)
		})
	})
}

func TestService_Spin(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service", t, func() {
		svc := startService(t, mondayMorning)

		Convey("An empty roster reports no active participants", func() {
			res, err := svc.Spin(ctx, false)
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, types.SpinNoActiveParticipants)
			So(res.Winner, ShouldBeNil)
			So(res.Roster, ShouldBeEmpty)
			So(res.Registration.CanRegister, ShouldBeTrue)
		})

		Convey("A newcomer beats a regular", func() {
			_, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "newcomer"})
			So(err, ShouldBeNil)
			regular, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "regular"})
			So(err, ShouldBeNil)
			for i := 0; i < 10; i++ {
				_, err = svc.RecordPlay(ctx, regular.ID, day(2025, 3, 7))
				So(err, ShouldBeNil)
			}

			roster, err := svc.GetScoredRoster(ctx)
			So(err, ShouldBeNil)
			So(len(roster), ShouldEqual, 2)
			So(roster[0].Name, ShouldEqual, "newcomer")
			So(roster[0].Probability+roster[1].Probability, ShouldAlmostEqual, 100, 1e-9)

			res, err := svc.Spin(ctx, true)
			So(err, ShouldBeNil)
			So(res.Status, ShouldEqual, types.SpinWinner)
			So(res.Winner.Name, ShouldEqual, "newcomer")
		})

		Convey("Enforcing the gate outside the window refuses to spin", func() {
			late := startService(t, time.Date(2025, 3, 10, 15, 0, 0, 0, time.UTC))
			res, err := late.Spin(ctx, true)
			So(errors.Is(err, service.ErrRegistrationClosed), ShouldBeTrue)
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			So(res.Registration.ReasonCode, ShouldEqual, "window_closed")

			res, err = late.Spin(ctx, false)
			So(err, ShouldBeNil)
			So(res.Registration.CanRegister, ShouldBeFalse)
		})
	})
}

func TestService_ConfirmWinner(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service inside the registration window", t, func() {
		svc := startService(t, mondayMorning)
		alice, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "alice"})
		So(err, ShouldBeNil)

		Convey("Confirming books the next business day and locks today", func() {
			s, err := svc.ConfirmWinner(ctx, alice.ID)
			So(err, ShouldBeNil)
			So(s.Date, ShouldEqual, "2025-03-11")
			So(s.DJName, ShouldEqual, "alice")
			So(s.Status, ShouldEqual, model.SessionPending)

			reg, err := svc.CanRegisterNow(ctx)
			So(err, ShouldBeNil)
			So(reg.CanRegister, ShouldBeFalse)
			So(reg.ReasonCode, ShouldEqual, "already_locked")

			_, err = svc.ConfirmWinner(ctx, alice.ID)
			So(errors.Is(err, service.ErrRegistrationClosed), ShouldBeTrue)
		})

		Convey("A skipped session on the next day is taken over", func() {
			bob, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "bob"})
			So(err, ShouldBeNil)
			existing, err := svc.CreatePendingSession(ctx, day(2025, 3, 11), bob.ID)
			So(err, ShouldBeNil)
			_, err = svc.SkipSession(ctx, existing.ID, "")
			So(err, ShouldBeNil)

			s, err := svc.ConfirmWinner(ctx, alice.ID)
			So(err, ShouldBeNil)
			So(s.ID, ShouldEqual, existing.ID)
			So(s.DJName, ShouldEqual, "alice")
			So(s.Status, ShouldEqual, model.SessionPending)
		})

		Convey("Inactive participants cannot be confirmed", func() {
			inactive := false
			_, err := svc.UpdateParticipant(ctx, alice.ID, types.UpdateParticipantRequest{IsActive: &inactive})
			So(err, ShouldBeNil)

			_, err = svc.ConfirmWinner(ctx, alice.ID)
			So(errors.Is(err, service.ErrInactiveParticipant), ShouldBeTrue)

			reg, err := svc.CanRegisterNow(ctx)
			So(err, ShouldBeNil)
			So(reg.CanRegister, ShouldBeTrue)
		})
	})
}

func TestService_Sessions(t *testing.T) {
	ctx := context.Background()

	Convey("Given a started service with one participant", t, func() {
		svc := startService(t, mondayMorning)
		alice, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "alice"})
		So(err, ShouldBeNil)

		Convey("A duplicate create reports the existing session", func() {
			first, err := svc.CreatePendingSession(ctx, day(2025, 3, 10), alice.ID)
			So(err, ShouldBeNil)
			_, err = svc.CreatePendingSession(ctx, day(2025, 3, 10), alice.ID)
			So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			var conflict *session.ConflictError
			So(errors.As(err, &conflict), ShouldBeTrue)
			So(conflict.Existing.ID, ShouldEqual, first.ID)
		})

		Convey("Completing records history and the play", func() {
			s, err := svc.CreatePendingSession(ctx, day(2025, 3, 10), alice.ID)
			So(err, ShouldBeNil)

			res, err := svc.CompleteSession(ctx, s.ID, types.CompleteSessionRequest{YoutubeURL: "youtu.be/dQw4w9WgXcQ", Title: "Song"})
			So(err, ShouldBeNil)
			So(res.Session.Status, ShouldEqual, model.SessionCompleted)
			So(res.History.PlayedAt, ShouldEqual, "2025-03-10")
			So(res.Participant, ShouldNotBeNil)
			So(res.Participant.TotalPlays, ShouldEqual, 1)

			Convey("and a second completion changes nothing", func() {
				_, err := svc.CompleteSession(ctx, s.ID, types.CompleteSessionRequest{YoutubeURL: "youtu.be/aaaaaaaaaaa", Title: "Other"})
				So(errors.Is(err, model.ErrInvalidTransition), ShouldBeTrue)

				got, err := svc.GetSession(ctx, s.ID)
				So(err, ShouldBeNil)
				So(got.Title, ShouldEqual, "Song")
				p, _ := svc.GetParticipant(ctx, alice.ID)
				So(p.TotalPlays, ShouldEqual, 1)
				hist, _ := svc.ListHistory(ctx, 0)
				So(len(hist), ShouldEqual, 1)
			})
		})

		Convey("Backfilled completions leave counters alone", func() {
			s, err := svc.CreatePendingSession(ctx, day(2025, 3, 3), alice.ID)
			So(err, ShouldBeNil)
			res, err := svc.CompleteSession(ctx, s.ID, types.CompleteSessionRequest{YoutubeURL: "https://youtube.com/watch?v=dQw4w9WgXcQ", SkipPlayRecord: true})
			So(err, ShouldBeNil)
			So(res.Participant, ShouldBeNil)
			p, _ := svc.GetParticipant(ctx, alice.ID)
			So(p.TotalPlays, ShouldEqual, 0)
		})

		Convey("Postponing Friday onto an existing Monday updates it in place", func() {
			bob, err := svc.CreateParticipant(ctx, types.CreateParticipantRequest{Name: "bob"})
			So(err, ShouldBeNil)
			friday, err := svc.CreatePendingSession(ctx, day(2025, 3, 14), alice.ID)
			So(err, ShouldBeNil)
			monday, err := svc.CreatePendingSession(ctx, day(2025, 3, 17), bob.ID)
			So(err, ShouldBeNil)

			res, err := svc.PostponeSession(ctx, friday.ID, nil)
			So(err, ShouldBeNil)
			So(res.Postponed.Status, ShouldEqual, model.SessionSkipped)
			So(res.Postponed.SkipReason, ShouldEqual, "postponed")
			So(res.Next.ID, ShouldEqual, monday.ID)
			So(res.Next.DJName, ShouldEqual, "alice")

			all, err := svc.ListSessions(ctx, day(2025, 3, 1), day(2025, 3, 31))
			So(err, ShouldBeNil)
			So(len(all), ShouldEqual, 2)
		})

		Convey("Upcoming finds today's and the next business day's sessions", func() {
			_, err := svc.CreatePendingSession(ctx, day(2025, 3, 11), alice.ID)
			So(err, ShouldBeNil)

			up, err := svc.Upcoming(ctx)
			So(err, ShouldBeNil)
			So(up.Today, ShouldBeNil)
			So(up.NextBusinessDay, ShouldNotBeNil)
			So(up.NextBusinessDay.Date, ShouldEqual, "2025-03-11")
		})

		Convey("Reversed ranges are rejected", func() {
			_, err := svc.ListSessions(ctx, day(2025, 3, 31), day(2025, 3, 1))
			So(errors.Is(err, model.ErrValidation), ShouldBeTrue)
		})

		Convey("Stats count what is stored", func() {
			s, _ := svc.CreatePendingSession(ctx, day(2025, 3, 10), alice.ID)
			_, err := svc.SkipSession(ctx, s.ID, "")
			So(err, ShouldBeNil)
			_, err = svc.CreatePendingSession(ctx, day(2025, 3, 11), alice.ID)
			So(err, ShouldBeNil)

			stats, err := svc.GetStats(ctx)
			So(err, ShouldBeNil)
			So(stats.Participants, ShouldEqual, 1)
			So(stats.ActiveParticipants, ShouldEqual, 1)
			So(stats.SessionsByStatus["skipped"], ShouldEqual, 1)
			So(stats.SessionsByStatus["pending"], ShouldEqual, 1)
		})
	})
}

func TestService_MockDate(t *testing.T) {
	ctx := context.Background()

	Convey("Given a service without the debug override", t, func() {
		svc := startService(t, mondayMorning)

		Convey("Setting a mock date is refused", func() {
			_, err := svc.SetMockDate(ctx, day(2025, 3, 15))
			So(errors.Is(err, service.ErrMockDateDisabled), ShouldBeTrue)
			md, err := svc.GetMockDate()
			So(err, ShouldBeNil)
			So(md.Active, ShouldBeFalse)
		})
	})

	Convey("Given a service with the debug override", t, func() {
		svc := startService(t, mondayMorning, service.WithMockDate(true))

		Convey("A Saturday mock date closes registration as a weekend", func() {
			md, err := svc.SetMockDate(ctx, day(2025, 3, 15))
			So(err, ShouldBeNil)
			So(md.Active, ShouldBeTrue)
			So(md.Date, ShouldEqual, "2025-03-15")

			reg, err := svc.CanRegisterNow(ctx)
			So(err, ShouldBeNil)
			So(reg.CanRegister, ShouldBeFalse)
			So(reg.ReasonCode, ShouldEqual, "weekend")
			So(reg.Today, ShouldEqual, "2025-03-15")
			So(reg.CurrentHour, ShouldEqual, 10)

			md, err = svc.ClearMockDate(ctx)
			So(err, ShouldBeNil)
			So(md.Active, ShouldBeFalse)
			reg, _ = svc.CanRegisterNow(ctx)
			So(reg.CanRegister, ShouldBeTrue)
		})
	})
}
