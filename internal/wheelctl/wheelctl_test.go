package wheelctl_test

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/okian/blindtest/internal/adapters/http/api"
	service "github.com/okian/blindtest/internal/app"
	"github.com/okian/blindtest/internal/domain/calendar"
	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
	"github.com/okian/blindtest/internal/wheelctl"
	"github.com/okian/blindtest/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	if err := logger.Init(); err != nil {
		panic(err)
	}
}

// mondayMorning is inside the default 10:00-11:00 window.
var mondayMorning = time.Date(2025, 3, 10, 10, 30, 0, 0, time.UTC)

func newServer(t *testing.T) *httptest.Server {
	svc := service.New(
		service.WithLogger(logger.Nop()),
		service.WithLocation(time.UTC),
		service.WithClock(calendar.FixedClock{T: mondayMorning}),
		service.WithRandomSource(func() float64 { return 0.5 }),
	)
	if err := svc.Start(context.Background()); err != nil {
		t.Fatalf("start service: %v", err)
	}
	mux := http.NewServeMux()
	api.NewServer(svc, logger.Nop()).Register(context.Background(), mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(func() {
		srv.Close()
		svc.Stop()
	})
	return srv
}

func TestClient(t *testing.T) {
	Convey("Given a client for a running service", t, func() {
		srv := newServer(t)
		ctx := context.Background()
		client := wheelctl.NewClient(srv.URL+"/", time.Second)

		Convey("Then the health check should pass", func() {
			So(client.Health(ctx), ShouldBeNil)
		})

		Convey("When a participant is added and spun", func() {
			p, err := client.AddParticipant(ctx, types.CreateParticipantRequest{Name: "Alice"})
			So(err, ShouldBeNil)

			res, err := client.Spin(ctx, true)
			So(err, ShouldBeNil)

			Convey("Then they should win and be bookable", func() {
				So(res.Status, ShouldEqual, types.SpinWinner)
				So(res.Winner.ID, ShouldEqual, p.ID)

				sess, err := client.Confirm(ctx, p.ID)
				So(err, ShouldBeNil)
				So(sess.Date, ShouldEqual, "2025-03-11")

				up, err := client.Upcoming(ctx)
				So(err, ShouldBeNil)
				So(up.NextBusinessDay, ShouldNotBeNil)
				So(up.NextBusinessDay.ID, ShouldEqual, sess.ID)
			})

			Convey("Then a duplicate session should surface the existing one", func() {
				first, err := client.CreateSession(ctx, "2025-03-12", p.ID)
				So(err, ShouldBeNil)

				_, err = client.CreateSession(ctx, "2025-03-12", p.ID)
				var apiErr *wheelctl.APIError
				So(errors.As(err, &apiErr), ShouldBeTrue)
				So(apiErr.Status, ShouldEqual, http.StatusConflict)
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
				So(apiErr.Existing, ShouldNotBeNil)
				So(apiErr.Existing.ID, ShouldEqual, first.ID)
			})
		})

		Convey("When asking for an unknown session", func() {
			_, err := client.Skip(ctx, "nope", "")

			Convey("Then the error should match not found", func() {
				So(errors.Is(err, model.ErrNotFound), ShouldBeTrue)
			})
		})
	})

	Convey("Given a client for a server that is down", t, func() {
		srv := httptest.NewServer(http.NotFoundHandler())
		srv.Close()
		client := wheelctl.NewClient(srv.URL, 100*time.Millisecond)

		Convey("Then requests should fail", func() {
			So(client.Health(context.Background()), ShouldNotBeNil)
			_, err := client.Roster(context.Background())
			So(err, ShouldNotBeNil)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Given wheelctl pointed at a running service", t, func() {
		srv := newServer(t)
		ctx := context.Background()
		var out bytes.Buffer
		cfg := &wheelctl.Config{BaseURL: srv.URL, Timeout: time.Second, Out: &out}

		Convey("When no command is given", func() {
			err := wheelctl.Run(ctx, cfg, nil)

			Convey("Then help should be printed with a usage error", func() {
				So(errors.Is(err, wheelctl.ErrUsage), ShouldBeTrue)
				So(out.String(), ShouldContainSubstring, "Commands:")
				So(out.String(), ShouldContainSubstring, "postpone")
			})
		})

		Convey("When the command is unknown", func() {
			err := wheelctl.Run(ctx, cfg, []string{"dance"})

			Convey("Then it should be rejected", func() {
				So(errors.Is(err, wheelctl.ErrUnknownCommand), ShouldBeTrue)
			})
		})

		Convey("When spinning an empty roster", func() {
			So(wheelctl.Run(ctx, cfg, []string{"spin"}), ShouldBeNil)

			Convey("Then it should say so", func() {
				So(out.String(), ShouldContainSubstring, "no active participants")
			})
		})

		Convey("When running the morning routine", func() {
			So(wheelctl.Run(ctx, cfg, []string{"add", "-color", "#fff", "Alice"}), ShouldBeNil)
			So(wheelctl.Run(ctx, cfg, []string{"status"}), ShouldBeNil)
			So(wheelctl.Run(ctx, cfg, []string{"spin", "-confirm"}), ShouldBeNil)

			Convey("Then the output should show the booking", func() {
				So(out.String(), ShouldContainSubstring, "added Alice")
				So(out.String(), ShouldContainSubstring, "open, 30 minutes left")
				So(out.String(), ShouldContainSubstring, "winner: Alice (100.0%)")
				So(out.String(), ShouldContainSubstring, "booked for 2025-03-11")
			})

			Convey("Then a second confirm should be refused", func() {
				client := wheelctl.NewClient(srv.URL, time.Second)
				roster, err := client.Roster(ctx)
				So(err, ShouldBeNil)
				err = wheelctl.Run(ctx, cfg, []string{"confirm", roster[0].ID})
				So(errors.Is(err, model.ErrConflict), ShouldBeTrue)
			})
		})

		Convey("When completing a session", func() {
			client := wheelctl.NewClient(srv.URL, time.Second)
			p, err := client.AddParticipant(ctx, types.CreateParticipantRequest{Name: "Bob"})
			So(err, ShouldBeNil)
			sess, err := client.CreateSession(ctx, "2025-03-10", p.ID)
			So(err, ShouldBeNil)

			err = wheelctl.Run(ctx, cfg, []string{"complete", sess.ID, "-url", "https://youtu.be/dQw4w9WgXcQ", "-title", "Song"})

			Convey("Then history should list it", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, `2025-03-10 completed: "Song" by Bob`)

				out.Reset()
				So(wheelctl.Run(ctx, cfg, []string{"history", "-limit", "1"}), ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "https://youtu.be/dQw4w9WgXcQ")
			})
		})

		Convey("When postponing a session", func() {
			client := wheelctl.NewClient(srv.URL, time.Second)
			p, err := client.AddParticipant(ctx, types.CreateParticipantRequest{Name: "Cleo"})
			So(err, ShouldBeNil)
			sess, err := client.CreateSession(ctx, "2025-03-14", p.ID)
			So(err, ShouldBeNil)

			err = wheelctl.Run(ctx, cfg, []string{"postpone", sess.ID})

			Convey("Then the DJ should move past the weekend", func() {
				So(err, ShouldBeNil)
				So(out.String(), ShouldContainSubstring, "2025-03-14 postponed: Cleo now hosts on 2025-03-17")
			})
		})

		Convey("When complete is missing its link", func() {
			err := wheelctl.Run(ctx, cfg, []string{"complete", "some-id"})

			Convey("Then it should be a usage error", func() {
				So(errors.Is(err, wheelctl.ErrUsage), ShouldBeTrue)
			})
		})

		Convey("When a command gets a stray argument", func() {
			err := wheelctl.Run(ctx, cfg, []string{"roster", "extra"})

			Convey("Then it should be a usage error", func() {
				So(errors.Is(err, wheelctl.ErrUsage), ShouldBeTrue)
			})
		})

		Convey("When asking for JSON output", func() {
			cfg.JSON = true
			So(wheelctl.Run(ctx, cfg, []string{"stats"}), ShouldBeNil)

			Convey("Then raw JSON should be printed", func() {
				So(out.String(), ShouldContainSubstring, `"storeDriver": "memory"`)
			})
		})
	})
}
