package types_test

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/okian/blindtest/internal/domain/model"
	"github.com/okian/blindtest/internal/domain/types"
)

func TestNewSession(t *testing.T) {
	Convey("Given a domain session in a zone east of UTC", t, func() {
		tokyo, err := time.LoadLocation("Asia/Tokyo")
		So(err, ShouldBeNil)
		s := model.Session{
			ID:     "s1",
			Date:   time.Date(2025, 3, 10, 0, 0, 0, 0, tokyo),
			DJName: "Alice",
			Status: model.SessionPending,
		}

		Convey("The wire date keeps the local calendar day", func() {
			v := types.NewSession(s)
			So(v.Date, ShouldEqual, "2025-03-10")
		})

		Convey("Empty optional fields are omitted", func() {
			raw, err := json.Marshal(types.NewSession(s))
			So(err, ShouldBeNil)
			So(string(raw), ShouldContainSubstring, `"date":"2025-03-10"`)
			So(string(raw), ShouldNotContainSubstring, "youtubeUrl")
			So(string(raw), ShouldNotContainSubstring, "skipReason")
		})
	})
}

func TestNewHistory(t *testing.T) {
	Convey("History entries render playedAt as a calendar date", t, func() {
		out := types.NewHistory([]model.HistoryEntry{{
			ID:       "h1",
			DJName:   "Alice",
			PlayedAt: time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC),
		}})
		So(len(out), ShouldEqual, 1)
		So(out[0].PlayedAt, ShouldEqual, "2025-03-07")
	})
}

func TestSpinResultJSON(t *testing.T) {
	Convey("A spin without a winner omits the winner field", t, func() {
		raw, err := json.Marshal(types.SpinResult{Status: types.SpinNoActiveParticipants, Roster: []model.ScoredParticipant{}})
		So(err, ShouldBeNil)
		So(string(raw), ShouldContainSubstring, `"status":"no_active_participants"`)
		So(string(raw), ShouldNotContainSubstring, "winner")
		So(string(raw), ShouldContainSubstring, `"roster":[]`)
	})
}
