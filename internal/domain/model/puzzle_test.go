package model_test

import (
	"encoding/json"
	"testing"

	"github.com/okian/puzzleprep/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

func TestPuzzleMarshal(t *testing.T) {
	Convey("Given a puzzle decoded from JSON", t, func() {
		raw := json.RawMessage(`{"PuzzleId":"00008","Rating":1760,"Themes":"crushing hangingPiece"}`)
		p := model.Puzzle{Raw: raw, Rating: 1760}

		Convey("When it is marshaled inside a slice", func() {
			out, err := json.Marshal([]model.Puzzle{p})

			Convey("Then the original object should be emitted unchanged", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, `[`+string(raw)+`]`)
			})
		})

		Convey("When the raw bytes are missing", func() {
			out, err := json.Marshal(model.Puzzle{})

			Convey("Then it should marshal as null", func() {
				So(err, ShouldBeNil)
				So(string(out), ShouldEqual, "null")
			})
		})
	})
}

func TestSyntheticRecord(t *testing.T) {
	Convey("Given a synthetic puzzle", t, func() {
		s := model.Synthetic{
			PuzzleID:        "abc",
			FEN:             "8/8/8/8/8/8/8/8 w - - 0 1",
			Moves:           "e2e4 e7e5",
			Rating:          1523,
			RatingDeviation: 75,
			Popularity:      90,
			NbPlays:         120,
			Themes:          "mateIn1 short",
			GameURL:         "https://lichess.org/abc",
			OpeningTags:     "",
		}

		Convey("Then its record should follow the lichess header", func() {
			rec := s.Record()
			So(len(rec), ShouldEqual, len(model.LichessHeader))
			So(rec[0], ShouldEqual, "abc")
			So(rec[3], ShouldEqual, "1523")
			So(rec[7], ShouldEqual, "mateIn1 short")
		})
	})
}
