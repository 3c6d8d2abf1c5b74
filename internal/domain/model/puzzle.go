// Package model contains domain models passed between layers.
package model

import (
	"encoding/json"
	"strconv"
)

// Puzzle is one puzzle object from a JSON collection. The object is kept
// verbatim so every field, including its formatting, is carried through.
type Puzzle struct {
	Raw    json.RawMessage // original object bytes
	Rating float64         // parsed value of the rating field
}

// MarshalJSON emits the original object unchanged.
func (p Puzzle) MarshalJSON() ([]byte, error) {
	if len(p.Raw) == 0 {
		return []byte("null"), nil
	}
	return p.Raw, nil
}

// LichessHeader is the column order of the lichess puzzle dump.
var LichessHeader = []string{ //nolint:gochecknoglobals // fixed column layout
	"PuzzleId", "FEN", "Moves", "Rating", "RatingDeviation",
	"Popularity", "NbPlays", "Themes", "GameUrl", "OpeningTags",
}

// Synthetic is a generated puzzle shaped like a lichess dump row.
type Synthetic struct {
	PuzzleID        string `json:"PuzzleId"`
	FEN             string `json:"FEN"`
	Moves           string `json:"Moves"`
	Rating          int    `json:"Rating"`
	RatingDeviation int    `json:"RatingDeviation"`
	Popularity      int    `json:"Popularity"`
	NbPlays         int    `json:"NbPlays"`
	Themes          string `json:"Themes"`
	GameURL         string `json:"GameUrl"`
	OpeningTags     string `json:"OpeningTags"`
}

// Record returns the puzzle as CSV cells in LichessHeader order.
func (s Synthetic) Record() []string {
	return []string{
		s.PuzzleID,
		s.FEN,
		s.Moves,
		strconv.Itoa(s.Rating),
		strconv.Itoa(s.RatingDeviation),
		strconv.Itoa(s.Popularity),
		strconv.Itoa(s.NbPlays),
		s.Themes,
		s.GameURL,
		s.OpeningTags,
	}
}
