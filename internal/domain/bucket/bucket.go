// Package bucket groups puzzles into fixed-width rating buckets.
package bucket

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/okian/puzzleprep/internal/domain/model"
)

// DefaultWidth is the rating span of one bucket.
const DefaultWidth = 100

// maxKey bounds bucket edges to integers a float64 holds exactly.
const maxKey = 1 << 53

// Bucket holds every puzzle whose rating rounds down to Low.
type Bucket struct {
	Low     int            // floor(rating/width)*width
	High    int            // Low + width - 1
	Puzzles []model.Puzzle // input order preserved
}

// Label renders the bucket as "{low}-{high}", e.g. "1400-1499".
func (b Bucket) Label() string {
	return strconv.Itoa(b.Low) + "-" + strconv.Itoa(b.High)
}

// Key returns the bucket floor for rating. Width must be positive.
func Key(rating float64, width int) (int, error) {
	if math.IsNaN(rating) || math.IsInf(rating, 0) {
		return 0, fmt.Errorf("%w: rating %v", ErrMissingRating, rating)
	}
	low := math.Floor(rating/float64(width)) * float64(width)
	if low < -maxKey || low+float64(width) > maxKey {
		return 0, fmt.Errorf("%w: rating %v", ErrRatingOutOfRange, rating)
	}
	return int(low), nil
}

// Bucketize partitions records by rating into buckets of the given width.
// Buckets are returned in ascending order; within a bucket records keep
// their input order. Every record lands in exactly one bucket.
func Bucketize(records []model.Puzzle, width int) ([]Bucket, error) {
	if width <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidWidth, width)
	}

	groups := make(map[int][]model.Puzzle)
	for i, rec := range records {
		g, err := Key(rec.Rating, width)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		groups[g] = append(groups[g], rec)
	}

	keys := make([]int, 0, len(groups))
	for g := range groups {
		keys = append(keys, g)
	}
	sort.Ints(keys)

	out := make([]Bucket, len(keys))
	for i, g := range keys {
		out[i] = Bucket{Low: g, High: g + width - 1, Puzzles: groups[g]}
	}
	return out, nil
}

// Total returns the number of puzzles across buckets.
func Total(buckets []Bucket) int {
	n := 0
	for _, b := range buckets {
		n += len(b.Puzzles)
	}
	return n
}
