// Package bands defines the rating bands used for stratified sampling.
package bands

import (
	"fmt"
	"math"
	"sort"
	"strconv"
)

// proportionTolerance bounds the rounding error allowed when proportions are
// summed.
const proportionTolerance = 1e-9

// Band is a half-open rating interval [Low, High) with the share of the final
// sample it should contribute.
type Band struct {
	Low        float64
	High       float64
	Proportion float64
}

// Contains reports whether rating falls inside the band.
func (b Band) Contains(rating float64) bool {
	return rating >= b.Low && rating < b.High
}

// Target returns floor(n * Proportion), the number of rows the band should
// contribute to a sample of size n.
func (b Band) Target(n int) int {
	if n <= 0 {
		return 0
	}
	return int(float64(n) * b.Proportion)
}

// Label renders the band as "[low, high)".
func (b Band) Label() string {
	return "[" + formatBound(b.Low) + ", " + formatBound(b.High) + ")"
}

func formatBound(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// Set is an ordered list of non-overlapping bands.
type Set []Band

// Default returns the band layout used for the lichess puzzle sample.
func Default() Set {
	s, err := New(
		[]float64{1000, 1400, 1800, 2200, 2600, 3000, 3400},
		[]float64{0.15, 0.2, 0.2, 0.2, 0.15, 0.1},
	)
	if err != nil {
		panic(err)
	}
	return s
}

// New builds a Set from ascending breakpoints and one proportion per
// consecutive pair of breakpoints.
func New(breakpoints, proportions []float64) (Set, error) {
	if len(breakpoints) < 2 {
		return nil, fmt.Errorf("%w: need at least two breakpoints, got %d", ErrInvalidBands, len(breakpoints))
	}
	if len(proportions) != len(breakpoints)-1 {
		return nil, fmt.Errorf("%w: %d breakpoints need %d proportions, got %d",
			ErrInvalidBands, len(breakpoints), len(breakpoints)-1, len(proportions))
	}

	var sum float64
	set := make(Set, 0, len(proportions))
	for i, p := range proportions {
		low, high := breakpoints[i], breakpoints[i+1]
		if math.IsNaN(low) || math.IsNaN(high) || math.IsInf(low, 0) || math.IsInf(high, 0) {
			return nil, fmt.Errorf("%w: breakpoints must be finite", ErrInvalidBands)
		}
		if high <= low {
			return nil, fmt.Errorf("%w: breakpoints must be strictly ascending (%v >= %v)", ErrInvalidBands, low, high)
		}
		if math.IsNaN(p) || p < 0 {
			return nil, fmt.Errorf("%w: proportion %d must be non-negative", ErrInvalidBands, i)
		}
		sum += p
		set = append(set, Band{Low: low, High: high, Proportion: p})
	}
	if math.Abs(sum-1) > proportionTolerance {
		return nil, fmt.Errorf("%w: proportions sum to %v, want 1", ErrInvalidBands, sum)
	}
	return set, nil
}

// Locate returns the index of the band containing rating, or -1 when the
// rating is below the first breakpoint or at/above the last.
func (s Set) Locate(rating float64) int {
	if math.IsNaN(rating) {
		return -1
	}
	i := sort.Search(len(s), func(i int) bool { return rating < s[i].High })
	if i < len(s) && s[i].Contains(rating) {
		return i
	}
	return -1
}

// Range returns the lowest and highest breakpoint covered by the set.
func (s Set) Range() (low, high float64) {
	if len(s) == 0 {
		return 0, 0
	}
	return s[0].Low, s[len(s)-1].High
}
