// Package report summarises a rating distribution for operator inspection.
// Nothing here feeds back into the data the pipelines produce.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"

	"github.com/okian/puzzleprep/internal/domain/bands"
)

// percentileStep is the spacing of the percentile table.
const percentileStep = 10

// Percentile is the rating value at a given percentile.
type Percentile struct {
	Rank  int
	Value float64
}

// Summary holds descriptive statistics of a set of ratings.
type Summary struct {
	Count       int
	Mean        float64
	Std         float64 // sample standard deviation (n-1)
	Min         float64
	Q1          float64
	Median      float64
	Q3          float64
	Max         float64
	Percentiles []Percentile // 0th, 10th, ... 100th
}

// Describe computes summary statistics over ratings. ratings is not modified.
func Describe(ratings []float64) Summary {
	s := Summary{Count: len(ratings)}
	if len(ratings) == 0 {
		nan := math.NaN()
		s.Mean, s.Std, s.Min, s.Q1, s.Median, s.Q3, s.Max = nan, nan, nan, nan, nan, nan, nan
		return s
	}

	sorted := append([]float64(nil), ratings...)
	sort.Float64s(sorted)

	var sum float64
	for _, r := range sorted {
		sum += r
	}
	s.Mean = sum / float64(len(sorted))

	if len(sorted) > 1 {
		var sq float64
		for _, r := range sorted {
			d := r - s.Mean
			sq += d * d
		}
		s.Std = math.Sqrt(sq / float64(len(sorted)-1))
	} else {
		s.Std = math.NaN()
	}

	s.Min = sorted[0]
	s.Max = sorted[len(sorted)-1]
	s.Q1 = Quantile(sorted, 0.25)
	s.Median = Quantile(sorted, 0.5)
	s.Q3 = Quantile(sorted, 0.75)

	for p := 0; p <= 100; p += percentileStep {
		s.Percentiles = append(s.Percentiles, Percentile{Rank: p, Value: Quantile(sorted, float64(p)/100)})
	}
	return s
}

// Quantile returns the q-quantile of an ascending slice using linear
// interpolation between the closest ranks.
func Quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return math.NaN()
	}
	q = math.Max(0, math.Min(1, q))
	pos := q * float64(len(sorted)-1)
	lower := int(math.Floor(pos))
	upper := int(math.Ceil(pos))
	if lower == upper {
		return sorted[lower]
	}
	frac := pos - float64(lower)
	return sorted[lower] + (sorted[upper]-sorted[lower])*frac
}

// String renders the summary followed by the percentile table.
func (s Summary) String() string {
	var b strings.Builder
	b.WriteString("Rating Distribution:\n")
	rows := []struct {
		name  string
		value float64
	}{
		{"count", float64(s.Count)},
		{"mean", s.Mean},
		{"std", s.Std},
		{"min", s.Min},
		{"25%", s.Q1},
		{"50%", s.Median},
		{"75%", s.Q3},
		{"max", s.Max},
	}
	for _, r := range rows {
		fmt.Fprintf(&b, "%-6s %14.6f\n", r.name, r.value)
	}

	b.WriteString("\nRating Distribution by Percentiles:\n")
	if s.Count == 0 {
		b.WriteString("no ratings\n")
		return b.String()
	}
	for _, p := range s.Percentiles {
		fmt.Fprintf(&b, "%dth percentile: %.0f\n", p.Rank, p.Value)
	}
	return b.String()
}

// BandCount is the number of ratings inside one band.
type BandCount struct {
	Band  bands.Band
	Count int
}

// Breakdown counts ratings per band.
type Breakdown struct {
	Total     int
	Bands     []BandCount
	OutOfBand int
}

// BreakdownBy counts how many ratings fall in each band of set.
func BreakdownBy(set bands.Set, ratings []float64) Breakdown {
	bd := Breakdown{Total: len(ratings), Bands: make([]BandCount, len(set))}
	for i, b := range set {
		bd.Bands[i].Band = b
	}
	for _, r := range ratings {
		if i := set.Locate(r); i >= 0 {
			bd.Bands[i].Count++
		} else {
			bd.OutOfBand++
		}
	}
	return bd
}

// String renders one line per band with the observed and target share.
func (bd Breakdown) String() string {
	var b strings.Builder
	b.WriteString("Rating Distribution by Band:\n")
	for _, bc := range bd.Bands {
		fmt.Fprintf(&b, "%-14s %8d  %6.2f%%  (target %6.2f%%)\n",
			bc.Band.Label(), bc.Count, share(bc.Count, bd.Total), bc.Band.Proportion*100)
	}
	fmt.Fprintf(&b, "%-14s %8d  %6.2f%%\n", "out of band", bd.OutOfBand, share(bd.OutOfBand, bd.Total))
	return b.String()
}

func share(n, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(n) * 100 / float64(total)
}

// Write prints a titled report for ratings to w. A nil set omits the band
// breakdown.
func Write(w io.Writer, title string, ratings []float64, set bands.Set) error {
	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n")
	b.WriteString(Describe(ratings).String())
	if len(set) > 0 {
		b.WriteString("\n")
		b.WriteString(BreakdownBy(set, ratings).String())
	}
	b.WriteString("\n")
	_, err := io.WriteString(w, b.String())
	return err
}
