// Package sampling draws a stratified sample of rows so that the result
// follows a target distribution across rating bands.
package sampling

import (
	"context"
	"fmt"
	"math/rand"

	"github.com/okian/puzzleprep/internal/domain/bands"
)

const defaultRandomSeed = 42

// BandStat records how one band contributed to a sample.
type BandStat struct {
	Band      bands.Band
	Available int // rows in the input falling inside the band
	Target    int // floor(n * proportion)
	Selected  int // rows drawn from the band
}

// Result is the outcome of a Sample call.
type Result struct {
	// Indices into the caller's rows, in shuffled order.
	Indices []int
	// Bands holds per-band accounting in ascending band order.
	Bands []BandStat
	// Backfilled counts rows drawn from leftovers after the band pass.
	Backfilled int
}

// Sampler draws stratified samples. It is not safe for concurrent use
// because it owns a single random source.
type Sampler struct {
	bands bands.Set
	rng   *rand.Rand
	seed  int64
}

// New creates a sampler over the default bands with a fixed seed, so two
// samplers built without options produce the same samples.
func New(opts ...Option) *Sampler {
	s := &Sampler{
		bands: bands.Default(),
		seed:  defaultRandomSeed,
		rng:   rand.New(rand.NewSource(defaultRandomSeed)), //nolint:gosec // deterministic seed for reproducible sampling
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Seed returns the seed of the random source, or zero if it was supplied
// through WithRand.
func (s *Sampler) Seed() int64 {
	return s.seed
}

// Bands returns the band set the sampler draws from.
func (s *Sampler) Bands() bands.Set {
	return s.bands
}

// Sample selects n row indices from ratings.
//
// Each band contributes floor(n * proportion) rows drawn uniformly without
// replacement, or all of its rows when it holds fewer. Any shortfall is then
// drawn uniformly from the rows not yet selected, whatever their rating.
// If the leftovers cannot cover the shortfall ErrInsufficientData is
// returned. The selection is shuffled before it is returned.
func (s *Sampler) Sample(ctx context.Context, ratings []float64, n int) (Result, error) {
	if n < 0 {
		return Result{}, fmt.Errorf("%w: %d", ErrInvalidSampleSize, n)
	}
	if n > len(ratings) {
		return Result{}, fmt.Errorf("%w: requested %d rows, input has %d", ErrInsufficientData, n, len(ratings))
	}

	members := make([][]int, len(s.bands))
	for i, r := range ratings {
		if b := s.bands.Locate(r); b >= 0 {
			members[b] = append(members[b], i)
		}
	}

	res := Result{
		Indices: make([]int, 0, n),
		Bands:   make([]BandStat, len(s.bands)),
	}
	selected := make([]bool, len(ratings))

	for i, band := range s.bands {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("sampling cancelled: %w", err)
		}
		target := band.Target(n)
		chosen := members[i]
		if len(chosen) > target {
			chosen = s.choose(chosen, target)
		}
		for _, idx := range chosen {
			selected[idx] = true
		}
		res.Indices = append(res.Indices, chosen...)
		res.Bands[i] = BandStat{
			Band:      band,
			Available: len(members[i]),
			Target:    target,
			Selected:  len(chosen),
		}
	}

	if remaining := n - len(res.Indices); remaining > 0 {
		if err := ctx.Err(); err != nil {
			return Result{}, fmt.Errorf("sampling cancelled: %w", err)
		}
		leftovers := make([]int, 0, len(ratings)-len(res.Indices))
		for i, taken := range selected {
			if !taken {
				leftovers = append(leftovers, i)
			}
		}
		if len(leftovers) < remaining {
			return Result{}, fmt.Errorf("%w: backfill needs %d rows, %d left", ErrInsufficientData, remaining, len(leftovers))
		}
		res.Indices = append(res.Indices, s.choose(leftovers, remaining)...)
		res.Backfilled = remaining
	}

	s.rng.Shuffle(len(res.Indices), func(i, j int) {
		res.Indices[i], res.Indices[j] = res.Indices[j], res.Indices[i]
	})
	return res, nil
}

// choose draws k distinct elements of pool uniformly with a partial
// Fisher-Yates shuffle. pool is reordered in place.
func (s *Sampler) choose(pool []int, k int) []int {
	for i := 0; i < k; i++ {
		j := i + s.rng.Intn(len(pool)-i)
		pool[i], pool[j] = pool[j], pool[i]
	}
	return pool[:k]
}

// Select returns the rows at the given indices, in index order.
func Select[T any](rows []T, indices []int) []T {
	out := make([]T, len(indices))
	for i, idx := range indices {
		out[i] = rows[idx]
	}
	return out
}
