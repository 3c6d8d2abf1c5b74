package sampling

import (
	"math/rand"
	"time"

	"github.com/okian/puzzleprep/internal/domain/bands"
)

// Option applies a configuration option to the Sampler.
type Option func(*Sampler)

// WithSeed seeds the sampler's random source. A zero seed is replaced by one
// derived from the clock; Seed reports the value actually used.
func WithSeed(seed int64) Option {
	return func(s *Sampler) {
		if seed == 0 {
			seed = time.Now().UnixNano()
		}
		s.seed = seed
		s.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // sampling, not security
	}
}

// WithRand sets the random source directly. Seed reports zero afterwards.
func WithRand(rng *rand.Rand) Option {
	return func(s *Sampler) {
		if rng != nil {
			s.seed = 0
			s.rng = rng
		}
	}
}

// WithBands replaces the default lichess band set.
func WithBands(set bands.Set) Option {
	return func(s *Sampler) {
		if len(set) > 0 {
			s.bands = set
		}
	}
}
