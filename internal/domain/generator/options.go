package generator

import (
	"math/rand"

	"github.com/okian/puzzleprep/internal/domain/bands"
)

// Option applies a configuration option to the Generator.
type Option func(*Generator)

// WithSeed makes generation deterministic, puzzle IDs included.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.rng = rand.New(rand.NewSource(seed)) //nolint:gosec // test data
	}
}

// WithBands sets the band mixture ratings are drawn from.
func WithBands(set bands.Set) Option {
	return func(g *Generator) {
		if len(set) > 0 {
			g.bands = set
		}
	}
}

// WithOutOfBandShare sets the fraction of puzzles rated outside the bands.
// Generate rejects values outside [0, 1].
func WithOutOfBandShare(share float64) Option {
	return func(g *Generator) {
		g.outOfBand = share
	}
}
