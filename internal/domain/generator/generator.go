// Package generator produces synthetic puzzles shaped like the lichess
// puzzle dump, for exercising the pipelines without the real dataset.
package generator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/okian/puzzleprep/internal/domain/bands"
	"github.com/okian/puzzleprep/internal/domain/model"
)

// Generation constants.
const (
	defaultOutOfBandShare = 0.05
	outOfBandSpread       = 400.0
	minDeviation          = 60
	deviationRange        = 40
	popularityRange       = 201 // -100..100
	maxPlays              = 50_000
	minThemes             = 1
	maxThemes             = 3
	ctxCheckEvery         = 10_000
)

var (
	positions = []string{ //nolint:gochecknoglobals // fixed sample data
		"r6k/pp2r2p/4Rp1Q/3p4/8/1N1P2R1/PqP2bPP/7K b - - 0 24",
		"5rk1/1p3ppp/pq3b2/8/8/1P1Q1N2/P4PPP/3R2K1 w - - 2 27",
		"r2qr1k1/b1p2ppp/pp4n1/P1P1p3/4P1n1/B2P2Pb/3NBP1P/RN1QR1K1 b - - 1 16",
		"8/8/4k1p1/2KpP2p/5PP1/8/8/8 w - - 0 53",
		"r1bqk2r/pp1nbNp1/2p1p2p/8/2BP4/1PN3P1/P3QP1P/3R1RK1 b kq - 0 19",
	}
	moves = []string{ //nolint:gochecknoglobals // fixed sample data
		"f2g3 e6e7 b2b1 b3c1 b1c1 h6c1",
		"d3d6 f8d8 d6d8 f6d8",
		"b6c5 e2g4 h3g4 d1g4",
		"d5c4 c5c4 g6g5 f4g5",
		"e8f7 e2e6 f7f8 e6f7",
	}
	themes = []string{ //nolint:gochecknoglobals // fixed sample data
		"advantage", "crushing", "endgame", "middlegame", "opening",
		"short", "long", "mateIn1", "mateIn2", "fork", "pin",
		"hangingPiece", "sacrifice", "defensiveMove", "kingsideAttack",
	}
	openings = []string{ //nolint:gochecknoglobals // fixed sample data
		"", "", "Kings_Pawn_Game", "Sicilian_Defense Sicilian_Defense_Najdorf_Variation",
		"French_Defense", "Queens_Gambit_Declined", "Italian_Game",
	}
)

// Generator produces synthetic puzzles. It is not safe for concurrent use.
type Generator struct {
	rng       *rand.Rand
	bands     bands.Set
	outOfBand float64
}

// New creates a generator over the default bands, seeded from the clock
// unless WithSeed is given.
func New(opts ...Option) *Generator {
	g := &Generator{
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())), //nolint:gosec // test data
		bands:     bands.Default(),
		outOfBand: defaultOutOfBandShare,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Generate returns count synthetic puzzles.
func (g *Generator) Generate(ctx context.Context, count int) ([]model.Synthetic, error) {
	if count < 0 {
		return nil, fmt.Errorf("%w: puzzle count must not be negative, got %d", ErrInvalidOptions, count)
	}
	if math.IsNaN(g.outOfBand) || g.outOfBand < 0 || g.outOfBand > 1 {
		return nil, fmt.Errorf("%w: out-of-band share must be within [0, 1], got %v", ErrInvalidOptions, g.outOfBand)
	}
	out := make([]model.Synthetic, count)
	for i := range out {
		if i%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("generation cancelled: %w", err)
			}
		}
		p, err := g.one()
		if err != nil {
			return nil, fmt.Errorf("generate puzzle %d: %w", i, err)
		}
		out[i] = p
	}
	return out, nil
}

func (g *Generator) one() (model.Synthetic, error) {
	id, err := uuid.NewRandomFromReader(g.rng)
	if err != nil {
		return model.Synthetic{}, err
	}
	short := strings.ReplaceAll(id.String(), "-", "")[:8]
	pos := g.rng.Intn(len(positions))

	return model.Synthetic{
		PuzzleID:        id.String(),
		FEN:             positions[pos],
		Moves:           moves[pos],
		Rating:          g.rating(),
		RatingDeviation: minDeviation + g.rng.Intn(deviationRange),
		Popularity:      g.rng.Intn(popularityRange) - 100,
		NbPlays:         g.rng.Intn(maxPlays),
		Themes:          g.themes(),
		GameURL:         "https://lichess.org/" + short,
		OpeningTags:     openings[g.rng.Intn(len(openings))],
	}, nil
}

// rating draws from the band mixture, or from the margins around it with
// probability outOfBand.
func (g *Generator) rating() int {
	low, high := g.bands.Range()
	if g.rng.Float64() < g.outOfBand {
		if g.rng.Intn(2) == 0 {
			return int(low - 1 - g.rng.Float64()*(outOfBandSpread-1))
		}
		return int(high + g.rng.Float64()*outOfBandSpread)
	}

	pick := g.rng.Float64()
	var acc float64
	chosen := g.bands[len(g.bands)-1]
	for _, b := range g.bands {
		acc += b.Proportion
		if pick < acc {
			chosen = b
			break
		}
	}
	r := int(chosen.Low + g.rng.Float64()*(chosen.High-chosen.Low))
	if float64(r) >= chosen.High {
		r = int(chosen.High) - 1
	}
	return r
}

func (g *Generator) themes() string {
	n := minThemes + g.rng.Intn(maxThemes-minThemes+1)
	picked := make([]string, 0, n)
	for _, i := range g.rng.Perm(len(themes))[:n] {
		picked = append(picked, themes[i])
	}
	return strings.Join(picked, " ")
}
