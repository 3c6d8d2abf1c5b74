package service

import (
	"fmt"

	"github.com/okian/puzzleprep/internal/config"
	"github.com/okian/puzzleprep/internal/domain/bands"
	"github.com/okian/puzzleprep/internal/domain/sampling"
)

// SampleJob describes one sampler run.
type SampleJob struct {
	Input       string
	Output      string
	RatingField string
	Size        int
	Seed        int64 // zero picks a clock-derived seed
	Bands       bands.Set
}

// SampleSummary reports what a sampler run did.
type SampleSummary struct {
	RunID      string
	Seed       int64
	InputRows  int
	OutputRows int
	Bands      []sampling.BandStat
	Backfilled int
	OutputMB   float64
}

// BucketJob describes one bucketizer run.
type BucketJob struct {
	Input       string
	Output      string
	RatingField string
	Width       int
	Indent      int
}

// BucketSummary reports what a bucketizer run did.
type BucketSummary struct {
	RunID   string
	Records int
	Buckets int
}

// GenerateJob describes one synthetic data run.
type GenerateJob struct {
	Output         string
	Format         string // csv or json; inferred from Output when empty
	Count          int
	Seed           int64 // zero seeds from the clock
	OutOfBandShare float64
	Indent         int
	Bands          bands.Set
}

// GenerateSummary reports what a generator run did.
type GenerateSummary struct {
	RunID  string
	Count  int
	Format string
}

// ReportJob describes one report run.
type ReportJob struct {
	Input       string
	RatingField string
	Bands       bands.Set // nil omits the band breakdown
}

// SampleJobFromConfig builds a sampler job from cfg, resolving paths against
// the data directory.
func SampleJobFromConfig(cfg *config.Config) (SampleJob, error) {
	set, err := bands.New(cfg.Breakpoints, cfg.Proportions)
	if err != nil {
		return SampleJob{}, fmt.Errorf("sample job: %w", err)
	}
	return SampleJob{
		Input:       cfg.Resolve(cfg.SampleInput),
		Output:      cfg.Resolve(cfg.SampleOutput),
		RatingField: cfg.RatingField,
		Size:        cfg.SampleSize,
		Seed:        cfg.Seed,
		Bands:       set,
	}, nil
}

// BucketJobFromConfig builds a bucketizer job from cfg.
func BucketJobFromConfig(cfg *config.Config) BucketJob {
	return BucketJob{
		Input:       cfg.Resolve(cfg.BucketInput),
		Output:      cfg.Resolve(cfg.BucketOutput),
		RatingField: cfg.RatingField,
		Width:       cfg.BucketWidth,
		Indent:      cfg.JSONIndent,
	}
}

// GenerateJobFromConfig builds a generator job writing count puzzles to
// output, drawing ratings from the configured bands.
func GenerateJobFromConfig(cfg *config.Config, output string, count int) (GenerateJob, error) {
	set, err := bands.New(cfg.Breakpoints, cfg.Proportions)
	if err != nil {
		return GenerateJob{}, fmt.Errorf("generate job: %w", err)
	}
	return GenerateJob{
		Output:         cfg.Resolve(output),
		Count:          count,
		Seed:           cfg.Seed,
		OutOfBandShare: 0.05,
		Indent:         cfg.JSONIndent,
		Bands:          set,
	}, nil
}

// ReportJobFromConfig builds a report job for input.
func ReportJobFromConfig(cfg *config.Config, input string) (ReportJob, error) {
	set, err := bands.New(cfg.Breakpoints, cfg.Proportions)
	if err != nil {
		return ReportJob{}, fmt.Errorf("report job: %w", err)
	}
	return ReportJob{
		Input:       cfg.Resolve(input),
		RatingField: cfg.RatingField,
		Bands:       set,
	}, nil
}
