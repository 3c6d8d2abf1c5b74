// Package config defines the pipeline configuration and its defaults.
//
// Values are layered by Load: defaults from New, an optional YAML file, then
// PUZZLEPREP_* environment variables. Command-line flags are applied on top
// by the CLI.
package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log handler: text or json.
	LogFormat string `koanf:"log_format"`

	// DataDir is joined with every relative input/output path.
	DataDir string `koanf:"data_dir"`

	// RatingField names the rating column (CSV) or object key (JSON).
	RatingField string `koanf:"rating_field"`

	// SampleInput and SampleOutput are the sampler's CSV paths.
	SampleInput  string `koanf:"sample_input"`
	SampleOutput string `koanf:"sample_output"`

	// SampleSize is the number of rows the sampler emits.
	SampleSize int `koanf:"sample_size"`

	// Seed drives the sampler's random source. Zero derives a seed from the
	// clock; the chosen seed is logged so the run can be repeated.
	Seed int64 `koanf:"seed"`

	// Breakpoints and Proportions define the sampler's rating bands.
	Breakpoints []float64 `koanf:"breakpoints"`
	Proportions []float64 `koanf:"proportions"`

	// BucketInput and BucketOutput are the bucketizer's JSON paths.
	BucketInput  string `koanf:"bucket_input"`
	BucketOutput string `koanf:"bucket_output"`

	// BucketWidth is the rating span of one bucket.
	BucketWidth int `koanf:"bucket_width"`

	// JSONIndent is the number of spaces used to pretty-print JSON output.
	JSONIndent int `koanf:"json_indent"`

	// MetricsFile, when set, receives a Prometheus textfile after each run.
	MetricsFile string `koanf:"metrics_file"`

	// Progress shows a progress bar while large inputs are read.
	Progress bool `koanf:"progress"`
}

// New creates a Config populated with defaults matching the lichess puzzle
// dump layout.
func New() *Config {
	return &Config{
		LogLevel:     "info",
		LogFormat:    "text",
		DataDir:      ".",
		RatingField:  "Rating",
		SampleInput:  "trimmed_lichess_db_puzzle.csv",
		SampleOutput: "sampled_lichess_db_puzzle.csv",
		SampleSize:   150_000,
		Seed:         0,
		Breakpoints:  []float64{1000, 1400, 1800, 2200, 2600, 3000, 3400},
		Proportions:  []float64{0.15, 0.2, 0.2, 0.2, 0.15, 0.1},
		BucketInput:  "puzzles.json",
		BucketOutput: "puzzles_by_rating.json",
		BucketWidth:  100,
		JSONIndent:   4,
	}
}

// Validate checks the configuration for values no pipeline can run with.
// Band shape is validated again, in more detail, by the bands package.
func (c *Config) Validate() error {
	switch {
	case strings.TrimSpace(c.RatingField) == "":
		return fmt.Errorf("%w: rating_field must not be empty", ErrInvalidConfig)
	case c.SampleSize < 0:
		return fmt.Errorf("%w: sample_size must not be negative, got %d", ErrInvalidConfig, c.SampleSize)
	case c.BucketWidth <= 0:
		return fmt.Errorf("%w: bucket_width must be positive, got %d", ErrInvalidConfig, c.BucketWidth)
	case c.JSONIndent < 0:
		return fmt.Errorf("%w: json_indent must not be negative, got %d", ErrInvalidConfig, c.JSONIndent)
	case len(c.Breakpoints) < 2:
		return fmt.Errorf("%w: at least two breakpoints are required", ErrInvalidConfig)
	case len(c.Proportions) != len(c.Breakpoints)-1:
		return fmt.Errorf("%w: %d breakpoints need %d proportions, got %d",
			ErrInvalidConfig, len(c.Breakpoints), len(c.Breakpoints)-1, len(c.Proportions))
	}
	for _, p := range c.Proportions {
		if math.IsNaN(p) || p < 0 {
			return fmt.Errorf("%w: proportions must be non-negative numbers", ErrInvalidConfig)
		}
	}
	return nil
}

// Resolve joins a relative path with DataDir. Absolute paths are returned
// unchanged.
func (c *Config) Resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.DataDir == "" {
		return path
	}
	return filepath.Join(c.DataDir, path)
}
