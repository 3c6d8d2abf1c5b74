package main

import (
	"github.com/spf13/cobra"

	service "github.com/okian/puzzleprep/internal/app"
)

const (
	defaultGenerateOutput = "synthetic_lichess_db_puzzle.csv"
	defaultGenerateCount  = 10_000
	defaultOutOfBandShare = 0.05
)

func (c *cli) sampleCmd() *cobra.Command {
	var (
		input, output string
		size          int
		breakpoints   []float64
		proportions   []float64
	)
	cmd := &cobra.Command{
		Use:   "sample",
		Short: "draw a rating-stratified sample from a puzzle CSV",
		Long: `Draw a fixed-size sample from the puzzle CSV, allocating rows to rating
bands by proportion. Bands that run short are topped up from the remaining
rows, and the sample is shuffled before it is written with the input header.`,
		Example: `  $ puzzleprep sample --input trimmed.csv --output sampled.csv --size 150000 --seed 42
  $ puzzleprep sample --breakpoints 1000,2000,3000 --proportions 0.5,0.5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("input") {
				c.cfg.SampleInput = input
			}
			if flags.Changed("output") {
				c.cfg.SampleOutput = output
			}
			if flags.Changed("size") {
				c.cfg.SampleSize = size
			}
			if flags.Changed("breakpoints") {
				c.cfg.Breakpoints = breakpoints
			}
			if flags.Changed("proportions") {
				c.cfg.Proportions = proportions
			}
			if err := c.cfg.Validate(); err != nil {
				return c.finish(cmd.Context(), err)
			}

			job, err := service.SampleJobFromConfig(c.cfg)
			if err != nil {
				return c.finish(cmd.Context(), err)
			}
			_, err = c.svc.RunSample(cmd.Context(), job)
			return c.finish(cmd.Context(), err)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "puzzle CSV to sample from (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "where to write the sample (default from config)")
	cmd.Flags().IntVarP(&size, "size", "n", 0, "number of puzzles to sample (default from config)")
	cmd.Flags().Float64SliceVar(&breakpoints, "breakpoints", nil, "ascending band edges")
	cmd.Flags().Float64SliceVar(&proportions, "proportions", nil, "share of the sample per band")
	return cmd
}

func (c *cli) bucketizeCmd() *cobra.Command {
	var (
		input, output string
		width, indent int
	)
	cmd := &cobra.Command{
		Use:   "bucketize",
		Short: "group a JSON puzzle array into rating buckets",
		Long: `Group a JSON array of puzzle objects into an object keyed by rating range,
such as "1300-1399". Keys are written in ascending order and each puzzle is
kept verbatim in its input order.`,
		Example: `  $ puzzleprep bucketize --input puzzles.json --output puzzles_by_rating.json
  $ puzzleprep bucketize --width 200 --indent 2`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			flags := cmd.Flags()
			if flags.Changed("input") {
				c.cfg.BucketInput = input
			}
			if flags.Changed("output") {
				c.cfg.BucketOutput = output
			}
			if flags.Changed("width") {
				c.cfg.BucketWidth = width
			}
			if flags.Changed("indent") {
				c.cfg.JSONIndent = indent
			}
			if err := c.cfg.Validate(); err != nil {
				return c.finish(cmd.Context(), err)
			}

			_, err := c.svc.RunBucketize(cmd.Context(), service.BucketJobFromConfig(c.cfg))
			return c.finish(cmd.Context(), err)
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON puzzle array (default from config)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "where to write the bucket object (default from config)")
	cmd.Flags().IntVar(&width, "width", 0, "rating span of one bucket (default from config)")
	cmd.Flags().IntVar(&indent, "indent", 0, "spaces per JSON indent level (default from config)")
	return cmd
}

func (c *cli) generateCmd() *cobra.Command {
	var (
		output, format string
		count, indent  int
		outOfBand      float64
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "write a synthetic lichess-shaped puzzle dataset",
		Long: `Write synthetic puzzles with the lichess dump columns. Ratings follow the
configured band proportions, with a share placed outside the bands. The
output is CSV or a JSON array, chosen by --format or the file extension.`,
		Example: `  $ puzzleprep generate --count 200000 --output synthetic.csv --seed 7
  $ puzzleprep generate --count 5000 --output puzzles.json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmd.Flags().Changed("indent") {
				c.cfg.JSONIndent = indent
			}
			if err := c.cfg.Validate(); err != nil {
				return c.finish(cmd.Context(), err)
			}
			job, err := service.GenerateJobFromConfig(c.cfg, output, count)
			if err != nil {
				return c.finish(cmd.Context(), err)
			}
			job.Format = format
			job.OutOfBandShare = outOfBand

			_, err = c.svc.RunGenerate(cmd.Context(), job)
			return c.finish(cmd.Context(), err)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", defaultGenerateOutput, "where to write the dataset")
	cmd.Flags().StringVar(&format, "format", "", "csv or json (default from the output extension)")
	cmd.Flags().IntVarP(&count, "count", "n", defaultGenerateCount, "number of puzzles to generate")
	cmd.Flags().IntVar(&indent, "indent", 0, "spaces per JSON indent level (default from config)")
	cmd.Flags().Float64Var(&outOfBand, "out-of-band", defaultOutOfBandShare, "share of puzzles rated outside the bands")
	return cmd
}

func (c *cli) reportCmd() *cobra.Command {
	var noBands bool
	cmd := &cobra.Command{
		Use:   "report [file]",
		Short: "print the rating distribution of a CSV or JSON dataset",
		Long: `Print descriptive statistics, deciles and the per-band breakdown of the
ratings in a dataset. Files ending in .json are read as puzzle arrays, anything
else as CSV. Without an argument the configured sample output is reported.`,
		Example: `  $ puzzleprep report sampled_lichess_db_puzzle.csv
  $ puzzleprep report puzzles.json --no-bands`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			input := c.cfg.SampleOutput
			if len(args) == 1 {
				input = args[0]
			}
			job, err := service.ReportJobFromConfig(c.cfg, input)
			if err != nil {
				return c.finish(cmd.Context(), err)
			}
			if noBands {
				job.Bands = nil
			}
			_, err = c.svc.RunReport(cmd.Context(), job)
			return c.finish(cmd.Context(), err)
		},
	}
	cmd.Flags().BoolVar(&noBands, "no-bands", false, "omit the per-band breakdown")
	return cmd
}
