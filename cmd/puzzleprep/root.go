package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	service "github.com/okian/puzzleprep/internal/app"
	"github.com/okian/puzzleprep/internal/config"
	"github.com/okian/puzzleprep/pkg/logger"
	"github.com/okian/puzzleprep/pkg/metrics"
)

const version = "0.1.0"

// cli holds state shared by the subcommands of one root command.
type cli struct {
	stdout io.Writer
	stderr io.Writer

	configFile  string
	dataDir     string
	logLevel    string
	logFormat   string
	ratingField string
	seed        int64
	metricsFile string
	progress    bool

	cfg     *config.Config
	log     logger.Logger
	metrics *metrics.Manager
	svc     *service.Service
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	c := &cli{stdout: stdout, stderr: stderr, metrics: metrics.Default()}

	root := &cobra.Command{
		Use:     "puzzleprep",
		Short:   "Prepare lichess puzzle datasets",
		Version: version,
		Long: `Prepare lichess puzzle datasets for downstream use.

Settings come from defaults, an optional YAML file (--config or
PUZZLEPREP_CONFIG), PUZZLEPREP_* environment variables and finally flags.`,
		Example: `  # Draw the default 150000-puzzle stratified sample
  $ puzzleprep sample --data-dir ./data

  # Reproduce an earlier sample
  $ puzzleprep sample --size 50000 --seed 1234

  # Group a JSON puzzle collection into 100-point rating buckets
  $ puzzleprep bucketize --input puzzles.json --output puzzles_by_rating.json

  # Generate a synthetic dump and inspect its distribution
  $ puzzleprep generate --count 200000 --output synthetic.csv
  $ puzzleprep report synthetic.csv`,
		SilenceUsage:      true,
		PersistentPreRunE: c.setup,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.SetVersionTemplate(fmt.Sprintf("puzzleprep version %s\n", version))
	root.CompletionOptions.DisableDefaultCmd = true

	pf := root.PersistentFlags()
	pf.StringVarP(&c.configFile, "config", "c", "", "YAML config file (default $PUZZLEPREP_CONFIG)")
	pf.StringVar(&c.dataDir, "data-dir", "", "directory relative paths are resolved against")
	pf.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVar(&c.logFormat, "log-format", "", "log format: text or json")
	pf.StringVar(&c.ratingField, "rating-field", "", "rating column (CSV) or key (JSON)")
	pf.Int64Var(&c.seed, "seed", 0, "random seed; 0 picks one from the clock")
	pf.StringVar(&c.metricsFile, "metrics-file", "", "write Prometheus metrics to this textfile after the run")
	pf.BoolVar(&c.progress, "progress", false, "show a progress bar while reading large inputs")

	root.AddCommand(c.sampleCmd(), c.bucketizeCmd(), c.generateCmd(), c.reportCmd())
	return root
}

// setup loads configuration, applies flag overrides and builds the logger
// and service for the subcommand about to run.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	var (
		cfg *config.Config
		err error
	)
	if c.configFile != "" {
		cfg, err = config.LoadFile(ctx, c.configFile)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("data-dir") {
		cfg.DataDir = c.dataDir
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = c.logLevel
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = c.logFormat
	}
	if flags.Changed("rating-field") {
		cfg.RatingField = c.ratingField
	}
	if flags.Changed("seed") {
		cfg.Seed = c.seed
	}
	if flags.Changed("metrics-file") {
		cfg.MetricsFile = c.metricsFile
	}
	if flags.Changed("progress") {
		cfg.Progress = c.progress
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := logger.InitWithWriter(c.stderr, cfg.LogFormat); err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	c.log = logger.Get()

	// Apply configured log level (fallback to info on invalid input)
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		c.log.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	c.log.Debug(ctx, "configuration loaded",
		logger.String("data_dir", cfg.DataDir),
		logger.Int64("seed", cfg.Seed),
		logger.Bool("progress", cfg.Progress),
	)

	opts := []service.Option{
		service.WithLogger(c.log),
		service.WithMetrics(c.metrics),
		service.WithReportWriter(c.stdout),
	}
	if cfg.Progress {
		opts = append(opts, service.WithProgress(c.stderr))
	}
	c.cfg = cfg
	c.svc = service.New(opts...)
	return nil
}

// finish exports metrics when a textfile is configured and passes err
// through. Export problems are logged, never returned.
func (c *cli) finish(ctx context.Context, err error) error {
	if c.cfg == nil || c.cfg.MetricsFile == "" {
		return err
	}
	path := c.cfg.Resolve(c.cfg.MetricsFile)
	if exportErr := c.metrics.WriteTextfile(path); exportErr != nil {
		c.log.Warn(ctx, "metrics export failed", logger.String("path", path), logger.Error(exportErr))
	} else {
		c.log.Debug(ctx, "metrics exported", logger.String("path", path))
	}
	return err
}
