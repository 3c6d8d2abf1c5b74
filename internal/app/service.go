// Package service runs the puzzle preparation pipelines: it wires the dataset
// adapters to the sampling, bucketing, generation and report domains and
// records logs and metrics for every run.
package service

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/okian/puzzleprep/internal/adapters/dataset"
	"github.com/okian/puzzleprep/internal/domain/bucket"
	"github.com/okian/puzzleprep/internal/domain/generator"
	"github.com/okian/puzzleprep/internal/domain/model"
	"github.com/okian/puzzleprep/internal/domain/report"
	"github.com/okian/puzzleprep/internal/domain/sampling"
	"github.com/okian/puzzleprep/pkg/logger"
	"github.com/okian/puzzleprep/pkg/metrics"
)

// Service runs pipelines. Runs are independent, but sampler and bucketizer
// gauges hold the values of the last run only.
type Service struct {
	logger   logger.Logger
	metrics  *metrics.Manager
	report   io.Writer
	progress io.Writer
	now      func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithMetrics sets the metrics manager runs are recorded on.
func WithMetrics(m *metrics.Manager) Option {
	return func(s *Service) {
		if m != nil {
			s.metrics = m
		}
	}
}

// WithReportWriter sets where distribution reports are printed.
func WithReportWriter(w io.Writer) Option {
	return func(s *Service) {
		if w != nil {
			s.report = w
		}
	}
}

// WithProgress renders read progress bars to w. A nil writer disables them.
func WithProgress(w io.Writer) Option {
	return func(s *Service) {
		s.progress = w
	}
}

// New creates a service. Without options it logs nowhere, reports to stdout
// and records on the process-wide metrics manager.
func New(opts ...Option) *Service {
	s := &Service{
		logger:  logger.Nop(),
		metrics: metrics.Default(),
		report:  os.Stdout,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// run wraps a pipeline with a run id, timing and outcome metrics.
func (s *Service) run(ctx context.Context, pipeline string, fn func(log logger.Logger) error) (string, error) {
	id := uuid.NewString()
	log := s.logger.Named(pipeline).With(logger.String("run_id", id))
	start := s.now()

	log.Info(ctx, "pipeline started")
	err := fn(log)
	elapsed := s.now().Sub(start)

	if err != nil {
		kind := ErrorKind(err)
		s.metrics.RecordError(pipeline, kind)
		s.metrics.RecordRun(pipeline, metrics.StatusFailure, elapsed)
		log.Error(ctx, "pipeline failed",
			logger.String("kind", kind),
			logger.Duration("elapsed", elapsed),
			logger.Error(err),
		)
		return id, err
	}

	s.metrics.RecordRun(pipeline, metrics.StatusSuccess, elapsed)
	log.Info(ctx, "pipeline finished", logger.Duration("elapsed", elapsed))
	return id, nil
}

func (s *Service) readOptions() []dataset.ReadOption {
	if s.progress == nil {
		return nil
	}
	return []dataset.ReadOption{dataset.WithProgress(s.progress)}
}

// RunSample reads the CSV at job.Input, draws a stratified sample of
// job.Size rows and writes it to job.Output with the input header.
func (s *Service) RunSample(ctx context.Context, job SampleJob) (SampleSummary, error) {
	var sum SampleSummary
	id, err := s.run(ctx, metrics.PipelineSample, func(log logger.Logger) error {
		table, err := dataset.ReadTable(ctx, job.Input, job.RatingField, s.readOptions()...)
		if err != nil {
			return err
		}
		sum.InputRows = table.Len()
		s.metrics.RecordRowsRead(metrics.PipelineSample, table.Len())
		log.Info(ctx, "input loaded",
			logger.String("path", job.Input),
			logger.Int("rows", table.Len()),
		)

		if err := report.Write(s.report, "Original trimmed database:", table.Ratings, job.Bands); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		sampler := sampling.New(sampling.WithSeed(job.Seed), sampling.WithBands(job.Bands))
		sum.Seed = sampler.Seed()
		log.Info(ctx, "sampling",
			logger.Int("size", job.Size),
			logger.Int64("seed", sampler.Seed()),
		)

		res, err := sampler.Sample(ctx, table.Ratings, job.Size)
		if err != nil {
			return err
		}
		sum.Bands = res.Bands
		sum.Backfilled = res.Backfilled
		for _, st := range res.Bands {
			s.metrics.RecordBand(st.Band.Label(), st.Available, st.Target, st.Selected)
			log.Debug(ctx, "band drawn",
				logger.String("band", st.Band.Label()),
				logger.Int("available", st.Available),
				logger.Int("target", st.Target),
				logger.Int("selected", st.Selected),
			)
		}
		s.metrics.RecordBackfill(res.Backfilled)
		if res.Backfilled > 0 {
			log.Info(ctx, "backfilled from leftover rows", logger.Int("rows", res.Backfilled))
		}

		rows := sampling.Select(table.Rows, res.Indices)
		ratings := sampling.Select(table.Ratings, res.Indices)
		title := fmt.Sprintf("Sampled %d puzzles:", len(rows))
		if err := report.Write(s.report, title, ratings, job.Bands); err != nil {
			return fmt.Errorf("write report: %w", err)
		}

		if err := dataset.WriteTable(job.Output, table.Header, rows); err != nil {
			return err
		}
		sum.OutputRows = len(rows)
		s.metrics.RecordRowsWritten(metrics.PipelineSample, len(rows))

		size, err := dataset.FileSizeMB(job.Output)
		if err != nil {
			return err
		}
		sum.OutputMB = size
		fmt.Fprintf(s.report, "Sampled database saved to %s\n", job.Output)
		fmt.Fprintf(s.report, "New file size: %.2f MB\n", size)
		fmt.Fprintf(s.report, "Number of puzzles in sampled database: %d\n", len(rows))
		log.Info(ctx, "sample written",
			logger.String("path", job.Output),
			logger.Int("rows", len(rows)),
			logger.Float64("size_mb", size),
		)
		return nil
	})
	sum.RunID = id
	return sum, err
}

// RunBucketize reads the JSON array at job.Input and writes its records
// grouped into rating buckets to job.Output.
func (s *Service) RunBucketize(ctx context.Context, job BucketJob) (BucketSummary, error) {
	var sum BucketSummary
	id, err := s.run(ctx, metrics.PipelineBucketize, func(log logger.Logger) error {
		puzzles, err := dataset.ReadPuzzles(job.Input, job.RatingField)
		if err != nil {
			return err
		}
		sum.Records = len(puzzles)
		s.metrics.RecordRowsRead(metrics.PipelineBucketize, len(puzzles))
		log.Info(ctx, "input loaded",
			logger.String("path", job.Input),
			logger.Int("records", len(puzzles)),
		)

		if err := ctx.Err(); err != nil {
			return fmt.Errorf("bucketize cancelled: %w", err)
		}
		buckets, err := bucket.Bucketize(puzzles, job.Width)
		if err != nil {
			return err
		}
		sum.Buckets = len(buckets)
		s.metrics.RecordBuckets(len(buckets))

		if err := dataset.WriteBuckets(job.Output, buckets, job.Indent); err != nil {
			return err
		}
		s.metrics.RecordRowsWritten(metrics.PipelineBucketize, bucket.Total(buckets))
		fmt.Fprintf(s.report, "Grouped %d puzzles into %d rating buckets\n", len(puzzles), len(buckets))
		fmt.Fprintf(s.report, "Bucketed puzzles saved to %s\n", job.Output)
		log.Info(ctx, "buckets written",
			logger.String("path", job.Output),
			logger.Int("buckets", len(buckets)),
		)
		return nil
	})
	sum.RunID = id
	return sum, err
}

// RunGenerate writes job.Count synthetic puzzles to job.Output, as CSV with
// the lichess header or as a JSON array depending on job.Format.
func (s *Service) RunGenerate(ctx context.Context, job GenerateJob) (GenerateSummary, error) {
	var sum GenerateSummary
	id, err := s.run(ctx, metrics.PipelineGenerate, func(log logger.Logger) error {
		format := job.Format
		if format == "" {
			format = FormatFromPath(job.Output)
		}

		opts := []generator.Option{
			generator.WithBands(job.Bands),
			generator.WithOutOfBandShare(job.OutOfBandShare),
		}
		if job.Seed != 0 {
			opts = append(opts, generator.WithSeed(job.Seed))
		}
		puzzles, err := generator.New(opts...).Generate(ctx, job.Count)
		if err != nil {
			return err
		}

		switch format {
		case FormatCSV:
			rows := make([][]string, len(puzzles))
			for i, p := range puzzles {
				rows[i] = p.Record()
			}
			err = dataset.WriteTable(job.Output, model.LichessHeader, rows)
		case FormatJSON:
			err = dataset.WriteJSON(job.Output, puzzles, job.Indent)
		default:
			return fmt.Errorf("%w: unknown output format %q", dataset.ErrMalformedInput, format)
		}
		if err != nil {
			return err
		}

		sum.Count = len(puzzles)
		sum.Format = format
		s.metrics.RecordRowsWritten(metrics.PipelineGenerate, len(puzzles))
		fmt.Fprintf(s.report, "Generated %d puzzles to %s\n", len(puzzles), job.Output)
		log.Info(ctx, "synthetic puzzles written",
			logger.String("path", job.Output),
			logger.String("format", format),
			logger.Int("count", len(puzzles)),
		)
		return nil
	})
	sum.RunID = id
	return sum, err
}

// RunReport prints the rating distribution of a CSV or JSON dataset without
// writing anything.
func (s *Service) RunReport(ctx context.Context, job ReportJob) (report.Summary, error) {
	var sum report.Summary
	_, err := s.run(ctx, metrics.PipelineReport, func(log logger.Logger) error {
		var ratings []float64
		switch FormatFromPath(job.Input) {
		case FormatJSON:
			puzzles, err := dataset.ReadPuzzles(job.Input, job.RatingField)
			if err != nil {
				return err
			}
			ratings = make([]float64, len(puzzles))
			for i, p := range puzzles {
				ratings[i] = p.Rating
			}
		default:
			table, err := dataset.ReadTable(ctx, job.Input, job.RatingField, s.readOptions()...)
			if err != nil {
				return err
			}
			ratings = table.Ratings
		}
		s.metrics.RecordRowsRead(metrics.PipelineReport, len(ratings))

		title := fmt.Sprintf("%s (%d puzzles):", filepath.Base(job.Input), len(ratings))
		if err := report.Write(s.report, title, ratings, job.Bands); err != nil {
			return fmt.Errorf("write report: %w", err)
		}
		sum = report.Describe(ratings)
		log.Info(ctx, "report written",
			logger.String("path", job.Input),
			logger.Int("count", sum.Count),
			logger.Float64("mean", sum.Mean),
		)
		return nil
	})
	return sum, err
}

// Output formats for RunGenerate.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// FormatFromPath infers a dataset format from the file extension. Anything
// that is not .json is treated as CSV.
func FormatFromPath(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return FormatJSON
	}
	return FormatCSV
}
