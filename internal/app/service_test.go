package service_test

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/okian/puzzleprep/internal/adapters/dataset"
	service "github.com/okian/puzzleprep/internal/app"
	"github.com/okian/puzzleprep/internal/domain/bands"
	"github.com/okian/puzzleprep/internal/domain/sampling"
	"github.com/okian/puzzleprep/pkg/logger"
	"github.com/okian/puzzleprep/pkg/metrics"
	. "github.com/smartystreets/goconvey/convey"
)

// writeRatingsCSV writes n puzzles spread evenly over 1000..3399.
func writeRatingsCSV(t *testing.T, dir string, n int) string {
	t.Helper()
	var b strings.Builder
	b.WriteString("PuzzleId,FEN,Rating,Themes\n")
	step := 2400 / n
	for i := 0; i < n; i++ {
		fmt.Fprintf(&b, "p%03d,8/8/8/8/8/8/8/8 w - - 0 1,%d,\"fork pin\"\n", i, 1000+i*step)
	}
	path := filepath.Join(dir, "trimmed.csv")
	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		t.Fatalf("write csv: %v", err)
	}
	return path
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open %s: %v", path, err)
	}
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return rows
}

func exportMetrics(t *testing.T, m *metrics.Manager) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "puzzleprep.prom")
	if err := m.WriteTextfile(path); err != nil {
		t.Fatalf("export metrics: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read metrics: %v", err)
	}
	return string(data)
}

func sampleJob(input, output string, size int, seed int64) service.SampleJob {
	return service.SampleJob{
		Input:       input,
		Output:      output,
		RatingField: "Rating",
		Size:        size,
		Seed:        seed,
		Bands:       bands.Default(),
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should be usable", func() {
			So(svc, ShouldNotBeNil)
		})
	})

	Convey("Given a new service with nil options", t, func() {
		svc := service.New(
			service.WithLogger(nil),
			service.WithMetrics(nil),
			service.WithReportWriter(nil),
			service.WithProgress(nil),
		)

		Convey("Then the defaults should be kept", func() {
			So(svc, ShouldNotBeNil)
		})
	})
}

func TestService_RunSample(t *testing.T) {
	Convey("Given a trimmed database of 100 puzzles", t, func() {
		dir := t.TempDir()
		input := writeRatingsCSV(t, dir, 100)
		output := filepath.Join(dir, "out", "sampled.csv")
		var out bytes.Buffer
		m := metrics.NewManager()
		svc := service.New(service.WithReportWriter(&out), service.WithMetrics(m))
		ctx := context.Background()

		Convey("When sampling 50 puzzles", func() {
			sum, err := svc.RunSample(ctx, sampleJob(input, output, 50, 7))

			Convey("Then the sample should be written with the input header", func() {
				So(err, ShouldBeNil)
				rows := readCSV(t, output)
				So(len(rows), ShouldEqual, 51)
				So(rows[0], ShouldResemble, []string{"PuzzleId", "FEN", "Rating", "Themes"})
			})

			Convey("And every sampled row should come from the input exactly once", func() {
				So(err, ShouldBeNil)
				original := map[string][]string{}
				for _, row := range readCSV(t, input)[1:] {
					original[row[0]] = row
				}
				seen := map[string]bool{}
				for _, row := range readCSV(t, output)[1:] {
					So(original[row[0]], ShouldResemble, row)
					So(seen[row[0]], ShouldBeFalse)
					seen[row[0]] = true
				}
			})

			Convey("And the summary should describe the run", func() {
				So(err, ShouldBeNil)
				So(sum.RunID, ShouldNotBeEmpty)
				So(sum.Seed, ShouldEqual, 7)
				So(sum.InputRows, ShouldEqual, 100)
				So(sum.OutputRows, ShouldEqual, 50)
				So(sum.Backfilled, ShouldEqual, 1)
				So(len(sum.Bands), ShouldEqual, 6)
				So(sum.OutputMB, ShouldBeGreaterThan, 0)
			})

			Convey("And both distributions should be reported", func() {
				So(err, ShouldBeNil)
				text := out.String()
				So(text, ShouldContainSubstring, "Original trimmed database:")
				So(text, ShouldContainSubstring, "Sampled 50 puzzles:")
				So(text, ShouldContainSubstring, "Rating Distribution by Percentiles:")
				So(text, ShouldContainSubstring, "Sampled database saved to "+output)
				So(text, ShouldContainSubstring, "Number of puzzles in sampled database: 50")
			})

			Convey("And the run should be recorded", func() {
				So(err, ShouldBeNil)
				text := exportMetrics(t, m)
				So(text, ShouldContainSubstring, `puzzleprep_pipeline_runs_total{pipeline="sample",status="success"} 1`)
				So(text, ShouldContainSubstring, `puzzleprep_pipeline_rows_read_total{pipeline="sample"} 100`)
				So(text, ShouldContainSubstring, `puzzleprep_pipeline_rows_written_total{pipeline="sample"} 50`)
				So(text, ShouldContainSubstring, `puzzleprep_sampler_band_target_rows{band="[1000, 1400)"} 7`)
				So(text, ShouldContainSubstring, `puzzleprep_sampler_backfill_rows 1`)
			})
		})

		Convey("When sampling twice with the same seed", func() {
			other := filepath.Join(dir, "again.csv")
			_, err1 := svc.RunSample(ctx, sampleJob(input, output, 30, 99))
			_, err2 := svc.RunSample(ctx, sampleJob(input, other, 30, 99))

			Convey("Then both outputs should be identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(readCSV(t, other), ShouldResemble, readCSV(t, output))
			})
		})

		Convey("When asking for more rows than the input holds", func() {
			_, err := svc.RunSample(ctx, sampleJob(input, output, 1000, 7))

			Convey("Then it should fail with insufficient data and write nothing", func() {
				So(errors.Is(err, sampling.ErrInsufficientData), ShouldBeTrue)
				_, statErr := os.Stat(output)
				So(errors.Is(statErr, os.ErrNotExist), ShouldBeTrue)
			})

			Convey("And the failure should be counted by kind", func() {
				text := exportMetrics(t, m)
				So(text, ShouldContainSubstring, `puzzleprep_pipeline_errors_total{kind="insufficient_data",pipeline="sample"} 1`)
				So(text, ShouldContainSubstring, `puzzleprep_pipeline_runs_total{pipeline="sample",status="failure"} 1`)
			})
		})

		Convey("When the input file does not exist", func() {
			_, err := svc.RunSample(ctx, sampleJob(filepath.Join(dir, "missing.csv"), output, 10, 7))

			Convey("Then it should fail with a missing input error", func() {
				So(errors.Is(err, dataset.ErrMissingInputFile), ShouldBeTrue)
			})
		})

		Convey("When the rating column is absent", func() {
			job := sampleJob(input, output, 10, 7)
			job.RatingField = "Elo"
			_, err := svc.RunSample(ctx, job)

			Convey("Then it should fail with a missing rating error", func() {
				So(errors.Is(err, dataset.ErrMissingRating), ShouldBeTrue)
			})
		})
	})
}

func TestService_RunSampleLogging(t *testing.T) {
	Convey("Given a service logging JSON to a buffer", t, func() {
		var logs bytes.Buffer
		So(logger.InitWithWriter(&logs, logger.FormatJSON), ShouldBeNil)
		dir := t.TempDir()
		input := writeRatingsCSV(t, dir, 20)
		svc := service.New(
			service.WithLogger(logger.Get()),
			service.WithMetrics(metrics.NewManager()),
			service.WithReportWriter(&bytes.Buffer{}),
		)

		Convey("When a sample run completes", func() {
			sum, err := svc.RunSample(context.Background(), sampleJob(input, filepath.Join(dir, "s.csv"), 10, 5))

			Convey("Then every line should carry the run id and the seed should be logged", func() {
				So(err, ShouldBeNil)
				lines := strings.Split(strings.TrimSpace(logs.String()), "\n")
				So(len(lines), ShouldBeGreaterThan, 2)
				for _, line := range lines {
					So(line, ShouldContainSubstring, `"run_id":"`+sum.RunID+`"`)
				}
				So(logs.String(), ShouldContainSubstring, `"seed":5`)
				So(logs.String(), ShouldContainSubstring, "pipeline finished")
			})
		})
	})
}

func TestService_RunBucketize(t *testing.T) {
	Convey("Given a JSON array of puzzles", t, func() {
		dir := t.TempDir()
		input := filepath.Join(dir, "puzzles.json")
		content := `[
			{"PuzzleId": "a", "Rating": 1390, "Themes": "fork"},
			{"PuzzleId": "b", "Rating": 1410},
			{"PuzzleId": "c", "Rating": 1350.5},
			{"PuzzleId": "d", "Rating": 2650}
		]`
		So(os.WriteFile(input, []byte(content), 0o644), ShouldBeNil)
		output := filepath.Join(dir, "by_rating.json")
		var out bytes.Buffer
		m := metrics.NewManager()
		svc := service.New(service.WithReportWriter(&out), service.WithMetrics(m))
		job := service.BucketJob{Input: input, Output: output, RatingField: "Rating", Width: 100, Indent: 4}

		Convey("When bucketizing", func() {
			sum, err := svc.RunBucketize(context.Background(), job)

			Convey("Then puzzles should be grouped by rating bucket in input order", func() {
				So(err, ShouldBeNil)
				So(sum.Records, ShouldEqual, 4)
				So(sum.Buckets, ShouldEqual, 3)

				data, readErr := os.ReadFile(output)
				So(readErr, ShouldBeNil)
				var got map[string][]map[string]any
				So(json.Unmarshal(data, &got), ShouldBeNil)
				So(len(got), ShouldEqual, 3)
				So(len(got["1300-1399"]), ShouldEqual, 2)
				So(got["1300-1399"][0]["PuzzleId"], ShouldEqual, "a")
				So(got["1300-1399"][0]["Themes"], ShouldEqual, "fork")
				So(got["1300-1399"][1]["PuzzleId"], ShouldEqual, "c")
				So(got["1400-1499"][0]["PuzzleId"], ShouldEqual, "b")
				So(got["2600-2699"][0]["PuzzleId"], ShouldEqual, "d")
			})

			Convey("And the keys should be emitted in ascending order", func() {
				So(err, ShouldBeNil)
				data, _ := os.ReadFile(output)
				text := string(data)
				So(strings.Index(text, `"1300-1399"`), ShouldBeLessThan, strings.Index(text, `"1400-1499"`))
				So(strings.Index(text, `"1400-1499"`), ShouldBeLessThan, strings.Index(text, `"2600-2699"`))
			})

			Convey("And the bucket count should be recorded", func() {
				So(err, ShouldBeNil)
				text := exportMetrics(t, m)
				So(text, ShouldContainSubstring, `puzzleprep_bucketizer_buckets 3`)
				So(text, ShouldContainSubstring, `puzzleprep_pipeline_rows_written_total{pipeline="bucketize"} 4`)
			})
		})

		Convey("When a record has a string rating", func() {
			bad := filepath.Join(dir, "bad.json")
			So(os.WriteFile(bad, []byte(`[{"PuzzleId": "x", "Rating": "1500"}]`), 0o644), ShouldBeNil)
			job.Input = bad
			_, err := svc.RunBucketize(context.Background(), job)

			Convey("Then it should fail with a missing rating error and write nothing", func() {
				So(errors.Is(err, dataset.ErrMissingRating), ShouldBeTrue)
				_, statErr := os.Stat(output)
				So(errors.Is(statErr, os.ErrNotExist), ShouldBeTrue)
				So(exportMetrics(t, m), ShouldContainSubstring, `kind="missing_rating"`)
			})
		})

		Convey("When the input is an empty array", func() {
			empty := filepath.Join(dir, "empty.json")
			So(os.WriteFile(empty, []byte(`[]`), 0o644), ShouldBeNil)
			job.Input = empty
			sum, err := svc.RunBucketize(context.Background(), job)

			Convey("Then an empty object should be written", func() {
				So(err, ShouldBeNil)
				So(sum.Buckets, ShouldEqual, 0)
				data, _ := os.ReadFile(output)
				So(strings.TrimSpace(string(data)), ShouldEqual, "{}")
			})
		})
	})
}

func TestService_RunGenerateAndReport(t *testing.T) {
	Convey("Given a service", t, func() {
		dir := t.TempDir()
		var out bytes.Buffer
		svc := service.New(service.WithReportWriter(&out), service.WithMetrics(metrics.NewManager()))
		ctx := context.Background()
		gen := service.GenerateJob{
			Count:          500,
			Seed:           11,
			OutOfBandShare: 0.05,
			Indent:         2,
			Bands:          bands.Default(),
		}

		Convey("When generating a CSV dataset", func() {
			gen.Output = filepath.Join(dir, "synthetic.csv")
			sum, err := svc.RunGenerate(ctx, gen)

			Convey("Then it should have the lichess header and one row per puzzle", func() {
				So(err, ShouldBeNil)
				So(sum.Format, ShouldEqual, service.FormatCSV)
				So(sum.Count, ShouldEqual, 500)
				rows := readCSV(t, gen.Output)
				So(len(rows), ShouldEqual, 501)
				So(rows[0][0], ShouldEqual, "PuzzleId")
				So(rows[0][3], ShouldEqual, "Rating")
			})

			Convey("And the sampler should accept it", func() {
				So(err, ShouldBeNil)
				_, sampleErr := svc.RunSample(ctx, sampleJob(gen.Output, filepath.Join(dir, "s.csv"), 200, 1))
				So(sampleErr, ShouldBeNil)
				So(len(readCSV(t, filepath.Join(dir, "s.csv"))), ShouldEqual, 201)
			})

			Convey("And the report should describe it", func() {
				So(err, ShouldBeNil)
				summary, reportErr := svc.RunReport(ctx, service.ReportJob{
					Input:       gen.Output,
					RatingField: "Rating",
					Bands:       bands.Default(),
				})
				So(reportErr, ShouldBeNil)
				So(summary.Count, ShouldEqual, 500)
				So(out.String(), ShouldContainSubstring, "synthetic.csv (500 puzzles):")
				So(out.String(), ShouldContainSubstring, "Rating Distribution by Band:")
			})
		})

		Convey("When generating a JSON dataset", func() {
			gen.Output = filepath.Join(dir, "synthetic.json")
			sum, err := svc.RunGenerate(ctx, gen)

			Convey("Then the bucketizer should accept it", func() {
				So(err, ShouldBeNil)
				So(sum.Format, ShouldEqual, service.FormatJSON)
				bs, bucketErr := svc.RunBucketize(ctx, service.BucketJob{
					Input:       gen.Output,
					Output:      filepath.Join(dir, "buckets.json"),
					RatingField: "Rating",
					Width:       100,
					Indent:      4,
				})
				So(bucketErr, ShouldBeNil)
				So(bs.Records, ShouldEqual, 500)
				So(bs.Buckets, ShouldBeGreaterThan, 10)
			})

			Convey("And the report should read JSON input", func() {
				So(err, ShouldBeNil)
				summary, reportErr := svc.RunReport(ctx, service.ReportJob{Input: gen.Output, RatingField: "Rating"})
				So(reportErr, ShouldBeNil)
				So(summary.Count, ShouldEqual, 500)
				So(out.String(), ShouldNotContainSubstring, "Rating Distribution by Band:")
			})
		})

		Convey("When the same seed is used twice", func() {
			gen.Output = filepath.Join(dir, "a.csv")
			_, err1 := svc.RunGenerate(ctx, gen)
			gen.Output = filepath.Join(dir, "b.csv")
			_, err2 := svc.RunGenerate(ctx, gen)

			Convey("Then the datasets should be identical", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(readCSV(t, filepath.Join(dir, "a.csv")), ShouldResemble, readCSV(t, filepath.Join(dir, "b.csv")))
			})
		})

		Convey("When an unknown format is forced", func() {
			gen.Output = filepath.Join(dir, "synthetic.xml")
			gen.Format = "xml"
			_, err := svc.RunGenerate(ctx, gen)

			Convey("Then it should fail", func() {
				So(err, ShouldNotBeNil)
				So(errors.Is(err, dataset.ErrMalformedInput), ShouldBeTrue)
			})
		})
	})
}

func TestFormatFromPath(t *testing.T) {
	Convey("Given dataset paths", t, func() {
		So(service.FormatFromPath("puzzles.json"), ShouldEqual, service.FormatJSON)
		So(service.FormatFromPath("PUZZLES.JSON"), ShouldEqual, service.FormatJSON)
		So(service.FormatFromPath("puzzles.csv"), ShouldEqual, service.FormatCSV)
		So(service.FormatFromPath("puzzles"), ShouldEqual, service.FormatCSV)
	})
}
