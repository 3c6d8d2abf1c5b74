package dataset

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/schollz/progressbar/v3"
)

// ctxCheckEvery is how many rows are read between context checks.
const ctxCheckEvery = 100_000

const utf8BOM = "\ufeff"

// Table is a CSV file held in memory with its rating column parsed.
type Table struct {
	Header      []string
	Rows        [][]string
	Ratings     []float64 // Ratings[i] belongs to Rows[i]
	RatingIndex int       // position of the rating column in Header
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	return len(t.Rows)
}

// ReadOption configures ReadTable.
type ReadOption func(*readOptions)

type readOptions struct {
	progress io.Writer
}

// WithProgress renders a byte progress bar to w while the file is read.
func WithProgress(w io.Writer) ReadOption {
	return func(o *readOptions) {
		o.progress = w
	}
}

// ReadTable loads a CSV file with a header row and parses the column named
// column as the rating of every row. The column is matched exactly first,
// then case-insensitively.
func ReadTable(ctx context.Context, path, column string, opts ...ReadOption) (*Table, error) {
	var o readOptions
	for _, opt := range opts {
		opt(&o)
	}

	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	var src io.Reader = in
	if o.progress != nil {
		if info, statErr := in.Stat(); statErr == nil {
			bar := progressbar.NewOptions64(info.Size(),
				progressbar.OptionSetWriter(o.progress),
				progressbar.OptionSetDescription("reading "+filepath.Base(path)),
				progressbar.OptionShowBytes(true),
				progressbar.OptionSetWidth(30),
				progressbar.OptionClearOnFinish(),
			)
			defer func() { _ = bar.Finish() }()
			src = io.TeeReader(in, bar)
		}
	}

	reader := csv.NewReader(bufio.NewReaderSize(src, bufSize))

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%w: %s is empty", ErrMalformedInput, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %w", ErrMalformedInput, err)
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}

	idx := findColumn(header, column)
	if idx < 0 {
		return nil, fmt.Errorf("%w: no column named %q in %s", ErrMissingRating, column, path)
	}

	t := &Table{Header: header, RatingIndex: idx}
	line := 1 // header already counted
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
			}
			return nil, fmt.Errorf("%w: read line %d: %w", ErrMalformedInput, line, err)
		}
		if line%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, fmt.Errorf("read cancelled: %w", err)
			}
		}

		rating, err := ParseRating(row[idx])
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrMissingRating, line, err)
		}
		t.Rows = append(t.Rows, row)
		t.Ratings = append(t.Ratings, rating)
	}
	return t, nil
}

// findColumn returns the index of name in header, preferring an exact match.
func findColumn(header []string, name string) int {
	name = strings.TrimSpace(name)
	for i, col := range header {
		if strings.TrimSpace(col) == name {
			return i
		}
	}
	for i, col := range header {
		if strings.EqualFold(strings.TrimSpace(col), name) {
			return i
		}
	}
	return -1
}

// ParseRating parses a textual rating. Empty, non-numeric, NaN and infinite
// values are rejected.
func ParseRating(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, errors.New("empty rating")
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("invalid rating %q", s)
	}
	return v, nil
}

// WriteTable writes header and rows as CSV to path, replacing any existing
// file. No index column is added.
func WriteTable(path string, header []string, rows [][]string) error {
	return writeAtomic(path, func(w io.Writer) error {
		cw := csv.NewWriter(w)
		if err := cw.Write(header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		for i, row := range rows {
			if err := cw.Write(row); err != nil {
				return fmt.Errorf("write row %d: %w", i+1, err)
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return fmt.Errorf("flush csv: %w", err)
		}
		return nil
	})
}
