package dataset

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/okian/puzzleprep/internal/domain/bucket"
	"github.com/okian/puzzleprep/internal/domain/model"
)

// ReadPuzzles loads a JSON array of objects and parses field as the rating
// of every object. Objects are kept verbatim.
func ReadPuzzles(path, field string) ([]model.Puzzle, error) {
	in, err := openInput(path)
	if err != nil {
		return nil, err
	}
	defer in.Close()

	data, err := io.ReadAll(in)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	return DecodePuzzles(data, field)
}

// DecodePuzzles parses a JSON array of puzzle objects from data.
func DecodePuzzles(data []byte, field string) ([]model.Puzzle, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array of puzzles", ErrMalformedInput)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(trimmed, &elems); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrMalformedInput, err)
	}

	puzzles := make([]model.Puzzle, len(elems))
	for i, elem := range elems {
		elem = bytes.TrimSpace(elem)
		if len(elem) == 0 || elem[0] != '{' {
			return nil, fmt.Errorf("%w: element %d is not an object", ErrMalformedInput, i)
		}
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrMalformedInput, i, err)
		}
		raw, ok := fields[field]
		if !ok {
			return nil, fmt.Errorf("%w: element %d has no %q field", ErrMissingRating, i, field)
		}
		rating, err := jsonNumber(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: element %d: %w", ErrMissingRating, i, err)
		}
		puzzles[i] = model.Puzzle{Raw: elem, Rating: rating}
	}
	return puzzles, nil
}

// jsonNumber accepts only JSON number literals; strings, null and booleans
// are rejected even when they look numeric.
func jsonNumber(raw json.RawMessage) (float64, error) {
	s := strings.TrimSpace(string(raw))
	if s == "" || (s[0] != '-' && (s[0] < '0' || s[0] > '9')) {
		return 0, fmt.Errorf("rating %s is not a number", s)
	}
	return ParseRating(s)
}

// EncodeBuckets renders buckets as one JSON object keyed by bucket label, in
// bucket order, indented by indent spaces.
func EncodeBuckets(buckets []bucket.Bucket, indent int) ([]byte, error) {
	if indent < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidIndent, indent)
	}
	var compact bytes.Buffer
	compact.WriteByte('{')
	for i, b := range buckets {
		if i > 0 {
			compact.WriteByte(',')
		}
		label, err := json.Marshal(b.Label())
		if err != nil {
			return nil, err
		}
		compact.Write(label)
		compact.WriteString(":[")
		for j, p := range b.Puzzles {
			if j > 0 {
				compact.WriteByte(',')
			}
			if err := json.Compact(&compact, p.Raw); err != nil {
				return nil, fmt.Errorf("bucket %s element %d: %w", b.Label(), j, err)
			}
		}
		compact.WriteByte(']')
	}
	compact.WriteByte('}')

	var out bytes.Buffer
	if err := json.Indent(&out, compact.Bytes(), "", strings.Repeat(" ", indent)); err != nil {
		return nil, err
	}
	out.WriteByte('\n')
	return out.Bytes(), nil
}

// WriteBuckets writes the bucket object to path, replacing any existing file.
func WriteBuckets(path string, buckets []bucket.Bucket, indent int) error {
	data, err := EncodeBuckets(buckets, indent)
	if err != nil {
		return fmt.Errorf("encode buckets: %w", err)
	}
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}

// WriteJSON marshals v with the given indent and writes it to path.
func WriteJSON(path string, v any, indent int) error {
	if indent < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndent, indent)
	}
	data, err := json.MarshalIndent(v, "", strings.Repeat(" ", indent))
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	data = append(data, '\n')
	return writeAtomic(path, func(w io.Writer) error {
		_, err := w.Write(data)
		return err
	})
}
