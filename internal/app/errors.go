package service

import (
	"context"
	"errors"

	"github.com/okian/puzzleprep/internal/adapters/dataset"
	"github.com/okian/puzzleprep/internal/config"
	"github.com/okian/puzzleprep/internal/domain/bands"
	"github.com/okian/puzzleprep/internal/domain/bucket"
	"github.com/okian/puzzleprep/internal/domain/generator"
	"github.com/okian/puzzleprep/internal/domain/sampling"
)

// Error kinds used as the metrics "kind" label.
const (
	KindMissingInput     = "missing_input"
	KindMissingRating    = "missing_rating"
	KindMalformedInput   = "malformed_input"
	KindInsufficientData = "insufficient_data"
	KindInvalidConfig    = "invalid_config"
	KindCancelled        = "cancelled"
	KindIO               = "io"
)

// ErrorKind classifies a pipeline error by the sentinel it wraps.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, dataset.ErrMissingInputFile):
		return KindMissingInput
	case errors.Is(err, dataset.ErrMissingRating), errors.Is(err, bucket.ErrMissingRating):
		return KindMissingRating
	case errors.Is(err, dataset.ErrMalformedInput), errors.Is(err, bucket.ErrRatingOutOfRange):
		return KindMalformedInput
	case errors.Is(err, sampling.ErrInsufficientData):
		return KindInsufficientData
	case errors.Is(err, sampling.ErrInvalidSampleSize),
		errors.Is(err, bucket.ErrInvalidWidth),
		errors.Is(err, bands.ErrInvalidBands),
		errors.Is(err, dataset.ErrInvalidIndent),
		errors.Is(err, generator.ErrInvalidOptions),
		errors.Is(err, config.ErrInvalidConfig):
		return KindInvalidConfig
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindIO
	}
}
