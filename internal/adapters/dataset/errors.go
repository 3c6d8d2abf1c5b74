package dataset

import "errors"

// Sentinel kinds for dataset I/O errors.
var (
	ErrMissingInputFile = errors.New("missing input file")
	ErrMissingRating    = errors.New("missing or non-numeric rating")
	ErrMalformedInput   = errors.New("malformed input")
	ErrInvalidIndent    = errors.New("negative JSON indent")
)
