package sampling

import "errors"

// Sentinel kinds for sampling errors.
var (
	ErrInsufficientData  = errors.New("insufficient data")
	ErrInvalidSampleSize = errors.New("invalid sample size")
)
