package bucket

import "errors"

// Sentinel kinds for bucketing errors.
var (
	ErrInvalidWidth     = errors.New("invalid bucket width")
	ErrMissingRating    = errors.New("missing or non-numeric rating")
	ErrRatingOutOfRange = errors.New("rating too large to bucket exactly")
)
