package bands

import "errors"

// Sentinel kinds for band configuration errors.
var (
	ErrInvalidBands = errors.New("invalid rating bands")
)
