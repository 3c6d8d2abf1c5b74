package generator

import "errors"

// ErrInvalidOptions marks a generation request that cannot be satisfied.
var ErrInvalidOptions = errors.New("invalid generator options")
