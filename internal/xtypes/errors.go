package xtypes

import "errors"

// Input-error taxonomy (§7): client fault, never retried.
var (
	ErrInvalidFormat = errors.New("xtypes: invalid format")
	ErrOutOfRange    = errors.New("xtypes: out of range")
)
