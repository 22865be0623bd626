package candidates

import "errors"

var (
	// ErrNotFound indicates the candidate does not exist.
	ErrNotFound = errors.New("candidate not found")
	// ErrInvalidInput indicates missing or malformed input.
	ErrInvalidInput = errors.New("invalid input")
)
