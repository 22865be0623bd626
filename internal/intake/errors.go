package intake

import "errors"

var (
	// ErrNotFound indicates the upload task does not exist.
	ErrNotFound = errors.New("upload task not found")
	// ErrInvalidPolicy indicates an unknown duplicate-handling policy.
	ErrInvalidPolicy = errors.New("invalid duplicate policy")
	// ErrEmptyBatch indicates a submission without any files.
	ErrEmptyBatch = errors.New("batch contains no files")
	// ErrBatchTooLarge indicates a submission beyond the batch file limit.
	ErrBatchTooLarge = errors.New("batch exceeds file limit")
)
