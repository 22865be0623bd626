package intake

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Batch limits. A batch beyond the async thresholds is routed to the
// asynchronous submission path; a batch beyond the hard limits is rejected.
const (
	MaxBatchFiles = 20
	MaxFileBytes  = 10 << 20 // 10MB per file

	AsyncFileThreshold  = 10
	AsyncBytesThreshold = 50_000_000
)

var allowedExtensions = map[string]struct{}{
	".pdf":  {},
	".doc":  {},
	".docx": {},
}

// DuplicatePolicy controls how an uploaded resume matching an existing
// candidate email is handled.
type DuplicatePolicy string

const (
	PolicySkip      DuplicatePolicy = "skip"
	PolicyOverwrite DuplicatePolicy = "overwrite"
)

// ParsePolicy normalizes a policy string; empty defaults to skip.
func ParsePolicy(raw string) (DuplicatePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "skip":
		return PolicySkip, nil
	case "overwrite":
		return PolicyOverwrite, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPolicy, raw)
	}
}

// FileMeta describes one file staged for upload.
type FileMeta struct {
	Name string
	Size int64
}

// ValidateFile checks a single file against the configured limits.
// It is a pure check; the caller decides what to do with the rejection.
func ValidateFile(name string, size int64) error {
	if size == 0 {
		return fmt.Errorf("%s: file is empty", name)
	}
	if size < 0 {
		return fmt.Errorf("%s: invalid file size", name)
	}
	if size > MaxFileBytes {
		return fmt.Errorf("%s: exceeds %d byte limit", name, MaxFileBytes)
	}
	ext := strings.ToLower(filepath.Ext(name))
	if _, ok := allowedExtensions[ext]; !ok {
		return fmt.Errorf("%s: extension %q not allowed", name, ext)
	}
	return nil
}

// Batch is a user-assembled set of files staged for one upload operation.
type Batch struct {
	Policy DuplicatePolicy
	Files  []FileMeta
}

// NewBatch constructs an empty batch with the given policy.
func NewBatch(policy DuplicatePolicy) *Batch {
	if policy == "" {
		policy = PolicySkip
	}
	return &Batch{Policy: policy}
}

// Add validates and appends files to the batch. Files failing validation are
// reported in rejected; files beyond the remaining slot count are dropped and
// counted. Accepted files are appended in input order.
func (b *Batch) Add(files ...FileMeta) (rejected []string, dropped int) {
	for _, f := range files {
		if err := ValidateFile(f.Name, f.Size); err != nil {
			rejected = append(rejected, err.Error())
			continue
		}
		if len(b.Files) >= MaxBatchFiles {
			dropped++
			continue
		}
		b.Files = append(b.Files, f)
	}
	return rejected, dropped
}

// Remove deletes a file from the batch by name. The first match wins.
func (b *Batch) Remove(name string) bool {
	for i, f := range b.Files {
		if f.Name == name {
			b.Files = append(b.Files[:i], b.Files[i+1:]...)
			return true
		}
	}
	return false
}

// Reset clears all staged files.
func (b *Batch) Reset() {
	b.Files = nil
}

// Count returns the number of staged files.
func (b *Batch) Count() int { return len(b.Files) }

// TotalBytes returns the derived total size of the batch.
func (b *Batch) TotalBytes() int64 {
	var total int64
	for _, f := range b.Files {
		total += f.Size
	}
	return total
}

// UseAsync reports whether a batch must take the asynchronous submission
// path. Exactly AsyncFileThreshold files or exactly AsyncBytesThreshold
// bytes stay synchronous.
func UseAsync(fileCount int, totalBytes int64) bool {
	return fileCount > AsyncFileThreshold || totalBytes > AsyncBytesThreshold
}
