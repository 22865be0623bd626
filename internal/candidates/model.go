package candidates

import "time"

// Candidate represents a person sourced into the hiring pipeline.
type Candidate struct {
	ID         string
	FullName   string
	Email      string
	Phone      string
	SourceFile string
	ResumeKey  string
	MimeType   string
	SizeBytes  int64
	CreatedBy  string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}
