package candidates

import "context"

// Repo defines persistence operations for candidates.
type Repo interface {
	Create(ctx context.Context, cand Candidate) error
	Update(ctx context.Context, cand Candidate) error
	GetByID(ctx context.Context, candidateID string) (Candidate, error)
	GetByEmail(ctx context.Context, email string) (Candidate, error)
	List(ctx context.Context, limit, offset int) ([]Candidate, error)
}
