package candidates

import (
	"context"
	"errors"
	"strings"
)

// Service contains read-side business logic for candidates.
type Service struct {
	Repo Repo
}

// Get returns a candidate by ID.
func (s *Service) Get(ctx context.Context, candidateID string) (Candidate, error) {
	if strings.TrimSpace(candidateID) == "" {
		return Candidate{}, errors.New("candidate id required")
	}
	return s.Repo.GetByID(ctx, candidateID)
}

// List returns candidates ordered newest-first.
func (s *Service) List(ctx context.Context, limit, offset int) ([]Candidate, error) {
	return s.Repo.List(ctx, limit, offset)
}
