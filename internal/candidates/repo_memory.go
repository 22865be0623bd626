package candidates

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryRepo is an in-memory implementation of Repo.
type MemoryRepo struct {
	mu   sync.RWMutex
	data map[string]Candidate // id -> candidate
}

// NewMemoryRepo constructs a MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{data: make(map[string]Candidate)}
}

// Create stores a new candidate.
func (r *MemoryRepo) Create(ctx context.Context, cand Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.data[cand.ID] = cand
	return nil
}

// Update overwrites mutable candidate fields.
func (r *MemoryRepo) Update(ctx context.Context, cand Candidate) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.data[cand.ID]
	if !ok {
		return ErrNotFound
	}
	existing.FullName = cand.FullName
	existing.Phone = cand.Phone
	existing.SourceFile = cand.SourceFile
	existing.ResumeKey = cand.ResumeKey
	existing.MimeType = cand.MimeType
	existing.SizeBytes = cand.SizeBytes
	existing.UpdatedAt = time.Now().UTC()
	r.data[cand.ID] = existing
	return nil
}

// GetByID returns a candidate by ID.
func (r *MemoryRepo) GetByID(ctx context.Context, candidateID string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	cand, ok := r.data[candidateID]
	if !ok {
		return Candidate{}, ErrNotFound
	}
	return cand, nil
}

// GetByEmail returns a candidate by email, case-insensitively.
func (r *MemoryRepo) GetByEmail(ctx context.Context, email string) (Candidate, error) {
	if err := ctx.Err(); err != nil {
		return Candidate{}, err
	}
	needle := strings.ToLower(strings.TrimSpace(email))
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, cand := range r.data {
		if strings.ToLower(cand.Email) == needle {
			return cand, nil
		}
	}
	return Candidate{}, ErrNotFound
}

// List returns candidates newest first, honoring limit/offset.
func (r *MemoryRepo) List(ctx context.Context, limit, offset int) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if offset < 0 {
		offset = 0
	}
	if limit < 0 {
		limit = 0
	}

	r.mu.RLock()
	all := make([]Candidate, 0, len(r.data))
	for _, cand := range r.data {
		all = append(all, cand)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	if offset >= len(all) {
		return []Candidate{}, nil
	}
	end := len(all)
	if limit > 0 && offset+limit < end {
		end = offset + limit
	}
	return all[offset:end], nil
}

var _ Repo = (*MemoryRepo)(nil)
