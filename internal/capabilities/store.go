package capabilities

import (
	"context"
	"database/sql"
)

// Store loads the role -> capability matrix.
type Store interface {
	Matrix(ctx context.Context) (map[string][]Capability, error)
}

// PGStore loads the matrix from Postgres.
type PGStore struct {
	DB *sql.DB
}

// Matrix reads all role/capability pairs.
func (s *PGStore) Matrix(ctx context.Context) (map[string][]Capability, error) {
	const query = `SELECT role, capability FROM role_capabilities`
	rows, err := s.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	matrix := make(map[string][]Capability)
	for rows.Next() {
		var role, cap string
		if err := rows.Scan(&role, &cap); err != nil {
			return nil, err
		}
		matrix[role] = append(matrix[role], Capability(cap))
	}
	return matrix, rows.Err()
}

// MemoryStore serves a fixed matrix, used when no database is configured.
type MemoryStore struct {
	matrix map[string][]Capability
}

// NewMemoryStore builds a MemoryStore seeded with the default matrix.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{matrix: DefaultMatrix()}
}

// Matrix returns the seeded matrix.
func (s *MemoryStore) Matrix(ctx context.Context) (map[string][]Capability, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.matrix, nil
}

// DefaultMatrix mirrors the seed rows in the role_capabilities migration.
func DefaultMatrix() map[string][]Capability {
	return map[string][]Capability{
		"admin":          {CandidatesRead, CandidatesBulk, TasksPoll, PermissionsRead},
		"recruiter":      {CandidatesRead, CandidatesBulk, TasksPoll, PermissionsRead},
		"hiring_manager": {CandidatesRead, PermissionsRead},
		"guest":          {CandidatesRead, CandidatesBulk, TasksPoll, PermissionsRead},
	}
}

var (
	_ Store = (*PGStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
