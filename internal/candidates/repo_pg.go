package candidates

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"
)

// PGRepo implements Repo using Postgres.
type PGRepo struct {
	DB *sql.DB
}

const candidateColumns = `id, full_name, email, phone, source_file, resume_key, mime_type, size_bytes, created_by, created_at, updated_at`

// Create inserts a new candidate.
func (r *PGRepo) Create(ctx context.Context, cand Candidate) error {
	const query = `
INSERT INTO candidates (
    id,
    full_name,
    email,
    phone,
    source_file,
    resume_key,
    mime_type,
    size_bytes,
    created_by,
    created_at,
    updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`

	_, err := r.DB.ExecContext(
		ctx,
		query,
		cand.ID,
		cand.FullName,
		strings.ToLower(cand.Email),
		nullString(cand.Phone),
		nullString(cand.SourceFile),
		nullString(cand.ResumeKey),
		nullString(cand.MimeType),
		cand.SizeBytes,
		cand.CreatedBy,
		cand.CreatedAt,
		cand.UpdatedAt,
	)
	return err
}

// Update overwrites mutable candidate fields.
func (r *PGRepo) Update(ctx context.Context, cand Candidate) error {
	const query = `
UPDATE candidates
SET full_name = $1, phone = $2, source_file = $3, resume_key = $4, mime_type = $5, size_bytes = $6, updated_at = $7
WHERE id = $8 AND deleted_at IS NULL`

	res, err := r.DB.ExecContext(
		ctx,
		query,
		cand.FullName,
		nullString(cand.Phone),
		nullString(cand.SourceFile),
		nullString(cand.ResumeKey),
		nullString(cand.MimeType),
		cand.SizeBytes,
		time.Now().UTC(),
		cand.ID,
	)
	if err != nil {
		return err
	}
	affected, _ := res.RowsAffected()
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID fetches a candidate by ID.
func (r *PGRepo) GetByID(ctx context.Context, candidateID string) (Candidate, error) {
	const query = `
SELECT ` + candidateColumns + `
FROM candidates
WHERE id = $1 AND deleted_at IS NULL
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, candidateID))
}

// GetByEmail fetches a candidate by email, case-insensitively.
func (r *PGRepo) GetByEmail(ctx context.Context, email string) (Candidate, error) {
	const query = `
SELECT ` + candidateColumns + `
FROM candidates
WHERE lower(email) = lower($1) AND deleted_at IS NULL
LIMIT 1`
	return r.scanOne(r.DB.QueryRowContext(ctx, query, email))
}

// List returns candidates ordered newest-first.
func (r *PGRepo) List(ctx context.Context, limit, offset int) ([]Candidate, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	const query = `
SELECT ` + candidateColumns + `
FROM candidates
WHERE deleted_at IS NULL
ORDER BY created_at DESC
LIMIT $1 OFFSET $2`

	rows, err := r.DB.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Candidate
	for rows.Next() {
		cand, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, cand)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *PGRepo) scanOne(row rowScanner) (Candidate, error) {
	cand, err := scanCandidate(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Candidate{}, ErrNotFound
		}
		return Candidate{}, err
	}
	return cand, nil
}

func scanCandidate(row rowScanner) (Candidate, error) {
	var cand Candidate
	var phone, sourceFile, resumeKey, mimeType sql.NullString
	if err := row.Scan(
		&cand.ID,
		&cand.FullName,
		&cand.Email,
		&phone,
		&sourceFile,
		&resumeKey,
		&mimeType,
		&cand.SizeBytes,
		&cand.CreatedBy,
		&cand.CreatedAt,
		&cand.UpdatedAt,
	); err != nil {
		return Candidate{}, err
	}
	if phone.Valid {
		cand.Phone = phone.String
	}
	if sourceFile.Valid {
		cand.SourceFile = sourceFile.String
	}
	if resumeKey.Valid {
		cand.ResumeKey = resumeKey.String
	}
	if mimeType.Valid {
		cand.MimeType = mimeType.String
	}
	return cand, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ Repo = (*PGRepo)(nil)
