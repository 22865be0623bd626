package intake

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// PGRepo implements TaskRepo using Postgres. Staged files and results are
// stored as JSONB alongside the task row.
type PGRepo struct {
	DB *sql.DB
}

const taskColumns = `id, user_id, status, progress, policy, files, result, error_message, created_at, started_at, completed_at`

// CreateTask inserts a new upload task.
func (r *PGRepo) CreateTask(ctx context.Context, task Task) error {
	files, err := json.Marshal(task.Files)
	if err != nil {
		return fmt.Errorf("marshal staged files: %w", err)
	}

	const query = `
INSERT INTO upload_tasks (
    id,
    user_id,
    status,
    progress,
    policy,
    files,
    created_at
) VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err = r.DB.ExecContext(
		ctx,
		query,
		task.ID,
		task.UserID,
		task.Status,
		task.Progress,
		string(task.Policy),
		files,
		task.CreatedAt,
	)
	return err
}

// GetTask fetches a task by ID.
func (r *PGRepo) GetTask(ctx context.Context, taskID string) (Task, error) {
	const query = `
SELECT ` + taskColumns + `
FROM upload_tasks
WHERE id = $1
LIMIT 1`

	var (
		task    Task
		policy  string
		files   []byte
		result  []byte
		errMsg  sql.NullString
		started sql.NullTime
		done    sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx, query, taskID).Scan(
		&task.ID,
		&task.UserID,
		&task.Status,
		&task.Progress,
		&policy,
		&files,
		&result,
		&errMsg,
		&task.CreatedAt,
		&started,
		&done,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Task{}, ErrNotFound
		}
		return Task{}, err
	}

	task.Policy = DuplicatePolicy(policy)
	if len(files) > 0 {
		if err := json.Unmarshal(files, &task.Files); err != nil {
			return Task{}, fmt.Errorf("unmarshal staged files: %w", err)
		}
	}
	if len(result) > 0 {
		var res Result
		if err := json.Unmarshal(result, &res); err != nil {
			return Task{}, fmt.Errorf("unmarshal task result: %w", err)
		}
		task.Result = &res
	}
	if errMsg.Valid {
		task.ErrorMessage = errMsg.String
	}
	if started.Valid {
		t := started.Time
		task.StartedAt = &t
	}
	if done.Valid {
		t := done.Time
		task.CompletedAt = &t
	}
	return task, nil
}

// MarkStarted stamps the task as picked up by a worker.
func (r *PGRepo) MarkStarted(ctx context.Context, taskID string) error {
	const query = `
UPDATE upload_tasks
SET started_at = $1
WHERE id = $2 AND started_at IS NULL`
	_, err := r.DB.ExecContext(ctx, query, time.Now().UTC(), taskID)
	return err
}

// UpdateProgress sets the task's progress percentage.
func (r *PGRepo) UpdateProgress(ctx context.Context, taskID string, progress int) error {
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	const query = `
UPDATE upload_tasks
SET progress = $1
WHERE id = $2 AND status = $3`
	_, err := r.DB.ExecContext(ctx, query, progress, taskID, TaskStatusProcessing)
	return err
}

// Complete marks the task completed with its aggregated result. The status
// guard makes completion idempotent: a task already terminal stays put.
func (r *PGRepo) Complete(ctx context.Context, taskID string, result Result) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("marshal task result: %w", err)
	}

	const query = `
UPDATE upload_tasks
SET status = $1, progress = 100, result = $2, completed_at = $3
WHERE id = $4 AND status = $5`
	_, err = r.DB.ExecContext(ctx, query, TaskStatusCompleted, payload, time.Now().UTC(), taskID, TaskStatusProcessing)
	return err
}

// Fail marks the task failed with a user-facing message.
func (r *PGRepo) Fail(ctx context.Context, taskID string, message string) error {
	const query = `
UPDATE upload_tasks
SET status = $1, error_message = $2, completed_at = $3
WHERE id = $4 AND status = $5`
	_, err := r.DB.ExecContext(ctx, query, TaskStatusFailed, message, time.Now().UTC(), taskID, TaskStatusProcessing)
	return err
}

var _ TaskRepo = (*PGRepo)(nil)
