package intake

import (
	"context"
	"sync"
	"time"
)

// MemoryRepo is an in-memory TaskRepo for development and tests.
type MemoryRepo struct {
	mu    sync.RWMutex
	tasks map[string]Task
}

// NewMemoryRepo constructs an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{tasks: make(map[string]Task)}
}

// CreateTask stores a new task.
func (r *MemoryRepo) CreateTask(ctx context.Context, task Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[task.ID] = task
	return nil
}

// GetTask returns a task by ID.
func (r *MemoryRepo) GetTask(ctx context.Context, taskID string) (Task, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return Task{}, ErrNotFound
	}
	return task, nil
}

// MarkStarted stamps the task's start time once.
func (r *MemoryRepo) MarkStarted(ctx context.Context, taskID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.StartedAt == nil {
		now := time.Now().UTC()
		task.StartedAt = &now
		r.tasks[taskID] = task
	}
	return nil
}

// UpdateProgress sets progress while the task is still processing.
func (r *MemoryRepo) UpdateProgress(ctx context.Context, taskID string, progress int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Status != TaskStatusProcessing {
		return nil
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}
	task.Progress = progress
	r.tasks[taskID] = task
	return nil
}

// Complete marks the task completed unless it is already terminal.
func (r *MemoryRepo) Complete(ctx context.Context, taskID string, result Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	task.Status = TaskStatusCompleted
	task.Progress = 100
	task.Result = &result
	task.CompletedAt = &now
	r.tasks[taskID] = task
	return nil
}

// Fail marks the task failed unless it is already terminal.
func (r *MemoryRepo) Fail(ctx context.Context, taskID string, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[taskID]
	if !ok {
		return ErrNotFound
	}
	if task.Terminal() {
		return nil
	}
	now := time.Now().UTC()
	task.Status = TaskStatusFailed
	task.ErrorMessage = message
	task.CompletedAt = &now
	r.tasks[taskID] = task
	return nil
}

var _ TaskRepo = (*MemoryRepo)(nil)
