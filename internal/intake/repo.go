package intake

import "context"

// TaskRepo defines persistence operations for upload tasks.
type TaskRepo interface {
	CreateTask(ctx context.Context, task Task) error
	GetTask(ctx context.Context, taskID string) (Task, error)
	MarkStarted(ctx context.Context, taskID string) error
	UpdateProgress(ctx context.Context, taskID string, progress int) error
	Complete(ctx context.Context, taskID string, result Result) error
	Fail(ctx context.Context, taskID string, message string) error
}
