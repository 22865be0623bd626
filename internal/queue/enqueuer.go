package queue

import (
	"context"
	"time"
)

// TaskEnqueuer adapts a Client to the intake service's enqueue contract.
type TaskEnqueuer struct {
	Client Client
}

// Enqueue publishes an upload task for background processing.
func (e *TaskEnqueuer) Enqueue(ctx context.Context, taskID string, requestID string) error {
	return e.Client.Send(ctx, Message{
		TaskID:     taskID,
		RequestID:  requestID,
		EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
		Version:    1,
	})
}
