package intake

import "time"

// Task statuses. A task starts processing and ends in exactly one of the
// two terminal states.
const (
	TaskStatusProcessing = "processing"
	TaskStatusCompleted  = "completed"
	TaskStatusFailed     = "failed"
)

// StagedFile is a resume persisted to object storage, waiting for a worker.
type StagedFile struct {
	FileName   string `json:"file_name"`
	StorageKey string `json:"storage_key"`
	MimeType   string `json:"mime_type"`
	SizeBytes  int64  `json:"size_bytes"`
}

// Task tracks one asynchronous bulk upload.
type Task struct {
	ID           string
	UserID       string
	Status       string
	Progress     int
	Policy       DuplicatePolicy
	Files        []StagedFile
	Result       *Result
	ErrorMessage string
	CreatedAt    time.Time
	StartedAt    *time.Time
	CompletedAt  *time.Time
}

// Terminal reports whether the task reached a final state.
func (t Task) Terminal() bool {
	return t.Status == TaskStatusCompleted || t.Status == TaskStatusFailed
}
