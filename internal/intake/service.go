package intake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"

	"ats-backend/internal/candidates"
	"ats-backend/internal/extract"
	"ats-backend/internal/parse"
	"ats-backend/internal/shared/metrics"
	"ats-backend/internal/shared/storage/object"
	"ats-backend/internal/shared/telemetry"
)

// TaskEnqueuer hands an upload task to the background worker fleet. A nil
// enqueuer means tasks are processed in-process.
type TaskEnqueuer interface {
	Enqueue(ctx context.Context, taskID string, requestID string) error
}

// IncomingFile is one file from a multipart submission.
type IncomingFile struct {
	Name   string
	Size   int64
	Reader io.Reader
}

// Service implements bulk resume intake: staging to object storage, text
// extraction, contact parsing, and candidate upserts.
type Service struct {
	Tasks      TaskRepo
	Candidates candidates.Repo
	Store      object.ObjectStore
	Queue      TaskEnqueuer
}

// ValidateBatch checks every file and the overall batch shape. It returns
// one message per rejected file; an empty slice means the batch is clean.
func (s *Service) ValidateBatch(files []FileMeta) []string {
	var problems []string
	if len(files) == 0 {
		problems = append(problems, ErrEmptyBatch.Error())
		return problems
	}
	if len(files) > MaxBatchFiles {
		problems = append(problems, fmt.Sprintf("%s: %d files, limit is %d", ErrBatchTooLarge.Error(), len(files), MaxBatchFiles))
	}
	for _, f := range files {
		if err := ValidateFile(f.Name, f.Size); err != nil {
			problems = append(problems, err.Error())
		}
	}
	return problems
}

// ProcessSync stages and processes a batch within the request, returning the
// aggregated result.
func (s *Service) ProcessSync(ctx context.Context, userID string, policy DuplicatePolicy, files []IncomingFile) (Result, error) {
	start := time.Now()
	metrics.IncUploadBatchesStarted()

	staged, err := s.stage(ctx, userID, files)
	if err != nil {
		metrics.IncUploadBatchesFailed()
		return Result{}, err
	}

	items := s.processStaged(ctx, userID, policy, staged, nil)
	result := Summarize(items)

	metrics.IncUploadBatchesCompleted()
	metrics.AddUploadFilesProcessed(result.TotalProcessed)
	metrics.ObserveUploadBatchDurationMs(float64(time.Since(start).Milliseconds()))

	telemetry.Info("intake.batch_done", map[string]any{
		"user_id":    userID,
		"mode":       "sync",
		"total":      result.TotalProcessed,
		"created":    result.Created,
		"updated":    result.Updated,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	})
	return result, nil
}

// StartAsync stages a batch, records an upload task, and schedules
// processing. When a queue is configured the task is enqueued for the worker
// fleet; otherwise processing runs in a background goroutine.
func (s *Service) StartAsync(ctx context.Context, userID string, policy DuplicatePolicy, files []IncomingFile, requestID string) (Task, error) {
	staged, err := s.stage(ctx, userID, files)
	if err != nil {
		return Task{}, err
	}

	task := Task{
		ID:        uuid.NewString(),
		UserID:    userID,
		Status:    TaskStatusProcessing,
		Policy:    policy,
		Files:     staged,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.Tasks.CreateTask(ctx, task); err != nil {
		return Task{}, fmt.Errorf("create upload task: %w", err)
	}

	telemetry.Info("intake.task_queued", map[string]any{
		"task_id":    task.ID,
		"user_id":    userID,
		"file_count": len(staged),
		"request_id": requestID,
	})

	if s.Queue != nil {
		if err := s.Queue.Enqueue(ctx, task.ID, requestID); err != nil {
			// Queue outage falls back to in-process execution so the
			// accepted task still completes.
			telemetry.Warn("intake.enqueue_failed", map[string]any{
				"task_id": task.ID,
				"error":   err.Error(),
			})
			go s.runTask(task.ID)
		}
	} else {
		go s.runTask(task.ID)
	}
	return task, nil
}

// GetTask returns the current state of an upload task, scoped to its owner.
func (s *Service) GetTask(ctx context.Context, userID, taskID string) (Task, error) {
	task, err := s.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return Task{}, err
	}
	if task.UserID != userID {
		return Task{}, ErrNotFound
	}
	return task, nil
}

// runTask detaches task execution from the request context.
func (s *Service) runTask(taskID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Minute)
	defer cancel()
	if err := s.ProcessTask(ctx, taskID); err != nil {
		telemetry.Error("intake.task_run_failed", map[string]any{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}
}

// ProcessTask executes a previously staged upload task to completion. It is
// the entry point for both queue workers and the in-process fallback.
func (s *Service) ProcessTask(ctx context.Context, taskID string) error {
	start := time.Now()
	metrics.IncUploadBatchesStarted()

	task, err := s.Tasks.GetTask(ctx, taskID)
	if err != nil {
		return err
	}
	if task.Terminal() {
		telemetry.Info("intake.task_already_done", map[string]any{"task_id": taskID})
		return nil
	}
	if err := s.Tasks.MarkStarted(ctx, taskID); err != nil {
		telemetry.Warn("intake.mark_started_failed", map[string]any{
			"task_id": taskID,
			"error":   err.Error(),
		})
	}

	total := len(task.Files)
	items := s.processStaged(ctx, task.UserID, task.Policy, task.Files, func(done int) {
		progress := 0
		if total > 0 {
			progress = done * 100 / total
		}
		if err := s.Tasks.UpdateProgress(ctx, taskID, progress); err != nil {
			telemetry.Warn("intake.progress_update_failed", map[string]any{
				"task_id": taskID,
				"error":   err.Error(),
			})
		}
	})

	if ctx.Err() != nil {
		metrics.IncUploadBatchesFailed()
		if failErr := s.Tasks.Fail(context.WithoutCancel(ctx), taskID, "processing interrupted"); failErr != nil {
			telemetry.Error("intake.task_fail_write", map[string]any{
				"task_id": taskID,
				"error":   failErr.Error(),
			})
		}
		return ctx.Err()
	}

	result := Summarize(items)
	if err := s.Tasks.Complete(ctx, taskID, result); err != nil {
		metrics.IncUploadBatchesFailed()
		return fmt.Errorf("complete upload task: %w", err)
	}

	metrics.IncUploadBatchesCompleted()
	metrics.AddUploadFilesProcessed(result.TotalProcessed)
	metrics.ObserveUploadBatchDurationMs(float64(time.Since(start).Milliseconds()))

	telemetry.Info("intake.batch_done", map[string]any{
		"task_id":    taskID,
		"user_id":    task.UserID,
		"mode":       "async",
		"total":      result.TotalProcessed,
		"created":    result.Created,
		"updated":    result.Updated,
		"duplicates": result.Duplicates,
		"failed":     result.Failed,
	})
	return nil
}

// stage persists each incoming file to object storage before any parsing
// happens. Staging is all-or-nothing: one storage failure aborts the batch.
func (s *Service) stage(ctx context.Context, userID string, files []IncomingFile) ([]StagedFile, error) {
	staged := make([]StagedFile, 0, len(files))
	for _, f := range files {
		key, size, mime, err := s.Store.Save(ctx, userID, f.Name, f.Reader)
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", f.Name, err)
		}
		staged = append(staged, StagedFile{
			FileName:   f.Name,
			StorageKey: key,
			MimeType:   mime,
			SizeBytes:  size,
		})
	}
	return staged, nil
}

// processStaged runs the per-file pipeline over staged files in order. The
// onProgress callback, when set, is invoked after each file with the number
// of files finished so far.
func (s *Service) processStaged(ctx context.Context, userID string, policy DuplicatePolicy, staged []StagedFile, onProgress func(done int)) []ResultItem {
	items := make([]ResultItem, 0, len(staged))
	for i, f := range staged {
		if ctx.Err() != nil {
			break
		}
		item := s.processOne(ctx, userID, policy, f)
		items = append(items, item)
		if onProgress != nil {
			onProgress(i + 1)
		}
	}
	return items
}

func (s *Service) processOne(ctx context.Context, userID string, policy DuplicatePolicy, f StagedFile) ResultItem {
	item := ResultItem{FileName: f.FileName}

	rc, err := s.Store.Open(ctx, f.StorageKey)
	if err != nil {
		item.Status = FailedStatus("stored file unavailable")
		s.logFileFailure(f.FileName, err)
		return item
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		item.Status = FailedStatus("stored file unreadable")
		s.logFileFailure(f.FileName, err)
		return item
	}

	text, err := extract.Text(ctx, data, f.MimeType, f.FileName)
	if err != nil {
		item.Status = FailedStatus(failureReason(err))
		s.logFileFailure(f.FileName, err)
		return item
	}

	contact := parse.FromText(text)
	if contact.Email == "" {
		item.Status = FailedStatus("no contact email found")
		return item
	}

	name := contact.Name
	if name == "" {
		name = nameFromFile(f.FileName)
	}
	item.CandidateName = name
	item.CandidateEmail = strings.ToLower(contact.Email)

	existing, err := s.Candidates.GetByEmail(ctx, contact.Email)
	switch {
	case err == nil:
		item.CandidateID = existing.ID
		if policy != PolicyOverwrite {
			item.CandidateName = existing.FullName
			item.Status = StatusDuplicate
			return item
		}
		existing.FullName = name
		if contact.Phone != "" {
			existing.Phone = contact.Phone
		}
		existing.SourceFile = f.FileName
		existing.ResumeKey = f.StorageKey
		existing.MimeType = f.MimeType
		existing.SizeBytes = f.SizeBytes
		if err := s.Candidates.Update(ctx, existing); err != nil {
			item.Status = FailedStatus("could not update candidate")
			s.logFileFailure(f.FileName, err)
			return item
		}
		item.Status = StatusUpdated
		return item

	case errors.Is(err, candidates.ErrNotFound):
		now := time.Now().UTC()
		cand := candidates.Candidate{
			ID:         uuid.NewString(),
			FullName:   name,
			Email:      strings.ToLower(contact.Email),
			Phone:      contact.Phone,
			SourceFile: f.FileName,
			ResumeKey:  f.StorageKey,
			MimeType:   f.MimeType,
			SizeBytes:  f.SizeBytes,
			CreatedBy:  userID,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		if err := s.Candidates.Create(ctx, cand); err != nil {
			item.Status = FailedStatus("could not create candidate")
			s.logFileFailure(f.FileName, err)
			return item
		}
		item.CandidateID = cand.ID
		item.Status = StatusCreated
		return item

	default:
		item.Status = FailedStatus("candidate lookup failed")
		s.logFileFailure(f.FileName, err)
		return item
	}
}

func (s *Service) logFileFailure(fileName string, err error) {
	telemetry.Warn("intake.file_failed", map[string]any{
		"file_name": fileName,
		"error":     err.Error(),
	})
}

// failureReason maps extraction errors to short user-facing reasons. Raw
// error text stays in the logs.
func failureReason(err error) string {
	if errors.Is(err, extract.ErrLegacyDoc) {
		return "legacy .doc format is not supported, convert to .docx or .pdf"
	}
	if errors.Is(err, extract.ErrUnsupported) {
		return "unsupported file format"
	}
	return "could not read resume text"
}

// nameFromFile derives a display name from a resume file name when the
// parsed text yields none.
func nameFromFile(fileName string) string {
	base := strings.TrimSuffix(fileName, filepath.Ext(fileName))
	base = strings.NewReplacer("_", " ", "-", " ", ".", " ").Replace(base)
	base = strings.Join(strings.Fields(base), " ")
	if base == "" {
		return "Unknown"
	}
	words := strings.Fields(base)
	for i, w := range words {
		first, width := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(first)) + w[width:]
	}
	return strings.Join(words, " ")
}
