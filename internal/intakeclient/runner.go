package intakeclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"ats-backend/internal/intake"
	"ats-backend/internal/shared/telemetry"
)

// Runner drives a complete bulk upload: validation, sync/async dispatch,
// task polling, result aggregation, and candidate list refresh. Failed files
// stay staged so the caller can retry them.
type Runner struct {
	Client *Client
	Policy intake.DuplicatePolicy

	PollInterval time.Duration
	// MaxPollDuration bounds async polling. Zero waits until terminal.
	MaxPollDuration time.Duration

	// OnTransfer reports request body upload progress.
	OnTransfer ProgressFunc
	// OnTaskProgress reports server-side processing progress (0-100).
	OnTaskProgress func(progress int)

	files []BatchFile
	metas []intake.FileMeta
}

// Add validates and stages local files. Files failing validation are
// reported and not staged; files beyond the batch limit are dropped.
func (r *Runner) Add(files ...BatchFile) (rejected []string, dropped int) {
	for _, f := range files {
		name := f.Name
		if name == "" {
			name = filepath.Base(f.Path)
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			rejected = append(rejected, fmt.Sprintf("%s: %v", name, err))
			continue
		}
		if err := intake.ValidateFile(name, info.Size()); err != nil {
			rejected = append(rejected, err.Error())
			continue
		}
		if len(r.files) >= intake.MaxBatchFiles {
			dropped++
			continue
		}
		r.files = append(r.files, BatchFile{Name: name, Path: f.Path})
		r.metas = append(r.metas, intake.FileMeta{Name: name, Size: info.Size()})
	}
	return rejected, dropped
}

// Files returns the currently staged files.
func (r *Runner) Files() []BatchFile {
	return append([]BatchFile(nil), r.files...)
}

// Reset clears all staged files.
func (r *Runner) Reset() {
	r.files = nil
	r.metas = nil
}

// Run submits the staged batch and returns the aggregated result. Small
// batches go through the synchronous endpoint; large ones are submitted
// asynchronously and polled to completion. On success the staged batch is
// reduced to the files that failed, ready for Retry; on transport failure
// the whole batch is preserved.
func (r *Runner) Run(ctx context.Context) (intake.Result, error) {
	if len(r.files) == 0 {
		return intake.Result{}, intake.ErrEmptyBatch
	}

	var totalBytes int64
	for _, m := range r.metas {
		totalBytes += m.Size
	}

	var (
		result intake.Result
		err    error
	)
	if intake.UseAsync(len(r.files), totalBytes) {
		result, err = r.runAsync(ctx)
	} else {
		result, err = r.Client.BulkSubmit(ctx, r.Policy, r.files, r.OnTransfer)
	}
	if err != nil {
		return intake.Result{}, err
	}

	r.refreshCandidates(ctx)
	r.keepFailed(result)
	return result, nil
}

func (r *Runner) runAsync(ctx context.Context) (intake.Result, error) {
	taskID, err := r.Client.BulkSubmitAsync(ctx, r.Policy, r.files, r.OnTransfer)
	if err != nil {
		return intake.Result{}, err
	}

	poller := NewPoller(r.Client)
	if r.PollInterval > 0 {
		poller.Interval = r.PollInterval
	}
	poller.MaxDuration = r.MaxPollDuration
	if r.OnTaskProgress != nil {
		poller.OnProgress = func(s TaskStatus) { r.OnTaskProgress(s.Progress) }
	}

	if err := poller.Start(ctx, taskID); err != nil {
		return intake.Result{}, err
	}
	status, err := poller.Wait(ctx)
	if err != nil {
		return intake.Result{}, fmt.Errorf("poll task %s: %w", taskID, err)
	}

	if status.Status == intake.TaskStatusFailed {
		msg := status.Error
		if msg == "" {
			msg = "upload task failed"
		}
		return intake.Result{}, errors.New(msg)
	}
	if status.Result == nil {
		return intake.Result{}, fmt.Errorf("task %s completed without a result", taskID)
	}
	if r.OnTaskProgress != nil {
		r.OnTaskProgress(100)
	}
	return *status.Result, nil
}

// refreshCandidates warms the candidate list after an upload. A refresh
// failure is logged and never surfaces to the caller: the upload itself
// already succeeded.
func (r *Runner) refreshCandidates(ctx context.Context) {
	if _, err := r.Client.ListCandidates(ctx, 20, 0); err != nil {
		telemetry.Warn("intakeclient.refresh_failed", map[string]any{"error": err.Error()})
	}
}

// keepFailed reduces the staged batch to the files whose processing failed,
// so a follow-up Run retries exactly those.
func (r *Runner) keepFailed(result intake.Result) {
	failed := intake.FailedItems(result.Results)
	if len(failed) == 0 {
		r.Reset()
		return
	}

	byName := make(map[string]bool, len(failed))
	for _, item := range failed {
		byName[item.FileName] = true
	}

	var files []BatchFile
	var metas []intake.FileMeta
	for i, f := range r.files {
		if byName[f.Name] {
			files = append(files, f)
			metas = append(metas, r.metas[i])
		}
	}
	r.files = files
	r.metas = metas
}
