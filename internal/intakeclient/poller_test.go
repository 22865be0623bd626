package intakeclient

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"ats-backend/internal/intake"
)

func scriptedStatus(statuses ...TaskStatus) (StatusFunc, *atomic.Int32) {
	var calls atomic.Int32
	fn := func(ctx context.Context, taskID string) (TaskStatus, error) {
		n := int(calls.Add(1)) - 1
		if n >= len(statuses) {
			n = len(statuses) - 1
		}
		return statuses[n], nil
	}
	return fn, &calls
}

func TestPollerStopsOnTerminal(t *testing.T) {
	status, calls := scriptedStatus(
		TaskStatus{TaskID: "t", Status: intake.TaskStatusProcessing, Progress: 10},
		TaskStatus{TaskID: "t", Status: intake.TaskStatusProcessing, Progress: 60},
		TaskStatus{TaskID: "t", Status: intake.TaskStatusCompleted, Progress: 100, Result: &intake.Result{TotalProcessed: 1, Success: 1}},
	)

	var progress []int
	p := &Poller{
		Status:     status,
		Interval:   5 * time.Millisecond,
		OnProgress: func(s TaskStatus) { progress = append(progress, s.Progress) },
	}
	if err := p.Start(context.Background(), "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	final, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if final.Status != intake.TaskStatusCompleted {
		t.Fatalf("expected completed, got %q", final.Status)
	}
	if final.Result == nil || final.Result.Success != 1 {
		t.Fatalf("result not carried: %+v", final.Result)
	}
	if len(progress) != 2 || progress[0] != 10 || progress[1] != 60 {
		t.Fatalf("unexpected progress updates: %v", progress)
	}

	// No polls may happen after the terminal response.
	settled := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != settled {
		t.Fatalf("poller kept polling after terminal state: %d -> %d", settled, calls.Load())
	}
}

func TestPollerStopIsIdempotent(t *testing.T) {
	status, _ := scriptedStatus(TaskStatus{Status: intake.TaskStatusCompleted, Result: &intake.Result{}})
	p := &Poller{Status: status, Interval: 5 * time.Millisecond}
	if err := p.Start(context.Background(), "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if _, err := p.Wait(context.Background()); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	final, _ := p.Result()
	p.Stop()
	p.Stop()
	again, err := p.Result()
	if err != nil || again.Status != final.Status {
		t.Fatalf("Stop after completion must not change the result: %+v, %v", again, err)
	}
}

func TestPollerStartTwice(t *testing.T) {
	status, _ := scriptedStatus(TaskStatus{Status: intake.TaskStatusProcessing})
	p := &Poller{Status: status, Interval: time.Hour}
	if err := p.Start(context.Background(), "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer p.Stop()

	if err := p.Start(context.Background(), "t"); !errors.Is(err, ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestPollerSurfacesTransportError(t *testing.T) {
	boom := errors.New("connection refused")
	p := &Poller{
		Status: func(ctx context.Context, taskID string) (TaskStatus, error) {
			return TaskStatus{}, boom
		},
		Interval: 5 * time.Millisecond,
	}
	if err := p.Start(context.Background(), "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := p.Wait(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestPollerContinuesWhenThrottled(t *testing.T) {
	var calls atomic.Int32
	p := &Poller{
		Status: func(ctx context.Context, taskID string) (TaskStatus, error) {
			if calls.Add(1) == 1 {
				return TaskStatus{}, &APIError{Status: 429, Code: "poll_too_fast", Message: "slow down"}
			}
			return TaskStatus{Status: intake.TaskStatusCompleted, Result: &intake.Result{}}, nil
		},
		Interval: 5 * time.Millisecond,
	}
	if err := p.Start(context.Background(), "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	final, err := p.Wait(context.Background())
	if err != nil {
		t.Fatalf("throttled poll should not end polling: %v", err)
	}
	if final.Status != intake.TaskStatusCompleted {
		t.Fatalf("expected completed, got %q", final.Status)
	}
}

func TestPollerMaxDuration(t *testing.T) {
	status, _ := scriptedStatus(TaskStatus{Status: intake.TaskStatusProcessing})
	p := &Poller{
		Status:      status,
		Interval:    5 * time.Millisecond,
		MaxDuration: 30 * time.Millisecond,
	}
	if err := p.Start(context.Background(), "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if _, err := p.Wait(context.Background()); !errors.Is(err, ErrPollTimeout) {
		t.Fatalf("expected ErrPollTimeout, got %v", err)
	}
}

func TestPollerCancellationStopsRequests(t *testing.T) {
	status, calls := scriptedStatus(TaskStatus{Status: intake.TaskStatusProcessing})
	p := &Poller{Status: status, Interval: 5 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	if err := p.Start(ctx, "t"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	time.Sleep(15 * time.Millisecond)
	cancel()
	<-p.Done()

	settled := calls.Load()
	time.Sleep(30 * time.Millisecond)
	if calls.Load() != settled {
		t.Fatal("requests continued after cancellation")
	}
	if _, err := p.Result(); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
