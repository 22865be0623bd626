package intakeclient

import (
	"context"
	"errors"
	"sync"
	"time"

	"ats-backend/internal/shared/telemetry"
)

// DefaultPollInterval is how often an upload task is polled.
const DefaultPollInterval = 2 * time.Second

// ErrPollTimeout indicates the task did not reach a terminal state within
// the configured maximum poll duration.
var ErrPollTimeout = errors.New("task polling timed out")

// ErrAlreadyStarted indicates Start was called twice on one Poller.
var ErrAlreadyStarted = errors.New("poller already started")

// StatusFunc fetches the current state of an upload task.
type StatusFunc func(ctx context.Context, taskID string) (TaskStatus, error)

// Poller drives periodic status checks for one upload task. Polling runs in
// a single goroutine, so requests never overlap: a tick that fires while a
// request is still pending is simply dropped by the ticker.
//
// The poller stops exactly once, on the first of: a terminal status, a
// transport error, the max duration elapsing, Stop, or context cancellation.
type Poller struct {
	Status   StatusFunc
	Interval time.Duration
	// MaxDuration bounds total polling time. Zero polls until terminal.
	MaxDuration time.Duration
	// OnProgress is invoked after every successful non-terminal poll.
	OnProgress func(TaskStatus)

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	final   TaskStatus
	err     error

	stopOnce sync.Once
}

// NewPoller constructs a Poller using the client's status endpoint.
func NewPoller(c *Client) *Poller {
	return &Poller{
		Status:   c.GetTaskStatus,
		Interval: DefaultPollInterval,
	}
}

// Start begins polling the task in the background. It returns immediately;
// use Wait or Done to observe completion.
func (p *Poller) Start(ctx context.Context, taskID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started {
		return ErrAlreadyStarted
	}
	p.started = true

	if p.Interval <= 0 {
		p.Interval = DefaultPollInterval
	}

	runCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.done = make(chan struct{})

	go p.run(runCtx, taskID)
	return nil
}

// Stop cancels polling. It is safe to call multiple times and after the
// poller has already finished.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel := p.cancel
	p.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Done is closed when polling has finished for any reason.
func (p *Poller) Done() <-chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

// Result returns the final status and error once Done is closed.
func (p *Poller) Result() (TaskStatus, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.final, p.err
}

// Wait blocks until polling finishes or the context is cancelled.
func (p *Poller) Wait(ctx context.Context) (TaskStatus, error) {
	select {
	case <-p.Done():
		return p.Result()
	case <-ctx.Done():
		p.Stop()
		return TaskStatus{}, ctx.Err()
	}
}

func (p *Poller) run(ctx context.Context, taskID string) {
	var deadline <-chan time.Time
	if p.MaxDuration > 0 {
		timer := time.NewTimer(p.MaxDuration)
		defer timer.Stop()
		deadline = timer.C
	}

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	// First poll happens immediately so short tasks resolve fast.
	if p.poll(ctx, taskID) {
		return
	}

	for {
		select {
		case <-ctx.Done():
			p.finish(TaskStatus{}, ctx.Err())
			return
		case <-deadline:
			p.finish(TaskStatus{}, ErrPollTimeout)
			return
		case <-ticker.C:
			if p.poll(ctx, taskID) {
				return
			}
		}
	}
}

// poll performs one status request. It returns true when polling is over.
func (p *Poller) poll(ctx context.Context, taskID string) bool {
	if ctx.Err() != nil {
		p.finish(TaskStatus{}, ctx.Err())
		return true
	}

	status, err := p.Status(ctx, taskID)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == 429 {
			// Throttled; the next tick retries.
			telemetry.Warn("intakeclient.poll_throttled", map[string]any{"task_id": taskID})
			return false
		}
		p.finish(TaskStatus{}, err)
		return true
	}

	if status.Terminal() {
		p.finish(status, nil)
		return true
	}
	if p.OnProgress != nil {
		p.OnProgress(status)
	}
	return false
}

func (p *Poller) finish(status TaskStatus, err error) {
	p.stopOnce.Do(func() {
		p.mu.Lock()
		p.final = status
		p.err = err
		done := p.done
		cancel := p.cancel
		p.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		close(done)
	})
}
