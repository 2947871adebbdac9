package workqueue

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// DefaultMaxRetained is how many finished jobs are kept for status queries.
const DefaultMaxRetained = 1000

// ErrQueueClosed is returned by Submit after Cancel.
var ErrQueueClosed = errors.New("job queue is shut down")

// Runner processes one batch. Failures are carried in the Outcome.
type Runner interface {
	Run(ctx context.Context, batch models.Batch) models.Outcome
}

// RunnerFunc adapts a function to Runner.
type RunnerFunc func(ctx context.Context, batch models.Batch) models.Outcome

func (f RunnerFunc) Run(ctx context.Context, batch models.Batch) models.Outcome {
	return f(ctx, batch)
}

// Queue runs submitted batches in the background with bounded concurrency
// and keeps finished jobs for later retrieval.
type Queue struct {
	mu        sync.Mutex
	jobs      map[string]*JobState
	order     []*JobState // submission order
	cancelled bool

	runner      Runner
	strategy    ConcurrencyStrategy
	maxRetained int

	// done is closed when all jobs are terminal
	done chan struct{}
	// wg tracks running goroutines
	wg sync.WaitGroup

	// Cancellation context for running jobs
	ctx    context.Context
	cancel context.CancelFunc

	// Callbacks
	onUpdate func(JobSnapshot)

	logger *zap.Logger
}

// QueueOption configures a Queue.
type QueueOption func(*Queue)

// WithStrategy sets the concurrency strategy.
func WithStrategy(strategy ConcurrencyStrategy) QueueOption {
	return func(q *Queue) {
		if strategy != nil {
			q.strategy = strategy
		}
	}
}

// WithMaxRetained bounds how many finished jobs are kept; oldest are evicted first.
func WithMaxRetained(n int) QueueOption {
	return func(q *Queue) {
		if n > 0 {
			q.maxRetained = n
		}
	}
}

// New creates a job queue that runs one job at a time unless a strategy is given.
func New(runner Runner, logger *zap.Logger, opts ...QueueOption) *Queue {
	ctx, cancel := context.WithCancel(context.Background())
	q := &Queue{
		jobs:        make(map[string]*JobState),
		runner:      runner,
		strategy:    NewSerializedStrategy(),
		maxRetained: DefaultMaxRetained,
		done:        make(chan struct{}),
		ctx:         ctx,
		cancel:      cancel,
		logger:      logger.Named("workqueue"),
	}

	for _, opt := range opts {
		opt(q)
	}

	return q
}

// SetOnUpdate sets the callback invoked when a job changes state.
//
// WARNING: The callback is invoked while holding the queue's internal lock.
// Do NOT call any Queue methods from within the callback or it will deadlock.
func (q *Queue) SetOnUpdate(callback func(JobSnapshot)) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.onUpdate = callback
}

// Submit enqueues a batch and returns its job id.
func (q *Queue) Submit(batch models.Batch) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return "", ErrQueueClosed
	}

	// Reset done channel if it was closed from a previous batch
	q.resetDoneLocked()

	js := NewJobState(batch)
	q.jobs[js.ID] = js
	q.order = append(q.order, js)

	q.logger.Info("job submitted",
		zap.String("job_id", js.ID),
		zap.Int("queries", len(batch.Queries)))

	q.notifyUpdateLocked(js)
	q.tryStartJobsLocked()
	return js.ID, nil
}

// tryStartJobsLocked starts pending jobs the strategy allows, oldest first.
// Must be called with lock held.
func (q *Queue) tryStartJobsLocked() {
	if q.cancelled {
		return
	}

	for _, js := range q.order {
		if js.GetStatus() != JobStatusPending {
			continue
		}
		if !q.strategy.CanStart() {
			return
		}

		q.strategy.OnStart()
		js.SetStatus(JobStatusRunning)
		q.notifyUpdateLocked(js)

		q.logger.Info("starting job", zap.String("job_id", js.ID))

		q.wg.Add(1)
		go q.runJob(js)
	}
}

// runJob executes one batch. Retries live inside the batch pipeline, so
// the queue runs each job exactly once.
func (q *Queue) runJob(js *JobState) {
	defer q.wg.Done()

	outcome := q.runner.Run(q.ctx, js.Batch)
	q.completeJob(js, outcome)
}

// completeJob records the outcome and starts the next eligible job.
func (q *Queue) completeJob(js *JobState, outcome models.Outcome) {
	q.mu.Lock()
	defer q.mu.Unlock()

	q.strategy.OnComplete()

	if q.ctx.Err() != nil && outcome.Failed() {
		js.SetStatus(JobStatusCancelled)
		q.logger.Info("job cancelled", zap.String("job_id", js.ID))
	} else {
		js.Finish(outcome)
		if outcome.Failed() {
			q.logger.Warn("job failed",
				zap.String("job_id", js.ID),
				zap.String("error", outcome.Error))
		} else {
			q.logger.Info("job done", zap.String("job_id", js.ID))
		}
	}

	q.notifyUpdateLocked(js)
	q.evictLocked()

	if q.allJobsDoneLocked() {
		q.closeDoneLocked()
		return
	}

	q.tryStartJobsLocked()
}

// evictLocked drops the oldest finished jobs beyond maxRetained.
// Must be called with lock held.
func (q *Queue) evictLocked() {
	finished := 0
	for _, js := range q.order {
		if js.GetStatus().Terminal() {
			finished++
		}
	}
	if finished <= q.maxRetained {
		return
	}

	excess := finished - q.maxRetained
	kept := q.order[:0]
	for _, js := range q.order {
		if excess > 0 && js.GetStatus().Terminal() {
			delete(q.jobs, js.ID)
			excess--
			q.logger.Debug("job evicted", zap.String("job_id", js.ID))
			continue
		}
		kept = append(kept, js)
	}
	clear(q.order[len(kept):])
	q.order = kept
}

// allJobsDoneLocked returns true if all jobs are in a terminal state.
// Must be called with lock held.
func (q *Queue) allJobsDoneLocked() bool {
	for _, js := range q.order {
		if !js.GetStatus().Terminal() {
			return false
		}
	}
	return true
}

// closeDoneLocked safely closes the done channel.
// Must be called with lock held.
func (q *Queue) closeDoneLocked() {
	select {
	case <-q.done:
		// Already closed
	default:
		close(q.done)
	}
}

// resetDoneLocked recreates the done channel if it was closed.
// Must be called with lock held.
func (q *Queue) resetDoneLocked() {
	select {
	case <-q.done:
		q.done = make(chan struct{})
	default:
	}
}

// notifyUpdateLocked calls the update callback with a snapshot of js.
// Must be called with lock held.
func (q *Queue) notifyUpdateLocked(js *JobState) {
	if q.onUpdate == nil {
		return
	}
	q.onUpdate(js.Snapshot())
}

// Get returns a snapshot of one job, or apperrors.ErrNotFound.
func (q *Queue) Get(id string) (JobSnapshot, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	js, ok := q.jobs[id]
	if !ok {
		return JobSnapshot{}, fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}
	return js.Snapshot(), nil
}

// Result returns the outcome of a finished job. A job still pending or
// running yields apperrors.ErrJobNotFinished.
func (q *Queue) Result(id string) (models.Outcome, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	js, ok := q.jobs[id]
	if !ok {
		return models.Outcome{}, fmt.Errorf("job %s: %w", id, apperrors.ErrNotFound)
	}
	switch js.GetStatus() {
	case JobStatusDone, JobStatusFailed:
		return js.GetOutcome(), nil
	case JobStatusCancelled:
		return models.Outcome{Error: "job was cancelled before it finished"}, nil
	default:
		return models.Outcome{}, fmt.Errorf("job %s: %w", id, apperrors.ErrJobNotFinished)
	}
}

// GetJobs returns snapshots of all retained jobs in submission order.
func (q *Queue) GetJobs() []JobSnapshot {
	q.mu.Lock()
	defer q.mu.Unlock()

	snapshots := make([]JobSnapshot, len(q.order))
	for i, js := range q.order {
		snapshots[i] = js.Snapshot()
	}
	return snapshots
}

// Wait blocks until every submitted job is terminal or ctx is done.
func (q *Queue) Wait(ctx context.Context) error {
	q.mu.Lock()
	if len(q.order) == 0 {
		q.mu.Unlock()
		return nil
	}
	done := q.done
	q.mu.Unlock()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel stops accepting jobs, marks pending ones cancelled and signals
// running ones. Running batches stop before their next oracle attempt.
func (q *Queue) Cancel() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.cancelled {
		return
	}

	q.cancelled = true
	q.logger.Info("queue cancelled, signaling running jobs to stop")

	q.cancel()

	for _, js := range q.order {
		if js.GetStatus() == JobStatusPending {
			js.SetStatus(JobStatusCancelled)
			q.notifyUpdateLocked(js)
		}
	}

	if q.allJobsDoneLocked() {
		q.closeDoneLocked()
	}
}

// Shutdown cancels the queue and waits for running jobs to return, or for ctx.
func (q *Queue) Shutdown(ctx context.Context) error {
	q.Cancel()

	finished := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(finished)
	}()

	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Progress returns a progress summary over retained jobs.
func (q *Queue) Progress() Progress {
	q.mu.Lock()
	defer q.mu.Unlock()

	p := Progress{Total: len(q.order)}
	for _, js := range q.order {
		switch js.GetStatus() {
		case JobStatusPending:
			p.Pending++
		case JobStatusRunning:
			p.Running++
		case JobStatusDone:
			p.Done++
		case JobStatusFailed:
			p.Failed++
		case JobStatusCancelled:
			p.Cancelled++
		}
	}
	return p
}

// Progress holds queue statistics.
type Progress struct {
	Total     int `json:"total"`
	Pending   int `json:"pending"`
	Running   int `json:"running"`
	Done      int `json:"done"`
	Failed    int `json:"failed"`
	Cancelled int `json:"cancelled"`
}

// Percentage returns the completion percentage (0-100).
func (p Progress) Percentage() int {
	if p.Total == 0 {
		return 100
	}
	done := p.Done + p.Failed + p.Cancelled
	return (done * 100) / p.Total
}
