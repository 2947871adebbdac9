package workqueue

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

// JobStatus represents the current state of a job.
type JobStatus string

const (
	JobStatusPending   JobStatus = "PENDING"
	JobStatusRunning   JobStatus = "RUNNING"
	JobStatusDone      JobStatus = "DONE"
	JobStatusFailed    JobStatus = "FAILED"
	JobStatusCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the job will not change state again.
func (s JobStatus) Terminal() bool {
	return s == JobStatusDone || s == JobStatusFailed || s == JobStatusCancelled
}

// JobState holds one submitted batch and its runtime state.
type JobState struct {
	ID          string
	Batch       models.Batch
	Status      JobStatus
	Outcome     models.Outcome
	SubmittedAt time.Time
	StartedAt   *time.Time
	CompletedAt *time.Time

	mu sync.RWMutex
}

// NewJobState creates a pending job with a fresh id.
func NewJobState(batch models.Batch) *JobState {
	return &JobState{
		ID:          uuid.New().String(),
		Batch:       batch,
		Status:      JobStatusPending,
		SubmittedAt: time.Now(),
	}
}

// GetStatus returns the current status (thread-safe).
func (js *JobState) GetStatus() JobStatus {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return js.Status
}

// SetStatus updates the status and timestamps (thread-safe).
func (js *JobState) SetStatus(status JobStatus) {
	js.mu.Lock()
	defer js.mu.Unlock()

	js.Status = status
	now := time.Now()

	switch {
	case status == JobStatusRunning:
		js.StartedAt = &now
	case status.Terminal():
		js.CompletedAt = &now
	}
}

// Finish stores the outcome and moves the job to DONE or FAILED.
func (js *JobState) Finish(outcome models.Outcome) {
	status := JobStatusDone
	if outcome.Failed() {
		status = JobStatusFailed
	}
	js.mu.Lock()
	js.Outcome = outcome
	js.mu.Unlock()
	js.SetStatus(status)
}

// GetOutcome returns the stored outcome (thread-safe).
func (js *JobState) GetOutcome() models.Outcome {
	js.mu.RLock()
	defer js.mu.RUnlock()
	return js.Outcome
}

// Snapshot returns an immutable copy of the job state.
func (js *JobState) Snapshot() JobSnapshot {
	js.mu.RLock()
	defer js.mu.RUnlock()

	return JobSnapshot{
		ID:          js.ID,
		Queries:     len(js.Batch.Queries),
		Status:      js.Status,
		SubmittedAt: js.SubmittedAt,
		StartedAt:   js.StartedAt,
		CompletedAt: js.CompletedAt,
		Error:       js.Outcome.Error,
	}
}

// JobSnapshot is an immutable view of job state for serialization.
type JobSnapshot struct {
	ID          string     `json:"id"`
	Queries     int        `json:"queries"`
	Status      JobStatus  `json:"status"`
	SubmittedAt time.Time  `json:"submitted_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	Error       string     `json:"error,omitempty"`
}
