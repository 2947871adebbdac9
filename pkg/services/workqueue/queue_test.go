package workqueue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/Vvil1568/lct-hackathone/pkg/apperrors"
	"github.com/Vvil1568/lct-hackathone/pkg/models"
)

func testBatch(id string) models.Batch {
	return models.Batch{
		URL:     "jdbc:trino://localhost:8080/lake/db",
		Queries: []models.QueryStatement{{QueryID: id, Query: "SELECT 1", RunQuantity: 1}},
	}
}

func okOutcome() models.Outcome {
	return models.Outcome{Candidate: &models.RemediationCandidate{
		DDL: []models.Statement{{Statement: "CREATE TABLE t (a int)"}},
	}}
}

func waitQueue(t *testing.T, q *Queue) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Wait(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQueue_SubmitAndComplete(t *testing.T) {
	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome {
		return okOutcome()
	}), zap.NewNop())

	id, err := q.Submit(testBatch("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	waitQueue(t, q)

	snap, err := q.Get(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if snap.Status != JobStatusDone {
		t.Errorf("expected DONE, got %s", snap.Status)
	}
	if snap.StartedAt == nil || snap.CompletedAt == nil {
		t.Error("expected start and completion timestamps")
	}

	outcome, err := q.Result(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if outcome.Candidate == nil || len(outcome.Candidate.DDL) != 1 {
		t.Errorf("unexpected outcome: %+v", outcome)
	}
}

func TestQueue_FailedOutcome(t *testing.T) {
	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome {
		return models.Outcome{Error: "query engine unavailable"}
	}), zap.NewNop())

	id, _ := q.Submit(testBatch("1"))
	waitQueue(t, q)

	snap, _ := q.Get(id)
	if snap.Status != JobStatusFailed {
		t.Errorf("expected FAILED, got %s", snap.Status)
	}
	if snap.Error != "query engine unavailable" {
		t.Errorf("unexpected error text %q", snap.Error)
	}

	outcome, err := q.Result(id)
	if err != nil {
		t.Fatalf("failed jobs still have a result: %v", err)
	}
	if !outcome.Failed() {
		t.Error("expected a failed outcome")
	}
}

func TestQueue_ResultWhileRunning(t *testing.T) {
	release := make(chan struct{})
	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome {
		<-release
		return okOutcome()
	}), zap.NewNop())

	id, _ := q.Submit(testBatch("1"))

	_, err := q.Result(id)
	if !errors.Is(err, apperrors.ErrJobNotFinished) {
		t.Errorf("expected ErrJobNotFinished, got %v", err)
	}

	close(release)
	waitQueue(t, q)

	if _, err := q.Result(id); err != nil {
		t.Errorf("unexpected error after completion: %v", err)
	}
}

func TestQueue_UnknownJob(t *testing.T) {
	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome { return okOutcome() }), zap.NewNop())

	if _, err := q.Get("nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if _, err := q.Result("nope"); !errors.Is(err, apperrors.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestQueue_DefaultSerializesJobs(t *testing.T) {
	var running, maxConcurrent int32
	var mu sync.Mutex

	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome {
		current := atomic.AddInt32(&running, 1)
		mu.Lock()
		if current > maxConcurrent {
			maxConcurrent = current
		}
		mu.Unlock()
		time.Sleep(20 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		return okOutcome()
	}), zap.NewNop())

	for i := 0; i < 3; i++ {
		if _, err := q.Submit(testBatch("x")); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	waitQueue(t, q)

	if maxConcurrent != 1 {
		t.Errorf("expected max 1 concurrent job, got %d", maxConcurrent)
	}
	if p := q.Progress(); p.Done != 3 || p.Percentage() != 100 {
		t.Errorf("unexpected progress %+v", p)
	}
}

func TestQueue_ThrottledStrategyRespectsLimit(t *testing.T) {
	var running, maxConcurrent int32
	var mu sync.Mutex
	release := make(chan struct{})

	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome {
		current := atomic.AddInt32(&running, 1)
		mu.Lock()
		if current > maxConcurrent {
			maxConcurrent = current
		}
		mu.Unlock()
		<-release
		atomic.AddInt32(&running, -1)
		return okOutcome()
	}), zap.NewNop(), WithStrategy(NewThrottledStrategy(2)))

	for i := 0; i < 5; i++ {
		q.Submit(testBatch("x"))
	}

	deadline := time.Now().Add(2 * time.Second)
	for atomic.LoadInt32(&running) < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if p := q.Progress(); p.Running != 2 || p.Pending != 3 {
		t.Errorf("expected 2 running and 3 pending, got %+v", p)
	}

	close(release)
	waitQueue(t, q)

	if maxConcurrent != 2 {
		t.Errorf("expected max 2 concurrent jobs, got %d", maxConcurrent)
	}
}

func TestQueue_EvictsOldestFinished(t *testing.T) {
	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome {
		return okOutcome()
	}), zap.NewNop(), WithMaxRetained(2))

	var ids []string
	for i := 0; i < 4; i++ {
		id, _ := q.Submit(testBatch("x"))
		waitQueue(t, q)
		ids = append(ids, id)
	}

	for _, id := range ids[:2] {
		if _, err := q.Get(id); !errors.Is(err, apperrors.ErrNotFound) {
			t.Errorf("expected %s evicted, got %v", id, err)
		}
	}
	for _, id := range ids[2:] {
		if _, err := q.Get(id); err != nil {
			t.Errorf("expected %s retained, got %v", id, err)
		}
	}
	if got := len(q.GetJobs()); got != 2 {
		t.Errorf("expected 2 retained jobs, got %d", got)
	}
}

func TestQueue_CancelMarksPendingAndRejectsSubmit(t *testing.T) {
	started := make(chan struct{})
	q := New(RunnerFunc(func(ctx context.Context, _ models.Batch) models.Outcome {
		close(started)
		<-ctx.Done()
		return models.Outcome{Error: ctx.Err().Error()}
	}), zap.NewNop())

	running, _ := q.Submit(testBatch("1"))
	<-started
	pending, _ := q.Submit(testBatch("2"))

	q.Cancel()
	waitQueue(t, q)

	for _, id := range []string{running, pending} {
		snap, _ := q.Get(id)
		if snap.Status != JobStatusCancelled {
			t.Errorf("job %s: expected CANCELLED, got %s", id, snap.Status)
		}
	}
	if _, err := q.Submit(testBatch("3")); !errors.Is(err, ErrQueueClosed) {
		t.Errorf("expected ErrQueueClosed, got %v", err)
	}
}

func TestQueue_ShutdownWaitsForRunningJobs(t *testing.T) {
	var finished atomic.Bool
	q := New(RunnerFunc(func(ctx context.Context, _ models.Batch) models.Outcome {
		time.Sleep(30 * time.Millisecond)
		finished.Store(true)
		return okOutcome()
	}), zap.NewNop())

	q.Submit(testBatch("1"))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := q.Shutdown(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !finished.Load() {
		t.Error("shutdown returned before the running job finished")
	}
}

func TestQueue_OnUpdateCallback(t *testing.T) {
	var mu sync.Mutex
	var statuses []JobStatus

	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome { return okOutcome() }), zap.NewNop())
	q.SetOnUpdate(func(s JobSnapshot) {
		mu.Lock()
		statuses = append(statuses, s.Status)
		mu.Unlock()
	})

	q.Submit(testBatch("1"))
	waitQueue(t, q)

	mu.Lock()
	defer mu.Unlock()
	want := []JobStatus{JobStatusPending, JobStatusRunning, JobStatusDone}
	if len(statuses) != len(want) {
		t.Fatalf("expected %v, got %v", want, statuses)
	}
	for i := range want {
		if statuses[i] != want[i] {
			t.Errorf("update %d: expected %s, got %s", i, want[i], statuses[i])
		}
	}
}

func TestQueue_EmptyWait(t *testing.T) {
	q := New(RunnerFunc(func(context.Context, models.Batch) models.Outcome { return okOutcome() }), zap.NewNop())
	if err := q.Wait(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestProgress_Percentage(t *testing.T) {
	tests := []struct {
		progress Progress
		want     int
	}{
		{Progress{}, 100},
		{Progress{Total: 4, Done: 1, Failed: 1}, 50},
		{Progress{Total: 3, Running: 3}, 0},
		{Progress{Total: 2, Done: 1, Cancelled: 1}, 100},
	}
	for _, tt := range tests {
		if got := tt.progress.Percentage(); got != tt.want {
			t.Errorf("%+v: expected %d, got %d", tt.progress, tt.want, got)
		}
	}
}
