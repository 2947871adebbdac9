package workqueue

import "sync"

// ConcurrencyStrategy controls how many jobs may run at once.
type ConcurrencyStrategy interface {
	// CanStart returns true if another job can start given current state.
	CanStart() bool
	// OnStart is called when a job starts.
	OnStart()
	// OnComplete is called when a job finishes.
	OnComplete()
}

// ThrottledStrategy allows up to maxConcurrent jobs to run in parallel.
// Each job holds its own engine session and oracle budget, so the limit
// bounds both.
type ThrottledStrategy struct {
	mu            sync.Mutex
	maxConcurrent int
	running       int
}

// NewThrottledStrategy creates a strategy allowing up to maxConcurrent jobs.
func NewThrottledStrategy(maxConcurrent int) *ThrottledStrategy {
	if maxConcurrent < 1 {
		maxConcurrent = 1
	}
	return &ThrottledStrategy{maxConcurrent: maxConcurrent}
}

func (s *ThrottledStrategy) CanStart() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running < s.maxConcurrent
}

func (s *ThrottledStrategy) OnStart() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running++
}

func (s *ThrottledStrategy) OnComplete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running > 0 {
		s.running--
	}
}

// NewSerializedStrategy returns a strategy that runs one job at a time.
func NewSerializedStrategy() *ThrottledStrategy {
	return NewThrottledStrategy(1)
}
