// Package workerpool runs independent engine calls with bounded parallelism.
package workerpool

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Config configures a Pool.
type Config struct {
	MaxConcurrent int // default: 4
}

// DefaultConfig returns the default pool settings.
func DefaultConfig() Config {
	return Config{MaxConcurrent: 4}
}

// Pool limits how many items of one Process call run at a time.
type Pool struct {
	config Config
	logger *zap.Logger
}

func New(config Config, logger *zap.Logger) *Pool {
	if config.MaxConcurrent < 1 {
		config.MaxConcurrent = DefaultConfig().MaxConcurrent
	}
	return &Pool{
		config: config,
		logger: logger.Named("worker-pool"),
	}
}

// Item is one unit of work.
type Item[T any] struct {
	ID      string
	Execute func(ctx context.Context) (T, error)
}

// Result is the outcome of one Item.
type Result[T any] struct {
	ID     string
	Result T
	Err    error
}

// Process executes every item and returns results in submission order.
// A failing item does not stop the others. Items that have not started when
// ctx is cancelled report ctx.Err().
func Process[T any](
	ctx context.Context,
	pool *Pool,
	items []Item[T],
	onProgress func(completed, total int),
) []Result[T] {
	if len(items) == 0 {
		return nil
	}

	results := make([]Result[T], len(items))
	done := make(chan struct{}, len(items))
	sem := make(chan struct{}, pool.config.MaxConcurrent)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item Item[T]) {
			defer wg.Done()
			defer func() { done <- struct{}{} }()

			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				results[i] = Result[T]{ID: item.ID, Err: ctx.Err()}
				return
			}

			value, err := item.Execute(ctx)
			if err != nil {
				pool.logger.Debug("work item failed", zap.String("id", item.ID), zap.Error(err))
			}
			results[i] = Result[T]{ID: item.ID, Result: value, Err: err}
		}(i, item)
	}

	go func() {
		wg.Wait()
		close(done)
	}()

	completed := 0
	for range done {
		completed++
		if onProgress != nil {
			onProgress(completed, len(items))
		}
	}
	return results
}
