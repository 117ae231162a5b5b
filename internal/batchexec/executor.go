// Package batchexec implements the bounded-concurrency batch work executor described
// in spec.md §4.1: split a work stream into fixed-size batches, run up to max_workers
// batches concurrently, retry transient failures with exponential backoff, and support
// cooperative shutdown.
package batchexec

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/spicehq/ethereum-etl/internal/etlerrors"
)

// BatchFunc processes one batch of work units on the worker identified by workerID.
// The work items passed in are always a slice (callers vectorize on their own, per
// spec.md §4.1).
type BatchFunc func(ctx context.Context, workerID int, items []interface{}) error

// Executor schedules fixed-size batches across a bounded worker pool.
type Executor struct {
	BatchSize  int
	MaxWorkers int
	MaxRetries int
	BaseDelay  time.Duration

	mu       sync.Mutex
	shutdown bool
}

func New(batchSize, maxWorkers int) *Executor {
	return &Executor{
		BatchSize:  batchSize,
		MaxWorkers: maxWorkers,
		MaxRetries: 5,
		BaseDelay:  200 * time.Millisecond,
	}
}

// Execute splits work into batches of up to BatchSize and dispatches them to fn across
// MaxWorkers goroutines. It blocks until every batch has completed or one has failed
// permanently, returning the first permanent failure (subsequent batches still in
// flight are allowed to finish; no new batches are submitted).
func (e *Executor) Execute(ctx context.Context, work []interface{}, fn BatchFunc) error {
	batches := chunk(work, e.BatchSize)
	if len(batches) == 0 {
		return nil
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sem := make(chan int, e.MaxWorkers)
	for i := 0; i < e.MaxWorkers; i++ {
		sem <- i
	}

	var (
		wg      sync.WaitGroup
		errOnce sync.Once
		firstErr error
	)

	for _, batch := range batches {
		e.mu.Lock()
		down := e.shutdown
		e.mu.Unlock()
		if down || ctx.Err() != nil {
			break
		}

		workerID := <-sem
		wg.Add(1)
		go func(workerID int, batch []interface{}) {
			defer wg.Done()
			defer func() { sem <- workerID }()

			if err := e.runWithRetry(ctx, workerID, batch, fn); err != nil {
				errOnce.Do(func() {
					firstErr = err
					cancel()
				})
			}
		}(workerID, batch)
	}

	wg.Wait()
	return firstErr
}

// Shutdown drains in-flight batches and rejects further submissions. In-flight batches
// observe cancellation only at their next suspension point (spec.md §4.1).
func (e *Executor) Shutdown() {
	e.mu.Lock()
	e.shutdown = true
	e.mu.Unlock()
}

func (e *Executor) runWithRetry(ctx context.Context, workerID int, batch []interface{}, fn BatchFunc) error {
	var lastErr error
	delay := e.BaseDelay
	for attempt := 0; attempt <= e.MaxRetries; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		err := fn(ctx, workerID, batch)
		if err == nil {
			return nil
		}
		lastErr = err

		var transient *etlerrors.Transient
		if !isTransient(err, &transient) {
			return err
		}

		if attempt == e.MaxRetries {
			break
		}
		log.Warn().Int("worker", workerID).Int("attempt", attempt+1).Err(err).Msg("retrying batch after transient failure")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay *= 2
	}
	return lastErr
}

func isTransient(err error, target **etlerrors.Transient) bool {
	for err != nil {
		if t, ok := err.(*etlerrors.Transient); ok {
			*target = t
			return true
		}
		unwrapper, ok := err.(interface{ Unwrap() error })
		if !ok {
			return false
		}
		err = unwrapper.Unwrap()
	}
	return false
}

func chunk(items []interface{}, size int) [][]interface{} {
	if size <= 0 {
		size = 1
	}
	var out [][]interface{}
	for i := 0; i < len(items); i += size {
		end := i + size
		if end > len(items) {
			end = len(items)
		}
		out = append(out, items[i:end])
	}
	return out
}
