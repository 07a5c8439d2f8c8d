package batch

import (
	"context"
	"sync"
	"time"

	"github.com/fincore/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrAlreadyRunning is returned when Run is called while a previous run has
// not finished.
var ErrAlreadyRunning = shared.ErrAlreadyRunning

// Processor handles a single item. A non-nil error triggers the retry policy;
// once retries are exhausted the item counts as failed and the run continues.
type Processor[T, R any] func(ctx context.Context, item T) (R, error)

// Options holds the executor's tuning parameters
type Options struct {
	// BatchSize is how many items form one batch (default 50)
	BatchSize int

	// Concurrency is the number of workers per batch (default 5)
	Concurrency int

	// RetryCount is how many times a failed item is retried (default 3).
	// An item is attempted at most RetryCount+1 times.
	RetryCount int

	// RetryDelay is the flat pause between attempts (default 1s)
	RetryDelay time.Duration
}

// DefaultOptions returns the default executor options
func DefaultOptions() Options {
	return Options{
		BatchSize:   50,
		Concurrency: 5,
		RetryCount:  3,
		RetryDelay:  time.Second,
	}
}

func (o Options) normalized() Options {
	if o.BatchSize < 1 {
		o.BatchSize = 50
	}
	if o.Concurrency < 1 {
		o.Concurrency = 5
	}
	if o.RetryCount < 0 {
		o.RetryCount = 0
	}
	if o.RetryDelay <= 0 {
		o.RetryDelay = time.Second
	}
	return o
}

// Hooks are the executor's progress callbacks. All fields are optional.
// Item and batch hooks are invoked from a single goroutine at a time, so
// implementations may mutate shared state without their own locking.
type Hooks[T, R any] struct {
	OnStart      func(total int)
	OnBatchStart func(batchIndex, size int)
	OnItemDone   func(item T, result R)
	OnItemError  func(item T, err error)
	OnBatchDone  func(batchIndex, processed int)
	OnProgress   func(processed, total int)
	OnComplete   func(processed int)
	OnCancelled  func(processed int)
}

// Summary reports what a run did. Results holds the value each successful
// item produced and Errors the terminal error of each failed item, both in
// completion order.
type Summary[R any] struct {
	Total     int
	Processed int
	Succeeded int
	Failed    int
	Cancelled bool
	Results   []R
	Errors    []error
}

// Executor processes a slice of items in bounded batches with a bounded
// worker count and per-item retries. A single executor runs at most one
// job at a time.
type Executor[T, R any] struct {
	opts   Options
	logger *zap.Logger

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
}

// NewExecutor creates a batch executor
func NewExecutor[T, R any](opts Options, logger *zap.Logger) *Executor[T, R] {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor[T, R]{opts: opts.normalized(), logger: logger}
}

// Cancel requests cooperative cancellation of the in-flight run. In-flight
// items finish; remaining items are not started.
func (e *Executor[T, R]) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}

// IsRunning reports whether a run is in flight
func (e *Executor[T, R]) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Run processes items in batches of Options.BatchSize, each batch in chunks
// of Options.Concurrency parallel goroutines; a chunk settles fully before
// the next one starts. It returns ErrAlreadyRunning if a run is already in
// flight. Cancellation, via ctx or Cancel, stops the run between chunks and
// batches and yields a partial Summary with Cancelled set.
func (e *Executor[T, R]) Run(ctx context.Context, items []T, process Processor[T, R], hooks Hooks[T, R]) (*Summary[R], error) {
	if process == nil {
		return nil, shared.NewDomainError("INVALID_PROCESSOR", "A processor function is required")
	}

	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	e.running = true
	e.cancel = cancel
	e.mu.Unlock()

	defer func() {
		cancel()
		e.mu.Lock()
		e.running = false
		e.cancel = nil
		e.mu.Unlock()
	}()

	summary := &Summary[R]{Total: len(items)}
	if hooks.OnStart != nil {
		hooks.OnStart(summary.Total)
	}
	if len(items) == 0 {
		if hooks.OnComplete != nil {
			hooks.OnComplete(0)
		}
		return summary, nil
	}

	e.logger.Info("batch run started",
		zap.Int("total", summary.Total),
		zap.Int("batch_size", e.opts.BatchSize),
		zap.Int("concurrency", e.opts.Concurrency),
	)

	for start := 0; start < len(items); start += e.opts.BatchSize {
		if runCtx.Err() != nil {
			break
		}

		end := start + e.opts.BatchSize
		if end > len(items) {
			end = len(items)
		}
		batchIndex := start / e.opts.BatchSize
		if hooks.OnBatchStart != nil {
			hooks.OnBatchStart(batchIndex, end-start)
		}

		e.runBatch(runCtx, items[start:end], process, hooks, summary)

		if hooks.OnBatchDone != nil {
			hooks.OnBatchDone(batchIndex, summary.Processed)
		}
		if hooks.OnProgress != nil {
			hooks.OnProgress(summary.Processed, summary.Total)
		}
	}

	if runCtx.Err() != nil {
		summary.Cancelled = true
		e.logger.Info("batch run cancelled", zap.Int("processed", summary.Processed))
		if hooks.OnCancelled != nil {
			hooks.OnCancelled(summary.Processed)
		}
		return summary, nil
	}

	e.logger.Info("batch run complete",
		zap.Int("processed", summary.Processed),
		zap.Int("failed", summary.Failed),
	)
	if hooks.OnComplete != nil {
		hooks.OnComplete(summary.Processed)
	}
	return summary, nil
}

// runBatch processes one batch chunk by chunk: up to Concurrency items run
// in parallel and a chunk settles fully before the next one starts. Hook
// calls and summary updates are serialized under a mutex.
func (e *Executor[T, R]) runBatch(ctx context.Context, batch []T, process Processor[T, R], hooks Hooks[T, R], summary *Summary[R]) {
	var mu sync.Mutex

	for start := 0; start < len(batch); start += e.opts.Concurrency {
		if ctx.Err() != nil {
			return
		}

		end := start + e.opts.Concurrency
		if end > len(batch) {
			end = len(batch)
		}

		var wg sync.WaitGroup
		for _, item := range batch[start:end] {
			item := item
			wg.Add(1)
			go func() {
				defer wg.Done()
				result, err := e.processWithRetry(ctx, item, process)

				mu.Lock()
				defer mu.Unlock()
				summary.Processed++
				if err != nil {
					summary.Failed++
					summary.Errors = append(summary.Errors, err)
					if hooks.OnItemError != nil {
						hooks.OnItemError(item, err)
					}
					return
				}
				summary.Succeeded++
				summary.Results = append(summary.Results, result)
				if hooks.OnItemDone != nil {
					hooks.OnItemDone(item, result)
				}
			}()
		}
		wg.Wait()
	}
}

// processWithRetry attempts an item up to RetryCount+1 times with a flat
// delay between attempts. Context errors abort immediately and are not
// retried.
func (e *Executor[T, R]) processWithRetry(ctx context.Context, item T, process Processor[T, R]) (R, error) {
	var (
		result R
		err    error
	)

	for attempt := 0; attempt <= e.opts.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return result, ctx.Err()
			case <-time.After(e.opts.RetryDelay):
			}
		}

		result, err = process(ctx, item)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return result, err
		}
		e.logger.Debug("item attempt failed",
			zap.Int("attempt", attempt+1),
			zap.Error(err),
		)
	}
	return result, err
}
