package library

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/rednhax/varman/pkg/observability"
)

// Scheduler defaults. The concurrency limit deliberately sits below the
// hub client's outbound ceiling so user-triggered requests keep headroom.
const (
	DefaultConcurrency  = 2
	DefaultInitialDelay = 500 * time.Millisecond
)

// Result is one published evaluation outcome. Results stream in
// completion order, not input order; consumers must treat each result
// independently.
type Result struct {
	Resource *Resource
	Status   Status
	BatchID  string
}

// Scheduler runs the evaluator over batches of resources with bounded
// parallelism, a cancellable initial delay, and streaming publication.
//
// A scheduler serves one consumer: starting a new batch supersedes and
// cancels any batch still in flight. In-flight evaluations notice the
// cancellation between file-level checks and publish nothing for the
// affected resources.
type Scheduler struct {
	Evaluator    *Evaluator
	Concurrency  int           // 0 means DefaultConcurrency
	InitialDelay time.Duration // 0 means DefaultInitialDelay; use a negative value for none
	Logger       *log.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Schedule starts evaluating resources and returns the result stream.
// The channel is closed once every non-cancelled evaluation has been
// published. Any prior batch is cancelled first.
func (s *Scheduler) Schedule(ctx context.Context, resources []*Resource) <-chan Result {
	limit := s.Concurrency
	if limit <= 0 {
		limit = DefaultConcurrency
	}
	delay := s.InitialDelay
	if delay == 0 {
		delay = DefaultInitialDelay
	}

	ctx = s.supersede(ctx)
	batchID := uuid.NewString()
	results := make(chan Result)

	go func() {
		defer close(results)

		// Let higher-priority work (image loads, user requests) start
		// first. The delay itself is cancellable.
		if delay > 0 {
			select {
			case <-ctx.Done():
				observability.Evaluation().OnBatchCancelled(ctx, batchID)
				return
			case <-time.After(delay):
			}
		}

		s.logf("evaluating %d resources (batch %s)", len(resources), batchID)
		observability.Evaluation().OnBatchStart(ctx, batchID, len(resources))

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)

		for _, res := range resources {
			g.Go(func() error {
				start := time.Now()
				status, err := s.Evaluator.Evaluate(gctx, res)
				if err != nil {
					// Cancelled mid-evaluation: publish nothing.
					return nil
				}
				observability.Evaluation().OnEvaluateComplete(gctx, res.ID, status.InLibrary, status.UpdateAvailable, time.Since(start))
				select {
				case results <- Result{Resource: res, Status: status, BatchID: batchID}:
				case <-gctx.Done():
				}
				return nil
			})
		}

		_ = g.Wait()
		if ctx.Err() != nil {
			observability.Evaluation().OnBatchCancelled(ctx, batchID)
		}
	}()

	return results
}

// Cancel stops the current batch, if any.
func (s *Scheduler) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}

// supersede cancels the previous batch and registers a fresh cancel func
// derived from ctx.
func (s *Scheduler) supersede(ctx context.Context) context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		s.cancel()
	}
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	return ctx
}

func (s *Scheduler) logf(format string, args ...any) {
	if s.Logger != nil {
		s.Logger.Debugf(format, args...)
	}
}
