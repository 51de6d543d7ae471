// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about status evaluation, cache operations, and hub calls.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetEvaluationHooks(&myEvaluationHooks{})
//	    observability.SetCacheHooks(&myCacheHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Evaluation().OnBatchStart(ctx, batchID, len(resources))
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Evaluation Hooks
// =============================================================================

// EvaluationHooks receives events from library status evaluation.
type EvaluationHooks interface {
	// Batch events
	OnBatchStart(ctx context.Context, batchID string, resourceCount int)
	OnBatchCancelled(ctx context.Context, batchID string)

	// Per-resource events
	OnEvaluateComplete(ctx context.Context, resourceID string, inLibrary, updateAvailable bool, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// HTTP Hooks
// =============================================================================

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, path string, err error)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopEvaluationHooks is a no-op implementation of EvaluationHooks.
type NoopEvaluationHooks struct{}

func (NoopEvaluationHooks) OnBatchStart(context.Context, string, int)  {}
func (NoopEvaluationHooks) OnBatchCancelled(context.Context, string)   {}
func (NoopEvaluationHooks) OnEvaluateComplete(context.Context, string, bool, bool, time.Duration) {
}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, error)                 {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	evaluationHooks EvaluationHooks = NoopEvaluationHooks{}
	cacheHooks      CacheHooks      = NoopCacheHooks{}
	httpHooks       HTTPHooks       = NoopHTTPHooks{}
	hooksMu         sync.RWMutex
)

// SetEvaluationHooks registers custom evaluation hooks.
// This should be called once at application startup before any evaluation runs.
func SetEvaluationHooks(h EvaluationHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		evaluationHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers custom HTTP hooks.
// This should be called once at application startup before any hub calls.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Evaluation returns the registered evaluation hooks.
func Evaluation() EvaluationHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return evaluationHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	evaluationHooks = NoopEvaluationHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
