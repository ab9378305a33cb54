package decision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rwalling/arbiter/pkg/types"
)

// ═══════════════════════════════════════════════════════════════════════════════
// STRATEGY EXECUTOR CONTRACT
// ═══════════════════════════════════════════════════════════════════════════════

// ErrNoExecutor is returned when a strategy has no registered executor.
var ErrNoExecutor = errors.New("no executor registered for strategy")

// Executor runs one fallback strategy against the situation described by
// the decision context. It reports whether the strategy succeeded, the
// observed latency in seconds, and an optional payload for the caller.
//
// The engine never invokes executors: it only recommends. The owning
// layer executes the recommendation and reports the outcome back to the
// performance tracker to close the learning loop.
type Executor func(ctx context.Context, dc types.DecisionContext) (success bool, latency float64, payload any, err error)

// ExecutionResult is one completed executor run.
type ExecutionResult struct {
	Strategy types.Strategy
	Success  bool
	Latency  time.Duration
	Payload  any
	Err      error
}

// ExecutorRegistry maps strategies to their executors. The registry is
// owned by the calling layer; safe for concurrent use.
type ExecutorRegistry struct {
	mu        sync.RWMutex
	executors map[types.Strategy]Executor
}

// NewExecutorRegistry creates an empty registry.
func NewExecutorRegistry() *ExecutorRegistry {
	return &ExecutorRegistry{
		executors: make(map[types.Strategy]Executor),
	}
}

// Register binds an executor to a strategy, replacing any previous
// binding. Unknown strategies and nil executors are rejected.
func (r *ExecutorRegistry) Register(strategy types.Strategy, fn Executor) error {
	if !strategy.Valid() {
		return fmt.Errorf("unknown strategy %q", strategy)
	}
	if fn == nil {
		return fmt.Errorf("nil executor for strategy %q", strategy)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[strategy] = fn
	return nil
}

// Get returns the executor bound to a strategy.
func (r *ExecutorRegistry) Get(strategy types.Strategy) (Executor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	fn, ok := r.executors[strategy]
	return fn, ok
}

// Registered returns the bound strategies in canonical order.
func (r *ExecutorRegistry) Registered() []types.Strategy {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Strategy, 0, len(r.executors))
	for _, s := range types.AllStrategies {
		if _, ok := r.executors[s]; ok {
			out = append(out, s)
		}
	}
	return out
}

// Execute looks up and runs the executor for a strategy. The reported
// latency is the executor's own measurement when it gives one, otherwise
// the observed wall time. A panicking executor is treated as a failed
// run, not a crashed caller.
func (r *ExecutorRegistry) Execute(ctx context.Context, strategy types.Strategy, dc types.DecisionContext) ExecutionResult {
	fn, ok := r.Get(strategy)
	if !ok {
		return ExecutionResult{
			Strategy: strategy,
			Err:      fmt.Errorf("%w: %s", ErrNoExecutor, strategy),
		}
	}

	result := ExecutionResult{Strategy: strategy}
	start := time.Now()

	func() {
		defer func() {
			if rec := recover(); rec != nil {
				result.Success = false
				result.Err = fmt.Errorf("executor for %s panicked: %v", strategy, rec)
			}
		}()
		var latency float64
		result.Success, latency, result.Payload, result.Err = fn(ctx, dc)
		if latency > 0 {
			result.Latency = time.Duration(latency * float64(time.Second))
		}
	}()

	if result.Latency <= 0 {
		result.Latency = time.Since(start)
	}
	return result
}
