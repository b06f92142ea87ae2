// Package tasks runs detached side effects: work that is triggered by a
// lifecycle transition but must never block or fail it. Failures are logged
// and independently retryable through their own entry points.
package tasks

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const defaultTimeout = 30 * time.Second

type Runner struct {
	logger  *slog.Logger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewRunner(logger *slog.Logger) *Runner {
	return &Runner{logger: logger, timeout: defaultTimeout}
}

// Go spawns fn on its own goroutine with a bounded context. The task's error
// or panic is logged under name; nothing propagates to the caller.
func (r *Runner) Go(name string, fn func(context.Context) error) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				r.logger.Error("detached task panicked", "task", name, "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()

		if err := fn(ctx); err != nil {
			r.logger.Error("detached task failed", "task", name, "error", err)
		}
	}()
}

// Wait blocks until all in-flight tasks finish; called during shutdown.
func (r *Runner) Wait() {
	r.wg.Wait()
}
