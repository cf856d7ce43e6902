// Package engine drives the periodic matching of open orders.
package engine

import (
	"context"
	"log/slog"
	"time"
)

// Executor matches open orders against current quotes and reports how many
// filled. The paper broker implements it.
type Executor interface {
	ExecuteOpenOrders(ctx context.Context) (int, error)
}

// Runner invokes an Executor on a fixed interval until its context is
// cancelled. Pass failures are logged and the loop continues; a quote
// outage must not stop the simulator.
type Runner struct {
	executor Executor
	interval time.Duration
	log      *slog.Logger
}

// NewRunner creates a Runner polling the executor every interval.
func NewRunner(executor Executor, interval time.Duration, log *slog.Logger) *Runner {
	return &Runner{
		executor: executor,
		interval: interval,
		log:      log.With("component", "engine"),
	}
}

// Run blocks, running one matching pass per tick, until ctx is cancelled.
func (r *Runner) Run(ctx context.Context) error {
	r.log.Info("execution loop started", "interval", r.interval)

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.log.Info("execution loop stopped")
			return ctx.Err()
		case <-ticker.C:
			filled, err := r.executor.ExecuteOpenOrders(ctx)
			if err != nil {
				r.log.Warn("execution pass failed", "error", err)
				continue
			}
			if filled > 0 {
				r.log.Info("execution pass complete", "fills", filled)
			}
		}
	}
}
