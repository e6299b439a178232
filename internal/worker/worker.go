// Package worker runs the periodic background jobs that keep the store and
// the history table current.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// RunRecorder observes worker runs.
type RunRecorder interface {
	WorkerRun(worker string, d time.Duration, err error)
}

type loop struct {
	name     string
	interval time.Duration
	recorder RunRecorder // optional
}

// run calls fn immediately, then on every tick until ctx is cancelled.
func (l loop) run(ctx context.Context, fn func(ctx context.Context) error) {
	slog.Info(l.name + ": starting")

	l.once(ctx, fn, "initial ")

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info(l.name + ": shutting down")
			return
		case <-ticker.C:
			l.once(ctx, fn, "")
		}
	}
}

func (l loop) once(ctx context.Context, fn func(ctx context.Context) error, prefix string) {
	start := time.Now()
	err := fn(ctx)
	if l.recorder != nil {
		l.recorder.WorkerRun(l.name, time.Since(start), err)
	}
	if err != nil {
		slog.Error(l.name+": "+prefix+"run failed", "error", err)
		return
	}
	slog.Info(l.name+": "+prefix+"run completed", "duration", time.Since(start))
}
