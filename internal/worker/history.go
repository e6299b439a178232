package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/mtlprog/walletview/internal/history"
)

// SummaryGenerator defines the interface for generating daily summaries.
type SummaryGenerator interface {
	Generate(ctx context.Context, date time.Time) (history.Summary, error)
}

// AfterHistoryHook is called after each successful summary generation.
type AfterHistoryHook interface {
	Export(ctx context.Context, s history.Summary) error
}

// HistoryWorker periodically stores a portfolio summary for the current day.
type HistoryWorker struct {
	generator SummaryGenerator
	hook      AfterHistoryHook // optional
	loop      loop
	now       func() time.Time
}

// NewHistoryWorker creates a new HistoryWorker with an optional post-generation hook.
func NewHistoryWorker(generator SummaryGenerator, interval time.Duration, hook AfterHistoryHook, recorder RunRecorder) *HistoryWorker {
	return &HistoryWorker{
		generator: generator,
		hook:      hook,
		loop:      loop{name: "HistoryWorker", interval: interval, recorder: recorder},
		now:       time.Now,
	}
}

// Run starts the history worker loop. It blocks until the context is cancelled.
func (w *HistoryWorker) Run(ctx context.Context) {
	w.loop.run(ctx, w.generate)
}

func (w *HistoryWorker) generate(ctx context.Context) error {
	summary, err := w.generator.Generate(ctx, utcDate(w.now()))
	if errors.Is(err, history.ErrPortfolioNotLoaded) {
		slog.Info("HistoryWorker: portfolio not loaded yet, skipping")
		return nil
	}
	if err != nil {
		return err
	}
	w.runHook(ctx, summary)
	return nil
}

// runHook calls the post-generation hook if one is configured.
func (w *HistoryWorker) runHook(ctx context.Context, s history.Summary) {
	if w.hook == nil {
		return
	}
	if err := w.hook.Export(ctx, s); err != nil {
		slog.Error("HistoryWorker: export hook failed", "error", err)
	} else {
		slog.Info("HistoryWorker: export hook completed")
	}
}

// utcDate returns t's date normalized to midnight UTC.
func utcDate(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
