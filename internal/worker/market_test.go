package worker

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

type mockRefresher struct {
	callCount atomic.Int32
	err       error
}

func (m *mockRefresher) Refresh(_ context.Context) error {
	m.callCount.Add(1)
	return m.err
}

type mockRunRecorder struct {
	mu     sync.Mutex
	runs   map[string]int
	errors int
}

func (m *mockRunRecorder) WorkerRun(worker string, _ time.Duration, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runs == nil {
		m.runs = make(map[string]int)
	}
	m.runs[worker]++
	if err != nil {
		m.errors++
	}
}

func TestMarketWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockRefresher{}
	w := NewMarketWorker(mock, 50*time.Millisecond, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	// Should have run at least the initial refresh + some ticks
	if got := mock.callCount.Load(); got < 2 {
		t.Errorf("call count = %d, want >= 2", got)
	}
}

func TestMarketWorkerRecordsFailures(t *testing.T) {
	mock := &mockRefresher{err: errors.New("rate limited")}
	rec := &mockRunRecorder{}
	w := NewMarketWorker(mock, time.Hour, rec)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	rec.mu.Lock()
	defer rec.mu.Unlock()
	if rec.runs["MarketWorker"] != 1 || rec.errors != 1 {
		t.Errorf("runs = %v, errors = %d, want one failed run", rec.runs, rec.errors)
	}
}
