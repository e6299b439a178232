package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/walletview/internal/history"
)

type mockSummaryGenerator struct {
	callCount atomic.Int32
	err       error
	lastDate  time.Time
}

func (m *mockSummaryGenerator) Generate(_ context.Context, date time.Time) (history.Summary, error) {
	m.callCount.Add(1)
	m.lastDate = date
	return history.Summary{TotalFiat: "1.00"}, m.err
}

type mockHook struct {
	callCount atomic.Int32
}

func (m *mockHook) Export(_ context.Context, _ history.Summary) error {
	m.callCount.Add(1)
	return nil
}

func TestHistoryWorkerRunsAndShutdown(t *testing.T) {
	mock := &mockSummaryGenerator{}
	hook := &mockHook{}
	w := NewHistoryWorker(mock, 50*time.Millisecond, hook, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	w.Run(ctx)

	if got := mock.callCount.Load(); got < 1 {
		t.Errorf("call count = %d, want >= 1", got)
	}
	if hook.callCount.Load() != mock.callCount.Load() {
		t.Errorf("hook calls = %d, generations = %d", hook.callCount.Load(), mock.callCount.Load())
	}
}

func TestHistoryWorkerGenerate(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantErr   bool
		wantHooks int32
	}{
		{"success", nil, false, 1},
		{"portfolio not loaded", history.ErrPortfolioNotLoaded, false, 0},
		{"repository failure", errors.New("db down"), true, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gen := &mockSummaryGenerator{err: tt.err}
			hook := &mockHook{}
			w := NewHistoryWorker(gen, time.Hour, hook, nil)
			w.now = func() time.Time { return time.Date(2026, 10, 19, 23, 59, 0, 0, time.FixedZone("UTC-3", -3*3600)) }

			err := w.generate(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if got := hook.callCount.Load(); got != tt.wantHooks {
				t.Errorf("hook calls = %d, want %d", got, tt.wantHooks)
			}
			if want := time.Date(2026, 10, 20, 0, 0, 0, 0, time.UTC); !gen.lastDate.Equal(want) {
				t.Errorf("date = %v, want %v", gen.lastDate, want)
			}
		})
	}
}
