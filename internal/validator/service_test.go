package validator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

const addr = "cosmosvaloper1abc"

type mockSource struct {
	calls atomic.Int32
	fn    func(n int32, address string) (domain.Validator, error)
}

func (m *mockSource) GetValidator(_ context.Context, address string) (domain.Validator, error) {
	n := m.calls.Add(1)
	if m.fn != nil {
		return m.fn(n, address)
	}
	return domain.Validator{Address: address, Moniker: "moniker"}, nil
}

type mockRecorder struct {
	mu       sync.Mutex
	outcomes map[string]int
}

func (m *mockRecorder) ValidatorFetch(outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.outcomes == nil {
		m.outcomes = map[string]int{}
	}
	m.outcomes[outcome]++
}

func (m *mockRecorder) count(outcome string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.outcomes[outcome]
}

func TestGetValidatorFetchesAndCaches(t *testing.T) {
	src := &mockSource{}
	rec := &mockRecorder{}
	st := store.New()
	svc := NewService(src, st, WithRecorder(rec))
	ctx := context.Background()

	v, err := svc.GetValidator(ctx, addr)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.Moniker != "moniker" {
		t.Errorf("moniker = %q", v.Moniker)
	}
	if _, err := svc.GetValidator(ctx, addr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
	if rec.count(OutcomeHit) != 1 || rec.count(OutcomeFetched) != 1 {
		t.Errorf("outcomes = %v", rec.outcomes)
	}

	snap := st.Snapshot()
	if snap.Validators.Status != domain.FetchStatusLoaded {
		t.Errorf("status = %q, want loaded", snap.Validators.Status)
	}
	if q := snap.Validators.Queries[addr]; q.Status != domain.FetchStatusLoaded || q.Error != nil {
		t.Errorf("query = %+v", q)
	}
	if snap.Validators.ByAddress[addr].Moniker != "moniker" {
		t.Error("validator not written to store")
	}
}

func TestGetValidatorRefetchesAfterTTL(t *testing.T) {
	src := &mockSource{}
	svc := NewService(src, store.New(), WithTTL(20*time.Millisecond))
	ctx := context.Background()

	svc.GetValidator(ctx, addr)
	time.Sleep(40 * time.Millisecond)
	svc.GetValidator(ctx, addr)

	if got := src.calls.Load(); got != 2 {
		t.Errorf("source calls = %d, want 2", got)
	}
}

func TestGetValidatorErrorKeepsCachedData(t *testing.T) {
	src := &mockSource{fn: func(n int32, address string) (domain.Validator, error) {
		if n == 1 {
			return domain.Validator{Address: address, Moniker: "cached"}, nil
		}
		return domain.Validator{}, errors.New("lcd unavailable")
	}}
	st := store.New()
	svc := NewService(src, st)
	ctx := context.Background()

	if _, err := svc.GetValidator(ctx, addr); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	svc.Invalidate(addr)
	_, err := svc.GetValidator(ctx, addr)

	var fetchErr *domain.FetchError
	if !errors.As(err, &fetchErr) {
		t.Fatalf("error = %v, want *domain.FetchError", err)
	}
	if fetchErr.Message != "Error fetching validator data" || fetchErr.Status != 500 {
		t.Errorf("fetch error = %+v", fetchErr)
	}

	snap := st.Snapshot()
	if snap.Validators.Status != domain.FetchStatusError {
		t.Errorf("status = %q, want error", snap.Validators.Status)
	}
	if q := snap.Validators.Queries[addr]; q.Error == nil || q.Status != domain.FetchStatusError {
		t.Errorf("query = %+v", q)
	}
	if snap.Validators.ByAddress[addr].Moniker != "cached" {
		t.Error("failed fetch removed cached validator data")
	}
}

func TestConcurrentRequestsShareOneFetch(t *testing.T) {
	release := make(chan struct{})
	src := &mockSource{fn: func(n int32, address string) (domain.Validator, error) {
		<-release
		return domain.Validator{Address: address}, nil
	}}
	svc := NewService(src, store.New())

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := svc.GetValidator(context.Background(), addr); err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := src.calls.Load(); got != 1 {
		t.Errorf("source calls = %d, want 1", got)
	}
}

// blockingSource waits for release and fails if its context ends first.
type blockingSource struct {
	started chan struct{}
	release chan struct{}
}

func (b *blockingSource) GetValidator(ctx context.Context, address string) (domain.Validator, error) {
	close(b.started)
	select {
	case <-ctx.Done():
		return domain.Validator{}, ctx.Err()
	case <-b.release:
		return domain.Validator{Address: address, Moniker: "moniker"}, nil
	}
}

func TestCancelledCallerDoesNotFailSharedFetch(t *testing.T) {
	src := &blockingSource{started: make(chan struct{}), release: make(chan struct{})}
	st := store.New()
	svc := NewService(src, st)

	firstCtx, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := svc.GetValidator(firstCtx, addr)
		firstErr <- err
	}()
	<-src.started

	type result struct {
		v   domain.Validator
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := svc.GetValidator(context.Background(), addr)
		second <- result{v, err}
	}()
	time.Sleep(20 * time.Millisecond)

	cancel()
	if err := <-firstErr; !errors.Is(err, context.Canceled) {
		t.Errorf("first caller error = %v, want context.Canceled", err)
	}

	close(src.release)
	res := <-second
	if res.err != nil || res.v.Moniker != "moniker" {
		t.Fatalf("second caller = %+v, %v", res.v, res.err)
	}

	q := st.Snapshot().Validators.Queries[addr]
	if q.Status != domain.FetchStatusLoaded || q.Error != nil {
		t.Errorf("query = %+v, want loaded", q)
	}
}

func TestStaleResponseIsDropped(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	src := &mockSource{fn: func(n int32, address string) (domain.Validator, error) {
		if n == 1 {
			close(started)
			<-release
			return domain.Validator{Address: address, Moniker: "old"}, nil
		}
		return domain.Validator{Address: address, Moniker: "new"}, nil
	}}
	rec := &mockRecorder{}
	st := store.New()
	svc := NewService(src, st, WithRecorder(rec))
	ctx := context.Background()

	done := make(chan struct{})
	go func() {
		defer close(done)
		svc.GetValidator(ctx, addr)
	}()
	<-started

	svc.Invalidate(addr)
	v, err := svc.GetValidator(ctx, addr)
	if err != nil || v.Moniker != "new" {
		t.Fatalf("second fetch = %+v, %v", v, err)
	}

	close(release)
	<-done

	if got := st.Snapshot().Validators.ByAddress[addr].Moniker; got != "new" {
		t.Errorf("store moniker = %q, want new", got)
	}
	if rec.count(OutcomeStale) != 1 {
		t.Errorf("stale outcomes = %d, want 1", rec.count(OutcomeStale))
	}
}

func TestRefreshFetchesAllAddresses(t *testing.T) {
	src := &mockSource{fn: func(n int32, address string) (domain.Validator, error) {
		if address == "bad" {
			return domain.Validator{}, errors.New("boom")
		}
		return domain.Validator{Address: address}, nil
	}}
	st := store.New()
	svc := NewService(src, st, WithConcurrency(2))

	err := svc.Refresh(context.Background(), []string{"a", "b", "bad", "c"})
	if err == nil {
		t.Fatal("expected error from failing address")
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("source calls = %d, want 4", got)
	}
	if n := len(st.Snapshot().Validators.ByAddress); n != 3 {
		t.Errorf("validators in store = %d, want 3", n)
	}
}

func TestReconnectedRefetchesTracked(t *testing.T) {
	src := &mockSource{}
	svc := NewService(src, store.New())
	ctx := context.Background()

	svc.GetValidator(ctx, "a")
	svc.GetValidator(ctx, "b")
	if got := svc.Tracked(); len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Fatalf("tracked = %v", got)
	}

	if err := svc.Reconnected(ctx); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := src.calls.Load(); got != 4 {
		t.Errorf("source calls = %d, want 4", got)
	}

	// fresh again after the refetch
	svc.GetValidator(ctx, "a")
	if got := src.calls.Load(); got != 4 {
		t.Errorf("source calls = %d, want 4", got)
	}
}
