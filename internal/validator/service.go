// Package validator keeps validator reference data in the store fresh.
package validator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

const (
	// DefaultTTL is how long fetched validator data is served without refetching.
	DefaultTTL = 5 * time.Minute

	defaultConcurrency = 4
	fetchTimeout       = 30 * time.Second
	fetchErrorMessage  = "Error fetching validator data"
)

// Fetch outcomes reported to a Recorder.
const (
	OutcomeHit     = "hit"
	OutcomeFetched = "fetched"
	OutcomeError   = "error"
	OutcomeStale   = "stale"
)

// Source fetches validator data from a chain.
type Source interface {
	GetValidator(ctx context.Context, address string) (domain.Validator, error)
}

// Recorder observes fetch outcomes.
type Recorder interface {
	ValidatorFetch(outcome string)
}

// Service fetches validators on demand and writes them to the store.
type Service struct {
	source      Source
	store       *store.Store
	fresh       *cache.Cache
	group       singleflight.Group
	concurrency int
	recorder    Recorder

	mu      sync.Mutex
	seq     uint64
	latest  map[string]uint64
	tracked map[string]struct{}
}

// Option configures a Service.
type Option func(*Service)

// WithTTL sets the freshness window.
func WithTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.fresh = cache.New(ttl, 2*ttl)
		}
	}
}

// WithConcurrency bounds parallel fetches during Refresh.
func WithConcurrency(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithRecorder reports fetch outcomes.
func WithRecorder(r Recorder) Option {
	return func(s *Service) { s.recorder = r }
}

// NewService creates a validator Service.
func NewService(source Source, st *store.Store, opts ...Option) *Service {
	s := &Service{
		source:      source,
		store:       st,
		fresh:       cache.New(DefaultTTL, 2*DefaultTTL),
		concurrency: defaultConcurrency,
		latest:      make(map[string]uint64),
		tracked:     make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetValidator returns validator data, fetching it when the cached copy is
// missing or older than the TTL. Concurrent calls for one address share a fetch.
func (s *Service) GetValidator(ctx context.Context, address string) (domain.Validator, error) {
	if _, ok := s.fresh.Get(address); ok {
		if v, ok := s.store.Snapshot().Validators.ByAddress[address]; ok {
			s.record(OutcomeHit)
			return v, nil
		}
	}
	return s.fetchShared(ctx, address)
}

// fetchShared joins or starts the fetch for address. The fetch outlives the
// caller that started it; a cancelled caller stops waiting without failing
// the others.
func (s *Service) fetchShared(ctx context.Context, address string) (domain.Validator, error) {
	ch := s.group.DoChan(address, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetch(fetchCtx, address)
	})

	select {
	case <-ctx.Done():
		return domain.Validator{}, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return domain.Validator{}, res.Err
		}
		return res.Val.(domain.Validator), nil
	}
}

// fetch loads one validator. A response is applied only if no newer fetch for
// the same address started while it was in flight.
func (s *Service) fetch(ctx context.Context, address string) (domain.Validator, error) {
	token := s.begin(address)
	s.store.ApplyValidatorFetch(address, domain.FetchStatusLoading, nil, nil)

	v, err := s.source.GetValidator(ctx, address)

	if !s.isLatest(address, token) {
		s.record(OutcomeStale)
		slog.Debug("dropping stale validator response", "address", address)
		if err != nil {
			return domain.Validator{}, err
		}
		return v, nil
	}

	if err != nil {
		s.record(OutcomeError)
		slog.Warn("failed to fetch validator", "address", address, "error", err)
		fetchErr := &domain.FetchError{Message: fetchErrorMessage, Status: http.StatusInternalServerError}
		s.store.ApplyValidatorFetch(address, domain.FetchStatusError, fetchErr, nil)
		return domain.Validator{}, fmt.Errorf("fetching validator %s: %w", address, fetchErr)
	}

	if v.Address == "" {
		v.Address = address
	}
	s.store.ApplyValidatorFetch(address, domain.FetchStatusLoaded, nil, &v)
	s.fresh.SetDefault(address, token)
	s.record(OutcomeFetched)
	return v, nil
}

func (s *Service) begin(address string) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.latest[address] = s.seq
	s.tracked[address] = struct{}{}
	return s.seq
}

func (s *Service) isLatest(address string, token uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.latest[address] == token
}

// Invalidate marks an address stale. The next GetValidator starts a new fetch
// even if one is already in flight; the older response is then discarded.
func (s *Service) Invalidate(address string) {
	s.fresh.Delete(address)
	s.group.Forget(address)
}

// Tracked returns every address fetched so far, sorted.
func (s *Service) Tracked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, 0, len(s.tracked))
	for a := range s.tracked {
		out = append(out, a)
	}
	slices.Sort(out)
	return out
}

// Refresh refetches addresses regardless of freshness, at most
// WithConcurrency at a time. All addresses are attempted; the first error is returned.
func (s *Service) Refresh(ctx context.Context, addresses []string) error {
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for _, address := range addresses {
		g.Go(func() error {
			s.Invalidate(address)
			_, err := s.fetchShared(ctx, address)
			return err
		})
	}
	return g.Wait()
}

// Reconnected invalidates all cached data and refetches every tracked address.
func (s *Service) Reconnected(ctx context.Context) error {
	tracked := s.Tracked()
	slog.Info("refetching validators after reconnect", "count", len(tracked))
	s.fresh.Flush()
	return s.Refresh(ctx, tracked)
}

func (s *Service) record(outcome string) {
	if s.recorder != nil {
		s.recorder.ValidatorFetch(outcome)
	}
}
