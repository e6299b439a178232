package worker

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

type mockAccountFetcher struct {
	failing map[domain.AccountSpecifier]bool
	staking map[domain.AccountSpecifier]*domain.StakingData
}

func (m *mockAccountFetcher) FetchAccount(_ context.Context, id domain.AccountSpecifier) (store.AccountUpdate, error) {
	if m.failing[id] {
		return store.AccountUpdate{}, errors.New("lcd unavailable")
	}
	return store.AccountUpdate{
		AccountID:   id,
		Balances:    []store.Balance{{AssetID: id.FeeAssetID(), Amount: "1"}},
		StakingData: m.staking[id],
	}, nil
}

type mockPortfolio struct {
	mu      sync.Mutex
	calls   int
	updates []store.AccountUpdate
}

func (m *mockPortfolio) UpsertPortfolio(updates ...store.AccountUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.updates = append(m.updates, updates...)
}

type mockValidatorRefresher struct {
	addresses []string
}

func (m *mockValidatorRefresher) Refresh(_ context.Context, addresses []string) error {
	m.addresses = addresses
	return nil
}

const (
	cosmosAcc = domain.AccountSpecifier("cosmos:cosmoshub-4:cosmos1abc")
	osmoAcc   = domain.AccountSpecifier("cosmos:osmosis-1:osmo1abc")
	ethAcc    = domain.AccountSpecifier("eip155:1:0xabc")
)

func TestAccountWorkerLoad(t *testing.T) {
	fetcher := &mockAccountFetcher{
		failing: map[domain.AccountSpecifier]bool{ethAcc: true},
		staking: map[domain.AccountSpecifier]*domain.StakingData{
			cosmosAcc: {
				Delegations:   []domain.Delegation{{Validator: "val1", Amount: "5"}},
				Undelegations: []domain.Undelegation{{Validator: "val2"}},
				Rewards:       []domain.ValidatorReward{{Validator: "val1"}},
			},
		},
	}
	portfolio := &mockPortfolio{}
	validators := &mockValidatorRefresher{}
	loaded := false

	w := NewAccountWorker(
		[]domain.AccountSpecifier{cosmosAcc, osmoAcc, ethAcc, cosmosAcc},
		fetcher, portfolio, time.Hour,
		WithValidatorRefresh(validators),
		WithOnLoaded(func(context.Context) { loaded = true }),
		WithAccountConcurrency(2),
	)

	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if portfolio.calls != 1 {
		t.Errorf("upsert calls = %d, want a single batched update", portfolio.calls)
	}
	if len(portfolio.updates) != 2 {
		t.Errorf("updates = %d, want 2 (failed account skipped, duplicate removed)", len(portfolio.updates))
	}

	got := slices.Clone(validators.addresses)
	slices.Sort(got)
	if !slices.Equal(got, []string{"val1", "val2"}) {
		t.Errorf("refreshed validators = %v, want [val1 val2]", got)
	}
	if !loaded {
		t.Error("expected onLoaded callback")
	}
}

func TestAccountWorkerAllFailed(t *testing.T) {
	fetcher := &mockAccountFetcher{failing: map[domain.AccountSpecifier]bool{cosmosAcc: true}}
	portfolio := &mockPortfolio{}
	w := NewAccountWorker([]domain.AccountSpecifier{cosmosAcc}, fetcher, portfolio, time.Hour)

	if err := w.Load(context.Background()); err == nil {
		t.Fatal("expected error when every account fails")
	}
	if portfolio.calls != 0 {
		t.Errorf("upsert calls = %d, want 0", portfolio.calls)
	}
}

func TestAccountWorkerNoAccounts(t *testing.T) {
	portfolio := &mockPortfolio{}
	w := NewAccountWorker(nil, &mockAccountFetcher{}, portfolio, time.Hour)

	if err := w.Load(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if portfolio.calls != 0 {
		t.Errorf("upsert calls = %d, want 0", portfolio.calls)
	}
}
