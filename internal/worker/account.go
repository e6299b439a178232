package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

// AccountFetcher loads the balances and staking data of one account.
type AccountFetcher interface {
	FetchAccount(ctx context.Context, accountID domain.AccountSpecifier) (store.AccountUpdate, error)
}

// PortfolioWriter applies fetched accounts to the store.
type PortfolioWriter interface {
	UpsertPortfolio(updates ...store.AccountUpdate)
}

// ValidatorRefresher refreshes validator reference data.
type ValidatorRefresher interface {
	Refresh(ctx context.Context, addresses []string) error
}

// AccountWorker periodically reloads every configured account.
type AccountWorker struct {
	accounts    []domain.AccountSpecifier
	fetcher     AccountFetcher
	portfolio   PortfolioWriter
	validators  ValidatorRefresher // optional
	concurrency int
	onLoaded    func(ctx context.Context)
	loop        loop
}

// AccountOption configures an AccountWorker.
type AccountOption func(*AccountWorker)

// WithValidatorRefresh refreshes the validators referenced by staking data after each load.
func WithValidatorRefresh(v ValidatorRefresher) AccountOption {
	return func(w *AccountWorker) { w.validators = v }
}

// WithOnLoaded registers a callback run after accounts are written to the store.
func WithOnLoaded(fn func(ctx context.Context)) AccountOption {
	return func(w *AccountWorker) { w.onLoaded = fn }
}

// WithAccountConcurrency bounds the number of accounts fetched at once.
func WithAccountConcurrency(n int) AccountOption {
	return func(w *AccountWorker) {
		if n > 0 {
			w.concurrency = n
		}
	}
}

// WithAccountRecorder records each run.
func WithAccountRecorder(r RunRecorder) AccountOption {
	return func(w *AccountWorker) { w.loop.recorder = r }
}

// NewAccountWorker creates a new AccountWorker.
func NewAccountWorker(accounts []domain.AccountSpecifier, fetcher AccountFetcher, portfolio PortfolioWriter, interval time.Duration, opts ...AccountOption) *AccountWorker {
	w := &AccountWorker{
		accounts:    lo.Uniq(accounts),
		fetcher:     fetcher,
		portfolio:   portfolio,
		concurrency: 4,
		loop:        loop{name: "AccountWorker", interval: interval},
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Run starts the account worker loop. It blocks until the context is cancelled.
func (w *AccountWorker) Run(ctx context.Context) {
	w.loop.run(ctx, w.Load)
}

// Load fetches every account and writes the successful ones to the store in
// one update. Accounts that fail keep their previous data. An error is
// returned only when every account failed.
func (w *AccountWorker) Load(ctx context.Context) error {
	if len(w.accounts) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		updates []store.AccountUpdate
		errs    []error
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(w.concurrency)
	for _, id := range w.accounts {
		g.Go(func() error {
			update, err := w.fetcher.FetchAccount(gctx, id)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				slog.Warn("AccountWorker: failed to fetch account", "account", id, "error", err)
				errs = append(errs, fmt.Errorf("account %s: %w", id, err))
				return nil
			}
			updates = append(updates, update)
			return nil
		})
	}
	_ = g.Wait()

	if len(updates) == 0 {
		return fmt.Errorf("loading accounts: %w", errors.Join(errs...))
	}

	w.portfolio.UpsertPortfolio(updates...)
	slog.Info("AccountWorker: accounts loaded", "loaded", len(updates), "failed", len(errs))

	if w.validators != nil {
		if addrs := stakingValidators(updates); len(addrs) > 0 {
			if err := w.validators.Refresh(ctx, addrs); err != nil {
				slog.Warn("AccountWorker: validator refresh failed", "error", err)
			}
		}
	}

	if w.onLoaded != nil {
		w.onLoaded(ctx)
	}
	return nil
}

// stakingValidators returns the distinct validators referenced by the updates.
func stakingValidators(updates []store.AccountUpdate) []string {
	var addrs []string
	for _, u := range updates {
		if u.StakingData == nil {
			continue
		}
		addrs = append(addrs, lo.Map(u.StakingData.Delegations, func(d domain.Delegation, _ int) string { return d.Validator })...)
		addrs = append(addrs, lo.Map(u.StakingData.Undelegations, func(d domain.Undelegation, _ int) string { return d.Validator })...)
		addrs = append(addrs, lo.Map(u.StakingData.Rewards, func(r domain.ValidatorReward, _ int) string { return r.Validator })...)
	}
	return lo.Uniq(addrs)
}
