package store

import (
	"maps"
	"slices"
	"sync"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
)

// Observer is notified after every committed update.
type Observer interface {
	StoreUpdated(op string)
}

// Option configures a Store.
type Option func(*Store)

// WithObserver registers an observer for committed updates.
func WithObserver(o Observer) Option {
	return func(s *Store) { s.observer = o }
}

// Store owns the current Snapshot. Updates are serialized and each one
// publishes a new Snapshot; readers never see a partially applied update.
type Store struct {
	mu       sync.RWMutex
	current  *Snapshot
	observer Observer

	subsMu  sync.Mutex
	subs    map[int]chan struct{}
	nextSub int
}

// New creates an empty Store.
func New(opts ...Option) *Store {
	s := &Store{
		current: emptySnapshot(),
		subs:    make(map[int]chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns the current immutable snapshot.
func (s *Store) Snapshot() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Subscribe returns a channel that receives a signal after updates. Signals are
// coalesced: a slow reader sees at least one pending signal, not one per update.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subs[id] = ch

	return ch, func() {
		s.subsMu.Lock()
		defer s.subsMu.Unlock()
		if c, ok := s.subs[id]; ok {
			delete(s.subs, id)
			close(c)
		}
	}
}

func (s *Store) update(op string, fn func(next *Snapshot)) {
	s.mu.Lock()
	next := *s.current
	fn(&next)
	s.current = &next
	s.mu.Unlock()

	s.notify()
	if s.observer != nil {
		s.observer.StoreUpdated(op)
	}
}

func (s *Store) notify() {
	s.subsMu.Lock()
	defer s.subsMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// UpsertAssets inserts or replaces asset reference data.
func (s *Store) UpsertAssets(assets ...domain.Asset) {
	s.update("upsertAssets", func(next *Snapshot) {
		byID := maps.Clone(next.Assets.ByID)
		if byID == nil {
			byID = make(map[string]domain.Asset, len(assets))
		}
		ids := slices.Clone(next.Assets.IDs)
		for _, a := range assets {
			if _, ok := byID[a.ID]; !ok {
				ids = append(ids, a.ID)
			}
			byID[a.ID] = a
		}
		next.Assets = Assets{ByID: byID, IDs: ids, gen: nextGen()}
	})
}

// UpsertMarketData merges quotes into the market slice.
func (s *Store) UpsertMarketData(data map[string]domain.MarketData) {
	s.update("upsertMarketData", func(next *Snapshot) {
		byID := maps.Clone(next.Market.ByAssetID)
		if byID == nil {
			byID = make(map[string]domain.MarketData, len(data))
		}
		maps.Copy(byID, data)
		next.Market = Market{ByAssetID: byID, gen: nextGen()}
	})
}

// Balance is an asset balance in base units.
type Balance struct {
	AssetID string `json:"assetId"`
	Amount  string `json:"amount"`
}

// AccountUpdate is the full state of one account as reported by a chain adapter.
type AccountUpdate struct {
	AccountID   domain.AccountSpecifier
	Addresses   []string
	Balances    []Balance
	StakingData *domain.StakingData
}

// UpsertPortfolio replaces the state of each updated account and recomputes
// the aggregated asset balances.
func (s *Store) UpsertPortfolio(updates ...AccountUpdate) {
	s.update("upsertPortfolio", func(next *Snapshot) {
		p := next.Portfolio.clone()
		for _, u := range updates {
			p.apply(u)
		}
		p.aggregate()
		p.gen = nextGen()
		next.Portfolio = p
	})
}

// RemoveAccount drops an account and its balances.
func (s *Store) RemoveAccount(accountID domain.AccountSpecifier) {
	s.update("removeAccount", func(next *Snapshot) {
		p := next.Portfolio.clone()
		delete(p.Accounts, accountID)
		delete(p.AccountBalances, accountID)
		delete(p.AccountAssetIDs, accountID)
		delete(p.AccountSpecifiers, accountID)
		p.AccountIDs = lo.Without(p.AccountIDs, accountID)
		p.aggregate()
		p.gen = nextGen()
		next.Portfolio = p
	})
}

// ClearPortfolio removes all accounts.
func (s *Store) ClearPortfolio() {
	s.update("clearPortfolio", func(next *Snapshot) {
		next.Portfolio = Portfolio{gen: nextGen()}
	})
}

// UpsertValidatorData inserts or replaces validators by address.
func (s *Store) UpsertValidatorData(validators ...domain.Validator) {
	s.update("upsertValidatorData", func(next *Snapshot) {
		v := next.Validators.clone()
		for _, val := range validators {
			if _, ok := v.ByAddress[val.Address]; !ok {
				v.Addresses = append(v.Addresses, val.Address)
			}
			v.ByAddress[val.Address] = val
		}
		v.gen = nextGen()
		next.Validators = v
	})
}

// SetValidatorStatus sets the overall validator fetch status.
func (s *Store) SetValidatorStatus(status domain.FetchStatus) {
	s.update("setValidatorStatus", func(next *Snapshot) {
		v := next.Validators.clone()
		v.Status = status
		v.gen = nextGen()
		next.Validators = v
	})
}

// SetValidatorQuery records the outcome of a fetch for a single address.
// Cached validator data for the address is left untouched.
func (s *Store) SetValidatorQuery(address string, status domain.FetchStatus, fetchErr *domain.FetchError) {
	s.update("setValidatorQuery", func(next *Snapshot) {
		v := next.Validators.clone()
		v.Queries[address] = QueryState{Status: status, Error: fetchErr}
		v.gen = nextGen()
		next.Validators = v
	})
}

// ApplyValidatorFetch records one fetch outcome as a single update: the
// validator data when v is non-nil, the query state for address and the
// overall status.
func (s *Store) ApplyValidatorFetch(address string, status domain.FetchStatus, fetchErr *domain.FetchError, v *domain.Validator) {
	s.update("applyValidatorFetch", func(next *Snapshot) {
		vals := next.Validators.clone()
		if v != nil {
			if _, ok := vals.ByAddress[v.Address]; !ok {
				vals.Addresses = append(vals.Addresses, v.Address)
			}
			vals.ByAddress[v.Address] = *v
		}
		vals.Queries[address] = QueryState{Status: status, Error: fetchErr}
		vals.Status = status
		vals.gen = nextGen()
		next.Validators = vals
	})
}

// ClearValidators resets validator data and status.
func (s *Store) ClearValidators() {
	s.update("clearValidators", func(next *Snapshot) {
		next.Validators = Validators{Status: domain.FetchStatusIdle, gen: nextGen()}
	})
}

// SetBalanceThreshold sets the fiat value below which balances are hidden.
func (s *Store) SetBalanceThreshold(threshold decimal.Decimal) {
	s.update("setBalanceThreshold", func(next *Snapshot) {
		next.Preferences = Preferences{BalanceThreshold: threshold, gen: nextGen()}
	})
}

func (p Portfolio) clone() Portfolio {
	out := Portfolio{
		Accounts:          maps.Clone(p.Accounts),
		AccountIDs:        slices.Clone(p.AccountIDs),
		AccountBalances:   maps.Clone(p.AccountBalances),
		AccountAssetIDs:   maps.Clone(p.AccountAssetIDs),
		AccountSpecifiers: maps.Clone(p.AccountSpecifiers),
	}
	if out.Accounts == nil {
		out.Accounts = make(map[domain.AccountSpecifier]domain.PortfolioAccount)
	}
	if out.AccountBalances == nil {
		out.AccountBalances = make(map[domain.AccountSpecifier]map[string]string)
	}
	if out.AccountAssetIDs == nil {
		out.AccountAssetIDs = make(map[domain.AccountSpecifier][]string)
	}
	if out.AccountSpecifiers == nil {
		out.AccountSpecifiers = make(map[domain.AccountSpecifier][]string)
	}
	return out
}

func (p *Portfolio) apply(u AccountUpdate) {
	balances := make(map[string]decimal.Decimal, len(u.Balances))
	var assetIDs []string
	for _, b := range u.Balances {
		if _, ok := balances[b.AssetID]; !ok {
			assetIDs = append(assetIDs, b.AssetID)
		}
		balances[b.AssetID] = balances[b.AssetID].Add(domain.SafeParse(b.Amount))
	}

	if _, ok := p.Accounts[u.AccountID]; !ok {
		p.AccountIDs = append(p.AccountIDs, u.AccountID)
	}
	p.Accounts[u.AccountID] = domain.PortfolioAccount{
		AssetIDs:    assetIDs,
		StakingData: normalizeStakingData(u.StakingData),
	}
	p.AccountBalances[u.AccountID] = lo.MapValues(balances, func(d decimal.Decimal, _ string) string {
		return d.String()
	})
	p.AccountAssetIDs[u.AccountID] = assetIDs
	if u.Addresses != nil {
		p.AccountSpecifiers[u.AccountID] = slices.Clone(u.Addresses)
	}
}

func (p *Portfolio) aggregate() {
	totals := make(map[string]decimal.Decimal)
	var assetIDs []string
	for _, accountID := range p.AccountIDs {
		balances := p.AccountBalances[accountID]
		for _, assetID := range p.AccountAssetIDs[accountID] {
			if _, ok := totals[assetID]; !ok {
				assetIDs = append(assetIDs, assetID)
			}
			totals[assetID] = totals[assetID].Add(domain.SafeParse(balances[assetID]))
		}
	}
	p.AssetBalances = lo.MapValues(totals, func(d decimal.Decimal, _ string) string {
		return d.String()
	})
	p.AssetIDs = assetIDs
}

func (v Validators) clone() Validators {
	out := Validators{
		ByAddress: maps.Clone(v.ByAddress),
		Addresses: slices.Clone(v.Addresses),
		Status:    v.Status,
		Queries:   maps.Clone(v.Queries),
	}
	if out.ByAddress == nil {
		out.ByAddress = make(map[string]domain.Validator)
	}
	if out.Queries == nil {
		out.Queries = make(map[string]QueryState)
	}
	return out
}
