package store

import (
	"sync/atomic"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
)

// generations are unique across all stores so memo keys never collide.
var generations atomic.Uint64

func nextGen() uint64 {
	return generations.Add(1)
}

// Snapshot is an immutable view of all wallet state at a point in time.
// Maps and slices reachable from a Snapshot are shared with later snapshots
// and must not be modified by readers.
type Snapshot struct {
	Assets      Assets
	Market      Market
	Portfolio   Portfolio
	Validators  Validators
	Preferences Preferences
}

// Assets holds asset reference data.
type Assets struct {
	ByID map[string]domain.Asset
	IDs  []string
	gen  uint64
}

// Generation changes whenever the asset slice changes.
func (a Assets) Generation() uint64 { return a.gen }

// Precision returns the asset precision, or 0 for unknown assets.
func (a Assets) Precision(assetID string) int {
	return domain.OrZero(a.ByID, assetID).Precision
}

// Market holds the latest quote per asset.
type Market struct {
	ByAssetID map[string]domain.MarketData
	gen       uint64
}

// Generation changes whenever market data changes.
func (m Market) Generation() uint64 { return m.gen }

// Price returns the latest price, or zero when no quote is known.
func (m Market) Price(assetID string) decimal.Decimal {
	return domain.OrZero(m.ByAssetID, assetID).Price
}

// Portfolio is the normalized account and balance state.
type Portfolio struct {
	// Accounts and AccountIDs list accounts in the order they were first loaded.
	Accounts   map[domain.AccountSpecifier]domain.PortfolioAccount
	AccountIDs []domain.AccountSpecifier
	// AccountBalances maps account -> asset -> balance in base units.
	AccountBalances map[domain.AccountSpecifier]map[string]string
	// AccountAssetIDs keeps the per-account asset order of AccountBalances.
	AccountAssetIDs map[domain.AccountSpecifier][]string
	// AssetBalances sums AccountBalances across accounts.
	AssetBalances map[string]string
	AssetIDs      []string
	// AccountSpecifiers maps an account to the chain addresses it controls.
	AccountSpecifiers map[domain.AccountSpecifier][]string
	gen               uint64
}

// Generation changes whenever portfolio state changes.
func (p Portfolio) Generation() uint64 { return p.gen }

// Validators is validator reference data plus fetch status.
type Validators struct {
	ByAddress map[string]domain.Validator
	Addresses []string
	Status    domain.FetchStatus
	// Queries records the outcome of the last fetch per address.
	Queries map[string]QueryState
	gen     uint64
}

// QueryState is the fetch status of a single validator address.
type QueryState struct {
	Status domain.FetchStatus
	Error  *domain.FetchError
}

// Generation changes whenever validator data or status changes.
func (v Validators) Generation() uint64 { return v.gen }

// Preferences are user display preferences.
type Preferences struct {
	BalanceThreshold decimal.Decimal
	gen              uint64
}

// Generation changes whenever preferences change.
func (p Preferences) Generation() uint64 { return p.gen }

func emptySnapshot() *Snapshot {
	return &Snapshot{
		Assets:      Assets{gen: nextGen()},
		Market:      Market{gen: nextGen()},
		Portfolio:   Portfolio{gen: nextGen()},
		Validators:  Validators{Status: domain.FetchStatusIdle, gen: nextGen()},
		Preferences: Preferences{BalanceThreshold: decimal.Zero, gen: nextGen()},
	}
}
