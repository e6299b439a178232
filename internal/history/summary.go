package history

import (
	"context"
	"time"

	"github.com/samber/lo"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/selector"
	"github.com/mtlprog/walletview/internal/store"
)

// Summary is a point-in-time record of the portfolio's derived values.
type Summary struct {
	GeneratedAt              time.Time                          `json:"generatedAt"`
	TotalFiat                string                             `json:"totalFiat"`
	TotalFiatWithDelegations string                             `json:"totalFiatWithDelegations"`
	DelegationFiat           string                             `json:"delegationFiat"`
	AccountCount             int                                `json:"accountCount"`
	Assets                   []AssetSummary                     `json:"assets"`
	Accounts                 map[domain.AccountSpecifier]string `json:"accounts"`
	Staking                  []StakingSummary                   `json:"staking,omitempty"`
}

// AssetSummary is one asset row of a Summary.
type AssetSummary struct {
	AssetID      string  `json:"assetId"`
	Symbol       string  `json:"symbol"`
	CryptoAmount string  `json:"cryptoAmount"`
	FiatAmount   string  `json:"fiatAmount"`
	Allocation   float64 `json:"allocation"`
	Price        string  `json:"price"`
	PriceChange  float64 `json:"priceChange"`
}

// StakingSummary is the staked value of one account in its fee asset.
type StakingSummary struct {
	AccountID     domain.AccountSpecifier `json:"accountId"`
	AssetID       string                  `json:"assetId"`
	TotalFiat     string                  `json:"totalFiat"`
	Validators    int                     `json:"validators"`
	ActiveStaking bool                    `json:"activeStaking"`
}

// Build derives a Summary from a snapshot. Assets are ordered by descending fiat value.
func Build(sel *selector.Selectors, snap *store.Snapshot, now time.Time) Summary {
	rows := lo.SliceToMap(sel.PortfolioAccountRows(snap), func(r selector.AccountRow) (string, selector.AccountRow) {
		return r.AssetID, r
	})
	assets := lo.FilterMap(sel.PortfolioAssetIDsSortedFiat(snap), func(id string, _ int) (AssetSummary, bool) {
		r, ok := rows[id]
		return AssetSummary{
			AssetID:      r.AssetID,
			Symbol:       r.Symbol,
			CryptoAmount: r.CryptoAmount,
			FiatAmount:   r.FiatAmount,
			Allocation:   r.Allocation,
			Price:        r.Price,
			PriceChange:  r.PriceChange,
		}, ok
	})

	return Summary{
		GeneratedAt:              now.UTC(),
		TotalFiat:                sel.PortfolioTotalFiatBalance(snap),
		TotalFiatWithDelegations: sel.PortfolioTotalFiatBalanceWithDelegations(snap),
		DelegationFiat:           sel.TotalStakingDelegationFiat(snap),
		AccountCount:             len(snap.Portfolio.AccountIDs),
		Assets:                   assets,
		Accounts:                 sel.PortfolioTotalFiatBalanceByAccount(snap),
	}
}

// Enricher adds optional sections to a Summary after it is built.
type Enricher interface {
	Enrich(ctx context.Context, snap *store.Snapshot, s *Summary) error
}

// StakingEnricher records the staking position of every account that has staking data.
type StakingEnricher struct {
	sel *selector.Selectors
}

// NewStakingEnricher creates a StakingEnricher.
func NewStakingEnricher(sel *selector.Selectors) *StakingEnricher {
	return &StakingEnricher{sel: sel}
}

func (e *StakingEnricher) Enrich(_ context.Context, snap *store.Snapshot, s *Summary) error {
	s.Staking = lo.FilterMap(snap.Portfolio.AccountIDs, func(id domain.AccountSpecifier, _ int) (StakingSummary, bool) {
		if e.sel.StakingDataByAccountSpecifier(snap, id) == nil {
			return StakingSummary{}, false
		}
		assetID := id.FeeAssetID()
		balances := e.sel.StakingBalances(snap, id, assetID)
		return StakingSummary{
			AccountID:     id,
			AssetID:       assetID,
			TotalFiat:     balances.TotalBalance,
			Validators:    len(balances.Opportunities),
			ActiveStaking: selector.HasActiveStaking(e.sel.StakingOpportunitiesDataFull(snap, id, assetID)),
		}, true
	})
	return nil
}
