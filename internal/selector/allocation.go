package selector

import (
	"sort"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

// sortAssetsByFiat orders entries by descending fiat value. Ties keep their
// input order.
func sortAssetsByFiat(entries []AssetFiatBalance) {
	sort.SliceStable(entries, func(i, j int) bool {
		return domain.SafeParse(entries[i].Fiat).GreaterThan(domain.SafeParse(entries[j].Fiat))
	})
}

// percentOf returns part/total*100, or 0 when total is zero.
func percentOf(part, total decimal.Decimal) float64 {
	if total.IsZero() {
		return 0
	}
	f, _ := part.Div(total).Mul(decimal.NewFromInt(100)).Float64()
	return f
}

// PortfolioAssetBalancesSortedFiat returns the retained fiat balances ordered
// by descending value.
func (s *Selectors) PortfolioAssetBalancesSortedFiat(snap *store.Snapshot) []AssetFiatBalance {
	key := newKey(snap, "PortfolioAssetBalancesSortedFiat", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() []AssetFiatBalance {
		fiat := s.PortfolioFiatBalances(snap)
		entries := lo.FilterMap(snap.Portfolio.AssetIDs, func(id string, _ int) (AssetFiatBalance, bool) {
			v, ok := fiat[id]
			return AssetFiatBalance{AssetID: id, Fiat: v}, ok
		})
		sortAssetsByFiat(entries)
		return entries
	})
}

// PortfolioAssetIDsSortedFiat returns held asset IDs ordered by descending fiat value.
func (s *Selectors) PortfolioAssetIDsSortedFiat(snap *store.Snapshot) []string {
	key := newKey(snap, "PortfolioAssetIDsSortedFiat", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() []string {
		return lo.Map(s.PortfolioAssetBalancesSortedFiat(snap), func(e AssetFiatBalance, _ int) string {
			return e.AssetID
		})
	})
}

// PortfolioAssetAccountBalancesSortedFiat returns, per account, the asset fiat
// values above the threshold ordered by descending value.
func (s *Selectors) PortfolioAssetAccountBalancesSortedFiat(snap *store.Snapshot) map[domain.AccountSpecifier][]AssetFiatBalance {
	key := newKey(snap, "PortfolioAssetAccountBalancesSortedFiat", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() map[domain.AccountSpecifier][]AssetFiatBalance {
		fiat := s.PortfolioFiatAccountBalances(snap)
		threshold := snap.Preferences.BalanceThreshold
		out := make(map[domain.AccountSpecifier][]AssetFiatBalance, len(fiat))
		for _, accountID := range snap.Portfolio.AccountIDs {
			balances := fiat[accountID]
			entries := lo.FilterMap(snap.Portfolio.AccountAssetIDs[accountID], func(id string, _ int) (AssetFiatBalance, bool) {
				v := balances[id]
				return AssetFiatBalance{AssetID: id, Fiat: v}, !domain.SafeParse(v).LessThan(threshold)
			})
			sortAssetsByFiat(entries)
			out[accountID] = entries
		}
		return out
	})
}

// PortfolioAllocationPercent returns each retained asset's share of the total
// fiat balance in percent. Values are not rounded.
func (s *Selectors) PortfolioAllocationPercent(snap *store.Snapshot) map[string]float64 {
	key := newKey(snap, "PortfolioAllocationPercent", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() map[string]float64 {
		total := domain.SafeParse(s.PortfolioTotalFiatBalance(snap))
		return lo.MapValues(s.PortfolioFiatBalances(snap), func(fiat string, _ string) float64 {
			return percentOf(domain.SafeParse(fiat), total)
		})
	})
}

// PortfolioTotalFiatBalanceByAccount returns each account's total fiat value,
// omitting accounts below the threshold.
func (s *Selectors) PortfolioTotalFiatBalanceByAccount(snap *store.Snapshot) map[domain.AccountSpecifier]string {
	key := newKey(snap, "PortfolioTotalFiatBalanceByAccount", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() map[domain.AccountSpecifier]string {
		threshold := snap.Preferences.BalanceThreshold
		out := make(map[domain.AccountSpecifier]string)
		for _, accountID := range snap.Portfolio.AccountIDs {
			total := accountFiat(snap, accountID)
			if total.LessThan(threshold) {
				continue
			}
			out[accountID] = domain.FormatFiat(total)
		}
		return out
	})
}

// PortfolioAllocationPercentByFilter returns the share of an asset's portfolio
// fiat value held by one account.
func (s *Selectors) PortfolioAllocationPercentByFilter(snap *store.Snapshot, f Filter) float64 {
	total := domain.SafeParse(s.PortfolioFiatBalanceByAssetID(snap, f.AssetID))
	part, _ := domain.Lookup2(s.PortfolioFiatAccountBalances(snap), f.AccountID, f.AssetID)
	return percentOf(domain.SafeParse(part), total)
}

// PortfolioAccountIDsSortedFiat orders accounts above the threshold by
// descending fiat value, then groups them by chain. Chains appear in the
// order their first account does.
func (s *Selectors) PortfolioAccountIDsSortedFiat(snap *store.Snapshot) []domain.AccountSpecifier {
	key := newKey(snap, "PortfolioAccountIDsSortedFiat", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() []domain.AccountSpecifier {
		totals := s.PortfolioTotalFiatBalanceByAccount(snap)
		sorted := lo.FilterMap(snap.Portfolio.AccountIDs, func(id domain.AccountSpecifier, _ int) (AccountFiatBalance, bool) {
			v, ok := totals[id]
			return AccountFiatBalance{AccountID: id, Fiat: v}, ok
		})
		sort.SliceStable(sorted, func(i, j int) bool {
			return domain.SafeParse(sorted[i].Fiat).GreaterThan(domain.SafeParse(sorted[j].Fiat))
		})

		var chains []string
		buckets := make(map[string][]domain.AccountSpecifier)
		for _, e := range sorted {
			chain := accountChain(snap, e.AccountID)
			if _, ok := buckets[chain]; !ok {
				chains = append(chains, chain)
			}
			buckets[chain] = append(buckets[chain], e.AccountID)
		}
		return lo.FlatMap(chains, func(chain string, _ int) []domain.AccountSpecifier {
			return buckets[chain]
		})
	})
}

// accountChain resolves the chain an account's fee asset lives on.
func accountChain(snap *store.Snapshot, accountID domain.AccountSpecifier) string {
	if asset, ok := snap.Assets.ByID[accountID.FeeAssetID()]; ok && asset.ChainID != "" {
		return asset.ChainID
	}
	return accountID.ChainID()
}

// PortfolioAssetIDsByAccountIDExcludeFeeAsset returns an account's known,
// non-fee assets above the threshold, ordered by descending fiat value.
func (s *Selectors) PortfolioAssetIDsByAccountIDExcludeFeeAsset(snap *store.Snapshot, accountID domain.AccountSpecifier) []string {
	key := newKey(snap, "PortfolioAssetIDsByAccountIDExcludeFeeAsset", inAssets|inMarket|inPortfolio|inPreferences, string(accountID))
	return memoize(s, key, func() []string {
		threshold := snap.Preferences.BalanceThreshold
		return lo.FilterMap(s.PortfolioAssetAccountBalancesSortedFiat(snap)[accountID], func(e AssetFiatBalance, _ int) (string, bool) {
			_, known := snap.Assets.ByID[e.AssetID]
			keep := !domain.IsFeeAsset(e.AssetID) && known && !domain.SafeParse(e.Fiat).LessThan(threshold)
			return e.AssetID, keep
		})
	})
}

// PortfolioAccountRows returns a display row for every held asset above the
// threshold. Allocation is the rounded fiat amount's share of the total.
func (s *Selectors) PortfolioAccountRows(snap *store.Snapshot) []AccountRow {
	key := newKey(snap, "PortfolioAccountRows", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() []AccountRow {
		total := domain.SafeParse(s.PortfolioTotalFiatBalance(snap))
		threshold := snap.Preferences.BalanceThreshold
		return lo.FilterMap(snap.Portfolio.AssetIDs, func(assetID string, _ int) (AccountRow, bool) {
			balance := snap.Portfolio.AssetBalances[assetID]
			fiat := fiatAmount(snap, assetID, balance)
			if fiat.LessThan(threshold) {
				return AccountRow{}, false
			}
			asset := snap.Assets.ByID[assetID]
			market := snap.Market.ByAssetID[assetID]
			rounded := fiat.Round(domain.FiatPrecision)
			return AccountRow{
				AssetID:      assetID,
				Name:         asset.Name,
				Icon:         asset.Icon,
				Symbol:       asset.Symbol,
				FiatAmount:   domain.FormatFiat(fiat),
				CryptoAmount: domain.FormatHuman(humanAmount(snap, assetID, balance)),
				Allocation:   percentOf(rounded, total),
				Price:        market.Price.String(),
				PriceChange:  market.ChangePercent24Hr,
			}, true
		})
	})
}
