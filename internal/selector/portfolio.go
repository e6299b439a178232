package selector

import (
	"strings"

	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

// humanAmount converts a base-unit amount of assetID into human units.
func humanAmount(snap *store.Snapshot, assetID, baseUnits string) decimal.Decimal {
	return domain.FromBaseUnit(domain.SafeParse(baseUnits), snap.Assets.Precision(assetID))
}

// fiatAmount values a base-unit amount of assetID at the latest price.
func fiatAmount(snap *store.Snapshot, assetID, baseUnits string) decimal.Decimal {
	return domain.FiatValue(baseUnits, snap.Assets.Precision(assetID), snap.Market.Price(assetID))
}

// accountFiat values everything an account holds. The result is unrounded.
func accountFiat(snap *store.Snapshot, accountID domain.AccountSpecifier) decimal.Decimal {
	balances := snap.Portfolio.AccountBalances[accountID]
	return lo.Reduce(snap.Portfolio.AccountAssetIDs[accountID], func(acc decimal.Decimal, assetID string, _ int) decimal.Decimal {
		return acc.Add(fiatAmount(snap, assetID, balances[assetID]))
	}, decimal.Zero)
}

// totalFiat sums the unrounded value of every asset at or above the balance
// threshold.
func totalFiat(snap *store.Snapshot) decimal.Decimal {
	threshold := snap.Preferences.BalanceThreshold
	return lo.Reduce(snap.Portfolio.AssetIDs, func(acc decimal.Decimal, assetID string, _ int) decimal.Decimal {
		fiat := fiatAmount(snap, assetID, snap.Portfolio.AssetBalances[assetID])
		if fiat.LessThan(threshold) {
			return acc
		}
		return acc.Add(fiat)
	}, decimal.Zero)
}

// PortfolioAssetBalances returns aggregated balances in base units.
func (s *Selectors) PortfolioAssetBalances(snap *store.Snapshot) map[string]string {
	return snap.Portfolio.AssetBalances
}

// PortfolioAccountBalances returns account -> asset -> balance in base units.
func (s *Selectors) PortfolioAccountBalances(snap *store.Snapshot) map[domain.AccountSpecifier]map[string]string {
	return snap.Portfolio.AccountBalances
}

// PortfolioFiatBalances returns asset -> fiat value with two decimals. Assets
// worth less than the balance threshold are omitted.
func (s *Selectors) PortfolioFiatBalances(snap *store.Snapshot) map[string]string {
	key := newKey(snap, "PortfolioFiatBalances", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() map[string]string {
		threshold := snap.Preferences.BalanceThreshold
		out := make(map[string]string, len(snap.Portfolio.AssetIDs))
		for _, assetID := range snap.Portfolio.AssetIDs {
			fiat := fiatAmount(snap, assetID, snap.Portfolio.AssetBalances[assetID])
			if fiat.LessThan(threshold) {
				continue
			}
			out[assetID] = domain.FormatFiat(fiat)
		}
		return out
	})
}

// PortfolioFiatAccountBalances returns account -> asset -> fiat value with two
// decimals. No threshold is applied.
func (s *Selectors) PortfolioFiatAccountBalances(snap *store.Snapshot) map[domain.AccountSpecifier]map[string]string {
	key := newKey(snap, "PortfolioFiatAccountBalances", inAssets|inMarket|inPortfolio)
	return memoize(s, key, func() map[domain.AccountSpecifier]map[string]string {
		out := make(map[domain.AccountSpecifier]map[string]string, len(snap.Portfolio.AccountIDs))
		for _, accountID := range snap.Portfolio.AccountIDs {
			balances := snap.Portfolio.AccountBalances[accountID]
			fiat := make(map[string]string, len(balances))
			for _, assetID := range snap.Portfolio.AccountAssetIDs[accountID] {
				fiat[assetID] = domain.FormatFiat(fiatAmount(snap, assetID, balances[assetID]))
			}
			out[accountID] = fiat
		}
		return out
	})
}

// PortfolioTotalFiatBalance is the fiat value of the portfolio, rounded once
// after summing. Assets below the balance threshold do not count.
func (s *Selectors) PortfolioTotalFiatBalance(snap *store.Snapshot) string {
	key := newKey(snap, "PortfolioTotalFiatBalance", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() string {
		return domain.FormatFiat(totalFiat(snap))
	})
}

// PortfolioFiatBalanceByAssetID returns the fiat value of an asset, "0" when absent or below threshold.
func (s *Selectors) PortfolioFiatBalanceByAssetID(snap *store.Snapshot, assetID string) string {
	if v, ok := s.PortfolioFiatBalances(snap)[assetID]; ok {
		return v
	}
	return "0"
}

// PortfolioFiatBalanceByFilter resolves a fiat balance for an asset, an
// (account, asset) pair, or a whole account.
func (s *Selectors) PortfolioFiatBalanceByFilter(snap *store.Snapshot, f Filter) string {
	switch {
	case f.AssetID != "" && f.AccountID == "":
		return s.PortfolioFiatBalanceByAssetID(snap, f.AssetID)
	case f.AssetID != "" && f.AccountID != "":
		if v, ok := domain.Lookup2(s.PortfolioFiatAccountBalances(snap), f.AccountID, f.AssetID); ok {
			return v
		}
		return "0"
	case f.AccountID != "":
		if len(snap.Portfolio.AccountAssetIDs[f.AccountID]) == 0 {
			return "0"
		}
		return domain.FormatFiat(accountFiat(snap, f.AccountID))
	default:
		return "0"
	}
}

// PortfolioCryptoBalanceByAssetID returns the aggregated base-unit balance, "0" when absent.
func (s *Selectors) PortfolioCryptoBalanceByAssetID(snap *store.Snapshot, assetID string) string {
	if v, ok := domain.Lookup(snap.Portfolio.AssetBalances, assetID); ok {
		return v
	}
	return "0"
}

// PortfolioCryptoBalanceByFilter returns a base-unit balance for an asset or an
// (account, asset) pair, "0" when absent.
func (s *Selectors) PortfolioCryptoBalanceByFilter(snap *store.Snapshot, f Filter) string {
	if f.AccountID != "" && f.AssetID != "" {
		if v, ok := domain.Lookup2(snap.Portfolio.AccountBalances, f.AccountID, f.AssetID); ok {
			return v
		}
		return "0"
	}
	return s.PortfolioCryptoBalanceByAssetID(snap, f.AssetID)
}

// PortfolioCryptoHumanBalanceByFilter is PortfolioCryptoBalanceByFilter in human units.
func (s *Selectors) PortfolioCryptoHumanBalanceByFilter(snap *store.Snapshot, f Filter) string {
	return domain.FormatHuman(humanAmount(snap, f.AssetID, s.PortfolioCryptoBalanceByFilter(snap, f)))
}

// PortfolioCryptoHumanBalanceByAssetID returns the aggregated balance in human units.
func (s *Selectors) PortfolioCryptoHumanBalanceByAssetID(snap *store.Snapshot, assetID string) string {
	return domain.FormatHuman(humanAmount(snap, assetID, s.PortfolioCryptoBalanceByAssetID(snap, assetID)))
}

// PortfolioCryptoBalancesAboveThreshold returns base-unit balances whose fiat
// value reaches the threshold, for one account or, when accountID is empty,
// for the whole portfolio.
func (s *Selectors) PortfolioCryptoBalancesAboveThreshold(snap *store.Snapshot, accountID domain.AccountSpecifier) map[string]string {
	key := newKey(snap, "PortfolioCryptoBalancesAboveThreshold", inAssets|inMarket|inPortfolio|inPreferences, string(accountID))
	return memoize(s, key, func() map[string]string {
		balances, assetIDs := snap.Portfolio.AssetBalances, snap.Portfolio.AssetIDs
		if accountID != "" {
			balances = snap.Portfolio.AccountBalances[accountID]
			assetIDs = snap.Portfolio.AccountAssetIDs[accountID]
		}
		threshold := snap.Preferences.BalanceThreshold
		out := make(map[string]string, len(assetIDs))
		for _, assetID := range assetIDs {
			if fiatAmount(snap, assetID, balances[assetID]).LessThan(threshold) {
				continue
			}
			out[assetID] = balances[assetID]
		}
		return out
	})
}

// PortfolioMixedHumanBalances returns the human crypto amount and fiat value of every held asset.
func (s *Selectors) PortfolioMixedHumanBalances(snap *store.Snapshot) map[string]MixedBalance {
	key := newKey(snap, "PortfolioMixedHumanBalances", inAssets|inMarket|inPortfolio)
	return memoize(s, key, func() map[string]MixedBalance {
		out := make(map[string]MixedBalance, len(snap.Portfolio.AssetIDs))
		for _, assetID := range snap.Portfolio.AssetIDs {
			balance := snap.Portfolio.AssetBalances[assetID]
			out[assetID] = MixedBalance{
				Crypto: domain.FormatHuman(humanAmount(snap, assetID, balance)),
				Fiat:   domain.FormatFiat(fiatAmount(snap, assetID, balance)),
			}
		}
		return out
	})
}

// PortfolioAssets returns reference data for every held asset that is known.
func (s *Selectors) PortfolioAssets(snap *store.Snapshot) map[string]domain.Asset {
	key := newKey(snap, "PortfolioAssets", inAssets|inPortfolio)
	return memoize(s, key, func() map[string]domain.Asset {
		return lo.SliceToMap(
			lo.Filter(snap.Portfolio.AssetIDs, func(id string, _ int) bool {
				_, ok := snap.Assets.ByID[id]
				return ok
			}),
			func(id string) (string, domain.Asset) { return id, snap.Assets.ByID[id] },
		)
	})
}

// PortfolioLoading is true until a chain adapter has reported at least one account.
func (s *Selectors) PortfolioLoading(snap *store.Snapshot) bool {
	return len(snap.Portfolio.AccountIDs) == 0
}

// PortfolioIsEmpty is true when no account holds any asset.
func (s *Selectors) PortfolioIsEmpty(snap *store.Snapshot) bool {
	return len(snap.Portfolio.AssetIDs) == 0
}

// PortfolioAssetAccounts returns the accounts holding assetID.
func (s *Selectors) PortfolioAssetAccounts(snap *store.Snapshot, assetID string) []domain.AccountSpecifier {
	key := newKey(snap, "PortfolioAssetAccounts", inPortfolio, assetID)
	return memoize(s, key, func() []domain.AccountSpecifier {
		return lo.Filter(snap.Portfolio.AccountIDs, func(id domain.AccountSpecifier, _ int) bool {
			return snap.Portfolio.Accounts[id].HasAsset(assetID)
		})
	})
}

// PortfolioAssetIDsByAccountID returns the assets held by one account.
func (s *Selectors) PortfolioAssetIDsByAccountID(snap *store.Snapshot, accountID domain.AccountSpecifier) []string {
	return snap.Portfolio.AccountAssetIDs[accountID]
}

// AccountIDByAddress finds the account controlling a chain address,
// ignoring case. It returns "" when no account matches.
func (s *Selectors) AccountIDByAddress(snap *store.Snapshot, address string) domain.AccountSpecifier {
	id, _ := lo.Find(snap.Portfolio.AccountIDs, func(id domain.AccountSpecifier) bool {
		return lo.ContainsBy(snap.Portfolio.AccountSpecifiers[id], func(a string) bool {
			return strings.EqualFold(a, address)
		})
	})
	return id
}

// AccountIDsByAssetID returns the accounts holding assetID, whatever its value.
func (s *Selectors) AccountIDsByAssetID(snap *store.Snapshot, assetID string) []domain.AccountSpecifier {
	key := newKey(snap, "AccountIDsByAssetID", inPortfolio, assetID)
	return memoize(s, key, func() []domain.AccountSpecifier {
		return lo.Filter(snap.Portfolio.AccountIDs, func(id domain.AccountSpecifier, _ int) bool {
			_, ok := snap.Portfolio.AccountBalances[id][assetID]
			return ok
		})
	})
}

// AccountIDsByAssetIDAboveThreshold returns the accounts holding assetID whose
// total fiat value reaches the balance threshold.
func (s *Selectors) AccountIDsByAssetIDAboveThreshold(snap *store.Snapshot, assetID string) []domain.AccountSpecifier {
	key := newKey(snap, "AccountIDsByAssetIDAboveThreshold", inAssets|inMarket|inPortfolio|inPreferences, assetID)
	return memoize(s, key, func() []domain.AccountSpecifier {
		threshold := snap.Preferences.BalanceThreshold
		return lo.Filter(s.PortfolioAssetAccounts(snap, assetID), func(id domain.AccountSpecifier, _ int) bool {
			return !accountFiat(snap, id).LessThan(threshold)
		})
	})
}
