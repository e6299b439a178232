package selector

import (
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

// ValidatorStakingData is an account's staking state with one validator for one asset.
type ValidatorStakingData struct {
	Delegations   []domain.Delegation        `json:"delegations"`
	Undelegations []domain.UndelegationEntry `json:"undelegations"`
	Rewards       []domain.Reward            `json:"rewards"`
}

// StakingOpportunity joins validator metadata with an account's position.
// Amounts are in base units.
type StakingOpportunity struct {
	domain.Validator
	// TotalDelegations is delegated plus unbonding.
	TotalDelegations string `json:"totalDelegations"`
	Rewards          string `json:"rewards"`
}

// MergedStakingOpportunity adds human and fiat amounts to a StakingOpportunity.
type MergedStakingOpportunity struct {
	StakingOpportunity
	AssetID      string `json:"assetId"`
	ChainID      string `json:"chainId"`
	CryptoAmount string `json:"cryptoAmount"`
	FiatAmount   string `json:"fiatAmount"`
	RewardsFiat  string `json:"rewardsFiat"`
	TVL          string `json:"tvl"`
}

// StakingBalances lists an account's staking opportunities for one asset with
// the total fiat value staked.
type StakingBalances struct {
	Opportunities []MergedStakingOpportunity `json:"opportunities"`
	TotalBalance  string                     `json:"totalBalance"`
}

// StakingPosition is an account's position with one validator for one asset.
type StakingPosition struct {
	Validator        domain.Validator           `json:"validator"`
	Delegated        string                     `json:"delegated"`
	Unbonding        string                     `json:"unbonding"`
	Bonded           string                     `json:"bonded"`
	BondedFiat       string                     `json:"bondedFiat"`
	Rewards          string                     `json:"rewards"`
	RewardsFiat      string                     `json:"rewardsFiat"`
	RewardsClaimable bool                       `json:"rewardsClaimable"`
	UnbondingEntries []domain.UndelegationEntry `json:"unbondingEntries"`
}

// StakingDataByAccountSpecifier returns the staking record of an account, or nil.
func (s *Selectors) StakingDataByAccountSpecifier(snap *store.Snapshot, accountID domain.AccountSpecifier) *domain.StakingData {
	return snap.Portfolio.Accounts[accountID].StakingData
}

func (s *Selectors) delegations(snap *store.Snapshot, accountID domain.AccountSpecifier) []domain.Delegation {
	if sd := s.StakingDataByAccountSpecifier(snap, accountID); sd != nil {
		return sd.Delegations
	}
	return nil
}

func (s *Selectors) undelegations(snap *store.Snapshot, accountID domain.AccountSpecifier) []domain.Undelegation {
	if sd := s.StakingDataByAccountSpecifier(snap, accountID); sd != nil {
		return sd.Undelegations
	}
	return nil
}

func (s *Selectors) rewards(snap *store.Snapshot, accountID domain.AccountSpecifier) []domain.ValidatorReward {
	if sd := s.StakingDataByAccountSpecifier(snap, accountID); sd != nil {
		return sd.Rewards
	}
	return nil
}

func sumDelegations(ds []domain.Delegation) decimal.Decimal {
	return lo.Reduce(ds, func(acc decimal.Decimal, d domain.Delegation, _ int) decimal.Decimal {
		return domain.SafeSum(acc, domain.SafeParse(d.Amount))
	}, decimal.Zero)
}

func sumEntries(es []domain.UndelegationEntry) decimal.Decimal {
	return lo.Reduce(es, func(acc decimal.Decimal, e domain.UndelegationEntry, _ int) decimal.Decimal {
		return domain.SafeSum(acc, domain.SafeParse(e.Amount))
	}, decimal.Zero)
}

func sumRewards(rs []domain.Reward) decimal.Decimal {
	return lo.Reduce(rs, func(acc decimal.Decimal, r domain.Reward, _ int) decimal.Decimal {
		return domain.SafeSum(acc, domain.SafeParse(r.Amount))
	}, decimal.Zero)
}

// TotalStakingDelegationCryptoByAccountSpecifier sums an account's delegations in base units.
func (s *Selectors) TotalStakingDelegationCryptoByAccountSpecifier(snap *store.Snapshot, accountID domain.AccountSpecifier) string {
	return sumDelegations(s.delegations(snap, accountID)).String()
}

// AllStakingDelegationCrypto returns account -> summed delegations in base
// units, for accounts that have staking data.
func (s *Selectors) AllStakingDelegationCrypto(snap *store.Snapshot) map[domain.AccountSpecifier]string {
	key := newKey(snap, "AllStakingDelegationCrypto", inPortfolio)
	return memoize(s, key, func() map[domain.AccountSpecifier]string {
		out := make(map[domain.AccountSpecifier]string)
		for _, accountID := range snap.Portfolio.AccountIDs {
			if s.StakingDataByAccountSpecifier(snap, accountID) == nil {
				continue
			}
			out[accountID] = s.TotalStakingDelegationCryptoByAccountSpecifier(snap, accountID)
		}
		return out
	})
}

// totalStakingDelegationFiat values every delegation of every account at the
// latest price of the delegated asset.
func (s *Selectors) totalStakingDelegationFiat(snap *store.Snapshot) decimal.Decimal {
	total := decimal.Zero
	for _, accountID := range snap.Portfolio.AccountIDs {
		for _, d := range s.delegations(snap, accountID) {
			assetID := d.AssetID
			if assetID == "" {
				assetID = accountID.FeeAssetID()
			}
			total = total.Add(fiatAmount(snap, assetID, d.Amount))
		}
	}
	return total
}

// TotalStakingDelegationFiat is the fiat value of all delegations, two decimals.
func (s *Selectors) TotalStakingDelegationFiat(snap *store.Snapshot) string {
	key := newKey(snap, "TotalStakingDelegationFiat", inAssets|inMarket|inPortfolio)
	return memoize(s, key, func() string {
		return domain.FormatFiat(s.totalStakingDelegationFiat(snap))
	})
}

// PortfolioTotalFiatBalanceWithDelegations adds delegated value to the portfolio total.
func (s *Selectors) PortfolioTotalFiatBalanceWithDelegations(snap *store.Snapshot) string {
	key := newKey(snap, "PortfolioTotalFiatBalanceWithDelegations", inAssets|inMarket|inPortfolio|inPreferences)
	return memoize(s, key, func() string {
		return domain.FormatFiat(totalFiat(snap).Add(s.totalStakingDelegationFiat(snap)))
	})
}

func (s *Selectors) delegatedHuman(snap *store.Snapshot, f Filter) decimal.Decimal {
	if f.AccountID == "" {
		return decimal.Zero
	}
	ds := lo.Filter(s.delegations(snap, f.AccountID), func(d domain.Delegation, _ int) bool {
		return d.AssetID == f.AssetID
	})
	return domain.FromBaseUnit(sumDelegations(ds), snap.Assets.Precision(f.AssetID))
}

// TotalStakingDelegationCryptoByFilter returns an account's delegations of an
// asset in human units. Without an account it is zero.
func (s *Selectors) TotalStakingDelegationCryptoByFilter(snap *store.Snapshot, f Filter) string {
	return domain.FormatHuman(s.delegatedHuman(snap, f))
}

func (s *Selectors) cryptoWithDelegations(snap *store.Snapshot, f Filter) decimal.Decimal {
	held := humanAmount(snap, f.AssetID, s.PortfolioCryptoBalanceByFilter(snap, f))
	return held.Add(s.delegatedHuman(snap, f))
}

// TotalCryptoBalanceWithDelegations is the held plus delegated amount in human units.
func (s *Selectors) TotalCryptoBalanceWithDelegations(snap *store.Snapshot, f Filter) string {
	return domain.FormatHuman(s.cryptoWithDelegations(snap, f))
}

// TotalFiatBalanceWithDelegations is the fiat value of the held plus delegated amount.
func (s *Selectors) TotalFiatBalanceWithDelegations(snap *store.Snapshot, f Filter) string {
	return domain.FormatFiat(s.cryptoWithDelegations(snap, f).Mul(snap.Market.Price(f.AssetID)))
}

// AllDelegationsCryptoAmountByAssetID returns validator -> delegated base units for one asset.
func (s *Selectors) AllDelegationsCryptoAmountByAssetID(snap *store.Snapshot, accountID domain.AccountSpecifier, assetID string) map[string]string {
	key := newKey(snap, "AllDelegationsCryptoAmountByAssetID", inPortfolio, string(accountID), assetID)
	return memoize(s, key, func() map[string]string {
		byValidator := lo.GroupBy(
			lo.Filter(s.delegations(snap, accountID), func(d domain.Delegation, _ int) bool { return d.AssetID == assetID }),
			func(d domain.Delegation) string { return d.Validator },
		)
		return lo.MapValues(byValidator, func(ds []domain.Delegation, _ string) string {
			return sumDelegations(ds).String()
		})
	})
}

// DelegationCryptoAmountByAssetIDAndValidator returns delegated base units, "0" when none.
func (s *Selectors) DelegationCryptoAmountByAssetIDAndValidator(snap *store.Snapshot, accountID domain.AccountSpecifier, validator, assetID string) string {
	if v, ok := s.AllDelegationsCryptoAmountByAssetID(snap, accountID, assetID)[validator]; ok {
		return v
	}
	return "0"
}

// UnbondingEntriesByAccountSpecifier returns every unbonding entry of an
// account with one validator, across assets.
func (s *Selectors) UnbondingEntriesByAccountSpecifier(snap *store.Snapshot, accountID domain.AccountSpecifier, validator string) []domain.UndelegationEntry {
	key := newKey(snap, "UnbondingEntriesByAccountSpecifier", inPortfolio, string(accountID), validator)
	return memoize(s, key, func() []domain.UndelegationEntry {
		entries := []domain.UndelegationEntry{}
		for _, u := range s.undelegations(snap, accountID) {
			if u.Validator == validator {
				entries = append(entries, u.Entries...)
			}
		}
		return entries
	})
}

// AllUnbondingsEntriesByAssetID returns validator -> unbonding entries of one asset.
func (s *Selectors) AllUnbondingsEntriesByAssetID(snap *store.Snapshot, accountID domain.AccountSpecifier, assetID string) map[string][]domain.UndelegationEntry {
	key := newKey(snap, "AllUnbondingsEntriesByAssetID", inPortfolio, string(accountID), assetID)
	return memoize(s, key, func() map[string][]domain.UndelegationEntry {
		out := make(map[string][]domain.UndelegationEntry)
		for _, u := range s.undelegations(snap, accountID) {
			matching := lo.Filter(u.Entries, func(e domain.UndelegationEntry, _ int) bool {
				return e.AssetID == assetID
			})
			out[u.Validator] = append(out[u.Validator], matching...)
		}
		return out
	})
}

// UnbondingCryptoAmountByAssetIDAndValidator sums unbonding entries in base
// units. Completion times are ignored.
func (s *Selectors) UnbondingCryptoAmountByAssetIDAndValidator(snap *store.Snapshot, accountID domain.AccountSpecifier, validator, assetID string) string {
	entries := lo.Filter(s.UnbondingEntriesByAccountSpecifier(snap, accountID, validator), func(e domain.UndelegationEntry, _ int) bool {
		return e.AssetID == assetID
	})
	return sumEntries(entries).String()
}

// TotalBondingsBalanceByAssetID is delegated plus unbonding, in base units.
func (s *Selectors) TotalBondingsBalanceByAssetID(snap *store.Snapshot, accountID domain.AccountSpecifier, validator, assetID string) string {
	delegated := domain.SafeParse(s.DelegationCryptoAmountByAssetIDAndValidator(snap, accountID, validator, assetID))
	unbonding := domain.SafeParse(s.UnbondingCryptoAmountByAssetIDAndValidator(snap, accountID, validator, assetID))
	return delegated.Add(unbonding).String()
}

// RewardsByAccountSpecifier returns the rewards accrued with one validator.
func (s *Selectors) RewardsByAccountSpecifier(snap *store.Snapshot, accountID domain.AccountSpecifier, validator string) []domain.Reward {
	key := newKey(snap, "RewardsByAccountSpecifier", inPortfolio, string(accountID), validator)
	return memoize(s, key, func() []domain.Reward {
		rewards := []domain.Reward{}
		for _, vr := range s.rewards(snap, accountID) {
			if vr.Validator == validator {
				rewards = append(rewards, vr.Rewards...)
			}
		}
		return rewards
	})
}

// RewardsAmountByAssetID returns accrued rewards of one asset in base units, "0" when none.
func (s *Selectors) RewardsAmountByAssetID(snap *store.Snapshot, accountID domain.AccountSpecifier, validator, assetID string) string {
	rewards := lo.Filter(s.RewardsByAccountSpecifier(snap, accountID, validator), func(r domain.Reward, _ int) bool {
		return r.AssetID == assetID
	})
	return sumRewards(rewards).String()
}

// RewardsByValidator sums all rewards accrued with one validator, in base units.
func (s *Selectors) RewardsByValidator(snap *store.Snapshot, accountID domain.AccountSpecifier, validator string) string {
	return sumRewards(s.RewardsByAccountSpecifier(snap, accountID, validator)).String()
}

// ValidatorIDs lists the validators an account has any staking record with.
// Accounts without any fall back to the default validator, if configured.
func (s *Selectors) ValidatorIDs(snap *store.Snapshot, accountID domain.AccountSpecifier) []string {
	key := newKey(snap, "ValidatorIDs", inPortfolio, string(accountID))
	return memoize(s, key, func() []string {
		var ids []string
		for _, d := range s.delegations(snap, accountID) {
			ids = append(ids, d.Validator)
		}
		for _, u := range s.undelegations(snap, accountID) {
			ids = append(ids, u.Validator)
		}
		for _, r := range s.rewards(snap, accountID) {
			ids = append(ids, r.Validator)
		}
		ids = lo.Uniq(ids)
		if len(ids) == 0 && s.defaultValidator != "" {
			ids = []string{s.defaultValidator}
		}
		return ids
	})
}

// AllStakingDataByValidator regroups an account's staking data as validator -> asset -> records.
func (s *Selectors) AllStakingDataByValidator(snap *store.Snapshot, accountID domain.AccountSpecifier) map[string]map[string]*ValidatorStakingData {
	key := newKey(snap, "AllStakingDataByValidator", inPortfolio, string(accountID))
	return memoize(s, key, func() map[string]map[string]*ValidatorStakingData {
		out := make(map[string]map[string]*ValidatorStakingData)
		get := func(validator, assetID string) *ValidatorStakingData {
			if out[validator] == nil {
				out[validator] = make(map[string]*ValidatorStakingData)
			}
			if out[validator][assetID] == nil {
				out[validator][assetID] = &ValidatorStakingData{}
			}
			return out[validator][assetID]
		}
		for _, d := range s.delegations(snap, accountID) {
			v := get(d.Validator, d.AssetID)
			v.Delegations = append(v.Delegations, d)
		}
		for _, u := range s.undelegations(snap, accountID) {
			for _, e := range u.Entries {
				v := get(u.Validator, e.AssetID)
				v.Undelegations = append(v.Undelegations, e)
			}
		}
		for _, vr := range s.rewards(snap, accountID) {
			for _, r := range vr.Rewards {
				v := get(vr.Validator, r.AssetID)
				v.Rewards = append(v.Rewards, r)
			}
		}
		return out
	})
}

// validatorOrAddress returns cached validator data, or a record carrying only the address.
func validatorOrAddress(snap *store.Snapshot, address string) domain.Validator {
	if v, ok := snap.Validators.ByAddress[address]; ok {
		return v
	}
	return domain.Validator{Address: address}
}

// StakingOpportunitiesDataFull returns one opportunity per validator of the account.
func (s *Selectors) StakingOpportunitiesDataFull(snap *store.Snapshot, accountID domain.AccountSpecifier, assetID string) []StakingOpportunity {
	key := newKey(snap, "StakingOpportunitiesDataFull", inPortfolio|inValidators, string(accountID), assetID)
	return memoize(s, key, func() []StakingOpportunity {
		return lo.Map(s.ValidatorIDs(snap, accountID), func(validator string, _ int) StakingOpportunity {
			return StakingOpportunity{
				Validator:        validatorOrAddress(snap, validator),
				TotalDelegations: s.TotalBondingsBalanceByAssetID(snap, accountID, validator, assetID),
				Rewards:          s.RewardsAmountByAssetID(snap, accountID, validator, assetID),
			}
		})
	})
}

// StakingBalances values every staking opportunity of an account for one asset.
func (s *Selectors) StakingBalances(snap *store.Snapshot, accountID domain.AccountSpecifier, assetID string) StakingBalances {
	key := newKey(snap, "StakingBalances", inAssets|inMarket|inPortfolio|inValidators, string(accountID), assetID)
	return memoize(s, key, func() StakingBalances {
		asset := snap.Assets.ByID[assetID]
		price := snap.Market.Price(assetID)
		total := decimal.Zero
		merged := lo.Map(s.StakingOpportunitiesDataFull(snap, accountID, assetID), func(o StakingOpportunity, _ int) MergedStakingOpportunity {
			staked := humanAmount(snap, assetID, o.TotalDelegations)
			total = total.Add(staked.Mul(price))
			return MergedStakingOpportunity{
				StakingOpportunity: o,
				AssetID:            assetID,
				ChainID:            asset.ChainID,
				CryptoAmount:       domain.FormatHuman(staked.Round(int32(max(asset.Precision, 0)))),
				FiatAmount:         domain.FormatFiat(staked.Mul(price)),
				RewardsFiat:        domain.FormatFiat(fiatAmount(snap, assetID, o.Rewards)),
				TVL:                fiatAmount(snap, assetID, o.Tokens).String(),
			}
		})
		return StakingBalances{Opportunities: merged, TotalBalance: domain.FormatFiat(total)}
	})
}

// StakingPosition summarizes an account's position with one validator.
func (s *Selectors) StakingPosition(snap *store.Snapshot, accountID domain.AccountSpecifier, validator, assetID string) StakingPosition {
	key := newKey(snap, "StakingPosition", inAssets|inMarket|inPortfolio|inValidators, string(accountID), validator, assetID)
	return memoize(s, key, func() StakingPosition {
		precision := snap.Assets.Precision(assetID)
		price := snap.Market.Price(assetID)
		human := func(baseUnits string) decimal.Decimal {
			return domain.FromBaseUnit(domain.SafeParse(baseUnits), precision)
		}

		delegated := human(s.DelegationCryptoAmountByAssetIDAndValidator(snap, accountID, validator, assetID))
		unbonding := human(s.UnbondingCryptoAmountByAssetIDAndValidator(snap, accountID, validator, assetID))
		bonded := delegated.Add(unbonding)
		rewardsBase := s.RewardsAmountByAssetID(snap, accountID, validator, assetID)
		rewards := human(rewardsBase)

		return StakingPosition{
			Validator:        validatorOrAddress(snap, validator),
			Delegated:        domain.FormatHuman(delegated),
			Unbonding:        domain.FormatHuman(unbonding),
			Bonded:           domain.FormatHuman(bonded),
			BondedFiat:       domain.FormatFiat(bonded.Mul(price)),
			Rewards:          domain.FormatHuman(rewards),
			RewardsFiat:      domain.FormatFiat(rewards.Mul(price)),
			RewardsClaimable: RewardsClaimable(rewardsBase),
			UnbondingEntries: s.AllUnbondingsEntriesByAssetID(snap, accountID, assetID)[validator],
		}
	})
}

// HasActiveStaking reports whether opportunities carry real staking data
// rather than only the default offer.
func HasActiveStaking(opportunities []StakingOpportunity) bool {
	if len(opportunities) > 1 {
		return true
	}
	return lo.SomeBy(opportunities, func(o StakingOpportunity) bool {
		return !domain.SafeParse(o.Rewards).IsZero() || !domain.SafeParse(o.TotalDelegations).IsZero()
	})
}

// RewardsClaimable reports whether a reward amount in base units is at least
// one whole base unit. Fractions of a base unit cannot be withdrawn.
func RewardsClaimable(baseUnits string) bool {
	return domain.SafeParse(baseUnits).GreaterThanOrEqual(decimal.NewFromInt(1))
}
