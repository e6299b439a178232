package store

import (
	"slices"

	"github.com/mtlprog/walletview/internal/domain"
)

type stakingKey struct {
	validator string
	assetID   string
}

// normalizeStakingData guarantees one delegation per (validator, asset), one
// undelegation group per validator and one reward per (validator, asset).
// Duplicates reported by an adapter are summed, never dropped.
func normalizeStakingData(sd *domain.StakingData) *domain.StakingData {
	if sd == nil {
		return nil
	}
	return &domain.StakingData{
		Delegations:   mergeDelegations(sd.Delegations),
		Undelegations: mergeUndelegations(sd.Undelegations),
		Rewards:       mergeRewards(sd.Rewards),
	}
}

func mergeDelegations(in []domain.Delegation) []domain.Delegation {
	out := make([]domain.Delegation, 0, len(in))
	index := make(map[stakingKey]int, len(in))
	for _, d := range in {
		k := stakingKey{d.Validator, d.AssetID}
		if i, ok := index[k]; ok {
			out[i].Amount = sumAmounts(out[i].Amount, d.Amount)
			continue
		}
		index[k] = len(out)
		out = append(out, d)
	}
	return out
}

func mergeUndelegations(in []domain.Undelegation) []domain.Undelegation {
	out := make([]domain.Undelegation, 0, len(in))
	index := make(map[string]int, len(in))
	for _, u := range in {
		if i, ok := index[u.Validator]; ok {
			out[i].Entries = append(out[i].Entries, u.Entries...)
			continue
		}
		index[u.Validator] = len(out)
		out = append(out, domain.Undelegation{Validator: u.Validator, Entries: slices.Clone(u.Entries)})
	}
	return out
}

func mergeRewards(in []domain.ValidatorReward) []domain.ValidatorReward {
	out := make([]domain.ValidatorReward, 0, len(in))
	byValidator := make(map[string]int, len(in))
	byAsset := make(map[stakingKey]int)
	for _, vr := range in {
		i, ok := byValidator[vr.Validator]
		if !ok {
			i = len(out)
			byValidator[vr.Validator] = i
			out = append(out, domain.ValidatorReward{Validator: vr.Validator})
		}
		for _, r := range vr.Rewards {
			k := stakingKey{vr.Validator, r.AssetID}
			if j, ok := byAsset[k]; ok {
				out[i].Rewards[j].Amount = sumAmounts(out[i].Rewards[j].Amount, r.Amount)
				continue
			}
			byAsset[k] = len(out[i].Rewards)
			out[i].Rewards = append(out[i].Rewards, r)
		}
	}
	return out
}

func sumAmounts(a, b string) string {
	return domain.SafeSum(domain.SafeParse(a), domain.SafeParse(b)).String()
}
