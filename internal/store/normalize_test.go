package store

import (
	"testing"

	"github.com/mtlprog/walletview/internal/domain"
)

func TestNormalizeStakingDataNil(t *testing.T) {
	if normalizeStakingData(nil) != nil {
		t.Error("nil staking data should stay nil")
	}
}

func TestNormalizeMergesDuplicateDelegations(t *testing.T) {
	sd := normalizeStakingData(&domain.StakingData{
		Delegations: []domain.Delegation{
			{Validator: "v1", AssetID: domain.ATOMAssetID, Amount: "100"},
			{Validator: "v2", AssetID: domain.ATOMAssetID, Amount: "5"},
			{Validator: "v1", AssetID: domain.ATOMAssetID, Amount: "200"},
		},
	})

	if len(sd.Delegations) != 2 {
		t.Fatalf("delegations = %d, want 2", len(sd.Delegations))
	}
	if sd.Delegations[0].Amount != "300" {
		t.Errorf("v1 amount = %q, want 300", sd.Delegations[0].Amount)
	}
	if sd.Delegations[1].Validator != "v2" {
		t.Errorf("order not preserved: %+v", sd.Delegations)
	}
}

func TestNormalizeGroupsUndelegations(t *testing.T) {
	sd := normalizeStakingData(&domain.StakingData{
		Undelegations: []domain.Undelegation{
			{Validator: "v1", Entries: []domain.UndelegationEntry{{AssetID: domain.ATOMAssetID, Amount: "100"}}},
			{Validator: "v1", Entries: []domain.UndelegationEntry{{AssetID: domain.ATOMAssetID, Amount: "200"}}},
		},
	})

	if len(sd.Undelegations) != 1 {
		t.Fatalf("undelegations = %d, want 1", len(sd.Undelegations))
	}
	if len(sd.Undelegations[0].Entries) != 2 {
		t.Errorf("entries = %d, want 2", len(sd.Undelegations[0].Entries))
	}
}

func TestNormalizeMergesRewards(t *testing.T) {
	in := &domain.StakingData{
		Rewards: []domain.ValidatorReward{
			{Validator: "v1", Rewards: []domain.Reward{{AssetID: domain.ATOMAssetID, Amount: "1.5"}}},
			{Validator: "v1", Rewards: []domain.Reward{{AssetID: domain.ATOMAssetID, Amount: "2.5"}}},
			{Validator: "v2", Rewards: []domain.Reward{{AssetID: domain.ATOMAssetID, Amount: "1"}}},
		},
	}
	sd := normalizeStakingData(in)

	if len(sd.Rewards) != 2 {
		t.Fatalf("reward groups = %d, want 2", len(sd.Rewards))
	}
	if got := sd.Rewards[0].Rewards[0].Amount; got != "4" {
		t.Errorf("v1 reward = %q, want 4", got)
	}
	if in.Rewards[0].Rewards[0].Amount != "1.5" {
		t.Error("input must not be modified")
	}
}
