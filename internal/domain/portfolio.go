package domain

import (
	"time"

	"github.com/samber/lo"
)

// Delegation is an amount bonded to a validator, in base units.
type Delegation struct {
	Validator string `json:"validator"`
	AssetID   string `json:"assetId"`
	Amount    string `json:"amount"`
}

// UndelegationEntry is one in-flight unbonding with its own completion time.
type UndelegationEntry struct {
	AssetID        string    `json:"assetId"`
	Amount         string    `json:"amount"`
	CompletionTime time.Time `json:"completionTime"`
}

// Undelegation groups the unbonding entries of one validator.
type Undelegation struct {
	Validator string              `json:"validator"`
	Entries   []UndelegationEntry `json:"entries"`
}

// Reward is an unclaimed staking reward in base units.
type Reward struct {
	AssetID string `json:"assetId"`
	Amount  string `json:"amount"`
}

// ValidatorReward groups the rewards accrued with one validator.
type ValidatorReward struct {
	Validator string   `json:"validator"`
	Rewards   []Reward `json:"rewards"`
}

// StakingData is the staking sub-record of a portfolio account.
type StakingData struct {
	Delegations   []Delegation      `json:"delegations"`
	Undelegations []Undelegation    `json:"undelegations"`
	Rewards       []ValidatorReward `json:"rewards"`
}

// PortfolioAccount is the per-account record of the portfolio store.
type PortfolioAccount struct {
	AssetIDs    []string     `json:"assetIds"`
	StakingData *StakingData `json:"stakingData,omitempty"`
}

// HasAsset reports whether the account holds assetID.
func (a PortfolioAccount) HasAsset(assetID string) bool {
	return lo.Contains(a.AssetIDs, assetID)
}
