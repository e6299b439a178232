package chain

import "time"

// Coin is an LCD denom/amount pair. Amounts are integer base units, except
// distribution rewards which carry an 18-digit decimal fraction.
type Coin struct {
	Denom  string `json:"denom"`
	Amount string `json:"amount"`
}

// Pagination is the cursor returned by paginated LCD queries.
type Pagination struct {
	NextKey *string `json:"next_key"`
	Total   string  `json:"total"`
}

// ValidatorResponse is /cosmos/staking/v1beta1/validators/{address}.
type ValidatorResponse struct {
	Validator LCDValidator `json:"validator"`
}

type LCDValidator struct {
	OperatorAddress string `json:"operator_address"`
	Jailed          bool   `json:"jailed"`
	Status          string `json:"status"`
	Tokens          string `json:"tokens"`
	Description     struct {
		Moniker string `json:"moniker"`
		Website string `json:"website"`
	} `json:"description"`
	Commission struct {
		CommissionRates struct {
			Rate string `json:"rate"`
		} `json:"commission_rates"`
	} `json:"commission"`
}

type inflationResponse struct {
	Inflation string `json:"inflation"`
}

type poolResponse struct {
	Pool struct {
		NotBondedTokens string `json:"not_bonded_tokens"`
		BondedTokens    string `json:"bonded_tokens"`
	} `json:"pool"`
}

type distributionParamsResponse struct {
	Params struct {
		CommunityTax string `json:"community_tax"`
	} `json:"params"`
}

type stakingParamsResponse struct {
	Params struct {
		BondDenom string `json:"bond_denom"`
	} `json:"params"`
}

type supplyResponse struct {
	Amount Coin `json:"amount"`
}

// BalancesResponse is /cosmos/bank/v1beta1/balances/{address}.
type BalancesResponse struct {
	Balances   []Coin     `json:"balances"`
	Pagination Pagination `json:"pagination"`
}

// DelegationsResponse is /cosmos/staking/v1beta1/delegations/{address}.
type DelegationsResponse struct {
	DelegationResponses []DelegationResponse `json:"delegation_responses"`
	Pagination          Pagination           `json:"pagination"`
}

type DelegationResponse struct {
	Delegation struct {
		DelegatorAddress string `json:"delegator_address"`
		ValidatorAddress string `json:"validator_address"`
		Shares           string `json:"shares"`
	} `json:"delegation"`
	Balance Coin `json:"balance"`
}

// UnbondingResponse is /cosmos/staking/v1beta1/delegators/{address}/unbonding_delegations.
type UnbondingResponse struct {
	UnbondingResponses []UnbondingDelegation `json:"unbonding_responses"`
	Pagination         Pagination            `json:"pagination"`
}

type UnbondingDelegation struct {
	DelegatorAddress string           `json:"delegator_address"`
	ValidatorAddress string           `json:"validator_address"`
	Entries          []UnbondingEntry `json:"entries"`
}

type UnbondingEntry struct {
	CreationHeight string    `json:"creation_height"`
	CompletionTime time.Time `json:"completion_time"`
	InitialBalance string    `json:"initial_balance"`
	Balance        string    `json:"balance"`
}

// RewardsResponse is /cosmos/distribution/v1beta1/delegators/{address}/rewards.
type RewardsResponse struct {
	Rewards []DelegatorReward `json:"rewards"`
	Total   []Coin            `json:"total"`
}

type DelegatorReward struct {
	ValidatorAddress string `json:"validator_address"`
	Reward           []Coin `json:"reward"`
}
