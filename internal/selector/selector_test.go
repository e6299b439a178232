package selector

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

const (
	foxAssetID = "eip155:1/erc20:0xc770eefad204b5180df6a14ee197d99d808ee52d"

	cosmosAcc = domain.AccountSpecifier("cosmos:cosmoshub-4:cosmos1aaa")
	ethAcc    = domain.AccountSpecifier("eip155:1:0xabc")
	osmoAcc   = domain.AccountSpecifier("cosmos:osmosis-1:osmo1aaa")

	val1 = "cosmosvaloper1one"
	val2 = "cosmosvaloper1two"
	val3 = "cosmosvaloper1three"
)

// newFixture builds a portfolio worth 1014.00:
// ATOM 10.00, ETH 1000.00, FOX 1.00, OSMO 3.00.
func newFixture(t *testing.T) *store.Store {
	t.Helper()

	s := store.New()
	s.UpsertAssets(
		domain.Asset{ID: domain.ATOMAssetID, ChainID: "cosmos:cosmoshub-4", Symbol: "ATOM", Name: "Cosmos", Precision: 6, Icon: "atom.png"},
		domain.Asset{ID: domain.OSMOAssetID, ChainID: "cosmos:osmosis-1", Symbol: "OSMO", Name: "Osmosis", Precision: 6},
		domain.Asset{ID: domain.ETHAssetID, ChainID: "eip155:1", Symbol: "ETH", Name: "Ethereum", Precision: 18},
		domain.Asset{ID: foxAssetID, ChainID: "eip155:1", Symbol: "FOX", Name: "Fox", Precision: 18},
	)
	s.UpsertMarketData(map[string]domain.MarketData{
		domain.ATOMAssetID: {Price: decimal.NewFromInt(10), ChangePercent24Hr: -2.5},
		domain.OSMOAssetID: {Price: decimal.NewFromInt(1)},
		domain.ETHAssetID:  {Price: decimal.NewFromInt(2000), ChangePercent24Hr: 3},
		foxAssetID:         {Price: decimal.RequireFromString("0.5")},
	})
	s.UpsertPortfolio(
		store.AccountUpdate{
			AccountID: cosmosAcc,
			Addresses: []string{"cosmos1AAA"},
			Balances:  []store.Balance{{AssetID: domain.ATOMAssetID, Amount: "1000000"}},
			StakingData: &domain.StakingData{
				Delegations: []domain.Delegation{
					{Validator: val1, AssetID: domain.ATOMAssetID, Amount: "500000"},
					{Validator: val2, AssetID: domain.ATOMAssetID, Amount: "2000000"},
				},
				Undelegations: []domain.Undelegation{
					{Validator: val1, Entries: []domain.UndelegationEntry{
						{AssetID: domain.ATOMAssetID, Amount: "100"},
						{AssetID: domain.ATOMAssetID, Amount: "200"},
					}},
				},
				Rewards: []domain.ValidatorReward{
					{Validator: val1, Rewards: []domain.Reward{{AssetID: domain.ATOMAssetID, Amount: "1500.5"}}},
					{Validator: val3, Rewards: []domain.Reward{{AssetID: domain.ATOMAssetID, Amount: "0.4"}}},
				},
			},
		},
		store.AccountUpdate{
			AccountID: ethAcc,
			Addresses: []string{"0xAbC"},
			Balances: []store.Balance{
				{AssetID: domain.ETHAssetID, Amount: "500000000000000000"},
				{AssetID: foxAssetID, Amount: "2000000000000000000"},
			},
		},
		store.AccountUpdate{
			AccountID: osmoAcc,
			Balances:  []store.Balance{{AssetID: domain.OSMOAssetID, Amount: "3000000"}},
		},
	)
	s.UpsertValidatorData(domain.Validator{Address: val1, Moniker: "One", APR: "0.15", Tokens: "1000000000000"})
	return s
}

func assertDecimal(t *testing.T, name, got, want string) {
	t.Helper()
	if !domain.SafeParse(got).Equal(domain.SafeParse(want)) || (got == "" && want != "") {
		t.Errorf("%s = %q, want %q", name, got, want)
	}
}
