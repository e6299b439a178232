package selector

import (
	"math"
	"slices"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

func TestPortfolioAssetIDsSortedFiat(t *testing.T) {
	got := New().PortfolioAssetIDsSortedFiat(newFixture(t).Snapshot())
	want := []string{domain.ETHAssetID, domain.ATOMAssetID, domain.OSMOAssetID, foxAssetID}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestSortedFiatTiesKeepInputOrder(t *testing.T) {
	s := store.New()
	s.UpsertAssets(
		domain.Asset{ID: "a", Precision: 0},
		domain.Asset{ID: "b", Precision: 0},
		domain.Asset{ID: "c", Precision: 0},
	)
	s.UpsertMarketData(map[string]domain.MarketData{
		"a": {Price: decimal.NewFromInt(1)},
		"b": {Price: decimal.NewFromInt(1)},
		"c": {Price: decimal.NewFromInt(1)},
	})
	s.UpsertPortfolio(store.AccountUpdate{
		AccountID: "cosmos:cosmoshub-4:cosmos1",
		Balances: []store.Balance{
			{AssetID: "b", Amount: "5"},
			{AssetID: "a", Amount: "5"},
			{AssetID: "c", Amount: "7"},
		},
	})

	got := New().PortfolioAssetIDsSortedFiat(s.Snapshot())
	want := []string{"c", "b", "a"}
	if !slices.Equal(got, want) {
		t.Errorf("sorted = %v, want %v", got, want)
	}
}

func TestPortfolioAllocationPercent(t *testing.T) {
	alloc := New().PortfolioAllocationPercent(newFixture(t).Snapshot())

	tests := []struct {
		assetID string
		want    float64
	}{
		{domain.ETHAssetID, 1000.0 / 1014.0 * 100},
		{domain.ATOMAssetID, 10.0 / 1014.0 * 100},
		{foxAssetID, 1.0 / 1014.0 * 100},
	}
	for _, tt := range tests {
		t.Run(tt.assetID, func(t *testing.T) {
			if math.Abs(alloc[tt.assetID]-tt.want) > 1e-9 {
				t.Errorf("allocation = %v, want %v", alloc[tt.assetID], tt.want)
			}
		})
	}

	var sum float64
	for _, v := range alloc {
		sum += v
	}
	if math.Abs(sum-100) > 1e-9 {
		t.Errorf("allocations sum to %v, want 100", sum)
	}
}

func TestAllocationWithZeroTotal(t *testing.T) {
	s := store.New()
	s.UpsertAssets(domain.Asset{ID: domain.ATOMAssetID, Precision: 6})
	s.UpsertPortfolio(store.AccountUpdate{
		AccountID: cosmosAcc,
		Balances:  []store.Balance{{AssetID: domain.ATOMAssetID, Amount: "1000000"}},
	})
	sel := New()
	snap := s.Snapshot()

	if got := sel.PortfolioAllocationPercent(snap)[domain.ATOMAssetID]; got != 0 {
		t.Errorf("allocation = %v, want 0", got)
	}
	if got := sel.PortfolioAllocationPercentByFilter(snap, Filter{AssetID: domain.ATOMAssetID, AccountID: cosmosAcc}); got != 0 {
		t.Errorf("allocation by filter = %v, want 0", got)
	}
	for _, row := range sel.PortfolioAccountRows(snap) {
		if row.Allocation != 0 {
			t.Errorf("row %s allocation = %v, want 0", row.AssetID, row.Allocation)
		}
	}
}

func TestPortfolioAllocationPercentByFilter(t *testing.T) {
	s := newFixture(t)
	s.UpsertPortfolio(store.AccountUpdate{
		AccountID: "eip155:1:0xdef",
		Balances:  []store.Balance{{AssetID: domain.ETHAssetID, Amount: "1500000000000000000"}},
	})
	sel := New()
	snap := s.Snapshot()

	got := sel.PortfolioAllocationPercentByFilter(snap, Filter{AssetID: domain.ETHAssetID, AccountID: ethAcc})
	if math.Abs(got-25) > 1e-9 {
		t.Errorf("allocation = %v, want 25", got)
	}
}

func TestPortfolioTotalFiatBalanceByAccount(t *testing.T) {
	s := newFixture(t)
	s.SetBalanceThreshold(decimal.NewFromInt(5))

	got := New().PortfolioTotalFiatBalanceByAccount(s.Snapshot())
	if got[ethAcc] != "1001.00" {
		t.Errorf("eth account = %q, want 1001.00", got[ethAcc])
	}
	if got[cosmosAcc] != "10.00" {
		t.Errorf("cosmos account = %q, want 10.00", got[cosmosAcc])
	}
	if _, ok := got[osmoAcc]; ok {
		t.Error("osmosis account below threshold should be omitted")
	}
}

func TestPortfolioAccountIDsSortedFiatGroupsByChain(t *testing.T) {
	s := newFixture(t)
	bigCosmos := domain.AccountSpecifier("cosmos:cosmoshub-4:cosmos1bbb")
	smallEth := domain.AccountSpecifier("eip155:1:0xdef")
	s.UpsertPortfolio(
		store.AccountUpdate{
			AccountID: bigCosmos,
			Balances:  []store.Balance{{AssetID: domain.ATOMAssetID, Amount: "50000000"}},
		},
		store.AccountUpdate{
			AccountID: smallEth,
			Balances:  []store.Balance{{AssetID: domain.ETHAssetID, Amount: "500000000000000"}},
		},
	)

	// by value: ethAcc 1001, bigCosmos 500, cosmosAcc 10, osmoAcc 3, smallEth 1
	got := New().PortfolioAccountIDsSortedFiat(s.Snapshot())
	want := []domain.AccountSpecifier{ethAcc, smallEth, bigCosmos, cosmosAcc, osmoAcc}
	if !slices.Equal(got, want) {
		t.Errorf("accounts = %v, want %v", got, want)
	}
}

func TestPortfolioAssetIDsByAccountIDExcludeFeeAsset(t *testing.T) {
	tests := []struct {
		name      string
		threshold int64
		want      []string
	}{
		{"fee asset removed", 0, []string{foxAssetID}},
		{"token below threshold", 2, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newFixture(t)
			s.SetBalanceThreshold(decimal.NewFromInt(tt.threshold))
			got := New().PortfolioAssetIDsByAccountIDExcludeFeeAsset(s.Snapshot(), ethAcc)
			if len(got) != len(tt.want) || (len(got) > 0 && !slices.Equal(got, tt.want)) {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPortfolioAssetAccountBalancesSortedFiat(t *testing.T) {
	got := New().PortfolioAssetAccountBalancesSortedFiat(newFixture(t).Snapshot())[ethAcc]
	if len(got) != 2 || got[0].AssetID != domain.ETHAssetID || got[1].Fiat != "1.00" {
		t.Errorf("eth account entries = %+v", got)
	}
}

func TestPortfolioAccountRows(t *testing.T) {
	s := newFixture(t)
	s.SetBalanceThreshold(decimal.NewFromInt(2))

	rows := New().PortfolioAccountRows(s.Snapshot())
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(rows))
	}

	var eth AccountRow
	for _, r := range rows {
		if r.AssetID == foxAssetID {
			t.Error("FOX below threshold should have no row")
		}
		if r.AssetID == domain.ETHAssetID {
			eth = r
		}
	}

	if eth.CryptoAmount != "0.5" || eth.FiatAmount != "1000.00" {
		t.Errorf("ETH amounts = %q / %q", eth.CryptoAmount, eth.FiatAmount)
	}
	if eth.Symbol != "ETH" || eth.Name != "Ethereum" {
		t.Errorf("ETH metadata = %q / %q", eth.Symbol, eth.Name)
	}
	if eth.Price != "2000" || eth.PriceChange != 3 {
		t.Errorf("ETH market = %q / %v", eth.Price, eth.PriceChange)
	}
	if want := 1000.0 / 1013.0 * 100; math.Abs(eth.Allocation-want) > 1e-9 {
		t.Errorf("ETH allocation = %v, want %v", eth.Allocation, want)
	}
}
