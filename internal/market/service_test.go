package market

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

type mockFetcher struct {
	ids  []string
	data map[string]domain.MarketData
	err  error
}

func (m *mockFetcher) FetchMarketData(_ context.Context, ids []string) (map[string]domain.MarketData, error) {
	m.ids = ids
	return m.data, m.err
}

type mockQuoteRepo struct {
	saved  []Quote
	stored []Quote
}

func (m *mockQuoteRepo) SaveQuotes(_ context.Context, quotes []Quote) error {
	m.saved = append(m.saved, quotes...)
	return nil
}

func (m *mockQuoteRepo) GetAllQuotes(_ context.Context) ([]Quote, error) {
	return m.stored, nil
}

func newAssetStore() *store.Store {
	st := store.New()
	st.UpsertAssets(
		domain.Asset{ID: domain.ATOMAssetID, Precision: 6, CoinGeckoID: "cosmos"},
		domain.Asset{ID: "cosmos:osmosis-1/ibc:27394FB0", Precision: 6, CoinGeckoID: "cosmos"},
		domain.Asset{ID: domain.ETHAssetID, Precision: 18, CoinGeckoID: "ethereum"},
		domain.Asset{ID: "eip155:1/erc20:0xunpriced", Precision: 18},
	)
	return st
}

func TestRefreshUpsertsQuotes(t *testing.T) {
	st := newAssetStore()
	fetcher := &mockFetcher{data: map[string]domain.MarketData{
		"cosmos": {Price: decimal.NewFromInt(9), ChangePercent24Hr: -1},
	}}
	repo := &mockQuoteRepo{}
	svc := NewService(fetcher, repo, st)

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(fetcher.ids) != 2 {
		t.Errorf("requested ids = %v, want cosmos and ethereum once", fetcher.ids)
	}

	market := st.Snapshot().Market
	if !market.Price(domain.ATOMAssetID).Equal(decimal.NewFromInt(9)) {
		t.Errorf("ATOM price = %s, want 9", market.Price(domain.ATOMAssetID))
	}
	if !market.Price("cosmos:osmosis-1/ibc:27394FB0").Equal(decimal.NewFromInt(9)) {
		t.Error("asset sharing a CoinGecko id did not get the quote")
	}
	if _, ok := market.ByAssetID[domain.ETHAssetID]; ok {
		t.Error("ETH has no quote and should stay absent")
	}
	if len(repo.saved) != 2 {
		t.Errorf("saved quotes = %d, want 2", len(repo.saved))
	}
}

func TestRefreshErrorLeavesStoreUntouched(t *testing.T) {
	st := newAssetStore()
	gen := st.Snapshot().Market.Generation()
	svc := NewService(&mockFetcher{err: errors.New("down")}, nil, st)

	if err := svc.Refresh(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if st.Snapshot().Market.Generation() != gen {
		t.Error("failed refresh changed market data")
	}
}

func TestRefreshWithoutPricedAssets(t *testing.T) {
	fetcher := &mockFetcher{}
	svc := NewService(fetcher, nil, store.New())

	if err := svc.Refresh(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if fetcher.ids != nil {
		t.Errorf("fetcher called with %v", fetcher.ids)
	}
}

func TestWarmLoadsStoredQuotes(t *testing.T) {
	st := store.New()
	repo := &mockQuoteRepo{stored: []Quote{
		{AssetID: domain.ATOMAssetID, PriceUSD: decimal.RequireFromString("8.5"), ChangePercent24Hr: 2},
	}}
	svc := NewService(&mockFetcher{}, repo, st)

	if err := svc.Warm(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	md := st.Snapshot().Market.ByAssetID[domain.ATOMAssetID]
	if md.Price.String() != "8.5" || md.ChangePercent24Hr != 2 {
		t.Errorf("ATOM market = %+v", md)
	}
}
