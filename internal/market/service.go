package market

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/samber/lo"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

// Fetcher returns quotes keyed by CoinGecko id.
type Fetcher interface {
	FetchMarketData(ctx context.Context, ids []string) (map[string]domain.MarketData, error)
}

// Service refreshes market data for every asset in the store that has a CoinGecko id.
type Service struct {
	fetcher Fetcher
	repo    QuoteRepository
	store   *store.Store
}

// NewService creates a market Service. repo may be nil.
func NewService(fetcher Fetcher, repo QuoteRepository, st *store.Store) *Service {
	return &Service{fetcher: fetcher, repo: repo, store: st}
}

// Refresh fetches quotes and upserts them into the store. Assets sharing a
// CoinGecko id receive the same quote.
func (s *Service) Refresh(ctx context.Context) error {
	snap := s.store.Snapshot()
	priced := lo.FilterMap(snap.Assets.IDs, func(id string, _ int) (domain.Asset, bool) {
		a := snap.Assets.ByID[id]
		return a, a.CoinGeckoID != ""
	})
	if len(priced) == 0 {
		slog.Debug("no assets with a CoinGecko id, skipping market refresh")
		return nil
	}

	ids := lo.Uniq(lo.Map(priced, func(a domain.Asset, _ int) string { return a.CoinGeckoID }))
	quotes, err := s.fetcher.FetchMarketData(ctx, ids)
	if err != nil {
		return fmt.Errorf("fetching market data: %w", err)
	}

	data := make(map[string]domain.MarketData, len(priced))
	for _, a := range priced {
		if q, ok := quotes[a.CoinGeckoID]; ok {
			data[a.ID] = q
		}
	}
	if len(data) == 0 {
		return nil
	}
	s.store.UpsertMarketData(data)

	if s.repo != nil {
		rows := lo.MapToSlice(data, func(assetID string, md domain.MarketData) Quote {
			return Quote{AssetID: assetID, PriceUSD: md.Price, ChangePercent24Hr: md.ChangePercent24Hr}
		})
		if err := s.repo.SaveQuotes(ctx, rows); err != nil {
			return fmt.Errorf("storing quotes: %w", err)
		}
	}

	slog.Info("market data refreshed", "assets", len(data), "ids", len(ids))
	return nil
}

// Warm loads the last stored quotes into the store.
func (s *Service) Warm(ctx context.Context) error {
	if s.repo == nil {
		return nil
	}
	quotes, err := s.repo.GetAllQuotes(ctx)
	if err != nil {
		return fmt.Errorf("loading stored quotes: %w", err)
	}
	if len(quotes) == 0 {
		return nil
	}
	s.store.UpsertMarketData(lo.SliceToMap(quotes, func(q Quote) (string, domain.MarketData) {
		return q.AssetID, domain.MarketData{Price: q.PriceUSD, ChangePercent24Hr: q.ChangePercent24Hr}
	}))
	slog.Info("loaded stored quotes", "count", len(quotes))
	return nil
}
