package export

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/samber/lo"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/history"
)

// Writer writes a portfolio summary to a spreadsheet destination.
type Writer interface {
	Write(ctx context.Context, s history.Summary) error
}

// Service fans a summary out to every configured Writer.
type Service struct {
	writers []Writer
}

// NewService creates a new export Service. Nil writers are skipped.
func NewService(writers ...Writer) *Service {
	return &Service{writers: lo.Filter(writers, func(w Writer, _ int) bool { return w != nil })}
}

// Export writes the summary with every writer. A failing writer does not stop
// the others; all failures are returned joined.
// Implements worker.AfterHistoryHook.
func (s *Service) Export(ctx context.Context, summary history.Summary) error {
	var errs []error
	for _, w := range s.writers {
		if err := w.Write(ctx, summary); err != nil {
			slog.Error("export: writer failed", "writer", fmt.Sprintf("%T", w), "error", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

var portfolioHeader = []any{"Asset", "Symbol", "Amount", "Price", "Fiat", "Allocation %", "24h Change %"}

// BuildRows builds the PORTFOLIO table: one row per asset in summary order.
// Columns: Asset | Symbol | Amount | Price | Fiat | Allocation % | 24h Change %
func BuildRows(s history.Summary) [][]any {
	data := make([][]any, 0, len(s.Assets)+2)
	data = append(data, portfolioHeader)
	for _, a := range s.Assets {
		data = append(data, []any{
			a.AssetID,
			a.Symbol,
			toFloat(a.CryptoAmount),
			toFloat(a.Price),
			toFloat(a.FiatAmount),
			a.Allocation,
			a.PriceChange,
		})
	}
	data = append(data, []any{"Total", "", nil, nil, toFloat(s.TotalFiat), 100.0, nil})
	return data
}

// BuildAccountRows builds the ACCOUNTS table sorted by descending fiat value.
// Columns: Account | Chain | Fiat
func BuildAccountRows(s history.Summary) [][]any {
	ids := lo.Keys(s.Accounts)
	slices.SortStableFunc(ids, func(a, b domain.AccountSpecifier) int {
		if c := domain.SafeParse(s.Accounts[b]).Cmp(domain.SafeParse(s.Accounts[a])); c != 0 {
			return c
		}
		return cmp.Compare(a, b)
	})

	data := [][]any{{"Account", "Chain", "Fiat"}}
	for _, id := range ids {
		data = append(data, []any{string(id), id.ChainID(), toFloat(s.Accounts[id])})
	}
	return data
}

// BuildStakingRows builds the STAKING table.
// Columns: Account | Asset | Staked Fiat | Validators | Active
func BuildStakingRows(s history.Summary) [][]any {
	data := [][]any{{"Account", "Asset", "Staked Fiat", "Validators", "Active"}}
	for _, st := range s.Staking {
		data = append(data, []any{string(st.AccountID), st.AssetID, toFloat(st.TotalFiat), st.Validators, st.ActiveStaking})
	}
	return data
}

func toFloat(s string) float64 {
	f, _ := domain.SafeParse(s).Float64()
	return f
}
