// Package history persists daily portfolio summaries.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/selector"
	"github.com/mtlprog/walletview/internal/store"
)

// ErrPortfolioNotLoaded is returned when no account has been loaded yet.
var ErrPortfolioNotLoaded = errors.New("portfolio not loaded")

// SnapshotSource provides the current store snapshot.
type SnapshotSource interface {
	Snapshot() *store.Snapshot
}

// Service generates and retrieves summaries.
type Service struct {
	source    SnapshotSource
	sel       *selector.Selectors
	repo      Repository
	enrichers []Enricher
	now       func() time.Time
}

// NewService creates a history Service. Enrichers run in order after a
// summary is built; their failures are logged and do not abort generation.
func NewService(source SnapshotSource, sel *selector.Selectors, repo Repository, enrichers ...Enricher) *Service {
	return &Service{source: source, sel: sel, repo: repo, enrichers: enrichers, now: time.Now}
}

// Generate builds a summary from the current snapshot and stores it under date.
func (s *Service) Generate(ctx context.Context, date time.Time) (Summary, error) {
	snap := s.source.Snapshot()
	if s.sel.PortfolioLoading(snap) {
		return Summary{}, ErrPortfolioNotLoaded
	}

	summary := Build(s.sel, snap, s.now())
	for _, e := range s.enrichers {
		if err := e.Enrich(ctx, snap, &summary); err != nil {
			slog.Warn("failed to enrich summary", "error", err)
		}
	}

	data, err := json.Marshal(summary)
	if err != nil {
		return Summary{}, fmt.Errorf("marshaling summary: %w", err)
	}

	if err := s.repo.Save(ctx, truncateDay(date), data); err != nil {
		return Summary{}, fmt.Errorf("saving summary: %w", err)
	}

	return summary, nil
}

// GetLatest retrieves the most recent summary.
func (s *Service) GetLatest(ctx context.Context) (*Record, error) {
	return s.repo.GetLatest(ctx)
}

// GetByDate retrieves the summary stored for a day.
func (s *Service) GetByDate(ctx context.Context, date time.Time) (*Record, error) {
	return s.repo.GetByDate(ctx, truncateDay(date))
}

// List retrieves recent summaries, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Record, error) {
	return s.repo.List(ctx, limit)
}

// Change compares the latest summary with the nearest one at least period older.
type Change struct {
	From          time.Time `json:"from"`
	To            time.Time `json:"to"`
	TotalFiatFrom string    `json:"totalFiatFrom"`
	TotalFiatTo   string    `json:"totalFiatTo"`
	Delta         string    `json:"delta"`
	PercentChange float64   `json:"percentChange"`
}

// GetChange returns the change in total fiat value over period.
func (s *Service) GetChange(ctx context.Context, period time.Duration) (Change, error) {
	latest, err := s.repo.GetLatest(ctx)
	if err != nil {
		return Change{}, fmt.Errorf("getting latest summary: %w", err)
	}
	previous, err := s.repo.GetNearestBefore(ctx, latest.SummaryDate.Add(-period))
	if err != nil {
		return Change{}, fmt.Errorf("getting previous summary: %w", err)
	}

	to, err := decodeTotal(latest)
	if err != nil {
		return Change{}, err
	}
	from, err := decodeTotal(previous)
	if err != nil {
		return Change{}, err
	}

	delta := to.Sub(from)
	var pct float64
	if !from.IsZero() {
		pct, _ = delta.Div(from).Mul(decimal.NewFromInt(100)).Float64()
	}
	return Change{
		From:          previous.SummaryDate,
		To:            latest.SummaryDate,
		TotalFiatFrom: domain.FormatFiat(from),
		TotalFiatTo:   domain.FormatFiat(to),
		Delta:         domain.FormatFiat(delta),
		PercentChange: pct,
	}, nil
}

func decodeTotal(rec *Record) (decimal.Decimal, error) {
	var s Summary
	if err := json.Unmarshal(rec.Data, &s); err != nil {
		return decimal.Zero, fmt.Errorf("decoding summary %d: %w", rec.ID, err)
	}
	return domain.SafeParse(s.TotalFiat), nil
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
