// Package selector computes derived wallet views (fiat balances, allocation,
// staking totals) from store snapshots. Every selector is a pure function of
// the snapshot and its parameters; results are memoized by the generations of
// the snapshot slices they read.
//
// Missing data never produces an error: absent balances, prices, precisions
// or staking records are treated as zero.
package selector

import (
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/mtlprog/walletview/internal/domain"
)

// Filter narrows a selector to an asset and optionally an account.
type Filter struct {
	AssetID   string                  `json:"assetId"`
	AccountID domain.AccountSpecifier `json:"accountId,omitempty"`
}

// Selectors owns the memo cache shared by all selectors.
type Selectors struct {
	cache            *lru.Cache[memoKey, any]
	recorder         Recorder
	defaultValidator string
}

// Option configures Selectors.
type Option func(*Selectors)

// WithCacheSize bounds the number of memoized results.
func WithCacheSize(n int) Option {
	return func(s *Selectors) { s.cache = newCache(n) }
}

// WithRecorder reports cache hits and misses.
func WithRecorder(r Recorder) Option {
	return func(s *Selectors) { s.recorder = r }
}

// WithDefaultValidator sets the validator offered as a staking opportunity
// to accounts that have not staked yet.
func WithDefaultValidator(address string) Option {
	return func(s *Selectors) { s.defaultValidator = address }
}

// New creates a Selectors instance.
func New(opts ...Option) *Selectors {
	s := &Selectors{cache: newCache(defaultCacheSize)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AssetFiatBalance is one entry of a fiat-sorted balance list.
type AssetFiatBalance struct {
	AssetID string `json:"assetId"`
	Fiat    string `json:"fiat"`
}

// AccountFiatBalance is one entry of a fiat-sorted account list.
type AccountFiatBalance struct {
	AccountID domain.AccountSpecifier `json:"accountId"`
	Fiat      string                  `json:"fiat"`
}

// MixedBalance pairs a human crypto amount with its fiat value.
type MixedBalance struct {
	Crypto string `json:"crypto"`
	Fiat   string `json:"fiat"`
}

// AccountRow is a display row for one held asset.
type AccountRow struct {
	AssetID      string  `json:"assetId"`
	Name         string  `json:"name"`
	Icon         string  `json:"icon"`
	Symbol       string  `json:"symbol"`
	FiatAmount   string  `json:"fiatAmount"`
	CryptoAmount string  `json:"cryptoAmount"`
	Allocation   float64 `json:"allocation"`
	Price        string  `json:"price"`
	PriceChange  float64 `json:"priceChange"`
}
