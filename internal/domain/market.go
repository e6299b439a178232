package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MarketData is the latest known quote for an asset.
type MarketData struct {
	Price             decimal.Decimal `json:"price"`
	ChangePercent24Hr float64         `json:"changePercent24Hr"`
}

// Validator is staking reference data keyed by operator address.
type Validator struct {
	Address    string `json:"address"`
	Moniker    string `json:"moniker"`
	APR        string `json:"apr"`
	Tokens     string `json:"tokens"`
	Commission string `json:"commission,omitempty"`
}

// FetchStatus tracks the lifecycle of an asynchronous fetch.
type FetchStatus string

const (
	FetchStatusIdle    FetchStatus = "idle"
	FetchStatusLoading FetchStatus = "loading"
	FetchStatusLoaded  FetchStatus = "loaded"
	FetchStatusError   FetchStatus = "error"
)

// FetchError is the tagged result of a failed collaborator call.
type FetchError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("%s (status %d)", e.Message, e.Status)
}
