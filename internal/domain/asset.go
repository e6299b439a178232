package domain

import (
	"strings"

	"github.com/samber/lo"
)

// Asset is immutable reference data for a chain-namespaced asset.
type Asset struct {
	ID          string `json:"assetId" yaml:"assetId"`
	ChainID     string `json:"chainId" yaml:"chainId"`
	Symbol      string `json:"symbol" yaml:"symbol"`
	Name        string `json:"name" yaml:"name"`
	Precision   int    `json:"precision" yaml:"precision"`
	Icon        string `json:"icon" yaml:"icon"`
	CoinGeckoID string `json:"coingeckoId,omitempty" yaml:"coingeckoId"`
	// Denom is the on-chain denomination for Cosmos SDK assets, e.g. "uatom".
	Denom string `json:"denom,omitempty" yaml:"denom"`
}

// Fee assets of the supported chains.
const (
	ETHAssetID  = "eip155:1/slip44:60"
	BTCAssetID  = "bip122:000000000019d6689c085ae165831e93/slip44:0"
	ATOMAssetID = "cosmos:cosmoshub-4/slip44:118"
	OSMOAssetID = "cosmos:osmosis-1/slip44:118"
)

// feeAssetIDs is ordered; chain buckets follow this order.
var feeAssetIDs = []string{ETHAssetID, BTCAssetID, ATOMAssetID, OSMOAssetID}

// FeeAssetIDs returns the fee asset of every supported chain.
func FeeAssetIDs() []string {
	return append([]string(nil), feeAssetIDs...)
}

// IsFeeAsset reports whether assetID is the native fee asset of its chain.
func IsFeeAsset(assetID string) bool {
	return lo.Contains(feeAssetIDs, assetID)
}

// ChainIDFromAssetID returns the chain part of an asset identifier ("cosmos:cosmoshub-4").
func ChainIDFromAssetID(assetID string) string {
	chainID, _, _ := strings.Cut(assetID, "/")
	return chainID
}

// FeeAssetID returns the fee asset for a chain.
func FeeAssetID(chainID string) (string, bool) {
	return lo.Find(feeAssetIDs, func(id string) bool {
		return ChainIDFromAssetID(id) == chainID
	})
}
