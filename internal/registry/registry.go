// Package registry loads asset reference data from YAML.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mtlprog/walletview/internal/domain"
)

//go:embed assets.yaml
var defaultAssets []byte

// ErrInvalidAsset is returned for registry entries that cannot be used.
var ErrInvalidAsset = errors.New("invalid asset")

type file struct {
	Assets []domain.Asset `yaml:"assets"`
}

type denomKey struct {
	chainID string
	denom   string
}

// Registry is the set of known assets.
type Registry struct {
	assets  []domain.Asset
	byDenom map[denomKey]string
}

// Load reads a registry file. An empty path loads the built-in registry.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Parse(defaultAssets)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading asset registry: %w", err)
	}
	r, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}
	return r, nil
}

// Parse builds a Registry from YAML.
func Parse(data []byte) (*Registry, error) {
	var f file
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing asset registry: %w", err)
	}

	r := &Registry{byDenom: make(map[denomKey]string)}
	seen := make(map[string]bool, len(f.Assets))
	for i, a := range f.Assets {
		if a.ID == "" {
			return nil, fmt.Errorf("%w: entry %d has no assetId", ErrInvalidAsset, i)
		}
		if seen[a.ID] {
			return nil, fmt.Errorf("%w: duplicate assetId %s", ErrInvalidAsset, a.ID)
		}
		if a.Precision < 0 {
			return nil, fmt.Errorf("%w: %s has negative precision", ErrInvalidAsset, a.ID)
		}
		seen[a.ID] = true

		if a.ChainID == "" {
			a.ChainID = domain.ChainIDFromAssetID(a.ID)
		}
		if a.Denom != "" {
			r.byDenom[denomKey{a.ChainID, a.Denom}] = a.ID
		}
		r.assets = append(r.assets, a)
	}
	return r, nil
}

// Assets returns all assets in file order.
func (r *Registry) Assets() []domain.Asset {
	return append([]domain.Asset(nil), r.assets...)
}

// AssetIDForDenom maps an on-chain denom to an asset ID.
func (r *Registry) AssetIDForDenom(chainID, denom string) (string, bool) {
	id, ok := r.byDenom[denomKey{chainID, denom}]
	return id, ok
}
