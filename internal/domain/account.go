package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samber/lo"
)

// ErrInvalidAccountSpecifier is returned for keys not shaped like "<namespace>:<reference>:<account>".
var ErrInvalidAccountSpecifier = errors.New("invalid account specifier")

// AccountSpecifier identifies one account on one chain, e.g.
// "cosmos:cosmoshub-4:cosmos1qz...". It is the primary key for per-account data.
type AccountSpecifier string

// NewAccountSpecifier joins a chain ID and an account address.
func NewAccountSpecifier(chainID, account string) AccountSpecifier {
	return AccountSpecifier(chainID + ":" + account)
}

// ParseAccountSpecifier validates s.
func ParseAccountSpecifier(s string) (AccountSpecifier, error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || lo.Contains(parts, "") {
		return "", fmt.Errorf("%w: %q", ErrInvalidAccountSpecifier, s)
	}
	return AccountSpecifier(s), nil
}

// ChainID returns the "<namespace>:<reference>" prefix.
func (a AccountSpecifier) ChainID() string {
	parts := strings.SplitN(string(a), ":", 3)
	if len(parts) < 2 {
		return ""
	}
	return parts[0] + ":" + parts[1]
}

// Account returns the on-chain address or public key part.
func (a AccountSpecifier) Account() string {
	parts := strings.SplitN(string(a), ":", 3)
	if len(parts) < 3 {
		return ""
	}
	return parts[2]
}

// FeeAssetID returns the fee asset of the account's chain, or "" for unsupported chains.
func (a AccountSpecifier) FeeAssetID() string {
	id, _ := FeeAssetID(a.ChainID())
	return id
}

func (a AccountSpecifier) String() string { return string(a) }
