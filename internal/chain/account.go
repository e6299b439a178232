package chain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/store"
)

// ErrUnsupportedChain is returned for accounts on a chain without a configured client.
var ErrUnsupportedChain = errors.New("unsupported chain")

// DenomResolver maps an on-chain denom to an asset ID.
type DenomResolver interface {
	AssetIDForDenom(chainID, denom string) (string, bool)
}

// AccountService loads account state from LCD endpoints, one client per chain.
type AccountService struct {
	clients  map[string]*Client
	resolver DenomResolver
}

// NewAccountService creates an AccountService. clients is keyed by CAIP-2 chain ID.
func NewAccountService(clients map[string]*Client, resolver DenomResolver) *AccountService {
	return &AccountService{clients: clients, resolver: resolver}
}

// Client returns the LCD client for a chain.
func (s *AccountService) Client(chainID string) (*Client, bool) {
	c, ok := s.clients[chainID]
	return c, ok
}

// FetchAccount loads balances and staking state of one account.
func (s *AccountService) FetchAccount(ctx context.Context, accountID domain.AccountSpecifier) (store.AccountUpdate, error) {
	if _, err := domain.ParseAccountSpecifier(string(accountID)); err != nil {
		return store.AccountUpdate{}, err
	}
	chainID := accountID.ChainID()
	client, ok := s.clients[chainID]
	if !ok {
		return store.AccountUpdate{}, fmt.Errorf("%w: %s", ErrUnsupportedChain, chainID)
	}
	address := accountID.Account()

	var (
		balances    []Coin
		delegations []DelegationResponse
		unbondings  []UnbondingDelegation
		rewards     []DelegatorReward
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) { balances, err = client.GetBalances(gctx, address); return })
	g.Go(func() (err error) { delegations, err = client.GetDelegations(gctx, address); return })
	g.Go(func() (err error) { unbondings, err = client.GetUnbondingDelegations(gctx, address); return })
	g.Go(func() (err error) { rewards, err = client.GetRewards(gctx, address); return })
	if err := g.Wait(); err != nil {
		return store.AccountUpdate{}, fmt.Errorf("fetching account %s: %w", accountID, err)
	}

	return store.AccountUpdate{
		AccountID: accountID,
		Addresses: []string{address},
		Balances: lo.FilterMap(balances, func(c Coin, _ int) (store.Balance, bool) {
			assetID, ok := s.assetID(chainID, c.Denom)
			return store.Balance{AssetID: assetID, Amount: c.Amount}, ok
		}),
		StakingData: s.stakingData(accountID, delegations, unbondings, rewards),
	}, nil
}

func (s *AccountService) assetID(chainID, denom string) (string, bool) {
	id, ok := s.resolver.AssetIDForDenom(chainID, denom)
	if !ok {
		slog.Debug("skipping unknown denom", "chain", chainID, "denom", denom)
	}
	return id, ok
}

func (s *AccountService) stakingData(
	accountID domain.AccountSpecifier,
	delegations []DelegationResponse,
	unbondings []UnbondingDelegation,
	rewards []DelegatorReward,
) *domain.StakingData {
	chainID := accountID.ChainID()
	// Unbonding entries carry no denom; they are always in the bond denom.
	bondAsset := accountID.FeeAssetID()

	sd := &domain.StakingData{
		Delegations: lo.FilterMap(delegations, func(d DelegationResponse, _ int) (domain.Delegation, bool) {
			assetID, ok := s.assetID(chainID, d.Balance.Denom)
			return domain.Delegation{
				Validator: d.Delegation.ValidatorAddress,
				AssetID:   assetID,
				Amount:    d.Balance.Amount,
			}, ok
		}),
		Undelegations: lo.Map(unbondings, func(u UnbondingDelegation, _ int) domain.Undelegation {
			return domain.Undelegation{
				Validator: u.ValidatorAddress,
				Entries: lo.Map(u.Entries, func(e UnbondingEntry, _ int) domain.UndelegationEntry {
					return domain.UndelegationEntry{AssetID: bondAsset, Amount: e.Balance, CompletionTime: e.CompletionTime}
				}),
			}
		}),
		Rewards: lo.Map(rewards, func(r DelegatorReward, _ int) domain.ValidatorReward {
			return domain.ValidatorReward{
				Validator: r.ValidatorAddress,
				Rewards: lo.FilterMap(r.Reward, func(c Coin, _ int) (domain.Reward, bool) {
					assetID, ok := s.assetID(chainID, c.Denom)
					return domain.Reward{AssetID: assetID, Amount: c.Amount}, ok
				}),
			}
		}),
	}
	return sd
}
