package chain

import (
	"context"
	"fmt"
	"net/url"

	"github.com/patrickmn/go-cache"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/mtlprog/walletview/internal/domain"
)

const (
	pageLimit = "200"
	aprKey    = "network_apr"
)

// collectPages follows pagination.next_key until the last page.
func collectPages[R, T any](ctx context.Context, c *Client, path string, items func(R) ([]T, Pagination)) ([]T, error) {
	var out []T
	key := ""
	for {
		q := url.Values{}
		q.Set("pagination.limit", pageLimit)
		if key != "" {
			q.Set("pagination.key", key)
		}

		var resp R
		if err := c.getJSON(ctx, path+"?"+q.Encode(), &resp); err != nil {
			return nil, err
		}
		page, p := items(resp)
		out = append(out, page...)

		if p.NextKey == nil || *p.NextKey == "" {
			return out, nil
		}
		key = *p.NextKey
	}
}

// GetBalances returns all bank balances of an address.
func (c *Client) GetBalances(ctx context.Context, address string) ([]Coin, error) {
	coins, err := collectPages(ctx, c, "/cosmos/bank/v1beta1/balances/"+url.PathEscape(address),
		func(r BalancesResponse) ([]Coin, Pagination) { return r.Balances, r.Pagination })
	if err != nil {
		return nil, fmt.Errorf("fetching balances of %s: %w", address, err)
	}
	return coins, nil
}

// GetDelegations returns the active delegations of an address.
func (c *Client) GetDelegations(ctx context.Context, address string) ([]DelegationResponse, error) {
	ds, err := collectPages(ctx, c, "/cosmos/staking/v1beta1/delegations/"+url.PathEscape(address),
		func(r DelegationsResponse) ([]DelegationResponse, Pagination) {
			return r.DelegationResponses, r.Pagination
		})
	if err != nil {
		return nil, fmt.Errorf("fetching delegations of %s: %w", address, err)
	}
	return ds, nil
}

// GetUnbondingDelegations returns pending undelegations of an address.
func (c *Client) GetUnbondingDelegations(ctx context.Context, address string) ([]UnbondingDelegation, error) {
	path := fmt.Sprintf("/cosmos/staking/v1beta1/delegators/%s/unbonding_delegations", url.PathEscape(address))
	us, err := collectPages(ctx, c, path,
		func(r UnbondingResponse) ([]UnbondingDelegation, Pagination) {
			return r.UnbondingResponses, r.Pagination
		})
	if err != nil {
		return nil, fmt.Errorf("fetching unbonding delegations of %s: %w", address, err)
	}
	return us, nil
}

// GetRewards returns accrued distribution rewards per validator.
func (c *Client) GetRewards(ctx context.Context, address string) ([]DelegatorReward, error) {
	var resp RewardsResponse
	path := fmt.Sprintf("/cosmos/distribution/v1beta1/delegators/%s/rewards", url.PathEscape(address))
	if err := c.getJSON(ctx, path, &resp); err != nil {
		return nil, fmt.Errorf("fetching rewards of %s: %w", address, err)
	}
	return resp.Rewards, nil
}

// GetValidator returns validator metadata with an estimated APR net of commission.
func (c *Client) GetValidator(ctx context.Context, address string) (domain.Validator, error) {
	var (
		resp ValidatorResponse
		apr  decimal.Decimal
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return c.getJSON(gctx, "/cosmos/staking/v1beta1/validators/"+url.PathEscape(address), &resp)
	})
	g.Go(func() error {
		var err error
		apr, err = c.networkAPR(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return domain.Validator{}, fmt.Errorf("fetching validator %s: %w", address, err)
	}

	v := resp.Validator
	commission := domain.SafeParse(v.Commission.CommissionRates.Rate)
	return domain.Validator{
		Address:    v.OperatorAddress,
		Moniker:    v.Description.Moniker,
		APR:        apr.Mul(decimal.NewFromInt(1).Sub(commission)).Round(6).String(),
		Tokens:     v.Tokens,
		Commission: commission.String(),
	}, nil
}

// networkAPR estimates the staking APR before commission:
// inflation * (1 - community tax) * supply / bonded tokens.
func (c *Client) networkAPR(ctx context.Context) (decimal.Decimal, error) {
	if v, ok := c.aprCache.Get(aprKey); ok {
		return v.(decimal.Decimal), nil
	}

	var (
		inflation inflationResponse
		pool      poolResponse
		distr     distributionParamsResponse
		staking   stakingParamsResponse
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return c.getJSON(gctx, "/cosmos/mint/v1beta1/inflation", &inflation) })
	g.Go(func() error { return c.getJSON(gctx, "/cosmos/staking/v1beta1/pool", &pool) })
	g.Go(func() error { return c.getJSON(gctx, "/cosmos/distribution/v1beta1/params", &distr) })
	g.Go(func() error { return c.getJSON(gctx, "/cosmos/staking/v1beta1/params", &staking) })
	if err := g.Wait(); err != nil {
		return decimal.Zero, fmt.Errorf("fetching staking parameters: %w", err)
	}

	var supply supplyResponse
	q := url.Values{"denom": {staking.Params.BondDenom}}
	if err := c.getJSON(ctx, "/cosmos/bank/v1beta1/supply/by_denom?"+q.Encode(), &supply); err != nil {
		return decimal.Zero, fmt.Errorf("fetching supply of %s: %w", staking.Params.BondDenom, err)
	}

	bonded := domain.SafeParse(pool.Pool.BondedTokens)
	if bonded.IsZero() {
		return decimal.Zero, nil
	}
	apr := domain.SafeParse(inflation.Inflation).
		Mul(decimal.NewFromInt(1).Sub(domain.SafeParse(distr.Params.CommunityTax))).
		Mul(domain.SafeParse(supply.Amount.Amount)).
		Div(bonded)

	c.aprCache.Set(aprKey, apr, cache.DefaultExpiration)
	return apr, nil
}
