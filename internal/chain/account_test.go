package chain

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mtlprog/walletview/internal/domain"
)

type mockResolver map[string]string

func (m mockResolver) AssetIDForDenom(chainID, denom string) (string, bool) {
	id, ok := m[chainID+"|"+denom]
	return id, ok
}

func TestFetchAccount(t *testing.T) {
	server := newLCDServer(t, nil)
	defer server.Close()

	svc := NewAccountService(
		map[string]*Client{"cosmos:cosmoshub-4": NewClient(server.URL, 0, 10*time.Millisecond)},
		mockResolver{"cosmos:cosmoshub-4|uatom": domain.ATOMAssetID},
	)
	accountID := domain.NewAccountSpecifier("cosmos:cosmoshub-4", "cosmos1abc")

	update, err := svc.FetchAccount(context.Background(), accountID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if update.AccountID != accountID {
		t.Errorf("account = %q, want %q", update.AccountID, accountID)
	}
	if len(update.Addresses) != 1 || update.Addresses[0] != "cosmos1abc" {
		t.Errorf("addresses = %v", update.Addresses)
	}
	if len(update.Balances) != 1 || update.Balances[0].AssetID != domain.ATOMAssetID || update.Balances[0].Amount != "1000000" {
		t.Errorf("balances = %+v, want only ATOM 1000000", update.Balances)
	}

	sd := update.StakingData
	if sd == nil {
		t.Fatal("staking data is nil")
	}
	if len(sd.Delegations) != 1 || sd.Delegations[0].Amount != "500000" || sd.Delegations[0].Validator != "cosmosvaloper1abc" {
		t.Errorf("delegations = %+v", sd.Delegations)
	}
	if len(sd.Undelegations) != 1 || len(sd.Undelegations[0].Entries) != 2 {
		t.Fatalf("undelegations = %+v", sd.Undelegations)
	}
	entry := sd.Undelegations[0].Entries[1]
	if entry.AssetID != domain.ATOMAssetID || entry.Amount != "200" {
		t.Errorf("entry = %+v", entry)
	}
	if want := time.Date(2026, 11, 2, 0, 0, 0, 0, time.UTC); !entry.CompletionTime.Equal(want) {
		t.Errorf("completion = %v, want %v", entry.CompletionTime, want)
	}
	if len(sd.Rewards) != 1 || sd.Rewards[0].Rewards[0].Amount != "1500.500000000000000000" {
		t.Errorf("rewards = %+v", sd.Rewards)
	}
}

func TestFetchAccountErrors(t *testing.T) {
	svc := NewAccountService(map[string]*Client{}, mockResolver{})

	tests := []struct {
		name      string
		accountID domain.AccountSpecifier
		wantErr   error
	}{
		{"malformed specifier", "cosmos1abc", domain.ErrInvalidAccountSpecifier},
		{"no client for chain", "cosmos:juno-1:juno1abc", ErrUnsupportedChain},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.FetchAccount(context.Background(), tt.accountID)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
