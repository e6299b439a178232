package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mtlprog/walletview/internal/domain"
	"github.com/mtlprog/walletview/internal/export"
	"github.com/mtlprog/walletview/internal/history"
	"github.com/mtlprog/walletview/internal/selector"
)

// PortfolioHandler serves derived portfolio views of the current store snapshot.
type PortfolioHandler struct {
	source    history.SnapshotSource
	sel       *selector.Selectors
	enrichers []history.Enricher
}

// NewPortfolioHandler creates a new portfolio handler. Exports add the
// staking section unless other enrichers are given.
func NewPortfolioHandler(source history.SnapshotSource, sel *selector.Selectors, enrichers ...history.Enricher) *PortfolioHandler {
	if len(enrichers) == 0 {
		enrichers = []history.Enricher{history.NewStakingEnricher(sel)}
	}
	return &PortfolioHandler{source: source, sel: sel, enrichers: enrichers}
}

// Overview is the response of GET /api/v1/portfolio.
type Overview struct {
	Loading                  bool               `json:"loading"`
	TotalFiat                string             `json:"totalFiat"`
	TotalFiatWithDelegations string             `json:"totalFiatWithDelegations"`
	DelegationFiat           string             `json:"delegationFiat"`
	AccountCount             int                `json:"accountCount"`
	Allocation               map[string]float64 `json:"allocation"`
}

// AccountEntry is one row of GET /api/v1/portfolio/accounts.
type AccountEntry struct {
	AccountID domain.AccountSpecifier `json:"accountId"`
	ChainID   string                  `json:"chainId"`
	Fiat      string                  `json:"fiat"`
	AssetIDs  []string                `json:"assetIds"`
}

// Balance is the response of GET /api/v1/portfolio/balance.
type Balance struct {
	selector.Filter
	Crypto                string  `json:"crypto"`
	CryptoHuman           string  `json:"cryptoHuman"`
	Fiat                  string  `json:"fiat"`
	Delegated             string  `json:"delegated"`
	CryptoWithDelegations string  `json:"cryptoWithDelegations"`
	FiatWithDelegations   string  `json:"fiatWithDelegations"`
	AllocationPercent     float64 `json:"allocationPercent"`
}

// GetPortfolio handles GET /api/v1/portfolio.
func (h *PortfolioHandler) GetPortfolio(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	writeJSON(w, http.StatusOK, Overview{
		Loading:                  h.sel.PortfolioLoading(snap),
		TotalFiat:                h.sel.PortfolioTotalFiatBalance(snap),
		TotalFiatWithDelegations: h.sel.PortfolioTotalFiatBalanceWithDelegations(snap),
		DelegationFiat:           h.sel.TotalStakingDelegationFiat(snap),
		AccountCount:             len(snap.Portfolio.AccountIDs),
		Allocation:               h.sel.PortfolioAllocationPercent(snap),
	})
}

// GetAssets handles GET /api/v1/portfolio/assets.
func (h *PortfolioHandler) GetAssets(w http.ResponseWriter, r *http.Request) {
	rows := h.sel.PortfolioAccountRows(h.source.Snapshot())
	if rows == nil {
		rows = []selector.AccountRow{}
	}
	writeJSON(w, http.StatusOK, rows)
}

// GetAccounts handles GET /api/v1/portfolio/accounts. Accounts are sorted by fiat value.
func (h *PortfolioHandler) GetAccounts(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	totals := h.sel.PortfolioTotalFiatBalanceByAccount(snap)

	ids := h.sel.PortfolioAccountIDsSortedFiat(snap)
	entries := make([]AccountEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, AccountEntry{
			AccountID: id,
			ChainID:   id.ChainID(),
			Fiat:      domain.OrZero(totals, id),
			AssetIDs:  h.sel.PortfolioAssetIDsByAccountID(snap, id),
		})
	}
	writeJSON(w, http.StatusOK, entries)
}

// GetBalance handles GET /api/v1/portfolio/balance?assetId=&accountId=.
func (h *PortfolioHandler) GetBalance(w http.ResponseWriter, r *http.Request) {
	assetID := r.URL.Query().Get("assetId")
	if assetID == "" {
		writeError(w, http.StatusBadRequest, "assetId is required")
		return
	}
	f := selector.Filter{AssetID: assetID}
	if a := r.URL.Query().Get("accountId"); a != "" {
		id, err := domain.ParseAccountSpecifier(a)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid accountId")
			return
		}
		f.AccountID = id
	}

	snap := h.source.Snapshot()
	writeJSON(w, http.StatusOK, Balance{
		Filter:                f,
		Crypto:                h.sel.PortfolioCryptoBalanceByFilter(snap, f),
		CryptoHuman:           h.sel.PortfolioCryptoHumanBalanceByFilter(snap, f),
		Fiat:                  h.sel.PortfolioFiatBalanceByFilter(snap, f),
		Delegated:             h.sel.TotalStakingDelegationCryptoByFilter(snap, f),
		CryptoWithDelegations: h.sel.TotalCryptoBalanceWithDelegations(snap, f),
		FiatWithDelegations:   h.sel.TotalFiatBalanceWithDelegations(snap, f),
		AllocationPercent:     h.sel.PortfolioAllocationPercentByFilter(snap, f),
	})
}

// ExportXLSX handles GET /api/v1/portfolio/export.xlsx.
func (h *PortfolioHandler) ExportXLSX(w http.ResponseWriter, r *http.Request) {
	snap := h.source.Snapshot()
	if h.sel.PortfolioLoading(snap) {
		writeError(w, http.StatusServiceUnavailable, "portfolio not loaded yet")
		return
	}

	now := time.Now().UTC()
	summary := history.Build(h.sel, snap, now)
	for _, e := range h.enrichers {
		if err := e.Enrich(r.Context(), snap, &summary); err != nil {
			slog.Warn("export enricher failed, continuing", "error", err)
		}
	}

	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="portfolio-%s.xlsx"`, now.Format("2006-01-02")))
	if err := export.WriteXLSX(w, summary); err != nil {
		slog.Error("failed to write portfolio export", "error", err)
	}
}

// GetStaking handles GET /api/v1/staking/{assetId}?accountId=.
func (h *PortfolioHandler) GetStaking(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sel.StakingBalances(h.source.Snapshot(), accountID, r.PathValue("assetId")))
}

// GetStakingPosition handles GET /api/v1/staking/{assetId}/validators/{validator}?accountId=.
func (h *PortfolioHandler) GetStakingPosition(w http.ResponseWriter, r *http.Request) {
	accountID, ok := requireAccount(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, h.sel.StakingPosition(h.source.Snapshot(), accountID, r.PathValue("validator"), r.PathValue("assetId")))
}

func requireAccount(w http.ResponseWriter, r *http.Request) (domain.AccountSpecifier, bool) {
	a := r.URL.Query().Get("accountId")
	if a == "" {
		writeError(w, http.StatusBadRequest, "accountId is required")
		return "", false
	}
	id, err := domain.ParseAccountSpecifier(a)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid accountId")
		return "", false
	}
	return id, true
}
