package api

import (
	"crypto/subtle"
	"net/http"
	"strings"
	"time"

	"github.com/mtlprog/walletview/internal/history"
	"github.com/mtlprog/walletview/internal/selector"
)

// Deps are the services behind the HTTP API. History, Validators and Metrics
// are optional; their routes are not registered when nil.
type Deps struct {
	Source      history.SnapshotSource
	Selectors   *selector.Selectors
	History     *history.Service
	Validators  ValidatorService
	Metrics     http.Handler
	AdminAPIKey string
}

// NewServer creates an HTTP server with all routes configured.
func NewServer(port string, deps Deps) *http.Server {
	return &http.Server{
		Addr:         ":" + port,
		Handler:      NewMux(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// NewMux registers the API routes.
func NewMux(deps Deps) *http.ServeMux {
	mux := http.NewServeMux()

	portfolio := NewPortfolioHandler(deps.Source, deps.Selectors)
	mux.HandleFunc("GET /api/v1/portfolio", portfolio.GetPortfolio)
	mux.HandleFunc("GET /api/v1/portfolio/assets", portfolio.GetAssets)
	mux.HandleFunc("GET /api/v1/portfolio/accounts", portfolio.GetAccounts)
	mux.HandleFunc("GET /api/v1/portfolio/balance", portfolio.GetBalance)
	mux.HandleFunc("GET /api/v1/portfolio/export.xlsx", portfolio.ExportXLSX)
	// Asset IDs contain "/" and must be sent escaped as %2F.
	mux.HandleFunc("GET /api/v1/staking/{assetId}", portfolio.GetStaking)
	mux.HandleFunc("GET /api/v1/staking/{assetId}/validators/{validator}", portfolio.GetStakingPosition)

	if deps.Validators != nil {
		mux.HandleFunc("GET /api/v1/validators/{address}", NewValidatorHandler(deps.Validators).GetValidator)
	}

	if deps.History != nil {
		handler := NewHandler(deps.History)
		mux.HandleFunc("GET /api/v1/history/latest", handler.GetLatestSummary)
		mux.HandleFunc("GET /api/v1/history/change", handler.GetChange)
		mux.HandleFunc("GET /api/v1/history/{date}", handler.GetSummaryByDate)
		mux.HandleFunc("GET /api/v1/history", handler.ListSummaries)

		generateHandler := http.HandlerFunc(handler.GenerateSummary)
		if deps.AdminAPIKey != "" {
			mux.Handle("POST /api/v1/history/generate", requireAuth(deps.AdminAPIKey, generateHandler))
		} else {
			mux.Handle("POST /api/v1/history/generate", generateHandler)
		}
	}

	if deps.Metrics != nil {
		mux.Handle("GET /metrics", deps.Metrics)
	}

	return mux
}

func requireAuth(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth := r.Header.Get("Authorization")
		token := strings.TrimPrefix(auth, "Bearer ")
		if !strings.HasPrefix(auth, "Bearer ") || subtle.ConstantTimeCompare([]byte(token), []byte(apiKey)) != 1 {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}
