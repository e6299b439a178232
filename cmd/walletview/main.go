package main

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/urfave/cli/v2"

	"github.com/mtlprog/walletview/internal/api"
	"github.com/mtlprog/walletview/internal/chain"
	"github.com/mtlprog/walletview/internal/config"
	"github.com/mtlprog/walletview/internal/database"
	"github.com/mtlprog/walletview/internal/export"
	"github.com/mtlprog/walletview/internal/history"
	"github.com/mtlprog/walletview/internal/market"
	"github.com/mtlprog/walletview/internal/metrics"
	"github.com/mtlprog/walletview/internal/registry"
	"github.com/mtlprog/walletview/internal/selector"
	"github.com/mtlprog/walletview/internal/store"
	"github.com/mtlprog/walletview/internal/validator"
	"github.com/mtlprog/walletview/internal/worker"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func main() {
	cliApp := &cli.App{
		Name:  "walletview",
		Usage: "derived wallet views: fiat balances, allocation and staking",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "env-file", Value: ".env", Usage: "dotenv file loaded before reading the environment"},
		},
		Before: func(c *cli.Context) error {
			config.LoadDotEnv(c.String("env-file"))
			return nil
		},
		DefaultCommand: "serve",
		Commands: []*cli.Command{
			{Name: "serve", Usage: "run workers and the HTTP API", Action: serve},
			{Name: "migrate", Usage: "apply database migrations and exit", Action: migrate},
			{
				Name:   "report",
				Usage:  "load the portfolio once and write an xlsx report",
				Action: report,
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "out", Aliases: []string{"o"}, Value: "portfolio.xlsx", Usage: "output file"},
				},
			},
		},
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := cliApp.RunContext(ctx, os.Args); err != nil {
		log.Fatalf("walletview: %v", err)
	}
}

func loadConfig() config.Config {
	cfg := config.Load()
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.LogLevel})))
	return cfg
}

func connect(ctx context.Context, cfg config.Config) (*pgxpool.Pool, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	pool, err := database.Connect(ctx, cfg.DatabaseURL, int32(cfg.DatabaseMaxConns))
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	migrationsSub, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating migrations sub-fs: %w", err)
	}
	if err := database.RunMigrations(ctx, pool, migrationsSub); err != nil {
		pool.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return pool, nil
}

func migrate(c *cli.Context) error {
	pool, err := connect(c.Context, loadConfig())
	if err != nil {
		return err
	}
	pool.Close()
	slog.Info("migrations up to date")
	return nil
}

// app is the wiring shared by serve and report.
type app struct {
	cfg        config.Config
	store      *store.Store
	sel        *selector.Selectors
	accounts   *chain.AccountService
	market     *market.Service
	validators *validator.Service
}

func newApp(cfg config.Config, m *metrics.Metrics, quotes market.QuoteRepository) (*app, error) {
	reg, err := registry.Load(cfg.AssetsFile)
	if err != nil {
		return nil, fmt.Errorf("loading asset registry: %w", err)
	}

	var storeOpts []store.Option
	selOpts := []selector.Option{
		selector.WithCacheSize(cfg.SelectorCacheSize),
		selector.WithDefaultValidator(cfg.DefaultValidator),
	}
	var validatorOpts []validator.Option
	if m != nil {
		storeOpts = append(storeOpts, store.WithObserver(m))
		selOpts = append(selOpts, selector.WithRecorder(m))
		validatorOpts = append(validatorOpts, validator.WithRecorder(m))
	}
	validatorOpts = append(validatorOpts, validator.WithTTL(cfg.ValidatorTTL))

	st := store.New(storeOpts...)
	st.UpsertAssets(reg.Assets()...)
	st.SetBalanceThreshold(cfg.BalanceThreshold)

	clients := make(map[string]*chain.Client, len(cfg.LCDURLs))
	for chainID, url := range cfg.LCDURLs {
		clients[chainID] = chain.NewClient(url, cfg.LCDRetryMax, cfg.LCDRetryBaseDelay,
			chain.WithRateLimit(cfg.LCDRateLimit, 1))
	}
	accounts := chain.NewAccountService(clients, reg)

	a := &app{
		cfg:      cfg,
		store:    st,
		sel:      selector.New(selOpts...),
		accounts: accounts,
		market:   market.NewService(market.NewCoinGeckoClient(cfg.CoinGeckoURL, cfg.CoinGeckoDelay, cfg.CoinGeckoRetryMax), quotes, st),
	}
	if hub, ok := accounts.Client(config.CosmosHubChainID); ok {
		a.validators = validator.NewService(hub, st, validatorOpts...)
	} else {
		slog.Warn("no LCD endpoint for validator lookups", "chain", config.CosmosHubChainID)
	}
	return a, nil
}

func (a *app) accountWorker(m *metrics.Metrics) *worker.AccountWorker {
	opts := []worker.AccountOption{
		worker.WithOnLoaded(func(context.Context) {
			snap := a.store.Snapshot()
			slog.Info("portfolio loaded",
				"accounts", len(snap.Portfolio.AccountIDs),
				"totalFiat", a.sel.PortfolioTotalFiatBalance(snap))
		}),
	}
	if a.validators != nil {
		opts = append(opts, worker.WithValidatorRefresh(a.validators))
	}
	if m != nil {
		opts = append(opts, worker.WithAccountRecorder(m))
	}
	return worker.NewAccountWorker(a.cfg.Accounts, a.accounts, a.store, a.cfg.AccountWorkerInterval, opts...)
}

func serve(c *cli.Context) error {
	ctx := c.Context
	cfg := loadConfig()

	pool, err := connect(ctx, cfg)
	if err != nil {
		return err
	}
	defer pool.Close()

	m := metrics.New()
	a, err := newApp(cfg, m, market.NewPgQuoteRepository(pool))
	if err != nil {
		return err
	}

	if err := a.market.Warm(ctx); err != nil {
		slog.Warn("failed to warm market data from database", "error", err)
	}

	historySvc := history.NewService(a.store, a.sel, history.NewPgRepository(pool), history.NewStakingEnricher(a.sel))

	var hook worker.AfterHistoryHook
	if cfg.GoogleSheetsID != "" && cfg.GoogleCredentialsJSON != "" {
		sheetsWriter, err := export.NewSheetsWriter(ctx, cfg.GoogleSheetsID, cfg.GoogleCredentialsJSON)
		if err != nil {
			return fmt.Errorf("creating sheets writer: %w", err)
		}
		hook = export.NewService(sheetsWriter)
	}

	if len(cfg.Accounts) == 0 {
		slog.Warn("ACCOUNTS not set, portfolio will stay empty")
	}

	// Start workers
	go worker.NewMarketWorker(a.market, cfg.MarketWorkerInterval, m).Run(ctx)
	go a.accountWorker(m).Run(ctx)
	go worker.NewHistoryWorker(historySvc, cfg.HistoryWorkerInterval, hook, m).Run(ctx)
	go watchPortfolio(ctx, a, m)
	if a.validators != nil {
		go reloadValidatorsOnHUP(ctx, a.validators)
	}

	if cfg.AdminAPIKey == "" {
		slog.Warn("ADMIN_API_KEY not set, generate endpoint is unprotected")
	}

	deps := api.Deps{
		Source:      a.store,
		Selectors:   a.sel,
		History:     historySvc,
		Metrics:     m.Handler(),
		AdminAPIKey: cfg.AdminAPIKey,
	}
	if a.validators != nil {
		deps.Validators = a.validators
	}

	// Start HTTP server
	srv := api.NewServer(cfg.HTTPPort, deps)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTP server listening", "port", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for shutdown signal
	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("HTTP server: %w", err)
	}
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	slog.Info("shutdown complete")
	return nil
}

// watchPortfolio keeps the portfolio gauges in sync with the store.
func watchPortfolio(ctx context.Context, a *app, m *metrics.Metrics) {
	updates, cancel := a.store.Subscribe()
	defer cancel()

	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			snap := a.store.Snapshot()
			m.PortfolioUpdated(a.sel.PortfolioTotalFiatBalance(snap), len(snap.Portfolio.AccountIDs))
		}
	}
}

// reloadValidatorsOnHUP drops cached validator data and refetches it on SIGHUP.
func reloadValidatorsOnHUP(ctx context.Context, v *validator.Service) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			slog.Info("SIGHUP received, reloading validators")
			if err := v.Reconnected(ctx); err != nil {
				slog.Warn("validator reload failed", "error", err)
			}
		}
	}
}

func report(c *cli.Context) error {
	ctx := c.Context
	cfg := loadConfig()

	a, err := newApp(cfg, nil, nil)
	if err != nil {
		return err
	}

	if err := a.market.Refresh(ctx); err != nil {
		return fmt.Errorf("fetching market data: %w", err)
	}
	if err := a.accountWorker(nil).Load(ctx); err != nil {
		return err
	}

	snap := a.store.Snapshot()
	summary := history.Build(a.sel, snap, time.Now())
	if err := history.NewStakingEnricher(a.sel).Enrich(ctx, snap, &summary); err != nil {
		slog.Warn("failed to add staking section", "error", err)
	}

	out := c.String("out")
	if err := export.NewXLSXWriter(out).Write(ctx, summary); err != nil {
		return err
	}
	slog.Info("report written", "file", out, "totalFiat", summary.TotalFiat)
	return nil
}
