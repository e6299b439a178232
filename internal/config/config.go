package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/mtlprog/walletview/internal/domain"
)

// CosmosHubChainID is the chain whose LCD endpoint serves validator lookups.
const CosmosHubChainID = "cosmos:cosmoshub-4"

// Config holds all application configuration loaded from environment variables.
type Config struct {
	LCDURLs               map[string]string
	LCDRetryMax           int
	LCDRetryBaseDelay     time.Duration
	LCDRateLimit          float64
	CoinGeckoURL          string
	CoinGeckoDelay        time.Duration
	CoinGeckoRetryMax     int
	DatabaseURL           string
	DatabaseMaxConns      int
	AssetsFile            string
	Accounts              []domain.AccountSpecifier
	BalanceThreshold      decimal.Decimal
	DefaultValidator      string
	ValidatorTTL          time.Duration
	SelectorCacheSize     int
	MarketWorkerInterval  time.Duration
	AccountWorkerInterval time.Duration
	HistoryWorkerInterval time.Duration
	HTTPPort              string
	AdminAPIKey           string
	LogLevel              slog.Level
	GoogleSheetsID        string
	GoogleCredentialsJSON string
}

// LoadDotEnv loads variables from the given .env files (default ".env") without
// overriding variables already set. Missing files are ignored.
func LoadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil && !errors.Is(err, fs.ErrNotExist) {
			slog.Warn("failed to load env file", "file", f, "error", err)
		}
	}
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	return Config{
		LCDURLs: envOrDefaultMap("LCD_URL", map[string]string{
			CosmosHubChainID:   "https://rest.cosmos.directory/cosmoshub",
			"cosmos:osmosis-1": "https://rest.cosmos.directory/osmosis",
		}),
		LCDRetryMax:           envOrDefaultInt("LCD_RETRY_MAX", 5),
		LCDRetryBaseDelay:     envOrDefaultDuration("LCD_RETRY_BASE_DELAY", 2*time.Second),
		LCDRateLimit:          envOrDefaultFloat("LCD_RATE_LIMIT", 5),
		CoinGeckoURL:          envOrDefault("COINGECKO_URL", "https://api.coingecko.com/api/v3"),
		CoinGeckoDelay:        envOrDefaultDuration("COINGECKO_DELAY", 6*time.Second),
		CoinGeckoRetryMax:     envOrDefaultInt("COINGECKO_RETRY_MAX", 5),
		DatabaseURL:           envOrDefaultWarn("DATABASE_URL", ""),
		DatabaseMaxConns:      envOrDefaultInt("DATABASE_MAX_CONNS", 0),
		AssetsFile:            envOrDefault("ASSETS_FILE", ""),
		Accounts:              envAccounts("ACCOUNTS"),
		BalanceThreshold:      envOrDefaultDecimal("BALANCE_THRESHOLD", decimal.Zero),
		DefaultValidator:      envOrDefault("DEFAULT_VALIDATOR", "cosmosvaloper199mlc7fr6ll5t54w7tts7f4s0cvnqgc59nmuxf"),
		ValidatorTTL:          envOrDefaultDuration("VALIDATOR_TTL", 5*time.Minute),
		SelectorCacheSize:     envOrDefaultInt("SELECTOR_CACHE_SIZE", 4096),
		MarketWorkerInterval:  envOrDefaultDuration("MARKET_WORKER_INTERVAL", 5*time.Minute),
		AccountWorkerInterval: envOrDefaultDuration("ACCOUNT_WORKER_INTERVAL", 10*time.Minute),
		HistoryWorkerInterval: envOrDefaultDuration("HISTORY_WORKER_INTERVAL", 24*time.Hour),
		HTTPPort:              envOrDefault("HTTP_PORT", "8080"),
		AdminAPIKey:           os.Getenv("ADMIN_API_KEY"),
		LogLevel:              envLogLevel("LOG_LEVEL", slog.LevelInfo),
		GoogleSheetsID:        os.Getenv("GOOGLE_SHEETS_ID"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envOrDefaultWarn(key, defaultVal string) string {
	v := envOrDefault(key, defaultVal)
	if v == "" {
		slog.Warn("required env var not set", "key", key)
	}
	return v
}

func envOrDefaultInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			slog.Warn("invalid integer env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return n
	}
	return defaultVal
}

func envOrDefaultFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			slog.Warn("invalid number env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return f
	}
	return defaultVal
}

func envOrDefaultDuration(key string, defaultVal time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			slog.Warn("invalid duration env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

func envOrDefaultDecimal(key string, defaultVal decimal.Decimal) decimal.Decimal {
	if v := os.Getenv(key); v != "" {
		d, err := decimal.NewFromString(v)
		if err != nil || d.IsNegative() {
			slog.Warn("invalid decimal env var, using default", "key", key, "value", v, "default", defaultVal)
			return defaultVal
		}
		return d
	}
	return defaultVal
}

// envOrDefaultMap parses "chainID=url,chainID=url". Malformed pairs are skipped.
func envOrDefaultMap(key string, defaultVal map[string]string) map[string]string {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	out := make(map[string]string)
	for _, pair := range splitList(v) {
		k, val, ok := strings.Cut(pair, "=")
		if !ok || k == "" || val == "" {
			slog.Warn("invalid map entry in env var, skipping", "key", key, "entry", pair)
			continue
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(val)
	}
	if len(out) == 0 {
		return defaultVal
	}
	return out
}

// envAccounts parses a comma-separated list of account specifiers.
func envAccounts(key string) []domain.AccountSpecifier {
	return lo.Uniq(lo.FilterMap(splitList(os.Getenv(key)), func(s string, _ int) (domain.AccountSpecifier, bool) {
		id, err := domain.ParseAccountSpecifier(s)
		if err != nil {
			slog.Warn("invalid account in env var, skipping", "key", key, "value", s, "error", err)
			return "", false
		}
		return id, true
	}))
}

func envLogLevel(key string, defaultVal slog.Level) slog.Level {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(v)); err != nil {
		slog.Warn("invalid log level env var, using default", "key", key, "value", v, "default", defaultVal)
		return defaultVal
	}
	return level
}

func splitList(s string) []string {
	return lo.Compact(lo.Map(strings.Split(s, ","), func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}
