package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"arbscan-service/internal/domain"
	infraconfig "arbscan-service/internal/infrastructure/config"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// Exchange identifiers accepted in SOURCES.
const (
	SourceBinance  = "binance"
	SourceCoinbase = "coinbase"
	SourceKraken   = "kraken"
	SourceKuCoin   = "kucoin"
	SourceBybit    = "bybit"
	SourceOKX      = "okx"
	SourceGateIO   = "gateio"
	SourceHuobi    = "huobi"
	SourceStatic   = "static"
)

var KnownSources = []string{
	SourceBinance, SourceCoinbase, SourceKraken, SourceKuCoin,
	SourceBybit, SourceOKX, SourceGateIO, SourceHuobi,
}

var defaultPairs = []string{
	"BTC/USDT", "ETH/USDT", "BNB/USDT", "XRP/USDT", "SOL/USDT",
	"ADA/USDT", "DOGE/USDT", "TRX/USDT", "AVAX/USDT", "DOT/USDT",
	"LINK/USDT", "LTC/USDT", "UNI/USDT", "ATOM/USDT", "BCH/USDT",
}

type Config struct {
	// Common
	Env      string `toml:"env"`
	LogLevel string `toml:"log_level"`
	// API
	Port string `toml:"port"`
	// Scan
	Pairs               []string `toml:"pairs"`
	Sources             []string `toml:"sources"`
	MinProfitPct        string   `toml:"min_profit_pct"`
	ScanIntervalSeconds int      `toml:"scan_interval_seconds"`
	FetchTimeoutMS      int      `toml:"fetch_timeout_ms"`
	FetchRetries        int      `toml:"fetch_retries"`
	FetchMaxInFlight    int      `toml:"fetch_max_in_flight"`
	// StaticPrices feeds the "static" source: "[source:]PAIR=price" entries.
	StaticPrices []string `toml:"static_prices"`
	// Exchange endpoints (empty means the public default)
	Exchanges ExchangeURLs `toml:"exchanges"`
	// Storage
	Storage     string `toml:"storage"`
	DatabaseURL string `toml:"database_url"`
	// Redis (latest report + notification cooldown)
	RedisEnabled   bool   `toml:"redis_enabled"`
	RedisAddr      string `toml:"redis_addr"`
	RedisPassword  string `toml:"redis_password"`
	RedisDB        int    `toml:"redis_db"`
	RedisLatestKey string `toml:"redis_latest_key"`
	RedisChannel   string `toml:"redis_channel"`
	// Notifications
	NotifyCooldownMS int      `toml:"notify_cooldown_ms"`
	SMTPHost         string   `toml:"smtp_host"`
	SMTPPort         int      `toml:"smtp_port"`
	SMTPUsername     string   `toml:"smtp_username"`
	SMTPPassword     string   `toml:"smtp_password"`
	EmailFrom        string   `toml:"email_from"`
	EmailTo          []string `toml:"email_to"`
	WebhookURL       string   `toml:"webhook_url"`

	// fileErr keeps a SCANNER_CONFIG failure for Validate to report.
	fileErr error
	// envErr keeps the first unparsable environment value.
	envErr *domain.ConfigurationError
}

type ExchangeURLs struct {
	Binance  string `toml:"binance"`
	Coinbase string `toml:"coinbase"`
	Kraken   string `toml:"kraken"`
	KuCoin   string `toml:"kucoin"`
	Bybit    string `toml:"bybit"`
	OKX      string `toml:"okx"`
	GateIO   string `toml:"gateio"`
	Huobi    string `toml:"huobi"`
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func atoiDef(s string, def int) int {
	i, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return i
}

func listDef(s string, def []string) []string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Env:                 "local",
		LogLevel:            "info",
		Port:                infraconfig.DefaultHTTPPort,
		Pairs:               append([]string(nil), defaultPairs...),
		Sources:             append([]string(nil), KnownSources...),
		MinProfitPct:        infraconfig.DefaultMinProfitPct,
		ScanIntervalSeconds: int(infraconfig.DefaultScanInterval / time.Second),
		FetchTimeoutMS:      int(infraconfig.DefaultFetchTimeout / time.Millisecond),
		Storage:             "none",
		RedisAddr:           "localhost:6379",
		RedisLatestKey:      "arbscan:latest",
		RedisChannel:        "arbscan:reports",
		NotifyCooldownMS:    int(infraconfig.DefaultNotifyCooldown / time.Millisecond),
		SMTPPort:            587,
	}
}

// Load reads environment variables and applies defaults. When SCANNER_CONFIG
// names a TOML file, its values sit between the defaults and the environment.
func Load() Config {
	cfg := Defaults()
	if path := os.Getenv("SCANNER_CONFIG"); path != "" {
		fileCfg, err := LoadFile(path)
		if err != nil {
			cfg.fileErr = err
		} else {
			cfg = fileCfg
		}
	}
	applyEnv(&cfg)
	return cfg
}

// LoadFile decodes a TOML file on top of Defaults.
func LoadFile(path string) (Config, error) {
	cfg := Defaults()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return cfg, nil
}

func applyEnv(c *Config) {
	c.Env = getEnv("ENV", c.Env)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.Port = getEnv("PORT", c.Port)
	c.Pairs = listDef(os.Getenv("PAIRS"), c.Pairs)
	c.Sources = listDef(os.Getenv("SOURCES"), c.Sources)
	c.MinProfitPct = getEnv("MIN_PROFIT_PCT", c.MinProfitPct)
	c.ScanIntervalSeconds = atoiDef(getEnv("SCAN_INTERVAL_SECONDS", ""), c.ScanIntervalSeconds)
	c.FetchTimeoutMS = atoiDef(getEnv("FETCH_TIMEOUT_MS", ""), c.FetchTimeoutMS)
	c.FetchRetries = atoiDef(getEnv("FETCH_RETRIES", ""), c.FetchRetries)
	c.FetchMaxInFlight = atoiDef(getEnv("FETCH_MAX_IN_FLIGHT", ""), c.FetchMaxInFlight)
	c.StaticPrices = listDef(os.Getenv("STATIC_PRICES"), c.StaticPrices)

	c.Exchanges.Binance = getEnv("BINANCE_BASE_URL", c.Exchanges.Binance)
	c.Exchanges.Coinbase = getEnv("COINBASE_BASE_URL", c.Exchanges.Coinbase)
	c.Exchanges.Kraken = getEnv("KRAKEN_BASE_URL", c.Exchanges.Kraken)
	c.Exchanges.KuCoin = getEnv("KUCOIN_BASE_URL", c.Exchanges.KuCoin)
	c.Exchanges.Bybit = getEnv("BYBIT_BASE_URL", c.Exchanges.Bybit)
	c.Exchanges.OKX = getEnv("OKX_BASE_URL", c.Exchanges.OKX)
	c.Exchanges.GateIO = getEnv("GATEIO_BASE_URL", c.Exchanges.GateIO)
	c.Exchanges.Huobi = getEnv("HUOBI_BASE_URL", c.Exchanges.Huobi)

	c.Storage = getEnv("STORAGE", c.Storage)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)

	if v := os.Getenv("REDIS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil && c.envErr == nil {
			c.envErr = &domain.ConfigurationError{Field: "redis_enabled", Reason: fmt.Sprintf("invalid boolean %q", v)}
		}
		if err == nil {
			c.RedisEnabled = b
		}
	}
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = getEnv("REDIS_PASSWORD", c.RedisPassword)
	c.RedisDB = atoiDef(getEnv("REDIS_DB", ""), c.RedisDB)
	c.RedisLatestKey = getEnv("REDIS_LATEST_KEY", c.RedisLatestKey)
	c.RedisChannel = getEnv("REDIS_CHANNEL", c.RedisChannel)

	c.NotifyCooldownMS = atoiDef(getEnv("NOTIFY_COOLDOWN_MS", ""), c.NotifyCooldownMS)
	c.SMTPHost = getEnv("SMTP_HOST", c.SMTPHost)
	c.SMTPPort = atoiDef(getEnv("SMTP_PORT", ""), c.SMTPPort)
	c.SMTPUsername = getEnv("SMTP_USERNAME", c.SMTPUsername)
	c.SMTPPassword = getEnv("SMTP_PASSWORD", c.SMTPPassword)
	c.EmailFrom = getEnv("EMAIL_FROM", c.EmailFrom)
	c.EmailTo = listDef(os.Getenv("EMAIL_TO"), c.EmailTo)
	c.WebhookURL = getEnv("WEBHOOK_URL", c.WebhookURL)
}

func (c Config) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalSeconds) * time.Second
}

func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.FetchTimeoutMS) * time.Millisecond
}

func (c Config) NotifyCooldown() time.Duration {
	return time.Duration(c.NotifyCooldownMS) * time.Millisecond
}

// Threshold parses MinProfitPct.
func (c Config) Threshold() (decimal.Decimal, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(c.MinProfitPct))
	if err != nil {
		return decimal.Zero, &domain.ConfigurationError{Field: "min_profit_pct", Reason: err.Error()}
	}
	return d, nil
}

// TokenPairs parses and de-duplicates Pairs, keeping their order.
func (c Config) TokenPairs() ([]domain.Pair, error) {
	seen := make(map[domain.Pair]bool, len(c.Pairs))
	out := make([]domain.Pair, 0, len(c.Pairs))
	for _, raw := range c.Pairs {
		p, err := domain.ParsePair(raw)
		if err != nil {
			return nil, &domain.ConfigurationError{Field: "pairs", Reason: err.Error()}
		}
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out, nil
}

// Validate reports the first problem that makes the scanner unable to start.
func (c Config) Validate() error {
	if c.fileErr != nil {
		return &domain.ConfigurationError{Field: "scanner_config", Reason: c.fileErr.Error()}
	}
	if c.envErr != nil {
		return c.envErr
	}
	pairs, err := c.TokenPairs()
	if err != nil {
		return err
	}
	if len(pairs) == 0 {
		return &domain.ConfigurationError{Field: "pairs", Reason: "at least one pair is required"}
	}
	if len(c.Sources) == 0 {
		return &domain.ConfigurationError{Field: "sources", Reason: "at least one source is required"}
	}
	for _, s := range c.Sources {
		if !isKnownSource(s) {
			return &domain.ConfigurationError{Field: "sources", Reason: "unknown source " + s}
		}
	}
	threshold, err := c.Threshold()
	if err != nil {
		return err
	}
	if !threshold.IsPositive() {
		return &domain.ConfigurationError{Field: "min_profit_pct", Reason: "must be positive"}
	}
	if c.ScanIntervalSeconds <= 0 {
		return &domain.ConfigurationError{Field: "scan_interval_seconds", Reason: "must be positive"}
	}
	if c.FetchTimeoutMS <= 0 {
		return &domain.ConfigurationError{Field: "fetch_timeout_ms", Reason: "must be positive"}
	}
	if c.FetchTimeout() >= c.ScanInterval() {
		return &domain.ConfigurationError{Field: "fetch_timeout_ms", Reason: "must be shorter than the scan interval"}
	}
	if c.FetchRetries < 0 || c.FetchMaxInFlight < 0 {
		return &domain.ConfigurationError{Field: "fetch", Reason: "retries and max in flight must not be negative"}
	}
	switch c.Storage {
	case "none", "":
	case "pg":
		if c.DatabaseURL == "" {
			return &domain.ConfigurationError{Field: "database_url", Reason: "required for STORAGE=pg"}
		}
	default:
		return &domain.ConfigurationError{Field: "storage", Reason: "unsupported storage " + c.Storage}
	}
	return nil
}

func isKnownSource(s string) bool {
	if s == SourceStatic {
		return true
	}
	for _, k := range KnownSources {
		if s == k {
			return true
		}
	}
	return false
}
