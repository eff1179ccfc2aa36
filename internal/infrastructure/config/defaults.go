package config

import "time"

const (
	DefaultHTTPPort        = "8080"
	DefaultShutdownTimeout = 10 * time.Second
	DefaultScanInterval    = 60 * time.Second
	DefaultFetchTimeout    = 10 * time.Second
	DefaultMinProfitPct    = "1.0"
	DefaultNotifyCooldown  = 30 * time.Minute
	DefaultPGMaxConns      = 5
	DefaultPGMinConns      = 1
	DefaultHistoryLimit    = 100
	MaxHistoryLimit        = 1000
)
