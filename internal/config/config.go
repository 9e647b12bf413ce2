package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"

	"PullbackScanner/internal/calculator"
	"PullbackScanner/internal/strategy"
)

// DefaultPath is used when neither -config nor CONFIG_PATH is given.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Tickers struct {
		File string `yaml:"file"`
	} `yaml:"tickers"`
	Market struct {
		Provider string `yaml:"provider"` // yahoo, rest or mock
		Interval string `yaml:"interval"`
		Range    string `yaml:"range"`
		BaseURL  string `yaml:"base_url"`
		APIKey   string `yaml:"api_key"`
	} `yaml:"market"`
	Indicators calculator.Params `yaml:"indicators"`
	Rule       strategy.Rule     `yaml:"rule"`
	Ranking    struct {
		Order string `yaml:"order"`
	} `yaml:"ranking"`
	Scan struct {
		Workers       int           `yaml:"workers"`
		SymbolTimeout time.Duration `yaml:"symbol_timeout"`
	} `yaml:"scan"`
	Output struct {
		CSVPath    string `yaml:"csv_path"`
		DisableCSV bool   `yaml:"disable_csv"`
	} `yaml:"output"`
	Telegram struct {
		BotToken   string `yaml:"bot_token"`
		ChatID     string `yaml:"chat_id"`
		APIBase    string `yaml:"api_base"`
		MaxRetries int    `yaml:"max_retries"`
		Commands   bool   `yaml:"commands"` // answer /scan and /last in repeat mode
	} `yaml:"telegram"`
	Cache struct {
		Backend       string        `yaml:"backend"` // none, sqlite or redis
		TTL           time.Duration `yaml:"ttl"`
		SQLitePath    string        `yaml:"sqlite_path"`
		RedisAddr     string        `yaml:"redis_addr"`
		RedisPassword string        `yaml:"redis_password"`
		RedisDB       int           `yaml:"redis_db"`
	} `yaml:"cache"`
	Schedule struct {
		Cron string `yaml:"cron"`
	} `yaml:"schedule"`
	Log struct {
		Level      string `yaml:"level"`
		File       string `yaml:"file"`
		MaxSize    int    `yaml:"max_size"`
		MaxBackups int    `yaml:"max_backups"`
		MaxAge     int    `yaml:"max_age"`
		Compress   bool   `yaml:"compress"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// Load reads config from a YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	// Thresholds where zero is meaningful are seeded before decoding so
	// that a partial section keeps the remaining defaults.
	cfg.Indicators = calculator.DefaultParams()
	cfg.Rule = strategy.DefaultRule()

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() error {
	strs := []struct {
		key string
		dst *string
	}{
		{"TICKER_FILE", &c.Tickers.File},
		{"MARKET_PROVIDER", &c.Market.Provider},
		{"MARKET_INTERVAL", &c.Market.Interval},
		{"MARKET_RANGE", &c.Market.Range},
		{"MARKET_BASE_URL", &c.Market.BaseURL},
		{"MARKET_API_KEY", &c.Market.APIKey},
		{"RANK_ORDER", &c.Ranking.Order},
		{"CSV_PATH", &c.Output.CSVPath},
		{"TELEGRAM_BOT_TOKEN", &c.Telegram.BotToken},
		{"TELEGRAM_CHAT_ID", &c.Telegram.ChatID},
		// the short names win when both are set
		{"TG_BOT_TOKEN", &c.Telegram.BotToken},
		{"TG_CHAT_ID", &c.Telegram.ChatID},
		{"CACHE_BACKEND", &c.Cache.Backend},
		{"SQLITE_PATH", &c.Cache.SQLitePath},
		{"REDIS_ADDR", &c.Cache.RedisAddr},
		{"REDIS_PASSWORD", &c.Cache.RedisPassword},
		{"SCAN_CRON", &c.Schedule.Cron},
		{"LOG_LEVEL", &c.Log.Level},
		{"LOG_FILE", &c.Log.File},
		{"HTTPS_PROXY", &c.Proxy},
	}
	for _, s := range strs {
		if v := os.Getenv(s.key); v != "" {
			*s.dst = v
		}
	}

	if v := os.Getenv("SCAN_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("SCAN_WORKERS: %w", err)
		}
		c.Scan.Workers = n
	}
	if v := os.Getenv("SYMBOL_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("SYMBOL_TIMEOUT: %w", err)
		}
		c.Scan.SymbolTimeout = d
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Tickers.File == "" {
		c.Tickers.File = "tickers.txt"
	}
	if c.Market.Provider == "" {
		c.Market.Provider = "yahoo"
	}
	if c.Market.Interval == "" {
		c.Market.Interval = "15m"
	}
	if c.Market.Range == "" {
		c.Market.Range = "10d"
	}
	if c.Ranking.Order == "" {
		c.Ranking.Order = "shallow_first"
	}
	if c.Scan.Workers == 0 {
		c.Scan.Workers = 4
	}
	if c.Scan.SymbolTimeout == 0 {
		c.Scan.SymbolTimeout = 30 * time.Second
	}
	if c.Output.CSVPath == "" {
		c.Output.CSVPath = "pullback_15m_signals.csv"
	}
	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = 2
	}
	if c.Cache.Backend == "" {
		c.Cache.Backend = "none"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}
	if c.Cache.SQLitePath == "" {
		c.Cache.SQLitePath = "data/bar_cache.db"
	}
	if c.Cache.RedisAddr == "" {
		c.Cache.RedisAddr = "localhost:6379"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.MaxSize == 0 {
		c.Log.MaxSize = 50
	}
	if c.Log.MaxBackups == 0 {
		c.Log.MaxBackups = 5
	}
	if c.Log.MaxAge == 0 {
		c.Log.MaxAge = 14
	}
}

// Validate checks that all settings are usable. Telegram credentials are
// optional: without them notifications are skipped.
func (c *Config) Validate() error {
	switch c.Market.Provider {
	case "yahoo", "mock":
	case "rest":
		if c.Market.BaseURL == "" {
			return fmt.Errorf("market.base_url is required for the rest provider")
		}
	default:
		return fmt.Errorf("market.provider %q is not one of yahoo, rest, mock", c.Market.Provider)
	}
	if c.Market.Interval == "" || c.Market.Range == "" {
		return fmt.Errorf("market.interval and market.range are required")
	}
	if err := c.Indicators.Validate(); err != nil {
		return fmt.Errorf("indicators: %w", err)
	}
	if err := c.Rule.Validate(); err != nil {
		return fmt.Errorf("rule: %w", err)
	}
	if _, err := strategy.ParseRankOrder(c.Ranking.Order); err != nil {
		return fmt.Errorf("ranking: %w", err)
	}
	if c.Scan.Workers < 1 {
		return fmt.Errorf("scan.workers must be at least 1")
	}
	if c.Scan.SymbolTimeout <= 0 {
		return fmt.Errorf("scan.symbol_timeout must be positive")
	}
	switch c.Cache.Backend {
	case "none", "sqlite", "redis":
	default:
		return fmt.Errorf("cache.backend %q is not one of none, sqlite, redis", c.Cache.Backend)
	}
	if c.Cache.TTL <= 0 {
		return fmt.Errorf("cache.ttl must be positive")
	}
	if c.Telegram.MaxRetries < 0 {
		return fmt.Errorf("telegram.max_retries must not be negative")
	}
	return nil
}
