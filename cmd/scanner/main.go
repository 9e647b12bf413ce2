package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"PullbackScanner/internal/barcache"
	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/config"
	"PullbackScanner/internal/logger"
	"PullbackScanner/internal/notifier"
	"PullbackScanner/internal/report"
	"PullbackScanner/internal/scanner"
	"PullbackScanner/internal/scheduler"
	"PullbackScanner/internal/strategy"
	"PullbackScanner/internal/universe"
)

const defaultCron = "0 */30 * * * *"

// Exit codes.
const (
	exitOK      = 0
	exitFatal   = 1
	exitConfig  = 2
	exitTickers = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	configPath := flag.String("config", "", "config file path (default $CONFIG_PATH or "+config.DefaultPath+")")
	tickerFile := flag.String("tickers", "", "ticker file, overrides tickers.file")
	once := flag.Bool("once", false, "run a single scan and exit even if a schedule is configured")
	daemon := flag.Bool("daemon", false, "keep running and rescan on schedule.cron (default every 30 minutes)")
	flag.Parse()

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.Warnf("load .env: %v", err)
	}

	cfgPath := *configPath
	if cfgPath == "" {
		cfgPath = config.DefaultPath
		if v := os.Getenv("CONFIG_PATH"); v != "" {
			cfgPath = v
		}
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		logrus.Errorf("load config: %v", err)
		return exitConfig
	}
	if *tickerFile != "" {
		cfg.Tickers.File = *tickerFile
	}
	if err := cfg.Validate(); err != nil {
		logrus.Errorf("config validation: %v", err)
		return exitConfig
	}

	if err := logger.Init(logger.Config{
		Level:      cfg.Log.Level,
		OutputFile: cfg.Log.File,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logrus.Errorf("init logger: %v", err)
		return exitFatal
	}
	logrus.Info("pullback scanner starting")

	symbols, err := universe.Load(cfg.Tickers.File)
	if err != nil {
		logrus.Errorf("load tickers: %v", err)
		return exitTickers
	}
	logrus.Infof("loaded %d symbols from %s", len(symbols), cfg.Tickers.File)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fetcher, closeCache := buildFetcher(ctx, cfg)
	defer closeCache()
	logrus.Infof("data source: %s (%s bars, %s lookback)", fetcher.Name(), cfg.Market.Interval, cfg.Market.Range)

	// validated above
	order, _ := strategy.ParseRankOrder(cfg.Ranking.Order)
	col := collector.NewCollector(fetcher, cfg.Indicators, cfg.Market.Interval, cfg.Market.Range)
	sc := scanner.New(col, scanner.Options{
		Workers:       cfg.Scan.Workers,
		SymbolTimeout: cfg.Scan.SymbolTimeout,
		Rule:          cfg.Rule,
		Order:         order,
	})

	tn := notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Telegram.APIBase, cfg.Proxy)
	tn.MaxRetries = cfg.Telegram.MaxRetries

	csvPath := cfg.Output.CSVPath
	if cfg.Output.DisableCSV {
		csvPath = ""
	}
	rep := report.New(os.Stdout, csvPath, tn)

	repeat := !*once && (*daemon || cfg.Schedule.Cron != "")
	if !repeat {
		table, _ := sc.Scan(ctx, symbols)
		rep.Report(ctx, table)
		if ctx.Err() != nil {
			logrus.Warn("scan interrupted")
			return exitFatal
		}
		return exitOK
	}

	expr := cfg.Schedule.Cron
	if expr == "" {
		expr = defaultCron
	}
	sched := scheduler.NewScheduler(ctx, sc, rep, func() ([]string, error) {
		return universe.Load(cfg.Tickers.File)
	})
	if err := sched.Register(expr); err != nil {
		logrus.Errorf("schedule: %v", err)
		return exitConfig
	}

	if _, err := sched.RunNow(); err != nil {
		logrus.Errorf("initial scan: %v", err)
	}
	sched.Start()
	defer sched.Stop()

	if tn.Enabled() && cfg.Telegram.Commands {
		go tn.StartPolling(ctx, sched.HandleCommand)
		logrus.Info("Telegram command polling started")
	}

	logrus.Info("pullback scanner is running. Press Ctrl+C to stop.")
	<-ctx.Done()
	logrus.Info("shutdown signal received, stopping...")
	return exitOK
}

// buildFetcher selects the market-data provider and wraps it with the
// configured bar cache. A cache that cannot be opened degrades to none.
func buildFetcher(ctx context.Context, cfg *config.Config) (collector.Fetcher, func()) {
	var base collector.Fetcher
	switch cfg.Market.Provider {
	case "rest":
		base = collector.NewRESTFetcher(cfg.Market.BaseURL, cfg.Market.APIKey, cfg.Proxy)
	case "mock":
		base = &collector.MockFetcher{Price: 100, Count: 400}
	default:
		base = collector.NewYahooFetcher(cfg.Market.BaseURL, cfg.Proxy)
	}

	var store barcache.Store
	switch cfg.Cache.Backend {
	case "sqlite":
		if err := os.MkdirAll(filepath.Dir(cfg.Cache.SQLitePath), 0o755); err != nil {
			logrus.Warnf("create cache dir: %v", err)
		}
		s, err := barcache.NewSQLiteStore(cfg.Cache.SQLitePath, cfg.Cache.TTL)
		if err != nil {
			logrus.Warnf("init sqlite cache failed, caching disabled: %v", err)
			return base, func() {}
		}
		store = s
	case "redis":
		rdb, err := barcache.DialRedis(ctx, cfg.Cache.RedisAddr, cfg.Cache.RedisPassword, cfg.Cache.RedisDB)
		if err != nil {
			logrus.Warnf("init redis cache failed, caching disabled: %v", err)
			return base, func() {}
		}
		store = barcache.NewRedisStore(rdb, cfg.Cache.TTL, "")
	default:
		return base, func() {}
	}

	closeFn := func() {
		if err := store.Close(); err != nil {
			logrus.Warnf("close cache: %v", err)
		}
	}
	return barcache.NewCachingFetcher(base, store), closeFn
}
