package barcache

import (
	"context"

	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/model"
)

// CachingFetcher decorates a collector.Fetcher with a Store. Cache failures
// are logged and fall through to the inner fetcher; fetch errors are never
// cached.
type CachingFetcher struct {
	inner collector.Fetcher
	store Store
}

// NewCachingFetcher wraps inner. A nil store disables caching.
func NewCachingFetcher(inner collector.Fetcher, store Store) *CachingFetcher {
	if store == nil {
		store = NewNoopStore()
	}
	return &CachingFetcher{inner: inner, store: store}
}

func (f *CachingFetcher) Name() string { return f.inner.Name() + "+cache" }

func (f *CachingFetcher) FetchBars(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error) {
	key := Key(symbol, interval, rng)

	bars, ok, err := f.store.Get(ctx, key)
	if err != nil {
		log.WithField("symbol", symbol).Warnf("cache read failed: %v", err)
	} else if ok {
		log.WithField("symbol", symbol).Debug("cache hit")
		return bars, nil
	}

	bars, err = f.inner.FetchBars(ctx, symbol, interval, rng)
	if err != nil {
		return nil, err
	}
	if len(bars) == 0 {
		return bars, nil
	}

	if err := f.store.Put(ctx, key, bars); err != nil {
		log.WithField("symbol", symbol).Warnf("cache write failed: %v", err)
	}
	return bars, nil
}
