// Package barcache provides a read-through cache for fetched bar series.
package barcache

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"PullbackScanner/internal/model"
)

var log = logrus.WithField("component", "barcache")

// DefaultTTL is used when a store is created with a non-positive TTL.
const DefaultTTL = 5 * time.Minute

// Store caches bar series by key. A miss is reported as ok=false with a nil
// error; errors are reserved for backend failures.
type Store interface {
	Get(ctx context.Context, key string) (bars []model.OHLCV, ok bool, err error)
	Put(ctx context.Context, key string, bars []model.OHLCV) error
	Close() error
}

// Key builds the cache key for one fetch request.
func Key(symbol, interval, rng string) string {
	return fmt.Sprintf("%s:%s:%s", safe(symbol), safe(interval), safe(rng))
}

// safe escapes characters that would break the key layout.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
