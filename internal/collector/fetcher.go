package collector

import (
	"context"
	"errors"
	"fmt"

	"PullbackScanner/internal/model"
)

// ErrNoData is returned when a provider answers with an empty series.
var ErrNoData = errors.New("no data returned")

// Fetcher retrieves OHLCV bars for one symbol. interval and rng use the
// provider's notation ("15m", "10d"). Bars come back oldest first.
type Fetcher interface {
	FetchBars(ctx context.Context, symbol, interval, rng string) ([]model.OHLCV, error)
	Name() string
}

// FetchError ties a provider failure to the symbol that caused it.
type FetchError struct {
	Symbol string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s: %v", e.Symbol, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }
