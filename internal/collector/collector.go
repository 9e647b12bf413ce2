package collector

import (
	"context"
	"time"

	"PullbackScanner/internal/calculator"
	"PullbackScanner/internal/model"
)

// MockFetcher returns controllable fixed data for development and testing.
// Bars, when set, is served for every symbol; otherwise Count synthetic bars
// trending up from Price are generated.
type MockFetcher struct {
	Price float64
	Count int
	Bars  map[string][]model.OHLCV
	Err   error
	Delay time.Duration
}

func (m *MockFetcher) Name() string { return "mock" }

func (m *MockFetcher) FetchBars(ctx context.Context, symbol, _, _ string) ([]model.OHLCV, error) {
	if m.Delay > 0 {
		select {
		case <-time.After(m.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Bars != nil {
		return m.Bars[symbol], nil
	}
	return generateMockBars(m.Price, m.Count), nil
}

func generateMockBars(basePrice float64, count int) []model.OHLCV {
	bars := make([]model.OHLCV, count)
	start := time.Now().Truncate(15 * time.Minute).Add(-time.Duration(count) * 15 * time.Minute)
	for i := 0; i < count; i++ {
		p := basePrice * (1 + float64(i-count/2)*0.001)
		bars[i] = model.OHLCV{
			Time:   start.Add(time.Duration(i) * 15 * time.Minute),
			Open:   p * 0.999,
			High:   p * 1.005,
			Low:    p * 0.995,
			Close:  p,
			Volume: 1000000,
		}
	}
	return bars
}

// Collector fetches one symbol's bars and computes its indicator rows.
type Collector struct {
	Fetcher  Fetcher
	Params   calculator.Params
	Interval string
	Range    string
}

// NewCollector creates a Collector for the given bar interval and lookback.
func NewCollector(fetcher Fetcher, params calculator.Params, interval, rng string) *Collector {
	return &Collector{Fetcher: fetcher, Params: params, Interval: interval, Range: rng}
}

// Collect fetches bars for symbol and returns them with indicators attached.
// Provider failures come back as *FetchError; an empty series wraps ErrNoData.
func (c *Collector) Collect(ctx context.Context, symbol string) ([]model.IndicatorRow, error) {
	bars, err := c.Fetcher.FetchBars(ctx, symbol, c.Interval, c.Range)
	if err != nil {
		return nil, &FetchError{Symbol: symbol, Err: err}
	}
	if len(bars) == 0 {
		return nil, &FetchError{Symbol: symbol, Err: ErrNoData}
	}
	return calculator.Compute(bars, c.Params), nil
}
