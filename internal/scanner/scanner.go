// Package scanner runs the per-symbol pipeline over a universe and
// aggregates the signals into a ranked table.
package scanner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"PullbackScanner/internal/collector"
	"PullbackScanner/internal/model"
	"PullbackScanner/internal/strategy"
	"PullbackScanner/internal/universe"
)

var log = logrus.WithField("component", "scanner")

const (
	DefaultWorkers       = 4
	DefaultSymbolTimeout = 30 * time.Second
)

// RowSource produces indicator rows for one symbol. *collector.Collector
// is the production implementation.
type RowSource interface {
	Collect(ctx context.Context, symbol string) ([]model.IndicatorRow, error)
}

// Options controls a Scanner. Zero values fall back to the defaults.
type Options struct {
	Workers       int
	SymbolTimeout time.Duration
	Rule          strategy.Rule
	Order         model.RankOrder
}

// Outcome is the result of scanning one symbol. Signal is nil when the
// symbol did not qualify or Err is set.
type Outcome struct {
	Symbol string
	Signal *model.SignalRecord
	Err    error
}

// Scanner fans symbols out to a bounded worker pool.
type Scanner struct {
	source RowSource
	opts   Options
}

// New creates a Scanner.
func New(source RowSource, opts Options) *Scanner {
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.SymbolTimeout <= 0 {
		opts.SymbolTimeout = DefaultSymbolTimeout
	}
	if opts.Rule == (strategy.Rule{}) {
		opts.Rule = strategy.DefaultRule()
	}
	if opts.Order == "" {
		opts.Order = model.RankShallowFirst
	}
	return &Scanner{source: source, opts: opts}
}

// Scan processes every distinct symbol and returns the ranked signal table
// together with one Outcome per distinct symbol, in input order. Failures
// are logged and skipped; an empty universe yields an empty table.
func (s *Scanner) Scan(ctx context.Context, symbols []string) (model.ResultTable, []Outcome) {
	symbols = universe.Dedupe(symbols)
	outcomes := make([]Outcome, len(symbols))
	if len(symbols) == 0 {
		return model.ResultTable{}, outcomes
	}

	start := time.Now()
	runLog := log.WithField("run", uuid.NewString())
	runLog.Infof("scanning %d symbols with %d workers", len(symbols), s.opts.Workers)

	var wg sync.WaitGroup
	var tableMu sync.Mutex
	table := make(model.ResultTable, 0)
	sem := make(chan struct{}, s.opts.Workers)

	for i, symbol := range symbols {
		wg.Add(1)
		go func(idx int, sym string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			out := s.scanSymbol(ctx, runLog, sym)
			outcomes[idx] = out
			if out.Signal != nil {
				tableMu.Lock()
				table = append(table, *out.Signal)
				tableMu.Unlock()
			}
		}(i, symbol)
	}
	wg.Wait()

	table = strategy.Rank(table, s.opts.Order)

	failed := 0
	for _, o := range outcomes {
		if o.Err != nil {
			failed++
		}
	}
	runLog.Infof("scan finished in %s: %d signals, %d skipped, %d symbols",
		time.Since(start).Round(time.Millisecond), len(table), failed, len(symbols))
	return table, outcomes
}

// scanSymbol runs fetch, indicators and evaluation for one symbol under its
// own deadline. The source runs in a separate goroutine so a collaborator
// that ignores cancellation cannot stall the worker past the deadline.
func (s *Scanner) scanSymbol(ctx context.Context, runLog *logrus.Entry, symbol string) (out Outcome) {
	out.Symbol = symbol
	entry := runLog.WithField("symbol", symbol)

	ctx, cancel := context.WithTimeout(ctx, s.opts.SymbolTimeout)
	defer cancel()

	type result struct {
		rows []model.IndicatorRow
		err  error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		rows, err := s.source.Collect(ctx, symbol)
		done <- result{rows: rows, err: err}
	}()

	var res result
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = &collector.FetchError{Symbol: symbol, Err: ctx.Err()}
	}
	if res.err != nil {
		entry.Warnf("skipped: %v", res.err)
		out.Err = res.err
		return out
	}

	out.Signal = strategy.Evaluate(symbol, res.rows, s.opts.Rule)
	if out.Signal != nil {
		entry.Infof("signal at %s: close=%.2f rsi=%.1f from_high=%.2f%%",
			out.Signal.Time.Format(time.RFC3339), out.Signal.Close, out.Signal.RSI, out.Signal.FromHigh*100)
	} else {
		entry.Debug("no signal")
	}
	return out
}
