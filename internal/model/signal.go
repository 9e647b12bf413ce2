package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// SignalRecord is the latest bar of a symbol that satisfied the pullback rule.
// Values are kept unrounded; use Rounded for display and export.
type SignalRecord struct {
	Symbol   string
	Time     time.Time
	Close    float64
	RSI      float64
	FromHigh float64
}

// SignalRow is the rounded, report-ready form of a SignalRecord.
type SignalRow struct {
	Ticker  string
	Close   decimal.Decimal // 2 dp
	RSI     decimal.Decimal // 1 dp
	DropPct decimal.Decimal // FromHigh in percent, 1 dp
}

// Rounded converts the record using banker's rounding.
func (s SignalRecord) Rounded() SignalRow {
	return SignalRow{
		Ticker:  s.Symbol,
		Close:   decimal.NewFromFloat(s.Close).RoundBank(2),
		RSI:     decimal.NewFromFloat(s.RSI).RoundBank(1),
		DropPct: decimal.NewFromFloat(s.FromHigh).Mul(decimal.NewFromInt(100)).RoundBank(1),
	}
}

// ResultTable holds one record per signalling symbol, in ranked order.
type ResultTable []SignalRecord

// Symbols returns the tickers of the table in order.
func (t ResultTable) Symbols() []string {
	out := make([]string, len(t))
	for i, r := range t {
		out[i] = r.Symbol
	}
	return out
}

// RankOrder selects how the result table is sorted by drawdown.
type RankOrder string

const (
	// RankShallowFirst sorts Drop% descending: -6.0 before -9.0.
	RankShallowFirst RankOrder = "shallow_first"
	// RankDeepFirst sorts Drop% ascending: -9.0 before -6.0.
	RankDeepFirst RankOrder = "deep_first"
)
