package strategy

import (
	"fmt"

	"PullbackScanner/internal/model"
)

// Rule holds the thresholds of the pullback-in-an-uptrend condition.
// Band bounds are inclusive; VolRelMax is exclusive.
type Rule struct {
	RSIMin      float64 `yaml:"rsi_min"`
	RSIMax      float64 `yaml:"rsi_max"`
	FromHighMin float64 `yaml:"from_high_min"`
	FromHighMax float64 `yaml:"from_high_max"`
	VolRelMax   float64 `yaml:"vol_rel_max"`
}

// DefaultRule returns RSI 45..60, 5-12% below the running high and volume
// under 85% of its average.
func DefaultRule() Rule {
	return Rule{
		RSIMin:      45,
		RSIMax:      60,
		FromHighMin: -0.12,
		FromHighMax: -0.05,
		VolRelMax:   0.85,
	}
}

// Validate rejects inverted or out-of-range bands.
func (r Rule) Validate() error {
	if r.RSIMin > r.RSIMax {
		return fmt.Errorf("rsi band inverted: %.2f > %.2f", r.RSIMin, r.RSIMax)
	}
	if r.RSIMin < 0 || r.RSIMax > 100 {
		return fmt.Errorf("rsi band must be within [0,100]")
	}
	if r.FromHighMin > r.FromHighMax {
		return fmt.Errorf("from_high band inverted: %.4f > %.4f", r.FromHighMin, r.FromHighMax)
	}
	if r.FromHighMax > 0 {
		return fmt.Errorf("from_high_max must be <= 0")
	}
	if r.VolRelMax <= 0 {
		return fmt.Errorf("vol_rel_max must be positive")
	}
	return nil
}

// Matches reports whether a single row satisfies all four conditions. Rows
// with any undefined indicator never match.
func (r Rule) Matches(row model.IndicatorRow) bool {
	if !row.Complete() {
		return false
	}
	uptrend := row.EMAFast > row.EMASlow
	cooled := row.RSI >= r.RSIMin && row.RSI <= r.RSIMax
	pulledBack := row.FromHigh >= r.FromHighMin && row.FromHigh <= r.FromHighMax
	dryVolume := row.VolRel < r.VolRelMax
	return uptrend && cooled && pulledBack && dryVolume
}

// Evaluate returns the most recent row matching the rule as a signal record,
// or nil when no row qualifies (including empty input).
func Evaluate(symbol string, rows []model.IndicatorRow, rule Rule) *model.SignalRecord {
	for i := len(rows) - 1; i >= 0; i-- {
		row := rows[i]
		if !rule.Matches(row) {
			continue
		}
		return &model.SignalRecord{
			Symbol:   symbol,
			Time:     row.Time,
			Close:    row.Close,
			RSI:      row.RSI,
			FromHigh: row.FromHigh,
		}
	}
	return nil
}
