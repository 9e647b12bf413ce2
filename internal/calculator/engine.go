package calculator

import (
	"fmt"
	"math"

	"PullbackScanner/internal/model"
)

// Params holds the indicator window lengths.
type Params struct {
	EMAFast    int     `yaml:"ema_fast"`
	EMASlow    int     `yaml:"ema_slow"`
	RSI        int     `yaml:"rsi"`
	VolMA      int     `yaml:"vol_ma"`
	BandWindow int     `yaml:"band_window"`
	BandK      float64 `yaml:"band_k"`
	Epsilon    float64 `yaml:"epsilon"`
}

// DefaultParams returns EMA 20/50, RSI 14, volume MA 20 and 20/2 bands.
func DefaultParams() Params {
	return Params{
		EMAFast:    20,
		EMASlow:    50,
		RSI:        14,
		VolMA:      20,
		BandWindow: 20,
		BandK:      2,
		Epsilon:    1e-9,
	}
}

// Validate checks that all windows are positive and fast < slow.
func (p Params) Validate() error {
	if p.EMAFast <= 0 || p.EMASlow <= 0 || p.RSI <= 0 || p.VolMA <= 0 || p.BandWindow <= 0 {
		return fmt.Errorf("indicator windows must be positive: %+v", p)
	}
	if p.EMAFast >= p.EMASlow {
		return fmt.Errorf("ema_fast (%d) must be less than ema_slow (%d)", p.EMAFast, p.EMASlow)
	}
	if p.BandK < 0 {
		return fmt.Errorf("band_k must not be negative")
	}
	if p.Epsilon <= 0 {
		return fmt.Errorf("epsilon must be positive")
	}
	return nil
}

// Compute derives the indicator columns for one symbol's bars. The output has
// the same length and order as bars; rows inside an indicator's warm-up carry
// Missing for that indicator.
func Compute(bars []model.OHLCV, p Params) []model.IndicatorRow {
	closes := model.Closes(bars)
	volumes := model.Volumes(bars)

	emaFast := EMASeries(closes, p.EMAFast)
	emaSlow := EMASeries(closes, p.EMASlow)
	rsi := RSISeries(closes, p.RSI)
	volMA := SMASeries(volumes, p.VolMA)
	bandHigh, bandMid, bandLow := BandSeries(closes, p.BandWindow, p.BandK)

	rows := make([]model.IndicatorRow, len(bars))
	for i, b := range bars {
		rows[i] = model.IndicatorRow{
			OHLCV:    b,
			EMAFast:  emaFast[i],
			EMASlow:  emaSlow[i],
			RSI:      rsi[i],
			VolMA:    volMA[i],
			VolRel:   model.Missing,
			BandHigh: bandHigh[i],
			BandMid:  bandMid[i],
			BandLow:  bandLow[i],
		}
		if !model.IsMissing(volMA[i]) {
			rows[i].VolRel = b.Volume / (math.Max(volMA[i], 0) + p.Epsilon)
		}
	}

	// from_high last: it only depends on the close column's running max
	fromHigh := FromHighSeries(closes)
	for i := range rows {
		rows[i].FromHigh = fromHigh[i]
	}
	return rows
}
