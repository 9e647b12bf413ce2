package model

import "math"

// Missing marks an indicator value that is not defined yet (warm-up rows).
var Missing = math.NaN()

// IsMissing reports whether v is an undefined indicator value.
func IsMissing(v float64) bool {
	return math.IsNaN(v)
}

// IndicatorRow is a bar extended with the derived indicator columns.
type IndicatorRow struct {
	OHLCV
	EMAFast  float64
	EMASlow  float64
	RSI      float64
	VolMA    float64
	VolRel   float64
	BandHigh float64
	BandMid  float64
	BandLow  float64
	FromHigh float64 // close / running max - 1, always <= 0
}

// Complete reports whether every indicator on the row is defined.
func (r IndicatorRow) Complete() bool {
	for _, v := range [...]float64{
		r.EMAFast, r.EMASlow, r.RSI, r.VolMA, r.VolRel,
		r.BandHigh, r.BandMid, r.BandLow, r.FromHigh,
	} {
		if IsMissing(v) {
			return false
		}
	}
	return true
}
