package calculator

// RSISeries computes the Wilder-smoothed RSI over the given period for every
// bar. Gains and losses are smoothed with alpha = 1/period, adjust-free, and
// the first bar has no change so it enters the averages as a zero gain and a
// zero loss. The first period rows are Missing. When the average loss is zero
// the RSI is 100, so flat input never yields NaN.
func RSISeries(closes []float64, period int) []float64 {
	out := missingSeries(len(closes))
	if period <= 0 || len(closes) < 2 {
		return out
	}

	alpha := 1.0 / float64(period)
	var avgGain, avgLoss float64 // bar 0 observation is 0
	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		gain, loss := 0.0, 0.0
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = avgGain*(1-alpha) + gain*alpha
		avgLoss = avgLoss*(1-alpha) + loss*alpha

		if i < period {
			continue
		}
		if avgLoss == 0 {
			out[i] = 100.0
			continue
		}
		rs := avgGain / avgLoss
		out[i] = 100.0 - 100.0/(1.0+rs)
	}
	return out
}
