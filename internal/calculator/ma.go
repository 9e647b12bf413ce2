package calculator

import (
	"math"

	"PullbackScanner/internal/model"
)

// SMASeries computes the simple moving average of values over window using a
// running sum. Rows before the first full window are Missing.
func SMASeries(values []float64, window int) []float64 {
	out := missingSeries(len(values))
	if window <= 0 {
		return out
	}
	sum := 0.0
	for i, v := range values {
		sum += v
		if i >= window {
			sum -= values[i-window]
		}
		if i >= window-1 {
			out[i] = sum / float64(window)
		}
	}
	return out
}

// EMASeries computes the exponential moving average with alpha = 2/(window+1),
// seeded from the first close. The first window-1 rows are Missing.
func EMASeries(values []float64, window int) []float64 {
	out := missingSeries(len(values))
	if window <= 0 || len(values) == 0 {
		return out
	}
	alpha := 2.0 / float64(window+1)
	ema := values[0]
	for i, v := range values {
		if i > 0 {
			ema = v*alpha + ema*(1-alpha)
		}
		if i >= window-1 {
			out[i] = ema
		}
	}
	return out
}

// StdDevSeries computes the rolling population standard deviation (ddof 0)
// from running sums of values and their squares.
func StdDevSeries(values []float64, window int) []float64 {
	out := missingSeries(len(values))
	if window <= 0 {
		return out
	}
	n := float64(window)
	sum, sumSq := 0.0, 0.0
	for i, v := range values {
		sum += v
		sumSq += v * v
		if i >= window {
			old := values[i-window]
			sum -= old
			sumSq -= old * old
		}
		if i >= window-1 {
			mean := sum / n
			variance := sumSq/n - mean*mean
			if variance < 0 {
				// running sums can drift slightly below zero on flat input
				variance = 0
			}
			out[i] = math.Sqrt(variance)
		}
	}
	return out
}

// BandSeries returns the volatility bands: mid ± k standard deviations of
// values, both over the same window.
func BandSeries(values []float64, window int, k float64) (high, mid, low []float64) {
	mid = SMASeries(values, window)
	std := StdDevSeries(values, window)
	high = missingSeries(len(values))
	low = missingSeries(len(values))
	for i := range values {
		if model.IsMissing(mid[i]) || model.IsMissing(std[i]) {
			continue
		}
		high[i] = mid[i] + k*std[i]
		low[i] = mid[i] - k*std[i]
	}
	return high, mid, low
}

func missingSeries(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = model.Missing
	}
	return out
}
