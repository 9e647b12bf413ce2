package calculator

// FromHighSeries returns close / running max(close) - 1 for every bar. The
// running max covers the whole series, so the first value is 0 and no value is
// ever positive.
func FromHighSeries(closes []float64) []float64 {
	out := make([]float64, len(closes))
	runMax := 0.0
	for i, c := range closes {
		if i == 0 || c > runMax {
			runMax = c
		}
		if runMax == 0 {
			out[i] = 0
			continue
		}
		out[i] = c/runMax - 1
		if out[i] > 0 {
			// only reachable with negative prices
			out[i] = 0
		}
	}
	return out
}
