package strategy

import (
	"fmt"
	"sort"

	"PullbackScanner/internal/model"
)

// ParseRankOrder validates a configured rank order; empty means shallow_first.
func ParseRankOrder(s string) (model.RankOrder, error) {
	switch model.RankOrder(s) {
	case "", model.RankShallowFirst:
		return model.RankShallowFirst, nil
	case model.RankDeepFirst:
		return model.RankDeepFirst, nil
	default:
		return "", fmt.Errorf("unknown rank order %q", s)
	}
}

// Rank returns a sorted copy of the table. shallow_first orders by drawdown
// descending (-6.0 before -9.0); deep_first is the reverse. Equal drawdowns
// fall back to the symbol so the output is deterministic.
func Rank(table model.ResultTable, order model.RankOrder) model.ResultTable {
	out := make(model.ResultTable, len(table))
	copy(out, table)

	sort.SliceStable(out, func(i, j int) bool {
		di := out[i].Rounded().DropPct
		dj := out[j].Rounded().DropPct
		if !di.Equal(dj) {
			if order == model.RankDeepFirst {
				return di.LessThan(dj)
			}
			return di.GreaterThan(dj)
		}
		return out[i].Symbol < out[j].Symbol
	})
	return out
}
