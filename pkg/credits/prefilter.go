package credits

import "slices"

// AboveLowestThreshold keeps the users whose live cost has reached the
// lowest alert fraction of their limit. Anyone below it can neither be
// alerted nor exhausted, so batch producers drop them before dispatch.
// Users without a live cost or account are dropped too.
func AboveLowestThreshold(ids []int64, live map[int64]float64, accounts map[int64]Account, thresholds Thresholds) []int64 {
	lowest, ok := thresholds.Lowest()
	var out []int64
	for _, id := range ids {
		cost, hasCost := live[id]
		acct, hasAcct := accounts[id]
		if !hasCost || !hasAcct {
			continue
		}
		if !ok || CompareCosts(acct.Limit, 0) <= 0 {
			out = append(out, id)
			continue
		}
		if CompareCostFractions(cost/acct.Limit, lowest) >= 0 {
			out = append(out, id)
		}
	}
	return out
}

// Partition splits ids into consecutive batches of at most size entries.
func Partition(ids []int64, size int) [][]int64 {
	if len(ids) == 0 {
		return nil
	}
	if size < 1 {
		size = len(ids)
	}
	return slices.Collect(slices.Chunk(ids, size))
}
