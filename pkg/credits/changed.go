package credits

// ChangedCosts returns the snapshots whose live cost differs from the
// recorded one. Users without a live cost this round are never changed.
func ChangedCosts(snapshots []Snapshot) []Snapshot {
	var out []Snapshot
	for _, s := range snapshots {
		if s.Live == nil {
			continue
		}
		if CostsDiffer(s.RecordedOrZero(), *s.Live) {
			out = append(out, s)
		}
	}
	return out
}
