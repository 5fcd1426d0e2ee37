package catalogs

// Pick returns the index selected by a uniform draw u in [0,1) against the
// cumulative weights, scanning in table order. It returns -1 for an empty or
// zero-weight table.
func Pick(ws []Weighted, u float64) int {
	total := 0.0
	for _, w := range ws {
		total += w.Weight
	}
	if total <= 0 {
		return -1
	}
	target := u * total
	acc := 0.0
	for i, w := range ws {
		acc += w.Weight
		if target < acc {
			return i
		}
	}
	return len(ws) - 1
}
