package risk

// Limits caps how much quote currency a single simulated buy may deploy.
// A zero or negative cap disables the check.
type Limits struct {
	MaxAllocationPerTrade float64
}

func (l Limits) Allow(allocation float64) bool {
	if l.MaxAllocationPerTrade <= 0 {
		return true
	}
	return allocation <= l.MaxAllocationPerTrade
}
