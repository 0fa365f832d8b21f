package market

// Returns is the relative price-change series derived from a snapshot
// sequence. Timestamps are client timestamps of the later sample of each
// pair. It is derived on demand, never stored.
type Returns struct {
	Exchange    string
	Returns     []float64
	Timestamps  []int64
	SampleCount int
}

// CalculateReturns converts a snapshot sequence into a returns series.
// Fewer than 2 snapshots is a normal outcome and yields nil, not an error.
// A previous price of exactly zero produces no return for that pair rather
// than propagating Inf/NaN.
func CalculateReturns(snapshots []PriceSnapshot, exchange string) *Returns {
	if len(snapshots) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(snapshots)-1)
	timestamps := make([]int64, 0, len(snapshots)-1)
	for i := 1; i < len(snapshots); i++ {
		prev := snapshots[i-1].Price
		if prev == 0 {
			continue
		}
		returns = append(returns, (snapshots[i].Price-prev)/prev)
		timestamps = append(timestamps, snapshots[i].ClientTimestamp)
	}

	return &Returns{
		Exchange:    exchange,
		Returns:     returns,
		Timestamps:  timestamps,
		SampleCount: len(returns),
	}
}
