package market

import "math"

// VolumeStats aggregates trade volume over a window.
type VolumeStats struct {
	Mean        float64
	StdDev      float64
	SampleCount int
	Min         float64
	Max         float64
	LastUpdate  int64 // ms
}

// StatsFromTrades computes exact mean/stddev/min/max over the trades
// currently in the window. An empty window yields a zeroed result.
// This is the authoritative path for oracle and weighting.
func StatsFromTrades(trades []Trade) VolumeStats {
	if len(trades) == 0 {
		return VolumeStats{}
	}

	var sum float64
	min := trades[0].Volume
	max := trades[0].Volume
	last := trades[0].Timestamp
	for _, t := range trades {
		sum += t.Volume
		if t.Volume < min {
			min = t.Volume
		}
		if t.Volume > max {
			max = t.Volume
		}
		if t.Timestamp > last {
			last = t.Timestamp
		}
	}
	mean := sum / float64(len(trades))

	var varSum float64
	for _, t := range trades {
		d := t.Volume - mean
		varSum += d * d
	}
	std := math.Sqrt(varSum / float64(len(trades)))

	return VolumeStats{
		Mean:        mean,
		StdDev:      std,
		SampleCount: len(trades),
		Min:         min,
		Max:         max,
		LastUpdate:  last,
	}
}

// WelfordTracker maintains running volume statistics incrementally.
type WelfordTracker struct {
	count int
	mean  float64
	m2    float64
	min   float64
	max   float64
	last  int64
}

// Observe folds one trade into the running statistics.
func (w *WelfordTracker) Observe(t Trade) {
	w.count++
	if w.count == 1 {
		w.min = t.Volume
		w.max = t.Volume
	} else {
		if t.Volume < w.min {
			w.min = t.Volume
		}
		if t.Volume > w.max {
			w.max = t.Volume
		}
	}
	delta := t.Volume - w.mean
	w.mean += delta / float64(w.count)
	w.m2 += delta * (t.Volume - w.mean)
	if t.Timestamp > w.last {
		w.last = t.Timestamp
	}
}

// Stats returns the current aggregate. Fewer than one observation yields zeros.
func (w *WelfordTracker) Stats() VolumeStats {
	if w.count == 0 {
		return VolumeStats{}
	}
	return VolumeStats{
		Mean:        w.mean,
		StdDev:      math.Sqrt(w.m2 / float64(w.count)),
		SampleCount: w.count,
		Min:         w.min,
		Max:         w.max,
		LastUpdate:  w.last,
	}
}

// DefaultMinVWAPTrades is the minimum trade count for a defined VWAP.
const DefaultMinVWAPTrades = 3

// VWAPFromTrades computes the volume-weighted average price over the window.
// Returns ok=false when there are too few trades or no volume, so callers
// can fall back to the last quoted price.
func VWAPFromTrades(trades []Trade, minTrades int) (float64, bool) {
	if minTrades <= 0 {
		minTrades = DefaultMinVWAPTrades
	}
	if len(trades) < minTrades {
		return 0, false
	}
	var pv, vol float64
	for _, t := range trades {
		pv += t.Price * t.Volume
		vol += t.Volume
	}
	if vol == 0 {
		return 0, false
	}
	return pv / vol, true
}
