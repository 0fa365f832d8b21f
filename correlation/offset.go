package correlation

import "price-oracle-go/market"

// SearchConfig controls the offset grid search.
type SearchConfig struct {
	OffsetRangeMs   int64 // search candidates in [-range, +range]
	OffsetStepMs    int64 // grid step
	PairToleranceMs int64 // max timestamp distance for pairing two samples
	MinOverlapMs    int64 // minimum overlap window duration
	MinSampleSize   int   // minimum paired-sample count
}

// DefaultSearchConfig matches a 600-snapshot buffer at 100ms cadence:
// 121 candidate offsets, 45s minimum overlap, 450 minimum pairs.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		OffsetRangeMs:   3000,
		OffsetStepMs:    50,
		PairToleranceMs: 100,
		MinOverlapMs:    45_000,
		MinSampleSize:   450,
	}
}

func (c SearchConfig) withDefaults() SearchConfig {
	d := DefaultSearchConfig()
	if c.OffsetRangeMs <= 0 {
		c.OffsetRangeMs = d.OffsetRangeMs
	}
	if c.OffsetStepMs <= 0 {
		c.OffsetStepMs = d.OffsetStepMs
	}
	if c.PairToleranceMs <= 0 {
		c.PairToleranceMs = d.PairToleranceMs
	}
	if c.MinOverlapMs <= 0 {
		c.MinOverlapMs = d.MinOverlapMs
	}
	if c.MinSampleSize <= 0 {
		c.MinSampleSize = d.MinSampleSize
	}
	return c
}

// OffsetResult is the winning candidate of one grid search.
// Callers must check SampleSize before trusting Correlation: an infeasible
// search reports correlation -1 with zero samples.
type OffsetResult struct {
	OffsetMs    int64
	Correlation float64
	SampleSize  int
	OverlapMs   int64
}

// FindOptimalOffset scans candidate time offsets and reports the one that
// best aligns B's returns with A's. For each candidate, B's timestamps are
// shifted, both series are merge-joined on timestamps within the pairing
// tolerance, and the Pearson correlation of the paired returns is computed.
// The candidate with the maximum correlation wins.
func FindOptimalOffset(a, b *market.Returns, cfg SearchConfig) OffsetResult {
	cfg = cfg.withDefaults()
	best := OffsetResult{Correlation: -1}
	if a == nil || b == nil || a.SampleCount == 0 || b.SampleCount == 0 {
		return best
	}

	found := false
	for offset := -cfg.OffsetRangeMs; offset <= cfg.OffsetRangeMs; offset += cfg.OffsetStepMs {
		start := a.Timestamps[0]
		if s := b.Timestamps[0] + offset; s > start {
			start = s
		}
		end := a.Timestamps[len(a.Timestamps)-1]
		if e := b.Timestamps[len(b.Timestamps)-1] + offset; e < end {
			end = e
		}
		overlap := end - start
		if overlap < 0 {
			continue
		}
		if overlap < cfg.MinOverlapMs {
			continue
		}

		pairedA, pairedB := mergeJoin(a, b, offset, start, end, cfg.PairToleranceMs)
		if len(pairedA) < cfg.MinSampleSize {
			continue
		}

		corr := Pearson(pairedA, pairedB)
		if !found || corr > best.Correlation {
			best = OffsetResult{
				OffsetMs:    offset,
				Correlation: corr,
				SampleSize:  len(pairedA),
				OverlapMs:   overlap,
			}
			found = true
		}
	}
	return best
}

// mergeJoin walks both timestamp sequences with two cursors, pairing samples
// whose shifted timestamps differ by less than tolerance and fall inside the
// overlap window. O(|A|+|B|), not a cross product.
func mergeJoin(a, b *market.Returns, offset, start, end, toleranceMs int64) ([]float64, []float64) {
	outA := make([]float64, 0, len(a.Returns))
	outB := make([]float64, 0, len(b.Returns))
	i, j := 0, 0
	for i < len(a.Timestamps) && j < len(b.Timestamps) {
		ta := a.Timestamps[i]
		tb := b.Timestamps[j] + offset
		diff := ta - tb
		if diff < 0 {
			diff = -diff
		}
		if diff < toleranceMs {
			if ta >= start && ta <= end {
				outA = append(outA, a.Returns[i])
				outB = append(outB, b.Returns[j])
			}
			i++
			j++
			continue
		}
		if ta < tb {
			i++
		} else {
			j++
		}
	}
	return outA, outB
}
