package correlation

// Weight blend factors. Correlation dominates; liquidity and sample depth
// are comparative within one matrix cycle.
const (
	correlationFactor = 0.5
	liquidityFactor   = 0.3
	depthFactor       = 0.2
)

// PairWeight blends correlation strength, pair liquidity and sample depth
// into a single trust score in [0,1]. Negative correlation contributes zero
// weight, never a penalty. The maxima are cycle-wide so weights are
// comparable only within one cycle.
func PairWeight(correlation, avgLiquidity, maxLiquidity, avgDepth, maxDepth float64) float64 {
	w := 0.0
	if correlation > 0 {
		w += correlationFactor * correlation
	}
	if maxLiquidity > 0 {
		w += liquidityFactor * (avgLiquidity / maxLiquidity)
	}
	if maxDepth > 0 {
		w += depthFactor * (avgDepth / maxDepth)
	}
	if w > 1 {
		w = 1
	}
	return w
}
