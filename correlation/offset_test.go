package correlation

import (
	"math"
	"math/rand"
	"testing"

	"price-oracle-go/market"
)

// syntheticReturns 生成 n 个等间隔随机收益率样本。
func syntheticReturns(exchange string, t0 int64, n int, spacingMs int64, seed int64) *market.Returns {
	rng := rand.New(rand.NewSource(seed))
	ret := &market.Returns{Exchange: exchange}
	for i := 0; i < n; i++ {
		ret.Returns = append(ret.Returns, rng.NormFloat64()*0.001)
		ret.Timestamps = append(ret.Timestamps, t0+int64(i)*spacingMs)
	}
	ret.SampleCount = n
	return ret
}

func testSearchConfig() SearchConfig {
	return SearchConfig{
		OffsetRangeMs:   1000,
		OffsetStepMs:    50,
		PairToleranceMs: 50,
		MinOverlapMs:    10_000,
		MinSampleSize:   100,
	}
}

func TestFindOptimalOffsetRecoversKnownShift(t *testing.T) {
	const shiftMs = 350
	a := syntheticReturns("a", 1_000_000, 600, 100, 7)
	// B 观察到同样的收益序列，但本地时钟落后 shiftMs
	b := &market.Returns{
		Exchange:    "b",
		Returns:     append([]float64(nil), a.Returns...),
		SampleCount: a.SampleCount,
	}
	for _, ts := range a.Timestamps {
		b.Timestamps = append(b.Timestamps, ts-shiftMs)
	}

	res := FindOptimalOffset(a, b, testSearchConfig())
	if res.SampleSize == 0 {
		t.Fatal("expected feasible search")
	}
	if res.OffsetMs != shiftMs {
		t.Fatalf("expected offset %d, got %d", shiftMs, res.OffsetMs)
	}
	if math.Abs(res.Correlation-1.0) > 1e-9 {
		t.Fatalf("expected correlation ~1.0, got %v", res.Correlation)
	}
	if res.OverlapMs < 10_000 {
		t.Fatalf("expected overlap >= minimum, got %d", res.OverlapMs)
	}
}

func TestFindOptimalOffsetZeroShift(t *testing.T) {
	a := syntheticReturns("a", 2_000_000, 600, 100, 11)
	b := &market.Returns{
		Exchange:    "b",
		Returns:     append([]float64(nil), a.Returns...),
		Timestamps:  append([]int64(nil), a.Timestamps...),
		SampleCount: a.SampleCount,
	}
	res := FindOptimalOffset(a, b, testSearchConfig())
	if res.OffsetMs != 0 {
		t.Fatalf("expected offset 0, got %d", res.OffsetMs)
	}
	if math.Abs(res.Correlation-1.0) > 1e-9 {
		t.Fatalf("expected correlation ~1.0, got %v", res.Correlation)
	}
}

func TestFindOptimalOffsetNoOverlap(t *testing.T) {
	a := syntheticReturns("a", 0, 200, 100, 3)
	b := syntheticReturns("b", 10_000_000, 200, 100, 4)
	res := FindOptimalOffset(a, b, testSearchConfig())
	// 不可行：调用方必须先检查 SampleSize
	if res.SampleSize != 0 {
		t.Fatalf("expected zero samples, got %d", res.SampleSize)
	}
	if res.Correlation != -1 {
		t.Fatalf("expected correlation -1, got %v", res.Correlation)
	}
}

func TestFindOptimalOffsetInsufficientOverlap(t *testing.T) {
	cfg := testSearchConfig()
	cfg.MinOverlapMs = 45_000
	// 只有 20s 的序列，重叠必然不足
	a := syntheticReturns("a", 0, 200, 100, 5)
	b := syntheticReturns("b", 0, 200, 100, 6)
	res := FindOptimalOffset(a, b, cfg)
	if res.SampleSize != 0 {
		t.Fatalf("expected infeasible result, got %d samples", res.SampleSize)
	}
}

func TestFindOptimalOffsetNilInputs(t *testing.T) {
	res := FindOptimalOffset(nil, nil, testSearchConfig())
	if res.SampleSize != 0 || res.Correlation != -1 {
		t.Fatalf("expected empty result, got %+v", res)
	}
}
