package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"price-oracle-go/correlation"
	"price-oracle-go/gap"
	"price-oracle-go/internal/engine"
	"price-oracle-go/logs"
	"price-oracle-go/market"
	"price-oracle-go/oracle"
)

// 离线回放：多个合成交易所跟随同一条随机游走价格，各自带固定延迟，
// 验证偏移搜索能否从纯数据恢复配置的延迟。不依赖网络。
func main() {
	duration := flag.Duration("duration", 90*time.Second, "回放时长")
	basePrice := flag.Float64("basePrice", 65000, "初始价格")
	offsetRangeMs := flag.Int64("offsetRangeMs", 1500, "偏移搜索范围")
	minOverlapMs := flag.Int64("minOverlapMs", 20_000, "最小重叠窗口")
	minSamples := flag.Int("minSamples", 150, "最小配对样本数")
	seed := flag.Int64("seed", 42, "随机种子")
	flag.Parse()

	// 各合成交易所的延迟与费率
	feeds := []struct {
		name     string
		delayMs  int64
		feePct   float64
		noisePct float64
	}{
		{"alpha", 0, 0.04, 0.0001},
		{"bravo", 200, 0.06, 0.0001},
		{"charlie", 450, 0.10, 0.0002},
		{"delta", 800, 0.05, 0.0001},
	}

	svc := market.NewService(market.DefaultHistorySize, market.DefaultTradeWindowMs)
	builder := correlation.NewBuilder(svc, correlation.BuilderConfig{
		Search: correlation.SearchConfig{
			OffsetRangeMs: *offsetRangeMs,
			OffsetStepMs:  50,
			MinOverlapMs:  *minOverlapMs,
			MinSampleSize: *minSamples,
		},
		Interval: 10 * time.Second,
	}, logs.DefaultLogger)

	fees := make(map[string]float64, len(feeds))
	for _, f := range feeds {
		fees[f.name] = f.feePct
	}
	agg := oracle.NewAggregator(svc, oracle.DefaultConfig(), logs.DefaultLogger)
	det := gap.NewDetector(svc, gap.Config{Fees: fees}, logs.DefaultLogger)

	eng, err := engine.New(engine.Config{
		SamplingInterval: 100 * time.Millisecond,
	}, engine.Components{
		Market: svc,
		Matrix: builder,
		Oracle: agg,
		Gaps:   det,
		Logger: logs.DefaultLogger,
	})
	if err != nil {
		log.Fatalf("init engine: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *duration)
	defer cancel()
	if err := eng.Start(ctx); err != nil {
		log.Fatalf("start engine: %v", err)
	}

	path := newPricePath(*basePrice, 10, *seed)
	var wg sync.WaitGroup
	for _, f := range feeds {
		f := f
		wg.Add(1)
		go func() {
			defer wg.Done()
			rng := rand.New(rand.NewSource(*seed + f.delayMs))
			ticker := time.NewTicker(100 * time.Millisecond)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					now := time.Now().UnixMilli()
					p := path.PriceAt(now - f.delayMs)
					p *= 1 + (rng.Float64()*2-1)*f.noisePct
					tick := market.Tick{
						Exchange:   f.name,
						Price:      p,
						Bid:        p * (1 - 0.0001),
						Ask:        p * (1 + 0.0001),
						ServerTime: now,
					}
					if rng.Float64() < 0.5 {
						tick.Trades = []market.Trade{{
							Price:     p,
							Volume:    rng.Float64() * 2,
							Timestamp: now,
						}}
					}
					eng.OnTick(tick)
				}
			}
		}()
	}

	<-ctx.Done()
	wg.Wait()

	m := builder.ComputeOnce()
	fmt.Println("=== correlation matrix ===")
	for _, r := range m.Results {
		fmt.Printf("%s/%s corr=%.4f offset=%dms samples=%d weight=%.3f\n",
			r.ExchangeA, r.ExchangeB, r.Correlation, r.OptimalOffsetMs, r.SampleSize, r.Weight)
	}
	fmt.Printf("healthy=%v avg_correlation=%.4f\n", m.HealthyExchanges, m.AverageCorrelation)

	if res := eng.Oracle(); res != nil {
		raw, _ := json.MarshalIndent(res, "", "  ")
		fmt.Printf("=== oracle ===\n%s\n", raw)
	} else {
		fmt.Println("=== oracle === insufficient sources")
	}

	an := eng.Gaps()
	fmt.Printf("=== gaps === %d opportunities, avg net %.4f%%\n",
		len(an.Opportunities), an.AverageNetGapPercent)
	if an.Best != nil {
		fmt.Printf("best: buy %s @%.2f sell %s @%.2f net %.4f%%\n",
			an.Best.BuyExchange, an.Best.BuyPrice,
			an.Best.SellExchange, an.Best.SellPrice, an.Best.NetGapPercent)
	}

	eng.Stop()
}

// pricePath 以固定分辨率延展的随机游走，线程安全。
type pricePath struct {
	mu      sync.Mutex
	prices  []float64
	startMs int64
	stepMs  int64
	rng     *rand.Rand
}

func newPricePath(base float64, stepMs int64, seed int64) *pricePath {
	return &pricePath{
		prices:  []float64{base},
		startMs: time.Now().UnixMilli() - 5000, // 预留延迟回看余量
		stepMs:  stepMs,
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// PriceAt 返回 tMs 时刻的路径价格，必要时向前延展路径。
func (p *pricePath) PriceAt(tMs int64) float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	idx := (tMs - p.startMs) / p.stepMs
	if idx < 0 {
		idx = 0
	}
	for int64(len(p.prices)) <= idx {
		last := p.prices[len(p.prices)-1]
		p.prices = append(p.prices, last*(1+p.rng.NormFloat64()*0.0002))
	}
	return p.prices[idx]
}
