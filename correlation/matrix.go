package correlation

import (
	"context"
	"math"
	"sync"
	"time"

	"price-oracle-go/logs"
	"price-oracle-go/market"
	"price-oracle-go/metrics"
)

// Result is one pair's outcome for one matrix cycle. Immutable after
// creation; the next cycle supersedes it with a fresh value.
type Result struct {
	ExchangeA         string
	ExchangeB         string
	Correlation       float64
	OptimalOffsetMs   int64
	SampleSize        int
	OverlapDurationMs int64
	Weight            float64
	CalculatedAt      int64 // ms
}

// Matrix is the full snapshot of one computation cycle. Consumers always
// see a complete snapshot, never a partially-updated one.
type Matrix struct {
	Results            []Result
	HealthyExchanges   []string
	AverageCorrelation float64
	Timestamp          int64 // ms
}

// BuilderConfig 矩阵计算周期配置。
type BuilderConfig struct {
	Search          SearchConfig
	HealthTimeoutMs int64         // 心跳超时，超过则本周期剔除
	Interval        time.Duration // 计算节拍
}

// DefaultBuilderConfig 默认 30s 周期、5s 心跳超时。
func DefaultBuilderConfig() BuilderConfig {
	return BuilderConfig{
		Search:          DefaultSearchConfig(),
		HealthTimeoutMs: 5000,
		Interval:        30 * time.Second,
	}
}

// Builder 按固定周期做健康过滤、全配对偏移搜索与加权，产出矩阵快照。
type Builder struct {
	svc   *market.Service
	cfg   BuilderConfig
	log   logs.Logger
	clock market.Clock

	mu     sync.RWMutex
	latest Matrix
}

func NewBuilder(svc *market.Service, cfg BuilderConfig, log logs.Logger) *Builder {
	if cfg.HealthTimeoutMs <= 0 {
		cfg.HealthTimeoutMs = 5000
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if log == nil {
		log = logs.DefaultLogger
	}
	return &Builder{
		svc:   svc,
		cfg:   cfg,
		log:   log,
		clock: market.NowUTC,
	}
}

// SetClock 注入时钟，测试用。
func (b *Builder) SetClock(c market.Clock) { b.clock = c }

// Latest 返回最近一次计算的矩阵快照。
func (b *Builder) Latest() Matrix {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.latest
}

// Run 以固定节拍计算矩阵直到 ctx 取消。循环内串行执行，
// 超时的周期由 ticker 丢弃节拍自然跳过，不会重入。
func (b *Builder) Run(ctx context.Context) {
	ticker := time.NewTicker(b.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			b.ComputeOnce()
		}
	}
}

// ComputeOnce 执行一个周期并更新快照。
func (b *Builder) ComputeOnce() Matrix {
	started := b.clock.Now()
	m := b.compute(market.UnixMs(b.clock))
	b.mu.Lock()
	b.latest = m
	b.mu.Unlock()

	metrics.MatrixCycleDuration.Observe(time.Since(started).Seconds())
	metrics.MatrixAverageCorrelation.Set(m.AverageCorrelation)
	metrics.HealthyExchanges.Set(float64(len(m.HealthyExchanges)))
	b.log.Info("correlation matrix computed",
		"healthy", len(m.HealthyExchanges),
		"pairs", len(m.Results),
		"avg_correlation", m.AverageCorrelation,
	)
	return m
}

// pairInput 单交易所进入配对计算的素材。
type pairInput struct {
	returns   *market.Returns
	liquidity float64 // 窗口内总成交量
}

func (b *Builder) compute(nowMs int64) Matrix {
	m := Matrix{
		Results:          []Result{},
		HealthyExchanges: []string{},
		Timestamp:        nowMs,
	}

	// 健康过滤：心跳超时的交易所本周期整体剔除。
	inputs := make(map[string]pairInput)
	for _, ex := range b.svc.Exchanges() {
		last := b.svc.LastUpdate(ex)
		if last > 0 {
			metrics.ExchangeStalenessMs.WithLabelValues(ex).Set(float64(nowMs - last))
		}
		if last == 0 || nowMs-last >= b.cfg.HealthTimeoutMs {
			b.log.Warn("exchange excluded from cycle", "exchange", ex, "reason", "stale heartbeat")
			continue
		}
		ret := market.CalculateReturns(b.svc.HistorySnapshot(ex), ex)
		if ret == nil || ret.SampleCount < b.cfg.Search.MinSampleSize {
			b.log.Info("exchange excluded from cycle", "exchange", ex, "reason", "insufficient samples")
			continue
		}
		stats := market.StatsFromTrades(b.svc.TradesSnapshot(ex, nowMs))
		inputs[ex] = pairInput{
			returns:   ret,
			liquidity: stats.Mean * float64(stats.SampleCount),
		}
		m.HealthyExchanges = append(m.HealthyExchanges, ex)
	}

	if len(m.HealthyExchanges) < 2 {
		return m
	}

	// 第一遍：全配对偏移搜索，同时收集周期内的流动性/深度上限。
	type rawPair struct {
		a, b      string
		res       OffsetResult
		liquidity float64
		depth     float64
	}
	raw := make([]rawPair, 0, len(m.HealthyExchanges)*(len(m.HealthyExchanges)-1)/2)
	var maxLiquidity, maxDepth float64
	for i := 0; i < len(m.HealthyExchanges); i++ {
		for j := i + 1; j < len(m.HealthyExchanges); j++ {
			exA, exB := m.HealthyExchanges[i], m.HealthyExchanges[j]
			inA, inB := inputs[exA], inputs[exB]
			rp := rawPair{
				a:         exA,
				b:         exB,
				res:       FindOptimalOffset(inA.returns, inB.returns, b.cfg.Search),
				liquidity: (inA.liquidity + inB.liquidity) / 2,
				depth:     float64(inA.returns.SampleCount+inB.returns.SampleCount) / 2,
			}
			if rp.liquidity > maxLiquidity {
				maxLiquidity = rp.liquidity
			}
			if rp.depth > maxDepth {
				maxDepth = rp.depth
			}
			raw = append(raw, rp)
		}
	}

	// 第二遍：归一化加权并汇总平均相关性（仅计正相关）。
	var corrSum float64
	var corrCount int
	for _, rp := range raw {
		weight := PairWeight(rp.res.Correlation, rp.liquidity, maxLiquidity, rp.depth, maxDepth)
		m.Results = append(m.Results, Result{
			ExchangeA:         rp.a,
			ExchangeB:         rp.b,
			Correlation:       rp.res.Correlation,
			OptimalOffsetMs:   rp.res.OffsetMs,
			SampleSize:        rp.res.SampleSize,
			OverlapDurationMs: rp.res.OverlapMs,
			Weight:            weight,
			CalculatedAt:      nowMs,
		})
		if rp.res.Correlation > 0 && !math.IsNaN(rp.res.Correlation) {
			corrSum += rp.res.Correlation
			corrCount++
		}
	}
	if corrCount > 0 {
		m.AverageCorrelation = corrSum / float64(corrCount)
	}
	return m
}
