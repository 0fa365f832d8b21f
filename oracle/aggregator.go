package oracle

import (
	"sort"

	"price-oracle-go/logs"
	"price-oracle-go/market"
	"price-oracle-go/metrics"
)

// Confidence tiers the composite price by source count and spread.
type Confidence int

const (
	ConfidenceLow Confidence = iota
	ConfidenceMedium
	ConfidenceHigh
)

// String 返回档位名称
func (c Confidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "HIGH"
	case ConfidenceMedium:
		return "MEDIUM"
	case ConfidenceLow:
		return "LOW"
	default:
		return "UNKNOWN"
	}
}

// Result is one composite price computation. It carries the audit fields
// needed to see why a given confidence was assigned. Recomputed from
// scratch on demand; no persisted identity.
type Result struct {
	Price         float64
	Confidence    Confidence
	ValidSources  int
	LowestPrice   float64
	HighestPrice  float64
	SpreadPercent float64
	Timestamp     int64 // ms
}

// Config holds the staleness and confidence thresholds.
type Config struct {
	MaxStalenessMs     int64   // max quote age for a source to count
	MinSources         int     // below this the oracle yields no result
	MinVWAPTrades      int     // below this VWAP falls back to last price
	HighMinSources     int     // HIGH tier source floor
	HighMaxSpreadPct   float64 // HIGH tier spread ceiling (percent)
	MediumMinSources   int     // MEDIUM tier source floor
	MediumMaxSpreadPct float64 // MEDIUM tier spread ceiling (percent)
}

// DefaultConfig returns the standard thresholds.
func DefaultConfig() Config {
	return Config{
		MaxStalenessMs:     5000,
		MinSources:         3,
		MinVWAPTrades:      market.DefaultMinVWAPTrades,
		HighMinSources:     6,
		HighMaxSpreadPct:   0.5,
		MediumMinSources:   4,
		MediumMaxSpreadPct: 1.0,
	}
}

// Aggregator computes the median composite price across fresh sources.
// Independent of the correlation matrix.
type Aggregator struct {
	svc   *market.Service
	cfg   Config
	log   logs.Logger
	clock market.Clock
}

func NewAggregator(svc *market.Service, cfg Config, log logs.Logger) *Aggregator {
	if cfg.MaxStalenessMs <= 0 {
		cfg.MaxStalenessMs = 5000
	}
	if cfg.MinSources <= 0 {
		cfg.MinSources = 3
	}
	if log == nil {
		log = logs.DefaultLogger
	}
	return &Aggregator{
		svc:   svc,
		cfg:   cfg,
		log:   log,
		clock: market.NowUTC,
	}
}

// SetClock 注入时钟，测试用。
func (a *Aggregator) SetClock(c market.Clock) { a.clock = c }

// Compute returns the current composite price, or nil when fewer than
// MinSources fresh prices exist. Too few live sources is the expected
// steady-state during startup or outages, not a failure.
func (a *Aggregator) Compute() *Result {
	nowMs := market.UnixMs(a.clock)
	prices := make([]float64, 0, 8)
	for _, ex := range a.svc.Exchanges() {
		last := a.svc.LastUpdate(ex)
		if last == 0 || nowMs-last > a.cfg.MaxStalenessMs {
			continue
		}
		if vwap, ok := market.VWAPFromTrades(a.svc.TradesSnapshot(ex, nowMs), a.cfg.MinVWAPTrades); ok {
			prices = append(prices, vwap)
			continue
		}
		if q, ok := a.svc.CurrentQuote(ex); ok && q.Price > 0 {
			prices = append(prices, q.Price)
		}
	}

	if len(prices) < a.cfg.MinSources {
		return nil
	}

	sort.Float64s(prices)
	median := medianOf(prices)
	lowest := prices[0]
	highest := prices[len(prices)-1]
	spread := 0.0
	if lowest > 0 {
		spread = (highest - lowest) / lowest * 100
	}

	res := &Result{
		Price:         median,
		Confidence:    tier(a.cfg, len(prices), spread),
		ValidSources:  len(prices),
		LowestPrice:   lowest,
		HighestPrice:  highest,
		SpreadPercent: spread,
		Timestamp:     nowMs,
	}

	metrics.OraclePrice.Set(res.Price)
	metrics.OracleConfidence.Set(float64(res.Confidence))
	metrics.OracleValidSources.Set(float64(res.ValidSources))
	metrics.OracleSpreadPercent.Set(res.SpreadPercent)
	return res
}

// medianOf expects a sorted, non-empty slice.
func medianOf(sorted []float64) float64 {
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// tier 按优先级判定置信档位：先 HIGH，再 MEDIUM，否则 LOW。
func tier(cfg Config, sources int, spreadPct float64) Confidence {
	if sources >= cfg.HighMinSources && spreadPct <= cfg.HighMaxSpreadPct {
		return ConfidenceHigh
	}
	if sources >= cfg.MediumMinSources && spreadPct <= cfg.MediumMaxSpreadPct {
		return ConfidenceMedium
	}
	return ConfidenceLow
}
