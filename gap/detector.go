package gap

import (
	"sort"

	"price-oracle-go/logs"
	"price-oracle-go/market"
	"price-oracle-go/metrics"
)

// Confidence classifies an opportunity by quote freshness.
type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// Opportunity is one fee-adjusted cross-exchange spread. Ephemeral,
// recomputed per detection cycle.
type Opportunity struct {
	BuyExchange     string
	BuyPrice        float64
	SellExchange    string
	SellPrice       float64
	RawGap          float64
	RawGapPercent   float64
	BuyFee          float64 // percent
	SellFee         float64 // percent
	TotalFees       float64 // percent
	NetGapPercent   float64
	EstimatedProfit float64
	Timestamp       int64 // ms
	IsProfitable    bool
	Confidence      Confidence
}

// Analysis is the ranked result of one detection cycle.
type Analysis struct {
	Opportunities        []Opportunity // sorted descending by net gap percent
	Best                 *Opportunity
	AverageNetGapPercent float64
	HighestPrice         float64
	HighestPriceExchange string
	LowestPrice          float64
	LowestPriceExchange  string
	Timestamp            int64 // ms
}

// Config holds detection thresholds and the static taker-fee table.
type Config struct {
	MinGapPercent       float64            // minimum net gap to retain
	MaxPriceStalenessMs int64              // either side older => low confidence
	MediumAgeMs         int64              // average age above => medium confidence
	DefaultQuantity     float64            // quantity for EstimatedProfit
	DefaultFeePercent   float64            // fee for exchanges missing from the table
	Fees                map[string]float64 // taker fee percent per exchange
}

// DefaultConfig returns the standard thresholds with an empty fee table.
func DefaultConfig() Config {
	return Config{
		MinGapPercent:       0.1,
		MaxPriceStalenessMs: 5000,
		MediumAgeMs:         2000,
		DefaultQuantity:     1.0,
		DefaultFeePercent:   0.1,
	}
}

// Detector finds fee-adjusted arbitrage spreads across all ordered
// exchange pairs. The fee table is fixed at construction.
type Detector struct {
	svc   *market.Service
	cfg   Config
	log   logs.Logger
	clock market.Clock
}

func NewDetector(svc *market.Service, cfg Config, log logs.Logger) *Detector {
	d := DefaultConfig()
	if cfg.MinGapPercent <= 0 {
		cfg.MinGapPercent = d.MinGapPercent
	}
	if cfg.MaxPriceStalenessMs <= 0 {
		cfg.MaxPriceStalenessMs = d.MaxPriceStalenessMs
	}
	if cfg.MediumAgeMs <= 0 {
		cfg.MediumAgeMs = d.MediumAgeMs
	}
	if cfg.DefaultQuantity <= 0 {
		cfg.DefaultQuantity = d.DefaultQuantity
	}
	if cfg.DefaultFeePercent <= 0 {
		cfg.DefaultFeePercent = d.DefaultFeePercent
	}
	if log == nil {
		log = logs.DefaultLogger
	}
	return &Detector{svc: svc, cfg: cfg, log: log, clock: market.NowUTC}
}

// SetClock 注入时钟，测试用。
func (d *Detector) SetClock(c market.Clock) { d.clock = c }

func (d *Detector) fee(exchange string) float64 {
	if f, ok := d.cfg.Fees[exchange]; ok {
		return f
	}
	return d.cfg.DefaultFeePercent
}

// Detect scans every ordered exchange pair: buy at one side's ask, sell at
// the other's bid, net the two taker fees. Results are ranked descending
// by net gap percent.
func (d *Detector) Detect() Analysis {
	nowMs := market.UnixMs(d.clock)
	an := Analysis{Opportunities: []Opportunity{}, Timestamp: nowMs}

	quotes := make([]market.Quote, 0, 8)
	for _, ex := range d.svc.Exchanges() {
		q, ok := d.svc.CurrentQuote(ex)
		if !ok || q.Bid <= 0 || q.Ask <= 0 {
			continue
		}
		quotes = append(quotes, q)
		if q.Price > an.HighestPrice {
			an.HighestPrice = q.Price
			an.HighestPriceExchange = q.Exchange
		}
		if an.LowestPrice == 0 || q.Price < an.LowestPrice {
			an.LowestPrice = q.Price
			an.LowestPriceExchange = q.Exchange
		}
	}

	var netSum float64
	for i := range quotes {
		for j := range quotes {
			if i == j {
				continue
			}
			opp, ok := d.evaluate(quotes[i], quotes[j], nowMs)
			if !ok {
				continue
			}
			an.Opportunities = append(an.Opportunities, opp)
			netSum += opp.NetGapPercent
		}
	}

	sort.SliceStable(an.Opportunities, func(a, b int) bool {
		return an.Opportunities[a].NetGapPercent > an.Opportunities[b].NetGapPercent
	})
	if len(an.Opportunities) > 0 {
		an.Best = &an.Opportunities[0]
		an.AverageNetGapPercent = netSum / float64(len(an.Opportunities))
		metrics.GapBestNetPercent.Set(an.Best.NetGapPercent)
	} else {
		metrics.GapBestNetPercent.Set(0)
	}
	metrics.GapOpportunities.Set(float64(len(an.Opportunities)))
	return an
}

// evaluate prices one ordered pair: buy at buyQ.Ask, sell at sellQ.Bid.
func (d *Detector) evaluate(buyQ, sellQ market.Quote, nowMs int64) (Opportunity, bool) {
	buyPrice := buyQ.Ask
	sellPrice := sellQ.Bid
	if sellPrice <= buyPrice {
		return Opportunity{}, false
	}

	rawGap := sellPrice - buyPrice
	rawGapPct := rawGap / buyPrice * 100
	buyFee := d.fee(buyQ.Exchange)
	sellFee := d.fee(sellQ.Exchange)
	totalFees := buyFee + sellFee
	netGapPct := rawGapPct - totalFees
	if netGapPct < d.cfg.MinGapPercent {
		return Opportunity{}, false
	}

	opp := Opportunity{
		BuyExchange:   buyQ.Exchange,
		BuyPrice:      buyPrice,
		SellExchange:  sellQ.Exchange,
		SellPrice:     sellPrice,
		RawGap:        rawGap,
		RawGapPercent: rawGapPct,
		BuyFee:        buyFee,
		SellFee:       sellFee,
		TotalFees:     totalFees,
		NetGapPercent: netGapPct,
		Timestamp:     nowMs,
		IsProfitable:  true,
		Confidence:    d.confidence(buyQ, sellQ, nowMs),
	}
	opp.EstimatedProfit = EstimateProfit(opp, d.cfg.DefaultQuantity)
	return opp, true
}

// confidence 按报价时效判定：任一侧过期为 low，平均偏旧为 medium，否则 high。
func (d *Detector) confidence(buyQ, sellQ market.Quote, nowMs int64) Confidence {
	buyAge := nowMs - buyQ.Timestamp
	sellAge := nowMs - sellQ.Timestamp
	if buyAge > d.cfg.MaxPriceStalenessMs || sellAge > d.cfg.MaxPriceStalenessMs {
		return ConfidenceLow
	}
	if (buyAge+sellAge)/2 > d.cfg.MediumAgeMs {
		return ConfidenceMedium
	}
	return ConfidenceHigh
}

// EstimateProfit computes the fee-adjusted profit of executing one
// opportunity at the given quantity.
func EstimateProfit(opp Opportunity, quantity float64) float64 {
	sellProceeds := opp.SellPrice * quantity * (1 - opp.SellFee/100)
	buyCost := opp.BuyPrice * quantity * (1 + opp.BuyFee/100)
	return sellProceeds - buyCost
}
