// Package metrics provides Prometheus metrics for the aggregation engine
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// OraclePrice 最新合成价
	OraclePrice = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_price",
		Help: "Latest median composite price",
	})

	// OracleConfidence 置信档位：2=HIGH 1=MEDIUM 0=LOW
	OracleConfidence = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_confidence_tier",
		Help: "Confidence tier of the composite price (2=high 1=medium 0=low)",
	})

	// OracleValidSources 参与合成的数据源数量
	OracleValidSources = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_valid_sources",
		Help: "Number of fresh sources contributing to the composite price",
	})

	// OracleSpreadPercent 数据源价格极差百分比
	OracleSpreadPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "oracle_spread_percent",
		Help: "Spread percent across source prices",
	})

	// HealthyExchanges 本周期健康交易所数量
	HealthyExchanges = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matrix_healthy_exchanges",
		Help: "Exchanges passing the heartbeat filter this cycle",
	})

	// MatrixAverageCorrelation 本周期平均相关性（仅正相关）
	MatrixAverageCorrelation = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "matrix_average_correlation",
		Help: "Mean of positive pair correlations this cycle",
	})

	// MatrixCycleDuration 矩阵计算耗时
	MatrixCycleDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "matrix_cycle_duration_seconds",
		Help:    "Wall time of one correlation matrix cycle",
		Buckets: prometheus.DefBuckets,
	})

	// GapOpportunities 本次检测发现的套利机会数
	GapOpportunities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gap_opportunities",
		Help: "Arbitrage opportunities found in the last detection cycle",
	})

	// GapBestNetPercent 最优净价差百分比
	GapBestNetPercent = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gap_best_net_percent",
		Help: "Best net gap percent in the last detection cycle",
	})

	// ExchangeStalenessMs 各交易所距上次心跳的毫秒数，矩阵周期更新
	ExchangeStalenessMs = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "exchange_staleness_ms",
		Help: "Milliseconds since the last heartbeat per exchange",
	}, []string{"exchange"})

	// FeedReconnects 各交易所行情重连计数
	FeedReconnects = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_reconnects_total",
		Help: "Websocket feed reconnect attempts per exchange",
	}, []string{"exchange"})

	// FeedTicks 各交易所行情事件计数
	FeedTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "feed_ticks_total",
		Help: "Normalized ticks received per exchange",
	}, []string{"exchange"})
)

// StartMetricsServer 启动Prometheus指标服务器
func StartMetricsServer(addr string) {
	http.Handle("/metrics", promhttp.Handler())
	go func() {
		_ = http.ListenAndServe(addr, nil)
	}()
}
