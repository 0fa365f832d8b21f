package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env         string                    `yaml:"env"`
	Logging     LoggingConfig             `yaml:"logging"`
	Metrics     MetricsConfig             `yaml:"metrics"`
	Sampling    SamplingConfig            `yaml:"sampling"`
	Correlation CorrelationConfig         `yaml:"correlation"`
	Oracle      OracleConfig              `yaml:"oracle"`
	Gap         GapConfig                 `yaml:"gap"`
	Alerts      AlertConfig               `yaml:"alerts"`
	Exchanges   map[string]ExchangeConfig `yaml:"exchanges"`
}

type LoggingConfig struct {
	Level   string   `yaml:"level"`
	Format  string   `yaml:"format"`
	Outputs []string `yaml:"outputs"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"` // 留空则不启动 metrics 服务器
}

// SamplingConfig 采样与缓冲配置。
type SamplingConfig struct {
	IntervalMs    int   `yaml:"intervalMs"`    // 快照采样节拍（毫秒）
	HistorySize   int   `yaml:"historySize"`   // 每交易所价格历史容量
	TradeWindowMs int64 `yaml:"tradeWindowMs"` // 成交滑动窗口（毫秒）
}

// CorrelationConfig 偏移搜索与矩阵周期配置。
type CorrelationConfig struct {
	IntervalSec     int   `yaml:"intervalSec"`     // 矩阵计算周期（秒）
	HealthTimeoutMs int64 `yaml:"healthTimeoutMs"` // 心跳超时（毫秒）
	OffsetRangeMs   int64 `yaml:"offsetRangeMs"`   // 偏移搜索范围 ±（毫秒）
	OffsetStepMs    int64 `yaml:"offsetStepMs"`    // 偏移搜索步长（毫秒）
	PairToleranceMs int64 `yaml:"pairToleranceMs"` // 样本配对容差（毫秒）
	MinOverlapMs    int64 `yaml:"minOverlapMs"`    // 最小重叠窗口（毫秒）
	MinSampleSize   int   `yaml:"minSampleSize"`   // 最小配对样本数
}

// OracleConfig 合成价与置信档位配置。
type OracleConfig struct {
	MaxStalenessMs             int64   `yaml:"maxStalenessMs"`
	MinSources                 int     `yaml:"minSources"`
	MinVWAPTrades              int     `yaml:"minVwapTrades"`
	HighConfidenceMinSources   int     `yaml:"highConfidenceMinSources"`
	HighConfidenceMaxSpread    float64 `yaml:"highConfidenceMaxSpread"`
	MediumConfidenceMinSources int     `yaml:"mediumConfidenceMinSources"`
	MediumConfidenceMaxSpread  float64 `yaml:"mediumConfidenceMaxSpread"`
}

// GapConfig 套利检测配置。
type GapConfig struct {
	MinGapPercent       float64 `yaml:"minGapPercent"`
	MaxPriceStalenessMs int64   `yaml:"maxPriceStalenessMs"`
	MediumAgeMs         int64   `yaml:"mediumAgeMs"`
	DefaultQuantity     float64 `yaml:"defaultQuantity"`
	DefaultFeePercent   float64 `yaml:"defaultFeePercent"`
}

type AlertConfig struct {
	Enabled         bool `yaml:"enabled"`
	ThrottleSeconds int  `yaml:"throttleSeconds"`
}

// ExchangeConfig 单交易所接入与费率配置。
type ExchangeConfig struct {
	URL        string  `yaml:"url"`        // websocket 行情地址
	Symbol     string  `yaml:"symbol"`     // 订阅交易对
	FeePercent float64 `yaml:"feePercent"` // taker 费率（百分比）
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	applyDefaults(&cfg)
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deployment fields from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("ORACLE_ENV"); v != "" {
		cfg.Env = v
	}
	if v := os.Getenv("ORACLE_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("ORACLE_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	return cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "json"
	}
	if len(cfg.Logging.Outputs) == 0 {
		cfg.Logging.Outputs = []string{"stdout"}
	}
	if cfg.Sampling.IntervalMs <= 0 {
		cfg.Sampling.IntervalMs = 100
	}
	if cfg.Sampling.HistorySize <= 0 {
		cfg.Sampling.HistorySize = 600
	}
	if cfg.Sampling.TradeWindowMs <= 0 {
		cfg.Sampling.TradeWindowMs = 60_000
	}
	if cfg.Correlation.IntervalSec <= 0 {
		cfg.Correlation.IntervalSec = 30
	}
	if cfg.Correlation.HealthTimeoutMs <= 0 {
		cfg.Correlation.HealthTimeoutMs = 5000
	}
	if cfg.Correlation.OffsetRangeMs <= 0 {
		cfg.Correlation.OffsetRangeMs = 3000
	}
	if cfg.Correlation.OffsetStepMs <= 0 {
		cfg.Correlation.OffsetStepMs = 50
	}
	if cfg.Correlation.PairToleranceMs <= 0 {
		cfg.Correlation.PairToleranceMs = 100
	}
	if cfg.Correlation.MinOverlapMs <= 0 {
		cfg.Correlation.MinOverlapMs = 45_000
	}
	if cfg.Correlation.MinSampleSize <= 0 {
		cfg.Correlation.MinSampleSize = 450
	}
	if cfg.Oracle.MaxStalenessMs <= 0 {
		cfg.Oracle.MaxStalenessMs = 5000
	}
	if cfg.Oracle.MinSources <= 0 {
		cfg.Oracle.MinSources = 3
	}
	if cfg.Oracle.MinVWAPTrades <= 0 {
		cfg.Oracle.MinVWAPTrades = 3
	}
	if cfg.Oracle.HighConfidenceMinSources <= 0 {
		cfg.Oracle.HighConfidenceMinSources = 6
	}
	if cfg.Oracle.HighConfidenceMaxSpread <= 0 {
		cfg.Oracle.HighConfidenceMaxSpread = 0.5
	}
	if cfg.Oracle.MediumConfidenceMinSources <= 0 {
		cfg.Oracle.MediumConfidenceMinSources = 4
	}
	if cfg.Oracle.MediumConfidenceMaxSpread <= 0 {
		cfg.Oracle.MediumConfidenceMaxSpread = 1.0
	}
	if cfg.Gap.MinGapPercent <= 0 {
		cfg.Gap.MinGapPercent = 0.1
	}
	if cfg.Gap.MaxPriceStalenessMs <= 0 {
		cfg.Gap.MaxPriceStalenessMs = 5000
	}
	if cfg.Gap.MediumAgeMs <= 0 {
		cfg.Gap.MediumAgeMs = 2000
	}
	if cfg.Gap.DefaultQuantity <= 0 {
		cfg.Gap.DefaultQuantity = 1.0
	}
	if cfg.Gap.DefaultFeePercent <= 0 {
		cfg.Gap.DefaultFeePercent = 0.1
	}
	if cfg.Alerts.ThrottleSeconds <= 0 {
		cfg.Alerts.ThrottleSeconds = 60
	}
}

// Validate ensures required fields are present.
func Validate(cfg AppConfig) error {
	if cfg.Env == "" {
		return errors.New("env is required")
	}
	if len(cfg.Exchanges) < 2 {
		return errors.New("at least 2 exchanges are required")
	}
	for name, ex := range cfg.Exchanges {
		if ex.URL == "" {
			return fmt.Errorf("exchange %s url is required", name)
		}
		if ex.Symbol == "" {
			return fmt.Errorf("exchange %s symbol is required", name)
		}
		if ex.FeePercent < 0 {
			return fmt.Errorf("exchange %s feePercent must be >= 0", name)
		}
	}
	if cfg.Correlation.OffsetStepMs > cfg.Correlation.OffsetRangeMs {
		return errors.New("correlation.offsetStepMs must not exceed offsetRangeMs")
	}
	if cfg.Oracle.HighConfidenceMinSources < cfg.Oracle.MediumConfidenceMinSources {
		return errors.New("oracle.highConfidenceMinSources must be >= mediumConfidenceMinSources")
	}
	return nil
}

// FeeTable 提取交易所费率表。
func (c AppConfig) FeeTable() map[string]float64 {
	fees := make(map[string]float64, len(c.Exchanges))
	for name, ex := range c.Exchanges {
		fees[name] = ex.FeePercent
	}
	return fees
}
