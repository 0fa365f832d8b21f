package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

const minimalConfig = `
env: test
exchanges:
  binance:
    url: wss://stream.binance.com:9443
    symbol: btcusdt
    feePercent: 0.04
  binance_us:
    url: wss://stream.binance.us:9443
    symbol: btcusdt
    feePercent: 0.06
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, []string{"stdout"}, cfg.Logging.Outputs)

	assert.Equal(t, 100, cfg.Sampling.IntervalMs)
	assert.Equal(t, 600, cfg.Sampling.HistorySize)
	assert.Equal(t, int64(60_000), cfg.Sampling.TradeWindowMs)

	assert.Equal(t, 30, cfg.Correlation.IntervalSec)
	assert.Equal(t, int64(5000), cfg.Correlation.HealthTimeoutMs)
	assert.Equal(t, int64(3000), cfg.Correlation.OffsetRangeMs)
	assert.Equal(t, int64(50), cfg.Correlation.OffsetStepMs)
	assert.Equal(t, int64(100), cfg.Correlation.PairToleranceMs)
	assert.Equal(t, int64(45_000), cfg.Correlation.MinOverlapMs)
	assert.Equal(t, 450, cfg.Correlation.MinSampleSize)

	assert.Equal(t, 3, cfg.Oracle.MinSources)
	assert.Equal(t, 6, cfg.Oracle.HighConfidenceMinSources)
	assert.Equal(t, 0.5, cfg.Oracle.HighConfidenceMaxSpread)
	assert.Equal(t, 4, cfg.Oracle.MediumConfidenceMinSources)
	assert.Equal(t, 1.0, cfg.Oracle.MediumConfidenceMaxSpread)

	assert.Equal(t, 0.1, cfg.Gap.MinGapPercent)
	assert.Equal(t, int64(5000), cfg.Gap.MaxPriceStalenessMs)
	assert.Equal(t, 60, cfg.Alerts.ThrottleSeconds)
}

func TestLoadKeepsExplicitValues(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
env: prod
sampling:
  intervalMs: 250
correlation:
  intervalSec: 10
  minSampleSize: 200
exchanges:
  a:
    url: wss://a.example
    symbol: btcusdt
  b:
    url: wss://b.example
    symbol: btcusdt
`))
	require.NoError(t, err)
	assert.Equal(t, 250, cfg.Sampling.IntervalMs)
	assert.Equal(t, 10, cfg.Correlation.IntervalSec)
	assert.Equal(t, 200, cfg.Correlation.MinSampleSize)
	// 未显式配置的字段仍回落默认值
	assert.Equal(t, int64(3000), cfg.Correlation.OffsetRangeMs)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadInvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "env: [unclosed"))
	require.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*AppConfig)
		wantMsg string
	}{
		{
			"missing env",
			func(c *AppConfig) { c.Env = "" },
			"env is required",
		},
		{
			"single exchange",
			func(c *AppConfig) { delete(c.Exchanges, "binance_us") },
			"at least 2 exchanges are required",
		},
		{
			"missing url",
			func(c *AppConfig) {
				ex := c.Exchanges["binance"]
				ex.URL = ""
				c.Exchanges["binance"] = ex
			},
			"url is required",
		},
		{
			"missing symbol",
			func(c *AppConfig) {
				ex := c.Exchanges["binance"]
				ex.Symbol = ""
				c.Exchanges["binance"] = ex
			},
			"symbol is required",
		},
		{
			"negative fee",
			func(c *AppConfig) {
				ex := c.Exchanges["binance"]
				ex.FeePercent = -0.1
				c.Exchanges["binance"] = ex
			},
			"feePercent must be >= 0",
		},
		{
			"step exceeds range",
			func(c *AppConfig) {
				c.Correlation.OffsetStepMs = 5000
				c.Correlation.OffsetRangeMs = 3000
			},
			"offsetStepMs must not exceed offsetRangeMs",
		},
		{
			"inverted confidence tiers",
			func(c *AppConfig) {
				c.Oracle.HighConfidenceMinSources = 3
				c.Oracle.MediumConfidenceMinSources = 4
			},
			"highConfidenceMinSources",
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, minimalConfig))
			require.NoError(t, err)
			tc.mutate(&cfg)
			err = Validate(cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantMsg)
		})
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("ORACLE_ENV", "staging")
	t.Setenv("ORACLE_METRICS_ADDR", ":9102")
	t.Setenv("ORACLE_LOG_LEVEL", "debug")

	cfg, err := LoadWithEnvOverrides(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	assert.Equal(t, "staging", cfg.Env)
	assert.Equal(t, ":9102", cfg.Metrics.Addr)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestFeeTable(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	require.NoError(t, err)
	fees := cfg.FeeTable()
	assert.Equal(t, map[string]float64{"binance": 0.04, "binance_us": 0.06}, fees)
}
