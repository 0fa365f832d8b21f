package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"price-oracle-go/config"
	"price-oracle-go/correlation"
	"price-oracle-go/gap"
	"price-oracle-go/gateway"
	"price-oracle-go/infrastructure/alert"
	"price-oracle-go/infrastructure/logger"
	"price-oracle-go/internal/engine"
	"price-oracle-go/market"
	"price-oracle-go/metrics"
	"price-oracle-go/oracle"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	metricsAddr := flag.String("metricsAddr", "", "Prometheus metrics 监听地址，覆盖配置文件")
	watchConfig := flag.Bool("watchConfig", true, "监听配置文件变更并热更新费率/阈值")
	statusInterval := flag.Duration("statusInterval", time.Minute, "状态日志输出间隔")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:   cfg.Logging.Level,
		Format:  cfg.Logging.Format,
		Outputs: cfg.Logging.Outputs,
	})
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	zl = zl.WithFields(map[string]interface{}{"service": "oracled", "env": cfg.Env})
	defer zl.Close()
	sink := zl.Sink()

	addr := cfg.Metrics.Addr
	if *metricsAddr != "" {
		addr = *metricsAddr
	}
	if addr != "" {
		metrics.StartMetricsServer(addr)
	}

	svc := market.NewService(cfg.Sampling.HistorySize, cfg.Sampling.TradeWindowMs)
	builder := correlation.NewBuilder(svc, builderConfig(cfg), sink)
	agg := oracle.NewAggregator(svc, oracleConfig(cfg), sink)
	det := gap.NewDetector(svc, gapConfig(cfg), sink)

	var alerts *alert.Manager
	if cfg.Alerts.Enabled {
		alerts = alert.NewManager(
			[]alert.Channel{alert.NewLogChannel("stdout", os.Stdout)},
			time.Duration(cfg.Alerts.ThrottleSeconds)*time.Second,
		)
	}

	eng, err := engine.New(engine.Config{
		SamplingInterval: time.Duration(cfg.Sampling.IntervalMs) * time.Millisecond,
		GapScanInterval:  5 * time.Second,
	}, engine.Components{
		Market: svc,
		Matrix: builder,
		Oracle: agg,
		Gaps:   det,
		Alerts: alerts,
		Logger: sink,
	})
	if err != nil {
		log.Fatalf("初始化引擎失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := eng.Start(ctx); err != nil {
		log.Fatalf("启动引擎失败: %v", err)
	}

	// 订阅必须先于行情写入开始
	go watchFeedStalls(ctx, svc, alerts, zl, cfg.Gap.MaxPriceStalenessMs)

	for name, ex := range cfg.Exchanges {
		fc := gateway.NewFeedClient(name, ex.URL, ex.Symbol, sink)
		go func() {
			if err := fc.Run(ctx, eng); err != nil && ctx.Err() == nil {
				zl.LogError(err, map[string]interface{}{"exchange": fc.Exchange})
			}
		}()
	}

	if *watchConfig {
		watcher := config.Watcher{Path: *cfgPath}
		go func() {
			_ = watcher.Start(ctx, func(updated config.AppConfig) {
				eng.Reconfigure(
					oracle.NewAggregator(svc, oracleConfig(updated), sink),
					gap.NewDetector(svc, gapConfig(updated), sink),
				)
				sink.Info("config reloaded", "path", *cfgPath)
			})
		}()
	}

	// systemd 就绪通知与看门狗
	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	if interval, err := daemon.SdWatchdogEnabled(false); err == nil && interval > 0 {
		go func() {
			ticker := time.NewTicker(interval / 2)
			defer ticker.Stop()
			for {
				select {
				case <-ctx.Done():
					return
				case <-ticker.C:
					_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
				}
			}
		}()
	}

	go statusLoop(ctx, eng, zl, *statusInterval)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	<-sigCh

	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()
	eng.Stop()
}

// statusLoop 周期性输出 oracle 合成价与套利概览。
func statusLoop(ctx context.Context, eng *engine.Engine, zl *logger.Logger, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			status := map[string]interface{}{
				"ticks": eng.TicksProcessed(),
				"state": eng.State().String(),
			}
			if res := eng.Oracle(); res != nil {
				status["oracle_price"] = res.Price
				status["confidence"] = res.Confidence.String()
				status["valid_sources"] = res.ValidSources
			}
			if an := eng.Gaps(); an.Best != nil {
				status["best_gap_percent"] = an.Best.NetGapPercent
			}
			zl.LogCycle("status", status)
		}
	}
}

// watchFeedStalls 订阅报价流，记录各交易所最近到达时刻，
// 静默超过报价时效阈值时记录并告警（经 Manager 限流）。
func watchFeedStalls(ctx context.Context, svc *market.Service, alerts *alert.Manager, zl *logger.Logger, stalenessMs int64) {
	quotes := svc.Publisher().SubscribeQuote()
	lastSeen := make(map[string]int64)
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case q := <-quotes:
			lastSeen[q.Exchange] = q.Timestamp
		case <-ticker.C:
			now := time.Now().UnixMilli()
			for ex, ts := range lastSeen {
				silent := now - ts
				if silent <= stalenessMs {
					continue
				}
				zl.LogFeed("feed_stalled", ex, map[string]interface{}{"silent_ms": silent})
				if alerts != nil {
					_ = alerts.SendWarning("feed stalled: "+ex, map[string]interface{}{
						"exchange":  ex,
						"silent_ms": silent,
					})
				}
			}
		}
	}
}

func builderConfig(cfg config.AppConfig) correlation.BuilderConfig {
	return correlation.BuilderConfig{
		Search: correlation.SearchConfig{
			OffsetRangeMs:   cfg.Correlation.OffsetRangeMs,
			OffsetStepMs:    cfg.Correlation.OffsetStepMs,
			PairToleranceMs: cfg.Correlation.PairToleranceMs,
			MinOverlapMs:    cfg.Correlation.MinOverlapMs,
			MinSampleSize:   cfg.Correlation.MinSampleSize,
		},
		HealthTimeoutMs: cfg.Correlation.HealthTimeoutMs,
		Interval:        time.Duration(cfg.Correlation.IntervalSec) * time.Second,
	}
}

func oracleConfig(cfg config.AppConfig) oracle.Config {
	return oracle.Config{
		MaxStalenessMs:     cfg.Oracle.MaxStalenessMs,
		MinSources:         cfg.Oracle.MinSources,
		MinVWAPTrades:      cfg.Oracle.MinVWAPTrades,
		HighMinSources:     cfg.Oracle.HighConfidenceMinSources,
		HighMaxSpreadPct:   cfg.Oracle.HighConfidenceMaxSpread,
		MediumMinSources:   cfg.Oracle.MediumConfidenceMinSources,
		MediumMaxSpreadPct: cfg.Oracle.MediumConfidenceMaxSpread,
	}
}

func gapConfig(cfg config.AppConfig) gap.Config {
	return gap.Config{
		MinGapPercent:       cfg.Gap.MinGapPercent,
		MaxPriceStalenessMs: cfg.Gap.MaxPriceStalenessMs,
		MediumAgeMs:         cfg.Gap.MediumAgeMs,
		DefaultQuantity:     cfg.Gap.DefaultQuantity,
		DefaultFeePercent:   cfg.Gap.DefaultFeePercent,
		Fees:                cfg.FeeTable(),
	}
}
