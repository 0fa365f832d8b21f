package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"price-oracle-go/correlation"
	"price-oracle-go/gap"
	"price-oracle-go/infrastructure/alert"
	"price-oracle-go/logs"
	"price-oracle-go/market"
	"price-oracle-go/oracle"
)

// State 引擎状态
type State int

const (
	// StateIdle 空闲状态
	StateIdle State = iota
	// StateRunning 运行状态
	StateRunning
	// StateStopped 停止状态
	StateStopped
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateRunning:
		return "RUNNING"
	case StateStopped:
		return "STOPPED"
	default:
		return "UNKNOWN"
	}
}

// Config 引擎配置
type Config struct {
	SamplingInterval time.Duration // 快照采样节拍
	GapScanInterval  time.Duration // 套利告警扫描节拍，0 表示关闭
}

// Components 引擎依赖组件
type Components struct {
	Market *market.Service
	Matrix *correlation.Builder
	Oracle *oracle.Aggregator
	Gaps   *gap.Detector
	Alerts *alert.Manager
	Logger logs.Logger
}

// Engine 编排采样循环与聚合周期，对外提供拉取接口。
// 聚合阶段只读消费各交易所状态，彼此独立。
type Engine struct {
	cfg Config

	svc    *market.Service
	matrix *correlation.Builder
	oracle *oracle.Aggregator
	gaps   *gap.Detector
	alerts *alert.Manager
	log    logs.Logger
	clock  market.Clock

	mu     sync.Mutex
	state  State
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// compMu 保护可热替换的聚合组件指针
	compMu sync.RWMutex

	ticksProcessed atomic.Int64
}

var (
	errMissingMarket = errors.New("market service is required")
	errMissingMatrix = errors.New("matrix builder is required")
	errMissingOracle = errors.New("oracle aggregator is required")
	errMissingGaps   = errors.New("gap detector is required")
	errNotIdle       = errors.New("engine already started")
)

// New 创建引擎
func New(cfg Config, c Components) (*Engine, error) {
	if c.Market == nil {
		return nil, errMissingMarket
	}
	if c.Matrix == nil {
		return nil, errMissingMatrix
	}
	if c.Oracle == nil {
		return nil, errMissingOracle
	}
	if c.Gaps == nil {
		return nil, errMissingGaps
	}
	if cfg.SamplingInterval <= 0 {
		cfg.SamplingInterval = 100 * time.Millisecond
	}
	if c.Logger == nil {
		c.Logger = logs.DefaultLogger
	}
	return &Engine{
		cfg:    cfg,
		svc:    c.Market,
		matrix: c.Matrix,
		oracle: c.Oracle,
		gaps:   c.Gaps,
		alerts: c.Alerts,
		log:    c.Logger,
		clock:  market.NowUTC,
	}, nil
}

// SetClock 注入时钟，测试用。
func (e *Engine) SetClock(c market.Clock) { e.clock = c }

// State 返回当前状态
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// TicksProcessed 返回累计处理的 Tick 数
func (e *Engine) TicksProcessed() int64 { return e.ticksProcessed.Load() }

// OnTick 实现 gateway.TickHandler，接入管道调用。
func (e *Engine) OnTick(t market.Tick) {
	e.svc.OnTick(t, market.UnixMs(e.clock))
	e.ticksProcessed.Add(1)
}

// Start 启动采样与聚合循环。
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state != StateIdle {
		e.mu.Unlock()
		return errNotIdle
	}
	ctx, e.cancel = context.WithCancel(ctx)
	e.state = StateRunning
	e.mu.Unlock()

	e.wg.Add(2)
	go e.samplingLoop(ctx)
	go func() {
		defer e.wg.Done()
		e.matrix.Run(ctx)
	}()
	if e.cfg.GapScanInterval > 0 {
		e.wg.Add(1)
		go e.gapScanLoop(ctx)
	}
	e.log.Info("engine started",
		"sampling_interval", e.cfg.SamplingInterval.String(),
		"gap_scan_interval", e.cfg.GapScanInterval.String(),
	)
	return nil
}

// Stop 停止引擎并等待全部循环退出。
func (e *Engine) Stop() {
	e.mu.Lock()
	if e.state != StateRunning {
		e.mu.Unlock()
		return
	}
	e.state = StateStopped
	cancel := e.cancel
	e.mu.Unlock()

	cancel()
	e.wg.Wait()
	e.log.Info("engine stopped", "ticks_processed", e.ticksProcessed.Load())
}

// samplingLoop 以固定节拍把各交易所最新价采样进历史缓冲。
func (e *Engine) samplingLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.SamplingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.svc.SampleAll(market.UnixMs(e.clock))
		}
	}
}

// gapScanLoop 周期性检测套利机会并告警最优项。
func (e *Engine) gapScanLoop(ctx context.Context) {
	defer e.wg.Done()
	ticker := time.NewTicker(e.cfg.GapScanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			an := e.currentGaps().Detect()
			if an.Best == nil || e.alerts == nil {
				continue
			}
			if err := e.alerts.SendOpportunity(
				an.Best.BuyExchange, an.Best.SellExchange,
				an.Best.NetGapPercent, an.Best.EstimatedProfit,
			); err != nil {
				e.log.Warn("gap alert failed", "error", err)
			}
		}
	}
}

func (e *Engine) currentGaps() *gap.Detector {
	e.compMu.RLock()
	defer e.compMu.RUnlock()
	return e.gaps
}

func (e *Engine) currentOracle() *oracle.Aggregator {
	e.compMu.RLock()
	defer e.compMu.RUnlock()
	return e.oracle
}

// Reconfigure 热替换聚合组件，在两个周期之间原子生效。
// 采样与矩阵周期不受影响。
func (e *Engine) Reconfigure(o *oracle.Aggregator, g *gap.Detector) {
	e.compMu.Lock()
	if o != nil {
		e.oracle = o
	}
	if g != nil {
		e.gaps = g
	}
	e.compMu.Unlock()
	e.log.Info("engine reconfigured")
}

// Matrix 返回最近一次相关性矩阵快照。
func (e *Engine) Matrix() correlation.Matrix {
	return e.matrix.Latest()
}

// Oracle 按当前状态重新计算合成价；数据源不足时返回 nil。
func (e *Engine) Oracle() *oracle.Result {
	return e.currentOracle().Compute()
}

// Gaps 按当前状态重新检测套利机会。
func (e *Engine) Gaps() gap.Analysis {
	return e.currentGaps().Detect()
}
