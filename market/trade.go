package market

import "sync"

// Trade represents a normalized trade tick.
type Trade struct {
	Price        float64
	Volume       float64
	Timestamp    int64 // ms
	IsBuyerMaker bool
	TradeID      string
}

// DefaultTradeWindowMs bounds the trailing trade window to 60 seconds.
const DefaultTradeWindowMs = 60_000

// TradeWindow 维护单交易所的时间窗成交序列，按到达顺序追加，
// 过窗的旧成交从头部清除（序列按时间有序）。
type TradeWindow struct {
	mu       sync.RWMutex
	trades   []Trade
	windowMs int64
}

func NewTradeWindow(windowMs int64) *TradeWindow {
	if windowMs <= 0 {
		windowMs = DefaultTradeWindowMs
	}
	return &TradeWindow{windowMs: windowMs}
}

// Add 追加成交并清除窗口外的旧成交。
func (w *TradeWindow) Add(t Trade) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.trades = append(w.trades, t)
	w.pruneLocked(t.Timestamp)
}

// Prune 以 now 为基准清除过期成交。
func (w *TradeWindow) Prune(nowMs int64) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.pruneLocked(nowMs)
}

func (w *TradeWindow) pruneLocked(nowMs int64) {
	cut := nowMs - w.windowMs
	i := 0
	for i < len(w.trades) && w.trades[i].Timestamp < cut {
		i++
	}
	if i > 0 {
		w.trades = w.trades[i:]
	}
}

// Snapshot 返回以 nowMs 为基准仍在窗口内的成交副本。
// 写入侧只在 Add 时清理，交易静默期间的过期成交由读取侧过滤。
func (w *TradeWindow) Snapshot(nowMs int64) []Trade {
	w.mu.RLock()
	defer w.mu.RUnlock()
	cut := nowMs - w.windowMs
	out := make([]Trade, 0, len(w.trades))
	for _, t := range w.trades {
		if t.Timestamp >= cut {
			out = append(out, t)
		}
	}
	return out
}

// Len returns the number of trades currently in the window.
func (w *TradeWindow) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.trades)
}
