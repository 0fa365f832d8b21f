package market

import (
	"sort"
	"sync"
)

// exchangeState 单交易所的全部行情状态，仅由该交易所的接入管道写入。
type exchangeState struct {
	mu         sync.RWMutex
	history    *PriceHistory
	trades     *TradeWindow
	quote      Quote
	lastUpdate int64 // ms, client clock heartbeat
}

// Service 维护各交易所的价格历史、成交窗口与最新报价。
// 每个交易所一条写入管道；聚合阶段通过副本只读消费。
type Service struct {
	mu            sync.RWMutex
	exchanges     map[string]*exchangeState
	historySize   int
	tradeWindowMs int64
	pub           *Publisher
}

func NewService(historySize int, tradeWindowMs int64) *Service {
	if historySize <= 0 {
		historySize = DefaultHistorySize
	}
	if tradeWindowMs <= 0 {
		tradeWindowMs = DefaultTradeWindowMs
	}
	return &Service{
		exchanges:     make(map[string]*exchangeState),
		historySize:   historySize,
		tradeWindowMs: tradeWindowMs,
		pub:           NewPublisher(),
	}
}

// Publisher 返回行情事件分发器，订阅需在写入开始前完成。
func (s *Service) Publisher() *Publisher { return s.pub }

func (s *Service) state(exchange string) *exchangeState {
	s.mu.RLock()
	st, ok := s.exchanges[exchange]
	s.mu.RUnlock()
	if ok {
		return st
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.exchanges[exchange]; ok {
		return st
	}
	st = &exchangeState{
		history: NewPriceHistory(s.historySize),
		trades:  NewTradeWindow(s.tradeWindowMs),
	}
	s.exchanges[exchange] = st
	return st
}

// OnTick 更新最新报价与成交窗口，nowMs 为本地接收时刻。
func (s *Service) OnTick(t Tick, nowMs int64) {
	st := s.state(t.Exchange)
	st.mu.Lock()
	st.quote = Quote{
		Exchange:  t.Exchange,
		Price:     t.Price,
		Bid:       t.Bid,
		Ask:       t.Ask,
		Timestamp: nowMs,
	}
	q := st.quote
	st.lastUpdate = nowMs
	st.mu.Unlock()
	s.pub.PublishQuote(q)
	for _, tr := range t.Trades {
		st.trades.Add(tr)
		s.pub.PublishTrade(tr)
	}
}

// Sample 以固定节拍把最新价采样进价格历史。
// 无报价时不采样（启动阶段属正常情况）。
func (s *Service) Sample(exchange string, nowMs int64) bool {
	st := s.state(exchange)
	st.mu.RLock()
	q := st.quote
	st.mu.RUnlock()
	if q.Timestamp == 0 || q.Price == 0 {
		return false
	}
	st.history.Add(PriceSnapshot{
		Price:           q.Price,
		ClientTimestamp: nowMs,
		ServerTimestamp: q.Timestamp,
	})
	return true
}

// SampleAll 对全部已知交易所采样一次。
func (s *Service) SampleAll(nowMs int64) {
	for _, ex := range s.Exchanges() {
		s.Sample(ex, nowMs)
	}
}

// HistorySnapshot 返回价格历史副本。
func (s *Service) HistorySnapshot(exchange string) []PriceSnapshot {
	return s.state(exchange).history.Snapshot()
}

// TradesSnapshot 返回以 nowMs 为基准仍在窗口内的成交副本。
func (s *Service) TradesSnapshot(exchange string, nowMs int64) []Trade {
	return s.state(exchange).trades.Snapshot(nowMs)
}

// CurrentQuote 返回最新报价；ok=false 表示尚无数据。
func (s *Service) CurrentQuote(exchange string) (Quote, bool) {
	st := s.state(exchange)
	st.mu.RLock()
	defer st.mu.RUnlock()
	if st.quote.Timestamp == 0 {
		return Quote{}, false
	}
	return st.quote, true
}

// LastUpdate 返回最近一次心跳时刻（ms）；0 表示从未更新。
func (s *Service) LastUpdate(exchange string) int64 {
	st := s.state(exchange)
	st.mu.RLock()
	defer st.mu.RUnlock()
	return st.lastUpdate
}

// Exchanges 返回已知交易所名，固定字典序，保证配对遍历确定性。
func (s *Service) Exchanges() []string {
	s.mu.RLock()
	names := make([]string, 0, len(s.exchanges))
	for name := range s.exchanges {
		names = append(names, name)
	}
	s.mu.RUnlock()
	sort.Strings(names)
	return names
}
