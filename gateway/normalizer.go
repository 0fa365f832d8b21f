package gateway

import "price-oracle-go/market"

// Normalizer 在接入边界把可能缺字段的原始消息合并成完整 Tick。
// 缺失字段沿用上一条的值，保证核心永远收到填满的数据。
type Normalizer struct {
	exchange string
	price    float64
	bid      float64
	ask      float64
}

func NewNormalizer(exchange string) *Normalizer {
	return &Normalizer{exchange: exchange}
}

// OnBookTicker 合并一条 bookTicker 更新，返回完整 Tick。
func (n *Normalizer) OnBookTicker(bid, ask float64, serverTimeMs int64) market.Tick {
	if bid > 0 {
		n.bid = bid
	}
	if ask > 0 {
		n.ask = ask
	}
	// 无成交时以中间价充当最新价。
	if n.price == 0 && n.bid > 0 && n.ask > 0 {
		n.price = (n.bid + n.ask) / 2
	}
	return n.tick(serverTimeMs, nil)
}

// OnTrade 合并一条成交，返回完整 Tick。
func (n *Normalizer) OnTrade(t market.Trade) market.Tick {
	if t.Price > 0 {
		n.price = t.Price
	}
	return n.tick(t.Timestamp, []market.Trade{t})
}

func (n *Normalizer) tick(serverTimeMs int64, trades []market.Trade) market.Tick {
	return market.Tick{
		Exchange:   n.exchange,
		Price:      n.price,
		Bid:        n.bid,
		Ask:        n.ask,
		ServerTime: serverTimeMs,
		Trades:     trades,
	}
}

// Ready 报告是否已有完整的价格与盘口。
func (n *Normalizer) Ready() bool {
	return n.price > 0 && n.bid > 0 && n.ask > 0
}
