package gateway

import (
	"testing"

	"price-oracle-go/market"
)

func TestParseCombinedBookTicker(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"100.50","a":"100.60","B":"1.2","A":"0.8"}}`)
	kind, data, err := ParseCombined(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != StreamBookTicker {
		t.Fatalf("expected bookTicker kind, got %v", kind)
	}
	symbol, bid, ask, err := ParseBookTicker(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if symbol != "BTCUSDT" || bid != 100.50 || ask != 100.60 {
		t.Fatalf("unexpected parse result %s %v/%v", symbol, bid, ask)
	}
}

func TestParseCombinedAggTrade(t *testing.T) {
	raw := []byte(`{"stream":"btcusdt@aggTrade","data":{"s":"BTCUSDT","p":"100.55","q":"0.5","a":12345,"T":1700000000000,"m":true}}`)
	kind, data, err := ParseCombined(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != StreamAggTrade {
		t.Fatalf("expected aggTrade kind, got %v", kind)
	}
	upd, err := ParseAggTrade(data)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price, _ := upd.Price.Float64()
	qty, _ := upd.Quantity.Float64()
	if price != 100.55 || qty != 0.5 {
		t.Fatalf("unexpected trade %v @ %v", qty, price)
	}
	if upd.TradeID != 12345 || upd.TradeTime != 1_700_000_000_000 || !upd.IsBuyerMaker {
		t.Fatalf("unexpected metadata %+v", upd)
	}
}

func TestParseCombinedUnknownStream(t *testing.T) {
	kind, _, err := ParseCombined([]byte(`{"stream":"btcusdt@depth","data":{}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if kind != StreamUnknown {
		t.Fatalf("expected unknown kind, got %v", kind)
	}
}

func TestParseCombinedMalformed(t *testing.T) {
	if _, _, err := ParseCombined([]byte(`not json`)); err == nil {
		t.Fatal("expected error for malformed message")
	}
}

func TestParseBookTickerMissingFields(t *testing.T) {
	symbol, bid, ask, err := ParseBookTicker([]byte(`{"s":"BTCUSDT"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if symbol != "BTCUSDT" || bid != 0 || ask != 0 {
		t.Fatalf("expected zero quote for missing fields, got %v/%v", bid, ask)
	}
}

func TestNormalizerCarriesFieldsForward(t *testing.T) {
	n := NewNormalizer("binance")
	if n.Ready() {
		t.Fatal("fresh normalizer should not be ready")
	}

	// 首条 bookTicker：没有成交价，用中间价兜底
	tick := n.OnBookTicker(100.0, 100.2, 1000)
	if tick.Price != 100.1 {
		t.Fatalf("expected mid price 100.1, got %v", tick.Price)
	}
	if !n.Ready() {
		t.Fatal("expected ready after full quote")
	}

	// 成交覆盖最新价，盘口沿用上次
	tick = n.OnTrade(market.Trade{Price: 100.15, Volume: 0.5, Timestamp: 1100})
	if tick.Price != 100.15 || tick.Bid != 100.0 || tick.Ask != 100.2 {
		t.Fatalf("unexpected merged tick %+v", tick)
	}
	if len(tick.Trades) != 1 || tick.Trades[0].Volume != 0.5 {
		t.Fatalf("expected trade attached, got %+v", tick.Trades)
	}

	// 缺失一侧盘口沿用旧值
	tick = n.OnBookTicker(0, 100.3, 1200)
	if tick.Bid != 100.0 || tick.Ask != 100.3 || tick.Price != 100.15 {
		t.Fatalf("unexpected carry-forward tick %+v", tick)
	}
	if tick.Exchange != "binance" {
		t.Fatalf("unexpected exchange %q", tick.Exchange)
	}
}
