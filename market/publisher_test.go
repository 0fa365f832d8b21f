package market

import "testing"

func TestPublisher(t *testing.T) {
	p := NewPublisher()
	ch := p.SubscribeQuote()
	p.PublishQuote(Quote{Exchange: "binance", Bid: 1, Ask: 2})
	if got := <-ch; got.Bid != 1 || got.Ask != 2 {
		t.Fatalf("unexpected quote %+v", got)
	}
}

func TestPublisherDropsWhenSubscriberLags(t *testing.T) {
	p := NewPublisher()
	ch := p.SubscribeTrade()
	p.PublishTrade(Trade{Price: 1})
	p.PublishTrade(Trade{Price: 2}) // 缓冲已满，丢弃
	if got := <-ch; got.Price != 1 {
		t.Fatalf("expected first trade retained, got %+v", got)
	}
	select {
	case tr := <-ch:
		t.Fatalf("expected second trade dropped, got %+v", tr)
	default:
	}
}

func TestServicePublishesOnTick(t *testing.T) {
	svc := NewService(16, 60_000)
	quotes := svc.Publisher().SubscribeQuote()
	trades := svc.Publisher().SubscribeTrade()

	svc.OnTick(Tick{
		Exchange: "binance",
		Price:    100,
		Bid:      99.9,
		Ask:      100.1,
		Trades:   []Trade{{Price: 100, Volume: 0.5, Timestamp: 1000}},
	}, 1000)

	q := <-quotes
	if q.Exchange != "binance" || q.Price != 100 {
		t.Fatalf("unexpected published quote %+v", q)
	}
	tr := <-trades
	if tr.Volume != 0.5 {
		t.Fatalf("unexpected published trade %+v", tr)
	}
}
