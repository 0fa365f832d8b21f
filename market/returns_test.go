package market

import (
	"math"
	"testing"
)

func TestCalculateReturnsLength(t *testing.T) {
	snaps := []PriceSnapshot{
		{Price: 100, ClientTimestamp: 1000},
		{Price: 101, ClientTimestamp: 1100},
		{Price: 100.5, ClientTimestamp: 1200},
		{Price: 102, ClientTimestamp: 1300},
	}
	ret := CalculateReturns(snaps, "binance")
	if ret == nil {
		t.Fatal("expected returns, got nil")
	}
	if ret.SampleCount != len(snaps)-1 {
		t.Fatalf("expected %d returns, got %d", len(snaps)-1, ret.SampleCount)
	}
	// 时间戳取每对中靠后样本的 clientTimestamp
	for i, ts := range ret.Timestamps {
		if ts != snaps[i+1].ClientTimestamp {
			t.Fatalf("timestamp %d: expected %d, got %d", i, snaps[i+1].ClientTimestamp, ts)
		}
	}
	want := (101.0 - 100.0) / 100.0
	if math.Abs(ret.Returns[0]-want) > 1e-12 {
		t.Fatalf("expected first return %v, got %v", want, ret.Returns[0])
	}
}

func TestCalculateReturnsInsufficientData(t *testing.T) {
	if ret := CalculateReturns(nil, "x"); ret != nil {
		t.Fatalf("expected nil for empty input, got %+v", ret)
	}
	one := []PriceSnapshot{{Price: 100, ClientTimestamp: 1}}
	if ret := CalculateReturns(one, "x"); ret != nil {
		t.Fatalf("expected nil for single snapshot, got %+v", ret)
	}
}

func TestCalculateReturnsZeroPriceGuard(t *testing.T) {
	snaps := []PriceSnapshot{
		{Price: 0, ClientTimestamp: 1000},
		{Price: 100, ClientTimestamp: 1100},
		{Price: 101, ClientTimestamp: 1200},
	}
	ret := CalculateReturns(snaps, "x")
	if ret == nil {
		t.Fatal("expected returns")
	}
	// 前价为零的样本对被跳过，不产生 Inf/NaN
	if ret.SampleCount != 1 {
		t.Fatalf("expected 1 return, got %d", ret.SampleCount)
	}
	for _, r := range ret.Returns {
		if math.IsInf(r, 0) || math.IsNaN(r) {
			t.Fatalf("invalid return value %v", r)
		}
	}
}
