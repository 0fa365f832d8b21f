package gateway

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CombinedMessage 对应 combined stream 包装。
type CombinedMessage struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
}

// BookTickerUpdate 提取 bookTicker 消息的核心字段。
type BookTickerUpdate struct {
	Symbol   string      `json:"s"`
	BidPrice json.Number `json:"b"`
	AskPrice json.Number `json:"a"`
	BidQty   json.Number `json:"B"`
	AskQty   json.Number `json:"A"`
}

// AggTradeUpdate 提取 aggTrade 消息的核心字段。
type AggTradeUpdate struct {
	Symbol       string      `json:"s"`
	Price        json.Number `json:"p"`
	Quantity     json.Number `json:"q"`
	TradeID      int64       `json:"a"`
	TradeTime    int64       `json:"T"`
	IsBuyerMaker bool        `json:"m"`
}

// StreamKind 标识 combined stream 消息类型。
type StreamKind int

const (
	StreamUnknown StreamKind = iota
	StreamBookTicker
	StreamAggTrade
)

// ParseCombined 解包 combined stream 消息并识别类型。
func ParseCombined(raw []byte) (StreamKind, json.RawMessage, error) {
	var msg CombinedMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return StreamUnknown, nil, fmt.Errorf("parse combined message: %w", err)
	}
	switch {
	case strings.HasSuffix(msg.Stream, "@bookTicker"):
		return StreamBookTicker, msg.Data, nil
	case strings.HasSuffix(msg.Stream, "@aggTrade"):
		return StreamAggTrade, msg.Data, nil
	default:
		return StreamUnknown, msg.Data, nil
	}
}

// ParseBookTicker 解析 bookTicker 负载，返回最优 bid/ask。
func ParseBookTicker(data []byte) (symbol string, bid, ask float64, err error) {
	var upd BookTickerUpdate
	if err = json.Unmarshal(data, &upd); err != nil {
		return
	}
	symbol = upd.Symbol
	if upd.BidPrice != "" {
		bid, _ = upd.BidPrice.Float64()
	}
	if upd.AskPrice != "" {
		ask, _ = upd.AskPrice.Float64()
	}
	return
}

// ParseAggTrade 解析 aggTrade 负载。
func ParseAggTrade(data []byte) (AggTradeUpdate, error) {
	var upd AggTradeUpdate
	if err := json.Unmarshal(data, &upd); err != nil {
		return AggTradeUpdate{}, err
	}
	return upd, nil
}
