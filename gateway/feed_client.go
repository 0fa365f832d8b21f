package gateway

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"price-oracle-go/logs"
	"price-oracle-go/market"
	"price-oracle-go/metrics"
)

// TickHandler consumes normalized ticks from a feed.
type TickHandler interface {
	OnTick(t market.Tick)
}

// FeedClient 订阅单交易所 bookTicker/aggTrade 组合流并输出归一化 Tick。
// 断线按指数退避重连，重连由 metrics 计数。
type FeedClient struct {
	Exchange string
	BaseURL  string // 例如 wss://stream.binance.com:9443
	Symbol   string
	Dialer   *websocket.Dialer
	Log      logs.Logger

	// ReadTimeout 单条消息的读取超时，超时视为断线。
	ReadTimeout time.Duration
}

func NewFeedClient(exchange, baseURL, symbol string, log logs.Logger) *FeedClient {
	if log == nil {
		log = logs.DefaultLogger
	}
	return &FeedClient{
		Exchange:    exchange,
		BaseURL:     baseURL,
		Symbol:      strings.ToLower(symbol),
		Dialer:      websocket.DefaultDialer,
		Log:         log,
		ReadTimeout: 30 * time.Second,
	}
}

// Run 连接并持续读取，断线自动重连，直到 ctx 取消。
func (c *FeedClient) Run(ctx context.Context, handler TickHandler) error {
	if c.Symbol == "" {
		return fmt.Errorf("symbol required")
	}
	backoff := time.Second
	for {
		frames, err := c.runOnce(ctx, handler)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		// 联通过的连接重置退避，避免一段抖动期永久拖慢重连
		if frames > 0 {
			backoff = time.Second
		}
		metrics.FeedReconnects.WithLabelValues(c.Exchange).Inc()
		c.Log.Warn("feed disconnected, reconnecting",
			"exchange", c.Exchange, "error", err, "backoff", backoff.String())
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

// runOnce 维持一条连接直到出错，返回期间读到的消息数。
func (c *FeedClient) runOnce(ctx context.Context, handler TickHandler) (int, error) {
	u, err := c.streamURL()
	if err != nil {
		return 0, err
	}
	conn, _, err := c.Dialer.DialContext(ctx, u, nil)
	if err != nil {
		return 0, fmt.Errorf("dial %s: %w", c.Exchange, err)
	}
	defer conn.Close()
	c.Log.Info("feed connected", "exchange", c.Exchange, "url", u)

	// ctx 取消时主动断开，解除阻塞的 ReadMessage。
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-done:
		}
	}()

	norm := NewNormalizer(c.Exchange)
	frames := 0
	for {
		if c.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(c.ReadTimeout))
		}
		_, message, err := conn.ReadMessage()
		if err != nil {
			return frames, err
		}
		frames++
		c.dispatch(norm, message, handler)
	}
}

func (c *FeedClient) dispatch(norm *Normalizer, message []byte, handler TickHandler) {
	kind, data, err := ParseCombined(message)
	if err != nil {
		c.Log.Warn("feed message dropped", "exchange", c.Exchange, "error", err)
		return
	}
	switch kind {
	case StreamBookTicker:
		_, bid, ask, err := ParseBookTicker(data)
		if err != nil {
			c.Log.Warn("book ticker dropped", "exchange", c.Exchange, "error", err)
			return
		}
		c.emit(norm.OnBookTicker(bid, ask, time.Now().UnixMilli()), handler)
	case StreamAggTrade:
		upd, err := ParseAggTrade(data)
		if err != nil {
			c.Log.Warn("trade dropped", "exchange", c.Exchange, "error", err)
			return
		}
		price, _ := upd.Price.Float64()
		qty, _ := upd.Quantity.Float64()
		c.emit(norm.OnTrade(market.Trade{
			Price:        price,
			Volume:       qty,
			Timestamp:    upd.TradeTime,
			IsBuyerMaker: upd.IsBuyerMaker,
			TradeID:      strconv.FormatInt(upd.TradeID, 10),
		}), handler)
	}
}

func (c *FeedClient) emit(t market.Tick, handler TickHandler) {
	if t.Price == 0 {
		return
	}
	metrics.FeedTicks.WithLabelValues(c.Exchange).Inc()
	handler.OnTick(t)
}

func (c *FeedClient) streamURL() (string, error) {
	if c.BaseURL == "" {
		return "", fmt.Errorf("base url required")
	}
	base := c.BaseURL
	if !strings.Contains(base, "://") {
		base = "wss://" + base
	}
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	u.Path = "/stream"
	streams := []string{
		c.Symbol + "@bookTicker",
		c.Symbol + "@aggTrade",
	}
	q := u.Query()
	q.Set("streams", strings.Join(streams, "/"))
	u.RawQuery = q.Encode()
	return u.String(), nil
}
