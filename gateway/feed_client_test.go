package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"price-oracle-go/logs"
	"price-oracle-go/market"
)

type countingHandler struct{ ticks int }

func (h *countingHandler) OnTick(market.Tick) { h.ticks++ }

func wsTestServer(t *testing.T, handle func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		handle(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestRunOnceCountsDeliveredFrames(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {
		msg := `{"stream":"btcusdt@bookTicker","data":{"s":"BTCUSDT","b":"100.0","a":"100.2"}}`
		_ = conn.WriteMessage(websocket.TextMessage, []byte(msg))
	})

	c := NewFeedClient("testex", wsURL(srv), "btcusdt", &logs.Capture{})
	h := &countingHandler{}
	frames, err := c.runOnce(context.Background(), h)
	if err == nil {
		t.Fatal("expected error once the server closes the connection")
	}
	// 断开前读到消息：Run 据此重置重连退避
	if frames != 1 {
		t.Fatalf("expected 1 frame, got %d", frames)
	}
	if h.ticks != 1 {
		t.Fatalf("expected 1 tick emitted, got %d", h.ticks)
	}
}

func TestRunOnceNoFramesOnImmediateClose(t *testing.T) {
	srv := wsTestServer(t, func(conn *websocket.Conn) {})

	c := NewFeedClient("testex", wsURL(srv), "btcusdt", &logs.Capture{})
	frames, err := c.runOnce(context.Background(), &countingHandler{})
	if err == nil {
		t.Fatal("expected error")
	}
	if frames != 0 {
		t.Fatalf("expected 0 frames, got %d", frames)
	}
}

func TestStreamURLKeepsExplicitScheme(t *testing.T) {
	c := NewFeedClient("binance", "wss://stream.binance.com:9443", "BTCUSDT", nil)
	u, err := c.streamURL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "wss://stream.binance.com:9443/stream?streams=btcusdt%40bookTicker%2Fbtcusdt%40aggTrade"
	if u != want {
		t.Fatalf("expected %s, got %s", want, u)
	}

	c = NewFeedClient("local", "ws://127.0.0.1:9000", "btcusdt", nil)
	u, err = c.streamURL()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(u, "ws://127.0.0.1:9000/stream") {
		t.Fatalf("expected ws scheme preserved, got %s", u)
	}
}
