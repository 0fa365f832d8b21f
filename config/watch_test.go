package config

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestWatcherStopsOnCancel(t *testing.T) {
	w := Watcher{Path: writeConfig(t, minimalConfig), Debounce: 5 * time.Millisecond}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := w.Start(ctx, nil); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestWatcherTriggersOnChange(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	w := Watcher{Path: path, Debounce: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case ch <- cfg:
			default:
			}
		})
	}()
	time.Sleep(50 * time.Millisecond) // 等 watcher 注册完成

	updated := minimalConfig + `
sampling:
  intervalMs: 250
`
	if err := os.WriteFile(path, []byte(updated), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}

	select {
	case cfg := <-ch:
		if cfg.Sampling.IntervalMs != 250 {
			t.Fatalf("expected reloaded intervalMs 250, got %d", cfg.Sampling.IntervalMs)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("expected update callback")
	}
}

func TestWatcherSkipsInvalidConfig(t *testing.T) {
	path := writeConfig(t, minimalConfig)
	w := Watcher{Path: path, Debounce: 10 * time.Millisecond}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ch := make(chan AppConfig, 1)
	go func() {
		_ = w.Start(ctx, func(cfg AppConfig) {
			select {
			case ch <- cfg:
			default:
			}
		})
	}()
	time.Sleep(50 * time.Millisecond)

	// 校验失败的中间态不应触达回调
	if err := os.WriteFile(path, []byte("env: ''\n"), 0o644); err != nil {
		t.Fatalf("rewrite config: %v", err)
	}
	select {
	case cfg := <-ch:
		t.Fatalf("expected invalid config to be skipped, got %+v", cfg)
	case <-time.After(200 * time.Millisecond):
	}
}
