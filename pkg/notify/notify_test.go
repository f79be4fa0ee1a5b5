package notify

import (
	"context"
	"encoding/json"
	"errors"
	"image"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/zoeyai/reelworker/pkg/journal"
)

func fastRetry() RetryConfig {
	return RetryConfig{Attempts: 3, BaseDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond}
}

func TestWebhookDelivers(t *testing.T) {
	var mu sync.Mutex
	var got []payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %s", ct)
		}
		var p payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			t.Errorf("解析请求体失败: %v", err)
		}
		mu.Lock()
		got = append(got, p)
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithRetry(fastRetry()))
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	w.Send(Event{
		Kind:     EventFruitDrop,
		Entry:    "Flame-Flame Fruit",
		Score:    0.94,
		Counters: journal.Counters{Catches: 12, Fruits: 1},
		Snapshot: image.NewRGBA(image.Rect(0, 0, 4, 4)),
	})

	deadline := time.Now().Add(2 * time.Second)
	for {
		mu.Lock()
		n := len(got)
		mu.Unlock()
		if n > 0 || time.Now().After(deadline) {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("期望 1 次请求, 实际 %d", len(got))
	}
	p := got[0]
	if p.Event != EventFruitDrop || p.Entry != "Flame-Flame Fruit" || p.Counters.Catches != 12 {
		t.Errorf("请求体错误: %+v", p)
	}
	if !strings.Contains(p.Content, "Flame-Flame Fruit") {
		t.Errorf("content 应包含果实名: %s", p.Content)
	}
	if !strings.HasPrefix(p.Image, "data:image/jpeg;base64,") {
		t.Errorf("应附带截图: %.30s", p.Image)
	}
}

func TestRetryThenSucceed(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "temporary failure", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithRetry(fastRetry()))
	err := retry(context.Background(), w.retry, func() error {
		return w.post(context.Background(), Event{Kind: EventPurchase, At: time.Now()})
	})
	if err != nil {
		t.Fatalf("第三次应成功: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("期望 3 次请求, 实际 %d", calls.Load())
	}
}

func TestRetryBounded(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "down", http.StatusBadGateway)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithRetry(fastRetry()))
	err := retry(context.Background(), w.retry, func() error {
		return w.post(context.Background(), Event{Kind: EventPurchase, At: time.Now()})
	})
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("期望 502 StatusError, 实际 %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("最多尝试 3 次, 实际 %d", calls.Load())
	}
}

func TestNoRetryOnClientError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, "bad", http.StatusBadRequest)
	}))
	defer srv.Close()

	w := NewWebhook(srv.URL, WithRetry(fastRetry()))
	_ = retry(context.Background(), w.retry, func() error {
		return w.post(context.Background(), Event{Kind: EventPurchase, At: time.Now()})
	})
	if calls.Load() != 1 {
		t.Errorf("4xx 不应重试, 实际请求 %d 次", calls.Load())
	}
}

func TestQueueOverflowDropsNewest(t *testing.T) {
	w := NewWebhook("http://127.0.0.1:0", WithQueueSize(2))
	for i := 0; i < 5; i++ {
		w.Send(Event{Kind: EventFruitSpawn})
	}
	if w.Dropped() != 3 {
		t.Errorf("期望丢弃 3 个事件, 实际 %d", w.Dropped())
	}
	if len(w.queue) != 2 {
		t.Errorf("队列应保留 2 个事件, 实际 %d", len(w.queue))
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	cfg := RetryConfig{Attempts: 3, BaseDelay: time.Second, MaxDelay: 2 * time.Second, JitterFactor: 0.2}
	for attempt := 0; attempt < 10; attempt++ {
		d := backoffDelay(cfg, attempt)
		if d > 2200*time.Millisecond {
			t.Errorf("attempt=%d 退避 %v 超过上限", attempt, d)
		}
	}
}

func TestMessage(t *testing.T) {
	tests := []struct {
		ev   Event
		want string
	}{
		{Event{Kind: EventFruitSpawn, Entry: "Dough-Dough Fruit", Score: 0.9}, "Dough-Dough Fruit has spawned"},
		{Event{Kind: EventPurchase, Counters: journal.Counters{Purchases: 2}}, "purchases 2"},
		{Event{Kind: EventGameMissing}, "not found"},
	}
	for _, tt := range tests {
		if got := Message(tt.ev); !strings.Contains(got, tt.want) {
			t.Errorf("Message(%s) = %q, 应包含 %q", tt.ev.Kind, got, tt.want)
		}
	}
}
