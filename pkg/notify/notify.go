// Package notify 把钓鱼事件推送到外部 webhook
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/zoeyai/reelworker/internal/logger"
	"github.com/zoeyai/reelworker/pkg/auto/screen"
	"github.com/zoeyai/reelworker/pkg/journal"
)

// EventKind 事件类型
type EventKind string

const (
	EventFruitDrop    EventKind = "fruit_drop"
	EventFruitSpawn   EventKind = "fruit_spawn"
	EventPurchase     EventKind = "purchase"
	EventSessionStart EventKind = "session_start"
	EventSessionStop  EventKind = "session_stop"
	EventGameMissing  EventKind = "game_missing"
)

// Event 通知事件
// Counters 为派发时的快照
type Event struct {
	Kind     EventKind
	Entry    string
	Score    float64
	Counters journal.Counters
	Session  string
	At       time.Time
	Snapshot image.Image // 可选，附带的区域截图
}

// Sender 通知发送器，Send 不阻塞调用方
type Sender interface {
	Send(ev Event)
}

// Nop 不发送任何通知
type Nop struct{}

// Send 丢弃事件
func (Nop) Send(Event) {}

// DefaultQueueSize 默认队列容量
const DefaultQueueSize = 32

// payload webhook 请求体，content 字段兼容 Discord
type payload struct {
	Content  string           `json:"content"`
	Event    EventKind        `json:"event"`
	Entry    string           `json:"entry,omitempty"`
	Score    float64          `json:"score,omitempty"`
	Counters journal.Counters `json:"counters"`
	Session  string           `json:"session,omitempty"`
	Time     string           `json:"time"`
	Image    string           `json:"image,omitempty"`
}

// Webhook 通过 HTTP POST 发送通知
// 事件先进入有界队列，由单个后台协程依次发送
type Webhook struct {
	url    string
	client *http.Client
	queue  chan Event
	retry  RetryConfig
	log    *logger.Logger

	mu      sync.Mutex
	dropped int
}

// WebhookOption 配置项
type WebhookOption func(*Webhook)

// WithHTTPClient 指定 HTTP 客户端
func WithHTTPClient(c *http.Client) WebhookOption {
	return func(w *Webhook) { w.client = c }
}

// WithQueueSize 指定队列容量
func WithQueueSize(n int) WebhookOption {
	return func(w *Webhook) {
		if n > 0 {
			w.queue = make(chan Event, n)
		}
	}
}

// WithRetry 指定重试配置
func WithRetry(cfg RetryConfig) WebhookOption {
	return func(w *Webhook) { w.retry = cfg }
}

// NewWebhook 创建 webhook 发送器，需要调用 Run 启动后台协程
func NewWebhook(url string, opts ...WebhookOption) *Webhook {
	w := &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		queue:  make(chan Event, DefaultQueueSize),
		retry:  DefaultRetryConfig(),
		log:    logger.Default().Named("notify"),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Send 事件入队，队列满时丢弃新事件
func (w *Webhook) Send(ev Event) {
	if ev.At.IsZero() {
		ev.At = time.Now()
	}
	select {
	case w.queue <- ev:
	default:
		w.mu.Lock()
		w.dropped++
		n := w.dropped
		w.mu.Unlock()
		w.log.Warn("通知队列已满，丢弃 %s 事件 (累计 %d)", ev.Kind, n)
	}
}

// Dropped 因队列满被丢弃的事件数
func (w *Webhook) Dropped() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.dropped
}

// Run 发送队列中的事件，直到 ctx 取消
// 取消后把队列中剩余事件尽力发送一次
func (w *Webhook) Run(ctx context.Context) {
	for {
		select {
		case ev := <-w.queue:
			w.deliver(ctx, ev)
		case <-ctx.Done():
			w.flush()
			return
		}
	}
}

func (w *Webhook) flush() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	for {
		select {
		case ev := <-w.queue:
			if err := w.post(ctx, ev); err != nil {
				w.log.Debug("退出时发送 %s 失败: %v", ev.Kind, err)
			}
		default:
			return
		}
	}
}

func (w *Webhook) deliver(ctx context.Context, ev Event) {
	start := time.Now()
	err := retry(ctx, w.retry, func() error { return w.post(ctx, ev) })
	elapsed := float64(time.Since(start).Milliseconds())
	if err != nil {
		w.log.LogEvent("NOTIFY", false, elapsed, fmt.Sprintf("%s 发送失败: %v", ev.Kind, err))
		return
	}
	w.log.LogEvent("NOTIFY", true, elapsed, string(ev.Kind))
}

func (w *Webhook) post(ctx context.Context, ev Event) error {
	body, err := json.Marshal(buildPayload(ev))
	if err != nil {
		return fmt.Errorf("序列化通知失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("发送请求失败: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Code: resp.StatusCode}
	}
	return nil
}

func buildPayload(ev Event) payload {
	p := payload{
		Content:  Message(ev),
		Event:    ev.Kind,
		Entry:    ev.Entry,
		Score:    ev.Score,
		Counters: ev.Counters,
		Session:  ev.Session,
		Time:     ev.At.Format(time.RFC3339),
	}
	if ev.Snapshot != nil {
		if s, err := screen.ImageToBase64(ev.Snapshot, "jpeg", 70); err == nil {
			p.Image = s
		}
	}
	return p
}

// Message 事件的可读描述
func Message(ev Event) string {
	c := ev.Counters
	switch ev.Kind {
	case EventFruitDrop:
		return fmt.Sprintf("🍎 Caught %s (%.0f%%) | fish %d, fruits %d", ev.Entry, ev.Score*100, c.Catches, c.Fruits)
	case EventFruitSpawn:
		return fmt.Sprintf("🌴 %s has spawned (%.0f%%)", ev.Entry, ev.Score*100)
	case EventPurchase:
		return fmt.Sprintf("🛒 Bait purchased | fish %d, purchases %d", c.Catches, c.Purchases)
	case EventSessionStart:
		return "▶️ Fishing started"
	case EventSessionStop:
		return fmt.Sprintf("⏹️ Fishing stopped | fish %d, fruits %d, purchases %d", c.Catches, c.Fruits, c.Purchases)
	case EventGameMissing:
		return "⚠️ Game process not found"
	default:
		return string(ev.Kind)
	}
}
