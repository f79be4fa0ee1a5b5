// Package hotkey 监听全局热键
package hotkey

import (
	"context"
	"fmt"
	"strings"

	hook "github.com/robotn/gohook"

	"github.com/zoeyai/reelworker/internal/logger"
)

// Action 热键动作
type Action int

const (
	ActionToggle   Action = iota // 开始/暂停
	ActionOverlay                // 显示/隐藏区域框
	ActionStop                   // 紧急停止
	ActionMinimize               // 最小化
)

func (a Action) String() string {
	switch a {
	case ActionToggle:
		return "toggle"
	case ActionOverlay:
		return "overlay"
	case ActionStop:
		return "stop"
	case ActionMinimize:
		return "minimize"
	default:
		return fmt.Sprintf("action(%d)", int(a))
	}
}

// Bindings 动作到按键的绑定
type Bindings map[Action]string

// Validate 检查绑定：键名不能为空，也不能重复
func (b Bindings) Validate() error {
	seen := make(map[string]Action, len(b))
	for action, key := range b {
		k := normalize(key)
		if k == "" {
			return fmt.Errorf("热键 %s 未设置", action)
		}
		if other, ok := seen[k]; ok {
			return fmt.Errorf("热键 %s 同时绑定了 %s 和 %s", k, other, action)
		}
		seen[k] = action
	}
	return nil
}

func normalize(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// Listener 全局热键监听器
type Listener struct {
	bindings Bindings
	handler  func(Action)
}

// NewListener 创建监听器，handler 在 gohook 的事件协程中调用，不应阻塞
func NewListener(bindings Bindings, handler func(Action)) (*Listener, error) {
	if err := bindings.Validate(); err != nil {
		return nil, err
	}
	return &Listener{bindings: bindings, handler: handler}, nil
}

// Run 注册热键并阻塞，直到 ctx 取消
func (l *Listener) Run(ctx context.Context) error {
	for action, key := range l.bindings {
		action, key := action, normalize(key)
		hook.Register(hook.KeyDown, []string{key}, func(hook.Event) {
			logger.Debug("热键 %s -> %s", key, action)
			l.handler(action)
		})
		logger.Info("热键 %s: %s", strings.ToUpper(key), action)
	}

	s := hook.Start()
	done := hook.Process(s)

	select {
	case <-ctx.Done():
		hook.End()
		return nil
	case <-done:
		return fmt.Errorf("热键监听意外退出")
	}
}
