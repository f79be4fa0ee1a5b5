// Package input 提供鼠标和键盘操作
//
// 所有操作经由 Actuator 接口，运行时使用 robotgo 实现的 Device，
// 空跑和测试使用 Recorder。
package input

import (
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/zoeyai/reelworker/pkg/auto"
)

// ErrReleased ReleaseAll 之后设备拒绝继续输入
var ErrReleased = errors.New("输入设备已释放")

// Actuator 输入执行器
//
// Press/Release 的 key 可以是键盘键名，也可以是鼠标键 left/right/center。
// 实现需要记录处于按下状态的键，ReleaseAll 恰好释放这些键。
type Actuator interface {
	Press(key string) error
	Release(key string) error
	KeyTap(key string) error
	Click(p auto.Point) error
	MoveTo(p auto.Point) error
	Type(text string) error
	Scroll(amount int) error
	ReleaseAll() error
}

// IsMouseButton 判断键名是否为鼠标键
func IsMouseButton(key string) bool {
	switch strings.ToLower(key) {
	case "left", "right", "center", "middle":
		return true
	}
	return false
}

// mouseButton robotgo 的鼠标键名
func mouseButton(key string) string {
	k := strings.ToLower(key)
	if k == "middle" {
		return "center"
	}
	return k
}

// heldSet 当前按下的键
type heldSet struct {
	mu   sync.Mutex
	keys map[string]struct{}
}

func (h *heldSet) add(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.keys == nil {
		h.keys = make(map[string]struct{})
	}
	h.keys[key] = struct{}{}
}

func (h *heldSet) remove(key string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.keys, key)
}

func (h *heldSet) has(key string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.keys[key]
	return ok
}

// drain 取出并清空，按键名排序保证释放顺序稳定
func (h *heldSet) drain() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]string, 0, len(h.keys))
	for k := range h.keys {
		out = append(out, k)
	}
	h.keys = nil
	sort.Strings(out)
	return out
}
