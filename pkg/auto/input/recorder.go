package input

import (
	"fmt"
	"sync"

	"github.com/zoeyai/reelworker/internal/logger"
	"github.com/zoeyai/reelworker/pkg/auto"
)

// Action 一次被记录的输入操作
type Action struct {
	Kind string // press, release, tap, click, move, type, scroll, release_all
	Arg  string
}

func (a Action) String() string {
	if a.Arg == "" {
		return a.Kind
	}
	return a.Kind + "(" + a.Arg + ")"
}

// Recorder 只记录不执行的输入设备，用于空跑和测试
type Recorder struct {
	mu      sync.Mutex
	actions []Action
	held    heldSet
	log     *logger.Logger

	// FailRelease 非空时 ReleaseAll 返回该错误
	FailRelease error
}

// NewRecorder 创建记录器，log 为 nil 时不输出日志
func NewRecorder(log *logger.Logger) *Recorder {
	return &Recorder{log: log}
}

var _ Actuator = (*Recorder)(nil)

func (r *Recorder) record(kind, arg string) {
	r.mu.Lock()
	r.actions = append(r.actions, Action{Kind: kind, Arg: arg})
	r.mu.Unlock()
	if r.log != nil {
		r.log.Debug("[dry-run] %s %s", kind, arg)
	}
}

// Press 记录按下
func (r *Recorder) Press(key string) error {
	r.record("press", key)
	r.held.add(key)
	return nil
}

// Release 记录释放，未按下时忽略
func (r *Recorder) Release(key string) error {
	if !r.held.has(key) {
		return nil
	}
	r.record("release", key)
	r.held.remove(key)
	return nil
}

// KeyTap 记录按键
func (r *Recorder) KeyTap(key string) error {
	r.record("tap", key)
	return nil
}

// Click 记录点击
func (r *Recorder) Click(p auto.Point) error {
	r.record("click", p.String())
	return nil
}

// MoveTo 记录移动
func (r *Recorder) MoveTo(p auto.Point) error {
	r.record("move", p.String())
	return nil
}

// Type 记录输入
func (r *Recorder) Type(text string) error {
	r.record("type", text)
	return nil
}

// Scroll 记录滚轮
func (r *Recorder) Scroll(amount int) error {
	r.record("scroll", fmt.Sprint(amount))
	return nil
}

// ReleaseAll 记录全部释放
func (r *Recorder) ReleaseAll() error {
	held := r.held.drain()
	r.record("release_all", fmt.Sprint(held))
	return r.FailRelease
}

// Actions 返回记录副本
func (r *Recorder) Actions() []Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Action(nil), r.actions...)
}

// Count 统计某类操作次数
func (r *Recorder) Count(kind string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, a := range r.actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

// Held 当前按下的键是否包含 key
func (r *Recorder) Held(key string) bool {
	return r.held.has(key)
}

// Reset 清空记录
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.actions = nil
	r.mu.Unlock()
	r.held.drain()
}
