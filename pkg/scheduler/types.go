package scheduler

import (
	"errors"
	"fmt"

	"github.com/zoeyai/reelworker/pkg/journal"
)

// ErrReleaseFailed 紧急停止时释放输入失败，按键可能仍处于按下状态
var ErrReleaseFailed = errors.New("释放输入失败")

// State 调度器状态
type State int32

const (
	Idle State = iota
	Casting
	TrackingBar
	Suspended
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Casting:
		return "casting"
	case TrackingBar:
		return "tracking"
	case Suspended:
		return "suspended"
	case Stopped:
		return "stopped"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Signal 外部控制信号
type Signal int

const (
	SignalStart Signal = iota
	SignalPause
	SignalToggle
)

func (s Signal) String() string {
	switch s {
	case SignalStart:
		return "start"
	case SignalPause:
		return "pause"
	case SignalToggle:
		return "toggle"
	default:
		return fmt.Sprintf("signal(%d)", int(s))
	}
}

// Counters 累计计数，只增不减（用户显式清零和购买后清零钓获数除外）
type Counters = journal.Counters

// Journal 事件持久化
type Journal interface {
	Record(e journal.Entry)
	SaveCounters(c journal.Counters)
}
