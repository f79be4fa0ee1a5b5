// Package control 实现钓鱼条的 PD 控制器
//
// 控制器只负责把指示器位置换算为按住/松开指令，
// 不接触屏幕和输入设备，便于单独测试。
package control

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrZoneUndefined 目标区未定义（配置问题）
var ErrZoneUndefined = errors.New("目标区未定义")

// ErrorMode 误差计算方式
type ErrorMode int

const (
	// ModeCenter 指示器相对目标区中心
	ModeCenter ErrorMode = iota
	// ModeEdge 指示器到最近边缘的有符号距离，区内为 0
	ModeEdge
)

// OutputMode 输出方式
type OutputMode int

const (
	// OutputHold 按住/松开
	OutputHold OutputMode = iota
	// OutputPulse 按控制量比例点按
	OutputPulse
)

// CommandKind 指令类型
type CommandKind int

const (
	Release CommandKind = iota
	Hold
	Pulse
)

func (k CommandKind) String() string {
	switch k {
	case Hold:
		return "hold"
	case Pulse:
		return "pulse"
	default:
		return "release"
	}
}

// Command 控制指令
type Command struct {
	Kind     CommandKind
	Output   float64       // 原始控制量 u
	Duration time.Duration // 仅 Pulse 有效
}

func (c Command) String() string {
	if c.Kind == Pulse {
		return fmt.Sprintf("%s(%v, u=%.2f)", c.Kind, c.Duration, c.Output)
	}
	return fmt.Sprintf("%s(u=%.2f)", c.Kind, c.Output)
}

// Sample 一次指示器采样
type Sample struct {
	Pos   float64 // 沿条方向的像素坐标
	Found bool
	At    time.Time
}

// Zone 目标区，沿条方向
type Zone struct {
	Min float64
	Max float64
}

// Defined 目标区是否有效
func (z Zone) Defined() bool {
	return z.Max > z.Min
}

// Center 目标区中心
func (z Zone) Center() float64 {
	return (z.Min + z.Max) / 2
}

// Options 控制器参数
type Options struct {
	Kp         float64
	Kd         float64
	Deadband   float64
	MaxMissed  int
	MinDt      time.Duration
	Mode       ErrorMode
	Output     OutputMode
	PulseScale time.Duration // 每单位 |u| 对应的点按时长
	MaxPulse   time.Duration
	Invert     bool
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		Kp:         0.5,
		Kd:         0.1,
		Deadband:   5,
		MaxMissed:  5,
		MinDt:      time.Millisecond,
		Mode:       ModeCenter,
		Output:     OutputHold,
		PulseScale: 2 * time.Millisecond,
		MaxPulse:   120 * time.Millisecond,
	}
}

// Controller PD 控制器
// 非并发安全，只由控制协程使用
type Controller struct {
	opts Options

	prevErr float64
	hasPrev bool
	last    time.Time
	missed  int
	lastCmd Command
}

// New 创建控制器
func New(opts Options) *Controller {
	if opts.MinDt <= 0 {
		opts.MinDt = time.Millisecond
	}
	if opts.MaxMissed < 0 {
		opts.MaxMissed = 0
	}
	return &Controller{opts: opts}
}

// Options 返回当前参数
func (c *Controller) Options() Options {
	return c.opts
}

// Reset 清空状态，跟踪丢失或重新开始时调用
func (c *Controller) Reset() {
	c.prevErr = 0
	c.hasPrev = false
	c.last = time.Time{}
	c.missed = 0
	c.lastCmd = Command{Kind: Release}
}

// Missed 当前连续丢失次数
func (c *Controller) Missed() int {
	return c.missed
}

// Update 根据一次采样计算指令
func (c *Controller) Update(s Sample, zone Zone) (Command, error) {
	if !s.Found {
		c.missed++
		if c.missed > c.opts.MaxMissed {
			c.Reset()
			return Command{Kind: Release}, nil
		}
		// 短暂闪烁时沿用上一条指令
		return c.lastCmd, nil
	}
	c.missed = 0

	if !zone.Defined() {
		c.lastCmd = Command{Kind: Release}
		return c.lastCmd, ErrZoneUndefined
	}

	e := c.errorFor(s.Pos, zone)

	deriv := 0.0
	if c.hasPrev {
		dt := s.At.Sub(c.last)
		if dt < c.opts.MinDt {
			dt = c.opts.MinDt
		}
		deriv = (e - c.prevErr) / dt.Seconds()
	}

	c.prevErr = e
	c.hasPrev = true
	c.last = s.At

	if math.Abs(e) <= c.opts.Deadband {
		c.lastCmd = Command{Kind: Release}
		return c.lastCmd, nil
	}

	u := c.opts.Kp*e + c.opts.Kd*deriv
	c.lastCmd = c.command(u)
	return c.lastCmd, nil
}

func (c *Controller) errorFor(pos float64, zone Zone) float64 {
	if c.opts.Mode == ModeEdge {
		switch {
		case pos < zone.Min:
			return pos - zone.Min
		case pos > zone.Max:
			return pos - zone.Max
		default:
			return 0
		}
	}
	return pos - zone.Center()
}

func (c *Controller) command(u float64) Command {
	push := u < 0
	if c.opts.Invert {
		push = u > 0
	}
	if !push {
		return Command{Kind: Release, Output: u}
	}
	if c.opts.Output == OutputPulse {
		d := time.Duration(math.Abs(u) * float64(c.opts.PulseScale))
		if c.opts.MaxPulse > 0 && d > c.opts.MaxPulse {
			d = c.opts.MaxPulse
		}
		return Command{Kind: Pulse, Output: u, Duration: d}
	}
	return Command{Kind: Hold, Output: u}
}
