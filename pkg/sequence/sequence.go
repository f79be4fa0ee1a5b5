// Package sequence 定义并执行脚本化的输入序列（存储果实、购买、准备）
//
// 序列一旦构建即不可变。执行期间每个步骤间隔都会检查取消，
// 取消后剩余步骤全部放弃。
package sequence

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/zoeyai/reelworker/internal/logger"
	"github.com/zoeyai/reelworker/pkg/auto"
	"github.com/zoeyai/reelworker/pkg/auto/input"
)

// ErrMissingPoint 序列依赖的坐标未标定
var ErrMissingPoint = errors.New("坐标未标定")

// StepKind 步骤类型
type StepKind int

const (
	StepClick StepKind = iota
	StepKey
	StepWait
	StepType
	StepScroll
)

// Step 单个步骤
type Step struct {
	Kind   StepKind
	Point  auto.Point    // StepClick
	Key    string        // StepKey
	Wait   time.Duration // StepWait
	Text   string        // StepType
	Amount int           // StepScroll
}

// Click 点击步骤
func Click(p auto.Point) Step { return Step{Kind: StepClick, Point: p} }

// Key 按键步骤
func Key(k string) Step { return Step{Kind: StepKey, Key: k} }

// Wait 等待步骤
func Wait(d time.Duration) Step { return Step{Kind: StepWait, Wait: d} }

// Type 输入文字步骤
func Type(text string) Step { return Step{Kind: StepType, Text: text} }

// Scroll 滚轮步骤
func Scroll(amount int) Step { return Step{Kind: StepScroll, Amount: amount} }

func (s Step) String() string {
	switch s.Kind {
	case StepClick:
		return "click" + s.Point.String()
	case StepKey:
		return "key(" + s.Key + ")"
	case StepWait:
		return "wait(" + s.Wait.String() + ")"
	case StepType:
		return fmt.Sprintf("type(%q)", s.Text)
	case StepScroll:
		return fmt.Sprintf("scroll(%d)", s.Amount)
	default:
		return "unknown"
	}
}

// Sequence 有序步骤，StepDelay 为相邻步骤之间的固定间隔
type Sequence struct {
	Name      string
	Steps     []Step
	StepDelay time.Duration
}

// Empty 是否没有步骤
func (s Sequence) Empty() bool {
	return len(s.Steps) == 0
}

func (s Sequence) String() string {
	parts := make([]string, len(s.Steps))
	for i, st := range s.Steps {
		parts[i] = st.String()
	}
	return s.Name + "[" + strings.Join(parts, " -> ") + "]"
}

// Sleep 可取消的等待
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Runner 序列执行器
type Runner struct {
	act input.Actuator
	log *logger.Logger
}

// NewRunner 创建执行器
func NewRunner(act input.Actuator, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Default()
	}
	return &Runner{act: act, log: log}
}

// Result 执行结果
type Result struct {
	Executed int // 已执行的步骤数
	Elapsed  time.Duration
}

// Run 依次执行步骤
// ctx 取消时立即返回 ctx.Err()，步骤失败时放弃剩余步骤并返回错误
func (r *Runner) Run(ctx context.Context, seq Sequence) (Result, error) {
	var res Result
	start := time.Now()

	for i, step := range seq.Steps {
		if i > 0 {
			if err := Sleep(ctx, seq.StepDelay); err != nil {
				res.Elapsed = time.Since(start)
				return res, err
			}
		} else if err := ctx.Err(); err != nil {
			return res, err
		}

		r.log.Debug("[%s] 步骤 %d/%d: %s", seq.Name, i+1, len(seq.Steps), step)
		if err := r.exec(ctx, step); err != nil {
			res.Elapsed = time.Since(start)
			return res, fmt.Errorf("%s 第 %d 步 %s 失败: %w", seq.Name, i+1, step, err)
		}
		res.Executed++
	}

	res.Elapsed = time.Since(start)
	r.log.LogEvent(seq.Name, true, float64(res.Elapsed.Milliseconds()), fmt.Sprintf("%d 步", res.Executed))
	return res, nil
}

func (r *Runner) exec(ctx context.Context, step Step) error {
	switch step.Kind {
	case StepClick:
		return r.act.Click(step.Point)
	case StepKey:
		return r.act.KeyTap(step.Key)
	case StepWait:
		return Sleep(ctx, step.Wait)
	case StepType:
		return r.act.Type(step.Text)
	case StepScroll:
		return r.act.Scroll(step.Amount)
	default:
		return fmt.Errorf("未知步骤类型: %d", step.Kind)
	}
}
