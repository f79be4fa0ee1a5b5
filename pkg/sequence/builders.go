package sequence

import (
	"fmt"
	"strconv"
	"time"

	"github.com/zoeyai/reelworker/pkg/config"
)

// 序列名称
const (
	NameStorage  = "storage"
	NamePurchase = "purchase"
	NameSetup    = "setup"
)

// Storage 存储果实: 切到果实栏 -> 点击存储 -> 切回鱼竿 -> 点击鱼竿
func Storage(s config.StorageSettings, delay time.Duration) (Sequence, error) {
	if !s.StoragePoint.IsSet() {
		return Sequence{}, fmt.Errorf("存储点: %w", ErrMissingPoint)
	}
	if !s.RodPoint.IsSet() {
		return Sequence{}, fmt.Errorf("鱼竿点: %w", ErrMissingPoint)
	}
	return Sequence{
		Name: NameStorage,
		Steps: []Step{
			Key(s.FruitKey),
			Click(s.StoragePoint),
			Key(s.RodKey),
			Click(s.RodPoint),
		},
		StepDelay: delay,
	}, nil
}

// Purchase 购买鱼饵: 交互键 -> P1 -> P2 -> 输入数量 -> P3 -> P4
func Purchase(p config.PurchaseSettings, delay time.Duration) (Sequence, error) {
	for i, pt := range p.Points {
		if !pt.IsSet() {
			return Sequence{}, fmt.Errorf("购买点 %d: %w", i+1, ErrMissingPoint)
		}
	}
	return Sequence{
		Name: NamePurchase,
		Steps: []Step{
			Key(p.InteractKey),
			Click(p.Points[0]),
			Click(p.Points[1]),
			Type(strconv.Itoa(p.Amount)),
			Click(p.Points[2]),
			Click(p.Points[3]),
		},
		StepDelay: delay,
	}, nil
}

// Setup 开始前的准备: 调整镜头缩放，切换界面布局
// 没有任何准备动作时返回空序列
func Setup(s config.SetupSettings, delay time.Duration) Sequence {
	seq := Sequence{Name: NameSetup, StepDelay: delay}

	step := 1
	n := s.ZoomScrolls
	if n < 0 {
		step, n = -1, -n
	}
	for i := 0; i < n; i++ {
		seq.Steps = append(seq.Steps, Scroll(step))
	}
	if s.LayoutKey != "" {
		seq.Steps = append(seq.Steps, Key(s.LayoutKey))
	}
	return seq
}
