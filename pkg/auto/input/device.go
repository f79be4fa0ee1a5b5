package input

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/reelworker/pkg/auto"
)

// clickSettle 移动后等待鼠标到位
const clickSettle = 50 * time.Millisecond

// Device 基于 robotgo 的真实输入设备
type Device struct {
	held heldSet
}

// NewDevice 创建输入设备
func NewDevice() *Device {
	return &Device{}
}

var _ Actuator = (*Device)(nil)

// Press 按下键或鼠标键
func (d *Device) Press(key string) error {
	if err := toggle(key, "down"); err != nil {
		return fmt.Errorf("按下 %s 失败: %w", key, err)
	}
	d.held.add(key)
	return nil
}

// Release 释放键或鼠标键，未按下时不做任何事
func (d *Device) Release(key string) error {
	if !d.held.has(key) {
		return nil
	}
	if err := toggle(key, "up"); err != nil {
		return fmt.Errorf("释放 %s 失败: %w", key, err)
	}
	d.held.remove(key)
	return nil
}

// KeyTap 按键
func (d *Device) KeyTap(key string) error {
	if err := robotgo.KeyTap(key); err != nil {
		return fmt.Errorf("按键 %s 失败: %w", key, err)
	}
	return nil
}

// Click 在指定位置左键点击，未设置的点在当前位置点击
func (d *Device) Click(p auto.Point) error {
	if p.IsSet() {
		if err := d.MoveTo(p); err != nil {
			return err
		}
		time.Sleep(clickSettle)
	}
	robotgo.Click("left", false)
	return nil
}

// MoveTo 移动鼠标
func (d *Device) MoveTo(p auto.Point) error {
	in := auto.PointForInput(p)
	robotgo.Move(in.X, in.Y)
	return nil
}

// Type 输入文字
func (d *Device) Type(text string) error {
	robotgo.TypeStr(text)
	return nil
}

// Scroll 滚轮，正数向上
func (d *Device) Scroll(amount int) error {
	switch {
	case amount > 0:
		robotgo.ScrollDir(amount, "up")
	case amount < 0:
		robotgo.ScrollDir(-amount, "down")
	}
	return nil
}

// ReleaseAll 释放所有按下的键
// 单个键释放失败不影响其他键，错误合并返回
func (d *Device) ReleaseAll() error {
	var errs []error
	for _, key := range d.held.drain() {
		if err := toggle(key, "up"); err != nil {
			errs = append(errs, fmt.Errorf("释放 %s 失败: %w", key, err))
		}
	}
	return errors.Join(errs...)
}

// Location 当前鼠标位置（输入坐标）
func Location() auto.Point {
	x, y := robotgo.Location()
	return auto.Point{X: x, Y: y}
}

func toggle(key, dir string) error {
	if IsMouseButton(key) {
		return robotgo.Toggle(mouseButton(key), dir)
	}
	return robotgo.KeyToggle(key, dir)
}
