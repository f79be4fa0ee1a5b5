// Package screen 提供屏幕截图和编码功能
package screen

import (
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"
	"github.com/kbinani/screenshot"

	"github.com/zoeyai/reelworker/pkg/auto"
)

// 截图后端
const (
	BackendRobotgo    = "robotgo"
	BackendScreenshot = "screenshot"
)

// Source 帧来源
// 返回的图像坐标以区域左上角为原点
type Source interface {
	Capture(region auto.Region) (image.Image, error)
}

// New 按后端名称创建帧来源
func New(backend string) (Source, error) {
	switch backend {
	case BackendRobotgo, "":
		return RobotgoSource{}, nil
	case BackendScreenshot:
		if screenshot.NumActiveDisplays() == 0 {
			return nil, fmt.Errorf("未检测到显示器")
		}
		return ScreenshotSource{}, nil
	default:
		return nil, fmt.Errorf("未知的截图后端: %s", backend)
	}
}

// RobotgoSource 使用 robotgo 截图
type RobotgoSource struct{}

// Capture 截取屏幕区域
func (RobotgoSource) Capture(region auto.Region) (image.Image, error) {
	if region.Empty() {
		return nil, fmt.Errorf("截图区域为空: %s", region)
	}
	in := auto.RegionForInput(region)
	img, err := robotgo.CaptureImg(in.X, in.Y, in.Width, in.Height)
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	return img, nil
}

// ScreenshotSource 使用 kbinani/screenshot 截图（物理像素，跨显示器）
type ScreenshotSource struct{}

// Capture 截取屏幕区域
func (ScreenshotSource) Capture(region auto.Region) (image.Image, error) {
	if region.Empty() {
		return nil, fmt.Errorf("截图区域为空: %s", region)
	}
	img, err := screenshot.CaptureRect(region.Rect())
	if err != nil {
		return nil, fmt.Errorf("截取区域失败: %w", err)
	}
	return img, nil
}

// FuncSource 由函数提供帧，用于测试和回放
type FuncSource func(region auto.Region) (image.Image, error)

// Capture 调用函数
func (f FuncSource) Capture(region auto.Region) (image.Image, error) {
	return f(region)
}

// CaptureScreen 截取主显示器全屏
func CaptureScreen() (image.Image, error) {
	img, err := robotgo.CaptureImg()
	if err != nil {
		return nil, fmt.Errorf("截屏失败: %w", err)
	}
	return img, nil
}

// DisplayBounds 所有显示器的范围
func DisplayBounds() []image.Rectangle {
	n := screenshot.NumActiveDisplays()
	out := make([]image.Rectangle, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, screenshot.GetDisplayBounds(i))
	}
	return out
}
