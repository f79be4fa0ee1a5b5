// Package auto 提供自动化子包共享的坐标类型和工具函数。
// 具体能力分布在子包中：screen（截图）、input（输入设备）、hotkey（全局热键）。
package auto

import (
	"fmt"
	"image"
)

// Point 表示屏幕上的一个坐标点
// 零值 (0,0) 表示"未设置"，用户标定时不会选到屏幕最左上角
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// IsSet 坐标是否已标定
func (p Point) IsSet() bool {
	return p.X != 0 || p.Y != 0
}

func (p Point) String() string {
	return fmt.Sprintf("(%d,%d)", p.X, p.Y)
}

// Region 表示屏幕矩形区域
type Region struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Empty 区域是否未标定（宽或高不大于 0）
func (r Region) Empty() bool {
	return r.Width <= 0 || r.Height <= 0
}

// Rect 转换为 image.Rectangle
func (r Region) Rect() image.Rectangle {
	return image.Rect(r.X, r.Y, r.X+r.Width, r.Y+r.Height)
}

// Center 区域中心点
func (r Region) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Region) String() string {
	return fmt.Sprintf("%dx%d@(%d,%d)", r.Width, r.Height, r.X, r.Y)
}

// RegionFromRect 从 image.Rectangle 构造区域
func RegionFromRect(rect image.Rectangle) Region {
	rect = rect.Canon()
	return Region{X: rect.Min.X, Y: rect.Min.Y, Width: rect.Dx(), Height: rect.Dy()}
}
