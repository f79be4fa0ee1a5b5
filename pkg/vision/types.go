// Package vision 定义图像识别相关的共享类型
//
// 具体实现位于子包：
//   - cv:  基于 gocv 的颜色区域定位
//   - ocr: 文字识别引擎（PaddleOCR / Tesseract）
package vision

import (
	"fmt"
	"image"
	"image/color"
)

// RGB 8 位颜色
type RGB struct {
	R uint8 `json:"r"`
	G uint8 `json:"g"`
	B uint8 `json:"b"`
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02x%02x%02x", c.R, c.G, c.B)
}

// ColorSpec 颜色区域规格
// Lower/Upper 为闭区间，MinArea 为连通区域的最小像素数
// MinArea 为 0 表示未配置，纯黑 (#000000) 也是合法区间
type ColorSpec struct {
	Lower   RGB `json:"lower"`
	Upper   RGB `json:"upper"`
	MinArea int `json:"min_area"`
}

// Defined 是否已配置（MinArea > 0，且三个通道上界均不小于下界）
func (s ColorSpec) Defined() bool {
	if s.MinArea <= 0 {
		return false
	}
	return s.Upper.R >= s.Lower.R && s.Upper.G >= s.Lower.G && s.Upper.B >= s.Lower.B
}

// Contains 判断颜色是否落在区间内
func (s ColorSpec) Contains(c color.Color) bool {
	r, g, b, _ := c.RGBA()
	r8, g8, b8 := uint8(r>>8), uint8(g>>8), uint8(b>>8)
	return r8 >= s.Lower.R && r8 <= s.Upper.R &&
		g8 >= s.Lower.G && g8 <= s.Upper.G &&
		b8 >= s.Lower.B && b8 <= s.Upper.B
}

// Blob 一个连通颜色区域
type Blob struct {
	// CenterX, CenterY 质心（相对帧左上角）
	CenterX float64
	CenterY float64
	// Bounds 外接矩形（相对帧左上角）
	Bounds image.Rectangle
	// Area 像素数
	Area int
}

// Axis 返回质心在指定轴上的坐标
func (b Blob) Axis(vertical bool) float64 {
	if vertical {
		return b.CenterY
	}
	return b.CenterX
}

// Span 返回外接矩形在指定轴上的 [min, max)
func (b Blob) Span(vertical bool) (float64, float64) {
	if vertical {
		return float64(b.Bounds.Min.Y), float64(b.Bounds.Max.Y)
	}
	return float64(b.Bounds.Min.X), float64(b.Bounds.Max.X)
}

// Locator 在帧中查找颜色区域
// 未找到是正常情况，返回 false 而不是错误
type Locator interface {
	Locate(img image.Image, spec ColorSpec) (Blob, bool)
}
