package auto

import "math"

// ScaleInt 缩放整数值
func ScaleInt(value int, factor float64) int {
	if factor <= 0 {
		return value
	}
	return int(math.Round(float64(value) * factor))
}

// normalizeScale 过滤异常缩放比，接近 1 的值按 1 处理
func normalizeScale(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 1.0
	}
	if v < 0.5 || v > 4.0 {
		return 1.0
	}
	if math.Abs(v-1.0) < 0.05 {
		return 1.0
	}
	return v
}

// PointForInput 截图坐标 → 输入坐标
func PointForInput(p Point) Point {
	x, y := NormalizePointForInput(p.X, p.Y)
	return Point{X: x, Y: y}
}

// RegionForInput 截图区域 → 输入坐标区域
func RegionForInput(r Region) Region {
	x, y, w, h := NormalizeRegionForInput(r.X, r.Y, r.Width, r.Height)
	if r.Width > 0 && w < 1 {
		w = 1
	}
	if r.Height > 0 && h < 1 {
		h = 1
	}
	return Region{X: x, Y: y, Width: w, Height: h}
}
