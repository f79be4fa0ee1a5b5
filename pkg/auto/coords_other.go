//go:build !windows

package auto

// EnableDPIAwareness 非 Windows 平台由系统自行处理高分屏
func EnableDPIAwareness() error {
	return nil
}

// NormalizePointForInput 非 Windows 平台无需缩放
func NormalizePointForInput(x, y int) (int, int) {
	return x, y
}

// NormalizeRegionForInput 非 Windows 平台无需缩放
func NormalizeRegionForInput(x, y, width, height int) (int, int, int, int) {
	return x, y, width, height
}

// ResetCoordinateScaleCache 非 Windows 平台无操作
func ResetCoordinateScaleCache() {}
