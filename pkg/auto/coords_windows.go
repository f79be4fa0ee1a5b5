//go:build windows

package auto

import (
	"fmt"
	"sync"
	"syscall"

	"github.com/go-vgo/robotgo"

	"github.com/zoeyai/reelworker/internal/logger"
)

// 截图始终是物理像素，robotgo.Move 在不同 DPI 设置下可能期望逻辑坐标。
// 启动时对比一次全屏截图尺寸和 GetScreenSize 得到 coordScale：
//   输入坐标 = 截图坐标 / coordScale

var (
	shcore                     = syscall.NewLazyDLL("shcore.dll")
	procSetProcessDpiAwareness = shcore.NewProc("SetProcessDpiAwareness")

	coordMu       sync.Mutex
	coordScaleX   float64
	coordScaleY   float64
	coordDetected bool
)

// processSystemDPIAware PROCESS_SYSTEM_DPI_AWARE
const processSystemDPIAware = 1

// EnableDPIAwareness 声明进程为系统 DPI 感知，避免截图被系统拉伸
func EnableDPIAwareness() error {
	if err := procSetProcessDpiAwareness.Find(); err != nil {
		return fmt.Errorf("当前系统不支持 SetProcessDpiAwareness: %w", err)
	}
	hr, _, _ := procSetProcessDpiAwareness.Call(uintptr(processSystemDPIAware))
	// E_ACCESSDENIED 表示已通过 manifest 设置过，视为成功
	if hr != 0 && uint32(hr) != 0x80070005 {
		return fmt.Errorf("设置 DPI 感知失败: hr=0x%x", uint32(hr))
	}
	ResetCoordinateScaleCache()
	return nil
}

func coordinateScale() (float64, float64) {
	coordMu.Lock()
	defer coordMu.Unlock()

	if coordDetected {
		return coordScaleX, coordScaleY
	}
	coordScaleX, coordScaleY = detectCoordinateScale()
	coordDetected = true
	logger.Debug("坐标缩放: x=%.3f y=%.3f", coordScaleX, coordScaleY)
	return coordScaleX, coordScaleY
}

func detectCoordinateScale() (float64, float64) {
	reportedW, reportedH := robotgo.GetScreenSize()
	if reportedW <= 0 || reportedH <= 0 {
		return 1.0, 1.0
	}
	img, err := robotgo.CaptureImg()
	if err != nil || img == nil {
		return 1.0, 1.0
	}
	b := img.Bounds()
	if b.Dx() <= 0 || b.Dy() <= 0 {
		return 1.0, 1.0
	}
	return normalizeScale(float64(b.Dx()) / float64(reportedW)),
		normalizeScale(float64(b.Dy()) / float64(reportedH))
}

// ResetCoordinateScaleCache 重置坐标缩放缓存（切换显示器或 DPI 后调用）
func ResetCoordinateScaleCache() {
	coordMu.Lock()
	defer coordMu.Unlock()
	coordScaleX, coordScaleY = 0, 0
	coordDetected = false
}

// NormalizePointForInput 截图物理坐标 → robotgo 输入坐标
func NormalizePointForInput(x, y int) (int, int) {
	sx, sy := coordinateScale()
	return ScaleInt(x, 1.0/sx), ScaleInt(y, 1.0/sy)
}

// NormalizeRegionForInput 截图物理区域 → robotgo 输入区域
func NormalizeRegionForInput(x, y, width, height int) (int, int, int, int) {
	sx, sy := coordinateScale()
	return ScaleInt(x, 1.0/sx), ScaleInt(y, 1.0/sy), ScaleInt(width, 1.0/sx), ScaleInt(height, 1.0/sy)
}
