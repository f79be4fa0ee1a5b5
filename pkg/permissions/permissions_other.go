//go:build !darwin

// Package permissions 检查截屏和模拟输入所需的系统权限
package permissions

// Status 权限状态
type Status struct {
	Accessibility   bool `json:"accessibility"`
	ScreenRecording bool `json:"screen_recording"`
}

// Granted 截屏和输入权限是否都已授予
func (s Status) Granted() bool {
	return s.Accessibility && s.ScreenRecording
}

// Check 非 macOS 系统不需要额外授权
func Check() Status {
	return Status{Accessibility: true, ScreenRecording: true}
}

// OpenSettings 非 macOS 系统无操作
func OpenSettings(Status) {}
