package permissions

// Instructions 返回缺失权限的说明，全部授予时为空
func Instructions(s Status) []string {
	var out []string
	if !s.Accessibility {
		out = append(out, "辅助功能权限未授予 (用于控制鼠标/键盘): 系统设置 > 隐私与安全性 > 辅助功能")
	}
	if !s.ScreenRecording {
		out = append(out, "屏幕录制权限未授予 (用于截屏识别钓鱼条): 系统设置 > 隐私与安全性 > 屏幕录制")
	}
	return out
}
