package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/zoeyai/reelworker/pkg/auto"
)

func TestDefaultSettings(t *testing.T) {
	s := DefaultSettings()

	if s.Match.Threshold != 0.70 {
		t.Errorf("默认匹配阈值应为 0.70, 实际为 %v", s.Match.Threshold)
	}
	if s.Purchase.ResetCatches {
		t.Error("默认购买后不应清零钓获计数")
	}
	if s.Control.ErrorMode != ErrorModeCenter {
		t.Errorf("默认误差模式应为 center, 实际为 %s", s.Control.ErrorMode)
	}
	if s.GameProcess != "RobloxPlayerBeta" {
		t.Errorf("默认游戏进程名错误: %s", s.GameProcess)
	}

	t.Logf("默认配置: %+v", s)
}

func TestValidateClamps(t *testing.T) {
	s := DefaultSettings()
	s.TickMs = 0
	s.Control.Kp = -1
	s.Control.ErrorMode = "bogus"
	s.Match.Threshold = 1.5
	s.OCR.Upscale = 9
	s.CaptureBackend = ""

	if err := s.Validate(); err != nil {
		t.Fatalf("Validate 失败: %v", err)
	}

	def := DefaultSettings()
	if s.TickMs != def.TickMs {
		t.Errorf("TickMs 应恢复默认 %d, 实际为 %d", def.TickMs, s.TickMs)
	}
	if s.Control.Kp != 0 {
		t.Errorf("负增益应归零, 实际为 %v", s.Control.Kp)
	}
	if s.Control.ErrorMode != ErrorModeCenter {
		t.Errorf("未知误差模式应回退为 center, 实际为 %s", s.Control.ErrorMode)
	}
	if s.Match.Threshold != def.Match.Threshold {
		t.Errorf("越界阈值应恢复默认, 实际为 %v", s.Match.Threshold)
	}
	if s.OCR.Upscale != def.OCR.Upscale {
		t.Errorf("放大倍数应恢复默认, 实际为 %d", s.OCR.Upscale)
	}
	if s.CaptureBackend != CaptureRobotgo {
		t.Errorf("截图后端应回退为 robotgo, 实际为 %s", s.CaptureBackend)
	}
}

func TestWarnings(t *testing.T) {
	s := DefaultSettings()
	s.Storage.Enabled = true
	s.Purchase.Enabled = true

	warnings := s.Warnings()
	if len(warnings) == 0 {
		t.Fatal("未标定时应有告警")
	}
	for _, w := range warnings {
		t.Logf("告警: %s", w)
	}

	s.BarRegion = auto.Region{X: 10, Y: 10, Width: 300, Height: 20}
	s.DropRegion = auto.Region{X: 10, Y: 100, Width: 300, Height: 40}
	s.FixedZone = ZoneBounds{Min: 100, Max: 160}
	s.Storage.StoragePoint = auto.Point{X: 1, Y: 2}
	s.Storage.RodPoint = auto.Point{X: 3, Y: 4}
	for i := range s.Purchase.Points {
		s.Purchase.Points[i] = auto.Point{X: 10 + i, Y: 20 + i}
	}

	if warnings := s.Warnings(); len(warnings) != 0 {
		t.Errorf("全部标定后不应有告警, 实际: %v", warnings)
	}
}

func TestManagerSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if manager.Exists() {
		t.Error("初始时配置文件不应存在")
	}

	s := DefaultSettings()
	s.BarRegion = auto.Region{X: 100, Y: 200, Width: 400, Height: 30}
	s.Purchase.Points[2] = auto.Point{X: 55, Y: 66}
	s.Control.Kp = 0.8
	s.WebhookURL = "https://example.invalid/hook"

	if err := manager.Save(s); err != nil {
		t.Fatalf("保存配置失败: %v", err)
	}
	if !manager.Exists() {
		t.Error("保存后配置文件应存在")
	}

	loaded, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}

	if loaded.BarRegion != s.BarRegion {
		t.Errorf("BarRegion 不匹配: %v != %v", loaded.BarRegion, s.BarRegion)
	}
	if loaded.Purchase.Points[2] != s.Purchase.Points[2] {
		t.Errorf("购买点不匹配: %v", loaded.Purchase.Points[2])
	}
	if loaded.Control.Kp != 0.8 {
		t.Errorf("Kp 不匹配: %v", loaded.Control.Kp)
	}
	if loaded.WebhookURL != s.WebhookURL {
		t.Errorf("WebhookURL 不匹配: %s", loaded.WebhookURL)
	}

	if err := manager.Clear(); err != nil {
		t.Fatalf("清除配置失败: %v", err)
	}
	if manager.Exists() {
		t.Error("清除后配置文件不应存在")
	}
}

func TestManagerLoadNonExistent(t *testing.T) {
	manager := NewManagerWithDir(filepath.Join(t.TempDir(), "nonexistent"))

	s, err := manager.Load()
	if err != nil {
		t.Fatalf("加载不存在的配置应返回默认值而非错误: %v", err)
	}
	if s.TickMs != DefaultSettings().TickMs {
		t.Error("应返回默认配置")
	}
}

func TestManagerLoadCorrupted(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	if err := os.WriteFile(filepath.Join(tempDir, "config.json"), []byte("{not json"), 0600); err != nil {
		t.Fatal(err)
	}

	s, err := manager.Load()
	if err == nil {
		t.Error("损坏的配置文件应返回错误")
	}
	if s == nil || s.TickMs != DefaultSettings().TickMs {
		t.Error("解析失败时应返回默认配置")
	}
}

func TestPartialConfigKeepsDefaults(t *testing.T) {
	tempDir := t.TempDir()
	manager := NewManagerWithDir(tempDir)

	data := []byte(`{"tick_ms": 25, "control": {"kp": 1.2}}`)
	if err := os.WriteFile(manager.GetConfigFile(), data, 0600); err != nil {
		t.Fatal(err)
	}

	s, err := manager.Load()
	if err != nil {
		t.Fatalf("加载配置失败: %v", err)
	}
	if s.TickMs != 25 {
		t.Errorf("TickMs 应为 25, 实际为 %d", s.TickMs)
	}
	if s.Control.Kp != 1.2 {
		t.Errorf("Kp 应为 1.2, 实际为 %v", s.Control.Kp)
	}
	if s.Control.Kd != DefaultSettings().Control.Kd {
		t.Errorf("未配置的 Kd 应保持默认, 实际为 %v", s.Control.Kd)
	}
	if s.Match.Threshold != 0.70 {
		t.Errorf("未配置的阈值应保持默认, 实际为 %v", s.Match.Threshold)
	}
}
