package config

import (
	"fmt"
	"strings"

	"github.com/zoeyai/reelworker/pkg/auto"
	"github.com/zoeyai/reelworker/pkg/vision"
)

// 控制器误差模式
const (
	ErrorModeCenter = "center" // 指示器到目标区中心
	ErrorModeEdge   = "edge"   // 指示器到最近边缘，区内为 0
)

// 执行器输出模式
const (
	OutputHold  = "hold"  // 按住/松开
	OutputPulse = "pulse" // 按比例点按
)

// OCR 后端
const (
	OCRBackendPaddle    = "paddle"
	OCRBackendTesseract = "tesseract"
)

// 截图后端
const (
	CaptureRobotgo    = "robotgo"
	CaptureScreenshot = "screenshot"
)

// Settings 运行参数
// 运行开始后只读，修改在下一次回到 Idle 时生效
type Settings struct {
	// 检测区域
	BarRegion   auto.Region `json:"bar_region"`
	DropRegion  auto.Region `json:"drop_region"`
	SpawnRegion auto.Region `json:"spawn_region"`

	// 小游戏颜色
	IndicatorColor vision.ColorSpec `json:"indicator_color"`
	ZoneColor      vision.ColorSpec `json:"zone_color"` // 可选，未配置时使用 FixedZone
	BarColor       vision.ColorSpec `json:"bar_color"`  // 条框本身，出现即开始、消失即结束
	Vertical       bool             `json:"vertical"`   // 条沿垂直方向
	FixedZone      ZoneBounds       `json:"fixed_zone"`

	Control ControlSettings `json:"control"`

	TickMs        int        `json:"tick_ms"`
	EndTicks      int        `json:"end_ticks"`
	CastPoint     auto.Point `json:"cast_point"`
	CastHoldMs    int        `json:"cast_hold_ms"`
	CastTimeoutMs int        `json:"cast_timeout_ms"`
	StepDelayMs   int        `json:"step_delay_ms"`

	Match    MatchSettings    `json:"match"`
	Purchase PurchaseSettings `json:"purchase"`
	Storage  StorageSettings  `json:"storage"`
	Setup    SetupSettings    `json:"setup"`
	OCR      OCRSettings      `json:"ocr"`
	Hotkeys  HotkeySettings   `json:"hotkeys"`

	CaptureBackend string `json:"capture_backend"`
	WebhookURL     string `json:"webhook_url"`
	NotifySpawns   bool   `json:"notify_spawns"`
	JournalPath    string `json:"journal_path"`
	GameProcess    string `json:"game_process"`
	LogLevel       string `json:"log_level"`
	LogFile        string `json:"log_file"`
}

// ZoneBounds 固定目标区（相对条区域，沿条方向）
type ZoneBounds struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// ControlSettings PD 控制参数
type ControlSettings struct {
	Kp             float64 `json:"kp"`
	Kd             float64 `json:"kd"`
	Deadband       float64 `json:"deadband"`
	MaxMissedTicks int     `json:"max_missed_ticks"`
	MinDtMs        float64 `json:"min_dt_ms"`
	ErrorMode      string  `json:"error_mode"`
	Output         string  `json:"output"`
	PulseScaleMs   float64 `json:"pulse_scale_ms"` // 每单位输出对应的点按毫秒数
	MaxPulseMs     int     `json:"max_pulse_ms"`
	Invert         bool    `json:"invert"`
	Button         string  `json:"button"` // 控制用的鼠标键或键盘键
}

// MatchSettings 文字识别与匹配参数
type MatchSettings struct {
	Threshold      float64 `json:"threshold"`
	VocabularyFile string  `json:"vocabulary_file"`
	IntervalMs     int     `json:"interval_ms"`
	CooldownMs     int     `json:"cooldown_ms"`
}

// PurchaseSettings 自动购买
type PurchaseSettings struct {
	Enabled      bool          `json:"enabled"`
	Interval     int           `json:"interval"` // 每钓到多少次购买一次
	ResetCatches bool          `json:"reset_catches"`
	Points       [4]auto.Point `json:"points"`
	Amount       int           `json:"amount"`
	InteractKey  string        `json:"interact_key"`
}

// StorageSettings 果实存储
type StorageSettings struct {
	Enabled      bool       `json:"enabled"`
	FruitKey     string     `json:"fruit_key"`
	StoragePoint auto.Point `json:"storage_point"`
	RodKey       string     `json:"rod_key"`
	RodPoint     auto.Point `json:"rod_point"`
}

// SetupSettings 开始钓鱼前的准备动作
type SetupSettings struct {
	ZoomScrolls int    `json:"zoom_scrolls"` // 正数放大，负数缩小
	LayoutKey   string `json:"layout_key"`
}

// OCRSettings OCR 引擎
type OCRSettings struct {
	Backend            string `json:"backend"`
	OnnxRuntimeLibPath string `json:"onnx_runtime_lib_path"`
	DetModelPath       string `json:"det_model_path"`
	RecModelPath       string `json:"rec_model_path"`
	DictPath           string `json:"dict_path"`
	Language           string `json:"language"`
	Upscale            int    `json:"upscale"`
}

// HotkeySettings 全局热键
type HotkeySettings struct {
	Toggle   string `json:"toggle"`
	Overlay  string `json:"overlay"`
	Stop     string `json:"stop"`
	Minimize string `json:"minimize"`
}

// DefaultSettings 默认参数
func DefaultSettings() *Settings {
	return &Settings{
		IndicatorColor: vision.ColorSpec{Lower: vision.RGB{R: 230, G: 230, B: 230}, Upper: vision.RGB{R: 255, G: 255, B: 255}, MinArea: 6},
		BarColor:       vision.ColorSpec{Lower: vision.RGB{R: 20, G: 20, B: 20}, Upper: vision.RGB{R: 60, G: 60, B: 60}, MinArea: 200},
		Control: ControlSettings{
			Kp:             0.5,
			Kd:             0.1,
			Deadband:       5,
			MaxMissedTicks: 5,
			MinDtMs:        1,
			ErrorMode:      ErrorModeCenter,
			Output:         OutputHold,
			PulseScaleMs:   2,
			MaxPulseMs:     120,
			Button:         "left",
		},
		TickMs:        40,
		EndTicks:      25,
		CastHoldMs:    900,
		CastTimeoutMs: 15000,
		StepDelayMs:   300,
		Match: MatchSettings{
			Threshold:  0.70,
			IntervalMs: 500,
			CooldownMs: 8000,
		},
		Purchase: PurchaseSettings{
			Interval:    50,
			Amount:      50,
			InteractKey: "e",
		},
		Storage: StorageSettings{
			FruitKey: "3",
			RodKey:   "1",
		},
		OCR: OCRSettings{
			Backend:  OCRBackendPaddle,
			Language: "eng",
			Upscale:  2,
		},
		Hotkeys: HotkeySettings{
			Toggle:   "f1",
			Overlay:  "f2",
			Stop:     "f3",
			Minimize: "f4",
		},
		CaptureBackend: CaptureRobotgo,
		NotifySpawns:   true,
		GameProcess:    "RobloxPlayerBeta",
		LogLevel:       "info",
	}
}

// Validate 将参数归一化到安全范围
func (s *Settings) Validate() error {
	def := DefaultSettings()

	if s.TickMs < 10 || s.TickMs > 1000 {
		s.TickMs = def.TickMs
	}
	if s.EndTicks <= 0 {
		s.EndTicks = def.EndTicks
	}
	if s.CastHoldMs < 0 {
		s.CastHoldMs = def.CastHoldMs
	}
	if s.CastTimeoutMs <= 0 {
		s.CastTimeoutMs = def.CastTimeoutMs
	}
	if s.StepDelayMs < 0 {
		s.StepDelayMs = def.StepDelayMs
	}

	c := &s.Control
	if c.Kp < 0 {
		c.Kp = 0
	}
	if c.Kd < 0 {
		c.Kd = 0
	}
	if c.Deadband < 0 {
		c.Deadband = 0
	}
	if c.MaxMissedTicks < 0 {
		c.MaxMissedTicks = def.Control.MaxMissedTicks
	}
	if c.MinDtMs <= 0 {
		c.MinDtMs = def.Control.MinDtMs
	}
	if c.ErrorMode != ErrorModeEdge {
		c.ErrorMode = ErrorModeCenter
	}
	if c.Output != OutputPulse {
		c.Output = OutputHold
	}
	if c.PulseScaleMs <= 0 {
		c.PulseScaleMs = def.Control.PulseScaleMs
	}
	if c.MaxPulseMs <= 0 {
		c.MaxPulseMs = def.Control.MaxPulseMs
	}
	if strings.TrimSpace(c.Button) == "" {
		c.Button = def.Control.Button
	}

	if s.Match.Threshold <= 0 || s.Match.Threshold > 1 {
		s.Match.Threshold = def.Match.Threshold
	}
	if s.Match.IntervalMs < 50 {
		s.Match.IntervalMs = def.Match.IntervalMs
	}
	if s.Match.CooldownMs < 0 {
		s.Match.CooldownMs = def.Match.CooldownMs
	}

	if s.Purchase.Interval < 0 {
		s.Purchase.Interval = 0
	}
	if s.Purchase.Amount <= 0 {
		s.Purchase.Amount = def.Purchase.Amount
	}

	if s.OCR.Backend != OCRBackendTesseract {
		s.OCR.Backend = OCRBackendPaddle
	}
	if s.OCR.Upscale < 1 || s.OCR.Upscale > 4 {
		s.OCR.Upscale = def.OCR.Upscale
	}
	if s.CaptureBackend != CaptureScreenshot {
		s.CaptureBackend = CaptureRobotgo
	}
	return nil
}

// Warnings 列出会让某个功能降级为空操作的配置缺失
// 这些不是错误：对应功能跳过执行，主循环照常运行
func (s *Settings) Warnings() []string {
	var out []string
	if s.BarRegion.Empty() {
		out = append(out, "未标定钓鱼条区域，无法追踪")
	}
	if !s.IndicatorColor.Defined() {
		out = append(out, "未配置指示器颜色")
	}
	if !s.ZoneColor.Defined() && s.FixedZone.Max <= s.FixedZone.Min {
		out = append(out, "未配置目标区（颜色或固定范围），控制器将保持空闲")
	}
	if s.Storage.Enabled && (!s.Storage.StoragePoint.IsSet() || !s.Storage.RodPoint.IsSet()) {
		out = append(out, "果实存储点或鱼竿点未标定，存储流程将被跳过")
	}
	if s.Purchase.Enabled {
		for i, p := range s.Purchase.Points {
			if !p.IsSet() {
				out = append(out, fmt.Sprintf("购买点 %d 未标定，购买流程将被跳过", i+1))
			}
		}
	}
	if s.Storage.Enabled && s.DropRegion.Empty() {
		out = append(out, "未标定掉落提示区域，无法识别果实")
	}
	return out
}

// Clone 深拷贝（结构体内没有引用类型，值拷贝即可）
func (s *Settings) Clone() *Settings {
	c := *s
	return &c
}
