package ocr

import (
	"fmt"
	"image"
	"slices"
	"strings"
	"sync"
	"time"

	goocr "github.com/getcharzp/go-ocr"

	"github.com/zoeyai/reelworker/internal/logger"
)

// PaddleEngine 基于 PaddleOCR ONNX 模型的识别引擎
type PaddleEngine struct {
	engine  goocr.Engine
	upscale int
	mu      sync.Mutex
}

// NewPaddleEngine 创建 PaddleOCR 引擎
func NewPaddleEngine(config Config) (*PaddleEngine, error) {
	config = config.WithDefaults()

	engine, err := goocr.NewPaddleOcrEngine(goocr.Config{
		OnnxRuntimeLibPath: config.OnnxRuntimeLibPath,
		DetModelPath:       config.DetModelPath,
		RecModelPath:       config.RecModelPath,
		DictPath:           config.DictPath,
	})
	if err != nil {
		return nil, fmt.Errorf("创建 OCR 引擎失败: %w", err)
	}

	logger.Info("OCR 引擎初始化成功 (paddle)")

	return &PaddleEngine{
		engine:  engine,
		upscale: config.Upscale,
	}, nil
}

// ExtractText 识别文字
func (e *PaddleEngine) ExtractText(img image.Image) (string, float64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.engine == nil {
		return "", 0, fmt.Errorf("OCR 引擎已关闭")
	}

	startTime := time.Now()
	results, err := e.engine.RunOCR(upscaled(img, e.upscale))
	elapsed := float64(time.Since(startTime).Milliseconds())
	if err != nil {
		logger.LogEvent("OCR", false, elapsed, "识别失败")
		return "", 0, fmt.Errorf("OCR 识别失败: %w", err)
	}

	text, conf := joinResults(results)
	logger.Debug("OCR %.0fms: %d 个文本, %q", elapsed, len(results), text)
	return text, conf, nil
}

// Close 释放资源
func (e *PaddleEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.engine != nil {
		e.engine.Destroy()
		e.engine = nil
	}
	return nil
}

// joinResults 按阅读顺序（先上后左）拼接文本，置信度取平均值
func joinResults(results []goocr.RecResult) (string, float64) {
	kept := slices.DeleteFunc(slices.Clone(results), func(r goocr.RecResult) bool {
		return strings.TrimSpace(r.Text) == ""
	})
	if len(kept) == 0 {
		return "", 0
	}

	slices.SortStableFunc(kept, func(a, b goocr.RecResult) int {
		if a.Box[1] != b.Box[1] {
			return a.Box[1] - b.Box[1]
		}
		return a.Box[0] - b.Box[0]
	})

	lines := make([]string, 0, len(kept))
	sum := 0.0
	for _, r := range kept {
		lines = append(lines, strings.TrimSpace(r.Text))
		sum += float64(r.Score)
	}
	return strings.Join(lines, "\n"), sum / float64(len(kept))
}
