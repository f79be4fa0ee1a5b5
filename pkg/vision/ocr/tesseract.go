//go:build tesseract

package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/zoeyai/reelworker/internal/logger"
)

// TesseractEngine 基于 Tesseract 的识别引擎
type TesseractEngine struct {
	client  *gosseract.Client
	upscale int
	mu      sync.Mutex
}

// NewTesseractEngine 创建 Tesseract 引擎
func NewTesseractEngine(config Config) (Engine, error) {
	config = config.WithDefaults()

	client := gosseract.NewClient()
	if err := client.SetLanguage(config.Language); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置 OCR 语言失败: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close()
		return nil, fmt.Errorf("设置分页模式失败: %w", err)
	}

	logger.Info("OCR 引擎初始化成功 (tesseract %s)", gosseract.Version())

	return &TesseractEngine{client: client, upscale: config.Upscale}, nil
}

// ExtractText 识别文字
func (e *TesseractEngine) ExtractText(img image.Image) (string, float64, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, upscaled(img, e.upscale)); err != nil {
		return "", 0, fmt.Errorf("编码图像失败: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return "", 0, fmt.Errorf("OCR 引擎已关闭")
	}
	if err := e.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", 0, fmt.Errorf("设置图像失败: %w", err)
	}

	boxes, err := e.client.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return "", 0, fmt.Errorf("OCR 识别失败: %w", err)
	}

	var lines []string
	sum := 0.0
	for _, b := range boxes {
		word := strings.TrimSpace(b.Word)
		if word == "" {
			continue
		}
		lines = append(lines, word)
		sum += b.Confidence
	}
	if len(lines) == 0 {
		return "", 0, nil
	}
	// gosseract 置信度为 0-100
	return strings.Join(lines, "\n"), sum / float64(len(lines)) / 100, nil
}

// Close 释放资源
func (e *TesseractEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.client == nil {
		return nil
	}
	err := e.client.Close()
	e.client = nil
	return err
}
