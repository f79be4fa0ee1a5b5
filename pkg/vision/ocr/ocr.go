// Package ocr 提供文字识别引擎
//
// 支持两种后端:
//   - paddle:    PaddleOCR ONNX 模型（go-ocr）
//   - tesseract: Tesseract（gosseract，需要以 -tags tesseract 构建）
//
// 基本用法:
//
//	engine, err := ocr.New(ocr.DefaultConfig())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer engine.Close()
//
//	text, conf, err := engine.ExtractText(img)
package ocr

import (
	"errors"
	"fmt"
	"image"
)

// ErrBackendUnavailable 后端未编译进当前二进制
var ErrBackendUnavailable = errors.New("OCR 后端不可用")

// 后端名称
const (
	BackendPaddle    = "paddle"
	BackendTesseract = "tesseract"
)

// Engine 文字识别引擎
// 实现必须可被多个协程同时调用
type Engine interface {
	// ExtractText 识别图像中的文字，多行用换行分隔
	// confidence 为 [0,1]，没有文字时返回空串而非错误
	ExtractText(img image.Image) (text string, confidence float64, err error)
	Close() error
}

// New 按配置创建引擎
func New(config Config) (Engine, error) {
	switch config.Backend {
	case BackendTesseract:
		return NewTesseractEngine(config)
	case BackendPaddle, "":
		return NewPaddleEngine(config)
	default:
		return nil, fmt.Errorf("未知的 OCR 后端: %s", config.Backend)
	}
}

// upscaled 按配置放大图像，factor <= 1 时原样返回
func upscaled(img image.Image, factor int) image.Image {
	if factor <= 1 {
		return img
	}
	return Upscale(img, factor)
}
