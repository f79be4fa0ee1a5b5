//go:build !tesseract

package ocr

import "fmt"

// NewTesseractEngine 未以 -tags tesseract 构建时不可用
func NewTesseractEngine(config Config) (Engine, error) {
	return nil, fmt.Errorf("%w: tesseract 需要以 -tags tesseract 构建", ErrBackendUnavailable)
}
