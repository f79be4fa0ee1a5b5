package screen

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	"image/jpeg"
	"image/png"
)

// Encode 编码图像
// format: "png" 或 "jpeg"，默认 "jpeg"；quality 仅对 JPEG 有效，默认 80
func Encode(img image.Image, format string, quality int) ([]byte, string, error) {
	if img == nil {
		return nil, "", fmt.Errorf("图像为空")
	}
	if quality <= 0 || quality > 100 {
		quality = 80
	}

	var buf bytes.Buffer
	switch format {
	case "png":
		if err := png.Encode(&buf, img); err != nil {
			return nil, "", fmt.Errorf("PNG 编码失败: %w", err)
		}
		return buf.Bytes(), "image/png", nil
	case "jpeg", "jpg", "":
		if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
			return nil, "", fmt.Errorf("JPEG 编码失败: %w", err)
		}
		return buf.Bytes(), "image/jpeg", nil
	default:
		return nil, "", fmt.Errorf("不支持的图像格式: %s", format)
	}
}

// ImageToBase64 将图像转换为 data URI
func ImageToBase64(img image.Image, format string, quality int) (string, error) {
	data, mimeType, err := Encode(img, format, quality)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
}
