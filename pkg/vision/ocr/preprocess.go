package ocr

import (
	"image"

	"golang.org/x/image/draw"
)

// Upscale 按整数倍放大图像（CatmullRom 插值）
// 小字号的提示文字放大后识别率明显更高
func Upscale(img image.Image, factor int) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx()*factor, b.Dy()*factor))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}
