package cv

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
)

// ToRGBA 将任意图像转换为原点在 (0,0) 的紧凑 RGBA 图像
// 已经满足条件的 *image.RGBA 直接返回
func ToRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	if rgba, ok := img.(*image.RGBA); ok && b.Min == (image.Point{}) && rgba.Stride == 4*b.Dx() {
		return rgba
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// RGBAMat 将图像转换为 4 通道 Mat，通道顺序为 R,G,B,A
// 调用方负责 Close
func RGBAMat(img image.Image) (gocv.Mat, error) {
	rgba := ToRGBA(img)
	b := rgba.Bounds()
	mat, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC4, rgba.Pix)
	if err != nil {
		return gocv.Mat{}, fmt.Errorf("图像转换失败: %w", err)
	}
	// NewMatFromBytes 不复制数据，克隆一份脱离 Go 内存
	defer mat.Close()
	return mat.Clone(), nil
}

// WriteImage 保存图像文件，用于调试快照
func WriteImage(filename string, img image.Image) error {
	mat, err := RGBAMat(img)
	if err != nil {
		return err
	}
	defer mat.Close()

	bgr := gocv.NewMat()
	defer bgr.Close()
	gocv.CvtColor(mat, &bgr, gocv.ColorRGBAToBGR)

	if ok := gocv.IMWrite(filename, bgr); !ok {
		return fmt.Errorf("保存图像失败: %s", filename)
	}
	return nil
}
