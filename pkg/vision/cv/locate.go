package cv

import (
	"image"

	"gocv.io/x/gocv"

	"github.com/zoeyai/reelworker/pkg/vision"
)

// Locator 颜色连通域定位器
// 无状态，可并发使用
type Locator struct{}

// NewLocator 创建定位器
func NewLocator() *Locator {
	return &Locator{}
}

var _ vision.Locator = (*Locator)(nil)

// Locate 查找落在颜色区间内、面积不小于 MinArea 的最大 8 连通区域
// 面积相同时取光栅顺序上首个像素最靠前的区域（先上后左）
func (l *Locator) Locate(img image.Image, spec vision.ColorSpec) (vision.Blob, bool) {
	if img == nil || !spec.Defined() {
		return vision.Blob{}, false
	}
	bounds := img.Bounds()
	if bounds.Empty() {
		return vision.Blob{}, false
	}

	src, err := RGBAMat(img)
	if err != nil {
		return vision.Blob{}, false
	}
	defer src.Close()

	mask := gocv.NewMat()
	defer mask.Close()
	gocv.InRangeWithScalar(src,
		gocv.NewScalar(float64(spec.Lower.R), float64(spec.Lower.G), float64(spec.Lower.B), 0),
		gocv.NewScalar(float64(spec.Upper.R), float64(spec.Upper.G), float64(spec.Upper.B), 255),
		&mask)

	labels := gocv.NewMat()
	defer labels.Close()
	stats := gocv.NewMat()
	defer stats.Close()
	centroids := gocv.NewMat()
	defer centroids.Close()

	n := gocv.ConnectedComponentsWithStats(mask, &labels, &stats, &centroids)

	minArea := max(spec.MinArea, 1)
	best := -1
	bestArea := 0
	bestFirst := image.Point{}
	// label 0 是背景
	for i := 1; i < n; i++ {
		area := int(stats.GetIntAt(i, int(gocv.CCStatArea)))
		if area < minArea || area < bestArea {
			continue
		}
		first := firstPixel(labels, stats, i)
		if area == bestArea && !rasterBefore(first, bestFirst) {
			continue
		}
		best, bestArea, bestFirst = i, area, first
	}
	if best < 0 {
		return vision.Blob{}, false
	}

	left := int(stats.GetIntAt(best, int(gocv.CCStatLeft)))
	top := int(stats.GetIntAt(best, int(gocv.CCStatTop)))
	w := int(stats.GetIntAt(best, int(gocv.CCStatWidth)))
	h := int(stats.GetIntAt(best, int(gocv.CCStatHeight)))

	return vision.Blob{
		CenterX: centroids.GetDoubleAt(best, 0),
		CenterY: centroids.GetDoubleAt(best, 1),
		Bounds:  image.Rect(left, top, left+w, top+h),
		Area:    bestArea,
	}, true
}

// firstPixel 返回区域在光栅顺序上的第一个像素
// 外接矩形的上边一定经过该区域，只需扫描这一行
func firstPixel(labels, stats gocv.Mat, label int) image.Point {
	left := int(stats.GetIntAt(label, int(gocv.CCStatLeft)))
	top := int(stats.GetIntAt(label, int(gocv.CCStatTop)))
	w := int(stats.GetIntAt(label, int(gocv.CCStatWidth)))
	for x := left; x < left+w; x++ {
		if int(labels.GetIntAt(top, x)) == label {
			return image.Point{X: x, Y: top}
		}
	}
	return image.Point{X: left, Y: top}
}

func rasterBefore(a, b image.Point) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}
