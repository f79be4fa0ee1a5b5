package cv

import (
	"image"
	"image/color"
	"path/filepath"
	"testing"

	"github.com/zoeyai/reelworker/pkg/vision"
)

var white = vision.ColorSpec{
	Lower:   vision.RGB{R: 240, G: 240, B: 240},
	Upper:   vision.RGB{R: 255, G: 255, B: 255},
	MinArea: 1,
}

// newFrame 创建黑色背景帧
func newFrame(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func fillRect(img *image.RGBA, r image.Rectangle, c color.RGBA) {
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			img.SetRGBA(x, y, c)
		}
	}
}

func TestLocateLargestBlob(t *testing.T) {
	img := newFrame(200, 40)
	fillRect(img, image.Rect(10, 10, 14, 14), color.RGBA{255, 255, 255, 255})   // 16
	fillRect(img, image.Rect(100, 5, 110, 25), color.RGBA{250, 250, 250, 255})  // 200
	fillRect(img, image.Rect(150, 10, 160, 12), color.RGBA{200, 200, 200, 255}) // 不在区间内

	blob, ok := NewLocator().Locate(img, white)
	if !ok {
		t.Fatal("应找到区域")
	}
	if blob.Area != 200 {
		t.Errorf("期望面积 200, 实际 %d", blob.Area)
	}
	if blob.Bounds != image.Rect(100, 5, 110, 25) {
		t.Errorf("外接矩形错误: %v", blob.Bounds)
	}
	if blob.CenterX != 104.5 || blob.CenterY != 14.5 {
		t.Errorf("质心错误: (%.2f, %.2f)", blob.CenterX, blob.CenterY)
	}
	t.Logf("定位结果: %+v", blob)
}

func TestLocateIdempotent(t *testing.T) {
	img := newFrame(120, 30)
	fillRect(img, image.Rect(40, 8, 52, 20), color.RGBA{255, 255, 255, 255})

	loc := NewLocator()
	first, ok1 := loc.Locate(img, white)
	second, ok2 := loc.Locate(img, white)
	if ok1 != ok2 || first != second {
		t.Errorf("同一帧两次定位结果应相同: %+v vs %+v", first, second)
	}
}

func TestLocateTieBreakRasterOrder(t *testing.T) {
	img := newFrame(100, 40)
	// 面积相同，下方靠左的区域不应胜出
	fillRect(img, image.Rect(5, 20, 10, 25), color.RGBA{255, 255, 255, 255})
	fillRect(img, image.Rect(60, 2, 65, 7), color.RGBA{255, 255, 255, 255})

	blob, ok := NewLocator().Locate(img, white)
	if !ok {
		t.Fatal("应找到区域")
	}
	if blob.Bounds.Min != (image.Point{X: 60, Y: 2}) {
		t.Errorf("同面积应取光栅顺序靠前的区域, 实际 %v", blob.Bounds)
	}
}

func TestLocateMinArea(t *testing.T) {
	img := newFrame(60, 20)
	fillRect(img, image.Rect(10, 5, 13, 8), color.RGBA{255, 255, 255, 255}) // 9

	spec := white
	spec.MinArea = 10
	if _, ok := NewLocator().Locate(img, spec); ok {
		t.Error("面积不足 MinArea 时不应返回区域")
	}

	spec.MinArea = 9
	if _, ok := NewLocator().Locate(img, spec); !ok {
		t.Error("面积等于 MinArea 时应返回区域")
	}
}

func TestLocateAbsent(t *testing.T) {
	img := newFrame(50, 50)
	if _, ok := NewLocator().Locate(img, white); ok {
		t.Error("空帧不应找到区域")
	}
	if _, ok := NewLocator().Locate(img, vision.ColorSpec{}); ok {
		t.Error("未配置颜色不应找到区域")
	}
}

func TestLocatePureBlack(t *testing.T) {
	img := newFrame(40, 20)
	fillRect(img, image.Rect(0, 0, 40, 10), color.RGBA{255, 255, 255, 255})

	black := vision.ColorSpec{MinArea: 1}
	blob, ok := NewLocator().Locate(img, black)
	if !ok {
		t.Fatal("纯黑区间应能定位")
	}
	if blob.Area != 400 || blob.Bounds != image.Rect(0, 10, 40, 20) {
		t.Errorf("blob = %+v, 期望下半部分 40x10", blob)
	}
}

func TestLocateSubImage(t *testing.T) {
	img := newFrame(100, 100)
	fillRect(img, image.Rect(60, 60, 70, 70), color.RGBA{255, 255, 255, 255})

	sub := img.SubImage(image.Rect(50, 50, 100, 100))
	blob, ok := NewLocator().Locate(sub, white)
	if !ok {
		t.Fatal("子图中应找到区域")
	}
	if blob.Bounds != image.Rect(10, 10, 20, 20) {
		t.Errorf("坐标应相对子图左上角, 实际 %v", blob.Bounds)
	}
}

func TestWriteImage(t *testing.T) {
	img := newFrame(20, 10)
	fillRect(img, image.Rect(2, 2, 6, 6), color.RGBA{255, 0, 0, 255})

	path := filepath.Join(t.TempDir(), "frame.png")
	if err := WriteImage(path, img); err != nil {
		t.Fatalf("保存快照失败: %v", err)
	}
}
