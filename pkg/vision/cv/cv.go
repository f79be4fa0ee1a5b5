// Package cv 基于 gocv 的颜色区域定位
//
// 基本用法:
//
//	loc := cv.NewLocator()
//	blob, ok := loc.Locate(frame, vision.ColorSpec{
//	    Lower:   vision.RGB{R: 230, G: 230, B: 230},
//	    Upper:   vision.RGB{R: 255, G: 255, B: 255},
//	    MinArea: 6,
//	})
//	if ok {
//	    fmt.Printf("指示器中心: (%.1f, %.1f)\n", blob.CenterX, blob.CenterY)
//	}
package cv
