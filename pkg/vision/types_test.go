package vision

import (
	"image"
	"image/color"
	"testing"
)

func TestColorSpecDefined(t *testing.T) {
	tests := []struct {
		name string
		spec ColorSpec
		want bool
	}{
		{"zero", ColorSpec{}, false},
		{"valid", ColorSpec{Lower: RGB{200, 0, 0}, Upper: RGB{255, 80, 80}, MinArea: 4}, true},
		{"inverted", ColorSpec{Lower: RGB{200, 0, 0}, Upper: RGB{100, 80, 80}, MinArea: 4}, false},
		{"single color", ColorSpec{Lower: RGB{255, 255, 255}, Upper: RGB{255, 255, 255}, MinArea: 1}, true},
		{"pure black", ColorSpec{MinArea: 1}, true},
		{"no min area", ColorSpec{Lower: RGB{200, 0, 0}, Upper: RGB{255, 80, 80}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.spec.Defined(); got != tt.want {
				t.Errorf("Defined() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestColorSpecContains(t *testing.T) {
	spec := ColorSpec{Lower: RGB{200, 0, 0}, Upper: RGB{255, 80, 80}}

	if !spec.Contains(color.RGBA{R: 200, G: 80, B: 0, A: 255}) {
		t.Error("边界颜色应包含在闭区间内")
	}
	if spec.Contains(color.RGBA{R: 199, G: 0, B: 0, A: 255}) {
		t.Error("R=199 不应匹配")
	}
	if spec.Contains(color.RGBA{R: 255, G: 81, B: 0, A: 255}) {
		t.Error("G=81 不应匹配")
	}
}

func TestBlobAxisAndSpan(t *testing.T) {
	b := Blob{CenterX: 12.5, CenterY: 3, Bounds: image.Rect(10, 1, 16, 6), Area: 30}

	if b.Axis(false) != 12.5 || b.Axis(true) != 3 {
		t.Errorf("Axis 错误: x=%v y=%v", b.Axis(false), b.Axis(true))
	}
	lo, hi := b.Span(false)
	if lo != 10 || hi != 16 {
		t.Errorf("水平 Span = [%v,%v), want [10,16)", lo, hi)
	}
	lo, hi = b.Span(true)
	if lo != 1 || hi != 6 {
		t.Errorf("垂直 Span = [%v,%v), want [1,6)", lo, hi)
	}
}
