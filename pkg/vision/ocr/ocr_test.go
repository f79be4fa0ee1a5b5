package ocr

import (
	"errors"
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	goocr "github.com/getcharzp/go-ocr"
	"github.com/golang/freetype"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
)

// getProjectRoot 获取项目根目录
// /pkg/vision/ocr/ocr_test.go -> 向上 4 层
func getProjectRoot() string {
	_, filename, _, _ := runtime.Caller(0)
	dir := filepath.Dir(filename)
	for i := 0; i < 3; i++ {
		dir = filepath.Dir(dir)
	}
	return dir
}

// setupPaddleConfig 使用项目内模型的配置，模型不存在时跳过
func setupPaddleConfig(t *testing.T) Config {
	config := DefaultConfig()
	if !config.PaddleAvailable() {
		root := getProjectRoot()
		config.DetModelPath = filepath.Join(root, "models/paddle_weights/det.onnx")
		config.RecModelPath = filepath.Join(root, "models/paddle_weights/rec.onnx")
		config.DictPath = filepath.Join(root, "models/paddle_weights/dict.txt")
		config.OnnxRuntimeLibPath = firstExisting([]string{
			filepath.Join(root, "models/lib/onnxruntime_"+runtime.GOARCH+".so"),
			filepath.Join(root, "models/lib/onnxruntime_"+runtime.GOARCH+".dylib"),
			filepath.Join(root, "models/lib/onnxruntime.dll"),
		})
	}
	if !config.PaddleAvailable() {
		t.Skipf("跳过测试：OCR 模型不存在 (%s)", config.DetModelPath)
	}

	t.Logf("OCR 配置:")
	t.Logf("  OnnxRuntimeLibPath: %s", config.OnnxRuntimeLibPath)
	t.Logf("  DetModelPath: %s", config.DetModelPath)
	return config
}

// renderText 白底黑字渲染一行文字
func renderText(t *testing.T, text string, fontSize float64) *image.RGBA {
	f, err := truetype.Parse(goregular.TTF)
	if err != nil {
		t.Fatalf("加载字体失败: %v", err)
	}

	img := image.NewRGBA(image.Rect(0, 0, int(fontSize)*len(text)/2+40, int(fontSize)*2))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	c := freetype.NewContext()
	c.SetDPI(72)
	c.SetFont(f)
	c.SetFontSize(fontSize)
	c.SetClip(img.Bounds())
	c.SetDst(img)
	c.SetSrc(image.NewUniform(color.Black))
	c.SetHinting(font.HintingFull)

	pt := freetype.Pt(20, int(fontSize*1.4))
	if _, err := c.DrawString(text, pt); err != nil {
		t.Fatalf("绘制文字失败: %v", err)
	}
	return img
}

func TestUpscale(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 20, 40, 35))
	dst := Upscale(src, 2)
	if dst.Bounds() != image.Rect(0, 0, 60, 30) {
		t.Errorf("放大后尺寸错误: %v", dst.Bounds())
	}

	if got := upscaled(src, 1); got != image.Image(src) {
		t.Error("放大倍数为 1 时应原样返回")
	}
}

func TestJoinResults(t *testing.T) {
	results := []goocr.RecResult{
		{Box: [4]int{10, 40, 100, 60}, Text: "Flame-Flame Fruit", Score: 0.8},
		{Box: [4]int{10, 5, 100, 25}, Text: "You caught", Score: 0.9},
		{Box: [4]int{0, 80, 10, 90}, Text: "  ", Score: 0.1},
	}

	text, conf := joinResults(results)
	if text != "You caught\nFlame-Flame Fruit" {
		t.Errorf("拼接顺序错误: %q", text)
	}
	if conf < 0.849 || conf > 0.851 {
		t.Errorf("平均置信度应为 0.85, 实际 %.3f", conf)
	}

	if text, conf := joinResults(nil); text != "" || conf != 0 {
		t.Errorf("无结果时应为空, 实际 %q %.2f", text, conf)
	}
}

func TestConfigWithDefaults(t *testing.T) {
	c := Config{Backend: BackendTesseract}.WithDefaults()
	if c.Backend != BackendTesseract {
		t.Errorf("已填写的后端不应被覆盖: %s", c.Backend)
	}
	if c.Upscale != 2 || c.Language != "eng" {
		t.Errorf("默认值未补全: %+v", c)
	}
}

func TestNewUnknownBackend(t *testing.T) {
	if _, err := New(Config{Backend: "bogus"}); err == nil {
		t.Error("未知后端应返回错误")
	}
}

func TestTesseractEngine(t *testing.T) {
	engine, err := NewTesseractEngine(Config{})
	if errors.Is(err, ErrBackendUnavailable) {
		t.Skipf("跳过测试：%v", err)
	}
	if err != nil {
		t.Skipf("跳过测试：tesseract 初始化失败: %v", err)
	}
	defer engine.Close()

	img := renderText(t, "Flame-Flame Fruit", 28)
	text, conf, err := engine.ExtractText(img)
	if err != nil {
		t.Fatalf("识别失败: %v", err)
	}
	t.Logf("识别结果: %q, 置信度: %.2f", text, conf)
	if !strings.Contains(strings.ToLower(text), "fruit") {
		t.Errorf("应识别出 fruit, 实际 %q", text)
	}
}

func TestPaddleEngine(t *testing.T) {
	config := setupPaddleConfig(t)

	engine, err := NewPaddleEngine(config)
	if err != nil {
		t.Fatalf("OCR 初始化失败: %v", err)
	}
	defer engine.Close()

	img := renderText(t, "Flame-Flame Fruit", 28)
	text, conf, err := engine.ExtractText(img)
	if err != nil {
		t.Fatalf("识别失败: %v", err)
	}
	t.Logf("识别结果: %q, 置信度: %.2f", text, conf)
	if !strings.Contains(strings.ToLower(text), "fruit") {
		t.Errorf("应识别出 fruit, 实际 %q", text)
	}

	if err := engine.Close(); err != nil {
		t.Errorf("关闭失败: %v", err)
	}
	if _, _, err := engine.ExtractText(img); err == nil {
		t.Error("关闭后识别应返回错误")
	}
}
