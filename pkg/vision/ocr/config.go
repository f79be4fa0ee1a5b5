package ocr

import (
	"os"
	"path/filepath"
	"runtime"
)

// Config OCR 配置
type Config struct {
	// Backend 后端名称 (paddle, tesseract)
	Backend string
	// OnnxRuntimeLibPath ONNX Runtime 动态库路径
	OnnxRuntimeLibPath string
	// DetModelPath 检测模型路径
	DetModelPath string
	// RecModelPath 识别模型路径
	RecModelPath string
	// DictPath 字典文件路径
	DictPath string
	// Language tesseract 语言 (eng)
	Language string
	// Upscale 识别前的放大倍数
	Upscale int
}

// DefaultConfig 默认配置，模型路径从可执行文件目录和当前目录中查找
func DefaultConfig() Config {
	return Config{
		Backend:            BackendPaddle,
		OnnxRuntimeLibPath: defaultOnnxRuntimePath(),
		DetModelPath:       defaultModelPath("det.onnx"),
		RecModelPath:       defaultModelPath("rec.onnx"),
		DictPath:           defaultModelPath("dict.txt"),
		Language:           "eng",
		Upscale:            2,
	}
}

// WithDefaults 用默认值补全未填写的字段
func (c Config) WithDefaults() Config {
	def := DefaultConfig()
	if c.Backend == "" {
		c.Backend = def.Backend
	}
	if c.OnnxRuntimeLibPath == "" {
		c.OnnxRuntimeLibPath = def.OnnxRuntimeLibPath
	}
	if c.DetModelPath == "" {
		c.DetModelPath = def.DetModelPath
	}
	if c.RecModelPath == "" {
		c.RecModelPath = def.RecModelPath
	}
	if c.DictPath == "" {
		c.DictPath = def.DictPath
	}
	if c.Language == "" {
		c.Language = def.Language
	}
	if c.Upscale <= 0 {
		c.Upscale = def.Upscale
	}
	return c
}

// PaddleAvailable 检查 PaddleOCR 模型文件是否齐全
func (c Config) PaddleAvailable() bool {
	return fileExists(c.OnnxRuntimeLibPath) &&
		fileExists(c.DetModelPath) &&
		fileExists(c.RecModelPath) &&
		fileExists(c.DictPath)
}

// executableDir 可执行文件所在目录
func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return "."
	}
	execPath, err = filepath.EvalSymlinks(execPath)
	if err != nil {
		return "."
	}
	return filepath.Dir(execPath)
}

func defaultOnnxRuntimePath() string {
	execDir := executableDir()

	var names []string
	switch runtime.GOOS {
	case "darwin":
		names = []string{"libonnxruntime.dylib", "onnxruntime_" + runtime.GOARCH + ".dylib"}
	case "windows":
		names = []string{"onnxruntime.dll"}
	default:
		names = []string{"libonnxruntime.so", "onnxruntime_" + runtime.GOARCH + ".so"}
	}

	var paths []string
	for _, name := range names {
		paths = append(paths,
			filepath.Join(execDir, name),
			filepath.Join(execDir, "models", "lib", name),
			filepath.Join("models", "lib", name),
		)
	}
	return firstExisting(paths)
}

func defaultModelPath(filename string) string {
	return firstExisting([]string{
		filepath.Join(executableDir(), "models", "paddle_weights", filename),
		filepath.Join("models", "paddle_weights", filename),
	})
}

// firstExisting 返回第一个存在的路径，都不存在时返回第一个
func firstExisting(paths []string) string {
	for _, p := range paths {
		if fileExists(p) {
			return p
		}
	}
	return paths[0]
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
