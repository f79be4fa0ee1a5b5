// Package logger 提供统一的日志工具
package logger

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
)

// Level 日志级别
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "DEBUG"
	case INFO:
		return "INFO"
	case WARN:
		return "WARN"
	case ERROR:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// color 终端下级别列的 ANSI 颜色
func (l Level) color() string {
	switch l {
	case DEBUG:
		return "\033[90m"
	case WARN:
		return "\033[33m"
	case ERROR:
		return "\033[31m"
	default:
		return "\033[36m"
	}
}

// ParseLevel 解析日志级别字符串
func ParseLevel(s string) Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return DEBUG
	case "INFO":
		return INFO
	case "WARN", "WARNING":
		return WARN
	case "ERROR":
		return ERROR
	default:
		return INFO
	}
}

// Logger 日志记录器
// 通过 Named 派生的子 logger 共享同一个输出端
type Logger struct {
	out  *output
	name string
}

type output struct {
	mu      sync.Mutex
	level   Level
	console bool
	colored bool
	fileOut *os.File
	logger  *log.Logger
	now     func() time.Time
}

// 全局默认 logger
var defaultLogger = New()

// New 创建新的 Logger 实例，默认输出到控制台
func New() *Logger {
	return &Logger{out: &output{
		level:   INFO,
		console: true,
		colored: isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()),
		logger:  log.New(os.Stdout, "", 0),
		now:     time.Now,
	}}
}

// NewWithWriter 创建写入指定 writer 的 Logger（测试用）
func NewWithWriter(w io.Writer, level Level) *Logger {
	return &Logger{out: &output{
		level:  level,
		logger: log.New(w, "", 0),
		now:    time.Now,
	}}
}

// Default 获取默认 logger
func Default() *Logger {
	return defaultLogger
}

// Named 派生带组件名的子 logger
func (l *Logger) Named(name string) *Logger {
	if l.name != "" {
		name = l.name + "." + name
	}
	return &Logger{out: l.out, name: name}
}

// SetLevel 设置日志级别
func (l *Logger) SetLevel(level Level) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.level = level
}

// SetConsole 设置是否输出到控制台
func (l *Logger) SetConsole(enabled bool) {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.console = enabled
	l.out.updateOutput()
}

// SetFile 设置日志文件，path 为空表示关闭文件输出
func (l *Logger) SetFile(path string) error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.fileOut != nil {
		l.out.fileOut.Close()
		l.out.fileOut = nil
	}
	if path != "" {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("无法打开日志文件: %w", err)
		}
		l.out.fileOut = f
	}
	l.out.updateOutput()
	return nil
}

func (o *output) updateOutput() {
	var writers []io.Writer
	if o.console {
		writers = append(writers, os.Stdout)
	}
	if o.fileOut != nil {
		writers = append(writers, o.fileOut)
		// 文件里不写颜色控制符
		o.colored = false
	}

	switch len(writers) {
	case 0:
		o.logger.SetOutput(io.Discard)
	case 1:
		o.logger.SetOutput(writers[0])
	default:
		o.logger.SetOutput(io.MultiWriter(writers...))
	}
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	o := l.out
	o.mu.Lock()
	defer o.mu.Unlock()

	if level < o.level {
		return
	}

	timestamp := o.now().Format("15:04:05.000")
	msg := fmt.Sprintf(format, args...)
	lv := fmt.Sprintf("%-5s", level.String())
	if o.colored {
		lv = level.color() + lv + "\033[0m"
	}
	if l.name != "" {
		o.logger.Printf("%s | %s | %s | %s", timestamp, lv, l.name, msg)
		return
	}
	o.logger.Printf("%s | %s | %s", timestamp, lv, msg)
}

// Debug 输出 DEBUG 级别日志
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(DEBUG, format, args...)
}

// Info 输出 INFO 级别日志
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(INFO, format, args...)
}

// Warn 输出 WARN 级别日志
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(WARN, format, args...)
}

// Error 输出 ERROR 级别日志
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(ERROR, format, args...)
}

// LogEvent 记录带分类和耗时的事件日志
func (l *Logger) LogEvent(category string, ok bool, elapsedMs float64, detail string) {
	if ok {
		l.Info("%-5s | OK | %6.1fms | %s", category, elapsedMs, detail)
	} else {
		l.Warn("%-5s | NG | %6.1fms | %s", category, elapsedMs, detail)
	}
}

// Close 关闭 logger，释放文件句柄
func (l *Logger) Close() error {
	l.out.mu.Lock()
	defer l.out.mu.Unlock()

	if l.out.fileOut != nil {
		err := l.out.fileOut.Close()
		l.out.fileOut = nil
		l.out.updateOutput()
		return err
	}
	return nil
}

// 包级别便捷函数
func Debug(format string, args ...interface{}) { defaultLogger.Debug(format, args...) }
func Info(format string, args ...interface{})  { defaultLogger.Info(format, args...) }
func Warn(format string, args ...interface{})  { defaultLogger.Warn(format, args...) }
func Error(format string, args ...interface{}) { defaultLogger.Error(format, args...) }
func LogEvent(category string, ok bool, elapsedMs float64, detail string) {
	defaultLogger.LogEvent(category, ok, elapsedMs, detail)
}
