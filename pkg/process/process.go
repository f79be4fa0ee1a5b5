// Package process 检查游戏进程状态
package process

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-vgo/robotgo"
	"github.com/shirou/gopsutil/v4/process"

	"github.com/zoeyai/reelworker/internal/logger"
)

// ProcessInfo 进程信息
type ProcessInfo struct {
	PID  int    `json:"pid"`
	Name string `json:"name"`
	Path string `json:"path"`
}

// FindProcess 按名称查找进程 (不区分大小写，支持部分匹配)
func FindProcess(ctx context.Context, name string) ([]ProcessInfo, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("获取进程列表失败: %w", err)
	}

	name = strings.ToLower(name)
	var matches []ProcessInfo
	for _, proc := range procs {
		procName, err := proc.NameWithContext(ctx)
		if err != nil {
			continue
		}
		if !strings.Contains(strings.ToLower(procName), name) {
			continue
		}
		exe, _ := proc.ExeWithContext(ctx)
		matches = append(matches, ProcessInfo{
			PID:  int(proc.Pid),
			Name: procName,
			Path: exe,
		})
	}
	return matches, nil
}

// Probe 游戏进程探测器
type Probe struct {
	name string
	find func(ctx context.Context, name string) ([]ProcessInfo, error)
}

// NewProbe 创建探测器，name 为空时探测总是成功
func NewProbe(name string) *Probe {
	return &Probe{name: name, find: FindProcess}
}

// Name 探测的进程名
func (p *Probe) Name() string {
	return p.name
}

// Check 检查进程是否在运行
func (p *Probe) Check(ctx context.Context) (ProcessInfo, bool, error) {
	if p.name == "" {
		return ProcessInfo{}, true, nil
	}
	matches, err := p.find(ctx, p.name)
	if err != nil {
		return ProcessInfo{}, false, err
	}
	if len(matches) == 0 {
		return ProcessInfo{}, false, nil
	}
	return matches[0], true, nil
}

// Watch 定期检查进程，状态变化时回调，直到 ctx 取消
// 首次检查的结果也会回调一次
func (p *Probe) Watch(ctx context.Context, interval time.Duration, onChange func(running bool)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	first := true
	last := false
	for {
		_, running, err := p.Check(ctx)
		if err != nil {
			logger.Debug("检查进程 %s 失败: %v", p.name, err)
		} else if first || running != last {
			first = false
			last = running
			onChange(running)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Focus 激活进程窗口
func Focus(pid int) error {
	if err := robotgo.ActivePid(pid); err != nil {
		return fmt.Errorf("激活窗口失败: PID=%d, %w", pid, err)
	}
	return nil
}
