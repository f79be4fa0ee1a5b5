package scheduler

import (
	"context"
	"image"
	"strings"
	"time"

	"github.com/corona10/goimagehash"

	"github.com/zoeyai/reelworker/internal/logger"
	"github.com/zoeyai/reelworker/pkg/auto"
	"github.com/zoeyai/reelworker/pkg/auto/screen"
	"github.com/zoeyai/reelworker/pkg/match"
	"github.com/zoeyai/reelworker/pkg/vision/ocr"
)

// unchangedDistance pHash 距离不超过该值视为画面未变化，跳过 OCR
const unchangedDistance = 2

// textResult 一次置信的文字识别结果
type textResult struct {
	Site      Site
	Candidate match.Candidate
	Frame     image.Image
	At        time.Time
}

// watcher 在独立协程中定期识别某个区域的文字
// 结果通过容量为 1 的通道交给控制协程，控制协程在 tick 边界处理
type watcher struct {
	site     Site
	region   func() auto.Region
	src      screen.Source
	engine   ocr.Engine
	matcher  func() *match.Matcher
	interval func() time.Duration
	active   func() bool
	out      chan textResult
	log      *logger.Logger

	last *goimagehash.ImageHash
}

// run 按配置的间隔轮询，间隔每轮重新读取
func (w *watcher) run(ctx context.Context) {
	t := time.NewTimer(w.interval())
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
		t.Reset(w.interval())
		if !w.active() {
			w.last = nil
			continue
		}
		w.poll()
	}
}

// poll 截图并识别一次
// 只有 OCR 成功且结果已交出（或确定无需交出）时才记录本帧哈希，
// OCR 失败或通道已满时下一次仍会重新识别同一画面
func (w *watcher) poll() {
	region := w.region()
	if region.Empty() {
		return
	}

	img, err := w.src.Capture(region)
	if err != nil {
		w.log.Debug("[%s] 截图失败: %v", w.site, err)
		return
	}
	h, changed := w.changed(img)
	if !changed {
		return
	}

	start := time.Now()
	text, conf, err := w.engine.ExtractText(img)
	if err != nil {
		w.log.Debug("[%s] OCR 失败: %v", w.site, err)
		return
	}
	if strings.TrimSpace(text) == "" {
		w.last = h
		return
	}

	c := w.matcher().Match(text)
	if !c.Confident {
		w.log.Debug("[%s] 未达到阈值: %s (ocr %.2f)", w.site, c, conf)
		w.last = h
		return
	}
	w.log.LogEvent("OCR", true, float64(time.Since(start).Milliseconds()), c.String())

	select {
	case w.out <- textResult{Site: w.site, Candidate: c, Frame: img, At: time.Now()}:
		w.last = h
	default:
		w.log.Debug("[%s] 上一个结果尚未处理，稍后重试 %s", w.site, c.Entry)
	}
}

// changed 与上次记录的哈希比较，返回本帧哈希（计算失败时为 nil）
func (w *watcher) changed(img image.Image) (*goimagehash.ImageHash, bool) {
	h, err := goimagehash.PerceptionHash(img)
	if err != nil {
		return nil, true
	}
	if w.last == nil {
		return h, true
	}
	d, err := h.Distance(w.last)
	if err != nil {
		return h, true
	}
	return h, d > unchangedDistance
}
