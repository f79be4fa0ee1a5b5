// Package scheduler 钓鱼主循环
//
// 单个控制协程按 tick 驱动状态机：Idle → Casting → TrackingBar → Idle，
// 执行购买或存储序列时进入 Suspended。文字识别在独立协程中进行，
// 结果只在 tick 边界处理，序列执行期间不会被打断（紧急停止除外）。
//
// 紧急停止通过取消 context 实现，在每次 tick 等待和序列步骤间隔都能立即生效；
// 停止后 ReleaseAll 恰好执行一次，此后不再产生任何输入。
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"image"
	"sync"
	"sync/atomic"
	"time"

	"github.com/zoeyai/reelworker/internal/logger"
	"github.com/zoeyai/reelworker/pkg/auto"
	"github.com/zoeyai/reelworker/pkg/auto/input"
	"github.com/zoeyai/reelworker/pkg/auto/screen"
	"github.com/zoeyai/reelworker/pkg/config"
	"github.com/zoeyai/reelworker/pkg/control"
	"github.com/zoeyai/reelworker/pkg/journal"
	"github.com/zoeyai/reelworker/pkg/match"
	"github.com/zoeyai/reelworker/pkg/notify"
	"github.com/zoeyai/reelworker/pkg/sequence"
	"github.com/zoeyai/reelworker/pkg/vision"
	"github.com/zoeyai/reelworker/pkg/vision/ocr"
)

// Deps 调度器依赖
type Deps struct {
	Source   screen.Source
	Locator  vision.Locator
	Actuator input.Actuator

	// OCR 和 Matcher 任一为 nil 时不启动文字识别
	// Matcher 应由 settings.Match 构建；重新配置时按新的阈值和词表重建
	OCR     ocr.Engine
	Matcher *match.Matcher

	Notifier notify.Sender // nil 时不发送通知
	Journal  Journal       // nil 时不持久化
	Session  string
	Log      *logger.Logger
}

// Scheduler 钓鱼调度器
type Scheduler struct {
	src      screen.Source
	loc      vision.Locator
	act      *guardedActuator
	runner   *sequence.Runner
	engine   ocr.Engine
	notifier notify.Sender
	journal  Journal
	session  string
	log      *logger.Logger

	// 以下字段只由控制协程访问
	cfg         *config.Settings
	ctrl        *control.Controller
	disp        *Dispatcher
	running     bool
	setupDone   bool
	holding     bool
	zoneWarned  bool
	castStarted time.Time
	absentTicks int
	sinceBuy    int

	shared    atomic.Pointer[config.Settings] // 供识别协程读取
	matcher   atomic.Pointer[match.Matcher]
	vocab     *match.Vocabulary
	vocabFile string
	pendingMu sync.Mutex
	pending   *config.Settings

	signals  chan Signal
	results  []chan textResult
	watchers []*watcher
	active   atomic.Bool
	state    atomic.Int32

	cancelMu      sync.Mutex
	cancel        context.CancelFunc
	stopRequested atomic.Bool

	mu       sync.Mutex
	counters Counters
}

// New 创建调度器，settings 会被复制
func New(settings *config.Settings, deps Deps) (*Scheduler, error) {
	if settings == nil {
		return nil, errors.New("配置为空")
	}
	if deps.Source == nil || deps.Locator == nil || deps.Actuator == nil {
		return nil, errors.New("缺少截图、定位或输入依赖")
	}
	log := deps.Log
	if log == nil {
		log = logger.Default()
	}
	notifier := deps.Notifier
	if notifier == nil {
		notifier = notify.Nop{}
	}

	s := &Scheduler{
		src:      deps.Source,
		loc:      deps.Locator,
		act:      newGuardedActuator(deps.Actuator),
		engine:   deps.OCR,
		notifier: notifier,
		journal:  deps.Journal,
		session:  deps.Session,
		log:      log,
		signals:  make(chan Signal, 8),
	}
	s.runner = sequence.NewRunner(s.act, log)
	if deps.Matcher != nil {
		s.matcher.Store(deps.Matcher)
		s.vocab = deps.Matcher.Vocabulary()
		s.vocabFile = settings.Match.VocabularyFile
	}
	s.install(settings.Clone())

	if s.engine != nil && deps.Matcher != nil {
		s.addWatcher(SiteDrop, func(c *config.Settings) auto.Region { return c.DropRegion })
		s.addWatcher(SiteSpawn, func(c *config.Settings) auto.Region { return c.SpawnRegion })
	}
	return s, nil
}

func (s *Scheduler) addWatcher(site Site, region func(*config.Settings) auto.Region) {
	out := make(chan textResult, 1)
	s.results = append(s.results, out)
	s.watchers = append(s.watchers, &watcher{
		site:     site,
		region:   func() auto.Region { return region(s.shared.Load()) },
		src:      s.src,
		engine:   s.engine,
		matcher:  s.matcher.Load,
		interval: s.matchInterval,
		active:   s.active.Load,
		out:      out,
		log:      s.log,
	})
}

// install 应用一份配置，只在控制协程空闲时调用
func (s *Scheduler) install(c *config.Settings) {
	s.cfg = c
	s.shared.Store(c)
	s.ctrl = control.New(controlOptions(c.Control))
	s.disp = NewDispatcher(time.Duration(c.Match.CooldownMs)*time.Millisecond, c.Storage.Enabled)
	s.zoneWarned = false
	s.installMatcher(c.Match)
	if c.Purchase.Interval > 0 {
		s.mu.Lock()
		s.sinceBuy = s.counters.Catches % c.Purchase.Interval
		s.mu.Unlock()
	}
}

// installMatcher 阈值或词表文件变化时重建匹配器
// 词表加载失败时保留原词表，只更新阈值
func (s *Scheduler) installMatcher(m config.MatchSettings) {
	cur := s.matcher.Load()
	if cur == nil {
		return
	}
	vocab := s.vocab
	if m.VocabularyFile != s.vocabFile {
		next := match.DefaultVocabulary()
		var err error
		if m.VocabularyFile != "" {
			next, err = match.LoadVocabulary(m.VocabularyFile)
		}
		if err != nil {
			s.log.Warn("加载词表失败，沿用原词表: %v", err)
		} else {
			vocab = next
			s.vocab = next
			s.vocabFile = m.VocabularyFile
			s.log.Info("词表已更新 (%d 条)", vocab.Len())
		}
	}
	next := match.NewMatcher(vocab, m.Threshold)
	if vocab == cur.Vocabulary() && next.Threshold() == cur.Threshold() {
		return
	}
	s.matcher.Store(next)
}

func (s *Scheduler) matchInterval() time.Duration {
	d := time.Duration(s.shared.Load().Match.IntervalMs) * time.Millisecond
	if d <= 0 {
		d = 500 * time.Millisecond
	}
	return d
}

func controlOptions(c config.ControlSettings) control.Options {
	opts := control.Options{
		Kp:         c.Kp,
		Kd:         c.Kd,
		Deadband:   c.Deadband,
		MaxMissed:  c.MaxMissedTicks,
		MinDt:      time.Duration(c.MinDtMs) * time.Millisecond,
		PulseScale: time.Duration(c.PulseScaleMs) * time.Millisecond,
		MaxPulse:   time.Duration(c.MaxPulseMs) * time.Millisecond,
		Invert:     c.Invert,
	}
	if c.ErrorMode == config.ErrorModeEdge {
		opts.Mode = control.ModeEdge
	}
	if c.Output == config.OutputPulse {
		opts.Output = control.OutputPulse
	}
	return opts
}

// State 当前状态
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

func (s *Scheduler) setState(next State) {
	prev := State(s.state.Swap(int32(next)))
	if prev != next {
		s.log.Debug("状态 %s → %s", prev, next)
	}
}

// Counters 计数快照
func (s *Scheduler) Counters() Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counters
}

// SetCounters 恢复计数，应在 Run 之前调用
func (s *Scheduler) SetCounters(c Counters) {
	s.mu.Lock()
	s.counters = c
	s.mu.Unlock()
	if n := s.cfg.Purchase.Interval; n > 0 {
		s.sinceBuy = c.Catches % n
	}
}

func (s *Scheduler) updateCounters(fn func(c *Counters)) Counters {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.counters)
	return s.counters
}

// Reconfigure 暂存新配置，下一次回到 Idle 时生效
func (s *Scheduler) Reconfigure(c *config.Settings) {
	if c == nil {
		return
	}
	next := c.Clone()
	_ = next.Validate()
	s.pendingMu.Lock()
	s.pending = next
	s.pendingMu.Unlock()
}

func (s *Scheduler) applyPending() {
	s.pendingMu.Lock()
	next := s.pending
	s.pending = nil
	s.pendingMu.Unlock()
	if next == nil {
		return
	}
	s.install(next)
	s.log.Info("新配置已生效")
	for _, w := range next.Warnings() {
		s.log.Warn("%s", w)
	}
}

// Signal 发送控制信号，不阻塞
func (s *Scheduler) Signal(sig Signal) {
	select {
	case s.signals <- sig:
	default:
		s.log.Warn("信号队列已满，丢弃 %s", sig)
	}
}

// Start 开始钓鱼
func (s *Scheduler) Start() { s.Signal(SignalStart) }

// Pause 暂停，释放按键后停在 Idle
func (s *Scheduler) Pause() { s.Signal(SignalPause) }

// Toggle 切换开始/暂停
func (s *Scheduler) Toggle() { s.Signal(SignalToggle) }

// Stop 紧急停止，可从任意协程调用
func (s *Scheduler) Stop() {
	s.stopRequested.Store(true)
	s.cancelMu.Lock()
	cancel := s.cancel
	s.cancelMu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Run 运行控制循环直到 ctx 取消或 Stop
// 释放输入失败时返回 ErrReleaseFailed
func (s *Scheduler) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelMu.Lock()
	s.cancel = cancel
	s.cancelMu.Unlock()
	if s.stopRequested.Load() {
		cancel()
	}

	var wg sync.WaitGroup
	for _, w := range s.watchers {
		wg.Add(1)
		go func(w *watcher) {
			defer wg.Done()
			w.run(ctx)
		}(w)
	}

	s.log.Info("调度器启动 (tick %dms, 识别协程 %d 个)", s.cfg.TickMs, len(s.watchers))
	for _, w := range s.cfg.Warnings() {
		s.log.Warn("%s", w)
	}

	err := s.loop(ctx)
	cancel()
	wg.Wait()
	return err
}

func (s *Scheduler) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return s.shutdown()
		}
		start := time.Now()

		s.drainSignals()
		s.drainResults(ctx)
		if ctx.Err() != nil {
			return s.shutdown()
		}
		s.step(ctx)

		wait := time.Duration(s.cfg.TickMs)*time.Millisecond - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		t := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			t.Stop()
			return s.shutdown()
		case sig := <-s.signals:
			t.Stop()
			s.handleSignal(sig)
		case <-t.C:
		}
	}
}

// shutdown 释放全部输入，只会执行一次有效的 ReleaseAll
func (s *Scheduler) shutdown() error {
	s.active.Store(false)
	s.setState(Stopped)
	s.holding = false

	err := s.act.ReleaseAll()
	c := s.Counters()
	s.notifier.Send(notify.Event{Kind: notify.EventSessionStop, Counters: c, Session: s.session, At: time.Now()})
	if s.journal != nil {
		s.journal.SaveCounters(c)
	}
	if err != nil {
		s.log.Error("紧急停止释放输入失败: %v", err)
		return fmt.Errorf("%w: %v", ErrReleaseFailed, err)
	}
	s.log.Info("已停止 (钓获 %d, 果实 %d, 购买 %d)", c.Catches, c.Fruits, c.Purchases)
	return nil
}

func (s *Scheduler) drainSignals() {
	for {
		select {
		case sig := <-s.signals:
			s.handleSignal(sig)
		default:
			return
		}
	}
}

func (s *Scheduler) handleSignal(sig Signal) {
	switch sig {
	case SignalStart:
		s.start()
	case SignalPause:
		s.pause()
	case SignalToggle:
		if s.running {
			s.pause()
		} else {
			s.start()
		}
	}
}

func (s *Scheduler) start() {
	if s.running {
		return
	}
	s.running = true
	s.active.Store(true)
	s.log.Info("开始钓鱼")
	s.notifier.Send(notify.Event{Kind: notify.EventSessionStart, Counters: s.Counters(), Session: s.session, At: time.Now()})
}

func (s *Scheduler) pause() {
	if !s.running {
		return
	}
	s.running = false
	s.active.Store(false)
	s.releaseControl()
	s.ctrl.Reset()
	s.toIdle()
	s.log.Info("已暂停")
}

func (s *Scheduler) toIdle() {
	s.setState(Idle)
	s.applyPending()
}

func (s *Scheduler) step(ctx context.Context) {
	switch s.State() {
	case Idle:
		s.applyPending()
		if s.running {
			s.cast(ctx)
		}
	case Casting:
		s.tickCasting()
	case TrackingBar:
		s.tickTracking(ctx)
	}
}

func (s *Scheduler) stepDelay() time.Duration {
	return time.Duration(s.cfg.StepDelayMs) * time.Millisecond
}

// cast 首次开始时执行一次准备序列，然后按住抛竿
func (s *Scheduler) cast(ctx context.Context) {
	if !s.setupDone {
		s.setupDone = true
		if seq := sequence.Setup(s.cfg.Setup, s.stepDelay()); !seq.Empty() {
			s.runSequence(ctx, seq)
			if ctx.Err() != nil {
				return
			}
			s.setState(Idle)
		}
	}

	s.ctrl.Reset()
	s.absentTicks = 0
	btn := s.cfg.Control.Button
	if s.cfg.CastPoint.IsSet() {
		if err := s.act.MoveTo(s.cfg.CastPoint); err != nil {
			s.log.Debug("移动到抛竿点失败: %v", err)
		}
	}
	if err := s.act.Press(btn); err != nil {
		s.log.Warn("抛竿失败: %v", err)
		return
	}
	err := sequence.Sleep(ctx, time.Duration(s.cfg.CastHoldMs)*time.Millisecond)
	_ = s.act.Release(btn)
	if err != nil {
		return
	}
	s.castStarted = time.Now()
	s.setState(Casting)
}

func (s *Scheduler) tickCasting() {
	frame, err := s.src.Capture(s.cfg.BarRegion)
	if err == nil && s.barVisible(frame) {
		s.ctrl.Reset()
		s.absentTicks = 0
		s.setState(TrackingBar)
		s.log.Debug("钓鱼条出现 (%.0fms)", float64(time.Since(s.castStarted).Milliseconds()))
		return
	}
	if err != nil {
		s.log.Debug("截图失败: %v", err)
	}
	if time.Since(s.castStarted) > time.Duration(s.cfg.CastTimeoutMs)*time.Millisecond {
		s.log.Info("等待钓鱼条超时，重新抛竿")
		s.toIdle()
	}
}

func (s *Scheduler) tickTracking(ctx context.Context) {
	frame, err := s.src.Capture(s.cfg.BarRegion)
	if err != nil {
		s.log.Debug("截图失败: %v", err)
		cmd, _ := s.ctrl.Update(control.Sample{At: time.Now()}, s.fixedZone())
		s.apply(ctx, cmd)
		return
	}

	if !s.barVisible(frame) {
		s.absentTicks++
		s.releaseControl()
		if s.absentTicks >= s.cfg.EndTicks {
			s.finishCatch(ctx)
		}
		return
	}
	s.absentTicks = 0

	sample, zone := s.measure(frame)
	cmd, err := s.ctrl.Update(sample, zone)
	if errors.Is(err, control.ErrZoneUndefined) && !s.zoneWarned {
		s.zoneWarned = true
		s.log.Warn("目标区未配置颜色或固定范围，无法控制")
	}
	s.apply(ctx, cmd)
}

func (s *Scheduler) barVisible(frame image.Image) bool {
	spec := s.cfg.BarColor
	if !spec.Defined() {
		spec = s.cfg.IndicatorColor
	}
	_, ok := s.loc.Locate(frame, spec)
	return ok
}

// measure 定位指示器和目标区
// 目标区按颜色定位失败时视为本次采样丢失
func (s *Scheduler) measure(frame image.Image) (control.Sample, control.Zone) {
	now := time.Now()
	vertical := s.cfg.Vertical

	zone := s.fixedZone()
	if s.cfg.ZoneColor.Defined() {
		zb, ok := s.loc.Locate(frame, s.cfg.ZoneColor)
		if !ok {
			return control.Sample{At: now}, zone
		}
		zone.Min, zone.Max = zb.Span(vertical)
	}

	ind, ok := s.loc.Locate(frame, s.cfg.IndicatorColor)
	if !ok {
		return control.Sample{At: now}, zone
	}
	return control.Sample{Pos: ind.Axis(vertical), Found: true, At: now}, zone
}

func (s *Scheduler) fixedZone() control.Zone {
	return control.Zone{Min: s.cfg.FixedZone.Min, Max: s.cfg.FixedZone.Max}
}

func (s *Scheduler) apply(ctx context.Context, cmd control.Command) {
	btn := s.cfg.Control.Button
	switch cmd.Kind {
	case control.Hold:
		if s.holding {
			return
		}
		if err := s.act.Press(btn); err != nil {
			s.log.Debug("按下失败: %v", err)
			return
		}
		s.holding = true
	case control.Pulse:
		if !s.holding {
			if err := s.act.Press(btn); err != nil {
				s.log.Debug("按下失败: %v", err)
				return
			}
		}
		_ = sequence.Sleep(ctx, cmd.Duration)
		_ = s.act.Release(btn)
		s.holding = false
	default:
		s.releaseControl()
	}
}

func (s *Scheduler) releaseControl() {
	if !s.holding {
		return
	}
	if err := s.act.Release(s.cfg.Control.Button); err != nil {
		s.log.Debug("释放失败: %v", err)
	}
	s.holding = false
}

// finishCatch 钓鱼条消失足够久，记一次钓获并按间隔触发购买
func (s *Scheduler) finishCatch(ctx context.Context) {
	s.releaseControl()
	s.ctrl.Reset()

	c := s.updateCounters(func(c *Counters) { c.Catches++ })
	s.sinceBuy++
	s.log.LogEvent("CATCH", true, float64(time.Since(s.castStarted).Milliseconds()), fmt.Sprintf("第 %d 条", c.Catches))
	s.record("catch", "", 0)
	s.saveCounters()

	p := s.cfg.Purchase
	if p.Enabled && p.Interval > 0 && s.sinceBuy >= p.Interval {
		s.purchase(ctx)
	}
	if ctx.Err() != nil {
		return
	}
	s.toIdle()
}

func (s *Scheduler) purchase(ctx context.Context) {
	s.sinceBuy = 0
	seq, err := sequence.Purchase(s.cfg.Purchase, s.stepDelay())
	if err != nil {
		s.log.Warn("跳过购买: %v", err)
		return
	}
	if err := s.runSequence(ctx, seq); err != nil {
		return
	}
	reset := s.cfg.Purchase.ResetCatches
	c := s.updateCounters(func(c *Counters) {
		c.Purchases++
		if reset {
			c.Catches = 0
		}
	})
	s.log.Info("已购买鱼饵 (第 %d 次)", c.Purchases)
	s.record("purchase", "", 0)
	s.saveCounters()
	s.notifier.Send(notify.Event{Kind: notify.EventPurchase, Counters: c, Session: s.session, At: time.Now()})
}

// runSequence 在 Suspended 状态下执行序列，期间不处理 tick
func (s *Scheduler) runSequence(ctx context.Context, seq sequence.Sequence) error {
	s.releaseControl()
	s.setState(Suspended)
	res, err := s.runner.Run(ctx, seq)
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("%s 序列中断 (%d/%d): %v", seq.Name, res.Executed, len(seq.Steps), err)
		}
		return err
	}
	return nil
}

func (s *Scheduler) drainResults(ctx context.Context) {
	for _, ch := range s.results {
		select {
		case r := <-ch:
			s.dispatch(ctx, r)
		default:
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// dispatch 处理一次置信匹配
func (s *Scheduler) dispatch(ctx context.Context, r textResult) {
	if !s.running {
		return
	}
	d := s.disp.Decide(r.Site, r.Candidate, r.At)
	switch d.Kind {
	case DecisionFruitDrop:
		c := s.updateCounters(func(c *Counters) { c.Fruits++ })
		s.log.Info("钓到果实: %s (%.2f)", d.Entry, d.Score)
		s.record("fruit_drop", d.Entry, d.Score)
		s.saveCounters()
		s.notifier.Send(notify.Event{
			Kind: notify.EventFruitDrop, Entry: d.Entry, Score: d.Score,
			Counters: c, Session: s.session, At: r.At, Snapshot: r.Frame,
		})
		if d.Store {
			s.store(ctx)
		}
	case DecisionSpawn:
		c := s.updateCounters(func(c *Counters) { c.Spawns++ })
		s.log.Info("果实刷新: %s (%.2f)", d.Entry, d.Score)
		s.record("fruit_spawn", d.Entry, d.Score)
		s.saveCounters()
		if s.cfg.NotifySpawns {
			s.notifier.Send(notify.Event{
				Kind: notify.EventFruitSpawn, Entry: d.Entry, Score: d.Score,
				Counters: c, Session: s.session, At: r.At, Snapshot: r.Frame,
			})
		}
	}
}

// store 放下控制，执行存储序列后重新抛竿
func (s *Scheduler) store(ctx context.Context) {
	seq, err := sequence.Storage(s.cfg.Storage, s.stepDelay())
	if err != nil {
		s.log.Warn("跳过存储: %v", err)
		return
	}
	s.ctrl.Reset()
	_ = s.runSequence(ctx, seq)
	if ctx.Err() != nil {
		return
	}
	s.toIdle()
}

func (s *Scheduler) record(kind, entry string, score float64) {
	if s.journal == nil {
		return
	}
	s.journal.Record(journal.Entry{Session: s.session, At: time.Now(), Kind: kind, Entry: entry, Score: score})
}

func (s *Scheduler) saveCounters() {
	if s.journal == nil {
		return
	}
	s.journal.SaveCounters(s.Counters())
}
