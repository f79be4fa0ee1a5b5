package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/zoeyai/reelworker/internal/logger"
	"github.com/zoeyai/reelworker/pkg/auto"
	"github.com/zoeyai/reelworker/pkg/auto/hotkey"
	"github.com/zoeyai/reelworker/pkg/auto/input"
	"github.com/zoeyai/reelworker/pkg/auto/screen"
	"github.com/zoeyai/reelworker/pkg/config"
	"github.com/zoeyai/reelworker/pkg/journal"
	"github.com/zoeyai/reelworker/pkg/match"
	"github.com/zoeyai/reelworker/pkg/notify"
	"github.com/zoeyai/reelworker/pkg/permissions"
	"github.com/zoeyai/reelworker/pkg/process"
	"github.com/zoeyai/reelworker/pkg/scheduler"
	"github.com/zoeyai/reelworker/pkg/vision/cv"
	"github.com/zoeyai/reelworker/pkg/vision/ocr"
)

// 版本信息 (可通过 ldflags 注入)
var (
	Version   = "1.0.0"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	var (
		configPath    = flag.String("config", "", "配置文件路径 (默认 ~/.reelworker/config.json)")
		dryRun        = flag.Bool("dry-run", false, "只记录输入，不操作鼠标键盘")
		resetCounters = flag.Bool("reset-counters", false, "清零累计计数后退出")
		history       = flag.Int("history", 0, "打印最近 N 条事件后退出")
		snapshot      = flag.String("snapshot", "", "截取钓鱼条区域保存到文件后退出")
		logLevel      = flag.String("log-level", "", "日志级别 (debug, info, warn, error)")
		autoStart     = flag.Bool("start", false, "启动后立即开始，不等待热键")
		showVersion   = flag.Bool("version", false, "显示版本信息")
	)
	flag.Parse()

	if *showVersion {
		printVersion()
		return
	}

	os.Exit(run(options{
		configPath:    *configPath,
		dryRun:        *dryRun,
		resetCounters: *resetCounters,
		history:       *history,
		snapshot:      *snapshot,
		logLevel:      *logLevel,
		autoStart:     *autoStart,
	}))
}

type options struct {
	configPath    string
	dryRun        bool
	resetCounters bool
	history       int
	snapshot      string
	logLevel      string
	autoStart     bool
}

func run(opts options) int {
	log := logger.Default()

	mgr := config.NewManager()
	if opts.configPath != "" {
		mgr = config.NewManagerWithFile(opts.configPath)
	}
	cfg, err := mgr.Load()
	if err != nil {
		log.Warn("加载配置失败，使用默认配置: %v", err)
	}
	if !mgr.Exists() {
		if err := mgr.Save(cfg); err != nil {
			log.Warn("写入默认配置失败: %v", err)
		} else {
			log.Info("已生成默认配置: %s", mgr.GetConfigFile())
		}
	}

	level := cfg.LogLevel
	if opts.logLevel != "" {
		level = opts.logLevel
	}
	log.SetLevel(logger.ParseLevel(level))
	if cfg.LogFile != "" {
		if err := log.SetFile(cfg.LogFile); err != nil {
			log.Warn("%v", err)
		}
	}
	defer log.Close()

	if err := auto.EnableDPIAwareness(); err != nil {
		log.Debug("设置 DPI 感知失败: %v", err)
	}

	if opts.snapshot != "" {
		return saveSnapshot(log, cfg, opts.snapshot)
	}

	journalPath := cfg.JournalPath
	if journalPath == "" {
		journalPath = filepath.Join(mgr.GetConfigDir(), "journal.db")
	}
	jr, err := journal.Open(journalPath)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	defer jr.Close()

	if opts.resetCounters {
		jr.SaveCounters(journal.Counters{})
		log.Info("累计计数已清零")
		return 0
	}
	if opts.history > 0 {
		return printHistory(log, jr, opts.history)
	}

	return fish(log, cfg, jr, opts)
}

// fish 组装各组件并运行主循环，直到紧急停止或收到退出信号
func fish(log *logger.Logger, cfg *config.Settings, jr *journal.Journal, opts options) int {
	printBanner(cfg)

	if st := permissions.Check(); !st.Granted() {
		for _, line := range permissions.Instructions(st) {
			log.Warn("%s", line)
		}
		permissions.OpenSettings(st)
		log.Warn("授权后需要重启程序才能生效")
		if !opts.dryRun {
			return 1
		}
	}

	src, err := screen.New(cfg.CaptureBackend)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	var act input.Actuator = input.NewDevice()
	if opts.dryRun {
		act = input.NewRecorder(log.Named("dry-run"))
		log.Info("空跑模式：不会操作鼠标键盘")
	}

	vocab := match.DefaultVocabulary()
	if cfg.Match.VocabularyFile != "" {
		if vocab, err = match.LoadVocabulary(cfg.Match.VocabularyFile); err != nil {
			log.Error("%v", err)
			return 1
		}
	}
	matcher := match.NewMatcher(vocab, cfg.Match.Threshold)

	engine, err := ocr.New(ocr.Config{
		Backend:            cfg.OCR.Backend,
		OnnxRuntimeLibPath: cfg.OCR.OnnxRuntimeLibPath,
		DetModelPath:       cfg.OCR.DetModelPath,
		RecModelPath:       cfg.OCR.RecModelPath,
		DictPath:           cfg.OCR.DictPath,
		Language:           cfg.OCR.Language,
		Upscale:            cfg.OCR.Upscale,
	}.WithDefaults())
	if err != nil {
		log.Warn("OCR 不可用，果实识别已关闭: %v", err)
		engine = nil
	} else {
		defer engine.Close()
	}

	var notifier notify.Sender = notify.Nop{}
	var webhook *notify.Webhook
	if cfg.WebhookURL != "" {
		webhook = notify.NewWebhook(cfg.WebhookURL)
		notifier = webhook
	}

	counters, err := jr.LoadCounters(context.Background())
	if err != nil {
		log.Warn("读取累计计数失败: %v", err)
	}
	session := jr.StartSession()

	deps := scheduler.Deps{
		Source:   src,
		Locator:  cv.NewLocator(),
		Actuator: act,
		Matcher:  matcher,
		Notifier: notifier,
		Journal:  jr,
		Session:  session,
		Log:      log.Named("scheduler"),
	}
	if engine != nil {
		deps.OCR = engine
	}
	sched, err := scheduler.New(cfg, deps)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	sched.SetCounters(counters)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	notifyCtx, cancelNotify := context.WithCancel(context.Background())
	notifyDone := make(chan struct{})
	go func() {
		defer close(notifyDone)
		if webhook != nil {
			webhook.Run(notifyCtx)
		}
	}()

	bindings := hotkey.Bindings{
		hotkey.ActionToggle:   cfg.Hotkeys.Toggle,
		hotkey.ActionOverlay:  cfg.Hotkeys.Overlay,
		hotkey.ActionStop:     cfg.Hotkeys.Stop,
		hotkey.ActionMinimize: cfg.Hotkeys.Minimize,
	}
	listener, err := hotkey.NewListener(bindings, func(a hotkey.Action) {
		switch a {
		case hotkey.ActionToggle:
			sched.Toggle()
		case hotkey.ActionStop:
			log.Warn("紧急停止")
			sched.Stop()
		case hotkey.ActionOverlay:
			log.Info("钓鱼条 %s, 掉落 %s, 刷新 %s", cfg.BarRegion, cfg.DropRegion, cfg.SpawnRegion)
		case hotkey.ActionMinimize:
			log.Info("状态 %s, 计数 %+v", sched.State(), sched.Counters())
		}
	})
	if err != nil {
		log.Warn("热键不可用: %v", err)
	} else {
		go func() {
			if err := listener.Run(ctx); err != nil {
				log.Warn("热键监听退出: %v", err)
			}
		}()
	}

	if cfg.GameProcess != "" {
		probe := process.NewProbe(cfg.GameProcess)
		go probe.Watch(ctx, 5*time.Second, func(running bool) {
			if running {
				log.Info("检测到游戏进程 %s", cfg.GameProcess)
				if info, ok, err := probe.Check(ctx); err == nil && ok && !opts.dryRun {
					if err := process.Focus(info.PID); err != nil {
						log.Debug("%v", err)
					}
				}
				return
			}
			log.Warn("游戏进程 %s 未运行，暂停", cfg.GameProcess)
			sched.Pause()
			notifier.Send(notify.Event{Kind: notify.EventGameMissing, Session: session, At: time.Now(), Counters: sched.Counters()})
		})
	}

	if opts.autoStart {
		sched.Start()
	} else {
		log.Info("按 %s 开始/暂停，按 %s 紧急停止", cfg.Hotkeys.Toggle, cfg.Hotkeys.Stop)
	}

	runErr := sched.Run(ctx)
	final := sched.Counters()
	jr.EndSession(session, final)

	cancelNotify()
	<-notifyDone
	if webhook != nil && webhook.Dropped() > 0 {
		log.Warn("通知队列满，丢弃 %d 条", webhook.Dropped())
	}
	if st := jr.Stats(); st.Dropped > 0 {
		log.Warn("日志写入队列满，丢弃 %d 条", st.Dropped)
	}

	if runErr != nil {
		log.Error("%v", runErr)
		if errors.Is(runErr, scheduler.ErrReleaseFailed) {
			return 2
		}
		return 1
	}
	return 0
}

func saveSnapshot(log *logger.Logger, cfg *config.Settings, path string) int {
	src, err := screen.New(cfg.CaptureBackend)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	region := cfg.BarRegion
	if region.Empty() {
		bounds := screen.DisplayBounds()
		if len(bounds) == 0 {
			log.Error("未检测到显示器")
			return 1
		}
		region = auto.RegionFromRect(bounds[0])
	}
	img, err := src.Capture(region)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	if err := cv.WriteImage(path, img); err != nil {
		log.Error("%v", err)
		return 1
	}
	log.Info("已保存 %s 截图到 %s", region, path)
	return 0
}

func printHistory(log *logger.Logger, jr *journal.Journal, n int) int {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	entries, err := jr.Recent(ctx, n)
	if err != nil {
		log.Error("%v", err)
		return 1
	}
	counters, err := jr.LoadCounters(ctx)
	if err != nil {
		log.Error("%v", err)
		return 1
	}

	fmt.Printf("累计: 钓获 %d, 果实 %d, 购买 %d, 刷新 %d\n",
		counters.Catches, counters.Fruits, counters.Purchases, counters.Spawns)
	for _, e := range entries {
		line := fmt.Sprintf("%s  %-12s", e.At.Local().Format("2006-01-02 15:04:05"), e.Kind)
		if e.Entry != "" {
			line += fmt.Sprintf("  %s (%.2f)", e.Entry, e.Score)
		}
		fmt.Println(line)
	}
	return 0
}

func printBanner(cfg *config.Settings) {
	fmt.Println("========================================")
	fmt.Printf("  Reel Worker v%s\n", Version)
	fmt.Println("========================================")
	fmt.Printf("截图后端: %s, OCR: %s, tick: %dms\n", cfg.CaptureBackend, cfg.OCR.Backend, cfg.TickMs)
	for _, w := range cfg.Warnings() {
		fmt.Printf("[WARN] %s\n", w)
	}
	fmt.Println()
}

// printVersion 打印版本信息
func printVersion() {
	fmt.Printf("Reel Worker v%s\n", Version)
	fmt.Printf("Build Time: %s\n", BuildTime)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
