package scheduler

import (
	"fmt"
	"time"

	"github.com/zoeyai/reelworker/pkg/match"
)

// Site 文字识别位置
type Site int

const (
	SiteDrop  Site = iota // "You caught X"
	SiteSpawn             // "X has spawned"
)

func (s Site) String() string {
	switch s {
	case SiteDrop:
		return "drop"
	case SiteSpawn:
		return "spawn"
	default:
		return fmt.Sprintf("site(%d)", int(s))
	}
}

// DecisionKind 派发结果
type DecisionKind int

const (
	DecisionIgnore DecisionKind = iota
	DecisionFruitDrop
	DecisionSpawn
)

// Decision 对一次匹配的处理决定
type Decision struct {
	Kind  DecisionKind
	Entry string
	Score float64
	Store bool // 是否执行存储序列
}

type lastHit struct {
	entry string
	at    time.Time
}

// Dispatcher 决定置信匹配触发哪些动作
// 同一位置同一条目在冷却时间内只派发一次，提示文字会在屏幕上停留数秒
type Dispatcher struct {
	cooldown time.Duration
	storage  bool
	last     map[Site]lastHit
}

// NewDispatcher 创建派发器
func NewDispatcher(cooldown time.Duration, storageEnabled bool) *Dispatcher {
	return &Dispatcher{
		cooldown: cooldown,
		storage:  storageEnabled,
		last:     make(map[Site]lastHit),
	}
}

// Decide 根据匹配结果给出决定
func (d *Dispatcher) Decide(site Site, c match.Candidate, now time.Time) Decision {
	if !c.Confident || c.Entry == "" {
		return Decision{Kind: DecisionIgnore}
	}
	if prev, ok := d.last[site]; ok && prev.entry == c.Entry && now.Sub(prev.at) < d.cooldown {
		return Decision{Kind: DecisionIgnore}
	}
	d.last[site] = lastHit{entry: c.Entry, at: now}

	switch site {
	case SiteDrop:
		return Decision{Kind: DecisionFruitDrop, Entry: c.Entry, Score: c.Score, Store: d.storage}
	case SiteSpawn:
		return Decision{Kind: DecisionSpawn, Entry: c.Entry, Score: c.Score}
	default:
		return Decision{Kind: DecisionIgnore}
	}
}
