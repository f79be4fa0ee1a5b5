package scheduler

import (
	"sync"
	"sync/atomic"

	"github.com/zoeyai/reelworker/pkg/auto"
	"github.com/zoeyai/reelworker/pkg/auto/input"
)

// guardedActuator 保证 ReleaseAll 只执行一次，之后拒绝一切输入
type guardedActuator struct {
	inner    input.Actuator
	released atomic.Bool
	once     sync.Once
	err      error
}

func newGuardedActuator(inner input.Actuator) *guardedActuator {
	return &guardedActuator{inner: inner}
}

func (g *guardedActuator) Press(key string) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.Press(key)
}

func (g *guardedActuator) Release(key string) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.Release(key)
}

func (g *guardedActuator) KeyTap(key string) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.KeyTap(key)
}

func (g *guardedActuator) Click(p auto.Point) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.Click(p)
}

func (g *guardedActuator) MoveTo(p auto.Point) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.MoveTo(p)
}

func (g *guardedActuator) Type(text string) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.Type(text)
}

func (g *guardedActuator) Scroll(amount int) error {
	if g.released.Load() {
		return input.ErrReleased
	}
	return g.inner.Scroll(amount)
}

// ReleaseAll 只调用一次底层 ReleaseAll，重复调用返回同一结果
func (g *guardedActuator) ReleaseAll() error {
	g.once.Do(func() {
		g.released.Store(true)
		g.err = g.inner.ReleaseAll()
	})
	return g.err
}
