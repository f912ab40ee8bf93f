package common

import (
	"sync/atomic"
	"time"
)

// Clock 抽象毫秒时钟，核心代码不直接依赖 time.Now，便于测试注入
type Clock interface {
	NowMs() int64
	Now() time.Time
}

type systemClock struct{}

func (systemClock) NowMs() int64   { return time.Now().UnixMilli() }
func (systemClock) Now() time.Time { return time.Now() }

// SystemClock 真实系统时钟
func SystemClock() Clock { return systemClock{} }

// FakeClock 测试用时钟，手动推进；跨 goroutine 读写安全
type FakeClock struct {
	ms atomic.Int64
}

func NewFakeClock(startMs int64) *FakeClock {
	f := &FakeClock{}
	f.ms.Store(startMs)
	return f
}

func (f *FakeClock) NowMs() int64            { return f.ms.Load() }
func (f *FakeClock) Now() time.Time          { return time.UnixMilli(f.ms.Load()) }
func (f *FakeClock) Advance(d time.Duration) { f.ms.Add(d.Milliseconds()) }
func (f *FakeClock) Set(ms int64)            { f.ms.Store(ms) }
