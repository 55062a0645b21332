package wkutil

import (
	"sync"

	"go.uber.org/atomic"
)

// WaitGroupWrapper waitGroup的包装结构体，记录存活的协程数
type WaitGroupWrapper struct {
	sync.WaitGroup
	Name  string
	count atomic.Int64
}

// NewWaitGroupWrapper NewWaitGroupWrapper
func NewWaitGroupWrapper(name string) *WaitGroupWrapper {
	return &WaitGroupWrapper{
		Name: name,
	}
}

// Wrap 在新协程中执行cb
func (w *WaitGroupWrapper) Wrap(cb func()) {
	w.Add(1)
	w.count.Inc()
	go func() {
		defer func() {
			w.count.Dec()
			w.Done()
		}()
		cb()
	}()
}

// GoroutineCount 协程数量
func (w *WaitGroupWrapper) GoroutineCount() int64 {
	return w.count.Load()
}
