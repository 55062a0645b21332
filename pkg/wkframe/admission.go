package wkframe

import (
	"go.uber.org/atomic"
	"golang.org/x/sync/semaphore"
)

// admission 连接许可，每个存活的连接持有一个许可
type admission struct {
	sem  *semaphore.Weighted
	max  int64
	held atomic.Int64
}

func newAdmission(max int) *admission {
	return &admission{
		sem: semaphore.NewWeighted(int64(max)),
		max: int64(max),
	}
}

// tryAcquire 不阻塞
func (a *admission) tryAcquire() bool {
	if !a.sem.TryAcquire(1) {
		return false
	}
	a.held.Inc()
	return true
}

func (a *admission) release() {
	a.held.Dec()
	a.sem.Release(1)
}

func (a *admission) inUse() int {
	return int(a.held.Load())
}
