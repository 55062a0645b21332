package wkframe

import (
	"sync"

	"github.com/WuKongIM/wkframe/pkg/bufarena"
	"github.com/pkg/errors"
)

// ioContext 连接的I/O上下文，创建时绑定一个arena chunk，之后一直复用
type ioContext struct {
	id    int
	chunk bufarena.Chunk
	conn  *Conn
}

type contextPool struct {
	mu    sync.Mutex
	free  []*ioContext
	total int
}

// newContextPool 预先分配size个上下文，arena不足时返回错误
func newContextPool(arena *bufarena.Arena, size int) (*contextPool, error) {
	p := &contextPool{
		free:  make([]*ioContext, 0, size),
		total: size,
	}
	for i := 0; i < size; i++ {
		chunk, err := arena.Acquire()
		if err != nil {
			return nil, errors.Wrapf(err, "preallocate io context %d of %d", i, size)
		}
		p.free = append(p.free, &ioContext{id: i, chunk: chunk})
	}
	return p, nil
}

func (p *contextPool) get() (*ioContext, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := len(p.free)
	if n == 0 {
		return nil, false
	}
	ctx := p.free[n-1]
	p.free[n-1] = nil
	p.free = p.free[:n-1]
	return ctx, true
}

func (p *contextPool) put(ctx *ioContext) {
	ctx.conn = nil
	p.mu.Lock()
	p.free = append(p.free, ctx)
	p.mu.Unlock()
}

func (p *contextPool) available() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.free)
}
