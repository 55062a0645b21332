package wkframe

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/WuKongIM/wkframe/pkg/bufarena"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"github.com/WuKongIM/wkframe/pkg/wkutil"
	"github.com/panjf2000/ants/v2"
	perrors "github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

var (
	ErrEngineStarted = errors.New("engine already started")
	ErrEngineStopped = errors.New("engine stopped")
)

type stats struct {
	accepted       atomic.Int64
	refused        atomic.Int64
	inBytes        atomic.Int64
	outBytes       atomic.Int64
	inFrames       atomic.Int64
	outFrames      atomic.Int64
	protocolErrors atomic.Int64
}

// Stats 引擎统计快照
type Stats struct {
	Connections    int            `json:"connections"`     // 当前连接数
	MaxConnections int            `json:"max_connections"` // 最大连接数
	Accepted       int64          `json:"accepted"`        // 累计接纳的连接数
	Refused        int64          `json:"refused"`         // 累计拒绝的连接数
	InBytes        int64          `json:"in_bytes"`        // 流入的字节数量
	OutBytes       int64          `json:"out_bytes"`       // 流出的字节数量
	InFrames       int64          `json:"in_frames"`       // 流入的帧数
	OutFrames      int64          `json:"out_frames"`      // 流出的帧数
	ProtocolErrors int64          `json:"protocol_errors"` // 解码失败的帧数
	FreeContexts   int            `json:"free_contexts"`   // 空闲的上下文数
	FreePermits    int            `json:"free_permits"`    // 剩余的连接许可
	Arena          bufarena.Stats `json:"arena"`
}

type Engine struct {
	stats
	opts       *Options
	arena      *bufarena.Arena
	admission  *admission
	contexts   *contextPool
	connPool   *ants.Pool // 每个连接一个读循环
	acceptor   *acceptor
	dispatcher *dispatcher
	wg         *wkutil.WaitGroupWrapper

	conns     map[int64]*Conn
	connsLock sync.RWMutex
	connIDGen atomic.Int64

	mu      sync.Mutex
	started bool
	stopped atomic.Bool
	wklog.Log
}

func NewEngine(opts ...Option) *Engine {
	options := NewOptions()
	for _, opt := range opts {
		opt(options)
	}
	if options.Handler == nil {
		options.Handler = EchoHandler()
	}
	return &Engine{
		opts:       options,
		admission:  newAdmission(options.MaxConnections),
		dispatcher: newDispatcher(options.Handler),
		wg:         wkutil.NewWaitGroupWrapper("wkframe.Engine"),
		conns:      make(map[int64]*Conn, options.MaxConnections),
		Log:        wklog.NewWKLog("Engine"),
	}
}

// Start 分配arena和上下文池，绑定监听地址并开始accept
func (e *Engine) Start() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.stopped.Load() {
		return ErrEngineStopped
	}
	if e.started {
		return ErrEngineStarted
	}
	if e.opts.MaxConnections <= 0 || e.opts.BufferSize <= 0 {
		return fmt.Errorf("invalid engine options: maxConnections=%d bufferSize=%d", e.opts.MaxConnections, e.opts.BufferSize)
	}

	e.arena = bufarena.New(e.opts.arenaChunks(), e.opts.BufferSize)
	contexts, err := newContextPool(e.arena, e.opts.MaxConnections)
	if err != nil {
		return perrors.Wrap(err, "io context pool")
	}
	e.contexts = contexts

	// 非阻塞提交，池满即拒绝；许可释放时worker还未回到池中，容量留一倍余量
	e.connPool, err = ants.NewPool(e.opts.MaxConnections*2, ants.WithNonblocking(true), ants.WithPanicHandler(func(i interface{}) {
		e.Error("conn goroutine panic", zap.Any("err", i), zap.Stack("stack"))
	}))
	if err != nil {
		return perrors.Wrap(err, "conn pool")
	}

	ln, err := newListener(e.opts.Addr, e.opts.Backlog)
	if err != nil {
		e.connPool.Release()
		return perrors.Wrapf(err, "listen %s", e.opts.Addr)
	}
	e.acceptor = newAcceptor(e, ln)
	e.started = true

	e.wg.Wrap(e.acceptor.run)
	e.Info("engine started", zap.String("addr", ln.Addr().String()), zap.Int("backlog", e.opts.Backlog), zap.Int("maxConnections", e.opts.MaxConnections), zap.Int("bufferSize", e.opts.BufferSize))
	return nil
}

// Stop 关闭监听，已建立的连接不做等待，在下一次I/O时自行结束
func (e *Engine) Stop() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.started || e.stopped.Load() {
		return nil
	}
	e.stopped.Store(true)
	err := e.acceptor.close()
	e.wg.Wait()
	e.connPool.Release()
	e.Info("engine stopped")
	return err
}

// Addr 实际监听的地址，未启动时返回nil
func (e *Engine) Addr() net.Addr {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.acceptor == nil {
		return nil
	}
	return e.acceptor.addr()
}

func (e *Engine) Options() *Options {
	return e.opts
}

// admit 接纳新连接，全程不阻塞accept循环
func (e *Engine) admit(nc net.Conn) {
	if e.stopped.Load() {
		e.refuse(nc, RefuseStopped)
		return
	}
	if !e.admission.tryAcquire() {
		e.refuse(nc, RefuseMaxConnections)
		return
	}
	ctx, ok := e.contexts.get()
	if !ok {
		e.admission.release()
		e.refuse(nc, RefuseNoContext)
		return
	}

	conn := newConn(e.connIDGen.Inc(), nc, ctx, e)
	e.addConn(conn)

	if err := e.connPool.Submit(conn.serve); err != nil {
		e.Warn("submit conn failed", zap.Int64("connId", conn.id), zap.Error(err))
		conn.asm.release()
		e.removeConn(conn)
		e.contexts.put(ctx)
		e.admission.release()
		reason := RefusePoolOverload
		if errors.Is(err, ants.ErrPoolClosed) {
			reason = RefuseStopped
		}
		e.refuse(nc, reason)
		return
	}
	e.accepted.Inc()
}

func (e *Engine) refuse(nc net.Conn, reason RefuseReason) {
	remoteAddr := nc.RemoteAddr()
	_ = nc.Close()
	e.refused.Inc()
	e.Debug("conn refused", zap.String("remoteAddr", remoteAddr.String()), zap.String("reason", string(reason)))
	if e.opts.Event.OnRefuse != nil {
		e.opts.Event.OnRefuse(remoteAddr, reason)
	}
}

func (e *Engine) addConn(c *Conn) {
	e.connsLock.Lock()
	e.conns[c.id] = c
	e.connsLock.Unlock()
}

func (e *Engine) removeConn(c *Conn) {
	e.connsLock.Lock()
	delete(e.conns, c.id)
	e.connsLock.Unlock()
}

func (e *Engine) GetConn(id int64) *Conn {
	e.connsLock.RLock()
	defer e.connsLock.RUnlock()
	return e.conns[id]
}

func (e *Engine) GetAllConn() []*Conn {
	e.connsLock.RLock()
	defer e.connsLock.RUnlock()
	conns := make([]*Conn, 0, len(e.conns))
	for _, c := range e.conns {
		conns = append(conns, c)
	}
	return conns
}

func (e *Engine) ConnCount() int {
	e.connsLock.RLock()
	defer e.connsLock.RUnlock()
	return len(e.conns)
}

func (e *Engine) Stats() Stats {
	st := Stats{
		Connections:    e.ConnCount(),
		MaxConnections: e.opts.MaxConnections,
		Accepted:       e.accepted.Load(),
		Refused:        e.refused.Load(),
		InBytes:        e.inBytes.Load(),
		OutBytes:       e.outBytes.Load(),
		InFrames:       e.inFrames.Load(),
		OutFrames:      e.outFrames.Load(),
		ProtocolErrors: e.protocolErrors.Load(),
		FreePermits:    e.opts.MaxConnections - e.admission.inUse(),
	}
	e.mu.Lock()
	contexts, arena := e.contexts, e.arena
	e.mu.Unlock()
	if contexts != nil {
		st.FreeContexts = contexts.available()
	}
	if arena != nil {
		st.Arena = arena.Stats()
	}
	return st
}
