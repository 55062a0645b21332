package wkframe

import (
	"net"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
)

// RefuseReason 连接被拒绝的原因
type RefuseReason string

const (
	// RefuseMaxConnections 连接许可已用完
	RefuseMaxConnections RefuseReason = "max_connections"
	// RefuseNoContext 上下文池为空
	RefuseNoContext RefuseReason = "no_context"
	// RefusePoolOverload 读循环的goroutine池已满
	RefusePoolOverload RefuseReason = "pool_overload"
	// RefuseStopped 引擎已停止
	RefuseStopped RefuseReason = "stopped"
)

type Options struct {
	// Addr is the listen addr  example: tcp://0.0.0.0:9000
	Addr string
	// Backlog is the listen backlog passed to listen(2)
	Backlog int
	// MaxConnections bounds the number of live connections and the size of the context pool
	MaxConnections int
	// BufferSize is the size of the arena chunk bound to each context
	BufferSize int
	// ArenaChunks is the number of chunks in the buffer arena, 0 means MaxConnections
	ArenaChunks int
	// MaxFrameSize is the largest accepted length prefix, 0 means unlimited
	MaxFrameSize int
	// Handler handles every decoded message
	Handler Handler

	Event struct {
		OnConnect       func(conn *Conn)                               // 连接建立
		OnClose         func(conn *Conn, err error)                    // 连接关闭
		OnRefuse        func(remoteAddr net.Addr, reason RefuseReason) // 连接被拒绝
		OnReadBytes     func(n int)                                    // 读到的字节大小
		OnWriteBytes    func(n int)                                    // 写出字节大小
		OnFrame         func(h proto.Header)                           // 收到一个完整的帧
		OnReply         func(msgType proto.MsgType)                    // 写出一个响应帧
		OnProtocolError func(conn *Conn, err error)                    // 帧解码失败
	}
}

func NewOptions() *Options {
	return &Options{
		Addr:           "tcp://0.0.0.0:9000",
		Backlog:        1024,
		MaxConnections: 2000,
		BufferSize:     4096,
		MaxFrameSize:   16 * 1024 * 1024,
		Handler:        EchoHandler(),
	}
}

type Option func(opts *Options)

// WithAddr set listen addr
func WithAddr(v string) Option {
	return func(opts *Options) {
		opts.Addr = v
	}
}

// WithBacklog set listen backlog
func WithBacklog(v int) Option {
	return func(opts *Options) {
		opts.Backlog = v
	}
}

// WithMaxConnections set the connection limit
func WithMaxConnections(v int) Option {
	return func(opts *Options) {
		opts.MaxConnections = v
	}
}

// WithBufferSize set the per connection receive chunk size
func WithBufferSize(v int) Option {
	return func(opts *Options) {
		opts.BufferSize = v
	}
}

// WithArenaChunks set the arena chunk count
func WithArenaChunks(v int) Option {
	return func(opts *Options) {
		opts.ArenaChunks = v
	}
}

// WithMaxFrameSize set the largest accepted frame
func WithMaxFrameSize(v int) Option {
	return func(opts *Options) {
		opts.MaxFrameSize = v
	}
}

// WithHandler set the message handler
func WithHandler(h Handler) Option {
	return func(opts *Options) {
		opts.Handler = h
	}
}

func WithOnConnect(f func(conn *Conn)) Option {
	return func(opts *Options) {
		opts.Event.OnConnect = f
	}
}

func WithOnClose(f func(conn *Conn, err error)) Option {
	return func(opts *Options) {
		opts.Event.OnClose = f
	}
}

func WithOnRefuse(f func(remoteAddr net.Addr, reason RefuseReason)) Option {
	return func(opts *Options) {
		opts.Event.OnRefuse = f
	}
}

func WithOnReadBytes(f func(n int)) Option {
	return func(opts *Options) {
		opts.Event.OnReadBytes = f
	}
}

func WithOnWriteBytes(f func(n int)) Option {
	return func(opts *Options) {
		opts.Event.OnWriteBytes = f
	}
}

func WithOnFrame(f func(h proto.Header)) Option {
	return func(opts *Options) {
		opts.Event.OnFrame = f
	}
}

func WithOnReply(f func(msgType proto.MsgType)) Option {
	return func(opts *Options) {
		opts.Event.OnReply = f
	}
}

func WithOnProtocolError(f func(conn *Conn, err error)) Option {
	return func(opts *Options) {
		opts.Event.OnProtocolError = f
	}
}

func (o *Options) arenaChunks() int {
	if o.ArenaChunks > 0 {
		return o.ArenaChunks
	}
	return o.MaxConnections
}
