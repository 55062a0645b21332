package wkframe

import (
	"errors"
	"io"
	"net"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/atomic"
	"go.uber.org/zap"
)

// Conn 一个已被接纳的连接，由一个goroutine独占读写
type Conn struct {
	id          int64
	nc          net.Conn
	ctx         *ioContext
	eg          *Engine
	asm         frameAssembler
	connectedAt time.Time

	released  atomic.Bool
	inBytes   atomic.Int64
	outBytes  atomic.Int64
	inFrames  atomic.Int64
	outFrames atomic.Int64
}

func newConn(id int64, nc net.Conn, ctx *ioContext, eg *Engine) *Conn {
	c := &Conn{
		id:          id,
		nc:          nc,
		ctx:         ctx,
		eg:          eg,
		asm:         newFrameAssembler(eg.opts.MaxFrameSize),
		connectedAt: time.Now(),
	}
	ctx.conn = c
	return c
}

func (c *Conn) ID() int64 {
	if c == nil {
		return 0
	}
	return c.id
}

func (c *Conn) RemoteAddr() net.Addr {
	return c.nc.RemoteAddr()
}

func (c *Conn) LocalAddr() net.Addr {
	return c.nc.LocalAddr()
}

func (c *Conn) ConnectedAt() time.Time {
	return c.connectedAt
}

func (c *Conn) InBytes() int64 {
	return c.inBytes.Load()
}

func (c *Conn) OutBytes() int64 {
	return c.outBytes.Load()
}

func (c *Conn) InFrames() int64 {
	return c.inFrames.Load()
}

func (c *Conn) OutFrames() int64 {
	return c.outFrames.Load()
}

// Close 关闭底层socket，连接的回收由读循环完成
func (c *Conn) Close() error {
	return c.nc.Close()
}

// serve 读循环：读 -> 组帧 -> 分发 -> 写 -> 读，直到出错或对端关闭
func (c *Conn) serve() {
	var err error
	defer func() {
		c.release(err)
	}()

	if c.eg.opts.Event.OnConnect != nil {
		c.eg.opts.Event.OnConnect(c)
	}

	buf := c.ctx.chunk.Bytes()
	for {
		n, rerr := c.nc.Read(buf)
		if n > 0 {
			c.inBytes.Add(int64(n))
			c.eg.stats.inBytes.Add(int64(n))
			if c.eg.opts.Event.OnReadBytes != nil {
				c.eg.opts.Event.OnReadBytes(n)
			}
			if err = c.asm.feed(buf[:n], c.onFrame); err != nil {
				return
			}
		}
		if rerr != nil {
			if !errors.Is(rerr, io.EOF) {
				err = rerr
			}
			return
		}
		if n == 0 {
			return
		}
	}
}

func (c *Conn) onFrame(body []byte) error {
	c.inFrames.Inc()
	c.eg.stats.inFrames.Inc()

	h, payload, err := proto.DecodeBody(body)
	if err != nil {
		c.eg.stats.protocolErrors.Inc()
		c.eg.Debug("decode frame failed", zap.Int64("connId", c.id), zap.Int("bodyLen", len(body)), zap.Error(err))
		if c.eg.opts.Event.OnProtocolError != nil {
			c.eg.opts.Event.OnProtocolError(c, err)
		}
		// 帧头可读时h里带有requestId，否则为0
		return c.write(h.RequestID, proto.Error, []byte(proto.DecodeErrorPayload), proto.ErrorCodeDecode)
	}
	if c.eg.opts.Event.OnFrame != nil {
		c.eg.opts.Event.OnFrame(h)
	}

	resp := c.eg.dispatcher.dispatch(&Request{Conn: c, Header: h, Payload: payload})
	return c.write(h.RequestID, resp.MsgType, resp.Payload, resp.ErrorCode)
}

func (c *Conn) write(requestID uint64, msgType proto.MsgType, payload []byte, errorCode uint16) error {
	bb := bytebufferpool.Get()
	defer bytebufferpool.Put(bb)
	bb.B = proto.AppendFrame(bb.B[:0], requestID, msgType, payload, errorCode)

	n, err := c.nc.Write(bb.B)
	if n > 0 {
		c.outBytes.Add(int64(n))
		c.eg.stats.outBytes.Add(int64(n))
		if c.eg.opts.Event.OnWriteBytes != nil {
			c.eg.opts.Event.OnWriteBytes(n)
		}
	}
	if err != nil {
		return err
	}
	if c.eg.opts.Event.OnReply != nil {
		c.eg.opts.Event.OnReply(msgType)
	}
	c.outFrames.Inc()
	c.eg.stats.outFrames.Inc()
	return nil
}

// release 关闭socket并归还连接占用的全部资源，只执行一次
func (c *Conn) release(err error) {
	if !c.released.CompareAndSwap(false, true) {
		return
	}
	if tc, ok := c.nc.(*net.TCPConn); ok {
		_ = tc.CloseRead()
		_ = tc.CloseWrite()
	}
	_ = c.nc.Close()

	c.asm.release()
	c.eg.removeConn(c)

	if err != nil {
		c.eg.Debug("conn closed", zap.Int64("connId", c.id), zap.Error(err))
	}
	if c.eg.opts.Event.OnClose != nil {
		c.eg.opts.Event.OnClose(c, err)
	}

	// 许可最后归还，拿到许可时上下文一定已空闲
	c.eg.contexts.put(c.ctx)
	c.eg.admission.release()
}
