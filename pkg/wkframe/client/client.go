// Package client is a blocking request/response client for the frame protocol.
package client

import (
	"encoding/binary"
	"io"
	"net"
	"sync"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

var (
	ErrRequestIDMismatch = errors.New("response request id mismatch")
)

type Options struct {
	Timeout time.Duration // 单次请求超时，0为不超时
	NodeID  int64         // snowflake节点ID
	// MaxFrameSize 读取响应时允许的最大长度前缀，0为不限制
	MaxFrameSize int
}

func NewOptions() *Options {
	return &Options{
		Timeout:      time.Second * 10,
		NodeID:       1,
		MaxFrameSize: 16 * 1024 * 1024,
	}
}

type Option func(opts *Options)

func WithTimeout(v time.Duration) Option {
	return func(opts *Options) {
		opts.Timeout = v
	}
}

func WithNodeID(v int64) Option {
	return func(opts *Options) {
		opts.NodeID = v
	}
}

// Client 严格按请求/响应轮流使用连接
type Client struct {
	conn net.Conn
	opts *Options
	node *snowflake.Node
	mu   sync.Mutex
}

func Dial(addr string, opts ...Option) (*Client, error) {
	options := NewOptions()
	for _, opt := range opts {
		opt(options)
	}
	node, err := snowflake.NewNode(options.NodeID)
	if err != nil {
		return nil, errors.Wrap(err, "snowflake node")
	}
	conn, err := net.DialTimeout("tcp", addr, options.Timeout)
	if err != nil {
		return nil, errors.Wrapf(err, "dial %s", addr)
	}
	return &Client{
		conn: conn,
		opts: options,
		node: node,
	}, nil
}

// Request 发送一帧并等待对应的响应
func (c *Client) Request(msgType proto.MsgType, payload []byte) (proto.Header, []byte, error) {
	return c.RequestWithID(uint64(c.node.Generate().Int64()), msgType, payload)
}

func (c *Client) RequestWithID(requestID uint64, msgType proto.MsgType, payload []byte) (proto.Header, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.setDeadline()
	if _, err := c.conn.Write(proto.Encode(requestID, msgType, payload, 0)); err != nil {
		return proto.Header{}, nil, errors.Wrap(err, "write request")
	}
	h, resp, err := c.readFrame()
	if err != nil {
		return h, nil, err
	}
	if h.RequestID != requestID {
		return h, resp, errors.Wrapf(ErrRequestIDMismatch, "want %d got %d", requestID, h.RequestID)
	}
	return h, resp, nil
}

// WriteRaw 原样写出字节，用于发送任意切分或畸形的数据
func (c *Client) WriteRaw(b []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDeadline()
	_, err := c.conn.Write(b)
	return err
}

// ReadFrame 读取一个完整的响应帧
func (c *Client) ReadFrame() (proto.Header, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.setDeadline()
	return c.readFrame()
}

func (c *Client) readFrame() (proto.Header, []byte, error) {
	var lenBuf [proto.LengthSize]byte
	if _, err := io.ReadFull(c.conn, lenBuf[:]); err != nil {
		return proto.Header{}, nil, err
	}
	length := binary.LittleEndian.Uint32(lenBuf[:])
	if c.opts.MaxFrameSize > 0 && uint64(length) > uint64(c.opts.MaxFrameSize) {
		return proto.Header{}, nil, errors.Errorf("response length %d exceeds %d", length, c.opts.MaxFrameSize)
	}
	full := make([]byte, proto.LengthSize+int(length))
	copy(full, lenBuf[:])
	if _, err := io.ReadFull(c.conn, full[proto.LengthSize:]); err != nil {
		return proto.Header{}, nil, err
	}
	return proto.DecodeFrame(full)
}

func (c *Client) setDeadline() {
	if c.opts.Timeout > 0 {
		_ = c.conn.SetDeadline(time.Now().Add(c.opts.Timeout))
	}
}

func (c *Client) LocalAddr() net.Addr {
	return c.conn.LocalAddr()
}

func (c *Client) Close() error {
	return c.conn.Close()
}
