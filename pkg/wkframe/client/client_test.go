package client

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// serveOnce 接收一个连接，对每个请求调用reply
func serveOnce(t *testing.T, reply func(h proto.Header, payload []byte) []byte) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			var lenBuf [proto.LengthSize]byte
			if _, err := io.ReadFull(conn, lenBuf[:]); err != nil {
				return
			}
			body := make([]byte, binary.LittleEndian.Uint32(lenBuf[:]))
			if _, err := io.ReadFull(conn, body); err != nil {
				return
			}
			h, payload, err := proto.DecodeBody(body)
			if err != nil {
				return
			}
			if _, err := conn.Write(reply(h, payload)); err != nil {
				return
			}
		}
	}()
	return ln.Addr().String()
}

func TestRequest(t *testing.T) {
	addr := serveOnce(t, func(h proto.Header, payload []byte) []byte {
		return proto.Encode(h.RequestID, proto.Ack, append([]byte("re:"), payload...), 0)
	})
	cli, err := Dial(addr, WithTimeout(time.Second*5))
	require.NoError(t, err)
	defer cli.Close()

	h, payload, err := cli.RequestWithID(42, proto.Data, []byte("hi"))
	require.NoError(t, err)
	assert.Equal(t, uint64(42), h.RequestID)
	assert.Equal(t, proto.Ack, h.MsgType)
	assert.Equal(t, "re:hi", string(payload))

	// snowflake生成的id递增
	h1, _, err := cli.Request(proto.Data, nil)
	require.NoError(t, err)
	h2, _, err := cli.Request(proto.Data, nil)
	require.NoError(t, err)
	assert.Greater(t, h2.RequestID, h1.RequestID)
}

func TestRequestIDMismatch(t *testing.T) {
	addr := serveOnce(t, func(h proto.Header, payload []byte) []byte {
		return proto.Encode(h.RequestID+1, proto.Ack, nil, 0)
	})
	cli, err := Dial(addr, WithTimeout(time.Second*5))
	require.NoError(t, err)
	defer cli.Close()

	_, _, err = cli.RequestWithID(1, proto.Data, nil)
	assert.True(t, errors.Is(err, ErrRequestIDMismatch))
}

func TestDialInvalidNode(t *testing.T) {
	_, err := Dial("127.0.0.1:1", WithNodeID(1<<20))
	assert.Error(t, err)
}
