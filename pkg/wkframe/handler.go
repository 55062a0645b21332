package wkframe

import (
	"strings"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
)

// Request 一个解码后的请求
type Request struct {
	Conn    *Conn
	Header  proto.Header
	Payload []byte
}

// Response 响应会带上请求的RequestID写回
type Response struct {
	MsgType   proto.MsgType
	ErrorCode uint16
	Payload   []byte
}

type Handler interface {
	Handle(req *Request) Response
}

type HandlerFunc func(req *Request) Response

func (f HandlerFunc) Handle(req *Request) Response {
	return f(req)
}

// EchoHandler 回显处理器，"hello" 响应为 Ack "ECHO: HELLO"
func EchoHandler() Handler {
	return HandlerFunc(func(req *Request) Response {
		return Response{
			MsgType: proto.Ack,
			Payload: []byte(strings.ToUpper("Echo: " + string(req.Payload))),
		}
	})
}
