package wkframe

import (
	"fmt"

	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"go.uber.org/zap"
)

type dispatcher struct {
	handler Handler
	wklog.Log
}

func newDispatcher(handler Handler) *dispatcher {
	return &dispatcher{
		handler: handler,
		Log:     wklog.NewWKLog("Dispatcher"),
	}
}

// dispatch 调用handler，handler panic时返回Error响应，连接保持打开
func (d *dispatcher) dispatch(req *Request) (resp Response) {
	defer func() {
		if r := recover(); r != nil {
			d.Error("handler panic", zap.Int64("connId", req.Conn.ID()), zap.Uint64("requestId", req.Header.RequestID), zap.String("err", fmt.Sprint(r)), zap.Stack("stack"))
			resp = Response{
				MsgType:   proto.Error,
				ErrorCode: proto.ErrorCodeInternal,
				Payload:   []byte(proto.InternalErrorPayload),
			}
		}
	}()
	return d.handler.Handle(req)
}
