package wkframe

import (
	"errors"
	"net"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wklog"
	"go.uber.org/zap"
)

const (
	minAcceptDelay = 5 * time.Millisecond
	maxAcceptDelay = time.Second
)

type acceptor struct {
	eg *Engine
	ln net.Listener
	wklog.Log
}

func newAcceptor(eg *Engine, ln net.Listener) *acceptor {
	return &acceptor{
		eg:  eg,
		ln:  ln,
		Log: wklog.NewWKLog("Acceptor"),
	}
}

func (a *acceptor) run() {
	var delay time.Duration
	for {
		nc, err := a.ln.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) {
				return
			}
			if delay == 0 {
				delay = minAcceptDelay
			} else {
				delay *= 2
			}
			if delay > maxAcceptDelay {
				delay = maxAcceptDelay
			}
			a.Warn("accept failed, retrying", zap.Error(err), zap.Duration("delay", delay))
			time.Sleep(delay)
			continue
		}
		delay = 0
		a.eg.admit(nc)
	}
}

func (a *acceptor) addr() net.Addr {
	return a.ln.Addr()
}

func (a *acceptor) close() error {
	return a.ln.Close()
}
