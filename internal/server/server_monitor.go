package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wkhttp"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"go.uber.org/zap"
)

type MonitorServer struct {
	s *Server
	r *wkhttp.WKHttp
	wklog.Log
	addr string
	srv  *http.Server
	ln   net.Listener
}

func NewMonitorServer(s *Server) *MonitorServer {
	m := &MonitorServer{
		addr: s.opts.Monitor.Addr,
		s:    s,
		Log:  wklog.NewWKLog("MonitorServer"),
	}
	m.r = wkhttp.NewWithLogger(wkhttp.LoggerWithWklog(m.Log))
	m.r.Use(wkhttp.CORSMiddleware())
	return m
}

func (m *MonitorServer) Start() error {
	m.setRoutes()

	ln, err := net.Listen("tcp", m.addr)
	if err != nil {
		return err
	}
	m.ln = ln
	m.srv = &http.Server{
		Handler:           m.r,
		ReadHeaderTimeout: time.Second * 10,
	}
	go func() {
		err := m.srv.Serve(ln) // listen and serve
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.Error("monitor server exited", zap.Error(err))
		}
	}()
	m.Info("MonitorServer started", zap.String("addr", ln.Addr().String()))
	return nil
}

func (m *MonitorServer) Stop() error {
	if m.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()
	return m.srv.Shutdown(ctx)
}

// Addr 实际监听地址
func (m *MonitorServer) Addr() net.Addr {
	if m.ln == nil {
		return nil
	}
	return m.ln.Addr()
}

func (m *MonitorServer) setRoutes() {
	m.r.GET("/health", func(c *wkhttp.Context) {
		c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	m.r.Handle(http.MethodGet, "/metrics", m.s.monitor.Handler())

	NewVarzAPI(m.s).Route(m.r)
	NewConnzAPI(m.s).Route(m.r)
}
