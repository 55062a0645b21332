package server

import (
	"fmt"
	"net"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/RussellLuo/timingwheel"
	"github.com/WuKongIM/wkframe/internal/monitor"
	"github.com/WuKongIM/wkframe/internal/options"
	"github.com/WuKongIM/wkframe/pkg/wkframe"
	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"github.com/WuKongIM/wkframe/pkg/wkutil"
	"github.com/WuKongIM/wkframe/version"
	"github.com/gin-gonic/gin"
	"github.com/judwhite/go-svc"
	"go.uber.org/zap"
)

type Server struct {
	opts          *options.Options         // 配置
	wklog.Log                              // 日志
	engine        *wkframe.Engine          // 帧协议引擎
	monitor       monitor.IMonitor         // Data monitoring
	monitorServer *MonitorServer           // 监控服务
	timingWheel   *timingwheel.TimingWheel // Time wheel delay task
	start         time.Time                // 服务开始时间
	timers        []*timingwheel.Timer
}

func New(opts *options.Options) *Server {
	s := &Server{
		opts:        opts,
		Log:         wklog.NewWKLog("Server"),
		timingWheel: timingwheel.NewTimingWheel(opts.TimingWheelTick, opts.TimingWheelSize),
		monitor:     monitor.NewMonitor(opts.Monitor.On),
	}
	gin.SetMode(opts.GinMode)

	s.engine = wkframe.NewEngine(
		wkframe.WithAddr(opts.Addr),
		wkframe.WithBacklog(opts.Backlog),
		wkframe.WithMaxConnections(opts.MaxConnections),
		wkframe.WithBufferSize(opts.BufferSize),
		wkframe.WithMaxFrameSize(opts.MaxFrameSize),
		wkframe.WithHandler(wkframe.EchoHandler()),
		wkframe.WithOnConnect(s.onConnect),
		wkframe.WithOnClose(s.onClose),
		wkframe.WithOnRefuse(s.onRefuse),
		wkframe.WithOnReadBytes(s.monitor.UpstreamTrafficAdd),
		wkframe.WithOnWriteBytes(s.monitor.DownstreamTrafficAdd),
		wkframe.WithOnFrame(func(h proto.Header) {
			s.monitor.UpstreamFrameInc(h.MsgType.String())
		}),
		wkframe.WithOnReply(func(msgType proto.MsgType) {
			s.monitor.DownstreamFrameInc(msgType.String())
		}),
		wkframe.WithOnProtocolError(func(conn *wkframe.Conn, err error) {
			s.monitor.ProtocolErrorInc()
		}),
	)
	if opts.Monitor.On {
		s.monitorServer = NewMonitorServer(s)
	}
	return s
}

func (s *Server) Init(env svc.Environment) error {
	if env.IsWindowsService() {
		dir := filepath.Dir(os.Args[0])
		return os.Chdir(dir)
	}
	return nil
}

func (s *Server) Start() error {
	s.start = time.Now()

	s.Info("wkframe is Starting...")
	s.Info(fmt.Sprintf("  Mode:  %s", s.opts.Mode))
	s.Info(fmt.Sprintf("  Version:  %s", version.Version))
	s.Info(fmt.Sprintf("  Git:  %s", fmt.Sprintf("%s-%s", version.CommitDate, version.Commit)))
	s.Info(fmt.Sprintf("  Go build:  %s", runtime.Version()))
	s.Info(fmt.Sprintf("  MaxConnections:  %d", s.opts.MaxConnections))
	s.Info(fmt.Sprintf("  BufferSize:  %d", s.opts.BufferSize))

	s.timingWheel.Start()

	if err := s.engine.Start(); err != nil {
		s.timingWheel.Stop()
		return err
	}
	s.Info(fmt.Sprintf("Listening  for TCP client on %s", s.engine.Addr()))

	if s.opts.Monitor.On {
		s.monitor.Start()
		if err := s.monitorServer.Start(); err != nil {
			_ = s.engine.Stop()
			s.timingWheel.Stop()
			return err
		}
		s.Info(fmt.Sprintf("Listening  for Monitor on %s", s.monitorServer.Addr()))
		s.timers = append(s.timers, s.Schedule(time.Second*5, s.updateResourceGauges))
	}
	if s.opts.Stats.Interval > 0 {
		s.timers = append(s.timers, s.Schedule(s.opts.Stats.Interval, s.logStats))
	}

	s.Info("Server is ready")
	return nil
}

func (s *Server) Stop() error {
	s.Info("Server is Stoping...")
	defer s.Info("Server is exited")

	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil

	err := s.engine.Stop()
	if s.opts.Monitor.On {
		if merr := s.monitorServer.Stop(); merr != nil {
			s.Warn("monitor server stop failed", zap.Error(merr))
		}
		s.monitor.Stop()
	}
	s.timingWheel.Stop()
	return err
}

// Schedule 周期任务
func (s *Server) Schedule(interval time.Duration, f func()) *timingwheel.Timer {
	return s.timingWheel.ScheduleFunc(&wkutil.EveryScheduler{
		Interval: interval,
	}, f)
}

// Addr tcp实际监听地址
func (s *Server) Addr() net.Addr {
	return s.engine.Addr()
}

func (s *Server) onConnect(conn *wkframe.Conn) {
	s.monitor.ConnInc()
	s.Debug("conn open", zap.Int64("connId", conn.ID()), zap.String("remoteAddr", conn.RemoteAddr().String()))
}

func (s *Server) onClose(conn *wkframe.Conn, err error) {
	s.monitor.ConnDec()
	s.Debug("conn close", zap.Int64("connId", conn.ID()), zap.Int64("inBytes", conn.InBytes()), zap.Int64("outBytes", conn.OutBytes()), zap.Error(err))
}

func (s *Server) onRefuse(remoteAddr net.Addr, reason wkframe.RefuseReason) {
	s.monitor.ConnRefusedInc(string(reason))
}

func (s *Server) updateResourceGauges() {
	st := s.engine.Stats()
	s.monitor.ArenaInUseSet(st.Arena.InUse)
	s.monitor.FreeContextsSet(st.FreeContexts)
}

func (s *Server) logStats() {
	st := s.engine.Stats()
	s.Info("stats",
		zap.Int("connections", st.Connections),
		zap.Int64("accepted", st.Accepted),
		zap.Int64("refused", st.Refused),
		zap.Int64("inFrames", st.InFrames),
		zap.Int64("outFrames", st.OutFrames),
		zap.Int64("inBytes", st.InBytes),
		zap.Int64("outBytes", st.OutBytes),
		zap.Int64("protocolErrors", st.ProtocolErrors),
		zap.Int("freeContexts", st.FreeContexts),
	)
}
