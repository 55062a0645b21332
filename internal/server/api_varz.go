package server

import (
	"net/http"
	"runtime"
	"time"

	"github.com/WuKongIM/wkframe/pkg/bufarena"
	"github.com/WuKongIM/wkframe/pkg/wkhttp"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"github.com/WuKongIM/wkframe/pkg/wkutil"
	"github.com/WuKongIM/wkframe/version"
)

type VarzAPI struct {
	wklog.Log
	s *Server
}

func NewVarzAPI(s *Server) *VarzAPI {

	return &VarzAPI{
		s:   s,
		Log: wklog.NewWKLog("VarzAPI"),
	}
}

func (v *VarzAPI) Route(r *wkhttp.WKHttp) {
	r.GET("/varz", v.HandleVarz) // 获取系统变量
}

func (v *VarzAPI) HandleVarz(c *wkhttp.Context) {
	c.JSON(http.StatusOK, CreateVarz(v.s))
}

func CreateVarz(s *Server) *Varz {
	st := s.engine.Stats()
	eopts := s.engine.Options()
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return &Varz{
		ServerName:     "wkframe",
		Version:        version.Version,
		Commit:         version.Commit,
		CommitDate:     version.CommitDate,
		TreeState:      version.TreeState,
		Uptime:         wkutil.Uptime(time.Since(s.start)),
		Goroutine:      runtime.NumGoroutine(),
		Mem:            int64(mem.Sys),
		TCPAddr:        addrString(s.engine.Addr()),
		Connections:    st.Connections,
		MaxConnections: st.MaxConnections,
		Accepted:       st.Accepted,
		Refused:        st.Refused,
		InMsgs:         st.InFrames,
		OutMsgs:        st.OutFrames,
		InBytes:        st.InBytes,
		OutBytes:       st.OutBytes,
		ProtocolErrors: st.ProtocolErrors,
		FreeContexts:   st.FreeContexts,
		FreePermits:    st.FreePermits,
		Arena:          st.Arena,
		Config: VarzConfig{
			Addr:         eopts.Addr,
			Backlog:      eopts.Backlog,
			BufferSize:   eopts.BufferSize,
			MaxFrameSize: eopts.MaxFrameSize,
		},
	}
}

type Varz struct {
	ServerName     string         `json:"server_name"`     // 服务端名称
	Version        string         `json:"version"`         // 服务端版本
	Commit         string         `json:"commit"`          // git commit id
	CommitDate     string         `json:"commit_date"`     // git commit date
	TreeState      string         `json:"tree_state"`      // git tree state
	Uptime         string         `json:"uptime"`          // 上线时间
	Goroutine      int            `json:"goroutine"`       // goroutine数量
	Mem            int64          `json:"mem"`             // 从系统申请的内存
	TCPAddr        string         `json:"tcp_addr"`        // tcp地址
	Connections    int            `json:"connections"`     // 当前连接数量
	MaxConnections int            `json:"max_connections"` // 最大连接数量
	Accepted       int64          `json:"accepted"`        // 累计接纳的连接数
	Refused        int64          `json:"refused"`         // 累计拒绝的连接数
	InMsgs         int64          `json:"in_msgs"`         // 流入的帧数
	OutMsgs        int64          `json:"out_msgs"`        // 流出的帧数
	InBytes        int64          `json:"in_bytes"`        // 流入的字节数量
	OutBytes       int64          `json:"out_bytes"`       // 流出的字节数量
	ProtocolErrors int64          `json:"protocol_errors"` // 解码失败的帧数
	FreeContexts   int            `json:"free_contexts"`   // 空闲的I/O上下文
	FreePermits    int            `json:"free_permits"`    // 剩余的连接许可
	Arena          bufarena.Stats `json:"arena"`           // 缓冲区使用情况
	Config         VarzConfig     `json:"config"`          // 引擎配置
}

type VarzConfig struct {
	Addr         string `json:"addr"`           // 配置的监听地址
	Backlog      int    `json:"backlog"`        // listen backlog
	BufferSize   int    `json:"buffer_size"`    // 每个连接的接收缓冲区大小
	MaxFrameSize int    `json:"max_frame_size"` // 单帧最大长度，0为不限制
}
