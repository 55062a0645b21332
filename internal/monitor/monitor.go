package monitor

import (
	"net/http"
)

// NewMonitor 监控未开启时返回空实现
func NewMonitor(on bool) IMonitor {
	if !on {
		return &monitorEmpty{}
	}
	return NewPrometheus()
}

type IMonitor interface {
	Start()
	Stop()
	Handler() http.Handler // 暴露监控接口

	ConnInc()                     // 连接数量递增
	ConnDec()                     // 连接数递减
	ConnRefusedInc(reason string) // 拒绝连接数递增
	ProtocolErrorInc()            // 解码失败数递增

	// ---------- 上行 ----------
	UpstreamTrafficAdd(v int)        // 上行数据流量
	UpstreamFrameInc(msgType string) // 上行帧

	// ---------- 下行 ----------
	DownstreamTrafficAdd(v int)        // 下行数据流量
	DownstreamFrameInc(msgType string) // 下行帧

	// ---------- 资源 ----------
	ArenaInUseSet(v int)
	FreeContextsSet(v int)
}

type monitorEmpty struct {
}

func (m *monitorEmpty) Start() {}
func (m *monitorEmpty) Stop()  {}
func (m *monitorEmpty) Handler() http.Handler {
	return http.NotFoundHandler()
}

func (m *monitorEmpty) ConnInc()                     {}
func (m *monitorEmpty) ConnDec()                     {}
func (m *monitorEmpty) ConnRefusedInc(reason string) {}
func (m *monitorEmpty) ProtocolErrorInc()            {}

// ---------- 上行 ----------
func (m *monitorEmpty) UpstreamTrafficAdd(v int)        {}
func (m *monitorEmpty) UpstreamFrameInc(msgType string) {}

// ---------- 下行 ----------
func (m *monitorEmpty) DownstreamTrafficAdd(v int)        {}
func (m *monitorEmpty) DownstreamFrameInc(msgType string) {}

func (m *monitorEmpty) ArenaInUseSet(v int)   {}
func (m *monitorEmpty) FreeContextsSet(v int) {}
