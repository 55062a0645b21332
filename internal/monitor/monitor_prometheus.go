package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "wukong"
	subsystem = "frame"
)

type Prometheus struct {
	registry *prometheus.Registry

	connGauge            prometheus.Gauge
	connRefusedCounter   *prometheus.CounterVec
	protocolErrorCounter prometheus.Counter

	// ---------------- 上行 ----------------
	upstreamTrafficCounter prometheus.Counter
	upstreamFrameCounter   *prometheus.CounterVec

	// ---------------- 下行 ----------------
	downstreamTrafficCounter prometheus.Counter
	downstreamFrameCounter   *prometheus.CounterVec

	// ---------------- 资源 ----------------
	arenaInUseGauge   prometheus.Gauge
	freeContextsGauge prometheus.Gauge
}

// NewPrometheus 每个实例使用独立的registry
func NewPrometheus() *Prometheus {
	p := &Prometheus{
		registry: prometheus.NewRegistry(),
		connGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conn_count",
			Help:      "当前连接数量",
		}),
		connRefusedCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "conn_refused_total",
			Help:      "被拒绝的连接数量",
		}, []string{"reason"}),
		protocolErrorCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "protocol_error_total",
			Help:      "解码失败的帧数量",
		}),
		upstreamTrafficCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_traffic_bytes_total",
			Help:      "上行流量",
		}),
		upstreamFrameCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "upstream_frame_total",
			Help:      "上行帧数量",
		}, []string{"msg_type"}),
		downstreamTrafficCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "downstream_traffic_bytes_total",
			Help:      "下行流量",
		}),
		downstreamFrameCounter: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "downstream_frame_total",
			Help:      "下行帧数量",
		}, []string{"msg_type"}),
		arenaInUseGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "arena_chunks_in_use",
			Help:      "已借出的arena chunk数量",
		}),
		freeContextsGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: subsystem,
			Name:      "free_io_contexts",
			Help:      "空闲的I/O上下文数量",
		}),
	}

	p.registry.MustRegister(
		p.connGauge,
		p.connRefusedCounter,
		p.protocolErrorCounter,
		p.upstreamTrafficCounter,
		p.upstreamFrameCounter,
		p.downstreamTrafficCounter,
		p.downstreamFrameCounter,
		p.arenaInUseGauge,
		p.freeContextsGauge,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return p
}

func (p *Prometheus) Start() {
}

func (p *Prometheus) Stop() {
}

func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

func (p *Prometheus) ConnInc() {
	p.connGauge.Inc()
}

func (p *Prometheus) ConnDec() {
	p.connGauge.Dec()
}

func (p *Prometheus) ConnRefusedInc(reason string) {
	p.connRefusedCounter.WithLabelValues(reason).Inc()
}

func (p *Prometheus) ProtocolErrorInc() {
	p.protocolErrorCounter.Inc()
}

func (p *Prometheus) UpstreamTrafficAdd(v int) {
	p.upstreamTrafficCounter.Add(float64(v))
}

func (p *Prometheus) UpstreamFrameInc(msgType string) {
	p.upstreamFrameCounter.WithLabelValues(msgType).Inc()
}

func (p *Prometheus) DownstreamTrafficAdd(v int) {
	p.downstreamTrafficCounter.Add(float64(v))
}

func (p *Prometheus) DownstreamFrameInc(msgType string) {
	p.downstreamFrameCounter.WithLabelValues(msgType).Inc()
}

func (p *Prometheus) ArenaInUseSet(v int) {
	p.arenaInUseGauge.Set(float64(v))
}

func (p *Prometheus) FreeContextsSet(v int) {
	p.freeContextsGauge.Set(float64(v))
}
