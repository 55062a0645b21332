package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCounters(t *testing.T) {
	p := NewPrometheus()

	p.ConnInc()
	p.ConnInc()
	p.ConnDec()
	p.ConnRefusedInc("max_connections")
	p.ConnRefusedInc("max_connections")
	p.ProtocolErrorInc()
	p.UpstreamTrafficAdd(25)
	p.UpstreamFrameInc("Data")
	p.DownstreamTrafficAdd(35)
	p.DownstreamFrameInc("Ack")
	p.ArenaInUseSet(2000)
	p.FreeContextsSet(1999)

	assert.Equal(t, float64(1), testutil.ToFloat64(p.connGauge))
	assert.Equal(t, float64(2), testutil.ToFloat64(p.connRefusedCounter.WithLabelValues("max_connections")))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.protocolErrorCounter))
	assert.Equal(t, float64(25), testutil.ToFloat64(p.upstreamTrafficCounter))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.upstreamFrameCounter.WithLabelValues("Data")))
	assert.Equal(t, float64(35), testutil.ToFloat64(p.downstreamTrafficCounter))
	assert.Equal(t, float64(1), testutil.ToFloat64(p.downstreamFrameCounter.WithLabelValues("Ack")))
	assert.Equal(t, float64(2000), testutil.ToFloat64(p.arenaInUseGauge))
	assert.Equal(t, float64(1999), testutil.ToFloat64(p.freeContextsGauge))
}

func TestPrometheusHandler(t *testing.T) {
	// 两个实例互不冲突
	p1 := NewPrometheus()
	p2 := NewPrometheus()
	p1.ConnInc()
	p2.ConnInc()

	w := httptest.NewRecorder()
	p1.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "wukong_frame_conn_count 1")
}

func TestEmptyMonitor(t *testing.T) {
	m := NewMonitor(false)
	m.ConnInc()
	m.UpstreamFrameInc("Data")

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	_, ok := NewMonitor(true).(*Prometheus)
	assert.True(t, ok)
}
