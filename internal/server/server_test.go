package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"testing"
	"time"

	"github.com/WuKongIM/wkframe/internal/options"
	"github.com/WuKongIM/wkframe/pkg/wkframe/client"
	"github.com/WuKongIM/wkframe/pkg/wkframe/proto"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, monitorOn bool) *Server {
	t.Helper()
	vp := viper.New()
	vp.Set("mode", "test")
	vp.Set("rootDir", t.TempDir())
	vp.Set("addr", "tcp://127.0.0.1:0")
	vp.Set("maxConnections", 4)
	vp.Set("monitor.on", monitorOn)
	vp.Set("monitor.addr", "127.0.0.1:0")
	vp.Set("stats.interval", "50ms")

	opts := options.New()
	opts.ConfigureWithViper(vp)

	s := New(opts)
	require.NoError(t, s.Start())
	t.Cleanup(func() {
		_ = s.Stop()
	})
	return s
}

func getJSON(t *testing.T, url string, v interface{}) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func fetch(t *testing.T, url string) []byte {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return body
}

func TestServerEcho(t *testing.T) {
	s := newTestServer(t, false)

	cli, err := client.Dial(s.Addr().String(), client.WithTimeout(time.Second*5))
	require.NoError(t, err)
	defer cli.Close()

	h, payload, err := cli.RequestWithID(42, proto.Data, []byte("hello"))
	require.NoError(t, err)
	assert.Equal(t, proto.Ack, h.MsgType)
	assert.Equal(t, uint64(42), h.RequestID)
	assert.Equal(t, "ECHO: HELLO", string(payload))

	// stats定时任务会执行，不影响请求
	time.Sleep(time.Millisecond * 120)
	_, payload, err = cli.Request(proto.Data, []byte("again"))
	require.NoError(t, err)
	assert.Equal(t, "ECHO: AGAIN", string(payload))
}

func TestServerMonitorAPI(t *testing.T) {
	s := newTestServer(t, true)
	base := "http://" + s.monitorServer.Addr().String()

	cli, err := client.Dial(s.Addr().String(), client.WithTimeout(time.Second*5))
	require.NoError(t, err)
	defer cli.Close()
	_, _, err = cli.Request(proto.Data, []byte("hello"))
	require.NoError(t, err)

	var varz Varz
	require.Eventually(t, func() bool {
		varz = Varz{}
		getJSON(t, base+"/varz", &varz)
		return varz.OutMsgs == 1
	}, time.Second*2, time.Millisecond*20)
	assert.Equal(t, "wkframe", varz.ServerName)
	assert.Equal(t, 1, varz.Connections)
	assert.Equal(t, 4, varz.MaxConnections)
	assert.Equal(t, int64(1), varz.InMsgs)
	assert.Equal(t, int64(1), varz.OutMsgs)
	assert.Equal(t, 4, varz.Arena.InUse)
	assert.Equal(t, 3, varz.FreeContexts)
	assert.Equal(t, 3, varz.FreePermits)
	assert.Equal(t, "tcp://127.0.0.1:0", varz.Config.Addr)
	assert.Equal(t, 4096, varz.Config.BufferSize)
	assert.Equal(t, 16*1024*1024, varz.Config.MaxFrameSize)

	var connz Connz
	getJSON(t, base+"/connz?sort=inMsgDesc", &connz)
	require.Equal(t, 1, connz.Total)
	require.Len(t, connz.Connections, 1)
	assert.Equal(t, int64(1), connz.Connections[0].InMsgs)
	assert.Equal(t, "127.0.0.1", connz.Connections[0].IP)

	var one Connz
	getJSON(t, base+"/connz?id="+strconv.FormatInt(connz.Connections[0].ID, 10), &one)
	require.Len(t, one.Connections, 1)
	assert.Equal(t, connz.Connections[0].ID, one.Connections[0].ID)

	body := fetch(t, base+"/metrics")
	assert.Contains(t, string(body), "wukong_frame_conn_count 1")
	assert.Contains(t, string(body), `wukong_frame_upstream_frame_total{msg_type="Data"} 1`)
	assert.Contains(t, string(body), `wukong_frame_downstream_frame_total{msg_type="Ack"} 1`)
}

func TestServerStartFailsOnBusyPort(t *testing.T) {
	s := newTestServer(t, false)

	opts := options.New()
	opts.ConfigureWithViper(viper.New())
	opts.Addr = "tcp://" + s.Addr().String()
	opts.Monitor.On = false
	opts.Stats.Interval = 0

	s2 := New(opts)
	assert.Error(t, s2.Start())
}

func TestServerCloseConnAPI(t *testing.T) {
	s := newTestServer(t, true)
	base := "http://" + s.monitorServer.Addr().String()

	cli, err := client.Dial(s.Addr().String(), client.WithTimeout(time.Second*5))
	require.NoError(t, err)
	defer cli.Close()
	_, _, err = cli.Request(proto.Data, []byte("hello"))
	require.NoError(t, err)

	var connz Connz
	getJSON(t, base+"/connz", &connz)
	require.Len(t, connz.Connections, 1)
	id := strconv.FormatInt(connz.Connections[0].ID, 10)

	resp, err := http.Post(base+"/connz/close?id="+id, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// 连接被服务端关闭
	_, _, err = cli.ReadFrame()
	assert.Error(t, err)
	assert.Eventually(t, func() bool {
		var varz Varz
		getJSON(t, base+"/varz", &varz)
		return varz.Connections == 0 && varz.FreePermits == 4
	}, time.Second*2, time.Millisecond*20)

	// 已关闭或不存在的连接
	resp, err = http.Post(base+"/connz/close?id="+id, "application/json", nil)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, err = http.Get(base + "/connz?id=abc")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
