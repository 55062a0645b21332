package server

import (
	"errors"
	"net"
	"net/http"
	"sort"
	"strconv"
	"time"

	"github.com/WuKongIM/wkframe/pkg/wkframe"
	"github.com/WuKongIM/wkframe/pkg/wkhttp"
	"github.com/WuKongIM/wkframe/pkg/wklog"
	"github.com/WuKongIM/wkframe/pkg/wkutil"
	"go.uber.org/zap"
)

type SortOpt string

const (
	ByID          SortOpt = "id"
	ByIDDesc      SortOpt = "idDesc"
	ByInMsg       SortOpt = "inMsg"
	ByInMsgDesc   SortOpt = "inMsgDesc"
	ByOutMsg      SortOpt = "outMsg"
	ByOutMsgDesc  SortOpt = "outMsgDesc"
	ByInBytes     SortOpt = "inBytes"
	ByInBytesDesc SortOpt = "inBytesDesc"
	ByUptime      SortOpt = "uptime"
	ByUptimeDesc  SortOpt = "uptimeDesc"
)

type ConnzAPI struct {
	wklog.Log
	s *Server
}

func NewConnzAPI(s *Server) *ConnzAPI {
	return &ConnzAPI{
		Log: wklog.NewWKLog("ConnzAPI"),
		s:   s,
	}
}

func (co *ConnzAPI) Route(r *wkhttp.WKHttp) {
	r.GET("/connz", co.HandleConnz)
	r.POST("/connz/close", co.HandleClose) // 强制关闭连接
}

func (co *ConnzAPI) getConn(c *wkhttp.Context) (*wkframe.Conn, error) {
	id, err := strconv.ParseInt(c.Query("id"), 10, 64)
	if err != nil {
		return nil, errors.New("invalid conn id")
	}
	conn := co.s.engine.GetConn(id)
	if conn == nil {
		return nil, errors.New("conn not found")
	}
	return conn, nil
}

func (co *ConnzAPI) HandleClose(c *wkhttp.Context) {
	conn, err := co.getConn(c)
	if err != nil {
		c.ResponseError(err)
		return
	}
	co.Info("close conn by api", zap.Int64("connId", conn.ID()), zap.String("remoteAddr", addrString(conn.RemoteAddr())))
	if err := conn.Close(); err != nil {
		co.Warn("close conn failed", zap.Int64("connId", conn.ID()), zap.Error(err))
	}
	c.ResponseOK()
}

func (co *ConnzAPI) HandleConnz(c *wkhttp.Context) {
	if c.Query("id") != "" {
		conn, err := co.getConn(c)
		if err != nil {
			c.ResponseError(err)
			return
		}
		c.JSON(http.StatusOK, Connz{
			Connections: []*ConnInfo{newConnInfo(conn, time.Now())},
			Now:         time.Now(),
			Total:       1,
			Limit:       1,
		})
		return
	}
	sortStr := c.Query("sort")
	offset, _ := strconv.Atoi(c.Query("offset"))
	limit, _ := strconv.Atoi(c.Query("limit"))
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = 20
	}
	sortOpt := ByID
	if sortStr != "" {
		sortOpt = SortOpt(sortStr)
	}

	conns := co.s.engine.GetAllConn()
	total := len(conns)
	resultConns := pageConns(sortConns(conns, sortOpt), offset, limit)

	now := time.Now()
	connInfos := make([]*ConnInfo, 0, len(resultConns))
	for _, conn := range resultConns {
		connInfos = append(connInfos, newConnInfo(conn, now))
	}

	c.JSON(http.StatusOK, Connz{
		Connections: connInfos,
		Now:         now,
		Total:       total,
		Offset:      offset,
		Limit:       limit,
	})
}

func sortConns(conns []*wkframe.Conn, sortOpt SortOpt) []*wkframe.Conn {
	var less func(a, b *wkframe.Conn) bool
	switch sortOpt {
	case ByIDDesc:
		less = func(a, b *wkframe.Conn) bool { return a.ID() > b.ID() }
	case ByInMsg:
		less = func(a, b *wkframe.Conn) bool { return a.InFrames() < b.InFrames() }
	case ByInMsgDesc:
		less = func(a, b *wkframe.Conn) bool { return a.InFrames() > b.InFrames() }
	case ByOutMsg:
		less = func(a, b *wkframe.Conn) bool { return a.OutFrames() < b.OutFrames() }
	case ByOutMsgDesc:
		less = func(a, b *wkframe.Conn) bool { return a.OutFrames() > b.OutFrames() }
	case ByInBytes:
		less = func(a, b *wkframe.Conn) bool { return a.InBytes() < b.InBytes() }
	case ByInBytesDesc:
		less = func(a, b *wkframe.Conn) bool { return a.InBytes() > b.InBytes() }
	case ByUptime:
		// 在线时间短的在前
		less = func(a, b *wkframe.Conn) bool { return a.ConnectedAt().After(b.ConnectedAt()) }
	case ByUptimeDesc:
		less = func(a, b *wkframe.Conn) bool { return a.ConnectedAt().Before(b.ConnectedAt()) }
	default:
		less = func(a, b *wkframe.Conn) bool { return a.ID() < b.ID() }
	}
	sort.Slice(conns, func(i, j int) bool {
		return less(conns[i], conns[j])
	})
	return conns
}

func pageConns(conns []*wkframe.Conn, offset, limit int) []*wkframe.Conn {
	minoff := offset
	maxoff := offset + limit
	maxIndex := len(conns)

	if minoff > maxIndex {
		minoff = maxIndex
	}
	if maxoff > maxIndex {
		maxoff = maxIndex
	}
	return conns[minoff:maxoff]
}

type Connz struct {
	Connections []*ConnInfo `json:"connections"` // 连接数
	Now         time.Time   `json:"now"`         // 查询时间
	Total       int         `json:"total"`       // 总连接数量
	Offset      int         `json:"offset"`      // 偏移位置
	Limit       int         `json:"limit"`       // 限制数量
}

type ConnInfo struct {
	ID       int64  `json:"id"`        // 连接ID
	IP       string `json:"ip"`        // 客户端IP
	Port     int    `json:"port"`      // 客户端端口
	Uptime   string `json:"uptime"`    // 启动时间
	InMsgs   int64  `json:"in_msgs"`   // 流入的帧数
	OutMsgs  int64  `json:"out_msgs"`  // 流出的帧数
	InBytes  int64  `json:"in_bytes"`  // 流入的字节数量
	OutBytes int64  `json:"out_bytes"` // 流出的字节数量
}

func newConnInfo(c *wkframe.Conn, now time.Time) *ConnInfo {
	var (
		host string
		port int
	)
	if c.RemoteAddr() != nil {
		hostStr, portStr, _ := net.SplitHostPort(c.RemoteAddr().String())
		port, _ = strconv.Atoi(portStr)
		host = hostStr
	}
	return &ConnInfo{
		ID:       c.ID(),
		IP:       host,
		Port:     port,
		Uptime:   wkutil.Uptime(now.Sub(c.ConnectedAt())),
		InMsgs:   c.InFrames(),
		OutMsgs:  c.OutFrames(),
		InBytes:  c.InBytes(),
		OutBytes: c.OutBytes(),
	}
}

func addrString(addr net.Addr) string {
	if addr == nil {
		return ""
	}
	return addr.String()
}
