package options

import (
	"errors"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/WuKongIM/wkframe/version"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"
)

type Mode string

const (
	// DebugMode indicates gin mode is debug.
	DebugMode Mode = "debug"
	// ReleaseMode indicates gin mode is release.
	ReleaseMode Mode = "release"
	// TestMode indicates gin mode is test.
	TestMode Mode = "test"
)

type Options struct {
	vp             *viper.Viper // 内部配置对象
	Mode           Mode         // 模式 debug 测试 release 正式 test 单元测试
	Version        string
	RootDir        string // 根目录
	GinMode        string // gin框架的模式
	Addr           string // tcp监听地址 例如：tcp://0.0.0.0:9000
	Backlog        int    // listen的backlog
	MaxConnections int    // 最大连接数，同时也是I/O上下文池的大小
	BufferSize     int    // 每个连接的接收缓冲大小
	MaxFrameSize   int    // 允许的最大帧长度，0为不限制
	Logger         struct {
		Dir     string // 日志存储目录
		Level   zapcore.Level
		LineNum bool // 是否显示代码行数
	}
	Monitor struct {
		On   bool   // 是否开启监控
		Addr string // 监控地址 默认为 0.0.0.0:9300
	}
	Stats struct {
		Interval time.Duration // 统计日志的输出间隔，0为关闭
	}
	TimingWheelTick time.Duration // The time-round training interval must be 1ms or more
	TimingWheelSize int64         // Time wheel size
}

func New() *Options {
	homeDir, err := GetHomeDir()
	if err != nil {
		panic(err)
	}
	opts := &Options{
		Mode:            DebugMode,
		Version:         version.Version,
		RootDir:         filepath.Join(homeDir, "wkframedata"),
		GinMode:         gin.ReleaseMode,
		Addr:            "tcp://0.0.0.0:9000",
		Backlog:         1024,
		MaxConnections:  2000,
		BufferSize:      4096,
		MaxFrameSize:    16 * 1024 * 1024,
		TimingWheelTick: time.Millisecond * 10,
		TimingWheelSize: 100,
	}
	opts.Logger.Dir = "logs"
	opts.Logger.Level = zapcore.DebugLevel
	opts.Monitor.On = true
	opts.Monitor.Addr = "0.0.0.0:9300"
	opts.Stats.Interval = time.Minute
	return opts
}

func GetHomeDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err == nil {
		return homeDir, nil
	}
	u, err := user.Current()
	if err == nil {
		return u.HomeDir, nil
	}

	return "", errors.New("User home directory not found.")
}

func (o *Options) ConfigureWithViper(vp *viper.Viper) {
	o.vp = vp

	o.RootDir = o.getString("rootDir", o.RootDir)

	modeStr := o.getString("mode", string(o.Mode))
	if strings.TrimSpace(modeStr) == "" {
		o.Mode = DebugMode
	} else {
		o.Mode = Mode(modeStr)
	}
	if o.Mode == TestMode {
		o.GinMode = gin.TestMode
	} else if o.Mode == DebugMode {
		o.GinMode = gin.DebugMode
	}
	o.GinMode = o.getString("ginMode", o.GinMode)

	o.Addr = o.getString("addr", o.Addr)
	o.Backlog = o.getInt("backlog", o.Backlog)
	o.MaxConnections = o.getInt("maxConnections", o.MaxConnections)
	o.BufferSize = o.getInt("bufferSize", o.BufferSize)
	o.MaxFrameSize = o.getIntAllowZero("maxFrameSize", o.MaxFrameSize)

	o.Monitor.On = o.getBool("monitor.on", o.Monitor.On)
	o.Monitor.Addr = o.getString("monitor.addr", o.Monitor.Addr)

	o.Stats.Interval = o.getDuration("stats.interval", o.Stats.Interval)

	o.TimingWheelTick = o.getDuration("timingWheelTick", o.TimingWheelTick)
	o.TimingWheelSize = o.getInt64("timingWheelSize", o.TimingWheelSize)

	o.configureLog(vp)
}

func (o *Options) configureLog(vp *viper.Viper) {
	o.Logger.Level = o.LogLevel()
	o.Logger.Dir = vp.GetString("logger.dir")
	if strings.TrimSpace(o.Logger.Dir) == "" {
		o.Logger.Dir = "logs"
	}
	if !filepath.IsAbs(strings.TrimSpace(o.Logger.Dir)) {
		o.Logger.Dir = filepath.Join(o.RootDir, o.Logger.Dir)
	}
	o.Logger.LineNum = o.getBool("logger.lineNum", o.Logger.LineNum)
}

// LogLevel 配置中的logger.level，比zap的级别大2（0为未设置）
func (o *Options) LogLevel() zapcore.Level {
	logLevel := 0
	if o.vp != nil {
		logLevel = o.vp.GetInt("logger.level")
	}
	if logLevel == 0 { // 没有设置
		if o.Mode == DebugMode {
			return zapcore.DebugLevel
		}
		return zapcore.InfoLevel
	}
	return zapcore.Level(logLevel - 2)
}

func (o *Options) ConfigFileUsed() string {
	if o.vp == nil {
		return ""
	}
	return o.vp.ConfigFileUsed()
}

func (o *Options) getString(key string, defaultValue string) string {
	v := o.vp.GetString(key)
	if v == "" {
		return defaultValue
	}
	return v
}

func (o *Options) getInt(key string, defaultValue int) int {
	v := o.vp.GetInt(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

// getIntAllowZero 显式配置的0同样生效
func (o *Options) getIntAllowZero(key string, defaultValue int) int {
	if !o.vp.IsSet(key) {
		return defaultValue
	}
	return cast.ToInt(o.vp.Get(key))
}

func (o *Options) getInt64(key string, defaultValue int64) int64 {
	v := o.vp.GetInt64(key)
	if v == 0 {
		return defaultValue
	}
	return v
}

func (o *Options) getBool(key string, defaultValue bool) bool {
	objV := o.vp.Get(key)
	if objV == nil {
		return defaultValue
	}
	return cast.ToBool(objV)
}

func (o *Options) getDuration(key string, defaultValue time.Duration) time.Duration {
	if !o.vp.IsSet(key) {
		return defaultValue
	}
	return cast.ToDuration(o.vp.Get(key))
}
