package wklog

import (
	"fmt"
	"os"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

var logger *zap.Logger      // info日志
var errorLogger *zap.Logger // 错误日志
var warnLogger *zap.Logger  // 警告日志
var panicLogger *zap.Logger // panic日志
var atom = zap.NewAtomicLevel()

var opts *Options
var configureLock sync.Mutex

func Configure(op *Options) {
	configureLock.Lock()
	defer configureLock.Unlock()
	configure(op)
}

func configure(op *Options) {
	atom.SetLevel(op.Level)
	opts = op

	loggerOpts := make([]zap.Option, 0)
	if opts.LineNum {
		loggerOpts = append(loggerOpts, zap.AddCaller(), zap.AddCallerSkip(2))
	}

	// ====================== info ==========================
	logger = zap.New(newCore("info.log", atom), loggerOpts...)

	// ====================== error ==========================
	errorLogger = zap.New(newCore("error.log", zap.ErrorLevel), loggerOpts...)

	// ====================== warn ==========================
	warnLogger = zap.New(newCore("warn.log", zap.WarnLevel), loggerOpts...)

	// ====================== panic ==========================
	panicLogger = zap.New(newCore("panic.log", zap.PanicLevel), append(loggerOpts, zap.AddStacktrace(zapcore.PanicLevel))...)
}

func ensureConfigured() {
	configureLock.Lock()
	defer configureLock.Unlock()
	if logger == nil {
		configure(NewOptions())
	}
}

// newCore stdout加上按文件名滚动的文件输出
func newCore(filename string, enab zapcore.LevelEnabler) zapcore.Core {
	writers := make([]zapcore.WriteSyncer, 0, 2)
	if !opts.NoStdout {
		writers = append(writers, zapcore.AddSync(os.Stdout))
	}
	if opts.LogDir != "" {
		writers = append(writers, zapcore.AddSync(&lumberjack.Logger{
			Filename:   path.Join(opts.LogDir, filename),
			MaxSize:    opts.MaxSize,
			MaxBackups: opts.MaxBackups,
			MaxAge:     opts.MaxAge,
		}))
	}
	return zapcore.NewCore(
		zapcore.NewJSONEncoder(newEncoderConfig()),
		zapcore.NewMultiWriteSyncer(writers...),
		enab,
	)
}

func Level() zapcore.Level {
	return atom.Level()
}

// SetLevel 运行时调整info日志的级别
func SetLevel(level zapcore.Level) {
	atom.SetLevel(level)
}

func newEncoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		// Keys can be anything except the empty string.
		TimeKey:       "time",
		LevelKey:      "level",
		NameKey:       "logger",
		CallerKey:     "linenum",
		MessageKey:    "msg",
		StacktraceKey: "stacktrace",
		LineEnding:    zapcore.DefaultLineEnding,
		EncodeLevel:   zapcore.LowercaseLevelEncoder, // 小写编码器
		EncodeCaller:  zapcore.FullCallerEncoder,     // 全路径编码器
		EncodeName:    zapcore.FullNameEncoder,
		EncodeTime: func(t time.Time, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendString(t.Format("2006-01-02T15:04:05.999999999-07:00"))
		},
		EncodeDuration: func(d time.Duration, enc zapcore.PrimitiveArrayEncoder) {
			enc.AppendInt64(int64(d) / 1000000)
		},
	}
}

// Info Info
func Info(msg string, fields ...zap.Field) {
	ensureConfigured()
	logger.Info(msg, fields...)
}

// Debug Debug
func Debug(msg string, fields ...zap.Field) {
	ensureConfigured()
	logger.Debug(msg, fields...)
}

// Error Error
func Error(msg string, fields ...zap.Field) {
	ensureConfigured()
	errorLogger.Error(msg, fields...)
}

func Fatal(msg string, fields ...zap.Field) {
	ensureConfigured()
	panicLogger.Fatal(msg, fields...)
}

func Panic(msg string, fields ...zap.Field) {
	ensureConfigured()
	panicLogger.Panic(msg, fields...)
}

// Warn Warn
func Warn(msg string, fields ...zap.Field) {
	ensureConfigured()
	warnLogger.Warn(msg, fields...)
}

func Sync() error {
	if logger == nil {
		return nil
	}
	for name, l := range map[string]*zap.Logger{"panicLogger": panicLogger, "errorLogger": errorLogger, "warnLogger": warnLogger, "logger": logger} {
		if err := l.Sync(); err != nil {
			fmt.Println(name, "sync error", err)
		}
	}
	return nil
}

// Log Log
type Log interface {
	Info(msg string, fields ...zap.Field)
	Debug(msg string, fields ...zap.Field)
	Error(msg string, fields ...zap.Field)
	Warn(msg string, fields ...zap.Field)
	Fatal(msg string, fields ...zap.Field)
	Panic(msg string, fields ...zap.Field)
}

// WKLog 带前缀的日志
type WKLog struct {
	prefix string // 日志前缀
}

// NewWKLog NewWKLog
func NewWKLog(prefix string) *WKLog {

	return &WKLog{prefix: prefix}
}

func (t *WKLog) withPrefix(msg string) string {
	var b strings.Builder
	b.Grow(len(t.prefix) + len(msg) + 6)
	b.WriteString("【")
	b.WriteString(t.prefix)
	b.WriteString("】")
	b.WriteString(msg)
	return b.String()
}

// Info Info
func (t *WKLog) Info(msg string, fields ...zap.Field) {
	Info(t.withPrefix(msg), fields...)
}

// Debug Debug
func (t *WKLog) Debug(msg string, fields ...zap.Field) {
	if !atom.Enabled(zapcore.DebugLevel) {
		return
	}
	Debug(t.withPrefix(msg), fields...)
}

// Error Error
func (t *WKLog) Error(msg string, fields ...zap.Field) {
	Error(t.withPrefix(msg), fields...)
}

// Warn Warn
func (t *WKLog) Warn(msg string, fields ...zap.Field) {
	Warn(t.withPrefix(msg), fields...)
}

func (t *WKLog) Fatal(msg string, fields ...zap.Field) {
	Fatal(t.withPrefix(msg), fields...)
}

func (t *WKLog) Panic(msg string, fields ...zap.Field) {
	Panic(t.withPrefix(msg), fields...)
}
