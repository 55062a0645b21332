package wklog

import "go.uber.org/zap/zapcore"

type Options struct {
	Level    zapcore.Level
	LogDir   string // 日志目录，为空时只输出到stdout
	LineNum  bool   // 是否输出行号
	NoStdout bool   // 不输出到stdout
	// 单个日志文件的滚动配置
	MaxSize    int // megabytes
	MaxBackups int
	MaxAge     int // days
}

func NewOptions() *Options {

	return &Options{
		Level:      zapcore.InfoLevel,
		MaxSize:    500,
		MaxBackups: 3,
		MaxAge:     28,
	}
}
