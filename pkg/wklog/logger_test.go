package wklog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestLogger(t *testing.T) {
	dir := t.TempDir()
	opts := NewOptions()
	opts.Level = zap.DebugLevel
	opts.LineNum = true
	opts.LogDir = dir
	opts.NoStdout = true
	Configure(opts)
	defer Configure(NewOptions())

	Info("this is info")
	Debug("this is debug")
	Error("this is error", zap.String("key", "value"))
	NewWKLog("Test").Warn("this is warn")
	require.NoError(t, Sync())

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.Contains(t, string(info), "this is info")
	assert.Contains(t, string(info), "this is debug")

	errLog, err := os.ReadFile(filepath.Join(dir, "error.log"))
	require.NoError(t, err)
	assert.Contains(t, string(errLog), `"key":"value"`)
	assert.NotContains(t, string(errLog), "this is info")

	warnLog, err := os.ReadFile(filepath.Join(dir, "warn.log"))
	require.NoError(t, err)
	assert.Contains(t, string(warnLog), "【Test】this is warn")
}

func TestSetLevel(t *testing.T) {
	dir := t.TempDir()
	opts := NewOptions()
	opts.LogDir = dir
	opts.NoStdout = true
	Configure(opts)
	defer Configure(NewOptions())

	l := NewWKLog("Level")
	l.Debug("hidden")
	SetLevel(zap.DebugLevel)
	assert.Equal(t, zap.DebugLevel, Level())
	l.Debug("visible")
	require.NoError(t, Sync())

	info, err := os.ReadFile(filepath.Join(dir, "info.log"))
	require.NoError(t, err)
	assert.NotContains(t, string(info), "hidden")
	assert.Contains(t, string(info), "visible")
}
