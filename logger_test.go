/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-28 09:05:27
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-24 15:42:18
 * @FilePath: \go-msc\logger_test.go
 * @Description: 日志器构建与配置映射测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"testing"

	wscconfig "github.com/kamalyes/go-config/pkg/wsc"
	"github.com/kamalyes/go-logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewDefaultMSCLogger 测试默认日志器可用
func TestNewDefaultMSCLogger(t *testing.T) {
	l := NewDefaultMSCLogger()
	require.NotNil(t, l)

	// 基本写入不崩溃
	l.Info("default logger smoke test")
	l.InfoKV("kv smoke test", "key", "value")
}

// TestNewNoOpLogger 测试空日志器静默
func TestNewNoOpLogger(t *testing.T) {
	l := NewNoOpLogger()
	require.NotNil(t, l)
	l.Error("should be swallowed")
	l.WarnKV("should be swallowed", "key", "value")
}

// TestSetDefaultLogger 测试替换全局默认日志器
func TestSetDefaultLogger(t *testing.T) {
	original := DefaultLogger
	defer SetDefaultLogger(original)

	SetDefaultLogger(NoOpLoggerInstance)
	assert.Equal(t, NoOpLoggerInstance, DefaultLogger)
}

// TestInitLogger_DisabledLoggingUsesDefault 测试未启用日志配置时回落默认日志器
func TestInitLogger_DisabledLoggingUsesDefault(t *testing.T) {
	cfg := NewTransportConfig()
	cfg.Logging = nil
	require.NotNil(t, initLogger(cfg))

	// 默认配置同样走默认日志器路径
	require.NotNil(t, initLogger(wscconfig.Default()))
}

// TestParseLogLevel 测试日志级别解析
func TestParseLogLevel(t *testing.T) {
	assert.Equal(t, logger.DEBUG, parseLogLevel("debug"))
	assert.Equal(t, logger.DEBUG, parseLogLevel("DEBUG"))
	assert.Equal(t, logger.INFO, parseLogLevel("info"))
	assert.Equal(t, logger.WARN, parseLogLevel("warning"))
	assert.Equal(t, logger.ERROR, parseLogLevel("ERROR"))
	assert.Equal(t, logger.FATAL, parseLogLevel("fatal"))
	assert.Equal(t, logger.INFO, parseLogLevel("unknown"))
	assert.Equal(t, logger.INFO, parseLogLevel(""))
}
