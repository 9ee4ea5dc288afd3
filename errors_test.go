/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-28 10:12:55
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-24 16:03:29
 * @FilePath: \go-msc\errors_test.go
 * @Description: 错误分类与判定辅助函数测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"errors"
	"testing"

	"github.com/kamalyes/go-toolbox/pkg/errorx"
	"github.com/stretchr/testify/assert"
)

// TestIsRetryableError 测试可重试错误判定
func TestIsRetryableError(t *testing.T) {
	assert.True(t, IsRetryableError(ErrDialFailed))
	assert.True(t, IsRetryableError(ErrConnectionClosed))
	assert.True(t, IsRetryableError(ErrMessageBufferFull))
	assert.True(t, IsRetryableError(ErrDispatchQueueFull))

	assert.False(t, IsRetryableError(nil))
	assert.False(t, IsRetryableError(ErrMaxReconnectAttempts))
	assert.False(t, IsRetryableError(ErrMalformedFrame))
	assert.False(t, IsRetryableError(errors.New("plain error")))
}

// TestIsBufferFullError 测试缓冲区满错误判定
func TestIsBufferFullError(t *testing.T) {
	assert.True(t, IsBufferFullError(ErrMessageBufferFull))
	assert.True(t, IsBufferFullError(ErrDispatchQueueFull))
	assert.False(t, IsBufferFullError(ErrConnectionClosed))
	assert.False(t, IsBufferFullError(nil))
}

// TestIsProtocolError 测试协议错误判定
func TestIsProtocolError(t *testing.T) {
	assert.True(t, IsProtocolError(ErrMalformedFrame))
	assert.True(t, IsProtocolError(ErrMissingTypeTag))
	assert.True(t, IsProtocolError(errorx.NewError(ErrTypeUnknownMessageType, "bogus")))
	assert.False(t, IsProtocolError(ErrConnectionClosed))
	assert.False(t, IsProtocolError(nil))
}

// TestIsReconnectExhaustedError 测试重连耗尽错误判定
func TestIsReconnectExhaustedError(t *testing.T) {
	assert.True(t, IsReconnectExhaustedError(ErrMaxReconnectAttempts))
	assert.False(t, IsReconnectExhaustedError(ErrDialFailed))
	assert.False(t, IsReconnectExhaustedError(nil))
}

// TestErrorMessages 测试错误文案注册生效
func TestErrorMessages(t *testing.T) {
	assert.Contains(t, ErrConnectionClosed.Error(), "connection closed")
	assert.Contains(t, ErrMaxReconnectAttempts.Error(), "max reconnect attempts")
	assert.Contains(t, ErrMalformedFrame.Error(), "malformed frame")

	withArg := errorx.NewError(ErrTypeInvalidChannel, "bogus_channel")
	assert.Contains(t, withArg.Error(), "bogus_channel")
}
