/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-22 09:12:40
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 16:02:11
 * @FilePath: \go-msc\types_test.go
 * @Description:
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// TestConnectionStatus_Validity 测试连接状态枚举的有效性
func TestConnectionStatus_Validity(t *testing.T) {
	valid := []ConnectionStatus{
		ConnectionStatusDisconnected,
		ConnectionStatusConnecting,
		ConnectionStatusConnected,
		ConnectionStatusError,
	}
	for _, s := range valid {
		assert.True(t, s.IsValid(), "状态 %s 应当有效", s)
		assert.Equal(t, string(s), s.String())
	}

	assert.False(t, ConnectionStatus("reconnecting").IsValid(), "不存在 reconnecting 状态")
	assert.False(t, ConnectionStatus("").IsValid())
}

// TestConnectionStatus_IsTerminal 测试终态判定
func TestConnectionStatus_IsTerminal(t *testing.T) {
	assert.True(t, ConnectionStatusError.IsTerminal())
	assert.False(t, ConnectionStatusDisconnected.IsTerminal())
	assert.False(t, ConnectionStatusConnecting.IsTerminal())
	assert.False(t, ConnectionStatusConnected.IsTerminal())
}

// TestChannelName_Validity 测试频道名枚举
func TestChannelName_Validity(t *testing.T) {
	all := AllChannels()
	assert.Len(t, all, 5)
	for _, ch := range all {
		assert.True(t, ch.IsValid(), "频道 %s 应当有效", ch)
	}

	assert.False(t, ChannelName("logs").IsValid())
	assert.False(t, ChannelName("").IsValid())
}

// TestMessageType_Classification 测试消息类型的方向与控制分类
func TestMessageType_Classification(t *testing.T) {
	for _, mt := range GetAllInboundMessageTypes() {
		assert.True(t, mt.IsInbound(), "类型 %s 应当为入站类型", mt)
		assert.True(t, mt.IsValid())
	}

	// subscribe 是唯一的出站类型
	assert.False(t, MessageTypeSubscribe.IsInbound())
	assert.True(t, MessageTypeSubscribe.IsValid())

	// 控制类型不进入业务分发
	assert.True(t, MessageTypeHeartbeat.IsControlType())
	assert.True(t, MessageTypeSubscribe.IsControlType())
	assert.False(t, MessageTypeSystemAlert.IsControlType())

	assert.False(t, MessageType("unknown_kind").IsValid())
}

// TestMessageType_Channels 测试消息类型到频道的映射
func TestMessageType_Channels(t *testing.T) {
	assert.Equal(t, []ChannelName{ChannelMetrics}, MessageTypeMetricsUpdate.Channels())
	assert.Equal(t, []ChannelName{ChannelContainers}, MessageTypeRealtimeUpdate.Channels())
	assert.Equal(t, []ChannelName{ChannelSystemAlerts}, MessageTypeSystemAlert.Channels())

	// 会话事件同时驱动两个频道
	assert.Equal(t, []ChannelName{ChannelSessions, ChannelSessionEvents}, MessageTypeSessionEvent.Channels())

	// 心跳与订阅不承载任何频道
	assert.Nil(t, MessageTypeHeartbeat.Channels())
	assert.Nil(t, MessageTypeSubscribe.Channels())
}

// TestAlertLevel_Severity 测试告警级别权重
func TestAlertLevel_Severity(t *testing.T) {
	assert.Greater(t, AlertLevelError.Severity(), AlertLevelWarning.Severity())
	assert.Greater(t, AlertLevelWarning.Severity(), AlertLevelInfo.Severity())
	assert.Equal(t, 0, AlertLevel("fatal").Severity())

	for _, l := range GetAllAlertLevels() {
		assert.True(t, l.IsValid())
	}
	assert.False(t, AlertLevel("critical").IsValid())
}

// TestToastState_Lifecycle 测试弹出通知状态枚举
func TestToastState_Lifecycle(t *testing.T) {
	assert.True(t, ToastStatePending.IsActive())
	assert.True(t, ToastStateVisible.IsActive())
	assert.True(t, ToastStateFading.IsActive())
	assert.False(t, ToastStateRemoved.IsActive())

	for _, s := range []ToastState{ToastStatePending, ToastStateVisible, ToastStateFading, ToastStateRemoved} {
		assert.True(t, s.IsValid())
	}
	assert.False(t, ToastState("hidden").IsValid())
}
