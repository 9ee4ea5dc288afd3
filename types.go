/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:22:35
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-20 09:15:42
 * @FilePath: \go-msc\types.go
 * @Description: 监控流客户端类型定义
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

// ConnectionStatus 连接状态
type ConnectionStatus string

const (
	ConnectionStatusDisconnected ConnectionStatus = "disconnected" // 已断开
	ConnectionStatusConnecting   ConnectionStatus = "connecting"   // 连接中
	ConnectionStatusConnected    ConnectionStatus = "connected"    // 已连接
	ConnectionStatusError        ConnectionStatus = "error"        // 重连耗尽后的终态
)

// String 实现Stringer接口
func (s ConnectionStatus) String() string {
	return string(s)
}

// IsValid 检查连接状态是否有效
func (s ConnectionStatus) IsValid() bool {
	switch s {
	case ConnectionStatusDisconnected, ConnectionStatusConnecting,
		ConnectionStatusConnected, ConnectionStatusError:
		return true
	default:
		return false
	}
}

// IsTerminal 检查是否为失败终态（只有显式 Connect 才能离开）
func (s ConnectionStatus) IsTerminal() bool {
	return s == ConnectionStatusError
}

// ChannelName 逻辑频道名称
// 服务端在同一条连接上复用多个独立的数据流，频道名用于声明订阅需求
type ChannelName string

const (
	ChannelMetrics       ChannelName = "metrics"        // 系统指标快照
	ChannelContainers    ChannelName = "containers"     // 容器实时状态
	ChannelSessions      ChannelName = "sessions"       // 会话计数
	ChannelSessionEvents ChannelName = "session_events" // 会话生命周期事件
	ChannelSystemAlerts  ChannelName = "system_alerts"  // 阈值告警
)

// String 实现Stringer接口
func (c ChannelName) String() string {
	return string(c)
}

// IsValid 检查频道名是否有效
func (c ChannelName) IsValid() bool {
	switch c {
	case ChannelMetrics, ChannelContainers, ChannelSessions,
		ChannelSessionEvents, ChannelSystemAlerts:
		return true
	default:
		return false
	}
}

// AllChannels 返回所有可用的频道
func AllChannels() []ChannelName {
	return []ChannelName{
		ChannelMetrics,
		ChannelContainers,
		ChannelSessions,
		ChannelSessionEvents,
		ChannelSystemAlerts,
	}
}

// MessageType 消息类型（入站帧 type 标签）
type MessageType string

const (
	MessageTypeMetricsUpdate  MessageType = "metrics_update"  // 系统指标更新
	MessageTypeRealtimeUpdate MessageType = "realtime_update" // 容器实时数据更新
	MessageTypeSessionEvent   MessageType = "session_event"   // 会话生命周期事件
	MessageTypeSystemAlert    MessageType = "system_alert"    // 阈值告警批次
	MessageTypeHeartbeat      MessageType = "heartbeat"       // 服务端心跳
	MessageTypeSubscribe      MessageType = "subscribe"       // 出站订阅声明
)

// String 实现Stringer接口
func (t MessageType) String() string {
	return string(t)
}

// IsValid 检查消息类型是否有效
func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeMetricsUpdate, MessageTypeRealtimeUpdate, MessageTypeSessionEvent,
		MessageTypeSystemAlert, MessageTypeHeartbeat, MessageTypeSubscribe:
		return true
	default:
		return false
	}
}

// IsInbound 检查是否为服务端推送类型
func (t MessageType) IsInbound() bool {
	switch t {
	case MessageTypeMetricsUpdate, MessageTypeRealtimeUpdate, MessageTypeSessionEvent,
		MessageTypeSystemAlert, MessageTypeHeartbeat:
		return true
	default:
		return false
	}
}

// IsControlType 检查是否为控制类型消息（不进入业务分发）
func (t MessageType) IsControlType() bool {
	return t == MessageTypeHeartbeat || t == MessageTypeSubscribe
}

// Channels 返回该消息类型承载的频道
// session_event 同时驱动会话计数和会话事件两个频道
func (t MessageType) Channels() []ChannelName {
	switch t {
	case MessageTypeMetricsUpdate:
		return []ChannelName{ChannelMetrics}
	case MessageTypeRealtimeUpdate:
		return []ChannelName{ChannelContainers}
	case MessageTypeSessionEvent:
		return []ChannelName{ChannelSessions, ChannelSessionEvents}
	case MessageTypeSystemAlert:
		return []ChannelName{ChannelSystemAlerts}
	default:
		return nil
	}
}

// GetAllInboundMessageTypes 返回所有服务端推送的消息类型
func GetAllInboundMessageTypes() []MessageType {
	return []MessageType{
		MessageTypeMetricsUpdate,
		MessageTypeRealtimeUpdate,
		MessageTypeSessionEvent,
		MessageTypeSystemAlert,
		MessageTypeHeartbeat,
	}
}

// AlertLevel 告警级别
type AlertLevel string

const (
	AlertLevelInfo    AlertLevel = "info"    // 提示
	AlertLevelWarning AlertLevel = "warning" // 警告
	AlertLevelError   AlertLevel = "error"   // 错误
)

// String 实现Stringer接口
func (l AlertLevel) String() string {
	return string(l)
}

// IsValid 检查告警级别是否有效
func (l AlertLevel) IsValid() bool {
	switch l {
	case AlertLevelInfo, AlertLevelWarning, AlertLevelError:
		return true
	default:
		return false
	}
}

// Severity 返回级别权重，用于排序比较
func (l AlertLevel) Severity() int {
	switch l {
	case AlertLevelError:
		return 3
	case AlertLevelWarning:
		return 2
	case AlertLevelInfo:
		return 1
	default:
		return 0
	}
}

// GetAllAlertLevels 返回所有告警级别
func GetAllAlertLevels() []AlertLevel {
	return []AlertLevel{AlertLevelInfo, AlertLevelWarning, AlertLevelError}
}

// ToastState 弹出通知状态
// 线性状态机: pending -> visible -> fading -> removed，不允许逆向转换
type ToastState string

const (
	ToastStatePending ToastState = "pending" // 已创建未展示
	ToastStateVisible ToastState = "visible" // 展示中
	ToastStateFading  ToastState = "fading"  // 淡出中
	ToastStateRemoved ToastState = "removed" // 已移除（终态，ID不复用）
)

// String 实现Stringer接口
func (s ToastState) String() string {
	return string(s)
}

// IsValid 检查弹出通知状态是否有效
func (s ToastState) IsValid() bool {
	switch s {
	case ToastStatePending, ToastStateVisible, ToastStateFading, ToastStateRemoved:
		return true
	default:
		return false
	}
}

// IsActive 检查通知是否仍占用展示资源
func (s ToastState) IsActive() bool {
	return s == ToastStatePending || s == ToastStateVisible || s == ToastStateFading
}
