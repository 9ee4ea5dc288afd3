/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-19 16:28:40
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 12:05:33
 * @FilePath: \go-msc\stats.go
 * @Description: 客户端运行指标收集
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"sync"
	"sync/atomic"
	"time"
)

// StreamStatsSnapshot 运行指标快照
type StreamStatsSnapshot struct {
	Connects            int64            `json:"connects"`              // 成功建连次数
	ReconnectAttempts   int64            `json:"reconnect_attempts"`    // 重连尝试次数
	HeartbeatsSent      int64            `json:"heartbeats_sent"`       // 已发送心跳数
	PongsReceived       int64            `json:"pongs_received"`        // 已收到Pong数
	FramesReceived      int64            `json:"frames_received"`       // 入站帧总数
	FramesByType        map[string]int64 `json:"frames_by_type"`        // 按消息类型的入站帧数
	MalformedFrames     int64            `json:"malformed_frames"`      // 被丢弃的畸形帧数
	FannedOut           int64            `json:"fanned_out"`            // 已分发帧数
	SubscribeFramesSent int64            `json:"subscribe_frames_sent"` // 已发送订阅帧数
	LastMessageAt       time.Time        `json:"last_message_at"`       // 最近入站帧时间
	LastHeartbeatAt     time.Time        `json:"last_heartbeat_at"`     // 最近心跳帧时间
	StartedAt           time.Time        `json:"started_at"`            // 统计起始时间
	CollectedAt         time.Time        `json:"collected_at"`          // 快照采集时间
}

// StreamStats 客户端运行指标收集器
// 计数器全部基于原子操作，热路径无锁
type StreamStats struct {
	enabled int32 // 启用标志

	connects            int64 // 成功建连次数
	reconnectAttempts   int64 // 重连尝试次数
	heartbeatsSent      int64 // 已发送心跳数
	pongsReceived       int64 // 已收到Pong数
	framesReceived      int64 // 入站帧总数
	malformedFrames     int64 // 畸形帧数
	fannedOut           int64 // 已分发帧数
	subscribeFramesSent int64 // 已发送订阅帧数

	mu           sync.RWMutex          // 保护按类型计数表
	framesByType map[MessageType]int64 // 按消息类型的入站帧数

	lastMessageAt   atomic.Value // time.Time 最近入站帧时间
	lastHeartbeatAt atomic.Value // time.Time 最近心跳帧时间
	startedAt       time.Time    // 统计起始时间
}

// NewStreamStats 创建运行指标收集器
func NewStreamStats() *StreamStats {
	return &StreamStats{
		enabled:      1,
		framesByType: make(map[MessageType]int64),
		startedAt:    time.Now(),
	}
}

// IncrementConnects 增加成功建连计数
func (ss *StreamStats) IncrementConnects() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.connects, 1)
	}
}

// IncrementReconnectAttempts 增加重连尝试计数
func (ss *StreamStats) IncrementReconnectAttempts() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.reconnectAttempts, 1)
	}
}

// IncrementHeartbeatsSent 增加已发送心跳计数
func (ss *StreamStats) IncrementHeartbeatsSent() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.heartbeatsSent, 1)
	}
}

// IncrementPongsReceived 增加已收到Pong计数
func (ss *StreamStats) IncrementPongsReceived() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.pongsReceived, 1)
	}
}

// IncrementFrameReceived 记录一个入站帧
// 同步刷新最近消息时间，心跳帧额外刷新最近心跳时间
func (ss *StreamStats) IncrementFrameReceived(t MessageType) {
	if !ss.IsEnabled() {
		return
	}
	now := time.Now()
	atomic.AddInt64(&ss.framesReceived, 1)
	ss.lastMessageAt.Store(now)
	if t == MessageTypeHeartbeat {
		ss.lastHeartbeatAt.Store(now)
	}
	ss.mu.Lock()
	ss.framesByType[t]++
	ss.mu.Unlock()
}

// IncrementMalformedFrames 增加畸形帧计数
func (ss *StreamStats) IncrementMalformedFrames() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.malformedFrames, 1)
	}
}

// IncrementFannedOut 增加已分发帧计数
func (ss *StreamStats) IncrementFannedOut() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.fannedOut, 1)
	}
}

// IncrementSubscribeFramesSent 增加已发送订阅帧计数
func (ss *StreamStats) IncrementSubscribeFramesSent() {
	if ss.IsEnabled() {
		atomic.AddInt64(&ss.subscribeFramesSent, 1)
	}
}

// Snapshot 采集当前指标快照
func (ss *StreamStats) Snapshot() StreamStatsSnapshot {
	byType := make(map[string]int64)
	ss.mu.RLock()
	for t, n := range ss.framesByType {
		byType[t.String()] = n
	}
	startedAt := ss.startedAt
	ss.mu.RUnlock()

	snapshot := StreamStatsSnapshot{
		Connects:            atomic.LoadInt64(&ss.connects),
		ReconnectAttempts:   atomic.LoadInt64(&ss.reconnectAttempts),
		HeartbeatsSent:      atomic.LoadInt64(&ss.heartbeatsSent),
		PongsReceived:       atomic.LoadInt64(&ss.pongsReceived),
		FramesReceived:      atomic.LoadInt64(&ss.framesReceived),
		FramesByType:        byType,
		MalformedFrames:     atomic.LoadInt64(&ss.malformedFrames),
		FannedOut:           atomic.LoadInt64(&ss.fannedOut),
		SubscribeFramesSent: atomic.LoadInt64(&ss.subscribeFramesSent),
		StartedAt:           startedAt,
		CollectedAt:         time.Now(),
	}
	if v := ss.lastMessageAt.Load(); v != nil {
		snapshot.LastMessageAt = v.(time.Time)
	}
	if v := ss.lastHeartbeatAt.Load(); v != nil {
		snapshot.LastHeartbeatAt = v.(time.Time)
	}
	return snapshot
}

// Report 把当前指标写入日志
func (ss *StreamStats) Report(l MSCLogger) {
	if l == nil {
		return
	}
	snapshot := ss.Snapshot()
	l.LogPerformance("stream_stats",
		snapshot.CollectedAt.Sub(snapshot.StartedAt).String(),
		map[string]interface{}{
			"connects":              snapshot.Connects,
			"reconnect_attempts":    snapshot.ReconnectAttempts,
			"frames_received":       snapshot.FramesReceived,
			"malformed_frames":      snapshot.MalformedFrames,
			"fanned_out":            snapshot.FannedOut,
			"heartbeats_sent":       snapshot.HeartbeatsSent,
			"pongs_received":        snapshot.PongsReceived,
			"subscribe_frames_sent": snapshot.SubscribeFramesSent,
		})
}

// Reset 清零全部计数器并重置起始时间
func (ss *StreamStats) Reset() {
	atomic.StoreInt64(&ss.connects, 0)
	atomic.StoreInt64(&ss.reconnectAttempts, 0)
	atomic.StoreInt64(&ss.heartbeatsSent, 0)
	atomic.StoreInt64(&ss.pongsReceived, 0)
	atomic.StoreInt64(&ss.framesReceived, 0)
	atomic.StoreInt64(&ss.malformedFrames, 0)
	atomic.StoreInt64(&ss.fannedOut, 0)
	atomic.StoreInt64(&ss.subscribeFramesSent, 0)

	ss.mu.Lock()
	ss.framesByType = make(map[MessageType]int64)
	ss.startedAt = time.Now()
	ss.mu.Unlock()

	ss.lastMessageAt.Store(time.Time{})
	ss.lastHeartbeatAt.Store(time.Time{})
}

// Enable 启用指标收集
func (ss *StreamStats) Enable() {
	atomic.StoreInt32(&ss.enabled, 1)
}

// Disable 禁用指标收集
func (ss *StreamStats) Disable() {
	atomic.StoreInt32(&ss.enabled, 0)
}

// IsEnabled 检查是否启用
func (ss *StreamStats) IsEnabled() bool {
	return atomic.LoadInt32(&ss.enabled) == 1
}
