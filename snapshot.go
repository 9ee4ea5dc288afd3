/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-19 14:02:51
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 11:41:17
 * @FilePath: \go-msc\snapshot.go
 * @Description: 频道最新负载看板
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"
)

// Snapshot 单个频道的最新负载
type Snapshot struct {
	Channel    ChannelName     `json:"channel"`     // 频道名称
	Type       MessageType     `json:"type"`        // 来源消息类型
	Timestamp  time.Time       `json:"timestamp"`   // 服务端时间戳
	ReceivedAt time.Time       `json:"received_at"` // 本地接收时间
	Data       json.RawMessage `json:"data"`        // 原始帧负载
}

// SnapshotBoard 频道快照看板
// 每个频道仅保留最近一帧，供界面随时读取当前状态
type SnapshotBoard struct {
	mu      sync.RWMutex              // 读写锁
	latest  map[ChannelName]*Snapshot // 频道到最新快照的映射
	updates int64                     // 更新次数
	logger  MSCLogger                 // 日志记录器

	onUpdate atomic.Value // func(ChannelName, *Snapshot) 快照更新回调
}

// NewSnapshotBoard 创建频道快照看板
func NewSnapshotBoard(l MSCLogger) *SnapshotBoard {
	if l == nil {
		l = DefaultLogger
	}
	return &SnapshotBoard{
		latest: make(map[ChannelName]*Snapshot),
		logger: l,
	}
}

// OnUpdate 设置快照更新回调
func (sb *SnapshotBoard) OnUpdate(f func(ch ChannelName, snap *Snapshot)) {
	if f != nil {
		sb.onUpdate.Store(f)
	}
}

// HasUpdateCallback 检查是否设置了更新回调
func (sb *SnapshotBoard) HasUpdateCallback() bool {
	return sb.onUpdate.Load() != nil
}

// Update 用入站信封刷新对应频道的快照
// 会话事件同时刷新 sessions 与 session_events 两个频道
// 返回本次刷新的频道列表，不承载频道的消息类型为空操作
func (sb *SnapshotBoard) Update(env *Envelope) []ChannelName {
	if env == nil {
		return nil
	}
	channels := env.Type.Channels()
	if len(channels) == 0 {
		return nil
	}

	receivedAt := env.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	updated := make([]*Snapshot, 0, len(channels))
	sb.mu.Lock()
	for _, ch := range channels {
		snap := &Snapshot{
			Channel:    ch,
			Type:       env.Type,
			Timestamp:  env.Time(),
			ReceivedAt: receivedAt,
			Data:       append(json.RawMessage(nil), env.Raw...),
		}
		sb.latest[ch] = snap
		sb.updates++
		updated = append(updated, snap)
	}
	sb.mu.Unlock()

	if f := sb.onUpdate.Load(); f != nil {
		cb := f.(func(ChannelName, *Snapshot))
		for _, snap := range updated {
			cb(snap.Channel, cloneSnapshot(snap))
		}
	}
	return channels
}

// Latest 返回指定频道的最新快照副本
func (sb *SnapshotBoard) Latest(ch ChannelName) (*Snapshot, bool) {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	snap, ok := sb.latest[ch]
	if !ok {
		return nil, false
	}
	return cloneSnapshot(snap), true
}

// All 返回全部频道快照的副本
func (sb *SnapshotBoard) All() map[ChannelName]*Snapshot {
	sb.mu.RLock()
	defer sb.mu.RUnlock()

	result := make(map[ChannelName]*Snapshot, len(sb.latest))
	for ch, snap := range sb.latest {
		result[ch] = cloneSnapshot(snap)
	}
	return result
}

// Clear 清空全部快照
func (sb *SnapshotBoard) Clear() {
	sb.mu.Lock()
	sb.latest = make(map[ChannelName]*Snapshot)
	sb.mu.Unlock()
}

// UpdateCount 返回累计更新次数
func (sb *SnapshotBoard) UpdateCount() int64 {
	sb.mu.RLock()
	defer sb.mu.RUnlock()
	return sb.updates
}

// cloneSnapshot 复制快照，负载字节独立
func cloneSnapshot(snap *Snapshot) *Snapshot {
	if snap == nil {
		return nil
	}
	clone := *snap
	clone.Data = append(json.RawMessage(nil), snap.Data...)
	return &clone
}
