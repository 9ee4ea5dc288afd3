/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:47:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-22 17:30:26
 * @FilePath: \go-msc\subscription.go
 * @Description: 订阅需求管理与全量声明帧
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"sort"
	"sync"
	"sync/atomic"

	"github.com/kamalyes/go-toolbox/pkg/errorx"
)

// FrameSender 订阅帧发送端
type FrameSender interface {
	SendTextMessage(message string) error
}

// SubscriptionManager 订阅需求管理器
// 维护各消费者的兴趣集合，需求并集变化时在线上声明一次全量订阅
type SubscriptionManager struct {
	mu             sync.Mutex                          // 保护消费者注册表与线上需求
	sender         FrameSender                         // 订阅帧发送端
	logger         MSCLogger                           // 日志记录器
	stats          *StreamStats                        // 流统计收集器
	consumers      map[string]map[ChannelName]struct{} // 消费者ID到兴趣集合
	lastSent       []ChannelName                       // 最近一次声明到线上的需求全集（有序），nil 表示未声明
	everRegistered bool                                // 是否有过任何消费者注册
	sentFrames     int64                               // 成功发出的订阅帧数（原子）
}

// NewSubscriptionManager 创建订阅需求管理器
func NewSubscriptionManager(sender FrameSender, l MSCLogger, stats *StreamStats) *SubscriptionManager {
	if l == nil {
		l = DefaultLogger
	}
	if stats == nil {
		stats = NewStreamStats()
	}
	return &SubscriptionManager{
		sender:    sender,
		logger:    l,
		stats:     stats,
		consumers: make(map[string]map[ChannelName]struct{}),
	}
}

// RegisterInterest 登记消费者的兴趣集合
// 同一消费者再次登记时整体替换其旧集合；并集变化时恰好发送一帧全量声明
func (sm *SubscriptionManager) RegisterInterest(consumerID string, channels ...ChannelName) error {
	if consumerID == "" {
		return ErrEmptyConsumerID
	}
	for _, ch := range channels {
		if !ch.IsValid() {
			return errorx.NewError(ErrTypeInvalidChannel, ch.String())
		}
	}

	set := make(map[ChannelName]struct{}, len(channels))
	for _, ch := range channels {
		set[ch] = struct{}{}
	}

	sm.mu.Lock()
	sm.everRegistered = true
	sm.consumers[consumerID] = set
	toSend := sm.refreshDemandLocked()
	sm.mu.Unlock()

	if toSend != nil {
		sm.sendFrame(toSend)
	}
	return nil
}

// UnregisterInterest 注销消费者
// 未知的消费者ID为空操作；并集变化时恰好发送一帧全量声明
func (sm *SubscriptionManager) UnregisterInterest(consumerID string) {
	sm.mu.Lock()
	if _, ok := sm.consumers[consumerID]; !ok {
		sm.mu.Unlock()
		return
	}
	delete(sm.consumers, consumerID)
	toSend := sm.refreshDemandLocked()
	sm.mu.Unlock()

	if toSend != nil {
		sm.sendFrame(toSend)
	}
}

// Resend 无条件重新声明当前需求全集
// 服务端不跨连接保留订阅状态，重连成功后必须整体重发
func (sm *SubscriptionManager) Resend() {
	sm.mu.Lock()
	ever := sm.everRegistered
	union := sm.computeUnionLocked()
	if len(union) > 0 {
		sm.lastSent = union
	} else {
		sm.lastSent = nil
	}
	sm.mu.Unlock()

	// 从未注册过消费者时保持静默，缺省即全量广播
	if !ever || len(union) == 0 {
		return
	}
	sm.sendFrame(union)
}

// Demand 返回当前需求全集（有序副本）
func (sm *SubscriptionManager) Demand() []ChannelName {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return sm.computeUnionLocked()
}

// ConsumerCount 返回当前登记的消费者数量
func (sm *SubscriptionManager) ConsumerCount() int {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	return len(sm.consumers)
}

// SentFrameCount 返回成功发出的订阅帧总数
func (sm *SubscriptionManager) SentFrameCount() int64 {
	return atomic.LoadInt64(&sm.sentFrames)
}

// refreshDemandLocked 重算需求并集并判断是否需要上线声明
// 返回需要发送的频道全集，nil 表示无需发送；调用方需持有 mu
func (sm *SubscriptionManager) refreshDemandLocked() []ChannelName {
	union := sm.computeUnionLocked()
	if channelsEqual(union, sm.lastSent) {
		return nil
	}
	if len(union) == 0 {
		// 空集不发帧：空订阅列表意味着什么都不要，而缺省才是全量广播
		sm.lastSent = nil
		return nil
	}
	sm.lastSent = union
	return union
}

// computeUnionLocked 计算所有消费者兴趣集合的有序并集，调用方需持有 mu
func (sm *SubscriptionManager) computeUnionLocked() []ChannelName {
	set := make(map[ChannelName]struct{})
	for _, channels := range sm.consumers {
		for ch := range channels {
			set[ch] = struct{}{}
		}
	}
	union := make([]ChannelName, 0, len(set))
	for ch := range set {
		union = append(union, ch)
	}
	sort.Slice(union, func(i, j int) bool { return union[i] < union[j] })
	return union
}

// sendFrame 将需求全集编码为订阅帧并发送
// 连接不可用时只记录，等待重连成功后的 Resend 补发
func (sm *SubscriptionManager) sendFrame(channels []ChannelName) {
	data, err := NewSubscribeFrame(channels).Encode()
	if err != nil {
		sm.logger.ErrorKV("订阅帧编码失败", "error", err)
		return
	}
	if err := sm.sender.SendTextMessage(string(data)); err != nil {
		sm.logger.DebugKV("订阅帧暂不可达，等待重连后补发", "error", err)
		return
	}
	atomic.AddInt64(&sm.sentFrames, 1)
	sm.stats.IncrementSubscribeFramesSent()
	sm.logger.InfoKV("已声明订阅需求", "channels", channelNames(channels))
}

// channelsEqual 判断两个有序频道列表是否相等
func channelsEqual(a, b []ChannelName) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// channelNames 频道列表转字符串切片，用于日志输出
func channelNames(channels []ChannelName) []string {
	names := make([]string, len(channels))
	for i, ch := range channels {
		names[i] = ch.String()
	}
	return names
}
