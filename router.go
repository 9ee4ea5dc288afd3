/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:47:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-22 15:44:10
 * @FilePath: \go-msc\router.go
 * @Description: 入站消息路由与有序广播
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"sync"
	"sync/atomic"
	"time"
)

// EnvelopeHandler 信封处理函数
type EnvelopeHandler func(env *Envelope)

// frameListenerEntry 已注册的广播监听器及其注册序号
type frameListenerEntry struct {
	id uint64
	fn EnvelopeHandler
}

// Router 入站消息路由器
// 单一分发协程从队列顺序取信封，保证所有消费者观察到的顺序与到达顺序一致
type Router struct {
	queue  *DispatchQueue // 有序分发队列
	logger MSCLogger      // 日志记录器
	stats  *StreamStats   // 流统计收集器

	mu           sync.RWMutex                      // 保护注册表
	listenerSeq  uint64                            // 监听器注册序号
	listeners    []frameListenerEntry              // 按注册顺序排列的广播监听器
	typeHandlers map[MessageType][]EnvelopeHandler // 按消息类型分组的处理器

	lastHeartbeat atomic.Value // 最近一次服务端心跳时间 time.Time

	startOnce sync.Once // 分发协程只启动一次
	stopOnce  sync.Once // 队列只关闭一次
	done      chan struct{}
}

// NewRouter 创建消息路由器
// 参数 minCap/maxCap: 分发队列的容量区间，非正值使用默认值
func NewRouter(l MSCLogger, stats *StreamStats, minCap, maxCap int) *Router {
	if l == nil {
		l = DefaultLogger
	}
	if stats == nil {
		stats = NewStreamStats()
	}
	return &Router{
		queue:        NewDispatchQueue(minCap, maxCap),
		logger:       l,
		stats:        stats,
		typeHandlers: make(map[MessageType][]EnvelopeHandler),
		done:         make(chan struct{}),
	}
}

// Start 启动分发协程
func (r *Router) Start() {
	r.startOnce.Do(func() {
		go r.dispatchLoop()
	})
}

// Stop 关闭路由器
// 队列中剩余的信封会被继续分发完再退出
func (r *Router) Stop() {
	r.stopOnce.Do(func() {
		r.queue.Close()
		<-r.done
	})
}

// Dispatch 处理一条原始入站帧
// 坏帧（非法JSON、缺失或未知type）记录日志后丢弃，绝不向调用方传播错误
// 心跳帧只刷新活性时间戳，不进入分发队列
func (r *Router) Dispatch(raw []byte) {
	env, err := ParseEnvelope(raw)
	if err != nil {
		r.stats.IncrementMalformedFrames()
		r.logger.WarnKV("丢弃无法解析的入站帧", "error", err, "frame", frameSnippet(raw))
		return
	}

	r.stats.IncrementFrameReceived(env.Type)

	if env.IsHeartbeat() {
		r.lastHeartbeat.Store(env.ReceivedAt)
		return
	}

	if err := r.queue.Push(env); err != nil {
		r.logger.ErrorKV("分发队列拒绝信封", "type", env.Type.String(), "error", err)
	}
}

// Handle 注册指定消息类型的处理器
// 同一类型可注册多个处理器，按注册顺序调用
func (r *Router) Handle(t MessageType, h EnvelopeHandler) {
	if h == nil {
		return
	}
	r.mu.Lock()
	r.typeHandlers[t] = append(r.typeHandlers[t], h)
	r.mu.Unlock()
}

// Subscribe 注册广播监听器，接收除心跳外的所有信封
// 返回的注销句柄可安全地多次调用
func (r *Router) Subscribe(fn EnvelopeHandler) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	r.mu.Lock()
	r.listenerSeq++
	id := r.listenerSeq
	r.listeners = append(r.listeners, frameListenerEntry{id: id, fn: fn})
	r.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			r.mu.Lock()
			for i, entry := range r.listeners {
				if entry.id == id {
					r.listeners = append(r.listeners[:i], r.listeners[i+1:]...)
					break
				}
			}
			r.mu.Unlock()
		})
	}
}

// ListenerCount 返回当前注册的广播监听器数量
func (r *Router) ListenerCount() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.listeners)
}

// LastHeartbeat 返回最近一次收到服务端心跳的时间
func (r *Router) LastHeartbeat() (time.Time, bool) {
	if v := r.lastHeartbeat.Load(); v != nil {
		return v.(time.Time), true
	}
	return time.Time{}, false
}

// QueueStats 返回分发队列统计信息
func (r *Router) QueueStats() map[string]interface{} {
	return r.queue.Stats()
}

// dispatchLoop 分发协程主循环
// 队列关闭且排空后退出
func (r *Router) dispatchLoop() {
	defer close(r.done)
	for {
		env, err := r.queue.Pop()
		if err != nil {
			return
		}
		r.deliver(env)
	}
}

// deliver 将信封投递给类型处理器与广播监听器
// 持锁期间仅复制注册表引用，调用发生在锁外
func (r *Router) deliver(env *Envelope) {
	r.mu.RLock()
	handlers := append([]EnvelopeHandler(nil), r.typeHandlers[env.Type]...)
	listeners := make([]frameListenerEntry, len(r.listeners))
	copy(listeners, r.listeners)
	r.mu.RUnlock()

	for _, h := range handlers {
		r.safeInvoke(h, env)
	}
	for _, entry := range listeners {
		r.safeInvoke(entry.fn, env)
	}
	r.stats.IncrementFannedOut()
}

// safeInvoke 调用单个处理器，panic 不影响后续处理器
func (r *Router) safeInvoke(h EnvelopeHandler, env *Envelope) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.ErrorKV("消息监听器 panic", "type", env.Type.String(), "panic", rec)
		}
	}()
	h(env)
}

// frameSnippet 截取帧内容片段用于日志
func frameSnippet(raw []byte) string {
	const maxLen = 128
	if len(raw) <= maxLen {
		return string(raw)
	}
	return string(raw[:maxLen]) + "..."
}
