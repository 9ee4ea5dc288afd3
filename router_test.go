/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-22 14:08:40
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 17:02:18
 * @FilePath: \go-msc\router_test.go
 * @Description: 消息路由器测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectIDs 从通道按序收集 n 个信封ID
func collectIDs(t *testing.T, ch <-chan string, n int) []string {
	t.Helper()
	ids := make([]string, 0, n)
	for i := 0; i < n; i++ {
		select {
		case id := <-ch:
			ids = append(ids, id)
		case <-time.After(3 * time.Second):
			t.Fatalf("等待第 %d 个信封超时", i+1)
		}
	}
	return ids
}

// TestRouter_OrderedFanOut 测试广播顺序与到达顺序一致
func TestRouter_OrderedFanOut(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)
	got := make(chan string, 16)

	router.Subscribe(func(env *Envelope) {
		got <- env.ID
	})
	router.Start()
	defer router.Stop()

	frames := []string{
		`{"type":"metrics_update","id":"f1"}`,
		`{"type":"realtime_update","id":"f2"}`,
		`{"type":"session_event","id":"f3"}`,
		`{"type":"system_alert","id":"f4","alerts":[{"level":"info","type":"t","message":"m"}]}`,
	}
	for _, f := range frames {
		router.Dispatch([]byte(f))
	}

	ids := collectIDs(t, got, 4)
	assert.Equal(t, []string{"f1", "f2", "f3", "f4"}, ids, "交付顺序必须与到达顺序一致")
}

// TestRouter_TypeHandlerBeforeListener 测试类型处理器先于广播监听器调用
func TestRouter_TypeHandlerBeforeListener(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)
	got := make(chan string, 16)

	// 注册顺序故意与调用顺序相反
	router.Subscribe(func(env *Envelope) {
		got <- "listener:" + env.ID
	})
	router.Handle(MessageTypeMetricsUpdate, func(env *Envelope) {
		got <- "handler:" + env.ID
	})
	router.Start()
	defer router.Stop()

	router.Dispatch([]byte(`{"type":"metrics_update","id":"m1"}`))

	order := collectIDs(t, got, 2)
	assert.Equal(t, []string{"handler:m1", "listener:m1"}, order)

	// 其他类型不触发类型处理器，但广播监听器照常接收
	router.Dispatch([]byte(`{"type":"session_event","id":"s1"}`))
	order = collectIDs(t, got, 1)
	assert.Equal(t, []string{"listener:s1"}, order)
}

// TestRouter_MultipleTypeHandlers 测试同类型多处理器按注册顺序调用
func TestRouter_MultipleTypeHandlers(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)
	got := make(chan string, 16)

	for i := 0; i < 3; i++ {
		seq := i
		router.Handle(MessageTypeSystemAlert, func(env *Envelope) {
			got <- fmt.Sprintf("h%d", seq)
		})
	}
	router.Start()
	defer router.Stop()

	router.Dispatch([]byte(`{"type":"system_alert","id":"a1","alerts":[]}`))
	assert.Equal(t, []string{"h0", "h1", "h2"}, collectIDs(t, got, 3))
}

// TestRouter_MalformedFrameDropped 测试坏帧丢弃且不影响后续帧
func TestRouter_MalformedFrameDropped(t *testing.T) {
	stats := NewStreamStats()
	router := NewRouter(NoOpLoggerInstance, stats, 0, 0)
	got := make(chan string, 16)

	router.Subscribe(func(env *Envelope) {
		got <- env.ID
	})
	router.Start()
	defer router.Stop()

	router.Dispatch([]byte(`{broken`))
	router.Dispatch([]byte(`{"no_type":true}`))
	router.Dispatch([]byte(`{"type":"bogus_kind"}`))
	router.Dispatch([]byte(`{"type":"metrics_update","id":"ok1"}`))

	ids := collectIDs(t, got, 1)
	assert.Equal(t, []string{"ok1"}, ids, "只有合法帧应被交付")

	snapshot := stats.Snapshot()
	assert.Equal(t, int64(3), snapshot.MalformedFrames)
	assert.Equal(t, int64(1), snapshot.FramesReceived)
}

// TestRouter_HeartbeatFiltered 测试心跳帧不进入业务分发
func TestRouter_HeartbeatFiltered(t *testing.T) {
	stats := NewStreamStats()
	router := NewRouter(NoOpLoggerInstance, stats, 0, 0)
	got := make(chan string, 16)

	router.Subscribe(func(env *Envelope) {
		got <- env.ID
	})
	router.Start()
	defer router.Stop()

	_, ok := router.LastHeartbeat()
	assert.False(t, ok, "初始不存在心跳时间")

	router.Dispatch([]byte(`{"type":"heartbeat","timestamp":"2026-08-23T10:00:30Z"}`))
	router.Dispatch([]byte(`{"type":"metrics_update","id":"m1"}`))

	ids := collectIDs(t, got, 1)
	assert.Equal(t, []string{"m1"}, ids, "心跳不应被广播")

	last, ok := router.LastHeartbeat()
	assert.True(t, ok)
	assert.False(t, last.IsZero())

	snapshot := stats.Snapshot()
	assert.Equal(t, int64(1), snapshot.FramesByType[MessageTypeHeartbeat.String()])
}

// TestRouter_Unsubscribe 测试注销后不再接收且可重复调用
func TestRouter_Unsubscribe(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)
	got := make(chan string, 16)

	unsubscribe := router.Subscribe(func(env *Envelope) {
		got <- "a:" + env.ID
	})
	router.Subscribe(func(env *Envelope) {
		got <- "b:" + env.ID
	})
	assert.Equal(t, 2, router.ListenerCount())

	router.Start()
	defer router.Stop()

	router.Dispatch([]byte(`{"type":"metrics_update","id":"m1"}`))
	assert.ElementsMatch(t, []string{"a:m1", "b:m1"}, collectIDs(t, got, 2))

	unsubscribe()
	unsubscribe() // 重复注销安全
	assert.Equal(t, 1, router.ListenerCount())

	router.Dispatch([]byte(`{"type":"metrics_update","id":"m2"}`))
	assert.Equal(t, []string{"b:m2"}, collectIDs(t, got, 1))
}

// TestRouter_PanicIsolation 测试单个监听器 panic 不影响其他监听器
func TestRouter_PanicIsolation(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)
	got := make(chan string, 16)

	router.Subscribe(func(env *Envelope) {
		panic("监听器故障")
	})
	router.Subscribe(func(env *Envelope) {
		got <- env.ID
	})
	router.Start()
	defer router.Stop()

	router.Dispatch([]byte(`{"type":"metrics_update","id":"m1"}`))
	router.Dispatch([]byte(`{"type":"metrics_update","id":"m2"}`))

	assert.Equal(t, []string{"m1", "m2"}, collectIDs(t, got, 2))
}

// TestRouter_StopDrainsQueue 测试停止前排空队列
func TestRouter_StopDrainsQueue(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)
	got := make(chan string, 32)

	router.Subscribe(func(env *Envelope) {
		got <- env.ID
	})

	// 先入队再启动,确保 Stop 时队列非空
	for i := 0; i < 10; i++ {
		router.Dispatch([]byte(fmt.Sprintf(`{"type":"metrics_update","id":"m%d"}`, i)))
	}
	router.Start()
	router.Stop()

	require.Len(t, got, 10, "Stop 返回时所有存量信封应已交付")
	for i := 0; i < 10; i++ {
		assert.Equal(t, fmt.Sprintf("m%d", i), <-got)
	}
}

// TestRouter_NilHandlerIgnored 测试空处理器注册被忽略
func TestRouter_NilHandlerIgnored(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 0, 0)

	unsubscribe := router.Subscribe(nil)
	assert.NotNil(t, unsubscribe)
	unsubscribe()
	assert.Equal(t, 0, router.ListenerCount())

	router.Handle(MessageTypeMetricsUpdate, nil)
	router.Start()
	router.Stop()
}

// TestRouter_QueueStats 测试路由器暴露队列统计
func TestRouter_QueueStats(t *testing.T) {
	router := NewRouter(NoOpLoggerInstance, nil, 16, 128)

	stats := router.QueueStats()
	assert.Equal(t, 16, stats["minCapacity"])
	assert.Equal(t, 128, stats["maxCapacity"])
}
