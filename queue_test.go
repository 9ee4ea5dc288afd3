/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 11:02:15
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 16:45:27
 * @FilePath: \go-msc\queue_test.go
 * @Description: 分发队列测试
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

func makeTestEnvelope(seq int) *Envelope {
	return &Envelope{
		Type:       MessageTypeMetricsUpdate,
		ID:         fmt.Sprintf("env-%d", seq),
		ReceivedAt: time.Now(),
	}
}

// TestDispatchQueue_FIFO 测试队列先进先出语义
func TestDispatchQueue_FIFO(t *testing.T) {
	q := NewDispatchQueue(4, 64)

	for i := 0; i < 10; i++ {
		require.NoError(t, q.Push(makeTestEnvelope(i)))
	}
	assert.Equal(t, 10, q.Len())

	for i := 0; i < 10; i++ {
		env, err := q.Pop()
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("env-%d", i), env.ID, "信封应按到达顺序出队")
	}
	assert.Equal(t, 0, q.Len())
}

// TestDispatchQueue_AutoGrowth 测试队列满时自动扩容
func TestDispatchQueue_AutoGrowth(t *testing.T) {
	q := NewDispatchQueue(4, 64)
	assert.Equal(t, 4, q.Cap())

	// 推入超过初始容量的信封
	for i := 0; i < 20; i++ {
		require.NoError(t, q.Push(makeTestEnvelope(i)))
	}

	assert.Greater(t, q.Cap(), 4, "容量应已扩大")
	assert.Equal(t, 20, q.Len())

	stats := q.Stats()
	assert.Greater(t, stats["resizeCount"].(int64), int64(0))

	// 扩容后顺序不变
	env, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "env-0", env.ID)
}

// TestDispatchQueue_Shrink 测试低水位时自动缩容
func TestDispatchQueue_Shrink(t *testing.T) {
	q := NewDispatchQueue(4, 256)

	for i := 0; i < 100; i++ {
		require.NoError(t, q.Push(makeTestEnvelope(i)))
	}
	grownCap := q.Cap()
	assert.Greater(t, grownCap, 4)

	// 消费到低水位触发缩容
	for i := 0; i < 100; i++ {
		_, err := q.Pop()
		require.NoError(t, err)
	}

	assert.Less(t, q.Cap(), grownCap, "空闲队列应已缩容")
	stats := q.Stats()
	assert.Greater(t, stats["shrinkCount"].(int64), int64(0))
}

// TestDispatchQueue_FullWithoutResize 测试关闭自动扩容后队列满返回错误
func TestDispatchQueue_FullWithoutResize(t *testing.T) {
	q := NewDispatchQueue(2, 64)
	q.SetAutoResize(false)

	require.NoError(t, q.Push(makeTestEnvelope(0)))
	require.NoError(t, q.Push(makeTestEnvelope(1)))

	err := q.Push(makeTestEnvelope(2))
	assert.ErrorIs(t, err, ErrDispatchQueueFull)
	assert.True(t, IsBufferFullError(err))
}

// TestDispatchQueue_TryPop 测试非阻塞出队
func TestDispatchQueue_TryPop(t *testing.T) {
	q := NewDispatchQueue(4, 64)

	env, ok := q.TryPop()
	assert.False(t, ok)
	assert.Nil(t, env)

	require.NoError(t, q.Push(makeTestEnvelope(7)))
	env, ok = q.TryPop()
	assert.True(t, ok)
	assert.Equal(t, "env-7", env.ID)
}

// TestDispatchQueue_BlockedPopWake 测试阻塞消费者被新信封唤醒
func TestDispatchQueue_BlockedPopWake(t *testing.T) {
	q := NewDispatchQueue(4, 64)
	got := make(chan *Envelope, 1)

	go func() {
		env, err := q.Pop()
		if err == nil {
			got <- env
		}
	}()

	// 给消费者时间进入等待
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, q.Push(makeTestEnvelope(42)))

	select {
	case env := <-got:
		assert.Equal(t, "env-42", env.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("阻塞的 Pop 未被唤醒")
	}
}

// TestDispatchQueue_CloseDrainsThenErrors 测试关闭后先清空再报错
func TestDispatchQueue_CloseDrainsThenErrors(t *testing.T) {
	q := NewDispatchQueue(4, 64)
	require.NoError(t, q.Push(makeTestEnvelope(0)))
	require.NoError(t, q.Push(makeTestEnvelope(1)))

	q.Close()
	assert.True(t, q.IsClosed())

	// 关闭后拒绝新信封
	err := q.Push(makeTestEnvelope(2))
	assert.ErrorIs(t, err, ErrDispatchQueueClosed)

	// 存量信封仍可取出
	env, err := q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "env-0", env.ID)
	env, err = q.Pop()
	require.NoError(t, err)
	assert.Equal(t, "env-1", env.ID)

	// 清空后返回关闭错误
	_, err = q.Pop()
	assert.ErrorIs(t, err, ErrDispatchQueueClosed)
}

// TestDispatchQueue_CloseWakesBlockedPop 测试关闭唤醒阻塞中的消费者
func TestDispatchQueue_CloseWakesBlockedPop(t *testing.T) {
	q := NewDispatchQueue(4, 64)
	done := make(chan error, 1)

	go func() {
		_, err := q.Pop()
		done <- err
	}()

	time.Sleep(50 * time.Millisecond)
	q.Close()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, ErrDispatchQueueClosed)
	case <-time.After(2 * time.Second):
		t.Fatal("关闭未唤醒阻塞的 Pop")
	}
}

// TestDispatchQueue_Defaults 测试非法参数回退默认容量
func TestDispatchQueue_Defaults(t *testing.T) {
	q := NewDispatchQueue(0, 0)
	assert.Equal(t, DefaultDispatchQueueMin, q.Cap())

	stats := q.Stats()
	assert.Equal(t, DefaultDispatchQueueMin, stats["minCapacity"])
	assert.Equal(t, DefaultDispatchQueueMax, stats["maxCapacity"])

	// min 大于 max 时收敛到 max
	q2 := NewDispatchQueue(100, 10)
	assert.Equal(t, 10, q2.Cap())
}

// TestDispatchQueue_Stats 测试统计信息字段
func TestDispatchQueue_Stats(t *testing.T) {
	q := NewDispatchQueue(8, 64)
	require.NoError(t, q.Push(makeTestEnvelope(0)))
	require.NoError(t, q.Push(makeTestEnvelope(1)))

	stats := q.Stats()
	assert.Equal(t, int64(2), stats["length"])
	assert.Equal(t, 8, stats["capacity"])
	assert.Equal(t, true, stats["autoResize"])
	assert.Equal(t, false, stats["closed"])
	assert.InDelta(t, 25.0, stats["utilization"].(float64), 0.001)
}
