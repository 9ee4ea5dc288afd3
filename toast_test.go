/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-25 15:02:48
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-24 10:26:55
 * @FilePath: \go-msc\toast_test.go
 * @Description: 弹出通知展示器测试
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testToastOptions 返回便于测试的短定时器配置
func testToastOptions(maxVisible int) *Options {
	return NewDefaultOptions().
		WithMaxVisibleToasts(maxVisible).
		WithToastAutoDismiss(80 * time.Millisecond).
		WithToastFadeDuration(20 * time.Millisecond)
}

// testRecord 构造一条用于展示的告警记录
func testRecord(id string) *AlertRecord {
	return &AlertRecord{
		ID:        id,
		Timestamp: time.Now(),
		Items:     []AlertItem{{Level: AlertLevelWarning, Type: "high_cpu", Message: "m"}},
	}
}

// removeCollector 收集移除回调，用于核对移除只发生一次
type removeCollector struct {
	mu      sync.Mutex
	removed []string
}

func (rc *removeCollector) attach(tp *ToastPresenter) {
	tp.OnRemove(func(id string) {
		rc.mu.Lock()
		rc.removed = append(rc.removed, id)
		rc.mu.Unlock()
	})
}

func (rc *removeCollector) Removed() []string {
	rc.mu.Lock()
	defer rc.mu.Unlock()
	return append([]string(nil), rc.removed...)
}

// waitFor 轮询等待条件成立
func waitFor(t *testing.T, timeout time.Duration, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal(msg)
}

// TestToastPresenter_CapInvariant 测试可见条目数受容量约束
// 快速连续展示5条记录，任一时刻可见条目不超过3
func TestToastPresenter_CapInvariant(t *testing.T) {
	// 关闭自动消失干扰，只验证容量裁决
	opts := NewDefaultOptions().
		WithMaxVisibleToasts(3).
		WithToastAutoDismiss(time.Minute).
		WithToastFadeDuration(time.Minute)
	tp := NewToastPresenter(opts, NoOpLoggerInstance)
	defer tp.Stop()

	for i := 0; i < 5; i++ {
		entry := tp.Present(testRecord(fmt.Sprintf("cap_%d", i)))
		require.NotNil(t, entry)
		assert.LessOrEqual(t, tp.VisibleCount(), 3, "可见条目数任一时刻不得超过上限")
	}

	assert.Equal(t, 3, tp.VisibleCount())
	// 被挤出的两条走淡出路径而不是消失
	assert.Equal(t, 5, tp.ActiveCount())

	// 留下的应是最新的三条
	visible := tp.Visible()
	require.Len(t, visible, 3)
	assert.Equal(t, "cap_4", visible[0].ID)
	assert.Equal(t, "cap_3", visible[1].ID)
	assert.Equal(t, "cap_2", visible[2].ID)
}

// TestToastPresenter_AutoDismissLifecycle 测试自动消失的完整生命周期
func TestToastPresenter_AutoDismissLifecycle(t *testing.T) {
	tp := NewToastPresenter(testToastOptions(3), NoOpLoggerInstance)
	defer tp.Stop()
	rc := &removeCollector{}
	rc.attach(tp)

	entry := tp.Present(testRecord("auto"))
	require.NotNil(t, entry)
	assert.Equal(t, ToastStateVisible, entry.State())

	waitFor(t, 2*time.Second, func() bool {
		return tp.ActiveCount() == 0
	}, "自动消失后条目应被移出队列")

	assert.Equal(t, ToastStateRemoved, entry.State())
	assert.Equal(t, []string{"auto"}, rc.Removed())
}

// TestToastPresenter_DismissIdempotent 测试重复关闭为空操作
func TestToastPresenter_DismissIdempotent(t *testing.T) {
	tp := NewToastPresenter(testToastOptions(3), NoOpLoggerInstance)
	defer tp.Stop()
	rc := &removeCollector{}
	rc.attach(tp)

	entry := tp.Present(testRecord("dup"))
	require.NotNil(t, entry)

	assert.True(t, tp.Dismiss("dup"))
	assert.False(t, tp.Dismiss("dup"), "第二次关闭必须是安全的空操作")

	waitFor(t, 2*time.Second, func() bool {
		return tp.ActiveCount() == 0
	}, "关闭后条目应最终被移除")
	assert.Equal(t, []string{"dup"}, rc.Removed(), "移除只能发生一次")

	// 已移除的ID继续关闭仍为空操作
	assert.False(t, tp.Dismiss("dup"))
	// 未知ID同样为空操作
	assert.False(t, tp.Dismiss("ghost"))
}

// TestToastPresenter_ManualRacesAutoDismiss 测试手动关闭与自动关闭竞争
// 状态机裁决：先到者生效，败者静默退出，移除恰好一次
func TestToastPresenter_ManualRacesAutoDismiss(t *testing.T) {
	opts := NewDefaultOptions().
		WithMaxVisibleToasts(3).
		WithToastAutoDismiss(10 * time.Millisecond).
		WithToastFadeDuration(10 * time.Millisecond)
	tp := NewToastPresenter(opts, NoOpLoggerInstance)
	defer tp.Stop()

	var removals int64
	tp.OnRemove(func(id string) {
		atomic.AddInt64(&removals, 1)
	})

	for i := 0; i < 20; i++ {
		id := fmt.Sprintf("race_%d", i)
		require.NotNil(t, tp.Present(testRecord(id)))
		// 与10ms的自动关闭定时器抢跑
		time.Sleep(time.Duration(i%3) * 5 * time.Millisecond)
		tp.Dismiss(id)
	}

	waitFor(t, 3*time.Second, func() bool {
		return tp.ActiveCount() == 0
	}, "所有条目都应最终被移除")
	assert.Equal(t, int64(20), atomic.LoadInt64(&removals), "每个条目的移除必须恰好一次")
}

// TestToastPresenter_Click 测试点击打开历史并关闭通知
func TestToastPresenter_Click(t *testing.T) {
	tp := NewToastPresenter(testToastOptions(3), NoOpLoggerInstance)
	defer tp.Stop()

	var opened []string
	var mu sync.Mutex
	tp.OnOpenHistory(func(id string) {
		mu.Lock()
		opened = append(opened, id)
		mu.Unlock()
	})

	require.NotNil(t, tp.Present(testRecord("click")))
	assert.True(t, tp.Click("click"))

	mu.Lock()
	assert.Equal(t, []string{"click"}, opened)
	mu.Unlock()

	// 点击后条目进入淡出，不再可见
	assert.Equal(t, 0, tp.VisibleCount())
	// 已关闭的条目再次点击为空操作
	waitFor(t, 2*time.Second, func() bool { return tp.ActiveCount() == 0 }, "点击后条目应被移除")
	assert.False(t, tp.Click("click"))
	assert.False(t, tp.Click("ghost"))
}

// TestToastPresenter_RemovedIDNeverReused 测试已展示的记录ID不再复用
func TestToastPresenter_RemovedIDNeverReused(t *testing.T) {
	tp := NewToastPresenter(testToastOptions(3), NoOpLoggerInstance)
	defer tp.Stop()

	record := testRecord("once")
	require.NotNil(t, tp.Present(record))
	assert.Nil(t, tp.Present(record), "同一记录重复展示应被抑制")

	tp.Dismiss("once")
	waitFor(t, 2*time.Second, func() bool { return tp.ActiveCount() == 0 }, "条目应被移除")

	assert.Nil(t, tp.Present(record), "已移除的ID不得重新进入展示")
}

// TestToastPresenter_StopCancelsTimers 测试停止后取消全部定时器
func TestToastPresenter_StopCancelsTimers(t *testing.T) {
	tp := NewToastPresenter(testToastOptions(3), NoOpLoggerInstance)
	rc := &removeCollector{}
	rc.attach(tp)

	require.NotNil(t, tp.Present(testRecord("stopped")))
	tp.Stop()

	// 等待超过自动消失周期，定时器不得再触发
	time.Sleep(200 * time.Millisecond)
	assert.Empty(t, rc.Removed(), "停止后不允许任何定时器动作")

	assert.Nil(t, tp.Present(testRecord("after-stop")))
	assert.False(t, tp.Dismiss("stopped"))

	// 重复停止为空操作
	tp.Stop()
}

// TestToastPresenter_Statistics 测试统计信息
func TestToastPresenter_Statistics(t *testing.T) {
	opts := NewDefaultOptions().
		WithMaxVisibleToasts(2).
		WithToastAutoDismiss(time.Minute).
		WithToastFadeDuration(time.Minute)
	tp := NewToastPresenter(opts, NoOpLoggerInstance)
	defer tp.Stop()

	tp.Present(testRecord("s1"))
	tp.Present(testRecord("s2"))
	tp.Present(testRecord("s3"))

	stats := tp.Statistics()
	assert.Equal(t, 3, stats["active"])
	assert.Equal(t, 2, stats["visible"])
	assert.Equal(t, 1, stats["fading"])
	assert.Equal(t, 3, stats["seen"])
}

// TestToastPresenter_NilAndInvalidInput 测试非法入参
func TestToastPresenter_NilAndInvalidInput(t *testing.T) {
	tp := NewToastPresenter(testToastOptions(3), NoOpLoggerInstance)
	defer tp.Stop()

	assert.Nil(t, tp.Present(nil))
	assert.Nil(t, tp.Present(&AlertRecord{ID: ""}))
	assert.Equal(t, 0, tp.ActiveCount())
}
