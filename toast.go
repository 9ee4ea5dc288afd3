/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-19 09:21:15
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 11:36:02
 * @FilePath: \go-msc\toast.go
 * @Description: 弹出通知展示器，负责可见队列与生命周期定时器
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/kamalyes/go-toolbox/pkg/syncx"
)

// ToastEntry 弹出通知条目
// Record 为源告警记录的独立副本，状态由内部状态机驱动
type ToastEntry struct {
	ID        string       `json:"id"`         // 同源告警记录ID
	Record    *AlertRecord `json:"record"`     // 源记录副本
	CreatedAt time.Time    `json:"created_at"` // 创建时间

	state *syncx.StateMachine[ToastState] // 生命周期状态机
}

// State 返回条目当前状态
func (t *ToastEntry) State() ToastState {
	return t.state.CurrentState()
}

// toastTimers 单个条目的生命周期定时器
type toastTimers struct {
	dismiss *time.Timer // 自动关闭定时器
	fade    *time.Timer // 淡出完成定时器
}

// newToastStateMachine 创建弹出通知状态机
// 生命周期单向推进：pending → visible → fading → removed
func newToastStateMachine() *syncx.StateMachine[ToastState] {
	sm := syncx.NewStateMachine(ToastStatePending)
	sm.AllowTransitions(ToastStatePending, ToastStateVisible)
	sm.AllowTransitions(ToastStateVisible, ToastStateFading)
	sm.AllowTransitions(ToastStateFading, ToastStateRemoved)
	return sm
}

// ToastPresenter 弹出通知展示器
// 可见条目数受容量限制，超出时最旧的可见条目走淡出路径退场
// 手动关闭与自动关闭竞争时由状态机裁决，败者静默退出
type ToastPresenter struct {
	mu      sync.RWMutex            // 读写锁
	entries []*ToastEntry           // 活跃条目，最新在前
	timers  map[string]*toastTimers // 条目ID到定时器的映射
	seen    map[string]struct{}     // 展示过的记录ID，已移除的ID不再复用
	stopped bool                    // 停止标志

	maxVisible   int           // 最大可见条目数
	autoDismiss  time.Duration // 可见阶段时长
	fadeDuration time.Duration // 淡出阶段时长

	logger MSCLogger // 日志记录器

	onShow        atomic.Value // func(*ToastEntry) 条目可见回调
	onRemove      atomic.Value // func(string) 条目移除回调
	onOpenHistory atomic.Value // func(string) 点击打开历史回调
}

// NewToastPresenter 创建弹出通知展示器
func NewToastPresenter(opts *Options, l MSCLogger) *ToastPresenter {
	if opts == nil {
		opts = NewDefaultOptions()
	}
	opts = normalizeOptions(opts)
	if l == nil {
		l = DefaultLogger
	}
	return &ToastPresenter{
		timers:       make(map[string]*toastTimers),
		seen:         make(map[string]struct{}),
		maxVisible:   opts.MaxVisibleToasts,
		autoDismiss:  opts.ToastAutoDismiss,
		fadeDuration: opts.ToastFadeDuration,
		logger:       l,
	}
}

// OnShow 设置条目可见回调
func (tp *ToastPresenter) OnShow(f func(entry *ToastEntry)) {
	if f != nil {
		tp.onShow.Store(f)
	}
}

// HasShowCallback 检查是否设置了可见回调
func (tp *ToastPresenter) HasShowCallback() bool {
	return tp.onShow.Load() != nil
}

// OnRemove 设置条目移除回调
func (tp *ToastPresenter) OnRemove(f func(id string)) {
	if f != nil {
		tp.onRemove.Store(f)
	}
}

// HasRemoveCallback 检查是否设置了移除回调
func (tp *ToastPresenter) HasRemoveCallback() bool {
	return tp.onRemove.Load() != nil
}

// OnOpenHistory 设置点击打开历史回调
func (tp *ToastPresenter) OnOpenHistory(f func(id string)) {
	if f != nil {
		tp.onOpenHistory.Store(f)
	}
}

// HasOpenHistoryCallback 检查是否设置了打开历史回调
func (tp *ToastPresenter) HasOpenHistoryCallback() bool {
	return tp.onOpenHistory.Load() != nil
}

// Present 为告警记录创建弹出通知
// 新条目立即可见并头插到队列，超出容量时最旧的可见条目进入淡出
// 同一记录ID只展示一次，重复展示与已停止状态下返回 nil
func (tp *ToastPresenter) Present(record *AlertRecord) *ToastEntry {
	if record == nil || record.ID == "" {
		return nil
	}

	tp.mu.Lock()
	if tp.stopped {
		tp.mu.Unlock()
		return nil
	}
	if _, dup := tp.seen[record.ID]; dup {
		tp.mu.Unlock()
		return nil
	}
	tp.seen[record.ID] = struct{}{}

	entry := &ToastEntry{
		ID:        record.ID,
		Record:    cloneAlertRecord(record),
		CreatedAt: time.Now(),
		state:     newToastStateMachine(),
	}
	if err := entry.state.TransitionTo(ToastStateVisible); err != nil {
		tp.mu.Unlock()
		return nil
	}
	tp.entries = append([]*ToastEntry{entry}, tp.entries...)
	tp.timers[entry.ID] = &toastTimers{}

	// 容量裁决：最旧的可见条目让位，但仍走完整淡出路径
	tp.evictOverflowLocked()

	// 自动关闭与手动关闭共用同一条淡出路径
	id := entry.ID
	tp.timers[id].dismiss = time.AfterFunc(tp.autoDismiss, func() {
		tp.Dismiss(id)
	})
	tp.mu.Unlock()

	if f := tp.onShow.Load(); f != nil {
		f.(func(*ToastEntry))(entry)
	}
	return entry
}

// Dismiss 关闭指定条目
// 幂等：手动关闭与自动关闭定时器竞争时，状态机保证只有一方生效
// 未知ID或已移除的条目为空操作
func (tp *ToastPresenter) Dismiss(id string) bool {
	tp.mu.Lock()
	if tp.stopped {
		tp.mu.Unlock()
		return false
	}
	entry := tp.findLocked(id)
	if entry == nil {
		tp.mu.Unlock()
		return false
	}
	if err := entry.state.TransitionTo(ToastStateFading); err != nil {
		// 已在淡出或已移除，竞争败者静默退出
		tp.mu.Unlock()
		return false
	}
	if t := tp.timers[id]; t != nil && t.dismiss != nil {
		t.dismiss.Stop()
		t.dismiss = nil
	}
	tp.scheduleFadeLocked(entry)
	tp.mu.Unlock()
	return true
}

// Click 处理条目点击
// 先触发打开历史回调，随后关闭该条目
func (tp *ToastPresenter) Click(id string) bool {
	tp.mu.RLock()
	entry := tp.findLocked(id)
	ok := entry != nil && entry.State() != ToastStateRemoved && !tp.stopped
	tp.mu.RUnlock()
	if !ok {
		return false
	}

	if f := tp.onOpenHistory.Load(); f != nil {
		f.(func(string))(id)
	}
	tp.Dismiss(id)
	return true
}

// Visible 返回当前可见条目的快照（从新到旧）
// 淡出中的条目不计入可见集合
func (tp *ToastPresenter) Visible() []*ToastEntry {
	tp.mu.RLock()
	defer tp.mu.RUnlock()

	visible := make([]*ToastEntry, 0, tp.maxVisible)
	for _, entry := range tp.entries {
		if entry.State() == ToastStateVisible {
			visible = append(visible, &ToastEntry{
				ID:        entry.ID,
				Record:    cloneAlertRecord(entry.Record),
				CreatedAt: entry.CreatedAt,
				state:     entry.state,
			})
		}
	}
	return visible
}

// ActiveCount 返回未移除的条目数（含淡出中）
func (tp *ToastPresenter) ActiveCount() int {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return len(tp.entries)
}

// VisibleCount 返回可见条目数
func (tp *ToastPresenter) VisibleCount() int {
	tp.mu.RLock()
	defer tp.mu.RUnlock()
	return tp.countVisibleLocked()
}

// Statistics 获取统计信息
func (tp *ToastPresenter) Statistics() map[string]int {
	tp.mu.RLock()
	defer tp.mu.RUnlock()

	stats := map[string]int{
		"active":  len(tp.entries),
		"visible": 0,
		"fading":  0,
		"seen":    len(tp.seen),
	}
	for _, entry := range tp.entries {
		switch entry.State() {
		case ToastStateVisible:
			stats["visible"]++
		case ToastStateFading:
			stats["fading"]++
		}
	}
	return stats
}

// Stop 停止展示器并取消全部未触发的定时器
// 停止后 Present/Dismiss/Click 均为空操作
func (tp *ToastPresenter) Stop() {
	tp.mu.Lock()
	defer tp.mu.Unlock()

	if tp.stopped {
		return
	}
	tp.stopped = true
	for id, t := range tp.timers {
		if t.dismiss != nil {
			t.dismiss.Stop()
		}
		if t.fade != nil {
			t.fade.Stop()
		}
		delete(tp.timers, id)
	}
}

// evictOverflowLocked 将超出容量的最旧可见条目送入淡出，调用方需持有 mu
func (tp *ToastPresenter) evictOverflowLocked() {
	for tp.countVisibleLocked() > tp.maxVisible {
		oldest := tp.oldestVisibleLocked()
		if oldest == nil {
			return
		}
		if err := oldest.state.TransitionTo(ToastStateFading); err != nil {
			return
		}
		if t := tp.timers[oldest.ID]; t != nil && t.dismiss != nil {
			t.dismiss.Stop()
			t.dismiss = nil
		}
		tp.scheduleFadeLocked(oldest)
	}
}

// scheduleFadeLocked 安排淡出完成后的移除，调用方需持有 mu
func (tp *ToastPresenter) scheduleFadeLocked(entry *ToastEntry) {
	id := entry.ID
	t := tp.timers[id]
	if t == nil {
		t = &toastTimers{}
		tp.timers[id] = t
	}
	t.fade = time.AfterFunc(tp.fadeDuration, func() {
		tp.finishRemove(id)
	})
}

// finishRemove 淡出结束后将条目移出队列
func (tp *ToastPresenter) finishRemove(id string) {
	tp.mu.Lock()
	if tp.stopped {
		tp.mu.Unlock()
		return
	}
	entry := tp.findLocked(id)
	if entry == nil {
		tp.mu.Unlock()
		return
	}
	if err := entry.state.TransitionTo(ToastStateRemoved); err != nil {
		tp.mu.Unlock()
		return
	}
	for i, e := range tp.entries {
		if e.ID == id {
			tp.entries = append(tp.entries[:i], tp.entries[i+1:]...)
			break
		}
	}
	if t := tp.timers[id]; t != nil {
		if t.dismiss != nil {
			t.dismiss.Stop()
		}
		if t.fade != nil {
			t.fade.Stop()
		}
		delete(tp.timers, id)
	}
	tp.mu.Unlock()

	if f := tp.onRemove.Load(); f != nil {
		f.(func(string))(id)
	}
}

// findLocked 按ID查找条目，调用方需持有 mu
func (tp *ToastPresenter) findLocked(id string) *ToastEntry {
	for _, entry := range tp.entries {
		if entry.ID == id {
			return entry
		}
	}
	return nil
}

// countVisibleLocked 统计可见条目数，调用方需持有 mu
func (tp *ToastPresenter) countVisibleLocked() int {
	count := 0
	for _, entry := range tp.entries {
		if entry.State() == ToastStateVisible {
			count++
		}
	}
	return count
}

// oldestVisibleLocked 返回最旧的可见条目，调用方需持有 mu
// 队列最新在前，从尾部向前找第一个可见条目
func (tp *ToastPresenter) oldestVisibleLocked() *ToastEntry {
	for i := len(tp.entries) - 1; i >= 0; i-- {
		if tp.entries[i].State() == ToastStateVisible {
			return tp.entries[i]
		}
	}
	return nil
}
