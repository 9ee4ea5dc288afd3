/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-20 09:10:08
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-23 14:22:19
 * @FilePath: \go-msc\monitor.go
 * @Description: 监控流门面，组装传输、路由、订阅、历史与展示
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"sync"

	wscconfig "github.com/kamalyes/go-config/pkg/wsc"
)

// monitorConsumerID 门面自身注册订阅需求时使用的消费者ID
const monitorConsumerID = "monitor"

// presenterBridge 把告警入库流桥接到弹出通知展示器
type presenterBridge struct {
	presenter *ToastPresenter
}

func (b *presenterBridge) OnRecordInserted(record *AlertRecord) {
	b.presenter.Present(record)
}

func (b *presenterBridge) OnAllRead(count int) {}

func (b *presenterBridge) OnCleared(count int) {}

// Monitor 监控流门面
// 将传输通道、消息路由、订阅管理、告警历史、弹出通知与频道快照
// 组装为单一入口；每个应用持有一个实例，按引用注入
type Monitor struct {
	client    *Msc                 // 传输通道与连接督导
	router    *Router              // 入站消息路由
	store     *AlertStore          // 告警历史存储
	presenter *ToastPresenter      // 弹出通知展示器
	board     *SnapshotBoard       // 频道快照看板
	subs      *SubscriptionManager // 订阅管理器

	opts   *Options  // 运行选项
	logger MSCLogger // 日志记录器

	mu          sync.Mutex // 生命周期锁
	started     bool       // 启动标志
	stopped     bool       // 停止标志
	statusUnsub func()     // 状态监听退订句柄
}

// NewMonitor 创建监控流门面
func NewMonitor(url string) *Monitor {
	m := &Monitor{
		client: New(url),
		opts:   NewDefaultOptions(),
	}
	m.buildComponents()
	return m
}

// WithConfig 设置传输层配置，需在 Start 之前调用
func (m *Monitor) WithConfig(config *wscconfig.WSC) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.resolveLogger().Warn("门面已启动，忽略配置变更")
		return m
	}
	m.client.SetConfig(config)
	m.buildComponents()
	return m
}

// WithOptions 设置运行选项，需在 Start 之前调用
func (m *Monitor) WithOptions(options *Options) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.resolveLogger().Warn("门面已启动，忽略选项变更")
		return m
	}
	m.opts = normalizeOptions(options)
	m.client.SetOptions(m.opts)
	m.buildComponents()
	return m
}

// WithLogger 设置日志器，需在 Start 之前调用
func (m *Monitor) WithLogger(l MSCLogger) *Monitor {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.resolveLogger().Warn("门面已启动，忽略日志器变更")
		return m
	}
	m.logger = l
	m.client.SetLogger(l)
	m.buildComponents()
	return m
}

// buildComponents 按当前配置重建各组件
// 仅在 Start 前调用，Start 时完成组件间接线
func (m *Monitor) buildComponents() {
	l := m.resolveLogger()
	stats := m.client.Stats()
	m.router = NewRouter(l, stats, m.opts.DispatchQueueMin, m.opts.DispatchQueueMax)
	m.store = NewAlertStore(m.opts.MaxHistoryRecords, l)
	m.presenter = NewToastPresenter(m.opts, l)
	m.board = NewSnapshotBoard(l)
	m.subs = NewSubscriptionManager(m.client, l, stats)
}

// resolveLogger 返回门面当前使用的日志器
func (m *Monitor) resolveLogger() MSCLogger {
	if m.logger != nil {
		return m.logger
	}
	if m.client != nil && m.client.logger != nil {
		return m.client.logger
	}
	return DefaultLogger
}

// Start 完成组件接线并启动门面
// autoConnect 为真时立即发起连接；subscriptions 非空时注册门面自身的频道需求
// 重复启动返回 ErrMonitorAlreadyStarted，停止后不可再启动
func (m *Monitor) Start(autoConnect bool, subscriptions ...ChannelName) error {
	m.mu.Lock()
	if m.started {
		m.mu.Unlock()
		return ErrMonitorAlreadyStarted
	}
	if m.stopped {
		m.mu.Unlock()
		return ErrMonitorStopped
	}

	// 快照与历史按消息类型接入路由
	m.router.Handle(MessageTypeMetricsUpdate, func(env *Envelope) {
		m.board.Update(env)
	})
	m.router.Handle(MessageTypeRealtimeUpdate, func(env *Envelope) {
		m.board.Update(env)
	})
	m.router.Handle(MessageTypeSessionEvent, func(env *Envelope) {
		m.board.Update(env)
		m.store.Ingest(env)
	})
	m.router.Handle(MessageTypeSystemAlert, func(env *Envelope) {
		m.board.Update(env)
		m.store.Ingest(env)
	})

	// 入库流推送到弹出通知
	m.store.AddHook(&presenterBridge{presenter: m.presenter})

	// 传输层入站帧交给路由队列
	m.client.OnTextMessageReceived(func(message string) {
		m.router.Dispatch([]byte(message))
	})
	m.client.OnBinaryMessageReceived(func(data []byte) {
		m.router.Dispatch(data)
	})

	// 每次建连成功后重新声明订阅
	m.statusUnsub = m.client.OnStatusChange(func(status ConnectionStatus) {
		if status == ConnectionStatusConnected {
			m.subs.Resend()
		}
	})

	if len(subscriptions) > 0 {
		if err := m.subs.RegisterInterest(monitorConsumerID, subscriptions...); err != nil {
			if m.statusUnsub != nil {
				m.statusUnsub()
				m.statusUnsub = nil
			}
			m.mu.Unlock()
			return err
		}
	}

	m.router.Start()
	m.started = true
	m.mu.Unlock()

	m.resolveLogger().InfoKV("监控流门面已启动",
		"auto_connect", autoConnect,
		"subscriptions", channelNames(subscriptions),
	)

	if autoConnect {
		m.client.Connect()
	}
	return nil
}

// Stop 停止门面并释放全部资源
// 依次退订状态监听、关闭连接、停止路由分发与弹出通知定时器
func (m *Monitor) Stop() {
	m.mu.Lock()
	if !m.started || m.stopped {
		m.stopped = true
		m.mu.Unlock()
		return
	}
	m.stopped = true
	unsub := m.statusUnsub
	m.statusUnsub = nil
	m.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	m.client.Close()
	m.router.Stop()
	m.presenter.Stop()

	m.resolveLogger().Info("监控流门面已停止")
}

// ============================================================================
// 连接控制
// ============================================================================

// Connect 发起连接，空操作语义与底层客户端一致
func (m *Monitor) Connect() {
	m.client.Connect()
}

// Disconnect 主动断开连接并取消全部重试
func (m *Monitor) Disconnect() {
	m.client.Disconnect()
}

// Status 返回当前连接状态
func (m *Monitor) Status() ConnectionStatus {
	return m.client.Status()
}

// OnStatusChange 注册连接状态监听，返回退订函数
// 注册时会以当前状态同步回调一次
func (m *Monitor) OnStatusChange(fn StatusListener) (unsubscribe func()) {
	return m.client.OnStatusChange(fn)
}

// LastError 返回最近一次连接相关错误
func (m *Monitor) LastError() error {
	return m.client.LastError()
}

// ============================================================================
// 订阅管理
// ============================================================================

// RegisterInterest 登记某个消费者的频道需求（整体替换语义）
func (m *Monitor) RegisterInterest(consumerID string, channels ...ChannelName) error {
	return m.subs.RegisterInterest(consumerID, channels...)
}

// UnregisterInterest 移除某个消费者的全部频道需求
func (m *Monitor) UnregisterInterest(consumerID string) {
	m.subs.UnregisterInterest(consumerID)
}

// Demand 返回当前生效的频道并集
func (m *Monitor) Demand() []ChannelName {
	return m.subs.Demand()
}

// ============================================================================
// 消息路由
// ============================================================================

// Handle 注册指定消息类型的处理器
func (m *Monitor) Handle(t MessageType, h EnvelopeHandler) {
	m.router.Handle(t, h)
}

// Subscribe 注册全量消息监听，返回退订函数
func (m *Monitor) Subscribe(fn EnvelopeHandler) (unsubscribe func()) {
	return m.router.Subscribe(fn)
}

// ============================================================================
// 快照与历史
// ============================================================================

// Snapshots 返回全部频道的最新快照
func (m *Monitor) Snapshots() map[ChannelName]*Snapshot {
	return m.board.All()
}

// Latest 返回指定频道的最新快照
func (m *Monitor) Latest(ch ChannelName) (*Snapshot, bool) {
	return m.board.Latest(ch)
}

// History 按过滤条件查询告警历史（从新到旧）
func (m *Monitor) History(filter *AlertFilter) []*AlertRecord {
	return m.store.Query(filter)
}

// UnreadCount 返回未读告警条目数
func (m *Monitor) UnreadCount() int {
	return m.store.UnreadCount()
}

// MarkAllRead 将全部告警标记为已读，返回受影响的记录数
func (m *Monitor) MarkAllRead() int {
	return m.store.MarkAllRead()
}

// ClearAll 清空告警历史，返回被清除的记录数
func (m *Monitor) ClearAll() int {
	return m.store.ClearAll()
}

// ============================================================================
// 弹出通知
// ============================================================================

// VisibleToasts 返回当前可见的弹出通知
func (m *Monitor) VisibleToasts() []*ToastEntry {
	return m.presenter.Visible()
}

// Dismiss 关闭指定弹出通知，幂等
func (m *Monitor) Dismiss(id string) bool {
	return m.presenter.Dismiss(id)
}

// ClickToast 处理弹出通知点击：打开历史并关闭该通知
func (m *Monitor) ClickToast(id string) bool {
	return m.presenter.Click(id)
}

// OnOpenHistory 设置点击弹出通知打开历史面板的回调
func (m *Monitor) OnOpenHistory(f func(id string)) {
	m.presenter.OnOpenHistory(f)
}

// ============================================================================
// 指标与组件访问
// ============================================================================

// Stats 返回运行指标快照
func (m *Monitor) Stats() StreamStatsSnapshot {
	return m.client.Stats().Snapshot()
}

// Client 返回底层传输客户端
func (m *Monitor) Client() *Msc {
	return m.client
}

// Router 返回消息路由器
func (m *Monitor) Router() *Router {
	return m.router
}

// Store 返回告警历史存储
func (m *Monitor) Store() *AlertStore {
	return m.store
}

// Presenter 返回弹出通知展示器
func (m *Monitor) Presenter() *ToastPresenter {
	return m.presenter
}

// Board 返回频道快照看板
func (m *Monitor) Board() *SnapshotBoard {
	return m.board
}

// Subscriptions 返回订阅管理器
func (m *Monitor) Subscriptions() *SubscriptionManager {
	return m.subs
}
