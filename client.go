/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:47:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-22 09:21:47
 * @FilePath: \go-msc\client.go
 * @Description: Msc 结构体及其方法
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	wscconfig "github.com/kamalyes/go-config/pkg/wsc"
	"github.com/kamalyes/go-toolbox/pkg/syncx"
)

// StatusListener 连接状态监听器
type StatusListener func(status ConnectionStatus)

// statusListenerEntry 已注册的状态监听器及其注册序号
type statusListenerEntry struct {
	id uint64
	fn StatusListener
}

// Msc 结构体表示监控流 WebSocket 客户端
// Msc 结构体封装了 WebSocket 连接的管理、状态监督及其相关操作
type Msc struct {
	mu        sync.Mutex     // 互斥锁，用于保护并发访问
	Config    *wscconfig.WSC // 配置信息，用于配置 WebSocket 客户端的参数
	Options   *Options       // 领域配置，重连上限等监督策略参数
	WebSocket *WebSocket     // 底层 WebSocket 连接，负责实际的网络通信

	stateMachine *syncx.StateMachine[ConnectionStatus] // 连接状态机
	logger       MSCLogger                             // 日志记录器
	stats        *StreamStats                          // 流统计收集器

	// 监督器内部状态
	supMu          sync.Mutex       // 保护定时器、心跳和尝试计数
	reconnectTimer *time.Timer      // 重连定时器，同一时刻至多一个
	heartbeatDone  chan struct{}    // 心跳协程停止信号
	backoff        *backoff.Backoff // 指数退避策略
	attempts       int              // 连续失败的重连尝试次数
	manualClose    bool             // 主动断开标志，抑制自动重连
	lastError      atomic.Value     // 最近一次终态错误 error

	// 状态监听器注册表
	statusMu        sync.RWMutex          // 保护监听器注册表
	statusSeq       uint64                // 监听器注册序号
	statusListeners []statusListenerEntry // 按注册顺序排列的监听器

	// 连接相关的回调函数
	onConnected       atomic.Value // 连接成功回调 func()
	onConnectError    atomic.Value // 连接错误回调 func(error)
	onDisconnected    atomic.Value // 连接断开回调 func(error)
	onClose           atomic.Value // 连接关闭回调 func(int, string)
	onReconnectGiveUp atomic.Value // 重连耗尽回调 func(error)

	// 消息相关的回调函数
	onTextMessageSent       atomic.Value // 文本消息发送成功回调 func(string)
	onBinaryMessageSent     atomic.Value // 二进制消息发送成功回调 func([]byte)
	onSentError             atomic.Value // 消息发送错误回调 func(error)
	onPingReceived          atomic.Value // 接收到Ping消息回调 func(string)
	onPongReceived          atomic.Value // 接收到Pong消息回调 func(string)
	onTextMessageReceived   atomic.Value // 接收到文本消息回调 func(string)
	onBinaryMessageReceived atomic.Value // 接收到二进制消息回调 func([]byte)
}

// New 创建一个新的 Msc 客户端
// 参数 url: WebSocket 服务器的地址
// 返回: 返回一个新的 Msc 实例
func New(url string) *Msc {
	// 初始化状态机
	sm := syncx.NewStateMachine(ConnectionStatusDisconnected)
	// 配置允许的状态转换
	sm.AllowTransitions(ConnectionStatusDisconnected, ConnectionStatusConnecting)
	sm.AllowTransitions(ConnectionStatusConnecting, ConnectionStatusConnected, ConnectionStatusDisconnected, ConnectionStatusError)
	sm.AllowTransitions(ConnectionStatusConnected, ConnectionStatusDisconnected, ConnectionStatusError)
	sm.AllowTransitions(ConnectionStatusError, ConnectionStatusConnecting, ConnectionStatusDisconnected)

	cfg := NewTransportConfig()

	// 初始化 Msc 客户端，使用默认配置和指定的 URL
	return &Msc{
		Config:       cfg,                 // 默认传输配置
		Options:      NewDefaultOptions(), // 领域默认配置
		WebSocket:    NewWebSocket(url),   // 创建新的 WebSocket 连接
		stateMachine: sm,                  // 设置状态机
		logger:       initLogger(cfg),     // 按配置初始化日志
		stats:        NewStreamStats(),    // 流统计收集器
	}
}

// SetConfig 设置客户端配置
// 参数 config: 用户自定义的配置，缺失字段回填默认值
func (msc *Msc) SetConfig(config *wscconfig.WSC) {
	msc.Config = normalizeTransportConfig(config) // 更新 Msc 实例的配置
	msc.logger = initLogger(msc.Config)           // 日志输出随配置切换
}

// SetOptions 设置领域配置
// 参数 options: 重连上限等监督策略参数，nil 时恢复默认
func (msc *Msc) SetOptions(options *Options) {
	if options == nil {
		options = NewDefaultOptions()
	}
	normalizeOptions(options)
	msc.Options = options
}

// SetLogger 设置日志记录器
func (msc *Msc) SetLogger(l MSCLogger) {
	if l == nil {
		l = NoOpLoggerInstance
	}
	msc.logger = l
}

// Stats 返回流统计收集器
func (msc *Msc) Stats() *StreamStats {
	return msc.stats
}

// OnConnected 设置连接成功的回调
// 参数 f: 连接成功后调用的函数
func (msc *Msc) OnConnected(f func()) {
	msc.onConnected.Store(f)
}

// OnConnectError 设置连接出错的回调
// 参数 f: 连接出错时调用的函数，参数为错误信息
func (msc *Msc) OnConnectError(f func(err error)) {
	msc.onConnectError.Store(f)
}

// OnDisconnected 设置连接断开的回调
// 参数 f: 连接断开时调用的函数，参数为错误信息
func (msc *Msc) OnDisconnected(f func(err error)) {
	msc.onDisconnected.Store(f)
}

// OnClose 设置连接关闭的回调
// 参数 f: 连接关闭时调用的函数，参数为关闭代码和关闭文本
func (msc *Msc) OnClose(f func(code int, text string)) {
	msc.onClose.Store(f)
}

// OnReconnectGiveUp 设置重连耗尽的回调
// 参数 f: 重试次数达到上限进入终态时调用的函数，参数为终态错误
func (msc *Msc) OnReconnectGiveUp(f func(err error)) {
	msc.onReconnectGiveUp.Store(f)
}

// OnTextMessageSent 设置发送文本消息成功的回调
// 参数 f: 发送成功时调用的函数，参数为发送的消息
func (msc *Msc) OnTextMessageSent(f func(message string)) {
	msc.onTextMessageSent.Store(f)
}

// OnBinaryMessageSent 设置发送二进制消息成功的回调
// 参数 f: 发送成功时调用的函数，参数为发送的数据
func (msc *Msc) OnBinaryMessageSent(f func(data []byte)) {
	msc.onBinaryMessageSent.Store(f)
}

// OnSentError 设置发送消息出错的回调
// 参数 f: 发送出错时调用的函数，参数为错误信息
func (msc *Msc) OnSentError(f func(err error)) {
	msc.onSentError.Store(f)
}

// OnPingReceived 设置接收到 Ping 消息的回调
// 参数 f: 接收到 Ping 消息时调用的函数，参数为应用数据
func (msc *Msc) OnPingReceived(f func(appData string)) {
	msc.onPingReceived.Store(f)
}

// OnPongReceived 设置接收到 Pong 消息的回调
// 参数 f: 接收到 Pong 消息时调用的函数，参数为应用数据
func (msc *Msc) OnPongReceived(f func(appData string)) {
	msc.onPongReceived.Store(f)
}

// OnTextMessageReceived 设置接收到文本消息的回调
// 参数 f: 接收到文本消息时调用的函数，参数为接收到的消息
func (msc *Msc) OnTextMessageReceived(f func(message string)) {
	msc.onTextMessageReceived.Store(f)
}

// OnBinaryMessageReceived 设置接收到二进制消息的回调
// 参数 f: 接收到二进制消息时调用的函数，参数为接收到的数据
func (msc *Msc) OnBinaryMessageReceived(f func(data []byte)) {
	msc.onBinaryMessageReceived.Store(f)
}

// HasOnConnectedCallback 检查是否设置了连接成功回调
func (msc *Msc) HasOnConnectedCallback() bool {
	return msc.onConnected.Load() != nil
}

// HasOnConnectErrorCallback 检查是否设置了连接错误回调
func (msc *Msc) HasOnConnectErrorCallback() bool {
	return msc.onConnectError.Load() != nil
}

// HasOnDisconnectedCallback 检查是否设置了连接断开回调
func (msc *Msc) HasOnDisconnectedCallback() bool {
	return msc.onDisconnected.Load() != nil
}

// HasOnCloseCallback 检查是否设置了连接关闭回调
func (msc *Msc) HasOnCloseCallback() bool {
	return msc.onClose.Load() != nil
}

// HasOnReconnectGiveUpCallback 检查是否设置了重连耗尽回调
func (msc *Msc) HasOnReconnectGiveUpCallback() bool {
	return msc.onReconnectGiveUp.Load() != nil
}

// OnStatusChange 注册连接状态监听器
// 注册时立即以当前状态同步回调一次，之后每次状态转换按注册顺序同步通知
// 返回的注销句柄可安全地多次调用
func (msc *Msc) OnStatusChange(fn StatusListener) (unsubscribe func()) {
	if fn == nil {
		return func() {}
	}
	msc.statusMu.Lock()
	msc.statusSeq++
	id := msc.statusSeq
	msc.statusListeners = append(msc.statusListeners, statusListenerEntry{id: id, fn: fn})
	msc.statusMu.Unlock()

	// 注册时同步推送当前状态
	fn(msc.stateMachine.CurrentState())

	var once sync.Once
	return func() {
		once.Do(func() {
			msc.statusMu.Lock()
			for i, entry := range msc.statusListeners {
				if entry.id == id {
					msc.statusListeners = append(msc.statusListeners[:i], msc.statusListeners[i+1:]...)
					break
				}
			}
			msc.statusMu.Unlock()
		})
	}
}

// StatusListenerCount 返回当前注册的状态监听器数量
func (msc *Msc) StatusListenerCount() int {
	return syncx.WithRLockReturnValue(&msc.statusMu, func() int {
		return len(msc.statusListeners)
	})
}

// notifyStatusListeners 按注册顺序通知所有状态监听器
// 在锁外调用监听器，避免监听器内再进入客户端方法时死锁
func (msc *Msc) notifyStatusListeners(status ConnectionStatus) {
	msc.statusMu.RLock()
	listeners := make([]statusListenerEntry, len(msc.statusListeners))
	copy(listeners, msc.statusListeners)
	msc.statusMu.RUnlock()

	for _, entry := range listeners {
		entry.fn(status)
	}
}

// transitionTo 执行状态转换并通知监听器
// 不允许的转换返回错误且不产生任何通知，调用方以此实现幂等
func (msc *Msc) transitionTo(status ConnectionStatus) error {
	if err := msc.stateMachine.TransitionTo(status); err != nil {
		return err
	}
	msc.notifyStatusListeners(status)
	return nil
}

// GetConnectionStatus 获取当前连接状态
func (msc *Msc) GetConnectionStatus() ConnectionStatus {
	return msc.stateMachine.CurrentState()
}

// Status 获取当前连接状态
func (msc *Msc) Status() ConnectionStatus {
	return msc.stateMachine.CurrentState()
}

// IsConnected 检查是否已连接
func (msc *Msc) IsConnected() bool {
	return msc.stateMachine.CurrentState() == ConnectionStatusConnected
}

// IsConnecting 检查是否正在连接
func (msc *Msc) IsConnecting() bool {
	return msc.stateMachine.CurrentState() == ConnectionStatusConnecting
}

// LastError 返回最近一次进入终态时的错误
func (msc *Msc) LastError() error {
	if v := msc.lastError.Load(); v != nil {
		return v.(error)
	}
	return nil
}

// ReconnectAttempts 返回当前连续失败的重连尝试次数
func (msc *Msc) ReconnectAttempts() int {
	msc.supMu.Lock()
	defer msc.supMu.Unlock()
	return msc.attempts
}

// DefaultUpgrader 返回默认的WebSocket升级器
var DefaultUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // 允许所有来源
	},
}

// IsNormalClose 检查WebSocket关闭是否为正常关闭
func IsNormalClose(err error) bool {
	if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		return true
	}
	return false
}
