/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:47:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-22 11:02:35
 * @FilePath: \go-msc\connection.go
 * @Description: 连接监督与重连调度逻辑
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jpillora/backoff"
	"github.com/kamalyes/go-toolbox/pkg/syncx"
)

// Closed 返回连接是否处于非活动状态（disconnected 或 error）
func (msc *Msc) Closed() bool {
	state := msc.stateMachine.CurrentState()
	return state == ConnectionStatusDisconnected || state == ConnectionStatusError
}

// Connect 发起连接
// 幂等：已处于 connecting/connected 时为空操作
// 从 error 终态调用会清零尝试计数并重新开始连接
func (msc *Msc) Connect() {
	// 转换到连接中状态，失败说明已在连接或已连接
	if err := msc.transitionTo(ConnectionStatusConnecting); err != nil {
		return
	}

	msc.supMu.Lock()
	msc.manualClose = false
	msc.attempts = 0
	msc.stopReconnectTimerLocked()
	msc.backoff = msc.createBackoff()
	msc.supMu.Unlock()

	msc.initSendChannel()
	syncx.Go().
		OnPanic(func(r interface{}) {
			msc.logger.ErrorKV("连接协程崩溃", "panic", r, "url", msc.WebSocket.Url)
		}).
		Exec(func() {
			msc.dial()
		})
}

// initSendChannel 初始化/重置发送通道以及其关闭控制结构（支持断线重连后的再次关闭）
func (msc *Msc) initSendChannel() {
	msc.WebSocket.sendChanMu.Lock()
	// 创建新的缓冲通道(替换旧引用)
	msc.WebSocket.sendChan = make(chan *wsMsg, msc.Config.MessageBufferSize)
	// 重置 sync.Once，允许重新关闭通道
	msc.WebSocket.sendChanOnce = sync.Once{}
	// 重置关闭标志
	atomic.StoreInt32(&msc.WebSocket.sendChanClosed, 0)
	msc.WebSocket.sendChanMu.Unlock()
}

// createBackoff 创建退避策略
// 不启用抖动，保证第 N 次重试延迟严格等于 min(MaxRecTime, MinRecTime*RecFactor^(N-1))
func (msc *Msc) createBackoff() *backoff.Backoff {
	return &backoff.Backoff{
		Min:    msc.Config.MinRecTime,
		Max:    msc.Config.MaxRecTime,
		Factor: msc.Config.RecFactor,
		Jitter: false,
	}
}

// dial 执行一次拨号尝试
// 冷启动的拨号失败与连接建立后的断开走同一条重连调度路径
func (msc *Msc) dial() {
	if err := msc.attemptConnection(); err != nil {
		msc.logger.WarnKV("连接失败", "url", msc.WebSocket.Url, "error", err)
		msc.handleConnectError(err)
		msc.scheduleReconnect()
		return
	}
	msc.onConnectionSuccess()
}

// attemptConnection 尝试建立连接
func (msc *Msc) attemptConnection() error {
	// 使用 Dialer 建立 WebSocket 连接
	var err error
	msc.WebSocket.Conn, msc.WebSocket.HttpResponse, err =
		msc.WebSocket.Dialer.Dial(msc.WebSocket.Url, msc.WebSocket.RequestHeader)
	return err
}

// handleConnectError 处理连接错误
func (msc *Msc) handleConnectError(err error) {
	// 调用连接错误回调（如果已设置）
	if f := msc.onConnectError.Load(); f != nil {
		f.(func(error))(err)
	}
}

// onConnectionSuccess 连接成功后的处理
func (msc *Msc) onConnectionSuccess() {
	msc.supMu.Lock()
	// 拨号期间到达的 Disconnect 胜出，放弃这条刚建立的连接
	if msc.manualClose {
		msc.supMu.Unlock()
		if conn := msc.WebSocket.GetConn(); conn != nil {
			_ = conn.Close()
		}
		return
	}
	msc.attempts = 0
	msc.backoff.Reset()
	msc.supMu.Unlock()
	// 变更连接状态
	msc.setConnectedState()
	msc.stats.IncrementConnects()
	msc.logger.InfoKV("连接成功", "url", msc.WebSocket.Url)
	// 连接成功回调
	msc.notifyConnected()
	// 设置支持接受的消息最大长度
	msc.WebSocket.Conn.SetReadLimit(msc.Config.MaxMessageSize)
	// 设置关闭、ping 和 pong 处理
	msc.setupHandlers()
	// 启动读写协程
	go msc.readMessages()
	go msc.writeMessages()
	// 启动心跳探测
	msc.startHeartbeat()
}

// setConnectedState 设置连接状态为已连接
func (msc *Msc) setConnectedState() {
	msc.WebSocket.connMu.Lock()
	msc.WebSocket.isConnected = true
	msc.WebSocket.connMu.Unlock()
	// 使用状态机管理状态
	_ = msc.transitionTo(ConnectionStatusConnected)
}

// notifyConnected 通知连接成功
func (msc *Msc) notifyConnected() {
	if f := msc.onConnected.Load(); f != nil {
		f.(func())()
	}
}

// scheduleReconnect 在退避延迟后安排下一次重连
// 同一时刻至多持有一个定时器句柄，Disconnect 可确定性地取消它
// 退避等待期间对外状态为 disconnected
func (msc *Msc) scheduleReconnect() {
	msc.supMu.Lock()
	if msc.manualClose || (msc.Config != nil && !msc.Config.AutoReconnect) {
		msc.supMu.Unlock()
		_ = msc.transitionTo(ConnectionStatusDisconnected)
		return
	}
	attempt := msc.attempts + 1
	maxAttempts := 0
	if msc.Options != nil {
		maxAttempts = msc.Options.MaxReconnectAttempts
	}
	exhausted := maxAttempts > 0 && attempt > maxAttempts
	var delay time.Duration
	if !exhausted {
		// 只统计真正会执行的重试
		msc.attempts = attempt
		delay = msc.backoff.Duration()
		msc.stats.IncrementReconnectAttempts()
	}
	msc.supMu.Unlock()

	if exhausted {
		msc.giveUp(maxAttempts)
		return
	}

	msc.logger.InfoKV("调度重连", "attempt", attempt, "delay", delay.String())
	_ = msc.transitionTo(ConnectionStatusDisconnected)

	msc.supMu.Lock()
	// Disconnect 可能赶在定时器挂载之前到达
	if msc.manualClose {
		msc.supMu.Unlock()
		return
	}
	msc.stopReconnectTimerLocked()
	msc.reconnectTimer = time.AfterFunc(delay, msc.reconnectFired)
	msc.supMu.Unlock()
}

// reconnectFired 退避定时器到点，发起下一次拨号
func (msc *Msc) reconnectFired() {
	msc.supMu.Lock()
	msc.reconnectTimer = nil
	closed := msc.manualClose
	msc.supMu.Unlock()
	if closed {
		return
	}
	// 与并发的显式 Connect 竞争时只有一方能进入 connecting
	if err := msc.transitionTo(ConnectionStatusConnecting); err != nil {
		return
	}
	msc.initSendChannel()
	msc.dial()
}

// giveUp 重试次数耗尽，进入终态 error 并停止一切自动重连
// 只有显式 Connect 能离开该终态
func (msc *Msc) giveUp(maxAttempts int) {
	err := ErrMaxReconnectAttempts
	msc.lastError.Store(err)
	msc.logger.ErrorKV("重连次数耗尽，停止重连", "max_attempts", maxAttempts, "url", msc.WebSocket.Url)
	_ = msc.transitionTo(ConnectionStatusError)
	if f := msc.onReconnectGiveUp.Load(); f != nil {
		f.(func(error))(err)
	}
}

// stopReconnectTimerLocked 取消挂起的重连定时器，调用方需持有 supMu
func (msc *Msc) stopReconnectTimerLocked() {
	if msc.reconnectTimer != nil {
		msc.reconnectTimer.Stop()
		msc.reconnectTimer = nil
	}
}

// startHeartbeat 启动心跳探测协程
// 按 HeartbeatInterval 周期发送 ping 控制帧，发送失败只记录日志
// 连接存亡以读协程观察到的关闭事件为准，心跳本身不判死
func (msc *Msc) startHeartbeat() {
	if msc.Config.HeartbeatInterval <= 0 {
		return
	}
	msc.supMu.Lock()
	msc.stopHeartbeatLocked()
	done := make(chan struct{})
	msc.heartbeatDone = done
	msc.supMu.Unlock()

	interval := msc.Config.HeartbeatInterval
	syncx.Go().
		OnPanic(func(r interface{}) {
			msc.logger.ErrorKV("心跳协程崩溃", "panic", r)
		}).
		Exec(func() {
			ticker := time.NewTicker(interval)
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := msc.sendPing(); err != nil {
						msc.logger.DebugKV("心跳发送失败", "error", err)
						continue
					}
					msc.stats.IncrementHeartbeatsSent()
				}
			}
		})
}

// stopHeartbeat 停止心跳探测协程
func (msc *Msc) stopHeartbeat() {
	msc.supMu.Lock()
	msc.stopHeartbeatLocked()
	msc.supMu.Unlock()
}

// stopHeartbeatLocked 关闭心跳停止信号，调用方需持有 supMu
func (msc *Msc) stopHeartbeatLocked() {
	if msc.heartbeatDone != nil {
		close(msc.heartbeatDone)
		msc.heartbeatDone = nil
	}
}

// setupHandlers 设置关闭、ping 和 pong 的处理函数
func (msc *Msc) setupHandlers() {
	// 收到连接关闭信号回调
	defaultCloseHandler := msc.WebSocket.Conn.CloseHandler()
	msc.WebSocket.Conn.SetCloseHandler(func(code int, text string) error {
		result := defaultCloseHandler(code, text)
		msc.stopHeartbeat()
		msc.clean()
		if f := msc.onClose.Load(); f != nil {
			f.(func(int, string))(code, text)
		}
		return result
	})

	// 收到 ping 回调
	defaultPingHandler := msc.WebSocket.Conn.PingHandler()
	msc.WebSocket.Conn.SetPingHandler(func(appData string) error {
		if f := msc.onPingReceived.Load(); f != nil {
			f.(func(string))(appData)
		}
		return defaultPingHandler(appData)
	})

	// 收到 pong 回调
	defaultPongHandler := msc.WebSocket.Conn.PongHandler()
	msc.WebSocket.Conn.SetPongHandler(func(appData string) error {
		msc.stats.IncrementPongsReceived()
		if f := msc.onPongReceived.Load(); f != nil {
			f.(func(string))(appData)
		}
		return defaultPongHandler(appData)
	})
}

// readMessages 启动读消息的协程
func (msc *Msc) readMessages() {
	// 捕获当前连接引用，重连后旧协程不会读到新连接
	conn := msc.WebSocket.GetConn()
	if conn == nil {
		return
	}
	for {
		messageType, message, err := conn.ReadMessage()
		if err != nil {
			msc.handleReadError(err)
			return
		}
		msc.processReceivedMessage(messageType, message)
	}
}

// handleReadError 处理读取消息时的错误
// 连接建立后的断开与冷启动拨号失败在此汇入同一条调度路径
func (msc *Msc) handleReadError(err error) {
	// 异常断线，通知断线回调
	msc.notifyDisconnected(err)
	// 心跳随连接一起停止
	msc.stopHeartbeat()
	// 释放连接资源并转换状态
	msc.clean()
	// 是否重连由调度器统一裁决
	msc.scheduleReconnect()
}

// notifyDisconnected 通知断线
func (msc *Msc) notifyDisconnected(err error) {
	if f := msc.onDisconnected.Load(); f != nil {
		f.(func(error))(err)
	}
}

// processReceivedMessage 处理接收到的消息
func (msc *Msc) processReceivedMessage(messageType int, message []byte) {
	// 处理消息时加锁
	msc.mu.Lock()
	defer msc.mu.Unlock()

	// 根据消息类型分发处理
	switch messageType {
	case websocket.TextMessage:
		msc.handleTextMessage(message)
	case websocket.BinaryMessage:
		msc.handleBinaryMessage(message)
	}
}

// handleTextMessage 处理文本消息
func (msc *Msc) handleTextMessage(message []byte) {
	// 调用文本消息接收回调（如果已设置）
	if f := msc.onTextMessageReceived.Load(); f != nil {
		f.(func(string))(string(message))
	}
}

// handleBinaryMessage 处理二进制消息
func (msc *Msc) handleBinaryMessage(message []byte) {
	// 调用二进制消息接收回调（如果已设置）
	if f := msc.onBinaryMessageReceived.Load(); f != nil {
		f.(func([]byte))(message)
	}
}

// writeMessages 启动写消息的协程
// 该方法不断从发送消息的通道中读取消息，并将其发送到 WebSocket 连接中
func (msc *Msc) writeMessages() {
	// 捕获当前的 sendChan 引用（读锁保护期间读取）
	msc.WebSocket.sendChanMu.RLock()
	sendChan := msc.WebSocket.sendChan
	msc.WebSocket.sendChanMu.RUnlock()
	for msg := range sendChan {
		// 尝试发送消息
		if err := msc.send(msg.t, msg.msg); err != nil {
			// 如果发送出错，调用错误回调（如果已设置）
			if f := msc.onSentError.Load(); f != nil {
				f.(func(error))(err)
			}
			continue // 继续处理下一个消息
		}

		// 处理已发送消息时加锁
		msc.mu.Lock()
		// 根据消息类型处理后续逻辑
		msc.handleSentMessage(msg)
		msc.mu.Unlock()
	}
}

// handleSentMessage 处理已发送消息的后续逻辑
// 参数 msg: 发送的消息结构
func (msc *Msc) handleSentMessage(msg *wsMsg) {
	switch msg.t {
	case websocket.CloseMessage:
		// 如果发送的是关闭消息，则退出写协程
		return
	case websocket.TextMessage:
		// 如果发送的是文本消息，调用文本消息发送成功的回调（如果已设置）
		if f := msc.onTextMessageSent.Load(); f != nil {
			f.(func(string))(string(msg.msg))
		}
	case websocket.BinaryMessage:
		// 如果发送的是二进制消息，调用二进制消息发送成功的回调（如果已设置）
		if f := msc.onBinaryMessageSent.Load(); f != nil {
			f.(func([]byte))(msg.msg)
		}
	}
}

// Disconnect 主动断开连接
// 取消所有挂起的定时器（重连定时器与心跳），并抑制自动重连直到下一次 Connect
func (msc *Msc) Disconnect() {
	msc.CloseWithMsg("")
}

// Close 主动关闭连接，等价于 Disconnect
func (msc *Msc) Close() {
	msc.CloseWithMsg("")
}

// CloseWithMsg 主动关闭连接并附带消息
// 即使当前已处于 disconnected（例如正处于退避等待），也会取消挂起的重连定时器
func (msc *Msc) CloseWithMsg(msg string) {
	// 先落下主动关闭标志并取消全部定时器，关闭必须是确定性的
	msc.supMu.Lock()
	msc.manualClose = true
	msc.stopReconnectTimerLocked()
	msc.stopHeartbeatLocked()
	msc.supMu.Unlock()

	wasActive := !msc.Closed()
	if msc.WebSocket.IsConnected() {
		_ = msc.send(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, msg))
	}
	msc.clean()
	if wasActive {
		if f := msc.onClose.Load(); f != nil {
			f.(func(int, string))(websocket.CloseNormalClosure, msg)
		}
	}
}

// clean 清理资源
// 状态监听器在锁外通知，监听器内再调用客户端方法不会死锁
func (msc *Msc) clean() {
	msc.mu.Lock()

	// 先转换状态为Disconnected,确保Closed()立即返回true
	transitioned := msc.stateMachine.TransitionTo(ConnectionStatusDisconnected) == nil

	if msc.WebSocket != nil {
		msc.WebSocket.connMu.Lock()
		msc.WebSocket.isConnected = false
		if msc.WebSocket.Conn != nil {
			_ = msc.WebSocket.Conn.Close()
		}
		// 原子关闭 sendChan（写锁保护）
		msc.WebSocket.sendChanMu.Lock()
		msc.WebSocket.sendChanOnce.Do(func() {
			atomic.StoreInt32(&msc.WebSocket.sendChanClosed, 1)
			close(msc.WebSocket.sendChan)
		})
		msc.WebSocket.sendChanMu.Unlock()
		msc.WebSocket.connMu.Unlock()
	}
	msc.mu.Unlock()

	if transitioned {
		msc.notifyStatusListeners(ConnectionStatusDisconnected)
	}
}
