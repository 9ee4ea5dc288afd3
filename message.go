/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:47:29
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-21 14:33:08
 * @FilePath: \go-msc\message.go
 * @Description: 线协议与消息发送逻辑
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"encoding/json"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/kamalyes/go-toolbox/pkg/errorx"
)

// wsMsg 结构体表示 WebSocket 消息
type wsMsg struct {
	t   int    // 消息类型
	msg []byte // 消息内容
}

// AlertItem 告警批次中的单条告警
type AlertItem struct {
	Level         AlertLevel `json:"level"`                    // 告警级别
	Type          string     `json:"type"`                     // 告警分类，如 high_cpu、high_memory
	Message       string     `json:"message"`                  // 人类可读描述
	Value         *float64   `json:"value,omitempty"`          // 触发时的度量值
	Threshold     *float64   `json:"threshold,omitempty"`      // 触发阈值
	ContainerName string     `json:"container_name,omitempty"` // 关联容器
}

// Envelope 入站消息信封
// 按 type 标签区分的联合体，解析后不可变
type Envelope struct {
	Type       MessageType     `json:"type"`                // 消息类型标签
	Timestamp  string          `json:"timestamp,omitempty"` // 服务端时间戳（ISO-8601）
	ID         string          `json:"id,omitempty"`        // 服务端分配的ID（system_alert）
	Alerts     []AlertItem     `json:"alerts,omitempty"`    // 告警批次（system_alert）
	Raw        json.RawMessage `json:"-"`                   // 原始帧，供快照层透传
	ReceivedAt time.Time       `json:"-"`                   // 本地接收时间
}

// Time 返回信封的有效时间
// 优先使用服务端时间戳，解析失败时回退到本地接收时间
func (e *Envelope) Time() time.Time {
	if e.Timestamp != "" {
		if ts, err := time.Parse(time.RFC3339Nano, e.Timestamp); err == nil {
			return ts
		}
		if ts, err := time.Parse(time.RFC3339, e.Timestamp); err == nil {
			return ts
		}
	}
	return e.ReceivedAt
}

// IsHeartbeat 检查是否为服务端心跳帧
func (e *Envelope) IsHeartbeat() bool {
	return e.Type == MessageTypeHeartbeat
}

// ParseEnvelope 解析入站帧
// 坏帧返回协议错误，由调用方记录日志后丢弃，绝不向上传播
func ParseEnvelope(raw []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, ErrMalformedFrame
	}
	if env.Type == "" {
		return nil, ErrMissingTypeTag
	}
	if !env.Type.IsInbound() {
		return nil, errorx.NewError(ErrTypeUnknownMessageType, env.Type.String())
	}
	env.Raw = make(json.RawMessage, len(raw))
	copy(env.Raw, raw)
	env.ReceivedAt = time.Now()
	return &env, nil
}

// SubscribeFrame 出站订阅声明帧
// 全量声明当前需要的频道集合，而非增量差分
type SubscribeFrame struct {
	Type          MessageType   `json:"type"`          // 固定为 subscribe
	Subscriptions []ChannelName `json:"subscriptions"` // 需要的频道全集
}

// NewSubscribeFrame 创建订阅声明帧
func NewSubscribeFrame(channels []ChannelName) *SubscribeFrame {
	return &SubscribeFrame{
		Type:          MessageTypeSubscribe,
		Subscriptions: channels,
	}
}

// Encode 序列化为 JSON 文本帧
func (f *SubscribeFrame) Encode() ([]byte, error) {
	return json.Marshal(f)
}

// SendTextMessage 发送文本消息
func (msc *Msc) SendTextMessage(message string) error {
	if msc.Closed() {
		return ErrConnectionClosed
	}
	// 读锁保护 sendChan 指针与关闭标志一致性
	msc.WebSocket.sendChanMu.RLock()
	defer msc.WebSocket.sendChanMu.RUnlock()
	if atomic.LoadInt32(&msc.WebSocket.sendChanClosed) == 1 {
		return ErrConnectionClosed
	}
	select {
	case msc.WebSocket.sendChan <- &wsMsg{
		t:   websocket.TextMessage,
		msg: []byte(message),
	}:
	default:
		return ErrMessageBufferFull
	}
	return nil
}

// SendBinaryMessage 发送二进制消息
func (msc *Msc) SendBinaryMessage(data []byte) error {
	if msc.Closed() {
		return ErrConnectionClosed
	}
	// 读锁保护 sendChan 指针与关闭标志一致性
	msc.WebSocket.sendChanMu.RLock()
	defer msc.WebSocket.sendChanMu.RUnlock()
	if atomic.LoadInt32(&msc.WebSocket.sendChanClosed) == 1 {
		return ErrConnectionClosed
	}
	select {
	case msc.WebSocket.sendChan <- &wsMsg{
		t:   websocket.BinaryMessage,
		msg: data,
	}:
	default:
		return ErrMessageBufferFull
	}
	return nil
}

// send 发送消息到连接端
func (msc *Msc) send(messageType int, data []byte) error {
	msc.WebSocket.sendMu.Lock()
	defer msc.WebSocket.sendMu.Unlock()

	// 使用读锁保护连接状态和 Conn 的访问
	msc.WebSocket.connMu.RLock()
	if !msc.WebSocket.isConnected {
		msc.WebSocket.connMu.RUnlock()
		return ErrConnectionClosed
	}
	conn := msc.WebSocket.Conn
	msc.WebSocket.connMu.RUnlock()

	// 设置写超时
	_ = conn.SetWriteDeadline(time.Now().Add(msc.Config.WriteTimeout))
	return conn.WriteMessage(messageType, data)
}

// sendPing 发送心跳探测帧
// 保活探测是单向的，发送失败只记录，连接存亡以读协程的关闭事件为准
func (msc *Msc) sendPing() error {
	return msc.send(websocket.PingMessage, nil)
}
