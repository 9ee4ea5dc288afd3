/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:35:46
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-21 11:02:33
 * @FilePath: \go-msc\config.go
 * @Description: 监控流客户端配置
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"strings"
	"time"

	wscconfig "github.com/kamalyes/go-config/pkg/wsc"
	"github.com/kamalyes/go-toolbox/pkg/mathx"
	"github.com/kamalyes/go-toolbox/pkg/safe"
)

// 传输层默认值
const (
	DefaultMinRecTime        = 1 * time.Second  // 重连退避下限
	DefaultMaxRecTime        = 30 * time.Second // 重连退避上限
	DefaultRecFactor         = 2.0              // 退避倍增因子
	DefaultHeartbeatInterval = 30 * time.Second // 心跳间隔
	DefaultWriteTimeout      = 10 * time.Second // 写超时
	DefaultMaxMessageSize    = 1 << 20          // 单帧最大长度
	DefaultMessageBufferSize = 256              // 发送缓冲池大小
)

// 领域层默认值
const (
	DefaultMaxReconnectAttempts = 10                     // 连续失败多少次后进入终态
	DefaultMaxVisibleToasts     = 3                      // 同屏通知上限
	DefaultToastAutoDismiss     = 10 * time.Second       // 通知自动消失时间
	DefaultToastFadeDuration    = 300 * time.Millisecond // 淡出动画时长
	DefaultMaxHistoryRecords    = 500                    // 告警历史上限
	DefaultDispatchQueueMin     = 64                     // 分发队列初始容量
	DefaultDispatchQueueMax     = 4096                   // 分发队列最大容量
)

// NewTransportConfig 创建传输层默认配置
// 基于 go-config 的 WSC 配置段，重连与心跳参数覆盖为本库默认值
func NewTransportConfig() *wscconfig.WSC {
	cfg := safe.MergeWithDefaults[wscconfig.WSC](nil, wscconfig.Default())
	cfg.MinRecTime = DefaultMinRecTime
	cfg.MaxRecTime = DefaultMaxRecTime
	cfg.RecFactor = DefaultRecFactor
	cfg.HeartbeatInterval = DefaultHeartbeatInterval
	cfg.WriteTimeout = DefaultWriteTimeout
	cfg.MaxMessageSize = DefaultMaxMessageSize
	cfg.MessageBufferSize = DefaultMessageBufferSize
	cfg.AutoReconnect = true
	return cfg
}

// normalizeTransportConfig 兜底非法传输配置
func normalizeTransportConfig(cfg *wscconfig.WSC) *wscconfig.WSC {
	if cfg == nil {
		return NewTransportConfig()
	}
	if cfg.MinRecTime <= 0 {
		cfg.MinRecTime = DefaultMinRecTime
	}
	if cfg.MaxRecTime < cfg.MinRecTime {
		cfg.MaxRecTime = DefaultMaxRecTime
	}
	if cfg.RecFactor <= 1 {
		cfg.RecFactor = DefaultRecFactor
	}
	if cfg.HeartbeatInterval <= 0 {
		cfg.HeartbeatInterval = DefaultHeartbeatInterval
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}
	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = DefaultMaxMessageSize
	}
	if cfg.MessageBufferSize <= 0 {
		cfg.MessageBufferSize = DefaultMessageBufferSize
	}
	return cfg
}

// Options 结构体表示监控流客户端的领域配置
// 传输层参数走 wscconfig.WSC，这里只收敛 go-config 未建模的部分
type Options struct {
	MaxReconnectAttempts int           // 最大连续重连次数，0表示不限制
	MaxVisibleToasts     int           // 同屏弹出通知上限
	ToastAutoDismiss     time.Duration // 通知自动消失时间
	ToastFadeDuration    time.Duration // 通知淡出时长
	MaxHistoryRecords    int           // 告警历史保留条数，0表示不限制
	DispatchQueueMin     int           // 分发队列初始容量
	DispatchQueueMax     int           // 分发队列最大容量
}

// NewDefaultOptions 创建默认领域配置
func NewDefaultOptions() *Options {
	return &Options{
		MaxReconnectAttempts: DefaultMaxReconnectAttempts,
		MaxVisibleToasts:     DefaultMaxVisibleToasts,
		ToastAutoDismiss:     DefaultToastAutoDismiss,
		ToastFadeDuration:    DefaultToastFadeDuration,
		MaxHistoryRecords:    DefaultMaxHistoryRecords,
		DispatchQueueMin:     DefaultDispatchQueueMin,
		DispatchQueueMax:     DefaultDispatchQueueMax,
	}
}

// WithMaxReconnectAttempts 设置最大连续重连次数并返回当前配置对象
func (o *Options) WithMaxReconnectAttempts(n int) *Options {
	o.MaxReconnectAttempts = n
	return o
}

// WithMaxVisibleToasts 设置同屏通知上限并返回当前配置对象
func (o *Options) WithMaxVisibleToasts(n int) *Options {
	o.MaxVisibleToasts = n
	return o
}

// WithToastAutoDismiss 设置通知自动消失时间并返回当前配置对象
func (o *Options) WithToastAutoDismiss(d time.Duration) *Options {
	o.ToastAutoDismiss = d
	return o
}

// WithToastFadeDuration 设置通知淡出时长并返回当前配置对象
func (o *Options) WithToastFadeDuration(d time.Duration) *Options {
	o.ToastFadeDuration = d
	return o
}

// WithMaxHistoryRecords 设置告警历史上限并返回当前配置对象
func (o *Options) WithMaxHistoryRecords(n int) *Options {
	o.MaxHistoryRecords = n
	return o
}

// WithDispatchQueueSize 设置分发队列容量区间并返回当前配置对象
func (o *Options) WithDispatchQueueSize(min, max int) *Options {
	o.DispatchQueueMin = min
	o.DispatchQueueMax = max
	return o
}

// Validate 验证领域配置
func (o *Options) Validate() error {
	if o.MaxReconnectAttempts < 0 || o.MaxVisibleToasts <= 0 ||
		o.ToastAutoDismiss <= 0 || o.ToastFadeDuration <= 0 ||
		o.MaxHistoryRecords < 0 {
		return ErrConfigValidationFailed
	}
	return nil
}

// normalizeOptions 兜底非法领域配置
func normalizeOptions(o *Options) *Options {
	if o == nil {
		return NewDefaultOptions()
	}
	o.MaxReconnectAttempts = mathx.IF(o.MaxReconnectAttempts < 0, DefaultMaxReconnectAttempts, o.MaxReconnectAttempts)
	o.MaxVisibleToasts = mathx.IF(o.MaxVisibleToasts <= 0, DefaultMaxVisibleToasts, o.MaxVisibleToasts)
	o.ToastAutoDismiss = mathx.IF(o.ToastAutoDismiss <= 0, DefaultToastAutoDismiss, o.ToastAutoDismiss)
	o.ToastFadeDuration = mathx.IF(o.ToastFadeDuration <= 0, DefaultToastFadeDuration, o.ToastFadeDuration)
	o.MaxHistoryRecords = mathx.IF(o.MaxHistoryRecords < 0, DefaultMaxHistoryRecords, o.MaxHistoryRecords)
	o.DispatchQueueMin = mathx.IF(o.DispatchQueueMin <= 0, DefaultDispatchQueueMin, o.DispatchQueueMin)
	o.DispatchQueueMax = mathx.IF(o.DispatchQueueMax < o.DispatchQueueMin, DefaultDispatchQueueMax, o.DispatchQueueMax)
	return o
}

// ValidateServerURL 校验服务端地址
// 只接受 ws/wss 协议；空地址和其它协议一律视为配置错误
func ValidateServerURL(rawURL string) error {
	if rawURL == "" {
		return ErrInvalidServerURL
	}
	if !strings.HasPrefix(rawURL, "ws://") && !strings.HasPrefix(rawURL, "wss://") {
		return ErrInvalidServerURL
	}
	return nil
}
