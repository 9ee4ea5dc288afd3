/*
 * @Author: kamalyes 501893067@qq.com
 * @Date: 2026-07-18 10:26:08
 * @LastEditors: kamalyes 501893067@qq.com
 * @LastEditTime: 2026-08-19 22:40:17
 * @FilePath: \go-msc\errors.go
 * @Description: 监控流客户端错误定义 - 基于errorx.BaseError模式
 *
 * Copyright (c) 2026 by kamalyes, All Rights Reserved.
 */
package msc

import (
	"github.com/kamalyes/go-toolbox/pkg/errorx"
)

// 错误类型定义，基于errorx.ErrorType
type ErrorType = errorx.ErrorType

// 监控流客户端错误码常量定义
// 使用 82xxx 区间，避免与其他包冲突（MSC = Monitor Stream Client）
const (
	// 基础错误分类 (82000-82099)
	ErrorTypeConnection    ErrorType = 82000 // 连接错误
	ErrorTypeProtocol      ErrorType = 82001 // 协议错误
	ErrorTypeSubscription  ErrorType = 82002 // 订阅错误
	ErrorTypeStore         ErrorType = 82003 // 历史存储错误
	ErrorTypeConfiguration ErrorType = 82004 // 配置错误

	// 连接相关错误 (82100-82199) - 可重试
	ErrTypeConnectionClosed     ErrorType = 82101 // 连接已关闭
	ErrTypeDialFailed           ErrorType = 82102 // 拨号失败
	ErrTypeMaxReconnectAttempts ErrorType = 82103 // 重连次数耗尽 - 不可重试
	ErrTypeAlreadyConnecting    ErrorType = 82104 // 已有连接流程在进行

	// 队列和缓冲区错误 (82200-82299) - 可重试
	ErrTypeMessageBufferFull   ErrorType = 82201 // 发送缓冲区已满
	ErrTypeDispatchQueueFull   ErrorType = 82202 // 分发队列已满
	ErrTypeDispatchQueueClosed ErrorType = 82203 // 分发队列已关闭

	// 协议错误 (82300-82399) - 不可重试
	ErrTypeMalformedFrame     ErrorType = 82301 // 无法解析的帧
	ErrTypeMissingTypeTag     ErrorType = 82302 // 帧缺少 type 标签
	ErrTypeUnknownMessageType ErrorType = 82303 // 未知消息类型

	// 订阅相关错误 (82400-82499) - 不可重试
	ErrTypeInvalidChannel  ErrorType = 82401 // 无效的频道名
	ErrTypeEmptyConsumerID ErrorType = 82402 // 消费者ID为空

	// 配置相关错误 (82500-82599) - 不可重试
	ErrTypeConfigValidationFailed ErrorType = 82501 // 配置验证失败
	ErrTypeInvalidServerURL       ErrorType = 82502 // 服务端地址无效

	// 门面生命周期错误 (82600-82699) - 不可重试
	ErrTypeMonitorAlreadyStarted ErrorType = 82601 // 门面已启动
	ErrTypeMonitorStopped        ErrorType = 82602 // 门面已停止
)

// init 初始化所有错误类型注册
// 注意：在运行多个测试包时，可能会看到 "ErrorType XXX is already registered" 的警告信息
// 这是正常现象，errorx包内部会忽略重复注册
func init() {
	// 注册基础错误分类
	errorx.RegisterError(ErrorTypeConnection, "connection error")
	errorx.RegisterError(ErrorTypeProtocol, "protocol error")
	errorx.RegisterError(ErrorTypeSubscription, "subscription error")
	errorx.RegisterError(ErrorTypeStore, "store error")
	errorx.RegisterError(ErrorTypeConfiguration, "configuration error")

	// 注册连接相关错误
	errorx.RegisterError(ErrTypeConnectionClosed, "connection closed")
	errorx.RegisterError(ErrTypeDialFailed, "dial failed")
	errorx.RegisterError(ErrTypeMaxReconnectAttempts, "max reconnect attempts exceeded")
	errorx.RegisterError(ErrTypeAlreadyConnecting, "connect already in progress")

	// 注册队列和缓冲区错误
	errorx.RegisterError(ErrTypeMessageBufferFull, "message buffer is full")
	errorx.RegisterError(ErrTypeDispatchQueueFull, "dispatch queue is full")
	errorx.RegisterError(ErrTypeDispatchQueueClosed, "dispatch queue is closed")

	// 注册协议错误
	errorx.RegisterError(ErrTypeMalformedFrame, "malformed frame")
	errorx.RegisterError(ErrTypeMissingTypeTag, "frame missing type tag")
	errorx.RegisterError(ErrTypeUnknownMessageType, "unknown message type: %s")

	// 注册订阅相关错误
	errorx.RegisterError(ErrTypeInvalidChannel, "invalid channel name: %s")
	errorx.RegisterError(ErrTypeEmptyConsumerID, "consumer id is empty")

	// 注册配置相关错误
	errorx.RegisterError(ErrTypeConfigValidationFailed, "configuration validation failed")
	errorx.RegisterError(ErrTypeInvalidServerURL, "invalid server url")

	// 注册门面生命周期错误
	errorx.RegisterError(ErrTypeMonitorAlreadyStarted, "monitor already started")
	errorx.RegisterError(ErrTypeMonitorStopped, "monitor already stopped")
}

// ============================================================================
// 错误变量定义
// ============================================================================

// 连接相关错误变量
var (
	ErrConnectionClosed     = errorx.NewError(ErrTypeConnectionClosed)
	ErrDialFailed           = errorx.NewError(ErrTypeDialFailed)
	ErrMaxReconnectAttempts = errorx.NewError(ErrTypeMaxReconnectAttempts)
)

// 队列相关错误变量
var (
	ErrMessageBufferFull   = errorx.NewError(ErrTypeMessageBufferFull)
	ErrDispatchQueueFull   = errorx.NewError(ErrTypeDispatchQueueFull)
	ErrDispatchQueueClosed = errorx.NewError(ErrTypeDispatchQueueClosed)
)

// 协议相关错误变量
var (
	ErrMalformedFrame = errorx.NewError(ErrTypeMalformedFrame)
	ErrMissingTypeTag = errorx.NewError(ErrTypeMissingTypeTag)
)

// 订阅相关错误变量
var (
	ErrEmptyConsumerID = errorx.NewError(ErrTypeEmptyConsumerID)
)

// 配置相关错误变量
var (
	ErrConfigValidationFailed = errorx.NewError(ErrTypeConfigValidationFailed)
	ErrInvalidServerURL       = errorx.NewError(ErrTypeInvalidServerURL)
)

// 门面生命周期错误变量
var (
	ErrMonitorAlreadyStarted = errorx.NewError(ErrTypeMonitorAlreadyStarted)
	ErrMonitorStopped        = errorx.NewError(ErrTypeMonitorStopped)
)

// IsRetryableError 判断错误是否可以重试
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}

	// 如果是 errorx.Error 类型，检查其错误类型
	if errxErr, ok := err.(interface{ Type() ErrorType }); ok {
		return IsRetryableErrorType(errxErr.Type())
	}

	switch err {
	case ErrDialFailed, ErrMessageBufferFull, ErrDispatchQueueFull:
		return true
	default:
		return false
	}
}

// IsRetryableErrorType 判断错误类型是否可以重试
func IsRetryableErrorType(errType ErrorType) bool {
	switch errType {
	case ErrTypeDialFailed, ErrTypeConnectionClosed,
		ErrTypeMessageBufferFull, ErrTypeDispatchQueueFull:
		return true
	default:
		return false
	}
}

// ============================================================================
// 错误类型判断辅助函数
// ============================================================================

// IsBufferFullError 判断是否为缓冲区满错误
func IsBufferFullError(err error) bool {
	if err == nil {
		return false
	}
	if errxErr, ok := err.(interface{ Type() ErrorType }); ok {
		errType := errxErr.Type()
		return errType == ErrTypeMessageBufferFull || errType == ErrTypeDispatchQueueFull
	}
	return err == ErrMessageBufferFull || err == ErrDispatchQueueFull
}

// IsProtocolError 判断是否为协议错误（坏帧只丢弃，不影响连接）
func IsProtocolError(err error) bool {
	if err == nil {
		return false
	}
	if errxErr, ok := err.(interface{ Type() ErrorType }); ok {
		errType := errxErr.Type()
		return errType == ErrTypeMalformedFrame ||
			errType == ErrTypeMissingTypeTag ||
			errType == ErrTypeUnknownMessageType
	}
	return err == ErrMalformedFrame || err == ErrMissingTypeTag
}

// IsReconnectExhaustedError 判断是否为重连耗尽错误
func IsReconnectExhaustedError(err error) bool {
	if err == nil {
		return false
	}
	if errxErr, ok := err.(interface{ Type() ErrorType }); ok {
		return errxErr.Type() == ErrTypeMaxReconnectAttempts
	}
	return err == ErrMaxReconnectAttempts
}
