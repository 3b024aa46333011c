// Package errs 定义朗读流水线中所有网络/磁盘操作共用的错误类型。
package errs

import (
	"errors"
	"fmt"
)

// Origin 标识错误来源，编排器据此决定中止还是仅提示。
type Origin string

const (
	// OriginNetwork 传输层失败，没有结构化错误体。
	OriginNetwork Origin = "network"
	// OriginService 远端 API 返回了结构化错误。
	OriginService Origin = "service"
	// OriginParse 期望有值但响应体无法解析。
	OriginParse Origin = "parse"
	// OriginFilesystem 本地持久化失败。
	OriginFilesystem Origin = "filesystem"
	// OriginConfiguration 必需的凭据缺失或仍是占位值。
	OriginConfiguration Origin = "configuration"
	// OriginUnknown 非 ServiceError 的错误。
	OriginUnknown Origin = "unknown"
)

// ServiceError 是带来源标签的错误。
type ServiceError struct {
	Origin  Origin
	Message string
	// Raw 保存远端返回的原始错误负载（可为空）。
	Raw any
	Err error
}

// New 创建一个不包装底层错误的 ServiceError。
func New(origin Origin, message string) *ServiceError {
	return &ServiceError{Origin: origin, Message: message}
}

// Newf 按格式创建 ServiceError。
func Newf(origin Origin, format string, args ...any) *ServiceError {
	return &ServiceError{Origin: origin, Message: fmt.Sprintf(format, args...)}
}

// Wrap 创建包装 err 的 ServiceError。
func Wrap(origin Origin, message string, err error) *ServiceError {
	return &ServiceError{Origin: origin, Message: message, Err: err}
}

// WithRaw 附加原始负载并返回自身。
func (e *ServiceError) WithRaw(raw any) *ServiceError {
	e.Raw = raw
	return e
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Origin, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Origin, e.Message)
}

func (e *ServiceError) Unwrap() error { return e.Err }

// OriginOf 返回 err 链上第一个 ServiceError 的来源。
func OriginOf(err error) Origin {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Origin
	}
	return OriginUnknown
}

// Is 判断 err 是否为指定来源的 ServiceError。
func Is(err error, origin Origin) bool {
	return OriginOf(err) == origin
}

// MessageOf 返回适合展示给用户的消息；非 ServiceError 时退回 err.Error()。
func MessageOf(err error) string {
	var se *ServiceError
	if errors.As(err, &se) {
		return se.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
