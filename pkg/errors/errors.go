package errors

import (
	"errors"
	"fmt"
)

// AppError 自定义应用错误
// 设计说明：
// 1. Code用于客户端判断错误类型（不要直接暴露HTTP状态码）
// 2. Message是用户友好的提示信息
// 3. Err是内部错误，仅记录到日志，不返回给客户端（防止泄露敏感信息）
type AppError struct {
	Code    int    `json:"code"`    // 业务错误码
	Message string `json:"message"` // 用户友好的错误提示
	Err     error  `json:"-"`       // 内部错误（不序列化）
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%d] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Is和errors.As
func (e *AppError) Unwrap() error {
	return e.Err
}

// New 创建新的AppError
func New(code int, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap 包装系统错误（如数据库错误、网络错误）
// 用途：将底层错误转换为业务错误，隐藏实现细节
func Wrap(err error, message string) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: message,
		Err:     err,
	}
}

// Wrapf 格式化包装错误
func Wrapf(err error, format string, args ...interface{}) *AppError {
	return &AppError{
		Code:    ErrCodeInternal,
		Message: fmt.Sprintf(format, args...),
		Err:     err,
	}
}

// =========================================
// 错误码定义
// =========================================
// 规范：
// - 4xxxx: 客户端错误（参数错误、业务规则校验失败）
// - 5xxxx: 服务端错误（数据库异常、区域故障、并发冲突）

const (
	// 系统级错误码（50000-50099）
	ErrCodeInternal      = 50000 // 内部错误
	ErrCodeDatabaseError = 50001 // 数据库错误
	ErrCodeRedisError    = 50002 // Redis错误

	// 区域与并发错误（50300-50999）
	// 这两类错误对调用方是"可重试"信号：
	// - AllRegionsUnavailable：主/备区域均不可用且无缓存兜底
	// - ConcurrencyExhausted：乐观锁重试次数耗尽（冲突是短暂的）
	ErrCodeAllRegionsUnavailable = 50301 // 所有区域不可用
	ErrCodeConcurrencyExhausted  = 50901 // 乐观并发重试耗尽

	// 资源错误（40400-40499）
	ErrCodeNotFound            = 40400 // 资源不存在(通用)
	ErrCodeReservationNotFound = 40403 // 预留单不存在
	ErrCodeInventoryNotFound   = 40404 // 库存记录不存在
	ErrCodeVariantNotFound     = 40405 // 商品变体不存在

	// 业务规则错误（40000-40099）
	ErrCodeBusinessError         = 40000 // 业务错误(通用)
	ErrCodeInsufficientInventory = 40001 // 库存不足
	ErrCodeInvalidState          = 40002 // 预留单状态不允许此操作

	// 认证授权错误（40100-40199）
	ErrCodeInvalidToken = 40101 // Token无效
	ErrCodeTokenExpired = 40102 // Token过期

	// 参数错误（40900-40999）
	ErrCodeInvalidParams = 40900 // 参数错误
	ErrCodeBindError     = 40901 // 参数绑定失败
)

// =========================================
// 预定义错误（避免每次都New）
// =========================================

var (
	// 系统错误
	ErrInternal      = New(ErrCodeInternal, "系统内部错误")
	ErrDatabaseError = New(ErrCodeDatabaseError, "数据库错误")
	ErrRedisError    = New(ErrCodeRedisError, "缓存服务错误")

	// 区域与并发
	ErrAllRegionsUnavailable = New(ErrCodeAllRegionsUnavailable, "所有区域暂时不可用，请稍后重试")
	ErrConcurrencyExhausted  = New(ErrCodeConcurrencyExhausted, "并发冲突重试耗尽，请重试")

	// 资源不存在
	ErrReservationNotFound = New(ErrCodeReservationNotFound, "预留单不存在")
	ErrInventoryNotFound   = New(ErrCodeInventoryNotFound, "库存记录不存在")
	ErrVariantNotFound     = New(ErrCodeVariantNotFound, "商品变体不存在")

	// 业务规则
	ErrInsufficientInventory = New(ErrCodeInsufficientInventory, "库存不足")
	ErrInvalidState          = New(ErrCodeInvalidState, "预留单状态不允许此操作")

	// 认证授权
	ErrInvalidToken = New(ErrCodeInvalidToken, "无效的Token")
	ErrTokenExpired = New(ErrCodeTokenExpired, "Token已过期")

	// 参数错误
	ErrInvalidParams = New(ErrCodeInvalidParams, "参数错误")
	ErrBindError     = New(ErrCodeBindError, "参数格式错误")
)

// =========================================
// 辅助函数
// =========================================

// IsAppError 判断是否为AppError
func IsAppError(err error) bool {
	var appErr *AppError
	return errors.As(err, &appErr)
}

// GetAppError 提取AppError（如果不是AppError则包装成Internal错误）
func GetAppError(err error) *AppError {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	return Wrap(err, "系统内部错误")
}

// IsCode 判断错误链中是否存在指定业务码的AppError
// 用途：调用方按错误码区分"可重试/不可重试/库存不足"等分支
func IsCode(err error, code int) bool {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
