package reservation

import (
	"errors"

	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// 预留领域错误定义
var (
	// ErrReservationNotFound 预留单不存在
	ErrReservationNotFound = apperrors.New(apperrors.ErrCodeReservationNotFound, "预留单不存在")

	// ErrInvalidStatusTransition 非法的状态转换
	ErrInvalidStatusTransition = apperrors.New(apperrors.ErrCodeInvalidState, "预留单状态不允许此操作")

	// ErrEmptyItems 行项不能为空
	ErrEmptyItems = apperrors.New(apperrors.ErrCodeInvalidParams, "预留行项不能为空")

	// ErrInvalidQuantity 行项数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "预留数量必须大于0")

	// ErrVersionConflict 状态CAS版本不匹配(哨兵错误)
	// 懒过期与后台清扫并发转移同一张单时,输的一方拿到此错误后重读即可
	ErrVersionConflict = errors.New("预留单版本冲突")
)
