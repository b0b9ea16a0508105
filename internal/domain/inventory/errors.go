package inventory

import (
	"errors"
	"fmt"

	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// 库存领域错误定义
var (
	// ErrRecordNotFound 库存记录不存在
	ErrRecordNotFound = apperrors.New(apperrors.ErrCodeInventoryNotFound, "库存记录不存在")

	// ErrNegativeQuantity 计数器出现负数
	ErrNegativeQuantity = apperrors.New(apperrors.ErrCodeBusinessError, "库存计数不能为负数")

	// ErrInvalidQuantity 变更数量不合法
	ErrInvalidQuantity = apperrors.New(apperrors.ErrCodeInvalidParams, "变更数量必须大于0")

	// ErrDuplicateSKU SKU已存在
	ErrDuplicateSKU = apperrors.New(apperrors.ErrCodeBusinessError, "SKU已存在")

	// ErrVersionConflict 条件写版本不匹配(哨兵错误,仅Mutator内部重试用)
	ErrVersionConflict = errors.New("库存版本冲突")
)

// InsufficientInventoryError 库存不足错误
// 携带SKU、请求数量、当前可售数量,让调用方能给出准确的缺货提示。
// 在Mutator的重试循环内基于最新快照重新判定,不会基于过期读数误报。
type InsufficientInventoryError struct {
	SKU       string
	Requested int
	Available int
}

func (e *InsufficientInventoryError) Error() string {
	return fmt.Sprintf("库存不足: sku=%s, 请求=%d, 可售=%d", e.SKU, e.Requested, e.Available)
}

// Unwrap 展开为预定义的AppError,保证错误码一路可达调用方
func (e *InsufficientInventoryError) Unwrap() error {
	return apperrors.ErrInsufficientInventory
}
