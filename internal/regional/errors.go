package regional

import (
	"errors"
	"fmt"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// ErrCacheMiss 跨区域缓存未命中(哨兵错误)
var ErrCacheMiss = errors.New("跨区域缓存未命中")

// AllRegionsUnavailableError 所有区域不可用错误
// 主区域、备用区域都失败且无缓存兜底时返回,
// 携带按尝试顺序排列的区域列表,便于排障和用户提示。
type AllRegionsUnavailableError struct {
	Operation string
	Attempted []region.ID
}

func (e *AllRegionsUnavailableError) Error() string {
	return fmt.Sprintf("所有区域不可用: operation=%s, 尝试顺序=%v", e.Operation, e.Attempted)
}

// Unwrap 展开为预定义的AppError,保证错误码一路可达调用方
func (e *AllRegionsUnavailableError) Unwrap() error {
	return apperrors.ErrAllRegionsUnavailable
}
