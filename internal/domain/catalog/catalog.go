// Package catalog 定义商品目录的查询端口
//
// 预留引擎不拥有商品数据,只在创建预留单时查询一次:
// (productId, variantId) → SKU、归属区域、当前价格。
// 解析结果作为快照存入预留行项,后续生命周期不再反查。
package catalog

import (
	"context"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// Variant 商品变体
type Variant struct {
	ProductID uint
	VariantID uint
	SKU       string
	Region    region.ID // 库存归属区域(由开店区域决定)
	Price     int64     // 当前单价(分)
}

// Lookup 目录查询接口(由infrastructure层实现)
type Lookup interface {
	// FindVariant 查询变体,不存在时返回ErrVariantNotFound
	FindVariant(ctx context.Context, productID, variantID uint) (*Variant, error)
}

// ErrVariantNotFound 商品变体不存在
var ErrVariantNotFound = apperrors.New(apperrors.ErrCodeVariantNotFound, "商品变体不存在")
