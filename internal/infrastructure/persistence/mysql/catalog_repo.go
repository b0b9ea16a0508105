package mysql

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/smarte-commerce/inventory-engine/internal/domain/catalog"
	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// variantLookup 商品变体查询实现(MySQL)
// 目录数据由商品服务维护,预留引擎只读
type variantLookup struct {
	db *gorm.DB
}

// NewVariantLookup 创建变体查询
func NewVariantLookup(db *gorm.DB) catalog.Lookup {
	return &variantLookup{db: db}
}

// FindVariant 查询变体
func (l *variantLookup) FindVariant(ctx context.Context, productID, variantID uint) (*catalog.Variant, error) {
	var model ProductVariantModel
	err := l.db.WithContext(ctx).
		Where("product_id = ? AND variant_id = ?", productID, variantID).
		First(&model).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, catalog.ErrVariantNotFound
		}
		return nil, apperrors.Wrap(err, "查询商品变体失败")
	}

	return &catalog.Variant{
		ProductID: model.ProductID,
		VariantID: model.VariantID,
		SKU:       model.SKU,
		Region:    region.ID(model.Region),
		Price:     model.Price,
	}, nil
}
