package mysql

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"github.com/smarte-commerce/inventory-engine/internal/domain/inventory"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// inventoryStore 库存仓储实现(MySQL)
// 设计说明:
// 1. 实现domain/inventory/store.go定义的接口
// 2. CompareAndSave用单条条件UPDATE实现CAS:
//    UPDATE ... SET version = version + 1 WHERE sku = ? AND version = ?
//    RowsAffected=0即版本冲突,整个过程不持有任何行级锁
type inventoryStore struct {
	db *gorm.DB
}

// NewInventoryStore 创建库存仓储
func NewInventoryStore(db *gorm.DB) inventory.Store {
	return &inventoryStore{db: db}
}

// Get 按SKU读取当前记录
func (s *inventoryStore) Get(ctx context.Context, sku string) (*inventory.Record, error) {
	var model InventoryModel
	err := s.db.WithContext(ctx).Where("sku = ?", sku).First(&model).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, inventory.ErrRecordNotFound
		}
		return nil, apperrors.Wrap(err, "查询库存失败")
	}

	return toInventoryEntity(&model), nil
}

// Create 新建库存记录
func (s *inventoryStore) Create(ctx context.Context, rec *inventory.Record) error {
	model := &InventoryModel{
		SKU:       rec.SKU,
		Available: rec.Available,
		Reserved:  rec.Reserved,
		Sold:      rec.Sold,
		Version:   rec.Version,
	}

	if err := s.db.WithContext(ctx).Create(model).Error; err != nil {
		if isDuplicateError(err) {
			return inventory.ErrDuplicateSKU
		}
		return apperrors.Wrap(err, "创建库存记录失败")
	}

	rec.ID = model.ID
	rec.CreatedAt = model.CreatedAt
	rec.UpdatedAt = model.UpdatedAt
	return nil
}

// CompareAndSave 条件写
// 单条UPDATE同时做版本比较和递增,数据库保证其原子性;
// RowsAffected=0说明版本已被其他写者推进,返回冲突让Mutator重试
func (s *inventoryStore) CompareAndSave(ctx context.Context, rec *inventory.Record, expectedVersion int64) error {
	result := s.db.WithContext(ctx).Model(&InventoryModel{}).
		Where("sku = ? AND version = ?", rec.SKU, expectedVersion).
		Updates(map[string]interface{}{
			"available": rec.Available,
			"reserved":  rec.Reserved,
			"sold":      rec.Sold,
			"version":   gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新库存失败")
	}

	if result.RowsAffected == 0 {
		// 记录不存在或版本不匹配,再查一次区分原因
		var model InventoryModel
		err := s.db.WithContext(ctx).Where("sku = ?", rec.SKU).First(&model).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return inventory.ErrRecordNotFound
		}
		return inventory.ErrVersionConflict
	}

	rec.Version = expectedVersion + 1
	return nil
}

// toInventoryEntity GORM模型 → 领域实体
func toInventoryEntity(model *InventoryModel) *inventory.Record {
	return &inventory.Record{
		ID:        model.ID,
		SKU:       model.SKU,
		Available: model.Available,
		Reserved:  model.Reserved,
		Sold:      model.Sold,
		Version:   model.Version,
		CreatedAt: model.CreatedAt,
		UpdatedAt: model.UpdatedAt,
	}
}

// isDuplicateError 判断是否为MySQL唯一索引冲突错误
// MySQL错误码1062: Duplicate entry 'xxx' for key 'yyy'
func isDuplicateError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	return strings.Contains(err.Error(), "Duplicate entry")
}
