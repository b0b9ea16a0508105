package inventory

import (
	"context"
)

// Store 库存仓储接口(由infrastructure层实现)
// 设计说明:
// 1. 每个区域一个Store实例,指向该区域自己的数据库
// 2. CompareAndSave是唯一的写路径,提供CAS语义
type Store interface {
	// Get 按SKU读取当前记录(含最新Version)
	// 记录不存在时返回ErrRecordNotFound
	Get(ctx context.Context, sku string) (*Record, error)

	// Create 新建库存记录(上架/首次补货)
	Create(ctx context.Context, rec *Record) error

	// CompareAndSave 条件写:仅当持久化的版本仍等于expectedVersion时生效
	// 成功时将rec.Version置为expectedVersion+1;版本不匹配返回ErrVersionConflict
	CompareAndSave(ctx context.Context, rec *Record, expectedVersion int64) error
}
