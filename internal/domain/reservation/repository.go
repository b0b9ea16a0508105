package reservation

import (
	"context"
	"time"
)

// Repository 预留单仓储接口(由infrastructure层实现)
// 设计说明:
// 1. 由domain层定义接口,infrastructure层实现(依赖倒置)
// 2. 状态变更走UpdateStatusCAS:过期清扫、懒过期、取消可能并发
//    处理同一张单,版本CAS保证转移恰好发生一次
type Repository interface {
	// Create 创建预留单(包含行项)
	Create(ctx context.Context, res *Reservation) error

	// Get 根据ID查找预留单(包含行项)
	// 不存在时返回ErrReservationNotFound
	Get(ctx context.Context, id string) (*Reservation, error)

	// UpdateStatusCAS 条件更新状态与时间戳
	// 仅当持久化的版本仍等于expectedVersion时生效,成功后res.Version加1;
	// 版本不匹配返回ErrVersionConflict
	UpdateStatusCAS(ctx context.Context, res *Reservation, expectedVersion int64) error

	// ListExpired 查询在before之前过期且仍为PENDING的预留单
	// 供后台清扫分批处理,limit限制单批数量
	ListExpired(ctx context.Context, before time.Time, limit int) ([]*Reservation, error)
}
