package regional

import (
	"context"
	"fmt"
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
)

// CacheEntry 跨区域缓存条目
// StoredAt随值一起持久化:新鲜度判定基于写入时刻,
// 而不是依赖缓存介质自己的过期机制——过期淘汰会把
// "可作陈旧兜底的数据"一并清掉。
type CacheEntry struct {
	Value    []byte    `json:"value"`
	StoredAt time.Time `json:"stored_at"`
}

// IsFresh 判断条目在freshTTL内是否仍算新鲜
func (e *CacheEntry) IsFresh(now time.Time, freshTTL time.Duration) bool {
	return now.Sub(e.StoredAt) <= freshTTL
}

// FallbackCache 跨区域降级缓存接口(redis实现+内存实现)
type FallbackCache interface {
	// Get 读取条目,未命中返回ErrCacheMiss
	Get(ctx context.Context, key string) (*CacheEntry, error)

	// Set 写入条目,retention是条目的物理保留时长
	// (应远大于新鲜期,保留期内的过期条目用于陈旧兜底)
	Set(ctx context.Context, key string, entry *CacheEntry, retention time.Duration) error
}

// 显式的类型化键构造函数,每个调用点一个,
// 取代反射拼接方法名/参数的动态键生成。

// FallbackKey 降级缓存键:(主区域, 操作名)
func FallbackKey(primary region.ID, operation string) string {
	return fmt.Sprintf("fallback:%s:%s", primary, operation)
}

// AvailabilityOp 可售查询的操作名
func AvailabilityOp(sku string) string {
	return "availability:" + sku
}

// RecordOp 库存记录读取的操作名
func RecordOp(sku string) string {
	return "record:" + sku
}
