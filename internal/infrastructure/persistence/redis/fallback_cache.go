package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/smarte-commerce/inventory-engine/internal/regional"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// fallbackCache 跨区域降级缓存实现(Redis)
// 设计说明:
// 1. 值是带stored_at的JSON信封,新鲜度判定靠写入时刻而非Redis TTL
// 2. Redis的过期时间只承担物理保留期:保留期内的"过期"条目
//    仍可作为陈旧兜底返回,真正淘汰由Redis完成
type fallbackCache struct {
	client *redis.Client
}

// NewFallbackCache 创建降级缓存
func NewFallbackCache(client *redis.Client) regional.FallbackCache {
	return &fallbackCache{client: client}
}

// Get 读取条目
func (c *fallbackCache) Get(ctx context.Context, key string) (*regional.CacheEntry, error) {
	body, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, regional.ErrCacheMiss
		}
		return nil, apperrors.Wrap(err, "读取降级缓存失败")
	}

	var entry regional.CacheEntry
	if err := json.Unmarshal(body, &entry); err != nil {
		// 损坏的条目当未命中处理,下次成功调用会覆盖
		return nil, regional.ErrCacheMiss
	}
	return &entry, nil
}

// Set 写入条目
func (c *fallbackCache) Set(ctx context.Context, key string, entry *regional.CacheEntry, retention time.Duration) error {
	body, err := json.Marshal(entry)
	if err != nil {
		return apperrors.Wrap(err, "序列化降级缓存失败")
	}

	if err := c.client.Set(ctx, key, body, retention).Err(); err != nil {
		return apperrors.Wrap(err, "写入降级缓存失败")
	}
	return nil
}
