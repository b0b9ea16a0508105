// Package memory 提供内存版仓储实现
//
// 两个用途:
// 1. 单元测试:应用层测试不依赖MySQL/Redis,直接用内存实现
// 2. 兜底运行模式:本地联调时无需起全套依赖
// 并发语义与MySQL实现一致:条件写在互斥锁内完成比较和替换,
// 对外表现为原子CAS。
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/catalog"
	"github.com/smarte-commerce/inventory-engine/internal/domain/inventory"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/regional"
)

// InventoryStore 内存库存仓储
type InventoryStore struct {
	mu      sync.RWMutex
	records map[string]*inventory.Record // key: SKU
}

// NewInventoryStore 创建内存库存仓储
func NewInventoryStore() *InventoryStore {
	return &InventoryStore{records: make(map[string]*inventory.Record)}
}

func (s *InventoryStore) Get(ctx context.Context, sku string) (*inventory.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[sku]
	if !ok {
		return nil, inventory.ErrRecordNotFound
	}
	return rec.Clone(), nil
}

func (s *InventoryStore) Create(ctx context.Context, rec *inventory.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.SKU]; exists {
		return inventory.ErrDuplicateSKU
	}
	now := time.Now()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	s.records[rec.SKU] = rec.Clone()
	return nil
}

func (s *InventoryStore) CompareAndSave(ctx context.Context, rec *inventory.Record, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.records[rec.SKU]
	if !ok {
		return inventory.ErrRecordNotFound
	}
	if current.Version != expectedVersion {
		return inventory.ErrVersionConflict
	}

	saved := rec.Clone()
	saved.Version = expectedVersion + 1
	saved.UpdatedAt = time.Now()
	s.records[rec.SKU] = saved
	rec.Version = saved.Version
	return nil
}

// ReservationRepository 内存预留单仓储
type ReservationRepository struct {
	mu           sync.RWMutex
	reservations map[string]*reservation.Reservation
}

// NewReservationRepository 创建内存预留单仓储
func NewReservationRepository() *ReservationRepository {
	return &ReservationRepository{reservations: make(map[string]*reservation.Reservation)}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.reservations[res.ID] = res.Clone()
	return nil
}

func (r *ReservationRepository) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return res.Clone(), nil
}

func (r *ReservationRepository) UpdateStatusCAS(ctx context.Context, res *reservation.Reservation, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.reservations[res.ID]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	if current.Version != expectedVersion {
		return reservation.ErrVersionConflict
	}

	saved := res.Clone()
	saved.Version = expectedVersion + 1
	r.reservations[res.ID] = saved
	res.Version = saved.Version
	return nil
}

func (r *ReservationRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*reservation.Reservation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*reservation.Reservation, 0)
	for _, res := range r.reservations {
		if res.Status == reservation.StatusPending && res.ExpiresAt.Before(before) {
			out = append(out, res.Clone())
		}
	}
	// 过期最久的优先处理
	sort.Slice(out, func(i, j int) bool {
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// VariantLookup 内存商品变体查询
type VariantLookup struct {
	mu       sync.RWMutex
	variants map[[2]uint]*catalog.Variant // key: (productID, variantID)
}

// NewVariantLookup 创建内存变体查询
func NewVariantLookup() *VariantLookup {
	return &VariantLookup{variants: make(map[[2]uint]*catalog.Variant)}
}

// Add 注册变体(测试数据准备用)
func (l *VariantLookup) Add(v *catalog.Variant) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.variants[[2]uint{v.ProductID, v.VariantID}] = v
}

func (l *VariantLookup) FindVariant(ctx context.Context, productID, variantID uint) (*catalog.Variant, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	v, ok := l.variants[[2]uint{productID, variantID}]
	if !ok {
		return nil, catalog.ErrVariantNotFound
	}
	clone := *v
	return &clone, nil
}

// FallbackCache 内存降级缓存
type FallbackCache struct {
	mu      sync.RWMutex
	entries map[string]*regional.CacheEntry
}

// NewFallbackCache 创建内存降级缓存
func NewFallbackCache() *FallbackCache {
	return &FallbackCache{entries: make(map[string]*regional.CacheEntry)}
}

func (c *FallbackCache) Get(ctx context.Context, key string) (*regional.CacheEntry, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, regional.ErrCacheMiss
	}
	return entry, nil
}

func (c *FallbackCache) Set(ctx context.Context, key string, entry *regional.CacheEntry, retention time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry
	return nil
}
