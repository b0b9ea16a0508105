// Package regional 实现区域路由与熔断降级
//
// 每个区域调用都经过该区域的熔断器;主区域失败时按固定环降级:
// 主区域 → 新鲜缓存 → 备用区域 → 陈旧缓存(可配置关闭) → 所有区域不可用。
// 从备用区域拿到结果后,会在主区域恢复健康时异步回写(尽力而为)。
package regional

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/pkg/circuitbreaker"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
	"github.com/smarte-commerce/inventory-engine/pkg/metrics"
)

// Config 降级控制器配置
type Config struct {
	// Breaker 每个区域熔断器的参数(窗口10次/失败率50%/最少5次/冷却30s/探测3次)
	Breaker circuitbreaker.Config

	// CallTimeout 单次区域调用超时,超时计为该区域一次失败,默认3s
	CallTimeout time.Duration

	// CacheFreshTTL 缓存条目的新鲜期,默认1小时
	CacheFreshTTL time.Duration

	// CacheRetention 缓存条目的物理保留时长(保留期内的过期条目用于陈旧兜底),默认24小时
	CacheRetention time.Duration

	// AllowStale 备用区域也失败时,是否允许返回过了新鲜期的缓存
	// "陈旧好过没有"是默认策略,对一致性敏感的部署可关闭
	AllowStale bool

	// ReplicationInterval 回写重试的探测间隔,默认5s
	ReplicationInterval time.Duration

	// ReplicationDeadline 回写放弃时限,默认10分钟
	ReplicationDeadline time.Duration
}

// withDefaults 填充默认参数
func (c Config) withDefaults() Config {
	if c.CallTimeout <= 0 {
		c.CallTimeout = 3 * time.Second
	}
	if c.CacheFreshTTL <= 0 {
		c.CacheFreshTTL = time.Hour
	}
	if c.CacheRetention <= 0 {
		c.CacheRetention = 24 * time.Hour
	}
	if c.ReplicationInterval <= 0 {
		c.ReplicationInterval = 5 * time.Second
	}
	if c.ReplicationDeadline <= 0 {
		c.ReplicationDeadline = 10 * time.Minute
	}
	return c
}

// RegionHealth 单个区域的健康快照
type RegionHealth struct {
	State       string                `json:"state"`
	Counts      circuitbreaker.Counts `json:"counts"`
	LastChecked time.Time             `json:"last_checked"`
}

// Operation 一次可降级的区域操作
// Call在指定区域执行并返回结果;Name由类型化键构造函数生成,
// 同时用作缓存键的一部分和日志/错误中的标识。
type Operation[T any] struct {
	Name string

	// Cacheable 只读操作可缓存结果,供后续跨区域读兜底
	Cacheable bool

	// Call 在指定区域执行操作
	Call func(ctx context.Context, r region.ID) (T, error)

	// Replicate 主区域恢复后的回写动作(可选,通常是把写操作重放到主区域)
	Replicate func(ctx context.Context, r region.ID) error
}

// Controller 熔断降级控制器
// 进程内每个区域一个熔断器,所有区域调用的唯一入口。
type Controller struct {
	config   Config
	cache    FallbackCache
	breakers map[region.ID]*circuitbreaker.CircuitBreaker

	mu          sync.Mutex
	lastChecked map[region.ID]time.Time

	wg sync.WaitGroup // 在途的异步回写
}

// NewController 创建控制器
func NewController(cfg Config, cache FallbackCache) *Controller {
	c := &Controller{
		config:      cfg.withDefaults(),
		cache:       cache,
		breakers:    make(map[region.ID]*circuitbreaker.CircuitBreaker),
		lastChecked: make(map[region.ID]time.Time),
	}

	for _, id := range region.All() {
		cb := circuitbreaker.New("region-"+string(id), c.config.Breaker)
		regionLabel := string(id)
		cb.SetStateChangeCallback(func(name string, from, to circuitbreaker.State) {
			log.Printf("regional: 熔断器状态变化 [%s] %s -> %s", name, from, to)
			metrics.CircuitBreakerState.WithLabelValues(regionLabel).Set(float64(to))
		})
		c.breakers[id] = cb
	}

	return c
}

// Execute 执行一次可降级的区域操作
//
// 降级顺序:主区域 → 新鲜缓存 → 备用区域 → 陈旧缓存(AllowStale时) →
// AllRegionsUnavailableError(携带尝试顺序)。
// 业务性拒绝(库存不足、状态非法等4xxxx错误)是健康区域给出的有效答案,
// 原样返回且不触发降级——降级只针对基础设施故障。
func Execute[T any](ctx context.Context, c *Controller, primary region.ID, op Operation[T]) (T, error) {
	var zero T
	attempted := []region.ID{primary}

	// 1. 主区域
	val, err, terminal := callRegion(ctx, c, primary, op)
	if err == nil {
		if op.Cacheable {
			c.storeCache(ctx, primary, op.Name, val)
		}
		metrics.FallbackTotal.WithLabelValues("primary").Inc()
		return val, nil
	}
	if terminal {
		return zero, err
	}
	log.Printf("regional: 主区域调用失败 [%s] op=%s: %v", primary, op.Name, err)

	key := FallbackKey(primary, op.Name)
	now := time.Now()

	// 2. 新鲜缓存
	if op.Cacheable {
		if entry, cerr := c.cache.Get(ctx, key); cerr == nil && entry.IsFresh(now, c.config.CacheFreshTTL) {
			var cached T
			if jerr := json.Unmarshal(entry.Value, &cached); jerr == nil {
				metrics.FallbackTotal.WithLabelValues("cache").Inc()
				return cached, nil
			}
		}
	}

	// 3. 备用区域
	secondary := region.SecondaryFor(primary)
	attempted = append(attempted, secondary)
	val, err, terminal = callRegion(ctx, c, secondary, op)
	if err == nil {
		metrics.FallbackTotal.WithLabelValues("secondary").Inc()
		if op.Cacheable {
			// 缓存在主区域的键下,后续对主区域的读直接命中
			c.storeCache(ctx, primary, op.Name, val)
		}
		if op.Replicate != nil {
			c.scheduleReplication(primary, op.Name, op.Replicate)
		}
		return val, nil
	}
	if terminal {
		return zero, err
	}
	log.Printf("regional: 备用区域调用失败 [%s] op=%s: %v", secondary, op.Name, err)

	// 4. 陈旧缓存兜底
	if c.config.AllowStale && op.Cacheable {
		if entry, cerr := c.cache.Get(ctx, key); cerr == nil {
			var cached T
			if jerr := json.Unmarshal(entry.Value, &cached); jerr == nil {
				log.Printf("regional: 返回陈旧缓存 op=%s, 写入时间=%s", op.Name, entry.StoredAt.Format(time.RFC3339))
				metrics.FallbackTotal.WithLabelValues("stale_cache").Inc()
				return cached, nil
			}
		}
	}

	// 5. 彻底失败
	metrics.FallbackTotal.WithLabelValues("exhausted").Inc()
	return zero, &AllRegionsUnavailableError{Operation: op.Name, Attempted: attempted}
}

// callRegion 经熔断器执行单区域调用
// 返回terminal=true表示业务性拒绝,不应继续降级
func callRegion[T any](ctx context.Context, c *Controller, r region.ID, op Operation[T]) (result T, err error, terminal bool) {
	cb, ok := c.breakers[r]
	if !ok {
		var zero T
		return zero, apperrors.New(apperrors.ErrCodeInvalidParams, "未知区域"), true
	}

	c.touch(r)

	var bizErr error
	execErr := cb.Execute(func() error {
		cctx, cancel := context.WithTimeout(ctx, c.config.CallTimeout)
		defer cancel()

		v, callErr := op.Call(cctx, r)
		if callErr != nil {
			if isBusinessReject(callErr) {
				// 健康区域的业务性拒绝,熔断器计为成功
				bizErr = callErr
				return nil
			}
			return callErr
		}
		result = v
		return nil
	})

	switch {
	case execErr != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(string(r), "failure").Inc()
		var zero T
		return zero, execErr, false
	case bizErr != nil:
		metrics.CircuitBreakerRequests.WithLabelValues(string(r), "success").Inc()
		var zero T
		return zero, bizErr, true
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(string(r), "success").Inc()
		return result, nil, false
	}
}

// isBusinessReject 判断是否为健康区域给出的终态回答
// 业务性拒绝(4xxxx)和乐观并发重试耗尽都不是区域故障:
// 熔断器计为成功,也不触发降级,要不要重试由调用方决定
func isBusinessReject(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code < 50000 || appErr.Code == apperrors.ErrCodeConcurrencyExhausted
	}
	return false
}

// storeCache 尽力写入降级缓存,失败只记录日志
func (c *Controller) storeCache(ctx context.Context, primary region.ID, operation string, val interface{}) {
	body, err := json.Marshal(val)
	if err != nil {
		log.Printf("regional: 缓存序列化失败 op=%s: %v", operation, err)
		return
	}
	entry := &CacheEntry{Value: body, StoredAt: time.Now()}
	if err := c.cache.Set(ctx, FallbackKey(primary, operation), entry, c.config.CacheRetention); err != nil {
		log.Printf("regional: 缓存写入失败 op=%s: %v", operation, err)
	}
}

// scheduleReplication 调度一次异步回写
// 等主区域的熔断器离开OPEN后重放操作;到时限仍未恢复则放弃。
// 回写失败只记录不上抛——备用区域的结果已经返回给调用方了。
func (c *Controller) scheduleReplication(primary region.ID, operation string, replicate func(ctx context.Context, r region.ID) error) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		deadline := time.Now().Add(c.config.ReplicationDeadline)
		ticker := time.NewTicker(c.config.ReplicationInterval)
		defer ticker.Stop()

		for {
			if c.IsRegionAvailable(primary) {
				ctx, cancel := context.WithTimeout(context.Background(), c.config.CallTimeout)
				err := replicate(ctx, primary)
				cancel()

				if err != nil {
					log.Printf("regional: 回写主区域失败 [%s] op=%s: %v", primary, operation, err)
					metrics.ReplicationTotal.WithLabelValues("failure").Inc()
				} else {
					log.Printf("regional: 回写主区域完成 [%s] op=%s", primary, operation)
					metrics.ReplicationTotal.WithLabelValues("success").Inc()
				}
				return
			}

			if time.Now().After(deadline) {
				log.Printf("regional: 回写放弃,主区域长时间未恢复 [%s] op=%s", primary, operation)
				metrics.ReplicationTotal.WithLabelValues("abandoned").Inc()
				return
			}

			<-ticker.C
		}
	}()
}

// touch 记录区域最近一次被调用的时间(健康上报用)
func (c *Controller) touch(r region.ID) {
	c.mu.Lock()
	c.lastChecked[r] = time.Now()
	c.mu.Unlock()
}

// IsRegionAvailable 区域当前是否可用(熔断器未打开)
func (c *Controller) IsRegionAvailable(r region.ID) bool {
	cb, ok := c.breakers[r]
	if !ok {
		return false
	}
	return cb.State() != circuitbreaker.StateOpen
}

// HealthStatus 全部区域的健康快照(运维观测用)
func (c *Controller) HealthStatus() map[region.ID]RegionHealth {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := make(map[region.ID]RegionHealth, len(c.breakers))
	for id, cb := range c.breakers {
		status[id] = RegionHealth{
			State:       cb.State().String(),
			Counts:      cb.Counts(),
			LastChecked: c.lastChecked[id],
		}
	}
	return status
}

// Breaker 按区域取熔断器(测试和运维工具用)
func (c *Controller) Breaker(r region.ID) *circuitbreaker.CircuitBreaker {
	return c.breakers[r]
}

// Wait 等待在途回写完成(优雅退出用)
func (c *Controller) Wait() {
	c.wg.Wait()
}
