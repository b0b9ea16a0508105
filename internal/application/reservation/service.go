// Package reservation 预留单应用服务
//
// 职责划分:
// - 领域层只关心单条库存记录/单张预留单的不变量
// - 应用服务负责编排:解析商品变体、路由区域、驱动Saga补偿、
//   发布生命周期事件、埋点
//
// 并发协议:所有状态转移(确认/取消/过期)都先用版本CAS占住单据状态,
// 赢家再去移动库存;库存操作部分失败时逆序补偿并把状态退回快照。
// 这样懒过期、后台清扫和用户操作并发到同一张单时,恰好一方生效。
package reservation

import (
	"context"
	"log"
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/catalog"
	"github.com/smarte-commerce/inventory-engine/internal/domain/inventory"
	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/regional"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
	"github.com/smarte-commerce/inventory-engine/pkg/metrics"
)

const (
	tracerName = "reservation-service"

	// sagaTimeout 多行项编排的总时限
	// 比单次区域调用超时宽松得多:要容纳逐行项的降级尝试
	sagaTimeout = 30 * time.Second
)

// Config 应用服务配置
type Config struct {
	// DefaultTTL 请求未指定时的预留有效期
	DefaultTTL time.Duration

	// MutatorMaxAttempts 库存乐观锁重试上限,<=0取领域默认值
	MutatorMaxAttempts int
}

func (c Config) withDefaults() Config {
	if c.DefaultTTL <= 0 {
		c.DefaultTTL = 30 * time.Minute
	}
	return c
}

// EventPublisher 生命周期事件发布端口
// 生产环境由RabbitMQ实现,事件发布是尽力而为:失败只记录不影响主流程
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, message interface{}) error
}

// LifecycleEvent 预留单生命周期事件(消息体)
type LifecycleEvent struct {
	ReservationID string    `json:"reservation_id"`
	OrderID       string    `json:"order_id,omitempty"`
	Status        int       `json:"status"`
	ItemCount     int       `json:"item_count"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Service 预留单应用服务
type Service struct {
	cfg        Config
	router     *regional.Router
	controller *regional.Controller
	stores     map[region.ID]inventory.Store
	mutators   map[region.ID]*inventory.Mutator
	repos      map[region.ID]reservation.Repository
	catalog    catalog.Lookup
	publisher  EventPublisher
}

// NewService 创建应用服务
// 每个区域各挂一套库存仓储和预留单仓储,变更器在此组装并接上指标回调
func NewService(
	cfg Config,
	router *regional.Router,
	controller *regional.Controller,
	stores map[region.ID]inventory.Store,
	repos map[region.ID]reservation.Repository,
	lookup catalog.Lookup,
	publisher EventPublisher,
) *Service {
	mutators := make(map[region.ID]*inventory.Mutator, len(stores))
	for id, st := range stores {
		m := inventory.NewMutator(st, cfg.MutatorMaxAttempts)
		m.OnConflict = func() { metrics.MutatorConflictsTotal.Inc() }
		m.OnExhausted = func() { metrics.MutatorExhaustedTotal.Inc() }
		mutators[id] = m
	}

	return &Service{
		cfg:        cfg.withDefaults(),
		router:     router,
		controller: controller,
		stores:     stores,
		mutators:   mutators,
		repos:      repos,
		catalog:    lookup,
		publisher:  publisher,
	}
}

// repoFor 按区域取预留单仓储
func (s *Service) repoFor(r region.ID) (reservation.Repository, error) {
	repo, ok := s.repos[r]
	if !ok {
		return nil, apperrors.New(apperrors.ErrCodeInvalidParams, "未配置的区域: "+string(r))
	}
	return repo, nil
}

// applyStock 经熔断降级控制器执行一次库存变更
// home区域不可用时落到备用区域的同步副本,恢复后由控制器异步回写重放
func (s *Service) applyStock(ctx context.Context, home region.ID, sku, opName string, tf inventory.Transform) (*inventory.Record, error) {
	op := regional.Operation[*inventory.Record]{
		Name: opName,
		Call: func(cctx context.Context, r region.ID) (*inventory.Record, error) {
			mut, ok := s.mutators[r]
			if !ok {
				return nil, apperrors.New(apperrors.ErrCodeInternal, "区域库存仓储未配置: "+string(r))
			}
			return mut.Mutate(cctx, sku, tf)
		},
		Replicate: func(cctx context.Context, r region.ID) error {
			mut, ok := s.mutators[r]
			if !ok {
				return apperrors.New(apperrors.ErrCodeInternal, "区域库存仓储未配置: "+string(r))
			}
			_, err := mut.Mutate(cctx, sku, tf)
			return err
		},
	}
	return regional.Execute(ctx, s.controller, home, op)
}

// revertClaim 状态占住后库存操作失败时,把单据退回快照状态
// 回退失败只记录:单据状态和库存出现暂时不一致,靠清扫/重试收敛
func (s *Service) revertClaim(ctx context.Context, repo reservation.Repository, snapshot *reservation.Reservation, currentVersion int64) {
	if err := repo.UpdateStatusCAS(ctx, snapshot, currentVersion); err != nil {
		log.Printf("reservation: 状态回退失败 id=%s: %v", snapshot.ID, err)
	}
}

// publish 发布生命周期事件(尽力而为)
func (s *Service) publish(ctx context.Context, routingKey string, res *reservation.Reservation) {
	if s.publisher == nil {
		return
	}
	evt := LifecycleEvent{
		ReservationID: res.ID,
		OrderID:       res.OrderID,
		Status:        int(res.Status),
		ItemCount:     len(res.Items),
		OccurredAt:    time.Now(),
	}
	if err := s.publisher.Publish(ctx, routingKey, evt); err != nil {
		log.Printf("reservation: 事件发布失败 key=%s id=%s: %v", routingKey, res.ID, err)
	}
}

// observe 记录操作计数和耗时
func (s *Service) observe(operation string, start time.Time, err error) {
	result := "success"
	if err != nil {
		result = "failure"
	}
	metrics.ReservationsTotal.WithLabelValues(operation, result).Inc()
	metrics.ReservationDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
