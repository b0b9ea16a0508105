package reservation

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/smarte-commerce/inventory-engine/internal/domain/inventory"
	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/pkg/metrics"
	"github.com/smarte-commerce/inventory-engine/pkg/saga"
	"github.com/smarte-commerce/inventory-engine/pkg/tracing"
)

// ReserveRequest 创建预留请求
type ReserveRequest struct {
	// ReservationID 可选的调用方指定ID,为空时生成UUID
	ReservationID string
	Items         []ReserveItem
	// TTL 预留有效期,nil取配置默认值;显式0表示立即过期(联调用)
	TTL *time.Duration
}

// ReserveItem 预留请求行项
type ReserveItem struct {
	ProductID uint
	VariantID uint
	Quantity  int
}

// Reserve 创建预留单:各行项库存可售→预留
//
// 流程:
// 1. 解析每个行项的商品变体,取SKU和归属区域快照
// 2. 先落PENDING单据
// 3. 逐行项经熔断降级控制器扣减库存,任一失败则逆序补偿已扣的行项
// 4. 部分失败的单据标记CANCELLED,原始错误(库存不足/区域不可用)原样上抛
//
// 多行项没有跨区域事务:原子性靠补偿释放兜底,不靠锁
func (s *Service) Reserve(ctx context.Context, rc region.RequestContext, req ReserveRequest) (*reservation.Reservation, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Reserve")
	defer span.End()
	start := time.Now()

	if len(req.Items) == 0 {
		return nil, reservation.ErrEmptyItems
	}

	home := s.router.Resolve(rc)
	repo, err := s.repoFor(home)
	if err != nil {
		return nil, err
	}

	// 1. 解析行项:变体→SKU/归属区域快照,后续生命周期不再反查目录
	items := make([]reservation.Item, len(req.Items))
	for i, it := range req.Items {
		if it.Quantity <= 0 {
			return nil, reservation.ErrInvalidQuantity
		}
		v, err := s.catalog.FindVariant(ctx, it.ProductID, it.VariantID)
		if err != nil {
			return nil, err
		}
		items[i] = reservation.Item{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			SKU:       v.SKU,
			Region:    v.Region,
			Quantity:  it.Quantity,
		}
	}

	// 2. 先落PENDING单
	ttl := s.cfg.DefaultTTL
	if req.TTL != nil {
		ttl = *req.TTL
	}
	id := req.ReservationID
	if id == "" {
		id = uuid.NewString()
	}
	res := reservation.New(id, items, ttl)
	if err := repo.Create(ctx, res); err != nil {
		s.observe("reserve", start, err)
		return nil, err
	}

	// 3. 逐行项扣减,失败则逆序释放已扣的行项
	sg := saga.New(sagaTimeout)
	for i := range res.Items {
		item := res.Items[i]
		sg.AddStep("reserve "+item.SKU,
			func(c context.Context) error {
				_, err := s.applyStock(c, item.Region, item.SKU, "reserve:"+item.SKU, inventory.Reserve(item.Quantity))
				return err
			},
			func(c context.Context) error {
				_, err := s.applyStock(c, item.Region, item.SKU, "release:"+item.SKU, inventory.Release(item.Quantity))
				return err
			})
	}
	if err := sg.Execute(ctx); err != nil {
		// 补偿已由Saga逆序完成,这里只收尾:绝不留下部分预留的PENDING单
		metrics.ReservationCompensationsTotal.Inc()
		s.abandon(ctx, repo, res)
		s.observe("reserve", start, err)
		return nil, err
	}

	s.publish(ctx, "reservation.created", res)
	s.observe("reserve", start, nil)
	return res, nil
}

// abandon 预留失败后把单据标记为CANCELLED
func (s *Service) abandon(ctx context.Context, repo reservation.Repository, res *reservation.Reservation) {
	prev := res.Version
	if err := res.Cancel(); err != nil {
		log.Printf("reservation: 预留失败后标记取消被拒 id=%s: %v", res.ID, err)
		return
	}
	if err := repo.UpdateStatusCAS(ctx, res, prev); err != nil {
		log.Printf("reservation: 预留失败后标记取消失败 id=%s: %v", res.ID, err)
	}
}
