package reservation

import (
	"context"
	"log"
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/regional"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
	"github.com/smarte-commerce/inventory-engine/pkg/tracing"
)

// Get 查询预留单
func (s *Service) Get(ctx context.Context, rc region.RequestContext, reservationID string) (*reservation.Reservation, error) {
	home := s.router.Resolve(rc)
	repo, err := s.repoFor(home)
	if err != nil {
		return nil, err
	}
	return repo.Get(ctx, reservationID)
}

// IsValid 判断预留单当前是否有效
//
// 有效 = PENDING且未超时,或CONFIRMED。不存在的单返回false而非错误。
// 访问即懒过期:发现PENDING已超时会顺手转为EXPIRED并释放库存。
func (s *Service) IsValid(ctx context.Context, rc region.RequestContext, reservationID string) (bool, error) {
	home := s.router.Resolve(rc)
	repo, err := s.repoFor(home)
	if err != nil {
		return false, err
	}

	res, err := repo.Get(ctx, reservationID)
	if err != nil {
		if apperrors.IsCode(err, apperrors.ErrCodeReservationNotFound) {
			return false, nil
		}
		return false, err
	}

	now := time.Now()
	if res.Status == reservation.StatusPending && res.IsExpired(now) {
		if eerr := s.expire(ctx, home, res); eerr != nil {
			log.Printf("reservation: 懒过期失败 id=%s: %v", res.ID, eerr)
		}
		return false, nil
	}
	return res.IsValid(now), nil
}

// AvailabilityItem 可用性查询行项
type AvailabilityItem struct {
	ProductID uint
	VariantID uint
	Quantity  int
}

// AvailabilityResult 单个变体的可用性回答
type AvailabilityResult struct {
	ProductID     uint   `json:"product_id"`
	VariantID     uint   `json:"variant_id"`
	SKU           string `json:"sku"`
	Region        string `json:"region"`
	Available     bool   `json:"available"`
	StockQuantity int    `json:"stock_quantity"`
	CurrentPrice  int64  `json:"current_price"`
}

// stockSnapshot 只读库存快照,作为降级缓存的值序列化
type stockSnapshot struct {
	SKU       string `json:"sku"`
	Available int    `json:"available"`
}

// CheckAvailability 批量查询变体在请求区域的可售数量
//
// 只读且可缓存:请求区域故障时依次落到新鲜缓存、备用区域、
// 陈旧缓存(允许时)。价格来自商品目录,不走降级链路。
// 未建库存记录的SKU视为不可售,不报错。
func (s *Service) CheckAvailability(ctx context.Context, rc region.RequestContext, items []AvailabilityItem) ([]AvailabilityResult, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "CheckAvailability")
	defer span.End()

	home := s.router.Resolve(rc)
	results := make([]AvailabilityResult, 0, len(items))

	for _, it := range items {
		v, err := s.catalog.FindVariant(ctx, it.ProductID, it.VariantID)
		if err != nil {
			return nil, err
		}

		sku := v.SKU
		op := regional.Operation[stockSnapshot]{
			Name:      regional.AvailabilityOp(sku),
			Cacheable: true,
			Call: func(cctx context.Context, r region.ID) (stockSnapshot, error) {
				st, ok := s.stores[r]
				if !ok {
					return stockSnapshot{}, apperrors.New(apperrors.ErrCodeInternal, "区域库存仓储未配置: "+string(r))
				}
				rec, err := st.Get(cctx, sku)
				if err != nil {
					return stockSnapshot{}, err
				}
				return stockSnapshot{SKU: rec.SKU, Available: rec.Available}, nil
			},
		}

		result := AvailabilityResult{
			ProductID:    it.ProductID,
			VariantID:    it.VariantID,
			SKU:          sku,
			Region:       string(home),
			CurrentPrice: v.Price,
		}

		snap, err := regional.Execute(ctx, s.controller, home, op)
		switch {
		case err == nil:
			requested := it.Quantity
			if requested <= 0 {
				requested = 1
			}
			result.StockQuantity = snap.Available
			result.Available = snap.Available >= requested
		case apperrors.IsCode(err, apperrors.ErrCodeInventoryNotFound):
			// 没建档的SKU当0库存回答
		default:
			return nil, err
		}
		results = append(results, result)
	}
	return results, nil
}

// GetRegionHealth 全区域健康快照(运维观测用)
func (s *Service) GetRegionHealth() map[region.ID]regional.RegionHealth {
	return s.controller.HealthStatus()
}
