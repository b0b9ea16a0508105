package reservation

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/smarte-commerce/inventory-engine/internal/domain/inventory"
	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/pkg/metrics"
	"github.com/smarte-commerce/inventory-engine/pkg/saga"
	"github.com/smarte-commerce/inventory-engine/pkg/tracing"
)

// Confirm 确认预留单:PENDING→CONFIRMED,各行项预留→售出
//
// 幂等性:同一订单号重复确认直接返回成功;不同订单号确认已确认的单
// 返回状态非法。访问时发现PENDING已超时,先懒过期再拒绝。
// 与取消/清扫的竞争靠版本CAS先占状态解决,输家放弃。
func (s *Service) Confirm(ctx context.Context, rc region.RequestContext, reservationID, orderID string) (*reservation.Reservation, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Confirm")
	defer span.End()
	start := time.Now()

	home := s.router.Resolve(rc)
	repo, err := s.repoFor(home)
	if err != nil {
		return nil, err
	}

	res, err := repo.Get(ctx, reservationID)
	if err != nil {
		s.observe("confirm", start, err)
		return nil, err
	}

	now := time.Now()
	if res.Status == reservation.StatusPending && res.IsExpired(now) {
		// 懒过期:先把超时单转为EXPIRED并释放库存,再回答调用方
		if eerr := s.expire(ctx, home, res); eerr != nil {
			log.Printf("reservation: 懒过期失败 id=%s: %v", res.ID, eerr)
		}
		s.observe("confirm", start, reservation.ErrInvalidStatusTransition)
		return nil, reservation.ErrInvalidStatusTransition
	}

	switch res.Status {
	case reservation.StatusConfirmed:
		if res.OrderID == orderID {
			// 重复确认,幂等返回
			s.observe("confirm", start, nil)
			return res, nil
		}
		s.observe("confirm", start, reservation.ErrInvalidStatusTransition)
		return nil, reservation.ErrInvalidStatusTransition
	case reservation.StatusCancelled, reservation.StatusExpired:
		s.observe("confirm", start, reservation.ErrInvalidStatusTransition)
		return nil, reservation.ErrInvalidStatusTransition
	}

	// 先CAS占住状态:并发的确认/取消/清扫只有一方能赢
	snapshot := res.Clone()
	prev := res.Version
	if err := res.Confirm(orderID); err != nil {
		s.observe("confirm", start, err)
		return nil, err
	}
	if err := repo.UpdateStatusCAS(ctx, res, prev); err != nil {
		if errors.Is(err, reservation.ErrVersionConflict) {
			err = reservation.ErrInvalidStatusTransition
		}
		s.observe("confirm", start, err)
		return nil, err
	}

	// 逐行项预留→售出,部分失败则逆序补偿并把状态退回PENDING
	sg := saga.New(sagaTimeout)
	for i := range res.Items {
		item := res.Items[i]
		sg.AddStep("confirm "+item.SKU,
			func(c context.Context) error {
				_, err := s.applyStock(c, item.Region, item.SKU, "confirm:"+item.SKU, inventory.ConfirmSale(item.Quantity))
				return err
			},
			func(c context.Context) error {
				_, err := s.applyStock(c, item.Region, item.SKU, "unconfirm:"+item.SKU, revertSale(item.Quantity))
				return err
			})
	}
	if err := sg.Execute(ctx); err != nil {
		metrics.ReservationCompensationsTotal.Inc()
		s.revertClaim(ctx, repo, snapshot, res.Version)
		s.observe("confirm", start, err)
		return nil, err
	}

	s.publish(ctx, "reservation.confirmed", res)
	s.observe("confirm", start, nil)
	return res, nil
}

// Cancel 取消预留单:PENDING→CANCELLED,各行项预留→可售
// 幂等性:已取消的单重复取消返回成功;已确认/已过期的单不可取消。
func (s *Service) Cancel(ctx context.Context, rc region.RequestContext, reservationID string) (*reservation.Reservation, error) {
	ctx, span := tracing.StartSpan(ctx, tracerName, "Cancel")
	defer span.End()
	start := time.Now()

	home := s.router.Resolve(rc)
	repo, err := s.repoFor(home)
	if err != nil {
		return nil, err
	}

	res, err := repo.Get(ctx, reservationID)
	if err != nil {
		s.observe("cancel", start, err)
		return nil, err
	}

	now := time.Now()
	if res.Status == reservation.StatusPending && res.IsExpired(now) {
		if eerr := s.expire(ctx, home, res); eerr != nil {
			log.Printf("reservation: 懒过期失败 id=%s: %v", res.ID, eerr)
		}
		s.observe("cancel", start, reservation.ErrInvalidStatusTransition)
		return nil, reservation.ErrInvalidStatusTransition
	}

	switch res.Status {
	case reservation.StatusCancelled:
		// 重复取消,幂等返回
		s.observe("cancel", start, nil)
		return res, nil
	case reservation.StatusConfirmed, reservation.StatusExpired:
		s.observe("cancel", start, reservation.ErrInvalidStatusTransition)
		return nil, reservation.ErrInvalidStatusTransition
	}

	snapshot := res.Clone()
	prev := res.Version
	if err := res.Cancel(); err != nil {
		s.observe("cancel", start, err)
		return nil, err
	}
	if err := repo.UpdateStatusCAS(ctx, res, prev); err != nil {
		if errors.Is(err, reservation.ErrVersionConflict) {
			err = reservation.ErrInvalidStatusTransition
		}
		s.observe("cancel", start, err)
		return nil, err
	}

	// 逐行项释放预留,部分失败则补偿回预留并退回PENDING
	sg := saga.New(sagaTimeout)
	for i := range res.Items {
		item := res.Items[i]
		sg.AddStep("release "+item.SKU,
			func(c context.Context) error {
				_, err := s.applyStock(c, item.Region, item.SKU, "release:"+item.SKU, inventory.Release(item.Quantity))
				return err
			},
			func(c context.Context) error {
				_, err := s.applyStock(c, item.Region, item.SKU, "reserve:"+item.SKU, inventory.Reserve(item.Quantity))
				return err
			})
	}
	if err := sg.Execute(ctx); err != nil {
		metrics.ReservationCompensationsTotal.Inc()
		s.revertClaim(ctx, repo, snapshot, res.Version)
		s.observe("cancel", start, err)
		return nil, err
	}

	s.publish(ctx, "reservation.cancelled", res)
	s.observe("cancel", start, nil)
	return res, nil
}

// revertSale 售出→预留,确认部分失败时的补偿变更
// 正向的ConfirmSale在领域层,这个逆操作只在补偿路径出现,放应用层
func revertSale(qty int) inventory.Transform {
	return func(r *inventory.Record) error {
		if qty <= 0 {
			return inventory.ErrInvalidQuantity
		}
		if r.Sold < qty {
			return inventory.ErrNegativeQuantity
		}
		r.Sold -= qty
		r.Reserved += qty
		return nil
	}
}
