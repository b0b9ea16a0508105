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
)

// expire 把一张超时的PENDING单转为EXPIRED并释放各行项库存
//
// 懒过期和后台清扫共用这条路径。先CAS占住状态:版本冲突说明
// 另一路(确认/取消/另一个清扫实例)已经处理,静默成功。
// 释放部分失败时状态退回PENDING,单据仍然超时,下一轮清扫重试。
func (s *Service) expire(ctx context.Context, home region.ID, res *reservation.Reservation) error {
	repo, err := s.repoFor(home)
	if err != nil {
		return err
	}

	snapshot := res.Clone()
	prev := res.Version
	if err := res.Expire(); err != nil {
		return err
	}
	if err := repo.UpdateStatusCAS(ctx, res, prev); err != nil {
		if errors.Is(err, reservation.ErrVersionConflict) {
			return nil
		}
		return err
	}

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
		s.revertClaim(ctx, repo, snapshot, res.Version)
		metrics.ReservationsTotal.WithLabelValues("expire", "failure").Inc()
		return err
	}

	metrics.ReservationsTotal.WithLabelValues("expire", "success").Inc()
	s.publish(ctx, "reservation.expired", res)
	return nil
}

// Sweeper 后台过期清扫
// 懒过期只覆盖被访问到的单,无人问津的超时单靠清扫兜底释放库存
type Sweeper struct {
	service  *Service
	interval time.Duration
	batch    int
}

// NewSweeper 创建清扫器
func NewSweeper(s *Service, interval time.Duration, batch int) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{service: s, interval: interval, batch: batch}
}

// Run 周期清扫,ctx取消时退出
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.SweepOnce(ctx)
		}
	}
}

// SweepOnce 清扫一轮:每个区域最多处理batch张超时单
// 单张失败不中断整轮,CAS保证与懒过期/用户操作并发时不会重复释放
func (w *Sweeper) SweepOnce(ctx context.Context) {
	now := time.Now()
	for _, r := range region.All() {
		repo, ok := w.service.repos[r]
		if !ok {
			continue
		}

		expired, err := repo.ListExpired(ctx, now, w.batch)
		if err != nil {
			log.Printf("sweeper: 查询超时单失败 [%s]: %v", r, err)
			continue
		}
		for _, res := range expired {
			if err := w.service.expire(ctx, r, res); err != nil {
				log.Printf("sweeper: 过期处理失败 [%s] id=%s: %v", r, res.ID, err)
			}
		}
	}
}
