package mysql

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
)

// reservationRepository 预留单仓储实现(MySQL)
// 设计说明:
// 1. 预留单和行项是聚合关系,创建时一起保存
// 2. 查询时使用Preload预加载行项,避免N+1问题
// 3. 状态更新走版本CAS:懒过期、后台清扫、主动取消可能并发
//    转移同一张单,条件UPDATE保证恰好一方成功
type reservationRepository struct {
	db *gorm.DB
}

// NewReservationRepository 创建预留单仓储
func NewReservationRepository(db *gorm.DB) reservation.Repository {
	return &reservationRepository{db: db}
}

// Create 创建预留单(包含行项)
// GORM通过foreignKey关联自动在同一事务中保存Items
func (r *reservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	model := toReservationModel(res)

	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return apperrors.Wrap(err, "创建预留单失败")
	}

	for i := range res.Items {
		res.Items[i].ID = model.Items[i].ID
	}
	res.CreatedAt = model.CreatedAt
	return nil
}

// Get 根据ID查找预留单(包含行项)
func (r *reservationRepository) Get(ctx context.Context, id string) (*reservation.Reservation, error) {
	var model ReservationModel
	err := r.db.WithContext(ctx).Preload("Items").First(&model, "id = ?", id).Error

	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, apperrors.Wrap(err, "查询预留单失败")
	}

	return toReservationEntity(&model), nil
}

// UpdateStatusCAS 条件更新状态与时间戳
// 单条UPDATE同时比较并递增版本;行项的Confirmed标记随确认一起刷新
func (r *reservationRepository) UpdateStatusCAS(ctx context.Context, res *reservation.Reservation, expectedVersion int64) error {
	result := r.db.WithContext(ctx).Model(&ReservationModel{}).
		Where("id = ? AND version = ?", res.ID, expectedVersion).
		Updates(map[string]interface{}{
			"status":       int(res.Status),
			"order_id":     res.OrderID,
			"confirmed_at": res.ConfirmedAt,
			"cancelled_at": res.CancelledAt,
			"version":      gorm.Expr("version + 1"),
		})

	if result.Error != nil {
		return apperrors.Wrap(result.Error, "更新预留单失败")
	}

	if result.RowsAffected == 0 {
		var model ReservationModel
		err := r.db.WithContext(ctx).First(&model, "id = ?", res.ID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return reservation.ErrReservationNotFound
		}
		return reservation.ErrVersionConflict
	}

	// 确认时同步行项标记(尽力而为,行项标记只是展示用冗余)
	if res.Status == reservation.StatusConfirmed {
		r.db.WithContext(ctx).Model(&ReservationItemModel{}).
			Where("reservation_id = ?", res.ID).
			Update("confirmed", true)
	}

	res.Version = expectedVersion + 1
	return nil
}

// ListExpired 查询在before之前过期且仍为PENDING的预留单
// idx_sweep复合索引(status, expires_at)保证清扫查询不做全表扫描
func (r *reservationRepository) ListExpired(ctx context.Context, before time.Time, limit int) ([]*reservation.Reservation, error) {
	var models []ReservationModel

	err := r.db.WithContext(ctx).Preload("Items").
		Where("status = ? AND expires_at < ?", int(reservation.StatusPending), before).
		Order("expires_at ASC").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, apperrors.Wrap(err, "查询过期预留单失败")
	}

	out := make([]*reservation.Reservation, len(models))
	for i := range models {
		out[i] = toReservationEntity(&models[i])
	}
	return out, nil
}

// =========================================
// 辅助函数:模型转换
// =========================================

// toReservationModel 领域实体 → GORM模型
func toReservationModel(res *reservation.Reservation) *ReservationModel {
	items := make([]ReservationItemModel, len(res.Items))
	for i, item := range res.Items {
		items[i] = ReservationItemModel{
			ID:            item.ID,
			ReservationID: res.ID,
			ProductID:     item.ProductID,
			VariantID:     item.VariantID,
			SKU:           item.SKU,
			Region:        string(item.Region),
			Quantity:      item.Quantity,
			Confirmed:     item.Confirmed,
		}
	}

	return &ReservationModel{
		ID:          res.ID,
		Status:      int(res.Status),
		OrderID:     res.OrderID,
		ExpiresAt:   res.ExpiresAt,
		ConfirmedAt: res.ConfirmedAt,
		CancelledAt: res.CancelledAt,
		Version:     res.Version,
		Items:       items,
		CreatedAt:   res.CreatedAt,
	}
}

// toReservationEntity GORM模型 → 领域实体
func toReservationEntity(model *ReservationModel) *reservation.Reservation {
	items := make([]reservation.Item, len(model.Items))
	for i, item := range model.Items {
		items[i] = reservation.Item{
			ID:        item.ID,
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Region:    region.ID(item.Region),
			Quantity:  item.Quantity,
			Confirmed: item.Confirmed,
		}
	}

	return &reservation.Reservation{
		ID:          model.ID,
		Items:       items,
		Status:      reservation.Status(model.Status),
		OrderID:     model.OrderID,
		ExpiresAt:   model.ExpiresAt,
		CreatedAt:   model.CreatedAt,
		ConfirmedAt: model.ConfirmedAt,
		CancelledAt: model.CancelledAt,
		Version:     model.Version,
	}
}
