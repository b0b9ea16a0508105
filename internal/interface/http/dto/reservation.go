package dto

import (
	"fmt"
	"time"
)

// timeLayout 响应里的时间格式
const timeLayout = "2006-01-02 15:04:05"

// FormatTime 格式化时间戳
func FormatTime(t time.Time) string {
	return t.Format(timeLayout)
}

// FormatPriceYuan 格式化价格(分→元)
func FormatPriceYuan(priceFen int64) string {
	return fmt.Sprintf("%.2f", float64(priceFen)/100.0)
}

// ReserveItemRequest 预留行项
type ReserveItemRequest struct {
	ProductID uint `json:"product_id" binding:"required" example:"1"`
	VariantID uint `json:"variant_id" binding:"required" example:"1"`
	Quantity  int  `json:"quantity" binding:"required,min=1,max=999" example:"2"`
}

// CreateReservationRequest HTTP创建预留请求
// region字段是显式区域指定,优先级最高;不填时按
// 查询参数/Header/Token/IP的顺序解析
type CreateReservationRequest struct {
	ReservationID string               `json:"reservation_id" binding:"omitempty,max=64"`
	Region        string               `json:"region" binding:"omitempty,max=8" example:"US"`
	TTLSeconds    *int                 `json:"ttl_seconds" binding:"omitempty,min=0,max=86400" example:"1800"`
	Items         []ReserveItemRequest `json:"items" binding:"required,min=1,dive"`
}

// ConfirmReservationRequest HTTP确认预留请求
type ConfirmReservationRequest struct {
	OrderID string `json:"order_id" binding:"required,max=64" example:"ORD1699248000123456"`
	Region  string `json:"region" binding:"omitempty,max=8"`
}

// CancelReservationRequest HTTP取消预留请求(body可为空)
type CancelReservationRequest struct {
	Region string `json:"region" binding:"omitempty,max=8"`
}

// ReservationItemResponse 预留单行项响应
type ReservationItemResponse struct {
	ProductID uint   `json:"product_id"`
	VariantID uint   `json:"variant_id"`
	SKU       string `json:"sku"`
	Region    string `json:"region"`
	Quantity  int    `json:"quantity"`
	Confirmed bool   `json:"confirmed"`
}

// ReservationResponse HTTP预留单响应
type ReservationResponse struct {
	ReservationID string                    `json:"reservation_id"`
	Status        string                    `json:"status" example:"待确认"`
	StatusCode    int                       `json:"status_code" example:"1"`
	OrderID       string                    `json:"order_id,omitempty"`
	Items         []ReservationItemResponse `json:"items"`
	ExpiresAt     string                    `json:"expires_at" example:"2024-11-06 11:00:00"`
	CreatedAt     string                    `json:"created_at" example:"2024-11-06 10:30:00"`
}

// ValidityResponse 预留单有效性响应
type ValidityResponse struct {
	ReservationID string `json:"reservation_id"`
	Valid         bool   `json:"valid"`
}

// AvailabilityItemRequest 可用性查询行项
type AvailabilityItemRequest struct {
	ProductID uint `json:"product_id" binding:"required"`
	VariantID uint `json:"variant_id" binding:"required"`
	Quantity  int  `json:"quantity" binding:"omitempty,min=1"`
}

// CheckAvailabilityRequest HTTP可用性查询请求
type CheckAvailabilityRequest struct {
	Region string                    `json:"region" binding:"omitempty,max=8"`
	Items  []AvailabilityItemRequest `json:"items" binding:"required,min=1,dive"`
}

// AvailabilityResultResponse 单个变体的可用性响应
type AvailabilityResultResponse struct {
	ProductID     uint   `json:"product_id"`
	VariantID     uint   `json:"variant_id"`
	SKU           string `json:"sku"`
	Region        string `json:"region"`
	Available     bool   `json:"available"`
	StockQuantity int    `json:"stock_quantity"`
	CurrentPrice  int64  `json:"current_price"`
	PriceYuan     string `json:"price_yuan" example:"19.99"`
}
