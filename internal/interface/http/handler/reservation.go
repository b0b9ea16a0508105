package handler

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	appreservation "github.com/smarte-commerce/inventory-engine/internal/application/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
	"github.com/smarte-commerce/inventory-engine/internal/domain/reservation"
	"github.com/smarte-commerce/inventory-engine/internal/interface/http/dto"
	"github.com/smarte-commerce/inventory-engine/internal/interface/http/middleware"
	apperrors "github.com/smarte-commerce/inventory-engine/pkg/errors"
	"github.com/smarte-commerce/inventory-engine/pkg/response"
)

// ReservationHandler 预留单HTTP处理器
type ReservationHandler struct {
	service *appreservation.Service
}

// NewReservationHandler 创建预留单处理器
func NewReservationHandler(service *appreservation.Service) *ReservationHandler {
	return &ReservationHandler{service: service}
}

// requestContext 合并中间件收集的线索和body里的显式区域
func requestContext(c *gin.Context, explicit string) region.RequestContext {
	rc := middleware.RequestContext(c)
	if explicit != "" {
		rc.Explicit = region.ID(strings.ToUpper(strings.TrimSpace(explicit)))
	}
	return rc
}

// Create 创建预留
// POST /api/v1/reservations
//
// 多行项预留:任一行项库存不足时整单失败,已扣的行项被补偿释放,
// 响应码40001并携带缺货明细
func (h *ReservationHandler) Create(c *gin.Context) {
	var req dto.CreateReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	items := make([]appreservation.ReserveItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = appreservation.ReserveItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		}
	}

	var ttl *time.Duration
	if req.TTLSeconds != nil {
		d := time.Duration(*req.TTLSeconds) * time.Second
		ttl = &d
	}

	res, err := h.service.Reserve(c.Request.Context(), requestContext(c, req.Region), appreservation.ReserveRequest{
		ReservationID: req.ReservationID,
		Items:         items,
		TTL:           ttl,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toReservationResponse(res))
}

// Confirm 确认预留
// POST /api/v1/reservations/:id/confirm
func (h *ReservationHandler) Confirm(c *gin.Context) {
	var req dto.ConfirmReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	res, err := h.service.Confirm(c.Request.Context(), requestContext(c, req.Region), c.Param("id"), req.OrderID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toReservationResponse(res))
}

// Cancel 取消预留
// POST /api/v1/reservations/:id/cancel
func (h *ReservationHandler) Cancel(c *gin.Context) {
	// body可省略
	var req dto.CancelReservationRequest
	_ = c.ShouldBindJSON(&req)

	res, err := h.service.Cancel(c.Request.Context(), requestContext(c, req.Region), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, toReservationResponse(res))
}

// Validity 查询预留单有效性
// GET /api/v1/reservations/:id/valid
func (h *ReservationHandler) Validity(c *gin.Context) {
	id := c.Param("id")
	valid, err := h.service.IsValid(c.Request.Context(), requestContext(c, ""), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Success(c, &dto.ValidityResponse{ReservationID: id, Valid: valid})
}

// CheckAvailability 批量查询可售数量
// POST /api/v1/availability
func (h *ReservationHandler) CheckAvailability(c *gin.Context) {
	var req dto.CheckAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.ErrorWithCode(c, apperrors.ErrCodeBindError, "参数错误: "+err.Error())
		return
	}

	items := make([]appreservation.AvailabilityItem, len(req.Items))
	for i, item := range req.Items {
		items[i] = appreservation.AvailabilityItem{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			Quantity:  item.Quantity,
		}
	}

	results, err := h.service.CheckAvailability(c.Request.Context(), requestContext(c, req.Region), items)
	if err != nil {
		response.Error(c, err)
		return
	}

	out := make([]dto.AvailabilityResultResponse, len(results))
	for i, r := range results {
		out[i] = dto.AvailabilityResultResponse{
			ProductID:     r.ProductID,
			VariantID:     r.VariantID,
			SKU:           r.SKU,
			Region:        r.Region,
			Available:     r.Available,
			StockQuantity: r.StockQuantity,
			CurrentPrice:  r.CurrentPrice,
			PriceYuan:     dto.FormatPriceYuan(r.CurrentPrice),
		}
	}
	response.Success(c, out)
}

// RegionHealth 全区域健康快照
// GET /api/v1/regions/health
func (h *ReservationHandler) RegionHealth(c *gin.Context) {
	response.Success(c, h.service.GetRegionHealth())
}

// toReservationResponse 领域实体→HTTP响应
func toReservationResponse(res *reservation.Reservation) *dto.ReservationResponse {
	items := make([]dto.ReservationItemResponse, len(res.Items))
	for i, item := range res.Items {
		items[i] = dto.ReservationItemResponse{
			ProductID: item.ProductID,
			VariantID: item.VariantID,
			SKU:       item.SKU,
			Region:    string(item.Region),
			Quantity:  item.Quantity,
			Confirmed: item.Confirmed,
		}
	}
	return &dto.ReservationResponse{
		ReservationID: res.ID,
		Status:        res.Status.String(),
		StatusCode:    int(res.Status),
		OrderID:       res.OrderID,
		Items:         items,
		ExpiresAt:     dto.FormatTime(res.ExpiresAt),
		CreatedAt:     dto.FormatTime(res.CreatedAt),
	}
}
