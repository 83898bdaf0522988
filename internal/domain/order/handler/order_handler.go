package handler

import (
	"errors"
	"net/http"

	"gamevault/internal/domain/order/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/realtime"
	"gamevault/internal/pkg/stream"
	"gamevault/pkg/logger"
	"gamevault/pkg/response"
	"gamevault/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type OrderHandler struct {
	service  service.OrderService
	realtime realtime.Subscriber
}

func NewOrderHandler(s service.OrderService, rt realtime.Subscriber) *OrderHandler {
	return &OrderHandler{service: s, realtime: rt}
}

// ListOrders 购买记录
func (h *OrderHandler) ListOrders(c *gin.Context) {
	var page utils.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	result, err := h.service.History(c.Request.Context(), middleware.GetUserID(c), c.Query("status"), page)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}
	response.Success(c, result)
}

// GetOrder 订单详情（含商品）
func (h *OrderHandler) GetOrder(c *gin.Context) {
	order, err := h.service.Get(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, order)
}

// Repurchase 再来一单快照
func (h *OrderHandler) Repurchase(c *gin.Context) {
	snap, err := h.service.Repurchase(c.Request.Context(), middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, snap)
}

// Events 订单详情页的实时状态推送
func (h *OrderHandler) Events(c *gin.Context) {
	ctx := c.Request.Context()
	order, err := h.service.Get(ctx, middleware.GetUserID(c), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}

	sub, err := h.realtime.Subscribe(ctx, order.ID)
	if err != nil {
		response.Error(c, http.StatusServiceUnavailable, response.ErrNetworkUnavailable, "Realtime updates are unavailable")
		return
	}
	defer sub.Close()

	conn, err := stream.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("Order events upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	if err := conn.WriteJSON(realtime.OrderUpdate{ID: order.ID, Status: order.Status}); err != nil {
		return
	}
	if err := stream.Pump(conn, sub.Updates()); err != nil {
		logger.Log.Debug("Order events stream closed", zap.String("order_id", order.ID), zap.Error(err))
	}
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case errors.Is(err, service.ErrNothingToRepurchase):
		response.Fail(c, response.ErrOrderNotFound, err.Error())
	default:
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
	}
}
