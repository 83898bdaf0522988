package handler

import (
	"net/http"

	"gamevault/internal/domain/coupon/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

type CouponHandler struct {
	service service.CouponService
}

func NewCouponHandler(service service.CouponService) *CouponHandler {
	return &CouponHandler{service: service}
}

// ListMine 当前用户的券，subtotal 参数用于标注是否满足最低消费
func (h *CouponHandler) ListMine(c *gin.Context) {
	subtotal := decimal.Zero
	if raw := c.Query("subtotal"); raw != "" {
		v, err := decimal.NewFromString(raw)
		if err != nil {
			response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, "Invalid subtotal")
			return
		}
		subtotal = v
	}

	list, err := h.service.ListForUser(c.Request.Context(), middleware.GetUserID(c), subtotal)
	if err != nil {
		if err == service.ErrLoginRequired {
			response.Error(c, http.StatusUnauthorized, response.ErrLoginRequired, err.Error())
			return
		}
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, err.Error())
		return
	}

	response.Success(c, list)
}
