package handler

import (
	"errors"
	"net/http"

	"gamevault/internal/domain/review/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type ReviewHandler struct {
	service service.ReviewService
}

func NewReviewHandler(service service.ReviewService) *ReviewHandler {
	return &ReviewHandler{service: service}
}

// Stats 评分与销量
// @Summary 游戏评分与销量
// @Tags Review
// @Produce json
// @Param key path string true "Game key"
// @Success 200 {object} response.Response{data=model.GameStats}
// @Router /games/{key}/reviews/stats [get]
func (h *ReviewHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context(), c.Param("key"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, stats)
}

// Latest 最新评价
func (h *ReviewHandler) Latest(c *gin.Context) {
	list, err := h.service.Latest(c.Request.Context(), c.Param("key"))
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, list)
}

// Submit 对已购买的订单发表评价
// @Summary 发表评价
// @Tags Review
// @Accept json
// @Produce json
// @Security Bearer
// @Param input body service.SubmitInput true "Review"
// @Success 200 {object} response.Response{data=service.SubmitResult}
// @Router /reviews [post]
func (h *ReviewHandler) Submit(c *gin.Context) {
	var req service.SubmitInput
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return
	}

	res, err := h.service.Submit(c.Request.Context(), middleware.GetUserID(c), req)
	if err != nil {
		fail(c, err)
		return
	}
	response.Success(c, res)
}

func fail(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrLoginRequired):
		response.Error(c, http.StatusUnauthorized, response.ErrLoginRequired, err.Error())
	case errors.Is(err, service.ErrInvalidRating), errors.Is(err, service.ErrOrderRequired):
		response.Fail(c, response.ErrInvalidParam, err.Error())
	case errors.Is(err, service.ErrOrderNotFound), errors.Is(err, service.ErrInvalidOrder):
		response.Fail(c, response.ErrReviewNotAllowed, err.Error())
	default:
		middleware.RequestLogger(c).Error("Review request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Internal server error")
	}
}
