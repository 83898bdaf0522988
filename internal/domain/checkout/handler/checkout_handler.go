package handler

import (
	"errors"
	"net/http"

	catalogService "gamevault/internal/domain/catalog/service"
	"gamevault/internal/domain/checkout/service"
	couponService "gamevault/internal/domain/coupon/service"
	identityHandler "gamevault/internal/domain/identity/handler"
	identityService "gamevault/internal/domain/identity/service"
	orderService "gamevault/internal/domain/order/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/stream"
	"gamevault/pkg/logger"
	"gamevault/pkg/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type CheckoutHandler struct {
	service service.CheckoutService
}

func NewCheckoutHandler(service service.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{service: service}
}

type StartDraftRequest struct {
	GameKey string `json:"gameKey" binding:"required"`
}

type IdentityRequest struct {
	UID    string `json:"uid"`
	Server string `json:"server"`
}

type RoleRequest struct {
	RoleID string `json:"roleId" binding:"required"`
}

type ProductRequest struct {
	ProductID int64 `json:"productId" binding:"required"`
}

type QuantityRequest struct {
	Quantity int `json:"quantity"`
}

type PaymentMethodRequest struct {
	MethodID int64 `json:"methodId" binding:"required"`
}

type CouponRequest struct {
	Code string `json:"code"`
}

type SubmitRequest struct {
	RemitterName string `json:"remitterName"`
}

func caller(c *gin.Context) service.Caller {
	return service.Caller{
		SessionID: middleware.GetSessionID(c),
		Owner:     middleware.PreferenceOwner(c),
		UserID:    middleware.GetUserID(c),
	}
}

func bind(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		response.Error(c, http.StatusBadRequest, response.ErrInvalidParam, err.Error())
		return false
	}
	return true
}

// StartDraft 选择游戏后开始结账
// @Summary 开始结账草稿
// @Tags Checkout
// @Accept json
// @Produce json
// @Param X-Checkout-Session header string false "Checkout session"
// @Param input body StartDraftRequest true "Game"
// @Success 200 {object} response.Response{data=service.DraftView}
// @Router /checkout/draft [post]
func (h *CheckoutHandler) StartDraft(c *gin.Context) {
	var req StartDraftRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.service.StartDraft(c.Request.Context(), caller(c), req.GameKey)
	if err != nil {
		fail(c, err, view)
		return
	}
	response.Success(c, view)
}

// StartRepurchase 再来一单
func (h *CheckoutHandler) StartRepurchase(c *gin.Context) {
	view, err := h.service.StartRepurchase(c.Request.Context(), caller(c), c.Param("orderId"))
	if err != nil {
		fail(c, err, view)
		return
	}
	response.Success(c, view)
}

func (h *CheckoutHandler) GetDraft(c *gin.Context) {
	view, err := h.service.Draft(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err, view)
		return
	}
	response.Success(c, view)
}

func (h *CheckoutHandler) DiscardDraft(c *gin.Context) {
	if err := h.service.DiscardDraft(c.Request.Context(), caller(c)); err != nil {
		fail(c, err, nil)
		return
	}
	response.Success(c, nil)
}

func (h *CheckoutHandler) UpdateIdentity(c *gin.Context) {
	var req IdentityRequest
	if !bind(c, &req) {
		return
	}
	h.draftResult(c)(h.service.UpdateIdentity(c.Request.Context(), caller(c), req.UID, req.Server))
}

func (h *CheckoutHandler) SelectRole(c *gin.Context) {
	var req RoleRequest
	if !bind(c, &req) {
		return
	}
	h.draftResult(c)(h.service.SelectRole(c.Request.Context(), caller(c), req.RoleID))
}

func (h *CheckoutHandler) SelectProduct(c *gin.Context) {
	var req ProductRequest
	if !bind(c, &req) {
		return
	}
	h.draftResult(c)(h.service.SelectProduct(c.Request.Context(), caller(c), req.ProductID))
}

func (h *CheckoutHandler) SetQuantity(c *gin.Context) {
	var req QuantityRequest
	if !bind(c, &req) {
		return
	}
	h.draftResult(c)(h.service.SetQuantity(c.Request.Context(), caller(c), req.Quantity))
}

func (h *CheckoutHandler) SelectPaymentMethod(c *gin.Context) {
	var req PaymentMethodRequest
	if !bind(c, &req) {
		return
	}
	h.draftResult(c)(h.service.SelectPaymentMethod(c.Request.Context(), caller(c), req.MethodID))
}

func (h *CheckoutHandler) ApplyCoupon(c *gin.Context) {
	var req CouponRequest
	if !bind(c, &req) {
		return
	}
	h.draftResult(c)(h.service.ApplyCoupon(c.Request.Context(), caller(c), req.Code))
}

func (h *CheckoutHandler) RemoveCoupon(c *gin.Context) {
	h.draftResult(c)(h.service.RemoveCoupon(c.Request.Context(), caller(c)))
}

func (h *CheckoutHandler) draftResult(c *gin.Context) func(*service.DraftView, error) {
	return func(view *service.DraftView, err error) {
		if err != nil {
			fail(c, err, nil)
			return
		}
		response.Success(c, view)
	}
}

// Submit 下单并生成支付二维码
// @Summary 提交订单
// @Tags Checkout
// @Accept json
// @Produce json
// @Security Bearer
// @Param X-Checkout-Session header string true "Checkout session"
// @Param input body SubmitRequest true "Remitter"
// @Success 200 {object} response.Response{data=service.PaymentView}
// @Router /checkout/submit [post]
func (h *CheckoutHandler) Submit(c *gin.Context) {
	var req SubmitRequest
	if !bind(c, &req) {
		return
	}
	view, err := h.service.Submit(c.Request.Context(), caller(c), req.RemitterName)
	if err != nil {
		fail(c, err, nil)
		return
	}
	response.Success(c, view)
}

// Payment 支付页，刷新或重新打开时恢复
// @Summary 读取待支付订单
// @Tags Checkout
// @Produce json
// @Param X-Checkout-Session header string true "Checkout session"
// @Param orderId query string false "Order id from the payment link"
// @Success 200 {object} response.Response{data=service.PaymentView}
// @Router /checkout/payment [get]
func (h *CheckoutHandler) Payment(c *gin.Context) {
	view, err := h.service.Payment(c.Request.Context(), caller(c), c.Query("orderId"))
	if err != nil {
		fail(c, err, nil)
		return
	}
	response.Success(c, view)
}

// Cancel 放弃待支付订单
// @Summary 取消支付
// @Tags Checkout
// @Produce json
// @Param X-Checkout-Session header string true "Checkout session"
// @Success 200 {object} response.Response{data=service.PaymentView}
// @Router /checkout/payment/cancel [post]
func (h *CheckoutHandler) Cancel(c *gin.Context) {
	view, err := h.service.Cancel(c.Request.Context(), caller(c))
	if err != nil {
		fail(c, err, nil)
		return
	}
	response.Success(c, view)
}

// Events 支付页的倒计时与状态推送
// @Summary 支付倒计时 WebSocket
// @Tags Checkout
// @Param session query string true "Checkout session"
// @Router /checkout/events [get]
func (h *CheckoutHandler) Events(c *gin.Context) {
	cl := caller(c)
	events, detach, err := h.service.Watch(c.Request.Context(), cl)
	if err != nil {
		fail(c, err, nil)
		return
	}
	defer detach()

	conn, err := stream.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		logger.Log.Warn("Checkout events upgrade failed", zap.String("session", cl.SessionID), zap.Error(err))
		return
	}
	defer conn.Close()

	if err := stream.Pump(conn, events); err != nil {
		logger.Log.Debug("Checkout events stream closed", zap.String("session", cl.SessionID), zap.Error(err))
	}
}

// failData 错误响应附带的上下文
type failData struct {
	Redirect   string      `json:"redirect,omitempty"`
	OrderID    string      `json:"orderId,omitempty"`
	ReadableID string      `json:"readableId,omitempty"`
	Problems   []string    `json:"problems,omitempty"`
	View       interface{} `json:"view,omitempty"`
}

func fail(c *gin.Context, err error, view *service.DraftView) {
	var (
		redirect *service.RedirectError
		artifact *service.ArtifactError
		draft    *service.DraftError
	)
	data := failData{}
	if view != nil {
		data.View = view
	}
	if errors.As(err, &redirect) {
		data.Redirect = redirect.Redirect
	}

	switch {
	case errors.As(err, &artifact):
		data.OrderID = artifact.OrderID
		data.ReadableID = artifact.ReadableID
		data.Redirect = service.RedirectHistory
		response.FailWithData(c, response.ErrPaymentArtifactFailed, err.Error(), data)
	case errors.As(err, &draft):
		data.Problems = draft.Problems
		response.FailWithData(c, response.ErrDraftIncomplete, err.Error(), data)
	case errors.Is(err, service.ErrExpiredSession), errors.Is(err, service.ErrNoDraft),
		errors.Is(err, service.ErrNoPendingPayment), errors.Is(err, service.ErrSessionDataLost):
		response.FailWithData(c, response.ErrSessionExpired, err.Error(), data)
	case errors.Is(err, service.ErrPendingPaymentExists):
		response.FailWithData(c, response.ErrPendingPayment, err.Error(), data)
	case errors.Is(err, service.ErrPriceChanged):
		response.FailWithData(c, response.ErrPriceChanged, err.Error(), data)
	case errors.Is(err, service.ErrInvalidTransition):
		response.Fail(c, response.ErrInvalidTransition, err.Error())
	case errors.Is(err, service.ErrLoginRequired), errors.Is(err, couponService.ErrLoginRequired):
		response.Error(c, http.StatusUnauthorized, response.ErrLoginRequired, err.Error())
	case errors.Is(err, service.ErrRemitterRequired), errors.Is(err, service.ErrPaymentMethodRequired),
		errors.Is(err, service.ErrInvalidQuantity), errors.Is(err, service.ErrRoleNotFound):
		response.Fail(c, response.ErrInvalidParam, err.Error())
	case errors.Is(err, orderService.ErrOrderCreationFailed):
		response.Fail(c, response.ErrOrderCreationFailed, err.Error())
	case errors.Is(err, orderService.ErrOrderNotFound), errors.Is(err, orderService.ErrNothingToRepurchase):
		response.Error(c, http.StatusNotFound, response.ErrOrderNotFound, err.Error())
	case errors.Is(err, couponService.ErrMinSpend):
		response.Fail(c, response.ErrCouponMinSpend, err.Error())
	case errors.Is(err, couponService.ErrCouponInvalid), errors.Is(err, couponService.ErrCodeRequired):
		response.Fail(c, response.ErrCouponInvalid, err.Error())
	case errors.Is(err, catalogService.ErrGameNotFound):
		response.Error(c, http.StatusNotFound, response.ErrGameNotFound, err.Error())
	case errors.Is(err, catalogService.ErrProductNotFound):
		response.Fail(c, response.ErrProductNotFound, err.Error())
	case errors.Is(err, catalogService.ErrPaymentMethodNotFound):
		response.Fail(c, response.ErrInvalidParam, err.Error())
	case errors.Is(err, identityService.ErrUIDRequired), errors.Is(err, identityService.ErrServerRequired),
		errors.Is(err, identityService.ErrValidationTimeout), errors.Is(err, identityService.ErrValidationRejected),
		errors.Is(err, identityService.ErrNetworkUnavailable):
		identityHandler.Fail(c, err)
	default:
		middleware.RequestLogger(c).Error("Checkout request failed", zap.String("path", c.FullPath()), zap.Error(err))
		response.Error(c, http.StatusInternalServerError, response.ErrServerInternal, "Internal server error")
	}
}
