package response

// 业务状态码
const (
	CodeSuccess = 0
	CodeError   = 1

	// 鉴权错误 100xx
	ErrTokenInvalid  = 10004
	ErrNoPermission  = 10005
	ErrLoginRequired = 10006

	// 优惠券模块错误 200xx
	ErrCouponNotFound = 20001
	ErrCouponInvalid  = 20004
	ErrCouponMinSpend = 20005

	// 玩家身份校验错误 300xx
	ErrServerRequired     = 30001
	ErrValidationRejected = 30002
	ErrValidationTimeout  = 30003

	// 结算流程错误 400xx
	ErrDraftIncomplete       = 40001
	ErrOrderCreationFailed   = 40002
	ErrPaymentArtifactFailed = 40003
	ErrSessionExpired        = 40004
	ErrPendingPayment        = 40005
	ErrPriceChanged          = 40006
	ErrInvalidTransition     = 40007

	// 目录/订单/评价错误 450xx
	ErrOrderNotFound    = 45001
	ErrGameNotFound     = 45002
	ErrProductNotFound  = 45003
	ErrReviewNotAllowed = 45004

	// 系统错误 500xx
	ErrServerInternal     = 50001
	ErrInvalidParam       = 50002
	ErrTooManyRequests    = 50003
	ErrNetworkUnavailable = 50004
)
