package checkout

import (
	catalogRepo "gamevault/internal/domain/catalog/repository"
	catalogService "gamevault/internal/domain/catalog/service"
	"gamevault/internal/domain/checkout/handler"
	"gamevault/internal/domain/checkout/service"
	"gamevault/internal/domain/checkout/store"
	couponRepo "gamevault/internal/domain/coupon/repository"
	couponService "gamevault/internal/domain/coupon/service"
	identityService "gamevault/internal/domain/identity/service"
	orderRepo "gamevault/internal/domain/order/repository"
	orderService "gamevault/internal/domain/order/service"
	"gamevault/internal/domain/payment/strategy"
	"gamevault/internal/pkg/config"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CheckoutModule 结账会话：草稿、下单、等待支付
type CheckoutModule struct{}

func init() {
	registry.Register(&CheckoutModule{})
}

func (m *CheckoutModule) Name() string {
	return "checkout"
}

func (m *CheckoutModule) Priority() int {
	return 20
}

func (m *CheckoutModule) Init(ctx *registry.ModuleContext) error {
	cfg := config.GlobalConfig.Checkout

	// 1. 依赖注入
	sessions := store.NewRedisStore(ctx.Redis, cfg.PendingRetention)
	payments := strategy.NewRegistry(strategy.NewPayNowStrategy(ctx.Gateway))

	svc := service.NewCheckoutService(service.Deps{
		Sessions: sessions,
		Prefs:    sessions,
		Catalog:  catalogService.NewCatalogService(catalogRepo.NewCatalogRepository(ctx.DB), ctx.Gateway),
		Identity: identityService.NewValidator(ctx.Gateway),
		Coupons:  couponService.NewCouponService(couponRepo.NewCouponRepository(ctx.DB)),
		Orders:   orderService.NewOrderService(orderRepo.NewOrderRepository(ctx.DB)),
		Payments: payments,
		Realtime: ctx.Realtime,
	}, service.OptionsFrom(cfg))
	svc.Start(ctx.Ctx)
	go func() {
		<-ctx.Ctx.Done()
		svc.Stop()
	}()

	// 2. 路由注册
	setupRoutes(ctx.Router, handler.NewCheckoutHandler(svc))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CheckoutHandler) {
	g := r.Group("/checkout")
	g.Use(middleware.CheckoutSessionMiddleware(), middleware.OptionalAuthMiddleware())
	{
		g.POST("/draft", h.StartDraft)
		g.GET("/draft", h.GetDraft)
		g.DELETE("/draft", h.DiscardDraft)
		g.PUT("/draft/identity", h.UpdateIdentity)
		g.PUT("/draft/role", h.SelectRole)
		g.PUT("/draft/product", h.SelectProduct)
		g.PUT("/draft/quantity", h.SetQuantity)
		g.PUT("/draft/payment-method", h.SelectPaymentMethod)
		g.POST("/draft/coupon", h.ApplyCoupon)
		g.DELETE("/draft/coupon", h.RemoveCoupon)
		g.POST("/repurchase/:orderId", h.StartRepurchase)

		g.POST("/submit", h.Submit)
		g.GET("/payment", h.Payment)
		g.POST("/payment/cancel", h.Cancel)
		g.GET("/events", h.Events)
	}
}
