package coupon

import (
	"gamevault/internal/domain/coupon/handler"
	"gamevault/internal/domain/coupon/repository"
	"gamevault/internal/domain/coupon/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CouponModule 优惠券模块
type CouponModule struct{}

func init() {
	registry.Register(&CouponModule{})
}

func (m *CouponModule) Name() string {
	return "coupon"
}

func (m *CouponModule) Priority() int {
	return 10
}

func (m *CouponModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	cRepo := repository.NewCouponRepository(ctx.DB)
	cService := service.NewCouponService(cRepo)
	cHandler := handler.NewCouponHandler(cService)

	// 2. 路由注册
	setupRoutes(ctx.Router, cHandler)

	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CouponHandler) {
	g := r.Group("/coupons")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("/mine", h.ListMine)
	}
}
