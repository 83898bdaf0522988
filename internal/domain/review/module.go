package review

import (
	orderRepo "gamevault/internal/domain/order/repository"
	orderService "gamevault/internal/domain/order/service"
	"gamevault/internal/domain/review/handler"
	"gamevault/internal/domain/review/repository"
	"gamevault/internal/domain/review/service"
	"gamevault/internal/pkg/config"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/registry"
	"gamevault/internal/pkg/worker"

	"github.com/gin-gonic/gin"
)

// ReviewModule 游戏评价与评价积分
type ReviewModule struct{}

func init() {
	registry.Register(&ReviewModule{})
}

func (m *ReviewModule) Name() string {
	return "review"
}

func (m *ReviewModule) Priority() int {
	return 15
}

func (m *ReviewModule) Init(ctx *registry.ModuleContext) error {
	// 1. 依赖注入
	repo := repository.NewReviewRepository(ctx.DB)
	pool := worker.NewWorkerPool(repo, 2, 100)
	pool.Start(ctx.Ctx)

	svc := service.NewReviewService(
		repo,
		orderService.NewOrderService(orderRepo.NewOrderRepository(ctx.DB)),
		pool,
		config.GlobalConfig.Checkout.PointsPerReview,
	)

	// 2. 路由注册
	setupRoutes(ctx.Router, handler.NewReviewHandler(svc))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.ReviewHandler) {
	g := r.Group("/games/:key/reviews")
	{
		g.GET("/stats", h.Stats)
		g.GET("", h.Latest)
	}

	auth := r.Group("/reviews")
	auth.Use(middleware.AuthMiddleware())
	{
		auth.POST("", h.Submit)
	}
}
