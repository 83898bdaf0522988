package order

import (
	"gamevault/internal/domain/order/handler"
	"gamevault/internal/domain/order/repository"
	"gamevault/internal/domain/order/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// OrderModule 订单记录与详情
type OrderModule struct{}

func init() {
	registry.Register(&OrderModule{})
}

func (m *OrderModule) Name() string {
	return "order"
}

func (m *OrderModule) Priority() int {
	return 10
}

func (m *OrderModule) Init(ctx *registry.ModuleContext) error {
	svc := service.NewOrderService(repository.NewOrderRepository(ctx.DB))
	setupRoutes(ctx.Router, handler.NewOrderHandler(svc, ctx.Realtime))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.OrderHandler) {
	g := r.Group("/orders")
	g.Use(middleware.AuthMiddleware())
	{
		g.GET("", h.ListOrders)
		g.GET("/:id", h.GetOrder)
		g.GET("/:id/repurchase", h.Repurchase)
		g.GET("/:id/events", h.Events)
	}
}
