package catalog

import (
	"gamevault/internal/domain/catalog/handler"
	"gamevault/internal/domain/catalog/repository"
	"gamevault/internal/domain/catalog/service"
	"gamevault/internal/pkg/registry"

	"github.com/gin-gonic/gin"
)

// CatalogModule 游戏、商品、支付方式目录
type CatalogModule struct{}

func init() {
	registry.Register(&CatalogModule{})
}

func (m *CatalogModule) Name() string {
	return "catalog"
}

func (m *CatalogModule) Priority() int {
	return 1
}

func (m *CatalogModule) Init(ctx *registry.ModuleContext) error {
	repo := repository.NewCatalogRepository(ctx.DB)
	svc := service.NewCatalogService(repo, ctx.Gateway)
	setupRoutes(ctx.Router, handler.NewCatalogHandler(svc))
	return nil
}

func setupRoutes(r *gin.Engine, h *handler.CatalogHandler) {
	games := r.Group("/games")
	{
		games.GET("", h.ListGames)
		games.GET("/:key", h.GetGame)
		games.GET("/:key/products", h.ListProducts)
		games.GET("/:key/servers", h.ListServers)
	}
	r.GET("/products/:id", h.GetProduct)
	r.GET("/payment-methods", h.ListPaymentMethods)
}
