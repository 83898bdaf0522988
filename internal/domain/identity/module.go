package identity

import (
	catalogRepo "gamevault/internal/domain/catalog/repository"
	catalogService "gamevault/internal/domain/catalog/service"
	"gamevault/internal/domain/identity/handler"
	"gamevault/internal/domain/identity/service"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/registry"
)

// IdentityModule 玩家身份校验
type IdentityModule struct{}

func init() {
	registry.Register(&IdentityModule{})
}

func (m *IdentityModule) Name() string {
	return "identity"
}

func (m *IdentityModule) Priority() int {
	return 5
}

func (m *IdentityModule) Init(ctx *registry.ModuleContext) error {
	catalog := catalogService.NewCatalogService(catalogRepo.NewCatalogRepository(ctx.DB), ctx.Gateway)
	h := handler.NewIdentityHandler(catalog, service.NewValidator(ctx.Gateway))

	g := ctx.Router.Group("/identity")
	g.Use(middleware.OptionalAuthMiddleware())
	{
		g.GET("/:game/check", h.Check)
	}
	return nil
}
