package service

import (
	"context"
	"errors"

	"gamevault/internal/domain/catalog/model"
	"gamevault/internal/domain/catalog/repository"
	"gamevault/internal/pkg/gateway"
)

var (
	ErrGameNotFound          = errors.New("Game not found.")
	ErrProductNotFound       = errors.New("Product is no longer available.")
	ErrPaymentMethodNotFound = errors.New("Payment method is not available.")
	ErrNoPaymentMethods      = errors.New("No payment methods are currently available.")
)

// ServerSource 动态服务器列表
type ServerSource interface {
	GetServers(ctx context.Context, namespace string) ([]gateway.Server, error)
}

// ProductListing 商品列表，带区域分组
type ProductListing struct {
	Game         *model.Game     `json:"game"`
	Regions      []string        `json:"regions,omitempty"`
	ActiveRegion string          `json:"activeRegion,omitempty"`
	Products     []model.Product `json:"products"`
}

type CatalogService interface {
	ListGames(ctx context.Context) ([]model.Game, error)
	GetGame(ctx context.Context, gameKey string) (*model.Game, error)
	ListProducts(ctx context.Context, gameKey, region string) (*ProductListing, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error)
	ListServers(ctx context.Context, gameKey string) ([]model.Server, error)
}

type catalogService struct {
	repo    repository.CatalogRepository
	servers ServerSource
}

func NewCatalogService(repo repository.CatalogRepository, servers ServerSource) CatalogService {
	return &catalogService{repo: repo, servers: servers}
}

func (s *catalogService) ListGames(ctx context.Context) ([]model.Game, error) {
	return s.repo.ListGames(ctx)
}

func (s *catalogService) GetGame(ctx context.Context, gameKey string) (*model.Game, error) {
	game, err := s.repo.GetGame(ctx, gameKey)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrGameNotFound
	}
	return game, err
}

// ListProducts 有区域分组的游戏只返回当前区域的商品，未指定或未知区域时取第一个
func (s *catalogService) ListProducts(ctx context.Context, gameKey, region string) (*ProductListing, error) {
	game, err := s.GetGame(ctx, gameKey)
	if err != nil {
		return nil, err
	}

	listing := &ProductListing{Game: game, Regions: []string(game.Regions)}
	if len(game.Regions) > 0 {
		listing.ActiveRegion = game.Regions[0]
		for _, r := range game.Regions {
			if r == region {
				listing.ActiveRegion = r
				break
			}
		}
	}

	products, err := s.repo.ListProducts(ctx, game.GameKey, listing.ActiveRegion)
	if err != nil {
		return nil, err
	}
	listing.Products = products
	return listing, nil
}

func (s *catalogService) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	product, err := s.repo.GetProduct(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrProductNotFound
	}
	return product, err
}

func (s *catalogService) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	methods, err := s.repo.ListPaymentMethods(ctx)
	if err != nil {
		return nil, err
	}
	if len(methods) == 0 {
		return nil, ErrNoPaymentMethods
	}
	return methods, nil
}

func (s *catalogService) GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	method, err := s.repo.GetPaymentMethod(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrPaymentMethodNotFound
	}
	return method, err
}

// ListServers 按服务器要求返回候选列表；手填或无需服务器的游戏返回空
func (s *catalogService) ListServers(ctx context.Context, gameKey string) ([]model.Server, error) {
	game, err := s.GetGame(ctx, gameKey)
	if err != nil {
		return nil, err
	}

	switch req := game.ServerRequirement().(type) {
	case model.RegionChoice:
		if req.Namespace == "" {
			return model.StaticServers(game.GameKey), nil
		}
		remote, err := s.servers.GetServers(ctx, req.Namespace)
		if err != nil {
			return nil, err
		}
		out := make([]model.Server, 0, len(remote))
		for _, r := range remote {
			out = append(out, model.Server{Value: string(r.ID), Name: r.Name})
		}
		return out, nil
	default:
		return []model.Server{}, nil
	}
}
