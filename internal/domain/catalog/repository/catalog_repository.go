package repository

import (
	"context"
	"errors"

	"gamevault/internal/domain/catalog/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("record not found")

type CatalogRepository interface {
	ListGames(ctx context.Context) ([]model.Game, error)
	GetGame(ctx context.Context, gameKey string) (*model.Game, error)
	ListProducts(ctx context.Context, gameKey string, region string) ([]model.Product, error)
	GetProduct(ctx context.Context, id int64) (*model.Product, error)
	ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error)
	GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error)
}

type catalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) CatalogRepository {
	return &catalogRepository{db: db}
}

func (r *catalogRepository) ListGames(ctx context.Context) ([]model.Game, error) {
	var games []model.Game
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("name ASC").Find(&games).Error; err != nil {
		return nil, err
	}
	return games, nil
}

func (r *catalogRepository) GetGame(ctx context.Context, gameKey string) (*model.Game, error) {
	var game model.Game
	err := r.db.WithContext(ctx).Where("game_key = ? AND is_active = ?", gameKey, true).First(&game).Error
	return notFound(&game, err)
}

// ListProducts region 为空时返回该游戏全部商品
func (r *catalogRepository) ListProducts(ctx context.Context, gameKey string, region string) ([]model.Product, error) {
	q := r.db.WithContext(ctx).Where("game_key = ? AND is_active = ?", gameKey, true)
	if region != "" {
		q = q.Where("region = ?", region)
	}

	var products []model.Product
	if err := q.Order("price ASC").Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

func (r *catalogRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	var product model.Product
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&product).Error
	return notFound(&product, err)
}

func (r *catalogRepository) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	var methods []model.PaymentMethod
	if err := r.db.WithContext(ctx).Where("is_active = ?", true).Order("sort_order ASC, id ASC").Find(&methods).Error; err != nil {
		return nil, err
	}
	return methods, nil
}

func (r *catalogRepository) GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	var method model.PaymentMethod
	err := r.db.WithContext(ctx).Where("id = ? AND is_active = ?", id, true).First(&method).Error
	return notFound(&method, err)
}

func notFound[T any](v *T, err error) (*T, error) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return v, nil
}
