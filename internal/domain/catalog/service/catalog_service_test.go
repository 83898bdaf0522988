package service

import (
	"context"
	"errors"
	"testing"

	"gamevault/internal/domain/catalog/model"
	"gamevault/internal/domain/catalog/repository"
	"gamevault/internal/pkg/gateway"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockCatalogRepository 模拟 CatalogRepository
type MockCatalogRepository struct {
	mock.Mock
}

func (m *MockCatalogRepository) ListGames(ctx context.Context) ([]model.Game, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.Game), args.Error(1)
}

func (m *MockCatalogRepository) GetGame(ctx context.Context, gameKey string) (*model.Game, error) {
	args := m.Called(ctx, gameKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Game), args.Error(1)
}

func (m *MockCatalogRepository) ListProducts(ctx context.Context, gameKey string, region string) ([]model.Product, error) {
	args := m.Called(ctx, gameKey, region)
	return args.Get(0).([]model.Product), args.Error(1)
}

func (m *MockCatalogRepository) GetProduct(ctx context.Context, id int64) (*model.Product, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Product), args.Error(1)
}

func (m *MockCatalogRepository) ListPaymentMethods(ctx context.Context) ([]model.PaymentMethod, error) {
	args := m.Called(ctx)
	return args.Get(0).([]model.PaymentMethod), args.Error(1)
}

func (m *MockCatalogRepository) GetPaymentMethod(ctx context.Context, id int64) (*model.PaymentMethod, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.PaymentMethod), args.Error(1)
}

type MockServerSource struct {
	mock.Mock
}

func (m *MockServerSource) GetServers(ctx context.Context, namespace string) ([]gateway.Server, error) {
	args := m.Called(ctx, namespace)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]gateway.Server), args.Error(1)
}

func TestListServers(t *testing.T) {
	ctx := context.Background()

	t.Run("Dynamic list", func(t *testing.T) {
		repo, src := new(MockCatalogRepository), new(MockServerSource)
		repo.On("GetGame", ctx, "ragnarok-origin").Return(&model.Game{GameKey: "ragnarok-origin", HasRegionSelection: true}, nil)
		src.On("GetServers", ctx, "ro-origin").Return([]gateway.Server{{ID: "1", Name: "Prontera"}}, nil)

		servers, err := NewCatalogService(repo, src).ListServers(ctx, "ragnarok-origin")
		require.NoError(t, err)
		assert.Equal(t, []model.Server{{Value: "1", Name: "Prontera"}}, servers)
		src.AssertExpectations(t)
	})

	t.Run("Static list", func(t *testing.T) {
		repo, src := new(MockCatalogRepository), new(MockServerSource)
		repo.On("GetGame", ctx, "identity-v").Return(&model.Game{GameKey: "identity-v", HasRegionSelection: true}, nil)

		servers, err := NewCatalogService(repo, src).ListServers(ctx, "identity-v")
		require.NoError(t, err)
		assert.Len(t, servers, 2)
		src.AssertNotCalled(t, "GetServers", mock.Anything, mock.Anything)
	})

	t.Run("Free-form server id", func(t *testing.T) {
		repo := new(MockCatalogRepository)
		repo.On("GetGame", ctx, "mobile-legends").Return(&model.Game{GameKey: "mobile-legends", HasServerID: true}, nil)

		servers, err := NewCatalogService(repo, nil).ListServers(ctx, "mobile-legends")
		require.NoError(t, err)
		assert.Empty(t, servers)
	})

	t.Run("Upstream failure", func(t *testing.T) {
		repo, src := new(MockCatalogRepository), new(MockServerSource)
		repo.On("GetGame", ctx, "ragnarok-origin").Return(&model.Game{GameKey: "ragnarok-origin", HasRegionSelection: true}, nil)
		src.On("GetServers", ctx, "ro-origin").Return(nil, gateway.ErrUnavailable)

		_, err := NewCatalogService(repo, src).ListServers(ctx, "ragnarok-origin")
		assert.ErrorIs(t, err, gateway.ErrUnavailable)
	})

	t.Run("Unknown game", func(t *testing.T) {
		repo := new(MockCatalogRepository)
		repo.On("GetGame", ctx, "nope").Return(nil, repository.ErrNotFound)

		_, err := NewCatalogService(repo, nil).ListServers(ctx, "nope")
		assert.ErrorIs(t, err, ErrGameNotFound)
	})
}

func TestListProducts(t *testing.T) {
	ctx := context.Background()
	game := &model.Game{GameKey: "mobile-legends", Regions: pq.StringArray{"MY", "SG"}}

	t.Run("Known region", func(t *testing.T) {
		repo := new(MockCatalogRepository)
		repo.On("GetGame", ctx, "mobile-legends").Return(game, nil)
		repo.On("ListProducts", ctx, "mobile-legends", "SG").Return([]model.Product{{ID: 1}}, nil)

		listing, err := NewCatalogService(repo, nil).ListProducts(ctx, "mobile-legends", "SG")
		require.NoError(t, err)
		assert.Equal(t, "SG", listing.ActiveRegion)
		assert.Len(t, listing.Products, 1)
	})

	t.Run("Falls back to first region", func(t *testing.T) {
		repo := new(MockCatalogRepository)
		repo.On("GetGame", ctx, "mobile-legends").Return(game, nil)
		repo.On("ListProducts", ctx, "mobile-legends", "MY").Return([]model.Product{}, nil)

		listing, err := NewCatalogService(repo, nil).ListProducts(ctx, "mobile-legends", "XX")
		require.NoError(t, err)
		assert.Equal(t, "MY", listing.ActiveRegion)
	})
}

func TestGetProduct(t *testing.T) {
	repo := new(MockCatalogRepository)
	repo.On("GetProduct", mock.Anything, int64(9)).Return(nil, repository.ErrNotFound)
	repo.On("GetProduct", mock.Anything, int64(10)).Return(nil, errors.New("db down"))

	svc := NewCatalogService(repo, nil)
	_, err := svc.GetProduct(context.Background(), 9)
	assert.ErrorIs(t, err, ErrProductNotFound)
	_, err = svc.GetProduct(context.Background(), 10)
	assert.EqualError(t, err, "db down")
}
