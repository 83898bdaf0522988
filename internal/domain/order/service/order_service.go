package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gamevault/internal/domain/order/model"
	"gamevault/internal/domain/order/repository"
	"gamevault/pkg/logger"
	"gamevault/pkg/utils"

	"go.uber.org/zap"
)

var (
	ErrOrderNotFound       = errors.New("Order not found.")
	ErrOrderCreationFailed = errors.New("order creation failed")
	ErrNothingToRepurchase = errors.New("This order has no items to repurchase.")
)

// CreationError 下单失败，Message 为展示给用户的原因
type CreationError struct {
	Message string
}

func (e *CreationError) Error() string {
	return "Order creation failed: " + e.Message
}

func (e *CreationError) Is(target error) bool { return target == ErrOrderCreationFailed }

type OrderService interface {
	Create(ctx context.Context, p model.CreateOrderParams) (*model.CreatedOrder, error)
	ReadableID(ctx context.Context, id string) string
	Get(ctx context.Context, userID, id string) (*model.Order, error)
	History(ctx context.Context, userID, status string, page utils.Pagination) (*utils.PageResult, error)
	Repurchase(ctx context.Context, userID, id string) (*model.RepurchaseSnapshot, error)
}

type orderService struct {
	repo repository.OrderRepository
}

func NewOrderService(repo repository.OrderRepository) OrderService {
	return &orderService{repo: repo}
}

func (s *orderService) Create(ctx context.Context, p model.CreateOrderParams) (*model.CreatedOrder, error) {
	created, err := s.repo.CreateOrderAndCancelPending(ctx, p)
	if err != nil {
		var procErr *repository.ProcedureError
		if errors.As(err, &procErr) {
			return nil, &CreationError{Message: procErr.Message}
		}
		logger.Log.Error("Create order failed", zap.String("user_id", p.UserID), zap.Error(err))
		return nil, &CreationError{Message: err.Error()}
	}

	logger.Log.Info("Order created",
		zap.String("order_id", created.ID),
		zap.String("user_id", p.UserID),
		zap.String("total", created.Total.StringFixed(2)),
	)
	return created, nil
}

// ReadableID 读取展示用订单号，失败时退回内部 ID
func (s *orderService) ReadableID(ctx context.Context, id string) string {
	readable, err := s.repo.GetReadableID(ctx, id)
	if err != nil || readable == "" {
		if err != nil {
			logger.Log.Warn("Readable id lookup failed", zap.String("order_id", id), zap.Error(err))
		}
		return id
	}
	return readable
}

func (s *orderService) Get(ctx context.Context, userID, id string) (*model.Order, error) {
	order, err := s.repo.GetForUser(ctx, id, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrOrderNotFound
	}
	return order, err
}

// History status 为空或 "All" 时不过滤
func (s *orderService) History(ctx context.Context, userID, status string, page utils.Pagination) (*utils.PageResult, error) {
	status = strings.TrimSpace(status)
	if strings.EqualFold(status, "all") {
		status = ""
	}

	offset, limit := page.GetPageOffset()
	orders, total, err := s.repo.ListByUser(ctx, userID, strings.ToLower(status), offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}

	return utils.NewPageResult(orders, total, page), nil
}

// Repurchase 以历史订单的第一件商品生成再来一单快照
func (s *orderService) Repurchase(ctx context.Context, userID, id string) (*model.RepurchaseSnapshot, error) {
	order, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if len(order.Items) == 0 || order.Items[0].Product == nil {
		return nil, ErrNothingToRepurchase
	}

	item := order.Items[0]
	snap := &model.RepurchaseSnapshot{
		GameKey:   item.Product.GameKey,
		ProductID: item.ProductID,
		UID:       order.GameUID,
		Quantity:  item.Quantity,
	}
	if order.ServerRegion != nil {
		snap.Server = *order.ServerRegion
	}
	if snap.Quantity < 1 {
		snap.Quantity = 1
	}
	return snap, nil
}
