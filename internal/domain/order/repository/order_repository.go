package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"gamevault/internal/domain/order/model"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var ErrNotFound = errors.New("order not found")

// ProcedureError 存储过程抛出的业务错误，Message 原样展示
type ProcedureError struct {
	Message string
}

func (e *ProcedureError) Error() string { return e.Message }

type OrderRepository interface {
	CreateOrderAndCancelPending(ctx context.Context, p model.CreateOrderParams) (*model.CreatedOrder, error)
	GetReadableID(ctx context.Context, id string) (string, error)
	GetForUser(ctx context.Context, id, userID string) (*model.Order, error)
	ListByUser(ctx context.Context, userID, status string, offset, limit int) ([]model.Order, int64, error)
}

type orderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) OrderRepository {
	return &orderRepository{db: db}
}

// CreateOrderAndCancelPending 取消该用户其他待支付订单并创建新订单，在同一事务内完成
func (r *orderRepository) CreateOrderAndCancelPending(ctx context.Context, p model.CreateOrderParams) (*model.CreatedOrder, error) {
	items, err := json.Marshal(p.Items)
	if err != nil {
		return nil, err
	}

	var payload string
	err = r.db.WithContext(ctx).Raw(
		`SELECT create_order_and_cancel_pending(@user_id, @payment_method, @game_uid, @server_region, @game_nickname, @coupon_code, @remitter_name, @items::jsonb)`,
		map[string]interface{}{
			"user_id":        p.UserID,
			"payment_method": p.PaymentMethod,
			"game_uid":       p.GameUID,
			"server_region":  p.ServerRegion,
			"game_nickname":  p.GameNickname,
			"coupon_code":    p.CouponCode,
			"remitter_name":  p.RemitterName,
			"items":          string(items),
		},
	).Row().Scan(&payload)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			return nil, &ProcedureError{Message: pgErr.Message}
		}
		return nil, err
	}

	var created model.CreatedOrder
	if err := json.Unmarshal([]byte(payload), &created); err != nil {
		return nil, fmt.Errorf("decode order result: %w", err)
	}
	if created.ID == "" {
		return nil, errors.New("order result has no id")
	}
	return &created, nil
}

func (r *orderRepository) GetReadableID(ctx context.Context, id string) (string, error) {
	var readable string
	err := r.db.WithContext(ctx).Model(&model.Order{}).Where("id = ?", id).Pluck("readable_id", &readable).Error
	if err != nil {
		return "", err
	}
	return readable, nil
}

// GetForUser 按订单 ID 读取，限定归属用户
func (r *orderRepository) GetForUser(ctx context.Context, id, userID string) (*model.Order, error) {
	var order model.Order
	err := r.db.WithContext(ctx).
		Preload("Items.Product").
		Where("id = ? AND user_id = ?", id, userID).
		First(&order).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// ListByUser 购买记录，最新在前；status 为空表示全部
func (r *orderRepository) ListByUser(ctx context.Context, userID, status string, offset, limit int) ([]model.Order, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.Order{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var orders []model.Order
	err := q.Preload("Items.Product").
		Order("created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}
