package repository

import (
	"context"
	"errors"

	"gamevault/internal/domain/coupon/model"

	"gorm.io/gorm"
)

var ErrNotFound = errors.New("coupon not found")

type CouponRepository interface {
	ListActiveByUser(ctx context.Context, userID string) ([]model.UserCoupon, error)
	FindActiveByCode(ctx context.Context, userID, code string) (*model.UserCoupon, error)
}

type couponRepository struct {
	db *gorm.DB
}

func NewCouponRepository(db *gorm.DB) CouponRepository {
	return &couponRepository{db: db}
}

// ListActiveByUser 用户未使用的券（含券定义）
func (r *couponRepository) ListActiveByUser(ctx context.Context, userID string) ([]model.UserCoupon, error) {
	var list []model.UserCoupon
	err := r.db.WithContext(ctx).
		Joins("Coupon").
		Where("user_coupons.user_id = ? AND user_coupons.status = ?", userID, model.UserCouponActive).
		Order("user_coupons.created_at DESC").
		Find(&list).Error
	if err != nil {
		return nil, err
	}
	return list, nil
}

// FindActiveByCode 按券码查找用户未使用的券
func (r *couponRepository) FindActiveByCode(ctx context.Context, userID, code string) (*model.UserCoupon, error) {
	var uc model.UserCoupon
	err := r.db.WithContext(ctx).
		Joins("Coupon").
		Where("user_coupons.user_id = ? AND user_coupons.status = ?", userID, model.UserCouponActive).
		Where(`"Coupon"."code" = ?`, code).
		First(&uc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &uc, nil
}
