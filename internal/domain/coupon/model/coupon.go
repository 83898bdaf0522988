package model

import (
	"time"

	"gamevault/internal/domain/pricing"
	baseModel "gamevault/pkg/model"

	"github.com/shopspring/decimal"
)

// UserCoupon 状态
const (
	UserCouponActive = "active"
	UserCouponUsed   = "used"
)

// Coupon 优惠券定义
type Coupon struct {
	ID            int64           `gorm:"primaryKey" json:"id"`
	Code          string          `gorm:"type:varchar(64);uniqueIndex;not null" json:"code"`
	Description   string          `json:"description"`
	DiscountType  string          `gorm:"type:varchar(20);not null" json:"discountType"`
	DiscountValue decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"discountValue"`
	MinOrderValue decimal.Decimal `gorm:"type:numeric(10,2);default:0" json:"minOrderValue"`
	IsActive      bool            `gorm:"default:true" json:"isActive"`
	ExpiryDate    *time.Time      `json:"expiryDate,omitempty"`
}

// Rule 转换为计价规则
func (c *Coupon) Rule() pricing.CouponRule {
	t := pricing.DiscountFixed
	if c.DiscountType == string(pricing.DiscountPercentage) {
		t = pricing.DiscountPercentage
	}
	return pricing.CouponRule{Type: t, Value: c.DiscountValue}
}

// Expired 过期时间早于 now 视为过期
func (c *Coupon) Expired(now time.Time) bool {
	return c.ExpiryDate != nil && c.ExpiryDate.Before(now)
}

// UserCoupon 用户持有的优惠券
type UserCoupon struct {
	baseModel.BaseModel
	UserID   string  `gorm:"type:uuid;index;not null" json:"userId"`
	CouponID int64   `gorm:"index;not null" json:"couponId"`
	Status   string  `gorm:"type:varchar(20);default:'active'" json:"status"`
	Coupon   *Coupon `gorm:"foreignKey:CouponID" json:"coupon,omitempty"`
}
