// Package pricing 计算订单报价：小计、优惠、手续费、应付与积分
package pricing

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

// DiscountType 优惠券折扣类型
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

var (
	hundred     = decimal.NewFromInt(100)
	pointWorth  = decimal.RequireFromString("0.01")
	moneyPlaces = int32(2)
)

// CouponRule 优惠规则，百分比或固定金额
type CouponRule struct {
	Type  DiscountType    `json:"type"`
	Value decimal.Decimal `json:"value"`
}

// Discount 优惠金额，约束在 [0, subtotal]
func (r CouponRule) Discount(subtotal decimal.Decimal) decimal.Decimal {
	if !subtotal.IsPositive() {
		return decimal.Zero
	}

	var d decimal.Decimal
	if r.Type == DiscountPercentage {
		d = subtotal.Mul(r.Value).Div(hundred)
	} else {
		d = r.Value
	}

	if d.IsNegative() {
		return decimal.Zero
	}
	return decimal.Min(d, subtotal)
}

// FeePolicy 支付方式手续费，Rate 为百分比
type FeePolicy struct {
	Rate decimal.Decimal `json:"rate"`
}

// Quote 一次报价
type Quote struct {
	UnitPrice     decimal.Decimal
	Quantity      int
	Subtotal      decimal.Decimal
	Discount      decimal.Decimal
	FeeRate       decimal.Decimal
	Fee           decimal.Decimal
	Total         decimal.Decimal
	LoyaltyPoints int64
	PointsValue   decimal.Decimal
}

// Calculate 计算报价。coupon / fee 为 nil 表示不适用
func Calculate(unitPrice decimal.Decimal, quantity int, coupon *CouponRule, fee *FeePolicy) Quote {
	if quantity < 0 {
		quantity = 0
	}

	subtotal := unitPrice.Mul(decimal.NewFromInt(int64(quantity)))
	if subtotal.IsNegative() {
		subtotal = decimal.Zero
	}

	discount := decimal.Zero
	if coupon != nil {
		discount = coupon.Discount(subtotal)
	}
	afterDiscount := subtotal.Sub(discount)

	rate := decimal.Zero
	feeAmount := decimal.Zero
	if fee != nil && fee.Rate.IsPositive() {
		rate = fee.Rate
		feeAmount = afterDiscount.Mul(rate).Div(hundred)
	}

	points := afterDiscount.Floor()

	return Quote{
		UnitPrice:     unitPrice,
		Quantity:      quantity,
		Subtotal:      subtotal,
		Discount:      discount,
		FeeRate:       rate,
		Fee:           feeAmount,
		Total:         afterDiscount.Add(feeAmount),
		LoyaltyPoints: points.IntPart(),
		PointsValue:   points.Mul(pointWorth),
	}
}

// MarshalJSON 金额统一输出两位小数字符串
func (q Quote) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		UnitPrice     string `json:"unitPrice"`
		Quantity      int    `json:"quantity"`
		Subtotal      string `json:"subtotal"`
		Discount      string `json:"discount"`
		FeeRate       string `json:"feeRate"`
		Fee           string `json:"fee"`
		Total         string `json:"total"`
		LoyaltyPoints int64  `json:"loyaltyPoints"`
		PointsValue   string `json:"pointsValue"`
	}{
		UnitPrice:     q.UnitPrice.StringFixed(moneyPlaces),
		Quantity:      q.Quantity,
		Subtotal:      q.Subtotal.StringFixed(moneyPlaces),
		Discount:      q.Discount.StringFixed(moneyPlaces),
		FeeRate:       q.FeeRate.String(),
		Fee:           q.Fee.StringFixed(moneyPlaces),
		Total:         q.Total.StringFixed(moneyPlaces),
		LoyaltyPoints: q.LoyaltyPoints,
		PointsValue:   q.PointsValue.StringFixed(moneyPlaces),
	})
}
