package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gamevault/internal/domain/coupon/model"
	"gamevault/internal/domain/coupon/repository"

	"github.com/shopspring/decimal"
)

var (
	ErrCodeRequired  = errors.New("Please enter a coupon code.")
	ErrCouponInvalid = errors.New("Invalid or expired coupon code.")
	ErrLoginRequired = errors.New("Please log in to use coupons.")
	// ErrMinSpend 见 MinSpendError
	ErrMinSpend = errors.New("coupon minimum spend not reached")
)

// MinSpendError 小计未达到最低消费
type MinSpendError struct {
	MinOrderValue decimal.Decimal
}

func (e *MinSpendError) Error() string {
	return fmt.Sprintf("Min spend S$%s required.", e.MinOrderValue.StringFixed(2))
}

func (e *MinSpendError) Is(target error) bool {
	return target == ErrMinSpend
}

// UsableCoupon 券列表项，Usable=false 时 Reason 给出原因
type UsableCoupon struct {
	model.UserCoupon
	Usable bool   `json:"usable"`
	Reason string `json:"reason,omitempty"`
}

type CouponService interface {
	ListForUser(ctx context.Context, userID string, subtotal decimal.Decimal) ([]UsableCoupon, error)
	Resolve(ctx context.Context, userID, code string, subtotal decimal.Decimal) (*model.UserCoupon, error)
}

type couponService struct {
	repo repository.CouponRepository
	now  func() time.Time
}

func NewCouponService(repo repository.CouponRepository) CouponService {
	return &couponService{repo: repo, now: time.Now}
}

// NormalizeCode 去空白并转大写
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Eligible 判断券在当前小计下是否可用
func Eligible(uc *model.UserCoupon, subtotal decimal.Decimal, now time.Time) error {
	if uc == nil || uc.Coupon == nil || uc.Status != model.UserCouponActive {
		return ErrCouponInvalid
	}
	c := uc.Coupon
	if !c.IsActive || c.Expired(now) {
		return ErrCouponInvalid
	}
	if subtotal.LessThan(c.MinOrderValue) {
		return &MinSpendError{MinOrderValue: c.MinOrderValue}
	}
	return nil
}

// ListForUser 用户持有的全部有效券，并标注当前小计下是否可用
func (s *couponService) ListForUser(ctx context.Context, userID string, subtotal decimal.Decimal) ([]UsableCoupon, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}

	list, err := s.repo.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	out := make([]UsableCoupon, 0, len(list))
	for i := range list {
		uc := list[i]
		if uc.Coupon == nil || !uc.Coupon.IsActive || uc.Coupon.Expired(now) {
			continue
		}
		item := UsableCoupon{UserCoupon: uc, Usable: true}
		if err := Eligible(&uc, subtotal, now); err != nil {
			item.Usable = false
			item.Reason = err.Error()
		}
		out = append(out, item)
	}
	return out, nil
}

// Resolve 校验券码，返回可用的券
func (s *couponService) Resolve(ctx context.Context, userID, code string, subtotal decimal.Decimal) (*model.UserCoupon, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	code = NormalizeCode(code)
	if code == "" {
		return nil, ErrCodeRequired
	}

	uc, err := s.repo.FindActiveByCode(ctx, userID, code)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrCouponInvalid
	}
	if err != nil {
		return nil, err
	}

	if err := Eligible(uc, subtotal, s.now()); err != nil {
		return nil, err
	}
	return uc, nil
}
