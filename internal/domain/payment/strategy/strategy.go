package strategy

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Artifact 支付凭证：二维码图片与过期时间
type Artifact struct {
	QRImageData string
	ReferenceID string
	ExpiresAt   time.Time
}

type PaymentStrategy interface {
	// Issue 为已创建的订单生成支付凭证，amount 以后台计算的总额为准
	Issue(ctx context.Context, orderID string, amount decimal.Decimal) (*Artifact, error)
}

// Registry 按支付方式名称选择策略，未注册的名称使用 fallback
type Registry struct {
	strategies map[string]PaymentStrategy
	fallback   PaymentStrategy
}

func NewRegistry(fallback PaymentStrategy) *Registry {
	return &Registry{
		strategies: make(map[string]PaymentStrategy),
		fallback:   fallback,
	}
}

// Register 注册支付策略
func (r *Registry) Register(method string, s PaymentStrategy) {
	r.strategies[normalize(method)] = s
}

// For 返回支付方式对应的策略
func (r *Registry) For(method string) PaymentStrategy {
	if s, ok := r.strategies[normalize(method)]; ok {
		return s
	}
	return r.fallback
}

func normalize(method string) string {
	return strings.ToLower(strings.TrimSpace(method))
}
