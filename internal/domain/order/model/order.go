package model

import (
	"time"

	catalogModel "gamevault/internal/domain/catalog/model"
	baseModel "gamevault/pkg/model"

	"github.com/shopspring/decimal"
)

const (
	OrderStatusPending      = "pending"
	OrderStatusVerifying    = "verifying"
	OrderStatusProcessing   = "processing"
	OrderStatusCompleted    = "completed"
	OrderStatusManualReview = "manual_review"
	OrderStatusCancelled    = "cancelled"
	OrderStatusRefunded     = "refunded"
)

// IsPaymentAcknowledged 后台已确认收款（或正在核实）的状态
func IsPaymentAcknowledged(status string) bool {
	switch status {
	case OrderStatusProcessing, OrderStatusCompleted, OrderStatusVerifying:
		return true
	}
	return false
}

// IsClosed 订单已不可支付
func IsClosed(status string) bool {
	return status == OrderStatusCancelled || status == OrderStatusRefunded
}

// Order 订单模型
type Order struct {
	baseModel.BaseModel
	ReadableID    string          `gorm:"type:varchar(32);uniqueIndex" json:"readableId"`
	UserID        string          `gorm:"type:uuid;index;not null" json:"userId"`
	Status        string          `gorm:"type:varchar(20);default:'pending'" json:"status"`
	TotalAmount   decimal.Decimal `gorm:"type:numeric(10,2);not null" json:"totalAmount"`
	PaymentMethod string          `json:"paymentMethod"`
	GameUID       string          `gorm:"column:game_uid" json:"gameUid"`
	ServerRegion  *string         `json:"serverRegion,omitempty"`
	GameNickname  string          `json:"gameNickname"`
	CouponCode    *string         `json:"couponCode,omitempty"`
	RemitterName  string          `json:"remitterName"`
	CompletedAt   *time.Time      `json:"completedAt,omitempty"`
	Items         []OrderItem     `gorm:"foreignKey:OrderID" json:"items"`
}

// OrderItem 订单明细
type OrderItem struct {
	ID        int64                 `gorm:"primaryKey" json:"id"`
	OrderID   string                `gorm:"type:uuid;index;not null" json:"orderId"`
	ProductID int64                 `gorm:"not null" json:"productId"`
	Quantity  int                   `gorm:"not null" json:"quantity"`
	UnitPrice decimal.Decimal       `gorm:"type:numeric(10,2);not null" json:"unitPrice"`
	Product   *catalogModel.Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

// GameKey 订单所属游戏（取第一件商品）
func (o *Order) GameKey() string {
	for _, it := range o.Items {
		if it.Product != nil {
			return it.Product.GameKey
		}
	}
	return ""
}

// LineItem 下单明细
type LineItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// CreateOrderParams 下单存储过程的入参
type CreateOrderParams struct {
	UserID        string
	PaymentMethod string
	GameUID       string
	ServerRegion  *string
	GameNickname  string
	CouponCode    *string
	RemitterName  string
	Items         []LineItem
}

// CreatedOrder 存储过程返回，Total 以后台计算为准
type CreatedOrder struct {
	ID    string          `json:"id"`
	Total decimal.Decimal `json:"total"`
}

// RepurchaseSnapshot 再来一单所需的信息
type RepurchaseSnapshot struct {
	GameKey   string `json:"gameKey"`
	ProductID int64  `json:"productId"`
	UID       string `json:"uid"`
	Server    string `json:"server,omitempty"`
	Quantity  int    `json:"quantity"`
}
