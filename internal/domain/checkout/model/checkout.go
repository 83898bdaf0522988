package model

import (
	"time"

	"gamevault/internal/domain/pricing"

	"github.com/shopspring/decimal"
)

// State 结账会话状态
type State string

const (
	StateConfiguring     State = "configuring"
	StateSubmitting      State = "submitting"
	StateAwaitingPayment State = "awaiting_payment"
	StateConfirmed       State = "confirmed"
	StateExpired         State = "expired"
	StateCancelled       State = "cancelled"
)

// Terminal 是否为终态
func (s State) Terminal() bool {
	switch s {
	case StateConfirmed, StateExpired, StateCancelled:
		return true
	}
	return false
}

// IdentityStatus 玩家身份校验进度
type IdentityStatus string

const (
	IdentityIdle       IdentityStatus = "idle"
	IdentityPending    IdentityStatus = "pending"
	IdentityValid      IdentityStatus = "valid"
	IdentitySelectRole IdentityStatus = "select_role"
	IdentityInvalid    IdentityStatus = "invalid"
)

// ServerSelection 服务器取值与展示名
type ServerSelection struct {
	Value string `json:"value"`
	Name  string `json:"name,omitempty"`
}

// Label 展示名，缺省为取值
func (s ServerSelection) Label() string {
	if s.Name != "" {
		return s.Name
	}
	return s.Value
}

// Role 角色
type Role struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductRef 选中商品及加入草稿时的价格
type ProductRef struct {
	ID    int64           `json:"id"`
	Name  string          `json:"name"`
	Price decimal.Decimal `json:"price"`
}

// AppliedCoupon 草稿上已使用的券
type AppliedCoupon struct {
	UserCouponID  string             `json:"userCouponId"`
	CouponID      int64              `json:"couponId"`
	Code          string             `json:"code"`
	Description   string             `json:"description,omitempty"`
	Rule          pricing.CouponRule `json:"rule"`
	MinOrderValue decimal.Decimal    `json:"minOrderValue"`
}

// Draft 结账草稿
type Draft struct {
	GameKey  string `json:"gameKey"`
	GameName string `json:"gameName"`

	PlayerUID         string          `json:"playerUid"`
	Server            ServerSelection `json:"server"`
	PlayerDisplayName string          `json:"playerDisplayName,omitempty"`
	Roles             []Role          `json:"roles,omitempty"`
	SelectedRoleID    string          `json:"selectedRoleId,omitempty"`
	IdentityStatus    IdentityStatus  `json:"identityStatus"`
	IdentityMessage   string          `json:"identityMessage,omitempty"`
	// IdentityGen 每次修改 UID/服务器递增，旧的校验结果按代号丢弃
	IdentityGen uint64 `json:"identityGen"`
	// PlaceholderName 未开启校验时的占位昵称
	PlaceholderName bool `json:"placeholderName,omitempty"`

	Product         *ProductRef    `json:"product,omitempty"`
	Quantity        int            `json:"quantity"`
	PaymentMethodID int64          `json:"paymentMethodId,omitempty"`
	Coupon          *AppliedCoupon `json:"coupon,omitempty"`
	RemitterName    string         `json:"remitterName,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// NewDraft 新草稿，ttl 后硬过期
func NewDraft(gameKey, gameName string, now time.Time, ttl time.Duration) *Draft {
	return &Draft{
		GameKey:        gameKey,
		GameName:       gameName,
		IdentityStatus: IdentityIdle,
		Quantity:       1,
		CreatedAt:      now,
		ExpiresAt:      now.Add(ttl),
	}
}

// Expired 草稿是否已过期
func (d *Draft) Expired(now time.Time) bool {
	return !now.Before(d.ExpiresAt)
}

// ResetIdentity 作废当前校验结果并返回新的代号
func (d *Draft) ResetIdentity() uint64 {
	d.IdentityGen++
	d.IdentityStatus = IdentityIdle
	d.IdentityMessage = ""
	d.PlayerDisplayName = ""
	d.PlaceholderName = false
	d.Roles = nil
	d.SelectedRoleID = ""
	return d.IdentityGen
}

// Clone 深拷贝
func (d *Draft) Clone() *Draft {
	if d == nil {
		return nil
	}
	c := *d
	if d.Roles != nil {
		c.Roles = append([]Role(nil), d.Roles...)
	}
	if d.Product != nil {
		p := *d.Product
		c.Product = &p
	}
	if d.Coupon != nil {
		cp := *d.Coupon
		c.Coupon = &cp
	}
	return &c
}

// PendingPayment 已下单、等待扫码支付的订单
type PendingPayment struct {
	OrderID       string          `json:"orderId"`
	ReadableID    string          `json:"readableId"`
	UserID        string          `json:"userId"`
	GameKey       string          `json:"gameKey"`
	PaymentMethod string          `json:"paymentMethod"`
	TotalAmount   decimal.Decimal `json:"totalAmount"`
	QRImageData   string          `json:"qrImageData"`
	ReferenceID   string          `json:"referenceId,omitempty"`
	ExpiresAt     time.Time       `json:"expiresAt"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// Remaining 距离二维码过期的时间，最小为 0
func (p *PendingPayment) Remaining(now time.Time) time.Duration {
	d := p.ExpiresAt.Sub(now)
	if d < 0 {
		return 0
	}
	return d
}

// DisplayID 展示用订单号
func (p *PendingPayment) DisplayID() string {
	switch {
	case p.ReadableID != "":
		return p.ReadableID
	case p.ReferenceID != "":
		return p.ReferenceID
	default:
		return p.OrderID
	}
}

// Clone 拷贝
func (p *PendingPayment) Clone() *PendingPayment {
	if p == nil {
		return nil
	}
	c := *p
	return &c
}

// Preference 按游戏记住的 UID 与服务器
type Preference struct {
	UID        string `json:"uid"`
	Server     string `json:"server"`
	ServerName string `json:"serverName,omitempty"`
}

// Empty 是否没有任何记录
func (p Preference) Empty() bool {
	return p.UID == "" && p.Server == ""
}
