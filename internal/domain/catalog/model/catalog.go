package model

import (
	"gamevault/internal/domain/pricing"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// Game 游戏目录记录，含按游戏配置的开关
type Game struct {
	ID                   int64          `gorm:"primaryKey" json:"id"`
	GameKey              string         `gorm:"type:varchar(100);uniqueIndex;not null" json:"gameKey"`
	Name                 string         `gorm:"not null" json:"name"`
	ImageURL             string         `json:"imageUrl"`
	Category             string         `json:"category"`
	Description          string         `json:"description"`
	HasServerID          bool           `gorm:"column:has_server_id" json:"hasServerId"`
	HasRegionSelection   bool           `json:"hasRegionSelection"`
	APIValidationEnabled bool           `gorm:"column:api_validation_enabled" json:"apiValidationEnabled"`
	Regions              pq.StringArray `gorm:"type:text[]" json:"regions"`
	SalesCount           int64          `gorm:"default:0" json:"salesCount"`
	IsActive             bool           `gorm:"default:true" json:"isActive"`
}

// Product 充值商品
type Product struct {
	ID            int64               `gorm:"primaryKey" json:"id"`
	GameKey       string              `gorm:"type:varchar(100);index;not null" json:"gameKey"`
	Name          string              `gorm:"not null" json:"name"`
	Description   string              `json:"description"`
	ImageURL      string              `json:"imageUrl"`
	Price         decimal.Decimal     `gorm:"type:numeric(10,2);not null" json:"price"`
	OriginalPrice decimal.NullDecimal `gorm:"type:numeric(10,2)" json:"originalPrice"`
	Region        *string             `json:"region,omitempty"`
	IsActive      bool                `gorm:"default:true" json:"isActive"`
}

// PaymentMethod 支付方式及手续费
type PaymentMethod struct {
	ID          int64           `gorm:"primaryKey" json:"id"`
	Name        string          `gorm:"not null" json:"name"`
	IconURL     string          `json:"iconUrl"`
	FeeIsActive bool            `gorm:"column:fee_is_active" json:"feeIsActive"`
	FeeRate     decimal.Decimal `gorm:"type:numeric(5,2);default:0" json:"feeRate"`
	IsActive    bool            `gorm:"default:true" json:"isActive"`
	SortOrder   int             `json:"sortOrder"`
}

// Fee 手续费策略，未启用时返回 nil
func (m *PaymentMethod) Fee() *pricing.FeePolicy {
	if !m.FeeIsActive {
		return nil
	}
	return &pricing.FeePolicy{Rate: m.FeeRate}
}
