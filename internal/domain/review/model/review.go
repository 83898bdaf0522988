package model

import (
	baseModel "gamevault/pkg/model"
)

// Review 游戏评价
type Review struct {
	baseModel.BaseModel
	GameKey    string `gorm:"type:varchar(100);index;not null" json:"gameKey"`
	UserID     string `gorm:"type:uuid;index;not null" json:"-"`
	AuthorName string `gorm:"not null" json:"authorName"`
	Rating     int    `gorm:"not null" json:"rating"`
	Comment    string `json:"comment"`
}

// RatingSummary 评分聚合
type RatingSummary struct {
	Count int64
	Sum   int64
}

// GameStats 游戏页头部的评分与销量
type GameStats struct {
	ReviewCount int64   `json:"reviewCount"`
	Rating      float64 `json:"rating"`    // 平均分，保留一位小数，无评价时为 0
	HasRating   bool    `json:"hasRating"` // false 时前端展示 N/A
	Stars       int     `json:"stars"`     // 满星数量
	SalesCount  int64   `json:"salesCount"`
	SalesText   string  `json:"salesText"`
}
