package repository

import (
	"context"
	"errors"

	"gamevault/internal/domain/review/model"

	"gorm.io/gorm"
)

var ErrGameNotFound = errors.New("game not found")

type ReviewRepository interface {
	Create(ctx context.Context, r *model.Review) error
	Summary(ctx context.Context, gameKey string) (*model.RatingSummary, error)
	SalesCount(ctx context.Context, gameKey string) (int64, error)
	Latest(ctx context.Context, gameKey string, limit int) ([]model.Review, error)
	Nickname(ctx context.Context, userID string) (string, error)
	IncrementPoints(ctx context.Context, userID string, points int) error
}

type reviewRepository struct {
	db *gorm.DB
}

func NewReviewRepository(db *gorm.DB) ReviewRepository {
	return &reviewRepository{db: db}
}

func (r *reviewRepository) Create(ctx context.Context, review *model.Review) error {
	return r.db.WithContext(ctx).Create(review).Error
}

// Summary 评价条数与总分
func (r *reviewRepository) Summary(ctx context.Context, gameKey string) (*model.RatingSummary, error) {
	var s model.RatingSummary
	err := r.db.WithContext(ctx).Model(&model.Review{}).
		Select("COUNT(*) AS count, COALESCE(SUM(rating), 0) AS sum").
		Where("game_key = ?", gameKey).
		Scan(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *reviewRepository) SalesCount(ctx context.Context, gameKey string) (int64, error) {
	var sales []int64
	err := r.db.WithContext(ctx).Table("games").
		Where("game_key = ?", gameKey).
		Limit(1).
		Pluck("sales_count", &sales).Error
	if err != nil {
		return 0, err
	}
	if len(sales) == 0 {
		return 0, ErrGameNotFound
	}
	return sales[0], nil
}

// Latest 最新评价在前
func (r *reviewRepository) Latest(ctx context.Context, gameKey string, limit int) ([]model.Review, error) {
	var reviews []model.Review
	err := r.db.WithContext(ctx).
		Where("game_key = ?", gameKey).
		Order("created_at DESC").
		Limit(limit).
		Find(&reviews).Error
	return reviews, err
}

// Nickname 资料昵称，没有资料时返回空串
func (r *reviewRepository) Nickname(ctx context.Context, userID string) (string, error) {
	var names []*string
	err := r.db.WithContext(ctx).Table("profiles").
		Where("id = ?", userID).
		Limit(1).
		Pluck("nickname", &names).Error
	if err != nil || len(names) == 0 || names[0] == nil {
		return "", err
	}
	return *names[0], nil
}

// IncrementPoints 调用 increment_points 存储过程
func (r *reviewRepository) IncrementPoints(ctx context.Context, userID string, points int) error {
	return r.db.WithContext(ctx).Exec(
		`SELECT increment_points(?, ?)`, userID, points,
	).Error
}
