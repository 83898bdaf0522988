package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"

	orderModel "gamevault/internal/domain/order/model"
	orderService "gamevault/internal/domain/order/service"
	"gamevault/internal/domain/review/model"
	"gamevault/internal/domain/review/repository"
	"gamevault/internal/pkg/worker"
	"gamevault/pkg/logger"

	"go.uber.org/zap"
)

// LatestLimit 游戏页展示的评价条数
const LatestLimit = 10

var (
	ErrLoginRequired = errors.New("login required")
	ErrInvalidRating = errors.New("Please select a rating.")
	ErrOrderRequired = errors.New("Order ID missing.")
	ErrOrderNotFound = errors.New("Could not find order details.")
	ErrInvalidOrder  = errors.New("Invalid order product data.")
	ErrGameNotFound  = repository.ErrGameNotFound
)

// Orders 评价前核对订单归属
type Orders interface {
	Get(ctx context.Context, userID, id string) (*orderModel.Order, error)
}

// PointsQueue 异步加积分
type PointsQueue interface {
	AddTask(task worker.PointsTask) bool
}

// SubmitInput 提交评价
type SubmitInput struct {
	OrderID string `json:"orderId"`
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// SubmitResult 提交结果，PointsAwarded 为本次承诺发放的积分
type SubmitResult struct {
	Review        *model.Review `json:"review"`
	PointsAwarded int           `json:"pointsAwarded"`
}

type ReviewService interface {
	Stats(ctx context.Context, gameKey string) (*model.GameStats, error)
	Latest(ctx context.Context, gameKey string) ([]model.Review, error)
	Submit(ctx context.Context, userID string, in SubmitInput) (*SubmitResult, error)
}

type reviewService struct {
	repo   repository.ReviewRepository
	orders Orders
	points PointsQueue
	award  int
}

func NewReviewService(repo repository.ReviewRepository, orders Orders, points PointsQueue, award int) ReviewService {
	return &reviewService{repo: repo, orders: orders, points: points, award: award}
}

func (s *reviewService) Stats(ctx context.Context, gameKey string) (*model.GameStats, error) {
	sum, err := s.repo.Summary(ctx, gameKey)
	if err != nil {
		return nil, fmt.Errorf("review summary: %w", err)
	}
	sales, err := s.repo.SalesCount(ctx, gameKey)
	if err != nil && !errors.Is(err, repository.ErrGameNotFound) {
		return nil, fmt.Errorf("sales count: %w", err)
	}

	stats := &model.GameStats{
		ReviewCount: sum.Count,
		SalesCount:  sales,
		SalesText:   FormatSales(sales),
	}
	if sum.Count > 0 {
		avg := float64(sum.Sum) / float64(sum.Count)
		stats.HasRating = true
		stats.Rating = math.Round(avg*10) / 10
		stats.Stars = int(math.Round(avg))
	}
	return stats, nil
}

// Latest 最新评价，作者名脱敏
func (s *reviewService) Latest(ctx context.Context, gameKey string) ([]model.Review, error) {
	reviews, err := s.repo.Latest(ctx, gameKey, LatestLimit)
	if err != nil {
		return nil, err
	}
	for i := range reviews {
		reviews[i].AuthorName = AnonymizeName(reviews[i].AuthorName)
	}
	return reviews, nil
}

func (s *reviewService) Submit(ctx context.Context, userID string, in SubmitInput) (*SubmitResult, error) {
	if userID == "" {
		return nil, ErrLoginRequired
	}
	if in.Rating < 1 || in.Rating > 5 {
		return nil, ErrInvalidRating
	}
	if in.OrderID == "" {
		return nil, ErrOrderRequired
	}

	order, err := s.orders.Get(ctx, userID, in.OrderID)
	if errors.Is(err, orderService.ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, err
	}
	gameKey := order.GameKey()
	if gameKey == "" {
		return nil, ErrInvalidOrder
	}

	nickname, err := s.repo.Nickname(ctx, userID)
	if err != nil {
		logger.Log.Warn("Profile nickname lookup failed", zap.String("user_id", userID), zap.Error(err))
	}

	review := &model.Review{
		GameKey:    gameKey,
		UserID:     userID,
		AuthorName: AuthorName(nickname, userID),
		Rating:     in.Rating,
		Comment:    strings.TrimSpace(in.Comment),
	}
	if err := s.repo.Create(ctx, review); err != nil {
		return nil, fmt.Errorf("create review: %w", err)
	}

	result := &SubmitResult{Review: review}
	if s.award > 0 && s.points.AddTask(worker.PointsTask{UserID: userID, Points: s.award, Reason: "review:" + review.ID}) {
		result.PointsAwarded = s.award
	}

	logger.Log.Info("Review submitted",
		zap.String("review_id", review.ID),
		zap.String("game", gameKey),
		zap.Int("rating", in.Rating))
	return result, nil
}

// AuthorName 没有昵称时用 User- 加用户 ID 前 6 位
func AuthorName(nickname, userID string) string {
	if n := strings.TrimSpace(nickname); n != "" {
		return n
	}
	id := userID
	if len(id) > 6 {
		id = id[:6]
	}
	return "User-" + id
}

// AnonymizeName 保留前 3 个字符（不足时只留首字符）
func AnonymizeName(name string) string {
	r := []rune(name)
	switch {
	case len(r) == 0:
		return "***"
	case len(r) <= 3:
		return string(r[0]) + "***"
	default:
		return string(r[:3]) + "***"
	}
}

// FormatSales 销量展示：超过 10 万为 100k+，超过 1000 为 Nk+
func FormatSales(sales int64) string {
	switch {
	case sales > 100000:
		return "100k+"
	case sales > 1000:
		return fmt.Sprintf("%.0fk+", math.Round(float64(sales)/1000))
	default:
		return fmt.Sprintf("%d", sales)
	}
}
