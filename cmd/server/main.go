package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"gamevault/internal/pkg/config"
	"gamevault/internal/pkg/gateway"
	"gamevault/internal/pkg/middleware"
	"gamevault/internal/pkg/realtime"
	"gamevault/internal/pkg/registry"
	"gamevault/pkg/database"
	"gamevault/pkg/logger"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	_ "gamevault/docs"

	// 注册业务模块
	_ "gamevault/internal/domain/catalog"
	_ "gamevault/internal/domain/checkout"
	_ "gamevault/internal/domain/coupon"
	_ "gamevault/internal/domain/identity"
	_ "gamevault/internal/domain/order"
	_ "gamevault/internal/domain/review"
)

// @title GameVault Checkout API
// @version 1.0
// @description Top-up checkout sessions, payment countdown and game reviews.
// @BasePath /
// @securityDefinitions.apikey Bearer
// @in header
// @name Authorization
func main() {
	config.LoadConfig()
	cfg := config.GlobalConfig

	if err := logger.InitLogger(cfg.App.Env, cfg.App.Debug); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDatabase(cfg.Database, cfg.App.Debug)
	if err != nil {
		logger.Log.Fatal("Database init failed", zap.Error(err))
	}
	rdb, err := database.InitRedis(cfg.Redis)
	if err != nil {
		logger.Log.Fatal("Redis init failed", zap.Error(err))
	}
	defer rdb.Close()

	go database.MonitorPool(ctx, db, 15*time.Second)

	listener := realtime.NewPGListener(cfg.Database.DSN(), cfg.Realtime.Channel)
	go listener.Run(ctx)

	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(corsConfig(cfg.Server.AllowedOrigins)))
	r.Use(middleware.TraceMiddleware())
	r.Use(middleware.LoggerMiddleware())
	r.Use(middleware.MetricsMiddleware())

	limiter := middleware.NewIPRateLimiter(rate.Limit(cfg.RateLimit.QPS), cfg.RateLimit.Burst)
	r.Use(middleware.RateLimitMiddleware(limiter))
	go pruneLimiter(ctx, limiter)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	if cfg.App.Env != "prod" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	err = registry.InitModules(&registry.ModuleContext{
		Ctx:      ctx,
		DB:       db,
		Redis:    rdb,
		Router:   r,
		Gateway:  gateway.NewClient(cfg.Backend.APIBaseURL, cfg.Backend.RequestTimeout, cfg.Backend.IdentityTimeout),
		Realtime: listener,
	})
	if err != nil {
		logger.Log.Fatal("Module init failed", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
}

// corsConfig 含 * 时放开全部来源（此时不允许携带凭证）
func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", middleware.SessionHeader, middleware.DeviceHeader},
		ExposeHeaders: []string{middleware.SessionHeader},
		MaxAge:        12 * time.Hour,
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			return c
		}
	}
	c.AllowOrigins = origins
	c.AllowCredentials = true
	return c
}

// pruneLimiter 定期清理不活跃 IP 的限流器
func pruneLimiter(ctx context.Context, limiter *middleware.IPRateLimiter) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := limiter.Prune(10 * time.Minute); n > 0 {
				logger.Log.Debug("Rate limiter pruned", zap.Int("removed", n))
			}
		}
	}
}
