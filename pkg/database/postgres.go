package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gamevault/internal/pkg/config"
	"gamevault/pkg/logger"
	"gamevault/pkg/metrics"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// InitDatabase 初始化数据库连接
func InitDatabase(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}

	// 配置 GORM
	gormConfig := &gorm.Config{
		Logger:                                   gormlogger.Default.LogMode(level),
		PrepareStmt:                              true, // 预编译 SQL 缓存
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 获取底层 SQL DB 对象以配置连接池
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	configureConnectionPool(sqlDB)
	return db, nil
}

// configureConnectionPool 配置数据库连接池
func configureConnectionPool(sqlDB *sql.DB) {
	sqlDB.SetMaxOpenConns(50)
	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetConnMaxLifetime(time.Hour)
	sqlDB.SetConnMaxIdleTime(time.Minute * 30)

	logger.Log.Info("Database connection pool configured")
}

// MonitorPool 周期性把连接池状态写入 prometheus，ctx 结束时退出
func MonitorPool(ctx context.Context, db *gorm.DB, interval time.Duration) {
	sqlDB, err := db.DB()
	if err != nil {
		logger.Log.Warn("Pool monitor disabled", zap.Error(err))
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := sqlDB.Stats()
			metrics.Default().UpdateDBConnections(stats.InUse, stats.Idle)
			if stats.WaitCount > 0 && stats.Idle == 0 {
				logger.Log.Warn("Database pool exhausted",
					zap.Int("open", stats.OpenConnections),
					zap.Int64("wait_count", stats.WaitCount),
					zap.Duration("wait_duration", stats.WaitDuration),
				)
			}
		}
	}
}
