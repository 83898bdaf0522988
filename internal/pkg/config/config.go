package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构体
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	JWT       JWTConfig       `mapstructure:"jwt"`
	App       AppConfig       `mapstructure:"app"`
	Backend   BackendConfig   `mapstructure:"backend"`
	Checkout  CheckoutConfig  `mapstructure:"checkout"`
	Realtime  RealtimeConfig  `mapstructure:"realtime"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
}

type ServerConfig struct {
	Port           string   `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	Port     string `mapstructure:"port"`
	SSLMode  string `mapstructure:"sslmode"`
	TimeZone string `mapstructure:"timezone"`
}

// DSN gorm 与 pgx 共用的连接串
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s TimeZone=%s",
		d.Host, d.User, d.Password, d.DBName, d.Port, d.SSLMode, d.TimeZone)
}

// URL golang-migrate 使用的连接地址
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// JWTConfig 店铺认证服务签发的访问令牌
type JWTConfig struct {
	Secret string `mapstructure:"secret"`
	Expire int64  `mapstructure:"expire"` // 小时，仅沙箱签发令牌时使用
}

type AppConfig struct {
	Env   string `mapstructure:"env"`
	Debug bool   `mapstructure:"debug"`
}

// BackendConfig 外部 API（身份校验、服务器列表、PayNow 二维码）
type BackendConfig struct {
	APIBaseURL      string        `mapstructure:"api_base_url"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	IdentityTimeout time.Duration `mapstructure:"identity_timeout"`
}

// CheckoutConfig 结算会话参数
type CheckoutConfig struct {
	DraftTTL           time.Duration `mapstructure:"draft_ttl"`
	PendingRetention   time.Duration `mapstructure:"pending_retention"`
	ValidationDebounce time.Duration `mapstructure:"validation_debounce"`
	TickInterval       time.Duration `mapstructure:"tick_interval"`
	RedirectSeconds    int           `mapstructure:"redirect_seconds"`
	IdleEviction       time.Duration `mapstructure:"idle_eviction"`
	PointsPerReview    int           `mapstructure:"points_per_review"`
}

// RealtimeConfig 订单状态 LISTEN/NOTIFY 频道
type RealtimeConfig struct {
	Channel string `mapstructure:"channel"`
}

type RateLimitConfig struct {
	QPS   float64 `mapstructure:"qps"`
	Burst int     `mapstructure:"burst"`
}

// SandboxConfig 本地联调用的 PayNow 模拟服务
type SandboxConfig struct {
	Port         string        `mapstructure:"port"`
	UEN          string        `mapstructure:"uen"`
	MerchantName string        `mapstructure:"merchant_name"`
	QRTTL        time.Duration `mapstructure:"qr_ttl"`
}

var GlobalConfig Config

// Validate 验证配置
func (c *Config) Validate() error {
	// JWT 配置验证
	if c.JWT.Secret == "" || c.JWT.Secret == "your_super_secret_key" {
		return errors.New("please set a secure JWT secret in production")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT secret should be at least 32 characters")
	}

	// 数据库配置验证
	if c.Database.Host == "" || c.Database.User == "" || c.Database.DBName == "" {
		return errors.New("database configuration is incomplete")
	}

	// Redis 配置验证
	if c.Redis.Addr == "" {
		return errors.New("redis address is required")
	}

	if c.Backend.APIBaseURL == "" {
		return errors.New("backend api_base_url is required")
	}
	if c.Checkout.TickInterval <= 0 || c.Checkout.DraftTTL <= 0 {
		return errors.New("checkout durations must be positive")
	}

	return nil
}

// SetDefaults 注册默认值，测试与命令行工具也会复用
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.timezone", "Asia/Singapore")
	v.SetDefault("jwt.expire", 24)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.debug", true)

	v.SetDefault("backend.api_base_url", "http://localhost:5000")
	v.SetDefault("backend.request_timeout", "15s")
	v.SetDefault("backend.identity_timeout", "10s")

	v.SetDefault("checkout.draft_ttl", "30m")
	v.SetDefault("checkout.pending_retention", "1h")
	v.SetDefault("checkout.validation_debounce", "500ms")
	v.SetDefault("checkout.tick_interval", "1s")
	v.SetDefault("checkout.redirect_seconds", 5)
	v.SetDefault("checkout.idle_eviction", "45m")
	v.SetDefault("checkout.points_per_review", 30)

	v.SetDefault("realtime.channel", "order_status")
	v.SetDefault("ratelimit.qps", 20)
	v.SetDefault("ratelimit.burst", 40)

	v.SetDefault("sandbox.port", "5000")
	v.SetDefault("sandbox.uen", "202312345A")
	v.SetDefault("sandbox.merchant_name", "GAMEVAULT")
	v.SetDefault("sandbox.qr_ttl", "10m")
}

// Load 从给定 viper 实例解析配置
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("unable to decode config: %w", err)
	}

	// 手动覆盖，以防 viper 无法正确解析复杂结构或环境变量
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.Database.Host = host
	}
	if redisAddr := os.Getenv("REDIS_ADDR"); redisAddr != "" {
		cfg.Redis.Addr = redisAddr
	}
	if jwtSecret := os.Getenv("JWT_SECRET"); jwtSecret != "" {
		cfg.JWT.Secret = jwtSecret
	}
	if apiURL := os.Getenv("API_BASE_URL"); apiURL != "" {
		cfg.Backend.APIBaseURL = apiURL
	}
	return cfg, nil
}

// LoadConfig 加载配置
func LoadConfig() {
	// 获取环境变量，默认为dev
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "dev"
	}

	// 根据环境选择配置文件
	configName := "config"
	if env != "dev" {
		configName = "config." + env
	}

	v := viper.GetViper()
	v.SetConfigName(configName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")
	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Printf("Warning: Config file not found, using defaults or env vars: %v", err)
	}

	// 绑定环境变量
	v.AutomaticEnv()

	cfg, err := Load(v)
	if err != nil {
		log.Fatalf("Unable to decode into struct: %v", err)
	}
	GlobalConfig = cfg

	// 验证配置
	if err := GlobalConfig.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	log.Printf("Configuration loaded and validated successfully. Environment: %s", GlobalConfig.App.Env)
}
