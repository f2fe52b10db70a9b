package config

import (
	"fmt"
	"strings"

	"github.com/bazar-next/internal/logger"

	"github.com/spf13/viper"
)

// Config 应用配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	UserJWT  JWTConfig      `mapstructure:"user_jwt"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	CORS     CORSConfig     `mapstructure:"cors"`
	Currency CurrencyConfig `mapstructure:"currency"`
	Delivery DeliveryConfig `mapstructure:"delivery"`
	Returns  ReturnsConfig  `mapstructure:"returns"`
	OrderQR  OrderQRConfig  `mapstructure:"order_qr"`
	Payhub   PayhubConfig   `mapstructure:"payhub"`
	Security SecurityConfig `mapstructure:"security"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig 日志配置
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions 转换为 logger 配置
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig 数据库连接池配置
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // 数据库驱动（sqlite/postgres）
	DSN    string             `mapstructure:"dsn"`    // 数据库连接串
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// JWTConfig JWT 配置
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret_key"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig 异步队列配置
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// CurrencyConfig 币种与汇率配置
// 汇率表由运维带外刷新（配置文件或环境变量），应用内只读。
type CurrencyConfig struct {
	Base  string             `mapstructure:"base"`
	Rates map[string]float64 `mapstructure:"rates"` // 币种 -> 相对基准币种汇率
}

// DeliveryConfig 配送费配置
type DeliveryConfig struct {
	FeeAmount   string `mapstructure:"fee_amount"`
	FeeCurrency string `mapstructure:"fee_currency"`
}

// ReturnsConfig 退货流程配置
type ReturnsConfig struct {
	PeriodDays        int      `mapstructure:"period_days"`
	LogisticsFee      string   `mapstructure:"logistics_fee"`
	FreeReturnReasons []string `mapstructure:"free_return_reasons"`
	QRLength          int      `mapstructure:"qr_length"`
	QRExpireHours     int      `mapstructure:"qr_expire_hours"`
}

// OrderQRConfig 订单交接二维码配置
type OrderQRConfig struct {
	TokenLength int `mapstructure:"token_length"`
	ExpireHours int `mapstructure:"expire_hours"`
}

// PayhubConfig 退款网关配置
type PayhubConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	MerchantID string `mapstructure:"merchant_id"`
	SecretKey  string `mapstructure:"secret_key"`
	TimeoutMS  int    `mapstructure:"timeout_ms"`
}

// RateLimitRuleConfig 单条限流规则配置
type RateLimitRuleConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// SecurityConfig 安全相关配置
type SecurityConfig struct {
	ScanRateLimit RateLimitRuleConfig `mapstructure:"scan_rate_limit"`
}

// Load 加载配置
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	// 默认值
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "bazar.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "bazar.db")
	viper.SetDefault("database.pool.max_open_conns", 20)
	viper.SetDefault("database.pool.max_idle_conns", 5)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 3600)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 600)
	viper.SetDefault("user_jwt.secret_key", "change-me-in-production")
	viper.SetDefault("user_jwt.expire_hours", 72)
	viper.SetDefault("redis.enabled", false)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "bz")
	viper.SetDefault("queue.enabled", false)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"high":          6,
		"default":       3,
		"low":           1,
		"analytics":     1,
		"notifications": 3,
	})
	viper.SetDefault("cors.allow_origins", []string{"*"})
	viper.SetDefault("currency.base", "USD")
	viper.SetDefault("currency.rates", map[string]float64{"USD": 1})
	viper.SetDefault("delivery.fee_amount", "4.99")
	viper.SetDefault("delivery.fee_currency", "USD")
	viper.SetDefault("returns.period_days", 14)
	viper.SetDefault("returns.logistics_fee", "5.00")
	viper.SetDefault("returns.free_return_reasons", []string{
		"does_not_match_description",
		"defective_damaged",
	})
	viper.SetDefault("returns.qr_length", 32)
	viper.SetDefault("returns.qr_expire_hours", 24)
	viper.SetDefault("order_qr.token_length", 32)
	viper.SetDefault("order_qr.expire_hours", 24)
	viper.SetDefault("payhub.base_url", "")
	viper.SetDefault("payhub.merchant_id", "")
	viper.SetDefault("payhub.secret_key", "")
	viper.SetDefault("payhub.timeout_ms", 5000)
	viper.SetDefault("security.scan_rate_limit.window_seconds", 60)
	viper.SetDefault("security.scan_rate_limit.max_requests", 30)

	// 环境变量支持
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_")) // server.port -> SERVER_PORT

	// 读取配置文件
	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("配置解析失败: %w", err))
	}

	return &cfg
}
