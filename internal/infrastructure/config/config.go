package config

import (
	"fmt"
	"net/url"
	"time"

	"github.com/spf13/viper"

	"github.com/smarte-commerce/inventory-engine/internal/domain/region"
)

// Config 全局配置结构
// 设计说明：使用Viper管理配置，支持YAML文件、环境变量覆盖
// 每个区域一套独立的数据库连接,regions块按区域代码组织
type Config struct {
	Server      ServerConfig            `mapstructure:"server"`
	Regions     map[string]RegionConfig `mapstructure:"regions"`
	Redis       RedisConfig             `mapstructure:"redis"`
	JWT         JWTConfig               `mapstructure:"jwt"`
	Routing     RoutingConfig           `mapstructure:"routing"`
	Reservation ReservationConfig       `mapstructure:"reservation"`
	Fallback    FallbackConfig          `mapstructure:"fallback"`
	MQ          MQConfig                `mapstructure:"mq"`
	Tracing     TracingConfig           `mapstructure:"tracing"`
}

type ServerConfig struct {
	Port         int           `mapstructure:"port"`
	Mode         string        `mapstructure:"mode"` // debug | release | test
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// RegionConfig 单个区域的配置
type RegionConfig struct {
	Database DatabaseConfig `mapstructure:"database"`
}

type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"dbname"`
	Charset         string        `mapstructure:"charset"`
	ParseTime       bool          `mapstructure:"parse_time"`
	Loc             string        `mapstructure:"loc"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
}

// DSN 生成MySQL连接字符串
// 注意：loc参数需要URL编码（Asia/Shanghai → Asia%2FShanghai）
func (d DatabaseConfig) DSN() string {
	loc := url.QueryEscape(d.Loc)
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=%s&parseTime=%t&loc=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.Charset, d.ParseTime, loc)
}

type RedisConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// Addr 返回Redis地址
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type JWTConfig struct {
	Secret string        `mapstructure:"secret"`
	Expire time.Duration `mapstructure:"expire"`
}

// RoutingConfig 区域路由配置
type RoutingConfig struct {
	DefaultRegion string            `mapstructure:"default_region"`
	IPPrefixes    map[string]string `mapstructure:"ip_prefixes"` // CIDR → 区域代码
}

// ReservationConfig 预留生命周期配置
type ReservationConfig struct {
	DefaultTTL         time.Duration `mapstructure:"default_ttl"`          // 默认30分钟
	MutatorMaxAttempts int           `mapstructure:"mutator_max_attempts"` // 乐观锁重试上限,默认3
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`       // 过期清扫周期,默认1分钟
	SweepBatchSize     int           `mapstructure:"sweep_batch_size"`     // 单批清扫数量,默认100
}

// FallbackConfig 熔断降级配置
type FallbackConfig struct {
	FailureRateThreshold float64       `mapstructure:"failure_rate_threshold"` // 默认0.5
	WindowSize           uint32        `mapstructure:"window_size"`            // 默认10
	MinRequests          uint32        `mapstructure:"min_requests"`           // 默认5
	CoolDown             time.Duration `mapstructure:"cool_down"`              // 默认30s
	MaxTrialCalls        uint32        `mapstructure:"max_trial_calls"`        // 默认3
	CallTimeout          time.Duration `mapstructure:"call_timeout"`           // 默认3s
	CacheFreshTTL        time.Duration `mapstructure:"cache_fresh_ttl"`        // 默认1h
	CacheRetention       time.Duration `mapstructure:"cache_retention"`        // 默认24h
	AllowStale           bool          `mapstructure:"allow_stale"`            // 默认true
	ReplicationInterval  time.Duration `mapstructure:"replication_interval"`
	ReplicationDeadline  time.Duration `mapstructure:"replication_deadline"`
}

type MQConfig struct {
	URL      string `mapstructure:"url"`
	Exchange string `mapstructure:"exchange"`
}

type TracingConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"` // OTLP gRPC端点,如localhost:4317
}

// Load 加载配置文件
// 支持：
// 1. 默认加载config/config.yaml
// 2. 环境变量覆盖（如RESERVATION_REDIS_PASSWORD）
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 默认值:未显式配置的参数按规格默认生效
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("routing.default_region", "US")
	v.SetDefault("reservation.default_ttl", "30m")
	v.SetDefault("reservation.mutator_max_attempts", 3)
	v.SetDefault("reservation.sweep_interval", "1m")
	v.SetDefault("reservation.sweep_batch_size", 100)
	v.SetDefault("fallback.failure_rate_threshold", 0.5)
	v.SetDefault("fallback.window_size", 10)
	v.SetDefault("fallback.min_requests", 5)
	v.SetDefault("fallback.cool_down", "30s")
	v.SetDefault("fallback.max_trial_calls", 3)
	v.SetDefault("fallback.call_timeout", "3s")
	v.SetDefault("fallback.cache_fresh_ttl", "1h")
	v.SetDefault("fallback.cache_retention", "24h")
	v.SetDefault("fallback.allow_stale", true)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	// 环境变量绑定（如RESERVATION_JWT_SECRET → jwt.secret）
	v.SetEnvPrefix("RESERVATION")
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validate 配置校验
func validate(cfg *Config) error {
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("无效的服务端口: %d", cfg.Server.Port)
	}

	if !region.ID(cfg.Routing.DefaultRegion).IsValid() {
		return fmt.Errorf("无效的默认区域: %q", cfg.Routing.DefaultRegion)
	}

	// 每个已知区域都必须有自己的数据库配置
	for _, id := range region.All() {
		if _, ok := cfg.Regions[string(id)]; !ok {
			return fmt.Errorf("缺少区域%s的数据库配置", id)
		}
	}

	if cfg.JWT.Secret == "your-secret-key-change-in-production" && cfg.Server.Mode == "release" {
		return fmt.Errorf("生产环境必须修改JWT密钥")
	}

	return nil
}

// IPPrefixRegions 将路由配置的字符串映射转换为区域类型
func (c *Config) IPPrefixRegions() map[string]region.ID {
	out := make(map[string]region.ID, len(c.Routing.IPPrefixes))
	for cidr, code := range c.Routing.IPPrefixes {
		out[cidr] = region.ID(code)
	}
	return out
}
