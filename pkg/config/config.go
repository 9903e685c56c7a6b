package config

import (
	"os"
	"strconv"
	"time"
)

// DBConfig 数据库配置
type DBConfig struct {
	Host          string        `yaml:"host"`
	Port          int           `yaml:"port"`
	User          string        `yaml:"user"`
	Password      string        `yaml:"password"`
	Name          string        `yaml:"name"`
	SSLMode       string        `yaml:"sslmode"`
	MaxConns      int32         `yaml:"max_conns"`
	MinConns      int32         `yaml:"min_conns"`
	SlowThreshold time.Duration `yaml:"slow_threshold"`
}

// MQConfig 消息队列配置
type MQConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig Redis配置
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// JWTConfig JWT配置
type JWTConfig struct {
	Secret string `yaml:"secret"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port string `yaml:"port"`
}

// OverrideDBFromEnv 从环境变量覆盖数据库配置
func OverrideDBFromEnv(cfg *DBConfig) {
	EnvString("DB_HOST", &cfg.Host)
	EnvInt("DB_PORT", &cfg.Port)
	EnvString("DB_USER", &cfg.User)
	EnvString("DB_PASSWORD", &cfg.Password)
	EnvString("DB_NAME", &cfg.Name)
	EnvString("DB_SSLMODE", &cfg.SSLMode)
	EnvInt32("DB_MAX_CONNS", &cfg.MaxConns)
	EnvDuration("DB_SLOW_THRESHOLD", &cfg.SlowThreshold)
}

// OverrideMQFromEnv 从环境变量覆盖MQ配置
func OverrideMQFromEnv(cfg *MQConfig) {
	EnvString("MQ_URL", &cfg.URL)
}

// OverrideRedisFromEnv 从环境变量覆盖Redis配置
func OverrideRedisFromEnv(cfg *RedisConfig) {
	EnvString("REDIS_ADDR", &cfg.Addr)
	EnvString("REDIS_PASSWORD", &cfg.Password)
	EnvInt("REDIS_DB", &cfg.DB)
}

// OverrideJWTFromEnv 从环境变量覆盖JWT配置
func OverrideJWTFromEnv(cfg *JWTConfig) {
	EnvString("JWT_SECRET", &cfg.Secret)
}

// OverrideServerFromEnv 从环境变量覆盖服务器配置
func OverrideServerFromEnv(cfg *ServerConfig) {
	EnvString("SERVER_PORT", &cfg.Port)
}

// EnvString 等 Env* 仅在变量非空且可解析时覆盖 dst
func EnvString(key string, dst *string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func EnvInt(key string, dst *int) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func EnvInt32(key string, dst *int32) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func EnvFloat(key string, dst *float64) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func EnvDuration(key string, dst *time.Duration) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
