/*
 * @module service/config/config
 * @description 应用配置，支持YAML配置文件和环境变量覆盖
 * @architecture 分层架构 - 基础设施层
 * @documentReference DESIGN.md
 * @stateFlow 默认值 -> YAML文件 -> 环境变量覆盖 -> 校验
 * @rules 环境变量优先级最高；数据来源必须可用；可选组件未启用时不连接
 * @dependencies gopkg.in/yaml.v3, github.com/spf13/cast
 * @refs main.go, service/init.go
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"

	"techintel-service/service/models"
)

// ErrInvalidConfig 配置不合法
var ErrInvalidConfig = errors.New("invalid config")

// 数据来源类型
const (
	SourceCSV = "csv"
	SourceDB  = "db"
)

// AppConfig 应用配置
type AppConfig struct {
	Server    ServerConfig    `json:"server" yaml:"server"`
	Log       LogConfig       `json:"log" yaml:"log"`
	Dataset   DatasetConfig   `json:"dataset" yaml:"dataset"`
	Database  DatabaseConfig  `json:"database" yaml:"database"`
	Redis     RedisConfig     `json:"redis" yaml:"redis"`
	RateLimit RateLimitConfig `json:"rate_limit" yaml:"rate_limit"`
	MQTT      MQTTConfig      `json:"mqtt" yaml:"mqtt"`
	Kafka     KafkaConfig     `json:"kafka" yaml:"kafka"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Port           int      `json:"port" yaml:"port"`
	BaseContext    string   `json:"base_context" yaml:"base_context"`
	AllowedOrigins []string `json:"allowed_origins" yaml:"allowed_origins"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level string `json:"level" yaml:"level"`
}

// DatasetConfig 数据集配置
type DatasetConfig struct {
	Source           string        `json:"source" yaml:"source"`
	Path             string        `json:"path" yaml:"path"`
	URL              string        `json:"url" yaml:"url"`
	Charset          string        `json:"charset" yaml:"charset"`
	Watch            bool          `json:"watch" yaml:"watch"`
	WatchDebounce    time.Duration `json:"watch_debounce" yaml:"watch_debounce"`
	ReloadCron       string        `json:"reload_cron" yaml:"reload_cron"`
	PercentTolerance float64       `json:"percent_tolerance" yaml:"percent_tolerance"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	URL      string `json:"-" yaml:"url"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	User     string `json:"user" yaml:"user"`
	Password string `json:"-" yaml:"password"`
	Name     string `json:"name" yaml:"name"`
	SSLMode  string `json:"ssl_mode" yaml:"ssl_mode"`
	Listen   bool   `json:"listen" yaml:"listen"`
}

// DSN 返回lib/pq格式连接串，gorm和LISTEN共用
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

// RedisConfig Redis配置
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled"`
	Host     string `json:"host" yaml:"host"`
	Port     int    `json:"port" yaml:"port"`
	Password string `json:"-" yaml:"password"`
	DB       int    `json:"db" yaml:"db"`
	Channel  string `json:"channel" yaml:"channel"`
}

// Addr 返回host:port
func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// RateLimitConfig 限流配置，依赖Redis
type RateLimitConfig struct {
	Enabled       bool `json:"enabled" yaml:"enabled"`
	WindowSeconds int  `json:"window_seconds" yaml:"window_seconds"`
	GlobalMax     int  `json:"global_max" yaml:"global_max"`
	ClientMax     int  `json:"client_max" yaml:"client_max"`
}

// MQTTConfig MQTT发布配置
type MQTTConfig struct {
	Enabled           bool `json:"enabled" yaml:"enabled"`
	models.MQTTConfig `yaml:",inline"`
}

// KafkaConfig Kafka发布配置
type KafkaConfig struct {
	Enabled            bool `json:"enabled" yaml:"enabled"`
	models.KafkaConfig `yaml:",inline"`
}

// Default 返回默认配置
func Default() *AppConfig {
	return &AppConfig{
		Server: ServerConfig{Port: 80, AllowedOrigins: []string{"*"}},
		Log:    LogConfig{Level: "info"},
		Dataset: DatasetConfig{
			Source:           SourceCSV,
			Path:             "data/companies.csv",
			Watch:            true,
			WatchDebounce:    500 * time.Millisecond,
			ReloadCron:       "0 */5 * * * *",
			PercentTolerance: 1.0,
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			User:    "postgres",
			Name:    "postgres",
			SSLMode: "disable",
		},
		Redis: RedisConfig{Host: "localhost", Port: 6379},
		RateLimit: RateLimitConfig{
			WindowSeconds: 60,
			GlobalMax:     6000,
			ClientMax:     600,
		},
		MQTT: MQTTConfig{MQTTConfig: models.MQTTConfig{
			Broker:    "tcp://localhost:1883",
			ClientID:  "techintel-service",
			Topic:     "techintel/dataset",
			QoS:       1,
			KeepAlive: 30 * time.Second,
		}},
		Kafka: KafkaConfig{KafkaConfig: models.KafkaConfig{
			Brokers:      []string{"localhost:9092"},
			Topic:        "techintel.dataset",
			RequiredAcks: 1,
			WriteTimeout: 5 * time.Second,
		}},
	}
}

// Load 加载配置，path为空时只使用默认值和环境变量
func Load(path string) (*AppConfig, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("解析配置文件失败: %w", err)
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置
func (c *AppConfig) Validate() error {
	switch c.Dataset.Source {
	case SourceCSV:
		if c.Dataset.Path == "" && c.Dataset.URL == "" {
			return fmt.Errorf("%w: dataset.path or dataset.url is required for csv source", ErrInvalidConfig)
		}
	case SourceDB:
	default:
		return fmt.Errorf("%w: unknown dataset.source %q", ErrInvalidConfig, c.Dataset.Source)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("%w: server.port %d out of range", ErrInvalidConfig, c.Server.Port)
	}
	if c.RateLimit.Enabled {
		if !c.Redis.Enabled {
			return fmt.Errorf("%w: rate_limit requires redis", ErrInvalidConfig)
		}
		if c.RateLimit.WindowSeconds <= 0 {
			return fmt.Errorf("%w: rate_limit.window_seconds must be positive", ErrInvalidConfig)
		}
	}
	if c.Dataset.PercentTolerance < 0 {
		return fmt.Errorf("%w: dataset.percent_tolerance must not be negative", ErrInvalidConfig)
	}
	return nil
}

type lookupFunc func(key string) (string, bool)

// applyEnv 环境变量覆盖
func (c *AppConfig) applyEnv(lookup lookupFunc) error {
	e := envApplier{lookup: lookup}

	e.int("LISTEN_PORT", &c.Server.Port)
	e.string("BASE_CONTEXT", &c.Server.BaseContext)
	e.list("CORS_ALLOWED_ORIGINS", &c.Server.AllowedOrigins)
	e.string("LOG_LEVEL", &c.Log.Level)

	e.string("DATASET_SOURCE", &c.Dataset.Source)
	e.string("DATASET_PATH", &c.Dataset.Path)
	e.string("DATASET_URL", &c.Dataset.URL)
	e.string("DATASET_CHARSET", &c.Dataset.Charset)
	e.bool("DATASET_WATCH", &c.Dataset.Watch)
	e.duration("DATASET_WATCH_DEBOUNCE", &c.Dataset.WatchDebounce)
	e.string("RELOAD_CRON", &c.Dataset.ReloadCron)
	e.float("DATASET_PERCENT_TOLERANCE", &c.Dataset.PercentTolerance)

	e.string("DATABASE_URL", &c.Database.URL)
	e.string("DB_HOST", &c.Database.Host)
	e.int("DB_PORT", &c.Database.Port)
	e.string("DB_USER", &c.Database.User)
	e.string("DB_PASSWORD", &c.Database.Password)
	e.string("DB_NAME", &c.Database.Name)
	e.string("DB_SSLMODE", &c.Database.SSLMode)
	e.bool("DB_LISTEN", &c.Database.Listen)

	e.bool("REDIS_ENABLED", &c.Redis.Enabled)
	e.string("REDIS_HOST", &c.Redis.Host)
	e.int("REDIS_PORT", &c.Redis.Port)
	e.string("REDIS_PASSWORD", &c.Redis.Password)
	e.int("REDIS_DB", &c.Redis.DB)
	e.string("REDIS_CHANNEL", &c.Redis.Channel)

	e.bool("RATE_LIMIT_ENABLED", &c.RateLimit.Enabled)
	e.int("RATE_LIMIT_WINDOW_SECONDS", &c.RateLimit.WindowSeconds)
	e.int("RATE_LIMIT_GLOBAL_MAX", &c.RateLimit.GlobalMax)
	e.int("RATE_LIMIT_CLIENT_MAX", &c.RateLimit.ClientMax)

	if _, ok := e.value("MQTT_BROKER"); ok {
		c.MQTT.Enabled = true
	}
	e.bool("MQTT_ENABLED", &c.MQTT.Enabled)
	e.string("MQTT_BROKER", &c.MQTT.Broker)
	e.string("MQTT_CLIENT_ID", &c.MQTT.ClientID)
	e.string("MQTT_USERNAME", &c.MQTT.Username)
	e.string("MQTT_PASSWORD", &c.MQTT.Password)
	e.string("MQTT_TOPIC", &c.MQTT.Topic)

	if _, ok := e.value("KAFKA_BROKERS"); ok {
		c.Kafka.Enabled = true
	}
	e.bool("KAFKA_ENABLED", &c.Kafka.Enabled)
	e.list("KAFKA_BROKERS", &c.Kafka.Brokers)
	e.string("KAFKA_TOPIC", &c.Kafka.Topic)

	return e.err
}

// envApplier 按类型转换环境变量，记录第一个转换错误
type envApplier struct {
	lookup lookupFunc
	err    error
}

func (e *envApplier) value(key string) (string, bool) {
	v, ok := e.lookup(key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func (e *envApplier) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
}

func (e *envApplier) string(key string, dst *string) {
	if v, ok := e.value(key); ok {
		*dst = v
	}
}

func (e *envApplier) list(key string, dst *[]string) {
	v, ok := e.value(key)
	if !ok {
		return
	}
	var items []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	*dst = items
}

func (e *envApplier) int(key string, dst *int) {
	if v, ok := e.value(key); ok {
		n, err := cast.ToIntE(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = n
	}
}

func (e *envApplier) float(key string, dst *float64) {
	if v, ok := e.value(key); ok {
		f, err := cast.ToFloat64E(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = f
	}
}

func (e *envApplier) bool(key string, dst *bool) {
	if v, ok := e.value(key); ok {
		b, err := cast.ToBoolE(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = b
	}
}

func (e *envApplier) duration(key string, dst *time.Duration) {
	if v, ok := e.value(key); ok {
		d, err := cast.ToDurationE(v)
		if err != nil {
			e.fail(key, err)
			return
		}
		*dst = d
	}
}
