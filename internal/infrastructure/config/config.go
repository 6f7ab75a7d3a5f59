package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Chat     ChatConfig     `mapstructure:"chat"`
}

type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

type HTTPConfig struct {
	Addr           string        `mapstructure:"addr"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	Migrate         bool          `mapstructure:"migrate"`
}

type RedisConfig struct {
	URL string `mapstructure:"url"`
}

type QueueConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	Name        string `mapstructure:"name"`
	Concurrency int    `mapstructure:"concurrency"`
	Queues      string `mapstructure:"queues"`
	MaxRetry    int    `mapstructure:"max_retry"`
	// StaleAfter bounds how long a queued delivery batch stays worth sending.
	StaleAfter time.Duration `mapstructure:"stale_after"`
}

type NATSConfig struct {
	URL           string        `mapstructure:"url"`
	Subject       string        `mapstructure:"subject"`
	MaxReconnects int           `mapstructure:"max_reconnects"`
	ReconnectWait time.Duration `mapstructure:"reconnect_wait"`
}

type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
	Issuer    string `mapstructure:"issuer"`
}

type ChatConfig struct {
	Store          string        `mapstructure:"store"`
	ForwardedLabel string        `mapstructure:"forwarded_label"`
	PresenceTTL    time.Duration `mapstructure:"presence_ttl"`
}

// envBindings keeps the variable names the service has always read.
var envBindings = map[string]string{
	"app.env":              "APP_ENV",
	"app.log_level":        "LOG_LEVEL",
	"http.addr":            "HTTP_ADDR",
	"database.url":         "DB_URL",
	"database.migrate":     "DB_MIGRATE",
	"redis.url":            "REDIS_URL",
	"queue.enabled":        "QUEUE_ENABLED",
	"queue.concurrency":    "ASYNQ_CONCURRENCY",
	"queue.queues":         "ASYNQ_QUEUES",
	"queue.stale_after":    "QUEUE_STALE_AFTER",
	"nats.url":             "NATS_URL",
	"auth.jwt_secret":      "JWT_SECRET",
	"chat.store":           "CHAT_STORE",
	"chat.forwarded_label": "CHAT_FORWARDED_LABEL",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "go-chatsync")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.request_timeout", 5*time.Second)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.migrate", true)
	v.SetDefault("queue.enabled", true)
	v.SetDefault("queue.name", "fanout")
	v.SetDefault("queue.concurrency", 10)
	v.SetDefault("queue.queues", "fanout=3,default=1")
	v.SetDefault("queue.max_retry", 3)
	v.SetDefault("queue.stale_after", 30*time.Second)
	v.SetDefault("nats.subject", "chatsync.events")
	v.SetDefault("nats.max_reconnects", 60)
	v.SetDefault("nats.reconnect_wait", 2*time.Second)
	v.SetDefault("auth.issuer", "go-chatsync")
	v.SetDefault("chat.store", StorePostgres)
	v.SetDefault("chat.forwarded_label", "Forwarded from")
	v.SetDefault("chat.presence_ttl", 90*time.Second)
}

// Load reads configuration from an optional YAML file and the environment.
// A .env file in the working directory is loaded first when present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	for key, env := range envBindings {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", env, err)
		}
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("yaml")
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("config: read %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the combinations the process cannot start without.
func (c *Config) Validate() error {
	c.Chat.Store = strings.ToLower(strings.TrimSpace(c.Chat.Store))
	switch c.Chat.Store {
	case StorePostgres:
		if strings.TrimSpace(c.Database.URL) == "" {
			return errors.New("config: DB_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("config: unknown chat store %q", c.Chat.Store)
	}
	if c.Queue.Enabled && strings.TrimSpace(c.Redis.URL) == "" {
		return errors.New("config: REDIS_URL is required when the queue is enabled")
	}
	if strings.TrimSpace(c.Auth.JWTSecret) == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	return nil
}

// IsDevelopment reports whether the process runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "" || strings.EqualFold(c.App.Env, "development")
}
