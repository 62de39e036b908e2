package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	StoreMongo  = "mongo"
	StoreMemory = "memory"
)

type Config struct {
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	LogLevel string `mapstructure:"LOG_LEVEL"`
	Store    string `mapstructure:"STORE"`

	MongoURI      string        `mapstructure:"MONGODB_URI"`
	MongoDatabase string        `mapstructure:"MONGODB_DATABASE"`
	MongoTimeout  time.Duration `mapstructure:"MONGODB_TIMEOUT"`

	// Optional: an empty RedisURL disables the trending job lock, an empty
	// PostgresDSN disables trending run history.
	RedisURL    string `mapstructure:"REDIS_URL"`
	PostgresDSN string `mapstructure:"POSTGRES_DSN"`
	// Bounds every Redis and PostgreSQL round trip of the trending job.
	BackendTimeout time.Duration `mapstructure:"BACKEND_TIMEOUT"`

	TrendingInterval time.Duration `mapstructure:"TRENDING_INTERVAL"`
	TrendingLockTTL  time.Duration `mapstructure:"TRENDING_LOCK_TTL"`

	FeedRecencyBonus bool `mapstructure:"FEED_RECENCY_BONUS"`
}

var keys = []string{
	"HTTP_ADDR", "LOG_LEVEL", "STORE",
	"MONGODB_URI", "MONGODB_DATABASE", "MONGODB_TIMEOUT",
	"REDIS_URL", "POSTGRES_DSN", "BACKEND_TIMEOUT",
	"TRENDING_INTERVAL", "TRENDING_LOCK_TTL",
	"FEED_RECENCY_BONUS",
}

// Load reads .env (when present) into the process environment and decodes
// the environment into Config.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("config: .env not loaded, using process environment:", err)
	}
	return FromViper(viper.New())
}

func FromViper(v *viper.Viper) (*Config, error) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("STORE", StoreMongo)
	v.SetDefault("MONGODB_URI", "mongodb://localhost:27017")
	v.SetDefault("MONGODB_DATABASE", "polls")
	v.SetDefault("MONGODB_TIMEOUT", 5*time.Second)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("BACKEND_TIMEOUT", 3*time.Second)
	v.SetDefault("TRENDING_INTERVAL", 10*time.Minute)
	v.SetDefault("TRENDING_LOCK_TTL", 5*time.Minute)
	v.SetDefault("FEED_RECENCY_BONUS", false)

	v.AutomaticEnv()
	// Unmarshal only sees keys viper knows about, AutomaticEnv alone is not enough.
	for _, k := range keys {
		if err := v.BindEnv(k); err != nil {
			return nil, fmt.Errorf("config: bind %s: %w", k, err)
		}
	}

	cfg := new(Config)
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	cfg.Store = strings.ToLower(strings.TrimSpace(cfg.Store))

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Store != StoreMongo && c.Store != StoreMemory {
		return fmt.Errorf("config: STORE must be %q or %q, got %q", StoreMongo, StoreMemory, c.Store)
	}
	if c.MongoTimeout <= 0 {
		return fmt.Errorf("config: MONGODB_TIMEOUT must be positive")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("config: BACKEND_TIMEOUT must be positive")
	}
	if c.TrendingInterval <= 0 {
		return fmt.Errorf("config: TRENDING_INTERVAL must be positive")
	}
	if c.TrendingLockTTL <= 0 {
		return fmt.Errorf("config: TRENDING_LOCK_TTL must be positive")
	}
	return nil
}
