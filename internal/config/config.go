// Package config loads server configuration from an optional TOML file and
// the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Cache     CacheConfig     `mapstructure:"cache"`
	Ledger    LedgerConfig    `mapstructure:"ledger"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	RateLimit RateLimitConfig `mapstructure:"ratelimit"`
	Log       LogConfig       `mapstructure:"log"`
}

// ServerConfig holds listener settings.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	StaticPath      string        `mapstructure:"static_path"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds sqlite settings.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds token settings.
type AuthConfig struct {
	JWTSecret  string        `mapstructure:"jwt_secret"`
	Issuer     string        `mapstructure:"issuer"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	BcryptCost int           `mapstructure:"bcrypt_cost"`
}

// CacheConfig holds the user profile cache settings. An empty RedisAddr
// disables the cache.
type CacheConfig struct {
	RedisAddr     string        `mapstructure:"redis_addr"`
	RedisPassword string        `mapstructure:"redis_password"`
	RedisDB       int           `mapstructure:"redis_db"`
	TTL           time.Duration `mapstructure:"ttl"`
}

// LedgerConfig holds defaults injected into the bill manager and debt ledger.
type LedgerConfig struct {
	DefaultCurrency    string `mapstructure:"default_currency"`
	DefaultSplitMethod string `mapstructure:"default_split_method"`
	AmountPlaces       int32  `mapstructure:"amount_places"`
	MaxRetries         int    `mapstructure:"max_retries"`
}

// AnalyticsConfig holds outbox reconciler settings.
type AnalyticsConfig struct {
	ReconcileSchedule string `mapstructure:"reconcile_schedule"`
	BatchSize         int    `mapstructure:"batch_size"`
}

// RateLimitConfig holds per-caller request limits. A zero RPS disables limiting.
type RateLimitConfig struct {
	RPS   float64 `mapstructure:"rps"`
	Burst int     `mapstructure:"burst"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load reads configuration from file and env. Env var overrides use prefix
// SPLITLEDGER_, e.g. SPLITLEDGER_DATABASE_PATH.
func Load() (Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetConfigType("toml")
	if cfgPath := os.Getenv("SPLITLEDGER_CONFIG"); cfgPath != "" {
		v.SetConfigFile(cfgPath)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", cfgPath, err)
		}
	}

	v.SetEnvPrefix("SPLITLEDGER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// LOG_LEVEL is honored for parity with logging.Setup
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" && os.Getenv("SPLITLEDGER_LOG_LEVEL") == "" {
		v.Set("log.level", lvl)
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.static_path", "")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("database.path", "./data/splitledger.db")

	v.SetDefault("auth.jwt_secret", "dev-secret-change-me")
	v.SetDefault("auth.issuer", "splitledger")
	v.SetDefault("auth.token_ttl", 24*time.Hour)
	v.SetDefault("auth.bcrypt_cost", 0)

	v.SetDefault("cache.redis_addr", "")
	v.SetDefault("cache.redis_password", "")
	v.SetDefault("cache.redis_db", 0)
	v.SetDefault("cache.ttl", 10*time.Minute)

	v.SetDefault("ledger.default_currency", "USD")
	v.SetDefault("ledger.default_split_method", "equal")
	v.SetDefault("ledger.amount_places", 0)
	v.SetDefault("ledger.max_retries", 3)

	v.SetDefault("analytics.reconcile_schedule", "@every 1m")
	v.SetDefault("analytics.batch_size", 100)

	v.SetDefault("ratelimit.rps", 20)
	v.SetDefault("ratelimit.burst", 40)

	v.SetDefault("log.level", "info")
}

// Validate rejects settings the server cannot start with.
func (c Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret is required")
	}
	if m := c.Ledger.DefaultSplitMethod; m != "equal" && m != "percentage" {
		return fmt.Errorf("ledger.default_split_method %q must be equal or percentage", m)
	}
	if c.Ledger.AmountPlaces < 0 || c.Ledger.AmountPlaces > 4 {
		return fmt.Errorf("ledger.amount_places %d out of range [0,4]", c.Ledger.AmountPlaces)
	}
	if c.Ledger.MaxRetries < 1 {
		return fmt.Errorf("ledger.max_retries must be at least 1")
	}
	if c.Analytics.BatchSize < 1 {
		return fmt.Errorf("analytics.batch_size must be at least 1")
	}
	return nil
}
