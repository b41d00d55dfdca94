package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreMySQL    = "mysql"

	LockLocal = "local"
	LockRedis = "redis"
)

type Config struct {
	Port   string `envconfig:"PORT" default:"8080"`
	AppEnv string `envconfig:"APP_ENV" default:"development"`

	StoreDriver string `envconfig:"STORE_DRIVER" default:"memory"`
	PostgresURL string `envconfig:"POSTGRES_URL"`
	MySQLURL    string `envconfig:"MYSQL_URL"`

	LockDriver    string        `envconfig:"LOCK_DRIVER" default:"local"`
	RedisAddr     string        `envconfig:"REDIS_ADDR"`
	LockTTL       time.Duration `envconfig:"LOCK_TTL" default:"10s"`
	NotifyChannel string        `envconfig:"NOTIFY_CHANNEL" default:"cashbox:notifications"`

	// Users seeds the token directory, one "token:id:name:role" per entry.
	Users []string `envconfig:"USERS"`

	RateLimitPerMinute int           `envconfig:"RATE_LIMIT_PER_MINUTE" default:"120"`
	ShutdownTimeout    time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
	Locale             string        `envconfig:"LOCALE" default:"es-PE"`
	CurrencySymbol     string        `envconfig:"CURRENCY_SYMBOL" default:"S/"`
}

func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects driver combinations that cannot start.
func (c Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StorePostgres:
		if c.PostgresURL == "" {
			return errors.New("POSTGRES_URL is required for the postgres store")
		}
	case StoreMySQL:
		if c.MySQLURL == "" {
			return errors.New("MYSQL_URL is required for the mysql store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	switch c.LockDriver {
	case LockLocal:
	case LockRedis:
		if c.RedisAddr == "" {
			return errors.New("REDIS_ADDR is required for the redis lock")
		}
	default:
		return fmt.Errorf("unknown LOCK_DRIVER %q", c.LockDriver)
	}

	if c.LockTTL <= 0 {
		return errors.New("LOCK_TTL must be positive")
	}
	if c.RateLimitPerMinute <= 0 {
		return errors.New("RATE_LIMIT_PER_MINUTE must be positive")
	}
	return nil
}

func (c Config) IsProduction() bool {
	return c.AppEnv == "production"
}
