// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Backend names accepted by Cache.Backend and RevocationBackend.
const (
	CacheMemory      = "memory"
	CacheDistributed = "distributed"

	RevocationMemory = "memory"
	RevocationRedis  = "redis"
	RevocationMySQL  = "mysql"
)

// MinSecretLength is the shortest signing secret Validate accepts.
const MinSecretLength = 32

// Config holds all runtime configuration values.
type Config struct {
	Env               string    `env:"APP_ENV" envDefault:"dev"`
	Port              string    `env:"APP_PORT" envDefault:"8080"`
	LogLevel          int       `env:"LOG_LEVEL" envDefault:"0"`
	RevocationBackend string    `env:"REVOCATION_BACKEND" envDefault:"memory"`
	DB                Database  `envPrefix:"DB_"`
	Auth              Auth      `envPrefix:"AUTH_"`
	Cache             Cache     `envPrefix:"CACHE_"`
	Redis             Redis     `envPrefix:"REDIS_"`
	RabbitMQ          RabbitMQ  `envPrefix:"RABBITMQ_"`
	RateLimit         RateLimit `envPrefix:"RATE_LIMIT_"`
}

// Database contains MySQL connection parameters.
type Database struct {
	User            string        `env:"USER" envDefault:"root"`
	Pass            string        `env:"PASS"`
	Host            string        `env:"HOST" envDefault:"127.0.0.1"`
	Port            string        `env:"PORT" envDefault:"3306"`
	Name            string        `env:"NAME" envDefault:"sessionauth"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

// Auth contains token and password parameters.
type Auth struct {
	SecretKey                   string `env:"SECRET_KEY,required"`
	Algorithm                   string `env:"ALGORITHM" envDefault:"HS256"`
	AccessTTLMinutes            int    `env:"ACCESS_TTL_MINUTES" envDefault:"30"`
	RefreshTTLDays              int    `env:"REFRESH_TTL_DAYS" envDefault:"7"`
	RefreshSlidingThresholdDays int    `env:"REFRESH_SLIDING_THRESHOLD_DAYS" envDefault:"2"`
	BcryptCost                  int    `env:"BCRYPT_COST" envDefault:"10"`
}

func (a Auth) AccessTTL() time.Duration  { return time.Duration(a.AccessTTLMinutes) * time.Minute }
func (a Auth) RefreshTTL() time.Duration { return time.Duration(a.RefreshTTLDays) * 24 * time.Hour }
func (a Auth) SlidingThreshold() time.Duration {
	return time.Duration(a.RefreshSlidingThresholdDays) * 24 * time.Hour
}

// Cache contains user resolver cache parameters.
type Cache struct {
	TTLSeconds int    `env:"TTL_SECONDS" envDefault:"60"`
	Backend    string `env:"BACKEND" envDefault:"memory"`
	Prefix     string `env:"PREFIX" envDefault:"user"`
}

func (c Cache) TTL() time.Duration { return time.Duration(c.TTLSeconds) * time.Second }

// RabbitMQ contains the broker used to fan user changes out to other instances.
// An empty URL disables the fan-out.
type RabbitMQ struct {
	URL      string `env:"URL"`
	Exchange string `env:"EXCHANGE" envDefault:"user.changed"`
}

// Load reads a .env file when present and parses the environment into a
// validated Config.
func Load(files ...string) (*Config, error) {
	if err := godotenv.Load(files...); err != nil && len(files) > 0 {
		return nil, fmt.Errorf("load env files: %w", err)
	}
	return Parse()
}

// Parse builds a Config from the current environment only.
func Parse() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.RateLimit = cfg.RateLimit.normalize()
	cfg.Auth.Algorithm = strings.ToUpper(strings.TrimSpace(cfg.Auth.Algorithm))
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects configurations the service cannot start with.
func (c *Config) Validate() error {
	var errs []error
	if len(c.Auth.SecretKey) < MinSecretLength {
		errs = append(errs, fmt.Errorf("AUTH_SECRET_KEY must be at least %d bytes", MinSecretLength))
	}
	switch c.Auth.Algorithm {
	case "HS256", "HS384", "HS512":
	default:
		errs = append(errs, fmt.Errorf("unsupported AUTH_ALGORITHM %q", c.Auth.Algorithm))
	}
	if c.Auth.AccessTTLMinutes <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL_MINUTES must be positive"))
	}
	if c.Auth.RefreshTTLDays <= 0 {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL_DAYS must be positive"))
	}
	if c.Auth.RefreshSlidingThresholdDays < 0 || c.Auth.RefreshSlidingThresholdDays > c.Auth.RefreshTTLDays {
		errs = append(errs, errors.New("AUTH_REFRESH_SLIDING_THRESHOLD_DAYS must be between 0 and AUTH_REFRESH_TTL_DAYS"))
	}
	if c.Auth.RefreshTTL() <= c.Auth.AccessTTL() {
		errs = append(errs, errors.New("refresh ttl must be longer than access ttl"))
	}
	if c.Cache.TTLSeconds <= 0 {
		errs = append(errs, errors.New("CACHE_TTL_SECONDS must be positive"))
	}
	switch c.Cache.Backend {
	case CacheMemory, CacheDistributed:
	default:
		errs = append(errs, fmt.Errorf("unknown CACHE_BACKEND %q", c.Cache.Backend))
	}
	switch c.RevocationBackend {
	case RevocationMemory, RevocationRedis, RevocationMySQL:
	default:
		errs = append(errs, fmt.Errorf("unknown REVOCATION_BACKEND %q", c.RevocationBackend))
	}
	return errors.Join(errs...)
}

// NeedsRedis reports whether any configured backend talks to Redis.
func (c *Config) NeedsRedis() bool {
	return c.Cache.Backend == CacheDistributed || c.RevocationBackend == RevocationRedis || c.RateLimit.Enabled
}
