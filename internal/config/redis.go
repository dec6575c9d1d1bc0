package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis contains connection parameters for the Redis server backing the
// distributed user cache, the Redis revocation store and the rate limiter.
// Addr takes precedence over Host and Port.
type Redis struct {
	Host     string `env:"HOST" envDefault:"localhost"`
	Port     string `env:"PORT" envDefault:"6379"`
	Addr     string `env:"ADDR"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB" envDefault:"0"`
	TLS      bool   `env:"TLS" envDefault:"false"`
}

func (r Redis) address() string {
	if r.Addr != "" {
		return r.Addr
	}
	return net.JoinHostPort(r.Host, r.Port)
}

// NewRedisClient connects to Redis and pings it with a short timeout.
func NewRedisClient(ctx context.Context, cfg Redis) (*redis.Client, error) {
	var tlsConf *tls.Config
	if cfg.TLS {
		tlsConf = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      cfg.address(),
		Password:  cfg.Password,
		DB:        cfg.DB,
		TLSConfig: tlsConf,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis at %s: %w", cfg.address(), err)
	}
	return client, nil
}
