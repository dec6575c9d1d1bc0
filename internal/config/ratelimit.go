package config

import "time"

// RateLimit configures the token bucket on the credential endpoints.
type RateLimit struct {
	Enabled        bool          `env:"ENABLED" envDefault:"true"`
	Capacity       int           `env:"CAPACITY" envDefault:"10"`
	RefillTokens   int           `env:"REFILL_TOKENS" envDefault:"1"`
	RefillInterval time.Duration `env:"REFILL_INTERVAL" envDefault:"6s"`
	TTL            time.Duration `env:"TTL" envDefault:"10m"`
	KeyStrategy    string        `env:"KEY_STRATEGY" envDefault:"ip_route"`
	Prefix         string        `env:"PREFIX" envDefault:"rl"`
}

func (r RateLimit) normalize() RateLimit {
	if r.Capacity < 1 {
		r.Capacity = 1
	}
	if r.RefillTokens < 1 {
		r.RefillTokens = 1
	}
	if r.RefillInterval <= 0 {
		r.RefillInterval = time.Second
	}
	if minTTL := 5 * r.RefillInterval; r.TTL < minTTL {
		r.TTL = minTTL
	}
	return r
}
