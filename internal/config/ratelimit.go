package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type RateLimitConfig struct {
	Enabled        bool          `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	Capacity       int           `envconfig:"RATE_LIMIT_CAPACITY" default:"60"`
	RefillTokens   int           `envconfig:"RATE_LIMIT_REFILL_TOKENS" default:"1"`
	RefillInterval time.Duration `envconfig:"RATE_LIMIT_REFILL_INTERVAL" default:"1s"`
	TTL            time.Duration `envconfig:"RATE_LIMIT_TTL" default:"10m"`
	KeyStrategy    string        `envconfig:"RATE_LIMIT_KEY_STRATEGY" default:"ip_user_route"`
	Prefix         string        `envconfig:"RATE_LIMIT_PREFIX" default:"rl"`
	Debug          bool          `envconfig:"RATE_LIMIT_DEBUG" default:"false"`

	// Aliases kept for older deployments.
	Burst       int           `envconfig:"RATE_LIMIT_BURST" default:"-1"`
	RefillEvery time.Duration `envconfig:"RATE_LIMIT_REFILL_EVERY" default:"0s"`
}

func LoadRateLimitConfig() (RateLimitConfig, error) {
	var c RateLimitConfig
	if err := envconfig.Process("", &c); err != nil {
		return RateLimitConfig{}, fmt.Errorf("load rate limit config: %w", err)
	}
	return c.normalize(), nil
}

func (c RateLimitConfig) normalize() RateLimitConfig {
	if c.Burst > 0 {
		c.Capacity = c.Burst
	}
	if c.RefillEvery > 0 {
		c.RefillTokens = 1
		c.RefillInterval = c.RefillEvery
	}
	if c.Capacity < 1 {
		c.Capacity = 1
	}
	if c.RefillTokens < 1 {
		c.RefillTokens = 1
	}
	if c.RefillInterval <= 0 {
		c.RefillInterval = time.Second
	}
	if minTTL := 5 * c.RefillInterval; c.TTL < minTTL {
		c.TTL = minTTL
	}
	return c
}
