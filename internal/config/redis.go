package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/redis/go-redis/v9"
)

// RedisConfig backs rate limiting and response caching. REDIS_HOST and
// REDIS_PORT win over REDIS_ADDR when both are set.
type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     string `envconfig:"REDIS_PORT"`
	Addr     string `envconfig:"REDIS_ADDR" default:"localhost:6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	TLS      bool   `envconfig:"REDIS_TLS" default:"false"`
}

func LoadRedisConfig() (RedisConfig, error) {
	var c RedisConfig
	if err := envconfig.Process("", &c); err != nil {
		return RedisConfig{}, fmt.Errorf("load redis config: %w", err)
	}
	return c, nil
}

func (c RedisConfig) Address() string {
	if c.Host != "" && c.Port != "" {
		return c.Host + ":" + c.Port
	}
	return c.Addr
}

// NewRedisClient connects and pings with a short timeout. It returns nil
// when Redis is unreachable; callers then run without caching and rate
// limiting.
func NewRedisClient(c RedisConfig) *redis.Client {
	var tlsConf *tls.Config
	if c.TLS {
		tlsConf = &tls.Config{InsecureSkipVerify: true}
	}
	client := redis.NewClient(&redis.Options{
		Addr:      c.Address(),
		Password:  c.Password,
		DB:        c.DB,
		TLSConfig: tlsConf,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil
	}
	return client
}
