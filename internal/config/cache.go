package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// CacheConfig drives the response cache on the catalogue endpoints. With
// Enabled false or no Redis client the middleware passes requests through.
type CacheConfig struct {
	Enabled      bool          `envconfig:"CACHE_ENABLED" default:"true"`
	MethodList   string        `envconfig:"CACHE_METHODS" default:"GET"`
	TTL          time.Duration `envconfig:"CACHE_TTL" default:"30s"`
	KeyStrategy  string        `envconfig:"CACHE_KEY_STRATEGY" default:"route_query"`
	Prefix       string        `envconfig:"CACHE_PREFIX" default:"cache"`
	MaxBodyBytes int           `envconfig:"CACHE_MAX_BODY_BYTES" default:"1048576"`

	Methods map[string]bool `ignored:"true"`
}

func LoadCacheConfig() (CacheConfig, error) {
	var c CacheConfig
	if err := envconfig.Process("", &c); err != nil {
		return CacheConfig{}, fmt.Errorf("load cache config: %w", err)
	}
	c.Methods = parseMethods(c.MethodList)
	if c.TTL <= 0 {
		c.TTL = time.Second
	}
	return c, nil
}

func parseMethods(s string) map[string]bool {
	m := map[string]bool{}
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(strings.ToUpper(p))
		if p != "" {
			m[p] = true
		}
	}
	return m
}
