// Package config loads cache-proxy settings from a TOML file and the
// environment.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
)

// Storage backends.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
)

// Config holds the proxy configuration.
type Config struct {
	ListenAddr string   `toml:"listen_addr"`
	UserAgent  string   `toml:"user_agent"`
	Timeout    Duration `toml:"timeout"`

	Cache  CacheConfig  `toml:"cache"`
	Log    LogConfig    `toml:"log"`
	Warmup WarmupConfig `toml:"warmup"`
}

// CacheConfig selects and configures the storage backend.
type CacheConfig struct {
	Backend     string `toml:"backend"`
	RedisAddr   string `toml:"redis_addr"`
	RedisDB     int    `toml:"redis_db"`
	RedisPrefix string `toml:"redis_prefix"`
	SQLitePath  string `toml:"sqlite_path"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `toml:"level"`
	Pretty bool   `toml:"pretty"`
}

// WarmupConfig lists URLs fetched at startup.
type WarmupConfig struct {
	URLs           []string `toml:"urls"`
	MaxConcurrency int      `toml:"max_concurrency"`
}

// Duration is a time.Duration decoded from strings like "30s".
type Duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		ListenAddr: ":8080",
		UserAgent:  "http-cache-store/0.1.0",
		Timeout:    Duration{30 * time.Second},
		Cache: CacheConfig{
			Backend:     BackendMemory,
			RedisAddr:   "localhost:6379",
			RedisPrefix: "httpcache:",
			SQLitePath:  "cache.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Warmup: WarmupConfig{
			MaxConcurrency: 8,
		},
	}
}

// Load reads path (if non-empty) over the defaults, then applies
// HTTPCACHE_* environment overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return cfg, err
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// applyEnv overrides fields from the environment.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"HTTPCACHE_LISTEN_ADDR":  &c.ListenAddr,
		"HTTPCACHE_USER_AGENT":   &c.UserAgent,
		"HTTPCACHE_BACKEND":      &c.Cache.Backend,
		"HTTPCACHE_REDIS_ADDR":   &c.Cache.RedisAddr,
		"HTTPCACHE_REDIS_PREFIX": &c.Cache.RedisPrefix,
		"HTTPCACHE_SQLITE_PATH":  &c.Cache.SQLitePath,
		"HTTPCACHE_LOG_LEVEL":    &c.Log.Level,
	}
	for key, field := range str {
		if v, ok := lookup(key); ok && v != "" {
			*field = v
		}
	}

	if v, ok := lookup("HTTPCACHE_REDIS_DB"); ok && v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("parse HTTPCACHE_REDIS_DB: %w", err)
		}
		c.Cache.RedisDB = db
	}

	if v, ok := lookup("HTTPCACHE_TIMEOUT"); ok && v != "" {
		if err := c.Timeout.UnmarshalText([]byte(v)); err != nil {
			return fmt.Errorf("parse HTTPCACHE_TIMEOUT: %w", err)
		}
	}

	if v, ok := lookup("HTTPCACHE_LOG_PRETTY"); ok && v != "" {
		pretty, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("parse HTTPCACHE_LOG_PRETTY: %w", err)
		}
		c.Log.Pretty = pretty
	}

	return nil
}

// Validate checks the configuration for consistency.
func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return fmt.Errorf("listen_addr is required")
	}
	if c.UserAgent == "" {
		return fmt.Errorf("user_agent is required")
	}
	if c.Timeout.Duration < 0 {
		return fmt.Errorf("timeout must be >= 0 (got %s)", c.Timeout.Duration)
	}

	switch c.Cache.Backend {
	case BackendMemory:
	case BackendRedis:
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr is required for the redis backend")
		}
	case BackendSQLite:
		if c.Cache.SQLitePath == "" {
			return fmt.Errorf("cache.sqlite_path is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}
