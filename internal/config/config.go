// Package config loads server configuration from an optional YAML file
// with environment-variable overrides on top. Everything has a default, so
// the server starts with no config at all.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the server configuration.
type Config struct {
	Port          string
	DataDir       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration
	IPLimitPerMin int
	HistoryLimit  int
}

// fileConfig is the YAML shape. Durations are strings ("15m") so the file
// reads the same as the CACHE_TTL environment variable.
type fileConfig struct {
	Port          string `yaml:"port"`
	DataDir       string `yaml:"data_dir"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       *int   `yaml:"redis_db"`
	CacheTTL      string `yaml:"cache_ttl"`
	IPLimitPerMin *int   `yaml:"ip_limit_per_min"`
	HistoryLimit  *int   `yaml:"history_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Port:          "8080",
		DataDir:       "./data",
		CacheTTL:      15 * time.Minute,
		IPLimitPerMin: 60,
		HistoryLimit:  50,
	}
}

// Load reads the YAML file at path (if path is non-empty and the file
// exists) and then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Optional file; fall through to env overrides.
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			var fc fileConfig
			if err := yaml.Unmarshal(data, &fc); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
			if err := cfg.applyFile(&fc); err != nil {
				return nil, fmt.Errorf("invalid config file %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()

	if cfg.IPLimitPerMin <= 0 {
		return nil, fmt.Errorf("ip_limit_per_min must be positive, got %d", cfg.IPLimitPerMin)
	}
	if cfg.CacheTTL <= 0 {
		return nil, fmt.Errorf("cache_ttl must be positive, got %s", cfg.CacheTTL)
	}

	return cfg, nil
}

func (c *Config) applyFile(fc *fileConfig) error {
	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.DataDir != "" {
		c.DataDir = fc.DataDir
	}
	if fc.RedisAddr != "" {
		c.RedisAddr = fc.RedisAddr
	}
	if fc.RedisPassword != "" {
		c.RedisPassword = fc.RedisPassword
	}
	if fc.RedisDB != nil {
		c.RedisDB = *fc.RedisDB
	}
	if fc.CacheTTL != "" {
		ttl, err := time.ParseDuration(fc.CacheTTL)
		if err != nil {
			return fmt.Errorf("cache_ttl: %w", err)
		}
		c.CacheTTL = ttl
	}
	if fc.IPLimitPerMin != nil {
		c.IPLimitPerMin = *fc.IPLimitPerMin
	}
	if fc.HistoryLimit != nil {
		c.HistoryLimit = *fc.HistoryLimit
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Port = envOrDefault("PORT", c.Port)
	c.DataDir = envOrDefault("DATA_DIR", c.DataDir)
	c.RedisAddr = envOrDefault("REDIS_ADDR", c.RedisAddr)
	c.RedisPassword = envOrDefault("REDIS_PASSWORD", c.RedisPassword)

	if v := os.Getenv("REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			c.RedisDB = db
		}
	}
	if v := os.Getenv("CACHE_TTL"); v != "" {
		if ttl, err := time.ParseDuration(v); err == nil {
			c.CacheTTL = ttl
		}
	}
	if v := os.Getenv("IP_LIMIT_PER_MIN"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.IPLimitPerMin = n
		}
	}
}

func envOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
