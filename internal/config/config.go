// Package config содержит логику чтения конфигурации сервиса проката.
package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	defaultRunAddress        = "localhost:8080"
	defaultLockTimeout       = 5 * time.Second
	defaultReconcileInterval = time.Minute
	defaultTimezone          = "UTC"
	defaultRateCapacity      = 20
	defaultRateRefillEvery   = 500 * time.Millisecond
)

// Config содержит параметры конфигурации сервиса проката.
type Config struct {
	RunAddress  string `env:"RUN_ADDRESS"`
	DatabaseURI string `env:"DATABASE_URI"`
	JWTSecret   string `env:"JWT_SECRET"`

	// RedisAddr и RabbitMQURL необязательны: без них ограничение частоты
	// запросов и публикация событий отключены.
	RedisAddr   string `env:"REDIS_ADDR"`
	RabbitMQURL string `env:"RABBITMQ_URL"`

	LockTimeout       time.Duration `env:"LOCK_TIMEOUT"`
	ReconcileInterval time.Duration `env:"RECONCILE_INTERVAL"`
	Timezone          string        `env:"TIMEZONE"`

	RateLimitCapacity    int           `env:"RATE_LIMIT_CAPACITY"`
	RateLimitRefillEvery time.Duration `env:"RATE_LIMIT_REFILL_EVERY"`
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	envCfg := Config{}
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	cfg := &Config{}

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.JWTSecret, "s", "", "HS256 secret for access tokens")
	flag.StringVar(&cfg.RedisAddr, "redis", "", "redis address for rate limiting")
	flag.StringVar(&cfg.RabbitMQURL, "amqp", "", "RabbitMQ URL for reservation events")
	flag.DurationVar(&cfg.LockTimeout, "lock-timeout", defaultLockTimeout, "row lock wait limit")
	flag.DurationVar(&cfg.ReconcileInterval, "reconcile-interval", defaultReconcileInterval, "car status reconciliation interval, 0 disables")
	flag.StringVar(&cfg.Timezone, "tz", defaultTimezone, "business timezone for calendar dates")
	flag.IntVar(&cfg.RateLimitCapacity, "rate-capacity", defaultRateCapacity, "rate limit bucket size")
	flag.DurationVar(&cfg.RateLimitRefillEvery, "rate-refill", defaultRateRefillEvery, "rate limit token refill period")

	flag.Parse()

	if envCfg.RunAddress != "" {
		cfg.RunAddress = envCfg.RunAddress
	}
	if envCfg.DatabaseURI != "" {
		cfg.DatabaseURI = envCfg.DatabaseURI
	}
	if envCfg.JWTSecret != "" {
		cfg.JWTSecret = envCfg.JWTSecret
	}
	if envCfg.RedisAddr != "" {
		cfg.RedisAddr = envCfg.RedisAddr
	}
	if envCfg.RabbitMQURL != "" {
		cfg.RabbitMQURL = envCfg.RabbitMQURL
	}
	if envCfg.LockTimeout != 0 {
		cfg.LockTimeout = envCfg.LockTimeout
	}
	// Явный RECONCILE_INTERVAL=0 отключает сверку.
	if v, ok := os.LookupEnv("RECONCILE_INTERVAL"); ok && v != "" {
		cfg.ReconcileInterval = envCfg.ReconcileInterval
	}
	if envCfg.Timezone != "" {
		cfg.Timezone = envCfg.Timezone
	}
	if envCfg.RateLimitCapacity != 0 {
		cfg.RateLimitCapacity = envCfg.RateLimitCapacity
	}
	if envCfg.RateLimitRefillEvery != 0 {
		cfg.RateLimitRefillEvery = envCfg.RateLimitRefillEvery
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.LockTimeout <= 0 {
		return errors.New("lock timeout must be positive")
	}
	if c.ReconcileInterval < 0 {
		return errors.New("reconcile interval must not be negative")
	}
	if c.RateLimitCapacity <= 0 || c.RateLimitRefillEvery <= 0 {
		return errors.New("rate limit capacity and refill period must be positive")
	}
	return nil
}
