// Package config содержит логику чтения конфигурации витрины.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

const defaultRunAddress = "localhost:8080"

// Config содержит параметры конфигурации витрины.
type Config struct {
	RunAddress        string `env:"RUN_ADDRESS"`
	VendorAPIURL      string `env:"VENDOR_API_URL"`
	VendorAffiliateID string `env:"VENDOR_AFFILIATE_ID"`
	VendorAPIToken    string `env:"VENDOR_API_TOKEN"`
	RedisAddress      string `env:"REDIS_ADDRESS"`
	DatabaseURI       string `env:"DATABASE_URI"`
	OTLPEndpoint      string `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`

	TotalRateLimit  int           `env:"TOTAL_RATE_LIMIT" envDefault:"20"`
	TotalRateWindow time.Duration `env:"TOTAL_RATE_WINDOW" envDefault:"1m"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"5s"`
}

// MockMode сообщает, что поставщик не настроен и корзины живут только в cookie.
func (c *Config) MockMode() bool {
	return c.VendorAPIURL == "" || c.VendorAffiliateID == "" || c.VendorAPIToken == ""
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
// Переменные окружения имеют приоритет над флагами.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envVendorURL := cfg.VendorAPIURL
	envRedisAddress := cfg.RedisAddress
	envDatabaseURI := cfg.DatabaseURI

	flag.StringVar(&cfg.RunAddress, "a", defaultRunAddress, "address and port for HTTP server")
	flag.StringVar(&cfg.VendorAPIURL, "v", "", "florist vendor API base URL")
	flag.StringVar(&cfg.RedisAddress, "c", "", "redis address for the response cache")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI for the order log")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envVendorURL != "" {
		cfg.VendorAPIURL = envVendorURL
	}
	if envRedisAddress != "" {
		cfg.RedisAddress = envRedisAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = defaultRunAddress
	}
	if cfg.TotalRateLimit <= 0 {
		return nil, fmt.Errorf("TOTAL_RATE_LIMIT must be positive, got %d", cfg.TotalRateLimit)
	}
	if cfg.TotalRateWindow <= 0 {
		return nil, fmt.Errorf("TOTAL_RATE_WINDOW must be positive, got %s", cfg.TotalRateWindow)
	}

	return cfg, nil
}
