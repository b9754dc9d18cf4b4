// Package bootstrap wires configuration, logging, and the service runtime.
package bootstrap

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/lmittmann/tint"

	"github.com/stagehand-app/stagehand/config"
)

// InitLogger initializes the structured logger. Development mode gets a
// colorized console handler; everything else logs JSON.
func InitLogger() *slog.Logger {
	var handler slog.Handler
	if devModeFromEnv() {
		handler = tint.NewHandler(os.Stdout, &tint.Options{Level: slog.LevelDebug})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// devModeFromEnv mirrors AppConfig.detectDevMode so the logger can be built
// before config parsing.
func devModeFromEnv() bool {
	if strings.EqualFold(os.Getenv("DEV"), "true") {
		return true
	}
	appEnv := strings.ToLower(os.Getenv("APP_ENV"))
	return appEnv == "development" || appEnv == "dev"
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig validates that at least one service is enabled and
// the enabled set has what it needs.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}
	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	if services[config.ServiceModeEscalation] && cfg.RecordStore.BaseURL == "" {
		return errors.New("escalation requires RECORD_STORE_BASE_URL")
	}
	if services[config.ServiceModeDispatchHTTP] && cfg.Dispatch.SharedSecret == "" {
		return errors.New("dispatch-http requires DISPATCH_SHARED_SECRET")
	}

	return nil
}

// GetEnabledServices returns a list of enabled service names for logging.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabled := make([]string, 0, len(services))
	for svc := range services {
		enabled = append(enabled, string(svc))
	}
	return enabled
}
