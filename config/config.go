// Package config holds the environment-driven configuration for the
// stagehand lifecycle service.
//
// Configuration is loaded from environment variables using the
// github.com/caarlos0/env library. See individual domain config files for
// the available variables:
//   - services.go: service modes, escalation, completion, worker, dispatch
//   - external.go: record store, mailer, and Redis connections
//   - observability.go: metrics emission
package config

import (
	"os"
	"strings"
)

// AppConfig is the main application configuration struct composing the
// domain-specific configuration from separate files.
type AppConfig struct {
	// IsDev controls development mode behavior (console log formatting).
	// Set DEV=true for development mode.
	IsDev bool `env:"DEV" envDefault:"false"`

	// Services is a comma-delimited list of enabled services.
	// Valid values: escalation, completion-worker, dispatch-http
	Services string `env:"SERVICES" envDefault:"escalation,completion-worker"`

	// External collaborators
	RecordStore RecordStoreConfig `envPrefix:"RECORD_STORE_"`
	Mailer      MailerConfig      `envPrefix:"MAILER_"`
	Redis       RedisConfig       `envPrefix:"REDIS_"`

	// Subsystem configuration
	Escalation EscalationConfig
	Completion CompletionConfig
	Worker     WorkerConfig
	Dispatch   DispatchConfig

	// Observability configuration
	Observability ObservabilityConfig
}

// Sanitize applies guardrails to configuration values loaded from env.
// Call after env parsing and before wiring services.
func (c *AppConfig) Sanitize() {
	c.RecordStore.Sanitize()
	c.Mailer.Sanitize()
	c.Escalation.Sanitize()
	c.Completion.Sanitize()
	c.Worker.Sanitize()
	c.Dispatch.Sanitize()
	c.Observability.Sanitize()
	c.detectDevMode()
}

// detectDevMode checks APP_ENV as a fallback for the DEV flag.
func (c *AppConfig) detectDevMode() {
	if !c.IsDev {
		appEnv := strings.ToLower(os.Getenv("APP_ENV"))
		c.IsDev = appEnv == "development" || appEnv == "dev"
	}
}

// GetEnabledServices returns the enabled services based on the Services field.
func (c *AppConfig) GetEnabledServices() (map[ServiceMode]bool, error) {
	return ParseServices(c.Services)
}

// IsEscalationEnabled returns true if the escalation scheduler is enabled.
func (c *AppConfig) IsEscalationEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeEscalation]
}

// IsCompletionWorkerEnabled returns true if the background side-effect
// worker is enabled.
func (c *AppConfig) IsCompletionWorkerEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeCompletionWorker]
}

// IsDispatchHTTPEnabled returns true if the internal dispatch HTTP listener
// is enabled.
func (c *AppConfig) IsDispatchHTTPEnabled() bool {
	services, err := c.GetEnabledServices()
	if err != nil {
		return false
	}
	return services[ServiceModeDispatchHTTP]
}
